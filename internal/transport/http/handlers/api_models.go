package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/arklim/weather-platform-realtime/internal/core/domain"
)

// ErrorResponse represents a generic error payload with trace ID for debugging.
type ErrorResponse struct {
	Error   string `json:"error"`
	TraceID string `json:"trace_id,omitempty"`
}

// NewErrorResponse creates an error response with trace ID from context
func NewErrorResponse(c *gin.Context, errorMsg string) ErrorResponse {
	traceID, _ := c.Get("trace_id")
	traceIDStr, _ := traceID.(string)

	return ErrorResponse{
		Error:   errorMsg,
		TraceID: traceIDStr,
	}
}

// MessageResponse represents a simple message payload.
type MessageResponse struct {
	Message string `json:"message"`
}

// HealthResponse reports service liveness and dependency state.
type HealthResponse struct {
	Status    string            `json:"status"`
	StartedAt time.Time         `json:"started_at"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// LoginRequest defines the payload for the login endpoint.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// UserSummary describes a minimal view of a user returned by the API.
type UserSummary struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// LoginResponse describes the response returned for a successful login.
type LoginResponse struct {
	AccessToken string      `json:"access_token"`
	TokenType   string      `json:"token_type"`
	ExpiresAt   time.Time   `json:"expires_at"`
	SessionID   string      `json:"session_id"`
	User        UserSummary `json:"user"`
}

// ForecastRequest defines the writable forecast fields.
type ForecastRequest struct {
	Location     string    `json:"location" binding:"required"`
	Date         time.Time `json:"date" binding:"required"`
	TemperatureC int       `json:"temperature_c"`
	Summary      string    `json:"summary"`
}

// ForecastResponse is the API view of a forecast.
type ForecastResponse struct {
	ID           string    `json:"id"`
	Location     string    `json:"location"`
	Date         time.Time `json:"date"`
	TemperatureC int       `json:"temperature_c"`
	TemperatureF int       `json:"temperature_f"`
	Summary      string    `json:"summary"`
	CreatedBy    string    `json:"created_by,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func newForecastResponse(forecast domain.Forecast) ForecastResponse {
	return ForecastResponse{
		ID:           forecast.ID,
		Location:     forecast.Location,
		Date:         forecast.Date,
		TemperatureC: forecast.TemperatureC,
		TemperatureF: forecast.TemperatureF(),
		Summary:      forecast.Summary,
		CreatedBy:    forecast.CreatedBy,
		CreatedAt:    forecast.CreatedAt,
		UpdatedAt:    forecast.UpdatedAt,
	}
}

// ForecastListResponse wraps a page of forecasts.
type ForecastListResponse struct {
	Forecasts []ForecastResponse `json:"forecasts"`
	Limit     int                `json:"limit"`
	Offset    int                `json:"offset"`
}

// BlockRequest defines the payload for administrative address blocks.
type BlockRequest struct {
	Address         string `json:"address" binding:"required"`
	DurationSeconds int    `json:"duration_seconds"`
	Reason          string `json:"reason"`
}

// BlockStatusResponse reports the block state of one address.
type BlockStatusResponse struct {
	Address          string `json:"address"`
	Blocked          bool   `json:"blocked"`
	Reason           string `json:"reason,omitempty"`
	RemainingSeconds int    `json:"remaining_seconds,omitempty"`
}

// ConnectionSummary is the API view of a registered push connection.
type ConnectionSummary struct {
	ConnectionID string    `json:"connection_id"`
	InstanceID   string    `json:"instance_id,omitempty"`
	ConnectedAt  time.Time `json:"connected_at,omitempty"`
}

// ConnectionListResponse lists a user's live connections across instances.
type ConnectionListResponse struct {
	UserID      string              `json:"user_id"`
	Connections []ConnectionSummary `json:"connections"`
}
