package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/arklim/weather-platform-realtime/internal/transport/http/middleware"
	"github.com/arklim/weather-platform-realtime/internal/usecase"
)

// ForecastHandler exposes forecast CRUD endpoints. Mutations carry the
// caller's connection ID so push notifications can skip the originator.
type ForecastHandler struct {
	forecasts *usecase.ForecastService
	logger    *zap.Logger
}

// NewForecastHandler builds a forecast handler instance.
func NewForecastHandler(forecasts *usecase.ForecastService, logger *zap.Logger) *ForecastHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ForecastHandler{forecasts: forecasts, logger: logger}
}

// RegisterRoutes wires the forecast endpoints. Reads are public; writes
// require authentication plus the supplied write middlewares.
func (h *ForecastHandler) RegisterRoutes(router gin.IRouter, authMiddleware gin.HandlerFunc, writeMiddlewares ...gin.HandlerFunc) {
	group := router.Group("/forecasts")
	group.GET("", h.List)
	group.GET("/:id", h.Get)

	writeChain := make([]gin.HandlerFunc, 0, len(writeMiddlewares)+1)
	if authMiddleware != nil {
		writeChain = append(writeChain, authMiddleware)
	}
	writeChain = append(writeChain, writeMiddlewares...)

	group.POST("", append(writeChain, h.Create)...)
	group.PUT("/:id", append(writeChain, h.Update)...)
	group.DELETE("/:id", append(writeChain, h.Delete)...)
}

// List godoc
// @Summary List forecasts
// @Tags Forecasts
// @Produce json
// @Param limit query int false "Page size"
// @Param offset query int false "Page offset"
// @Success 200 {object} ForecastListResponse
// @Router /api/v1/forecasts [get]
func (h *ForecastHandler) List(c *gin.Context) {
	limit := parseQueryInt(c, "limit", 50)
	offset := parseQueryInt(c, "offset", 0)

	forecasts, err := h.forecasts.List(c.Request.Context(), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to list forecasts"))
		return
	}

	items := make([]ForecastResponse, 0, len(forecasts))
	for _, forecast := range forecasts {
		items = append(items, newForecastResponse(forecast))
	}

	c.JSON(http.StatusOK, ForecastListResponse{
		Forecasts: items,
		Limit:     limit,
		Offset:    offset,
	})
}

// Get godoc
// @Summary Fetch one forecast
// @Tags Forecasts
// @Produce json
// @Param id path string true "Forecast ID"
// @Success 200 {object} ForecastResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/forecasts/{id} [get]
func (h *ForecastHandler) Get(c *gin.Context) {
	forecast, err := h.forecasts.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrForecastNotFound, Status: http.StatusNotFound, Message: "forecast not found"},
		}, http.StatusInternalServerError, "failed to fetch forecast")
		return
	}

	c.JSON(http.StatusOK, newForecastResponse(*forecast))
}

// Create godoc
// @Summary Create a forecast
// @Tags Forecasts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body ForecastRequest true "Forecast fields"
// @Success 201 {object} ForecastResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Router /api/v1/forecasts [post]
func (h *ForecastHandler) Create(c *gin.Context) {
	var req ForecastRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid request payload"))
		return
	}

	forecast, err := h.forecasts.Create(c.Request.Context(), h.buildInput(c, req))
	if err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to create forecast"))
		return
	}

	c.JSON(http.StatusCreated, newForecastResponse(*forecast))
}

// Update godoc
// @Summary Update a forecast
// @Tags Forecasts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Forecast ID"
// @Param request body ForecastRequest true "Forecast fields"
// @Success 200 {object} ForecastResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/forecasts/{id} [put]
func (h *ForecastHandler) Update(c *gin.Context) {
	var req ForecastRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid request payload"))
		return
	}

	forecast, err := h.forecasts.Update(c.Request.Context(), c.Param("id"), h.buildInput(c, req))
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrForecastNotFound, Status: http.StatusNotFound, Message: "forecast not found"},
		}, http.StatusInternalServerError, "failed to update forecast")
		return
	}

	c.JSON(http.StatusOK, newForecastResponse(*forecast))
}

// Delete godoc
// @Summary Delete a forecast
// @Tags Forecasts
// @Produce json
// @Security BearerAuth
// @Param id path string true "Forecast ID"
// @Success 200 {object} MessageResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/forecasts/{id} [delete]
func (h *ForecastHandler) Delete(c *gin.Context) {
	userID, _ := middleware.GetAuthenticatedUserID(c)

	err := h.forecasts.Delete(c.Request.Context(), c.Param("id"), userID, c.GetHeader(middleware.ConnectionIDHeader))
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrForecastNotFound, Status: http.StatusNotFound, Message: "forecast not found"},
		}, http.StatusInternalServerError, "failed to delete forecast")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "forecast deleted"})
}

func (h *ForecastHandler) buildInput(c *gin.Context, req ForecastRequest) usecase.ForecastInput {
	actor, _ := middleware.GetAuthenticatedUserID(c)

	return usecase.ForecastInput{
		Location:         req.Location,
		Date:             req.Date,
		TemperatureC:     req.TemperatureC,
		Summary:          req.Summary,
		Actor:            actor,
		OriginConnection: c.GetHeader(middleware.ConnectionIDHeader),
	}
}

func parseQueryInt(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return fallback
	}
	return value
}
