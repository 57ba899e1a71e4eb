// Package usecase holds the application services driving the realtime
// platform: forecast writes that emit events, and credential validation
// guarded against brute force.
package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	uuid "github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/arklim/weather-platform-realtime/internal/core/domain"
	"github.com/arklim/weather-platform-realtime/internal/core/port"
	"github.com/arklim/weather-platform-realtime/internal/repository"
)

// ErrForecastNotFound indicates the requested forecast does not exist.
var ErrForecastNotFound = errors.New("forecast not found")

// ForecastInput carries the writable forecast fields plus the request origin.
// OriginConnection is the websocket connection that triggered the change, when
// the caller has one; it rides on the emitted event so the push layer skips
// echoing the change back.
type ForecastInput struct {
	Location         string
	Date             time.Time
	TemperatureC     int
	Summary          string
	Actor            string
	OriginConnection string
}

// ForecastService coordinates forecast writes and the events they emit.
type ForecastService struct {
	forecasts port.ForecastRepository
	bus       port.EventBus
	logger    *zap.Logger
	now       func() time.Time
}

// NewForecastService constructs a ForecastService instance.
func NewForecastService(forecasts port.ForecastRepository, bus port.EventBus, logger *zap.Logger) *ForecastService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ForecastService{
		forecasts: forecasts,
		bus:       bus,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the service clock, primarily for testing.
func (s *ForecastService) WithClock(now func() time.Time) *ForecastService {
	if now != nil {
		s.now = now
	}
	return s
}

// Create persists a new forecast and emits forecast.created.
func (s *ForecastService) Create(ctx context.Context, input ForecastInput) (*domain.Forecast, error) {
	if input.Location == "" {
		return nil, fmt.Errorf("location is required")
	}
	if input.Date.IsZero() {
		return nil, fmt.Errorf("date is required")
	}

	now := s.now()
	forecast := domain.Forecast{
		ID:           uuid.NewString(),
		Location:     input.Location,
		Date:         input.Date.UTC(),
		TemperatureC: input.TemperatureC,
		Summary:      input.Summary,
		CreatedBy:    input.Actor,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.forecasts.Create(ctx, forecast); err != nil {
		return nil, fmt.Errorf("create forecast: %w", err)
	}

	s.bus.Publish(ctx, domain.NewEvent(domain.EventForecastCreated, input.Actor, input.OriginConnection, forecast))

	return &forecast, nil
}

// Update rewrites an existing forecast and emits forecast.updated.
func (s *ForecastService) Update(ctx context.Context, id string, input ForecastInput) (*domain.Forecast, error) {
	if id == "" {
		return nil, fmt.Errorf("forecast id is required")
	}
	if input.Location == "" {
		return nil, fmt.Errorf("location is required")
	}

	existing, err := s.forecasts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrForecastNotFound
		}
		return nil, fmt.Errorf("load forecast: %w", err)
	}

	updated := *existing
	updated.Location = input.Location
	if !input.Date.IsZero() {
		updated.Date = input.Date.UTC()
	}
	updated.TemperatureC = input.TemperatureC
	updated.Summary = input.Summary
	updated.UpdatedAt = s.now()

	if err := s.forecasts.Update(ctx, updated); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrForecastNotFound
		}
		return nil, fmt.Errorf("update forecast: %w", err)
	}

	s.bus.Publish(ctx, domain.NewEvent(domain.EventForecastUpdated, input.Actor, input.OriginConnection, updated))

	return &updated, nil
}

// Delete removes a forecast and emits forecast.deleted.
func (s *ForecastService) Delete(ctx context.Context, id, actor, originConnection string) error {
	if id == "" {
		return fmt.Errorf("forecast id is required")
	}

	if err := s.forecasts.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrForecastNotFound
		}
		return fmt.Errorf("delete forecast: %w", err)
	}

	s.bus.Publish(ctx, domain.NewEvent(domain.EventForecastDeleted, actor, originConnection, domain.ForecastRef{ID: id}))

	return nil
}

// Get retrieves a single forecast.
func (s *ForecastService) Get(ctx context.Context, id string) (*domain.Forecast, error) {
	forecast, err := s.forecasts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrForecastNotFound
		}
		return nil, fmt.Errorf("load forecast: %w", err)
	}
	return forecast, nil
}

// List returns a page of forecasts.
func (s *ForecastService) List(ctx context.Context, limit, offset int) ([]domain.Forecast, error) {
	forecasts, err := s.forecasts.List(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list forecasts: %w", err)
	}
	return forecasts, nil
}
