package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/arklim/weather-platform-realtime/internal/core/domain"
	"github.com/arklim/weather-platform-realtime/internal/repository"
)

type fakeForecastRepo struct {
	mu        sync.Mutex
	forecasts map[string]domain.Forecast
	createErr error
}

func newFakeForecastRepo() *fakeForecastRepo {
	return &fakeForecastRepo{forecasts: make(map[string]domain.Forecast)}
}

func (f *fakeForecastRepo) Create(ctx context.Context, forecast domain.Forecast) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	f.forecasts[forecast.ID] = forecast
	return nil
}

func (f *fakeForecastRepo) Update(ctx context.Context, forecast domain.Forecast) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.forecasts[forecast.ID]; !ok {
		return repository.ErrNotFound
	}
	f.forecasts[forecast.ID] = forecast
	return nil
}

func (f *fakeForecastRepo) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.forecasts[id]; !ok {
		return repository.ErrNotFound
	}
	delete(f.forecasts, id)
	return nil
}

func (f *fakeForecastRepo) GetByID(ctx context.Context, id string) (*domain.Forecast, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	forecast, ok := f.forecasts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &forecast, nil
}

func (f *fakeForecastRepo) List(ctx context.Context, limit, offset int) ([]domain.Forecast, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	forecasts := make([]domain.Forecast, 0, len(f.forecasts))
	for _, forecast := range f.forecasts {
		forecasts = append(forecasts, forecast)
	}
	return forecasts, nil
}

type capturingBus struct {
	mu     sync.Mutex
	events []domain.Event
}

func (b *capturingBus) Publish(ctx context.Context, event domain.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event)
}

func (b *capturingBus) published() []domain.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]domain.Event(nil), b.events...)
}

func TestForecastServiceCreateEmitsEvent(t *testing.T) {
	repo := newFakeForecastRepo()
	bus := &capturingBus{}
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	svc := NewForecastService(repo, bus, zaptest.NewLogger(t)).WithClock(func() time.Time { return now })

	forecast, err := svc.Create(context.Background(), ForecastInput{
		Location:         "Oslo",
		Date:             now.AddDate(0, 0, 1),
		TemperatureC:     -3,
		Summary:          "Freezing",
		Actor:            "user-1",
		OriginConnection: "conn-A",
	})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if forecast.ID == "" {
		t.Fatalf("expected generated forecast id")
	}
	if !forecast.CreatedAt.Equal(now) {
		t.Fatalf("expected created-at %v, got %v", now, forecast.CreatedAt)
	}

	events := bus.published()
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	event := events[0]
	if event.Kind != domain.EventForecastCreated {
		t.Fatalf("unexpected kind %s", event.Kind)
	}
	if event.Actor != "user-1" || event.OriginConnection != "conn-A" {
		t.Fatalf("event must carry actor and origin connection, got %+v", event)
	}
	payload, ok := event.Payload.(domain.Forecast)
	if !ok {
		t.Fatalf("expected forecast payload, got %T", event.Payload)
	}
	if payload.ID != forecast.ID {
		t.Fatalf("payload forecast mismatch")
	}
}

func TestForecastServiceCreateFailureEmitsNothing(t *testing.T) {
	repo := newFakeForecastRepo()
	repo.createErr = errors.New("database down")
	bus := &capturingBus{}
	svc := NewForecastService(repo, bus, zaptest.NewLogger(t))

	_, err := svc.Create(context.Background(), ForecastInput{
		Location: "Oslo",
		Date:     time.Now(),
	})
	if err == nil {
		t.Fatalf("expected error from repository")
	}
	if len(bus.published()) != 0 {
		t.Fatalf("failed writes must not emit events")
	}
}

func TestForecastServiceUpdateEmitsEvent(t *testing.T) {
	repo := newFakeForecastRepo()
	bus := &capturingBus{}
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	svc := NewForecastService(repo, bus, zaptest.NewLogger(t)).WithClock(func() time.Time { return now })

	created, err := svc.Create(context.Background(), ForecastInput{Location: "Oslo", Date: now})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	updated, err := svc.Update(context.Background(), created.ID, ForecastInput{
		Location:         "Bergen",
		TemperatureC:     7,
		Summary:          "Rainy",
		Actor:            "user-1",
		OriginConnection: "conn-B",
	})
	if err != nil {
		t.Fatalf("Update returned error: %v", err)
	}
	if updated.Location != "Bergen" {
		t.Fatalf("expected updated location, got %q", updated.Location)
	}

	events := bus.published()
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[1].Kind != domain.EventForecastUpdated {
		t.Fatalf("unexpected kind %s", events[1].Kind)
	}
	if events[1].OriginConnection != "conn-B" {
		t.Fatalf("expected origin connection conn-B, got %q", events[1].OriginConnection)
	}
}

func TestForecastServiceUpdateMissing(t *testing.T) {
	svc := NewForecastService(newFakeForecastRepo(), &capturingBus{}, zaptest.NewLogger(t))

	_, err := svc.Update(context.Background(), "missing", ForecastInput{Location: "Oslo"})
	if !errors.Is(err, ErrForecastNotFound) {
		t.Fatalf("expected ErrForecastNotFound, got %v", err)
	}
}

func TestForecastServiceDeleteEmitsRef(t *testing.T) {
	repo := newFakeForecastRepo()
	bus := &capturingBus{}
	svc := NewForecastService(repo, bus, zaptest.NewLogger(t))

	created, err := svc.Create(context.Background(), ForecastInput{Location: "Oslo", Date: time.Now()})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	if err := svc.Delete(context.Background(), created.ID, "user-1", ""); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}

	events := bus.published()
	last := events[len(events)-1]
	if last.Kind != domain.EventForecastDeleted {
		t.Fatalf("unexpected kind %s", last.Kind)
	}
	ref, ok := last.Payload.(domain.ForecastRef)
	if !ok {
		t.Fatalf("expected forecast ref payload, got %T", last.Payload)
	}
	if ref.ID != created.ID {
		t.Fatalf("unexpected ref %+v", ref)
	}

	if _, err := svc.Get(context.Background(), created.ID); !errors.Is(err, ErrForecastNotFound) {
		t.Fatalf("expected forecast gone, got %v", err)
	}
}
