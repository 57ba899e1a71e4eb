package port

import (
	"context"

	"github.com/arklim/weather-platform-realtime/internal/core/domain"
)

// ForecastRepository persists the shared forecast entity.
type ForecastRepository interface {
	Create(ctx context.Context, forecast domain.Forecast) error
	Update(ctx context.Context, forecast domain.Forecast) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*domain.Forecast, error)
	List(ctx context.Context, limit, offset int) ([]domain.Forecast, error)
}

// UserRepository resolves identities for credential validation.
type UserRepository interface {
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
}
