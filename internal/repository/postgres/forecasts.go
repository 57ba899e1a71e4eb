package postgres

import (
	"context"
	"errors"
	"fmt"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/arklim/weather-platform-realtime/internal/core/domain"
	"github.com/arklim/weather-platform-realtime/internal/core/port"
	"github.com/arklim/weather-platform-realtime/internal/repository"
)

type pgExecutor interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// ForecastRepository implements port.ForecastRepository using PostgreSQL.
type ForecastRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewForecastRepository constructs a repository backed by any executor that satisfies pgExecutor.
func NewForecastRepository(exec pgExecutor) *ForecastRepository {
	return &ForecastRepository{
		exec:    exec,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Create inserts a new forecast row.
func (r *ForecastRepository) Create(ctx context.Context, forecast domain.Forecast) error {
	query := r.builder.Insert("weather.forecasts").
		Columns(
			"id",
			"location",
			"date",
			"temperature_c",
			"summary",
			"created_by",
			"created_at",
			"updated_at",
		).
		Values(
			forecast.ID,
			forecast.Location,
			forecast.Date,
			forecast.TemperatureC,
			forecast.Summary,
			forecast.CreatedBy,
			forecast.CreatedAt,
			forecast.UpdatedAt,
		)

	sql, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build insert forecast sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert forecast: %w", err)
	}

	return nil
}

// Update rewrites the mutable columns of an existing forecast.
func (r *ForecastRepository) Update(ctx context.Context, forecast domain.Forecast) error {
	sql, args, err := r.builder.Update("weather.forecasts").
		Set("location", forecast.Location).
		Set("date", forecast.Date).
		Set("temperature_c", forecast.TemperatureC).
		Set("summary", forecast.Summary).
		Set("updated_at", forecast.UpdatedAt).
		Where(squirrel.Eq{"id": forecast.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update forecast sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update forecast: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// Delete removes a forecast row.
func (r *ForecastRepository) Delete(ctx context.Context, id string) error {
	sql, args, err := r.builder.Delete("weather.forecasts").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete forecast sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("delete forecast: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// GetByID retrieves a forecast by identifier.
func (r *ForecastRepository) GetByID(ctx context.Context, id string) (*domain.Forecast, error) {
	stmt, args, err := r.builder.
		Select(
			"id",
			"location",
			"date",
			"temperature_c",
			"summary",
			"created_by",
			"created_at",
			"updated_at",
		).
		From("weather.forecasts").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select forecast sql: %w", err)
	}

	row := r.exec.QueryRow(ctx, stmt, args...)

	var forecast domain.Forecast
	if err := row.Scan(
		&forecast.ID,
		&forecast.Location,
		&forecast.Date,
		&forecast.TemperatureC,
		&forecast.Summary,
		&forecast.CreatedBy,
		&forecast.CreatedAt,
		&forecast.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan forecast: %w", err)
	}

	return &forecast, nil
}

// List returns forecasts ordered by date, newest first.
func (r *ForecastRepository) List(ctx context.Context, limit, offset int) ([]domain.Forecast, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	stmt, args, err := r.builder.
		Select(
			"id",
			"location",
			"date",
			"temperature_c",
			"summary",
			"created_by",
			"created_at",
			"updated_at",
		).
		From("weather.forecasts").
		OrderBy("date DESC", "id").
		Limit(uint64(limit)).
		Offset(uint64(offset)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list forecasts sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("list forecasts: %w", err)
	}
	defer rows.Close()

	forecasts := make([]domain.Forecast, 0)
	for rows.Next() {
		var forecast domain.Forecast
		if err := rows.Scan(
			&forecast.ID,
			&forecast.Location,
			&forecast.Date,
			&forecast.TemperatureC,
			&forecast.Summary,
			&forecast.CreatedBy,
			&forecast.CreatedAt,
			&forecast.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan forecast row: %w", err)
		}
		forecasts = append(forecasts, forecast)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate forecasts: %w", err)
	}

	return forecasts, nil
}

var _ port.ForecastRepository = (*ForecastRepository)(nil)
