package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/arklim/weather-platform-realtime/internal/events"
	"github.com/arklim/weather-platform-realtime/internal/guard"
	"github.com/arklim/weather-platform-realtime/internal/infra/config"
	"github.com/arklim/weather-platform-realtime/internal/infra/database"
	kafkainfra "github.com/arklim/weather-platform-realtime/internal/infra/kafka"
	"github.com/arklim/weather-platform-realtime/internal/infra/logger"
	redisinfra "github.com/arklim/weather-platform-realtime/internal/infra/redis"
	"github.com/arklim/weather-platform-realtime/internal/infra/security"
	"github.com/arklim/weather-platform-realtime/internal/push"
	"github.com/arklim/weather-platform-realtime/internal/relay"
	postgresrepo "github.com/arklim/weather-platform-realtime/internal/repository/postgres"
	redisrepo "github.com/arklim/weather-platform-realtime/internal/repository/redis"
	"github.com/arklim/weather-platform-realtime/internal/transport/http/middleware"
	"github.com/arklim/weather-platform-realtime/internal/transport/http/routes"
	"github.com/arklim/weather-platform-realtime/internal/usecase"
)

// Application wires the realtime control plane together: the event
// dispatcher, the cross-instance relay, the push hub, and the HTTP API.
type Application struct {
	cfg      *config.AppConfig
	engine   *gin.Engine
	logger   *zap.Logger
	pool     *pgxpool.Pool
	redis    *redisinfra.Client
	broker   *redisinfra.Broker
	hub      *push.Hub
	listener *relay.Listener
	producer *kafkainfra.Producer
}

func New(ctx context.Context, cfg *config.AppConfig) (*Application, error) {
	log, err := logger.New(cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	pool, err := database.NewPostgresPool(ctx, cfg.Postgres, log)
	if err != nil {
		return nil, fmt.Errorf("init postgres: %w", err)
	}

	redisClient, err := redisinfra.NewClient(cfg.Redis, log)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("init redis: %w", err)
	}

	tokens, err := security.NewTokenService(cfg.JWT)
	if err != nil {
		pool.Close()
		_ = redisClient.Close()
		return nil, fmt.Errorf("init token service: %w", err)
	}

	counterStore := redisrepo.NewCounterRepository(redisClient.Client())
	registry := redisrepo.NewConnectionRegistryRepository(redisClient.Client(), cfg.Redis.ConnectionPrefix)

	limiter := guard.NewLimiter(counterStore, cfg.Redis.CounterPrefix, log)
	bruteForce := guard.NewBruteForce(counterStore, guard.BruteForceConfig{
		KeyPrefix:     cfg.Redis.GuardPrefix,
		MaxAttempts:   cfg.Guard.MaxFailedAttempts,
		AttemptWindow: cfg.Guard.AttemptWindow,
		BlockDuration: cfg.Guard.BlockDuration,
	}, log)

	dispatcher := events.NewDispatcher(log)
	broker := redisinfra.NewBroker(redisClient.Client(), log).
		WithConfirmTimeout(cfg.Relay.StartupGrace)

	relayMetrics, err := relay.NewMetrics(prometheus.DefaultRegisterer)
	if err != nil {
		log.Warn("failed to register relay metrics", zap.Error(err))
	}

	publisher := relay.NewPublisher(broker, cfg.App.InstanceID, cfg.Relay.ChannelPrefix, log, relayMetrics)
	dispatcher.Register(publisher)

	listener := relay.NewListener(broker, dispatcher, cfg.App.InstanceID, cfg.Relay.ChannelPrefix, cfg.Relay.StartupGrace, log, relayMetrics)

	pushMetrics, err := push.NewMetrics(prometheus.DefaultRegisterer)
	if err != nil {
		log.Warn("failed to register push metrics", zap.Error(err))
	}

	hub := push.NewHub(registry, cfg.App.InstanceID, push.Options{
		SendBuffer:   cfg.Push.SendBuffer,
		WriteTimeout: cfg.Push.WriteTimeout,
		PingInterval: cfg.Push.PingInterval,
		PongTimeout:  cfg.Push.PongTimeout,
	}, log, pushMetrics)
	dispatcher.Register(push.NewFanout(hub, log))

	var producer *kafkainfra.Producer
	if cfg.Kafka.Enabled && len(cfg.Kafka.Brokers) > 0 {
		producer, err = kafkainfra.NewProducer(cfg.Kafka, log)
		if err != nil {
			log.Warn("failed to init kafka producer, analytics export disabled", zap.Error(err))
		} else {
			dispatcher.Register(kafkainfra.NewExporter(producer, cfg.App, log))
			log.Info("kafka analytics exporter initialized", zap.Strings("brokers", cfg.Kafka.Brokers))
		}
	}

	forecastRepo := postgresrepo.NewForecastRepository(pool)
	userRepo := postgresrepo.NewUserRepository(pool)

	forecastService := usecase.NewForecastService(forecastRepo, dispatcher, log)
	authService := usecase.NewAuthService(userRepo, bruteForce, tokens, dispatcher, cfg.JWT.AccessTokenTTL, log)

	rateLimiter := middleware.NewRateLimiter(limiter, bruteForce, log)

	httpMetrics, err := middleware.NewHTTPMetrics(middleware.HTTPMetricsOptions{})
	if err != nil {
		log.Warn("failed to register http metrics", zap.Error(err))
	}

	engine := routes.Register(routes.Dependencies{
		Config:      cfg,
		Logger:      log,
		RateLimiter: rateLimiter,
		Tokens:      tokens,
		BruteForce:  bruteForce,
		Registry:    registry,
		Hub:         hub,
		Metrics:     httpMetrics,
		Database:    pool,
		Cache:       redisClient,
		Services: routes.ServiceSet{
			Auth:      authService,
			Forecasts: forecastService,
		},
	})

	return &Application{
		cfg:      cfg,
		engine:   engine,
		logger:   log,
		pool:     pool,
		redis:    redisClient,
		broker:   broker,
		hub:      hub,
		listener: listener,
		producer: producer,
	}, nil
}

func (a *Application) Run(ctx context.Context) error {
	defer func() {
		_ = a.logger.Sync()
	}()
	defer a.pool.Close()
	defer func() {
		_ = a.redis.Close()
	}()
	defer func() {
		if a.producer != nil {
			_ = a.producer.Close()
		}
	}()

	listenerCtx, stopListener := context.WithCancel(ctx)
	defer stopListener()

	listenerErrCh := make(chan error, 1)
	go func() {
		listenerErrCh <- a.listener.Run(listenerCtx)
	}()

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", a.cfg.App.Host, a.cfg.App.Port),
		Handler:           a.engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	a.logger.Info("starting realtime API",
		zap.String("env", a.cfg.App.Env),
		zap.String("instance", a.cfg.App.InstanceID),
		zap.String("address", srv.Addr),
	)

	serverErrCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- fmt.Errorf("run server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			a.logger.Warn("http shutdown did not finish cleanly", zap.Error(err))
		}

		a.hub.Shutdown(shutdownCtx)
		stopListener()
		_ = a.broker.Close()

		return nil
	case err := <-serverErrCh:
		return err
	case err := <-listenerErrCh:
		if err != nil {
			return fmt.Errorf("run relay listener: %w", err)
		}
		return nil
	}
}
