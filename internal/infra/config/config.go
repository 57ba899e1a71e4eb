package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type AppConfig struct {
	App       AppSettings       `mapstructure:"app"`
	Postgres  PostgresSettings  `mapstructure:"postgres"`
	Redis     RedisSettings     `mapstructure:"redis"`
	Kafka     KafkaSettings     `mapstructure:"kafka"`
	JWT       JWTSettings       `mapstructure:"jwt"`
	Telemetry TelemetrySettings `mapstructure:"telemetry"`
	RateLimit RateLimitSettings `mapstructure:"rate_limit"`
	Guard     GuardSettings     `mapstructure:"guard"`
	Relay     RelaySettings     `mapstructure:"relay"`
	Push      PushSettings      `mapstructure:"push"`
	CORS      CORSSettings      `mapstructure:"cors"`
}

type AppSettings struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	// InstanceID tags relay envelopes and connection records; it must differ
	// between process instances sharing one broker. Empty means derive from
	// the hostname.
	InstanceID string `mapstructure:"instance_id"`
}

type PostgresSettings struct {
	Host              string        `mapstructure:"host"`
	Port              int           `mapstructure:"port"`
	User              string        `mapstructure:"user"`
	Password          string        `mapstructure:"password"`
	Database          string        `mapstructure:"database"`
	SSLMode           string        `mapstructure:"ssl_mode"`
	MaxConns          int32         `mapstructure:"max_conns"`
	MinConns          int32         `mapstructure:"min_conns"`
	MaxConnLifetime   time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime   time.Duration `mapstructure:"max_conn_idle_time"`
	HealthCheckPeriod time.Duration `mapstructure:"health_check_period"`
}

// RedisSettings configures Redis connection and TLS
type RedisSettings struct {
	Host             string `mapstructure:"host"`
	Port             int    `mapstructure:"port"`
	DB               int    `mapstructure:"db"`
	Password         string `mapstructure:"password"`
	TLSEnabled       bool   `mapstructure:"tls_enabled"`
	CounterPrefix    string `mapstructure:"counter_prefix"`
	ConnectionPrefix string `mapstructure:"connection_prefix"`
	GuardPrefix      string `mapstructure:"guard_prefix"`
}

// KafkaSettings configures the Kafka analytics export producer
type KafkaSettings struct {
	Enabled     bool     `mapstructure:"enabled"`
	Brokers     []string `mapstructure:"brokers"`
	TopicPrefix string   `mapstructure:"topic_prefix"`
	Async       bool     `mapstructure:"async"`
}

// RateLimitSettings configures fixed windows and max attempts per surface
type RateLimitSettings struct {
	WindowDuration       time.Duration `mapstructure:"window_duration"`
	LoginMaxAttempts     int           `mapstructure:"login_max_attempts"`
	WriteMaxAttempts     int           `mapstructure:"write_max_attempts"`
	WebsocketMaxAttempts int           `mapstructure:"websocket_max_attempts"`
}

// GuardSettings configures brute-force blocking thresholds
type GuardSettings struct {
	MaxFailedAttempts int           `mapstructure:"max_failed_attempts"`
	AttemptWindow     time.Duration `mapstructure:"attempt_window"`
	BlockDuration     time.Duration `mapstructure:"block_duration"`
}

// RelaySettings configures the cross-instance event relay
type RelaySettings struct {
	ChannelPrefix string        `mapstructure:"channel_prefix"`
	StartupGrace  time.Duration `mapstructure:"startup_grace"`
}

// PushSettings configures websocket fan-out behavior
type PushSettings struct {
	SendBuffer   int           `mapstructure:"send_buffer"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	PingInterval time.Duration `mapstructure:"ping_interval"`
	PongTimeout  time.Duration `mapstructure:"pong_timeout"`
}

type CORSSettings struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type JWTSettings struct {
	Secret         string        `mapstructure:"secret"`
	Issuer         string        `mapstructure:"issuer"`
	AccessTokenTTL time.Duration `mapstructure:"access_token_ttl"`
}

type TelemetrySettings struct {
	MetricsPort int    `mapstructure:"metrics_port"`
	ServiceName string `mapstructure:"service_name"`
}

func Load() (*AppConfig, error) {
	v := viper.New()

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix("RT")

	setDefaults(v)

	if err := bindEnvs(v, []string{
		"app.name",
		"app.env",
		"app.host",
		"app.port",
		"app.instance_id",
		"postgres.host",
		"postgres.port",
		"postgres.user",
		"postgres.password",
		"postgres.database",
		"postgres.ssl_mode",
		"postgres.max_conns",
		"postgres.min_conns",
		"postgres.max_conn_lifetime",
		"postgres.max_conn_idle_time",
		"postgres.health_check_period",
		"redis.host",
		"redis.port",
		"redis.db",
		"redis.password",
		"redis.tls_enabled",
		"redis.counter_prefix",
		"redis.connection_prefix",
		"redis.guard_prefix",
		"kafka.enabled",
		"kafka.brokers",
		"kafka.topic_prefix",
		"kafka.async",
		"jwt.secret",
		"jwt.issuer",
		"jwt.access_token_ttl",
		"telemetry.metrics_port",
		"telemetry.service_name",
		"rate_limit.window_duration",
		"rate_limit.login_max_attempts",
		"rate_limit.write_max_attempts",
		"rate_limit.websocket_max_attempts",
		"guard.max_failed_attempts",
		"guard.attempt_window",
		"guard.block_duration",
		"relay.channel_prefix",
		"relay.startup_grace",
		"push.send_buffer",
		"push.write_timeout",
		"push.ping_interval",
		"push.pong_timeout",
		"cors.allowed_origins",
	}); err != nil {
		return nil, err
	}

	v.AutomaticEnv()

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.App.InstanceID == "" {
		hostname, err := os.Hostname()
		if err != nil || hostname == "" {
			hostname = fmt.Sprintf("%s-%d", cfg.App.Name, os.Getpid())
		}
		cfg.App.InstanceID = hostname
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "weather-realtime")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.host", "0.0.0.0")
	v.SetDefault("app.port", 8080)
	v.SetDefault("app.instance_id", "")

	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "weather")
	v.SetDefault("postgres.password", "weather_password")
	v.SetDefault("postgres.database", "weather")
	v.SetDefault("postgres.ssl_mode", "disable")
	v.SetDefault("postgres.max_conns", 10)
	v.SetDefault("postgres.min_conns", 2)
	v.SetDefault("postgres.max_conn_lifetime", "60m")
	v.SetDefault("postgres.max_conn_idle_time", "15m")
	v.SetDefault("postgres.health_check_period", "30s")

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.tls_enabled", false)
	v.SetDefault("redis.counter_prefix", "rt:rate")
	v.SetDefault("redis.connection_prefix", "rt:conn")
	v.SetDefault("redis.guard_prefix", "rt:guard")

	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic_prefix", "weather")
	v.SetDefault("kafka.async", true)

	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.issuer", "weather-realtime")
	v.SetDefault("jwt.access_token_ttl", "15m")

	v.SetDefault("telemetry.metrics_port", 9090)
	v.SetDefault("telemetry.service_name", "weather-realtime")

	v.SetDefault("rate_limit.window_duration", "1m")
	v.SetDefault("rate_limit.login_max_attempts", 5)
	v.SetDefault("rate_limit.write_max_attempts", 30)
	v.SetDefault("rate_limit.websocket_max_attempts", 10)

	v.SetDefault("guard.max_failed_attempts", 5)
	v.SetDefault("guard.attempt_window", "15m")
	v.SetDefault("guard.block_duration", "30m")

	v.SetDefault("relay.channel_prefix", "platform")
	v.SetDefault("relay.startup_grace", "10s")

	v.SetDefault("push.send_buffer", 32)
	v.SetDefault("push.write_timeout", "10s")
	v.SetDefault("push.ping_interval", "30s")
	v.SetDefault("push.pong_timeout", "60s")

	v.SetDefault("cors.allowed_origins", []string{"http://localhost:3000"})
}

func bindEnvs(v *viper.Viper, keys []string) error {
	for _, key := range keys {
		envKey := strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, "RT_"+envKey, envKey); err != nil {
			return fmt.Errorf("bind env for %s: %w", key, err)
		}
	}
	return nil
}
