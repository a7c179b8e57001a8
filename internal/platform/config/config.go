package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

const devSigningKey = "dev-secret-key-change-in-production"

// Config is the full runtime configuration, read from the environment.
type Config struct {
	Server   Server
	Postgres Postgres
	Redis    Redis
	Kafka     Kafka
	RateLimit RateLimit
	Log       Log
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string        `env:"KFA_ADDR" envDefault:":8080"`
	JWTSigningKey   string        `env:"JWT_SIGNING_KEY"`
	JWTIssuer       string        `env:"JWT_ISSUER" envDefault:"kfa"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	TxTimeout       time.Duration `env:"TX_TIMEOUT" envDefault:"5s"`
	ReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"30s"`
}

// Postgres configures the database. An empty URL selects in-memory stores.
type Postgres struct {
	URL             string        `env:"DATABASE_URL"`
	MaxOpenConns    int           `env:"DATABASE_MAX_OPEN_CONNS" envDefault:"20"`
	MaxIdleConns    int           `env:"DATABASE_MAX_IDLE_CONNS" envDefault:"5"`
	ConnMaxLifetime time.Duration `env:"DATABASE_CONN_MAX_LIFETIME" envDefault:"30m"`
}

// Redis configures the verification cache. An empty address disables it.
type Redis struct {
	Addr         string        `env:"REDIS_ADDR"`
	Password     string        `env:"REDIS_PASSWORD"`
	DB           int           `env:"REDIS_DB" envDefault:"0"`
	DialTimeout  time.Duration `env:"REDIS_DIAL_TIMEOUT" envDefault:"2s"`
	ReadTimeout  time.Duration `env:"REDIS_READ_TIMEOUT" envDefault:"500ms"`
	WriteTimeout time.Duration `env:"REDIS_WRITE_TIMEOUT" envDefault:"500ms"`
	VerifyTTL    time.Duration `env:"VERIFY_CACHE_TTL" envDefault:"10m"`
}

// Kafka configures the outbox relay. No brokers means no relay.
type Kafka struct {
	Brokers      []string      `env:"KAFKA_BROKERS" envSeparator:","`
	Topic        string        `env:"KAFKA_TOPIC" envDefault:"kfa.lifecycle"`
	PollInterval time.Duration `env:"OUTBOX_POLL_INTERVAL" envDefault:"1s"`
	Partitions   int32         `env:"KAFKA_TOPIC_PARTITIONS" envDefault:"3"`
}

// RateLimit throttles anonymous application submissions per client IP.
type RateLimit struct {
	ApplicationLimit  int           `env:"APPLICATION_RATE_LIMIT" envDefault:"10"`
	ApplicationWindow time.Duration `env:"APPLICATION_RATE_WINDOW" envDefault:"1m"`
}

type Log struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"json"`
}

// Load parses Config from the environment and applies development fallbacks.
func Load() (Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	if cfg.Server.JWTSigningKey == "" {
		// Development default; production deployments must set JWT_SIGNING_KEY.
		cfg.Server.JWTSigningKey = devSigningKey
	}
	cfg.Kafka.Brokers = compact(cfg.Kafka.Brokers)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

func (c Config) Validate() error {
	switch strings.ToLower(c.Log.Format) {
	case "json", "text":
	default:
		return fmt.Errorf("LOG_FORMAT must be json or text, got %q", c.Log.Format)
	}
	if c.Server.TxTimeout <= 0 {
		return fmt.Errorf("TX_TIMEOUT must be positive")
	}
	if c.Redis.VerifyTTL <= 0 {
		return fmt.Errorf("VERIFY_CACHE_TTL must be positive")
	}
	if c.RateLimit.ApplicationLimit < 1 || c.RateLimit.ApplicationWindow <= 0 {
		return fmt.Errorf("APPLICATION_RATE_LIMIT and APPLICATION_RATE_WINDOW must be positive")
	}
	if len(c.Kafka.Brokers) > 0 && strings.TrimSpace(c.Kafka.Topic) == "" {
		return fmt.Errorf("KAFKA_TOPIC is required when KAFKA_BROKERS is set")
	}
	return nil
}

// UsesDevSigningKey reports whether the insecure development key is active.
func (c Config) UsesDevSigningKey() bool {
	return c.Server.JWTSigningKey == devSigningKey
}

func compact(values []string) []string {
	out := values[:0]
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
