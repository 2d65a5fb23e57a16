// Package config loads application configuration from YAML files with
// environment-variable overrides. It provides typed structs for every
// subsystem the server and recorder touch (Server, Postgres, Kafka, Redis,
// Logging, Metrics, Recorder, Web).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Postgres PostgresConfig `yaml:"postgres"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Redis    RedisConfig    `yaml:"redis"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Recorder RecorderConfig `yaml:"recorder"`
	Web      WebConfig      `yaml:"web"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	// HealthCheckTimeout bounds each dependency check behind /health/ready.
	HealthCheckTimeout time.Duration `yaml:"healthCheckTimeout"`
}

// PostgresConfig holds PostgreSQL connection parameters. When URL is set it
// is used verbatim and the discrete host fields are ignored.
type PostgresConfig struct {
	URL             string        `yaml:"url"`
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslMode"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
}

// DSN returns a lib/pq-compatible data source name.
func (p PostgresConfig) DSN() string {
	if p.URL != "" {
		return p.URL
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// KafkaConfig holds Kafka broker and topic settings.
type KafkaConfig struct {
	Brokers       []string    `yaml:"brokers"`
	ConsumerGroup string      `yaml:"consumerGroup"`
	Topics        KafkaTopics `yaml:"topics"`
}

// KafkaTopics maps logical topic names to their Kafka topic strings.
type KafkaTopics struct {
	ChatEvents string `yaml:"chatEvents"`
}

// RedisConfig holds Redis connection parameters and the TTL applied to
// recorder de-duplication keys.
type RedisConfig struct {
	Addr      string        `yaml:"addr"`
	Password  string        `yaml:"password"`
	DB        int           `yaml:"db"`
	PoolSize  int           `yaml:"poolSize"`
	DedupeTTL time.Duration `yaml:"dedupeTTL"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// RecorderConfig controls how the recorder persists chat events.
type RecorderConfig struct {
	WriteAttempts int           `yaml:"writeAttempts"`
	WriteBackoff  time.Duration `yaml:"writeBackoff"`
	WriteTimeout  time.Duration `yaml:"writeTimeout"`
}

// WebConfig controls the HTTP-facing chat intake and render endpoints.
type WebConfig struct {
	CollectorBuffer         int           `yaml:"collectorBuffer"`
	RenderTimeout           time.Duration `yaml:"renderTimeout"`
	PublishFailureThreshold int           `yaml:"publishFailureThreshold"`
	PublishCooldown         time.Duration `yaml:"publishCooldown"`
	// ChatRateLimit is the number of chat submissions one client may make
	// per ChatRateWindow. Zero disables limiting.
	ChatRateLimit  int           `yaml:"chatRateLimit"`
	ChatRateWindow time.Duration `yaml:"chatRateWindow"`
	// TrustForwardedFor keys the chat rate limit on the last
	// X-Forwarded-For hop. Enable only behind a reverse proxy that appends it.
	TrustForwardedFor bool `yaml:"trustForwardedFor"`
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides. Missing values keep their defaults.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout:    15 * time.Second,
			HealthCheckTimeout: 2 * time.Second,
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "policysearch",
			User:            "policysearch",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Kafka: KafkaConfig{
			Brokers:       []string{"localhost:9092"},
			ConsumerGroup: "policysearch-recorder",
			Topics: KafkaTopics{
				ChatEvents: "chat-events",
			},
		},
		Redis: RedisConfig{
			Addr:      "localhost:6379",
			PoolSize:  10,
			DedupeTTL: 24 * time.Hour,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
		},
		Recorder: RecorderConfig{
			WriteAttempts: 3,
			WriteBackoff:  200 * time.Millisecond,
			WriteTimeout:  5 * time.Second,
		},
		Web: WebConfig{
			CollectorBuffer:         10000,
			RenderTimeout:           5 * time.Second,
			PublishFailureThreshold: 5,
			PublishCooldown:         30 * time.Second,
			ChatRateLimit:           30,
			ChatRateWindow:          time.Minute,
		},
	}
}

// applyEnvOverrides reads DATABASE_URL and SP_* environment variables and
// overrides the corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Postgres.URL = v
	}
	if v := os.Getenv("SP_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("SP_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("SP_POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.Port = port
		}
	}
	if v := os.Getenv("SP_POSTGRES_DATABASE"); v != "" {
		cfg.Postgres.Database = v
	}
	if v := os.Getenv("SP_POSTGRES_USER"); v != "" {
		cfg.Postgres.User = v
	}
	if v := os.Getenv("SP_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("SP_POSTGRES_SSLMODE"); v != "" {
		cfg.Postgres.SSLMode = v
	}
	if v := os.Getenv("SP_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("SP_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("SP_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("SP_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("SP_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("SP_WEB_TRUST_FORWARDED_FOR"); v != "" {
		if trust, err := strconv.ParseBool(v); err == nil {
			cfg.Web.TrustForwardedFor = trust
		}
	}
	if v := os.Getenv("SP_METRICS_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Metrics.Port = port
		}
	}
}
