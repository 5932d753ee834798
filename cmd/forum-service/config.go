package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"stackit/internal/common/cache"
	"stackit/internal/common/db"
	"stackit/internal/common/mq"
	"stackit/internal/common/storage"
	"stackit/internal/forum/controller"
	"stackit/internal/forum/middleware"
	"stackit/internal/forum/notify"
	"stackit/pkg/utils/logger"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	defaultHTTPAddr        = "0.0.0.0:8080"
	defaultGRPCAddr        = "0.0.0.0:9090"
	defaultReadTimeout     = 5 * time.Second
	defaultWriteTimeout    = 10 * time.Second
	defaultIdleTimeout     = 60 * time.Second
	defaultRequestTimeout  = 5 * time.Second
	defaultShutdownTimeout = 10 * time.Second

	defaultEventsTopic   = "forum.moderation"
	defaultRateWindow    = time.Minute
	defaultMailerGroup   = "forum-mailer"
	storeDriverMemory    = "memory"
	storeDriverMySQL     = "mysql"
	minJWTSecretLength   = 16
	defaultMediaMaxBytes = 5 * 1024 * 1024
)

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr           string        `yaml:"addr"`
	ReadTimeout    time.Duration `yaml:"readTimeout"`
	WriteTimeout   time.Duration `yaml:"writeTimeout"`
	IdleTimeout    time.Duration `yaml:"idleTimeout"`
	RequestTimeout time.Duration `yaml:"requestTimeout"`
}

// GRPCConfig holds gRPC server settings.
type GRPCConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// StoreConfig selects the storage backend.
type StoreConfig struct {
	// Driver is memory or mysql.
	Driver string `yaml:"driver"`
	// Fixtures seeds the memory store on startup.
	Fixtures string `yaml:"fixtures"`
	// Migrate creates missing MySQL tables on startup.
	Migrate bool `yaml:"migrate"`
}

type AuthConfig struct {
	JWTSecret      string        `yaml:"jwtSecret"`
	JWTIssuer      string        `yaml:"jwtIssuer"`
	AccessTokenTTL time.Duration `yaml:"accessTokenTTL"`
	BcryptCost     int           `yaml:"bcryptCost"`
}

type WorkflowConfig struct {
	NotifyOnSubmit *bool `yaml:"notifyOnSubmit"`
}

type RateLimitConfig struct {
	Window       time.Duration          `yaml:"window"`
	RedisTimeout time.Duration          `yaml:"redisTimeout"`
	Routes       controller.RouteLimits `yaml:"routes"`
}

// EventsConfig controls moderation event delivery. Without Kafka, events stay in process.
type EventsConfig struct {
	Topic string            `yaml:"topic"`
	Kafka KafkaEventsConfig `yaml:"kafka"`
}

type KafkaEventsConfig struct {
	Enabled        bool `yaml:"enabled"`
	mq.KafkaConfig `yaml:",inline"`
}

type NotificationsConfig struct {
	AllowedOrigins []string `yaml:"allowedOrigins"`
	SendBuffer     int      `yaml:"sendBuffer"`
	// Channel is the Redis channel shared by instances; used only when Redis is configured.
	Channel string `yaml:"channel"`
}

type MailerConfig struct {
	Enabled       bool              `yaml:"enabled"`
	From          string            `yaml:"from"`
	SiteURL       string            `yaml:"siteURL"`
	ConsumerGroup string            `yaml:"consumerGroup"`
	Concurrency   int               `yaml:"concurrency"`
	SMTP          notify.SMTPConfig `yaml:"smtp"`
}

type MediaConfig struct {
	KeyPrefix  string        `yaml:"keyPrefix"`
	PresignTTL time.Duration `yaml:"presignTTL"`
	MaxBytes   int64         `yaml:"maxBytes"`
}

// AppConfig holds the forum-service configuration.
type AppConfig struct {
	Server ServerConfig  `yaml:"server"`
	GRPC   GRPCConfig    `yaml:"grpc"`
	Logger logger.Config `yaml:"logger"`

	Store         StoreConfig           `yaml:"store"`
	Database      db.MySQLConfig        `yaml:"database"`
	Redis         cache.RedisConfig     `yaml:"redis"`
	Auth          AuthConfig            `yaml:"auth"`
	Workflow      WorkflowConfig        `yaml:"workflow"`
	RateLimit     RateLimitConfig       `yaml:"rateLimit"`
	Events        EventsConfig          `yaml:"events"`
	Notifications NotificationsConfig   `yaml:"notifications"`
	Mailer        MailerConfig          `yaml:"mailer"`
	MinIO         storage.MinIOConfig   `yaml:"minio"`
	Media         MediaConfig           `yaml:"media"`
	CORS          middleware.CORSConfig `yaml:"cors"`
}

// loadYAML reads path, expands ${VAR} references from the environment and decodes it.
func loadYAML(path string, out interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file failed: %w", err)
	}
	expanded := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expanded), out); err != nil {
		return fmt.Errorf("parse config file failed: %w", err)
	}
	return nil
}

func loadAppConfig(path string) (*AppConfig, error) {
	// A .env file is optional; deployments set the variables directly.
	_ = godotenv.Load()

	var cfg AppConfig
	if err := loadYAML(path, &cfg); err != nil {
		return nil, err
	}
	if err := applyDefaults(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(cfg *AppConfig) error {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = defaultHTTPAddr
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = defaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = defaultWriteTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = defaultIdleTimeout
	}
	if cfg.Server.RequestTimeout == 0 {
		cfg.Server.RequestTimeout = defaultRequestTimeout
	}
	if cfg.GRPC.Addr == "" {
		cfg.GRPC.Addr = defaultGRPCAddr
	}

	cfg.Store.Driver = strings.ToLower(strings.TrimSpace(cfg.Store.Driver))
	switch cfg.Store.Driver {
	case "":
		cfg.Store.Driver = storeDriverMemory
	case storeDriverMemory:
	case storeDriverMySQL:
		if cfg.Database.DSN == "" {
			return fmt.Errorf("database dsn is required for the mysql store")
		}
	default:
		return fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}

	if len(cfg.Auth.JWTSecret) < minJWTSecretLength {
		return fmt.Errorf("auth.jwtSecret must be at least %d characters", minJWTSecretLength)
	}
	if cfg.Workflow.NotifyOnSubmit == nil {
		enabled := true
		cfg.Workflow.NotifyOnSubmit = &enabled
	}

	if cfg.Redis.Addr != "" {
		applyRedisDefaults(&cfg.Redis)
	}
	if cfg.RateLimit.Window == 0 {
		cfg.RateLimit.Window = defaultRateWindow
	}

	if cfg.Events.Topic == "" {
		cfg.Events.Topic = defaultEventsTopic
	}
	if cfg.Events.Kafka.Enabled && len(cfg.Events.Kafka.Brokers) == 0 {
		return fmt.Errorf("events.kafka.brokers is required when kafka is enabled")
	}
	if cfg.Notifications.Channel == "" {
		cfg.Notifications.Channel = notify.DefaultChannel
	}
	if len(cfg.Notifications.AllowedOrigins) == 0 && cfg.CORS.Enabled {
		cfg.Notifications.AllowedOrigins = cfg.CORS.AllowedOrigins
	}

	if cfg.Mailer.Enabled {
		if cfg.Mailer.From == "" {
			return fmt.Errorf("mailer.from is required when the mailer is enabled")
		}
		if cfg.Mailer.SMTP.Host == "" {
			return fmt.Errorf("mailer.smtp.host is required when the mailer is enabled")
		}
		if cfg.Mailer.ConsumerGroup == "" {
			cfg.Mailer.ConsumerGroup = defaultMailerGroup
		}
	}

	if cfg.Media.PresignTTL == 0 {
		cfg.Media.PresignTTL = 15 * time.Minute
	}
	if cfg.Media.MaxBytes <= 0 {
		cfg.Media.MaxBytes = defaultMediaMaxBytes
	}
	return nil
}

func applyRedisDefaults(cfg *cache.RedisConfig) {
	defaults := cache.DefaultRedisConfig()
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = defaults.MaxRetries
	}
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = defaults.DialTimeout
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = defaults.ReadTimeout
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = defaults.WriteTimeout
	}
	if cfg.PoolSize == 0 {
		cfg.PoolSize = defaults.PoolSize
	}
	if cfg.MinIdleConns == 0 {
		cfg.MinIdleConns = defaults.MinIdleConns
	}
}
