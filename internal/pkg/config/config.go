package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Port      string `env:"PORT,      default=8080"`
	Env       string `env:"ENV,       default=development"`
	JWTSecret string `env:"JWT_SECRET"`
	LogLevel  string `env:"LOG_LEVEL, default=info"`

	Mongo     MongoConfig
	Redis     RedisConfig
	Auth      AuthConfig
	Analytics AnalyticsConfig
	Notifier  NotifierConfig
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=municipal_reports"`
}

type RedisConfig struct {
	Addr string `env:"REDIS_ADDR, default=localhost:6379"`
	DB   int    `env:"REDIS_DB,   default=0"`
}

type AuthConfig struct {
	TokenTTL time.Duration `env:"AUTH_TOKEN_TTL, default=24h"`
}

type AnalyticsConfig struct {
	// Budget bounds the total wall-clock time of one aggregation request.
	Budget time.Duration `env:"ANALYTICS_BUDGET, default=15s"`
	// DirectoryCacheTTL bounds how long resolved display names are cached.
	DirectoryCacheTTL time.Duration `env:"ANALYTICS_NAME_CACHE_TTL, default=5m"`
}

type NotifierConfig struct {
	Workers int `env:"NOTIFIER_WORKERS, default=8"`
}

// Load reads configuration from environment variables using go-envconfig.
func Load() *Config {
	var cfg Config
	if err := envconfig.Process(context.Background(), &cfg); err != nil {
		panic(fmt.Sprintf("config: failed to load configuration: %v", err))
	}
	return &cfg
}
