// Package config loads service configuration from environment variables.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds everything the service needs to start.
type Config struct {
	Debug bool `env:"DEBUG"`

	StorageConnectionString string `env:"STORAGE_CONNECTION_STRING,required"`
	UsersTable              string `env:"USERS_TABLE,required"`
	ProjectsTable           string `env:"PROJECTS_TABLE,required"`
	TasksTable              string `env:"TASKS_TABLE,required"`
	ActivityQueue           string `env:"ACTIVITY_QUEUE,required"`

	RedisConnectionString string        `env:"REDIS_CONNECTION_STRING,required"`
	CacheTTL              time.Duration `env:"CACHE_TTL" envDefault:"5m"`

	Neo4jURI      string `env:"NEO4J_URI,required"`
	Neo4jUser     string `env:"NEO4J_USER,required"`
	Neo4jPassword string `env:"NEO4J_PASSWORD,required"`

	JWTSecret   string        `env:"AUTH_JWT_SECRET,required"`
	JWTIssuer   string        `env:"AUTH_JWT_ISSUER" envDefault:"trellis-api"`
	JWTAudience string        `env:"AUTH_JWT_AUDIENCE" envDefault:"trellis"`
	TokenTTL    time.Duration `env:"AUTH_TOKEN_TTL" envDefault:"168h"`
	// JWKSURL switches token validation to an external identity provider's
	// key set; locally issued HS256 tokens are used when it is empty.
	JWKSURL string `env:"AUTH_JWKS_URL"`

	ActivityWorkers int           `env:"ACTIVITY_WORKERS" envDefault:"8"`
	ActivityBuffer  int           `env:"ACTIVITY_BUFFER" envDefault:"2048"`
	ActivityTimeout time.Duration `env:"ACTIVITY_TIMEOUT" envDefault:"30s"`

	ListenAddr string `env:"LISTEN_ADDR" envDefault:":8080"`
}

// Parse loads the configuration from the environment.
func Parse() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
