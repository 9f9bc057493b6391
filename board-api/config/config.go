// Package config loads board-api settings from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"

	"taskboard/board-api/storage"
)

// Config holds every environment-driven setting of the API server.
type Config struct {
	ListenAddr    string `env:"LISTEN_ADDR,default=:8080"`
	FunctionsPort string `env:"FUNCTIONS_CUSTOMHANDLER_PORT"`

	StoreDriver             string        `env:"STORE_DRIVER,default=postgres"`
	DatabaseURL             string        `env:"DATABASE_URL"`
	StorageConnectionString string        `env:"STORAGE_CONNECTION_STRING"`
	BoardsTable             string        `env:"BOARDS_TABLE,default=Boards"`
	TasksTable              string        `env:"TASKS_TABLE,default=Tasks"`
	MigrateOnStart          bool          `env:"MIGRATE_ON_START,default=true"`
	RedisURL                string        `env:"REDIS_URL"`
	CacheTTL                time.Duration `env:"CACHE_TTL,default=5m"`

	CORSOrigins string `env:"CORS_ORIGINS,default=*"`
	Debug       bool   `env:"DEBUG"`
	LogFormat   string `env:"LOG_FORMAT,default=text"`
}

// Load reads an optional dotenv file and decodes the environment. Variables
// already present in the environment win over the file.
func Load(envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load env file %s: %w", envFile, err)
		}
	}

	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return Config{}, fmt.Errorf("decode environment: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.ListenAddr == "" {
		c.ListenAddr = ":8080"
	}
	if c.StoreDriver == "" {
		c.StoreDriver = storage.DriverPostgres
	}
	if c.BoardsTable == "" {
		c.BoardsTable = "Boards"
	}
	if c.TasksTable == "" {
		c.TasksTable = "Tasks"
	}
	if c.LogFormat == "" {
		c.LogFormat = "text"
	}
	c.StoreDriver = strings.ToLower(strings.TrimSpace(c.StoreDriver))
	c.LogFormat = strings.ToLower(strings.TrimSpace(c.LogFormat))
}

// Validate checks that the selected store driver has what it needs.
func (c Config) Validate() error {
	switch c.StoreDriver {
	case storage.DriverPostgres:
		if c.DatabaseURL == "" {
			return errors.New("missing DATABASE_URL for postgres store")
		}
	case storage.DriverTables:
		if c.StorageConnectionString == "" {
			return errors.New("missing STORAGE_CONNECTION_STRING for tables store")
		}
	case storage.DriverMemory:
	default:
		return fmt.Errorf("invalid STORE_DRIVER %q", c.StoreDriver)
	}
	if c.CacheTTL < 0 {
		return errors.New("invalid CACHE_TTL: must not be negative")
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("invalid LOG_FORMAT %q", c.LogFormat)
	}
	return nil
}

// Addr is the listen address. An Azure Functions custom handler port takes
// precedence over LISTEN_ADDR.
func (c Config) Addr() string {
	if c.FunctionsPort != "" {
		return ":" + c.FunctionsPort
	}
	return c.ListenAddr
}

// AllowedOrigins splits CORS_ORIGINS on commas.
func (c Config) AllowedOrigins() []string {
	var origins []string
	for _, o := range strings.Split(c.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}

// StorageOptions maps the store settings onto storage.Open options.
func (c Config) StorageOptions() storage.Options {
	return storage.Options{
		Driver:           c.StoreDriver,
		DatabaseURL:      c.DatabaseURL,
		ConnectionString: c.StorageConnectionString,
		BoardsTable:      c.BoardsTable,
		TasksTable:       c.TasksTable,
		MigrateOnStart:   c.MigrateOnStart,
		RedisURL:         c.RedisURL,
		CacheTTL:         c.CacheTTL,
	}
}
