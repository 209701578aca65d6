package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

type envConfig struct {
	Port              string        `env:"PORT"`
	Environment       string        `env:"ENVIRONMENT"`
	DatabaseURL       string        `env:"DATABASE_URL"`
	MongoURL          string        `env:"MONGO_URL"`
	MongoDatabase     string        `env:"MONGO_DATABASE"`
	IndexPath         string        `env:"INDEX_PATH"`
	Tenants           []string      `env:"TENANTS"`
	ReconcileInterval time.Duration `env:"RECONCILE_INTERVAL"`
}

// WithEnv applies environment variable overrides.
//
// Environment variable mapping:
//
//	PORT - Server port (default: "8080")
//	ENVIRONMENT - Runtime environment (default: "development")
//	DATABASE_URL - Primary store connection string. "postgresql://..."
//	               selects postgres; empty or "memory" keeps the
//	               in-memory store
//	MONGO_URL - Mirror connection string. Set to enable the mongo
//	            mirror; empty keeps the in-memory mirror
//	MONGO_DATABASE - Mongo database name (default: "pressroom")
//	INDEX_PATH - Directory for search indexes; empty keeps them in memory
//	TENANTS - Comma separated tenant ids (default: "cw,health,parenting")
//	RECONCILE_INTERVAL - Derived store repair interval, e.g. "5m"; "0" disables
func WithEnv() Option {
	return func(c *ServerConfig) error {
		var ec envConfig
		if err := cleanenv.ReadEnv(&ec); err != nil {
			return fmt.Errorf("failed to read environment: %w", err)
		}

		if ec.Port != "" {
			c.Port = ec.Port
		}
		if ec.Environment != "" {
			c.Environment = ec.Environment
		}
		if err := applyDatabaseEnv(ec.DatabaseURL, c); err != nil {
			return err
		}
		if ec.MongoURL != "" {
			c.MirrorType = "mongo"
			c.MongoURL = ec.MongoURL
			c.MongoDatabase = "pressroom"
		}
		if ec.MongoDatabase != "" {
			c.MongoDatabase = ec.MongoDatabase
		}
		if ec.IndexPath != "" {
			c.IndexPath = ec.IndexPath
		}
		if len(ec.Tenants) > 0 {
			c.Tenants = ec.Tenants
		}
		if ec.ReconcileInterval > 0 {
			c.ReconcileInterval = ec.ReconcileInterval
		}
		return nil
	}
}

// WithDotenv loads variables from a .env file before reading the
// environment. A missing file is not an error.
func WithDotenv(path string) Option {
	return func(c *ServerConfig) error {
		if path == "" {
			path = ".env"
		}
		if err := godotenv.Load(path); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil
			}
			return fmt.Errorf("failed to load %s: %w", path, err)
		}
		return nil
	}
}

func applyDatabaseEnv(dbURL string, c *ServerConfig) error {
	if dbURL == "" || dbURL == "memory" {
		c.DatabaseType = "memory"
		c.DatabaseURL = ""
		return nil
	}

	if hasScheme(dbURL, "postgresql://") || hasScheme(dbURL, "postgres://") {
		c.DatabaseType = "postgres"
		c.DatabaseURL = dbURL
		return nil
	}

	return fmt.Errorf("unsupported DATABASE_URL format: %s (use 'memory' or 'postgresql://...')", dbURL)
}

func hasScheme(url, scheme string) bool {
	return len(url) > len(scheme) && url[:len(scheme)] == scheme
}
