package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pressroom-io/pressroom/pkg/pressroom"
	"github.com/pressroom-io/pressroom/pkg/pressroom/authz"
	mirrormemory "github.com/pressroom-io/pressroom/pkg/pressroom/mirror/memory"
	mirrormongo "github.com/pressroom-io/pressroom/pkg/pressroom/mirror/mongo"
	"github.com/pressroom-io/pressroom/pkg/pressroom/repo/memory"
	repopg "github.com/pressroom-io/pressroom/pkg/pressroom/repo/postgres"
	"github.com/pressroom-io/pressroom/pkg/pressroom/search/bleveindex"
)

// Option applies configuration to a ServerConfig instance.
type Option func(*ServerConfig) error

// Load constructs a ServerConfig by applying the supplied options on top of defaults.
func Load(opts ...Option) (*ServerConfig, error) {
	cfg := defaults()

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func defaults() ServerConfig {
	return ServerConfig{
		Port:              "8080",
		Environment:       "development",
		DatabaseType:      "memory",
		MirrorType:        "memory",
		Tenants:           []string{"cw", "health", "parenting"},
		ReconcileInterval: 5 * time.Minute,
	}
}

// ServerConfig represents server configuration for the pressroom service
type ServerConfig struct {
	Port        string
	Environment string // development, production, testing

	// Primary store configuration
	DatabaseURL  string
	DatabaseType string // "memory", "postgres"

	// Mirror configuration
	MirrorType    string // "memory", "mongo"
	MongoURL      string
	MongoDatabase string

	// Search index path; empty keeps the index in memory
	IndexPath string

	// Tenants the server serves
	Tenants []string

	// How often derived stores are reconciled; zero disables the loop
	ReconcileInterval time.Duration
}

// Validate validates the server configuration
func (c *ServerConfig) Validate() error {
	if c.Port == "" {
		return errors.New("port is required")
	}

	if c.DatabaseType != "memory" && c.DatabaseType != "postgres" {
		return errors.New("database_type must be 'memory' or 'postgres'")
	}
	if c.DatabaseType == "postgres" && c.DatabaseURL == "" {
		return errors.New("database_url is required when using postgres")
	}

	if c.MirrorType != "memory" && c.MirrorType != "mongo" {
		return errors.New("mirror_type must be 'memory' or 'mongo'")
	}
	if c.MirrorType == "mongo" && c.MongoURL == "" {
		return errors.New("mongo_url is required when using mongo")
	}

	if len(c.Tenants) == 0 {
		return errors.New("at least one tenant is required")
	}

	return nil
}

// Stores bundles the storage backends a server needs. The reconciler
// reuses the same instances as the service.
type Stores struct {
	Primary  pressroom.PrimaryStore
	Versions pressroom.VersionStore
	Mirror   pressroom.MirrorStore
	Index    *bleveindex.Index
}

// BuildStores creates the storage backends described by the configuration.
func (c *ServerConfig) BuildStores(ctx context.Context) (*Stores, error) {
	stores := &Stores{
		Index: bleveindex.New(c.IndexPath),
	}

	switch c.DatabaseType {
	case "memory":
		repo := memory.New()
		stores.Primary = repo
		stores.Versions = repo
	case "postgres":
		if err := repopg.Migrate(c.DatabaseURL); err != nil {
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}
		pool, err := pgxpool.New(ctx, c.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to create pgx pool: %w", err)
		}
		repo := repopg.NewWithPool(pool)
		stores.Primary = repo
		stores.Versions = repo
	default:
		return nil, fmt.Errorf("unsupported database type: %s", c.DatabaseType)
	}

	switch c.MirrorType {
	case "memory":
		stores.Mirror = mirrormemory.New()
	case "mongo":
		mirror, err := mirrormongo.New(ctx, c.MongoURL, c.MongoDatabase)
		if err != nil {
			return nil, fmt.Errorf("failed to build mongo mirror: %w", err)
		}
		stores.Mirror = mirror
	default:
		return nil, fmt.Errorf("unsupported mirror type: %s", c.MirrorType)
	}

	return stores, nil
}

// BuildService creates a Service instance from prepared stores.
func (c *ServerConfig) BuildService(stores *Stores, logger *slog.Logger) (pressroom.Service, error) {
	if logger == nil {
		logger = slog.Default()
	}

	return pressroom.New(
		pressroom.WithPrimaryStore(stores.Primary),
		pressroom.WithVersionStore(stores.Versions),
		pressroom.WithMirrorStore(stores.Mirror),
		pressroom.WithSearchIndex(stores.Index),
		pressroom.WithAuthorizer(authz.NewDefault()),
		pressroom.WithAuditSink(pressroom.NewLoggingAuditSink(logger)),
		pressroom.WithEventSink(pressroom.NewLoggingEventSink(logger)),
		pressroom.WithLogger(logger),
	)
}
