package lib

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jenkinsci/xldeploy-plugin-sub000/internal/conventions"
	"github.com/jenkinsci/xldeploy-plugin-sub000/internal/log"
	"github.com/jenkinsci/xldeploy-plugin-sub000/internal/storage"
	"github.com/jenkinsci/xldeploy-plugin-sub000/internal/storage/memory"
	"github.com/jenkinsci/xldeploy-plugin-sub000/internal/storage/sqlite"
	"github.com/jenkinsci/xldeploy-plugin-sub000/internal/task"
	"github.com/jenkinsci/xldeploy-plugin-sub000/internal/xldeploy"
	"github.com/jenkinsci/xldeploy-plugin-sub000/internal/xldeploy/fake"
	"github.com/jenkinsci/xldeploy-plugin-sub000/internal/xldeploy/rest"
)

// Config configures the SDK client.
//
// Server is required for [BackendREST], the rest of fields have defaults.
type Config struct {
	// Server is the XL Deploy server to connect to.
	Server ServerConfig

	// Backend selects the server implementation.
	// Default: [BackendREST].
	Backend BackendType

	// Repository are the configuration items the [BackendFake] server starts with.
	// Ignored by the rest of backends.
	Repository []ConfigurationItem

	// DBPath is the run history SQLite database path.
	// Default: ~/.xld/history.db.
	DBPath string

	// NoHistory disables the run history.
	NoHistory bool

	// InMemoryHistory keeps the run history in memory instead of DBPath,
	// the history is lost when the client is closed.
	InMemoryHistory bool

	// PollInterval is the wait between task state reads while a task executes.
	// Default: 1s.
	PollInterval time.Duration

	// Logger receives structured log output from the SDK.
	// Default: noop (silent). See the log sub-package for the interface.
	Logger log.Logger
}

func (c *Config) defaults() error {
	if c.Backend == "" {
		c.Backend = BackendREST
	}

	if c.DBPath == "" && !c.NoHistory && !c.InMemoryHistory {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("could not get user home dir: %w", err)
		}
		c.DBPath = conventions.HistoryDBPath(home)
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}

	return nil
}

// Client is the main SDK entry point to drive deployments programmatically.
//
// Create a Client with [New] and release its resources with [Client.Close].
// A Client is safe for concurrent use.
type Client struct {
	server  xldeploy.Server
	driver  *task.Driver
	history storage.Repository
	logger  log.Logger
	closeFn func() error
}

// New creates a new SDK client.
//
// The caller must call [Client.Close] when done to release the history
// database connection.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	server, err := newServer(cfg)
	if err != nil {
		return nil, mapError(err)
	}

	driver, err := task.NewDriver(task.DriverConfig{
		TaskService:  server,
		PollInterval: cfg.PollInterval,
		Logger:       cfg.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create task driver: %w", err)
	}

	c := &Client{
		server: server,
		driver: driver,
		logger: cfg.Logger,
	}

	switch {
	case cfg.NoHistory:
		return c, nil
	case cfg.InMemoryHistory:
		repo, err := memory.NewRepository(memory.RepositoryConfig{Logger: cfg.Logger})
		if err != nil {
			return nil, fmt.Errorf("could not create history repository: %w", err)
		}
		c.history = repo
		return c, nil
	}

	repo, err := sqlite.NewRepository(ctx, sqlite.RepositoryConfig{
		DBPath: cfg.DBPath,
		Logger: cfg.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create history repository: %w", err)
	}
	c.history = repo
	c.closeFn = repo.Close

	return c, nil
}

func newServer(cfg Config) (xldeploy.Server, error) {
	switch cfg.Backend {
	case BackendREST:
		return rest.NewClient(rest.ClientConfig{
			Server: toInternalServerConfig(cfg.Server),
			Logger: cfg.Logger,
		})
	case BackendFake:
		return fake.NewServer(fake.ServerConfig{
			CIs:    toInternalCIs(cfg.Repository),
			Logger: cfg.Logger,
		})
	default:
		return nil, fmt.Errorf("unsupported backend: %s: %w", cfg.Backend, ErrNotValid)
	}
}

// Close releases resources held by the client, including the database connection.
// After Close returns, the client must not be used.
func (c *Client) Close() error {
	if c.closeFn != nil {
		return c.closeFn()
	}
	return nil
}

// Info returns the server version and installed plugins.
func (c *Client) Info(ctx context.Context) (*ServerInfo, error) {
	info, err := c.server.Info(ctx)
	if err != nil {
		return nil, mapError(err)
	}

	res := fromInternalServerInfo(*info)
	return &res, nil
}
