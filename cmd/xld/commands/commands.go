package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"k8s.io/client-go/util/homedir"

	"github.com/jenkinsci/xldeploy-plugin-sub000/internal/conventions"
	"github.com/jenkinsci/xldeploy-plugin-sub000/internal/log"
	"github.com/jenkinsci/xldeploy-plugin-sub000/internal/model"
	"github.com/jenkinsci/xldeploy-plugin-sub000/internal/printer"
	"github.com/jenkinsci/xldeploy-plugin-sub000/internal/storage"
	configio "github.com/jenkinsci/xldeploy-plugin-sub000/internal/storage/io"
	"github.com/jenkinsci/xldeploy-plugin-sub000/internal/storage/sqlite"
	"github.com/jenkinsci/xldeploy-plugin-sub000/internal/task"
	"github.com/jenkinsci/xldeploy-plugin-sub000/internal/xldeploy/rest"
)

const (
	// LoggerTypeDefault is the logger default type.
	LoggerTypeDefault = "default"
	// LoggerTypeJSON is the logger json type.
	LoggerTypeJSON = "json"

	formatTable = "table"
	formatJSON  = "json"
)

// Command represents an application command, all commands that want to be executed
// should implement and setup on main.
type Command interface {
	Name() string
	Run(ctx context.Context) error
}

// RootCommand represents the root command configuration and global configuration
// for all the commands.
type RootCommand struct {
	// Global flags.
	Debug      bool
	NoLog      bool
	NoColor    bool
	LoggerType string
	ConfigPath string
	Profile    string
	DBPath     string
	NoHistory  bool

	// Server flags, they override the selected profile.
	ServerURL          string
	Username           string
	Password           string
	ProxyURL           string
	SocketTimeout      time.Duration
	ConnectionPoolSize int
	PollInterval       time.Duration

	configSetByUser bool

	// Global instances.
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	Logger log.Logger
}

// NewRootCommand initializes the main root configuration.
func NewRootCommand(app *kingpin.Application) *RootCommand {
	c := &RootCommand{}
	home := homedir.HomeDir()

	app.Flag("debug", "Enable debug mode.").BoolVar(&c.Debug)
	app.Flag("no-log", "Disable logger.").BoolVar(&c.NoLog)
	app.Flag("no-color", "Disable logger color.").BoolVar(&c.NoColor)
	app.Flag("logger", "Selects the logger type.").Default(LoggerTypeDefault).EnumVar(&c.LoggerType, LoggerTypeDefault, LoggerTypeJSON)
	app.Flag("config", "Path to the configuration file (YAML or TOML).").Default(conventions.ConfigPath(home)).IsSetByUser(&c.configSetByUser).StringVar(&c.ConfigPath)
	app.Flag("profile", "Server profile of the configuration file.").StringVar(&c.Profile)
	app.Flag("db-path", "Path to the run history SQLite database file.").Default(conventions.HistoryDBPath(home)).StringVar(&c.DBPath)
	app.Flag("no-history", "Don't record the runs in the history.").BoolVar(&c.NoHistory)

	app.Flag("server-url", "XL Deploy server URL.").StringVar(&c.ServerURL)
	app.Flag("username", "XL Deploy user.").StringVar(&c.Username)
	app.Flag("password", "XL Deploy password.").StringVar(&c.Password)
	app.Flag("proxy-url", "HTTP proxy to reach the server.").StringVar(&c.ProxyURL)
	app.Flag("socket-timeout", "Timeout of the server requests.").DurationVar(&c.SocketTimeout)
	app.Flag("connection-pool-size", "Idle connections kept to the server.").IntVar(&c.ConnectionPoolSize)
	app.Flag("poll-interval", "Wait between task state reads.").Default("1s").DurationVar(&c.PollInterval)

	return c
}

// Config loads the configuration file, a missing default file is an empty configuration.
func (c *RootCommand) Config(ctx context.Context) (model.Config, error) {
	path, err := filepath.Abs(c.ConfigPath)
	if err != nil {
		return model.Config{}, fmt.Errorf("invalid config path: %w", err)
	}

	repo := configio.NewConfigFileRepository(os.DirFS(filepath.Dir(path)))
	cfg, err := repo.GetConfig(ctx, filepath.Base(path))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && !c.configSetByUser {
			c.Logger.Debugf("No configuration file at %s", path)
			return model.Config{}, nil
		}
		return model.Config{}, fmt.Errorf("could not load configuration: %w", err)
	}

	return cfg, nil
}

// ServerConfig returns the server configuration of the selected profile with the
// server flags applied on top.
func (c *RootCommand) ServerConfig(cfg model.Config) (model.ServerConfig, error) {
	sc, err := cfg.Profile(c.Profile)
	if err != nil {
		return model.ServerConfig{}, err
	}

	if c.ServerURL != "" {
		sc.URL = c.ServerURL
	}
	if c.Username != "" {
		sc.Username = c.Username
	}
	if c.Password != "" {
		sc.Password = c.Password
	}
	if c.ProxyURL != "" {
		sc.ProxyURL = c.ProxyURL
	}
	if c.SocketTimeout != 0 {
		sc.SocketTimeout = c.SocketTimeout
	}
	if c.ConnectionPoolSize != 0 {
		sc.ConnectionPoolSize = c.ConnectionPoolSize
	}

	if sc.URL == "" {
		return model.ServerConfig{}, fmt.Errorf("server URL is required, use --server-url or a configuration profile")
	}

	return sc, nil
}

// NewServer returns the REST client of the configured server.
func (c *RootCommand) NewServer(cfg model.Config) (*rest.Client, error) {
	sc, err := c.ServerConfig(cfg)
	if err != nil {
		return nil, err
	}

	client, err := rest.NewClient(rest.ClientConfig{Server: sc, Logger: c.Logger})
	if err != nil {
		return nil, fmt.Errorf("could not create server client: %w", err)
	}

	return client, nil
}

// NewDriver returns the task driver of a server.
func (c *RootCommand) NewDriver(server *rest.Client) (*task.Driver, error) {
	driver, err := task.NewDriver(task.DriverConfig{
		TaskService:  server,
		PollInterval: c.PollInterval,
		Logger:       c.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create task driver: %w", err)
	}

	return driver, nil
}

// NewHistory returns the run history repository, nil when the history is disabled.
// The returned func closes the repository.
func (c *RootCommand) NewHistory(ctx context.Context) (storage.Repository, func(), error) {
	if c.NoHistory {
		return nil, func() {}, nil
	}

	repo, err := sqlite.NewRepository(ctx, sqlite.RepositoryConfig{
		DBPath: c.DBPath,
		Logger: c.Logger,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("could not create history repository: %w", err)
	}

	return repo, func() {
		if err := repo.Close(); err != nil {
			c.Logger.Warningf("could not close history: %s", err)
		}
	}, nil
}

// NewPrinter returns the printer of an output format.
func (c *RootCommand) NewPrinter(format string) printer.Printer {
	if format == formatJSON {
		return printer.NewJSONPrinter(c.Stdout)
	}
	return printer.NewTablePrinter(c.Stdout)
}

func formatFlag(cmd *kingpin.CmdClause, format *string) {
	cmd.Flag("format", "Output format (table, json).").Default(formatTable).EnumVar(format, formatTable, formatJSON)
}
