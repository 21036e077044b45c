package io

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/jenkinsci/xldeploy-plugin-sub000/internal/model"
)

// ConfigFileRepository loads the user configuration from YAML or TOML files.
type ConfigFileRepository struct {
	fs fs.FS
}

// NewConfigFileRepository creates a new config file repository.
func NewConfigFileRepository(filesystem fs.FS) *ConfigFileRepository {
	return &ConfigFileRepository{fs: filesystem}
}

// GetConfig loads the configuration file and returns a validated domain model.
// `.toml` files are decoded as TOML, the rest as YAML.
func (r *ConfigFileRepository) GetConfig(ctx context.Context, path string) (model.Config, error) {
	data, err := fs.ReadFile(r.fs, path)
	if err != nil {
		return model.Config{}, fmt.Errorf("reading config file: %w", err)
	}

	if ctx.Err() != nil {
		return model.Config{}, ctx.Err()
	}

	var cfg ConfigFile
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return model.Config{}, fmt.Errorf("parsing TOML: %w", err)
		}
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return model.Config{}, fmt.Errorf("parsing YAML: %w", err)
		}
	}

	mcfg, err := cfg.toModel()
	if err != nil {
		return model.Config{}, fmt.Errorf("invalid configuration: %w", err)
	}

	return mcfg, nil
}

// ConfigFile represents the structure of the configuration file.
type ConfigFile struct {
	DefaultProfile string                   `yaml:"default_profile" toml:"default_profile"`
	Profiles       map[string]ProfileConfig `yaml:"profiles" toml:"profiles"`
	Deployment     DeploymentConfig         `yaml:"deployment" toml:"deployment"`
}

// ProfileConfig represents a server profile.
type ProfileConfig struct {
	URL                string `yaml:"url" toml:"url"`
	Username           string `yaml:"username" toml:"username"`
	Password           string `yaml:"password" toml:"password"`
	ProxyURL           string `yaml:"proxy_url" toml:"proxy_url"`
	SocketTimeout      string `yaml:"socket_timeout" toml:"socket_timeout"`
	ConnectionPoolSize int    `yaml:"connection_pool_size" toml:"connection_pool_size"`
}

// DeploymentConfig represents the deployment defaults.
type DeploymentConfig struct {
	Skip                      bool `yaml:"skip" toml:"skip"`
	Test                      bool `yaml:"test" toml:"test"`
	RollbackOnError           bool `yaml:"rollback_on_error" toml:"rollback_on_error"`
	GenerateDeployedOnUpgrade bool `yaml:"generate_deployed_on_upgrade" toml:"generate_deployed_on_upgrade"`
}

func (c ConfigFile) toModel() (model.Config, error) {
	if c.DefaultProfile != "" {
		if _, ok := c.Profiles[c.DefaultProfile]; !ok {
			return model.Config{}, fmt.Errorf("default profile %q is not defined", c.DefaultProfile)
		}
	}

	cfg := model.Config{
		DefaultProfile: c.DefaultProfile,
		Profiles:       make(map[string]model.ServerConfig, len(c.Profiles)),
		Deployment: model.DeploymentOptions{
			ExecutionMode: model.ExecutionMode{
				Skip:            c.Deployment.Skip,
				Test:            c.Deployment.Test,
				RollbackOnError: c.Deployment.RollbackOnError,
			},
			GenerateDeployedOnUpgrade: c.Deployment.GenerateDeployedOnUpgrade,
		},
	}

	for name, p := range c.Profiles {
		sc, err := p.toModel()
		if err != nil {
			return model.Config{}, fmt.Errorf("profile %q: %w", name, err)
		}
		cfg.Profiles[name] = sc
	}

	return cfg, nil
}

func (p ProfileConfig) toModel() (model.ServerConfig, error) {
	if p.URL == "" {
		return model.ServerConfig{}, fmt.Errorf("url is required")
	}
	if p.ConnectionPoolSize < 0 {
		return model.ServerConfig{}, fmt.Errorf("connection_pool_size must be positive, got: %d", p.ConnectionPoolSize)
	}

	var timeout time.Duration
	if p.SocketTimeout != "" {
		d, err := time.ParseDuration(p.SocketTimeout)
		if err != nil {
			return model.ServerConfig{}, fmt.Errorf("invalid socket_timeout: %w", err)
		}
		if d <= 0 {
			return model.ServerConfig{}, fmt.Errorf("socket_timeout must be positive, got: %s", d)
		}
		timeout = d
	}

	return model.ServerConfig{
		URL:                p.URL,
		Username:           p.Username,
		Password:           p.Password,
		ProxyURL:           p.ProxyURL,
		SocketTimeout:      timeout,
		ConnectionPoolSize: p.ConnectionPoolSize,
	}, nil
}
