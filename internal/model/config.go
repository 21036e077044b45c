package model

import "fmt"

// Config is the user configuration file content.
type Config struct {
	// DefaultProfile is the profile used when none is requested.
	DefaultProfile string
	Profiles       map[string]ServerConfig
	// Deployment are the deploy options used when not set on the command line.
	Deployment DeploymentOptions
}

// Profile returns the server configuration of a profile, the default profile when name is empty.
func (c Config) Profile(name string) (ServerConfig, error) {
	if name == "" {
		name = c.DefaultProfile
	}
	if name == "" {
		return ServerConfig{}, nil
	}

	p, ok := c.Profiles[name]
	if !ok {
		return ServerConfig{}, fmt.Errorf("profile %q: %w", name, ErrNotFound)
	}

	return p, nil
}
