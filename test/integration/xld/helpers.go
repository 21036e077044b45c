package xld

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/jenkinsci/xldeploy-plugin-sub000/test/integration/testutils"
)

// Config holds integration test configuration loaded from environment variables.
type Config struct {
	Binary string
	// ServerURL is an XL Deploy server, tests that need it are skipped when empty.
	ServerURL   string
	Username    string
	Password    string
	PackageID   string
	Environment string
}

func (c *Config) defaults() error {
	if c.Binary == "" {
		c.Binary = "xld"
	}

	// go test runs on the package directory, relative paths would be wrong.
	if !filepath.IsAbs(c.Binary) {
		return fmt.Errorf("XLD_INTEGRATION_BINARY must be an absolute path, got %q", c.Binary)
	}
	if _, err := os.Stat(c.Binary); err != nil {
		return fmt.Errorf("xld binary not found at %q: %w", c.Binary, err)
	}

	if c.Username == "" {
		c.Username = "admin"
	}

	return nil
}

// NewConfig loads integration test configuration from environment variables.
// If the config is invalid or the activation env var is not set, the test is skipped.
func NewConfig(t *testing.T) Config {
	t.Helper()

	const (
		envActivation  = "XLD_INTEGRATION"
		envBinary      = "XLD_INTEGRATION_BINARY"
		envServerURL   = "XLD_INTEGRATION_SERVER_URL"
		envUsername    = "XLD_INTEGRATION_USERNAME"
		envPassword    = "XLD_INTEGRATION_PASSWORD"
		envPackageID   = "XLD_INTEGRATION_PACKAGE"
		envEnvironment = "XLD_INTEGRATION_ENVIRONMENT"
	)

	if os.Getenv(envActivation) != "true" {
		t.Skipf("Skipping integration test: %s is not set to 'true'", envActivation)
	}

	c := Config{
		Binary:      os.Getenv(envBinary),
		ServerURL:   os.Getenv(envServerURL),
		Username:    os.Getenv(envUsername),
		Password:    os.Getenv(envPassword),
		PackageID:   os.Getenv(envPackageID),
		Environment: os.Getenv(envEnvironment),
	}

	if err := c.defaults(); err != nil {
		t.Skipf("Skipping due to invalid config: %s", err)
	}

	return c
}

// RequireServer skips the test when no server is configured.
func (c Config) RequireServer(t *testing.T) {
	t.Helper()
	if c.ServerURL == "" {
		t.Skip("Skipping integration test: XLD_INTEGRATION_SERVER_URL is not set")
	}
}

// RunXLDCmd runs an xld command with an isolated history database and without logs.
// The configured server is passed through the environment.
func RunXLDCmd(ctx context.Context, config Config, dbPath, cmdArgs string) (stdout, stderr []byte, err error) {
	args := fmt.Sprintf("--no-log --db-path %s %s", dbPath, cmdArgs)

	// Isolated from the user configuration file.
	env := []string{
		"XLD_CONFIG=" + filepath.Join(filepath.Dir(dbPath), "config.yaml"),
		"XLD_SERVER_URL=" + config.ServerURL,
		"XLD_USERNAME=" + config.Username,
		"XLD_PASSWORD=" + config.Password,
	}

	return testutils.RunXLD(ctx, env, config.Binary, args, true)
}

// RunHistory lists the recorded runs in JSON format.
func RunHistory(ctx context.Context, config Config, dbPath, filters string) (stdout, stderr []byte, err error) {
	return RunXLDCmd(ctx, config, dbPath, "history --format json "+filters)
}

// RunInfo shows the server information in JSON format.
func RunInfo(ctx context.Context, config Config, dbPath string) (stdout, stderr []byte, err error) {
	return RunXLDCmd(ctx, config, dbPath, "info --format json")
}

// RunSearch searches the IDs of a CI type in JSON format.
func RunSearch(ctx context.Context, config Config, dbPath, ciType string) (stdout, stderr []byte, err error) {
	return RunXLDCmd(ctx, config, dbPath, fmt.Sprintf("search --format json %s", ciType))
}

// RunDeployTest deploys a package in test mode, the task is cancelled instead of executed.
func RunDeployTest(ctx context.Context, config Config, dbPath string) (stdout, stderr []byte, err error) {
	return RunXLDCmd(ctx, config, dbPath, fmt.Sprintf("deploy --package %s --environment %s --test --format json", config.PackageID, config.Environment))
}
