package importpkg

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jenkinsci/xldeploy-plugin-sub000/internal/log"
	"github.com/jenkinsci/xldeploy-plugin-sub000/internal/model"
	"github.com/jenkinsci/xldeploy-plugin-sub000/internal/xldeploy"
)

// ServiceConfig is the configuration for the import service.
type ServiceConfig struct {
	Packages xldeploy.PackageService
	Logger   log.Logger
}

func (c *ServiceConfig) defaults() error {
	if c.Packages == nil {
		return fmt.Errorf("package service is required")
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "app.Import"})

	return nil
}

// Service imports DAR files in the server repository.
type Service struct {
	packages xldeploy.PackageService
	logger   log.Logger
}

// NewService creates a new import service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		packages: cfg.Packages,
		logger:   cfg.Logger,
	}, nil
}

// Request represents the import request parameters.
type Request struct {
	DarPath string
}

// Result is the imported package.
type Result struct {
	PackageID string
	// Version is the name of the imported package, it's the version a following deploy uses.
	Version string
	// Application is the application ID the package belongs to.
	Application string
}

// Run uploads the DAR file and returns the imported deployment package.
func (s *Service) Run(ctx context.Context, req Request) (*Result, error) {
	if req.DarPath == "" {
		return nil, fmt.Errorf("DAR file is required: %w", model.ErrNotValid)
	}

	info, err := os.Stat(req.DarPath)
	if err != nil {
		return nil, fmt.Errorf("could not read DAR file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory: %w", req.DarPath, model.ErrNotValid)
	}

	s.logger.Infof("Importing %s", filepath.Base(req.DarPath))
	ci, err := s.packages.Import(ctx, req.DarPath)
	if err != nil {
		return nil, model.NewPluginError(err, "error while importing %s: %s", req.DarPath, err)
	}
	s.logger.Infof("Imported %s as %s", filepath.Base(req.DarPath), ci.ID)

	return &Result{
		PackageID:   ci.ID,
		Version:     ci.Name(),
		Application: model.ParentID(ci.ID),
	}, nil
}
