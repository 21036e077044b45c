package search

import (
	"context"
	"fmt"

	"github.com/jenkinsci/xldeploy-plugin-sub000/internal/log"
	"github.com/jenkinsci/xldeploy-plugin-sub000/internal/model"
	"github.com/jenkinsci/xldeploy-plugin-sub000/internal/xldeploy"
)

// ServiceConfig is the configuration for the search service.
type ServiceConfig struct {
	Repository xldeploy.RepositoryService
	Logger     log.Logger
}

func (c *ServiceConfig) defaults() error {
	if c.Repository == nil {
		return fmt.Errorf("repository service is required")
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "app.Search"})

	return nil
}

// Service searches configuration items in the server repository.
type Service struct {
	repo   xldeploy.RepositoryService
	logger log.Logger
}

// NewService creates a new search service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		repo:   cfg.Repository,
		logger: cfg.Logger,
	}, nil
}

// Request represents the search request parameters.
type Request struct {
	// Type is the CI type to search (`udm.Environment`).
	Type string
	// NamePattern is an optional name filter, `%` matches any sequence.
	NamePattern string
}

// Run returns the IDs of the CIs of the requested type.
func (s *Service) Run(ctx context.Context, req Request) ([]string, error) {
	if req.Type == "" {
		return nil, fmt.Errorf("type is required: %w", model.ErrNotValid)
	}

	ids, err := s.repo.Query(ctx, req.Type, req.NamePattern)
	if err != nil {
		return nil, fmt.Errorf("could not search %s: %w", req.Type, err)
	}

	s.logger.Debugf("found %d %s", len(ids), req.Type)
	return ids, nil
}

// ResolveApplication returns the repository ID of an application given by name or ID.
// The application is resolved only when a single application has that name,
// otherwise the input is returned as it is.
func (s *Service) ResolveApplication(ctx context.Context, application string) (string, error) {
	ids, err := s.Run(ctx, Request{Type: model.TypeApplication, NamePattern: model.NameFromID(application)})
	if err != nil {
		return "", err
	}

	if len(ids) != 1 {
		s.logger.Debugf("%d applications named %s, using it as it is", len(ids), application)
		return application, nil
	}

	return ids[0], nil
}

// ResolveVersion returns the deployment package ID of an application version.
func (s *Service) ResolveVersion(ctx context.Context, application, version string) (string, error) {
	if version == "" {
		return "", fmt.Errorf("version is required: %w", model.ErrNotValid)
	}

	appID, err := s.ResolveApplication(ctx, application)
	if err != nil {
		return "", err
	}

	return appID + "/" + version, nil
}
