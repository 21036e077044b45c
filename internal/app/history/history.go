package history

import (
	"context"
	"fmt"

	"github.com/jenkinsci/xldeploy-plugin-sub000/internal/log"
	"github.com/jenkinsci/xldeploy-plugin-sub000/internal/model"
	"github.com/jenkinsci/xldeploy-plugin-sub000/internal/storage"
)

// ServiceConfig is the configuration for the history service.
type ServiceConfig struct {
	Repository storage.Repository
	Logger     log.Logger
}

func (c *ServiceConfig) defaults() error {
	if c.Repository == nil {
		return fmt.Errorf("repository is required")
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "app.History"})

	return nil
}

// Service lists the recorded runs with optional filtering.
type Service struct {
	repo   storage.Repository
	logger log.Logger
}

// NewService creates a new history service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		repo:   cfg.Repository,
		logger: cfg.Logger,
	}, nil
}

// Request represents the history request parameters.
type Request struct {
	// RunID returns only that run when set, filters are ignored.
	RunID  string
	Kind   *model.RunKind
	Status *model.RunStatus
	Limit  int
}

// Run lists the recorded runs, newest first.
func (s *Service) Run(ctx context.Context, req Request) ([]model.Run, error) {
	if req.RunID != "" {
		run, err := s.repo.GetRun(ctx, req.RunID)
		if err != nil {
			return nil, fmt.Errorf("could not get run: %w", err)
		}
		return []model.Run{*run}, nil
	}

	if req.Limit < 0 {
		return nil, fmt.Errorf("limit can't be negative: %w", model.ErrNotValid)
	}

	filter := model.RunFilter{Limit: req.Limit}
	if req.Kind != nil {
		filter.Kind = *req.Kind
	}
	if req.Status != nil {
		filter.Status = *req.Status
	}
	s.logger.Debugf("listing runs with filter: %+v", filter)

	runs, err := s.repo.ListRuns(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("could not list runs: %w", err)
	}

	s.logger.Debugf("found %d runs", len(runs))
	return runs, nil
}
