package undeploy

import (
	"context"
	"errors"
	"fmt"

	"github.com/jenkinsci/xldeploy-plugin-sub000/internal/log"
	"github.com/jenkinsci/xldeploy-plugin-sub000/internal/model"
	"github.com/jenkinsci/xldeploy-plugin-sub000/internal/storage"
	"github.com/jenkinsci/xldeploy-plugin-sub000/internal/task"
	"github.com/jenkinsci/xldeploy-plugin-sub000/internal/xldeploy"
)

// ServiceConfig is the configuration for the undeploy service.
type ServiceConfig struct {
	Repository  xldeploy.RepositoryService
	Deployments xldeploy.DeploymentService
	Executor    task.Executor
	History     storage.Repository
	Logger      log.Logger
}

func (c *ServiceConfig) defaults() error {
	if c.Repository == nil {
		return fmt.Errorf("repository service is required")
	}

	if c.Deployments == nil {
		return fmt.Errorf("deployment service is required")
	}

	if c.Executor == nil {
		return fmt.Errorf("executor is required")
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "app.Undeploy"})

	return nil
}

// Service removes deployed applications from their environment.
type Service struct {
	repo        xldeploy.RepositoryService
	deployments xldeploy.DeploymentService
	executor    task.Executor
	recorder    *storage.RunRecorder
	logger      log.Logger
}

// NewService creates a new undeploy service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		repo:        cfg.Repository,
		deployments: cfg.Deployments,
		executor:    cfg.Executor,
		recorder:    storage.NewRunRecorder(cfg.History, cfg.Logger),
		logger:      cfg.Logger,
	}, nil
}

// Request represents the undeploy request parameters.
type Request struct {
	// DeployedApplicationID is the deployed application to remove (`Environments/Dev/PetClinic`).
	DeployedApplicationID string
}

// Result is the outcome of an undeploy.
type Result struct {
	Run      model.Run
	TaskID   string
	Executed bool
}

// Run undeploys a deployed application. Undeployments are always executed, they
// can't be skipped, tested or rolled back.
func (s *Service) Run(ctx context.Context, req Request) (*Result, error) {
	if req.DeployedApplicationID == "" {
		return nil, fmt.Errorf("deployed application is required: %w", model.ErrNotValid)
	}

	logger := s.logger.WithValues(log.Kv{"deployed": req.DeployedApplicationID})
	run := s.recorder.Start(ctx, model.Run{
		Kind:        model.RunKindUndeploy,
		Target:      req.DeployedApplicationID,
		Environment: model.ParentID(req.DeployedApplicationID),
	})

	res := &Result{}
	status, err := s.undeploy(ctx, logger, req.DeployedApplicationID, res)
	run.TaskID = res.TaskID
	res.Run = s.recorder.Finish(ctx, run, status, err)
	if err != nil {
		return res, err
	}

	return res, nil
}

func (s *Service) undeploy(ctx context.Context, logger log.Logger, deployedID string, res *Result) (model.RunStatus, error) {
	ci, err := s.repo.Read(ctx, deployedID)
	if err != nil {
		return model.RunStatusFailed, model.NewPluginError(err, "'%s' not found in repository.", deployedID)
	}
	logger.Debugf("Found CI '%s' as '%s'", ci.ID, ci.Type)
	if !ci.InstanceOf(model.TypeDeployedApplication) {
		return model.RunStatusFailed, model.NewPluginError(model.ErrNotValid, "'%s' of type '%s' is not a deployed application.", deployedID, ci.Type)
	}

	d, err := s.deployments.PrepareUndeploy(ctx, deployedID)
	if err != nil {
		return model.RunStatusFailed, model.NewPluginError(err, "could not prepare undeployment: %s", err)
	}

	d, err = s.deployments.Validate(ctx, *d)
	if err != nil {
		if errors.Is(err, model.ErrEmptyPlan) {
			logger.Infof("Nothing to undeploy: %s", err)
			return model.RunStatusSkipped, nil
		}
		logger.Errorf("Plan validation failed: %s", err)
		return model.RunStatusFailed, model.NewPluginError(err, "%s", err)
	}

	taskID, err := s.deployments.CreateTask(ctx, *d)
	if err != nil {
		return model.RunStatusFailed, model.NewPluginError(err, "could not create undeployment task: %s", err)
	}
	res.TaskID = taskID

	executed, err := s.executor.Execute(ctx, taskID, model.ExecutionMode{})
	if err != nil {
		return model.RunStatusFailed, err
	}
	res.Executed = executed

	return model.RunStatusSucceeded, nil
}
