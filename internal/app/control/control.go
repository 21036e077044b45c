package control

import (
	"context"
	"fmt"
	"slices"

	"github.com/jenkinsci/xldeploy-plugin-sub000/internal/log"
	"github.com/jenkinsci/xldeploy-plugin-sub000/internal/model"
	"github.com/jenkinsci/xldeploy-plugin-sub000/internal/storage"
	"github.com/jenkinsci/xldeploy-plugin-sub000/internal/task"
	"github.com/jenkinsci/xldeploy-plugin-sub000/internal/xldeploy"
)

// ServiceConfig is the configuration for the control task service.
type ServiceConfig struct {
	Repository xldeploy.RepositoryService
	Controls   xldeploy.ControlService
	Executor   task.Executor
	// ContainerTypes are extra CI types accepted as containers when the
	// server doesn't report the type hierarchy of a CI.
	ContainerTypes []string
	History        storage.Repository
	Logger         log.Logger
}

func (c *ServiceConfig) defaults() error {
	if c.Repository == nil {
		return fmt.Errorf("repository service is required")
	}

	if c.Controls == nil {
		return fmt.Errorf("control service is required")
	}

	if c.Executor == nil {
		return fmt.Errorf("executor is required")
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "app.Control"})

	return nil
}

// Service executes control tasks on containers.
type Service struct {
	repo           xldeploy.RepositoryService
	controls       xldeploy.ControlService
	executor       task.Executor
	containerTypes []string
	recorder       *storage.RunRecorder
	logger         log.Logger
}

// NewService creates a new control task service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		repo:           cfg.Repository,
		controls:       cfg.Controls,
		executor:       cfg.Executor,
		containerTypes: cfg.ContainerTypes,
		recorder:       storage.NewRunRecorder(cfg.History, cfg.Logger),
		logger:         cfg.Logger,
	}, nil
}

// Request represents the control task request parameters.
type Request struct {
	// ContainerID is the container the control task runs on (`Infrastructure/tomcat-host`).
	ContainerID string
	// TaskName is the control task name (`restart`).
	TaskName   string
	Parameters map[string]string
}

func (r Request) validate() error {
	if r.ContainerID == "" {
		return fmt.Errorf("container is required")
	}
	if r.TaskName == "" {
		return fmt.Errorf("control task name is required")
	}
	return nil
}

// Result is the outcome of a control task.
type Result struct {
	Run      model.Run
	TaskID   string
	Executed bool
}

// Run prepares the control task of the container, sets its parameters and executes it.
func (s *Service) Run(ctx context.Context, req Request) (*Result, error) {
	if err := req.validate(); err != nil {
		return nil, fmt.Errorf("invalid request: %w: %w", err, model.ErrNotValid)
	}

	logger := s.logger.WithValues(log.Kv{"container": req.ContainerID, "control": req.TaskName})
	run := s.recorder.Start(ctx, model.Run{Kind: model.RunKindControl, Target: req.ContainerID, ControlTask: req.TaskName})

	res := &Result{}
	err := s.execute(ctx, logger, req, res)
	run.TaskID = res.TaskID
	status := model.RunStatusSucceeded
	if err != nil {
		status = model.RunStatusFailed
	}
	res.Run = s.recorder.Finish(ctx, run, status, err)
	if err != nil {
		return res, err
	}

	return res, nil
}

func (s *Service) execute(ctx context.Context, logger log.Logger, req Request, res *Result) error {
	ci, err := s.repo.Read(ctx, req.ContainerID)
	if err != nil {
		return model.NewPluginError(err, "'%s' not found in repository.", req.ContainerID)
	}
	logger.Debugf("Found CI '%s' as '%s'", ci.ID, ci.Type)
	if !s.isContainer(*ci) {
		return model.NewPluginError(model.ErrNotValid, "'%s' of type '%s' is not a container.", req.ContainerID, ci.Type)
	}

	c, err := s.controls.PrepareControl(ctx, req.TaskName, req.ContainerID)
	if err != nil {
		return model.NewPluginError(err, "could not prepare control task '%s' on '%s': %s", req.TaskName, req.ContainerID, err)
	}
	if c.Parameters == nil {
		c.Parameters = map[string]string{}
	}
	// Sorted for stable logs.
	keys := make([]string, 0, len(req.Parameters))
	for key := range req.Parameters {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	for _, k := range keys {
		logger.Debugf("Setting parameter %s", k)
		c.Parameters[k] = req.Parameters[k]
	}

	taskID, err := s.controls.CreateControlTask(ctx, *c)
	if err != nil {
		return model.NewPluginError(err, "could not create control task: %s", err)
	}
	res.TaskID = taskID

	executed, err := s.executor.Execute(ctx, taskID, model.ExecutionMode{})
	if err != nil {
		return err
	}
	res.Executed = executed

	return nil
}

func (s *Service) isContainer(ci model.ConfigurationItem) bool {
	return ci.InstanceOf(model.TypeContainer) || slices.Contains(s.containerTypes, ci.Type)
}
