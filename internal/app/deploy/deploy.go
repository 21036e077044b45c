package deploy

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

// ServiceConfig is the configuration for the deploy service.
type ServiceConfig struct {
	Repository  xldeploy.RepositoryService
	Deployments xldeploy.DeploymentService
	// Packages is only required to deploy DAR files.
	Packages xldeploy.PackageService
	Executor task.Executor
	// History records the runs, optional.
	History storage.Repository
	Logger  log.Logger
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
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "app.Deploy"})

	return nil
}

// Service deploys packages on environments.
type Service struct {
	repo        xldeploy.RepositoryService
	deployments xldeploy.DeploymentService
	packages    xldeploy.PackageService
	executor    task.Executor
	recorder    *storage.RunRecorder
	logger      log.Logger
}

// NewService creates a new deploy service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		repo:        cfg.Repository,
		deployments: cfg.Deployments,
		packages:    cfg.Packages,
		executor:    cfg.Executor,
		recorder:    storage.NewRunRecorder(cfg.History, cfg.Logger),
		logger:      cfg.Logger,
	}, nil
}

// Request represents the deploy request parameters.
type Request struct {
	// PackageID is the deployment package to deploy (`Applications/PetClinic/1.0`).
	PackageID string
	// DarPath is a DAR file imported before deploying the imported package.
	// Exclusive with PackageID.
	DarPath string
	// EnvironmentID is the target environment (`Environments/Dev`).
	EnvironmentID string
	Options       model.DeploymentOptions
}

func (r Request) validate() error {
	if r.PackageID == "" && r.DarPath == "" {
		return fmt.Errorf("package or DAR file is required")
	}
	if r.PackageID != "" && r.DarPath != "" {
		return fmt.Errorf("package and DAR file are exclusive")
	}
	if r.EnvironmentID == "" {
		return fmt.Errorf("environment is required")
	}
	return nil
}

// Result is the outcome of a deploy.
type Result struct {
	Run       model.Run
	PackageID string
	Type      model.DeploymentType
	TaskID    string
	// Executed is false when nothing was executed (empty plan or test mode).
	Executed bool
}

// Run deploys a package on an environment. It prepares the initial or upgrade plan,
// validates it, and drives its task. When the task fails and rollback on error is
// set, the rollback task is driven as well and the deploy error is returned.
func (s *Service) Run(ctx context.Context, req Request) (*Result, error) {
	if err := req.validate(); err != nil {
		return nil, fmt.Errorf("invalid request: %w: %w", err, model.ErrNotValid)
	}

	packageID := req.PackageID
	if req.DarPath != "" {
		if s.packages == nil {
			return nil, fmt.Errorf("package service is required to deploy DAR files: %w", model.ErrNotValid)
		}
		pkg, err := s.packages.Import(ctx, req.DarPath)
		if err != nil {
			return nil, model.NewPluginError(err, "could not import %s: %s", req.DarPath, err)
		}
		s.logger.Infof("Imported %s as %s", req.DarPath, pkg.ID)
		packageID = pkg.ID
	}

	logger := s.logger.WithValues(log.Kv{"package": packageID, "environment": req.EnvironmentID})
	logger.Debugf("deployment options: %+v", req.Options)

	run := s.recorder.Start(ctx, model.Run{Kind: model.RunKindDeploy, Target: packageID, Environment: req.EnvironmentID})
	res := &Result{PackageID: packageID}
	status, err := s.deploy(ctx, logger, packageID, req, res)
	res.Run = s.recorder.Finish(ctx, withTask(run, res.TaskID), status, err)
	if err != nil {
		return res, err
	}

	return res, nil
}

func (s *Service) deploy(ctx context.Context, logger log.Logger, packageID string, req Request, res *Result) (model.RunStatus, error) {
	if err := s.verifyPackage(ctx, logger, packageID); err != nil {
		return model.RunStatusFailed, err
	}

	d, err := s.prepare(ctx, logger, packageID, req.EnvironmentID)
	if err != nil {
		return model.RunStatusFailed, err
	}
	res.Type = d.Type

	if req.Options.GenerateDeployedOnUpgrade {
		logger.Debugf("prepareAutoDeployeds")
		d, err = s.deployments.PrepareAutoDeployeds(ctx, *d)
		if err != nil {
			return model.RunStatusFailed, model.NewPluginError(err, "could not generate deployeds: %s", err)
		}
	}

	logger.Debugf("dump Deployeds")
	for _, ci := range d.Deployeds {
		logger.Debugf(" - %s [%s]", ci.ID, ci.Type)
	}

	logger.Debugf("validate")
	d, err = s.deployments.Validate(ctx, *d)
	if err != nil {
		if errors.Is(err, model.ErrEmptyPlan) {
			logger.Infof("Nothing to deploy: %s", err)
			return model.RunStatusSkipped, nil
		}
		logger.Errorf("Plan validation failed: %s", err)
		return model.RunStatusFailed, model.NewPluginError(err, "%s", err)
	}

	var verr *model.ValidationError
	if err := d.ValidationErrors(); errors.As(err, &verr) {
		for _, msg := range verr.Messages() {
			logger.Errorf("%s", msg)
		}
		return model.RunStatusFailed, model.NewPluginError(err, "Validation errors (%d) have been found. For more information previously reported ERROR messages.", verr.Count)
	}

	logger.Debugf("deploy")
	taskID, err := s.deployments.CreateTask(ctx, *d)
	if err != nil {
		return model.RunStatusFailed, model.NewPluginError(err, "could not create deployment task: %s", err)
	}
	res.TaskID = taskID

	executed, err := s.executor.Execute(ctx, taskID, req.Options.ExecutionMode)
	if err != nil {
		if !req.Options.RollbackOnError {
			return model.RunStatusFailed, err
		}
		logger.Errorf("Deployment failed, performing a rollback")
		if rerr := s.rollback(ctx, logger, taskID, req.Options.ExecutionMode); rerr != nil {
			logger.Errorf("Rollback of task %s failed: %s", taskID, rerr)
			return model.RunStatusFailed, err
		}
		return model.RunStatusRolledBack, err
	}
	res.Executed = executed

	if !executed {
		return model.RunStatusDryRun, nil
	}
	return model.RunStatusSucceeded, nil
}

// verifyPackage checks the package exists and is a deployment package.
func (s *Service) verifyPackage(ctx context.Context, logger log.Logger, packageID string) error {
	ci, err := s.repo.Read(ctx, packageID)
	if err != nil {
		return model.NewPluginError(err, "'%s' not found in repository.", packageID)
	}
	logger.Debugf("Found CI '%s' as '%s'", ci.ID, ci.Type)

	if ci.Type != model.TypeDeploymentPackage {
		return model.NewPluginError(model.ErrNotValid, "'%s' is of type '%s' instead '%s'. Please verify that the version is specified.", packageID, ci.Type, model.TypeDeploymentPackage)
	}

	return nil
}

// prepare returns the initial plan when the application is not deployed on the environment
// and the upgrade plan of the deployed application otherwise.
func (s *Service) prepare(ctx context.Context, logger log.Logger, packageID, environmentID string) (*model.Deployment, error) {
	deployed, err := s.deployments.IsDeployed(ctx, model.ParentID(packageID), environmentID)
	if err != nil {
		return nil, model.NewPluginError(err, "could not check if '%s' is deployed on '%s': %s", model.ParentID(packageID), environmentID, err)
	}

	if !deployed {
		logger.Infof("initial Deployment")
		d, err := s.deployments.PrepareInitial(ctx, packageID, environmentID)
		if err != nil {
			return nil, model.NewPluginError(err, "could not prepare initial deployment: %s", err)
		}
		return d, nil
	}

	logger.Infof("upgrade Deployment")
	d, err := s.deployments.PrepareUpdate(ctx, packageID, model.DeployedApplicationID(environmentID, packageID))
	if err != nil {
		return nil, model.NewPluginError(err, "could not prepare upgrade deployment: %s", err)
	}
	return d, nil
}

func (s *Service) rollback(ctx context.Context, logger log.Logger, taskID string, mode model.ExecutionMode) error {
	rollbackTaskID, err := s.deployments.Rollback(ctx, taskID)
	if err != nil {
		return fmt.Errorf("could not create rollback task: %w", err)
	}
	logger.Infof("Rollback task %s created", rollbackTaskID)

	if _, err := s.executor.Execute(ctx, rollbackTaskID, mode); err != nil {
		return err
	}

	return nil
}

func withTask(run model.Run, taskID string) model.Run {
	run.TaskID = taskID
	return run
}
