package xldeploy

import (
	"context"

	"github.com/jenkinsci/xldeploy-plugin-sub000/internal/model"
)

// TaskService drives the remote tasks of the server.
//
// GetTask and GetStep are reads and can be retried, the rest of the methods
// mutate the task and must be called at most once per transition.
type TaskService interface {
	GetTask(ctx context.Context, taskID string) (*model.Task, error)
	// GetStep returns the step at the 1-based index of the task.
	GetStep(ctx context.Context, taskID string, stepNr int) (*model.Step, error)
	Start(ctx context.Context, taskID string) error
	// Skip marks the steps with the 1-based indexes as skipped.
	Skip(ctx context.Context, taskID string, stepNrs []int) error
	Cancel(ctx context.Context, taskID string) error
	Archive(ctx context.Context, taskID string) error
}

// DeploymentService prepares deployment plans and turns them into tasks.
type DeploymentService interface {
	IsDeployed(ctx context.Context, applicationID, environmentID string) (bool, error)
	PrepareInitial(ctx context.Context, versionID, environmentID string) (*model.Deployment, error)
	PrepareUpdate(ctx context.Context, versionID, deployedApplicationID string) (*model.Deployment, error)
	PrepareUndeploy(ctx context.Context, deployedApplicationID string) (*model.Deployment, error)
	PrepareAutoDeployeds(ctx context.Context, d model.Deployment) (*model.Deployment, error)
	// Validate returns the validated plan. When the plan has nothing to execute
	// it returns model.ErrEmptyPlan.
	Validate(ctx context.Context, d model.Deployment) (*model.Deployment, error)
	CreateTask(ctx context.Context, d model.Deployment) (taskID string, err error)
	// Rollback creates the rollback task of a deployment task.
	Rollback(ctx context.Context, taskID string) (rollbackTaskID string, err error)
}

// RepositoryService reads configuration items of the server repository.
type RepositoryService interface {
	Read(ctx context.Context, id string) (*model.ConfigurationItem, error)
	// Query returns the IDs of the CIs of a type whose name matches the pattern (`%` wildcards).
	Query(ctx context.Context, ciType, namePattern string) ([]string, error)
}

// ControlService runs control tasks on configuration items.
type ControlService interface {
	PrepareControl(ctx context.Context, controlName, ciID string) (*model.Control, error)
	CreateControlTask(ctx context.Context, c model.Control) (taskID string, err error)
}

// PackageService imports deployment packages in the server repository.
type PackageService interface {
	// Import uploads a DAR file and returns the imported deployment package.
	Import(ctx context.Context, darPath string) (*model.ConfigurationItem, error)
}

// ServerService returns information about the server.
type ServerService interface {
	Info(ctx context.Context) (*model.ServerInfo, error)
}

// Server is a connection to an XL Deploy server.
type Server interface {
	TaskService
	DeploymentService
	RepositoryService
	ControlService
	PackageService
	ServerService
}
