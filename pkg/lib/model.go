package lib

import (
	"errors"
	"time"

	"github.com/jenkinsci/xldeploy-plugin-sub000/internal/model"
)

// BackendType identifies the server implementation the client talks to.
type BackendType string

const (
	// BackendREST uses the XL Deploy REST API.
	BackendREST BackendType = "rest"

	// BackendFake uses an in-memory server where tasks execute when started.
	// Use this for unit testing without a real server.
	BackendFake BackendType = "fake"
)

// ServerConfig is the connection configuration of an XL Deploy server.
type ServerConfig struct {
	// URL is the server URL, the `deployit` context is used when it has no path.
	URL      string
	Username string
	Password string
	// ProxyURL is an optional HTTP proxy.
	ProxyURL string
	// SocketTimeout is the timeout of every request. Default: 60s.
	SocketTimeout time.Duration
	// ConnectionPoolSize is the number of idle connections kept. Default: 25.
	ConnectionPoolSize int
}

// ConfigurationItem is a repository object of the server.
type ConfigurationItem struct {
	ID         string
	Type       string
	Properties map[string]string
}

// DeployOpts configures a deployment.
//
// One of PackageID or DarPath is required, EnvironmentID is always required.
type DeployOpts struct {
	// PackageID is the deployment package (`Applications/PetClinic/1.0`).
	PackageID string
	// DarPath is a DAR file imported and then deployed.
	DarPath string
	// EnvironmentID is the target environment (`Environments/Dev`).
	EnvironmentID string
	// Skip marks every step as skipped.
	Skip bool
	// Test cancels the task instead of executing it.
	Test bool
	// RollbackOnError executes a rollback task when the deployment task fails.
	RollbackOnError bool
	// GenerateDeployedOnUpgrade maps the new deployables of an upgrade.
	GenerateDeployedOnUpgrade bool
}

// ControlOpts configures a control task execution.
type ControlOpts struct {
	ContainerID string
	TaskName    string
	Parameters  map[string]string
}

// RunKind is the kind of operation a run executed.
type RunKind string

const (
	RunKindDeploy   RunKind = "deploy"
	RunKindUndeploy RunKind = "undeploy"
	RunKindControl  RunKind = "control"
)

// RunStatus is the outcome of a run.
type RunStatus string

const (
	RunStatusRunning    RunStatus = "running"
	RunStatusSucceeded  RunStatus = "succeeded"
	RunStatusFailed     RunStatus = "failed"
	RunStatusSkipped    RunStatus = "skipped"
	RunStatusDryRun     RunStatus = "dry-run"
	RunStatusRolledBack RunStatus = "rolled-back"
)

// Run is a recorded deploy, undeploy or control execution.
type Run struct {
	// ID is the unique identifier (ULID) of the run.
	ID   string
	Kind RunKind
	// Target is the package, deployed application or container of the run.
	Target      string
	Environment string
	ControlTask string
	// TaskID is the server task, empty when no task was created.
	TaskID     string
	Status     RunStatus
	Error      string
	CreatedAt  time.Time
	FinishedAt *time.Time
}

// RunResult is the outcome of a deploy, undeploy or control execution.
type RunResult struct {
	Run Run
	// PackageID is the deployed package, only set on deploys.
	PackageID string
	// Executed is false when no task was executed (empty plan or test mode).
	Executed bool
}

// ListRunsOpts filters the listed runs. Pass nil to list every run.
type ListRunsOpts struct {
	Kind   *RunKind
	Status *RunStatus
	// Limit is the maximum number of runs, 0 means no limit.
	Limit int
}

// ImportResult is an imported deployment package.
type ImportResult struct {
	PackageID   string
	Application string
	Version     string
}

// ServerInfo is the information the server exposes about itself.
type ServerInfo struct {
	Version string
	Edition string
	Plugins map[string]string
}

var (
	// ErrNotFound is returned when a resource does not exist.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned when a resource already exists.
	ErrAlreadyExists = errors.New("already exists")
	// ErrNotValid is returned when an input or operation is not valid.
	ErrNotValid = errors.New("not valid")
)

func toInternalServerConfig(c ServerConfig) model.ServerConfig {
	return model.ServerConfig{
		URL:                c.URL,
		Username:           c.Username,
		Password:           c.Password,
		ProxyURL:           c.ProxyURL,
		SocketTimeout:      c.SocketTimeout,
		ConnectionPoolSize: c.ConnectionPoolSize,
	}
}

func toInternalCIs(cis []ConfigurationItem) []model.ConfigurationItem {
	res := make([]model.ConfigurationItem, 0, len(cis))
	for _, ci := range cis {
		res = append(res, model.ConfigurationItem{ID: ci.ID, Type: ci.Type, Properties: ci.Properties})
	}
	return res
}

func toInternalDeploymentOptions(opts DeployOpts) model.DeploymentOptions {
	return model.DeploymentOptions{
		ExecutionMode: model.ExecutionMode{
			Skip:            opts.Skip,
			Test:            opts.Test,
			RollbackOnError: opts.RollbackOnError,
		},
		GenerateDeployedOnUpgrade: opts.GenerateDeployedOnUpgrade,
	}
}

func fromInternalRun(r model.Run) Run {
	return Run{
		ID:          r.ID,
		Kind:        RunKind(r.Kind),
		Target:      r.Target,
		Environment: r.Environment,
		ControlTask: r.ControlTask,
		TaskID:      r.TaskID,
		Status:      RunStatus(r.Status),
		Error:       r.Error,
		CreatedAt:   r.CreatedAt,
		FinishedAt:  r.FinishedAt,
	}
}

func fromInternalRunList(runs []model.Run) []Run {
	res := make([]Run, 0, len(runs))
	for _, r := range runs {
		res = append(res, fromInternalRun(r))
	}
	return res
}

func fromInternalServerInfo(info model.ServerInfo) ServerInfo {
	plugins := make(map[string]string, len(info.Plugins))
	for _, p := range info.Plugins {
		plugins[p.Name] = p.Version
	}
	return ServerInfo{Version: info.Version, Edition: info.Edition, Plugins: plugins}
}

func toInternalRunKind(k *RunKind) *model.RunKind {
	if k == nil {
		return nil
	}
	mk := model.RunKind(*k)
	return &mk
}

func toInternalRunStatus(s *RunStatus) *model.RunStatus {
	if s == nil {
		return nil
	}
	ms := model.RunStatus(*s)
	return &ms
}

func mapError(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, model.ErrNotFound):
		return &mappedError{original: err, sentinel: ErrNotFound}
	case errors.Is(err, model.ErrAlreadyExists):
		return &mappedError{original: err, sentinel: ErrAlreadyExists}
	case errors.Is(err, model.ErrNotValid):
		return &mappedError{original: err, sentinel: ErrNotValid}
	default:
		return err
	}
}

// mappedError keeps the internal error message and matches the public sentinel.
type mappedError struct {
	original error
	sentinel error
}

func (e *mappedError) Error() string { return e.original.Error() }

func (e *mappedError) Is(target error) bool { return target == e.sentinel }

func (e *mappedError) Unwrap() error { return e.original }
