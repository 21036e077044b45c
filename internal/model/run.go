package model

import (
	"fmt"
	"time"
)

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

// Run is one invocation of a deploy, undeploy or control operation recorded locally.
type Run struct {
	ID          string
	Kind        RunKind
	Target      string
	Environment string
	ControlTask string
	TaskID      string
	Status      RunStatus
	Error       string
	CreatedAt   time.Time
	FinishedAt  *time.Time
}

// Validate checks the run is storable.
func (r Run) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("id is required: %w", ErrNotValid)
	}
	switch r.Kind {
	case RunKindDeploy, RunKindUndeploy, RunKindControl:
	default:
		return fmt.Errorf("unknown run kind %q: %w", r.Kind, ErrNotValid)
	}
	if r.Target == "" {
		return fmt.Errorf("target is required: %w", ErrNotValid)
	}
	return nil
}

// Finished returns true when the run reached a final status.
func (r Run) Finished() bool { return r.Status != RunStatusRunning }

// RunFilter filters the listed runs, zero values match everything.
type RunFilter struct {
	Kind   RunKind
	Status RunStatus
	Limit  int
}
