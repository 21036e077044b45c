package model

import (
	"time"
)

// TaskState is the execution state of a remote task as reported by the server.
type TaskState string

const (
	TaskStatePending    TaskState = "PENDING"
	TaskStateQueued     TaskState = "QUEUED"
	TaskStateExecuting  TaskState = "EXECUTING"
	TaskStateExecuted   TaskState = "EXECUTED"
	TaskStateDone       TaskState = "DONE"
	TaskStateStopping   TaskState = "STOPPING"
	TaskStateStopped    TaskState = "STOPPED"
	TaskStateAborting   TaskState = "ABORTING"
	TaskStateAborted    TaskState = "ABORTED"
	TaskStateFailing    TaskState = "FAILING"
	TaskStateFailed     TaskState = "FAILED"
	TaskStateCancelling TaskState = "CANCELLING"
	TaskStateCancelled  TaskState = "CANCELLED"
)

// IsPassiveAfterExecuting returns true when the task is no longer executing and
// waits for a user action (or is finished).
func (s TaskState) IsPassiveAfterExecuting() bool {
	switch s {
	case TaskStateExecuted, TaskStateDone, TaskStateStopped, TaskStateAborted, TaskStateFailed, TaskStateCancelled:
		return true
	}
	return false
}

// IsExecutionHalted returns true when the task stopped before executing all its steps.
func (s TaskState) IsExecutionHalted() bool {
	switch s {
	case TaskStateStopped, TaskStateAborted, TaskStateFailed:
		return true
	}
	return false
}

// Phase collapses the server states into the coarse lifecycle phases.
func (s TaskState) Phase() TaskPhase {
	switch s {
	case TaskStatePending, TaskStateQueued:
		return TaskPhasePending
	case TaskStateExecuted, TaskStateDone:
		return TaskPhaseDone
	case TaskStateStopped, TaskStateAborted, TaskStateFailed:
		return TaskPhaseFailed
	case TaskStateCancelled:
		return TaskPhaseCancelled
	default:
		return TaskPhaseRunning
	}
}

// TaskPhase is the coarse lifecycle phase of a task.
type TaskPhase string

const (
	TaskPhasePending   TaskPhase = "pending"
	TaskPhaseRunning   TaskPhase = "running"
	TaskPhaseDone      TaskPhase = "done"
	TaskPhaseFailed    TaskPhase = "failed"
	TaskPhaseCancelled TaskPhase = "cancelled"
)

// StepState is the execution state of a single step of a task.
type StepState string

const (
	StepStatePending   StepState = "PENDING"
	StepStateExecuting StepState = "EXECUTING"
	StepStateExecuted  StepState = "EXECUTED"
	StepStateFailed    StepState = "FAILED"
	StepStateSkip      StepState = "SKIP"
	StepStateSkipped   StepState = "SKIPPED"
)

// Task is the state of a remote task.
type Task struct {
	ID             string
	Description    string
	State          TaskState
	CurrentStep    int
	NrSteps        int
	StartDate      *time.Time
	CompletionDate *time.Time
}

// Step is the state of one step of a remote task, steps are identified by a 1-based index.
type Step struct {
	Description string
	State       StepState
	Log         string
}

// ExecutionMode controls how a task is driven.
type ExecutionMode struct {
	// Skip marks all the steps as skipped before executing.
	Skip bool
	// Test cancels the task instead of executing it (dry run).
	Test bool
	// RollbackOnError requests and executes a rollback task when the execution fails.
	RollbackOnError bool
}
