package task

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jenkinsci/xldeploy-plugin-sub000/internal/log"
	"github.com/jenkinsci/xldeploy-plugin-sub000/internal/model"
	"github.com/jenkinsci/xldeploy-plugin-sub000/internal/xldeploy"
)

const (
	defaultPollInterval = time.Second
	defaultMaxRetries   = 5
	dateFormat          = "2006/01/02 15:04:05"
)

// Executor drives a remote task until it finishes.
type Executor interface {
	Execute(ctx context.Context, taskID string, mode model.ExecutionMode) (executed bool, err error)
}

// DriverConfig is the configuration for the task driver.
type DriverConfig struct {
	TaskService xldeploy.TaskService
	// PollInterval is the wait between task state reads while the task executes.
	PollInterval time.Duration
	// MaxRetries is the number of consecutive failed task state reads tolerated while polling.
	MaxRetries int
	Logger     log.Logger
}

func (c *DriverConfig) defaults() error {
	if c.TaskService == nil {
		return fmt.Errorf("task service is required")
	}

	if c.PollInterval <= 0 {
		c.PollInterval = defaultPollInterval
	}

	if c.MaxRetries < 0 {
		return fmt.Errorf("max retries can't be negative")
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = defaultMaxRetries
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "task.Driver"})

	return nil
}

// Driver executes remote tasks: optionally skips every step, reports the task state,
// starts it and waits until the server stops executing it.
type Driver struct {
	tasks        xldeploy.TaskService
	pollInterval time.Duration
	maxRetries   int
	logger       log.Logger
}

// NewDriver returns a new task driver.
func NewDriver(cfg DriverConfig) (*Driver, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Driver{
		tasks:        cfg.TaskService,
		pollInterval: cfg.PollInterval,
		maxRetries:   cfg.MaxRetries,
		logger:       cfg.Logger,
	}, nil
}

// Execute drives the task. It returns false without error when the task was cancelled
// in test mode, true when the task was executed and archived.
func (d *Driver) Execute(ctx context.Context, taskID string, mode model.ExecutionMode) (bool, error) {
	logger := d.logger.WithValues(log.Kv{"task": taskID})

	if mode.Skip {
		logger.Infof("skip mode, skip all the steps")
		if err := d.skipAll(ctx, taskID); err != nil {
			return false, model.NewPluginError(err, "Error when executing task %s: %s", taskID, err)
		}
	}

	if err := d.checkTaskState(ctx, logger, taskID); err != nil {
		return false, err
	}

	if mode.Test {
		logger.Infof("test mode, cancel task %s", taskID)
		if err := d.tasks.Cancel(ctx, taskID); err != nil {
			return false, model.NewPluginError(err, "Error when executing task %s: %s", taskID, err)
		}
		return false, nil
	}

	err := d.startAndWait(ctx, logger, taskID)
	if err != nil {
		var perr *model.PluginError
		if errors.As(err, &perr) {
			return false, err
		}
		return false, model.NewPluginError(err, "Error when executing task %s: %s", taskID, err)
	}

	return true, nil
}

func (d *Driver) startAndWait(ctx context.Context, logger log.Logger, taskID string) error {
	logger.Infof("Start deployment task %s", taskID)
	if err := d.tasks.Start(ctx, taskID); err != nil {
		return fmt.Errorf("could not start task: %w", err)
	}

	if err := d.waitUntilDone(ctx, logger, taskID); err != nil {
		return err
	}

	if err := d.checkTaskState(ctx, logger, taskID); err != nil {
		return err
	}

	if err := d.tasks.Archive(ctx, taskID); err != nil {
		return fmt.Errorf("could not archive task: %w", err)
	}

	return nil
}

// skipAll requests the skip of the steps [1, NrSteps].
func (d *Driver) skipAll(ctx context.Context, taskID string) error {
	t, err := d.tasks.GetTask(ctx, taskID)
	if err != nil {
		return fmt.Errorf("could not get task: %w", err)
	}

	if t.NrSteps == 0 {
		return nil
	}

	if err := d.tasks.Skip(ctx, taskID, StepRange(t.NrSteps)); err != nil {
		return fmt.Errorf("could not skip steps: %w", err)
	}

	return nil
}

// checkTaskState logs the state of the task and every one of its steps.
// It fails when the server halted the task execution.
func (d *Driver) checkTaskState(ctx context.Context, logger log.Logger, taskID string) error {
	t, err := d.tasks.GetTask(ctx, taskID)
	if err != nil {
		return model.NewPluginError(err, "Error when executing task %s: could not get task: %s", taskID, err)
	}

	logger.Infof("%s Description\t%s", taskID, t.Description)
	logger.Infof("%s State      \t%s %d/%d", taskID, t.State, t.CurrentStep, t.NrSteps)
	if t.StartDate != nil {
		logger.Infof("%s Start      %s", taskID, t.StartDate.Format(dateFormat))
	}
	if t.CompletionDate != nil {
		logger.Infof("%s Completion %s", taskID, t.CompletionDate.Format(dateFormat))
	}

	var failed []string
	for i := 1; i <= t.NrSteps; i++ {
		step, err := d.tasks.GetStep(ctx, taskID, i)
		if err != nil {
			return model.NewPluginError(err, "Error when executing task %s: could not get step %d: %s", taskID, i, err)
		}

		msg := StepLine(taskID, i, *step)
		logger.Infof("%s", msg)
		if step.State == model.StepStateFailed {
			failed = append(failed, msg)
		}
	}

	if t.State.IsExecutionHalted() {
		return model.NewPluginError(nil, "Errors when executing task %s: %s", taskID, strings.Join(failed, "\n"))
	}

	return nil
}

// waitUntilDone polls the task state until the task is no longer executing.
func (d *Driver) waitUntilDone(ctx context.Context, logger log.Logger, taskID string) error {
	failures := 0
	for {
		t, err := d.tasks.GetTask(ctx, taskID)
		switch {
		case err != nil:
			if failures == d.maxRetries {
				return fmt.Errorf("could not get task status after %d retries: %w", d.maxRetries, err)
			}
			failures++
			logger.Infof("Failed to get task status. Error message: %s", rootCause(err))
			logger.Infof("Will attempt retry %d of %d in %s.", failures, d.maxRetries, d.pollInterval)
		default:
			failures = 0
			logger.Debugf("Task state: %s", t.State)
			if t.State.IsPassiveAfterExecuting() {
				return nil
			}
		}

		logger.Debugf("Waiting for task to be done...")
		timer := time.NewTimer(d.pollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("stopped waiting for task: %w", ctx.Err())
		case <-timer.C:
		}
	}
}

// StepRange returns the 1-based step indexes [1, nrSteps].
func StepRange(nrSteps int) []int {
	steps := make([]int, 0, nrSteps)
	for i := 1; i <= nrSteps; i++ {
		steps = append(steps, i)
	}
	return steps
}

// StepLine formats the log line of a step, the step log is only appended when
// it has content that is not the description itself.
func StepLine(taskID string, stepNr int, step model.Step) string {
	if step.Log == "" || step.Log == step.Description {
		return fmt.Sprintf("%s step #%d %s\t%s", taskID, stepNr, step.State, step.Description)
	}
	return fmt.Sprintf("%s step #%d %s\t%s\n%s", taskID, stepNr, step.State, step.Description, step.Log)
}

func rootCause(err error) string {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err.Error()
		}
		err = next
	}
}
