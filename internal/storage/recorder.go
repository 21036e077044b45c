package storage

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/jenkinsci/xldeploy-plugin-sub000/internal/log"
	"github.com/jenkinsci/xldeploy-plugin-sub000/internal/model"
)

// RunRecorder records the lifecycle of runs in a repository.
// History is bookkeeping, storage failures are logged and never fail the recorded operation.
type RunRecorder struct {
	repo   Repository
	logger log.Logger
	now    func() time.Time
}

// NewRunRecorder returns a recorder, a nil repository disables the recording.
func NewRunRecorder(repo Repository, logger log.Logger) *RunRecorder {
	if logger == nil {
		logger = log.Noop
	}
	return &RunRecorder{
		repo:   repo,
		logger: logger.WithValues(log.Kv{"svc": "storage.RunRecorder"}),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Start stores the run as running and returns it with its ID and creation time set.
func (r *RunRecorder) Start(ctx context.Context, run model.Run) model.Run {
	run.ID = ulid.Make().String()
	run.Status = model.RunStatusRunning
	run.CreatedAt = r.now()

	if r.repo == nil {
		return run
	}
	if err := r.repo.CreateRun(ctx, run); err != nil {
		r.logger.Warningf("could not record run: %s", err)
	}

	return run
}

// Finish stores the final status of the run, err is recorded as the run error.
func (r *RunRecorder) Finish(ctx context.Context, run model.Run, status model.RunStatus, err error) model.Run {
	now := r.now()
	run.Status = status
	run.FinishedAt = &now
	if err != nil {
		run.Error = err.Error()
	}

	if r.repo == nil {
		return run
	}
	// The run must be recorded even when the operation context was cancelled.
	if uerr := r.repo.UpdateRun(context.WithoutCancel(ctx), run); uerr != nil {
		r.logger.Warningf("could not record run %s result: %s", run.ID, uerr)
	}

	return run
}
