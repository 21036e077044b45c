package storage

import (
	"context"

	"github.com/jenkinsci/xldeploy-plugin-sub000/internal/model"
)

// Repository is the interface for the run history persistence.
type Repository interface {
	CreateRun(ctx context.Context, r model.Run) error
	GetRun(ctx context.Context, id string) (*model.Run, error)
	// ListRuns returns the runs matching the filter, newest first.
	ListRuns(ctx context.Context, filter model.RunFilter) ([]model.Run, error)
	UpdateRun(ctx context.Context, r model.Run) error
}
