package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jenkinsci/xldeploy-plugin-sub000/internal/log"
	"github.com/jenkinsci/xldeploy-plugin-sub000/internal/model"
	"github.com/jenkinsci/xldeploy-plugin-sub000/internal/storage/sqlite"
)

func runFixture(id string, kind model.RunKind, status model.RunStatus, createdAt time.Time) model.Run {
	return model.Run{
		ID:          id,
		Kind:        kind,
		Target:      "Applications/PetClinic/1.0",
		Environment: "Environments/Dev",
		Status:      status,
		CreatedAt:   createdAt,
	}
}

func newRepo(t *testing.T) *sqlite.Repository {
	t.Helper()
	repo, err := sqlite.NewRepository(context.Background(), sqlite.RepositoryConfig{
		DBPath: filepath.Join(t.TempDir(), "nested", "history.db"),
		Logger: log.Noop,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func TestNewRepositoryConfig(t *testing.T) {
	_, err := sqlite.NewRepository(context.Background(), sqlite.RepositoryConfig{})
	assert.Error(t, err)
}

func TestRepositoryRunLifecycle(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()
	repo := newRepo(t)

	createdAt := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	run := runFixture("01J0000000000000000000000A", model.RunKindDeploy, model.RunStatusRunning, createdAt)
	require.NoError(repo.CreateRun(ctx, run))

	got, err := repo.GetRun(ctx, run.ID)
	require.NoError(err)
	assert.Equal(run, *got)

	finishedAt := createdAt.Add(42 * time.Second)
	run.TaskID = "task-1"
	run.Status = model.RunStatusFailed
	run.Error = "XL Deploy: Errors when executing task task-1"
	run.FinishedAt = &finishedAt
	require.NoError(repo.UpdateRun(ctx, run))

	got, err = repo.GetRun(ctx, run.ID)
	require.NoError(err)
	assert.Equal(run, *got)
}

func TestRepositoryErrors(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	repo := newRepo(t)

	run := runFixture("01J0000000000000000000000A", model.RunKindDeploy, model.RunStatusRunning, time.Now().UTC())
	assert.NoError(repo.CreateRun(ctx, run))
	assert.ErrorIs(repo.CreateRun(ctx, run), model.ErrAlreadyExists)

	_, err := repo.GetRun(ctx, "missing")
	assert.ErrorIs(err, model.ErrNotFound)

	missing := runFixture("missing", model.RunKindDeploy, model.RunStatusFailed, time.Now().UTC())
	assert.ErrorIs(repo.UpdateRun(ctx, missing), model.ErrNotFound)

	invalid := runFixture("", model.RunKindDeploy, model.RunStatusRunning, time.Now().UTC())
	assert.ErrorIs(repo.CreateRun(ctx, invalid), model.ErrNotValid)
}

func TestRepositoryListRuns(t *testing.T) {
	t0 := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	runs := []model.Run{
		runFixture("01J0000000000000000000000A", model.RunKindDeploy, model.RunStatusSucceeded, t0),
		runFixture("01J0000000000000000000000B", model.RunKindUndeploy, model.RunStatusFailed, t0.Add(time.Minute)),
		runFixture("01J0000000000000000000000C", model.RunKindDeploy, model.RunStatusFailed, t0.Add(2*time.Minute)),
		runFixture("01J0000000000000000000000D", model.RunKindControl, model.RunStatusSucceeded, t0.Add(2*time.Minute)),
	}

	tests := map[string]struct {
		filter model.RunFilter
		expIDs []string
	}{
		"No filter should return every run newest first": {
			expIDs: []string{"01J0000000000000000000000D", "01J0000000000000000000000C", "01J0000000000000000000000B", "01J0000000000000000000000A"},
		},
		"Kind filter should return only that kind": {
			filter: model.RunFilter{Kind: model.RunKindDeploy},
			expIDs: []string{"01J0000000000000000000000C", "01J0000000000000000000000A"},
		},
		"Status filter should return only that status": {
			filter: model.RunFilter{Status: model.RunStatusFailed},
			expIDs: []string{"01J0000000000000000000000C", "01J0000000000000000000000B"},
		},
		"Kind and status filters should be combined": {
			filter: model.RunFilter{Kind: model.RunKindDeploy, Status: model.RunStatusSucceeded},
			expIDs: []string{"01J0000000000000000000000A"},
		},
		"Limit should return the newest runs": {
			filter: model.RunFilter{Limit: 2},
			expIDs: []string{"01J0000000000000000000000D", "01J0000000000000000000000C"},
		},
		"A filter without matches should return an empty list": {
			filter: model.RunFilter{Kind: model.RunKindControl, Status: model.RunStatusFailed},
			expIDs: []string{},
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			require := require.New(t)
			ctx := context.Background()
			repo := newRepo(t)
			for _, r := range runs {
				require.NoError(repo.CreateRun(ctx, r))
			}

			got, err := repo.ListRuns(ctx, test.filter)
			require.NoError(err)

			gotIDs := []string{}
			for _, r := range got {
				gotIDs = append(gotIDs, r.ID)
			}
			assert.Equal(t, test.expIDs, gotIDs)
		})
	}
}
