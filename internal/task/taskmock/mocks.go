package taskmock

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/jenkinsci/xldeploy-plugin-sub000/internal/model"
	"github.com/jenkinsci/xldeploy-plugin-sub000/internal/task"
)

var _ task.Executor = &MockExecutor{}

// MockExecutor is a mock of task.Executor.
type MockExecutor struct {
	mock.Mock
}

func (m *MockExecutor) Execute(ctx context.Context, taskID string, mode model.ExecutionMode) (bool, error) {
	ret := m.Called(ctx, taskID, mode)
	return ret.Bool(0), ret.Error(1)
}
