package storagemock

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/jenkinsci/xldeploy-plugin-sub000/internal/model"
	"github.com/jenkinsci/xldeploy-plugin-sub000/internal/storage"
)

var _ storage.Repository = &MockRepository{}

// MockRepository is a mock of storage.Repository.
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) CreateRun(ctx context.Context, r model.Run) error {
	return m.Called(ctx, r).Error(0)
}

func (m *MockRepository) GetRun(ctx context.Context, id string) (*model.Run, error) {
	ret := m.Called(ctx, id)
	r0, _ := ret.Get(0).(*model.Run)
	return r0, ret.Error(1)
}

func (m *MockRepository) ListRuns(ctx context.Context, filter model.RunFilter) ([]model.Run, error) {
	ret := m.Called(ctx, filter)
	r0, _ := ret.Get(0).([]model.Run)
	return r0, ret.Error(1)
}

func (m *MockRepository) UpdateRun(ctx context.Context, r model.Run) error {
	return m.Called(ctx, r).Error(0)
}
