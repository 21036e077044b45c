package xldeploymock

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/jenkinsci/xldeploy-plugin-sub000/internal/model"
	"github.com/jenkinsci/xldeploy-plugin-sub000/internal/xldeploy"
)

var _ xldeploy.Server = &MockServer{}

// MockServer is a mock of xldeploy.Server, it satisfies every service interface of the package.
type MockServer struct {
	mock.Mock
}

func (m *MockServer) GetTask(ctx context.Context, taskID string) (*model.Task, error) {
	ret := m.Called(ctx, taskID)
	r0, _ := ret.Get(0).(*model.Task)
	return r0, ret.Error(1)
}

func (m *MockServer) GetStep(ctx context.Context, taskID string, stepNr int) (*model.Step, error) {
	ret := m.Called(ctx, taskID, stepNr)
	r0, _ := ret.Get(0).(*model.Step)
	return r0, ret.Error(1)
}

func (m *MockServer) Start(ctx context.Context, taskID string) error {
	return m.Called(ctx, taskID).Error(0)
}

func (m *MockServer) Skip(ctx context.Context, taskID string, stepNrs []int) error {
	return m.Called(ctx, taskID, stepNrs).Error(0)
}

func (m *MockServer) Cancel(ctx context.Context, taskID string) error {
	return m.Called(ctx, taskID).Error(0)
}

func (m *MockServer) Archive(ctx context.Context, taskID string) error {
	return m.Called(ctx, taskID).Error(0)
}

func (m *MockServer) IsDeployed(ctx context.Context, applicationID, environmentID string) (bool, error) {
	ret := m.Called(ctx, applicationID, environmentID)
	return ret.Bool(0), ret.Error(1)
}

func (m *MockServer) PrepareInitial(ctx context.Context, versionID, environmentID string) (*model.Deployment, error) {
	ret := m.Called(ctx, versionID, environmentID)
	r0, _ := ret.Get(0).(*model.Deployment)
	return r0, ret.Error(1)
}

func (m *MockServer) PrepareUpdate(ctx context.Context, versionID, deployedApplicationID string) (*model.Deployment, error) {
	ret := m.Called(ctx, versionID, deployedApplicationID)
	r0, _ := ret.Get(0).(*model.Deployment)
	return r0, ret.Error(1)
}

func (m *MockServer) PrepareUndeploy(ctx context.Context, deployedApplicationID string) (*model.Deployment, error) {
	ret := m.Called(ctx, deployedApplicationID)
	r0, _ := ret.Get(0).(*model.Deployment)
	return r0, ret.Error(1)
}

func (m *MockServer) PrepareAutoDeployeds(ctx context.Context, d model.Deployment) (*model.Deployment, error) {
	ret := m.Called(ctx, d)
	r0, _ := ret.Get(0).(*model.Deployment)
	return r0, ret.Error(1)
}

func (m *MockServer) Validate(ctx context.Context, d model.Deployment) (*model.Deployment, error) {
	ret := m.Called(ctx, d)
	r0, _ := ret.Get(0).(*model.Deployment)
	return r0, ret.Error(1)
}

func (m *MockServer) CreateTask(ctx context.Context, d model.Deployment) (string, error) {
	ret := m.Called(ctx, d)
	return ret.String(0), ret.Error(1)
}

func (m *MockServer) Rollback(ctx context.Context, taskID string) (string, error) {
	ret := m.Called(ctx, taskID)
	return ret.String(0), ret.Error(1)
}

func (m *MockServer) Read(ctx context.Context, id string) (*model.ConfigurationItem, error) {
	ret := m.Called(ctx, id)
	r0, _ := ret.Get(0).(*model.ConfigurationItem)
	return r0, ret.Error(1)
}

func (m *MockServer) Query(ctx context.Context, ciType, namePattern string) ([]string, error) {
	ret := m.Called(ctx, ciType, namePattern)
	r0, _ := ret.Get(0).([]string)
	return r0, ret.Error(1)
}

func (m *MockServer) PrepareControl(ctx context.Context, controlName, ciID string) (*model.Control, error) {
	ret := m.Called(ctx, controlName, ciID)
	r0, _ := ret.Get(0).(*model.Control)
	return r0, ret.Error(1)
}

func (m *MockServer) CreateControlTask(ctx context.Context, c model.Control) (string, error) {
	ret := m.Called(ctx, c)
	return ret.String(0), ret.Error(1)
}

func (m *MockServer) Import(ctx context.Context, darPath string) (*model.ConfigurationItem, error) {
	ret := m.Called(ctx, darPath)
	r0, _ := ret.Get(0).(*model.ConfigurationItem)
	return r0, ret.Error(1)
}

func (m *MockServer) Info(ctx context.Context) (*model.ServerInfo, error) {
	ret := m.Called(ctx)
	r0, _ := ret.Get(0).(*model.ServerInfo)
	return r0, ret.Error(1)
}
