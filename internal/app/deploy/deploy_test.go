package deploy_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jenkinsci/xldeploy-plugin-sub000/internal/app/deploy"
	"github.com/jenkinsci/xldeploy-plugin-sub000/internal/log"
	"github.com/jenkinsci/xldeploy-plugin-sub000/internal/model"
	"github.com/jenkinsci/xldeploy-plugin-sub000/internal/storage/memory"
	"github.com/jenkinsci/xldeploy-plugin-sub000/internal/task/taskmock"
	"github.com/jenkinsci/xldeploy-plugin-sub000/internal/xldeploy/xldeploymock"
)

const (
	pkgID = "Applications/PetClinic/1.0"
	envID = "Environments/Dev"
)

func pkgCI() *model.ConfigurationItem {
	return &model.ConfigurationItem{ID: pkgID, Type: model.TypeDeploymentPackage}
}

func deploymentFixture(t model.DeploymentType) *model.Deployment {
	return &model.Deployment{
		ID:      "deployment-1",
		Type:    t,
		Version: pkgID,
		Target:  envID,
		Deployeds: []model.ConfigurationItem{
			{ID: "Infrastructure/host/tomcat/petclinic", Type: "tomcat.WarModule"},
		},
	}
}

func TestNewService(t *testing.T) {
	tests := map[string]struct {
		config deploy.ServiceConfig
		expErr bool
	}{
		"A valid config should create the service": {
			config: deploy.ServiceConfig{
				Repository:  &xldeploymock.MockServer{},
				Deployments: &xldeploymock.MockServer{},
				Executor:    &taskmock.MockExecutor{},
			},
		},
		"A missing repository service should fail": {
			config: deploy.ServiceConfig{
				Deployments: &xldeploymock.MockServer{},
				Executor:    &taskmock.MockExecutor{},
			},
			expErr: true,
		},
		"A missing deployment service should fail": {
			config: deploy.ServiceConfig{
				Repository: &xldeploymock.MockServer{},
				Executor:   &taskmock.MockExecutor{},
			},
			expErr: true,
		},
		"A missing executor should fail": {
			config: deploy.ServiceConfig{
				Repository:  &xldeploymock.MockServer{},
				Deployments: &xldeploymock.MockServer{},
			},
			expErr: true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			require := require.New(t)

			svc, err := deploy.NewService(test.config)
			if test.expErr {
				require.Error(err)
				require.Nil(svc)
			} else {
				require.NoError(err)
				require.NotNil(svc)
			}
		})
	}
}

func TestServiceRun(t *testing.T) {
	errExec := errors.New("XL Deploy: Errors when executing task t1")
	errTest := errors.New("whatever")

	tests := map[string]struct {
		req         deploy.Request
		mockServer  func(m *xldeploymock.MockServer)
		mockExec    func(m *taskmock.MockExecutor)
		expErr      error
		expErrMsg   string
		expResult   *deploy.Result
		expStatus   model.RunStatus
		expNoResult bool
	}{
		"An application not deployed on the environment should be deployed with an initial plan": {
			req: deploy.Request{PackageID: pkgID, EnvironmentID: envID},
			mockServer: func(m *xldeploymock.MockServer) {
				d := deploymentFixture(model.DeploymentTypeInitial)
				m.On("Read", mock.Anything, pkgID).Once().Return(pkgCI(), nil)
				m.On("IsDeployed", mock.Anything, "Applications/PetClinic", envID).Once().Return(false, nil)
				m.On("PrepareInitial", mock.Anything, pkgID, envID).Once().Return(d, nil)
				m.On("Validate", mock.Anything, *d).Once().Return(d, nil)
				m.On("CreateTask", mock.Anything, *d).Once().Return("t1", nil)
			},
			mockExec: func(m *taskmock.MockExecutor) {
				m.On("Execute", mock.Anything, "t1", model.ExecutionMode{}).Once().Return(true, nil)
			},
			expResult: &deploy.Result{PackageID: pkgID, Type: model.DeploymentTypeInitial, TaskID: "t1", Executed: true},
			expStatus: model.RunStatusSucceeded,
		},

		"An application deployed on the environment should be upgraded": {
			req: deploy.Request{PackageID: pkgID, EnvironmentID: envID},
			mockServer: func(m *xldeploymock.MockServer) {
				d := deploymentFixture(model.DeploymentTypeUpdate)
				m.On("Read", mock.Anything, pkgID).Once().Return(pkgCI(), nil)
				m.On("IsDeployed", mock.Anything, "Applications/PetClinic", envID).Once().Return(true, nil)
				m.On("PrepareUpdate", mock.Anything, pkgID, "Environments/Dev/PetClinic").Once().Return(d, nil)
				m.On("Validate", mock.Anything, *d).Once().Return(d, nil)
				m.On("CreateTask", mock.Anything, *d).Once().Return("t1", nil)
			},
			mockExec: func(m *taskmock.MockExecutor) {
				m.On("Execute", mock.Anything, "t1", model.ExecutionMode{}).Once().Return(true, nil)
			},
			expResult: &deploy.Result{PackageID: pkgID, Type: model.DeploymentTypeUpdate, TaskID: "t1", Executed: true},
			expStatus: model.RunStatusSucceeded,
		},

		"Generating deployeds on upgrade should validate the generated plan": {
			req: deploy.Request{PackageID: pkgID, EnvironmentID: envID, Options: model.DeploymentOptions{GenerateDeployedOnUpgrade: true}},
			mockServer: func(m *xldeploymock.MockServer) {
				d := deploymentFixture(model.DeploymentTypeUpdate)
				generated := deploymentFixture(model.DeploymentTypeUpdate)
				generated.Deployeds = append(generated.Deployeds, model.ConfigurationItem{ID: "Infrastructure/host/db/ds", Type: "sql.DataSource"})
				m.On("Read", mock.Anything, pkgID).Once().Return(pkgCI(), nil)
				m.On("IsDeployed", mock.Anything, "Applications/PetClinic", envID).Once().Return(true, nil)
				m.On("PrepareUpdate", mock.Anything, pkgID, "Environments/Dev/PetClinic").Once().Return(d, nil)
				m.On("PrepareAutoDeployeds", mock.Anything, *d).Once().Return(generated, nil)
				m.On("Validate", mock.Anything, *generated).Once().Return(generated, nil)
				m.On("CreateTask", mock.Anything, *generated).Once().Return("t1", nil)
			},
			mockExec: func(m *taskmock.MockExecutor) {
				m.On("Execute", mock.Anything, "t1", model.ExecutionMode{}).Once().Return(true, nil)
			},
			expResult: &deploy.Result{PackageID: pkgID, Type: model.DeploymentTypeUpdate, TaskID: "t1", Executed: true},
			expStatus: model.RunStatusSucceeded,
		},

		"An empty plan should return without creating a task": {
			req: deploy.Request{PackageID: pkgID, EnvironmentID: envID},
			mockServer: func(m *xldeploymock.MockServer) {
				d := deploymentFixture(model.DeploymentTypeUpdate)
				m.On("Read", mock.Anything, pkgID).Once().Return(pkgCI(), nil)
				m.On("IsDeployed", mock.Anything, "Applications/PetClinic", envID).Once().Return(true, nil)
				m.On("PrepareUpdate", mock.Anything, pkgID, "Environments/Dev/PetClinic").Once().Return(d, nil)
				m.On("Validate", mock.Anything, *d).Once().Return(nil, fmt.Errorf("server said so: %w", model.ErrEmptyPlan))
			},
			mockExec:  func(m *taskmock.MockExecutor) {},
			expResult: &deploy.Result{PackageID: pkgID, Type: model.DeploymentTypeUpdate},
			expStatus: model.RunStatusSkipped,
		},

		"A plan validation error should fail without creating a task": {
			req: deploy.Request{PackageID: pkgID, EnvironmentID: envID},
			mockServer: func(m *xldeploymock.MockServer) {
				d := deploymentFixture(model.DeploymentTypeInitial)
				m.On("Read", mock.Anything, pkgID).Once().Return(pkgCI(), nil)
				m.On("IsDeployed", mock.Anything, "Applications/PetClinic", envID).Once().Return(false, nil)
				m.On("PrepareInitial", mock.Anything, pkgID, envID).Once().Return(d, nil)
				m.On("Validate", mock.Anything, *d).Once().Return(nil, errTest)
			},
			mockExec:  func(m *taskmock.MockExecutor) {},
			expErr:    errTest,
			expErrMsg: "XL Deploy: whatever",
			expStatus: model.RunStatusFailed,
		},

		"Validation messages on the deployeds should fail before creating a task": {
			req: deploy.Request{PackageID: pkgID, EnvironmentID: envID},
			mockServer: func(m *xldeploymock.MockServer) {
				d := deploymentFixture(model.DeploymentTypeInitial)
				validated := deploymentFixture(model.DeploymentTypeInitial)
				validated.Deployeds[0].Validations = []model.ValidationMessage{
					{CIID: "Infrastructure/host/tomcat/petclinic", Property: "contextRoot", Message: "Value is required"},
					{CIID: "Infrastructure/host/tomcat/petclinic", Property: "port", Message: "Value is required"},
				}
				m.On("Read", mock.Anything, pkgID).Once().Return(pkgCI(), nil)
				m.On("IsDeployed", mock.Anything, "Applications/PetClinic", envID).Once().Return(false, nil)
				m.On("PrepareInitial", mock.Anything, pkgID, envID).Once().Return(d, nil)
				m.On("Validate", mock.Anything, *d).Once().Return(validated, nil)
			},
			mockExec:  func(m *taskmock.MockExecutor) {},
			expErr:    model.ErrNotValid,
			expErrMsg: "XL Deploy: Validation errors (2) have been found. For more information previously reported ERROR messages.",
			expStatus: model.RunStatusFailed,
		},

		"A missing package should fail": {
			req: deploy.Request{PackageID: pkgID, EnvironmentID: envID},
			mockServer: func(m *xldeploymock.MockServer) {
				m.On("Read", mock.Anything, pkgID).Once().Return(nil, model.ErrNotFound)
			},
			mockExec:  func(m *taskmock.MockExecutor) {},
			expErr:    model.ErrNotFound,
			expErrMsg: "XL Deploy: 'Applications/PetClinic/1.0' not found in repository.",
			expStatus: model.RunStatusFailed,
		},

		"A CI that is not a deployment package should fail": {
			req: deploy.Request{PackageID: "Applications/PetClinic", EnvironmentID: envID},
			mockServer: func(m *xldeploymock.MockServer) {
				m.On("Read", mock.Anything, "Applications/PetClinic").Once().Return(&model.ConfigurationItem{ID: "Applications/PetClinic", Type: model.TypeApplication}, nil)
			},
			mockExec:  func(m *taskmock.MockExecutor) {},
			expErr:    model.ErrNotValid,
			expErrMsg: "XL Deploy: 'Applications/PetClinic' is of type 'udm.Application' instead 'udm.DeploymentPackage'. Please verify that the version is specified.",
			expStatus: model.RunStatusFailed,
		},

		"A failed task without rollback should fail": {
			req: deploy.Request{PackageID: pkgID, EnvironmentID: envID},
			mockServer: func(m *xldeploymock.MockServer) {
				d := deploymentFixture(model.DeploymentTypeInitial)
				m.On("Read", mock.Anything, pkgID).Once().Return(pkgCI(), nil)
				m.On("IsDeployed", mock.Anything, "Applications/PetClinic", envID).Once().Return(false, nil)
				m.On("PrepareInitial", mock.Anything, pkgID, envID).Once().Return(d, nil)
				m.On("Validate", mock.Anything, *d).Once().Return(d, nil)
				m.On("CreateTask", mock.Anything, *d).Once().Return("t1", nil)
			},
			mockExec: func(m *taskmock.MockExecutor) {
				m.On("Execute", mock.Anything, "t1", model.ExecutionMode{}).Once().Return(false, errExec)
			},
			expErr:    errExec,
			expStatus: model.RunStatusFailed,
		},

		"A failed task with rollback should drive the rollback task and return the deploy error": {
			req: deploy.Request{PackageID: pkgID, EnvironmentID: envID, Options: model.DeploymentOptions{ExecutionMode: model.ExecutionMode{RollbackOnError: true}}},
			mockServer: func(m *xldeploymock.MockServer) {
				d := deploymentFixture(model.DeploymentTypeInitial)
				m.On("Read", mock.Anything, pkgID).Once().Return(pkgCI(), nil)
				m.On("IsDeployed", mock.Anything, "Applications/PetClinic", envID).Once().Return(false, nil)
				m.On("PrepareInitial", mock.Anything, pkgID, envID).Once().Return(d, nil)
				m.On("Validate", mock.Anything, *d).Once().Return(d, nil)
				m.On("CreateTask", mock.Anything, *d).Once().Return("t1", nil)
				m.On("Rollback", mock.Anything, "t1").Once().Return("t2", nil)
			},
			mockExec: func(m *taskmock.MockExecutor) {
				mode := model.ExecutionMode{RollbackOnError: true}
				m.On("Execute", mock.Anything, "t1", mode).Once().Return(false, errExec)
				m.On("Execute", mock.Anything, "t2", mode).Once().Return(true, nil)
			},
			expErr:    errExec,
			expStatus: model.RunStatusRolledBack,
		},

		"A failed rollback should still return the deploy error": {
			req: deploy.Request{PackageID: pkgID, EnvironmentID: envID, Options: model.DeploymentOptions{ExecutionMode: model.ExecutionMode{RollbackOnError: true}}},
			mockServer: func(m *xldeploymock.MockServer) {
				d := deploymentFixture(model.DeploymentTypeInitial)
				m.On("Read", mock.Anything, pkgID).Once().Return(pkgCI(), nil)
				m.On("IsDeployed", mock.Anything, "Applications/PetClinic", envID).Once().Return(false, nil)
				m.On("PrepareInitial", mock.Anything, pkgID, envID).Once().Return(d, nil)
				m.On("Validate", mock.Anything, *d).Once().Return(d, nil)
				m.On("CreateTask", mock.Anything, *d).Once().Return("t1", nil)
				m.On("Rollback", mock.Anything, "t1").Once().Return("", errTest)
			},
			mockExec: func(m *taskmock.MockExecutor) {
				m.On("Execute", mock.Anything, "t1", model.ExecutionMode{RollbackOnError: true}).Once().Return(false, errExec)
			},
			expErr:    errExec,
			expStatus: model.RunStatusFailed,
		},

		"Test mode should report a dry run": {
			req: deploy.Request{PackageID: pkgID, EnvironmentID: envID, Options: model.DeploymentOptions{ExecutionMode: model.ExecutionMode{Test: true}}},
			mockServer: func(m *xldeploymock.MockServer) {
				d := deploymentFixture(model.DeploymentTypeInitial)
				m.On("Read", mock.Anything, pkgID).Once().Return(pkgCI(), nil)
				m.On("IsDeployed", mock.Anything, "Applications/PetClinic", envID).Once().Return(false, nil)
				m.On("PrepareInitial", mock.Anything, pkgID, envID).Once().Return(d, nil)
				m.On("Validate", mock.Anything, *d).Once().Return(d, nil)
				m.On("CreateTask", mock.Anything, *d).Once().Return("t1", nil)
			},
			mockExec: func(m *taskmock.MockExecutor) {
				m.On("Execute", mock.Anything, "t1", model.ExecutionMode{Test: true}).Once().Return(false, nil)
			},
			expResult: &deploy.Result{PackageID: pkgID, Type: model.DeploymentTypeInitial, TaskID: "t1"},
			expStatus: model.RunStatusDryRun,
		},

		"A DAR file should be imported and the imported package deployed": {
			req: deploy.Request{DarPath: "/tmp/petclinic-2.0.dar", EnvironmentID: envID},
			mockServer: func(m *xldeploymock.MockServer) {
				imported := &model.ConfigurationItem{ID: "Applications/PetClinic/2.0", Type: model.TypeDeploymentPackage}
				d := deploymentFixture(model.DeploymentTypeUpdate)
				m.On("Import", mock.Anything, "/tmp/petclinic-2.0.dar").Once().Return(imported, nil)
				m.On("Read", mock.Anything, "Applications/PetClinic/2.0").Once().Return(imported, nil)
				m.On("IsDeployed", mock.Anything, "Applications/PetClinic", envID).Once().Return(true, nil)
				m.On("PrepareUpdate", mock.Anything, "Applications/PetClinic/2.0", "Environments/Dev/PetClinic").Once().Return(d, nil)
				m.On("Validate", mock.Anything, *d).Once().Return(d, nil)
				m.On("CreateTask", mock.Anything, *d).Once().Return("t1", nil)
			},
			mockExec: func(m *taskmock.MockExecutor) {
				m.On("Execute", mock.Anything, "t1", model.ExecutionMode{}).Once().Return(true, nil)
			},
			expResult: &deploy.Result{PackageID: "Applications/PetClinic/2.0", Type: model.DeploymentTypeUpdate, TaskID: "t1", Executed: true},
			expStatus: model.RunStatusSucceeded,
		},

		"A request without package should fail": {
			req:         deploy.Request{EnvironmentID: envID},
			mockServer:  func(m *xldeploymock.MockServer) {},
			mockExec:    func(m *taskmock.MockExecutor) {},
			expErr:      model.ErrNotValid,
			expNoResult: true,
		},

		"A request without environment should fail": {
			req:         deploy.Request{PackageID: pkgID},
			mockServer:  func(m *xldeploymock.MockServer) {},
			mockExec:    func(m *taskmock.MockExecutor) {},
			expErr:      model.ErrNotValid,
			expNoResult: true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)
			require := require.New(t)

			ms := &xldeploymock.MockServer{}
			test.mockServer(ms)
			me := &taskmock.MockExecutor{}
			test.mockExec(me)
			history, err := memory.NewRepository(memory.RepositoryConfig{})
			require.NoError(err)

			svc, err := deploy.NewService(deploy.ServiceConfig{
				Repository:  ms,
				Deployments: ms,
				Packages:    ms,
				Executor:    me,
				History:     history,
				Logger:      log.Noop,
			})
			require.NoError(err)

			res, err := svc.Run(context.Background(), test.req)
			if test.expErr != nil {
				require.Error(err)
				assert.ErrorIs(err, test.expErr)
				if test.expErrMsg != "" {
					assert.Equal(test.expErrMsg, err.Error())
				}
			} else {
				require.NoError(err)
			}

			if test.expNoResult {
				assert.Nil(res)
			} else {
				require.NotNil(res)
				if test.expResult != nil {
					exp := *test.expResult
					exp.Run = res.Run
					assert.Equal(exp, *res)
				}
				assert.Equal(test.expStatus, res.Run.Status)

				stored, err := history.GetRun(context.Background(), res.Run.ID)
				require.NoError(err)
				assert.Equal(test.expStatus, stored.Status)
				assert.Equal(model.RunKindDeploy, stored.Kind)
				assert.Equal(envID, stored.Environment)
			}

			ms.AssertExpectations(t)
			me.AssertExpectations(t)
		})
	}
}
