package task_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jenkinsci/xldeploy-plugin-sub000/internal/log"
	"github.com/jenkinsci/xldeploy-plugin-sub000/internal/model"
	"github.com/jenkinsci/xldeploy-plugin-sub000/internal/task"
	"github.com/jenkinsci/xldeploy-plugin-sub000/internal/xldeploy/xldeploymock"
)

type recordLogger struct {
	log.Logger
	lines *[]string
}

func newRecordLogger() *recordLogger {
	return &recordLogger{Logger: log.Noop, lines: &[]string{}}
}

func (r *recordLogger) Infof(format string, args ...any) {
	*r.lines = append(*r.lines, fmt.Sprintf(format, args...))
}

func (r *recordLogger) WithValues(_ log.Kv) log.Logger { return r }

func (r *recordLogger) Lines() []string { return *r.lines }

func taskFixture(state model.TaskState, nrSteps int) *model.Task {
	return &model.Task{ID: "t1", Description: "Deploy PetClinic 1.0 on Dev", State: state, NrSteps: nrSteps}
}

func stepFixture(state model.StepState, desc string) *model.Step {
	return &model.Step{Description: desc, State: state, Log: desc}
}

func TestNewDriver(t *testing.T) {
	tests := map[string]struct {
		config task.DriverConfig
		expErr bool
	}{
		"A valid config should create the driver": {
			config: task.DriverConfig{TaskService: &xldeploymock.MockServer{}},
		},
		"A missing task service should fail": {
			config: task.DriverConfig{},
			expErr: true,
		},
		"A negative retry count should fail": {
			config: task.DriverConfig{TaskService: &xldeploymock.MockServer{}, MaxRetries: -1},
			expErr: true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			require := require.New(t)

			d, err := task.NewDriver(test.config)
			if test.expErr {
				require.Error(err)
				require.Nil(d)
			} else {
				require.NoError(err)
				require.NotNil(d)
			}
		})
	}
}

func TestDriverExecute(t *testing.T) {
	errTest := errors.New("whatever")

	tests := map[string]struct {
		mode        model.ExecutionMode
		mock        func(m *xldeploymock.MockServer)
		expExecuted bool
		expErr      bool
		expErrMsg   string
	}{
		"A pending task should be started, waited and archived": {
			mock: func(m *xldeploymock.MockServer) {
				m.On("GetTask", mock.Anything, "t1").Once().Return(taskFixture(model.TaskStatePending, 2), nil)
				m.On("GetStep", mock.Anything, "t1", 1).Once().Return(stepFixture(model.StepStatePending, "Copy war"), nil)
				m.On("GetStep", mock.Anything, "t1", 2).Once().Return(stepFixture(model.StepStatePending, "Start server"), nil)
				m.On("Start", mock.Anything, "t1").Once().Return(nil)
				m.On("GetTask", mock.Anything, "t1").Once().Return(taskFixture(model.TaskStateExecuting, 2), nil)
				m.On("GetTask", mock.Anything, "t1").Once().Return(taskFixture(model.TaskStateExecuted, 2), nil)
				m.On("GetTask", mock.Anything, "t1").Once().Return(taskFixture(model.TaskStateExecuted, 2), nil)
				m.On("GetStep", mock.Anything, "t1", 1).Once().Return(stepFixture(model.StepStateExecuted, "Copy war"), nil)
				m.On("GetStep", mock.Anything, "t1", 2).Once().Return(stepFixture(model.StepStateExecuted, "Start server"), nil)
				m.On("Archive", mock.Anything, "t1").Once().Return(nil)
			},
			expExecuted: true,
		},

		"Skip mode should skip every step before starting": {
			mode: model.ExecutionMode{Skip: true},
			mock: func(m *xldeploymock.MockServer) {
				m.On("GetTask", mock.Anything, "t1").Once().Return(taskFixture(model.TaskStatePending, 3), nil)
				m.On("Skip", mock.Anything, "t1", []int{1, 2, 3}).Once().Return(nil)
				m.On("GetTask", mock.Anything, "t1").Once().Return(taskFixture(model.TaskStatePending, 0), nil)
				m.On("Start", mock.Anything, "t1").Once().Return(nil)
				m.On("GetTask", mock.Anything, "t1").Return(taskFixture(model.TaskStateExecuted, 0), nil)
				m.On("Archive", mock.Anything, "t1").Once().Return(nil)
			},
			expExecuted: true,
		},

		"Test mode should cancel the task without starting it": {
			mode: model.ExecutionMode{Test: true},
			mock: func(m *xldeploymock.MockServer) {
				m.On("GetTask", mock.Anything, "t1").Once().Return(taskFixture(model.TaskStatePending, 1), nil)
				m.On("GetStep", mock.Anything, "t1", 1).Once().Return(stepFixture(model.StepStatePending, "Copy war"), nil)
				m.On("Cancel", mock.Anything, "t1").Once().Return(nil)
			},
			expExecuted: false,
		},

		"A halted task should fail before starting with the failed steps": {
			mock: func(m *xldeploymock.MockServer) {
				m.On("GetTask", mock.Anything, "t1").Once().Return(taskFixture(model.TaskStateStopped, 2), nil)
				m.On("GetStep", mock.Anything, "t1", 1).Once().Return(stepFixture(model.StepStateExecuted, "Copy war"), nil)
				m.On("GetStep", mock.Anything, "t1", 2).Once().Return(&model.Step{Description: "Start server", State: model.StepStateFailed, Log: "port in use"}, nil)
			},
			expErr:    true,
			expErrMsg: "XL Deploy: Errors when executing task t1: t1 step #2 FAILED\tStart server\nport in use",
		},

		"A task failing while executing should fail after the run": {
			mock: func(m *xldeploymock.MockServer) {
				m.On("GetTask", mock.Anything, "t1").Once().Return(taskFixture(model.TaskStatePending, 1), nil)
				m.On("GetStep", mock.Anything, "t1", 1).Once().Return(stepFixture(model.StepStatePending, "Copy war"), nil)
				m.On("Start", mock.Anything, "t1").Once().Return(nil)
				m.On("GetTask", mock.Anything, "t1").Return(taskFixture(model.TaskStateFailed, 1), nil)
				m.On("GetStep", mock.Anything, "t1", 1).Once().Return(stepFixture(model.StepStateFailed, "Copy war"), nil)
			},
			expErr:    true,
			expErrMsg: "XL Deploy: Errors when executing task t1: t1 step #1 FAILED\tCopy war",
		},

		"A start error should be wrapped with the task": {
			mock: func(m *xldeploymock.MockServer) {
				m.On("GetTask", mock.Anything, "t1").Once().Return(taskFixture(model.TaskStatePending, 0), nil)
				m.On("Start", mock.Anything, "t1").Once().Return(errTest)
			},
			expErr:    true,
			expErrMsg: "XL Deploy: Error when executing task t1: could not start task: whatever",
		},

		"An archive error should be wrapped with the task": {
			mock: func(m *xldeploymock.MockServer) {
				m.On("GetTask", mock.Anything, "t1").Once().Return(taskFixture(model.TaskStatePending, 0), nil)
				m.On("Start", mock.Anything, "t1").Once().Return(nil)
				m.On("GetTask", mock.Anything, "t1").Return(taskFixture(model.TaskStateDone, 0), nil)
				m.On("Archive", mock.Anything, "t1").Once().Return(errTest)
			},
			expErr:    true,
			expErrMsg: "XL Deploy: Error when executing task t1: could not archive task: whatever",
		},

		"A cancel error in test mode should fail": {
			mode: model.ExecutionMode{Test: true},
			mock: func(m *xldeploymock.MockServer) {
				m.On("GetTask", mock.Anything, "t1").Once().Return(taskFixture(model.TaskStatePending, 0), nil)
				m.On("Cancel", mock.Anything, "t1").Once().Return(errTest)
			},
			expErr: true,
		},

		"A skip error should fail without starting": {
			mode: model.ExecutionMode{Skip: true},
			mock: func(m *xldeploymock.MockServer) {
				m.On("GetTask", mock.Anything, "t1").Once().Return(taskFixture(model.TaskStatePending, 1), nil)
				m.On("Skip", mock.Anything, "t1", []int{1}).Once().Return(errTest)
			},
			expErr: true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)
			require := require.New(t)

			m := &xldeploymock.MockServer{}
			test.mock(m)

			d, err := task.NewDriver(task.DriverConfig{TaskService: m, PollInterval: time.Millisecond})
			require.NoError(err)

			executed, err := d.Execute(context.Background(), "t1", test.mode)
			if test.expErr {
				require.Error(err)
				var perr *model.PluginError
				assert.True(errors.As(err, &perr))
				if test.expErrMsg != "" {
					assert.Equal(test.expErrMsg, err.Error())
				}
			} else {
				require.NoError(err)
			}
			assert.Equal(test.expExecuted, executed)
			m.AssertExpectations(t)
		})
	}
}

func TestDriverPollingRetries(t *testing.T) {
	errPoll := errors.New("connection reset by peer")

	tests := map[string]struct {
		failures int
		expErr   bool
	}{
		"No failures should execute the task": {
			failures: 0,
		},
		"Five consecutive failures should be tolerated": {
			failures: 5,
		},
		"Six consecutive failures should propagate the last error": {
			failures: 6,
			expErr:   true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)
			require := require.New(t)

			m := &xldeploymock.MockServer{}
			m.On("GetTask", mock.Anything, "t1").Once().Return(taskFixture(model.TaskStatePending, 0), nil)
			m.On("Start", mock.Anything, "t1").Once().Return(nil)
			if test.failures > 0 {
				m.On("GetTask", mock.Anything, "t1").Times(test.failures).Return(nil, errPoll)
			}
			if !test.expErr {
				m.On("GetTask", mock.Anything, "t1").Return(taskFixture(model.TaskStateDone, 0), nil)
				m.On("Archive", mock.Anything, "t1").Once().Return(nil)
			}

			logger := newRecordLogger()
			d, err := task.NewDriver(task.DriverConfig{TaskService: m, PollInterval: time.Millisecond, Logger: logger})
			require.NoError(err)

			executed, err := d.Execute(context.Background(), "t1", model.ExecutionMode{})
			if test.expErr {
				require.Error(err)
				assert.ErrorIs(err, errPoll)
				assert.False(executed)
			} else {
				require.NoError(err)
				assert.True(executed)
			}

			retries := 0
			for _, l := range logger.Lines() {
				if strings.HasPrefix(l, "Will attempt retry") {
					retries++
				}
			}
			assert.Equal(min(test.failures, 5), retries)
			m.AssertExpectations(t)
		})
	}
}

func TestDriverPollingRetryCounterResets(t *testing.T) {
	require := require.New(t)
	errPoll := errors.New("timeout")

	m := &xldeploymock.MockServer{}
	m.On("GetTask", mock.Anything, "t1").Once().Return(taskFixture(model.TaskStatePending, 0), nil)
	m.On("Start", mock.Anything, "t1").Once().Return(nil)
	m.On("GetTask", mock.Anything, "t1").Times(5).Return(nil, errPoll)
	m.On("GetTask", mock.Anything, "t1").Once().Return(taskFixture(model.TaskStateExecuting, 0), nil)
	m.On("GetTask", mock.Anything, "t1").Times(5).Return(nil, errPoll)
	m.On("GetTask", mock.Anything, "t1").Return(taskFixture(model.TaskStateExecuted, 0), nil)
	m.On("Archive", mock.Anything, "t1").Once().Return(nil)

	d, err := task.NewDriver(task.DriverConfig{TaskService: m, PollInterval: time.Millisecond})
	require.NoError(err)

	executed, err := d.Execute(context.Background(), "t1", model.ExecutionMode{})
	require.NoError(err)
	require.True(executed)
	m.AssertExpectations(t)
}

func TestDriverPollingStopsOnContextCancel(t *testing.T) {
	require := require.New(t)

	m := &xldeploymock.MockServer{}
	m.On("GetTask", mock.Anything, "t1").Once().Return(taskFixture(model.TaskStatePending, 0), nil)
	m.On("Start", mock.Anything, "t1").Once().Return(nil)
	m.On("GetTask", mock.Anything, "t1").Return(taskFixture(model.TaskStateExecuting, 0), nil)

	d, err := task.NewDriver(task.DriverConfig{TaskService: m, PollInterval: time.Millisecond})
	require.NoError(err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = d.Execute(ctx, "t1", model.ExecutionMode{})
	require.Error(err)
	require.ErrorIs(err, context.DeadlineExceeded)
}

func TestDriverLogsTaskState(t *testing.T) {
	start := time.Date(2026, 3, 4, 15, 4, 5, 0, time.UTC)

	m := &xldeploymock.MockServer{}
	tsk := taskFixture(model.TaskStatePending, 2)
	tsk.StartDate = &start
	m.On("GetTask", mock.Anything, "t1").Once().Return(tsk, nil)
	m.On("GetStep", mock.Anything, "t1", 1).Once().Return(stepFixture(model.StepStatePending, "Copy war"), nil)
	m.On("GetStep", mock.Anything, "t1", 2).Once().Return(&model.Step{Description: "Start server", State: model.StepStatePending, Log: "waiting for port"}, nil)
	m.On("Cancel", mock.Anything, "t1").Once().Return(nil)

	logger := newRecordLogger()
	d, err := task.NewDriver(task.DriverConfig{TaskService: m, Logger: logger})
	require.NoError(t, err)

	_, err = d.Execute(context.Background(), "t1", model.ExecutionMode{Test: true})
	require.NoError(t, err)

	exp := []string{
		"t1 Description\tDeploy PetClinic 1.0 on Dev",
		"t1 State      \tPENDING 0/2",
		"t1 Start      2026/03/04 15:04:05",
		"t1 step #1 PENDING\tCopy war",
		"t1 step #2 PENDING\tStart server\nwaiting for port",
		"test mode, cancel task t1",
	}
	assert.Equal(t, exp, logger.Lines())
}

func TestStepLine(t *testing.T) {
	tests := map[string]struct {
		step    model.Step
		expLine string
	}{
		"A log equal to the description should not be duplicated": {
			step:    model.Step{Description: "Copy war", State: model.StepStateExecuted, Log: "Copy war"},
			expLine: "t1 step #3 EXECUTED\tCopy war",
		},
		"An empty log should not be appended": {
			step:    model.Step{Description: "Copy war", State: model.StepStateSkipped},
			expLine: "t1 step #3 SKIPPED\tCopy war",
		},
		"A different log should be appended on a new line": {
			step:    model.Step{Description: "Copy war", State: model.StepStateFailed, Log: "disk full"},
			expLine: "t1 step #3 FAILED\tCopy war\ndisk full",
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, test.expLine, task.StepLine("t1", 3, test.step))
		})
	}
}

func TestStepRange(t *testing.T) {
	assert.Equal(t, []int{}, task.StepRange(0))
	assert.Equal(t, []int{1}, task.StepRange(1))
	assert.Equal(t, []int{1, 2, 3, 4}, task.StepRange(4))
}
