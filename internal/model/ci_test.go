package model_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jenkinsci/xldeploy-plugin-sub000/internal/model"
)

func TestIDHelpers(t *testing.T) {
	tests := map[string]struct {
		id        string
		expName   string
		expParent string
	}{
		"A version ID should return the version as name and the application as parent": {
			id:        "Applications/Finance/PetClinic/1.0",
			expName:   "1.0",
			expParent: "Applications/Finance/PetClinic",
		},
		"A root ID should be its own name and parent": {
			id:        "Applications",
			expName:   "Applications",
			expParent: "Applications",
		},
		"A two segment ID should drop the last segment": {
			id:        "Environments/Dev",
			expName:   "Dev",
			expParent: "Environments",
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)

			assert.Equal(test.expName, model.NameFromID(test.id))
			assert.Equal(test.expParent, model.ParentID(test.id))
		})
	}
}

func TestDeployedApplicationID(t *testing.T) {
	assert.Equal(t, "Environments/Dev/PetClinic", model.DeployedApplicationID("Environments/Dev", "Applications/Finance/PetClinic/1.0"))
}

func TestConfigurationItemInstanceOf(t *testing.T) {
	ci := model.ConfigurationItem{ID: "Infrastructure/host", Type: "overthere.SshHost", SuperTypes: []string{"udm.BaseContainer", model.TypeContainer}}

	assert.True(t, ci.InstanceOf("overthere.SshHost"))
	assert.True(t, ci.InstanceOf(model.TypeContainer))
	assert.False(t, ci.InstanceOf(model.TypeDeployedApplication))
}

func TestDeploymentValidationErrors(t *testing.T) {
	tests := map[string]struct {
		deployment model.Deployment
		expErr     bool
		expCount   int
		expMsgs    []string
	}{
		"A plan without validation messages should not fail": {
			deployment: model.Deployment{Deployeds: []model.ConfigurationItem{{ID: "Infrastructure/host/war", Type: "jee.War"}}},
		},
		"A plan with validation messages should aggregate all of them": {
			deployment: model.Deployment{Deployeds: []model.ConfigurationItem{
				{ID: "Infrastructure/host/war", Type: "jee.War", Validations: []model.ValidationMessage{
					{Property: "contextRoot", Message: "is required"},
				}},
				{ID: "Infrastructure/host/ds", Type: "jee.DataSource", Validations: []model.ValidationMessage{
					{Property: "url", Message: "is required"},
					{Property: "user", Message: "is required"},
				}},
			}},
			expErr:   true,
			expCount: 3,
			expMsgs: []string{
				"validation error found on item 'Infrastructure/host/war' of type 'jee.War' on field 'contextRoot': is required",
				"validation error found on item 'Infrastructure/host/ds' of type 'jee.DataSource' on field 'url': is required",
				"validation error found on item 'Infrastructure/host/ds' of type 'jee.DataSource' on field 'user': is required",
			},
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)

			err := test.deployment.ValidationErrors()
			if !test.expErr {
				assert.NoError(err)
				return
			}

			assert.True(errors.Is(err, model.ErrNotValid))
			var verr *model.ValidationError
			if assert.True(errors.As(err, &verr)) {
				assert.Equal(test.expCount, verr.Count)
				assert.Equal(test.expMsgs, verr.Messages())
			}
		})
	}
}

func TestPluginError(t *testing.T) {
	assert := assert.New(t)

	cause := errors.New("connection refused")
	err := model.NewPluginError(cause, "Error when executing task %s: %s", "t1", cause)

	assert.Equal("XL Deploy: Error when executing task t1: connection refused", err.Error())
	assert.True(errors.Is(err, cause))
}

func TestRunValidate(t *testing.T) {
	tests := map[string]struct {
		run    model.Run
		expErr bool
	}{
		"A complete run should be valid": {
			run: model.Run{ID: "r1", Kind: model.RunKindDeploy, Target: "Applications/app/1.0"},
		},
		"A run without ID should fail": {
			run:    model.Run{Kind: model.RunKindDeploy, Target: "Applications/app/1.0"},
			expErr: true,
		},
		"A run with unknown kind should fail": {
			run:    model.Run{ID: "r1", Kind: "migrate", Target: "Applications/app/1.0"},
			expErr: true,
		},
		"A run without target should fail": {
			run:    model.Run{ID: "r1", Kind: model.RunKindControl},
			expErr: true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			err := test.run.Validate()
			if test.expErr {
				assert.ErrorIs(t, err, model.ErrNotValid)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
