package model

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"
)

// PluginTag prefixes every error surfaced to the CI job.
const PluginTag = "XL Deploy"

var (
	// ErrNotFound is returned when a resource is not found.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned when a resource already exists.
	ErrAlreadyExists = errors.New("already exists")
	// ErrNotValid is returned when a resource is not valid.
	ErrNotValid = errors.New("not valid")
	// ErrEmptyPlan is returned by plan validation when the server has no steps to execute
	// for the prepared deployment. Callers treat it as a successful no-op.
	ErrEmptyPlan = errors.New("the task did not deliver any steps")
)

// PluginError is an error reported to the CI job. Its message is prefixed with the plugin tag.
type PluginError struct {
	Msg string
	Err error
}

// NewPluginError returns a PluginError wrapping err (can be nil).
func NewPluginError(err error, format string, args ...any) *PluginError {
	return &PluginError{Msg: fmt.Sprintf(format, args...), Err: err}
}

func (e *PluginError) Error() string { return PluginTag + ": " + e.Msg }

func (e *PluginError) Unwrap() error { return e.Err }

// ValidationMessage is a non-fatal message the server attached to a configuration item of a plan.
type ValidationMessage struct {
	CIID     string
	Property string
	Level    string
	Message  string
}

// ValidationError aggregates the validation messages found on the deployeds of a prepared plan.
type ValidationError struct {
	Count  int
	errors *multierror.Error
}

// Add records a validation message found on a configuration item.
func (v *ValidationError) Add(ci ConfigurationItem, msg ValidationMessage) {
	v.Count++
	v.errors = multierror.Append(v.errors, fmt.Errorf("validation error found on item '%s' of type '%s' on field '%s': %s",
		ci.ID, ci.Type, msg.Property, msg.Message))
}

// ErrorOrNil returns nil when no messages were recorded.
func (v *ValidationError) ErrorOrNil() error {
	if v == nil || v.Count == 0 {
		return nil
	}
	return v
}

// Messages returns one line per recorded validation message.
func (v *ValidationError) Messages() []string {
	if v == nil || v.errors == nil {
		return nil
	}
	msgs := make([]string, 0, len(v.errors.Errors))
	for _, err := range v.errors.Errors {
		msgs = append(msgs, err.Error())
	}
	return msgs
}

func (v *ValidationError) Error() string {
	return fmt.Sprintf("validation errors (%d) have been found: %s", v.Count, strings.Join(v.Messages(), "; "))
}

func (v *ValidationError) Unwrap() error { return ErrNotValid }
