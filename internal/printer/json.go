package printer

import (
	"encoding/json"
	"io"
	"time"

	"github.com/jenkinsci/xldeploy-plugin-sub000/internal/model"
)

// JSONPrinter prints command results in JSON format.
type JSONPrinter struct {
	writer io.Writer
}

// NewJSONPrinter creates a new JSON printer.
func NewJSONPrinter(w io.Writer) *JSONPrinter {
	return &JSONPrinter{writer: w}
}

type runOutput struct {
	ID          string     `json:"id"`
	Kind        string     `json:"kind"`
	Target      string     `json:"target"`
	Environment string     `json:"environment,omitempty"`
	ControlTask string     `json:"control_task,omitempty"`
	TaskID      string     `json:"task_id,omitempty"`
	Status      string     `json:"status"`
	Error       string     `json:"error,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	FinishedAt  *time.Time `json:"finished_at"`
}

type serverInfoOutput struct {
	Version string         `json:"version"`
	Edition string         `json:"edition,omitempty"`
	Plugins []pluginOutput `json:"plugins"`
}

type pluginOutput struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

type messageOutput struct {
	Message string `json:"message"`
}

func newRunOutput(r model.Run) runOutput {
	out := runOutput{
		ID:          r.ID,
		Kind:        string(r.Kind),
		Target:      r.Target,
		Environment: r.Environment,
		ControlTask: r.ControlTask,
		TaskID:      r.TaskID,
		Status:      string(r.Status),
		Error:       r.Error,
		CreatedAt:   r.CreatedAt.UTC(),
	}
	if r.FinishedAt != nil {
		utcTime := r.FinishedAt.UTC()
		out.FinishedAt = &utcTime
	}
	return out
}

// PrintRuns prints the run history in JSON format.
func (j *JSONPrinter) PrintRuns(runs []model.Run) error {
	items := make([]runOutput, len(runs))
	for i, r := range runs {
		items[i] = newRunOutput(r)
	}
	return j.encode(items)
}

// PrintRun prints a run in JSON format.
func (j *JSONPrinter) PrintRun(run model.Run) error {
	return j.encode(newRunOutput(run))
}

// PrintIDs prints repository IDs as a JSON list.
func (j *JSONPrinter) PrintIDs(ids []string) error {
	if ids == nil {
		ids = []string{}
	}
	return j.encode(ids)
}

// PrintServerInfo prints the server information in JSON format.
func (j *JSONPrinter) PrintServerInfo(info model.ServerInfo) error {
	out := serverInfoOutput{
		Version: info.Version,
		Edition: info.Edition,
		Plugins: make([]pluginOutput, len(info.Plugins)),
	}
	for i, p := range info.Plugins {
		out.Plugins[i] = pluginOutput{Name: p.Name, Version: p.Version}
	}
	return j.encode(out)
}

// PrintMessage prints a simple message in JSON format.
func (j *JSONPrinter) PrintMessage(msg string) error {
	return j.encode(messageOutput{Message: msg})
}

func (j *JSONPrinter) encode(v any) error {
	enc := json.NewEncoder(j.writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
