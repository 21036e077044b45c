package printer

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/jenkinsci/xldeploy-plugin-sub000/internal/model"
)

// TablePrinter prints command results in a table format.
type TablePrinter struct {
	writer io.Writer
}

// NewTablePrinter creates a new table printer.
func NewTablePrinter(w io.Writer) *TablePrinter {
	return &TablePrinter{writer: w}
}

// PrintRuns prints the run history in a table format.
func (t *TablePrinter) PrintRuns(runs []model.Run) error {
	if len(runs) == 0 {
		return nil
	}

	tw := tabwriter.NewWriter(t.writer, 0, 0, 2, ' ', 0)
	defer tw.Flush()

	fmt.Fprintln(tw, "ID\tKIND\tTARGET\tSTATUS\tTASK\tDURATION\tCREATED")
	for _, r := range runs {
		target := r.Target
		switch {
		case r.Kind == model.RunKindControl:
			target = fmt.Sprintf("%s (%s)", r.Target, r.ControlTask)
		case r.Environment != "" && r.Kind == model.RunKindDeploy:
			target = fmt.Sprintf("%s -> %s", r.Target, r.Environment)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.ID,
			r.Kind,
			target,
			r.Status,
			orDash(r.TaskID),
			RunDuration(r),
			TimeAgo(r.CreatedAt),
		)
	}

	return nil
}

// PrintRun prints the details of a run.
func (t *TablePrinter) PrintRun(run model.Run) error {
	fmt.Fprintf(t.writer, "Run:         %s\n", run.ID)
	fmt.Fprintf(t.writer, "Kind:        %s\n", run.Kind)
	fmt.Fprintf(t.writer, "Target:      %s\n", run.Target)
	if run.Environment != "" {
		fmt.Fprintf(t.writer, "Environment: %s\n", run.Environment)
	}
	if run.ControlTask != "" {
		fmt.Fprintf(t.writer, "Control:     %s\n", run.ControlTask)
	}
	fmt.Fprintf(t.writer, "Task:        %s\n", orDash(run.TaskID))
	fmt.Fprintf(t.writer, "Status:      %s\n", run.Status)
	fmt.Fprintf(t.writer, "Created:     %s\n", FormatTimestamp(run.CreatedAt))
	if run.FinishedAt != nil {
		fmt.Fprintf(t.writer, "Finished:    %s\n", FormatTimestamp(*run.FinishedAt))
		fmt.Fprintf(t.writer, "Duration:    %s\n", RunDuration(run))
	}
	if run.Error != "" {
		fmt.Fprintf(t.writer, "Error:       %s\n", run.Error)
	}

	return nil
}

// PrintIDs prints one repository ID per line.
func (t *TablePrinter) PrintIDs(ids []string) error {
	for _, id := range ids {
		fmt.Fprintln(t.writer, id)
	}
	return nil
}

// PrintServerInfo prints the server information and its plugins.
func (t *TablePrinter) PrintServerInfo(info model.ServerInfo) error {
	fmt.Fprintf(t.writer, "Version:  %s\n", info.Version)
	fmt.Fprintf(t.writer, "Edition:  %s\n", orDash(info.Edition))
	fmt.Fprintf(t.writer, "Plugins:  %d\n", len(info.Plugins))
	if len(info.Plugins) == 0 {
		return nil
	}

	fmt.Fprintln(t.writer)
	tw := tabwriter.NewWriter(t.writer, 0, 0, 2, ' ', 0)
	defer tw.Flush()

	fmt.Fprintln(tw, "PLUGIN\tVERSION")
	for _, p := range info.Plugins {
		fmt.Fprintf(tw, "%s\t%s\n", p.Name, p.Version)
	}

	return nil
}

// PrintMessage prints a simple text message.
func (t *TablePrinter) PrintMessage(msg string) error {
	fmt.Fprintln(t.writer, msg)
	return nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
