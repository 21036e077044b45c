package printer

import "github.com/jenkinsci/xldeploy-plugin-sub000/internal/model"

// Printer knows how to print the command results in different formats.
type Printer interface {
	PrintRuns(runs []model.Run) error
	PrintRun(run model.Run) error
	PrintIDs(ids []string) error
	PrintServerInfo(info model.ServerInfo) error
	PrintMessage(msg string) error
}
