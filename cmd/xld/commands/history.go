package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/alecthomas/kingpin/v2"

	"github.com/jenkinsci/xldeploy-plugin-sub000/internal/app/history"
	"github.com/jenkinsci/xldeploy-plugin-sub000/internal/model"
	"github.com/jenkinsci/xldeploy-plugin-sub000/internal/storage/sqlite"
)

type HistoryCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	runID  string
	kind   string
	status string
	limit  int
	format string
}

// NewHistoryCommand returns the history command.
func NewHistoryCommand(rootCmd *RootCommand, app *kingpin.Application) *HistoryCommand {
	c := &HistoryCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("history", "List the recorded runs.")
	c.Cmd.Arg("run", "Run ID, shows only that run.").StringVar(&c.runID)
	c.Cmd.Flag("kind", "Filter by kind (deploy, undeploy, control).").StringVar(&c.kind)
	c.Cmd.Flag("status", "Filter by status (running, succeeded, failed, skipped, dry-run, rolled-back).").StringVar(&c.status)
	c.Cmd.Flag("limit", "Maximum number of runs, 0 lists all of them.").Default("20").IntVar(&c.limit)
	formatFlag(c.Cmd, &c.format)

	return c
}

func (c HistoryCommand) Name() string { return c.Cmd.FullCommand() }

func (c HistoryCommand) Run(ctx context.Context) error {
	logger := c.rootCmd.Logger

	req := history.Request{RunID: c.runID, Limit: c.limit}
	if c.kind != "" {
		kind := model.RunKind(strings.ToLower(c.kind))
		switch kind {
		case model.RunKindDeploy, model.RunKindUndeploy, model.RunKindControl:
			req.Kind = &kind
		default:
			return fmt.Errorf("invalid kind filter: %s (must be: deploy, undeploy, control)", c.kind)
		}
	}
	if c.status != "" {
		status := model.RunStatus(strings.ToLower(c.status))
		switch status {
		case model.RunStatusRunning, model.RunStatusSucceeded, model.RunStatusFailed,
			model.RunStatusSkipped, model.RunStatusDryRun, model.RunStatusRolledBack:
			req.Status = &status
		default:
			return fmt.Errorf("invalid status filter: %s", c.status)
		}
	}

	repo, err := sqlite.NewRepository(ctx, sqlite.RepositoryConfig{
		DBPath: c.rootCmd.DBPath,
		Logger: logger,
	})
	if err != nil {
		return fmt.Errorf("could not create repository: %w", err)
	}
	defer repo.Close()

	svc, err := history.NewService(history.ServiceConfig{
		Repository: repo,
		Logger:     logger,
	})
	if err != nil {
		return fmt.Errorf("could not create service: %w", err)
	}

	runs, err := svc.Run(ctx, req)
	if err != nil {
		return fmt.Errorf("could not list runs: %w", err)
	}

	p := c.rootCmd.NewPrinter(c.format)
	if c.runID != "" && len(runs) == 1 {
		return p.PrintRun(runs[0])
	}
	if err := p.PrintRuns(runs); err != nil {
		return fmt.Errorf("could not print runs: %w", err)
	}

	return nil
}
