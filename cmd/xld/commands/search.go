package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"

	"github.com/jenkinsci/xldeploy-plugin-sub000/internal/app/search"
)

type SearchCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	ciType      string
	namePattern string
	format      string
}

// NewSearchCommand returns the search command.
func NewSearchCommand(rootCmd *RootCommand, app *kingpin.Application) *SearchCommand {
	c := &SearchCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("search", "Search configuration items of the server repository.")
	c.Cmd.Arg("type", "CI type (udm.Environment).").Required().StringVar(&c.ciType)
	c.Cmd.Flag("name", "Name pattern, % matches any sequence.").StringVar(&c.namePattern)
	formatFlag(c.Cmd, &c.format)

	return c
}

func (c SearchCommand) Name() string { return c.Cmd.FullCommand() }

func (c SearchCommand) Run(ctx context.Context) error {
	cfg, err := c.rootCmd.Config(ctx)
	if err != nil {
		return err
	}
	server, err := c.rootCmd.NewServer(cfg)
	if err != nil {
		return err
	}

	svc, err := search.NewService(search.ServiceConfig{Repository: server, Logger: c.rootCmd.Logger})
	if err != nil {
		return fmt.Errorf("could not create service: %w", err)
	}

	ids, err := svc.Run(ctx, search.Request{Type: c.ciType, NamePattern: c.namePattern})
	if err != nil {
		return err
	}

	if err := c.rootCmd.NewPrinter(c.format).PrintIDs(ids); err != nil {
		return fmt.Errorf("could not print results: %w", err)
	}

	return nil
}
