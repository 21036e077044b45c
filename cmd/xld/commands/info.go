package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"
)

type InfoCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	format string
}

// NewInfoCommand returns the info command.
func NewInfoCommand(rootCmd *RootCommand, app *kingpin.Application) *InfoCommand {
	c := &InfoCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("info", "Show the server version and plugins.")
	formatFlag(c.Cmd, &c.format)

	return c
}

func (c InfoCommand) Name() string { return c.Cmd.FullCommand() }

func (c InfoCommand) Run(ctx context.Context) error {
	cfg, err := c.rootCmd.Config(ctx)
	if err != nil {
		return err
	}
	server, err := c.rootCmd.NewServer(cfg)
	if err != nil {
		return err
	}

	info, err := server.Info(ctx)
	if err != nil {
		return fmt.Errorf("could not get server info: %w", err)
	}

	if err := c.rootCmd.NewPrinter(c.format).PrintServerInfo(*info); err != nil {
		return fmt.Errorf("could not print server info: %w", err)
	}

	return nil
}
