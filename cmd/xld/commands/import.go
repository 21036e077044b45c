package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/alecthomas/kingpin/v2"
	"github.com/dustin/go-humanize"

	"github.com/jenkinsci/xldeploy-plugin-sub000/internal/app/importpkg"
)

type ImportCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	darPath string
	format  string
}

// NewImportCommand returns the import command.
func NewImportCommand(rootCmd *RootCommand, app *kingpin.Application) *ImportCommand {
	c := &ImportCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("import", "Import a DAR package in the server repository.")
	c.Cmd.Arg("dar", "DAR file.").Required().ExistingFileVar(&c.darPath)
	formatFlag(c.Cmd, &c.format)

	return c
}

func (c ImportCommand) Name() string { return c.Cmd.FullCommand() }

func (c ImportCommand) Run(ctx context.Context) error {
	logger := c.rootCmd.Logger

	cfg, err := c.rootCmd.Config(ctx)
	if err != nil {
		return err
	}
	server, err := c.rootCmd.NewServer(cfg)
	if err != nil {
		return err
	}

	if info, err := os.Stat(c.darPath); err == nil {
		logger.Infof("Uploading %s (%s)", c.darPath, humanize.Bytes(uint64(info.Size())))
	}

	svc, err := importpkg.NewService(importpkg.ServiceConfig{Packages: server, Logger: logger})
	if err != nil {
		return fmt.Errorf("could not create service: %w", err)
	}

	res, err := svc.Run(ctx, importpkg.Request{DarPath: c.darPath})
	if err != nil {
		return err
	}

	p := c.rootCmd.NewPrinter(c.format)
	if err := p.PrintIDs([]string{res.PackageID}); err != nil {
		return fmt.Errorf("could not print package: %w", err)
	}

	return nil
}
