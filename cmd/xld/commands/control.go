package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"

	"github.com/jenkinsci/xldeploy-plugin-sub000/internal/app/control"
	"github.com/jenkinsci/xldeploy-plugin-sub000/internal/utils/env"
)

type ControlCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	container      string
	taskName       string
	params         []string
	containerTypes []string
	format         string
}

// NewControlCommand returns the control command.
func NewControlCommand(rootCmd *RootCommand, app *kingpin.Application) *ControlCommand {
	c := &ControlCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("control", "Run a control task on a container.")
	c.Cmd.Arg("container", "Container ID (Infrastructure/tomcat-host).").Required().StringVar(&c.container)
	c.Cmd.Arg("task", "Control task name (restart).").Required().StringVar(&c.taskName)
	c.Cmd.Flag("param", "Control task parameter as KEY=VALUE, a bare KEY reads the environment (repeatable).").Short('p').StringsVar(&c.params)
	c.Cmd.Flag("container-type", "Extra CI type accepted as container (repeatable).").StringsVar(&c.containerTypes)
	formatFlag(c.Cmd, &c.format)

	return c
}

func (c ControlCommand) Name() string { return c.Cmd.FullCommand() }

func (c ControlCommand) Run(ctx context.Context) error {
	logger := c.rootCmd.Logger

	params, err := env.ParseSpecs(c.params)
	if err != nil {
		return fmt.Errorf("invalid --param: %w", err)
	}

	cfg, err := c.rootCmd.Config(ctx)
	if err != nil {
		return err
	}
	server, err := c.rootCmd.NewServer(cfg)
	if err != nil {
		return err
	}
	driver, err := c.rootCmd.NewDriver(server)
	if err != nil {
		return err
	}
	history, closeHistory, err := c.rootCmd.NewHistory(ctx)
	if err != nil {
		return err
	}
	defer closeHistory()

	svc, err := control.NewService(control.ServiceConfig{
		Repository:     server,
		Controls:       server,
		Executor:       driver,
		ContainerTypes: c.containerTypes,
		History:        history,
		Logger:         logger,
	})
	if err != nil {
		return fmt.Errorf("could not create service: %w", err)
	}

	res, err := svc.Run(ctx, control.Request{
		ContainerID: c.container,
		TaskName:    c.taskName,
		Parameters:  params,
	})
	if res != nil {
		if perr := c.rootCmd.NewPrinter(c.format).PrintRun(res.Run); perr != nil {
			logger.Warningf("could not print run: %s", perr)
		}
	}
	if err != nil {
		return err
	}

	return nil
}
