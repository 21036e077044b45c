package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"

	"github.com/jenkinsci/xldeploy-plugin-sub000/internal/app/undeploy"
	"github.com/jenkinsci/xldeploy-plugin-sub000/internal/model"
)

type UndeployCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	deployedApplication string
	application         string
	environment         string
	format              string
}

// NewUndeployCommand returns the undeploy command.
func NewUndeployCommand(rootCmd *RootCommand, app *kingpin.Application) *UndeployCommand {
	c := &UndeployCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("undeploy", "Undeploy a deployed application.")
	c.Cmd.Arg("deployed-application", "Deployed application ID (Environments/Dev/PetClinic).").StringVar(&c.deployedApplication)
	c.Cmd.Flag("application", "Application name or ID, used with --environment.").StringVar(&c.application)
	c.Cmd.Flag("environment", "Environment ID, used with --application.").StringVar(&c.environment)
	formatFlag(c.Cmd, &c.format)

	return c
}

func (c UndeployCommand) Name() string { return c.Cmd.FullCommand() }

func (c UndeployCommand) Run(ctx context.Context) error {
	logger := c.rootCmd.Logger

	deployedAppID := c.deployedApplication
	switch {
	case deployedAppID != "" && (c.application != "" || c.environment != ""):
		return fmt.Errorf("the deployed application and --application/--environment are exclusive")
	case deployedAppID == "" && (c.application == "" || c.environment == ""):
		return fmt.Errorf("the deployed application or --application and --environment are required")
	case deployedAppID == "":
		deployedAppID = c.environment + "/" + model.NameFromID(c.application)
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

	svc, err := undeploy.NewService(undeploy.ServiceConfig{
		Repository:  server,
		Deployments: server,
		Executor:    driver,
		History:     history,
		Logger:      logger,
	})
	if err != nil {
		return fmt.Errorf("could not create service: %w", err)
	}

	res, err := svc.Run(ctx, undeploy.Request{DeployedApplicationID: deployedAppID})
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
