package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"

	"github.com/jenkinsci/xldeploy-plugin-sub000/internal/app/deploy"
	"github.com/jenkinsci/xldeploy-plugin-sub000/internal/app/search"
	"github.com/jenkinsci/xldeploy-plugin-sub000/internal/model"
)

type DeployCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	packageID   string
	application string
	version     string
	darPath     string
	environment string
	format      string

	skip, test, rollback, generateDeployeds             bool
	skipSet, testSet, rollbackSet, generateDeployedsSet bool
}

// NewDeployCommand returns the deploy command.
func NewDeployCommand(rootCmd *RootCommand, app *kingpin.Application) *DeployCommand {
	c := &DeployCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("deploy", "Deploy a package on an environment.")
	c.Cmd.Flag("package", "Deployment package ID (Applications/PetClinic/1.0).").StringVar(&c.packageID)
	c.Cmd.Flag("application", "Application name or ID, used with --version.").StringVar(&c.application)
	c.Cmd.Flag("version", "Application version, used with --application.").StringVar(&c.version)
	c.Cmd.Flag("dar", "DAR file to import and deploy.").ExistingFileVar(&c.darPath)
	c.Cmd.Flag("environment", "Target environment ID (Environments/Dev).").Required().StringVar(&c.environment)
	c.Cmd.Flag("skip", "Skip every step of the task.").IsSetByUser(&c.skipSet).BoolVar(&c.skip)
	c.Cmd.Flag("test", "Test mode, prepare the task and cancel it without running.").IsSetByUser(&c.testSet).BoolVar(&c.test)
	c.Cmd.Flag("rollback-on-error", "Roll back the deployment when its task fails.").IsSetByUser(&c.rollbackSet).BoolVar(&c.rollback)
	c.Cmd.Flag("generate-deployed-on-upgrade", "Map the new deployables on upgrades.").IsSetByUser(&c.generateDeployedsSet).BoolVar(&c.generateDeployeds)
	formatFlag(c.Cmd, &c.format)

	return c
}

func (c DeployCommand) Name() string { return c.Cmd.FullCommand() }

func (c DeployCommand) Run(ctx context.Context) error {
	logger := c.rootCmd.Logger

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

	packageID := c.packageID
	if c.application != "" || c.version != "" {
		if packageID != "" {
			return fmt.Errorf("--package and --application/--version are exclusive")
		}
		searchSvc, err := search.NewService(search.ServiceConfig{Repository: server, Logger: logger})
		if err != nil {
			return fmt.Errorf("could not create service: %w", err)
		}
		packageID, err = searchSvc.ResolveVersion(ctx, c.application, c.version)
		if err != nil {
			return fmt.Errorf("could not resolve the application version: %w", err)
		}
	}

	svc, err := deploy.NewService(deploy.ServiceConfig{
		Repository:  server,
		Deployments: server,
		Packages:    server,
		Executor:    driver,
		History:     history,
		Logger:      logger,
	})
	if err != nil {
		return fmt.Errorf("could not create service: %w", err)
	}

	res, err := svc.Run(ctx, deploy.Request{
		PackageID:     packageID,
		DarPath:       c.darPath,
		EnvironmentID: c.environment,
		Options:       c.options(cfg.Deployment),
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

// options returns the configured deployment options with the flags set by the user applied.
func (c DeployCommand) options(defaults model.DeploymentOptions) model.DeploymentOptions {
	opts := defaults
	if c.skipSet {
		opts.Skip = c.skip
	}
	if c.testSet {
		opts.Test = c.test
	}
	if c.rollbackSet {
		opts.RollbackOnError = c.rollback
	}
	if c.generateDeployedsSet {
		opts.GenerateDeployedOnUpgrade = c.generateDeployeds
	}
	return opts
}
