package lib

import (
	"context"
	"fmt"

	"github.com/jenkinsci/xldeploy-plugin-sub000/internal/app/control"
	"github.com/jenkinsci/xldeploy-plugin-sub000/internal/app/deploy"
	"github.com/jenkinsci/xldeploy-plugin-sub000/internal/app/importpkg"
	"github.com/jenkinsci/xldeploy-plugin-sub000/internal/app/undeploy"
)

// Deploy deploys a package on an environment.
//
// The application is upgraded when already deployed on the environment. The
// returned [RunResult] is set even when the deployment fails, its run has the
// failure status.
func (c *Client) Deploy(ctx context.Context, opts DeployOpts) (*RunResult, error) {
	svc, err := deploy.NewService(deploy.ServiceConfig{
		Repository:  c.server,
		Deployments: c.server,
		Packages:    c.server,
		Executor:    c.driver,
		History:     c.history,
		Logger:      c.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create service: %w", err)
	}

	res, err := svc.Run(ctx, deploy.Request{
		PackageID:     opts.PackageID,
		DarPath:       opts.DarPath,
		EnvironmentID: opts.EnvironmentID,
		Options:       toInternalDeploymentOptions(opts),
	})
	if res == nil {
		return nil, mapError(err)
	}

	return &RunResult{
		Run:       fromInternalRun(res.Run),
		PackageID: res.PackageID,
		Executed:  res.Executed,
	}, mapError(err)
}

// Undeploy removes a deployed application (`Environments/Dev/PetClinic`) from its environment.
func (c *Client) Undeploy(ctx context.Context, deployedApplicationID string) (*RunResult, error) {
	svc, err := undeploy.NewService(undeploy.ServiceConfig{
		Repository:  c.server,
		Deployments: c.server,
		Executor:    c.driver,
		History:     c.history,
		Logger:      c.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create service: %w", err)
	}

	res, err := svc.Run(ctx, undeploy.Request{DeployedApplicationID: deployedApplicationID})
	if res == nil {
		return nil, mapError(err)
	}

	return &RunResult{Run: fromInternalRun(res.Run), Executed: res.Executed}, mapError(err)
}

// Control executes a control task on a container.
func (c *Client) Control(ctx context.Context, opts ControlOpts) (*RunResult, error) {
	svc, err := control.NewService(control.ServiceConfig{
		Repository: c.server,
		Controls:   c.server,
		Executor:   c.driver,
		History:    c.history,
		Logger:     c.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create service: %w", err)
	}

	res, err := svc.Run(ctx, control.Request{
		ContainerID: opts.ContainerID,
		TaskName:    opts.TaskName,
		Parameters:  opts.Parameters,
	})
	if res == nil {
		return nil, mapError(err)
	}

	return &RunResult{Run: fromInternalRun(res.Run), Executed: res.Executed}, mapError(err)
}

// ImportPackage uploads a DAR file to the server repository.
func (c *Client) ImportPackage(ctx context.Context, darPath string) (*ImportResult, error) {
	svc, err := importpkg.NewService(importpkg.ServiceConfig{
		Packages: c.server,
		Logger:   c.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create service: %w", err)
	}

	res, err := svc.Run(ctx, importpkg.Request{DarPath: darPath})
	if err != nil {
		return nil, mapError(err)
	}

	return &ImportResult{
		PackageID:   res.PackageID,
		Application: res.Application,
		Version:     res.Version,
	}, nil
}
