package lib

import (
	"context"
	"fmt"

	"github.com/jenkinsci/xldeploy-plugin-sub000/internal/app/history"
	"github.com/jenkinsci/xldeploy-plugin-sub000/internal/app/search"
)

// Search returns the IDs of the configuration items of a type (`udm.Environment`).
// The name pattern is optional, `%` matches any sequence.
func (c *Client) Search(ctx context.Context, ciType, namePattern string) ([]string, error) {
	svc, err := c.newSearchService()
	if err != nil {
		return nil, err
	}

	ids, err := svc.Run(ctx, search.Request{Type: ciType, NamePattern: namePattern})
	if err != nil {
		return nil, mapError(err)
	}

	return ids, nil
}

// ResolveVersion returns the deployment package ID of an application version.
// The application can be a name when a single application has it.
func (c *Client) ResolveVersion(ctx context.Context, application, version string) (string, error) {
	svc, err := c.newSearchService()
	if err != nil {
		return "", err
	}

	id, err := svc.ResolveVersion(ctx, application, version)
	if err != nil {
		return "", mapError(err)
	}

	return id, nil
}

func (c *Client) newSearchService() (*search.Service, error) {
	svc, err := search.NewService(search.ServiceConfig{
		Repository: c.server,
		Logger:     c.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create service: %w", err)
	}
	return svc, nil
}

// ListRuns returns the recorded runs, newest first. Pass nil opts to list every run.
func (c *Client) ListRuns(ctx context.Context, opts *ListRunsOpts) ([]Run, error) {
	svc, err := c.newHistoryService()
	if err != nil {
		return nil, err
	}

	req := history.Request{}
	if opts != nil {
		req.Kind = toInternalRunKind(opts.Kind)
		req.Status = toInternalRunStatus(opts.Status)
		req.Limit = opts.Limit
	}

	runs, err := svc.Run(ctx, req)
	if err != nil {
		return nil, mapError(err)
	}

	return fromInternalRunList(runs), nil
}

// GetRun returns a recorded run by its ID.
func (c *Client) GetRun(ctx context.Context, id string) (*Run, error) {
	svc, err := c.newHistoryService()
	if err != nil {
		return nil, err
	}

	runs, err := svc.Run(ctx, history.Request{RunID: id})
	if err != nil {
		return nil, mapError(err)
	}

	run := fromInternalRun(runs[0])
	return &run, nil
}

func (c *Client) newHistoryService() (*history.Service, error) {
	if c.history == nil {
		return nil, fmt.Errorf("run history is disabled: %w", ErrNotValid)
	}

	svc, err := history.NewService(history.ServiceConfig{
		Repository: c.history,
		Logger:     c.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create service: %w", err)
	}
	return svc, nil
}
