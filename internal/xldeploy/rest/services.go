package rest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"

	"github.com/jenkinsci/xldeploy-plugin-sub000/internal/model"
)

// GetTask returns the state of a task.
func (c *Client) GetTask(ctx context.Context, taskID string) (*model.Task, error) {
	body, err := c.get(ctx, "task/"+url.PathEscape(taskID), nil)
	if err != nil {
		return nil, err
	}

	t, err := decodeTask(body)
	if err != nil {
		return nil, fmt.Errorf("could not decode task %s: %w", taskID, err)
	}
	if t.ID == "" {
		t.ID = taskID
	}

	return t, nil
}

// GetStep returns the state of a task step.
func (c *Client) GetStep(ctx context.Context, taskID string, stepNr int) (*model.Step, error) {
	body, err := c.get(ctx, fmt.Sprintf("task/%s/step/%d", url.PathEscape(taskID), stepNr), nil)
	if err != nil {
		return nil, err
	}

	s, err := decodeStep(body)
	if err != nil {
		return nil, fmt.Errorf("could not decode step %d of task %s: %w", stepNr, taskID, err)
	}

	return s, nil
}

func (c *Client) Start(ctx context.Context, taskID string) error {
	_, err := c.do(ctx, request{method: http.MethodPost, path: "task/" + url.PathEscape(taskID) + "/start"})
	return err
}

func (c *Client) Skip(ctx context.Context, taskID string, stepNrs []int) error {
	body, err := encodeStepList(stepNrs)
	if err != nil {
		return fmt.Errorf("could not encode steps: %w", err)
	}

	_, err = c.postXML(ctx, "task/"+url.PathEscape(taskID)+"/skip", body)
	return err
}

func (c *Client) Cancel(ctx context.Context, taskID string) error {
	_, err := c.do(ctx, request{method: http.MethodDelete, path: "task/" + url.PathEscape(taskID)})
	return err
}

func (c *Client) Archive(ctx context.Context, taskID string) error {
	_, err := c.do(ctx, request{method: http.MethodPost, path: "task/" + url.PathEscape(taskID) + "/archive"})
	return err
}

// IsDeployed returns true when the application has a deployed application in the environment.
func (c *Client) IsDeployed(ctx context.Context, applicationID, environmentID string) (bool, error) {
	body, err := c.get(ctx, "deployment/exists", url.Values{
		"application": {applicationID},
		"environment": {environmentID},
	})
	if err != nil {
		return false, err
	}

	return decodeBool(body)
}

func (c *Client) PrepareInitial(ctx context.Context, versionID, environmentID string) (*model.Deployment, error) {
	return c.deployment(c.get(ctx, "deployment/prepare/initial", url.Values{
		"version":     {versionID},
		"environment": {environmentID},
	}))
}

func (c *Client) PrepareUpdate(ctx context.Context, versionID, deployedApplicationID string) (*model.Deployment, error) {
	return c.deployment(c.get(ctx, "deployment/prepare/update", url.Values{
		"version":             {versionID},
		"deployedApplication": {deployedApplicationID},
	}))
}

func (c *Client) PrepareUndeploy(ctx context.Context, deployedApplicationID string) (*model.Deployment, error) {
	return c.deployment(c.get(ctx, "deployment/prepare/undeploy", url.Values{
		"deployedApplication": {deployedApplicationID},
	}))
}

func (c *Client) PrepareAutoDeployeds(ctx context.Context, d model.Deployment) (*model.Deployment, error) {
	if len(d.Raw) == 0 {
		return nil, fmt.Errorf("deployment %s has no document: %w", d.ID, model.ErrNotValid)
	}
	return c.deployment(c.postXML(ctx, "deployment/prepare/deployeds", d.Raw))
}

func (c *Client) Validate(ctx context.Context, d model.Deployment) (*model.Deployment, error) {
	if len(d.Raw) == 0 {
		return nil, fmt.Errorf("deployment %s has no document: %w", d.ID, model.ErrNotValid)
	}
	return c.deployment(c.postXML(ctx, "deployment/validate", d.Raw))
}

func (c *Client) CreateTask(ctx context.Context, d model.Deployment) (string, error) {
	if len(d.Raw) == 0 {
		return "", fmt.Errorf("deployment %s has no document: %w", d.ID, model.ErrNotValid)
	}
	return c.taskID(c.postXML(ctx, "deployment", d.Raw))
}

func (c *Client) Rollback(ctx context.Context, taskID string) (string, error) {
	return c.taskID(c.do(ctx, request{method: http.MethodPost, path: "deployment/rollback/" + url.PathEscape(taskID)}))
}

// Read returns a configuration item of the repository with the supertypes of its type.
func (c *Client) Read(ctx context.Context, id string) (*model.ConfigurationItem, error) {
	body, err := c.get(ctx, "repository/ci/"+idPath(id), nil)
	if err != nil {
		return nil, err
	}

	ci, err := decodeCIDocument(body)
	if err != nil {
		return nil, fmt.Errorf("could not decode %s: %w", id, err)
	}

	superTypes, err := c.superTypes(ctx, ci.Type)
	if err != nil {
		c.logger.Warningf("Could not get the type hierarchy of %s: %s", ci.Type, err)
	}
	ci.SuperTypes = superTypes

	return ci, nil
}

// Query returns the IDs of the CIs of a type, all the results are returned in one page.
func (c *Client) Query(ctx context.Context, ciType, namePattern string) ([]string, error) {
	q := url.Values{
		"type":           {ciType},
		"resultsPerPage": {"-1"},
	}
	if namePattern != "" {
		q.Set("namePattern", namePattern)
	}

	body, err := c.get(ctx, "repository/query", q)
	if err != nil {
		return nil, err
	}

	ids, err := decodeCIRefs(body)
	if err != nil {
		return nil, fmt.Errorf("could not decode query results: %w", err)
	}

	return ids, nil
}

func (c *Client) PrepareControl(ctx context.Context, controlName, ciID string) (*model.Control, error) {
	body, err := c.get(ctx, "control/prepare/"+url.PathEscape(controlName)+"/"+idPath(ciID), nil)
	if err != nil {
		return nil, err
	}

	ctrl, err := decodeControl(body)
	if err != nil {
		return nil, fmt.Errorf("could not decode control %s: %w", controlName, err)
	}
	if ctrl.CIID == "" {
		ctrl.CIID = ciID
	}
	if ctrl.TaskName == "" {
		ctrl.TaskName = controlName
	}

	return ctrl, nil
}

func (c *Client) CreateControlTask(ctx context.Context, ctrl model.Control) (string, error) {
	body, err := encodeControl(ctrl)
	if err != nil {
		return "", err
	}
	return c.taskID(c.postXML(ctx, "control", body))
}

// Import uploads a DAR file to the server.
func (c *Client) Import(ctx context.Context, darPath string) (*model.ConfigurationItem, error) {
	f, err := os.Open(darPath)
	if err != nil {
		return nil, fmt.Errorf("could not open DAR file: %w", err)
	}
	defer f.Close()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("fileData", filepath.Base(darPath))
	if err != nil {
		return nil, fmt.Errorf("could not create upload: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, fmt.Errorf("could not read DAR file: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("could not create upload: %w", err)
	}

	body, err := c.do(ctx, request{
		method:      http.MethodPost,
		path:        "package/upload/" + url.PathEscape(filepath.Base(darPath)),
		body:        &buf,
		contentType: mw.FormDataContentType(),
	})
	if err != nil {
		return nil, err
	}

	ci, err := decodeCIDocument(body)
	if err != nil {
		return nil, fmt.Errorf("could not decode imported package: %w", err)
	}

	return ci, nil
}

func (c *Client) Info(ctx context.Context) (*model.ServerInfo, error) {
	body, err := c.get(ctx, "server/info", nil)
	if err != nil {
		return nil, err
	}

	return decodeServerInfo(body)
}

func (c *Client) superTypes(ctx context.Context, ciType string) ([]string, error) {
	c.mu.Lock()
	st, ok := c.supertypes[ciType]
	c.mu.Unlock()
	if ok {
		return st, nil
	}

	body, err := c.get(ctx, "metadata/type/"+url.PathEscape(ciType), nil)
	if err != nil {
		return nil, err
	}
	st, err = decodeDescriptorSuperTypes(body)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.supertypes[ciType] = st
	c.mu.Unlock()

	return st, nil
}

func (c *Client) deployment(body []byte, err error) (*model.Deployment, error) {
	if err != nil {
		return nil, err
	}

	d, err := decodeDeployment(body)
	if err != nil {
		return nil, fmt.Errorf("could not decode deployment: %w", err)
	}

	return d, nil
}

func (c *Client) taskID(body []byte, err error) (string, error) {
	if err != nil {
		return "", err
	}

	id := decodeString(body)
	if id == "" {
		return "", fmt.Errorf("server returned an empty task ID")
	}
	c.logger.Debugf("Created task %s", id)

	return id, nil
}

