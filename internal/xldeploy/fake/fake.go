package fake

import (
	"context"
	"crypto/rand"
	"fmt"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/jenkinsci/xldeploy-plugin-sub000/internal/log"
	"github.com/jenkinsci/xldeploy-plugin-sub000/internal/model"
	"github.com/jenkinsci/xldeploy-plugin-sub000/internal/xldeploy"
)

var _ xldeploy.Server = &Server{}

// ServerConfig is the configuration for the fake server.
type ServerConfig struct {
	// CIs are the configuration items the repository starts with.
	CIs    []model.ConfigurationItem
	Logger log.Logger
}

func (c *ServerConfig) defaults() error {
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "xldeploy.Fake"})
	return nil
}

type task struct {
	task      model.Task
	steps     []model.Step
	onArchive func()
}

// Server is an in-memory XL Deploy server. Tasks execute synchronously when
// started, every deployed of a plan becomes a step.
type Server struct {
	mu          sync.Mutex
	cis         map[string]model.ConfigurationItem
	tasks       map[string]*task
	validations map[string][]model.ValidationMessage
	failNext    bool
	logger      log.Logger
}

// NewServer creates a new fake server.
func NewServer(cfg ServerConfig) (*Server, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	s := &Server{
		cis:         map[string]model.ConfigurationItem{},
		tasks:       map[string]*task{},
		validations: map[string][]model.ValidationMessage{},
		logger:      cfg.Logger,
	}
	for _, ci := range cfg.CIs {
		s.cis[ci.ID] = ci
	}

	return s, nil
}

// AddCI stores a configuration item, replacing the one with the same ID.
func (s *Server) AddCI(ci model.ConfigurationItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cis[ci.ID] = ci
}

// AddValidation attaches a validation message to the deployeds prepared from a version.
func (s *Server) AddValidation(versionID string, msg model.ValidationMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.validations[versionID] = append(s.validations[versionID], msg)
}

// FailNextTask makes the next started task stop on its first step.
func (s *Server) FailNextTask() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext = true
}

// Tasks returns the IDs of the tasks that have not been archived or cancelled.
func (s *Server) Tasks() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := []string{}
	for id, t := range s.tasks {
		if t.task.State != model.TaskStateDone && t.task.State != model.TaskStateCancelled {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids
}

func newID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader).String()
}

func (s *Server) getTask(taskID string) (*task, error) {
	t, ok := s.tasks[taskID]
	if !ok {
		return nil, fmt.Errorf("task %s: %w", taskID, model.ErrNotFound)
	}
	return t, nil
}

func (s *Server) GetTask(ctx context.Context, taskID string) (*model.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.getTask(taskID)
	if err != nil {
		return nil, err
	}
	tc := t.task
	return &tc, nil
}

func (s *Server) GetStep(ctx context.Context, taskID string, stepNr int) (*model.Step, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.getTask(taskID)
	if err != nil {
		return nil, err
	}
	if stepNr < 1 || stepNr > len(t.steps) {
		return nil, fmt.Errorf("step %d of task %s: %w", stepNr, taskID, model.ErrNotFound)
	}
	step := t.steps[stepNr-1]
	return &step, nil
}

// Start executes the task steps, the skipped ones are not executed.
func (s *Server) Start(ctx context.Context, taskID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.getTask(taskID)
	if err != nil {
		return err
	}
	if t.task.State != model.TaskStatePending && t.task.State != model.TaskStateStopped {
		return fmt.Errorf("task %s is %s and can't be started: %w", taskID, t.task.State, model.ErrNotValid)
	}

	now := time.Now().UTC()
	t.task.StartDate = &now
	t.task.State = model.TaskStateExecuted
	for i := range t.steps {
		t.task.CurrentStep = i + 1
		switch {
		case t.steps[i].State == model.StepStateSkip:
			t.steps[i].State = model.StepStateSkipped
		case t.steps[i].State == model.StepStateExecuted || t.steps[i].State == model.StepStateSkipped:
		case s.failNext:
			s.failNext = false
			t.steps[i].State = model.StepStateFailed
			t.steps[i].Log = fmt.Sprintf("%s failed", t.steps[i].Description)
			t.task.State = model.TaskStateStopped
			s.logger.Infof("Task %s stopped on step %d", taskID, i+1)
			return nil
		default:
			t.steps[i].State = model.StepStateExecuted
			t.steps[i].Log = fmt.Sprintf("%s done", t.steps[i].Description)
		}
	}
	t.task.CompletionDate = &now
	s.logger.Infof("Task %s executed", taskID)

	return nil
}

func (s *Server) Skip(ctx context.Context, taskID string, stepNrs []int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.getTask(taskID)
	if err != nil {
		return err
	}
	for _, nr := range stepNrs {
		if nr < 1 || nr > len(t.steps) {
			return fmt.Errorf("step %d of task %s: %w", nr, taskID, model.ErrNotFound)
		}
		t.steps[nr-1].State = model.StepStateSkip
	}

	return nil
}

func (s *Server) Cancel(ctx context.Context, taskID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.getTask(taskID)
	if err != nil {
		return err
	}
	if t.task.State.IsPassiveAfterExecuting() && t.task.State != model.TaskStateStopped {
		return fmt.Errorf("task %s is %s and can't be cancelled: %w", taskID, t.task.State, model.ErrNotValid)
	}
	t.task.State = model.TaskStateCancelled

	return nil
}

// Archive finishes an executed task and applies its changes to the repository.
func (s *Server) Archive(ctx context.Context, taskID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.getTask(taskID)
	if err != nil {
		return err
	}
	if t.task.State != model.TaskStateExecuted {
		return fmt.Errorf("task %s is %s and can't be archived: %w", taskID, t.task.State, model.ErrNotValid)
	}
	t.task.State = model.TaskStateDone
	if t.onArchive != nil {
		t.onArchive()
	}

	return nil
}

func (s *Server) IsDeployed(ctx context.Context, applicationID, environmentID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.cis[environmentID+"/"+model.NameFromID(applicationID)]
	return ok, nil
}

func (s *Server) PrepareInitial(ctx context.Context, versionID, environmentID string) (*model.Deployment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.cis[environmentID]; !ok {
		return nil, fmt.Errorf("environment %s: %w", environmentID, model.ErrNotFound)
	}
	return s.plan(model.DeploymentTypeInitial, versionID, environmentID)
}

func (s *Server) PrepareUpdate(ctx context.Context, versionID, deployedApplicationID string) (*model.Deployment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.cis[deployedApplicationID]; !ok {
		return nil, fmt.Errorf("deployed application %s: %w", deployedApplicationID, model.ErrNotFound)
	}
	return s.plan(model.DeploymentTypeUpdate, versionID, model.ParentID(deployedApplicationID))
}

func (s *Server) PrepareUndeploy(ctx context.Context, deployedApplicationID string) (*model.Deployment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	deployedApp, ok := s.cis[deployedApplicationID]
	if !ok {
		return nil, fmt.Errorf("deployed application %s: %w", deployedApplicationID, model.ErrNotFound)
	}
	return s.plan(model.DeploymentTypeUndeployment, deployedApp.Properties["version"], model.ParentID(deployedApplicationID))
}

// plan maps every deployable of the version to a deployed in the environment.
func (s *Server) plan(dt model.DeploymentType, versionID, environmentID string) (*model.Deployment, error) {
	if _, ok := s.cis[versionID]; !ok {
		return nil, fmt.Errorf("version %s: %w", versionID, model.ErrNotFound)
	}

	d := &model.Deployment{
		ID:      newID(),
		Type:    dt,
		Version: versionID,
		Target:  environmentID,
	}
	for _, id := range s.sortedIDs() {
		if model.ParentID(id) != versionID {
			continue
		}
		d.Deployeds = append(d.Deployeds, model.ConfigurationItem{
			ID:         environmentID + "/" + model.NameFromID(id),
			Type:       s.cis[id].Type,
			Properties: map[string]string{"deployable": id},
		})
	}

	return d, nil
}

func (s *Server) PrepareAutoDeployeds(ctx context.Context, d model.Deployment) (*model.Deployment, error) {
	return &d, nil
}

func (s *Server) Validate(ctx context.Context, d model.Deployment) (*model.Deployment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(d.Deployeds) == 0 {
		return nil, fmt.Errorf("the task did not deliver any steps: %w", model.ErrEmptyPlan)
	}

	deployeds := slices.Clone(d.Deployeds)
	if msgs := s.validations[d.Version]; len(msgs) > 0 && d.Type != model.DeploymentTypeUndeployment {
		for i := range deployeds {
			deployeds[i].Validations = msgs
		}
	}
	d.Deployeds = deployeds

	return &d, nil
}

func (s *Server) CreateTask(ctx context.Context, d model.Deployment) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	deployedAppID := d.Target + "/" + model.NameFromID(model.ParentID(d.Version))
	verb := "Deploy"
	if d.Type == model.DeploymentTypeUndeployment {
		verb = "Undeploy"
	}

	steps := make([]string, 0, len(d.Deployeds))
	for _, ci := range d.Deployeds {
		steps = append(steps, fmt.Sprintf("%s %s", verb, ci.ID))
	}

	description := fmt.Sprintf("%s deployment of %s", strings.ToLower(string(d.Type)), deployedAppID)
	return s.newTask(description, steps, func() {
		if d.Type == model.DeploymentTypeUndeployment {
			delete(s.cis, deployedAppID)
			return
		}
		s.cis[deployedAppID] = model.ConfigurationItem{
			ID:         deployedAppID,
			Type:       model.TypeDeployedApplication,
			Properties: map[string]string{"version": d.Version, "environment": d.Target},
		}
	}), nil
}

// Rollback creates a task reverting the executed steps of a task.
func (s *Server) Rollback(ctx context.Context, taskID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.getTask(taskID)
	if err != nil {
		return "", err
	}
	if !t.task.State.IsExecutionHalted() {
		return "", fmt.Errorf("task %s is %s and can't be rolled back: %w", taskID, t.task.State, model.ErrNotValid)
	}
	t.task.State = model.TaskStateCancelled

	var steps []string
	for _, st := range t.steps {
		if st.State == model.StepStateExecuted || st.State == model.StepStateFailed {
			steps = append(steps, "Rollback "+st.Description)
		}
	}

	return s.newTask("Rollback of "+t.task.Description, steps, nil), nil
}

func (s *Server) newTask(description string, stepDescriptions []string, onArchive func()) string {
	id := newID()
	t := &task{
		task: model.Task{
			ID:          id,
			Description: description,
			State:       model.TaskStatePending,
			NrSteps:     len(stepDescriptions),
		},
		onArchive: onArchive,
	}
	for _, desc := range stepDescriptions {
		t.steps = append(t.steps, model.Step{Description: desc, State: model.StepStatePending})
	}
	s.tasks[id] = t
	s.logger.Debugf("Created task %s with %d steps", id, len(stepDescriptions))

	return id
}

func (s *Server) Read(ctx context.Context, id string) (*model.ConfigurationItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ci, ok := s.cis[id]
	if !ok {
		return nil, fmt.Errorf("configuration item %s: %w", id, model.ErrNotFound)
	}
	return &ci, nil
}

// Query matches the names with the `%` wildcard of the server queries.
func (s *Server) Query(ctx context.Context, ciType, namePattern string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var re *regexp.Regexp
	if namePattern != "" {
		parts := strings.Split(namePattern, "%")
		for i, p := range parts {
			parts[i] = regexp.QuoteMeta(p)
		}
		re = regexp.MustCompile("^" + strings.Join(parts, ".*") + "$")
	}

	ids := []string{}
	for _, id := range s.sortedIDs() {
		ci := s.cis[id]
		if !ci.InstanceOf(ciType) {
			continue
		}
		if re != nil && !re.MatchString(ci.Name()) {
			continue
		}
		ids = append(ids, id)
	}

	return ids, nil
}

func (s *Server) PrepareControl(ctx context.Context, controlName, ciID string) (*model.Control, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.cis[ciID]; !ok {
		return nil, fmt.Errorf("configuration item %s: %w", ciID, model.ErrNotFound)
	}
	return &model.Control{CIID: ciID, TaskName: controlName, Parameters: map[string]string{}}, nil
}

func (s *Server) CreateControlTask(ctx context.Context, c model.Control) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	description := fmt.Sprintf("Control task [%s] for %s", c.TaskName, c.CIID)
	return s.newTask(description, []string{fmt.Sprintf("Execute %s on %s", c.TaskName, c.CIID)}, nil), nil
}

// Import registers the package of a DAR file named `<application>-<version>.dar`
// with a single deployable.
func (s *Server) Import(ctx context.Context, darPath string) (*model.ConfigurationItem, error) {
	name := strings.TrimSuffix(filepath.Base(darPath), filepath.Ext(darPath))
	idx := strings.LastIndex(name, "-")
	if idx <= 0 || idx == len(name)-1 {
		return nil, fmt.Errorf("%s is not named <application>-<version>: %w", darPath, model.ErrNotValid)
	}
	app, version := name[:idx], name[idx+1:]

	s.mu.Lock()
	defer s.mu.Unlock()

	appID := "Applications/" + app
	versionID := appID + "/" + version
	if _, ok := s.cis[versionID]; ok {
		return nil, fmt.Errorf("package %s: %w", versionID, model.ErrAlreadyExists)
	}
	if _, ok := s.cis[appID]; !ok {
		s.cis[appID] = model.ConfigurationItem{ID: appID, Type: model.TypeApplication}
	}

	pkg := model.ConfigurationItem{ID: versionID, Type: model.TypeDeploymentPackage, Properties: map[string]string{"application": appID}}
	s.cis[versionID] = pkg
	s.cis[versionID+"/"+app] = model.ConfigurationItem{ID: versionID + "/" + app, Type: "file.File"}

	return &pkg, nil
}

func (s *Server) Info(ctx context.Context) (*model.ServerInfo, error) {
	return &model.ServerInfo{Version: "fake", Edition: "in-memory"}, nil
}

func (s *Server) sortedIDs() []string {
	ids := make([]string, 0, len(s.cis))
	for id := range s.cis {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
