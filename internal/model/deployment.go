package model

// DeploymentType is the kind of plan the server prepared.
type DeploymentType string

const (
	DeploymentTypeInitial      DeploymentType = "INITIAL"
	DeploymentTypeUpdate       DeploymentType = "UPDATE"
	DeploymentTypeUndeployment DeploymentType = "UNDEPLOYMENT"
)

// Deployment is a deployment plan prepared by the server.
//
// The server owns the plan format, Raw keeps the document as received so it can be
// sent back untouched, the rest of the fields are the parts the client inspects.
type Deployment struct {
	ID        string
	Type      DeploymentType
	Version   string
	Target    string
	Deployeds []ConfigurationItem
	Raw       []byte
}

// ValidationErrors returns the aggregate of the validation messages attached to the
// deployeds of the plan, nil when there are none.
func (d Deployment) ValidationErrors() error {
	verr := &ValidationError{}
	for _, ci := range d.Deployeds {
		for _, msg := range ci.Validations {
			verr.Add(ci, msg)
		}
	}
	return verr.ErrorOrNil()
}

// DeploymentOptions are the options of a deploy invocation.
type DeploymentOptions struct {
	ExecutionMode
	// GenerateDeployedOnUpgrade asks the server to map the new deployables of an upgrade.
	GenerateDeployedOnUpgrade bool
}
