package model

import "strings"

// Well known configuration item types.
const (
	TypeApplication         = "udm.Application"
	TypeDeploymentPackage   = "udm.DeploymentPackage"
	TypeDeployedApplication = "udm.DeployedApplication"
	TypeEnvironment         = "udm.Environment"
	TypeContainer           = "udm.Container"
)

// ConfigurationItem is a repository object of the server.
type ConfigurationItem struct {
	ID   string
	Type string
	// SuperTypes are the types the CI type extends, as known by the server.
	SuperTypes []string
	Properties map[string]string
	// Validations are the messages attached to the item during plan validation.
	Validations []ValidationMessage
}

// Name returns the last segment of the CI ID.
func (c ConfigurationItem) Name() string { return NameFromID(c.ID) }

// InstanceOf returns true when the CI is of type t or extends it.
func (c ConfigurationItem) InstanceOf(t string) bool {
	if c.Type == t {
		return true
	}
	for _, st := range c.SuperTypes {
		if st == t {
			return true
		}
	}
	return false
}

// NameFromID returns the last segment of a repository ID (`Applications/app/1.0` => `1.0`).
func NameFromID(id string) string {
	parts := strings.Split(id, "/")
	return parts[len(parts)-1]
}

// ParentID returns the ID without its last segment, an ID without parent is returned as is.
func ParentID(id string) string {
	idx := strings.LastIndex(id, "/")
	if idx < 0 {
		return id
	}
	return id[:idx]
}

// DeployedApplicationID returns the ID of the deployed application of a version in an environment.
func DeployedApplicationID(environmentID, versionID string) string {
	return environmentID + "/" + NameFromID(ParentID(versionID))
}
