// Package manifest defines the declarative session manifest handed to every
// spawned agent session, loads it from disk, and normalizes historical
// manifest shapes into the canonical one.
package manifest

import (
	"github.com/maestro-cli/maestro/internal/catalog"
)

// SchemaVersion is the manifest format version written by current
// orchestrators. Older manifests omit it.
const SchemaVersion = "1.0"

// Manifest is the configuration for one agent session.
type Manifest struct {
	// ManifestVersion is the manifest format version.
	ManifestVersion string `json:"manifestVersion,omitempty" yaml:"manifestVersion,omitempty"`

	// Mode is the session mode. Before normalization it may hold a legacy alias.
	Mode catalog.Mode `json:"mode,omitempty" yaml:"mode,omitempty"`

	// Tasks are the tasks assigned to the session, in order.
	Tasks []Task `json:"tasks" yaml:"tasks"`

	// Session carries agent runtime settings.
	Session SessionConfig `json:"session" yaml:"session"`

	// TeamMemberCommandPermissions toggles command groups and single commands.
	TeamMemberCommandPermissions *CommandPermissions `json:"teamMemberCommandPermissions,omitempty" yaml:"teamMemberCommandPermissions,omitempty"`

	// TeamMemberCapabilities overrides derived capability flags by name.
	TeamMemberCapabilities map[string]bool `json:"teamMemberCapabilities,omitempty" yaml:"teamMemberCapabilities,omitempty"`

	// TeamMemberProfiles is the identity of the acting team member(s).
	TeamMemberProfiles []TeamMemberProfile `json:"teamMemberProfiles,omitempty" yaml:"teamMemberProfiles,omitempty"`

	// Legacy singular identity fields, folded into TeamMemberProfiles by Normalize.
	TeamMemberID     string  `json:"teamMemberId,omitempty" yaml:"teamMemberId,omitempty"`
	TeamMemberName   string  `json:"teamMemberName,omitempty" yaml:"teamMemberName,omitempty"`
	TeamMemberAvatar string  `json:"teamMemberAvatar,omitempty" yaml:"teamMemberAvatar,omitempty"`
	TeamMemberIdent  *string `json:"teamMemberIdentity,omitempty" yaml:"teamMemberIdentity,omitempty"`

	// TeamMembers is the roster of peers available to a coordinator.
	TeamMembers []TeamMemberRef `json:"teamMembers,omitempty" yaml:"teamMembers,omitempty"`

	// CoordinatorSessionID is set when a coordinator spawned this session.
	CoordinatorSessionID string `json:"coordinatorSessionId,omitempty" yaml:"coordinatorSessionId,omitempty"`

	// IsMaster marks a workspace-wide master session.
	IsMaster bool `json:"isMaster,omitempty" yaml:"isMaster,omitempty"`

	// ReferenceTaskIDs are tasks whose docs the agent should read first.
	ReferenceTaskIDs []string `json:"referenceTaskIds,omitempty" yaml:"referenceTaskIds,omitempty"`

	// WorkflowTemplateID is deprecated and dropped by Normalize.
	WorkflowTemplateID string `json:"workflowTemplateId,omitempty" yaml:"workflowTemplateId,omitempty"`
}

// Task is a unit of work assigned to the session.
type Task struct {
	ID                 string   `json:"id" yaml:"id"`
	Title              string   `json:"title" yaml:"title"`
	Description        string   `json:"description,omitempty" yaml:"description,omitempty"`
	AcceptanceCriteria []string `json:"acceptanceCriteria,omitempty" yaml:"acceptanceCriteria,omitempty"`
	ProjectID          string   `json:"projectId,omitempty" yaml:"projectId,omitempty"`
	ParentID           string   `json:"parentId,omitempty" yaml:"parentId,omitempty"`
	Priority           string   `json:"priority,omitempty" yaml:"priority,omitempty"`
	Status             string   `json:"status,omitempty" yaml:"status,omitempty"`
}

// SessionConfig carries agent runtime settings.
type SessionConfig struct {
	Model          string `json:"model,omitempty" yaml:"model,omitempty"`
	PermissionMode string `json:"permissionMode,omitempty" yaml:"permissionMode,omitempty"`
	MaxTurns       int    `json:"maxTurns,omitempty" yaml:"maxTurns,omitempty"`

	// AllowedCommands, when non-nil, is the authoritative allowlist. An empty
	// non-nil list grants only the core commands.
	AllowedCommands []string `json:"allowedCommands" yaml:"allowedCommands,omitempty"`
}

// sessionConfigYAML mirrors SessionConfig with the allowlist behind a
// pointer so an empty list is written as [] and an absent one is omitted.
type sessionConfigYAML struct {
	Model           string    `yaml:"model,omitempty"`
	PermissionMode  string    `yaml:"permissionMode,omitempty"`
	MaxTurns        int       `yaml:"maxTurns,omitempty"`
	AllowedCommands *[]string `yaml:"allowedCommands,omitempty"`
}

// MarshalYAML keeps an empty allowlist distinct from a missing one.
func (s SessionConfig) MarshalYAML() (interface{}, error) {
	out := sessionConfigYAML{
		Model:          s.Model,
		PermissionMode: s.PermissionMode,
		MaxTurns:       s.MaxTurns,
	}
	if s.AllowedCommands != nil {
		allowed := s.AllowedCommands
		out.AllowedCommands = &allowed
	}
	return out, nil
}

// CommandPermissions toggles commands per group and per id.
type CommandPermissions struct {
	Groups   map[string]bool `json:"groups,omitempty" yaml:"groups,omitempty"`
	Commands map[string]bool `json:"commands,omitempty" yaml:"commands,omitempty"`
}

// TeamMemberProfile is the identity the agent acts as.
type TeamMemberProfile struct {
	ID       string `json:"id" yaml:"id"`
	Name     string `json:"name" yaml:"name"`
	Avatar   string `json:"avatar,omitempty" yaml:"avatar,omitempty"`
	Identity string `json:"identity" yaml:"identity"`
	Role     string `json:"role,omitempty" yaml:"role,omitempty"`
	Model    string `json:"model,omitempty" yaml:"model,omitempty"`

	// WorkflowTemplateID is deprecated and dropped by Normalize.
	WorkflowTemplateID string `json:"workflowTemplateId,omitempty" yaml:"workflowTemplateId,omitempty"`
}

// TeamMemberRef is a roster entry for a peer team member.
type TeamMemberRef struct {
	ID   string       `json:"id" yaml:"id"`
	Name string       `json:"name" yaml:"name"`
	Role string       `json:"role,omitempty" yaml:"role,omitempty"`
	Mode catalog.Mode `json:"mode,omitempty" yaml:"mode,omitempty"`
}

// PrimaryProjectID returns the project of the first task that has one.
func (m *Manifest) PrimaryProjectID() string {
	for _, t := range m.Tasks {
		if t.ProjectID != "" {
			return t.ProjectID
		}
	}
	return ""
}

// HasLegacyIdentity reports whether any singular identity field is set.
func (m *Manifest) HasLegacyIdentity() bool {
	return m.TeamMemberID != "" || m.TeamMemberName != "" || m.TeamMemberAvatar != "" || m.TeamMemberIdent != nil
}

// Clone returns a deep copy of m.
func (m *Manifest) Clone() *Manifest {
	if m == nil {
		return nil
	}
	c := *m
	c.Tasks = cloneTasks(m.Tasks)
	c.Session.AllowedCommands = cloneStrings(m.Session.AllowedCommands)
	if m.TeamMemberCommandPermissions != nil {
		c.TeamMemberCommandPermissions = &CommandPermissions{
			Groups:   cloneBoolMap(m.TeamMemberCommandPermissions.Groups),
			Commands: cloneBoolMap(m.TeamMemberCommandPermissions.Commands),
		}
	}
	c.TeamMemberCapabilities = cloneBoolMap(m.TeamMemberCapabilities)
	if m.TeamMemberProfiles != nil {
		c.TeamMemberProfiles = make([]TeamMemberProfile, len(m.TeamMemberProfiles))
		copy(c.TeamMemberProfiles, m.TeamMemberProfiles)
	}
	if m.TeamMemberIdent != nil {
		ident := *m.TeamMemberIdent
		c.TeamMemberIdent = &ident
	}
	if m.TeamMembers != nil {
		c.TeamMembers = make([]TeamMemberRef, len(m.TeamMembers))
		copy(c.TeamMembers, m.TeamMembers)
	}
	c.ReferenceTaskIDs = cloneStrings(m.ReferenceTaskIDs)
	return &c
}

func cloneTasks(tasks []Task) []Task {
	if tasks == nil {
		return nil
	}
	out := make([]Task, len(tasks))
	for i, t := range tasks {
		out[i] = t
		out[i].AcceptanceCriteria = cloneStrings(t.AcceptanceCriteria)
	}
	return out
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	return append([]string{}, s...)
}

func cloneBoolMap(m map[string]bool) map[string]bool {
	if m == nil {
		return nil
	}
	out := make(map[string]bool, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
