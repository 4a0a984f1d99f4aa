// Package permissions resolves which commands a session may invoke.
//
// Resolution is an ordered pipeline of pure set transforms (see resolver.go);
// the result is a CapabilitySet that the command dispatcher queries and the
// prompt renderer displays.
package permissions

import (
	"errors"
	"fmt"

	"github.com/maestro-cli/maestro/internal/catalog"
)

// Resolution records which path produced a CapabilitySet.
type Resolution string

const (
	ResolutionManifest   Resolution = "manifest"
	ResolutionNoManifest Resolution = "no-manifest"
	ResolutionFallback   Resolution = "fallback"
)

// FallbackPolicy selects the behavior when a manifest exists but cannot be read.
type FallbackPolicy string

const (
	PolicySafeDegraded FallbackPolicy = "safe-degraded"
	PolicyPermissive   FallbackPolicy = "permissive"
)

// ParseFallbackPolicy maps a config string to a policy. Anything unknown is
// treated as safe-degraded.
func ParseFallbackPolicy(s string) FallbackPolicy {
	if FallbackPolicy(s) == PolicyPermissive {
		return PolicyPermissive
	}
	return PolicySafeDegraded
}

// Capability flag names.
const (
	FlagCanSpawnSessions     = "canSpawnSessions"
	FlagCanCreateTasks       = "canCreateTasks"
	FlagCanEditTasks         = "canEditTasks"
	FlagCanDeleteTasks       = "canDeleteTasks"
	FlagCanReportProgress    = "canReportProgress"
	FlagCanWatchSessions     = "canWatchSessions"
	FlagCanMessageSessions   = "canMessageSessions"
	FlagCanManageProjects    = "canManageProjects"
	FlagCanManageTeamMembers = "canManageTeamMembers"
	FlagCanUseMasterCommands = "canUseMasterCommands"
)

// capabilityRule derives one flag from the final allowed set.
type capabilityRule struct {
	name   string
	derive func(allowed idSet) bool
}

var capabilityRules = []capabilityRule{
	{FlagCanSpawnSessions, hasAll("session:spawn")},
	{FlagCanCreateTasks, hasAll("task:create")},
	{FlagCanEditTasks, hasAll("task:edit")},
	{FlagCanDeleteTasks, hasAll("task:delete")},
	{FlagCanReportProgress, hasAny("task:report:progress", "session:report:progress")},
	{FlagCanWatchSessions, hasAll("session:watch")},
	{FlagCanMessageSessions, hasAny("session:notify", "session:prompt")},
	{FlagCanManageProjects, hasAny("project:create", "project:delete")},
	{FlagCanManageTeamMembers, hasAny("team-member:create", "team-member:edit", "team-member:archive")},
	{FlagCanUseMasterCommands, hasAny(catalog.MasterIDs()...)},
}

// FlagNames returns the derived capability flag names in display order.
func FlagNames() []string {
	names := make([]string, len(capabilityRules))
	for i, r := range capabilityRules {
		names[i] = r.name
	}
	return names
}

func hasAll(ids ...string) func(idSet) bool {
	return func(s idSet) bool {
		for _, id := range ids {
			if !s.has(id) {
				return false
			}
		}
		return true
	}
}

func hasAny(ids ...string) func(idSet) bool {
	return func(s idSet) bool {
		for _, id := range ids {
			if s.has(id) {
				return true
			}
		}
		return false
	}
}

// CapabilitySet is the resolved authorization decision for one session.
type CapabilitySet struct {
	Mode            catalog.Mode    `json:"mode" yaml:"mode"`
	AllowedCommands []string        `json:"allowedCommands" yaml:"allowedCommands"`
	HiddenCommands  []string        `json:"hiddenCommands" yaml:"hiddenCommands"`
	Capabilities    map[string]bool `json:"capabilities" yaml:"capabilities"`
	Resolution      Resolution      `json:"resolution" yaml:"resolution"`

	allowed idSet
}

// Allows reports whether id is in the allowed set.
func (cs *CapabilitySet) Allows(id string) bool {
	if cs == nil {
		return false
	}
	if cs.allowed != nil {
		return cs.allowed.has(id)
	}
	for _, a := range cs.AllowedCommands {
		if a == id {
			return true
		}
	}
	return false
}

// Flag returns the value of a capability flag; unknown flags are false.
func (cs *CapabilitySet) Flag(name string) bool {
	if cs == nil {
		return false
	}
	return cs.Capabilities[name]
}

// ErrNotAllowed is matched by every *NotAllowedError.
var ErrNotAllowed = errors.New("command not allowed")

// NotAllowedError explains why a command was rejected and how it is invoked.
type NotAllowedError struct {
	ID     string
	Mode   catalog.Mode
	Syntax string
	Known  bool
}

func (e *NotAllowedError) Error() string {
	if !e.Known {
		return fmt.Sprintf("unknown command %q", e.ID)
	}
	return fmt.Sprintf("command %q is not allowed for this session (mode %s); usage: %s", e.ID, e.Mode, e.Syntax)
}

// Is lets errors.Is match ErrNotAllowed.
func (e *NotAllowedError) Is(target error) bool {
	return target == ErrNotAllowed
}

// Check returns nil when id is allowed, otherwise a *NotAllowedError carrying
// the correct syntax for the command.
func (cs *CapabilitySet) Check(id string) error {
	if cs.Allows(id) {
		return nil
	}
	_, known := catalog.ByID(id)
	var mode catalog.Mode
	if cs != nil {
		mode = cs.Mode
	}
	return &NotAllowedError{
		ID:     id,
		Mode:   mode,
		Syntax: catalog.Syntax(id),
		Known:  known,
	}
}
