// Package catalog is the static registry of every maestro command.
// The registry is the single source of truth for command metadata: the
// permission resolver, the prompt renderer and the CLI all read from it.
package catalog

import "strings"

// RootCommand is the binary name used when rendering command syntax.
const RootCommand = "maestro"

// RootGroup is the pseudo-group for single-segment (ungrouped) command ids.
const RootGroup = "root"

// Mode is one of the four canonical session modes.
type Mode string

const (
	ModeWorker                 Mode = "worker"
	ModeCoordinator            Mode = "coordinator"
	ModeCoordinatedWorker      Mode = "coordinated-worker"
	ModeCoordinatedCoordinator Mode = "coordinated-coordinator"
)

// AllModes lists the canonical modes in display order.
var AllModes = []Mode{
	ModeWorker,
	ModeCoordinator,
	ModeCoordinatedWorker,
	ModeCoordinatedCoordinator,
}

// IsValidMode reports whether m is one of the canonical modes.
func IsValidMode(m Mode) bool {
	for _, mode := range AllModes {
		if mode == m {
			return true
		}
	}
	return false
}

// IsCoordinator reports whether m belongs to the coordinator family.
func (m Mode) IsCoordinator() bool {
	return m == ModeCoordinator || m == ModeCoordinatedCoordinator
}

// Entry describes a single command.
type Entry struct {
	ID               string `json:"id" yaml:"id"`
	Description      string `json:"description" yaml:"description"`
	Syntax           string `json:"syntax,omitempty" yaml:"syntax,omitempty"`
	Group            string `json:"group" yaml:"group"`
	AllowedModes     []Mode `json:"allowed_modes" yaml:"allowed_modes"`
	Core             bool   `json:"core,omitempty" yaml:"core,omitempty"`
	HiddenFromPrompt bool   `json:"hidden_from_prompt,omitempty" yaml:"hidden_from_prompt,omitempty"`
	MasterScoped     bool   `json:"master_scoped,omitempty" yaml:"master_scoped,omitempty"`
}

// AllowsMode reports whether the command may be used in mode m.
func (e Entry) AllowsMode(m Mode) bool {
	for _, mode := range e.AllowedModes {
		if mode == m {
			return true
		}
	}
	return false
}

// Nested reports whether the command has more than one segment after its
// group, e.g. task:report:progress.
func (e Entry) Nested() bool {
	return strings.Count(e.ID, ":") > 1
}

// Group carries the metadata used to collapse a group into one line.
type Group struct {
	Name        string `json:"name" yaml:"name"`
	Prefix      string `json:"prefix" yaml:"prefix"`
	Description string `json:"description" yaml:"description"`
}

var (
	entries    []Entry
	byID       map[string]int
	groupOrder []string
	groupIDs   map[string][]string
	coreIDs    []string
	masterIDs  []string
	allIDs     []string
	groupMeta  map[string]Group
)

func init() {
	entries = buildRegistry()
	byID = make(map[string]int, len(entries))
	groupIDs = make(map[string][]string)
	for i, e := range entries {
		byID[e.ID] = i
		allIDs = append(allIDs, e.ID)
		if _, seen := groupIDs[e.Group]; !seen {
			groupOrder = append(groupOrder, e.Group)
		}
		groupIDs[e.Group] = append(groupIDs[e.Group], e.ID)
		if e.Core {
			coreIDs = append(coreIDs, e.ID)
		}
		if e.MasterScoped {
			masterIDs = append(masterIDs, e.ID)
		}
	}
	groupMeta = make(map[string]Group, len(groupOrder))
	for _, g := range buildGroups() {
		groupMeta[g.Name] = g
	}
}

// ByID returns the entry for id.
func ByID(id string) (Entry, bool) {
	i, ok := byID[id]
	if !ok {
		return Entry{}, false
	}
	return entries[i], true
}

// Entries returns every entry in catalog order.
func Entries() []Entry {
	return append([]Entry(nil), entries...)
}

// AllIDs returns every command id in canonical order. All sorted output in
// maestro uses this order.
func AllIDs() []string {
	return append([]string(nil), allIDs...)
}

// IDsByGroup returns the ids of group in catalog order. The root pseudo-group
// selects ungrouped commands.
func IDsByGroup(group string) []string {
	return append([]string(nil), groupIDs[group]...)
}

// Groups returns group names in the order they are first encountered.
func Groups() []string {
	return append([]string(nil), groupOrder...)
}

// GroupInfo returns the registered prefix and description of group.
func GroupInfo(group string) (Group, bool) {
	g, ok := groupMeta[group]
	return g, ok
}

// CoreIDs returns the ids that are always retained regardless of overrides.
func CoreIDs() []string {
	return append([]string(nil), coreIDs...)
}

// MasterIDs returns the ids only granted to master sessions.
func MasterIDs() []string {
	return append([]string(nil), masterIDs...)
}

// DefaultIDsForMode returns the ids a session in mode m gets before any
// override. Master-scoped commands are never part of the defaults.
func DefaultIDsForMode(m Mode) []string {
	var ids []string
	for _, e := range entries {
		if e.MasterScoped {
			continue
		}
		if e.AllowsMode(m) {
			ids = append(ids, e.ID)
		}
	}
	return ids
}

// Index returns the canonical position of id, or len(AllIDs()) when id is
// not in the catalog.
func Index(id string) int {
	if i, ok := byID[id]; ok {
		return i
	}
	return len(entries)
}

// GroupOf returns the group a command id belongs to, whether or not it is in
// the catalog.
func GroupOf(id string) string {
	if i := strings.IndexByte(id, ':'); i > 0 {
		return id[:i]
	}
	return RootGroup
}

// Syntax returns the literal usage string for id. Commands without a
// registered syntax (including unknown ids) get one synthesized by turning
// each colon into a space.
func Syntax(id string) string {
	if e, ok := ByID(id); ok && e.Syntax != "" {
		return e.Syntax
	}
	return RootCommand + " " + strings.ReplaceAll(id, ":", " ")
}
