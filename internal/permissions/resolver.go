package permissions

import (
	"sort"

	"github.com/maestro-cli/maestro/internal/catalog"
	"github.com/maestro-cli/maestro/internal/manifest"
)

// Options tune a manifest resolution.
type Options struct {
	// IsMasterSession grants the master-scoped commands.
	IsMasterSession bool
}

// idSet is an immutable set of command ids; every operation returns a copy.
type idSet map[string]struct{}

func newIDSet(ids ...string) idSet {
	s := make(idSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

func (s idSet) has(id string) bool {
	_, ok := s[id]
	return ok
}

func (s idSet) with(ids ...string) idSet {
	out := make(idSet, len(s)+len(ids))
	for id := range s {
		out[id] = struct{}{}
	}
	for _, id := range ids {
		out[id] = struct{}{}
	}
	return out
}

func (s idSet) without(ids ...string) idSet {
	out := make(idSet, len(s))
	for id := range s {
		out[id] = struct{}{}
	}
	for _, id := range ids {
		delete(out, id)
	}
	return out
}

// sorted returns the members in catalog order.
func (s idSet) sorted() []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		ii, ij := catalog.Index(ids[i]), catalog.Index(ids[j])
		if ii != ij {
			return ii < ij
		}
		return ids[i] < ids[j]
	})
	return ids
}

// resolveInput is everything the pipeline stages read.
type resolveInput struct {
	mode         catalog.Mode
	master       bool
	groups       map[string]bool
	commands     map[string]bool
	allowlist    []string
	hasAllowlist bool
}

// validFor reports whether id may be granted to this session at all.
// Master-scoped commands are only valid for master sessions.
func (in *resolveInput) validFor(id string) bool {
	e, ok := catalog.ByID(id)
	if !ok || !e.AllowsMode(in.mode) {
		return false
	}
	return !e.MasterScoped || in.master
}

func isCore(id string) bool {
	e, ok := catalog.ByID(id)
	return ok && e.Core
}

// stage is one step of the resolution pipeline.
type stage struct {
	name  string
	apply func(cur idSet, in *resolveInput) idSet
}

// pipeline lists the stages in precedence order. Later stages win.
var pipeline = []stage{
	{"base", baseStage},
	{"master", masterStage},
	{"group-overrides", groupOverrideStage},
	{"command-overrides", commandOverrideStage},
	{"allowlist", allowlistStage},
	{"core", coreStage},
}

func baseStage(_ idSet, in *resolveInput) idSet {
	return newIDSet(catalog.DefaultIDsForMode(in.mode)...)
}

func masterStage(cur idSet, in *resolveInput) idSet {
	if !in.master {
		return cur
	}
	var add []string
	for _, id := range catalog.MasterIDs() {
		if in.validFor(id) {
			add = append(add, id)
		}
	}
	return cur.with(add...)
}

func groupOverrideStage(cur idSet, in *resolveInput) idSet {
	for _, group := range sortedKeys(in.groups) {
		ids := catalog.IDsByGroup(group)
		if in.groups[group] {
			var add []string
			for _, id := range ids {
				if in.validFor(id) {
					add = append(add, id)
				}
			}
			cur = cur.with(add...)
			continue
		}
		var remove []string
		for _, id := range ids {
			if !isCore(id) {
				remove = append(remove, id)
			}
		}
		cur = cur.without(remove...)
	}
	return cur
}

func commandOverrideStage(cur idSet, in *resolveInput) idSet {
	for _, id := range sortedKeys(in.commands) {
		if in.commands[id] {
			if in.validFor(id) {
				cur = cur.with(id)
			}
			continue
		}
		if !isCore(id) {
			cur = cur.without(id)
		}
	}
	return cur
}

// allowlistStage replaces the accumulated set when an explicit allowlist is
// present. The earlier stages still ran; only their result is discarded.
func allowlistStage(cur idSet, in *resolveInput) idSet {
	if !in.hasAllowlist {
		return cur
	}
	var keep []string
	for _, id := range in.allowlist {
		if in.validFor(id) {
			keep = append(keep, id)
		}
	}
	return newIDSet(keep...).with(catalog.CoreIDs()...)
}

func coreStage(cur idSet, _ *resolveInput) idSet {
	return cur.with(catalog.CoreIDs()...)
}

func newResolveInput(m *manifest.Manifest, opts Options) *resolveInput {
	mode := m.Mode
	if !catalog.IsValidMode(mode) {
		mode, _ = manifest.CanonicalMode(mode, m.CoordinatorSessionID != "")
	}

	in := &resolveInput{
		mode:   mode,
		master: opts.IsMasterSession,
	}
	if p := m.TeamMemberCommandPermissions; p != nil {
		in.groups = p.Groups
		in.commands = p.Commands
	}
	if m.Session.AllowedCommands != nil {
		in.allowlist = m.Session.AllowedCommands
		in.hasAllowlist = true
	}
	return in
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Resolve computes the CapabilitySet for a manifest. The manifest is expected
// to be normalized; a raw legacy mode is canonicalized as well. A nil
// manifest resolves like ResolveNoManifest.
func Resolve(m *manifest.Manifest, opts Options) *CapabilitySet {
	if m == nil {
		return ResolveNoManifest(catalog.ModeWorker)
	}

	in := newResolveInput(m, opts)
	allowed, _ := run(in, false)
	return newCapabilitySet(in.mode, allowed, ResolutionManifest, m.TeamMemberCapabilities)
}

// StageResult is the allowed set after one pipeline stage, in catalog order.
type StageResult struct {
	Stage   string   `json:"stage" yaml:"stage"`
	Allowed []string `json:"allowed" yaml:"allowed"`
}

// Trace resolves m like Resolve and also returns the intermediate set after
// each stage, for explaining why a command was granted or hidden.
func Trace(m *manifest.Manifest, opts Options) (*CapabilitySet, []StageResult) {
	if m == nil {
		return Resolve(nil, opts), nil
	}
	in := newResolveInput(m, opts)
	allowed, trace := run(in, true)
	return newCapabilitySet(in.mode, allowed, ResolutionManifest, m.TeamMemberCapabilities), trace
}

func run(in *resolveInput, trace bool) (idSet, []StageResult) {
	var (
		allowed idSet
		results []StageResult
	)
	for _, st := range pipeline {
		allowed = st.apply(allowed, in)
		if trace {
			results = append(results, StageResult{Stage: st.name, Allowed: allowed.sorted()})
		}
	}
	return allowed, results
}

// ResolveNoManifest grants every catalog command. It is used outside managed
// sessions, where there is nothing to restrict against. The result is exempt
// from mode filtering: mode only labels the set.
func ResolveNoManifest(mode catalog.Mode) *CapabilitySet {
	return newCapabilitySet(canonical(mode), newIDSet(catalog.AllIDs()...), ResolutionNoManifest, nil)
}

// safeDegradedIDs is the minimal command set for a session whose manifest
// could not be read: reporting, docs, status and escalation only.
var safeDegradedIDs = []string{
	"task:get",
	"task:list",
	"task:children",
	"task:docs:list",
	"task:report:progress",
	"task:report:complete",
	"task:report:blocked",
	"task:report:error",
	"session:notify",
	"session:mail:read",
	"session:report:progress",
	"session:report:complete",
	"session:report:blocked",
	"session:report:error",
	"session:docs:list",
	"project:get",
	"team-member:get",
}

// ResolveManifestFailure is used when a manifest exists but failed to load.
// The permissive policy grants everything; safe-degraded (the default) grants
// only non-mutating reporting commands plus the core commands.
func ResolveManifestFailure(mode catalog.Mode, policy FallbackPolicy) *CapabilitySet {
	mode = canonical(mode)
	if policy == PolicyPermissive {
		return newCapabilitySet(mode, newIDSet(catalog.AllIDs()...), ResolutionFallback, nil)
	}

	in := &resolveInput{mode: mode}
	var keep []string
	for _, id := range safeDegradedIDs {
		if in.validFor(id) {
			keep = append(keep, id)
		}
	}
	return newCapabilitySet(mode, newIDSet(keep...).with(catalog.CoreIDs()...), ResolutionFallback, nil)
}

func canonical(mode catalog.Mode) catalog.Mode {
	if catalog.IsValidMode(mode) {
		return mode
	}
	m, _ := manifest.CanonicalMode(mode, false)
	return m
}

// newCapabilitySet orders the allowed set, computes the hidden complement and
// derives capability flags. Caller overrides are applied last and win.
func newCapabilitySet(mode catalog.Mode, allowed idSet, resolution Resolution, overrides map[string]bool) *CapabilitySet {
	hidden := []string{}
	for _, id := range catalog.AllIDs() {
		if !allowed.has(id) {
			hidden = append(hidden, id)
		}
	}

	caps := make(map[string]bool, len(capabilityRules)+len(overrides))
	for _, r := range capabilityRules {
		caps[r.name] = r.derive(allowed)
	}
	for name, v := range overrides {
		caps[name] = v
	}

	return &CapabilitySet{
		Mode:            mode,
		AllowedCommands: allowed.sorted(),
		HiddenCommands:  hidden,
		Capabilities:    caps,
		Resolution:      resolution,
		allowed:         allowed,
	}
}
