package manifest

import (
	"fmt"
	"strings"

	"github.com/maestro-cli/maestro/internal/catalog"
)

// legacyModeFamilies maps every historically accepted mode string to the
// family it belongs to. The family plus coordinator presence decides the
// canonical mode.
var legacyModeFamilies = map[string]catalog.Mode{
	"":             catalog.ModeWorker,
	"worker":       catalog.ModeWorker,
	"execute":      catalog.ModeWorker,
	"executor":     catalog.ModeWorker,
	"coordinator":  catalog.ModeCoordinator,
	"coordinate":   catalog.ModeCoordinator,
	"orchestrate":  catalog.ModeCoordinator,
	"orchestrator": catalog.ModeCoordinator,
}

// NormalizeResult is the outcome of Normalize.
type NormalizeResult struct {
	// Manifest is the canonical copy. The input is never modified.
	Manifest *Manifest

	// Warnings are human-readable, non-fatal notices.
	Warnings []string

	// LegacyModeNormalized is set when the session mode string was rewritten.
	LegacyModeNormalized bool

	// IdentityErrors lists every identity-cardinality conflict found. They are
	// only fatal when the caller enforces a strict identity policy.
	IdentityErrors []string
}

// CanonicalMode maps a raw (possibly legacy) mode string to one of the four
// canonical modes. hasCoordinator promotes worker and coordinator to their
// coordinated variants. known is false for strings no manifest version ever
// used; those fall back to the worker family.
func CanonicalMode(raw catalog.Mode, hasCoordinator bool) (mode catalog.Mode, known bool) {
	normalized := catalog.Mode(strings.ToLower(strings.TrimSpace(string(raw))))
	switch normalized {
	case catalog.ModeCoordinatedWorker, catalog.ModeCoordinatedCoordinator:
		return normalized, true
	}

	family, known := legacyModeFamilies[string(normalized)]
	if !known {
		family = catalog.ModeWorker
	}
	if !hasCoordinator {
		return family, known
	}
	if family == catalog.ModeCoordinator {
		return catalog.ModeCoordinatedCoordinator, known
	}
	return catalog.ModeCoordinatedWorker, known
}

// Normalize converts any historically valid manifest shape into the canonical
// shape. It never fails for a structurally valid manifest; identity conflicts
// are reported in the result for the caller to enforce.
func Normalize(in *Manifest) NormalizeResult {
	if in == nil {
		return NormalizeResult{Manifest: &Manifest{Mode: catalog.ModeWorker}}
	}

	m := in.Clone()
	res := NormalizeResult{Manifest: m}

	// Identity conflicts are judged on the input shape, before migration
	// rewrites it.
	res.IdentityErrors = identityConflicts(in)

	normalizeSessionMode(m, &res)
	migrateLegacyIdentity(m, &res)
	normalizeRosterModes(m, &res)
	dropDeprecatedFields(m, &res)

	return res
}

func normalizeSessionMode(m *Manifest, res *NormalizeResult) {
	raw := m.Mode
	mode, known := CanonicalMode(raw, m.CoordinatorSessionID != "")
	if mode == raw {
		return
	}

	m.Mode = mode
	res.LegacyModeNormalized = true
	switch {
	case raw == "":
		res.Warnings = append(res.Warnings, fmt.Sprintf("manifest mode not set; defaulting to %q", mode))
	case !known:
		res.Warnings = append(res.Warnings, fmt.Sprintf("unknown manifest mode %q; treating as %q", raw, mode))
	default:
		res.Warnings = append(res.Warnings, fmt.Sprintf("manifest mode %q is deprecated; normalized to %q", raw, mode))
	}
}

// migrateLegacyIdentity folds the singular teamMember* fields into a single
// profile. It only does so when the profile list is absent and every
// singular field is set; teamMemberIdentity may be an explicit empty string.
func migrateLegacyIdentity(m *Manifest, res *NormalizeResult) {
	if m.TeamMemberProfiles != nil {
		return
	}
	if m.TeamMemberID == "" || m.TeamMemberName == "" || m.TeamMemberAvatar == "" || m.TeamMemberIdent == nil {
		return
	}

	m.TeamMemberProfiles = []TeamMemberProfile{{
		ID:       m.TeamMemberID,
		Name:     m.TeamMemberName,
		Avatar:   m.TeamMemberAvatar,
		Identity: *m.TeamMemberIdent,
	}}
	m.TeamMemberID = ""
	m.TeamMemberName = ""
	m.TeamMemberAvatar = ""
	m.TeamMemberIdent = nil
	res.Warnings = append(res.Warnings, fmt.Sprintf("legacy teamMember* fields migrated to teamMemberProfiles (%s)", m.TeamMemberProfiles[0].ID))
}

// normalizeRosterModes canonicalizes roster entries independently. Roster
// entries are peers, so the session's coordinator does not apply to them.
func normalizeRosterModes(m *Manifest, res *NormalizeResult) {
	for i := range m.TeamMembers {
		raw := m.TeamMembers[i].Mode
		if raw == "" {
			continue
		}
		mode, _ := CanonicalMode(raw, false)
		if mode == raw {
			continue
		}
		m.TeamMembers[i].Mode = mode
		res.Warnings = append(res.Warnings, fmt.Sprintf("team member %q: mode %q normalized to %q", rosterLabel(m.TeamMembers[i], i), raw, mode))
	}
}

func rosterLabel(ref TeamMemberRef, index int) string {
	if ref.ID != "" {
		return ref.ID
	}
	if ref.Name != "" {
		return ref.Name
	}
	return fmt.Sprintf("#%d", index)
}

// dropDeprecatedFields removes workflow template references. They no longer
// influence composition, but users are told instead of having them vanish.
func dropDeprecatedFields(m *Manifest, res *NormalizeResult) {
	if m.WorkflowTemplateID != "" {
		res.Warnings = append(res.Warnings, fmt.Sprintf("workflowTemplateId %q is deprecated and ignored; remove it from the manifest", m.WorkflowTemplateID))
		m.WorkflowTemplateID = ""
	}
	for i := range m.TeamMemberProfiles {
		p := &m.TeamMemberProfiles[i]
		if p.WorkflowTemplateID == "" {
			continue
		}
		res.Warnings = append(res.Warnings, fmt.Sprintf("teamMemberProfiles[%d] (%s): workflowTemplateId %q is deprecated and ignored", i, p.ID, p.WorkflowTemplateID))
		p.WorkflowTemplateID = ""
	}
}

// identityConflicts lists every ambiguous self-identity source in m.
func identityConflicts(m *Manifest) []string {
	var conflicts []string

	if m.TeamMemberProfiles != nil && m.HasLegacyIdentity() {
		conflicts = append(conflicts, "teamMemberProfiles and legacy teamMember* fields are both set")
	}

	if m.TeamMemberProfiles == nil && m.HasLegacyIdentity() {
		var missing []string
		if m.TeamMemberID == "" {
			missing = append(missing, "teamMemberId")
		}
		if m.TeamMemberName == "" {
			missing = append(missing, "teamMemberName")
		}
		if m.TeamMemberAvatar == "" {
			missing = append(missing, "teamMemberAvatar")
		}
		if m.TeamMemberIdent == nil {
			missing = append(missing, "teamMemberIdentity")
		}
		if len(missing) > 0 {
			conflicts = append(conflicts, fmt.Sprintf("legacy team member fields are incomplete (missing %s)", strings.Join(missing, ", ")))
		}
	}

	seen := make(map[string]bool)
	for i, p := range m.TeamMemberProfiles {
		if p.ID == "" {
			conflicts = append(conflicts, fmt.Sprintf("teamMemberProfiles[%d] has no id", i))
			continue
		}
		if seen[p.ID] {
			conflicts = append(conflicts, fmt.Sprintf("duplicate team member profile id %q", p.ID))
		}
		seen[p.ID] = true
	}

	return conflicts
}
