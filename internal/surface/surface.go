// Package surface renders a CapabilitySet as the command reference an agent
// reads. Output is plain text and fully determined by its input, so the
// debug-prompt command can reproduce exactly what an agent was sent.
package surface

import (
	"fmt"
	"sort"
	"strings"

	"github.com/maestro-cli/maestro/internal/catalog"
	"github.com/maestro-cli/maestro/internal/permissions"
)

// Footer ends every rendered command reference.
const Footer = "Run `maestro commands --full` for the full syntax of every command."

// visibleByGroup buckets the prompt-visible allowed commands by group.
// Groups come back root first, then in catalog-encounter order.
func visibleByGroup(cs *permissions.CapabilitySet) ([]string, map[string][]catalog.Entry) {
	byGroup := make(map[string][]catalog.Entry)
	if cs != nil {
		for _, id := range cs.AllowedCommands {
			e, ok := catalog.ByID(id)
			if !ok || e.HiddenFromPrompt {
				continue
			}
			byGroup[e.Group] = append(byGroup[e.Group], e)
		}
	}

	var order []string
	if len(byGroup[catalog.RootGroup]) > 0 {
		order = append(order, catalog.RootGroup)
	}
	for _, g := range catalog.Groups() {
		if g == catalog.RootGroup || len(byGroup[g]) == 0 {
			continue
		}
		order = append(order, g)
	}
	for _, entries := range byGroup {
		sort.SliceStable(entries, func(i, j int) bool {
			return catalog.Index(entries[i].ID) < catalog.Index(entries[j].ID)
		})
	}
	return order, byGroup
}

// RenderFull lists every visible command with its literal syntax.
func RenderFull(cs *permissions.CapabilitySet) string {
	order, byGroup := visibleByGroup(cs)

	var sb strings.Builder
	for _, g := range order {
		for _, e := range byGroup[g] {
			fmt.Fprintf(&sb, "- `%s` - %s\n", catalog.Syntax(e.ID), e.Description)
		}
	}
	if sb.Len() > 0 {
		sb.WriteString("\n")
	}
	sb.WriteString(Footer)
	sb.WriteString("\n")
	return sb.String()
}

// RenderCompact collapses single-segment commands of each group into one
// brace line. Nested commands keep their full syntax on their own line.
func RenderCompact(cs *permissions.CapabilitySet) string {
	order, byGroup := visibleByGroup(cs)

	var sb strings.Builder
	for _, g := range order {
		info, ok := catalog.GroupInfo(g)
		if !ok {
			info = catalog.Group{Name: g, Prefix: catalog.RootCommand + " " + g}
		}

		var leaves []string
		var nested []catalog.Entry
		for _, e := range byGroup[g] {
			if g != catalog.RootGroup && e.Nested() {
				nested = append(nested, e)
				continue
			}
			leaves = append(leaves, leafName(e.ID))
		}

		if len(leaves) > 0 {
			sb.WriteString("- `")
			sb.WriteString(info.Prefix)
			sb.WriteString(" ")
			sb.WriteString(braceList(leaves))
			sb.WriteString("`")
			if info.Description != "" {
				sb.WriteString(" - ")
				sb.WriteString(info.Description)
			}
			sb.WriteString("\n")
		}
		for _, e := range nested {
			fmt.Fprintf(&sb, "- `%s` - %s\n", catalog.Syntax(e.ID), e.Description)
		}
	}
	if sb.Len() > 0 {
		sb.WriteString("\n")
	}
	sb.WriteString(Footer)
	sb.WriteString("\n")
	return sb.String()
}

func leafName(id string) string {
	if i := strings.LastIndexByte(id, ':'); i >= 0 {
		return id[i+1:]
	}
	return id
}

func braceList(names []string) string {
	if len(names) == 1 {
		return names[0]
	}
	return "{" + strings.Join(names, "|") + "}"
}

// RenderCapabilitySummary renders the mode and capability flags block.
// Derived flags come first in their fixed order, then any extra override
// names alphabetically.
func RenderCapabilitySummary(cs *permissions.CapabilitySet) string {
	if cs == nil {
		return ""
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Mode: %s\n", cs.Mode)
	fmt.Fprintf(&sb, "Permission source: %s\n", cs.Resolution)
	fmt.Fprintf(&sb, "Allowed commands: %d\n", len(cs.AllowedCommands))

	known := make(map[string]bool)
	for _, name := range permissions.FlagNames() {
		known[name] = true
		fmt.Fprintf(&sb, "- %s: %s\n", name, yesNo(cs.Capabilities[name]))
	}
	var extra []string
	for name := range cs.Capabilities {
		if !known[name] {
			extra = append(extra, name)
		}
	}
	sort.Strings(extra)
	for _, name := range extra {
		fmt.Fprintf(&sb, "- %s: %s\n", name, yesNo(cs.Capabilities[name]))
	}
	return sb.String()
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
