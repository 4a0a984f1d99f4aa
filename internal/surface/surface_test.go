package surface

import (
	"strings"
	"testing"

	"github.com/maestro-cli/maestro/internal/catalog"
	"github.com/maestro-cli/maestro/internal/manifest"
	"github.com/maestro-cli/maestro/internal/permissions"
)

func resolve(mode catalog.Mode, master bool) *permissions.CapabilitySet {
	m := &manifest.Manifest{Mode: mode, Tasks: []manifest.Task{{ID: "t1"}}}
	return permissions.Resolve(m, permissions.Options{IsMasterSession: master})
}

func TestRenderCompact_Deterministic(t *testing.T) {
	for _, mode := range catalog.AllModes {
		cs := resolve(mode, true)
		a := RenderCompact(cs)
		b := RenderCompact(cs)
		if a != b {
			t.Errorf("%s: compact render differs between calls", mode)
		}
		if RenderFull(cs) != RenderFull(cs) {
			t.Errorf("%s: full render differs between calls", mode)
		}
	}
}

func TestRenderCompact_Worker(t *testing.T) {
	out := RenderCompact(resolve(catalog.ModeWorker, false))

	wantLines := []string{
		"- `maestro {whoami|status|commands}` - Identity, status and command reference",
		"- `maestro task {list|get|children}` - Task inspection and management",
		"- `maestro task report progress <taskId> \"<message>\"` - Report progress on a task",
		"- `maestro session {info|notify}` - Session inspection, messaging and spawning",
		"- `maestro project get` - Project inspection and management",
	}
	for _, line := range wantLines {
		if !strings.Contains(out, line+"\n") {
			t.Errorf("compact output missing line %q\n%s", line, out)
		}
	}
	if !strings.HasSuffix(out, Footer+"\n") {
		t.Errorf("compact output should end with footer:\n%s", out)
	}
}

func TestRender_ExcludesHiddenFromPrompt(t *testing.T) {
	cs := permissions.ResolveNoManifest(catalog.ModeWorker)
	for name, out := range map[string]string{"full": RenderFull(cs), "compact": RenderCompact(cs)} {
		for _, hidden := range []string{"debug-prompt", "register", "session complete"} {
			if strings.Contains(out, hidden) {
				t.Errorf("%s output contains hidden command %q", name, hidden)
			}
		}
	}
}

func TestRenderFull_RootFirstThenCatalogOrder(t *testing.T) {
	out := RenderFull(resolve(catalog.ModeCoordinator, true))
	lines := strings.Split(strings.TrimSpace(out), "\n")

	if !strings.HasPrefix(lines[0], "- `maestro whoami`") {
		t.Errorf("first line = %q, want whoami", lines[0])
	}
	idx := func(s string) int {
		for i, l := range lines {
			if strings.Contains(l, s) {
				return i
			}
		}
		return -1
	}
	order := []string{"`maestro status`", "`maestro task list", "`maestro session info`", "`maestro project get", "`maestro team-member get", "`maestro master projects`"}
	for i := 1; i < len(order); i++ {
		if idx(order[i-1]) < 0 || idx(order[i-1]) >= idx(order[i]) {
			t.Errorf("%s should come before %s\n%s", order[i-1], order[i], out)
		}
	}
	if lines[len(lines)-1] != Footer {
		t.Errorf("last line = %q, want footer", lines[len(lines)-1])
	}
}

func TestRenderFull_OneLinePerVisibleCommand(t *testing.T) {
	cs := resolve(catalog.ModeCoordinatedCoordinator, false)
	visible := 0
	for _, id := range cs.AllowedCommands {
		if e, _ := catalog.ByID(id); !e.HiddenFromPrompt {
			visible++
		}
	}
	out := RenderFull(cs)
	if got := strings.Count(out, "\n- `"); got+1 != visible {
		t.Errorf("full output has %d bullets, want %d", got+1, visible)
	}
}

func TestRenderCompact_NestedNeverAbbreviated(t *testing.T) {
	out := RenderCompact(resolve(catalog.ModeCoordinator, false))
	for _, id := range []string{"task:report:complete", "task:docs:add", "session:mail:read", "session:report:error"} {
		if !strings.Contains(out, "`"+catalog.Syntax(id)+"`") {
			t.Errorf("nested command %s should appear with full syntax", id)
		}
	}
	if strings.Contains(out, "{progress") || strings.Contains(out, "report}") {
		t.Errorf("nested commands collapsed into a brace line:\n%s", out)
	}
}

func TestRender_EmptySet(t *testing.T) {
	cs := &permissions.CapabilitySet{}
	if got := RenderCompact(cs); got != Footer+"\n" {
		t.Errorf("RenderCompact(empty) = %q", got)
	}
	if got := RenderFull(nil); got != Footer+"\n" {
		t.Errorf("RenderFull(nil) = %q", got)
	}
}

func TestRenderCapabilitySummary(t *testing.T) {
	m := &manifest.Manifest{
		Mode:                   catalog.ModeWorker,
		Tasks:                  []manifest.Task{{ID: "t1"}},
		TeamMemberCapabilities: map[string]bool{"zz-custom": true, "aa-custom": false},
	}
	cs := permissions.Resolve(m, permissions.Options{})
	out := RenderCapabilitySummary(cs)

	for _, want := range []string{"Mode: worker\n", "Permission source: manifest\n", "- canSpawnSessions: no\n", "- canReportProgress: yes\n"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q\n%s", want, out)
		}
	}
	if strings.Index(out, "aa-custom") > strings.Index(out, "zz-custom") {
		t.Error("extra flags should be sorted")
	}
	if strings.Index(out, "canUseMasterCommands") > strings.Index(out, "aa-custom") {
		t.Error("derived flags should precede extra flags")
	}
	if RenderCapabilitySummary(nil) != "" {
		t.Error("nil summary should be empty")
	}
}
