package prompt

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/maestro-cli/maestro/internal/manifest"
	"github.com/maestro-cli/maestro/internal/permissions"
)

// BuildContext is what a document builder sees. Manifest is already
// normalized and Capabilities already resolved.
type BuildContext struct {
	Manifest       *manifest.Manifest
	Capabilities   *permissions.CapabilitySet
	HardenFreeform bool
}

// SystemBuilder produces the system document. It must return a string
// ending in the closing maestro_system_prompt tag.
type SystemBuilder interface {
	BuildSystem(ctx BuildContext) (string, error)
}

// TaskBuilder produces the task document. It must return a string ending in
// the closing maestro_task_prompt tag.
type TaskBuilder interface {
	BuildTask(ctx BuildContext) (string, error)
}

// SystemBuilderFunc adapts a function to SystemBuilder.
type SystemBuilderFunc func(ctx BuildContext) (string, error)

func (f SystemBuilderFunc) BuildSystem(ctx BuildContext) (string, error) { return f(ctx) }

// TaskBuilderFunc adapts a function to TaskBuilder.
type TaskBuilderFunc func(ctx BuildContext) (string, error)

func (f TaskBuilderFunc) BuildTask(ctx BuildContext) (string, error) { return f(ctx) }

func templateFuncs(harden bool) template.FuncMap {
	return template.FuncMap{
		"attr": EscapeAttr,
		"prose": func(s string) string {
			if harden {
				return NeutralizeReservedTags(s)
			}
			return s
		},
		"trim": strings.TrimSpace,
	}
}

func render(name, tmpl string, ctx BuildContext, data any) (string, error) {
	t, err := template.New(name).Funcs(templateFuncs(ctx.HardenFreeform)).Parse(tmpl)
	if err != nil {
		return "", fmt.Errorf("parsing %s template: %w", name, err)
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("template execution failed: %w", err)
	}
	return buf.String(), nil
}

const systemTemplate = `<maestro_system_prompt mode="{{attr .Mode}}" version="{{attr .Version}}">
{{- range .Profiles}}
<team_member id="{{attr .ID}}" name="{{attr .Name}}"{{if .Role}} role="{{attr .Role}}"{{end}}>
{{prose (trim .Identity)}}
</team_member>
{{- end}}
{{- if .Roster}}
<team_roster>
{{- range .Roster}}
<member id="{{attr .ID}}" name="{{attr .Name}}"{{if .Role}} role="{{attr .Role}}"{{end}}{{if .Mode}} mode="{{attr .Mode}}"{{end}}/>
{{- end}}
</team_roster>
{{- end}}
<workflow>
{{.Workflow}}
</workflow>
</maestro_system_prompt>`

type systemData struct {
	Mode     string
	Version  string
	Profiles []manifest.TeamMemberProfile
	Roster   []rosterEntry
	Workflow string
}

type rosterEntry struct {
	ID, Name, Role, Mode string
}

// DefaultSystemBuilder renders identity, roster and mode workflow.
type DefaultSystemBuilder struct{}

func (DefaultSystemBuilder) BuildSystem(ctx BuildContext) (string, error) {
	m := ctx.Manifest
	if m == nil {
		return "", fmt.Errorf("system builder: nil manifest")
	}
	version := m.ManifestVersion
	if version == "" {
		version = manifest.SchemaVersion
	}
	data := systemData{
		Mode:     string(m.Mode),
		Version:  version,
		Profiles: m.TeamMemberProfiles,
		Workflow: workflowFor(m.Mode),
	}
	if m.Mode.IsCoordinator() {
		for _, ref := range m.TeamMembers {
			data.Roster = append(data.Roster, rosterEntry{ID: ref.ID, Name: ref.Name, Role: ref.Role, Mode: string(ref.Mode)})
		}
	}
	return render("system", systemTemplate, ctx, data)
}

const taskTemplate = `<maestro_task_prompt>
<tasks>
{{- range .Tasks}}
<task id="{{attr .ID}}"{{if .Priority}} priority="{{attr .Priority}}"{{end}}{{if .Status}} status="{{attr .Status}}"{{end}}{{if .ParentID}} parent="{{attr .ParentID}}"{{end}}>
<title>{{attr .Title}}</title>
{{- if .Description}}
<description>
{{prose (trim .Description)}}
</description>
{{- end}}
{{- if .AcceptanceCriteria}}
<acceptance_criteria>
{{- range .AcceptanceCriteria}}
<criterion>{{prose .}}</criterion>
{{- end}}
</acceptance_criteria>
{{- end}}
</task>
{{- end}}
</tasks>
</maestro_task_prompt>`

// DefaultTaskBuilder renders the assigned tasks. Session context is added by
// the Composer.
type DefaultTaskBuilder struct{}

func (DefaultTaskBuilder) BuildTask(ctx BuildContext) (string, error) {
	if ctx.Manifest == nil {
		return "", fmt.Errorf("task builder: nil manifest")
	}
	return render("task", taskTemplate, ctx, ctx.Manifest)
}
