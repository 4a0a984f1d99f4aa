// Package prompt composes the two documents sent to an agent session: a
// system document (identity, workflow, capability summary, command
// reference) and a task document (tasks, session context, reference tasks).
package prompt

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strings"

	"github.com/maestro-cli/maestro/internal/catalog"
	"github.com/maestro-cli/maestro/internal/manifest"
	"github.com/maestro-cli/maestro/internal/permissions"
	"github.com/maestro-cli/maestro/internal/surface"
)

// ReferenceStyle selects how the command reference is rendered.
type ReferenceStyle string

const (
	ReferenceCompact ReferenceStyle = "compact"
	ReferenceFull    ReferenceStyle = "full"
)

// IdentityPolicy controls what happens when a manifest's identity fields
// conflict.
type IdentityPolicy string

const (
	// IdentityLenient composes anyway; Normalize already picked a winner.
	IdentityLenient IdentityPolicy = "lenient"
	// IdentityStrict refuses to compose.
	IdentityStrict IdentityPolicy = "strict"
)

// SessionIDEnv is read when ComposeOptions carries no session id.
const SessionIDEnv = "MAESTRO_SESSION_ID"

// Options configures a Composer.
type Options struct {
	CommandReference ReferenceStyle
	IdentityPolicy   IdentityPolicy
	HardenFreeform   bool
	// MasterSession forces master commands on regardless of the manifest.
	MasterSession bool
}

// ComposeOptions are per-call inputs.
type ComposeOptions struct {
	SessionID string
}

// ErrIdentityConflict is matched by *IdentityError.
var ErrIdentityConflict = errors.New("identity conflict")

// IdentityError lists every identity conflict found in a manifest.
type IdentityError struct {
	Conflicts []string
}

func (e *IdentityError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "manifest has %d identity conflict(s):", len(e.Conflicts))
	for _, c := range e.Conflicts {
		sb.WriteString("\n  - ")
		sb.WriteString(c)
	}
	return sb.String()
}

func (e *IdentityError) Is(target error) bool {
	return target == ErrIdentityConflict
}

// Composer builds Envelopes from manifests.
type Composer struct {
	System   SystemBuilder
	Task     TaskBuilder
	Options  Options
	Warnings *manifest.WarningLog
	Logger   *slog.Logger
}

// New returns a Composer with the default builders.
func New(opts Options) *Composer {
	return &Composer{
		System:  DefaultSystemBuilder{},
		Task:    DefaultTaskBuilder{},
		Options: opts,
	}
}

func (c *Composer) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

func (c *Composer) warnings() *manifest.WarningLog {
	if c.Warnings != nil {
		return c.Warnings
	}
	return manifest.DefaultWarningLog
}

// Compose normalizes m, resolves its permissions, publishes them as the
// process-wide current set, and renders both documents. m is not modified.
func (c *Composer) Compose(m *manifest.Manifest, opts ComposeOptions) (*Envelope, error) {
	if m == nil {
		return nil, errors.New("compose: nil manifest")
	}

	res := manifest.Normalize(m)
	c.warnings().Log(c.logger(), res.Warnings)
	if len(res.IdentityErrors) > 0 {
		if c.Options.IdentityPolicy == IdentityStrict {
			return nil, &IdentityError{Conflicts: append([]string(nil), res.IdentityErrors...)}
		}
		for _, conflict := range res.IdentityErrors {
			c.logger().Warn("identity conflict", "conflict", conflict)
		}
	}
	nm := res.Manifest

	cs := permissions.Resolve(nm, permissions.Options{IsMasterSession: nm.IsMaster || c.Options.MasterSession})
	permissions.SetCurrent(cs)

	bctx := BuildContext{Manifest: nm, Capabilities: cs, HardenFreeform: c.Options.HardenFreeform}

	sysBuilder := c.System
	if sysBuilder == nil {
		sysBuilder = DefaultSystemBuilder{}
	}
	system, err := sysBuilder.BuildSystem(bctx)
	if err != nil {
		return nil, fmt.Errorf("building system document: %w", err)
	}
	taskBuilder := c.Task
	if taskBuilder == nil {
		taskBuilder = DefaultTaskBuilder{}
	}
	task, err := taskBuilder.BuildTask(bctx)
	if err != nil {
		return nil, fmt.Errorf("building task document: %w", err)
	}

	var reference string
	if c.Options.CommandReference == ReferenceFull {
		reference = surface.RenderFull(cs)
	} else {
		reference = surface.RenderCompact(cs)
	}
	system = insertBeforeClose(system, TagSystemPrompt,
		block(TagCapabilitySummary, surface.RenderCapabilitySummary(cs))+
			block(TagCommandsReference, reference))

	sessionID := opts.SessionID
	if sessionID == "" {
		sessionID = os.Getenv(SessionIDEnv)
	}
	task = stripBlocks(task, TagSessionContext)
	task = stripBlocks(task, TagReferenceTasks)
	tail := sessionContext(nm, sessionID)
	if len(nm.ReferenceTaskIDs) > 0 {
		tail += referenceTasks(nm.ReferenceTaskIDs)
	}
	task = insertBeforeClose(task, TagTaskPrompt, tail)

	flags := make(map[string]bool, len(cs.Capabilities))
	for k, v := range cs.Capabilities {
		flags[k] = v
	}
	c.logger().Debug("prompt composed",
		"mode", nm.Mode,
		"commands", len(cs.AllowedCommands),
		"resolution", cs.Resolution,
		"session_id", sessionID,
	)
	return &Envelope{
		System: system,
		Task:   task,
		Metadata: Metadata{
			Mode:            nm.Mode,
			CommandCount:    len(cs.AllowedCommands),
			CapabilityFlags: flags,
			Resolution:      cs.Resolution,
			SessionID:       sessionID,
			Warnings:        append([]string(nil), res.Warnings...),
		},
	}, nil
}

func block(tag, body string) string {
	body = strings.TrimRight(body, "\n")
	return "<" + tag + ">\n" + body + "\n</" + tag + ">\n"
}

// insertBeforeClose places content on its own lines right before the last
// closing tag of doc. A document without the closing tag gets the content
// and the tag appended.
func insertBeforeClose(doc, tag, content string) string {
	closing := "</" + tag + ">"
	i := strings.LastIndex(doc, closing)
	if i < 0 {
		if doc != "" && !strings.HasSuffix(doc, "\n") {
			doc += "\n"
		}
		return doc + content + closing
	}
	head := doc[:i]
	if head != "" && !strings.HasSuffix(head, "\n") {
		head += "\n"
	}
	return head + content + doc[i:]
}

var blockPatterns = map[string]*regexp.Regexp{
	TagSessionContext: blockPattern(TagSessionContext),
	TagReferenceTasks: blockPattern(TagReferenceTasks),
}

func blockPattern(tag string) *regexp.Regexp {
	return regexp.MustCompile(`(?s)[ \t]*<` + tag + `\b[^>]*?(?:/>|>.*?</` + tag + `>)[ \t]*\n?`)
}

// stripBlocks removes every occurrence of the named block, including
// self-closing forms.
func stripBlocks(doc, tag string) string {
	re, ok := blockPatterns[tag]
	if !ok {
		re = blockPattern(tag)
	}
	return re.ReplaceAllString(doc, "")
}

func sessionContext(m *manifest.Manifest, sessionID string) string {
	var sb strings.Builder
	sb.WriteString("<" + TagSessionContext + ">\n")
	field(&sb, "session_id", sessionID)
	field(&sb, "project_id", m.PrimaryProjectID())
	field(&sb, "mode", string(m.Mode))
	if m.CoordinatorSessionID != "" {
		field(&sb, "coordinator_session_id", m.CoordinatorSessionID)
	}
	if m.IsMaster {
		field(&sb, "master", "true")
	}
	sb.WriteString("</" + TagSessionContext + ">\n")
	return sb.String()
}

func field(sb *strings.Builder, name, value string) {
	fmt.Fprintf(sb, "<%s>%s</%s>\n", name, EscapeAttr(value), name)
}

func referenceTasks(ids []string) string {
	var sb strings.Builder
	sb.WriteString("<" + TagReferenceTasks + ">\n")
	for _, id := range ids {
		field(&sb, "task_id", id)
	}
	sb.WriteString("Read each reference task's docs with `" + catalog.Syntax("task:docs:list") + "` before starting.\n")
	sb.WriteString("</" + TagReferenceTasks + ">\n")
	return sb.String()
}
