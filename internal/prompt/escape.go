package prompt

import (
	"regexp"
	"strings"
)

// Structural tags of the prompt documents. Free text must never be able to
// open or close one of these.
const (
	TagSystemPrompt      = "maestro_system_prompt"
	TagTaskPrompt        = "maestro_task_prompt"
	TagSessionContext    = "session_context"
	TagReferenceTasks    = "reference_tasks"
	TagCapabilitySummary = "capability_summary"
	TagCommandsReference = "commands_reference"
)

var reservedTags = []string{
	TagSystemPrompt,
	TagTaskPrompt,
	TagSessionContext,
	TagReferenceTasks,
	TagCapabilitySummary,
	TagCommandsReference,
}

var attrReplacer = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
)

// EscapeAttr escapes a value placed in a tag attribute or a short field.
func EscapeAttr(s string) string {
	return attrReplacer.Replace(s)
}

var reservedTagPattern = regexp.MustCompile(`(?i)<(/?)(` + strings.Join(reservedTags, "|") + `)\b`)

// NeutralizeReservedTags leaves prose readable but turns any sequence that
// would open or close a structural tag into inert text.
func NeutralizeReservedTags(s string) string {
	return reservedTagPattern.ReplaceAllString(s, "&lt;$1$2")
}
