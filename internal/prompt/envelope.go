package prompt

import (
	"github.com/maestro-cli/maestro/internal/catalog"
	"github.com/maestro-cli/maestro/internal/permissions"
)

// Envelope is the composed output for one session.
type Envelope struct {
	System   string   `json:"system" yaml:"system"`
	Task     string   `json:"task" yaml:"task"`
	Metadata Metadata `json:"metadata" yaml:"metadata"`
}

// Metadata summarizes how the envelope was produced.
type Metadata struct {
	Mode            catalog.Mode           `json:"mode" yaml:"mode"`
	CommandCount    int                    `json:"commandCount" yaml:"commandCount"`
	CapabilityFlags map[string]bool        `json:"capabilityFlags" yaml:"capabilityFlags"`
	Resolution      permissions.Resolution `json:"resolution" yaml:"resolution"`
	SessionID       string                 `json:"sessionId,omitempty" yaml:"sessionId,omitempty"`
	Warnings        []string               `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}
