// Package types provides the core shared type definitions of the module.
package types

import "github.com/goccy/go-json"

// ContextVars is the key-value store threaded through a run for template
// rendering and tool execution. Agents substitute these values into their
// instructions, and tools may declare a ContextVars parameter to receive the
// current set without it showing up in their JSON schema.
//
// ContextVars is a plain map and not safe for concurrent mutation; the
// executor clones it per run.
type ContextVars map[string]any

// String renders the variables as JSON, or an empty string when they cannot
// be marshaled.
func (cv ContextVars) String() string {
	jsonData, err := json.Marshal(cv)
	if err != nil {
		return ""
	}
	return string(jsonData)
}
