// Package tools defines the callable contract between the dispatch loop
// and the operations it can perform on a review session. Each tool is
// uniquely named, carries a JSON-schema parameter description, and exposes
// a single execution entry point returning plain text.
package tools

import (
	"context"
)

// Property describes a single parameter in a tool's JSON schema.
type Property struct {
	Type        string         `json:"type"`
	Description string         `json:"description,omitempty"`
	Default     any            `json:"default,omitempty"`
	Enum        []any          `json:"enum,omitempty"`
	Items       *PropertyItems `json:"items,omitempty"`
}

// PropertyItems describes the element schema of an array parameter.
type PropertyItems struct {
	Type string `json:"type"`
}

// Schema is the JSON-schema-shaped parameter description advertised to
// the model and enforced before execution.
type Schema struct {
	Properties map[string]Property `json:"properties"`
	Required   []string            `json:"required"`
}

// Document renders the schema as a full JSON-schema object document.
func (s Schema) Document() map[string]any {
	props := make(map[string]any, len(s.Properties))
	for name, p := range s.Properties {
		prop := map[string]any{"type": p.Type}
		if p.Description != "" {
			prop["description"] = p.Description
		}
		if p.Default != nil {
			prop["default"] = p.Default
		}
		if len(p.Enum) > 0 {
			prop["enum"] = p.Enum
		}
		if p.Items != nil {
			prop["items"] = map[string]any{"type": p.Items.Type}
		}
		props[name] = prop
	}
	required := s.Required
	if required == nil {
		required = []string{}
	}
	return map[string]any{
		"type":       "object",
		"properties": props,
		"required":   required,
	}
}

// ExecuteFunc runs a tool with named arguments and returns plain text.
type ExecuteFunc func(ctx context.Context, args map[string]any) (string, error)

// Tool is a registered capability the model can invoke by name.
type Tool struct {
	Name        string
	Description string
	Schema      Schema
	Execute     ExecuteFunc
}

// Validate checks the tool definition.
func (t *Tool) Validate() error {
	if t.Name == "" {
		return ErrToolNameEmpty
	}
	if t.Execute == nil {
		return ErrToolExecuteNil
	}
	return nil
}

// Result wraps one tool execution with timing metadata.
type Result struct {
	ToolName   string
	Output     string
	Err        error
	DurationMs int64
}

// IsSuccess reports whether the tool executed without error.
func (r *Result) IsSuccess() bool { return r.Err == nil }
