package api

import (
	"encoding/json"
	"fmt"
)

// Tool is a tool definition. The wire format accepts two shapes:
//
//	nested: {"type":"function","function":{"name":...,"description":...,"parameters":...}}
//	flat:   {"type":"function","name":...,"description":...,"parameters":...,"strict":...}
//
// The flat shape also covers non-function tools (web_search, custom, ...)
// whose extra fields are preserved for echoing. FunctionDef() surfaces the
// canonical definition regardless of shape.
type Tool struct {
	Type string

	// Nested shape.
	Function *FunctionDef

	// Flat shape.
	Name        string
	Description string
	Parameters  json.RawMessage
	Strict      bool

	// Original bytes, kept so the response echoes the tool untouched.
	raw json.RawMessage
}

// FunctionDef is the canonical function definition shared by both tool shapes.
type FunctionDef struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters"`
}

// FunctionDef returns the canonical definition for this tool. For flat
// tools the name falls back to the type when absent, and parameters
// default to an empty JSON object.
func (t *Tool) FunctionDef() FunctionDef {
	if t.Function != nil {
		def := *t.Function
		if len(def.Parameters) == 0 {
			def.Parameters = json.RawMessage(`{}`)
		}
		return def
	}

	name := t.Name
	if name == "" {
		name = t.Type
	}
	params := t.Parameters
	if len(params) == 0 {
		params = json.RawMessage(`{}`)
	}
	return FunctionDef{
		Name:        name,
		Description: t.Description,
		Parameters:  params,
	}
}

// UnmarshalJSON accepts both tool shapes.
func (t *Tool) UnmarshalJSON(data []byte) error {
	var w struct {
		Type        string          `json:"type"`
		Function    *FunctionDef    `json:"function"`
		Name        string          `json:"name"`
		Description string          `json:"description"`
		Parameters  json.RawMessage `json:"parameters"`
		Strict      bool            `json:"strict"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("invalid tool definition: %w", err)
	}

	t.Type = w.Type
	t.Function = w.Function
	t.Name = w.Name
	t.Description = w.Description
	t.Parameters = w.Parameters
	t.Strict = w.Strict
	t.raw = append(json.RawMessage(nil), data...)
	return nil
}

// MarshalJSON re-emits the tool exactly as it was received. Tools built
// in code (tests, mock data) fall back to the nested shape.
func (t Tool) MarshalJSON() ([]byte, error) {
	if len(t.raw) > 0 {
		return t.raw, nil
	}
	if t.Function != nil {
		return json.Marshal(struct {
			Type     string       `json:"type"`
			Function *FunctionDef `json:"function"`
		}{Type: t.Type, Function: t.Function})
	}
	return json.Marshal(struct {
		Type        string          `json:"type"`
		Name        string          `json:"name,omitempty"`
		Description string          `json:"description,omitempty"`
		Parameters  json.RawMessage `json:"parameters,omitempty"`
		Strict      bool            `json:"strict,omitempty"`
	}{t.Type, t.Name, t.Description, t.Parameters, t.Strict})
}

// ToolChoice is either a strategy string ("auto", "none", "required") or
// a specific function selection object.
type ToolChoice struct {
	String   string
	Specific *ToolChoiceSpecific
}

// ToolChoiceSpecific forces a particular function.
type ToolChoiceSpecific struct {
	Type     string         `json:"type"`
	Function FunctionChoice `json:"function"`
}

// FunctionChoice names the forced function.
type FunctionChoice struct {
	Name string `json:"name"`
}

// MarshalJSON serializes ToolChoice as either a JSON string or a JSON object.
func (tc ToolChoice) MarshalJSON() ([]byte, error) {
	if tc.String != "" {
		return json.Marshal(tc.String)
	}
	if tc.Specific != nil {
		return json.Marshal(tc.Specific)
	}
	return nil, fmt.Errorf("ToolChoice has neither string value nor function")
}

// UnmarshalJSON deserializes ToolChoice from either a JSON string or a JSON object.
func (tc *ToolChoice) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		tc.String = s
		tc.Specific = nil
		return nil
	}

	var spec ToolChoiceSpecific
	if err := json.Unmarshal(data, &spec); err != nil {
		return fmt.Errorf("tool_choice must be a string or object: %w", err)
	}
	tc.String = ""
	tc.Specific = &spec
	return nil
}
