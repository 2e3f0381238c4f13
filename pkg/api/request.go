package api

import (
	"encoding/json"
	"fmt"
)

// CreateResponseRequest is the request body for POST /v1/responses.
// Fields the proxy does not translate are still parsed so they can be
// echoed back in the Response object and warned about.
type CreateResponseRequest struct {
	Model              string           `json:"model,omitempty"`
	Input              *Input           `json:"input,omitempty"`
	Instructions       string           `json:"instructions,omitempty"`
	MaxOutputTokens    *int             `json:"max_output_tokens,omitempty"`
	Temperature        *float64         `json:"temperature,omitempty"`
	TopP               *float64         `json:"top_p,omitempty"`
	Tools              []Tool           `json:"tools,omitempty"`
	ToolChoice         *ToolChoice      `json:"tool_choice,omitempty"`
	ParallelToolCalls  *bool            `json:"parallel_tool_calls,omitempty"`
	Stream             *bool            `json:"stream,omitempty"`
	Metadata           map[string]any   `json:"metadata,omitempty"`
	Store              *bool            `json:"store,omitempty"`
	Include            []string         `json:"include,omitempty"`
	Background         *bool            `json:"background,omitempty"`
	Conversation       json.RawMessage  `json:"conversation,omitempty"`
	PreviousResponseID string           `json:"previous_response_id,omitempty"`
	Reasoning          *ReasoningConfig `json:"reasoning,omitempty"`
	StreamOptions      *StreamOptions   `json:"stream_options,omitempty"`
	MaxToolCalls       *int             `json:"max_tool_calls,omitempty"`
	Text               *TextConfig      `json:"text,omitempty"`
	Prompt             *PromptReference `json:"prompt,omitempty"`
	Truncation         string           `json:"truncation,omitempty"`
	TopLogprobs        *int             `json:"top_logprobs,omitempty"`
	User               string           `json:"user,omitempty"`
	SafetyIdentifier   string           `json:"safety_identifier,omitempty"`
	PromptCacheKey     string           `json:"prompt_cache_key,omitempty"`
	ServiceTier        string           `json:"service_tier,omitempty"`
}

// Input is either a bare string (a single user turn) or an ordered list
// of input items.
type Input struct {
	Text  string
	Items []InputItem

	isString bool
}

// InputText creates a string-form Input.
func InputText(s string) *Input {
	return &Input{Text: s, isString: true}
}

// InputItems creates an item-list Input.
func InputItems(items ...InputItem) *Input {
	return &Input{Items: items}
}

// IsString reports whether the input was the bare-string form.
func (in *Input) IsString() bool {
	return in.isString
}

// UnmarshalJSON accepts either a JSON string or an array of input items.
func (in *Input) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		in.Text = s
		in.Items = nil
		in.isString = true
		return nil
	}

	var items []InputItem
	if err := json.Unmarshal(data, &items); err != nil {
		return fmt.Errorf("input must be a string or an array of items: %w", err)
	}
	in.Text = ""
	in.Items = items
	in.isString = false
	return nil
}

// MarshalJSON serializes the original shape back out.
func (in Input) MarshalJSON() ([]byte, error) {
	if in.isString {
		return json.Marshal(in.Text)
	}
	if in.Items == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(in.Items)
}

// Input item types.
const (
	InputItemMessage            = "message"
	InputItemReasoning          = "reasoning"
	InputItemItemReference      = "item_reference"
	InputItemFunctionCall       = "function_call"
	InputItemFunctionCallOutput = "function_call_output"
)

// InputItem is one element of the input sequence, discriminated by Type.
// Only the fields belonging to the given type are populated.
type InputItem struct {
	Type string `json:"type"`

	// message
	Role    string       `json:"role,omitempty"`
	Content *ItemContent `json:"content,omitempty"`

	// reasoning
	Text             string `json:"text,omitempty"`
	EncryptedContent string `json:"encrypted_content,omitempty"`

	// function_call (also uses Name, Arguments)
	CallID    string `json:"call_id,omitempty"`
	Name      string `json:"name,omitempty"`
	Arguments string `json:"arguments,omitempty"`

	// function_call_output (also uses CallID)
	Output string `json:"output,omitempty"`

	// item_reference
	ID string `json:"id,omitempty"`
}

// ItemContent is message content: either a bare string or a list of
// content parts. A nil Parts slice means the string form was used.
type ItemContent struct {
	Text  string
	Parts []ContentPart
}

// IsString reports whether the content was the bare-string form.
func (c *ItemContent) IsString() bool {
	return c.Parts == nil
}

// UnmarshalJSON accepts either a JSON string or an array of content parts.
func (c *ItemContent) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		c.Text = s
		c.Parts = nil
		return nil
	}

	var parts []ContentPart
	if err := json.Unmarshal(data, &parts); err != nil {
		return fmt.Errorf("content must be a string or an array of parts: %w", err)
	}
	c.Text = ""
	c.Parts = parts
	if c.Parts == nil {
		c.Parts = []ContentPart{}
	}
	return nil
}

// MarshalJSON serializes the original shape back out.
func (c ItemContent) MarshalJSON() ([]byte, error) {
	if c.Parts == nil {
		return json.Marshal(c.Text)
	}
	return json.Marshal(c.Parts)
}

// Content part types.
const (
	PartInputText  = "input_text"
	PartOutputText = "output_text"
	PartInputImage = "input_image"
	PartInputFile  = "input_file"
	PartReasoning  = "reasoning"
)

// ContentPart is one part of message content, discriminated by Type.
type ContentPart struct {
	Type string `json:"type"`

	// input_text / output_text / reasoning
	Text string `json:"text,omitempty"`

	// input_image
	ImageURL *ImageURL `json:"image_url,omitempty"`

	// input_file
	FileID   string `json:"file_id,omitempty"`
	Filename string `json:"filename,omitempty"`
	FileURL  string `json:"file_url,omitempty"`
	FileData string `json:"file_data,omitempty"`

	// reasoning
	EncryptedContent string `json:"encrypted_content,omitempty"`
}

// ImageURL wraps an image location.
type ImageURL struct {
	URL string `json:"url"`
}

// StreamOptions controls streaming behavior.
type StreamOptions struct {
	IncludeObfuscation *bool `json:"include_obfuscation,omitempty"`
}

// ReasoningConfig holds the reasoning knobs from the request.
type ReasoningConfig struct {
	Effort          *string `json:"effort,omitempty"`
	Summary         *string `json:"summary,omitempty"`
	GenerateSummary *string `json:"generate_summary,omitempty"`
}

// TextConfig holds text generation configuration.
type TextConfig struct {
	Format    json.RawMessage `json:"format,omitempty"`
	Verbosity *string         `json:"verbosity,omitempty"`
}

// PromptReference identifies a stored prompt template. The proxy is
// stateless and rejects requests carrying one.
type PromptReference struct {
	ID        string          `json:"id"`
	Version   *string         `json:"version,omitempty"`
	Variables json.RawMessage `json:"variables,omitempty"`
}

// Ptr returns a pointer to v. Handy for optional wire fields.
func Ptr[T any](v T) *T {
	return &v
}
