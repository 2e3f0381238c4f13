package api

import "encoding/json"

// Status is the lifecycle status of a response or output item.
type Status string

const (
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusIncomplete Status = "incomplete"
	StatusFailed     Status = "failed"
)

// Response is the Responses API response object, embedded in the
// response.created, response.completed and response.failed events.
// It echoes back the request parameters it was created from.
type Response struct {
	ID                 string             `json:"id"`
	Object             string             `json:"object"`
	CreatedAt          int64              `json:"created_at"`
	Status             Status             `json:"status"`
	Error              *ResponseError     `json:"error,omitempty"`
	IncompleteDetails  *IncompleteDetails `json:"incomplete_details,omitempty"`
	Model              string             `json:"model,omitempty"`
	Output             []OutputItem       `json:"output"`
	Usage              *Usage             `json:"usage,omitempty"`
	Metadata           map[string]any     `json:"metadata,omitempty"`
	Instructions       *string            `json:"instructions,omitempty"`
	Tools              []Tool             `json:"tools,omitempty"`
	ToolChoice         *ToolChoice        `json:"tool_choice,omitempty"`
	ParallelToolCalls  *bool              `json:"parallel_tool_calls,omitempty"`
	Temperature        *float64           `json:"temperature,omitempty"`
	TopP               *float64           `json:"top_p,omitempty"`
	MaxOutputTokens    *int               `json:"max_output_tokens,omitempty"`
	Store              *bool              `json:"store,omitempty"`
	PreviousResponseID *string            `json:"previous_response_id,omitempty"`
	Reasoning          *ReasoningState    `json:"reasoning,omitempty"`
	Background         *bool              `json:"background,omitempty"`
	MaxToolCalls       *int               `json:"max_tool_calls,omitempty"`
	Text               *TextConfig        `json:"text,omitempty"`
	Prompt             *PromptReference   `json:"prompt,omitempty"`
	Truncation         *string            `json:"truncation,omitempty"`
	Conversation       json.RawMessage    `json:"conversation,omitempty"`
	TopLogprobs        *int               `json:"top_logprobs,omitempty"`
	User               *string            `json:"user,omitempty"`
	SafetyIdentifier   *string            `json:"safety_identifier,omitempty"`
	PromptCacheKey     *string            `json:"prompt_cache_key,omitempty"`
	ServiceTier        *string            `json:"service_tier,omitempty"`
}

// ResponseError describes why a response failed.
type ResponseError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// IncompleteDetails explains why a response is incomplete.
type IncompleteDetails struct {
	Reason string `json:"reason"`
}

// ReasoningState is the reasoning configuration echoed in the response.
type ReasoningState struct {
	Effort  *string `json:"effort"`
	Summary *string `json:"summary"`
}

// ReasoningStateFrom derives the echoed state from the request config.
func ReasoningStateFrom(cfg *ReasoningConfig) *ReasoningState {
	if cfg == nil {
		return nil
	}
	return &ReasoningState{Effort: cfg.Effort, Summary: cfg.Summary}
}

// Wire object identifiers.
const (
	ObjectResponse     = "response"
	ObjectRealtimeItem = "realtime.item"
)

// Output item types.
const (
	OutputItemMessage      = "message"
	OutputItemFunctionCall = "function_call"
	OutputItemReasoning    = "reasoning"
)

// OutputItem is one logical unit of the response output: a message, a
// function call, or a reasoning block.
type OutputItem struct {
	ID     string `json:"id"`
	Object string `json:"object"`
	Type   string `json:"type"`
	Status Status `json:"status"`

	// message / reasoning
	Role    string          `json:"role,omitempty"`
	Content []OutputContent `json:"content,omitempty"`

	// function_call
	CallID    string  `json:"call_id,omitempty"`
	Name      string  `json:"name,omitempty"`
	Arguments *string `json:"arguments,omitempty"`
}

// MarshalJSON keeps a non-nil empty Content as [] on the wire. The
// preamble message item announces an empty content list that clients
// expect to see.
func (it OutputItem) MarshalJSON() ([]byte, error) {
	type wire struct {
		ID        string          `json:"id"`
		Object    string          `json:"object"`
		Type      string          `json:"type"`
		Status    Status          `json:"status"`
		Role      string          `json:"role,omitempty"`
		Content   json.RawMessage `json:"content,omitempty"`
		CallID    string          `json:"call_id,omitempty"`
		Name      string          `json:"name,omitempty"`
		Arguments *string         `json:"arguments,omitempty"`
	}
	w := wire{
		ID: it.ID, Object: it.Object, Type: it.Type, Status: it.Status,
		Role: it.Role, CallID: it.CallID, Name: it.Name, Arguments: it.Arguments,
	}
	if it.Content != nil {
		content, err := json.Marshal(it.Content)
		if err != nil {
			return nil, err
		}
		w.Content = content
	}
	return json.Marshal(w)
}

// OutputContent is one part of an output item's content.
type OutputContent struct {
	Type        string            `json:"type"`
	Text        string            `json:"text"`
	Annotations []json.RawMessage `json:"annotations,omitempty"`
}

// OutputTextContent builds an output_text part with an empty annotation list.
func OutputTextContent(text string) OutputContent {
	return OutputContent{Type: "output_text", Text: text, Annotations: []json.RawMessage{}}
}

// ReasoningContent builds a reasoning content part.
func ReasoningContent(text string) OutputContent {
	return OutputContent{Type: "reasoning", Text: text}
}

// Usage holds token usage for a response.
type Usage struct {
	InputTokens         int           `json:"input_tokens"`
	OutputTokens        int           `json:"output_tokens"`
	TotalTokens         int           `json:"total_tokens"`
	InputTokensDetails  *TokenDetails `json:"input_tokens_details,omitempty"`
	OutputTokensDetails *TokenDetails `json:"output_tokens_details,omitempty"`
}

// TokenDetails is the per-direction token breakdown. The backend protocol
// does not report these, so they are zero-filled.
type TokenDetails struct {
	CachedTokens    int `json:"cached_tokens"`
	ReasoningTokens int `json:"reasoning_tokens"`
}
