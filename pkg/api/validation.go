package api

import (
	"fmt"
	"log/slog"
	"net/http"
)

// Validation limits for incoming requests.
const (
	MaxInputItems       = 1000
	MaxInstructionsSize = 100 * 1024
	MaxInputContentSize = 5 * 1024 * 1024
	MaxOutputTokenLimit = 100_000
	MaxTopLogprobs      = 20
)

// ValidateRequest checks a parsed request against the proxy's limits and
// the features it refuses to emulate. It returns nil when the request can
// be forwarded.
func ValidateRequest(req *CreateResponseRequest) *RequestError {
	if req.Store != nil && *req.Store {
		slog.Warn("'store' flag requested but persistence is not supported; ignoring")
	}

	if req.Background != nil && *req.Background {
		return NewRequestError(http.StatusBadRequest, CodeBackgroundNotSupported,
			"background responses are not supported by this proxy")
	}

	if req.Prompt != nil {
		return NewRequestError(http.StatusBadRequest, CodePromptRefNotSupported,
			"prompt template references are not supported by this proxy")
	}

	if req.Input != nil && !req.Input.IsString() && len(req.Input.Items) > MaxInputItems {
		return NewRequestError(http.StatusBadRequest, CodeTooManyMessages,
			fmt.Sprintf("input exceeds maximum of %d items", MaxInputItems))
	}

	if req.MaxOutputTokens != nil {
		if *req.MaxOutputTokens < 1 || *req.MaxOutputTokens > MaxOutputTokenLimit {
			return NewRequestError(http.StatusBadRequest, CodeInvalidMaxTokens,
				fmt.Sprintf("max_output_tokens must be between 1 and %d", MaxOutputTokenLimit))
		}
	}

	if len(req.Instructions) > MaxInstructionsSize {
		return NewRequestError(http.StatusBadRequest, CodeInstructionsTooLarge,
			fmt.Sprintf("instructions exceed %d bytes", MaxInstructionsSize))
	}

	if req.Input != nil {
		if size := EstimateInputSize(req.Input); size > MaxInputContentSize {
			return NewRequestError(http.StatusRequestEntityTooLarge, CodeInputContentTooLarge,
				fmt.Sprintf("input content is %d bytes, maximum is %d", size, MaxInputContentSize))
		}
	}

	if req.TopLogprobs != nil && (*req.TopLogprobs < 0 || *req.TopLogprobs > MaxTopLogprobs) {
		return NewRequestError(http.StatusBadRequest, CodeInvalidTopLogprobs,
			fmt.Sprintf("top_logprobs must be between 0 and %d", MaxTopLogprobs))
	}

	return nil
}

// WarnUnsupportedFields logs the request fields the proxy accepts but
// does not act on. Purely advisory; the request proceeds.
func WarnUnsupportedFields(req *CreateResponseRequest) {
	if len(req.Include) > 0 {
		slog.Warn("'include' values are not supported and will be ignored", "include", req.Include)
	}
	if req.StreamOptions != nil && req.StreamOptions.IncludeObfuscation != nil {
		slog.Warn("stream_options.include_obfuscation is not supported")
	}
	if len(req.Conversation) > 0 {
		slog.Warn("conversation references are ignored (proxy is stateless)")
	}
	if req.PreviousResponseID != "" {
		slog.Warn("previous_response_id is ignored (proxy is stateless)")
	}
	if req.Reasoning != nil && (req.Reasoning.Summary != nil || req.Reasoning.GenerateSummary != nil) {
		slog.Warn("reasoning summary preferences are not supported and will be ignored")
	}
	if req.MaxToolCalls != nil {
		slog.Warn("max_tool_calls is not enforced")
	}
	if req.Text != nil && req.Text.Verbosity != nil {
		slog.Warn("text.verbosity is not supported")
	}
	if req.SafetyIdentifier != "" {
		slog.Warn("safety_identifier is not forwarded to the backend")
	}
	if req.PromptCacheKey != "" {
		slog.Warn("prompt_cache_key is not forwarded to the backend")
	}
}

// EstimateInputSize approximates the byte size of the request input by
// summing the lengths of every string it carries. Used to bound memory
// before the upstream call.
func EstimateInputSize(in *Input) int {
	if in.IsString() {
		return len(in.Text)
	}

	total := 0
	for _, item := range in.Items {
		switch item.Type {
		case InputItemMessage:
			total += len(item.Role)
			if item.Content != nil {
				if item.Content.IsString() {
					total += len(item.Content.Text)
				} else {
					for _, part := range item.Content.Parts {
						total += len(part.Text) + len(part.EncryptedContent)
						total += len(part.FileID) + len(part.Filename) + len(part.FileURL) + len(part.FileData)
						if part.ImageURL != nil {
							total += len(part.ImageURL.URL)
						}
					}
				}
			}
		case InputItemReasoning:
			total += len(item.Text) + len(item.EncryptedContent)
		case InputItemItemReference:
			total += len(item.ID)
		case InputItemFunctionCall:
			total += len(item.CallID) + len(item.Name) + len(item.Arguments)
		case InputItemFunctionCallOutput:
			total += len(item.CallID) + len(item.Output)
		}
	}
	return total
}
