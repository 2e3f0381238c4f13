package api

import "fmt"

// Machine-readable codes returned before a stream is established, and the
// error codes carried by response.failed events.
const (
	CodeInvalidRequestFormat     = "invalid_request_format"
	CodeInvalidRequest           = "invalid_request"
	CodeBackgroundNotSupported   = "background_not_supported"
	CodePromptRefNotSupported    = "prompt_reference_not_supported"
	CodeCircuitOpen              = "backend_unavailable_circuit_open"
	CodeTooManyMessages          = "too_many_messages"
	CodeInvalidMaxTokens         = "invalid_max_tokens"
	CodeInstructionsTooLarge     = "instructions_too_large"
	CodeInputContentTooLarge     = "input_content_too_large"
	CodeInvalidTopLogprobs       = "invalid_top_logprobs"
	CodeMissingAPIKey            = "missing_api_key"
	CodeInvalidAPIKey            = "invalid_api_key"
	CodeBackendError             = "backend_error"
	CodeModelNotFound            = "model_not_found"
)

// RequestError is a validation or gating failure surfaced as an HTTP
// status plus a short machine-readable code, before any SSE stream is
// started.
type RequestError struct {
	Status  int
	Code    string
	Message string
}

// Error implements the error interface.
func (e *RequestError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return e.Code
}

// NewRequestError creates a RequestError.
func NewRequestError(status int, code, message string) *RequestError {
	return &RequestError{Status: status, Code: code, Message: message}
}
