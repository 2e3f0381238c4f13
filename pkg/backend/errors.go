package backend

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/kaptinlin/jsonrepair"
)

// MaxErrorBodySize bounds how much of an upstream error body is read.
const MaxErrorBodySize = 10 * 1024

// ReadBoundedError reads an error response body up to MaxErrorBodySize
// bytes. An oversized body gets a "... (truncated)" tail.
func ReadBoundedError(r io.Reader) string {
	body, err := io.ReadAll(io.LimitReader(r, MaxErrorBodySize))
	if err != nil {
		slog.Warn("reading error body failed", "error", err)
	}
	if len(body) == MaxErrorBodySize {
		// Probe one more byte to tell a full read from a truncated one.
		var probe [1]byte
		if n, _ := r.Read(probe[:]); n > 0 {
			slog.Warn("error body exceeded limit, truncating", "limit", MaxErrorBodySize)
			body = append(body, []byte("... (truncated)")...)
		}
	}
	return string(body)
}

// FormatBackendError wraps an upstream error message for delivery to
// the client inside a failure event.
func FormatBackendError(msg string) string {
	return fmt.Sprintf(
		"⚠️ Backend Error:\n\n%s\n\nPlease check your request parameters and try again.",
		msg,
	)
}

// ExtractErrorMessage pulls a human-readable message out of an upstream
// error body. JSON bodies yield error.message (or a top-level message);
// malformed JSON gets one repair attempt before falling back to the raw
// body.
func ExtractErrorMessage(body string) string {
	if msg, ok := errorMessageFromJSON(body); ok {
		return msg
	}
	repaired, err := jsonrepair.JSONRepair(body)
	if err == nil {
		if msg, ok := errorMessageFromJSON(repaired); ok {
			return msg
		}
	}
	return body
}

func errorMessageFromJSON(body string) (string, bool) {
	var envelope struct {
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal([]byte(body), &envelope); err != nil {
		return "", false
	}
	if envelope.Error != nil && envelope.Error.Message != "" {
		return envelope.Error.Message, true
	}
	if envelope.Message != "" {
		return envelope.Message, true
	}
	return "", false
}
