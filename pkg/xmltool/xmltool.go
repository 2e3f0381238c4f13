// Package xmltool recovers tool calls that backends emit as XML-style
// markup inside the text stream instead of native tool-call deltas:
//
//	<function=name>
//	<parameter=key>value</parameter>
//	</function>
//
// Both </function> and </tool_call> close a call.
package xmltool

import (
	"encoding/json"
	"strings"
)

// ParsedCall is one tool call recovered from text. Arguments is a JSON
// object string mapping parameter names to their string values.
type ParsedCall struct {
	Name      string
	Arguments string
}

const (
	openFunction  = "<function="
	closeFunction = "</function>"
	closeToolCall = "</tool_call>"
	openParameter = "<parameter="
	closeParam    = "</parameter>"
)

// ContainsToolCall is a quick case-insensitive heuristic for whether text
// carries XML-style tool call syntax.
func ContainsToolCall(text string) bool {
	normalized := strings.ToLower(text)
	return strings.Contains(normalized, openFunction) ||
		strings.Contains(normalized, closeFunction) ||
		strings.Contains(normalized, "<tool_call") ||
		strings.Contains(normalized, closeToolCall) ||
		strings.Contains(normalized, openParameter)
}

// Extract parses XML-style tool calls out of text. It returns the text
// with the matched spans removed (trimmed) and the calls in the order
// they appeared. A call without a closing tag is left in place so the
// caller can keep buffering until more bytes arrive.
func Extract(text string) (string, []ParsedCall) {
	if !ContainsToolCall(text) {
		return strings.TrimSpace(text), nil
	}

	var calls []ParsedCall
	cleaned := text

	start := 0
	for {
		funcStart := strings.Index(cleaned[start:], openFunction)
		if funcStart < 0 {
			break
		}
		absStart := start + funcStart

		nameStart := absStart + len(openFunction)
		nameLen := strings.IndexByte(cleaned[nameStart:], '>')
		if nameLen < 0 {
			break
		}
		nameEnd := nameStart + nameLen
		name := cleaned[nameStart:nameEnd]

		contentStart := nameEnd + 1
		var endTag int
		if idx := strings.Index(cleaned[contentStart:], closeFunction); idx >= 0 {
			endTag = contentStart + idx + len(closeFunction)
		} else if idx := strings.Index(cleaned[contentStart:], closeToolCall); idx >= 0 {
			endTag = contentStart + idx + len(closeToolCall)
		} else {
			// Incomplete call, resume the scan past this opener.
			start = nameEnd + 1
			continue
		}

		calls = append(calls, ParsedCall{
			Name:      name,
			Arguments: parseParameters(cleaned[contentStart:endTag]),
		})

		cleaned = cleaned[:absStart] + cleaned[endTag:]
		start = absStart
	}

	return strings.TrimSpace(cleaned), calls
}

// parseParameters collects <parameter=key>value</parameter> pairs into a
// JSON object string. Values are trimmed of surrounding whitespace.
func parseParameters(content string) string {
	params := map[string]string{}

	start := 0
	for {
		idx := strings.Index(content[start:], openParameter)
		if idx < 0 {
			break
		}
		nameStart := start + idx + len(openParameter)
		nameLen := strings.IndexByte(content[nameStart:], '>')
		if nameLen < 0 {
			break
		}
		nameEnd := nameStart + nameLen

		valueStart := nameEnd + 1
		valueLen := strings.Index(content[valueStart:], closeParam)
		if valueLen < 0 {
			break
		}
		valueEnd := valueStart + valueLen

		params[content[nameStart:nameEnd]] = strings.TrimSpace(content[valueStart:valueEnd])
		start = valueEnd + len(closeParam)
	}

	out, err := json.Marshal(params)
	if err != nil {
		return "{}"
	}
	return string(out)
}
