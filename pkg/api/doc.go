// Package api defines the wire types for the Responses API surface:
// requests with their nested input items and content parts, the Response
// object, output items, streaming events, and request validation.
//
// Union types (input, tool definitions, tool_choice) implement custom
// JSON marshalling because the wire format accepts multiple shapes for
// the same field.
package api
