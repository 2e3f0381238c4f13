// Package translate lowers a Responses API request into the flat Chat
// Completions shape the backend understands: instructions become a
// system message, the input item sequence becomes an ordered message
// list with reasoning folded into <think> tags and tool calls attached
// to their assistant message, and only function tools survive.
package translate
