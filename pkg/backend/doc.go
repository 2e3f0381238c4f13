// Package backend talks to the upstream Chat Completions service.
//
// It carries the wire types for requests and streamed chunks, an SSE
// frame parser that reassembles `data:` payloads from arbitrary byte
// chunks, and an HTTP client that forwards the caller's bearer token
// verbatim. Error bodies are read with a size bound and formatted into
// messages suitable for a client-facing failure event.
package backend
