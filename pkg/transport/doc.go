// Package transport serves the Responses API over HTTP. It owns request
// decoding and validation, the bearer-token gate, the circuit-breaker
// gate, and the SSE writer loop that drains the stream orchestrator.
package transport
