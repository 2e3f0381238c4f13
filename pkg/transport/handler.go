package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/weiche-dev/weiche/pkg/api"
	"github.com/weiche-dev/weiche/pkg/auth"
	"github.com/weiche-dev/weiche/pkg/backend"
	"github.com/weiche-dev/weiche/pkg/breaker"
	"github.com/weiche-dev/weiche/pkg/dump"
	"github.com/weiche-dev/weiche/pkg/modelcache"
	"github.com/weiche-dev/weiche/pkg/observability"
	"github.com/weiche-dev/weiche/pkg/stream"
	"github.com/weiche-dev/weiche/pkg/translate"
)

// MaxRequestBodySize bounds the raw request body read.
const MaxRequestBodySize = 10 << 20

// Handler serves the Responses endpoint and the health probe.
type Handler struct {
	client  *backend.Client
	cache   *modelcache.Cache
	breaker *breaker.Breaker
	gate    *auth.Gate
	sink    *dump.Sink
}

// NewHandler wires the handler's collaborators. gate and sink may be nil.
func NewHandler(client *backend.Client, cache *modelcache.Cache, brk *breaker.Breaker, gate *auth.Gate, sink *dump.Sink) *Handler {
	return &Handler{
		client:  client,
		cache:   cache,
		breaker: brk,
		gate:    gate,
		sink:    sink,
	}
}

// Register mounts the handler's routes on mux. The responses endpoint is
// served under both /v1/responses and /responses.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /v1/responses", h.handleResponses)
	mux.HandleFunc("POST /responses", h.handleResponses)
	mux.HandleFunc("GET /health", h.handleHealth)
}

// handleResponses validates and translates the request, then streams the
// translated backend response as SSE. Every outcome past validation is
// an HTTP 200 SSE stream; failures become a response.failed event.
func (h *Handler) handleResponses(w http.ResponseWriter, r *http.Request) {
	requestID := api.NewRequestID()
	traceID := RequestIDFromContext(r.Context())

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxRequestBodySize))
	if err != nil {
		writeError(w, api.NewRequestError(http.StatusUnprocessableEntity,
			api.CodeInvalidRequestFormat, "failed to read request body: "+err.Error()))
		return
	}
	h.sink.Request(string(body), requestID)

	var req api.CreateResponseRequest
	if err := json.Unmarshal(body, &req); err != nil {
		slog.Warn("failed to parse request body",
			"request_id", requestID, "trace_id", traceID, "error", err)
		writeError(w, api.NewRequestError(http.StatusUnprocessableEntity,
			api.CodeInvalidRequestFormat, "invalid request body: "+err.Error()))
		return
	}

	api.WarnUnsupportedFields(&req)
	if verr := api.ValidateRequest(&req); verr != nil {
		writeError(w, verr)
		return
	}

	token, ok := auth.BearerToken(r)
	if !ok {
		writeError(w, api.NewRequestError(http.StatusUnauthorized,
			api.CodeMissingAPIKey, "missing bearer token"))
		return
	}
	if err := h.gate.Validate(token); err != nil {
		slog.Warn("rejected bearer token",
			"request_id", requestID, "trace_id", traceID, "token", auth.MaskToken(token))
		writeError(w, api.NewRequestError(http.StatusUnauthorized,
			api.CodeInvalidAPIKey, "invalid bearer token"))
		return
	}

	model := h.cache.Normalize(req.Model)
	req.Model = model
	if len(req.Tools) > 0 {
		if supported, known := h.cache.SupportsTools(model); known && !supported {
			slog.Warn("model does not advertise tool support", "model", model)
		}
	}

	chatReq, err := translate.ToChat(&req)
	if err != nil {
		writeError(w, api.NewRequestError(http.StatusBadRequest,
			api.CodeInvalidRequest, err.Error()))
		return
	}
	chatReq.Stream = true

	// The breaker gate comes last: once a half-open probe slot is
	// claimed it is only released by Record{Success,Failure} after the
	// backend call, so no validation or auth return may follow Allow.
	if !h.breaker.Allow() {
		observability.BackendRequestsTotal.WithLabelValues("rejected").Inc()
		writeError(w, api.NewRequestError(http.StatusServiceUnavailable,
			api.CodeCircuitOpen, "backend is unavailable, retry later"))
		return
	}

	if dumpBody, err := json.Marshal(chatReq); err == nil {
		h.sink.BackendRequest(string(dumpBody), requestID)
	}

	h.streamResponse(w, r, requestID, model, &req, chatReq, token)
}

// streamResponse performs the backend call and drains the orchestrator
// into the client connection.
func (h *Handler) streamResponse(w http.ResponseWriter, r *http.Request, requestID, model string, req *api.CreateResponseRequest, chatReq *backend.ChatRequest, token string) {
	ctx := r.Context()
	traceID := RequestIDFromContext(ctx)
	start := time.Now()

	writeSSEHeaders(w)
	rc := http.NewResponseController(w)

	observability.StreamingConnections.Inc()
	defer observability.StreamingConnections.Dec()

	resp, err := h.client.ChatCompletions(ctx, chatReq, token)
	if err != nil {
		slog.Error("backend connection failed",
			"request_id", requestID, "trace_id", traceID, "error", err)
		h.failStream(ctx, w, rc, requestID, model, api.CodeBackendError,
			backend.FormatBackendError("Failed to connect to backend: "+err.Error()))
		h.recordOutcome(false, model, start)
		return
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		errBody := backend.ReadBoundedError(resp.Body)
		resp.Body.Close()
		slog.Error("backend returned error status",
			"request_id", requestID, "trace_id", traceID, "status", resp.StatusCode)

		code := api.CodeBackendError
		message := backend.FormatBackendError(backend.ExtractErrorMessage(errBody))
		if resp.StatusCode == http.StatusNotFound {
			if models := h.cache.Models(ctx, token); len(models) > 0 {
				code = api.CodeModelNotFound
				message = modelcache.FormatModelList(model, models)
			}
		}
		h.failStream(ctx, w, rc, requestID, model, code, message)
		h.recordOutcome(false, model, start)
		return
	}
	defer resp.Body.Close()

	out := make(chan string, stream.EventChannelSize)
	statusCh := make(chan api.Status, 1)
	go func() {
		statusCh <- stream.Orchestrate(ctx, stream.Config{
			RequestID: requestID,
			Model:     model,
			Request:   req,
			OnEvent: func(payload string, sequence uint32) {
				h.sink.StreamEvent(payload, requestID, sequence)
			},
			OnChunk: func(data string, n uint32) {
				h.sink.BackendChunk(data, requestID, n)
			},
		}, resp.Body, out)
		close(out)
	}()

	writable := true
	for payload := range out {
		if !writable {
			continue
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
			slog.Debug("client write failed, draining stream", "request_id", requestID, "error", err)
			writable = false
			continue
		}
		if err := rc.Flush(); err != nil {
			writable = false
		}
	}

	status := <-statusCh
	h.recordOutcome(status != api.StatusFailed, model, start)
	slog.Info("stream finished",
		"request_id", requestID, "trace_id", traceID, "model", model,
		"status", status, "duration", time.Since(start))
}

// failStream replaces a normal stream with a single response.failed
// event on the already-established SSE connection.
func (h *Handler) failStream(ctx context.Context, w http.ResponseWriter, rc *http.ResponseController, requestID, model, code, message string) {
	out := make(chan string, 1)
	stream.SendFailure(ctx, out, model, code, message, func(payload string, sequence uint32) {
		h.sink.StreamEvent(payload, requestID, sequence)
	})
	close(out)
	for payload := range out {
		if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
			return
		}
		rc.Flush()
	}
}

// recordOutcome feeds the breaker and the backend metrics after one
// backend interaction.
func (h *Handler) recordOutcome(success bool, model string, start time.Time) {
	if success {
		h.breaker.RecordSuccess()
		observability.BackendRequestsTotal.WithLabelValues("success").Inc()
	} else {
		h.breaker.RecordFailure()
		observability.BackendRequestsTotal.WithLabelValues("error").Inc()
	}
	observability.BackendLatency.WithLabelValues(model).Observe(time.Since(start).Seconds())

	if h.breaker.Snapshot().IsOpen {
		observability.BreakerOpen.Set(1)
	} else {
		observability.BreakerOpen.Set(0)
	}
}

// writeSSEHeaders establishes the SSE response. Headers go out with the
// first body write as HTTP 200.
func writeSSEHeaders(w http.ResponseWriter) {
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
}

// handleHealth reports liveness plus the breaker state. An open breaker
// turns the probe into a 503 so load balancers can rotate traffic away.
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	snap := h.breaker.Snapshot()

	status := http.StatusOK
	text := "ok"
	if snap.Enabled && snap.IsOpen {
		status = http.StatusServiceUnavailable
		text = "degraded"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"status":  text,
		"breaker": snap,
	})
}
