// Command mock-backend runs a deterministic Chat Completions server
// for exercising the proxy end to end. The scenario is picked from the
// last user message: mention "tool" for a native tool call, "xml" for
// an XML-encoded tool call, "think" for reasoning deltas, "truncate"
// for a length-limited stream; anything else streams plain text.
//
// Configuration:
//
//	MOCK_PORT - Listen port (default: 9090)
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"
)

func main() {
	port := os.Getenv("MOCK_PORT")
	if port == "" {
		port = "9090"
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/chat/completions", handleChatCompletions)
	mux.HandleFunc("GET /v1/models", handleModels)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok\n"))
	})

	srv := &http.Server{Addr: ":" + port, Handler: mux}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("mock backend starting", "port", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("mock backend failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("mock backend shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	srv.Shutdown(shutdownCtx)
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

func handleChatCompletions(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":{"message":"invalid request","type":"invalid_request_error"}}`, http.StatusBadRequest)
		return
	}

	model := req.Model
	if model == "" {
		model = "mock-model"
	}

	if !req.Stream {
		writeNonStreaming(w, model)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	prompt := strings.ToLower(lastUserMessage(&req))
	switch {
	case strings.Contains(prompt, "xml"):
		streamXMLToolCall(w, flusher, model)
	case strings.Contains(prompt, "tool"):
		streamNativeToolCall(w, flusher, model)
	case strings.Contains(prompt, "think"):
		streamReasoning(w, flusher, model)
	case strings.Contains(prompt, "truncate"):
		streamTruncated(w, flusher, model)
	default:
		streamText(w, flusher, model)
	}
}

// writeChunk serializes one chat.completion.chunk frame.
func writeChunk(w http.ResponseWriter, flusher http.Flusher, model string, choice map[string]any, usage map[string]any) {
	chunk := map[string]any{
		"id":      "chatcmpl-mock",
		"object":  "chat.completion.chunk",
		"model":   model,
		"choices": []any{choice},
	}
	if usage != nil {
		chunk["usage"] = usage
	}
	data, _ := json.Marshal(chunk)
	fmt.Fprintf(w, "data: %s\n\n", data)
	flusher.Flush()
}

func deltaChoice(delta map[string]any) map[string]any {
	return map[string]any{"index": 0, "delta": delta, "finish_reason": nil}
}

func finishChoice(reason string) map[string]any {
	return map[string]any{"index": 0, "delta": map[string]any{}, "finish_reason": reason}
}

func usage(prompt, completion int) map[string]any {
	return map[string]any{
		"prompt_tokens":     prompt,
		"completion_tokens": completion,
		"total_tokens":      prompt + completion,
	}
}

func done(w http.ResponseWriter, flusher http.Flusher) {
	fmt.Fprint(w, "data: [DONE]\n\n")
	flusher.Flush()
}

func streamText(w http.ResponseWriter, flusher http.Flusher, model string) {
	writeChunk(w, flusher, model, deltaChoice(map[string]any{"role": "assistant"}), nil)
	for _, token := range []string{"Hello", ", ", "nice", " ", "day", "!"} {
		writeChunk(w, flusher, model, deltaChoice(map[string]any{"content": token}), nil)
	}
	writeChunk(w, flusher, model, finishChoice("stop"), usage(10, 6))
	done(w, flusher)
}

func streamNativeToolCall(w http.ResponseWriter, flusher http.Flusher, model string) {
	writeChunk(w, flusher, model, deltaChoice(map[string]any{
		"tool_calls": []any{map[string]any{
			"index": 0,
			"id":    "call_mock_1",
			"type":  "function",
			"function": map[string]any{
				"name":      "get_weather",
				"arguments": "",
			},
		}},
	}), nil)
	for _, fragment := range []string{`{"location":`, `"San Francisco",`, `"unit":"celsius"}`} {
		writeChunk(w, flusher, model, deltaChoice(map[string]any{
			"tool_calls": []any{map[string]any{
				"index":    0,
				"function": map[string]any{"arguments": fragment},
			}},
		}), nil)
	}
	writeChunk(w, flusher, model, finishChoice("tool_calls"), usage(20, 15))
	done(w, flusher)
}

func streamXMLToolCall(w http.ResponseWriter, flusher http.Flusher, model string) {
	// The tool call arrives as text the way smaller models emit it.
	parts := []string{
		"<function=get_weather>",
		`<parameter=location>Berlin</parameter>`,
		"</function>",
	}
	for _, part := range parts {
		writeChunk(w, flusher, model, deltaChoice(map[string]any{"content": part}), nil)
	}
	writeChunk(w, flusher, model, finishChoice("stop"), usage(18, 12))
	done(w, flusher)
}

func streamReasoning(w http.ResponseWriter, flusher http.Flusher, model string) {
	for _, thought := range []string{"Let me think. ", "The answer is four."} {
		writeChunk(w, flusher, model, deltaChoice(map[string]any{"reasoning_content": thought}), nil)
	}
	for _, token := range []string{"2 + 2", " = 4"} {
		writeChunk(w, flusher, model, deltaChoice(map[string]any{"content": token}), nil)
	}
	writeChunk(w, flusher, model, finishChoice("stop"), usage(12, 9))
	done(w, flusher)
}

func streamTruncated(w http.ResponseWriter, flusher http.Flusher, model string) {
	writeChunk(w, flusher, model, deltaChoice(map[string]any{"content": "This answer was cut"}), nil)
	writeChunk(w, flusher, model, finishChoice("length"), usage(10, 4))
	done(w, flusher)
}

func writeNonStreaming(w http.ResponseWriter, model string) {
	resp := map[string]any{
		"id":     "chatcmpl-mock",
		"object": "chat.completion",
		"model":  model,
		"choices": []any{map[string]any{
			"index": 0,
			"message": map[string]any{
				"role":    "assistant",
				"content": "Hello, nice day!",
			},
			"finish_reason": "stop",
		}},
		"usage": usage(10, 5),
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func handleModels(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"object": "list",
		"data": []any{
			map[string]any{
				"id":               "mock-model",
				"object":           "model",
				"capabilities":     []string{"tools"},
				"input_price_usd":  0.0005,
				"output_price_usd": 0.0015,
			},
			map[string]any{
				"id":     "mock-model-small",
				"object": "model",
			},
		},
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func lastUserMessage(req *chatRequest) string {
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role != "user" {
			continue
		}
		switch v := req.Messages[i].Content.(type) {
		case string:
			return v
		case []any:
			for _, part := range v {
				if m, ok := part.(map[string]any); ok {
					if text, ok := m["text"].(string); ok {
						return text
					}
				}
			}
		}
	}
	return ""
}
