// Package dump writes per-request debugging artifacts to disk: the
// incoming request body, the translated backend request, every raw
// backend chunk, and every client-bound event. Writes are best-effort;
// failures are logged and never affect the request.
package dump

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// Sink writes dump files into a directory. A nil Sink discards
// everything, so callers can hold one unconditionally.
type Sink struct {
	dir string
}

// New builds a Sink rooted at dir, creating it if needed. It returns
// nil when enabled is false; directory creation failure disables the
// sink with a warning.
func New(enabled bool, dir string) *Sink {
	if !enabled {
		return nil
	}
	if dir == "" {
		dir = "logs"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		slog.Warn("failed to create dump directory, dumps disabled", "dir", dir, "error", err)
		return nil
	}
	slog.Info("dump directory initialized", "dir", dir)
	return &Sink{dir: dir}
}

// Request dumps the raw client request body.
func (s *Sink) Request(body, requestID string) {
	if s == nil {
		return
	}
	s.write(fmt.Sprintf("%s_request_%s.json", stamp(), requestID), pretty(body))
}

// BackendRequest dumps the translated request sent upstream.
func (s *Sink) BackendRequest(body, requestID string) {
	if s == nil {
		return
	}
	s.write(fmt.Sprintf("%s_backend_request_%s.json", stamp(), requestID), pretty(body))
}

// BackendChunk dumps one raw upstream payload.
func (s *Sink) BackendChunk(chunk, requestID string, n uint32) {
	if s == nil {
		return
	}
	s.write(fmt.Sprintf("%s_backend_chunk_%s_%04d.txt", stamp(), requestID, n), chunk)
}

// StreamEvent dumps one serialized client-bound event.
func (s *Sink) StreamEvent(event, requestID string, sequence uint32) {
	if s == nil {
		return
	}
	s.write(fmt.Sprintf("%s_stream_%s_%04d.json", stamp(), requestID, sequence), pretty(event))
}

func (s *Sink) write(name, content string) {
	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		slog.Warn("failed to write dump file", "path", path, "error", err)
	}
}

func stamp() string {
	return time.Now().UTC().Format("20060102_150405.000")
}

// pretty re-indents JSON content, passing non-JSON through unchanged.
func pretty(body string) string {
	var v any
	if err := json.Unmarshal([]byte(body), &v); err != nil {
		return body
	}
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return body
	}
	return string(out)
}
