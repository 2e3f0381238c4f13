package backend

import (
	"bytes"
	"strings"
)

// FrameParser reassembles SSE event payloads from arbitrary byte
// chunks. It keeps a buffer across Push calls so events that straddle
// chunk boundaries come out whole. A payload is the newline-join of the
// `data:` values in one event, terminated by a blank line; lines that
// are not `data:` (comments, event:, id:, retry:) are ignored. The
// `[DONE]` sentinel is yielded verbatim for the caller to act on.
//
// The zero value is ready to use. Not safe for concurrent use.
type FrameParser struct {
	buf     []byte
	pending []string
	sawData bool
}

// Push feeds the next chunk of bytes and returns the payloads of all
// events completed by it, in order.
func (p *FrameParser) Push(chunk []byte) []string {
	p.buf = append(p.buf, chunk...)

	var payloads []string
	for {
		nl := bytes.IndexByte(p.buf, '\n')
		if nl < 0 {
			break
		}
		line := bytes.TrimSuffix(p.buf[:nl], []byte("\r"))
		p.buf = p.buf[nl+1:]

		if len(line) == 0 {
			// Blank line terminates the event.
			if p.sawData {
				payloads = append(payloads, strings.Join(p.pending, "\n"))
			}
			p.pending = nil
			p.sawData = false
			continue
		}

		value, ok := bytes.CutPrefix(line, []byte("data:"))
		if !ok {
			continue
		}
		p.pending = append(p.pending, strings.TrimLeft(string(value), " \t"))
		p.sawData = true
	}
	return payloads
}

// Flush drains whatever the buffer still holds once the upstream body
// is exhausted. It completes an event that was missing its terminating
// blank line, and hands back a bare (non-SSE) body so JSON error
// responses on a 200 status still reach the caller.
func (p *FrameParser) Flush() []string {
	var payloads []string

	if len(p.buf) > 0 {
		line := bytes.TrimSuffix(p.buf, []byte("\r"))
		if value, ok := bytes.CutPrefix(line, []byte("data:")); ok {
			p.pending = append(p.pending, strings.TrimLeft(string(value), " \t"))
			p.sawData = true
		} else if !p.sawData {
			if trimmed := strings.TrimSpace(string(p.buf)); trimmed != "" {
				payloads = append(payloads, trimmed)
			}
		}
		p.buf = nil
	}

	if p.sawData {
		payloads = append(payloads, strings.Join(p.pending, "\n"))
	}
	p.pending = nil
	p.sawData = false
	return payloads
}
