package events

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// SSEWriter writes Server-Sent Events to an http.ResponseWriter.
// Call Init once before writing any events to set the required headers.
type SSEWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

// NewSSEWriter wraps w. If w is not an http.Flusher, writes still succeed
// but may be buffered.
func NewSSEWriter(w http.ResponseWriter) *SSEWriter {
	f, _ := w.(http.Flusher)
	return &SSEWriter{w: w, flusher: f}
}

// Init sets the SSE response headers and flushes them to the client.
func (sw *SSEWriter) Init() {
	h := sw.w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	sw.w.WriteHeader(http.StatusOK)
	sw.flush()
}

// WriteEvent writes ev as one frame:
//
//	id: <event id>
//	event: <kind>
//	data: <json>
func (sw *SSEWriter) WriteEvent(ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("sse: marshal event: %w", err)
	}
	if _, err := fmt.Fprintf(sw.w, "id: %s\nevent: %s\ndata: %s\n\n", ev.ID, ev.Kind, data); err != nil {
		return fmt.Errorf("sse: write event: %w", err)
	}
	sw.flush()
	return nil
}

func (sw *SSEWriter) flush() {
	if sw.flusher != nil {
		sw.flusher.Flush()
	}
}

// StreamHandler serves the broadcaster's events as an SSE stream until the
// client disconnects or the broadcaster closes.
func StreamHandler(b *Broadcaster) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sub, cancel := b.Subscribe()
		defer cancel()

		sw := NewSSEWriter(w)
		sw.Init()
		for {
			select {
			case <-r.Context().Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				if err := sw.WriteEvent(ev); err != nil {
					b.logger.Debug("sse client gone", zap.Error(err))
					return
				}
			}
		}
	})
}

// maxEventLine bounds a single line of the stream.
const maxEventLine = 4 << 20

// Frame is one event read from an SSE stream. Err is set when the frame's
// data was not a valid event.
type Frame struct {
	Event Event
	Err   error
}

// ReadEvents parses an SSE stream from body and delivers each frame on the
// returned channel. The channel closes when the body is exhausted, a read
// fails, or ctx is cancelled; body is closed when reading finishes. A failed
// read, such as a line longer than maxEventLine, is delivered as a final
// frame carrying Err.
//
// Only data lines are interpreted. Multiple data lines in one frame are
// joined with newlines; comments and other fields are ignored.
func ReadEvents(ctx context.Context, body io.ReadCloser) <-chan Frame {
	ch := make(chan Frame)
	go func() {
		defer close(ch)
		defer body.Close()
		// Unblocks a Scan waiting on a quiet stream.
		stop := context.AfterFunc(ctx, func() { _ = body.Close() })
		defer stop()

		scanner := bufio.NewScanner(body)
		scanner.Buffer(make([]byte, 0, 64*1024), maxEventLine)
		var data strings.Builder
		for {
			select {
			case <-ctx.Done():
				return
			default:
			}

			if !scanner.Scan() {
				if data.Len() > 0 {
					emit(ctx, ch, data.String())
				}
				if err := scanner.Err(); err != nil && ctx.Err() == nil {
					send(ctx, ch, Frame{Err: fmt.Errorf("sse: read: %w", err)})
				}
				return
			}

			line := scanner.Text()
			switch {
			case line == "":
				if data.Len() > 0 {
					emit(ctx, ch, data.String())
					data.Reset()
				}
			case strings.HasPrefix(line, "data:"):
				if data.Len() > 0 {
					data.WriteByte('\n')
				}
				data.WriteString(strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
			}
		}
	}()
	return ch
}

func emit(ctx context.Context, ch chan<- Frame, raw string) {
	var f Frame
	if err := json.Unmarshal([]byte(raw), &f.Event); err != nil {
		f = Frame{Err: fmt.Errorf("sse: unmarshal event: %w", err)}
	}
	send(ctx, ch, f)
}

func send(ctx context.Context, ch chan<- Frame, f Frame) {
	select {
	case ch <- f:
	case <-ctx.Done():
	}
}
