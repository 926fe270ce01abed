package events

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSSEWriter_Format(t *testing.T) {
	rec := httptest.NewRecorder()
	w := NewSSEWriter(rec)
	w.Init()

	ev := New(SystemDeleted, "Gateway", nil)
	require.NoError(t, w.WriteEvent(ev))

	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.Equal(t, "no-cache", rec.Header().Get("Cache-Control"))

	body := rec.Body.String()
	assert.True(t, strings.HasPrefix(body, "id: "+ev.ID+"\nevent: system.deleted\ndata: {"), body)
	assert.True(t, strings.HasSuffix(body, "}\n\n"))
}

func TestReadEvents(t *testing.T) {
	pr, pw := io.Pipe()
	go func() {
		defer pw.Close()
		fmt.Fprint(pw, ": keep-alive\n")
		fmt.Fprint(pw, "event: system.created\ndata: {\"id\":\"e1\",\"kind\":\"system.created\",\"subject\":\"A\"}\n\n")
		fmt.Fprint(pw, "data: {not json}\n\n")
		fmt.Fprint(pw, "data:{\"id\":\"e2\",\"kind\":\"system.deleted\",\n")
		fmt.Fprint(pw, "data: \"subject\":\"B\"}\n\n")
	}()

	ch := ReadEvents(context.Background(), pr)

	f := <-ch
	require.NoError(t, f.Err)
	assert.Equal(t, "e1", f.Event.ID)
	assert.Equal(t, SystemCreated, f.Event.Kind)
	assert.Equal(t, "A", f.Event.Subject)

	f = <-ch
	require.Error(t, f.Err)
	assert.Contains(t, f.Err.Error(), "unmarshal")

	f = <-ch
	require.NoError(t, f.Err, "multi-line data is joined")
	assert.Equal(t, "B", f.Event.Subject)

	_, open := <-ch
	assert.False(t, open, "channel closes when the body is exhausted")
}

func TestReadEvents_LongLines(t *testing.T) {
	big := strings.Repeat("x", 256*1024)
	stream := fmt.Sprintf("data: {\"id\":\"e1\",\"subject\":\"A\",\"payload\":\"%s\"}\n\n", big)
	stream += "data: " + strings.Repeat("y", maxEventLine+1) + "\n\n"

	ch := ReadEvents(context.Background(), io.NopCloser(strings.NewReader(stream)))

	f := <-ch
	require.NoError(t, f.Err, "a line above the default scanner limit still parses")
	assert.Equal(t, "A", f.Event.Subject)
	assert.Equal(t, big, f.Event.Payload)

	f = <-ch
	require.Error(t, f.Err)
	assert.Contains(t, f.Err.Error(), "sse: read")

	_, open := <-ch
	assert.False(t, open)
}

func TestReadEvents_ContextCancellation(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()

	ctx, cancel := context.WithCancel(context.Background())
	ch := ReadEvents(ctx, pr)
	cancel()

	select {
	case _, open := <-ch:
		assert.False(t, open)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for channel to close after context cancellation")
	}
}

func TestStreamHandler(t *testing.T) {
	b := NewBroadcaster(8, nil)
	srv := httptest.NewServer(StreamHandler(b))
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// The handler subscribes before writing headers.
	require.Eventually(t, func() bool { return b.Subscribers() == 1 }, 2*time.Second, 10*time.Millisecond)

	ev := New(InterfaceCreated, "iface-1", map[string]any{"id": "iface-1"})
	require.NoError(t, b.Publish(context.Background(), ev))

	frames := ReadEvents(ctx, resp.Body)
	f := <-frames
	require.NoError(t, f.Err)
	assert.Equal(t, ev.ID, f.Event.ID)
	assert.Equal(t, InterfaceCreated, f.Event.Kind)
	assert.Equal(t, "iface-1", f.Event.Subject)

	require.NoError(t, b.Close())
	_, open := <-frames
	assert.False(t, open, "closing the broadcaster ends the stream")
}
