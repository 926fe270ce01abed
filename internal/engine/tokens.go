package engine

import (
	"context"
	"sync"
)

// token is one in-flight mutation.
type token struct {
	cancel context.CancelCauseFunc
}

// tokens tracks in-flight mutations by subject. Starting a mutation on a
// subject cancels whatever mutation currently holds it.
type tokens struct {
	mu       sync.Mutex
	inflight map[string]*token
}

func newTokens() *tokens {
	return &tokens{inflight: make(map[string]*token)}
}

// begin claims subjects for a new mutation and returns its context and a
// release func that must be called when the mutation finishes.
func (t *tokens) begin(ctx context.Context, subjects ...string) (context.Context, func()) {
	ctx, cancel := context.WithCancelCause(ctx)
	tok := &token{cancel: cancel}

	t.mu.Lock()
	for _, s := range subjects {
		if prev, ok := t.inflight[s]; ok && prev != tok {
			prev.cancel(ErrSuperseded)
		}
		t.inflight[s] = tok
	}
	t.mu.Unlock()

	release := func() {
		t.mu.Lock()
		for _, s := range subjects {
			if t.inflight[s] == tok {
				delete(t.inflight, s)
			}
		}
		t.mu.Unlock()
		cancel(nil)
	}
	return ctx, release
}

// pending returns the number of claimed subjects.
func (t *tokens) pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.inflight)
}
