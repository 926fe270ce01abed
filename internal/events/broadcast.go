package events

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
)

// Broadcaster fans events out to in-process subscribers, such as open
// /events streams. A subscriber whose buffer is full misses the event; the
// publisher never blocks on a slow reader.
type Broadcaster struct {
	mu     sync.Mutex
	subs   map[chan Event]struct{}
	buffer int
	closed bool
	logger *zap.Logger
}

// Compile-time check that Broadcaster satisfies Publisher.
var _ Publisher = (*Broadcaster)(nil)

// NewBroadcaster creates a Broadcaster whose subscribers each buffer up to
// buffer events.
func NewBroadcaster(buffer int, logger *zap.Logger) *Broadcaster {
	if buffer <= 0 {
		buffer = 16
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Broadcaster{
		subs:   make(map[chan Event]struct{}),
		buffer: buffer,
		logger: logger.Named("broadcast"),
	}
}

// Subscribe registers a subscriber. The returned cancel func unregisters it
// and closes the channel; it is safe to call more than once. After Close,
// Subscribe returns an already closed channel.
func (b *Broadcaster) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, b.buffer)

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(ch)
		return ch, func() {}
	}
	b.subs[ch] = struct{}{}

	return ch, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if _, ok := b.subs[ch]; ok {
			delete(b.subs, ch)
			close(ch)
		}
	}
}

// Subscribers returns the number of registered subscribers.
func (b *Broadcaster) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Publish delivers ev to every subscriber with room for it.
func (b *Broadcaster) Publish(_ context.Context, ev Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return errors.New("broadcast: closed")
	}
	for ch := range b.subs {
		select {
		case ch <- ev:
		default:
			b.logger.Warn("subscriber too slow, dropping event",
				zap.String("kind", string(ev.Kind)),
				zap.String("id", ev.ID))
		}
	}
	return nil
}

// Close unregisters and closes every subscriber.
func (b *Broadcaster) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	for ch := range b.subs {
		delete(b.subs, ch)
		close(ch)
	}
	return nil
}

// Multi publishes to every Publisher in order. All are attempted even when
// one fails.
type Multi []Publisher

// Compile-time check that Multi satisfies Publisher.
var _ Publisher = Multi(nil)

func (m Multi) Publish(ctx context.Context, ev Event) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m Multi) Close() error {
	var errs []error
	for _, p := range m {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
