package audit

import (
	"context"
	"sync"
	"time"
)

// Publisher delivers audit events to a sink.
type Publisher interface {
	Emit(ctx context.Context, event Event) error
	Close() error
}

// MemoryPublisher collects events in memory. Used in tests and as the
// fallback sink when no broker is configured.
type MemoryPublisher struct {
	mu     sync.Mutex
	events []Event
}

// NewMemoryPublisher creates an empty in-memory sink.
func NewMemoryPublisher() *MemoryPublisher {
	return &MemoryPublisher{}
}

// Emit appends the event, stamping the time if unset.
func (p *MemoryPublisher) Emit(_ context.Context, event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

// Events returns a copy of all captured events.
func (p *MemoryPublisher) Events() []Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Event, len(p.events))
	copy(out, p.events)
	return out
}

// Close is a no-op.
func (p *MemoryPublisher) Close() error {
	return nil
}
