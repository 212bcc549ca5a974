// Package eventlog keeps a bounded log of recent webhook events for debugging.
package eventlog

import (
	"context"
	"sync"

	"wa-relay-server/internal/models"
)

// DefaultCapacity is used when a non-positive capacity is configured.
const DefaultCapacity = 100

// Log stores the most recent webhook events, dropping the oldest.
type Log interface {
	Record(ctx context.Context, ev models.WebhookEvent) error
	// Recent returns up to n events, newest first.
	Recent(ctx context.Context, n int) ([]models.WebhookEvent, error)
}

// RingBuffer is an in-memory Log.
type RingBuffer struct {
	mu     sync.Mutex
	events []models.WebhookEvent
	next   int
	full   bool
}

func NewRingBuffer(capacity int) *RingBuffer {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &RingBuffer{events: make([]models.WebhookEvent, capacity)}
}

func (b *RingBuffer) Record(_ context.Context, ev models.WebhookEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.events[b.next] = ev
	b.next = (b.next + 1) % len(b.events)
	if b.next == 0 {
		b.full = true
	}
	return nil
}

func (b *RingBuffer) Recent(_ context.Context, n int) ([]models.WebhookEvent, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	size := b.next
	if b.full {
		size = len(b.events)
	}
	if n <= 0 || n > size {
		n = size
	}

	out := make([]models.WebhookEvent, 0, n)
	for i := 1; i <= n; i++ {
		idx := (b.next - i + len(b.events)) % len(b.events)
		out = append(out, b.events[idx])
	}
	return out, nil
}
