// Package events fans committed permission changes out to subscribers so
// open admin views and cached navigation can refresh.
package events

import (
	"context"
	"sync"

	"oncohub.org/internal/access"
)

// Broker delivers changes to in-process subscribers.
type Broker struct {
	mu   sync.RWMutex
	subs map[int]chan access.Change
	next int
	// forward, when set, also ships locally originated changes elsewhere.
	forward func(ctx context.Context, c access.Change)
}

func NewBroker() *Broker {
	return &Broker{subs: make(map[int]chan access.Change)}
}

// Subscribe registers a subscriber. The channel is closed when ctx ends.
func (b *Broker) Subscribe(ctx context.Context) <-chan access.Change {
	ch := make(chan access.Change, 16)

	b.mu.Lock()
	id := b.next
	b.next++
	b.subs[id] = ch
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		delete(b.subs, id)
		close(ch)
		b.mu.Unlock()
	}()

	return ch
}

// Subscribers reports the number of live subscriptions.
func (b *Broker) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Publish delivers c to local subscribers only. Slow subscribers miss
// events rather than block the publisher.
func (b *Broker) Publish(c access.Change) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs {
		select {
		case ch <- c:
		default:
		}
	}
}

// PermissionsChanged implements access.Notifier.
func (b *Broker) PermissionsChanged(ctx context.Context, c access.Change) {
	b.Publish(c)
	b.mu.RLock()
	forward := b.forward
	b.mu.RUnlock()
	if forward != nil {
		forward(ctx, c)
	}
}

var _ access.Notifier = (*Broker)(nil)
