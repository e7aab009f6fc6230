package accounts

import (
	"context"
	"sync"
	"time"
)

// EntityUser is the entity name published for user change events.
const EntityUser = "User"

// SyncAction describes what happened to an entity. Update and Refresh are
// distinct on purpose: Update means data changed, Refresh means downstream
// cached claims must be invalidated.
type SyncAction string

const (
	SyncActionCreate  SyncAction = "create"
	SyncActionUpdate  SyncAction = "update"
	SyncActionRefresh SyncAction = "refresh"
	SyncActionDelete  SyncAction = "delete"
)

// ChangeEvent is the cross-node signal that an entity changed.
type ChangeEvent struct {
	TenantID   string
	EntityName string
	EntityID   string
	Action     SyncAction
	OccurredAt time.Time
}

// ChangeEventPublisher broadcasts entity change events so other nodes can
// invalidate caches and sessions.
type ChangeEventPublisher interface {
	Publish(ctx context.Context, event ChangeEvent) error
}

// ChangeEventPublisherFunc adapts a function to the interface.
type ChangeEventPublisherFunc func(ctx context.Context, event ChangeEvent) error

func (f ChangeEventPublisherFunc) Publish(ctx context.Context, event ChangeEvent) error {
	if f == nil {
		return nil
	}
	return f(ctx, event)
}

type noopChangeEventPublisher struct{}

func (noopChangeEventPublisher) Publish(context.Context, ChangeEvent) error { return nil }

func normalizeChangeEventPublisher(p ChangeEventPublisher) ChangeEventPublisher {
	if p == nil {
		return noopChangeEventPublisher{}
	}
	return p
}

// MemoryChangePublisher fans change events out to in-process subscribers.
// Suitable for single-node deployments; cluster setups should publish to a
// broker instead.
type MemoryChangePublisher struct {
	mu          sync.RWMutex
	subscribers []func(ChangeEvent)
}

// NewMemoryChangePublisher returns an empty in-process publisher.
func NewMemoryChangePublisher() *MemoryChangePublisher {
	return &MemoryChangePublisher{}
}

// Subscribe registers a handler for every subsequent event.
func (p *MemoryChangePublisher) Subscribe(fn func(ChangeEvent)) {
	if fn == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subscribers = append(p.subscribers, fn)
}

// Publish delivers the event synchronously to every subscriber.
func (p *MemoryChangePublisher) Publish(_ context.Context, event ChangeEvent) error {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}

	p.mu.RLock()
	subs := make([]func(ChangeEvent), len(p.subscribers))
	copy(subs, p.subscribers)
	p.mu.RUnlock()

	for _, fn := range subs {
		fn(event)
	}

	return nil
}
