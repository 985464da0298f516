// Package events is a small synchronous in-process event registry.
// Handlers run on the publishing goroutine in subscription order.
package events

import (
	"context"
	"sync"

	"github.com/zfogg/vlogbook/backend/internal/logger"
	"go.uber.org/zap"
)

// Name identifies an event kind
type Name string

const (
	UserRegistered       Name = "user.registered"
	ProfileAvatarChanged Name = "profile.avatar_changed"
	BlockCreated         Name = "block.created"
	BlockRemoved         Name = "block.removed"
)

// Event is the payload delivered to handlers
type Event interface {
	EventName() Name
}

type UserRegisteredEvent struct {
	UserID string
	Avatar string
}

func (UserRegisteredEvent) EventName() Name { return UserRegistered }

type ProfileAvatarChangedEvent struct {
	UserID string
	Avatar string
}

func (ProfileAvatarChangedEvent) EventName() Name { return ProfileAvatarChanged }

// BlockEvent carries both parties of a block edge
type BlockEvent struct {
	Name      Name
	BlockerID string
	BlockedID string
}

func (e BlockEvent) EventName() Name { return e.Name }

// Handler reacts to one event. A returned error is reported to the publisher.
type Handler func(ctx context.Context, event Event) error

// Bus dispatches events to subscribed handlers
type Bus struct {
	mu       sync.RWMutex
	handlers map[Name][]Handler
}

// NewBus creates an empty bus
func NewBus() *Bus {
	return &Bus{handlers: make(map[Name][]Handler)}
}

// Subscribe registers h for events named name
func (b *Bus) Subscribe(name Name, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[name] = append(b.handlers[name], h)
}

// Publish runs every handler for the event. All handlers run even if one fails;
// the first error is returned.
func (b *Bus) Publish(ctx context.Context, event Event) error {
	if b == nil {
		return nil
	}

	b.mu.RLock()
	handlers := append([]Handler(nil), b.handlers[event.EventName()]...)
	b.mu.RUnlock()

	var firstErr error
	for _, h := range handlers {
		if err := h(ctx, event); err != nil {
			logger.WarnWithFields("Event handler failed", err, zap.String("event", string(event.EventName())))
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
