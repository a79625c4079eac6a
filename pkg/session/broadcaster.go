package session

import (
	"log/slog"
	"sync"

	"github.com/aretw0/lemon/pkg/domain"
)

const subscriberBuffer = 16

type subscriber struct {
	ch chan domain.ChangeEvent
}

// Broadcaster fans out change events to the subscribers of a session.
// Delivery follows registration order. Sends never block: a subscriber whose
// buffer is full misses the event.
type Broadcaster struct {
	mu          sync.RWMutex
	subscribers map[string][]*subscriber
	logger      *slog.Logger
}

// NewBroadcaster creates an empty broadcaster.
func NewBroadcaster(logger *slog.Logger) *Broadcaster {
	return &Broadcaster{
		subscribers: make(map[string][]*subscriber),
		logger:      logger,
	}
}

// Subscribe registers a listener for sessionID.
func (b *Broadcaster) Subscribe(sessionID string) (<-chan domain.ChangeEvent, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := &subscriber{ch: make(chan domain.ChangeEvent, subscriberBuffer)}
	b.subscribers[sessionID] = append(b.subscribers[sessionID], sub)

	var once sync.Once
	return sub.ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()

			subs := b.subscribers[sessionID]
			for i, s := range subs {
				if s == sub {
					subs = append(subs[:i], subs[i+1:]...)
					break
				}
			}
			if len(subs) == 0 {
				delete(b.subscribers, sessionID)
			} else {
				b.subscribers[sessionID] = subs
			}
			close(sub.ch)
		})
	}
}

// Publish delivers ev to every subscriber of ev.SessionID.
func (b *Broadcaster) Publish(ev domain.ChangeEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, sub := range b.subscribers[ev.SessionID] {
		select {
		case sub.ch <- ev:
		default:
			b.logger.Warn("Subscriber buffer full, dropping change event",
				"session_id", ev.SessionID, "kind", ev.Kind)
		}
	}
}

// Count returns the number of subscribers of sessionID.
func (b *Broadcaster) Count(sessionID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers[sessionID])
}
