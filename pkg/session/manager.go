package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/lemon/internal/logging"
	"github.com/aretw0/lemon/pkg/domain"
	"github.com/aretw0/lemon/pkg/ports"
)

const defaultLockTTL = 10 * time.Second

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager owns session handles and serializes access per session.
// Unused locks are garbage collected by reference counting.
type Manager struct {
	storage ports.Storage
	events  *Broadcaster

	mu    sync.Mutex
	locks map[string]*lockEntry

	locker  ports.DistributedLocker
	lockTTL time.Duration
	logger  *slog.Logger
	hooks   domain.Hooks
	now     func() time.Time
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking across replicas.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLockTTL bounds how long a distributed lock survives a crashed holder.
func WithLockTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		m.lockTTL = ttl
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithHooks registers observability callbacks.
func WithHooks(hooks domain.Hooks) Option {
	return func(m *Manager) {
		m.hooks = hooks
	}
}

// NewManager creates a Manager over the given storage.
func NewManager(storage ports.Storage, opts ...Option) *Manager {
	m := &Manager{
		storage: storage,
		locks:   make(map[string]*lockEntry),
		lockTTL: defaultLockTTL,
		logger:  logging.NewNop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.events = NewBroadcaster(m.logger)
	return m
}

// Open returns a handle for sessionID. Handles are cheap and stateless;
// all state lives in storage.
func (m *Manager) Open(sessionID string) (*Session, error) {
	if sessionID == "" {
		return nil, domain.ErrInvalidSession
	}
	return &Session{id: sessionID, m: m}, nil
}

// End clears every key of the session and notifies subscribers.
func (m *Manager) End(ctx context.Context, sessionID string) error {
	err := m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		if err := m.storage.Clear(ctx, sessionID); err != nil {
			return fmt.Errorf("failed to end session: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	m.events.Publish(domain.ChangeEvent{SessionID: sessionID, Kind: domain.ChangeCleared, At: m.now()})
	if m.hooks.OnSessionEnded != nil {
		m.hooks.OnSessionEnded(ctx, sessionID)
	}
	return nil
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST Lock entry.mu, and then call release(sessionID) after unlocking.
func (m *Manager) acquire(sessionID string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[sessionID]
	if !exists {
		entry = &lockEntry{}
		m.locks[sessionID] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (m *Manager) release(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[sessionID]
	if !exists {
		return
	}
	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, sessionID)
	}
}

// activeLocks reports how many sessions currently hold a lock entry.
func (m *Manager) activeLocks() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.locks)
}

// WithLock executes fn while holding the lock for the session.
func (m *Manager) WithLock(ctx context.Context, sessionID string, fn func(context.Context) error) error {
	entry := m.acquire(sessionID)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(sessionID)
	}()

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, sessionID, m.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			if err := unlock(ctx); err != nil {
				m.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					"session_id", sessionID,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}
