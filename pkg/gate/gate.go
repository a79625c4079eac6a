package gate

import (
	"context"
	"fmt"
	"time"

	"github.com/aretw0/lemon/pkg/domain"
)

// Defaults for the lock notice.
const (
	DefaultHub     = "/hub"
	DefaultDelay   = 250 * time.Millisecond
	DefaultMessage = "This page is locked until you visit previous surprises."
)

// Navigator receives the side effects of a denied page.
type Navigator interface {
	// Notify shows message to the visitor.
	Notify(ctx context.Context, message string)
	// Redirect sends the visitor to dest. It is called once the delay elapsed.
	Redirect(dest string)
}

// LockedError signals that the requested page is beyond the frontier.
// Callers must stop setting up the page when they receive it.
type LockedError struct {
	Key      string
	Frontier int
	Message  string
	Redirect string
	Delay    time.Duration
}

func (e *LockedError) Error() string {
	return fmt.Sprintf("page %q locked (frontier %d)", e.Key, e.Frontier)
}

// Is makes errors.Is(err, domain.ErrLocked) hold.
func (e *LockedError) Is(target error) bool {
	return target == domain.ErrLocked
}

// Gate decides page accessibility from a visited set.
type Gate struct {
	order   domain.PageOrder
	hub     string
	delay   time.Duration
	message string
	nav     Navigator
	hooks   domain.Hooks
	after   func(time.Duration, func()) *time.Timer
}

// Option configures a Gate.
type Option func(*Gate)

// WithHub sets the redirect destination for denied pages.
func WithHub(hub string) Option {
	return func(g *Gate) { g.hub = hub }
}

// WithDelay sets how long the lock notice shows before redirecting.
func WithDelay(d time.Duration) Option {
	return func(g *Gate) { g.delay = d }
}

// WithMessage overrides the lock notice.
func WithMessage(msg string) Option {
	return func(g *Gate) { g.message = msg }
}

// WithNavigator installs the notification/redirect side effects.
func WithNavigator(nav Navigator) Option {
	return func(g *Gate) { g.nav = nav }
}

// WithHooks registers OnPageView and OnPageLocked callbacks.
func WithHooks(hooks domain.Hooks) Option {
	return func(g *Gate) { g.hooks = hooks }
}

// New creates a Gate over order.
func New(order domain.PageOrder, opts ...Option) *Gate {
	g := &Gate{
		order:   order,
		hub:     DefaultHub,
		delay:   DefaultDelay,
		message: DefaultMessage,
		after:   time.AfterFunc,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Order returns the page order.
func (g *Gate) Order() domain.PageOrder {
	return g.order
}

// Hub returns the redirect destination.
func (g *Gate) Hub() string {
	return g.hub
}

// Frontier returns the highest unlocked index for visited.
func (g *Gate) Frontier(visited domain.VisitedSet) int {
	highest := -1
	for i, k := range g.order {
		if visited.Has(k) {
			highest = i
		}
	}
	return min(highest+1, len(g.order)-1)
}

// IsUnlocked reports whether key is accessible.
// It returns domain.ErrUnknownPage for keys outside the order.
func (g *Gate) IsUnlocked(key string, visited domain.VisitedSet) (bool, error) {
	idx := g.order.Index(key)
	if idx < 0 {
		return false, fmt.Errorf("%w: %q", domain.ErrUnknownPage, key)
	}
	return idx <= g.Frontier(visited), nil
}

// Statuses describes every page in order.
func (g *Gate) Statuses(visited domain.VisitedSet) []domain.PageStatus {
	frontier := g.Frontier(visited)
	out := make([]domain.PageStatus, len(g.order))
	for i, k := range g.order {
		state := domain.PageLocked
		if i <= frontier {
			state = domain.PageUnlocked
		}
		out[i] = domain.PageStatus{Key: k, Index: i, State: state, Visited: visited.Has(k)}
	}
	return out
}

// EnsureUnlocked returns nil when key is accessible.
// Otherwise it notifies the visitor, schedules the redirect to the hub after
// the configured delay, and returns a *LockedError.
func (g *Gate) EnsureUnlocked(ctx context.Context, key string, visited domain.VisitedSet) error {
	ok, err := g.IsUnlocked(key, visited)
	if err != nil {
		return err
	}
	frontier := g.Frontier(visited)
	ev := &domain.PageEvent{SessionID: SessionID(ctx), Key: key, Frontier: frontier}

	if ok {
		if g.hooks.OnPageView != nil {
			g.hooks.OnPageView(ctx, ev)
		}
		return nil
	}

	if g.hooks.OnPageLocked != nil {
		g.hooks.OnPageLocked(ctx, ev)
	}
	if g.nav != nil {
		g.nav.Notify(ctx, g.message)
		hub, nav := g.hub, g.nav
		g.after(g.delay, func() { nav.Redirect(hub) })
	}
	return &LockedError{
		Key:      key,
		Frontier: frontier,
		Message:  g.message,
		Redirect: g.hub,
		Delay:    g.delay,
	}
}

type sessionKey struct{}

// WithSessionID tags ctx so gate events carry the session.
func WithSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionKey{}, id)
}

// SessionID returns the session tagged by WithSessionID, if any.
func SessionID(ctx context.Context) string {
	id, _ := ctx.Value(sessionKey{}).(string)
	return id
}
