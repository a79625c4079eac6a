package gate_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/lemon/pkg/domain"
	"github.com/aretw0/lemon/pkg/gate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var short = domain.PageOrder{"intro", "memory", "photos"}

type fakeNavigator struct {
	mu        sync.Mutex
	notices   []string
	redirects []string
}

func (f *fakeNavigator) Notify(_ context.Context, msg string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notices = append(f.notices, msg)
}

func (f *fakeNavigator) Redirect(dest string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.redirects = append(f.redirects, dest)
}

func (f *fakeNavigator) redirected() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.redirects...)
}

func TestEnsureUnlocked_EmptyVisited(t *testing.T) {
	g := gate.New(short)
	ctx := context.Background()
	visited := domain.NewVisitedSet()

	assert.NoError(t, g.EnsureUnlocked(ctx, "intro", visited))

	err := g.EnsureUnlocked(ctx, "photos", visited)
	assert.ErrorIs(t, err, domain.ErrLocked)
}

func TestEnsureUnlocked_AfterIntro(t *testing.T) {
	g := gate.New(short)
	ctx := context.Background()
	visited := domain.NewVisitedSet("intro")

	assert.NoError(t, g.EnsureUnlocked(ctx, "memory", visited))
	assert.ErrorIs(t, g.EnsureUnlocked(ctx, "photos", visited), domain.ErrLocked)
}

func TestEnsureUnlocked_AfterIntroAndMemory(t *testing.T) {
	g := gate.New(short)
	visited := domain.NewVisitedSet("intro", "memory")

	assert.NoError(t, g.EnsureUnlocked(context.Background(), "photos", visited))
}

func TestEnsureUnlocked_UnknownPage(t *testing.T) {
	g := gate.New(short)

	err := g.EnsureUnlocked(context.Background(), "secret", domain.NewVisitedSet())
	assert.ErrorIs(t, err, domain.ErrUnknownPage)
	assert.NotErrorIs(t, err, domain.ErrLocked)
}

func TestFrontier(t *testing.T) {
	g := gate.New(domain.DefaultPageOrder)

	cases := []struct {
		name    string
		visited []string
		want    int
	}{
		{"empty", nil, 0},
		{"intro", []string{"intro"}, 1},
		{"gap uses highest", []string{"intro", "photos"}, 3},
		{"unknown keys ignored", []string{"elsewhere"}, 0},
		{"clamped at last", []string{"another"}, 6},
		{"all", domain.DefaultPageOrder.Keys(), 6},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, g.Frontier(domain.NewVisitedSet(tc.visited...)))
		})
	}
}

func TestFrontier_Monotonic(t *testing.T) {
	g := gate.New(domain.DefaultPageOrder)
	visited := domain.NewVisitedSet()

	prev := g.Frontier(visited)
	for _, k := range []string{"memory", "intro", "us", "photos", "intro", "another", "letters"} {
		visited.Add(k)
		f := g.Frontier(visited)
		assert.GreaterOrEqual(t, f, prev, "after %s", k)
		prev = f
	}
}

func TestTerminal_AllUnlocked(t *testing.T) {
	g := gate.New(domain.DefaultPageOrder)
	visited := domain.NewVisitedSet(domain.DefaultPageOrder.Keys()...)

	for _, st := range g.Statuses(visited) {
		assert.Equal(t, domain.PageUnlocked, st.State, st.Key)
		assert.True(t, st.Visited, st.Key)
	}
}

func TestStatuses(t *testing.T) {
	g := gate.New(short)
	got := g.Statuses(domain.NewVisitedSet("intro"))

	require.Len(t, got, 3)
	assert.Equal(t, domain.PageStatus{Key: "intro", Index: 0, State: domain.PageUnlocked, Visited: true}, got[0])
	assert.Equal(t, domain.PageStatus{Key: "memory", Index: 1, State: domain.PageUnlocked}, got[1])
	assert.Equal(t, domain.PageStatus{Key: "photos", Index: 2, State: domain.PageLocked}, got[2])
}

func TestLocked_NotifiesThenRedirects(t *testing.T) {
	nav := &fakeNavigator{}
	g := gate.New(short,
		gate.WithNavigator(nav),
		gate.WithHub("/home"),
		gate.WithDelay(10*time.Millisecond),
		gate.WithMessage("nope"),
	)

	err := g.EnsureUnlocked(context.Background(), "photos", domain.NewVisitedSet())

	var locked *gate.LockedError
	require.True(t, errors.As(err, &locked))
	assert.Equal(t, "photos", locked.Key)
	assert.Equal(t, 0, locked.Frontier)
	assert.Equal(t, "/home", locked.Redirect)
	assert.Equal(t, 10*time.Millisecond, locked.Delay)
	assert.Equal(t, "nope", locked.Message)

	assert.Equal(t, []string{"nope"}, nav.notices)
	assert.Eventually(t, func() bool {
		return len(nav.redirected()) == 1 && nav.redirected()[0] == "/home"
	}, time.Second, 5*time.Millisecond)
}

func TestUnlocked_NoSideEffects(t *testing.T) {
	nav := &fakeNavigator{}
	g := gate.New(short, gate.WithNavigator(nav), gate.WithDelay(time.Millisecond))

	require.NoError(t, g.EnsureUnlocked(context.Background(), "intro", domain.NewVisitedSet()))
	time.Sleep(20 * time.Millisecond)

	assert.Empty(t, nav.notices)
	assert.Empty(t, nav.redirected())
}

func TestHooks_CarrySessionID(t *testing.T) {
	var views, locks []*domain.PageEvent
	g := gate.New(short, gate.WithHooks(domain.Hooks{
		OnPageView:   func(_ context.Context, e *domain.PageEvent) { views = append(views, e) },
		OnPageLocked: func(_ context.Context, e *domain.PageEvent) { locks = append(locks, e) },
	}))
	ctx := gate.WithSessionID(context.Background(), "tab-9")

	_ = g.EnsureUnlocked(ctx, "intro", domain.NewVisitedSet())
	_ = g.EnsureUnlocked(ctx, "photos", domain.NewVisitedSet())

	require.Len(t, views, 1)
	require.Len(t, locks, 1)
	assert.Equal(t, "tab-9", views[0].SessionID)
	assert.Equal(t, "photos", locks[0].Key)
}
