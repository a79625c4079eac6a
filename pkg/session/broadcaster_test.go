package session

import (
	"testing"
	"time"

	"github.com/aretw0/lemon/internal/logging"
	"github.com/aretw0/lemon/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBroadcaster_DeliversToSessionOnly(t *testing.T) {
	b := NewBroadcaster(logging.NewNop())

	mine, cancelMine := b.Subscribe("a")
	defer cancelMine()
	other, cancelOther := b.Subscribe("b")
	defer cancelOther()

	b.Publish(domain.ChangeEvent{SessionID: "a", Kind: domain.ChangeVisited})

	select {
	case ev := <-mine:
		assert.Equal(t, domain.ChangeVisited, ev.Kind)
	case <-time.After(time.Second):
		t.Fatal("expected event")
	}
	select {
	case ev := <-other:
		t.Fatalf("unexpected event %+v", ev)
	default:
	}
}

func TestBroadcaster_RegistrationOrder(t *testing.T) {
	b := NewBroadcaster(logging.NewNop())

	first, c1 := b.Subscribe("s")
	defer c1()
	second, c2 := b.Subscribe("s")
	defer c2()

	b.mu.RLock()
	subs := b.subscribers["s"]
	b.mu.RUnlock()
	require.Len(t, subs, 2)
	assert.True(t, (<-chan domain.ChangeEvent)(subs[0].ch) == first)
	assert.True(t, (<-chan domain.ChangeEvent)(subs[1].ch) == second)
}

func TestBroadcaster_CancelClosesAndForgets(t *testing.T) {
	b := NewBroadcaster(logging.NewNop())

	ch, cancel := b.Subscribe("s")
	assert.Equal(t, 1, b.Count("s"))

	cancel()
	cancel() // idempotent

	_, open := <-ch
	assert.False(t, open)
	assert.Equal(t, 0, b.Count("s"))
}

func TestBroadcaster_SlowSubscriberDoesNotBlock(t *testing.T) {
	b := NewBroadcaster(logging.NewNop())
	_, cancel := b.Subscribe("s")
	defer cancel()

	done := make(chan struct{})
	go func() {
		for i := 0; i < subscriberBuffer*3; i++ {
			b.Publish(domain.ChangeEvent{SessionID: "s", Kind: domain.ChangeImages})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a full subscriber")
	}
}
