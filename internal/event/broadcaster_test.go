package event

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBroadcasterDeliversToAllSubscribers(t *testing.T) {
	b := NewBroadcaster[string](4)

	first, unsubFirst := b.Subscribe()
	defer unsubFirst()
	second, unsubSecond := b.Subscribe()
	defer unsubSecond()

	b.Publish("login")

	assert.Equal(t, "login", <-first)
	assert.Equal(t, "login", <-second)
}

func TestBroadcasterDropsWhenSubscriberIsFull(t *testing.T) {
	b := NewBroadcaster[int](1)
	ch, unsub := b.Subscribe()
	defer unsub()

	b.Publish(1)
	b.Publish(2)

	assert.Equal(t, 1, <-ch)
	select {
	case v := <-ch:
		t.Fatalf("expected no second value, got %d", v)
	default:
	}
}

func TestBroadcasterUnsubscribeClosesChannel(t *testing.T) {
	b := NewBroadcaster[int](1)
	ch, unsub := b.Subscribe()
	require.Equal(t, 1, b.Len())

	unsub()
	unsub()

	_, ok := <-ch
	assert.False(t, ok)
	assert.Equal(t, 0, b.Len())

	// Publishing after everyone left must not panic.
	b.Publish(3)
}

func TestSubscribeAllKeepsEveryValue(t *testing.T) {
	b := NewBroadcaster[int](1)
	ch, unsub := b.SubscribeAll()
	defer unsub()

	for i := range 50 {
		b.Publish(i)
	}

	for want := range 50 {
		select {
		case got := <-ch:
			require.Equal(t, want, got)
		case <-time.After(time.Second):
			t.Fatalf("value %d never arrived", want)
		}
	}
}

func TestSubscribeAllUnsubscribeClosesChannel(t *testing.T) {
	b := NewBroadcaster[int](1)
	ch, unsub := b.SubscribeAll()
	require.Equal(t, 1, b.Len())

	b.Publish(1)
	unsub()
	unsub()
	assert.Equal(t, 0, b.Len())

	for range ch {
	}
	b.Publish(2)
}
