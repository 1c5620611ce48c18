package pubsub

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, sub *Subscription) any {
	t.Helper()
	select {
	case v, ok := <-sub.C():
		require.True(t, ok, "subscription closed")
		return v
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for payload")
		return nil
	}
}

func assertNothing(t *testing.T, sub *Subscription) {
	t.Helper()
	select {
	case v := <-sub.C():
		t.Fatalf("unexpected payload %v", v)
	case <-time.After(20 * time.Millisecond):
	}
}

func TestBus_Delivers(t *testing.T) {
	ctx := context.Background()
	bus := NewBus(4)

	a := bus.Subscribe(ctx, "newThread", nil)
	b := bus.Subscribe(ctx, "newThread", nil)
	other := bus.Subscribe(ctx, "newReply", nil)
	defer a.Close()
	defer b.Close()
	defer other.Close()

	require.NoError(t, bus.Publish(ctx, "newThread", "t1"))

	assert.Equal(t, "t1", receive(t, a))
	assert.Equal(t, "t1", receive(t, b))
	assertNothing(t, other)
}

func TestBus_NoReplay(t *testing.T) {
	ctx := context.Background()
	bus := NewBus(4)

	require.NoError(t, bus.Publish(ctx, "newThread", "early"))
	late := bus.Subscribe(ctx, "newThread", nil)
	defer late.Close()

	assertNothing(t, late)
}

func TestBus_Predicate(t *testing.T) {
	ctx := context.Background()
	bus := NewBus(4)

	onlyX := bus.Subscribe(ctx, "newReply", func(p any) (bool, error) {
		return p == "X", nil
	})
	failing := bus.Subscribe(ctx, "newReply", func(p any) (bool, error) {
		return false, errors.New("boom")
	})
	panicking := bus.Subscribe(ctx, "newReply", func(p any) (bool, error) {
		panic("filter bug")
	})
	all := bus.Subscribe(ctx, "newReply", nil)

	require.NoError(t, bus.Publish(ctx, "newReply", "Y"))
	require.NoError(t, bus.Publish(ctx, "newReply", "X"))

	assert.Equal(t, "X", receive(t, onlyX))
	assertNothing(t, onlyX)
	assertNothing(t, failing)
	assertNothing(t, panicking)
	assert.Equal(t, "Y", receive(t, all))
	assert.Equal(t, "X", receive(t, all))
}

func TestBus_SlowSubscriberDrops(t *testing.T) {
	ctx := context.Background()
	bus := NewBus(2)

	slow := bus.Subscribe(ctx, "newThread", nil)
	defer slow.Close()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			_ = bus.Publish(ctx, "newThread", i)
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publisher blocked on a slow subscriber")
	}

	assert.Equal(t, 0, receive(t, slow))
	assert.Equal(t, 1, receive(t, slow))
	assertNothing(t, slow)
	assert.Equal(t, uint64(8), slow.Dropped())
}

func TestBus_ContextCancelCloses(t *testing.T) {
	bus := NewBus(1)
	ctx, cancel := context.WithCancel(context.Background())

	sub := bus.Subscribe(ctx, "newThread", nil)
	assert.Equal(t, 1, bus.Subscribers("newThread"))

	cancel()

	select {
	case _, ok := <-sub.C():
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("subscription not closed")
	}
	assert.Equal(t, 0, bus.Subscribers("newThread"))

	// second close is a no-op
	sub.Close()
}

func TestBus_PublishCancelledContext(t *testing.T) {
	bus := NewBus(1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, bus.Publish(ctx, "newThread", 1), context.Canceled)
}

func TestBus_ConcurrentPublishAndClose(t *testing.T) {
	ctx := context.Background()
	bus := NewBus(8)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		sub := bus.Subscribe(ctx, "newThread", nil)
		go func() {
			defer wg.Done()
			_ = bus.Publish(ctx, "newThread", "x")
		}()
		go func() {
			defer wg.Done()
			sub.Close()
		}()
	}
	wg.Wait()
	assert.Equal(t, 0, bus.Subscribers("newThread"))
}
