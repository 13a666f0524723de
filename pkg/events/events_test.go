package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBus_SubscribePublish(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe(8)
	defer bus.Unsubscribe(sub)

	bus.Publish(Event{Kind: FrameSent, Timestamp: time.Now(), Data: 8})

	select {
	case got := <-sub.C:
		assert.Equal(t, FrameSent, got.Kind)
		assert.Equal(t, 8, got.Data)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestBus_FanOut(t *testing.T) {
	bus := NewBus()
	sub1 := bus.Subscribe(4)
	sub2 := bus.Subscribe(4)
	defer bus.Unsubscribe(sub1)
	defer bus.Unsubscribe(sub2)

	bus.Emit(WakeTriggered, nil)

	for _, sub := range []*Subscription{sub1, sub2} {
		select {
		case e := <-sub.C:
			assert.Equal(t, WakeTriggered, e.Kind)
			assert.False(t, e.Timestamp.IsZero())
		case <-time.After(time.Second):
			t.Fatal("subscriber did not receive event")
		}
	}
}

func TestBus_NonBlockingDrop(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe(1)
	defer bus.Unsubscribe(sub)

	bus.Emit(FrameSent, 1)
	bus.Emit(FrameSent, 2)

	got := <-sub.C
	assert.Equal(t, 1, got.Data)

	select {
	case e := <-sub.C:
		t.Fatalf("unexpected event: %v", e)
	default:
	}
}

func TestBus_UnsubscribeClosesDone(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe(1)
	bus.Unsubscribe(sub)

	select {
	case <-sub.Done():
	default:
		t.Fatal("Done not closed after Unsubscribe")
	}

	// No delivery after removal, and a second unsubscribe is a no-op.
	bus.Emit(FrameSent, 1)
	assert.Empty(t, sub.C)
	bus.Unsubscribe(sub)
}

func TestBus_PublishDoesNotWaitForSubscribers(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe(1)
	defer bus.Unsubscribe(sub)

	// Hold the writer lock as a Subscribe in progress would.
	bus.mu.Lock()
	defer bus.mu.Unlock()

	published := make(chan struct{})
	go func() {
		bus.Emit(StateChanged, "listening")
		close(published)
	}()

	select {
	case <-published:
	case <-time.After(time.Second):
		t.Fatal("Emit blocked behind the subscriber lock")
	}
	assert.Equal(t, StateChanged, (<-sub.C).Kind)
}

func TestBus_NilDiscards(t *testing.T) {
	var bus *Bus
	assert.NotPanics(t, func() {
		bus.Emit(FrameSent, 1)
		bus.Publish(Event{Kind: FrameSent})
	})
}
