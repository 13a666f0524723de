// Package events fans out notifications about display and eye-state activity
// to any number of observers (metrics, status pages, logs). Publishing never
// blocks and never takes a lock: slow subscribers lose events instead of
// stalling the display or the caller changing the eye state.
package events

import (
	"slices"
	"sync"
	"sync/atomic"
	"time"
)

// Kind identifies the type of event.
type Kind string

const (
	FrameSent      Kind = "frame_sent"
	SubtitleSent   Kind = "subtitle_sent"
	CommandSent    Kind = "command_sent"
	CommandDropped Kind = "command_dropped"
	TransportError Kind = "transport_error"
	StateChanged   Kind = "state_changed"
	ForceChanged   Kind = "force_changed"
	WakeTriggered  Kind = "wake_triggered"
)

// Event is an immutable notification. Data depends on Kind: a frames.ID for
// FrameSent, the prepared text for SubtitleSent, an eye.State for
// StateChanged, a bool for ForceChanged, an error for TransportError.
type Event struct {
	Kind      Kind
	Timestamp time.Time
	Data      any
}

// Subscription receives events from a Bus. C is never closed; Done is
// closed once the subscription is removed.
type Subscription struct {
	C    <-chan Event
	ch   chan Event
	done chan struct{}
}

// Done is closed when the subscription is removed from its Bus.
func (s *Subscription) Done() <-chan struct{} { return s.done }

// Bus fans out events to all active subscribers. It is safe for concurrent
// use. A nil *Bus discards everything.
type Bus struct {
	mu   sync.Mutex // serialises Subscribe and Unsubscribe
	subs atomic.Pointer[[]*Subscription]
}

// NewBus creates a Bus ready for use.
func NewBus() *Bus {
	b := &Bus{}
	b.subs.Store(&[]*Subscription{})
	return b
}

// Subscribe creates a new subscription with the given channel buffer size.
// The caller should read from sub.C and eventually call Unsubscribe.
func (b *Bus) Subscribe(bufSize int) *Subscription {
	ch := make(chan Event, bufSize)
	sub := &Subscription{C: ch, ch: ch, done: make(chan struct{})}

	b.mu.Lock()
	defer b.mu.Unlock()

	next := append(slices.Clone(*b.subs.Load()), sub)
	b.subs.Store(&next)
	return sub
}

// Unsubscribe removes the subscription and closes its Done channel.
func (b *Bus) Unsubscribe(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	cur := *b.subs.Load()
	i := slices.Index(cur, sub)
	if i < 0 {
		return
	}
	next := slices.Delete(slices.Clone(cur), i, i+1)
	b.subs.Store(&next)
	close(sub.done)
}

// Publish sends an event to all subscribers. If a subscriber's buffer is full
// the event is dropped for that subscriber. It reads a copy-on-write snapshot
// of the subscriber list, so a concurrent Subscribe never delays it.
func (b *Bus) Publish(e Event) {
	if b == nil {
		return
	}

	for _, sub := range *b.subs.Load() {
		select {
		case <-sub.done:
		case sub.ch <- e:
		default:
		}
	}
}

// Emit publishes an event of the given kind stamped with the current time.
func (b *Bus) Emit(kind Kind, data any) {
	if b == nil {
		return
	}
	b.Publish(Event{Kind: kind, Timestamp: time.Now(), Data: data})
}
