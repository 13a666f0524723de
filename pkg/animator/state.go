package animator

import (
	"sync/atomic"
	"time"

	"github.com/ajhdkjsahd/xiaozhi-esp32-eyes/pkg/eye"
)

// initialBlinkInterval is the pause before the first scheduled blink.
const initialBlinkInterval = 3 * time.Second

// State is the record shared between the Controller and the Scheduler. Each
// field is an independent atomic; no grouping of fields is required because
// every field's effect is idempotent within one scheduler iteration.
type State struct {
	current     atomic.Int32
	forceClosed atomic.Bool
	wakePending atomic.Bool

	// Written by the scheduler only; atomic so snapshots can read them.
	lastBlink         atomic.Pointer[time.Time]
	nextBlinkInterval atomic.Int64
}

// NewState returns a State resting in eye.Open.
func NewState() *State {
	s := &State{}
	s.current.Store(int32(eye.Open))
	s.nextBlinkInterval.Store(int64(initialBlinkInterval))
	return s
}

// Current returns the logical eye state.
func (s *State) Current() eye.State { return eye.State(s.current.Load()) }

// ForceClosed reports whether the closed-frame override is active.
func (s *State) ForceClosed() bool { return s.forceClosed.Load() }

// WakePending reports whether a wake flourish is waiting to be played.
func (s *State) WakePending() bool { return s.wakePending.Load() }

// LastBlink returns when the last scheduled blink started, or the zero time
// if the scheduler has not run yet. The value is the one the Clock reported,
// monotonic reading included, so elapsed time survives wall clock steps.
func (s *State) LastBlink() time.Time {
	at := s.lastBlink.Load()
	if at == nil {
		return time.Time{}
	}
	return *at
}

// NextBlinkInterval returns the pause drawn for the next scheduled blink.
func (s *State) NextBlinkInterval() time.Duration {
	return time.Duration(s.nextBlinkInterval.Load())
}

func (s *State) markBlink(at time.Time, next time.Duration) {
	s.lastBlink.Store(&at)
	s.nextBlinkInterval.Store(int64(next))
}

// takeWake clears the wake flag and reports whether it was set.
func (s *State) takeWake() bool { return s.wakePending.Swap(false) }

// Snapshot is a point-in-time copy of State for reporting.
type Snapshot struct {
	State               eye.State `json:"state"`
	ForceClosed         bool      `json:"force_closed"`
	WakePending         bool      `json:"wake_pending"`
	LastBlink           time.Time `json:"last_blink"`
	NextBlinkIntervalMS int64     `json:"next_blink_interval_ms"`
}

// Snapshot copies every field. Fields are read one by one, so the copy may
// mix values from either side of a concurrent update.
func (s *State) Snapshot() Snapshot {
	return Snapshot{
		State:               s.Current(),
		ForceClosed:         s.ForceClosed(),
		WakePending:         s.WakePending(),
		LastBlink:           s.LastBlink(),
		NextBlinkIntervalMS: s.NextBlinkInterval().Milliseconds(),
	}
}
