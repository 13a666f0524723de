// Package eye defines the logical states the animated eye can be in.
package eye

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownState is returned by Parse for names that are not a State.
var ErrUnknownState = errors.New("eye: unknown state")

// State is the logical state driving the eye animation. Exactly one State is
// active at any instant.
type State int32

const (
	Open      State = iota // idle, resting
	Close                  // fully shut
	Listening              // attentive
	Thinking               // rapid search
	Speaking               // lively
)

var names = [...]string{
	Open:      "open",
	Close:     "close",
	Listening: "listening",
	Thinking:  "thinking",
	Speaking:  "speaking",
}

// String returns the lower-case name of the state.
func (s State) String() string {
	if s < 0 || int(s) >= len(names) {
		return fmt.Sprintf("state(%d)", int32(s))
	}
	return names[s]
}

// Parse returns the State with the given name. Matching is case-insensitive
// and ignores surrounding whitespace.
func Parse(name string) (State, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	for i, candidate := range names {
		if candidate == n {
			return State(i), nil
		}
	}
	return Open, fmt.Errorf("%w: %q", ErrUnknownState, name)
}

// States returns every State in declaration order.
func States() []State {
	return []State{Open, Close, Listening, Thinking, Speaking}
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *State) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
