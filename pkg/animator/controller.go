package animator

import "github.com/ajhdkjsahd/xiaozhi-esp32-eyes/pkg/eye"

// Controller is the entry point through which other goroutines change the
// eye. Its methods only perform atomic operations and never block.
type Controller struct {
	state *State
}

// NewController returns a Controller mutating state.
func NewController(state *State) *Controller {
	return &Controller{state: state}
}

// State returns the state the controller mutates.
func (c *Controller) State() *State { return c.state }

// SetState replaces the current state. Going from eye.Open to eye.Listening
// arms the wake flourish; it reports whether that happened. The new state is
// recorded even while the eye is force-closed, but stays invisible until the
// override is released.
func (c *Controller) SetState(s eye.State) bool {
	prev := eye.State(c.state.current.Swap(int32(s)))
	if prev == eye.Open && s == eye.Listening {
		c.state.wakePending.Store(true)
		return true
	}
	return false
}

// SetForceClosed toggles the closed-frame override. Releasing it always
// resumes from eye.Open, whatever state was recorded meanwhile.
func (c *Controller) SetForceClosed(closed bool) {
	if !closed {
		// Reset before clearing so the scheduler never sees the stale state
		// without the override.
		c.state.current.Store(int32(eye.Open))
	}
	c.state.forceClosed.Store(closed)
}
