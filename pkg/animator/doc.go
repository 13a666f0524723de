// Package animator drives the eye display. It owns the shared animation
// state, the controller external callers use to change it, and the scheduler
// goroutine that turns that state into a continuous stream of frame requests.
//
// Callers never block: the controller only performs atomic stores, and the
// scheduler observes them on its next loop iteration. A blink sequence that
// has started always plays to the end; a forced closure is observed within
// one hold period.
package animator
