// Package frames holds the read-only frame library of the eye display: which
// precomputed images make up each blink sequence and idle pool, and how long
// each of them is held on screen.
//
// Frame images live in the display's flash at fixed offsets. An ID is turned
// into a flash address with Address; everything else treats it as opaque.
package frames

import "time"

// ID identifies a precomputed frame image.
type ID int

const (
	// Count is the number of images flashed onto the display.
	Count = 60

	// BaseAddress is the flash offset of image 0.
	BaseAddress = 2212352

	// Stride is the number of bytes each image occupies in flash.
	Stride = 80000

	// Closed is the frame held while the eye is closed or force-closed.
	Closed ID = 8
)

// Address returns the flash address of the image with the given ID.
func Address(id ID) uint32 {
	return uint32(BaseAddress + int(id)*Stride)
}

// Valid reports whether id addresses a flashed image.
func Valid(id ID) bool {
	return id >= 0 && id < Count
}

// Rand is the random source used for uniform draws. *rand.Rand from
// math/rand/v2 satisfies it.
type Rand interface {
	IntN(n int) int
}

// HoldRange is an inclusive range of hold durations with millisecond
// granularity.
type HoldRange struct {
	Min time.Duration
	Max time.Duration
}

// Draw returns a duration uniformly distributed over the whole milliseconds
// in [Min, Max].
func (r HoldRange) Draw(rnd Rand) time.Duration {
	lo := r.Min.Milliseconds()
	hi := r.Max.Milliseconds()
	if hi <= lo {
		return r.Min
	}
	return time.Duration(lo+int64(rnd.IntN(int(hi-lo+1)))) * time.Millisecond
}

// BlinkSequence is one complete close-and-reopen motion of the eyelid.
type BlinkSequence struct {
	Frames []ID
	Hold   time.Duration
}

// IdlePool is the set of frames dithered between blinks and their pacing.
type IdlePool struct {
	Frames []ID
	Hold   HoldRange
}

// Pick returns a frame chosen uniformly from the pool.
func (p IdlePool) Pick(rnd Rand) ID {
	return p.Frames[rnd.IntN(len(p.Frames))]
}

func ms(n int) time.Duration { return time.Duration(n) * time.Millisecond }
