package animator

import (
	"context"
	"time"
)

// Clock abstracts time for the scheduler.
type Clock interface {
	Now() time.Time
	// Sleep blocks for d or until ctx is done. It reports whether the full
	// duration elapsed.
	Sleep(ctx context.Context, d time.Duration) bool
}

// SystemClock returns a Clock backed by the time package.
func SystemClock() Clock { return systemClock{} }

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) Sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
