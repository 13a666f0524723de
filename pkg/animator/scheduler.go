package animator

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/ajhdkjsahd/xiaozhi-esp32-eyes/pkg/eye"
	"github.com/ajhdkjsahd/xiaozhi-esp32-eyes/pkg/frames"
)

const (
	closedHold = 500 * time.Millisecond
	wakeGap    = 100 * time.Millisecond
	wakeSettle = 200 * time.Millisecond
)

// Sink renders what the scheduler decides to show. Calls are fire-and-forget:
// there is no acknowledgement and nothing to retry.
type Sink interface {
	RequestFrame(id frames.ID)
	RequestSubtitle(text string)
}

// branch names the decision a loop iteration took.
type branch int

const (
	branchNone branch = iota
	branchClosed
	branchWake
	branchBlink
	branchIdle
)

func (b branch) String() string {
	switch b {
	case branchClosed:
		return "closed"
	case branchWake:
		return "wake"
	case branchBlink:
		return "blink"
	case branchIdle:
		return "idle"
	default:
		return "none"
	}
}

// Scheduler is the perpetual control loop of the eye. Run it on exactly one
// goroutine.
type Scheduler struct {
	state *State
	sink  Sink
	clock Clock
	rnd   frames.Rand
	log   *slog.Logger
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithClock replaces the system clock.
func WithClock(c Clock) Option {
	return func(s *Scheduler) { s.clock = c }
}

// WithRand replaces the random source. The source is only used from the
// scheduler goroutine.
func WithRand(r frames.Rand) Option {
	return func(s *Scheduler) { s.rnd = r }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Scheduler) { s.log = l }
}

// NewScheduler returns a Scheduler reading state and drawing on sink.
func NewScheduler(state *State, sink Sink, opts ...Option) *Scheduler {
	seed := uint64(time.Now().UnixNano())
	s := &Scheduler{
		state: state,
		sink:  sink,
		clock: SystemClock(),
		rnd:   rand.New(rand.NewPCG(seed, seed>>1|1)),
		log:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run loops until ctx is cancelled and then returns ctx.Err(). Cancellation is
// observed between iterations and during closed/idle holds; blink sequences,
// including the wake double blink, always finish.
func (s *Scheduler) Run(ctx context.Context) error {
	s.state.markBlink(s.clock.Now(), s.state.NextBlinkInterval())
	s.log.InfoContext(ctx, "eye scheduler started", "state", s.state.Current())

	for {
		if err := ctx.Err(); err != nil {
			s.log.InfoContext(ctx, "eye scheduler stopped", "reason", err)
			return err
		}
		if b := s.step(ctx); b != branchBlink {
			s.log.DebugContext(ctx, "eye step", "branch", b)
		}
	}
}

// step runs one loop iteration. The branches are exclusive and tried in
// priority order: closed override, wake flourish, scheduled blink, idle
// dither.
func (s *Scheduler) step(ctx context.Context) branch {
	if s.state.ForceClosed() || s.state.Current() == eye.Close {
		s.sink.RequestFrame(frames.Closed)
		s.clock.Sleep(ctx, closedHold)
		return branchClosed
	}

	if s.state.takeWake() {
		s.wake(ctx)
		return branchWake
	}

	now := s.clock.Now()
	if now.Sub(s.state.LastBlink()) > s.state.NextBlinkInterval() {
		s.blink(ctx)
		cur := s.state.Current()
		next := frames.BlinkIntervalFor(cur).Draw(s.rnd)
		s.state.markBlink(now, next)
		s.log.DebugContext(ctx, "blink", "state", cur, "next_blink", next)
		return branchBlink
	}

	pool, ok := frames.IdlePoolFor(s.state.Current())
	if !ok {
		// Switched to Close since the override check; re-evaluate.
		return branchNone
	}
	s.sink.RequestFrame(pool.Pick(s.rnd))
	s.clock.Sleep(ctx, pool.Hold.Draw(s.rnd))
	return branchIdle
}

func (s *Scheduler) wake(ctx context.Context) {
	s.log.DebugContext(ctx, "wake", "state", s.state.Current())

	ctx = context.WithoutCancel(ctx)
	s.blink(ctx)
	s.clock.Sleep(ctx, wakeGap)
	s.blink(ctx)
	s.clock.Sleep(ctx, wakeSettle)
}

// blink plays one blink sequence for the current state. Frame holds ignore
// cancellation so that a sequence is never cut short.
func (s *Scheduler) blink(ctx context.Context) {
	ctx = context.WithoutCancel(ctx)
	seq := frames.BlinkSequenceFor(s.state.Current(), s.rnd)
	for _, id := range seq.Frames {
		s.sink.RequestFrame(id)
		s.clock.Sleep(ctx, seq.Hold)
	}
}
