// Package display renders eye frames and subtitles on the serial screen. It
// encodes FSIMG/SET_TXT commands, queues them without blocking the caller and
// writes them to the transport from a single goroutine. Screen is also the
// screen-control boundary that tools and dialogue logic call into.
package display

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"sync/atomic"

	"github.com/ajhdkjsahd/xiaozhi-esp32-eyes/pkg/animator"
	"github.com/ajhdkjsahd/xiaozhi-esp32-eyes/pkg/events"
	"github.com/ajhdkjsahd/xiaozhi-esp32-eyes/pkg/eye"
	"github.com/ajhdkjsahd/xiaozhi-esp32-eyes/pkg/frames"
)

// DefaultQueueSize is the number of commands buffered ahead of the transport.
const DefaultQueueSize = 64

type commandKind int

const (
	kindRaw commandKind = iota
	kindFrame
	kindSubtitle
)

type command struct {
	kind    commandKind
	frame   frames.ID
	text    string
	payload []byte
}

// Screen is the display sink of the animator and the control surface of the
// eye. Request and control methods never block.
type Screen struct {
	out     io.Writer
	ctrl    *animator.Controller
	queue   chan command
	bus     *events.Bus
	log     *slog.Logger
	dropped atomic.Uint64
}

var _ animator.Sink = (*Screen)(nil)

// Option configures a Screen.
type Option func(*Screen)

// WithQueueSize sets the command buffer size.
func WithQueueSize(n int) Option {
	return func(s *Screen) {
		if n > 0 {
			s.queue = make(chan command, n)
		}
	}
}

// WithEvents publishes display activity on bus.
func WithEvents(bus *events.Bus) Option {
	return func(s *Screen) { s.bus = bus }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Screen) { s.log = l }
}

// New returns a Screen writing commands to out and changing the eye through
// ctrl. Nothing is written until Run is started.
func New(out io.Writer, ctrl *animator.Controller, opts ...Option) *Screen {
	s := &Screen{
		out:   out,
		ctrl:  ctrl,
		queue: make(chan command, DefaultQueueSize),
		log:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run writes queued commands to the transport until ctx is cancelled. Write
// failures are logged and the command is lost.
func (s *Screen) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case cmd := <-s.queue:
			s.write(ctx, cmd)
		}
	}
}

func (s *Screen) write(ctx context.Context, cmd command) {
	if _, err := s.out.Write(cmd.payload); err != nil {
		s.log.WarnContext(ctx, "screen write failed", "error", err)
		s.bus.Emit(events.TransportError, err)
		return
	}

	switch cmd.kind {
	case kindFrame:
		s.bus.Emit(events.FrameSent, cmd.frame)
	case kindSubtitle:
		s.bus.Emit(events.SubtitleSent, cmd.text)
	default:
		s.bus.Emit(events.CommandSent, len(cmd.payload))
	}
}

func (s *Screen) enqueue(cmd command) {
	if len(cmd.payload) == 0 {
		return
	}

	select {
	case s.queue <- cmd:
	default:
		s.dropped.Add(1)
		s.bus.Emit(events.CommandDropped, len(cmd.payload))
	}
}

// Dropped returns how many commands were discarded because the queue was
// full.
func (s *Screen) Dropped() uint64 { return s.dropped.Load() }

// RequestFrame queues the frame-display command for id. IDs outside the
// flashed image range are dropped.
func (s *Screen) RequestFrame(id frames.ID) {
	if !frames.Valid(id) {
		s.log.Warn("frame dropped", "frame", id)
		return
	}
	s.enqueue(command{kind: kindFrame, frame: id, payload: FrameCommand(id)})
}

// RequestSubtitle queues a subtitle. Text that cannot be encoded is dropped.
func (s *Screen) RequestSubtitle(text string) {
	payload, err := SubtitleCommand(text)
	if err != nil {
		s.log.Warn("subtitle dropped", "error", err)
		return
	}
	s.enqueue(command{kind: kindSubtitle, text: PrepareSubtitle(text), payload: payload})
}

// SendSubtitle shows UTF-8 text in the subtitle box.
func (s *Screen) SendSubtitle(text string) { s.RequestSubtitle(text) }

// SendCommand queues a copy of a raw command. Empty payloads are ignored.
func (s *Screen) SendCommand(cmd []byte) {
	s.enqueue(command{kind: kindRaw, payload: bytes.Clone(cmd)})
}

// SetEyeState forwards a logical state change to the animator.
func (s *Screen) SetEyeState(state eye.State) {
	if s.ctrl.SetState(state) {
		s.bus.Emit(events.WakeTriggered, state)
	}
	s.bus.Emit(events.StateChanged, state)
}

// ForceOpenEye lifts the closed override and resumes the resting state.
func (s *Screen) ForceOpenEye() {
	s.ctrl.SetForceClosed(false)
	s.ctrl.SetState(eye.Open)
	s.bus.Emit(events.ForceChanged, false)
	s.log.Info("eye force-opened")
}

// ForceCloseEye holds the closed frame until ForceOpenEye is called.
func (s *Screen) ForceCloseEye() {
	s.ctrl.SetForceClosed(true)
	s.bus.Emit(events.ForceChanged, true)
	s.log.Info("eye force-closed")
}

// Snapshot reports the current animation state.
func (s *Screen) Snapshot() animator.Snapshot {
	return s.ctrl.State().Snapshot()
}
