package display

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajhdkjsahd/xiaozhi-esp32-eyes/pkg/animator"
	"github.com/ajhdkjsahd/xiaozhi-esp32-eyes/pkg/events"
	"github.com/ajhdkjsahd/xiaozhi-esp32-eyes/pkg/eye"
	"github.com/ajhdkjsahd/xiaozhi-esp32-eyes/pkg/frames"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("link down") }

func runScreen(t *testing.T, s *Screen) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		assert.ErrorIs(t, <-done, context.Canceled)
	})
}

func newScreen(out *syncBuffer, opts ...Option) (*Screen, *animator.Controller) {
	ctrl := animator.NewController(animator.NewState())
	return New(out, ctrl, opts...), ctrl
}

func TestScreenWritesFramesInOrder(t *testing.T) {
	out := &syncBuffer{}
	s, _ := newScreen(out)
	runScreen(t, s)

	s.RequestFrame(0)
	s.RequestFrame(frames.Closed)

	want := "FSIMG(2212352,20,20,200,200,0);\r\nFSIMG(2852352,20,20,200,200,0);\r\n"
	require.Eventually(t, func() bool { return out.String() == want }, time.Second, 5*time.Millisecond)
}

func TestScreenSubtitle(t *testing.T) {
	out := &syncBuffer{}
	s, _ := newScreen(out)
	runScreen(t, s)

	s.SendSubtitle("hello\nworld")

	require.Eventually(t, func() bool {
		return out.String() == "SET_TXT(1,'hello world');\r\n"
	}, time.Second, 5*time.Millisecond)
}

func TestScreenSendCommandDropsEmpty(t *testing.T) {
	out := &syncBuffer{}
	s, _ := newScreen(out, WithQueueSize(1))

	s.SendCommand(nil)
	s.SendCommand([]byte{})
	s.SendCommand([]byte("CLS(0);\r\n"))

	assert.Zero(t, s.Dropped())
	runScreen(t, s)
	require.Eventually(t, func() bool { return out.String() == "CLS(0);\r\n" }, time.Second, 5*time.Millisecond)
}

func TestScreenSendCommandCopiesPayload(t *testing.T) {
	out := &syncBuffer{}
	s, _ := newScreen(out)

	buf := []byte("CLS(0);\r\n")
	s.SendCommand(buf)
	copy(buf, "XXXXXXX")

	runScreen(t, s)
	require.Eventually(t, func() bool { return out.String() == "CLS(0);\r\n" }, time.Second, 5*time.Millisecond)
}

func TestScreenIgnoresUnknownFrame(t *testing.T) {
	s, _ := newScreen(&syncBuffer{}, WithQueueSize(1))

	s.RequestFrame(frames.Count)
	s.RequestFrame(-1)
	s.RequestFrame(0)

	assert.Zero(t, s.Dropped())
}

func TestScreenDropsWhenQueueFull(t *testing.T) {
	bus := events.NewBus()
	sub := bus.Subscribe(4)
	defer bus.Unsubscribe(sub)

	s, _ := newScreen(&syncBuffer{}, WithQueueSize(1), WithEvents(bus))

	s.RequestFrame(1)
	s.RequestFrame(2)
	s.RequestFrame(3)

	assert.Equal(t, uint64(2), s.Dropped())
	e := <-sub.C
	assert.Equal(t, events.CommandDropped, e.Kind)
}

func TestScreenPublishesSentFrames(t *testing.T) {
	bus := events.NewBus()
	sub := bus.Subscribe(4)
	defer bus.Unsubscribe(sub)

	s, _ := newScreen(&syncBuffer{}, WithEvents(bus))
	runScreen(t, s)

	s.RequestFrame(12)

	select {
	case e := <-sub.C:
		assert.Equal(t, events.FrameSent, e.Kind)
		assert.Equal(t, frames.ID(12), e.Data)
	case <-time.After(time.Second):
		t.Fatal("no frame event")
	}
}

func TestScreenTransportError(t *testing.T) {
	bus := events.NewBus()
	sub := bus.Subscribe(4)
	defer bus.Unsubscribe(sub)

	ctrl := animator.NewController(animator.NewState())
	s := New(failingWriter{}, ctrl, WithEvents(bus))
	runScreen(t, s)

	s.RequestFrame(0)

	select {
	case e := <-sub.C:
		assert.Equal(t, events.TransportError, e.Kind)
		err, ok := e.Data.(error)
		require.True(t, ok)
		assert.Contains(t, err.Error(), "link down")
	case <-time.After(time.Second):
		t.Fatal("no transport error event")
	}
}

func TestScreenControlBoundary(t *testing.T) {
	bus := events.NewBus()
	sub := bus.Subscribe(16)
	defer bus.Unsubscribe(sub)

	s, ctrl := newScreen(&syncBuffer{}, WithEvents(bus))

	s.SetEyeState(eye.Listening)
	assert.Equal(t, events.WakeTriggered, (<-sub.C).Kind)
	assert.Equal(t, events.StateChanged, (<-sub.C).Kind)
	assert.True(t, ctrl.State().WakePending())

	s.ForceCloseEye()
	assert.True(t, s.Snapshot().ForceClosed)
	s.SetEyeState(eye.Thinking)
	assert.Equal(t, eye.Thinking, s.Snapshot().State)

	s.ForceOpenEye()
	snap := s.Snapshot()
	assert.False(t, snap.ForceClosed)
	assert.Equal(t, eye.Open, snap.State)
}

func TestScreenIsSchedulerSink(t *testing.T) {
	out := &syncBuffer{}
	s, ctrl := newScreen(out)
	runScreen(t, s)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ctrl.SetForceClosed(true)
	sched := animator.NewScheduler(ctrl.State(), s)
	go func() { _ = sched.Run(ctx) }()

	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "FSIMG(2852352,20,20,200,200,0);\r\n")
	}, time.Second, 5*time.Millisecond)
}
