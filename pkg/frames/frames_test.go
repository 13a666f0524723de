package frames

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajhdkjsahd/xiaozhi-esp32-eyes/pkg/eye"
)

// seqRand returns the queued values in order, wrapped into [0,n).
type seqRand struct {
	vals []int
	i    int
}

func (r *seqRand) IntN(n int) int {
	v := r.vals[r.i%len(r.vals)]
	r.i++
	return v % n
}

func newRand() *rand.Rand {
	return rand.New(rand.NewPCG(1, 2))
}

func contains(r HoldRange, d time.Duration) bool {
	return d >= r.Min && d <= r.Max
}

// allBlinks returns every blink sequence in the library, lazy first.
func allBlinks() []BlinkSequence {
	return append([]BlinkSequence{lazyBlink}, alertBlinks...)
}

func TestAddress(t *testing.T) {
	assert.Equal(t, uint32(2212352), Address(0))
	assert.Equal(t, uint32(2292352), Address(1))
	assert.Equal(t, uint32(6932352), Address(59))
}

func TestValid(t *testing.T) {
	assert.True(t, Valid(0))
	assert.True(t, Valid(59))
	assert.False(t, Valid(60))
	assert.False(t, Valid(-1))
}

func TestLibraryFramesAreValid(t *testing.T) {
	for _, seq := range allBlinks() {
		for _, id := range seq.Frames {
			assert.True(t, Valid(id), "blink frame %d", id)
		}
	}
	for _, s := range eye.States() {
		pool, ok := IdlePoolFor(s)
		if !ok {
			continue
		}
		for _, id := range pool.Frames {
			assert.True(t, Valid(id), "idle frame %d for %s", id, s)
		}
	}
	assert.True(t, Valid(Closed))
}

func TestBlinkSequenceForOpen(t *testing.T) {
	seq := BlinkSequenceFor(eye.Open, newRand())
	assert.Equal(t, []ID{45, 44, 42, 43, 42, 44, 45}, seq.Frames)
	assert.Equal(t, 200*time.Millisecond, seq.Hold)
}

func TestBlinkSequenceForAlertStates(t *testing.T) {
	rnd := &seqRand{vals: []int{0, 1, 2}}
	want := [][]ID{
		{6, 7, 8, 9, 10, 11},
		{20, 21, 22, 23, 24, 25},
		{31, 32, 33, 34, 35, 36},
	}

	for _, w := range want {
		seq := BlinkSequenceFor(eye.Speaking, rnd)
		assert.Equal(t, w, seq.Frames)
		assert.Equal(t, 35*time.Millisecond, seq.Hold)
	}
}

func TestBlinkSequenceChoiceCoversAllAlertBlinks(t *testing.T) {
	rnd := newRand()
	seen := map[ID]int{}
	for range 300 {
		seq := BlinkSequenceFor(eye.Thinking, rnd)
		require.Len(t, seq.Frames, 6)
		seen[seq.Frames[0]]++
	}
	assert.Len(t, seen, 3)
}

func TestIdlePoolForOpenOnlyYieldsLazyFrames(t *testing.T) {
	pool, ok := IdlePoolFor(eye.Open)
	require.True(t, ok)

	rnd := newRand()
	for range 200 {
		id := pool.Pick(rnd)
		assert.Contains(t, []ID{44, 45}, id)
	}
	assert.Equal(t, HoldRange{Min: 2 * time.Second, Max: 4 * time.Second}, pool.Hold)
}

func TestIdlePoolForAlertStates(t *testing.T) {
	cases := []struct {
		state eye.State
		hold  HoldRange
	}{
		{eye.Listening, HoldRange{Min: 800 * time.Millisecond, Max: 1500 * time.Millisecond}},
		{eye.Speaking, HoldRange{Min: 150 * time.Millisecond, Max: 400 * time.Millisecond}},
		{eye.Thinking, HoldRange{Min: 50 * time.Millisecond, Max: 150 * time.Millisecond}},
		{eye.State(99), HoldRange{Min: 500 * time.Millisecond, Max: 1200 * time.Millisecond}},
	}

	for _, tc := range cases {
		t.Run(tc.state.String(), func(t *testing.T) {
			pool, ok := IdlePoolFor(tc.state)
			require.True(t, ok)
			assert.Equal(t, tc.hold, pool.Hold)
			assert.Len(t, pool.Frames, 34)
			for _, near := range []ID{42, 43, 44, 45} {
				assert.NotContains(t, pool.Frames, near)
			}

			rnd := newRand()
			for range 100 {
				assert.Contains(t, alertIdleFrames, pool.Pick(rnd))
			}
		})
	}
}

func TestIdlePoolAlertFramesDistinct(t *testing.T) {
	seen := map[ID]bool{}
	for _, id := range alertIdleFrames {
		assert.False(t, seen[id], "duplicate frame %d", id)
		seen[id] = true
	}
}

func TestIdlePoolForClose(t *testing.T) {
	_, ok := IdlePoolFor(eye.Close)
	assert.False(t, ok)
}

func TestBlinkIntervalFor(t *testing.T) {
	assert.Equal(t, HoldRange{Min: 3 * time.Second, Max: 8 * time.Second}, BlinkIntervalFor(eye.Open))
	for _, s := range []eye.State{eye.Listening, eye.Thinking, eye.Speaking, eye.Close} {
		assert.Equal(t, HoldRange{Min: 2 * time.Second, Max: 6 * time.Second}, BlinkIntervalFor(s))
	}
}

func TestHoldRangeDrawInclusive(t *testing.T) {
	r := HoldRange{Min: 50 * time.Millisecond, Max: 52 * time.Millisecond}

	assert.Equal(t, 50*time.Millisecond, r.Draw(&seqRand{vals: []int{0}}))
	assert.Equal(t, 52*time.Millisecond, r.Draw(&seqRand{vals: []int{2}}))

	rnd := newRand()
	for range 500 {
		d := r.Draw(rnd)
		assert.True(t, contains(r, d), "drawn %s", d)
		assert.Zero(t, d%time.Millisecond)
	}
}

func TestHoldRangeDrawDegenerate(t *testing.T) {
	r := HoldRange{Min: time.Second, Max: time.Second}
	assert.Equal(t, time.Second, r.Draw(newRand()))
}

func TestBlinkSequenceForReturnsCopy(t *testing.T) {
	require.Len(t, allBlinks(), 4)
	seq := BlinkSequenceFor(eye.Open, newRand())
	seq.Frames[0] = 0
	assert.Equal(t, ID(45), BlinkSequenceFor(eye.Open, newRand()).Frames[0])
}
