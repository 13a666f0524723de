package frames

import (
	"slices"

	"github.com/ajhdkjsahd/xiaozhi-esp32-eyes/pkg/eye"
)

// lazyBlink reads as half-lid, near-closed, closed, fully closed and back.
var lazyBlink = BlinkSequence{
	Frames: []ID{45, 44, 42, 43, 42, 44, 45},
	Hold:   ms(200),
}

var alertBlinks = []BlinkSequence{
	{Frames: []ID{6, 7, 8, 9, 10, 11}, Hold: ms(35)},
	{Frames: []ID{20, 21, 22, 23, 24, 25}, Hold: ms(35)},
	{Frames: []ID{31, 32, 33, 34, 35, 36}, Hold: ms(35)},
}

var lazyIdleFrames = []ID{44, 45}

// alertIdleFrames excludes the near-closed frames 42-45.
var alertIdleFrames = []ID{
	0, 1, 2, 3, 4, 5,
	12, 13, 14, 15, 16, 17, 18, 19,
	26, 27, 28, 29, 30,
	37, 38, 39,
	48, 49, 50, 51, 52, 53, 54, 55, 56, 57, 58, 59,
}

var (
	openHold      = HoldRange{Min: ms(2000), Max: ms(4000)}
	listeningHold = HoldRange{Min: ms(800), Max: ms(1500)}
	speakingHold  = HoldRange{Min: ms(150), Max: ms(400)}
	thinkingHold  = HoldRange{Min: ms(50), Max: ms(150)}
	defaultHold   = HoldRange{Min: ms(500), Max: ms(1200)}
)

var (
	openBlinkInterval  = HoldRange{Min: ms(3000), Max: ms(8000)}
	alertBlinkInterval = HoldRange{Min: ms(2000), Max: ms(6000)}
)

// BlinkSequenceFor returns the blink to play in state s. Open gets the slow
// lazy blink; every other state gets one of the alert blinks chosen
// uniformly at random.
func BlinkSequenceFor(s eye.State, rnd Rand) BlinkSequence {
	if s == eye.Open {
		return cloneSeq(lazyBlink)
	}
	return cloneSeq(alertBlinks[rnd.IntN(len(alertBlinks))])
}

// IdlePoolFor returns the idle pool of state s. Close has no pool: it is
// rendered by the closed-frame override, never dithered.
func IdlePoolFor(s eye.State) (IdlePool, bool) {
	switch s {
	case eye.Close:
		return IdlePool{}, false
	case eye.Open:
		return IdlePool{Frames: lazyIdleFrames, Hold: openHold}, true
	case eye.Listening:
		return IdlePool{Frames: alertIdleFrames, Hold: listeningHold}, true
	case eye.Speaking:
		return IdlePool{Frames: alertIdleFrames, Hold: speakingHold}, true
	case eye.Thinking:
		return IdlePool{Frames: alertIdleFrames, Hold: thinkingHold}, true
	default:
		return IdlePool{Frames: alertIdleFrames, Hold: defaultHold}, true
	}
}

// BlinkIntervalFor returns the range the pause before the next scheduled
// blink is drawn from while in state s.
func BlinkIntervalFor(s eye.State) HoldRange {
	if s == eye.Open {
		return openBlinkInterval
	}
	return alertBlinkInterval
}

func cloneSeq(b BlinkSequence) BlinkSequence {
	return BlinkSequence{Frames: slices.Clone(b.Frames), Hold: b.Hold}
}
