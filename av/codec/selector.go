package codec

import (
	"image"

	"github.com/opd-ai/tilecast/av/tiling"
	"github.com/sirupsen/logrus"
)

// Select maps a motion classification to a codec: changing content goes to
// the low-latency codec, static content to the high-compression codec.
func Select(hasMotion bool) Codec {
	if hasMotion {
		return LowLatency
	}
	return HighCompression
}

// Selector chooses the codec for one tile of a frame.
type Selector interface {
	Select(region tiling.Region, hasMotion bool) Codec
	// Reset drops any per-position state, e.g. after a tile size change.
	Reset()
}

// DirectSelector applies Select without memory and may flip codec every
// frame.
type DirectSelector struct{}

// Select implements Selector.
func (DirectSelector) Select(_ tiling.Region, hasMotion bool) Codec {
	return Select(hasMotion)
}

// Reset implements Selector.
func (DirectSelector) Reset() {}

// HysteresisSelector keeps the codec of each tile position until the
// opposite classification has been seen a number of times in a row.
type HysteresisSelector struct {
	required int
	states   map[image.Point]*hysteresisState
}

type hysteresisState struct {
	current Codec
	streak  int
}

// NewHysteresisSelector creates a selector requiring required consecutive
// disagreeing classifications before switching. Values below 2 behave like
// DirectSelector.
func NewHysteresisSelector(required int) *HysteresisSelector {
	logrus.WithFields(logrus.Fields{
		"function": "NewHysteresisSelector",
		"required": required,
	}).Debug("Creating hysteresis codec selector")

	return &HysteresisSelector{
		required: required,
		states:   make(map[image.Point]*hysteresisState),
	}
}

// Select implements Selector. A position seen for the first time takes the
// directly selected codec.
func (s *HysteresisSelector) Select(region tiling.Region, hasMotion bool) Codec {
	want := Select(hasMotion)
	key := image.Pt(region.X, region.Y)

	st, ok := s.states[key]
	if !ok {
		s.states[key] = &hysteresisState{current: want}
		return want
	}
	if want == st.current {
		st.streak = 0
		return st.current
	}
	st.streak++
	if st.streak >= s.required {
		logrus.WithFields(logrus.Fields{
			"function": "HysteresisSelector.Select",
			"tile_x":   region.X,
			"tile_y":   region.Y,
			"from":     st.current.String(),
			"to":       want.String(),
		}).Debug("Tile switching codec")
		st.current = want
		st.streak = 0
	}
	return st.current
}

// Reset implements Selector.
func (s *HysteresisSelector) Reset() {
	s.states = make(map[image.Point]*hysteresisState)
}

// NewSelector returns a DirectSelector for hysteresis values below 2 and a
// HysteresisSelector otherwise.
func NewSelector(hysteresis int) Selector {
	if hysteresis < 2 {
		return DirectSelector{}
	}
	return NewHysteresisSelector(hysteresis)
}
