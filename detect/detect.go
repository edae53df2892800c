// Package detect defines the bounding-box detector capability used by
// the overlay compositor, plus a simple motion detector built on a
// running-average background model.
//
// Detector state is held by explicit instances owned by the caller and
// passed into the pipeline; there is no implicit shared state.
package detect

import (
	"github.com/opd-ai/cvloop/video"
)

// Box is an integer rectangle anchored at its top-left corner.
type Box struct {
	X, Y, W, H int
}

// Detector finds bounding boxes in a frame. It is called once per tick
// when overlay compositing is configured.
type Detector interface {
	Detect(frame *video.Frame) []Box
}

// DetectorFunc adapts a plain function to the Detector interface.
type DetectorFunc func(frame *video.Frame) []Box

// Detect calls the wrapped function.
func (f DetectorFunc) Detect(frame *video.Frame) []Box {
	return f(frame)
}
