// Package source defines the frame acquisition capability for the
// cvloop playback loop, plus sources backed by memory, image
// directories, and a synthetic test pattern.
//
// A FrameSource yields frames until exhaustion. Reads may block; the
// playback loop serializes them, so a blocked read only delays the next
// render. Optional capabilities are expressed as extra interfaces
// (Releaser, Sizer) that the loop discovers with type assertions
// instead of runtime method sniffing.
package source

import (
	"github.com/opd-ai/cvloop/video"
)

// FrameSource yields frames or end-of-stream.
type FrameSource interface {
	// Read returns the next frame. ok is false on exhaustion, which is
	// natural termination, not an error.
	Read() (frame *video.Frame, ok bool)
}

// Releaser is the optional release capability of a frame source.
// Absence is not an error; release is best-effort.
type Releaser interface {
	Release()
}

// Sizer reports frame dimensions without consuming a frame. Sources
// that cannot know their dimensions up front simply omit it, and the
// playback loop probes by reading a frame instead.
type Sizer interface {
	Size() (width, height int)
}
