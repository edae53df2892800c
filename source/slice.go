package source

import (
	"github.com/opd-ai/cvloop/video"
)

// Slice yields a fixed sequence of frames, then signals exhaustion.
type Slice struct {
	frames   []*video.Frame
	next     int
	released int
}

// NewSlice creates a source over the given frames. The slice is used
// as-is; frames are handed out without copying.
func NewSlice(frames ...*video.Frame) *Slice {
	return &Slice{frames: frames}
}

// Read returns the next frame, or ok=false once the sequence is
// exhausted.
func (s *Slice) Read() (*video.Frame, bool) {
	if s.next >= len(s.frames) {
		return nil, false
	}
	f := s.frames[s.next]
	s.next++
	return f, true
}

// Release records the release. Reading past it still works, which
// keeps release-counting tests honest.
func (s *Slice) Release() {
	s.released++
}

// ReleaseCount returns how many times Release was invoked.
func (s *Slice) ReleaseCount() int {
	return s.released
}

// Size reports the dimensions of the first frame, or 0, 0 for an empty
// sequence.
func (s *Slice) Size() (width, height int) {
	if len(s.frames) == 0 {
		return 0, 0
	}
	return s.frames[0].Width, s.frames[0].Height
}
