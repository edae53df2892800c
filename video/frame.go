// Package video provides the frame buffer and color handling primitives
// for the cvloop playback pipeline.
//
// Frames are interleaved uint8 sample buffers laid out row-major as
// height × width × channels. A channel count of 1 is a grayscale frame,
// 3 or more is a color frame (channels beyond the third, e.g. alpha,
// are carried but ignored by the color policy).
//
// The frame processing pipeline:
//
//	Source → Channel Order Conversion → Transform → Overlay → Color Policy → Sink
package video

import (
	"fmt"
)

// Frame represents a single decoded image buffer.
//
// Pix holds Width*Height*Channels samples, row-major and interleaved.
// Dimensions are fixed for the lifetime of one frame source instance.
type Frame struct {
	Width    int
	Height   int
	Channels int
	Pix      []uint8
}

// NewFrame allocates a zeroed frame with the given dimensions.
func NewFrame(width, height, channels int) (*Frame, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid frame dimensions: %dx%d", width, height)
	}
	if channels < 1 {
		return nil, fmt.Errorf("invalid channel count: %d", channels)
	}

	return &Frame{
		Width:    width,
		Height:   height,
		Channels: channels,
		Pix:      make([]uint8, width*height*channels),
	}, nil
}

// Validate checks that the pixel buffer matches the declared dimensions.
func (f *Frame) Validate() error {
	if f == nil {
		return fmt.Errorf("frame cannot be nil")
	}
	if f.Width <= 0 || f.Height <= 0 {
		return fmt.Errorf("invalid frame dimensions: %dx%d", f.Width, f.Height)
	}
	if f.Channels < 1 {
		return fmt.Errorf("invalid channel count: %d", f.Channels)
	}
	expected := f.Width * f.Height * f.Channels
	if len(f.Pix) < expected {
		return fmt.Errorf("pixel buffer too small: got %d, expected %d", len(f.Pix), expected)
	}
	return nil
}

// Clone creates a deep copy of the frame.
func (f *Frame) Clone() *Frame {
	return &Frame{
		Width:    f.Width,
		Height:   f.Height,
		Channels: f.Channels,
		Pix:      append([]uint8(nil), f.Pix...),
	}
}

// Offset returns the index of sample (x, y, c) in Pix.
// Bounds are not checked.
func (f *Frame) Offset(x, y, c int) int {
	return (y*f.Width+x)*f.Channels + c
}

// At returns the sample at (x, y, c).
func (f *Frame) At(x, y, c int) uint8 {
	return f.Pix[f.Offset(x, y, c)]
}

// Set stores a sample at (x, y, c).
func (f *Frame) Set(x, y, c int, v uint8) {
	f.Pix[f.Offset(x, y, c)] = v
}
