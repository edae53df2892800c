package transform

import (
	"fmt"

	"github.com/opd-ai/cvloop/detect"
	"github.com/opd-ai/cvloop/video"
)

// Invert produces the image negative.
type Invert struct {
	high uint8
}

// NewInvert creates an inverter that subtracts every sample from high.
// The usual value is 255.
func NewInvert(high uint8) *Invert {
	return &Invert{high: high}
}

// Apply inverts the frame in place, saturating samples above high at
// zero.
func (iv *Invert) Apply(frame *video.Frame) (*video.Frame, error) {
	if frame == nil {
		return nil, fmt.Errorf("input frame cannot be nil")
	}
	for i, v := range frame.Pix {
		if v > iv.high {
			frame.Pix[i] = 0
		} else {
			frame.Pix[i] = iv.high - v
		}
	}
	return frame, nil
}

// Name returns the transform name.
func (iv *Invert) Name() string {
	return fmt.Sprintf("Invert(%d)", iv.high)
}

// Gray converts frames to single-channel luma.
type Gray struct{}

// NewGray creates a grayscale conversion transform.
func NewGray() *Gray {
	return &Gray{}
}

// Apply converts color frames to luma; grayscale frames pass through.
func (g *Gray) Apply(frame *video.Frame) (*video.Frame, error) {
	if frame == nil {
		return nil, fmt.Errorf("input frame cannot be nil")
	}
	return video.ToGray(frame), nil
}

// Name returns the transform name.
func (g *Gray) Name() string {
	return "Gray"
}

// ForegroundExtractor keeps foreground pixels and blacks out the
// background, using a stateful background subtractor owned by this
// instance.
type ForegroundExtractor struct {
	subtractor *detect.Subtractor
}

// NewForegroundExtractor creates a foreground extractor over a fresh
// background subtractor.
func NewForegroundExtractor() *ForegroundExtractor {
	return NewForegroundExtractorWithSubtractor(detect.NewSubtractor())
}

// NewForegroundExtractorWithSubtractor uses the supplied subtractor,
// allowing callers to tune or share the background model.
func NewForegroundExtractorWithSubtractor(subtractor *detect.Subtractor) *ForegroundExtractor {
	return &ForegroundExtractor{subtractor: subtractor}
}

// Apply masks the frame in place: pixels outside the foreground mask
// are set to zero across all channels.
func (fe *ForegroundExtractor) Apply(frame *video.Frame) (*video.Frame, error) {
	if frame == nil {
		return nil, fmt.Errorf("input frame cannot be nil")
	}

	mask := fe.subtractor.Apply(frame)
	for i := 0; i < frame.Width*frame.Height; i++ {
		if mask[i] != 0 {
			continue
		}
		base := i * frame.Channels
		for c := 0; c < frame.Channels; c++ {
			frame.Pix[base+c] = 0
		}
	}
	return frame, nil
}

// Name returns the transform name.
func (fe *ForegroundExtractor) Name() string {
	return "ForegroundExtractor"
}
