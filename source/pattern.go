package source

import (
	"github.com/opd-ai/cvloop/video"
)

const patternSquareSize = 24

// Pattern generates a synthetic moving test pattern: a color gradient
// background with a white square bouncing horizontally. Useful for
// demos and for exercising the pipeline without a capture device.
type Pattern struct {
	width  int
	height int
	count  int
	next   int
}

// NewPattern creates a pattern source producing count frames of the
// given size. A count of zero or less makes the source unbounded.
func NewPattern(width, height, count int) *Pattern {
	if width < patternSquareSize {
		width = patternSquareSize
	}
	if height < patternSquareSize {
		height = patternSquareSize
	}
	return &Pattern{width: width, height: height, count: count}
}

// Read generates the next pattern frame.
func (p *Pattern) Read() (*video.Frame, bool) {
	if p.count > 0 && p.next >= p.count {
		return nil, false
	}
	n := p.next
	p.next++

	frame := &video.Frame{
		Width:    p.width,
		Height:   p.height,
		Channels: 3,
		Pix:      make([]uint8, p.width*p.height*3),
	}

	for y := 0; y < p.height; y++ {
		for x := 0; x < p.width; x++ {
			base := (y*p.width + x) * 3
			frame.Pix[base] = uint8(x * 255 / p.width)
			frame.Pix[base+1] = uint8(y * 255 / p.height)
			frame.Pix[base+2] = uint8((n * 3) % 256)
		}
	}

	// Bouncing square.
	span := p.width - patternSquareSize
	pos := 0
	if span > 0 {
		pos = (n * 4) % (2 * span)
		if pos > span {
			pos = 2*span - pos
		}
	}
	top := (p.height - patternSquareSize) / 2
	for y := top; y < top+patternSquareSize; y++ {
		for x := pos; x < pos+patternSquareSize; x++ {
			base := (y*p.width + x) * 3
			frame.Pix[base] = 255
			frame.Pix[base+1] = 255
			frame.Pix[base+2] = 255
		}
	}

	return frame, true
}

// Size reports the pattern dimensions.
func (p *Pattern) Size() (width, height int) {
	return p.width, p.height
}
