package detect

import (
	"github.com/sirupsen/logrus"

	"github.com/opd-ai/cvloop/video"
)

const defaultMinArea = 64

// Motion detects the bounding box of foreground activity using a
// background subtractor. It reports at most one box per frame: the
// extent of all foreground pixels, provided it covers at least MinArea
// pixels.
type Motion struct {
	subtractor *Subtractor
	minArea    int
}

// NewMotion creates a motion detector over a fresh background
// subtractor with the default minimum area.
func NewMotion() *Motion {
	return NewMotionWithSettings(NewSubtractor(), defaultMinArea)
}

// NewMotionWithSettings creates a motion detector over the given
// subtractor. minArea is the minimum number of foreground pixels
// required before a box is reported.
func NewMotionWithSettings(subtractor *Subtractor, minArea int) *Motion {
	if minArea < 1 {
		minArea = 1
	}
	return &Motion{
		subtractor: subtractor,
		minArea:    minArea,
	}
}

// Detect returns the bounding box of foreground activity, or no boxes
// when the frame is quiet.
func (m *Motion) Detect(frame *video.Frame) []Box {
	mask := m.subtractor.Apply(frame)

	minX, minY := frame.Width, frame.Height
	maxX, maxY := -1, -1
	area := 0
	for y := 0; y < frame.Height; y++ {
		for x := 0; x < frame.Width; x++ {
			if mask[y*frame.Width+x] == 0 {
				continue
			}
			area++
			if x < minX {
				minX = x
			}
			if x > maxX {
				maxX = x
			}
			if y < minY {
				minY = y
			}
			if y > maxY {
				maxY = y
			}
		}
	}

	if area < m.minArea {
		return nil
	}

	box := Box{X: minX, Y: minY, W: maxX - minX + 1, H: maxY - minY + 1}
	logrus.WithFields(logrus.Fields{
		"function": "Motion.Detect",
		"area":     area,
		"x":        box.X,
		"y":        box.Y,
		"w":        box.W,
		"h":        box.H,
	}).Debug("Motion detected")

	return []Box{box}
}
