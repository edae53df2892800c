package detect

import (
	"math"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/cvloop/video"
)

const (
	defaultLearningRate = 0.05
	defaultThreshold    = 25
)

// Subtractor is a running-average background model. Each frame updates
// the per-pixel background estimate and yields a binary foreground
// mask.
//
// A Subtractor is a stateful object; construct one per stream and reuse
// it across frames. It is not safe for concurrent use, matching the
// one-tick-at-a-time playback model.
type Subtractor struct {
	learningRate float64
	threshold    uint8

	background []float64
	width      int
	height     int
}

// NewSubtractor creates a background subtractor with default learning
// rate and threshold.
func NewSubtractor() *Subtractor {
	return NewSubtractorWithSettings(defaultLearningRate, defaultThreshold)
}

// NewSubtractorWithSettings creates a background subtractor with a
// specific learning rate (0..1, how fast the model adapts) and
// foreground threshold (minimum luma difference). Out-of-range values
// are clamped.
func NewSubtractorWithSettings(learningRate float64, threshold uint8) *Subtractor {
	if learningRate < 0 {
		learningRate = 0
	}
	if learningRate > 1 {
		learningRate = 1
	}

	logrus.WithFields(logrus.Fields{
		"function":      "NewSubtractorWithSettings",
		"learning_rate": learningRate,
		"threshold":     threshold,
	}).Debug("Background subtractor created")

	return &Subtractor{
		learningRate: learningRate,
		threshold:    threshold,
	}
}

// Apply updates the background model with the frame and returns a
// foreground mask of Width*Height entries, 255 for foreground and 0
// for background. The first frame seeds the model and yields an empty
// mask. A dimension change resets the model.
func (s *Subtractor) Apply(frame *video.Frame) []uint8 {
	luma := video.ToGray(frame)
	n := luma.Width * luma.Height
	mask := make([]uint8, n)

	if s.background == nil || s.width != luma.Width || s.height != luma.Height {
		s.width = luma.Width
		s.height = luma.Height
		s.background = make([]float64, n)
		for i := 0; i < n; i++ {
			s.background[i] = float64(luma.Pix[i])
		}
		return mask
	}

	for i := 0; i < n; i++ {
		v := float64(luma.Pix[i])
		if math.Abs(v-s.background[i]) > float64(s.threshold) {
			mask[i] = 255
		}
		s.background[i] += s.learningRate * (v - s.background[i])
	}
	return mask
}
