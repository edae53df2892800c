package annotate

import (
	"errors"
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"
)

// ErrUnknownShape is returned when an annotation carries a shape tag
// that is neither ShapeRect nor ShapeCircle. An undefined outline is a
// caller configuration error and is surfaced at schedule time rather
// than silently dropped.
var ErrUnknownShape = errors.New("unknown annotation shape")

// Scheduler resolves which annotations apply to the current frame
// index. The annotation sequence is kept sorted by ascending frame
// index; insertion order is preserved among equal indices.
type Scheduler struct {
	annotations []Annotation
	defaults    Style
}

// NewScheduler creates a scheduler over the given annotations and
// default style. The input slice is copied and stably sorted.
func NewScheduler(annotations []Annotation, defaults Style) *Scheduler {
	sorted := append([]Annotation(nil), annotations...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].FrameIndex < sorted[j].FrameIndex
	})

	logrus.WithFields(logrus.Fields{
		"function":    "NewScheduler",
		"annotations": len(sorted),
	}).Debug("Annotation scheduler created")

	return &Scheduler{
		annotations: sorted,
		defaults:    defaults,
	}
}

// Empty reports whether the scheduler holds no annotations.
func (s *Scheduler) Empty() bool {
	return len(s.annotations) == 0
}

// ShapesFor returns the drawable descriptors for the given frame index.
//
// The sequence is scanned from the start on every call; sorted order
// makes the first entry with a larger index an early exit, so
// annotations are drawn only on the exact frame they target and never
// again afterward. Previously emitted descriptors are implicitly
// discarded by the caller replacing them each tick.
func (s *Scheduler) ShapesFor(frameIndex int) ([]ShapeDescriptor, error) {
	var shapes []ShapeDescriptor
	for i := range s.annotations {
		a := &s.annotations[i]
		if a.FrameIndex > frameIndex {
			break
		}
		if a.FrameIndex != frameIndex {
			continue
		}

		desc, err := s.describe(a)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"function":    "Scheduler.ShapesFor",
				"frame_index": frameIndex,
				"x":           a.X,
				"y":           a.Y,
				"error":       err.Error(),
			}).Error("Annotation rejected")
			return nil, err
		}
		shapes = append(shapes, desc)
	}
	return shapes, nil
}

// describe merges an annotation over the defaults and builds its
// descriptor.
func (s *Scheduler) describe(a *Annotation) (ShapeDescriptor, error) {
	style := a.style(s.defaults)

	desc := ShapeDescriptor{
		X:     a.X,
		Y:     a.Y,
		Color: style.Color,
		Line:  style.Line,
	}

	switch style.Shape {
	case ShapeRect:
		desc.Kind = KindRect
		desc.HalfWidth = style.Size.W / 2
		desc.HalfHeight = style.Size.H / 2
	case ShapeCircle:
		desc.Kind = KindCircle
		// Circles take a scalar radius only; a two-element size is
		// ignored in favor of the fixed default radius.
		if style.Size.IsScalar() {
			desc.Radius = style.Size.W
		} else {
			desc.Radius = DefaultCircleRadius
		}
	default:
		return ShapeDescriptor{}, fmt.Errorf("%w: %q at (%d, %d) frame %d",
			ErrUnknownShape, style.Shape, a.X, a.Y, a.FrameIndex)
	}

	return desc, nil
}
