// Package transform defines the per-frame transform hook of the cvloop
// pipeline and a set of ready-to-use transforms.
//
// A Transform takes a frame and returns the modified frame. Transforms
// may mutate their input in place or return a new frame; the playback
// loop decides when a defensive copy is needed. Any error a transform
// returns propagates to the caller and halts playback.
package transform

import (
	"fmt"

	"github.com/opd-ai/cvloop/video"
)

// Transform modifies one frame per tick.
type Transform interface {
	// Apply processes a frame and returns the modified frame.
	Apply(frame *video.Frame) (*video.Frame, error)
	// Name returns the transform name for identification.
	Name() string
}

// Func adapts a plain function to the Transform interface.
type Func struct {
	name string
	fn   func(frame *video.Frame) (*video.Frame, error)
}

// NewFunc wraps a function as a named Transform.
func NewFunc(name string, fn func(frame *video.Frame) (*video.Frame, error)) *Func {
	return &Func{name: name, fn: fn}
}

// Apply calls the wrapped function.
func (f *Func) Apply(frame *video.Frame) (*video.Frame, error) {
	return f.fn(frame)
}

// Name returns the configured name.
func (f *Func) Name() string {
	return f.name
}

// Chain applies multiple transforms in sequence.
type Chain struct {
	transforms []Transform
}

// NewChain creates a transform chain. An empty chain is the identity.
func NewChain(transforms ...Transform) *Chain {
	return &Chain{transforms: transforms}
}

// Add appends a transform to the chain.
func (c *Chain) Add(t Transform) {
	c.transforms = append(c.transforms, t)
}

// Len returns the number of transforms in the chain.
func (c *Chain) Len() int {
	return len(c.transforms)
}

// Apply runs the frame through every transform in order.
func (c *Chain) Apply(frame *video.Frame) (*video.Frame, error) {
	if frame == nil {
		return nil, fmt.Errorf("input frame cannot be nil")
	}

	current := frame
	for i, t := range c.transforms {
		result, err := t.Apply(current)
		if err != nil {
			return nil, fmt.Errorf("transform %d (%s) failed: %w", i, t.Name(), err)
		}
		current = result
	}
	return current, nil
}

// Name lists the chained transform names.
func (c *Chain) Name() string {
	if len(c.transforms) == 0 {
		return "Identity"
	}
	name := c.transforms[0].Name()
	for _, t := range c.transforms[1:] {
		name += "+" + t.Name()
	}
	return name
}
