package transform

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opd-ai/cvloop/video"
)

func createTestFrame(t *testing.T, width, height, channels int) *video.Frame {
	t.Helper()
	f, err := video.NewFrame(width, height, channels)
	require.NoError(t, err)
	return f
}

func TestInvert(t *testing.T) {
	iv := NewInvert(255)
	f := createTestFrame(t, 2, 1, 3)
	f.Pix = []uint8{0, 100, 255, 1, 2, 3}

	out, err := iv.Apply(f)
	require.NoError(t, err)
	assert.Equal(t, []uint8{255, 155, 0, 254, 253, 252}, out.Pix)
	assert.Equal(t, "Invert(255)", iv.Name())
}

func TestInvert_SaturatesAboveHigh(t *testing.T) {
	iv := NewInvert(100)
	f := createTestFrame(t, 1, 1, 1)
	f.Pix[0] = 200

	out, err := iv.Apply(f)
	require.NoError(t, err)
	assert.Equal(t, uint8(0), out.Pix[0])
}

func TestInvert_NilFrame(t *testing.T) {
	out, err := NewInvert(255).Apply(nil)
	assert.Nil(t, out)
	assert.Error(t, err)
}

func TestGray(t *testing.T) {
	g := NewGray()
	f := createTestFrame(t, 1, 1, 3)
	f.Pix = []uint8{100, 50, 200}

	out, err := g.Apply(f)
	require.NoError(t, err)
	assert.Equal(t, 1, out.Channels)
	assert.Equal(t, uint8(82), out.Pix[0])
}

func TestForegroundExtractor(t *testing.T) {
	fe := NewForegroundExtractor()

	// Seed the background with a mid-gray scene.
	seed := createTestFrame(t, 4, 4, 3)
	for i := range seed.Pix {
		seed.Pix[i] = 100
	}
	_, err := fe.Apply(seed)
	require.NoError(t, err)

	// A bright patch appears; everything else must go black.
	scene := createTestFrame(t, 4, 4, 3)
	for i := range scene.Pix {
		scene.Pix[i] = 100
	}
	scene.Set(1, 1, 0, 250)
	scene.Set(1, 1, 1, 250)
	scene.Set(1, 1, 2, 250)

	out, err := fe.Apply(scene)
	require.NoError(t, err)

	assert.Equal(t, uint8(250), out.At(1, 1, 0), "foreground keeps its colors")
	assert.Equal(t, uint8(0), out.At(0, 0, 0), "background is blacked out")
	assert.Equal(t, uint8(0), out.At(3, 3, 2))
}

func TestChain(t *testing.T) {
	order := []string{}
	first := NewFunc("first", func(f *video.Frame) (*video.Frame, error) {
		order = append(order, "first")
		f.Pix[0] = 10
		return f, nil
	})
	second := NewFunc("second", func(f *video.Frame) (*video.Frame, error) {
		order = append(order, "second")
		f.Pix[0] += 5
		return f, nil
	})

	c := NewChain(first, second)
	f := createTestFrame(t, 1, 1, 1)

	out, err := c.Apply(f)
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second"}, order)
	assert.Equal(t, uint8(15), out.Pix[0])
	assert.Equal(t, "first+second", c.Name())
}

func TestChain_EmptyIsIdentity(t *testing.T) {
	c := NewChain()
	f := createTestFrame(t, 2, 2, 1)
	f.Pix[0] = 42

	out, err := c.Apply(f)
	require.NoError(t, err)
	assert.Same(t, f, out)
	assert.Equal(t, "Identity", c.Name())
	assert.Equal(t, 0, c.Len())
}

func TestChain_ErrorStopsProcessing(t *testing.T) {
	boom := errors.New("boom")
	failing := NewFunc("failing", func(f *video.Frame) (*video.Frame, error) {
		return nil, boom
	})
	reached := false
	after := NewFunc("after", func(f *video.Frame) (*video.Frame, error) {
		reached = true
		return f, nil
	})

	c := NewChain(failing, after)
	out, err := c.Apply(createTestFrame(t, 1, 1, 1))

	assert.Nil(t, out)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "failing")
	assert.False(t, reached)
}

func TestChain_Add(t *testing.T) {
	c := NewChain()
	c.Add(NewInvert(255))
	assert.Equal(t, 1, c.Len())
	assert.Equal(t, "Invert(255)", c.Name())
}
