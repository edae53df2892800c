package cvloop

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opd-ai/cvloop/annotate"
	"github.com/opd-ai/cvloop/detect"
	"github.com/opd-ai/cvloop/overlay"
	"github.com/opd-ai/cvloop/sink"
	"github.com/opd-ai/cvloop/source"
	"github.com/opd-ai/cvloop/transform"
	"github.com/opd-ai/cvloop/video"
)

// recordSink captures every render request.
type recordSink struct {
	requests []*sink.Request
	err      error
}

func (r *recordSink) Render(req *sink.Request) error {
	if r.err != nil {
		return r.err
	}
	r.requests = append(r.requests, req)
	return nil
}

// plainSource hides the Sizer and Releaser capabilities of a Slice so
// the loop has to probe for dimensions.
type plainSource struct {
	slice *source.Slice
}

func (p *plainSource) Read() (*video.Frame, bool) {
	return p.slice.Read()
}

func createColorFrame(t *testing.T, width, height int, fill uint8) *video.Frame {
	t.Helper()
	f, err := video.NewFrame(width, height, 3)
	require.NoError(t, err)
	for i := range f.Pix {
		f.Pix[i] = fill
	}
	return f
}

func createFrames(t *testing.T, n, width, height int) []*video.Frame {
	t.Helper()
	frames := make([]*video.Frame, n)
	for i := range frames {
		frames[i] = createColorFrame(t, width, height, uint8(i*10))
	}
	return frames
}

func writeOverlayPNG(t *testing.T, size int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "overlay.png")
	img := image.NewNRGBA(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: 255, A: 255})
		}
	}
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())
	return path
}

func TestNew_Validation(t *testing.T) {
	frames := createFrames(t, 1, 4, 4)

	tests := []struct {
		name    string
		options *Options
		errPart string
	}{
		{
			name:    "nil options",
			options: nil,
			errPart: "options",
		},
		{
			name: "missing sink",
			options: &Options{
				Source: source.NewSlice(frames...),
			},
			errPart: "render sink",
		},
		{
			name: "missing source",
			options: &Options{
				Sink: &recordSink{},
			},
			errPart: "no frame source",
		},
		{
			name: "overlay without detector",
			options: &Options{
				Source:      source.NewSlice(frames...),
				Sink:        &recordSink{},
				OverlayPath: "whatever.png",
			},
			errPart: "requires a detector",
		},
		{
			name: "detector without overlay",
			options: &Options{
				Source:   source.NewSlice(frames...),
				Sink:     &recordSink{},
				Detector: detect.NewMotion(),
			},
			errPart: "without an overlay asset",
		},
		{
			name: "unreadable overlay asset is fatal",
			options: &Options{
				Source:      source.NewSlice(frames...),
				Sink:        &recordSink{},
				OverlayPath: filepath.Join(t.TempDir(), "missing.png"),
				Detector:    detect.NewMotion(),
			},
			errPart: "missing.png",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loop, err := New(tt.options)
			assert.Nil(t, loop)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errPart)
		})
	}
}

func TestLoop_EndToEnd(t *testing.T) {
	src := source.NewSlice(createFrames(t, 3, 4, 4)...)
	rec := &recordSink{}

	loop, err := New(&Options{
		Source:      src,
		SourceOwned: true,
		Sink:        rec,
	})
	require.NoError(t, err)
	assert.Equal(t, StatePlaying, loop.State())

	for i := 0; i < 5; i++ {
		require.NoError(t, loop.Tick())
	}

	// Exactly 3 frame requests followed by one Finished status.
	require.Len(t, rec.requests, 4)
	for i := 0; i < 3; i++ {
		req := rec.requests[i]
		require.NotNil(t, req.Processed, "request %d", i)
		assert.Nil(t, req.Original)
		assert.Equal(t, "", req.ColorMapProcessed, "color frames render naturally")
		assert.Equal(t, fmt.Sprintf("Size: 4x4 Frame: %d", i), req.Title)
	}

	final := rec.requests[3]
	assert.Nil(t, final.Processed)
	assert.Equal(t, "Size: 4x4 Frame: 3 Finished.", final.Title)

	assert.Equal(t, StateFinished, loop.State())
	assert.Equal(t, 1, src.ReleaseCount(), "owned source released exactly once")
}

func TestLoop_CallerOwnedSourceNotReleased(t *testing.T) {
	src := source.NewSlice(createFrames(t, 1, 4, 4)...)

	loop, err := New(&Options{
		Source: src, // SourceOwned defaults to false
		Sink:   &recordSink{},
	})
	require.NoError(t, err)

	require.NoError(t, loop.Tick())
	require.NoError(t, loop.Tick())

	assert.Equal(t, StateFinished, loop.State())
	assert.Equal(t, 0, src.ReleaseCount(), "pre-opened source is the caller's to release")
}

func TestLoop_StateMachine(t *testing.T) {
	src := source.NewSlice(createFrames(t, 10, 4, 4)...)
	rec := &recordSink{}

	loop, err := New(&Options{Source: src, Sink: rec})
	require.NoError(t, err)

	// Pause is idempotent.
	loop.Pause()
	assert.Equal(t, StatePaused, loop.State())
	loop.Pause()
	assert.Equal(t, StatePaused, loop.State())

	// No frame is read while paused.
	require.NoError(t, loop.Tick())
	require.NoError(t, loop.Tick())
	assert.Empty(t, rec.requests)
	assert.Equal(t, 0, loop.FrameIndex())

	// Resume continues from where it left off; resuming while playing
	// is a no-op.
	loop.Resume()
	assert.Equal(t, StatePlaying, loop.State())
	loop.Resume()
	assert.Equal(t, StatePlaying, loop.State())

	require.NoError(t, loop.Tick())
	assert.Len(t, rec.requests, 1)
	assert.Equal(t, 1, loop.FrameIndex())
}

func TestLoop_EventsAfterFinishedAreNoOps(t *testing.T) {
	src := source.NewSlice(createFrames(t, 1, 4, 4)...)
	rec := &recordSink{}

	loop, err := New(&Options{Source: src, SourceOwned: true, Sink: rec})
	require.NoError(t, err)

	require.NoError(t, loop.Tick()) // frame
	require.NoError(t, loop.Tick()) // exhaustion → Finished
	require.Len(t, rec.requests, 2)

	loop.Pause()
	loop.Resume()
	loop.Stop()
	require.NoError(t, loop.Tick())

	assert.Equal(t, StateFinished, loop.State())
	assert.Len(t, rec.requests, 2, "no further requests after Finished")
	assert.Equal(t, 1, src.ReleaseCount(), "release still happened exactly once")
}

func TestLoop_StopReleasesOnce(t *testing.T) {
	src := source.NewSlice(createFrames(t, 5, 4, 4)...)

	loop, err := New(&Options{Source: src, SourceOwned: true, Sink: &recordSink{}})
	require.NoError(t, err)

	loop.Stop()
	loop.Stop()

	assert.Equal(t, StateFinished, loop.State())
	assert.Equal(t, 1, src.ReleaseCount())
}

func TestLoop_SizeProbeOffsetsFrameIndex(t *testing.T) {
	// A source without a Sizer forces a probe read, so the first
	// displayed frame carries index 1 and annotations targeting index 1
	// land on it.
	slice := source.NewSlice(createFrames(t, 3, 6, 4)...)
	rec := &recordSink{}

	loop, err := New(&Options{
		Source: &plainSource{slice: slice},
		Sink:   rec,
		Annotations: []annotate.Annotation{
			{X: 2, Y: 2, FrameIndex: 1},
		},
	})
	require.NoError(t, err)

	w, h := loop.Size()
	assert.Equal(t, 6, w)
	assert.Equal(t, 4, h)
	assert.Equal(t, 1, loop.FrameIndex(), "probe read offsets the index")

	require.NoError(t, loop.Tick())
	require.Len(t, rec.requests, 1)
	assert.Len(t, rec.requests[0].Shapes, 1, "annotation lines up with the first displayed frame")
	assert.Contains(t, rec.requests[0].Title, "Frame: 1")
}

func TestLoop_PrintInfoConsumesFrame(t *testing.T) {
	src := source.NewSlice(createFrames(t, 3, 4, 4)...)
	rec := &recordSink{}

	loop, err := New(&Options{
		Source:    src,
		Sink:      rec,
		PrintInfo: true,
	})
	require.NoError(t, err)

	// Slice has a Sizer, so only the info probe consumed a frame.
	assert.Equal(t, 1, loop.FrameIndex())

	require.NoError(t, loop.Tick())
	require.Len(t, rec.requests, 1)
	// Frame 0 (fill 0) was consumed by the probe; the tick shows fill 10.
	assert.Equal(t, uint8(10), rec.requests[0].Processed.Pix[0])
}

func TestLoop_SideBySide(t *testing.T) {
	src := source.NewSlice(createFrames(t, 1, 4, 4)...)
	rec := &recordSink{}

	mutator := transform.NewFunc("mutator", func(f *video.Frame) (*video.Frame, error) {
		for i := range f.Pix {
			f.Pix[i] = 200
		}
		return f, nil
	})

	loop, err := New(&Options{
		Source:     src,
		Sink:       rec,
		SideBySide: true,
		Transform:  mutator,
	})
	require.NoError(t, err)
	require.NoError(t, loop.Tick())

	require.Len(t, rec.requests, 1)
	req := rec.requests[0]
	require.NotNil(t, req.Original)
	assert.Equal(t, uint8(0), req.Original.Pix[0], "transform ran on a copy")
	assert.Equal(t, uint8(200), req.Processed.Pix[0])
}

func TestLoop_WithoutSideBySideNoOriginal(t *testing.T) {
	src := source.NewSlice(createFrames(t, 1, 4, 4)...)
	rec := &recordSink{}

	loop, err := New(&Options{Source: src, Sink: rec})
	require.NoError(t, err)
	require.NoError(t, loop.Tick())

	require.Len(t, rec.requests, 1)
	assert.Nil(t, rec.requests[0].Original)
}

func TestLoop_TransformErrorPropagates(t *testing.T) {
	boom := errors.New("boom")
	failing := transform.NewFunc("failing", func(f *video.Frame) (*video.Frame, error) {
		return nil, boom
	})
	src := source.NewSlice(createFrames(t, 3, 4, 4)...)
	rec := &recordSink{}

	loop, err := New(&Options{Source: src, Sink: rec, Transform: failing})
	require.NoError(t, err)

	err = loop.Tick()
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "failing")
	assert.Empty(t, rec.requests, "no render request for the failed frame")
}

func TestLoop_ColorPolicy(t *testing.T) {
	t.Run("grayscale frames get the neutral colormap", func(t *testing.T) {
		gray, err := video.NewFrame(4, 4, 1)
		require.NoError(t, err)
		rec := &recordSink{}

		loop, err := New(&Options{
			Source: source.NewSlice(gray),
			Sink:   rec,
		})
		require.NoError(t, err)
		require.NoError(t, loop.Tick())

		require.Len(t, rec.requests, 1)
		assert.Equal(t, video.GrayColorMap, rec.requests[0].ColorMapProcessed)
		assert.Equal(t, 1, rec.requests[0].Processed.Channels)
	})

	t.Run("explicit colormap converts to luma", func(t *testing.T) {
		rec := &recordSink{}

		loop, err := New(&Options{
			Source:    source.NewSlice(createFrames(t, 1, 4, 4)...),
			Sink:      rec,
			ColorMaps: video.SingleColorMap("hot"),
		})
		require.NoError(t, err)
		require.NoError(t, loop.Tick())

		require.Len(t, rec.requests, 1)
		assert.Equal(t, "hot", rec.requests[0].ColorMapProcessed)
		assert.Equal(t, 1, rec.requests[0].Processed.Channels)
	})
}

func TestLoop_ChannelOrderConversion(t *testing.T) {
	f, err := video.NewFrame(1, 1, 3)
	require.NoError(t, err)
	f.Pix = []uint8{10, 20, 30}
	rec := &recordSink{}

	loop, err := New(&Options{
		Source:  source.NewSlice(f),
		Sink:    rec,
		Convert: video.ConvertBGRToRGB,
	})
	require.NoError(t, err)
	require.NoError(t, loop.Tick())

	require.Len(t, rec.requests, 1)
	assert.Equal(t, []uint8{30, 20, 10}, rec.requests[0].Processed.Pix)
}

func TestLoop_UnknownAnnotationShapeSurfaces(t *testing.T) {
	src := source.NewSlice(createFrames(t, 2, 4, 4)...)
	rec := &recordSink{}

	loop, err := New(&Options{
		Source: src,
		Sink:   rec,
		Annotations: []annotate.Annotation{
			{FrameIndex: 0, Shape: annotate.Shape("HEXAGON")},
		},
	})
	require.NoError(t, err)

	err = loop.Tick()
	require.Error(t, err)
	assert.ErrorIs(t, err, annotate.ErrUnknownShape)
}

func TestLoop_OverlayCompositing(t *testing.T) {
	path := writeOverlayPNG(t, 4)
	detectorCalls := 0
	detector := detect.DetectorFunc(func(frame *video.Frame) []detect.Box {
		detectorCalls++
		return []detect.Box{{X: 4, Y: 8, W: 4, H: 4}}
	})

	src := source.NewSlice(createFrames(t, 2, 16, 16)...)
	rec := &recordSink{}

	loop, err := New(&Options{
		Source:        src,
		Sink:          rec,
		OverlayPath:   path,
		OverlayConfig: overlay.Config{WidthScale: 1.0},
		Detector:      detector,
	})
	require.NoError(t, err)

	require.NoError(t, loop.Tick())
	require.NoError(t, loop.Tick())
	assert.Equal(t, 2, detectorCalls, "detector runs once per tick")

	// Opaque red 4x4 overlay anchored above the box top at (4,8).
	req := rec.requests[0]
	assert.Equal(t, uint8(255), req.Processed.At(4, 4, 0))
	assert.Equal(t, uint8(0), req.Processed.At(4, 4, 1))
	assert.Equal(t, uint8(0), req.Processed.At(0, 0, 0), "outside the overlay untouched")
}

func TestLoop_DetectorWithNoBoxesLeavesFrameUnmodified(t *testing.T) {
	path := writeOverlayPNG(t, 4)
	detector := detect.DetectorFunc(func(frame *video.Frame) []detect.Box {
		return nil
	})

	frames := createFrames(t, 1, 8, 8)
	want := frames[0].Clone()
	rec := &recordSink{}

	loop, err := New(&Options{
		Source:      source.NewSlice(frames...),
		Sink:        rec,
		OverlayPath: path,
		Detector:    detector,
	})
	require.NoError(t, err)
	require.NoError(t, loop.Tick())

	require.Len(t, rec.requests, 1)
	assert.Equal(t, want.Pix, rec.requests[0].Processed.Pix)
}

func TestLoop_RenderErrorPropagates(t *testing.T) {
	rec := &recordSink{err: errors.New("sink broken")}

	loop, err := New(&Options{
		Source: source.NewSlice(createFrames(t, 1, 4, 4)...),
		Sink:   rec,
	})
	require.NoError(t, err)

	err = loop.Tick()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "render failed")
}

func TestLoop_RunUntilFinished(t *testing.T) {
	src := source.NewSlice(createFrames(t, 3, 4, 4)...)
	rec := &recordSink{}

	loop, err := New(&Options{
		Source:      src,
		SourceOwned: true,
		Sink:        rec,
		Interval:    time.Millisecond,
	})
	require.NoError(t, err)

	require.NoError(t, loop.Run(context.Background()))
	assert.Equal(t, StateFinished, loop.State())
	assert.Len(t, rec.requests, 4)
	assert.Equal(t, 1, src.ReleaseCount())
}

func TestLoop_RunHonorsCancellation(t *testing.T) {
	src := source.NewSlice(createFrames(t, 1000, 4, 4)...)

	loop, err := New(&Options{
		Source:      src,
		SourceOwned: true,
		Sink:        &recordSink{},
		Interval:    time.Millisecond,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	err = loop.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StateFinished, loop.State())
	assert.Equal(t, 1, src.ReleaseCount())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "Playing", StatePlaying.String())
	assert.Equal(t, "Paused", StatePaused.String())
	assert.Equal(t, "Finished", StateFinished.String())
}
