package cvloop

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/opd-ai/cvloop/annotate"
	"github.com/opd-ai/cvloop/detect"
	"github.com/opd-ai/cvloop/overlay"
	"github.com/opd-ai/cvloop/sink"
	"github.com/opd-ai/cvloop/source"
	"github.com/opd-ai/cvloop/transform"
	"github.com/opd-ai/cvloop/video"
)

// DefaultInterval is the default tick cadence.
const DefaultInterval = 50 * time.Millisecond

// Fallback dimensions when the source reports none and probing fails.
const (
	defaultWidth  = 640
	defaultHeight = 480
)

// State represents the playback state. Finished is terminal.
type State uint8

const (
	// StatePlaying means ticks acquire and render frames.
	StatePlaying State = iota
	// StatePaused means ticks are no-ops until resumed.
	StatePaused
	// StateFinished absorbs all further events as no-ops.
	StateFinished
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StatePlaying:
		return "Playing"
	case StatePaused:
		return "Paused"
	case StateFinished:
		return "Finished"
	default:
		return fmt.Sprintf("State(%d)", uint8(s))
	}
}

// Options contains configuration for creating a playback loop.
type Options struct {
	// Source supplies frames. It is treated as caller-owned (the loop
	// never releases it) unless SourceOwned is set.
	Source source.FrameSource
	// SourceOwned transfers ownership of Source to the loop, which
	// then releases it exactly once on finish or stop.
	SourceOwned bool
	// Path names a directory of image files to play when Source is
	// nil. The loop owns a source it opens itself.
	Path string

	// SideBySide renders the original frame next to the processed one.
	// When enabled the transform runs on a copy; otherwise it may
	// mutate the acquired frame directly.
	SideBySide bool
	// Convert is an upstream channel-order conversion applied once per
	// color frame. video.ConvertNone disables it.
	Convert video.Conversion
	// ColorMaps configures explicit colormaps per display slot.
	ColorMaps video.ColorMaps
	// PrintInfo logs dimensions, channels, and sample range of one
	// frame at construction. The probed frame is consumed.
	PrintInfo bool

	// Transform is the per-frame hook. Nil means identity. Errors it
	// returns propagate to the caller and halt playback.
	Transform transform.Transform

	// Annotations are time-indexed vector shapes to schedule.
	Annotations []annotate.Annotation
	// AnnotationDefaults fills omitted annotation fields. The zero
	// value selects annotate.DefaultStyle.
	AnnotationDefaults annotate.Style

	// OverlayPath names an RGBA overlay image. A missing or unreadable
	// file is a fatal configuration error. Requires Detector.
	OverlayPath string
	// OverlayConfig tunes overlay anchoring.
	OverlayConfig overlay.Config
	// Detector supplies bounding boxes for overlay compositing. It is
	// called once per tick while overlay compositing is configured.
	Detector detect.Detector

	// Interval is the tick cadence for Run. Zero means DefaultInterval.
	Interval time.Duration
	// Sink receives one render request per tick. Required.
	Sink sink.RenderSink
}

// NewOptions creates default Options. A source and a sink must still be
// supplied before the options can build a loop.
func NewOptions() *Options {
	return &Options{
		Convert:            video.ConvertNone,
		ColorMaps:          video.NoColorMaps(),
		AnnotationDefaults: annotate.DefaultStyle(),
		Interval:           DefaultInterval,
	}
}

// Loop is the playback controller: a state machine that paces frame
// acquisition, reacts to pause/resume/stop events, and pushes render
// requests to the sink.
//
// All methods are safe to call from a host UI goroutine; ticks and
// lifecycle events are serialized, so no concurrent frame processing
// occurs.
type Loop struct {
	mu sync.Mutex

	id         string
	src        source.FrameSource
	ownsSource bool

	state      State
	frameIndex int
	width      int
	height     int

	sideBySide    bool
	convert       video.Conversion
	cmapOriginal  string
	cmapProcessed string
	transform     transform.Transform
	scheduler     *annotate.Scheduler
	compositor    *overlay.Compositor
	detector      detect.Detector
	sink          sink.RenderSink
	interval      time.Duration
}

// New creates a playback loop from options.
//
// Construction resolves the frame source, loads the overlay asset if
// configured, probes frame dimensions (which may consume frames; the
// frame index starts past them so annotation indices stay consistent
// with the displayed sequence), and leaves the loop in StatePlaying.
func New(options *Options) (*Loop, error) {
	if options == nil {
		return nil, errors.New("options cannot be nil")
	}
	if options.Sink == nil {
		return nil, errors.New("render sink is required")
	}

	l := &Loop{
		id:         uuid.New().String(),
		state:      StatePlaying,
		sideBySide: options.SideBySide,
		convert:    options.Convert,
		transform:  options.Transform,
		sink:       options.Sink,
		interval:   options.Interval,
	}
	if l.interval <= 0 {
		l.interval = DefaultInterval
	}

	switch {
	case options.Source != nil:
		l.src = options.Source
		l.ownsSource = options.SourceOwned
	case options.Path != "":
		dir, err := source.NewDir(options.Path)
		if err != nil {
			return nil, err
		}
		l.src = dir
		l.ownsSource = true
	default:
		return nil, errors.New("no frame source configured")
	}

	if options.OverlayPath != "" {
		if options.Detector == nil {
			return nil, errors.New("overlay compositing requires a detector")
		}
		asset, err := overlay.LoadAsset(options.OverlayPath)
		if err != nil {
			return nil, err
		}
		compositor, err := overlay.NewCompositor(asset, options.OverlayConfig)
		if err != nil {
			return nil, err
		}
		l.compositor = compositor
		l.detector = options.Detector
	} else if options.Detector != nil {
		return nil, errors.New("detector configured without an overlay asset")
	}

	l.cmapOriginal, l.cmapProcessed = options.ColorMaps.Resolve()

	if len(options.Annotations) > 0 {
		defaults := options.AnnotationDefaults
		if defaults == (annotate.Style{}) {
			defaults = annotate.DefaultStyle()
		}
		l.scheduler = annotate.NewScheduler(options.Annotations, defaults)
	}

	if options.PrintInfo {
		l.probeInfo()
	}
	l.width, l.height = l.determineSize()

	logrus.WithFields(logrus.Fields{
		"function":     "New",
		"session_id":   l.id,
		"width":        l.width,
		"height":       l.height,
		"frame_offset": l.frameIndex,
		"side_by_side": l.sideBySide,
		"owns_source":  l.ownsSource,
		"interval":     l.interval,
	}).Info("Playback loop created")

	return l, nil
}

// probeInfo reads one frame to log source characteristics. The probe
// counts toward the frame offset whether or not it succeeds.
func (l *Loop) probeInfo() {
	l.frameIndex++
	frame, ok := l.src.Read()
	if !ok {
		logrus.WithFields(logrus.Fields{
			"function":   "Loop.probeInfo",
			"session_id": l.id,
		}).Warn("No source found")
		return
	}

	minV, maxV := sampleRange(frame)
	logrus.WithFields(logrus.Fields{
		"function":   "Loop.probeInfo",
		"session_id": l.id,
		"width":      frame.Width,
		"height":     frame.Height,
		"channels":   frame.Channels,
		"min_value":  minV,
		"max_value":  maxV,
	}).Info("Capture information")
}

// determineSize resolves frame dimensions, preferring the source's
// Sizer capability over consuming a probe frame. Falls back to 640x480.
func (l *Loop) determineSize() (width, height int) {
	if sizer, ok := l.src.(source.Sizer); ok {
		if w, h := sizer.Size(); w > 0 && h > 0 {
			return w, h
		}
	}

	l.frameIndex++
	if frame, ok := l.src.Read(); ok {
		return frame.Width, frame.Height
	}
	return defaultWidth, defaultHeight
}

// sampleRange returns the minimum and maximum sample values of a frame.
func sampleRange(f *video.Frame) (minV, maxV uint8) {
	if len(f.Pix) == 0 {
		return 0, 0
	}
	minV, maxV = f.Pix[0], f.Pix[0]
	for _, v := range f.Pix {
		if v < minV {
			minV = v
		}
		if v > maxV {
			maxV = v
		}
	}
	return minV, maxV
}

// ID returns the loop's session identifier.
func (l *Loop) ID() string {
	return l.id
}

// State returns the current playback state.
func (l *Loop) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// FrameIndex returns the index the next tick will render. It starts at
// the number of frames consumed by setup-time probing.
func (l *Loop) FrameIndex() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.frameIndex
}

// Size returns the resolved frame dimensions.
func (l *Loop) Size() (width, height int) {
	return l.width, l.height
}

// Pause stops frame acquisition until Resume. Pausing while paused or
// finished is a no-op.
func (l *Loop) Pause() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state != StatePlaying {
		return
	}
	l.state = StatePaused
	logrus.WithFields(logrus.Fields{
		"function":    "Loop.Pause",
		"session_id":  l.id,
		"frame_index": l.frameIndex,
	}).Info("Playback paused")
}

// Resume restarts frame acquisition after a pause. The frame index
// continues where it left off. Resuming while playing or finished is a
// no-op.
func (l *Loop) Resume() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state != StatePaused {
		return
	}
	l.state = StatePlaying
	logrus.WithFields(logrus.Fields{
		"function":    "Loop.Resume",
		"session_id":  l.id,
		"frame_index": l.frameIndex,
	}).Info("Playback resumed")
}

// Stop forces an immediate transition to Finished, releasing an owned
// source. Stopping an already finished loop is a no-op.
func (l *Loop) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state == StateFinished {
		return
	}
	l.releaseSource()
	l.state = StateFinished
	logrus.WithFields(logrus.Fields{
		"function":    "Loop.Stop",
		"session_id":  l.id,
		"frame_index": l.frameIndex,
	}).Info("Playback stopped")
}

// releaseSource releases an owned source, best-effort. Sources without
// a release capability are skipped silently. Callers hold l.mu and
// transition to StateFinished right after, which guarantees the release
// happens at most once.
func (l *Loop) releaseSource() {
	if !l.ownsSource {
		return
	}
	if releaser, ok := l.src.(source.Releaser); ok {
		releaser.Release()
		return
	}
	logrus.WithFields(logrus.Fields{
		"function":   "Loop.releaseSource",
		"session_id": l.id,
	}).Debug("Source has no release capability")
}

// Tick processes one scheduled frame opportunity.
//
// Unless the loop is playing this does nothing. Otherwise one frame is
// acquired and run through the pipeline, and exactly one render request
// is forwarded to the sink. End-of-stream finishes the loop and sends a
// terminal "Finished" status instead of a frame. Transform and
// scheduling errors are returned to the caller unconsumed.
func (l *Loop) Tick() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state != StatePlaying {
		return nil
	}

	frame, ok := l.src.Read()
	if !ok {
		return l.finish()
	}

	l.convert.Apply(frame)

	var original *video.Frame
	processed := frame
	if l.sideBySide {
		original = frame
		processed = frame.Clone()
	}

	if l.transform != nil {
		var err error
		processed, err = l.transform.Apply(processed)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"function":    "Loop.Tick",
				"session_id":  l.id,
				"frame_index": l.frameIndex,
				"transform":   l.transform.Name(),
				"error":       err.Error(),
			}).Error("Transform failed")
			return fmt.Errorf("frame %d: transform %s: %w", l.frameIndex, l.transform.Name(), err)
		}
	}

	if l.compositor != nil {
		if boxes := l.detector.Detect(processed); len(boxes) > 0 {
			l.compositor.Composite(processed, boxes)
		}
	}

	req := &sink.Request{}
	if original != nil {
		req.Original, req.ColorMapOriginal = video.ApplyColorPolicy(original, l.cmapOriginal)
	}
	req.Processed, req.ColorMapProcessed = video.ApplyColorPolicy(processed, l.cmapProcessed)

	if l.scheduler != nil {
		shapes, err := l.scheduler.ShapesFor(l.frameIndex)
		if err != nil {
			return fmt.Errorf("frame %d: %w", l.frameIndex, err)
		}
		req.Shapes = shapes
	}

	req.Title = l.infoString(l.frameIndex, "")

	if err := l.sink.Render(req); err != nil {
		return fmt.Errorf("frame %d: render failed: %w", l.frameIndex, err)
	}

	logrus.WithFields(logrus.Fields{
		"function":    "Loop.Tick",
		"session_id":  l.id,
		"frame_index": l.frameIndex,
	}).Debug("Frame rendered")

	l.frameIndex++
	return nil
}

// finish handles natural end-of-stream: release an owned source, enter
// the terminal state, and send the final status to the sink. Called
// with l.mu held.
func (l *Loop) finish() error {
	l.releaseSource()
	l.state = StateFinished

	logrus.WithFields(logrus.Fields{
		"function":    "Loop.finish",
		"session_id":  l.id,
		"frame_index": l.frameIndex,
	}).Info("Playback finished")

	req := &sink.Request{
		Title: l.infoString(l.frameIndex, "Finished."),
	}
	if err := l.sink.Render(req); err != nil {
		return fmt.Errorf("final render failed: %w", err)
	}
	return nil
}

// infoString builds the status line: size, frame number, and an
// optional message, omitting unknown parts.
func (l *Loop) infoString(frame int, message string) string {
	var parts []string
	if l.width > 0 && l.height > 0 {
		parts = append(parts, fmt.Sprintf("Size: %dx%d", l.width, l.height))
	}
	if frame >= 0 {
		parts = append(parts, fmt.Sprintf("Frame: %d", frame))
	}
	if message != "" {
		parts = append(parts, message)
	}
	return strings.Join(parts, " ")
}

// Run drives the loop with an internal ticker until playback finishes,
// the context is cancelled (treated as a stop event), or a pipeline
// error halts playback. On error the loop is stopped before returning,
// so an owned source is still released.
func (l *Loop) Run(ctx context.Context) error {
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			l.Stop()
			return ctx.Err()
		case <-ticker.C:
			if err := l.Tick(); err != nil {
				l.Stop()
				return err
			}
			if l.State() == StateFinished {
				return nil
			}
		}
	}
}
