package overlay

import (
	"fmt"
	"math"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/cvloop/detect"
	"github.com/opd-ai/cvloop/video"
)

// Config tunes how the overlay anchors to a bounding box.
type Config struct {
	// WidthScale multiplies the box width to get the overlay width.
	// Zero means 1.0. The overlay height follows the template's aspect
	// ratio.
	WidthScale float64
	// XOffset shifts the overlay right by this many pixels.
	XOffset int
	// YOffset shifts the overlay down by this many pixels. The overlay
	// bottom starts at the box top before offsets are applied.
	YOffset int
}

// Compositor alpha-blends an overlay asset onto frames at locations
// anchored by detected bounding boxes.
type Compositor struct {
	asset *Asset
	cfg   Config
}

// NewCompositor creates a compositor over an immutable overlay asset.
func NewCompositor(asset *Asset, cfg Config) (*Compositor, error) {
	if asset == nil {
		return nil, fmt.Errorf("overlay asset cannot be nil")
	}
	if asset.width <= 0 || asset.height <= 0 {
		return nil, fmt.Errorf("invalid overlay asset dimensions: %dx%d", asset.width, asset.height)
	}
	if cfg.WidthScale < 0 {
		return nil, fmt.Errorf("width scale cannot be negative: %f", cfg.WidthScale)
	}
	if cfg.WidthScale == 0 {
		cfg.WidthScale = 1.0
	}

	logrus.WithFields(logrus.Fields{
		"function":     "NewCompositor",
		"asset_width":  asset.width,
		"asset_height": asset.height,
		"width_scale":  cfg.WidthScale,
		"x_offset":     cfg.XOffset,
		"y_offset":     cfg.YOffset,
	}).Debug("Overlay compositor created")

	return &Compositor{asset: asset, cfg: cfg}, nil
}

// Composite blends the overlay onto the frame once per bounding box, in
// the order the detector supplied them. Later boxes composite onto the
// result of earlier ones. The frame is mutated in place and returned;
// the overlay's alpha channel is never written to it.
func (c *Compositor) Composite(frame *video.Frame, boxes []detect.Box) *video.Frame {
	for _, box := range boxes {
		c.compositeBox(frame, box)
	}
	return frame
}

// compositeBox blends one resampled overlay copy at the anchor position
// for a single box, clipping against the frame edges.
func (c *Compositor) compositeBox(frame *video.Frame, box detect.Box) {
	overlayWidth := int(math.Round(float64(box.W) * c.cfg.WidthScale))
	if overlayWidth <= 0 {
		return
	}
	overlayHeight := int(math.Round(float64(overlayWidth) * float64(c.asset.height) / float64(c.asset.width)))
	if overlayHeight <= 0 {
		return
	}

	scaled := resampleRGBA(c.asset.pix, c.asset.width, c.asset.height, overlayWidth, overlayHeight)

	// Source region of the scaled overlay that survives clipping.
	srcTop, srcLeft := 0, 0
	srcBottom, srcRight := overlayHeight, overlayWidth

	// The overlay bottom sits on the box top, shifted by the offsets.
	y0 := box.Y - overlayHeight + c.cfg.YOffset
	if y0 < 0 {
		srcTop = -y0
		y0 = 0
	}
	y1 := y0 + overlayHeight - srcTop
	if y1 > frame.Height {
		srcBottom = overlayHeight - (y1 - frame.Height)
		y1 = frame.Height
	}

	x0 := box.X + c.cfg.XOffset
	if x0 < 0 {
		srcLeft = -x0
		x0 = 0
	}
	x1 := x0 + overlayWidth - srcLeft
	if x1 > frame.Width {
		srcRight = overlayWidth - (x1 - frame.Width)
		x1 = frame.Width
	}

	// Entirely outside the frame after clipping.
	if y1 <= y0 || x1 <= x0 || srcBottom <= srcTop || srcRight <= srcLeft {
		logrus.WithFields(logrus.Fields{
			"function": "Compositor.compositeBox",
			"box_x":    box.X,
			"box_y":    box.Y,
			"box_w":    box.W,
			"box_h":    box.H,
		}).Debug("Overlay fully clipped, skipping box")
		return
	}

	channels := frame.Channels
	if channels > 3 {
		channels = 3
	}

	for row := 0; row < y1-y0; row++ {
		for col := 0; col < x1-x0; col++ {
			srcBase := ((srcTop+row)*overlayWidth + srcLeft + col) * 4
			alpha := float64(scaled[srcBase+3]) / 255.0
			dstBase := frame.Offset(x0+col, y0+row, 0)
			for ch := 0; ch < channels; ch++ {
				blended := float64(scaled[srcBase+ch])*alpha +
					float64(frame.Pix[dstBase+ch])*(1.0-alpha)
				if blended > 255 {
					blended = 255
				}
				frame.Pix[dstBase+ch] = uint8(blended)
			}
		}
	}
}
