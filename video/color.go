package video

// Luma weights for grayscale conversion. The first channel is treated
// as R, the second as G, the third as B.
const (
	lumaR = 0.299
	lumaG = 0.587
	lumaB = 0.114
)

// IsColor reports whether a frame is a color frame.
//
// A color frame has at least three channels; one- and two-channel
// buffers are classified as grayscale.
func IsColor(f *Frame) bool {
	return f.Channels >= 3
}

// ToGray converts a color frame to a single-channel luma frame using
//
//	gray = 0.299 R + 0.587 G + 0.114 B
//
// Grayscale frames are returned unchanged (same instance), which makes
// the conversion idempotent.
func ToGray(f *Frame) *Frame {
	if !IsColor(f) {
		return f
	}

	out := &Frame{
		Width:    f.Width,
		Height:   f.Height,
		Channels: 1,
		Pix:      make([]uint8, f.Width*f.Height),
	}
	for i := 0; i < f.Width*f.Height; i++ {
		base := i * f.Channels
		v := lumaR*float64(f.Pix[base]) +
			lumaG*float64(f.Pix[base+1]) +
			lumaB*float64(f.Pix[base+2])
		out.Pix[i] = uint8(v + 0.5)
	}
	return out
}

// Conversion selects an upstream channel-order conversion applied once
// per frame before classification-dependent processing.
type Conversion uint8

const (
	// ConvertNone is the sentinel that disables channel-order conversion.
	ConvertNone Conversion = iota
	// ConvertBGRToRGB swaps the first and third channels, mapping
	// capture-native BGR ordering to display-native RGB.
	ConvertBGRToRGB
	// ConvertRGBToBGR swaps the first and third channels in the other
	// direction. The operation is its own inverse; the two names exist
	// to keep call sites readable.
	ConvertRGBToBGR
)

// Apply performs the conversion in place and returns the frame.
// Grayscale frames and the ConvertNone sentinel pass through unchanged.
func (c Conversion) Apply(f *Frame) *Frame {
	if c == ConvertNone || !IsColor(f) {
		return f
	}
	for i := 0; i < f.Width*f.Height; i++ {
		base := i * f.Channels
		f.Pix[base], f.Pix[base+2] = f.Pix[base+2], f.Pix[base]
	}
	return f
}

// GrayColorMap is the neutral colormap the render sink is instructed to
// use for frames that are not color frames.
const GrayColorMap = "gray"

// ColorMaps is the resolved colormap configuration for the two display
// slots. It replaces dynamic bare-value/pair dispatch with an explicit
// tagged configuration resolved once at construction.
type ColorMaps struct {
	original  string
	processed string
}

// NoColorMaps lets the color policy guess per frame: natural rendering
// for color frames, the neutral gray colormap otherwise.
func NoColorMaps() ColorMaps {
	return ColorMaps{}
}

// SingleColorMap applies one explicit colormap to both display slots.
func SingleColorMap(name string) ColorMaps {
	return ColorMaps{original: name, processed: name}
}

// PerSlotColorMaps applies explicit colormaps per display slot. An empty
// entry means "guess" for that slot.
func PerSlotColorMaps(original, processed string) ColorMaps {
	return ColorMaps{original: original, processed: processed}
}

// Resolve returns the per-slot colormap names ("" means unset).
func (c ColorMaps) Resolve() (original, processed string) {
	return c.original, c.processed
}

// ApplyColorPolicy applies the per-slot color policy to one frame.
//
// With an explicit colormap configured the frame is converted to luma
// and the colormap is forwarded. Without one, non-color frames are
// forwarded untouched with the neutral gray colormap, and color frames
// render naturally with no colormap.
func ApplyColorPolicy(f *Frame, cmap string) (*Frame, string) {
	if cmap != "" {
		return ToGray(f), cmap
	}
	if !IsColor(f) {
		return f, GrayColorMap
	}
	return f, ""
}
