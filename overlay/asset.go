// Package overlay composites an RGBA overlay image onto frames at
// detector-anchored locations.
//
// The compositing pipeline per bounding box:
//
//	Template Copy → Resample → Offset → Clip → Alpha Blend
//
// The overlay asset is loaded once at construction and treated as an
// immutable template; every composite works on a fresh resampled copy.
package overlay

import (
	"fmt"
	"image"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"github.com/sirupsen/logrus"
)

// Asset is an immutable RGBA overlay template with straight
// (non-premultiplied) alpha.
type Asset struct {
	width  int
	height int
	pix    []uint8 // interleaved RGBA
}

// LoadAsset reads and decodes an overlay image from disk. The file must
// be a raster format registered with image.Decode (PNG, JPEG, GIF); a
// missing or unreadable file is a fatal configuration error.
func LoadAsset(path string) (*Asset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("overlay asset %q: %w", path, err)
	}
	defer f.Close()

	img, format, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("overlay asset %q: decode failed: %v", path, err)
	}

	asset := FromImage(img)
	logrus.WithFields(logrus.Fields{
		"function": "LoadAsset",
		"path":     path,
		"format":   format,
		"width":    asset.width,
		"height":   asset.height,
	}).Info("Overlay asset loaded")

	return asset, nil
}

// FromImage converts a decoded image into an overlay asset. Formats
// without an alpha channel become fully opaque.
func FromImage(img image.Image) *Asset {
	bounds := img.Bounds()
	nrgba := image.NewNRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(nrgba, nrgba.Bounds(), img, bounds.Min, draw.Src)

	return &Asset{
		width:  bounds.Dx(),
		height: bounds.Dy(),
		pix:    nrgba.Pix,
	}
}

// Width returns the template width in pixels.
func (a *Asset) Width() int {
	return a.width
}

// Height returns the template height in pixels.
func (a *Asset) Height() int {
	return a.height
}
