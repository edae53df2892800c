package video

import (
	"fmt"
	"image"
	"image/color"
)

// FromImage converts a decoded image into a three-channel RGB frame.
func FromImage(img image.Image) *Frame {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	f := &Frame{
		Width:    width,
		Height:   height,
		Channels: 3,
		Pix:      make([]uint8, width*height*3),
	}
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r, g, b, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			base := (y*width + x) * 3
			f.Pix[base] = uint8(r >> 8)
			f.Pix[base+1] = uint8(g >> 8)
			f.Pix[base+2] = uint8(b >> 8)
		}
	}
	return f
}

// ToImage converts a frame into a stdlib image for encoding.
//
// Single-channel frames become *image.Gray, frames with three or more
// channels become an opaque *image.RGBA built from the first three
// channels. Two-channel frames are not representable.
func ToImage(f *Frame) (image.Image, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}

	switch {
	case f.Channels == 1:
		img := image.NewGray(image.Rect(0, 0, f.Width, f.Height))
		for y := 0; y < f.Height; y++ {
			copy(img.Pix[y*img.Stride:y*img.Stride+f.Width], f.Pix[y*f.Width:(y+1)*f.Width])
		}
		return img, nil
	case f.Channels >= 3:
		img := image.NewRGBA(image.Rect(0, 0, f.Width, f.Height))
		for y := 0; y < f.Height; y++ {
			for x := 0; x < f.Width; x++ {
				base := f.Offset(x, y, 0)
				img.SetRGBA(x, y, color.RGBA{
					R: f.Pix[base],
					G: f.Pix[base+1],
					B: f.Pix[base+2],
					A: 255,
				})
			}
		}
		return img, nil
	default:
		return nil, fmt.Errorf("cannot represent %d-channel frame as image", f.Channels)
	}
}
