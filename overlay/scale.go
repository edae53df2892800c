package overlay

// resampleRGBA resizes an interleaved RGBA buffer to the target
// dimensions using bilinear interpolation. The source is never
// modified; the result is always a fresh buffer, even for a 1:1 size.
func resampleRGBA(src []uint8, srcWidth, srcHeight, dstWidth, dstHeight int) []uint8 {
	dst := make([]uint8, dstWidth*dstHeight*4)

	if srcWidth == dstWidth && srcHeight == dstHeight {
		copy(dst, src)
		return dst
	}

	xRatio := float64(srcWidth) / float64(dstWidth)
	yRatio := float64(srcHeight) / float64(dstHeight)

	for y := 0; y < dstHeight; y++ {
		for x := 0; x < dstWidth; x++ {
			srcX := float64(x) * xRatio
			srcY := float64(y) * yRatio

			x1 := int(srcX)
			y1 := int(srcY)
			x2 := x1 + 1
			y2 := y1 + 1
			if x2 >= srcWidth {
				x2 = srcWidth - 1
			}
			if y2 >= srcHeight {
				y2 = srcHeight - 1
			}

			fx := srcX - float64(x1)
			fy := srcY - float64(y1)

			for c := 0; c < 4; c++ {
				p11 := float64(src[(y1*srcWidth+x1)*4+c])
				p12 := float64(src[(y1*srcWidth+x2)*4+c])
				p21 := float64(src[(y2*srcWidth+x1)*4+c])
				p22 := float64(src[(y2*srcWidth+x2)*4+c])

				top := p11*(1-fx) + p12*fx
				bottom := p21*(1-fx) + p22*fx
				dst[(y*dstWidth+x)*4+c] = uint8(top*(1-fy) + bottom*fy + 0.5)
			}
		}
	}

	return dst
}
