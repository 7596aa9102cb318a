package acquisition

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg" // decode jpeg payloads
	"image/png"
)

// trimImage removes uniform borders. The background colour is sampled from
// the top-left corner, the image is cropped, rotated 180 degrees and the
// pass repeated so the opposite corner is sampled too. The result is PNG.
func trimImage(data []byte, threshold int) ([]byte, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	img := rotate180(trimBorders(src, threshold))
	img = rotate180(trimBorders(img, threshold))

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}
	return buf.Bytes(), nil
}

// trimBorders crops rows and columns that match the top-left pixel within
// threshold. An image that is entirely background is returned unchanged.
func trimBorders(img image.Image, threshold int) image.Image {
	b := img.Bounds()
	if b.Empty() {
		return img
	}
	bg := img.At(b.Min.X, b.Min.Y)
	limit := uint32(threshold) * 0x101

	isBG := func(x, y int) bool {
		r1, g1, b1, a1 := img.At(x, y).RGBA()
		r2, g2, b2, a2 := bg.RGBA()
		return diff(r1, r2) <= limit && diff(g1, g2) <= limit && diff(b1, b2) <= limit && diff(a1, a2) <= limit
	}
	rowBG := func(y int) bool {
		for x := b.Min.X; x < b.Max.X; x++ {
			if !isBG(x, y) {
				return false
			}
		}
		return true
	}
	colBG := func(x, y0, y1 int) bool {
		for y := y0; y < y1; y++ {
			if !isBG(x, y) {
				return false
			}
		}
		return true
	}

	top, bottom := b.Min.Y, b.Max.Y
	for top < bottom && rowBG(top) {
		top++
	}
	if top == bottom {
		return img
	}
	for bottom > top && rowBG(bottom-1) {
		bottom--
	}
	left, right := b.Min.X, b.Max.X
	for left < right && colBG(left, top, bottom) {
		left++
	}
	for right > left && colBG(right-1, top, bottom) {
		right--
	}

	crop := image.Rect(left, top, right, bottom)
	out := image.NewNRGBA(image.Rect(0, 0, crop.Dx(), crop.Dy()))
	draw.Draw(out, out.Bounds(), img, crop.Min, draw.Src)
	return out
}

func rotate180(img image.Image) image.Image {
	b := img.Bounds()
	out := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			out.Set(b.Max.X-1-x, b.Max.Y-1-y, img.At(x, y))
		}
	}
	return out
}

func diff(a, b uint32) uint32 {
	if a > b {
		return a - b
	}
	return b - a
}
