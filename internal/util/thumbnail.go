package util

import (
	"image"

	"golang.org/x/image/draw"
)

// Size is a width/height pair in pixels
type Size struct {
	Width  int
	Height int
}

// ScaleDown fits current into target while keeping the aspect ratio.
// It never upscales, and a target with a zero dimension yields a zero size.
// Results are truncated toward zero.
func ScaleDown(current, target Size) Size {
	if target.Width == 0 || target.Height == 0 {
		return Size{}
	}

	scale := max(
		float64(current.Width)/float64(target.Width),
		float64(current.Height)/float64(target.Height),
		1.0,
	)
	return Size{
		Width:  int(float64(current.Width) / scale),
		Height: int(float64(current.Height) / scale),
	}
}

// Thumbnail returns img downscaled to fit within target.
// img is returned as-is when thumbnailing is disabled (zero target) or when
// it already fits.
func Thumbnail(img image.Image, target Size) image.Image {
	if target.Width == 0 || target.Height == 0 {
		return img
	}

	bounds := img.Bounds()
	current := Size{Width: bounds.Dx(), Height: bounds.Dy()}
	size := ScaleDown(current, target)
	if size == current {
		return img
	}

	// Extreme aspect ratios can truncate one side to zero
	size.Width = max(size.Width, 1)
	size.Height = max(size.Height, 1)

	dst := image.NewRGBA(image.Rect(0, 0, size.Width, size.Height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Src, nil)
	return dst
}
