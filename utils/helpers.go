package utils

import (
	"image"
	"image/draw"
	"math"
)

// ToNRGBA returns src as *image.NRGBA, copying only when the underlying type
// differs.  The returned image keeps src's bounds.
func ToNRGBA(src image.Image) *image.NRGBA {
	if n, ok := src.(*image.NRGBA); ok {
		return n
	}
	dst := image.NewNRGBA(src.Bounds())
	draw.Draw(dst, dst.Bounds(), src, src.Bounds().Min, draw.Src)
	return dst
}

// Clamp01 clamps v to [0, 1].
func Clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// ClampU8 converts a [0,1] component to a byte, clamping out-of-range input.
func ClampU8(v float64) uint8 {
	return uint8(math.Round(Clamp01(v) * 255))
}

// Luminance computes Rec. 709 luma from [0,1] components.
func Luminance(r, g, b float64) float64 {
	return 0.2126*r + 0.7152*g + 0.0722*b
}

// RadToDeg converts radians to degrees.
func RadToDeg(rad float64) float64 { return rad * 180 / math.Pi }

// OddKernel converts a blur radius to the nearest odd kernel size >= 3.
func OddKernel(radius float64) int {
	k := int(math.Round(radius))
	if k < 1 {
		k = 1
	}
	size := 2*k + 1
	return size
}

// UnionExtents returns the union of the given rectangles.
func UnionExtents(rects ...image.Rectangle) image.Rectangle {
	var u image.Rectangle
	for _, r := range rects {
		u = u.Union(r)
	}
	return u
}
