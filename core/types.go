package core

import (
	"bytes"
	"image"
	"math"
	"time"
)

// ValueTag identifies the variant held by a Value.
type ValueTag uint8

const (
	TagScalar ValueTag = iota
	TagVector
	TagColor
	TagImage
	TagMatrix
	TagBytes
)

func (t ValueTag) String() string {
	switch t {
	case TagScalar:
		return "scalar"
	case TagVector:
		return "vector"
	case TagColor:
		return "color"
	case TagImage:
		return "image"
	case TagMatrix:
		return "matrix"
	case TagBytes:
		return "bytes"
	}
	return "invalid"
}

// ColorSpace represents the colour model a color value or image is defined in.
type ColorSpace string

const (
	ColorSpaceSRGB   ColorSpace = "srgb"
	ColorSpaceLinear ColorSpace = "linear-rgb"
	ColorSpaceGray   ColorSpace = "gray"
)

// Value is a tagged parameter value.  The tag determines which accessor is
// valid; there is no implicit coercion across tags (a scalar is not a
// vector of one).
type Value struct {
	tag    ValueTag
	scalar float64
	vec    []float64
	color  [4]float64
	space  ColorSpace
	img    *Image
	mat    [6]float64
	raw    []byte
}

// Scalar creates a scalar Value.
func Scalar(v float64) Value { return Value{tag: TagScalar, scalar: v} }

// Int creates a scalar Value from an integer.
func Int(v int) Value { return Value{tag: TagScalar, scalar: float64(v)} }

// Vector creates a fixed-length vector Value.
func Vector(vs ...float64) Value {
	cp := make([]float64, len(vs))
	copy(cp, vs)
	return Value{tag: TagVector, vec: cp}
}

// Color creates a 4-component colour Value in the given colour space.
func Color(r, g, b, a float64, space ColorSpace) Value {
	return Value{tag: TagColor, color: [4]float64{r, g, b, a}, space: space}
}

// RGBA creates an sRGB colour Value.
func RGBA(r, g, b, a float64) Value { return Color(r, g, b, a, ColorSpaceSRGB) }

// ImageValue creates an image-reference Value.
func ImageValue(img *Image) Value { return Value{tag: TagImage, img: img} }

// Matrix creates a 2x3 affine matrix Value (row-major a, b, c, d, tx, ty).
func Matrix(m [6]float64) Value { return Value{tag: TagMatrix, mat: m} }

// Bytes creates a raw-bytes Value.  The slice is copied.
func Bytes(b []byte) Value {
	cp := make([]byte, len(b))
	copy(cp, b)
	return Value{tag: TagBytes, raw: cp}
}

// Tag returns the variant tag.
func (v Value) Tag() ValueTag { return v.tag }

// Scalar returns the scalar component; zero when the tag is not TagScalar.
func (v Value) Scalar() float64 { return v.scalar }

// Vector returns a copy of the vector component.
func (v Value) Vector() []float64 {
	cp := make([]float64, len(v.vec))
	copy(cp, v.vec)
	return cp
}

// Color returns the colour components and colour space.
func (v Value) Color() ([4]float64, ColorSpace) { return v.color, v.space }

// Image returns the referenced image; nil when the tag is not TagImage.
func (v Value) Image() *Image { return v.img }

// Matrix returns the affine matrix component.
func (v Value) Matrix() [6]float64 { return v.mat }

// Bytes returns a copy of the raw-bytes component.
func (v Value) Bytes() []byte {
	cp := make([]byte, len(v.raw))
	copy(cp, v.raw)
	return cp
}

// Equal reports structural equality of two values.  Image references compare
// by identity; NaN scalars are never equal.
func (v Value) Equal(o Value) bool {
	if v.tag != o.tag {
		return false
	}
	switch v.tag {
	case TagScalar:
		return v.scalar == o.scalar
	case TagVector:
		if len(v.vec) != len(o.vec) {
			return false
		}
		for i := range v.vec {
			if v.vec[i] != o.vec[i] {
				return false
			}
		}
		return true
	case TagColor:
		return v.color == o.color && v.space == o.space
	case TagImage:
		return v.img == o.img
	case TagMatrix:
		return v.mat == o.mat
	case TagBytes:
		return bytes.Equal(v.raw, o.raw)
	}
	return false
}

// Params is the raw, unvalidated parameter map a caller passes to Apply.
// Validation against the filter's schema happens in BuildParams.
type Params map[string]Value

// Image is the opaque decoded-pixel handle the engine passes between filters.
// Decoding and encoding of file formats happen outside the module.
type Image struct {
	Pix    image.Image
	Extent image.Rectangle
	Space  ColorSpace
}

// NewImage wraps a decoded pixel buffer; the extent defaults to its bounds.
func NewImage(pix image.Image) *Image {
	return &Image{Pix: pix, Extent: pix.Bounds(), Space: ColorSpaceSRGB}
}

// Width returns the extent width in pixels.
func (im *Image) Width() int { return im.Extent.Dx() }

// Height returns the extent height in pixels.
func (im *Image) Height() int { return im.Extent.Dy() }

// PixelFormat identifies the layout of a RenderResult buffer.
type PixelFormat string

// FormatRGBA8 is 8-bit non-premultiplied RGBA, row-major.
const FormatRGBA8 PixelFormat = "rgba8"

// RenderResult owns the pixel buffer produced by one render call.
type RenderResult struct {
	Width  int
	Height int
	Format PixelFormat
	Stride int
	Pix    []byte // owned raw data, len == Stride*Height

	// Extent is the source-space region the buffer covers (before scaling).
	Extent image.Rectangle

	// Observability.
	RenderTime  time.Duration
	NodeTimings map[string]time.Duration
}

// ScaledSize computes the output dimensions for an extent under a scale
// factor, rounding half away from zero.  Scale <= 0 means 1.
func ScaledSize(extent image.Rectangle, scale float64) (int, int) {
	if scale <= 0 {
		scale = 1
	}
	w := int(math.Round(float64(extent.Dx()) * scale))
	h := int(math.Round(float64(extent.Dy()) * scale))
	return w, h
}
