// Package cpu is the default RenderBackend: pure-Go filter implementations
// built on gift and golang.org/x/image.  It registers an implementation for
// every entry of the built-in descriptor table.
package cpu

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/disintegration/gift"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/math/f64"

	"github.com/dkovalov/filter-graph/core"
	apperrors "github.com/dkovalov/filter-graph/errors"
	"github.com/dkovalov/filter-graph/filters"
	"github.com/dkovalov/filter-graph/utils"
)

// Register wires every CPU implementation into reg under its built-in spec.
func Register(reg *core.Registry) error {
	for name, impl := range impls {
		spec, ok := filters.SpecByName(name)
		if !ok {
			return apperrors.New(apperrors.CategoryRegistry, name,
				fmt.Errorf("no built-in spec for cpu filter"))
		}
		if err := reg.Register(spec, impl); err != nil {
			return err
		}
	}
	return nil
}

// MustRegister is Register that panics on failure; for startup wiring.
func MustRegister(reg *core.Registry) {
	if err := Register(reg); err != nil {
		panic(err)
	}
}

var impls = map[string]core.FilterImpl{
	"gaussianBlur":          core.FilterFunc(gaussianBlur),
	"boxBlur":               core.FilterFunc(boxBlur),
	"discBlur":              core.FilterFunc(discBlur),
	"colorControls":         core.FilterFunc(colorControls),
	"exposureAdjust":        core.FilterFunc(exposureAdjust),
	"gammaAdjust":           core.FilterFunc(gammaAdjust),
	"hueAdjust":             core.FilterFunc(hueAdjust),
	"whitePointAdjust":      core.FilterFunc(whitePointAdjust),
	"colorClamp":            core.FilterFunc(colorClamp),
	"colorInvert":           core.FilterFunc(colorInvert),
	"grayscale":             core.FilterFunc(grayscaleFilter),
	"colorMonochrome":       core.FilterFunc(colorMonochrome),
	"colorPosterize":        core.FilterFunc(colorPosterize),
	"falseColor":            core.FilterFunc(falseColor),
	"sepiaTone":             core.FilterFunc(sepiaTone),
	"vignette":              core.FilterFunc(vignette),
	"sourceOverCompositing": core.FilterFunc(sourceOver),
	"multiplyCompositing":   core.FilterFunc(multiplyCompositing),
	"additionCompositing":   core.FilterFunc(additionCompositing),
	"blendWithMask":         core.FilterFunc(blendWithMask),
	"twirlDistortion":       core.FilterFunc(twirlDistortion),
	"pinchDistortion":       core.FilterFunc(pinchDistortion),
	"bumpDistortion":        core.FilterFunc(bumpDistortion),
	"affineTransform":       core.FilterFunc(affineTransform),
	"crop":                  core.FilterFunc(cropFilter),
	"lanczosScaleTransform": core.FilterFunc(lanczosScale),
	"straightenFilter":      core.FilterFunc(straighten),
	"dotScreen":             core.FilterFunc(dotScreen),
	"lineScreen":            core.FilterFunc(lineScreen),
	"sharpenLuminance":      core.FilterFunc(sharpenLuminance),
	"unsharpMask":           core.FilterFunc(unsharpMask),
	"pixellate":             core.FilterFunc(pixellate),
	"bloom":                 core.FilterFunc(bloom),
	"gloom":                 core.FilterFunc(gloom),
	"edges":                 core.FilterFunc(edges),
}

// primary pulls the mandatory first input out of inputs.
func primary(ctx context.Context, inputs []*core.Image) (*core.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(inputs) == 0 || inputs[0] == nil || inputs[0].Pix == nil {
		return nil, apperrors.ErrNilImage
	}
	return inputs[0], nil
}

// applyGift runs a gift filter chain over src, keeping coordinates intact.
func applyGift(src *core.Image, fs ...gift.Filter) *core.Image {
	g := gift.New(fs...)
	dst := image.NewNRGBA(g.Bounds(src.Pix.Bounds()))
	g.Draw(dst, src.Pix)
	return &core.Image{Pix: dst, Extent: dst.Bounds(), Space: src.Space}
}

// ── blur ─────────────────────────────────────────────────────────────────────

func gaussianBlur(ctx context.Context, inputs []*core.Image, p *core.ParameterSet) (*core.Image, error) {
	src, err := primary(ctx, inputs)
	if err != nil {
		return nil, err
	}
	sigma := p.ScalarOr(filters.ParamRadius, 10)
	if sigma <= 0 {
		return src, nil
	}
	return applyGift(src, gift.GaussianBlur(float32(sigma))), nil
}

func boxBlur(ctx context.Context, inputs []*core.Image, p *core.ParameterSet) (*core.Image, error) {
	src, err := primary(ctx, inputs)
	if err != nil {
		return nil, err
	}
	r := p.ScalarOr(filters.ParamRadius, 10)
	if r <= 0 {
		return src, nil
	}
	return applyGift(src, gift.Mean(utils.OddKernel(r), false)), nil
}

func discBlur(ctx context.Context, inputs []*core.Image, p *core.ParameterSet) (*core.Image, error) {
	src, err := primary(ctx, inputs)
	if err != nil {
		return nil, err
	}
	r := p.ScalarOr(filters.ParamRadius, 8)
	if r <= 0 {
		return src, nil
	}
	return applyGift(src, gift.Mean(utils.OddKernel(r), true)), nil
}

// ── color adjustment ─────────────────────────────────────────────────────────

func colorControls(ctx context.Context, inputs []*core.Image, p *core.ParameterSet) (*core.Image, error) {
	src, err := primary(ctx, inputs)
	if err != nil {
		return nil, err
	}
	sat := p.ScalarOr("saturation", 1)
	bri := p.ScalarOr("brightness", 0)
	con := p.ScalarOr("contrast", 1)
	return applyGift(src,
		gift.Saturation(float32((sat-1)*100)),
		gift.Brightness(float32(bri*100)),
		gift.Contrast(float32((con-1)*100)),
	), nil
}

func exposureAdjust(ctx context.Context, inputs []*core.Image, p *core.ParameterSet) (*core.Image, error) {
	src, err := primary(ctx, inputs)
	if err != nil {
		return nil, err
	}
	gain := float32(math.Pow(2, p.ScalarOr("ev", 0.5)))
	return applyGift(src, gift.ColorFunc(func(r, g, b, a float32) (float32, float32, float32, float32) {
		return clamp32(r * gain), clamp32(g * gain), clamp32(b * gain), a
	})), nil
}

func gammaAdjust(ctx context.Context, inputs []*core.Image, p *core.ParameterSet) (*core.Image, error) {
	src, err := primary(ctx, inputs)
	if err != nil {
		return nil, err
	}
	power := p.ScalarOr("power", 0.75)
	if power <= 0 {
		return nil, fmt.Errorf("gamma power must be positive, got %v", power)
	}
	return applyGift(src, gift.ColorFunc(func(r, g, b, a float32) (float32, float32, float32, float32) {
		return pow32(r, power), pow32(g, power), pow32(b, power), a
	})), nil
}

func hueAdjust(ctx context.Context, inputs []*core.Image, p *core.ParameterSet) (*core.Image, error) {
	src, err := primary(ctx, inputs)
	if err != nil {
		return nil, err
	}
	deg := utils.RadToDeg(p.ScalarOr(filters.ParamAngle, 0))
	// gift.Hue accepts -180..180; wrap larger rotations.
	deg = math.Mod(deg+180, 360)
	if deg < 0 {
		deg += 360
	}
	deg -= 180
	return applyGift(src, gift.Hue(float32(deg))), nil
}

func whitePointAdjust(ctx context.Context, inputs []*core.Image, p *core.ParameterSet) (*core.Image, error) {
	src, err := primary(ctx, inputs)
	if err != nil {
		return nil, err
	}
	wp := p.ColorOr("color", [4]float64{1, 1, 1, 1})
	for i := 0; i < 3; i++ {
		if wp[i] <= 0 {
			return nil, fmt.Errorf("white point component %d must be positive", i)
		}
	}
	return applyGift(src, gift.ColorFunc(func(r, g, b, a float32) (float32, float32, float32, float32) {
		return clamp32(r / float32(wp[0])), clamp32(g / float32(wp[1])), clamp32(b / float32(wp[2])), a
	})), nil
}

func colorClamp(ctx context.Context, inputs []*core.Image, p *core.ParameterSet) (*core.Image, error) {
	src, err := primary(ctx, inputs)
	if err != nil {
		return nil, err
	}
	lo := p.VectorOr("minComponents", []float64{0, 0, 0, 0})
	hi := p.VectorOr("maxComponents", []float64{1, 1, 1, 1})
	if len(lo) != 4 || len(hi) != 4 {
		return nil, fmt.Errorf("component vectors must have 4 elements")
	}
	return applyGift(src, gift.ColorFunc(func(r, g, b, a float32) (float32, float32, float32, float32) {
		return clampRange(r, lo[0], hi[0]), clampRange(g, lo[1], hi[1]),
			clampRange(b, lo[2], hi[2]), clampRange(a, lo[3], hi[3])
	})), nil
}

// ── color effect ─────────────────────────────────────────────────────────────

func colorInvert(ctx context.Context, inputs []*core.Image, _ *core.ParameterSet) (*core.Image, error) {
	src, err := primary(ctx, inputs)
	if err != nil {
		return nil, err
	}
	return applyGift(src, gift.Invert()), nil
}

func grayscaleFilter(ctx context.Context, inputs []*core.Image, _ *core.ParameterSet) (*core.Image, error) {
	src, err := primary(ctx, inputs)
	if err != nil {
		return nil, err
	}
	out := applyGift(src, gift.Grayscale())
	out.Space = core.ColorSpaceGray
	return out, nil
}

func colorMonochrome(ctx context.Context, inputs []*core.Image, p *core.ParameterSet) (*core.Image, error) {
	src, err := primary(ctx, inputs)
	if err != nil {
		return nil, err
	}
	tint := p.ColorOr("color", [4]float64{0.6, 0.45, 0.3, 1})
	intensity := float32(utils.Clamp01(p.ScalarOr(filters.ParamIntensity, 1)))
	return applyGift(src, gift.ColorFunc(func(r, g, b, a float32) (float32, float32, float32, float32) {
		l := luma32(r, g, b)
		mr := l * float32(tint[0])
		mg := l * float32(tint[1])
		mb := l * float32(tint[2])
		return mix32(r, mr, intensity), mix32(g, mg, intensity), mix32(b, mb, intensity), a
	})), nil
}

func colorPosterize(ctx context.Context, inputs []*core.Image, p *core.ParameterSet) (*core.Image, error) {
	src, err := primary(ctx, inputs)
	if err != nil {
		return nil, err
	}
	levels := p.ScalarOr("levels", 6)
	if levels < 2 {
		return nil, fmt.Errorf("posterize needs at least 2 levels, got %v", levels)
	}
	n := float32(levels - 1)
	quant := func(v float32) float32 {
		return float32(math.Round(float64(v*n))) / n
	}
	return applyGift(src, gift.ColorFunc(func(r, g, b, a float32) (float32, float32, float32, float32) {
		return quant(r), quant(g), quant(b), a
	})), nil
}

func falseColor(ctx context.Context, inputs []*core.Image, p *core.ParameterSet) (*core.Image, error) {
	src, err := primary(ctx, inputs)
	if err != nil {
		return nil, err
	}
	c0 := p.ColorOr("color0", [4]float64{0.3, 0, 0, 1})
	c1 := p.ColorOr("color1", [4]float64{1, 0.9, 0.8, 1})
	return applyGift(src, gift.ColorFunc(func(r, g, b, a float32) (float32, float32, float32, float32) {
		l := luma32(r, g, b)
		return mix32(float32(c0[0]), float32(c1[0]), l),
			mix32(float32(c0[1]), float32(c1[1]), l),
			mix32(float32(c0[2]), float32(c1[2]), l), a
	})), nil
}

func sepiaTone(ctx context.Context, inputs []*core.Image, p *core.ParameterSet) (*core.Image, error) {
	src, err := primary(ctx, inputs)
	if err != nil {
		return nil, err
	}
	intensity := utils.Clamp01(p.ScalarOr(filters.ParamIntensity, 1))
	return applyGift(src, gift.Sepia(float32(intensity*100))), nil
}

// ── sharpen ──────────────────────────────────────────────────────────────────

func sharpenLuminance(ctx context.Context, inputs []*core.Image, p *core.ParameterSet) (*core.Image, error) {
	src, err := primary(ctx, inputs)
	if err != nil {
		return nil, err
	}
	sharpness := p.ScalarOr(filters.ParamSharpness, 0.4)
	if sharpness <= 0 {
		return src, nil
	}
	return applyGift(src, gift.UnsharpMask(0.8, float32(sharpness*2), 0)), nil
}

func unsharpMask(ctx context.Context, inputs []*core.Image, p *core.ParameterSet) (*core.Image, error) {
	src, err := primary(ctx, inputs)
	if err != nil {
		return nil, err
	}
	radius := p.ScalarOr(filters.ParamRadius, 2.5)
	intensity := p.ScalarOr(filters.ParamIntensity, 0.5)
	if radius <= 0 || intensity <= 0 {
		return src, nil
	}
	return applyGift(src, gift.UnsharpMask(float32(radius), float32(intensity), 0)), nil
}

// ── geometry ─────────────────────────────────────────────────────────────────

func affineTransform(ctx context.Context, inputs []*core.Image, p *core.ParameterSet) (*core.Image, error) {
	src, err := primary(ctx, inputs)
	if err != nil {
		return nil, err
	}
	m := p.MatrixOr("transform", [6]float64{1, 0, 0, 1, 0, 0})
	// Row-major a, b, c, d, tx, ty maps (x, y) -> (a*x+b*y+tx, c*x+d*y+ty).
	aff := f64.Aff3{m[0], m[1], m[4], m[2], m[3], m[5]}

	sr := src.Pix.Bounds()
	dstRect := transformRect(sr, m)
	if dstRect.Empty() {
		return nil, fmt.Errorf("degenerate affine transform %v", m)
	}
	dst := image.NewNRGBA(dstRect)
	xdraw.BiLinear.Transform(dst, aff, src.Pix, sr, xdraw.Src, nil)
	return &core.Image{Pix: dst, Extent: dstRect, Space: src.Space}, nil
}

// transformRect maps the corners of r through the affine matrix and returns
// the integer bounding box of the result.
func transformRect(r image.Rectangle, m [6]float64) image.Rectangle {
	corners := [4][2]float64{
		{float64(r.Min.X), float64(r.Min.Y)},
		{float64(r.Max.X), float64(r.Min.Y)},
		{float64(r.Min.X), float64(r.Max.Y)},
		{float64(r.Max.X), float64(r.Max.Y)},
	}
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, c := range corners {
		x := m[0]*c[0] + m[1]*c[1] + m[4]
		y := m[2]*c[0] + m[3]*c[1] + m[5]
		minX, maxX = math.Min(minX, x), math.Max(maxX, x)
		minY, maxY = math.Min(minY, y), math.Max(maxY, y)
	}
	return image.Rect(int(math.Floor(minX)), int(math.Floor(minY)),
		int(math.Ceil(maxX)), int(math.Ceil(maxY)))
}

func cropFilter(ctx context.Context, inputs []*core.Image, p *core.ParameterSet) (*core.Image, error) {
	src, err := primary(ctx, inputs)
	if err != nil {
		return nil, err
	}
	rect := p.VectorOr("rectangle", nil)
	if len(rect) != 4 {
		return nil, fmt.Errorf("crop rectangle must be [x y width height]")
	}
	r := image.Rect(int(rect[0]), int(rect[1]), int(rect[0]+rect[2]), int(rect[1]+rect[3]))
	r = r.Intersect(src.Pix.Bounds())
	if r.Empty() {
		return nil, fmt.Errorf("crop rectangle %v does not intersect extent %v", rect, src.Extent)
	}
	return applyGift(&core.Image{Pix: src.Pix, Extent: src.Extent, Space: src.Space}, gift.Crop(r)), nil
}

func lanczosScale(ctx context.Context, inputs []*core.Image, p *core.ParameterSet) (*core.Image, error) {
	src, err := primary(ctx, inputs)
	if err != nil {
		return nil, err
	}
	scale := p.ScalarOr(filters.ParamScale, 1)
	aspect := p.ScalarOr("aspectRatio", 1)
	if scale <= 0 || aspect <= 0 {
		return nil, fmt.Errorf("scale and aspectRatio must be positive")
	}
	b := src.Pix.Bounds()
	w := int(math.Round(float64(b.Dx()) * scale * aspect))
	h := int(math.Round(float64(b.Dy()) * scale))
	if w < 1 || h < 1 {
		return nil, fmt.Errorf("scaled size %dx%d is empty", w, h)
	}
	return applyGift(src, gift.Resize(w, h, gift.LanczosResampling)), nil
}

func straighten(ctx context.Context, inputs []*core.Image, p *core.ParameterSet) (*core.Image, error) {
	src, err := primary(ctx, inputs)
	if err != nil {
		return nil, err
	}
	deg := utils.RadToDeg(p.ScalarOr(filters.ParamAngle, 0))
	if deg == 0 {
		return src, nil
	}
	return applyGift(src, gift.Rotate(float32(deg), color.Transparent, gift.CubicInterpolation)), nil
}

// ── stylize ──────────────────────────────────────────────────────────────────

func pixellate(ctx context.Context, inputs []*core.Image, p *core.ParameterSet) (*core.Image, error) {
	src, err := primary(ctx, inputs)
	if err != nil {
		return nil, err
	}
	scale := int(p.ScalarOr(filters.ParamScale, 8))
	if scale < 1 {
		scale = 1
	}
	return applyGift(src, gift.Pixelate(scale)), nil
}

func edges(ctx context.Context, inputs []*core.Image, p *core.ParameterSet) (*core.Image, error) {
	src, err := primary(ctx, inputs)
	if err != nil {
		return nil, err
	}
	intensity := float32(p.ScalarOr(filters.ParamIntensity, 1))
	return applyGift(src,
		gift.Sobel(),
		gift.ColorFunc(func(r, g, b, a float32) (float32, float32, float32, float32) {
			return clamp32(r * intensity), clamp32(g * intensity), clamp32(b * intensity), a
		}),
	), nil
}

// ── float helpers ────────────────────────────────────────────────────────────

func clamp32(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func clampRange(v float32, lo, hi float64) float32 {
	if float64(v) < lo {
		return float32(lo)
	}
	if float64(v) > hi {
		return float32(hi)
	}
	return v
}

func pow32(v float32, p float64) float32 {
	if v <= 0 {
		return 0
	}
	return float32(math.Pow(float64(v), p))
}

func luma32(r, g, b float32) float32 {
	return 0.2126*r + 0.7152*g + 0.0722*b
}

func mix32(a, b, t float32) float32 { return a + (b-a)*t }
