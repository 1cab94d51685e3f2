package cpu_test

import (
	"context"
	"image"
	"image/color"
	"testing"

	"github.com/dkovalov/filter-graph/adapters/cpu"
	"github.com/dkovalov/filter-graph/core"
	"github.com/dkovalov/filter-graph/filters"
	"github.com/dkovalov/filter-graph/graph"
	"github.com/dkovalov/filter-graph/render"
)

// ── Test helpers ──────────────────────────────────────────────────────────────

func newBackendRegistry(t *testing.T) *core.Registry {
	t.Helper()
	reg := core.NewRegistry()
	if err := cpu.Register(reg); err != nil {
		t.Fatalf("Register: %v", err)
	}
	return reg
}

func gradientSource(t *testing.T, reg *core.Registry, w, h int) *graph.Pipeline {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{
				R: uint8(255 * x / w),
				G: uint8(255 * y / h),
				B: 70,
				A: 255,
			})
		}
	}
	p, err := graph.FromImage(reg, img)
	if err != nil {
		t.Fatalf("FromImage: %v", err)
	}
	return p
}

func solidSource(t *testing.T, reg *core.Registry, r image.Rectangle, c color.NRGBA) *graph.Pipeline {
	t.Helper()
	img := image.NewNRGBA(r)
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	p, err := graph.From(reg, core.NewImage(img))
	if err != nil {
		t.Fatalf("From: %v", err)
	}
	return p
}

func renderPipeline(t *testing.T, p *graph.Pipeline, opts render.Options) *core.RenderResult {
	t.Helper()
	res, err := render.New(p.Registry()).Render(context.Background(), p, opts)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	return res
}

func pixelAt(res *core.RenderResult, x, y int) (r, g, b, a uint8) {
	i := y*res.Stride + x*4
	return res.Pix[i], res.Pix[i+1], res.Pix[i+2], res.Pix[i+3]
}

// ── Tests ─────────────────────────────────────────────────────────────────────

func TestRegister_CoversAllBuiltins(t *testing.T) {
	reg := newBackendRegistry(t)
	for _, spec := range filters.BuiltinSpecs() {
		if !reg.Has(spec.Name) {
			t.Errorf("builtin %q has no cpu implementation", spec.Name)
		}
	}
}

func TestGrayscale_NeutralChannels(t *testing.T) {
	reg := newBackendRegistry(t)
	p := gradientSource(t, reg, 16, 16).MustApply("grayscale", nil)
	res := renderPipeline(t, p, render.Options{})

	for _, pt := range []image.Point{{2, 3}, {8, 8}, {14, 1}} {
		r, g, b, _ := pixelAt(res, pt.X, pt.Y)
		if r != g || g != b {
			t.Fatalf("pixel %v not neutral: %d %d %d", pt, r, g, b)
		}
	}
}

func TestInvert_RoundTrips(t *testing.T) {
	reg := newBackendRegistry(t)
	src := gradientSource(t, reg, 8, 8)
	once := renderPipeline(t, src.MustApply("colorInvert", nil), render.Options{})
	twice := renderPipeline(t, src.MustApply("colorInvert", nil).MustApply("colorInvert", nil), render.Options{})
	plain := renderPipeline(t, src, render.Options{})

	r0, g0, b0, _ := pixelAt(plain, 4, 4)
	r1, g1, b1, _ := pixelAt(once, 4, 4)
	if r1 != 255-r0 || g1 != 255-g0 || b1 != 255-b0 {
		t.Fatalf("invert: got %d %d %d from %d %d %d", r1, g1, b1, r0, g0, b0)
	}
	r2, g2, b2, _ := pixelAt(twice, 4, 4)
	if r2 != r0 || g2 != g0 || b2 != b0 {
		t.Fatalf("double invert not identity: %d %d %d vs %d %d %d", r2, g2, b2, r0, g0, b0)
	}
}

func TestGaussianBlur_PreservesDimensions(t *testing.T) {
	reg := newBackendRegistry(t)
	p := gradientSource(t, reg, 24, 18).MustApply("gaussianBlur", core.Params{"radius": core.Scalar(3)})
	res := renderPipeline(t, p, render.Options{})
	if res.Width != 24 || res.Height != 18 {
		t.Fatalf("size = %dx%d, want 24x18", res.Width, res.Height)
	}
}

func TestBlur_FlattensGradient(t *testing.T) {
	reg := newBackendRegistry(t)
	src := gradientSource(t, reg, 32, 32)
	plain := renderPipeline(t, src, render.Options{})
	blurred := renderPipeline(t, src.MustApply("boxBlur", core.Params{"radius": core.Scalar(6)}), render.Options{})

	// Horizontal contrast across the centre row must shrink under blur.
	contrast := func(res *core.RenderResult) int {
		l, _, _, _ := pixelAt(res, 1, 16)
		r, _, _, _ := pixelAt(res, 30, 16)
		d := int(r) - int(l)
		if d < 0 {
			d = -d
		}
		return d
	}
	if c0, c1 := contrast(plain), contrast(blurred); c1 >= c0 {
		t.Fatalf("blur did not reduce contrast: %d -> %d", c0, c1)
	}
}

func TestCrop_ShrinksExtentOnly(t *testing.T) {
	reg := newBackendRegistry(t)
	p := gradientSource(t, reg, 32, 32).
		MustApply("crop", core.Params{"rectangle": core.Vector(8, 8, 10, 6)})

	ext := image.Rect(8, 8, 18, 14)
	res := renderPipeline(t, p, render.Options{Extent: &ext})
	if res.Width != 10 || res.Height != 6 {
		t.Fatalf("size = %dx%d, want 10x6", res.Width, res.Height)
	}
}

func TestSourceOver_UnionExtent(t *testing.T) {
	reg := newBackendRegistry(t)
	fg := solidSource(t, reg, image.Rect(0, 0, 10, 10), color.NRGBA{R: 255, A: 255})
	bg := solidSource(t, reg, image.Rect(5, 5, 20, 20), color.NRGBA{B: 255, A: 255})

	p := fg.MustApply("sourceOverCompositing", nil, bg)
	res := renderPipeline(t, p, render.Options{})

	if res.Width != 20 || res.Height != 20 {
		t.Fatalf("size = %dx%d, want union 20x20", res.Width, res.Height)
	}
	// Foreground-only region stays red, background-only region stays blue.
	if r, _, _, _ := pixelAt(res, 2, 2); r != 255 {
		t.Fatalf("foreground region lost: r=%d", r)
	}
	if _, _, b, _ := pixelAt(res, 18, 18); b != 255 {
		t.Fatalf("background region lost: b=%d", b)
	}
	// Overlap region: foreground wins under source-over.
	if r, _, b, _ := pixelAt(res, 7, 7); r != 255 || b != 0 {
		t.Fatalf("overlap not foreground: r=%d b=%d", r, b)
	}
}

func TestMultiplyCompositing_DarkensOverlap(t *testing.T) {
	reg := newBackendRegistry(t)
	fg := solidSource(t, reg, image.Rect(0, 0, 8, 8), color.NRGBA{R: 128, G: 128, B: 128, A: 255})
	bg := solidSource(t, reg, image.Rect(0, 0, 8, 8), color.NRGBA{R: 128, G: 128, B: 128, A: 255})

	p := fg.MustApply("multiplyCompositing", nil, bg)
	res := renderPipeline(t, p, render.Options{})

	r, _, _, _ := pixelAt(res, 4, 4)
	// 0.5 * 0.5 ≈ 0.25.
	if r < 58 || r > 70 {
		t.Fatalf("multiply of mid grey = %d, want ~64", r)
	}
}

func TestAdditionCompositing_Saturates(t *testing.T) {
	reg := newBackendRegistry(t)
	fg := solidSource(t, reg, image.Rect(0, 0, 8, 8), color.NRGBA{R: 200, A: 255})
	bg := solidSource(t, reg, image.Rect(0, 0, 8, 8), color.NRGBA{R: 200, A: 255})

	p := fg.MustApply("additionCompositing", nil, bg)
	res := renderPipeline(t, p, render.Options{})
	if r, _, _, _ := pixelAt(res, 4, 4); r != 255 {
		t.Fatalf("addition should clamp at 255, got %d", r)
	}
}

func TestBlendWithMask_FollowsMask(t *testing.T) {
	reg := newBackendRegistry(t)
	fg := solidSource(t, reg, image.Rect(0, 0, 8, 8), color.NRGBA{R: 255, A: 255})
	bg := solidSource(t, reg, image.Rect(0, 0, 8, 8), color.NRGBA{B: 255, A: 255})
	white := solidSource(t, reg, image.Rect(0, 0, 8, 8), color.NRGBA{R: 255, G: 255, B: 255, A: 255})
	black := solidSource(t, reg, image.Rect(0, 0, 8, 8), color.NRGBA{A: 255})

	lit := renderPipeline(t, fg.MustApply("blendWithMask", nil, bg, white), render.Options{})
	if r, _, _, _ := pixelAt(lit, 4, 4); r != 255 {
		t.Fatalf("white mask should select foreground, r=%d", r)
	}
	dark := renderPipeline(t, fg.MustApply("blendWithMask", nil, bg, black), render.Options{})
	if _, _, b, _ := pixelAt(dark, 4, 4); b != 255 {
		t.Fatalf("black mask should select background, b=%d", b)
	}
}

func TestColorPosterize_ReducesLevels(t *testing.T) {
	reg := newBackendRegistry(t)
	p := gradientSource(t, reg, 64, 4).
		MustApply("colorPosterize", core.Params{"levels": core.Int(2)})
	res := renderPipeline(t, p, render.Options{})

	seen := map[uint8]bool{}
	for x := 0; x < 64; x++ {
		r, _, _, _ := pixelAt(res, x, 2)
		seen[r] = true
	}
	if len(seen) > 2 {
		t.Fatalf("posterize to 2 levels left %d distinct red values", len(seen))
	}
}

func TestSepiaTone_WarmsImage(t *testing.T) {
	reg := newBackendRegistry(t)
	src := solidSource(t, reg, image.Rect(0, 0, 8, 8), color.NRGBA{R: 100, G: 100, B: 100, A: 255})
	res := renderPipeline(t, src.MustApply("sepiaTone", nil), render.Options{})
	r, _, b, _ := pixelAt(res, 4, 4)
	if r <= b {
		t.Fatalf("sepia should warm: r=%d b=%d", r, b)
	}
}

func TestVignette_DarkensCorners(t *testing.T) {
	reg := newBackendRegistry(t)
	src := solidSource(t, reg, image.Rect(0, 0, 32, 32), color.NRGBA{R: 200, G: 200, B: 200, A: 255})
	p := src.MustApply("vignette", core.Params{"radius": core.Scalar(1), "intensity": core.Scalar(1)})
	res := renderPipeline(t, p, render.Options{})

	cr, _, _, _ := pixelAt(res, 16, 16)
	er, _, _, _ := pixelAt(res, 0, 0)
	if er >= cr {
		t.Fatalf("corner %d not darker than centre %d", er, cr)
	}
}

func TestLanczosScale_ResizesExtent(t *testing.T) {
	reg := newBackendRegistry(t)
	p := gradientSource(t, reg, 40, 20).
		MustApply("lanczosScaleTransform", core.Params{"scale": core.Scalar(0.5), "aspectRatio": core.Scalar(1)})

	ext := image.Rect(0, 0, 20, 10)
	res := renderPipeline(t, p, render.Options{Extent: &ext})
	if res.Width != 20 || res.Height != 10 {
		t.Fatalf("size = %dx%d, want 20x10", res.Width, res.Height)
	}
}

func TestPixellate_ProducesBlocks(t *testing.T) {
	reg := newBackendRegistry(t)
	p := gradientSource(t, reg, 32, 32).
		MustApply("pixellate", core.Params{"scale": core.Scalar(8)})
	res := renderPipeline(t, p, render.Options{})

	// Neighbouring pixels inside one block share a value.
	r0, g0, b0, _ := pixelAt(res, 1, 1)
	r1, g1, b1, _ := pixelAt(res, 2, 2)
	if r0 != r1 || g0 != g1 || b0 != b1 {
		t.Fatalf("pixels inside a block differ: %v vs %v", [3]uint8{r0, g0, b0}, [3]uint8{r1, g1, b1})
	}
}

func TestExposureAdjust_Brightens(t *testing.T) {
	reg := newBackendRegistry(t)
	src := solidSource(t, reg, image.Rect(0, 0, 8, 8), color.NRGBA{R: 60, G: 60, B: 60, A: 255})
	res := renderPipeline(t, src.MustApply("exposureAdjust", core.Params{"ev": core.Scalar(1)}), render.Options{})
	if r, _, _, _ := pixelAt(res, 4, 4); r <= 60 {
		t.Fatalf("positive exposure should brighten, r=%d", r)
	}
}
