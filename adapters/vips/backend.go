//go:build cgo

// Package vips is a libvips-powered RenderBackend.  It implements a subset
// of the built-in filter table; pixel data crosses the CGO boundary as PNG.
package vips

import (
	"context"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"runtime"

	govips "github.com/davidbyttow/govips/v2/vips"

	"github.com/dkovalov/filter-graph/core"
	apperrors "github.com/dkovalov/filter-graph/errors"
	"github.com/dkovalov/filter-graph/filters"
	"github.com/dkovalov/filter-graph/utils"
)

// BackendConfig configures the libvips backend.
type BackendConfig struct {
	MaxCacheSize int
	MaxWorkers   int
	ReportLeaks  bool
}

// Backend holds the initialised libvips runtime.  Safe for concurrent use.
type Backend struct {
	cfg BackendConfig
}

// NewBackend initialises libvips and returns a ready Backend.
// Call Shutdown() when the process exits.
func NewBackend(cfg BackendConfig) *Backend {
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = runtime.NumCPU()
	}
	govips.Startup(&govips.Config{
		ConcurrencyLevel: cfg.MaxWorkers,
		MaxCacheSize:     cfg.MaxCacheSize,
		ReportLeaks:      cfg.ReportLeaks,
		CollectStats:     true,
	})
	return &Backend{cfg: cfg}
}

// Shutdown releases all libvips resources. Call once at process exit.
func (b *Backend) Shutdown() {
	govips.Shutdown()
}

// Register wires the vips implementations into reg.
func (b *Backend) Register(reg *core.Registry) error {
	for name, impl := range b.impls() {
		spec, ok := filters.SpecByName(name)
		if !ok {
			return apperrors.New(apperrors.CategoryRegistry, name,
				fmt.Errorf("no built-in spec for vips filter"))
		}
		if err := reg.Register(spec, impl); err != nil {
			return err
		}
	}
	return nil
}

func (b *Backend) impls() map[string]core.FilterImpl {
	return map[string]core.FilterImpl{
		"gaussianBlur":          core.FilterFunc(b.gaussianBlur),
		"sharpenLuminance":      core.FilterFunc(b.sharpen),
		"colorInvert":           core.FilterFunc(b.invert),
		"grayscale":             core.FilterFunc(b.grayscale),
		"crop":                  core.FilterFunc(b.crop),
		"lanczosScaleTransform": core.FilterFunc(b.lanczosScale),
		"sourceOverCompositing": b.compositeFunc(govips.BlendModeOver),
		"multiplyCompositing":   b.compositeFunc(govips.BlendModeMultiply),
		"additionCompositing":   b.compositeFunc(govips.BlendModeAdd),
	}
}

// ── image bridging ───────────────────────────────────────────────────────────

func toVips(img *core.Image) (*govips.ImageRef, error) {
	buf := utils.AcquireBuffer()
	defer utils.ReleaseBuffer(buf)
	if err := png.Encode(buf, img.Pix); err != nil {
		return nil, fmt.Errorf("vips bridge encode: %w", err)
	}
	ref, err := govips.NewImageFromBuffer(utils.CloneBytes(buf.Bytes()))
	if err != nil {
		return nil, fmt.Errorf("vips bridge import: %w", err)
	}
	runtime.SetFinalizer(ref, func(r *govips.ImageRef) { r.Close() })
	return ref, nil
}

// fromVips exports ref and re-anchors the pixels at origin, preserving the
// caller's coordinate space.
func fromVips(ref *govips.ImageRef, origin image.Point, space core.ColorSpace) (*core.Image, error) {
	data, _, err := ref.ExportPng(govips.NewPngExportParams())
	if err != nil {
		return nil, fmt.Errorf("vips bridge export: %w", err)
	}
	decoded, err := png.Decode(utils.BytesReader(data))
	if err != nil {
		return nil, fmt.Errorf("vips bridge decode: %w", err)
	}
	rect := decoded.Bounds().Sub(decoded.Bounds().Min).Add(origin)
	dst := image.NewNRGBA(rect)
	draw.Draw(dst, rect, decoded, decoded.Bounds().Min, draw.Src)
	return &core.Image{Pix: dst, Extent: rect, Space: space}, nil
}

func (b *Backend) unary(ctx context.Context, inputs []*core.Image, op func(*govips.ImageRef) error) (*core.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(inputs) == 0 || inputs[0] == nil || inputs[0].Pix == nil {
		return nil, apperrors.ErrNilImage
	}
	src := inputs[0]
	ref, err := toVips(src)
	if err != nil {
		return nil, err
	}
	if err := op(ref); err != nil {
		return nil, err
	}
	return fromVips(ref, src.Extent.Min, src.Space)
}

// ── filter implementations ───────────────────────────────────────────────────

func (b *Backend) gaussianBlur(ctx context.Context, inputs []*core.Image, p *core.ParameterSet) (*core.Image, error) {
	sigma := p.ScalarOr(filters.ParamRadius, 10)
	if sigma <= 0 {
		sigma = 0.01
	}
	return b.unary(ctx, inputs, func(ref *govips.ImageRef) error {
		return ref.GaussianBlur(sigma)
	})
}

func (b *Backend) sharpen(ctx context.Context, inputs []*core.Image, p *core.ParameterSet) (*core.Image, error) {
	sharpness := p.ScalarOr(filters.ParamSharpness, 0.4)
	return b.unary(ctx, inputs, func(ref *govips.ImageRef) error {
		return ref.Sharpen(0.8, 2, sharpness*2)
	})
}

func (b *Backend) invert(ctx context.Context, inputs []*core.Image, _ *core.ParameterSet) (*core.Image, error) {
	return b.unary(ctx, inputs, func(ref *govips.ImageRef) error {
		return ref.Invert()
	})
}

func (b *Backend) grayscale(ctx context.Context, inputs []*core.Image, _ *core.ParameterSet) (*core.Image, error) {
	out, err := b.unary(ctx, inputs, func(ref *govips.ImageRef) error {
		return ref.ToColorSpace(govips.InterpretationBW)
	})
	if err != nil {
		return nil, err
	}
	out.Space = core.ColorSpaceGray
	return out, nil
}

func (b *Backend) crop(ctx context.Context, inputs []*core.Image, p *core.ParameterSet) (*core.Image, error) {
	rect := p.VectorOr("rectangle", nil)
	if len(rect) != 4 {
		return nil, fmt.Errorf("crop rectangle must be [x y width height]")
	}
	if len(inputs) == 0 || inputs[0] == nil {
		return nil, apperrors.ErrNilImage
	}
	src := inputs[0]
	r := image.Rect(int(rect[0]), int(rect[1]), int(rect[0]+rect[2]), int(rect[1]+rect[3]))
	r = r.Intersect(src.Extent)
	if r.Empty() {
		return nil, fmt.Errorf("crop rectangle %v does not intersect extent %v", rect, src.Extent)
	}
	out, err := b.unary(ctx, inputs, func(ref *govips.ImageRef) error {
		return ref.ExtractArea(r.Min.X-src.Extent.Min.X, r.Min.Y-src.Extent.Min.Y, r.Dx(), r.Dy())
	})
	if err != nil {
		return nil, err
	}
	// Keep the crop anchored at its source position.
	shifted := out.Pix.(*image.NRGBA)
	shifted.Rect = shifted.Rect.Sub(shifted.Rect.Min).Add(r.Min)
	out.Pix = shifted
	out.Extent = shifted.Rect
	return out, nil
}

func (b *Backend) lanczosScale(ctx context.Context, inputs []*core.Image, p *core.ParameterSet) (*core.Image, error) {
	scale := p.ScalarOr(filters.ParamScale, 1)
	aspect := p.ScalarOr("aspectRatio", 1)
	if scale <= 0 || aspect <= 0 {
		return nil, fmt.Errorf("scale and aspectRatio must be positive")
	}
	return b.unary(ctx, inputs, func(ref *govips.ImageRef) error {
		return ref.ResizeWithVScale(scale*aspect, scale, govips.KernelLanczos3)
	})
}

func (b *Backend) compositeFunc(mode govips.BlendMode) core.FilterFunc {
	return func(ctx context.Context, inputs []*core.Image, _ *core.ParameterSet) (*core.Image, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if len(inputs) != 2 || inputs[0] == nil || inputs[1] == nil {
			return nil, apperrors.ErrNilImage
		}
		fg, bg := inputs[0], inputs[1]
		base, err := toVips(bg)
		if err != nil {
			return nil, err
		}
		overlay, err := toVips(fg)
		if err != nil {
			return nil, err
		}
		// libvips composites on the base canvas; the overlay is placed at its
		// offset relative to the background extent.
		dx := fg.Extent.Min.X - bg.Extent.Min.X
		dy := fg.Extent.Min.Y - bg.Extent.Min.Y
		if err := base.Composite(overlay, mode, dx, dy); err != nil {
			return nil, err
		}
		return fromVips(base, bg.Extent.Min, fg.Space)
	}
}
