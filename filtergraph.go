// Package filtergraph is a lazy image-filter-graph engine: callers chain
// named, schema-validated filter applications into an immutable pipeline,
// then render it to a pixel buffer.  Filter implementations live behind a
// registry; the engine owns no pixel math of its own.
package filtergraph

import (
	"context"
	"image"
	"runtime"

	"github.com/dkovalov/filter-graph/adapters/cpu"
	"github.com/dkovalov/filter-graph/config"
	"github.com/dkovalov/filter-graph/core"
	"github.com/dkovalov/filter-graph/graph"
	"github.com/dkovalov/filter-graph/render"
)

// DefaultConfig returns a sensible production configuration.
func DefaultConfig() config.Config { return config.Default() }

/// Engine is the primary entry point: a registry of filter kinds plus a
// renderer and an optional async job pool.
type Engine struct {
	cfg      config.Config
	reg      *core.Registry
	renderer *render.Renderer
	pool     *render.Pool
}

// New creates an Engine.  With the default cpu backend the full built-in
// filter set is registered immediately; for the vips and opencv backends the
// registry starts empty and the caller registers the adapter explicitly
// (those backends are CGO-built and opt-in).
func New(cfg config.Config) (*Engine, error) {
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}

	reg := core.NewRegistry()
	if cfg.Backend == "" || cfg.Backend == config.BackendCPU {
		if err := cpu.Register(reg); err != nil {
			return nil, err
		}
	}

	renderer := render.New(reg)

	workers := cfg.WorkerCount
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	pool := render.NewPool(renderer, workers, cfg.QueueSize)
	pool.SetTimeout(cfg.JobTimeout)

	return &Engine{
		cfg:      cfg,
		reg:      reg,
		renderer: renderer,
		pool:     pool,
	}, nil
}

// Registry returns the underlying registry so callers can register
// additional filters or backends after construction.
func (e *Engine) Registry() *core.Registry { return e.reg }

// SetLogger attaches a structured logger.
func (e *Engine) SetLogger(l core.Logger) { e.renderer.SetLogger(l) }

// SetMetrics attaches a metrics collector.
func (e *Engine) SetMetrics(m core.MetricsCollector) { e.renderer.SetMetrics(m) }

// AddHook registers an observer for node evaluation events.
func (e *Engine) AddHook(h core.Hook) { e.renderer.AddHook(h) }

// From creates a pipeline rooted at a decoded pixel buffer.
func (e *Engine) From(pix image.Image) (*graph.Pipeline, error) {
	return graph.FromImage(e.reg, pix)
}

// FromImage creates a pipeline rooted at an engine image (explicit extent
// and colour space).
func (e *Engine) FromImage(img *core.Image) (*graph.Pipeline, error) {
	return graph.From(e.reg, img)
}

// Render evaluates the pipeline synchronously.
func (e *Engine) Render(ctx context.Context, p *graph.Pipeline, opts render.Options) (*core.RenderResult, error) {
	if opts.Scale == 0 {
		opts.Scale = e.cfg.DefaultScale
	}
	return e.renderer.Render(ctx, p, opts)
}

// RenderBatch renders independent pipelines concurrently.
func (e *Engine) RenderBatch(ctx context.Context, pipelines []*graph.Pipeline, opts render.Options) ([]*core.RenderResult, []error) {
	if opts.Scale == 0 {
		opts.Scale = e.cfg.DefaultScale
	}
	return e.renderer.RenderBatch(ctx, pipelines, opts)
}

// Start launches the background render pool.
func (e *Engine) Start() { e.pool.Start() }

// Stop shuts down the render pool.
func (e *Engine) Stop() { e.pool.Stop() }

// Submit enqueues an async render job.
func (e *Engine) Submit(job render.Job) error { return e.pool.Submit(job) }

// ── Op builders ───────────────────────────────────────────────────────────────
//
// The built-in filter surface collapses to data: an Op names a table entry
// and carries its parameters, and Apply feeds Ops through the generic
// Pipeline.Apply entry point.

// Op is one filter application: a table entry name, its parameters, and any
// auxiliary input pipelines.
type Op struct {
	Name   string
	Params core.Params
	Aux    []*graph.Pipeline
}

// Apply chains ops onto p, returning the extended pipeline.  On failure the
// partial progress is discarded and p remains valid.
func Apply(p *graph.Pipeline, ops ...Op) (*graph.Pipeline, error) {
	cur := p
	for _, op := range ops {
		next, err := cur.Apply(op.Name, op.Params, op.Aux...)
		if err != nil {
			return nil, err
		}
		cur = next
	}
	return cur, nil
}

// GaussianBlur blurs with the given sigma in pixels.
func GaussianBlur(radius float64) Op {
	return Op{Name: "gaussianBlur", Params: core.Params{"radius": core.Scalar(radius)}}
}

// BoxBlur applies a mean blur with the given radius.
func BoxBlur(radius float64) Op {
	return Op{Name: "boxBlur", Params: core.Params{"radius": core.Scalar(radius)}}
}

// ColorControls adjusts saturation (neutral 1), brightness (neutral 0), and
// contrast (neutral 1).
func ColorControls(saturation, brightness, contrast float64) Op {
	return Op{Name: "colorControls", Params: core.Params{
		"saturation": core.Scalar(saturation),
		"brightness": core.Scalar(brightness),
		"contrast":   core.Scalar(contrast),
	}}
}

// ExposureAdjust shifts exposure by ev stops.
func ExposureAdjust(ev float64) Op {
	return Op{Name: "exposureAdjust", Params: core.Params{"ev": core.Scalar(ev)}}
}

// GammaAdjust raises each channel to the given power.
func GammaAdjust(power float64) Op {
	return Op{Name: "gammaAdjust", Params: core.Params{"power": core.Scalar(power)}}
}

// HueAdjust rotates hue by angle radians.
func HueAdjust(angle float64) Op {
	return Op{Name: "hueAdjust", Params: core.Params{"angle": core.Scalar(angle)}}
}

// Invert inverts colour channels.
func Invert() Op { return Op{Name: "colorInvert"} }

// Grayscale converts to grayscale.
func Grayscale() Op { return Op{Name: "grayscale"} }

// Posterize quantises each channel to the given number of levels.
func Posterize(levels int) Op {
	return Op{Name: "colorPosterize", Params: core.Params{"levels": core.Int(levels)}}
}

// SepiaTone applies a sepia tone with the given intensity (0..1).
func SepiaTone(intensity float64) Op {
	return Op{Name: "sepiaTone", Params: core.Params{"intensity": core.Scalar(intensity)}}
}

// Vignette darkens towards the corners.
func Vignette(radius, intensity float64) Op {
	return Op{Name: "vignette", Params: core.Params{
		"radius":    core.Scalar(radius),
		"intensity": core.Scalar(intensity),
	}}
}

// SharpenLuminance sharpens with the given sharpness.
func SharpenLuminance(sharpness float64) Op {
	return Op{Name: "sharpenLuminance", Params: core.Params{"sharpness": core.Scalar(sharpness)}}
}

// UnsharpMask sharpens via an unsharp mask.
func UnsharpMask(radius, intensity float64) Op {
	return Op{Name: "unsharpMask", Params: core.Params{
		"radius":    core.Scalar(radius),
		"intensity": core.Scalar(intensity),
	}}
}

// Pixellate replaces the image with square cells of the given size.
func Pixellate(scale float64) Op {
	return Op{Name: "pixellate", Params: core.Params{"scale": core.Scalar(scale)}}
}

// Bloom softens and brightens highlights.
func Bloom(radius, intensity float64) Op {
	return Op{Name: "bloom", Params: core.Params{
		"radius":    core.Scalar(radius),
		"intensity": core.Scalar(intensity),
	}}
}

// Edges traces edges with the given intensity.
func Edges(intensity float64) Op {
	return Op{Name: "edges", Params: core.Params{"intensity": core.Scalar(intensity)}}
}

// DotScreen renders a halftone dot screen.
func DotScreen(angle, width, sharpness float64) Op {
	return Op{Name: "dotScreen", Params: core.Params{
		"angle":     core.Scalar(angle),
		"width":     core.Scalar(width),
		"sharpness": core.Scalar(sharpness),
	}}
}

// Crop keeps the rectangle at (x, y) of size w x h, in source coordinates.
func Crop(x, y, w, h float64) Op {
	return Op{Name: "crop", Params: core.Params{"rectangle": core.Vector(x, y, w, h)}}
}

// Scale resizes by scale with an extra horizontal aspect factor.
func Scale(scale, aspectRatio float64) Op {
	return Op{Name: "lanczosScaleTransform", Params: core.Params{
		"scale":       core.Scalar(scale),
		"aspectRatio": core.Scalar(aspectRatio),
	}}
}

// Straighten rotates by angle radians.
func Straighten(angle float64) Op {
	return Op{Name: "straightenFilter", Params: core.Params{"angle": core.Scalar(angle)}}
}

// Affine applies a 2x3 affine transform (row-major a, b, c, d, tx, ty).
func Affine(m [6]float64) Op {
	return Op{Name: "affineTransform", Params: core.Params{"transform": core.Matrix(m)}}
}

// SourceOver composites the pipeline over background.
func SourceOver(background *graph.Pipeline) Op {
	return Op{Name: "sourceOverCompositing", Aux: []*graph.Pipeline{background}}
}

// Multiply multiplies the pipeline with background.
func Multiply(background *graph.Pipeline) Op {
	return Op{Name: "multiplyCompositing", Aux: []*graph.Pipeline{background}}
}

// Addition adds the pipeline and background.
func Addition(background *graph.Pipeline) Op {
	return Op{Name: "additionCompositing", Aux: []*graph.Pipeline{background}}
}

// BlendWithMask blends the pipeline with background using mask's luminance.
func BlendWithMask(background, mask *graph.Pipeline) Op {
	return Op{Name: "blendWithMask", Aux: []*graph.Pipeline{background, mask}}
}
