// Package render walks a pipeline's graph and produces pixel buffers.
package render

import (
	"context"
	"fmt"
	"image"
	"image/draw"
	"time"

	xdraw "golang.org/x/image/draw"

	"github.com/dkovalov/filter-graph/core"
	apperrors "github.com/dkovalov/filter-graph/errors"
	"github.com/dkovalov/filter-graph/graph"
)

// Options controls one render call.
type Options struct {
	// Extent overrides the output region; nil means the union of all source
	// extents.  Clipping happens only at this final stage — intermediate
	// nodes are evaluated over their full extents.
	Extent *image.Rectangle
	// Scale resizes the final output; <= 0 means 1.
	Scale float64
}

// Renderer evaluates pipelines against a registry.  It is stateless between
// calls and safe for concurrent use; the per-render memoisation cache is
// local to each Render invocation.
type Renderer struct {
	reg     *core.Registry
	hooks   []core.Hook
	logger  core.Logger
	metrics core.MetricsCollector
}

// New creates a Renderer bound to reg.
func New(reg *core.Registry) *Renderer {
	return &Renderer{reg: reg}
}

// SetLogger attaches a structured logger.
func (r *Renderer) SetLogger(l core.Logger) { r.logger = l }

// SetMetrics attaches a metrics collector.
func (r *Renderer) SetMetrics(m core.MetricsCollector) { r.metrics = m }

// AddHook registers an observer for node evaluation events.
func (r *Renderer) AddHook(h core.Hook) { r.hooks = append(r.hooks, h) }

// Registry returns the registry the renderer executes against.
func (r *Renderer) Registry() *core.Registry { return r.reg }

// Render evaluates the pipeline's graph in dependency order and returns the
// final pixel buffer for the requested region and scale.  Each node's result
// is memoised for the duration of the call, so a node referenced by several
// downstream nodes executes exactly once.  The first execution failure
// aborts the render; no partial result is returned.  Rendering is
// idempotent — a pipeline may be rendered any number of times.
func (r *Renderer) Render(ctx context.Context, p *graph.Pipeline, opts Options) (*core.RenderResult, error) {
	if p == nil || p.Terminal() == nil {
		return nil, apperrors.New(apperrors.CategoryInput, "render", fmt.Errorf("nil pipeline"))
	}

	start := time.Now()
	nodes := p.Nodes()
	memo := make(map[*graph.Node]*core.Image, len(nodes))
	timings := make(map[string]time.Duration, len(nodes))

	for _, n := range nodes {
		if err := ctx.Err(); err != nil {
			return nil, apperrors.Wrap(apperrors.CategoryRender, n.Label(), err)
		}

		if n.Kind() == graph.KindSource {
			memo[n] = n.Source()
			continue
		}

		inputs := n.Inputs()
		resolved := make([]*core.Image, len(inputs))
		for i, in := range inputs {
			img, ok := memo[in]
			if !ok {
				// Construction keeps inputs ahead of dependents; reaching
				// this means the graph invariant was broken.
				return nil, apperrors.New(apperrors.CategoryRender, n.Label(),
					fmt.Errorf("input %s not yet evaluated", in.Label()))
			}
			resolved[i] = img
		}

		out, elapsed, err := r.evalNode(ctx, n, resolved)
		timings[n.Label()] = elapsed
		if err != nil {
			if r.metrics != nil {
				r.metrics.RecordError(n.Filter())
			}
			return nil, &apperrors.RenderError{Filter: n.Filter(), Err: err}
		}
		memo[n] = out
	}

	terminal := memo[p.Terminal()]
	extent := p.SourceExtent()
	if opts.Extent != nil {
		extent = *opts.Extent
	}
	if extent.Empty() {
		return nil, apperrors.New(apperrors.CategoryRender, "render", apperrors.ErrEmptyExtent)
	}

	buf := r.resolveOutput(terminal, extent, opts.Scale)

	total := time.Since(start)
	if r.metrics != nil {
		r.metrics.RecordRender(len(nodes), total)
	}
	if r.logger != nil {
		r.logger.Debug("render.done",
			"nodes", len(nodes),
			"extent", extent.String(),
			"duration_ms", total.Milliseconds(),
		)
	}

	buf.RenderTime = total
	buf.NodeTimings = timings
	return buf, nil
}

// evalNode executes one filter node, surrounding it with hooks and timing.
func (r *Renderer) evalNode(ctx context.Context, n *graph.Node, inputs []*core.Image) (*core.Image, time.Duration, error) {
	label := n.Label()
	for _, h := range r.hooks {
		h.BeforeNode(ctx, n.Filter(), label)
	}

	start := time.Now()
	out, err := r.reg.Execute(ctx, n.Filter(), inputs, n.Params())
	elapsed := time.Since(start)

	for _, h := range r.hooks {
		h.AfterNode(ctx, n.Filter(), label, elapsed, err)
	}
	if r.metrics != nil {
		r.metrics.RecordFilterTime(n.Filter(), elapsed)
	}
	return out, elapsed, err
}

// resolveOutput clips the terminal image to extent, applies the final scale,
// and copies the pixels into an owned RGBA8 buffer.
func (r *Renderer) resolveOutput(term *core.Image, extent image.Rectangle, scale float64) *core.RenderResult {
	w, h := core.ScaledSize(extent, scale)
	dst := image.NewRGBA(image.Rect(0, 0, w, h))

	if w == extent.Dx() && h == extent.Dy() {
		// Identity scale: plain draw with the extent offset.
		draw.Draw(dst, dst.Bounds(), term.Pix, extent.Min, draw.Src)
	} else {
		xdraw.BiLinear.Scale(dst, dst.Bounds(), term.Pix, extent, xdraw.Src, nil)
	}

	pix := make([]byte, len(dst.Pix))
	copy(pix, dst.Pix)

	return &core.RenderResult{
		Width:  w,
		Height: h,
		Format: core.FormatRGBA8,
		Stride: dst.Stride,
		Pix:    pix,
		Extent: extent,
	}
}
