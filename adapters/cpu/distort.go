package cpu

import (
	"context"
	"image"
	"math"

	"github.com/disintegration/gift"

	"github.com/dkovalov/filter-graph/core"
	"github.com/dkovalov/filter-graph/filters"
	"github.com/dkovalov/filter-graph/utils"
)

// bilinear samples the image at a fractional position.
func (s sampler) bilinear(x, y float64) (r, g, b, a float64) {
	x0, y0 := math.Floor(x), math.Floor(y)
	fx, fy := x-x0, y-y0
	ix, iy := int(x0), int(y0)

	r00, g00, b00, a00 := s.at(ix, iy)
	r10, g10, b10, a10 := s.at(ix+1, iy)
	r01, g01, b01, a01 := s.at(ix, iy+1)
	r11, g11, b11, a11 := s.at(ix+1, iy+1)

	lerp2 := func(v00, v10, v01, v11 float64) float64 {
		top := v00 + (v10-v00)*fx
		bot := v01 + (v11-v01)*fx
		return top + (bot-top)*fy
	}
	return lerp2(r00, r10, r01, r11), lerp2(g00, g10, g01, g11),
		lerp2(b00, b10, b01, b11), lerp2(a00, a10, a01, a11)
}

// remap builds the output by inverse-mapping every destination pixel to a
// source position.
func remap(src *core.Image, mapping func(x, y float64) (sx, sy float64)) *core.Image {
	s := newSampler(src)
	dst := image.NewNRGBA(src.Extent)
	for y := src.Extent.Min.Y; y < src.Extent.Max.Y; y++ {
		for x := src.Extent.Min.X; x < src.Extent.Max.X; x++ {
			sx, sy := mapping(float64(x)+0.5, float64(y)+0.5)
			r, g, b, a := s.bilinear(sx-0.5, sy-0.5)
			i := dst.PixOffset(x, y)
			dst.Pix[i] = utils.ClampU8(r)
			dst.Pix[i+1] = utils.ClampU8(g)
			dst.Pix[i+2] = utils.ClampU8(b)
			dst.Pix[i+3] = utils.ClampU8(a)
		}
	}
	return &core.Image{Pix: dst, Extent: src.Extent, Space: src.Space}
}

func centerOf(p *core.ParameterSet, src *core.Image) (float64, float64) {
	c := p.VectorOr(filters.ParamCenter, nil)
	if len(c) == 2 {
		return c[0], c[1]
	}
	return float64(src.Extent.Min.X) + float64(src.Extent.Dx())/2,
		float64(src.Extent.Min.Y) + float64(src.Extent.Dy())/2
}

func twirlDistortion(ctx context.Context, inputs []*core.Image, p *core.ParameterSet) (*core.Image, error) {
	src, err := primary(ctx, inputs)
	if err != nil {
		return nil, err
	}
	cx, cy := centerOf(p, src)
	radius := p.ScalarOr(filters.ParamRadius, 300)
	angle := p.ScalarOr(filters.ParamAngle, 3.14)
	if radius <= 0 || angle == 0 {
		return src, nil
	}
	return remap(src, func(x, y float64) (float64, float64) {
		dx, dy := x-cx, y-cy
		d := math.Hypot(dx, dy)
		if d >= radius {
			return x, y
		}
		// Rotation falls off smoothly towards the radius edge.
		t := 1 - d/radius
		rot := angle * t * t
		sin, cos := math.Sincos(rot)
		return cx + dx*cos - dy*sin, cy + dx*sin + dy*cos
	}), nil
}

func pinchDistortion(ctx context.Context, inputs []*core.Image, p *core.ParameterSet) (*core.Image, error) {
	src, err := primary(ctx, inputs)
	if err != nil {
		return nil, err
	}
	cx, cy := centerOf(p, src)
	radius := p.ScalarOr(filters.ParamRadius, 300)
	scale := p.ScalarOr(filters.ParamScale, 0.5)
	if radius <= 0 || scale == 0 {
		return src, nil
	}
	return remap(src, func(x, y float64) (float64, float64) {
		dx, dy := x-cx, y-cy
		d := math.Hypot(dx, dy)
		if d >= radius || d == 0 {
			return x, y
		}
		t := d / radius
		k := 1 - scale*(1-t)*(1-t)
		return cx + dx*k, cy + dy*k
	}), nil
}

func bumpDistortion(ctx context.Context, inputs []*core.Image, p *core.ParameterSet) (*core.Image, error) {
	src, err := primary(ctx, inputs)
	if err != nil {
		return nil, err
	}
	cx, cy := centerOf(p, src)
	radius := p.ScalarOr(filters.ParamRadius, 300)
	scale := p.ScalarOr(filters.ParamScale, 0.5)
	if radius <= 0 || scale == 0 {
		return src, nil
	}
	return remap(src, func(x, y float64) (float64, float64) {
		dx, dy := x-cx, y-cy
		d := math.Hypot(dx, dy)
		if d >= radius || d == 0 {
			return x, y
		}
		t := d / radius
		// Magnify near the centre, easing out to identity at the edge.
		k := 1 - scale*math.Pow(1-t*t, 2)
		return cx + dx*k, cy + dy*k
	}), nil
}

// ── halftone ─────────────────────────────────────────────────────────────────

// screen renders a halftone screen: pattern returns a threshold position in
// [0,1] for rotated grid coordinates, compared against local luminance.
func screen(src *core.Image, cx, cy, angle, width, sharpness float64, pattern func(u, v float64) float64) *core.Image {
	if width < 1 {
		width = 1
	}
	sharp := utils.Clamp01(sharpness)
	sin, cos := math.Sincos(angle)
	s := newSampler(src)
	dst := image.NewNRGBA(src.Extent)
	for y := src.Extent.Min.Y; y < src.Extent.Max.Y; y++ {
		for x := src.Extent.Min.X; x < src.Extent.Max.X; x++ {
			r, g, b, a := s.at(x, y)
			l := utils.Luminance(r, g, b)

			dx, dy := float64(x)-cx, float64(y)-cy
			u := (dx*cos + dy*sin) / width
			v := (-dx*sin + dy*cos) / width
			d := pattern(u, v)

			// Soft threshold: sharpness 1 is a hard edge.
			edge := (1 - sharp) * 0.5
			var out float64
			switch {
			case l > d+edge:
				out = 1
			case l < d-edge:
				out = 0
			default:
				out = (l - (d - edge)) / (2 * edge)
			}
			i := dst.PixOffset(x, y)
			c := utils.ClampU8(out)
			dst.Pix[i] = c
			dst.Pix[i+1] = c
			dst.Pix[i+2] = c
			dst.Pix[i+3] = utils.ClampU8(a)
		}
	}
	return &core.Image{Pix: dst, Extent: src.Extent, Space: core.ColorSpaceGray}
}

func dotScreen(ctx context.Context, inputs []*core.Image, p *core.ParameterSet) (*core.Image, error) {
	src, err := primary(ctx, inputs)
	if err != nil {
		return nil, err
	}
	cx, cy := centerOf(p, src)
	out := screen(src, cx, cy,
		p.ScalarOr(filters.ParamAngle, 0),
		p.ScalarOr(filters.ParamWidth, 6),
		p.ScalarOr(filters.ParamSharpness, 0.7),
		func(u, v float64) float64 {
			fu := u - math.Floor(u) - 0.5
			fv := v - math.Floor(v) - 0.5
			// Distance from the cell centre, normalised so a mid-gray input
			// produces dots covering half the cell.
			return math.Hypot(fu, fv) * math.Sqrt2
		})
	return out, nil
}

func lineScreen(ctx context.Context, inputs []*core.Image, p *core.ParameterSet) (*core.Image, error) {
	src, err := primary(ctx, inputs)
	if err != nil {
		return nil, err
	}
	cx, cy := centerOf(p, src)
	out := screen(src, cx, cy,
		p.ScalarOr(filters.ParamAngle, 0),
		p.ScalarOr(filters.ParamWidth, 6),
		p.ScalarOr(filters.ParamSharpness, 0.7),
		func(u, _ float64) float64 {
			return math.Abs(u-math.Floor(u)-0.5) * 2
		})
	return out, nil
}

// ── vignette / bloom / gloom ─────────────────────────────────────────────────

func vignette(ctx context.Context, inputs []*core.Image, p *core.ParameterSet) (*core.Image, error) {
	src, err := primary(ctx, inputs)
	if err != nil {
		return nil, err
	}
	radius := p.ScalarOr(filters.ParamRadius, 1)
	intensity := utils.Clamp01(p.ScalarOr(filters.ParamIntensity, 0))
	if intensity == 0 {
		return src, nil
	}

	cx := float64(src.Extent.Min.X) + float64(src.Extent.Dx())/2
	cy := float64(src.Extent.Min.Y) + float64(src.Extent.Dy())/2
	maxD := math.Hypot(float64(src.Extent.Dx())/2, float64(src.Extent.Dy())/2) * radius
	if maxD <= 0 {
		return src, nil
	}

	s := newSampler(src)
	dst := image.NewNRGBA(src.Extent)
	for y := src.Extent.Min.Y; y < src.Extent.Max.Y; y++ {
		for x := src.Extent.Min.X; x < src.Extent.Max.X; x++ {
			r, g, b, a := s.at(x, y)
			d := math.Hypot(float64(x)-cx, float64(y)-cy) / maxD
			fall := 1 - intensity*utils.Clamp01(d*d)
			i := dst.PixOffset(x, y)
			dst.Pix[i] = utils.ClampU8(r * fall)
			dst.Pix[i+1] = utils.ClampU8(g * fall)
			dst.Pix[i+2] = utils.ClampU8(b * fall)
			dst.Pix[i+3] = utils.ClampU8(a)
		}
	}
	return &core.Image{Pix: dst, Extent: src.Extent, Space: src.Space}, nil
}

// glow blurs the source and mixes it back in: screen for bloom, multiply for
// gloom.
func glow(src *core.Image, radius, intensity float64, dark bool) *core.Image {
	g := gift.New(gift.GaussianBlur(float32(radius)))
	blurred := image.NewNRGBA(g.Bounds(src.Pix.Bounds()))
	g.Draw(blurred, src.Pix)

	t := utils.Clamp01(intensity)
	sa := newSampler(src)
	sb := newSampler(&core.Image{Pix: blurred, Extent: blurred.Bounds(), Space: src.Space})
	dst := image.NewNRGBA(src.Extent)
	for y := src.Extent.Min.Y; y < src.Extent.Max.Y; y++ {
		for x := src.Extent.Min.X; x < src.Extent.Max.X; x++ {
			r, gc, b, a := sa.at(x, y)
			br, bg, bb, _ := sb.at(x, y)
			var nr, ng, nb float64
			if dark {
				nr, ng, nb = r*br, gc*bg, b*bb
			} else {
				nr = 1 - (1-r)*(1-br)
				ng = 1 - (1-gc)*(1-bg)
				nb = 1 - (1-b)*(1-bb)
			}
			i := dst.PixOffset(x, y)
			dst.Pix[i] = utils.ClampU8(r + (nr-r)*t)
			dst.Pix[i+1] = utils.ClampU8(gc + (ng-gc)*t)
			dst.Pix[i+2] = utils.ClampU8(b + (nb-b)*t)
			dst.Pix[i+3] = utils.ClampU8(a)
		}
	}
	return &core.Image{Pix: dst, Extent: src.Extent, Space: src.Space}
}

func bloom(ctx context.Context, inputs []*core.Image, p *core.ParameterSet) (*core.Image, error) {
	src, err := primary(ctx, inputs)
	if err != nil {
		return nil, err
	}
	radius := p.ScalarOr(filters.ParamRadius, 10)
	intensity := p.ScalarOr(filters.ParamIntensity, 0.5)
	if radius <= 0 || intensity <= 0 {
		return src, nil
	}
	return glow(src, radius, intensity, false), nil
}

func gloom(ctx context.Context, inputs []*core.Image, p *core.ParameterSet) (*core.Image, error) {
	src, err := primary(ctx, inputs)
	if err != nil {
		return nil, err
	}
	radius := p.ScalarOr(filters.ParamRadius, 10)
	intensity := p.ScalarOr(filters.ParamIntensity, 0.5)
	if radius <= 0 || intensity <= 0 {
		return src, nil
	}
	return glow(src, radius, intensity, true), nil
}
