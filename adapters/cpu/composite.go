package cpu

import (
	"context"
	"image"
	"image/draw"

	"github.com/dkovalov/filter-graph/core"
	apperrors "github.com/dkovalov/filter-graph/errors"
	"github.com/dkovalov/filter-graph/utils"
)

// compositeInputs pulls the primary image plus n auxiliary images.
func compositeInputs(ctx context.Context, inputs []*core.Image, n int) ([]*core.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(inputs) != n+1 {
		return nil, apperrors.ErrNilImage
	}
	for _, in := range inputs {
		if in == nil || in.Pix == nil {
			return nil, apperrors.ErrNilImage
		}
	}
	return inputs, nil
}

// sourceOver composites the primary input over the auxiliary background on a
// canvas covering both extents.
func sourceOver(ctx context.Context, inputs []*core.Image, _ *core.ParameterSet) (*core.Image, error) {
	ins, err := compositeInputs(ctx, inputs, 1)
	if err != nil {
		return nil, err
	}
	fg, bg := ins[0], ins[1]

	u := utils.UnionExtents(fg.Extent, bg.Extent)
	dst := image.NewNRGBA(u)
	draw.Draw(dst, bg.Extent, bg.Pix, bg.Extent.Min, draw.Src)
	draw.Draw(dst, fg.Extent, fg.Pix, fg.Extent.Min, draw.Over)
	return &core.Image{Pix: dst, Extent: u, Space: fg.Space}, nil
}

// sampler reads normalised NRGBA components, returning transparent black
// outside the image's extent (conceptually unbounded planes).
type sampler struct {
	pix    *image.NRGBA
	extent image.Rectangle
}

func newSampler(img *core.Image) sampler {
	return sampler{pix: utils.ToNRGBA(img.Pix), extent: img.Extent}
}

func (s sampler) at(x, y int) (r, g, b, a float64) {
	pt := image.Pt(x, y)
	if !pt.In(s.extent) || !pt.In(s.pix.Bounds()) {
		return 0, 0, 0, 0
	}
	i := s.pix.PixOffset(x, y)
	p := s.pix.Pix[i : i+4 : i+4]
	return float64(p[0]) / 255, float64(p[1]) / 255, float64(p[2]) / 255, float64(p[3]) / 255
}

// blendPixels evaluates fn for every pixel in the union of the two extents.
func blendPixels(a, b *core.Image, fn func(ar, ag, ab, aa, br, bg, bb, ba float64) (r, g, bl, al float64)) *core.Image {
	u := utils.UnionExtents(a.Extent, b.Extent)
	sa, sb := newSampler(a), newSampler(b)
	dst := image.NewNRGBA(u)
	for y := u.Min.Y; y < u.Max.Y; y++ {
		for x := u.Min.X; x < u.Max.X; x++ {
			ar, ag, ab2, aa := sa.at(x, y)
			br, bg2, bb, ba := sb.at(x, y)
			r, g, bl, al := fn(ar, ag, ab2, aa, br, bg2, bb, ba)
			i := dst.PixOffset(x, y)
			dst.Pix[i] = utils.ClampU8(r)
			dst.Pix[i+1] = utils.ClampU8(g)
			dst.Pix[i+2] = utils.ClampU8(bl)
			dst.Pix[i+3] = utils.ClampU8(al)
		}
	}
	return &core.Image{Pix: dst, Extent: u, Space: a.Space}
}

func multiplyCompositing(ctx context.Context, inputs []*core.Image, _ *core.ParameterSet) (*core.Image, error) {
	ins, err := compositeInputs(ctx, inputs, 1)
	if err != nil {
		return nil, err
	}
	return blendPixels(ins[0], ins[1],
		func(ar, ag, ab, aa, br, bg, bb, ba float64) (float64, float64, float64, float64) {
			return ar * br, ag * bg, ab * bb, aa * ba
		}), nil
}

func additionCompositing(ctx context.Context, inputs []*core.Image, _ *core.ParameterSet) (*core.Image, error) {
	ins, err := compositeInputs(ctx, inputs, 1)
	if err != nil {
		return nil, err
	}
	return blendPixels(ins[0], ins[1],
		func(ar, ag, ab, aa, br, bg, bb, ba float64) (float64, float64, float64, float64) {
			return ar + br, ag + bg, ab + bb, aa + ba
		}), nil
}

// blendWithMask mixes the primary input with the auxiliary background using
// the second auxiliary image's luminance as the blend weight.
func blendWithMask(ctx context.Context, inputs []*core.Image, _ *core.ParameterSet) (*core.Image, error) {
	ins, err := compositeInputs(ctx, inputs, 2)
	if err != nil {
		return nil, err
	}
	fg, bg, mask := ins[0], ins[1], ins[2]

	u := utils.UnionExtents(fg.Extent, bg.Extent)
	sf, sb, sm := newSampler(fg), newSampler(bg), newSampler(mask)
	dst := image.NewNRGBA(u)
	for y := u.Min.Y; y < u.Max.Y; y++ {
		for x := u.Min.X; x < u.Max.X; x++ {
			mr, mg, mb, _ := sm.at(x, y)
			t := utils.Luminance(mr, mg, mb)
			fr, fgc, fb, fa := sf.at(x, y)
			br, bgc, bb, ba := sb.at(x, y)
			i := dst.PixOffset(x, y)
			dst.Pix[i] = utils.ClampU8(br + (fr-br)*t)
			dst.Pix[i+1] = utils.ClampU8(bgc + (fgc-bgc)*t)
			dst.Pix[i+2] = utils.ClampU8(bb + (fb-bb)*t)
			dst.Pix[i+3] = utils.ClampU8(ba + (fa-ba)*t)
		}
	}
	return &core.Image{Pix: dst, Extent: u, Space: fg.Space}, nil
}
