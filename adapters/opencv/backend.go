//go:build cgo

// Package opencv is a gocv-powered RenderBackend implementing a subset of
// the built-in filter table.  Requires OpenCV at build time.
package opencv

import (
	"context"
	"fmt"
	"image"
	"image/draw"

	"gocv.io/x/gocv"

	"github.com/dkovalov/filter-graph/core"
	apperrors "github.com/dkovalov/filter-graph/errors"
	"github.com/dkovalov/filter-graph/filters"
	"github.com/dkovalov/filter-graph/utils"
)

// Register wires the OpenCV implementations into reg.
func Register(reg *core.Registry) error {
	impls := map[string]core.FilterImpl{
		"gaussianBlur":     core.FilterFunc(gaussianBlur),
		"boxBlur":          core.FilterFunc(boxBlur),
		"pixellate":        core.FilterFunc(pixellate),
		"unsharpMask":      core.FilterFunc(unsharpMask),
		"crop":             core.FilterFunc(crop),
		"straightenFilter": core.FilterFunc(straighten),
	}
	for name, impl := range impls {
		spec, ok := filters.SpecByName(name)
		if !ok {
			return apperrors.New(apperrors.CategoryRegistry, name,
				fmt.Errorf("no built-in spec for opencv filter"))
		}
		if err := reg.Register(spec, impl); err != nil {
			return err
		}
	}
	return nil
}

// toMat copies the primary input into an RGBA Mat.  The caller must Close it.
func toMat(ctx context.Context, inputs []*core.Image) (gocv.Mat, *core.Image, error) {
	if err := ctx.Err(); err != nil {
		return gocv.Mat{}, nil, err
	}
	if len(inputs) == 0 || inputs[0] == nil || inputs[0].Pix == nil {
		return gocv.Mat{}, nil, apperrors.ErrNilImage
	}
	src := inputs[0]
	rgba := image.NewRGBA(src.Pix.Bounds())
	draw.Draw(rgba, rgba.Bounds(), src.Pix, src.Pix.Bounds().Min, draw.Src)
	mat, err := gocv.ImageToMatRGBA(rgba)
	if err != nil {
		return gocv.Mat{}, nil, fmt.Errorf("opencv bridge import: %w", err)
	}
	return mat, src, nil
}

// fromMat converts a result Mat back into an engine image anchored at origin.
func fromMat(mat gocv.Mat, origin image.Point, space core.ColorSpace) (*core.Image, error) {
	img, err := mat.ToImage()
	if err != nil {
		return nil, fmt.Errorf("opencv bridge export: %w", err)
	}
	rect := img.Bounds().Sub(img.Bounds().Min).Add(origin)
	dst := image.NewNRGBA(rect)
	draw.Draw(dst, rect, img, img.Bounds().Min, draw.Src)
	return &core.Image{Pix: dst, Extent: rect, Space: space}, nil
}

func gaussianBlur(ctx context.Context, inputs []*core.Image, p *core.ParameterSet) (*core.Image, error) {
	mat, src, err := toMat(ctx, inputs)
	if err != nil {
		return nil, err
	}
	defer mat.Close()

	sigma := p.ScalarOr(filters.ParamRadius, 10)
	if sigma <= 0 {
		return src, nil
	}
	dst := gocv.NewMat()
	defer dst.Close()
	k := utils.OddKernel(sigma)
	gocv.GaussianBlur(mat, &dst, image.Pt(k, k), sigma, sigma, gocv.BorderDefault)
	return fromMat(dst, src.Extent.Min, src.Space)
}

func boxBlur(ctx context.Context, inputs []*core.Image, p *core.ParameterSet) (*core.Image, error) {
	mat, src, err := toMat(ctx, inputs)
	if err != nil {
		return nil, err
	}
	defer mat.Close()

	r := p.ScalarOr(filters.ParamRadius, 10)
	if r <= 0 {
		return src, nil
	}
	dst := gocv.NewMat()
	defer dst.Close()
	k := utils.OddKernel(r)
	gocv.Blur(mat, &dst, image.Pt(k, k))
	return fromMat(dst, src.Extent.Min, src.Space)
}

func pixellate(ctx context.Context, inputs []*core.Image, p *core.ParameterSet) (*core.Image, error) {
	mat, src, err := toMat(ctx, inputs)
	if err != nil {
		return nil, err
	}
	defer mat.Close()

	scale := int(p.ScalarOr(filters.ParamScale, 8))
	if scale <= 1 {
		return src, nil
	}
	w, h := mat.Cols(), mat.Rows()
	smallW, smallH := max(1, w/scale), max(1, h/scale)

	small := gocv.NewMat()
	defer small.Close()
	gocv.Resize(mat, &small, image.Pt(smallW, smallH), 0, 0, gocv.InterpolationArea)

	dst := gocv.NewMat()
	defer dst.Close()
	gocv.Resize(small, &dst, image.Pt(w, h), 0, 0, gocv.InterpolationNearestNeighbor)
	return fromMat(dst, src.Extent.Min, src.Space)
}

func unsharpMask(ctx context.Context, inputs []*core.Image, p *core.ParameterSet) (*core.Image, error) {
	mat, src, err := toMat(ctx, inputs)
	if err != nil {
		return nil, err
	}
	defer mat.Close()

	radius := p.ScalarOr(filters.ParamRadius, 2.5)
	intensity := p.ScalarOr(filters.ParamIntensity, 0.5)
	if radius <= 0 || intensity <= 0 {
		return src, nil
	}

	blurred := gocv.NewMat()
	defer blurred.Close()
	k := utils.OddKernel(radius)
	gocv.GaussianBlur(mat, &blurred, image.Pt(k, k), radius, radius, gocv.BorderDefault)

	dst := gocv.NewMat()
	defer dst.Close()
	gocv.AddWeighted(mat, 1+intensity, blurred, -intensity, 0, &dst)
	return fromMat(dst, src.Extent.Min, src.Space)
}

func crop(ctx context.Context, inputs []*core.Image, p *core.ParameterSet) (*core.Image, error) {
	mat, src, err := toMat(ctx, inputs)
	if err != nil {
		return nil, err
	}
	defer mat.Close()

	rect := p.VectorOr("rectangle", nil)
	if len(rect) != 4 {
		return nil, fmt.Errorf("crop rectangle must be [x y width height]")
	}
	r := image.Rect(int(rect[0]), int(rect[1]), int(rect[0]+rect[2]), int(rect[1]+rect[3]))
	r = r.Intersect(src.Extent)
	if r.Empty() {
		return nil, fmt.Errorf("crop rectangle %v does not intersect extent %v", rect, src.Extent)
	}
	local := r.Sub(src.Extent.Min)

	region := mat.Region(local)
	defer region.Close()
	return fromMat(region, r.Min, src.Space)
}

func straighten(ctx context.Context, inputs []*core.Image, p *core.ParameterSet) (*core.Image, error) {
	mat, src, err := toMat(ctx, inputs)
	if err != nil {
		return nil, err
	}
	defer mat.Close()

	deg := utils.RadToDeg(p.ScalarOr(filters.ParamAngle, 0))
	if deg == 0 {
		return src, nil
	}
	w, h := mat.Cols(), mat.Rows()
	rot := gocv.GetRotationMatrix2D(image.Pt(w/2, h/2), deg, 1)
	defer rot.Close()

	dst := gocv.NewMat()
	defer dst.Close()
	gocv.WarpAffine(mat, &dst, rot, image.Pt(w, h))
	return fromMat(dst, src.Extent.Min, src.Space)
}
