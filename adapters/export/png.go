// Package export converts RenderResult buffers into consumable forms.  The
// engine core itself never encodes file formats; this adapter sits outside it.
package export

import (
	"fmt"
	"image"
	"image/png"
	"os"

	"github.com/dkovalov/filter-graph/core"
	apperrors "github.com/dkovalov/filter-graph/errors"
	"github.com/dkovalov/filter-graph/utils"
)

// ToImage wraps the result's pixel buffer as an *image.RGBA without copying.
func ToImage(res *core.RenderResult) (*image.RGBA, error) {
	if res == nil || len(res.Pix) == 0 {
		return nil, apperrors.New(apperrors.CategoryInput, "export", fmt.Errorf("empty render result"))
	}
	if res.Format != core.FormatRGBA8 {
		return nil, apperrors.New(apperrors.CategoryInput, "export",
			fmt.Errorf("unsupported pixel format %q", res.Format))
	}
	return &image.RGBA{
		Pix:    res.Pix,
		Stride: res.Stride,
		Rect:   image.Rect(0, 0, res.Width, res.Height),
	}, nil
}

// PNG encodes the result as PNG bytes.
func PNG(res *core.RenderResult) ([]byte, error) {
	img, err := ToImage(res)
	if err != nil {
		return nil, err
	}
	buf := utils.AcquireBuffer()
	defer utils.ReleaseBuffer(buf)
	if err := png.Encode(buf, img); err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryInput, "export.png", err)
	}
	return utils.CloneBytes(buf.Bytes()), nil
}

// WritePNG encodes the result and writes it to path.
func WritePNG(res *core.RenderResult, path string) error {
	data, err := PNG(res)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
