package decode

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // register GIF
	_ "image/jpeg" // register JPEG
	_ "image/png"  // register PNG

	"github.com/gogpu/gputypes"
	xdraw "golang.org/x/image/draw"

	_ "golang.org/x/image/bmp"  // register BMP
	_ "golang.org/x/image/tiff" // register TIFF
	_ "golang.org/x/image/webp" // register WebP

	"github.com/gogpu/resman/render"
)

// Image errors.
var (
	// ErrEmptyData is returned when there are no bytes to decode.
	ErrEmptyData = errors.New("decode: empty data")

	// ErrEmptyImage is returned when an image decodes to zero pixels.
	ErrEmptyImage = errors.New("decode: image has no pixels")
)

// DecodeImage decodes an image and converts it to non-premultiplied RGBA8.
func DecodeImage(data []byte) (*render.Image, error) {
	if len(data) == 0 {
		return nil, ErrEmptyData
	}

	src, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode: image: %w", err)
	}

	b := src.Bounds()
	if b.Empty() {
		return nil, fmt.Errorf("%w (%s)", ErrEmptyImage, format)
	}

	rgba, ok := src.(*image.NRGBA)
	if !ok || rgba.Stride != b.Dx()*4 || b.Min != (image.Point{}) {
		rgba = image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		xdraw.Draw(rgba, rgba.Bounds(), src, b.Min, xdraw.Src)
	}

	return &render.Image{
		Width:  b.Dx(),
		Height: b.Dy(),
		Format: gputypes.TextureFormatRGBA8Unorm,
		Pix:    rgba.Pix,
	}, nil
}
