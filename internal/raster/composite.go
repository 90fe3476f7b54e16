package raster

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"

	"github.com/disintegration/gift"
)

const (
	// DefaultFeather is applied when the caller omits one.
	DefaultFeather = 2
	// MaxFeather bounds the Gaussian sigma accepted for edge feathering.
	MaxFeather = 32
)

// CompositeResult is the output of Composite: the final encoded image
// plus the bbox actually touched, useful for logging/metrics.
type CompositeResult struct {
	PNG  []byte
	BBox ImageSpaceBBox
}

// Composite performs the strict feathered alpha composite:
//
//  1. Extract the alpha crop of alpha at bbox.
//  2. Gaussian-blur that crop by feather sigma (clamped [0, MaxFeather]),
//     normalizing the blur library's output back to a single channel.
//  3. Color-matched patch is stretch-resized to bbox's exact dimensions.
//  4. The feathered alpha is joined onto the resized patch as its alpha
//     channel.
//  5. That RGBA patch is alpha-composited (source-over) onto a copy of
//     original at (bbox.Left, bbox.Top).
//
// Pixels outside the padded bbox are never touched, and within the bbox
// any pixel whose feathered alpha is 0 is copied bit-exact from
// original (the source-over blend is the identity when alpha is 0).
func Composite(original image.Image, alpha ImageSpaceAlpha, bbox ImageSpaceBBox, patch image.Image, feather int) (CompositeResult, error) {
	if feather < 0 {
		feather = 0
	}
	if feather > MaxFeather {
		feather = MaxFeather
	}

	if alpha.Width*alpha.Height != len(alpha.Pix) {
		return CompositeResult{}, fmt.Errorf("%w: %dx%d vs %d bytes", ErrAlphaSizeMismatch, alpha.Width, alpha.Height, len(alpha.Pix))
	}

	alphaCrop := cropAlpha(alpha, bbox)

	featheredCrop, err := featherAlpha(alphaCrop, bbox.Width, bbox.Height, feather)
	if err != nil {
		return CompositeResult{}, err
	}

	resizedPatch := stretchResize(patch, bbox.Width, bbox.Height)

	rgbaPatch := joinAlpha(resizedPatch, featheredCrop)

	out := image.NewNRGBA(original.Bounds())
	draw.Draw(out, out.Bounds(), original, original.Bounds().Min, draw.Src)

	dstRect := image.Rect(bbox.Left, bbox.Top, bbox.Right(), bbox.Bottom())
	draw.Draw(out, dstRect, rgbaPatch, image.Point{}, draw.Over)

	var buf bytes.Buffer
	if err := png.Encode(&buf, out); err != nil {
		return CompositeResult{}, fmt.Errorf("encode composite png: %w", err)
	}

	return CompositeResult{PNG: buf.Bytes(), BBox: bbox}, nil
}

// cropAlpha extracts the bbox sub-raster of a full-resolution image-space
// alpha mask as a single-channel byte slice, row-major, width*height long.
func cropAlpha(alpha ImageSpaceAlpha, bbox ImageSpaceBBox) []byte {
	out := make([]byte, bbox.Width*bbox.Height)
	for y := 0; y < bbox.Height; y++ {
		for x := 0; x < bbox.Width; x++ {
			out[y*bbox.Width+x] = alpha.At(bbox.Left+x, bbox.Top+y)
		}
	}
	return out
}

// featherAlpha Gaussian-blurs an alpha crop by sigma into a fresh
// image.Gray and reads it back through the image.Image interface, one
// byte per pixel. If the blur filter reports output bounds other than
// w x h, it returns ErrAlphaCropSizeMismatch instead of misaligning the
// crop.
func featherAlpha(crop []byte, w, h, sigma int) ([]byte, error) {
	if sigma == 0 {
		return crop, nil
	}

	src := image.NewGray(image.Rect(0, 0, w, h))
	copy(src.Pix, crop)

	g := gift.New(gift.GaussianBlur(float32(sigma)))
	bounds := g.Bounds(src.Bounds())
	if bounds.Dx() != w || bounds.Dy() != h {
		return nil, fmt.Errorf("%w: blur bounds %dx%d, want %dx%d", ErrAlphaCropSizeMismatch, bounds.Dx(), bounds.Dy(), w, h)
	}
	dst := image.NewGray(bounds)
	g.Draw(dst, src)

	out := make([]byte, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			gr, _, _, _ := dst.At(x, y).RGBA()
			out[y*w+x] = byte(gr >> 8)
		}
	}
	return out, nil
}

// joinAlpha attaches a single-channel alpha crop (row-major, matching
// rgb's bounds) to rgb as its alpha channel, producing a new NRGBA image
// ready for source-over blending.
func joinAlpha(rgb image.Image, alpha []byte) *image.NRGBA {
	b := rgb.Bounds()
	w, h := b.Dx(), b.Dy()
	out := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, bl, _ := rgb.At(b.Min.X+x, b.Min.Y+y).RGBA()
			out.SetNRGBA(x, y, color.NRGBA{
				R: byte(r >> 8),
				G: byte(g >> 8),
				B: byte(bl >> 8),
				A: alpha[y*w+x],
			})
		}
	}
	return out
}
