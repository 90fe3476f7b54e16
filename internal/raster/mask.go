package raster

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"

	"github.com/disintegration/gift"
)

// brightThreshold is the luma cutoff above which a mask pixel is
// considered "painted" under the bright = edit convention.
const brightThreshold = 200

// MaskDecodeOptions controls optional post-processing of the decoded
// EditAlpha.
type MaskDecodeOptions struct {
	// SoftDilate applies a 1px Gaussian blur followed by a binarize-at-128
	// pass, compensating for anti-aliased mask edges. Off by default
	// (the safer default).
	SoftDilate bool
}

// DecodeMask converts arbitrary mask bytes into a canonical EditAlpha
// raster in mask-space. It interprets two conventions:
//
//   - If the mask carries an alpha channel and inverting that alpha
//     yields any non-zero pixel, the edit region is "transparent = edit":
//     output[i] = 255 - input_alpha[i].
//   - Otherwise it falls back to "bright = edit": convert to luminance
//     and threshold at 200.
func DecodeMask(data []byte, opts MaskDecodeOptions) (MaskSpaceAlpha, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return MaskSpaceAlpha{}, fmt.Errorf("%w: %v", ErrMaskDecode, err)
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= 0 || h <= 0 {
		return MaskSpaceAlpha{}, fmt.Errorf("%w: %dx%d", ErrMaskMeta, w, h)
	}

	pix := decodeEditAlphaPixels(img, bounds, w, h)

	alpha := MaskSpaceAlpha{Pix: pix, Width: w, Height: h}
	if opts.SoftDilate {
		alpha = softDilateMask(alpha)
	}
	return alpha, nil
}

// decodeEditAlphaPixels implements the transparent-edit / bright-edit
// fallback.
func decodeEditAlphaPixels(img image.Image, bounds image.Rectangle, w, h int) []byte {
	if hasAlphaChannel(img) {
		inverted := make([]byte, w*h)
		var anyNonZero bool
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				_, _, _, a := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
				a8 := byte(a >> 8)
				v := 255 - a8
				inverted[y*w+x] = v
				if v != 0 {
					anyNonZero = true
				}
			}
		}
		if anyNonZero {
			return inverted
		}
	}

	// Fallback: bright = edit.
	pix := make([]byte, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, b, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			if luma16(r, g, b) > brightThreshold {
				pix[y*w+x] = 255
			}
		}
	}
	return pix
}

// hasAlphaChannel reports whether the decoded image's native
// representation carries a usable alpha channel.
func hasAlphaChannel(img image.Image) bool {
	switch img.(type) {
	case *image.NRGBA, *image.RGBA, *image.NRGBA64, *image.RGBA64:
		return true
	default:
		return false
	}
}

// luma16 computes ITU-R BT.601 luma from 16-bit RGBA channel values,
// returning an 8-bit result.
func luma16(r, g, b uint32) int {
	r8, g8, b8 := r>>8, g>>8, b>>8
	return int((299*r8 + 587*g8 + 114*b8) / 1000)
}

// softDilateMask blurs the mask edge by 1px and rebinarizes at the
// midpoint, compensating for anti-aliasing on the painted region's
// boundary.
func softDilateMask(a MaskSpaceAlpha) MaskSpaceAlpha {
	src := image.NewGray(image.Rect(0, 0, a.Width, a.Height))
	copy(src.Pix, a.Pix)

	g := gift.New(gift.GaussianBlur(1))
	dst := image.NewGray(g.Bounds(src.Bounds()))
	g.Draw(dst, src)

	out := make([]byte, a.Width*a.Height)
	for i, v := range dst.Pix[:a.Width*a.Height] {
		if v >= 128 {
			out[i] = 255
		}
	}
	return MaskSpaceAlpha{Pix: out, Width: a.Width, Height: a.Height}
}
