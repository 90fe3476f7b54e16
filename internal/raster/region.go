package raster

import (
	"fmt"
	"math"
)

// DefaultPadding is the bbox padding applied when the caller omits one
// (the configured default_padding).
const DefaultPadding = 12

// ExtractBBox scans a mask-space EditAlpha for the tight bounding box of
// all non-zero pixels, then pads it and clamps it to the mask bounds.
// Returns raster.ErrEmptyMask if no pixel is non-zero.
func ExtractBBox(a MaskSpaceAlpha, padding int) (MaskSpaceBBox, error) {
	minX, minY, maxX, maxY := a.Width, a.Height, -1, -1

	for y := 0; y < a.Height; y++ {
		row := a.Pix[y*a.Width : y*a.Width+a.Width]
		for x, v := range row {
			if v == 0 {
				continue
			}
			if x < minX {
				minX = x
			}
			if x > maxX {
				maxX = x
			}
			if y < minY {
				minY = y
			}
			if y > maxY {
				maxY = y
			}
		}
	}

	if maxX < 0 {
		return MaskSpaceBBox{}, ErrEmptyMask
	}

	left := clampInt(minX-padding, 0, a.Width-1)
	top := clampInt(minY-padding, 0, a.Height-1)
	right := clampInt(maxX+padding, 0, a.Width-1)
	bottom := clampInt(maxY+padding, 0, a.Height-1)

	return MaskSpaceBBox{
		Left:   left,
		Top:    top,
		Width:  right - left + 1,
		Height: bottom - top + 1,
	}, nil
}

// AlignToImage projects a mask-space EditAlpha and BBox onto image-space.
// When the mask and image share dimensions, this is an identity
// operation (P8): the same buffer is returned, relabeled, and the bbox
// passes through unchanged. Otherwise the alpha is resampled with
// nearest-neighbor "stretch-to-fill" (the mask by construction covers
// the whole canvas, so aspect preservation does not apply) and the bbox
// corners are scaled and rounded, then re-clamped into image bounds.
func AlignToImage(a MaskSpaceAlpha, bbox MaskSpaceBBox, imgW, imgH int) (ImageSpaceAlpha, ImageSpaceBBox, error) {
	if imgW <= 0 || imgH <= 0 {
		return ImageSpaceAlpha{}, ImageSpaceBBox{}, fmt.Errorf("%w: %dx%d", ErrImageMeta, imgW, imgH)
	}

	if a.Width == imgW && a.Height == imgH {
		out := ImageSpaceAlpha{Pix: a.Pix, Width: a.Width, Height: a.Height}
		return out, ImageSpaceBBox(bbox), nil
	}

	sx := float64(imgW) / float64(a.Width)
	sy := float64(imgH) / float64(a.Height)

	resampled := resampleNearest(a, imgW, imgH)

	left := clampInt(int(math.Round(float64(bbox.Left)*sx)), 0, imgW-1)
	top := clampInt(int(math.Round(float64(bbox.Top)*sy)), 0, imgH-1)
	right := clampInt(int(math.Round(float64(bbox.Right())*sx)), 0, imgW)
	bottom := clampInt(int(math.Round(float64(bbox.Bottom())*sy)), 0, imgH)

	width := right - left
	if width < 1 {
		width = 1
	}
	height := bottom - top
	if height < 1 {
		height = 1
	}
	if left+width > imgW {
		left = imgW - width
	}
	if top+height > imgH {
		top = imgH - height
	}

	return resampled, ImageSpaceBBox{Left: left, Top: top, Width: width, Height: height}, nil
}

// resampleNearest stretches a mask-space alpha raster to the given
// image-space dimensions using nearest-neighbor sampling. Stretch-to-fill
// is correct here: the mask covers the full canvas by construction, so
// there is no aspect ratio to preserve.
func resampleNearest(a MaskSpaceAlpha, dstW, dstH int) ImageSpaceAlpha {
	out := make([]byte, dstW*dstH)
	sx := float64(a.Width) / float64(dstW)
	sy := float64(a.Height) / float64(dstH)

	for y := 0; y < dstH; y++ {
		srcY := clampInt(int(float64(y)*sy), 0, a.Height-1)
		for x := 0; x < dstW; x++ {
			srcX := clampInt(int(float64(x)*sx), 0, a.Width-1)
			out[y*dstW+x] = a.Pix[srcY*a.Width+srcX]
		}
	}

	return ImageSpaceAlpha{Pix: out, Width: dstW, Height: dstH}
}
