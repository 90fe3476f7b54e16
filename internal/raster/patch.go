package raster

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"math"

	xdraw "golang.org/x/image/draw"
)

// DefaultMaxPatchEdge is the default longest edge sent to the model.
const DefaultMaxPatchEdge = 1024

// PreparePatch crops the original image at bbox, reinterprets it as sRGB
// (a no-op color profile strip — embedded profiles are never consulted),
// downsizes uniformly ("contain": no distortion, never enlarges) if its
// longest edge exceeds maxEdge, and PNG-encodes the result for the
// external model.
func PreparePatch(original image.Image, bbox ImageSpaceBBox, maxEdge int) ([]byte, error) {
	if maxEdge <= 0 {
		maxEdge = DefaultMaxPatchEdge
	}

	rect := image.Rect(bbox.Left, bbox.Top, bbox.Right(), bbox.Bottom())
	cropped := cropImage(original, rect)

	longest := cropped.Bounds().Dx()
	if cropped.Bounds().Dy() > longest {
		longest = cropped.Bounds().Dy()
	}

	var out image.Image = cropped
	if longest > maxEdge {
		out = containScale(cropped, maxEdge)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, out); err != nil {
		return nil, fmt.Errorf("encode patch png: %w", err)
	}
	return buf.Bytes(), nil
}

// cropImage copies the given rectangle of src into a freshly allocated
// NRGBA image anchored at (0,0), using draw.Src so alpha (if any) is
// copied verbatim rather than composited.
func cropImage(src image.Image, rect image.Rectangle) *image.NRGBA {
	dst := image.NewNRGBA(image.Rect(0, 0, rect.Dx(), rect.Dy()))
	draw.Draw(dst, dst.Bounds(), src, rect.Min, draw.Src)
	return dst
}

// containScale scales src down to fit within maxEdge on its longest
// side, preserving aspect ratio exactly. Never called to enlarge.
func containScale(src image.Image, maxEdge int) image.Image {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	scale := float64(maxEdge) / math.Max(float64(w), float64(h))
	outW := int(math.Round(float64(w) * scale))
	outH := int(math.Round(float64(h) * scale))
	if outW < 1 {
		outW = 1
	}
	if outH < 1 {
		outH = 1
	}

	dst := image.NewNRGBA(image.Rect(0, 0, outW, outH))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, b, xdraw.Over, nil)
	return dst
}

// stretchResize resizes src to exactly outW x outH without preserving
// aspect ratio.
func stretchResize(src image.Image, outW, outH int) *image.NRGBA {
	dst := image.NewNRGBA(image.Rect(0, 0, outW, outH))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Over, nil)
	return dst
}
