package raster

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"
)

const (
	// DefaultColorMatchRing is the surrounding-ring radius.
	DefaultColorMatchRing = 8

	colorGainEpsilon = 1e-3

	// DefaultGainMin and DefaultGainMax bound the per-channel color
	// gain.
	DefaultGainMin = 0.6
	DefaultGainMax = 1.6
)

// MeanRGB is a mean color triple in [0,255].
type MeanRGB struct {
	R, G, B float64
}

// GainClamp bounds the per-channel linear gain applied in MatchColor.
type GainClamp struct {
	Min, Max float64
}

// DefaultGainClamp returns the configured default clamp.
func DefaultGainClamp() GainClamp {
	return GainClamp{Min: DefaultGainMin, Max: DefaultGainMax}
}

// DecodeEditedPatch decodes the model's returned bytes (PNG or JPEG) into
// an image for color matching and compositing.
func DecodeEditedPatch(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode edited patch: %w", err)
	}
	return img, nil
}

// RingMean approximates the mean RGB of the ring surrounding bbox by
// taking the mean of the outer bounding rectangle (bbox padded by
// ringRadius and clipped to image bounds), rather than an exact ring
// (outer minus inner). This is a deliberate simplification: for small
// ring radii relative to the bbox, the bias is small.
func RingMean(original image.Image, bbox ImageSpaceBBox, ringRadius int) MeanRGB {
	imgB := original.Bounds()
	left := clampInt(bbox.Left-ringRadius, imgB.Min.X, imgB.Max.X-1)
	top := clampInt(bbox.Top-ringRadius, imgB.Min.Y, imgB.Max.Y-1)
	right := clampInt(bbox.Right()+ringRadius, imgB.Min.X+1, imgB.Max.X)
	bottom := clampInt(bbox.Bottom()+ringRadius, imgB.Min.Y+1, imgB.Max.Y)
	rect := image.Rect(left, top, right, bottom)
	return meanRGB(cropImage(original, rect))
}

func meanRGB(img image.Image) MeanRGB {
	b := img.Bounds()
	n := float64(b.Dx() * b.Dy())
	if n == 0 {
		return MeanRGB{}
	}
	var sr, sg, sb float64
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := img.At(x, y).RGBA()
			sr += float64(r >> 8)
			sg += float64(g >> 8)
			sb += float64(bl >> 8)
		}
	}
	return MeanRGB{R: sr / n, G: sg / n, B: sb / n}
}

// MatchColor computes the per-channel diagonal gain that pulls patch's
// mean RGB toward target (the ring mean), clamps each channel's gain,
// and returns both the gain actually applied and the recolored image.
// The recombination is diagonal-only (no cross-channel terms): the goal
// is to neutralize a model-introduced color cast, not to reauthor color.
func MatchColor(patch image.Image, target MeanRGB, clamp GainClamp) (MeanRGB, image.Image) {
	src := meanRGB(patch)
	gain := MeanRGB{
		R: clampFloat((target.R+colorGainEpsilon)/(src.R+colorGainEpsilon), clamp.Min, clamp.Max),
		G: clampFloat((target.G+colorGainEpsilon)/(src.G+colorGainEpsilon), clamp.Min, clamp.Max),
		B: clampFloat((target.B+colorGainEpsilon)/(src.B+colorGainEpsilon), clamp.Min, clamp.Max),
	}
	return gain, applyGain(patch, gain)
}

func applyGain(img image.Image, gain MeanRGB) *image.NRGBA {
	b := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, a := img.At(x, y).RGBA()
			nr := clampByteFloat(float64(r>>8) * gain.R)
			ng := clampByteFloat(float64(g>>8) * gain.G)
			nb := clampByteFloat(float64(bl>>8) * gain.B)
			dst.SetNRGBA(x-b.Min.X, y-b.Min.Y, color.NRGBA{R: nr, G: ng, B: nb, A: byte(a >> 8)})
		}
	}
	return dst
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampByteFloat(v float64) byte {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return byte(v + 0.5)
}
