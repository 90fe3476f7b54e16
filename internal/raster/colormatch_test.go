package raster

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMeanRGB_SolidColor(t *testing.T) {
	img := solidNRGBA(4, 4, color.NRGBA{R: 20, G: 40, B: 60, A: 255})
	m := meanRGB(img)
	assert.InDelta(t, 20, m.R, 0.01)
	assert.InDelta(t, 40, m.G, 0.01)
	assert.InDelta(t, 60, m.B, 0.01)
}

func TestRingMean_ClipsToImageBounds(t *testing.T) {
	img := solidNRGBA(10, 10, color.NRGBA{R: 5, G: 5, B: 5, A: 255})
	bbox := ImageSpaceBBox{Left: 0, Top: 0, Width: 3, Height: 3}
	m := RingMean(img, bbox, DefaultColorMatchRing)
	assert.InDelta(t, 5, m.R, 0.01)
}

func TestMatchColor_GainClampedAndApplied(t *testing.T) {
	// Patch is dim, target (ring) is bright — gain should push up but
	// stay within the clamp.
	patch := solidNRGBA(4, 4, color.NRGBA{R: 10, G: 10, B: 10, A: 255})
	target := MeanRGB{R: 250, G: 250, B: 250}
	gain, out := MatchColor(patch, target, DefaultGainClamp())

	assert.LessOrEqual(t, gain.R, DefaultGainMax)
	assert.GreaterOrEqual(t, gain.R, DefaultGainMin)

	r, _, _, _ := out.At(0, 0).RGBA()
	assert.Greater(t, r>>8, uint32(10))
}

func TestMatchColor_NoOpGainNearIdentity(t *testing.T) {
	patch := solidNRGBA(4, 4, color.NRGBA{R: 100, G: 100, B: 100, A: 255})
	target := MeanRGB{R: 100, G: 100, B: 100}
	gain, _ := MatchColor(patch, target, DefaultGainClamp())
	assert.InDelta(t, 1.0, gain.R, 0.02)
}

func TestDecodeEditedPatch_RejectsGarbage(t *testing.T) {
	_, err := DecodeEditedPatch([]byte("garbage"))
	require.Error(t, err)
}
