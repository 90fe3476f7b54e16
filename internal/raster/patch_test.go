package raster

import (
	"bytes"
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solidNRGBA(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func TestPreparePatch_NoResizeWhenUnderMaxEdge(t *testing.T) {
	src := solidNRGBA(50, 50, color.NRGBA{R: 100, G: 100, B: 100, A: 255})
	data, err := PreparePatch(src, ImageSpaceBBox{Left: 0, Top: 0, Width: 20, Height: 20}, 1024)
	require.NoError(t, err)

	img, _, err := image.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 20, img.Bounds().Dx())
	assert.Equal(t, 20, img.Bounds().Dy())
}

func TestPreparePatch_ContainDownscalesPreservingAspect(t *testing.T) {
	src := solidNRGBA(200, 100, color.NRGBA{R: 50, G: 50, B: 50, A: 255})
	data, err := PreparePatch(src, ImageSpaceBBox{Left: 0, Top: 0, Width: 200, Height: 100}, 50)
	require.NoError(t, err)

	img, _, err := image.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.LessOrEqual(t, img.Bounds().Dx(), 50)
	assert.LessOrEqual(t, img.Bounds().Dy(), 50)
	// Aspect preserved: 2:1 source stays 2:1.
	assert.Equal(t, img.Bounds().Dx(), img.Bounds().Dy()*2)
}

func TestCropImage_CopiesExactRegion(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	src.SetNRGBA(2, 2, color.NRGBA{R: 9, G: 8, B: 7, A: 255})
	cropped := cropImage(src, image.Rect(2, 2, 4, 4))
	r, g, b, a := cropped.At(0, 0).RGBA()
	assert.Equal(t, uint32(9*257), r)
	assert.Equal(t, uint32(8*257), g)
	assert.Equal(t, uint32(7*257), b)
	assert.Equal(t, uint32(255*257), a)
}
