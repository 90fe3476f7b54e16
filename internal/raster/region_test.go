package raster

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeAlpha(w, h int, set func(x, y int) byte) MaskSpaceAlpha {
	pix := make([]byte, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			pix[y*w+x] = set(x, y)
		}
	}
	return MaskSpaceAlpha{Pix: pix, Width: w, Height: h}
}

func TestExtractBBox_EmptyMask(t *testing.T) {
	a := makeAlpha(10, 10, func(x, y int) byte { return 0 })
	_, err := ExtractBBox(a, DefaultPadding)
	assert.ErrorIs(t, err, ErrEmptyMask)
}

func TestExtractBBox_SinglePixel(t *testing.T) {
	a := makeAlpha(20, 20, func(x, y int) byte {
		if x == 10 && y == 10 {
			return 255
		}
		return 0
	})
	bbox, err := ExtractBBox(a, 3)
	require.NoError(t, err)
	assert.True(t, bbox.Valid(20, 20))
	assert.Equal(t, 7, bbox.Left)
	assert.Equal(t, 7, bbox.Top)
	assert.Equal(t, 13, bbox.Right()-1) // sanity: right covers padded pixel
}

func TestExtractBBox_PaddingClampedToImage(t *testing.T) {
	a := makeAlpha(10, 10, func(x, y int) byte {
		if x == 0 && y == 0 {
			return 255
		}
		return 0
	})
	bbox, err := ExtractBBox(a, 50)
	require.NoError(t, err)
	assert.Equal(t, 0, bbox.Left)
	assert.Equal(t, 0, bbox.Top)
	assert.True(t, bbox.Valid(10, 10))
}

func TestAlignToImage_IdentityWhenSameDims(t *testing.T) {
	a := makeAlpha(10, 10, func(x, y int) byte { return 255 })
	bbox := MaskSpaceBBox{Left: 1, Top: 1, Width: 5, Height: 5}
	imgAlpha, imgBBox, err := AlignToImage(a, bbox, 10, 10)
	require.NoError(t, err)
	assert.Equal(t, a.Pix, []byte(imgAlpha.Pix))
	assert.Equal(t, ImageSpaceBBox(bbox), imgBBox)
}

func TestAlignToImage_ScalesAndClamps(t *testing.T) {
	a := makeAlpha(10, 10, func(x, y int) byte { return 255 })
	bbox := MaskSpaceBBox{Left: 0, Top: 0, Width: 10, Height: 10}
	imgAlpha, imgBBox, err := AlignToImage(a, bbox, 100, 50)
	require.NoError(t, err)
	assert.Equal(t, 100, imgAlpha.Width)
	assert.Equal(t, 50, imgAlpha.Height)
	assert.True(t, imgBBox.Valid(100, 50))
}

func TestAlignToImage_InvalidImageDims(t *testing.T) {
	a := makeAlpha(10, 10, func(x, y int) byte { return 255 })
	_, _, err := AlignToImage(a, MaskSpaceBBox{Width: 1, Height: 1}, 0, 10)
	assert.ErrorIs(t, err, ErrImageMeta)
}
