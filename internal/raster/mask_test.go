package raster

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func solidGray(w, h int, v uint8) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = v
	}
	return img
}

func TestDecodeMask_BrightEditFallback(t *testing.T) {
	img := solidGray(4, 4, 255)
	alpha, err := DecodeMask(encodePNG(t, img), MaskDecodeOptions{})
	require.NoError(t, err)
	assert.Equal(t, 4, alpha.Width)
	assert.Equal(t, 4, alpha.Height)
	for _, v := range alpha.Pix {
		assert.Equal(t, byte(255), v)
	}
}

func TestDecodeMask_BlackMaskSelectsNothing(t *testing.T) {
	img := solidGray(4, 4, 0)
	alpha, err := DecodeMask(encodePNG(t, img), MaskDecodeOptions{})
	require.NoError(t, err)
	for _, v := range alpha.Pix {
		assert.Equal(t, byte(0), v)
	}
}

func TestDecodeMask_TransparentEditConvention(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	// Fully opaque everywhere except one fully transparent pixel.
	for y := 0; y < 2; y++ {
		for x := 0; x < 2; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: 10, G: 10, B: 10, A: 255})
		}
	}
	img.SetNRGBA(1, 1, color.NRGBA{R: 0, G: 0, B: 0, A: 0})

	alpha, err := DecodeMask(encodePNG(t, img), MaskDecodeOptions{})
	require.NoError(t, err)
	assert.Equal(t, byte(0), alpha.Pix[0*2+0])
	assert.Equal(t, byte(255), alpha.Pix[1*2+1])
}

func TestDecodeMask_InvalidBytes(t *testing.T) {
	_, err := DecodeMask([]byte("not an image"), MaskDecodeOptions{})
	assert.ErrorIs(t, err, ErrMaskDecode)
}

func TestDecodeMask_SoftDilateBinarizes(t *testing.T) {
	img := solidGray(8, 8, 255)
	alpha, err := DecodeMask(encodePNG(t, img), MaskDecodeOptions{SoftDilate: true})
	require.NoError(t, err)
	for _, v := range alpha.Pix {
		assert.Condition(t, func() bool { return v == 0 || v == 255 })
	}
}
