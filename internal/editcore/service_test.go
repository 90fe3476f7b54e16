package editcore

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fpang/editcompositor/internal/config"
	"github.com/fpang/editcompositor/internal/model"
	"github.com/fpang/editcompositor/internal/store"
)

type fakeStore struct {
	files map[string][]byte
	saved []string
}

func newFakeStore() *fakeStore { return &fakeStore{files: map[string][]byte{}} }

func (f *fakeStore) ReadByName(ctx context.Context, name string) ([]byte, string, error) {
	data, ok := f.files[name]
	if !ok {
		return nil, "", store.ErrNotFound
	}
	return data, "image/png", nil
}

func (f *fakeStore) SaveTo(ctx context.Context, dest store.Dest, data []byte, mime string) (store.Saved, error) {
	name := "saved.png"
	f.saved = append(f.saved, name)
	return store.Saved{Filename: name, URL: "file://" + name, MIME: mime}, nil
}

type fakeModel struct {
	imageOut []byte
	err      error
}

func (f *fakeModel) GenerateFromPatch(ctx context.Context, prompt string, patchPNG []byte) ([]byte, error) {
	return f.imageOut, f.err
}

func (f *fakeModel) ReviseFromPatch(ctx context.Context, prompt string, patchPNG []byte, history []model.Turn) ([]byte, error) {
	return f.imageOut, f.err
}

func pngBytes(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func solid(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func dataURL(t *testing.T, img image.Image) string {
	t.Helper()
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngBytes(t, img))
}

func testConfig() config.Config {
	return config.Config{
		MaxPatchEdge:      1024,
		DefaultFeather:    2,
		DefaultPadding:    4,
		ColorMatchRing:    8,
		ColorGainClampMin: 0.6,
		ColorGainClampMax: 1.6,
		ModelTimeoutS:     5,
	}
}

func TestEdit_BlackMaskRejected(t *testing.T) {
	fs := newFakeStore()
	fs.files["base.png"] = pngBytes(t, solid(20, 20, color.NRGBA{R: 1, G: 1, B: 1, A: 255}))
	fm := &fakeModel{imageOut: pngBytes(t, solid(20, 20, color.NRGBA{R: 9, G: 9, B: 9, A: 255}))}
	svc := New(fs, fm, testConfig())

	_, _, err := svc.Edit(context.Background(), Request{
		Filename:    "base.png",
		MaskDataURL: dataURL(t, solid(20, 20, color.NRGBA{A: 255})), // all black -> below brightness threshold
		Prompt:      "make it blue",
	})

	var editErr *Error
	require.True(t, errors.As(err, &editErr))
	assert.Equal(t, TagMaskError, editErr.Tag)
	assert.Equal(t, 400, editErr.HTTPStatus)
}

func TestEdit_FullWhiteMaskSucceeds(t *testing.T) {
	fs := newFakeStore()
	fs.files["base.png"] = pngBytes(t, solid(20, 20, color.NRGBA{R: 10, G: 10, B: 10, A: 255}))
	fm := &fakeModel{imageOut: pngBytes(t, solid(20, 20, color.NRGBA{R: 200, G: 200, B: 200, A: 255}))}
	svc := New(fs, fm, testConfig())

	png, resp, err := svc.Edit(context.Background(), Request{
		Filename:    "base.png",
		MaskDataURL: dataURL(t, solid(20, 20, color.NRGBA{R: 255, G: 255, B: 255, A: 255})),
		Prompt:      "brighten",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, png)
	assert.Equal(t, "image/png", resp.MIME)
}

func TestEdit_SinglePixelMask(t *testing.T) {
	fs := newFakeStore()
	fs.files["base.png"] = pngBytes(t, solid(30, 30, color.NRGBA{R: 5, G: 5, B: 5, A: 255}))
	fm := &fakeModel{imageOut: pngBytes(t, solid(5, 5, color.NRGBA{R: 250, G: 0, B: 0, A: 255}))}
	svc := New(fs, fm, testConfig())

	maskImg := solid(30, 30, color.NRGBA{A: 255})
	maskImg.SetNRGBA(15, 15, color.NRGBA{R: 255, G: 255, B: 255, A: 255})

	_, resp, err := svc.Edit(context.Background(), Request{
		Filename:    "base.png",
		MaskDataURL: dataURL(t, maskImg),
		Prompt:      "dot",
	})
	require.NoError(t, err)
	assert.Greater(t, resp.BBox.Width, 0)
	assert.Greater(t, resp.BBox.Height, 0)
}

func TestEdit_PaddedBBoxClampedToImage(t *testing.T) {
	fs := newFakeStore()
	fs.files["base.png"] = pngBytes(t, solid(10, 10, color.NRGBA{R: 5, G: 5, B: 5, A: 255}))
	fm := &fakeModel{imageOut: pngBytes(t, solid(10, 10, color.NRGBA{R: 250, G: 0, B: 0, A: 255}))}
	svc := New(fs, fm, testConfig())

	maskImg := solid(10, 10, color.NRGBA{A: 255})
	maskImg.SetNRGBA(0, 0, color.NRGBA{R: 255, G: 255, B: 255, A: 255})

	_, resp, err := svc.Edit(context.Background(), Request{
		Filename:    "base.png",
		MaskDataURL: dataURL(t, maskImg),
		Prompt:      "corner",
		Padding:     intPtr(50),
	})
	require.NoError(t, err)
	assert.LessOrEqual(t, resp.BBox.Left+resp.BBox.Width, 10)
	assert.LessOrEqual(t, resp.BBox.Top+resp.BBox.Height, 10)
}

func TestEdit_MaskImageSizeMismatchResampled(t *testing.T) {
	fs := newFakeStore()
	fs.files["base.png"] = pngBytes(t, solid(40, 40, color.NRGBA{R: 5, G: 5, B: 5, A: 255}))
	fm := &fakeModel{imageOut: pngBytes(t, solid(40, 40, color.NRGBA{R: 250, G: 0, B: 0, A: 255}))}
	svc := New(fs, fm, testConfig())

	_, resp, err := svc.Edit(context.Background(), Request{
		Filename:    "base.png",
		MaskDataURL: dataURL(t, solid(10, 10, color.NRGBA{R: 255, G: 255, B: 255, A: 255})),
		Prompt:      "resize mask",
	})
	require.NoError(t, err)
	assert.Greater(t, resp.BBox.Width, 0)
}

func TestEdit_ModelAuthFailureMapsTo401(t *testing.T) {
	fs := newFakeStore()
	fs.files["base.png"] = pngBytes(t, solid(20, 20, color.NRGBA{R: 5, G: 5, B: 5, A: 255}))
	fm := &fakeModel{err: model.ErrInvalidCredential}
	svc := New(fs, fm, testConfig())

	_, _, err := svc.Edit(context.Background(), Request{
		Filename:    "base.png",
		MaskDataURL: dataURL(t, solid(20, 20, color.NRGBA{R: 255, G: 255, B: 255, A: 255})),
		Prompt:      "x",
	})

	var editErr *Error
	require.True(t, errors.As(err, &editErr))
	assert.Equal(t, 401, editErr.HTTPStatus)
}

func TestEdit_UnknownFileNotFound(t *testing.T) {
	fs := newFakeStore()
	fm := &fakeModel{}
	svc := New(fs, fm, testConfig())

	_, _, err := svc.Edit(context.Background(), Request{
		Filename:    "missing.png",
		MaskDataURL: dataURL(t, solid(4, 4, color.NRGBA{A: 255})),
		Prompt:      "x",
	})

	var editErr *Error
	require.True(t, errors.As(err, &editErr))
	assert.Equal(t, TagNotFound, editErr.Tag)
}

func intPtr(v int) *int { return &v }
