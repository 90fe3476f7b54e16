package editcore

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"time"

	_ "golang.org/x/image/webp"

	"github.com/rs/zerolog/log"

	"github.com/fpang/editcompositor/internal/config"
	"github.com/fpang/editcompositor/internal/model"
	"github.com/fpang/editcompositor/internal/raster"
	"github.com/fpang/editcompositor/internal/store"
)

// ModelAdapter is the external model collaborator contract
// generate_from_patch), satisfied by *model.GeminiClient.
type ModelAdapter interface {
	GenerateFromPatch(ctx context.Context, prompt string, patchPNG []byte) ([]byte, error)
	ReviseFromPatch(ctx context.Context, prompt string, patchPNG []byte, history []model.Turn) ([]byte, error)
}

// Service orchestrates the six raster stages against a Store and a
// ModelAdapter. It holds no per-request state: every field is
// read-only after construction, so a single Service is safe to share
// across concurrent requests.
type Service struct {
	store  store.Store
	model  ModelAdapter
	config config.Config
}

// New builds a Service.
func New(s store.Store, m ModelAdapter, cfg config.Config) *Service {
	return &Service{store: s, model: m, config: cfg}
}

// Edit runs the full mask-guided edit pipeline for req and returns the
// composite result. Response.ImageBase64 always carries the composite
// PNG; if req.Save is true the result is also persisted via the Store
// under edits/ and Response.File carries its access URL.
func (s *Service) Edit(ctx context.Context, req Request) ([]byte, Response, error) {
	if req.Filename == "" {
		return nil, Response{}, validationErr(StageParse, errors.New("filename is required"))
	}
	if req.MaskDataURL == "" {
		return nil, Response{}, validationErr(StageParse, errors.New("mask_data_url is required"))
	}
	if req.Prompt == "" {
		return nil, Response{}, validationErr(StageParse, errors.New("prompt is required"))
	}

	feather := s.config.DefaultFeather
	if req.Feather != nil {
		feather = *req.Feather
	}
	padding := s.config.DefaultPadding
	if req.Padding != nil {
		padding = *req.Padding
	}

	imgBytes, _, err := s.store.ReadByName(ctx, req.Filename)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, Response{}, notFoundErr(StageReadBase, err)
		}
		return nil, Response{}, validationErr(StageReadBase, err)
	}

	maskBytes, _, err := decodeDataURL(req.MaskDataURL)
	if err != nil {
		return nil, Response{}, validationErr(StageParseMask, err)
	}

	return s.runPipeline(ctx, imgBytes, maskBytes, req.Prompt, feather, padding, req.Save, nil)
}

// runPipeline executes Mask Decoder -> Region Extractor -> Patch
// Preparer -> Model Adapter -> Color Matcher -> Strict Compositor, in
// that order.
func (s *Service) runPipeline(ctx context.Context, imgBytes, maskBytes []byte, prompt string, feather, padding int, save bool, history []model.Turn) ([]byte, Response, error) {
	original, _, err := image.Decode(bytes.NewReader(imgBytes))
	if err != nil {
		return nil, Response{}, imageErr(StageReadBase, fmt.Errorf("%w: %v", raster.ErrImageMeta, err))
	}
	imgW, imgH := original.Bounds().Dx(), original.Bounds().Dy()

	maskAlpha, err := raster.DecodeMask(maskBytes, raster.MaskDecodeOptions{})
	if err != nil {
		return nil, Response{}, maskErr(StageParseMask, err)
	}

	maskBBox, err := raster.ExtractBBox(maskAlpha, padding)
	if err != nil {
		return nil, Response{}, maskErr(StageMaskToBBox, err)
	}

	imgAlpha, imgBBox, err := raster.AlignToImage(maskAlpha, maskBBox, imgW, imgH)
	if err != nil {
		return nil, Response{}, maskErr(StageAlignMaskToImage, err)
	}

	patchPNG, err := raster.PreparePatch(original, imgBBox, s.config.MaxPatchEdge)
	if err != nil {
		return nil, Response{}, imageErr(StageMakePatch, err)
	}

	modelCtx, cancel := context.WithTimeout(ctx, time.Duration(s.config.ModelTimeoutS)*time.Second)
	defer cancel()

	var editedBytes []byte
	if history != nil {
		editedBytes, err = s.model.ReviseFromPatch(modelCtx, prompt, patchPNG, history)
	} else {
		editedBytes, err = s.model.GenerateFromPatch(modelCtx, prompt, patchPNG)
	}
	if err != nil {
		return nil, Response{}, mapModelError(err)
	}

	editedPatch, err := raster.DecodeEditedPatch(editedBytes)
	if err != nil {
		return nil, Response{}, modelErr(StageModelAdapter, err)
	}

	ringRadius := s.config.ColorMatchRing
	target := raster.RingMean(original, imgBBox, ringRadius)
	clamp := raster.GainClamp{Min: s.config.ColorGainClampMin, Max: s.config.ColorGainClampMax}
	_, matched := raster.MatchColor(editedPatch, target, clamp)

	result, err := raster.Composite(original, imgAlpha, imgBBox, matched, feather)
	if err != nil {
		if errors.Is(err, raster.ErrAlphaSizeMismatch) || errors.Is(err, raster.ErrAlphaCropSizeMismatch) {
			return nil, Response{}, coreInvariantErr(StageCompositePrecheck, err)
		}
		return nil, Response{}, coreInvariantErr(StageComposite, err)
	}

	resp := Response{
		ImageBase64: base64.StdEncoding.EncodeToString(result.PNG),
		MIME:        "image/png",
		BBox:        BBoxDTO{Left: result.BBox.Left, Top: result.BBox.Top, Width: result.BBox.Width, Height: result.BBox.Height},
	}

	if save {
		saved, err := s.store.SaveTo(ctx, store.DestEdits, result.PNG, "image/png")
		if err != nil {
			return nil, Response{}, unknownErr(StageSaveOrReturn, err)
		}
		resp.File = &FileDTO{URL: saved.URL, Filename: saved.Filename, MIME: "image/png"}
		log.Debug().Str("filename", saved.Filename).Msg("editcore: saved composite")
	}

	return result.PNG, resp, nil
}

func mapModelError(err error) *Error {
	switch {
	case errors.Is(err, model.ErrInvalidCredential):
		return newError(StageModelAdapter, TagModelError, 401, err)
	case errors.Is(err, model.ErrRateLimited):
		return newError(StageModelAdapter, TagModelError, 429, err)
	case errors.Is(err, model.ErrModelTimeout):
		return newError(StageModelAdapter, TagModelError, 504, err)
	case errors.Is(err, model.ErrNoImageInResponse):
		return modelErr(StageModelAdapter, err)
	default:
		return modelErr(StageModelAdapter, err)
	}
}
