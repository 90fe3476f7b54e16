package editcore

import (
	"context"
	"errors"

	"github.com/fpang/editcompositor/internal/model"
	"github.com/fpang/editcompositor/internal/store"
)

// Revise re-edits a previously produced composite using a follow-up
// prompt and the conversation so far. It reads the prior composite as
// the new base image, re-decodes the (possibly adjusted) mask against
// it, and replays History as prior turns to the model adapter so it
// retains context across the feedback loop.
func (s *Service) Revise(ctx context.Context, req ReviseRequest) ([]byte, Response, error) {
	if req.PriorFilename == "" {
		return nil, Response{}, validationErr(StageParse, errors.New("prior_filename is required"))
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

	imgBytes, _, err := s.store.ReadByName(ctx, req.PriorFilename)
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

	history := make([]model.Turn, 0, len(req.History))
	for _, turn := range req.History {
		history = append(history, model.Turn{Role: turn.Role, Text: turn.Text})
	}

	return s.runPipeline(ctx, imgBytes, maskBytes, req.Prompt, feather, padding, req.Save, history)
}
