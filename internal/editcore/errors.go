// Package editcore orchestrates the mask-guided edit pipeline end to
// end: it decodes the request, runs the six raster stages in order,
// drives the external model adapter, and maps failures onto the
// public error taxonomy.
package editcore

import "fmt"

// Tag is the stable machine-readable error category returned to callers.
type Tag string

const (
	TagValidation    Tag = "ValidationError"
	TagNotFound      Tag = "NotFound"
	TagMaskError     Tag = "MaskError"
	TagImageError    Tag = "ImageError"
	TagModelError    Tag = "ModelError"
	TagCoreInvariant Tag = "CoreInvariantError"
	TagUnknown       Tag = "Unknown"
)

// Stage identifies which pipeline stage produced the error. These
// match the literal tags external callers match against, so renaming
// one is a breaking change for every caller of the documented error
// contract.
type Stage string

const (
	StageParse             Stage = "parse"
	StageReadBase          Stage = "read_base"
	StageParseMask         Stage = "parse_mask"
	StageMaskToBBox        Stage = "mask_to_bbox"
	StageAlignMaskToImage  Stage = "align_mask_to_image"
	StageMakePatch         Stage = "make_patch"
	StageModelAdapter      Stage = "openrouter"
	StageCompositePrecheck Stage = "composite_precheck"
	StageComposite         Stage = "composite"
	StageSaveOrReturn      Stage = "save_or_return"
)

// Error is the single error type returned from Service.Edit and
// Service.Revise. It carries enough structure for cmd/editserver and
// cmd/edit-lambda to render an HTTP status and a JSON body without
// re-deriving the taxonomy.
type Error struct {
	Stage      Stage
	Tag        Tag
	HTTPStatus int
	Err        error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s at %s", e.Tag, e.Stage)
	}
	return fmt.Sprintf("%s at %s: %v", e.Tag, e.Stage, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func newError(stage Stage, tag Tag, status int, err error) *Error {
	return &Error{Stage: stage, Tag: tag, HTTPStatus: status, Err: err}
}

func validationErr(stage Stage, err error) *Error { return newError(stage, TagValidation, 400, err) }
func notFoundErr(stage Stage, err error) *Error    { return newError(stage, TagNotFound, 404, err) }
func maskErr(stage Stage, err error) *Error        { return newError(stage, TagMaskError, 400, err) }
func imageErr(stage Stage, err error) *Error       { return newError(stage, TagImageError, 400, err) }
func modelErr(stage Stage, err error) *Error       { return newError(stage, TagModelError, 502, err) }
func coreInvariantErr(stage Stage, err error) *Error {
	return newError(stage, TagCoreInvariant, 500, err)
}
func unknownErr(stage Stage, err error) *Error { return newError(stage, TagUnknown, 500, err) }
