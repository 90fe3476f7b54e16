package raster

import "errors"

// Sentinel errors returned by the raster stages. internal/editcore wraps
// these with the request's Stage tag and maps them to the public error
// taxonomy; callers within this package should always wrap with
// fmt.Errorf("...: %w", ErrX) so errors.Is keeps working.
var (
	// ErrMaskDecode means the mask bytes could not be decoded as any
	// supported raster format.
	ErrMaskDecode = errors.New("mask decode failed")

	// ErrMaskMeta means the mask decoded but has zero width or height.
	ErrMaskMeta = errors.New("mask has invalid dimensions")

	// ErrImageMeta means the base image could not be decoded, or has
	// zero width or height.
	ErrImageMeta = errors.New("image has invalid dimensions or could not be decoded")

	// ErrEmptyMask means the decoded EditAlpha is all-zero: no pixel is
	// marked for editing.
	ErrEmptyMask = errors.New("mask selects no pixels")

	// ErrAlphaCropSizeMismatch is a CoreInvariantError: the feather blur
	// reported output bounds other than the alpha crop's width x height.
	ErrAlphaCropSizeMismatch = errors.New("alpha crop size mismatch after blur normalization")

	// ErrAlphaSizeMismatch is a CoreInvariantError: the full-resolution
	// EditAlpha buffer length does not equal width*height.
	ErrAlphaSizeMismatch = errors.New("alpha buffer length does not match width*height")
)
