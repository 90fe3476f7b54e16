package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/fpang/editcompositor/internal/editcore"
	"github.com/fpang/editcompositor/internal/logging"
)

func httpError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(editcore.ErrorResponse{Error: msg})
}

func writeEditError(w http.ResponseWriter, logger zerolog.Logger, err error) {
	var editErr *editcore.Error
	if errors.As(err, &editErr) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(editErr.HTTPStatus)
		_ = json.NewEncoder(w).Encode(editcore.ErrorResponse{
			Error: editErr.Error(),
			Stage: editErr.Stage,
			Tag:   editErr.Tag,
		})
		if reg != nil {
			reg.ObserveStageError(string(editErr.Stage), string(editErr.Tag))
		}
		logger.Warn().Str("stage", string(editErr.Stage)).Str("tag", string(editErr.Tag)).Msg("edit pipeline rejected request")
		return
	}
	logger.Error().Err(err).Msg("unhandled editcore error")
	httpError(w, http.StatusInternalServerError, "internal error")
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func handleEdit(w http.ResponseWriter, r *http.Request) {
	logger := logging.WithRequest(uuid.NewString())

	if r.Method != http.MethodPost {
		httpError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req editcore.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	png, resp, err := svc.Edit(r.Context(), req)
	if err != nil {
		writeEditError(w, logger, err)
		return
	}

	writeImageResponse(w, png, resp)
}

func handleRevise(w http.ResponseWriter, r *http.Request) {
	logger := logging.WithRequest(uuid.NewString())

	if r.Method != http.MethodPost {
		httpError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req editcore.ReviseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	png, resp, err := svc.Revise(r.Context(), req)
	if err != nil {
		writeEditError(w, logger, err)
		return
	}

	writeImageResponse(w, png, resp)
}

// writeImageResponse returns the JSON response envelope. resp.ImageBase64
// always carries the composite PNG; resp.File is only set when the
// request asked to persist it.
func writeImageResponse(w http.ResponseWriter, png []byte, resp editcore.Response) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Image-Bytes", strconv.Itoa(len(png)))
	_ = json.NewEncoder(w).Encode(resp)
}
