package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"objectlens/internal/dto"
	"objectlens/internal/model"
	"objectlens/internal/pipeline"
	"objectlens/internal/realtime"
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, dto.ErrorResponse{Error: err.Error()})
}

// statusFor maps the error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, model.ErrInvalidFrame), errors.Is(err, model.ErrInvalidThreshold):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrModelUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, model.ErrAlreadyRunning), errors.Is(err, model.ErrSourceBusy), errors.Is(err, realtime.ErrNotIdle),
		errors.Is(err, pipeline.ErrStale):
		return http.StatusConflict
	case errors.Is(err, model.ErrMediaAccess):
		return http.StatusBadGateway
	case errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable
	case errors.Is(err, model.ErrDetectionFailed), errors.Is(err, model.ErrNetwork), errors.Is(err, model.ErrParse):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
