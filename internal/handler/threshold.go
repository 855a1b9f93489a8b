package handler

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"

	"objectlens/internal/dto"
	"objectlens/internal/logger"
	"objectlens/internal/model"
)

var validate = validator.New()

// GetThresholdHandler returns the current threshold and the latest records it lets through.
func GetThresholdHandler(pl Analyzer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, dto.ThresholdResponse{
			Threshold: pl.Threshold(),
			Records:   pl.Filtered(),
		})
	}
}

// SetThresholdHandler changes the confidence threshold. The latest pass is
// re-filtered and re-published; no detection runs.
func SetThresholdHandler(pl Analyzer, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req dto.ThresholdRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %v", err))
			return
		}
		if err := validate.Struct(req); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("%w: %v", model.ErrInvalidThreshold, err))
			return
		}

		if err := pl.SetThreshold(*req.Threshold); err != nil {
			writeError(w, statusFor(err), err)
			return
		}
		logger.Info("🎚️ confidence threshold set to %.2f", *req.Threshold)

		writeJSON(w, http.StatusOK, dto.ThresholdResponse{
			Threshold: pl.Threshold(),
			Records:   pl.Filtered(),
		})
	}
}
