package handler

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"strings"

	"objectlens/internal/dto"
	"objectlens/internal/logger"
	"objectlens/internal/model"
	"objectlens/internal/pipeline"
	"objectlens/internal/reconcile"
)

// MaxUploadSize bounds still images accepted by AnalyzeHandler.
const MaxUploadSize = 20 << 20

// Analyzer is the part of *pipeline.Pipeline the HTTP surface needs.
type Analyzer interface {
	Analyze(ctx context.Context, frame model.Frame) (*pipeline.Result, error)
	Render(res *pipeline.Result) *pipeline.Overlay
	Latest() *pipeline.Result
	Generation() uint64
	Threshold() float64
	SetThreshold(t float64) error
	Filtered() []model.DetectionRecord
	DetectorState() pipeline.DetectorState
	Reload(ctx context.Context) error
}

// AnalyzeHandler runs one detection pass over an uploaded still image. The
// image is read from the multipart field "image" or, for any other content
// type, from the raw request body.
func AnalyzeHandler(pl Analyzer, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, MaxUploadSize)

		data, err := readImage(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}

		frame, err := model.NewFrame(data)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		frame.Camera = "upload"

		res, err := pl.Analyze(r.Context(), frame)
		if err != nil {
			logger.Warning("⚠️ still image analysis failed: %v", err)
			writeError(w, statusFor(err), err)
			return
		}

		body, err := analysisResponse(pl, res)
		if err != nil {
			logger.Error("Failed to encode analysis %s: %v", res.ID, err)
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, body)
	}
}

// LatestHandler returns the last committed pass filtered at the current threshold.
func LatestHandler(pl Analyzer, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res := pl.Latest()
		if res == nil {
			writeError(w, http.StatusNotFound, fmt.Errorf("no analysis yet"))
			return
		}

		body, err := analysisResponse(pl, res)
		if err != nil {
			logger.Error("Failed to encode analysis %s: %v", res.ID, err)
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, body)
	}
}

func analysisResponse(pl Analyzer, res *pipeline.Result) (*dto.AnalysisResponse, error) {
	overlay := pl.Render(res)

	body := &dto.AnalysisResponse{
		ID:         res.ID.String(),
		Generation: res.Generation,
		Degraded:   res.Degraded,
		Threshold:  overlay.Threshold,
		Records:    res.Records,
		Filtered:   reconcile.Filter(res.Records, overlay.Threshold),
	}
	if body.Records == nil {
		body.Records = []model.DetectionRecord{}
	}
	if res.DetectErr != nil {
		body.DetectError = res.DetectErr.Error()
	}
	if res.EnrichErr != nil {
		body.EnrichError = res.EnrichErr.Error()
	}
	if overlay.Image != nil {
		data, err := model.EncodeJPEG(overlay.Image)
		if err != nil {
			return nil, err
		}
		body.Image = base64.StdEncoding.EncodeToString(data)
	}
	return body, nil
}

func readImage(r *http.Request) ([]byte, error) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(MaxUploadSize); err != nil {
			return nil, fmt.Errorf("%w: %v", model.ErrInvalidFrame, err)
		}
		file, _, err := r.FormFile("image")
		if err != nil {
			return nil, fmt.Errorf("%w: missing image field", model.ErrInvalidFrame)
		}
		defer file.Close()
		return io.ReadAll(file)
	}

	data, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrInvalidFrame, err)
	}
	return data, nil
}
