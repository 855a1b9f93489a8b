package handler

import (
	"net/http"

	"objectlens/internal/dto"
	"objectlens/internal/logger"
	"objectlens/internal/realtime"
)

// StreamController is the part of *realtime.Controller the HTTP surface needs.
type StreamController interface {
	Start(source realtime.FrameSource) error
	Stop() error
	Status() realtime.Status
}

// StartStreamHandler starts the real-time loop on source.
func StartStreamHandler(ctrl StreamController, source realtime.FrameSource, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := ctrl.Start(source); err != nil {
			logger.Warning("⚠️ failed to start stream: %v", err)
			writeError(w, statusFor(err), err)
			return
		}
		writeJSON(w, http.StatusOK, ctrl.Status())
	}
}

// StopStreamHandler stops the loop. It returns once no pass is running.
func StopStreamHandler(ctrl StreamController, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := ctrl.Stop(); err != nil {
			logger.Error("Error stopping stream: %v", err)
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, ctrl.Status())
	}
}

// StreamStatusHandler reports the loop, the detector and the current threshold.
func StreamStatusHandler(ctrl StreamController, pl Analyzer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, dto.StatusResponse{
			Loop:       ctrl.Status(),
			Detector:   pl.DetectorState(),
			Threshold:  pl.Threshold(),
			Generation: pl.Generation(),
		})
	}
}

// ReloadDetectorHandler re-initializes the local detector, e.g. after ModelUnavailable.
func ReloadDetectorHandler(pl Analyzer, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := pl.Reload(r.Context()); err != nil {
			writeError(w, statusFor(err), err)
			return
		}
		logger.Info("🔄 detector reloaded")
		writeJSON(w, http.StatusOK, pl.DetectorState())
	}
}
