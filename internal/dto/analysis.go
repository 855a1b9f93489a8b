package dto

import (
	"objectlens/internal/model"
	"objectlens/internal/pipeline"
	"objectlens/internal/realtime"
)

// AnalysisResponse is returned by the still-image analysis endpoint.
type AnalysisResponse struct {
	ID         string  `json:"id"`
	Generation uint64  `json:"generation"`
	Degraded   bool    `json:"degraded"`
	Threshold  float64 `json:"threshold"`
	// Records is the full reconciled list; Filtered applies Threshold.
	Records     []model.DetectionRecord `json:"records"`
	Filtered    []model.DetectionRecord `json:"filtered"`
	DetectError string                  `json:"detect_error,omitempty"`
	EnrichError string                  `json:"enrich_error,omitempty"`
	// Image is the rendered overlay as base64 JPEG.
	Image string `json:"image,omitempty"`
}

type ThresholdRequest struct {
	Threshold *float64 `json:"threshold" validate:"required,gte=0,lte=1"`
}

type ThresholdResponse struct {
	Threshold float64                 `json:"threshold"`
	Records   []model.DetectionRecord `json:"records"`
}

// OverlayMessage is pushed to viewers for every rendered pass.
type OverlayMessage struct {
	Generation uint64                  `json:"generation"`
	Camera     string                  `json:"camera"`
	Threshold  float64                 `json:"threshold"`
	Image      string                  `json:"image"`
	Records    []model.DetectionRecord `json:"records"`
	Panel      []model.DetectionRecord `json:"panel"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

// StatusResponse describes the real-time loop and the local detector.
type StatusResponse struct {
	Loop       realtime.Status        `json:"loop"`
	Detector   pipeline.DetectorState `json:"detector"`
	Threshold  float64                `json:"threshold"`
	Generation uint64                 `json:"generation"`
}
