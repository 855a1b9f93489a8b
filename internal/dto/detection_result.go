package dto

import "objectlens/internal/model"

// DetectionResult is one detection as returned by a remote inference service:
// {"label": "dog", "confidence": 0.91, "bbox": [x, y, w, h]}.
type DetectionResult struct {
	Label      string    `json:"label" validate:"required"`
	Confidence float64   `json:"confidence" validate:"gte=0,lte=1"`
	BBox       []float64 `json:"bbox" validate:"len=4,dive,gte=0"`
}

// DetectorResponse is the body of a remote inference response.
type DetectorResponse struct {
	Detections []DetectionResult `json:"detections"`
}

func (d DetectionResult) ToModel() model.Detection {
	return model.Detection{
		Label:      d.Label,
		Confidence: d.Confidence,
		BBox:       model.BBox{X: d.BBox[0], Y: d.BBox[1], W: d.BBox[2], H: d.BBox[3]},
	}
}
