package pipeline

import (
	"image"
	"time"

	"github.com/google/uuid"

	"objectlens/internal/model"
)

// Result is everything one detection pass produced. The raw detections and
// enrichment are kept so the records can be re-filtered without another pass.
type Result struct {
	ID         uuid.UUID
	Generation uint64
	Frame      model.Frame

	Detections []model.Detection
	Enrichment *model.EnrichmentResponse
	Records    []model.DetectionRecord

	// Degraded is set when no enrichment response was used.
	Degraded  bool
	DetectErr error
	EnrichErr error

	StartedAt time.Time
	Duration  time.Duration
}

// Overlay is a rendered pass at one threshold.
type Overlay struct {
	Generation uint64
	Camera     string
	Threshold  float64
	Image      image.Image
	// Boxed records are drawn on Image; Panel records have no bbox.
	Boxed []model.DetectionRecord
	Panel []model.DetectionRecord
}
