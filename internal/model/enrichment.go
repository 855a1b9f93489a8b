package model

// EnrichedObject is one object described by the enrichment backend.
// It carries no reliable localization.
type EnrichedObject struct {
	Name          string   `json:"name"`
	Category      string   `json:"category"`
	Description   string   `json:"description"`
	Attributes    []string `json:"attributes"`
	Relationships []string `json:"relationships"`
	Significance  *string  `json:"significance,omitempty"`
	Confidence    *float64 `json:"confidence,omitempty"`
}

// EnrichmentResponse is the full enrichment answer for one image.
type EnrichmentResponse struct {
	Objects            []EnrichedObject `json:"objects"`
	SceneDescription   *string          `json:"scene_description,omitempty"`
	BackgroundElements []string         `json:"background_elements,omitempty"`
	OverallMood        *string          `json:"overall_mood,omitempty"`
}
