package dto

// EnrichmentRequest is the body sent to an HTTP enrichment service.
type EnrichmentRequest struct {
	// Image is the base64-encoded JPEG.
	Image           string   `json:"image"`
	CandidateLabels []string `json:"candidateLabels"`
}
