package model

// Provenance tells which source(s) a DetectionRecord came from.
type Provenance string

const (
	ProvenanceLocalOnly    Provenance = "local_only"
	ProvenanceEnrichedOnly Provenance = "enriched_only"
	ProvenanceMerged       Provenance = "merged"
	ProvenanceScene        Provenance = "scene"
)

// DetectionRecord is the merged unit of output for one object or for the scene.
type DetectionRecord struct {
	Label        string     `json:"label"`
	Category     string     `json:"category"`
	Confidence   float64    `json:"confidence"`
	BBox         *BBox      `json:"bbox"`
	Description  *string    `json:"description,omitempty"`
	Attributes   []string   `json:"attributes"`
	Significance *string    `json:"significance,omitempty"`
	Provenance   Provenance `json:"provenance"`
}

// HasBBox reports whether the record can be drawn on the frame.
func (r DetectionRecord) HasBBox() bool {
	return r.BBox != nil
}

// StringPtr returns a pointer to a copy of s.
func StringPtr(s string) *string {
	return &s
}

// Float64Ptr returns a pointer to a copy of f.
func Float64Ptr(f float64) *float64 {
	return &f
}
