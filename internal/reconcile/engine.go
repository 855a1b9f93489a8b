// Package reconcile merges local detections with enrichment results into one
// ordered list of DetectionRecords and filters that list by confidence.
package reconcile

import (
	"fmt"
	"strings"

	"objectlens/internal/model"
)

const (
	// FallbackConfidence is used for enriched-only objects that carry no confidence.
	FallbackConfidence = 0.8
	// SceneConfidence is the fixed confidence of the scene record.
	SceneConfidence = 0.95
	// SceneLabel labels the scene record.
	SceneLabel = "Scene"

	unknownLabel = "Unknown object"
)

// Reconcile merges the raw detections of one pass with the enrichment response for
// the same image. A nil response is degraded mode: every detection becomes a
// LocalOnly record, in input order.
//
// Enrichment objects are visited in the order received and each one claims at most one
// not-yet-matched detection: the first with an equal label (case-insensitive), otherwise
// the first whose label contains, or is contained in, the object name. Records are emitted
// as: matched and enriched-only records in enrichment order, then unmatched detections in
// detection order, then the scene record.
func Reconcile(detections []model.Detection, resp *model.EnrichmentResponse) []model.DetectionRecord {
	if resp == nil {
		records := make([]model.DetectionRecord, 0, len(detections))
		for _, d := range detections {
			records = append(records, localOnly(d))
		}
		return records
	}

	records := make([]model.DetectionRecord, 0, len(detections)+len(resp.Objects)+1)
	matched := make([]bool, len(detections))

	for _, obj := range resp.Objects {
		idx := findMatch(detections, matched, obj.Name)
		if idx < 0 {
			records = append(records, enrichedOnly(obj))
			continue
		}
		matched[idx] = true
		records = append(records, merged(detections[idx], obj))
	}

	for i, d := range detections {
		if !matched[i] {
			records = append(records, localOnly(d))
		}
	}

	if resp.SceneDescription != nil && strings.TrimSpace(*resp.SceneDescription) != "" {
		records = append(records, scene(resp))
	}
	return records
}

// findMatch returns the index of the detection obj name should merge with, or -1.
// Substring containment is a fallback and can pair a short label with an unrelated
// longer one; order decides.
func findMatch(detections []model.Detection, matched []bool, name string) int {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return -1
	}
	for i, d := range detections {
		if !matched[i] && strings.ToLower(d.Label) == key {
			return i
		}
	}
	for i, d := range detections {
		if matched[i] {
			continue
		}
		l := strings.ToLower(d.Label)
		if l != "" && (strings.Contains(l, key) || strings.Contains(key, l)) {
			return i
		}
	}
	return -1
}

func merged(d model.Detection, obj model.EnrichedObject) model.DetectionRecord {
	confidence := d.Confidence
	if obj.Confidence != nil {
		confidence = *obj.Confidence
	}
	bbox := d.BBox
	category := obj.Category
	if category == "" {
		category = Categorize(d.Label)
	}
	return model.DetectionRecord{
		Label:        displayName(obj),
		Category:     category,
		Confidence:   model.ClampConfidence(confidence),
		BBox:         &bbox,
		Description:  optional(obj.Description),
		Attributes:   copyStrings(obj.Attributes),
		Significance: copyOptional(obj.Significance),
		Provenance:   model.ProvenanceMerged,
	}
}

func enrichedOnly(obj model.EnrichedObject) model.DetectionRecord {
	confidence := FallbackConfidence
	if obj.Confidence != nil {
		confidence = *obj.Confidence
	}
	label := displayName(obj)
	category := obj.Category
	if category == "" {
		category = Categorize(label)
	}
	return model.DetectionRecord{
		Label:        label,
		Category:     category,
		Confidence:   model.ClampConfidence(confidence),
		Description:  optional(obj.Description),
		Attributes:   copyStrings(obj.Attributes),
		Significance: copyOptional(obj.Significance),
		Provenance:   model.ProvenanceEnrichedOnly,
	}
}

func localOnly(d model.Detection) model.DetectionRecord {
	bbox := d.BBox
	return model.DetectionRecord{
		Label:       d.Label,
		Category:    Categorize(d.Label),
		Confidence:  model.ClampConfidence(d.Confidence),
		BBox:        &bbox,
		Description: model.StringPtr(fmt.Sprintf("A %s detected in the image.", d.Label)),
		Attributes:  []string{},
		Provenance:  model.ProvenanceLocalOnly,
	}
}

func scene(resp *model.EnrichmentResponse) model.DetectionRecord {
	return model.DetectionRecord{
		Label:       SceneLabel,
		Category:    CategoryScene,
		Confidence:  SceneConfidence,
		Description: model.StringPtr(*resp.SceneDescription),
		Attributes:  copyStrings(resp.BackgroundElements),
		Provenance:  model.ProvenanceScene,
	}
}

// displayName keeps the enrichment casing; records always need a non-empty label.
func displayName(obj model.EnrichedObject) string {
	if name := strings.TrimSpace(obj.Name); name != "" {
		return name
	}
	if category := strings.TrimSpace(obj.Category); category != "" {
		return category
	}
	return unknownLabel
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return model.StringPtr(s)
}

func copyOptional(s *string) *string {
	if s == nil {
		return nil
	}
	return model.StringPtr(*s)
}

func copyStrings(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	return out
}
