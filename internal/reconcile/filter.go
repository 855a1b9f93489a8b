package reconcile

import "objectlens/internal/model"

// DefaultThreshold is the confidence cutoff used until the user changes it.
const DefaultThreshold = 0.5

// Filter returns the records whose confidence is at least threshold, in input order.
// records is never modified, so the same merged list can be filtered repeatedly.
func Filter(records []model.DetectionRecord, threshold float64) []model.DetectionRecord {
	out := make([]model.DetectionRecord, 0, len(records))
	for _, r := range records {
		if r.Confidence >= threshold {
			out = append(out, r)
		}
	}
	return out
}

// ValidThreshold reports whether t is a usable confidence threshold.
func ValidThreshold(t float64) bool {
	return t >= 0 && t <= 1
}
