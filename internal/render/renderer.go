// Package render draws filtered detection records onto a frame.
package render

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"objectlens/internal/model"
)

// Renderer draws records onto a copy of img. Records without a bbox are skipped;
// they belong in a side panel, not on the canvas. Overlapping boxes are not
// de-conflicted.
type Renderer interface {
	Draw(img image.Image, records []model.DetectionRecord) (image.Image, error)
}

var (
	// OtherColor is used for every category without its own palette entry.
	OtherColor = color.RGBA{R: 255, G: 193, B: 7, A: 255}

	palette = map[string]color.RGBA{
		"Person":  {R: 233, G: 30, B: 99, A: 255},
		"Animal":  {R: 76, G: 175, B: 80, A: 255},
		"Vehicle": {R: 33, G: 150, B: 243, A: 255},
		"Food":    {R: 255, G: 87, B: 34, A: 255},
	}

	chipTextColor = color.RGBA{R: 255, G: 255, B: 255, A: 255}
)

// ColorFor returns the box color for a category.
func ColorFor(category string) color.RGBA {
	if c, ok := palette[category]; ok {
		return c
	}
	return OtherColor
}

// ChipText is the label chip drawn above a box, e.g. "dog 91%".
func ChipText(r model.DetectionRecord) string {
	return fmt.Sprintf("%s %d%%", r.Label, int(math.Round(r.Confidence*100)))
}

// Split separates drawable records from side-panel records, keeping order.
func Split(records []model.DetectionRecord) (boxed, panel []model.DetectionRecord) {
	for _, r := range records {
		if r.HasBBox() {
			boxed = append(boxed, r)
		} else {
			panel = append(panel, r)
		}
	}
	return boxed, panel
}
