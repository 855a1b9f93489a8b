package model

import (
	"encoding/json"
	"fmt"
	"image"
	"math"
)

// BBox is an axis-aligned box in source-image pixel space.
// It travels on the wire as [x, y, w, h].
type BBox struct {
	X float64
	Y float64
	W float64
	H float64
}

// MarshalJSON encodes the box as a four element array.
func (b BBox) MarshalJSON() ([]byte, error) {
	return json.Marshal([4]float64{b.X, b.Y, b.W, b.H})
}

// UnmarshalJSON decodes a four element array.
func (b *BBox) UnmarshalJSON(data []byte) error {
	var raw []float64
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("bbox: %w", err)
	}
	if len(raw) != 4 {
		return fmt.Errorf("bbox: expected 4 values, got %d", len(raw))
	}
	b.X, b.Y, b.W, b.H = raw[0], raw[1], raw[2], raw[3]
	return nil
}

// Rect returns the box as an integer rectangle.
func (b BBox) Rect() image.Rectangle {
	x0 := int(math.Round(b.X))
	y0 := int(math.Round(b.Y))
	return image.Rect(x0, y0, x0+int(math.Round(b.W)), y0+int(math.Round(b.H)))
}

// Empty reports whether the box has no area.
func (b BBox) Empty() bool {
	return b.W <= 0 || b.H <= 0
}

// Clamp restricts the box to a width x height image.
func (b BBox) Clamp(width, height int) BBox {
	w, h := float64(width), float64(height)
	x0 := clamp(b.X, 0, w)
	y0 := clamp(b.Y, 0, h)
	x1 := clamp(b.X+b.W, 0, w)
	y1 := clamp(b.Y+b.H, 0, h)
	return BBox{X: x0, Y: y0, W: x1 - x0, H: y1 - y0}
}

// Detection is one labeled box produced by the local detector.
type Detection struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
	BBox       BBox    `json:"bbox"`
}

// ClampConfidence limits c to [0,1]. NaN becomes 0.
func ClampConfidence(c float64) float64 {
	if math.IsNaN(c) {
		return 0
	}
	return clamp(c, 0, 1)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
