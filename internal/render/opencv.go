package render

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"objectlens/internal/model"
)

// CVRenderer draws overlays with OpenCV.
type CVRenderer struct {
	Thickness int
	FontScale float64
}

// NewCVRenderer returns a CVRenderer with the stroke used by the camera viewer.
func NewCVRenderer() *CVRenderer {
	return &CVRenderer{Thickness: 2, FontScale: 0.5}
}

// Draw implements Renderer.
func (r *CVRenderer) Draw(img image.Image, records []model.DetectionRecord) (image.Image, error) {
	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return nil, fmt.Errorf("failed to convert image: %v", err)
	}
	defer mat.Close()

	for _, rec := range records {
		if rec.BBox == nil {
			continue
		}
		c := ColorFor(rec.Category)
		box := rec.BBox.Rect()
		if err := gocv.Rectangle(&mat, box, c, r.Thickness); err != nil {
			return nil, fmt.Errorf("failed to draw rectangle: %v", err)
		}

		text := ChipText(rec)
		size := gocv.GetTextSize(text, gocv.FontHersheySimplex, r.FontScale, 1)
		top := box.Min.Y - size.Y - 6
		if top < 0 {
			top = box.Min.Y
		}
		chip := image.Rect(box.Min.X, top, box.Min.X+size.X+6, top+size.Y+6)
		if err := gocv.Rectangle(&mat, chip, c, -1); err != nil {
			return nil, fmt.Errorf("failed to draw label chip: %v", err)
		}
		if err := gocv.PutText(&mat, text, image.Pt(chip.Min.X+3, chip.Max.Y-3), gocv.FontHersheySimplex, r.FontScale, chipTextColor, 1); err != nil {
			return nil, fmt.Errorf("failed to draw text: %v", err)
		}
	}

	return mat.ToImage()
}
