package render

import (
	"errors"
	"image"
	"image/color"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font/gofont/goregular"

	"objectlens/internal/model"
)

var font *truetype.Font

func init() {
	var err error
	font, err = truetype.Parse(goregular.TTF)
	if err != nil {
		panic(err)
	}
}

// GGRenderer draws overlays in pure Go.
type GGRenderer struct {
	LineWidth float64
	FontSize  float64
	Padding   float64
}

// NewGGRenderer returns a GGRenderer with default stroke and font sizes.
func NewGGRenderer() *GGRenderer {
	return &GGRenderer{LineWidth: 3, FontSize: 14, Padding: 3}
}

// Draw implements Renderer.
func (r *GGRenderer) Draw(img image.Image, records []model.DetectionRecord) (image.Image, error) {
	if img == nil {
		return nil, errors.New("render: nil image")
	}
	dc := gg.NewContextForImage(img)
	dc.SetFontFace(truetype.NewFace(font, &truetype.Options{Size: r.FontSize}))

	for _, rec := range records {
		if rec.BBox == nil {
			continue
		}
		c := ColorFor(rec.Category)
		box := rec.BBox.Rect()
		r.drawBox(dc, box, c)
		r.drawChip(dc, box, ChipText(rec), c)
	}
	return dc.Image(), nil
}

func (r *GGRenderer) drawBox(dc *gg.Context, box image.Rectangle, c color.Color) {
	dc.SetColor(c)
	dc.SetLineWidth(r.LineWidth)
	dc.DrawRectangle(float64(box.Min.X), float64(box.Min.Y), float64(box.Dx()), float64(box.Dy()))
	dc.Stroke()
}

// drawChip places the chip above the box, or just inside it when the box touches the top edge.
func (r *GGRenderer) drawChip(dc *gg.Context, box image.Rectangle, text string, c color.Color) {
	tw, th := dc.MeasureString(text)
	w, h := tw+2*r.Padding, th+2*r.Padding
	x := float64(box.Min.X)
	y := float64(box.Min.Y) - h
	if y < 0 {
		y = float64(box.Min.Y)
	}

	dc.SetColor(c)
	dc.DrawRectangle(x, y, w, h)
	dc.Fill()

	dc.SetColor(chipTextColor)
	dc.DrawStringAnchored(text, x+r.Padding, y+h/2, 0, 0.5)
}
