package model

import (
	"bytes"
	"fmt"
	"image"
	"time"

	"github.com/disintegration/imaging"
)

// Frame is one decodable raster image, either a still upload or a live video frame.
type Frame struct {
	// Data is the encoded image (JPEG, PNG, ...).
	Data       []byte
	Image      image.Image
	Width      int
	Height     int
	Camera     string
	CapturedAt time.Time
}

// NewFrame decodes data and records its dimensions.
func NewFrame(data []byte) (Frame, error) {
	if len(data) == 0 {
		return Frame{}, fmt.Errorf("%w: empty image data", ErrInvalidFrame)
	}
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return Frame{}, fmt.Errorf("%w: %v", ErrInvalidFrame, err)
	}
	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return Frame{}, fmt.Errorf("%w: zero-sized image", ErrInvalidFrame)
	}
	return Frame{
		Data:       data,
		Image:      img,
		Width:      b.Dx(),
		Height:     b.Dy(),
		CapturedAt: time.Now(),
	}, nil
}

// FrameFromImage encodes img as JPEG and wraps it in a Frame.
func FrameFromImage(img image.Image) (Frame, error) {
	data, err := EncodeJPEG(img)
	if err != nil {
		return Frame{}, err
	}
	b := img.Bounds()
	return Frame{
		Data:       data,
		Image:      img,
		Width:      b.Dx(),
		Height:     b.Dy(),
		CapturedAt: time.Now(),
	}, nil
}

// EncodeJPEG encodes img as a JPEG.
func EncodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(85)); err != nil {
		return nil, fmt.Errorf("failed to encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}
