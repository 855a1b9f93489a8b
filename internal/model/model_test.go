package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBBox_JSON(t *testing.T) {
	var d Detection
	err := json.Unmarshal([]byte(`{"label":"dog","confidence":0.91,"bbox":[10,10,100,100]}`), &d)
	require.NoError(t, err)
	assert.Equal(t, "dog", d.Label)
	assert.Equal(t, BBox{X: 10, Y: 10, W: 100, H: 100}, d.BBox)

	out, err := json.Marshal(d.BBox)
	require.NoError(t, err)
	assert.JSONEq(t, `[10,10,100,100]`, string(out))
}

func TestBBox_UnmarshalWrongLength(t *testing.T) {
	var b BBox
	assert.Error(t, json.Unmarshal([]byte(`[1,2,3]`), &b))
	assert.Error(t, json.Unmarshal([]byte(`{"x":1}`), &b))
}

func TestBBox_Clamp(t *testing.T) {
	tests := []struct {
		name     string
		in       BBox
		expected BBox
	}{
		{"inside", BBox{10, 10, 20, 20}, BBox{10, 10, 20, 20}},
		{"negative origin", BBox{-5, -5, 20, 20}, BBox{0, 0, 15, 15}},
		{"overflow", BBox{90, 40, 50, 50}, BBox{90, 40, 10, 10}},
		{"outside", BBox{200, 200, 10, 10}, BBox{100, 50, 0, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.in.Clamp(100, 50))
		})
	}
	assert.True(t, BBox{100, 50, 0, 0}.Empty())
}

func TestBBox_Rect(t *testing.T) {
	assert.Equal(t, image.Rect(10, 20, 40, 60), BBox{10, 20, 30, 40}.Rect())
}

func TestClampConfidence(t *testing.T) {
	assert.Equal(t, 0.0, ClampConfidence(-0.2))
	assert.Equal(t, 1.0, ClampConfidence(1.7))
	assert.Equal(t, 0.5, ClampConfidence(0.5))
}

func TestNewFrame(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 32, 16))
	img.Set(1, 1, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))

	frame, err := NewFrame(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, 32, frame.Width)
	assert.Equal(t, 16, frame.Height)
	assert.NotNil(t, frame.Image)
	assert.False(t, frame.CapturedAt.IsZero())
}

func TestNewFrame_Invalid(t *testing.T) {
	_, err := NewFrame(nil)
	assert.ErrorIs(t, err, ErrInvalidFrame)

	_, err = NewFrame([]byte("not an image"))
	assert.ErrorIs(t, err, ErrInvalidFrame)
}

func TestFrameFromImage(t *testing.T) {
	frame, err := FrameFromImage(image.NewRGBA(image.Rect(0, 0, 8, 8)))
	require.NoError(t, err)
	assert.NotEmpty(t, frame.Data)

	decoded, err := NewFrame(frame.Data)
	require.NoError(t, err)
	assert.Equal(t, 8, decoded.Width)
}

func TestErrorClassification(t *testing.T) {
	assert.True(t, IsFatal(fmt.Errorf("%w: no net", ErrModelUnavailable)))
	assert.True(t, IsFatal(fmt.Errorf("%w: denied", ErrMediaAccess)))
	assert.False(t, IsFatal(ErrDetectionFailed))

	assert.True(t, IsRecoverable(fmt.Errorf("%w: timeout", ErrNetwork)))
	assert.True(t, IsRecoverable(ErrParse))
	assert.False(t, IsRecoverable(ErrModelUnavailable))
}

func TestDetectionRecord_JSON(t *testing.T) {
	rec := DetectionRecord{
		Label:      "Scene",
		Category:   "Scene",
		Confidence: 0.95,
		Attributes: []string{},
		Provenance: ProvenanceScene,
	}
	out, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.JSONEq(t, `{"label":"Scene","category":"Scene","confidence":0.95,"bbox":null,"attributes":[],"provenance":"scene"}`, string(out))
}
