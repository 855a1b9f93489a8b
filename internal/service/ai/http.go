package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"objectlens/internal/dto"
	"objectlens/internal/logger"
	"objectlens/internal/model"
)

// HTTPDetector delegates detection to a remote inference service that accepts a
// multipart "file" upload and answers with dto.DetectorResponse.
type HTTPDetector struct {
	inferenceURL string
	minScore     float64
	client       *http.Client
	validate     *validator.Validate
	logger       *logger.Logger
}

func NewHTTPDetector(inferenceURL string, minScore float64, client *http.Client, log *logger.Logger) *HTTPDetector {
	if client == nil {
		client = &http.Client{}
	}
	return &HTTPDetector{
		inferenceURL: strings.TrimRight(inferenceURL, "/"),
		minScore:     minScore,
		client:       client,
		validate:     validator.New(),
		logger:       log.WithFields(logger.Fields{"component": "remote-detector"}),
	}
}

// Load checks that the inference service is reachable and healthy.
func (d *HTTPDetector) Load(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.inferenceURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("%w: create request: %v", model.ErrModelUnavailable, err)
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", model.ErrModelUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: inference service unhealthy: %d", model.ErrModelUnavailable, resp.StatusCode)
	}
	return nil
}

func (d *HTTPDetector) Detect(ctx context.Context, frame model.Frame) ([]model.Detection, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", "frame.jpg")
	if err != nil {
		return nil, fmt.Errorf("%w: create form file: %v", model.ErrDetectionFailed, err)
	}
	if _, err := part.Write(frame.Data); err != nil {
		return nil, fmt.Errorf("%w: copy image data: %v", model.ErrDetectionFailed, err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("%w: close form: %v", model.ErrDetectionFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.inferenceURL+"/predict", body)
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %v", model.ErrDetectionFailed, err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := d.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: send request: %v", model.ErrDetectionFailed, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusServiceUnavailable:
		return nil, fmt.Errorf("%w: inference service has no model loaded", model.ErrModelUnavailable)
	case resp.StatusCode != http.StatusOK:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: inference failed with status %d: %s", model.ErrDetectionFailed, resp.StatusCode, bytes.TrimSpace(msg))
	}

	var result dto.DetectorResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", model.ErrDetectionFailed, err)
	}

	detections := make([]model.Detection, 0, len(result.Detections))
	for i, wire := range result.Detections {
		if err := d.validate.Struct(wire); err != nil {
			d.logger.Warning("skipping malformed detection %d: %v", i, err)
			continue
		}
		if wire.Confidence < d.minScore {
			continue
		}
		detections = append(detections, wire.ToModel())
	}
	return detections, nil
}
