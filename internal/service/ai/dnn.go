package ai

import (
	"context"
	"fmt"
	"image"
	"os"
	"sync"

	"gocv.io/x/gocv"

	"objectlens/internal/config"
	"objectlens/internal/logger"
	"objectlens/internal/model"
)

// DNNDetector runs an SSD MobileNet COCO network with OpenCV.
type DNNDetector struct {
	modelPath  string
	configPath string
	minScore   float64
	logger     *logger.Logger

	// mu guards net; gocv.Net is not safe for concurrent Forward calls.
	mu  sync.Mutex
	net *gocv.Net
}

func NewDNNDetector(cfg *config.Config, log *logger.Logger) *DNNDetector {
	return &DNNDetector{
		modelPath:  cfg.ModelPath,
		configPath: cfg.ConfigPath,
		minScore:   cfg.DetectorMinScore,
		logger:     log.WithFields(logger.Fields{"component": "dnn"}),
	}
}

// Load reads the network from disk, replacing any network already loaded.
func (d *DNNDetector) Load(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := os.Stat(d.modelPath); err != nil {
		return fmt.Errorf("%w: model file not found: %s", model.ErrModelUnavailable, d.modelPath)
	}
	if _, err := os.Stat(d.configPath); err != nil {
		return fmt.Errorf("%w: config file not found: %s", model.ErrModelUnavailable, d.configPath)
	}

	net := gocv.ReadNet(d.modelPath, d.configPath)
	if net.Empty() {
		return fmt.Errorf("%w: failed to load network", model.ErrModelUnavailable)
	}
	errBackend := net.SetPreferableBackend(gocv.NetBackendDefault)
	errTarget := net.SetPreferableTarget(gocv.NetTargetCPU)
	if errBackend != nil || errTarget != nil {
		net.Close()
		return fmt.Errorf("%w: failed to set preferable backend or target", model.ErrModelUnavailable)
	}

	d.mu.Lock()
	if d.net != nil {
		d.net.Close()
	}
	d.net = &net
	d.mu.Unlock()

	d.logger.Info("Detection network initialized successfully")
	return nil
}

// Detect runs the network on the frame. Inference itself cannot be interrupted;
// when ctx is done first, Detect returns and the result is thrown away.
func (d *DNNDetector) Detect(ctx context.Context, frame model.Frame) ([]model.Detection, error) {
	type outcome struct {
		detections []model.Detection
		err        error
	}
	done := make(chan outcome, 1)
	go func() {
		detections, err := d.detect(frame)
		done <- outcome{detections, err}
	}()

	select {
	case o := <-done:
		return o.detections, o.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (d *DNNDetector) detect(frame model.Frame) ([]model.Detection, error) {
	mat, err := gocv.IMDecode(frame.Data, gocv.IMReadColor)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to decode image: %v", model.ErrDetectionFailed, err)
	}
	defer mat.Close()
	if mat.Empty() {
		return nil, fmt.Errorf("%w: decoded image is empty", model.ErrDetectionFailed)
	}

	// SSD COCO input: 300x300, scaled to [-1, 1]
	blob := gocv.BlobFromImage(mat, 1.0/127.5, image.Pt(300, 300), gocv.NewScalar(127.5, 127.5, 127.5, 0), true, false)
	defer blob.Close()

	d.mu.Lock()
	if d.net == nil || d.net.Empty() {
		d.mu.Unlock()
		return nil, fmt.Errorf("%w: detection network not initialized", model.ErrModelUnavailable)
	}
	d.net.SetInput(blob, "")
	output := d.net.Forward("")
	d.mu.Unlock()
	defer output.Close()

	cols, rows := float32(mat.Cols()), float32(mat.Rows())

	// rows of [batch_id, class_id, confidence, x1, y1, x2, y2], coordinates normalized
	reshaped := output.Reshape(1, output.Total()/7)
	defer reshaped.Close()

	var detections []model.Detection
	for i := 0; i < reshaped.Rows(); i++ {
		confidence := float64(reshaped.GetFloatAt(i, 2))
		if confidence < d.minScore {
			continue
		}
		x1 := reshaped.GetFloatAt(i, 3) * cols
		y1 := reshaped.GetFloatAt(i, 4) * rows
		x2 := reshaped.GetFloatAt(i, 5) * cols
		y2 := reshaped.GetFloatAt(i, 6) * rows

		detections = append(detections, model.Detection{
			Label:      ClassLabel(int(reshaped.GetFloatAt(i, 1))),
			Confidence: confidence,
			BBox:       model.BBox{X: float64(x1), Y: float64(y1), W: float64(x2 - x1), H: float64(y2 - y1)},
		})
	}

	d.logger.Debug("detected %d objects", len(detections))
	return detections, nil
}

func (d *DNNDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.net == nil {
		return nil
	}
	err := d.net.Close()
	d.net = nil
	return err
}
