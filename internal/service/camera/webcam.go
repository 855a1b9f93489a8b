package camera

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/atomic"
	"gocv.io/x/gocv"

	"objectlens/internal/logger"
	"objectlens/internal/model"
)

// WebcamSource reads frames from a local capture device.
type WebcamSource struct {
	device int
	camera string
	logger *logger.Logger

	busy *atomic.Bool

	mu      sync.Mutex
	capture *gocv.VideoCapture
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func NewWebcamSource(device int, camera string, log *logger.Logger) *WebcamSource {
	return &WebcamSource{
		device: device,
		camera: camera,
		logger: log.WithFields(logger.Fields{"component": "webcam"}),
		busy:   atomic.NewBool(false),
	}
}

func (s *WebcamSource) Start(ctx context.Context) (<-chan model.Frame, error) {
	if !s.busy.CompareAndSwap(false, true) {
		return nil, model.ErrSourceBusy
	}

	capture, err := gocv.OpenVideoCapture(s.device)
	if err != nil {
		s.busy.Store(false)
		return nil, fmt.Errorf("%w: failed to open capture device %d: %v", model.ErrMediaAccess, s.device, err)
	}
	if !capture.IsOpened() {
		capture.Close()
		s.busy.Store(false)
		return nil, fmt.Errorf("%w: capture device %d is not available", model.ErrMediaAccess, s.device)
	}

	ctx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.capture = capture
	s.cancel = cancel
	s.mu.Unlock()

	frames := make(chan model.Frame, 1)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer close(frames)
		s.read(ctx, capture, frames)
	}()

	s.logger.Info("📷 webcam %d opened", s.device)
	return frames, nil
}

func (s *WebcamSource) read(ctx context.Context, capture *gocv.VideoCapture, frames chan model.Frame) {
	mat := gocv.NewMat()
	defer mat.Close()

	for ctx.Err() == nil {
		if ok := capture.Read(&mat); !ok {
			s.logger.Error("webcam %d stopped delivering frames", s.device)
			return
		}
		if mat.Empty() {
			continue
		}

		frame, err := s.frame(mat)
		if err != nil {
			s.logger.Debug("dropping webcam frame: %v", err)
			continue
		}
		offer(frames, frame)
	}
}

func (s *WebcamSource) frame(mat gocv.Mat) (model.Frame, error) {
	img, err := mat.ToImage()
	if err != nil {
		return model.Frame{}, err
	}
	buf, err := gocv.IMEncode(gocv.JPEGFileExt, mat)
	if err != nil {
		return model.Frame{}, err
	}
	defer buf.Close()

	data := make([]byte, buf.Len())
	copy(data, buf.GetBytes())

	return model.Frame{
		Data:       data,
		Image:      img,
		Width:      mat.Cols(),
		Height:     mat.Rows(),
		Camera:     s.camera,
		CapturedAt: time.Now(),
	}, nil
}

// Stop ends capture and releases the device.
func (s *WebcamSource) Stop() error {
	s.mu.Lock()
	capture, cancel := s.capture, s.cancel
	s.capture, s.cancel = nil, nil
	s.mu.Unlock()

	if capture == nil {
		return nil
	}
	cancel()
	s.wg.Wait()
	s.busy.Store(false)
	return capture.Close()
}
