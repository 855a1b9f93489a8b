package pipeline

import (
	"bytes"
	"context"
	"image"
	"sync"

	"go.uber.org/atomic"

	"objectlens/internal/model"
)

type fakeDetector struct {
	detections []model.Detection
	err        error
	loadErr    error
	// gate, when set, blocks Detect until it is closed or ctx is done.
	gate  chan struct{}
	calls atomic.Int32
}

func (f *fakeDetector) Detect(ctx context.Context, _ model.Frame) ([]model.Detection, error) {
	f.calls.Inc()
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.detections, f.err
}

func (f *fakeDetector) Load(context.Context) error {
	return f.loadErr
}

type fakeEnricher struct {
	resp  *model.EnrichmentResponse
	err   error
	gate  chan struct{}
	calls atomic.Int32
	// analyze, when set, replaces resp, err and gate. n counts calls from 1.
	analyze func(ctx context.Context, n int32) (*model.EnrichmentResponse, error)

	mu     sync.Mutex
	labels []string
	image  []byte
}

func (f *fakeEnricher) Analyze(ctx context.Context, img []byte, labels []string) (*model.EnrichmentResponse, error) {
	n := f.calls.Inc()
	f.mu.Lock()
	f.labels = labels
	f.image = img
	f.mu.Unlock()

	if f.analyze != nil {
		return f.analyze(ctx, n)
	}
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.resp, f.err
}

func (f *fakeEnricher) lastLabels() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.labels
}

func (f *fakeEnricher) lastImage() image.Image {
	f.mu.Lock()
	defer f.mu.Unlock()
	img, _, err := image.Decode(bytes.NewReader(f.image))
	if err != nil {
		return nil
	}
	return img
}

type fakePublisher struct {
	mu       sync.Mutex
	overlays []*Overlay
}

func (f *fakePublisher) Publish(o *Overlay) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.overlays = append(f.overlays, o)
}

func (f *fakePublisher) all() []*Overlay {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*Overlay(nil), f.overlays...)
}

func (f *fakePublisher) last() *Overlay {
	all := f.all()
	if len(all) == 0 {
		return nil
	}
	return all[len(all)-1]
}

type fakeRenderer struct {
	calls atomic.Int32
}

func (f *fakeRenderer) Draw(img image.Image, _ []model.DetectionRecord) (image.Image, error) {
	f.calls.Inc()
	return img, nil
}
