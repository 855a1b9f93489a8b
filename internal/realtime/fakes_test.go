package realtime

import (
	"context"
	"sync"

	"go.uber.org/atomic"

	"objectlens/internal/model"
	"objectlens/internal/pipeline"
)

type fakeRunner struct {
	err error
	// gate, when set, blocks Run until it is closed or ctx is done.
	gate chan struct{}
	runs atomic.Int32

	mu        sync.Mutex
	gen       uint64
	frames    []model.Frame
	committed []uint64
	lastCtx   context.Context
	// liveAtInvalidate records, per Invalidate, whether the last pass's ctx was still live.
	liveAtInvalidate []bool
}

func (f *fakeRunner) Begin() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gen++
	return f.gen
}

func (f *fakeRunner) Invalidate() {
	f.mu.Lock()
	f.liveAtInvalidate = append(f.liveAtInvalidate, f.lastCtx != nil && f.lastCtx.Err() == nil)
	f.mu.Unlock()
	f.Begin()
}

func (f *fakeRunner) Run(ctx context.Context, g uint64, frame model.Frame) (*pipeline.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.runs.Inc()
	f.mu.Lock()
	f.frames = append(f.frames, frame)
	f.lastCtx = ctx
	f.mu.Unlock()

	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return &pipeline.Result{Generation: g, Frame: frame}, nil
}

func (f *fakeRunner) Commit(g uint64, _ *pipeline.Result) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if g != f.gen {
		return false
	}
	f.committed = append(f.committed, g)
	return true
}

func (f *fakeRunner) cameras() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.frames))
	for i, fr := range f.frames {
		out[i] = fr.Camera
	}
	return out
}

func (f *fakeRunner) invalidations() []bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]bool(nil), f.liveAtInvalidate...)
}

func (f *fakeRunner) commits() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.committed)
}

type fakeSource struct {
	frames   chan model.Frame
	startErr error
	starts   atomic.Int32
	stops    atomic.Int32
}

func newFakeSource() *fakeSource {
	return &fakeSource{frames: make(chan model.Frame)}
}

func (f *fakeSource) Start(context.Context) (<-chan model.Frame, error) {
	f.starts.Inc()
	if f.startErr != nil {
		return nil, f.startErr
	}
	return f.frames, nil
}

func (f *fakeSource) Stop() error {
	f.stops.Inc()
	return nil
}
