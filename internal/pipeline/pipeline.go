// Package pipeline runs detection passes: local detection, enrichment and
// reconciliation for one frame, with a generation counter that lets a newer
// pass supersede an older one.
package pipeline

import (
	"context"
	"sync"
	"time"

	"go.uber.org/atomic"

	"objectlens/internal/logger"
	"objectlens/internal/model"
	"objectlens/internal/reconcile"
	"objectlens/internal/render"
)

// LocalDetector returns labeled boxes for a frame. Implementations must return
// once ctx is done.
type LocalDetector interface {
	Detect(ctx context.Context, frame model.Frame) ([]model.Detection, error)
}

// Loader is implemented by detectors that need initialization before the first pass.
type Loader interface {
	Load(ctx context.Context) error
}

// EnrichmentClient describes the objects and scene of an encoded image.
type EnrichmentClient interface {
	Analyze(ctx context.Context, image []byte, candidateLabels []string) (*model.EnrichmentResponse, error)
}

// Publisher receives every overlay the pipeline renders.
type Publisher interface {
	Publish(overlay *Overlay)
}

type Options struct {
	// DetectTimeout and EnrichTimeout bound each collaborator call. 0 means no timeout.
	DetectTimeout time.Duration
	EnrichTimeout time.Duration
	// MaxEnrichSide bounds the longest side of the image sent for enrichment. 0 sends the frame as is.
	MaxEnrichSide int
	Threshold     float64
}

type Pipeline struct {
	detector  LocalDetector
	enricher  EnrichmentClient
	renderer  render.Renderer
	publisher Publisher
	opts      Options
	logger    *logger.Logger

	generation *atomic.Uint64
	threshold  *atomic.Float64

	stateMu sync.RWMutex
	state   DetectorState

	// mu orders generation bumps against commits.
	mu     sync.Mutex
	latest *Result
}

// New creates a pipeline. enricher, renderer and publisher may be nil: without an
// enricher every pass runs in degraded mode, without a renderer overlays carry the
// raw frame.
func New(detector LocalDetector, enricher EnrichmentClient, renderer render.Renderer, publisher Publisher, opts Options, log *logger.Logger) *Pipeline {
	if !reconcile.ValidThreshold(opts.Threshold) {
		opts.Threshold = reconcile.DefaultThreshold
	}
	return &Pipeline{
		detector:   detector,
		enricher:   enricher,
		renderer:   renderer,
		publisher:  publisher,
		opts:       opts,
		logger:     log.WithFields(logger.Fields{"component": "pipeline"}),
		generation: atomic.NewUint64(0),
		threshold:  atomic.NewFloat64(opts.Threshold),
	}
}

// Begin starts a new generation and returns it. Every pass issued earlier becomes stale.
func (p *Pipeline) Begin() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.generation.Inc()
}

// Invalidate makes every in-flight pass stale without starting a new one.
func (p *Pipeline) Invalidate() {
	p.Begin()
}

// Generation returns the current generation.
func (p *Pipeline) Generation() uint64 {
	return p.generation.Load()
}

// Stale reports whether a pass issued with generation g has been superseded.
func (p *Pipeline) Stale(g uint64) bool {
	return g != p.generation.Load()
}

// Commit stores res as the latest pass and publishes its overlay, unless a newer
// generation has started since res was issued. It reports whether res was kept.
func (p *Pipeline) Commit(g uint64, res *Result) bool {
	if res == nil {
		return false
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.Stale(g) {
		p.logger.Debug("discarding pass %d, generation is now %d", g, p.generation.Load())
		return false
	}
	p.latest = res
	p.publishLocked(res)
	return true
}

// Latest returns the last committed pass, or nil.
func (p *Pipeline) Latest() *Result {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.latest
}

// Threshold returns the confidence threshold applied to published overlays.
func (p *Pipeline) Threshold() float64 {
	return p.threshold.Load()
}

// SetThreshold changes the confidence threshold and re-publishes the latest pass.
// No detection or enrichment call is made.
func (p *Pipeline) SetThreshold(t float64) error {
	if !reconcile.ValidThreshold(t) {
		return model.ErrInvalidThreshold
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.threshold.Store(t)
	if p.latest != nil {
		p.publishLocked(p.latest)
	}
	return nil
}

// Filtered returns the latest pass's records at the current threshold.
func (p *Pipeline) Filtered() []model.DetectionRecord {
	res := p.Latest()
	if res == nil {
		return []model.DetectionRecord{}
	}
	return reconcile.Filter(res.Records, p.Threshold())
}

// Analyze runs and commits a single pass for a still image. A newer pass,
// e.g. from the live loop, does not abort it: the result is returned and only
// the commit is skipped.
func (p *Pipeline) Analyze(ctx context.Context, frame model.Frame) (*Result, error) {
	g := p.Begin()
	res, err := p.run(ctx, g, frame, false)
	if err != nil {
		return nil, err
	}
	p.Commit(g, res)
	return res, nil
}

func (p *Pipeline) publishLocked(res *Result) {
	if p.publisher == nil {
		return
	}
	p.publisher.Publish(p.Render(res))
}

// Render filters res at the current threshold and draws the boxed records on its frame.
func (p *Pipeline) Render(res *Result) *Overlay {
	threshold := p.threshold.Load()
	filtered := reconcile.Filter(res.Records, threshold)
	boxed, panel := render.Split(filtered)

	img := res.Frame.Image
	if p.renderer != nil && img != nil {
		drawn, err := p.renderer.Draw(img, filtered)
		if err != nil {
			p.logger.Warning("failed to draw overlay for pass %d: %v", res.Generation, err)
		} else {
			img = drawn
		}
	}

	return &Overlay{
		Generation: res.Generation,
		Camera:     res.Frame.Camera,
		Threshold:  threshold,
		Image:      img,
		Boxed:      nonNil(boxed),
		Panel:      nonNil(panel),
	}
}

func nonNil(records []model.DetectionRecord) []model.DetectionRecord {
	if records == nil {
		return []model.DetectionRecord{}
	}
	return records
}
