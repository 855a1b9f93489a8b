package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"go.uber.org/multierr"

	"objectlens/internal/logger"
	"objectlens/internal/model"
	"objectlens/internal/reconcile"
)

// ErrStale is returned by Run when a newer generation started before the pass
// reached its next collaborator call or finished.
var ErrStale = errors.New("pass superseded by a newer generation")

// Run performs one detection pass issued with generation g. It does not commit.
//
// A failed detector call leaves the pass with zero local detections and a failed
// enrichment call degrades it to local-only records. The pass fails only when
// neither collaborator produced anything, or when the detector is unavailable.
func (p *Pipeline) Run(ctx context.Context, g uint64, frame model.Frame) (*Result, error) {
	return p.run(ctx, g, frame, true)
}

// run performs the pass. With abortStale unset a superseded pass still runs to
// completion; only its commit is declined.
func (p *Pipeline) run(ctx context.Context, g uint64, frame model.Frame, abortStale bool) (*Result, error) {
	if state := p.DetectorState(); state.Phase != DetectorReady {
		return nil, fmt.Errorf("%w: detector is %s", model.ErrModelUnavailable, state.Phase)
	}
	if err := p.check(ctx, g, abortStale); err != nil {
		return nil, err
	}

	res := &Result{
		ID:         uuid.New(),
		Generation: g,
		Frame:      frame,
		StartedAt:  time.Now(),
	}
	log := p.logger.WithFields(logger.Fields{"generation": g, "camera": frame.Camera})

	detections, err := p.detect(ctx, frame)
	if err := p.check(ctx, g, abortStale); err != nil {
		return nil, err
	}
	if err != nil {
		if errors.Is(err, model.ErrModelUnavailable) {
			p.fail(err)
			return nil, err
		}
		log.Warning("local detection failed, continuing without boxes: %v", err)
		res.DetectErr = err
	}
	res.Detections = sanitize(detections, frame.Width, frame.Height)

	if p.enricher != nil {
		resp, err := p.enrich(ctx, frame, candidateLabels(res.Detections))
		if err := p.check(ctx, g, abortStale); err != nil {
			return nil, err
		}
		if err != nil {
			log.Warning("⚠️ enrichment failed, degrading to local results: %v", err)
			res.EnrichErr = err
		} else {
			res.Enrichment = resp
		}
	}

	if res.DetectErr != nil && res.Enrichment == nil {
		return nil, fmt.Errorf("analysis failed: %w", multierr.Combine(res.DetectErr, res.EnrichErr))
	}

	res.Records = reconcile.Reconcile(res.Detections, res.Enrichment)
	res.Degraded = res.Enrichment == nil
	res.Duration = time.Since(res.StartedAt)
	log.Debug("pass finished in %s with %d records (degraded=%t)", res.Duration, len(res.Records), res.Degraded)
	return res, nil
}

func (p *Pipeline) check(ctx context.Context, g uint64, abortStale bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if abortStale && p.Stale(g) {
		return ErrStale
	}
	return nil
}

func (p *Pipeline) detect(ctx context.Context, frame model.Frame) ([]model.Detection, error) {
	cctx, cancel := withTimeout(ctx, p.opts.DetectTimeout)
	defer cancel()

	detections, err := call(cctx, func(ctx context.Context) ([]model.Detection, error) {
		return p.detector.Detect(ctx, frame)
	})
	switch {
	case err == nil:
		return detections, nil
	case ctx.Err() != nil:
		return nil, ctx.Err()
	case errors.Is(err, context.DeadlineExceeded):
		return nil, fmt.Errorf("%w: timed out after %s", model.ErrDetectionFailed, p.opts.DetectTimeout)
	case errors.Is(err, model.ErrModelUnavailable), errors.Is(err, model.ErrDetectionFailed):
		return nil, err
	default:
		return nil, fmt.Errorf("%w: %v", model.ErrDetectionFailed, err)
	}
}

func (p *Pipeline) enrich(ctx context.Context, frame model.Frame, labels []string) (*model.EnrichmentResponse, error) {
	payload, err := p.payload(frame)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrNetwork, err)
	}

	cctx, cancel := withTimeout(ctx, p.opts.EnrichTimeout)
	defer cancel()

	resp, err := call(cctx, func(ctx context.Context) (*model.EnrichmentResponse, error) {
		return p.enricher.Analyze(ctx, payload, labels)
	})
	switch {
	case err == nil && resp == nil:
		return nil, fmt.Errorf("%w: empty response", model.ErrParse)
	case err == nil:
		return resp, nil
	case ctx.Err() != nil:
		return nil, ctx.Err()
	case errors.Is(err, context.DeadlineExceeded):
		return nil, fmt.Errorf("%w: timed out after %s", model.ErrNetwork, p.opts.EnrichTimeout)
	case errors.Is(err, model.ErrNetwork), errors.Is(err, model.ErrParse):
		return nil, err
	default:
		return nil, fmt.Errorf("%w: %v", model.ErrNetwork, err)
	}
}

// payload encodes the frame for enrichment, fitting it into MaxEnrichSide.
func (p *Pipeline) payload(frame model.Frame) ([]byte, error) {
	side := p.opts.MaxEnrichSide
	fits := side <= 0 || (frame.Width <= side && frame.Height <= side)
	if fits && len(frame.Data) > 0 {
		return frame.Data, nil
	}
	if frame.Image == nil {
		return nil, fmt.Errorf("%w: frame has no pixels", model.ErrInvalidFrame)
	}
	img := frame.Image
	if !fits {
		img = imaging.Fit(img, side, side, imaging.Lanczos)
	}
	return model.EncodeJPEG(img)
}

// sanitize drops unlabeled detections and clamps scores and boxes to the frame.
func sanitize(detections []model.Detection, width, height int) []model.Detection {
	out := make([]model.Detection, 0, len(detections))
	for _, d := range detections {
		d.Label = strings.TrimSpace(d.Label)
		if d.Label == "" {
			continue
		}
		d.Confidence = model.ClampConfidence(d.Confidence)
		if width > 0 && height > 0 {
			d.BBox = d.BBox.Clamp(width, height)
		}
		out = append(out, d)
	}
	return out
}

// candidateLabels returns the distinct detection labels in detection order.
func candidateLabels(detections []model.Detection) []string {
	seen := make(map[string]struct{}, len(detections))
	labels := make([]string, 0, len(detections))
	for _, d := range detections {
		if _, ok := seen[d.Label]; ok {
			continue
		}
		seen[d.Label] = struct{}{}
		labels = append(labels, d.Label)
	}
	return labels
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

// call runs fn but returns as soon as ctx is done, even if fn ignores ctx.
func call[T any](ctx context.Context, fn func(context.Context) (T, error)) (T, error) {
	type outcome struct {
		value T
		err   error
	}
	done := make(chan outcome, 1)
	go func() {
		v, err := fn(ctx)
		done <- outcome{v, err}
	}()

	select {
	case o := <-done:
		return o.value, o.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
