package pipeline

import (
	"context"
	"image"
	_ "image/jpeg"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"objectlens/internal/logger"
	"objectlens/internal/model"
)

func parkDetections() []model.Detection {
	return []model.Detection{
		{Label: "dog", Confidence: 0.91, BBox: model.BBox{X: 10, Y: 10, W: 100, H: 100}},
		{Label: "frisbee", Confidence: 0.76, BBox: model.BBox{X: 120, Y: 20, W: 40, H: 40}},
	}
}

func parkEnrichment() *model.EnrichmentResponse {
	return &model.EnrichmentResponse{
		Objects: []model.EnrichedObject{
			{Name: "Dog", Category: "Animal", Description: "A golden retriever", Confidence: model.Float64Ptr(0.95)},
			{Name: "Person", Category: "Person", Description: "Someone throwing", Confidence: model.Float64Ptr(0.7)},
		},
		SceneDescription: model.StringPtr("A sunny park scene"),
	}
}

func testFrame(t *testing.T, w, h int) model.Frame {
	t.Helper()
	frame, err := model.FrameFromImage(image.NewRGBA(image.Rect(0, 0, w, h)))
	require.NoError(t, err)
	frame.Camera = "yard"
	return frame
}

type harness struct {
	detector  *fakeDetector
	enricher  *fakeEnricher
	renderer  *fakeRenderer
	publisher *fakePublisher
	pipeline  *Pipeline
}

func newHarness(t *testing.T, opts Options) *harness {
	t.Helper()
	h := &harness{
		detector:  &fakeDetector{detections: parkDetections()},
		enricher:  &fakeEnricher{resp: parkEnrichment()},
		renderer:  &fakeRenderer{},
		publisher: &fakePublisher{},
	}
	h.pipeline = New(h.detector, h.enricher, h.renderer, h.publisher, opts, logger.Discard())
	require.NoError(t, h.pipeline.Init(context.Background()))
	return h
}

func labels(records []model.DetectionRecord) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.Label
	}
	return out
}

func TestRun_RequiresReadyDetector(t *testing.T) {
	d := &fakeDetector{}
	p := New(d, nil, nil, nil, Options{}, logger.Discard())

	_, err := p.Run(context.Background(), p.Begin(), testFrame(t, 10, 10))
	assert.ErrorIs(t, err, model.ErrModelUnavailable)
	assert.Zero(t, d.calls.Load())
}

func TestInit_LoadFailure(t *testing.T) {
	d := &fakeDetector{loadErr: assert.AnError}
	p := New(d, nil, nil, nil, Options{}, logger.Discard())

	err := p.Init(context.Background())
	assert.ErrorIs(t, err, model.ErrModelUnavailable)
	assert.Equal(t, DetectorFailed, p.DetectorState().Phase)
	assert.NotEmpty(t, p.DetectorState().Reason)

	d.loadErr = nil
	require.NoError(t, p.Reload(context.Background()))
	assert.Equal(t, DetectorState{Phase: DetectorReady}, p.DetectorState())
}

func TestAnalyze_FullPass(t *testing.T) {
	h := newHarness(t, Options{Threshold: 0.5})

	res, err := h.pipeline.Analyze(context.Background(), testFrame(t, 200, 200))
	require.NoError(t, err)

	assert.False(t, res.Degraded)
	assert.Equal(t, []string{"Dog", "Person", "frisbee", "Scene"}, labels(res.Records))
	assert.Equal(t, []string{"dog", "frisbee"}, h.enricher.lastLabels())
	assert.Same(t, res, h.pipeline.Latest())

	overlay := h.publisher.last()
	require.NotNil(t, overlay)
	assert.Equal(t, res.Generation, overlay.Generation)
	assert.Equal(t, "yard", overlay.Camera)
	assert.Equal(t, []string{"Dog", "frisbee"}, labels(overlay.Boxed))
	assert.Equal(t, []string{"Person", "Scene"}, labels(overlay.Panel))
	assert.EqualValues(t, 1, h.renderer.calls.Load())
}

func TestRun_DegradesWhenEnrichmentFails(t *testing.T) {
	for _, cause := range []error{model.ErrNetwork, model.ErrParse, assert.AnError} {
		h := newHarness(t, Options{})
		h.enricher.resp = nil
		h.enricher.err = cause

		res, err := h.pipeline.Run(context.Background(), h.pipeline.Begin(), testFrame(t, 200, 200))
		require.NoError(t, err)

		assert.True(t, res.Degraded)
		assert.Error(t, res.EnrichErr)
		assert.True(t, model.IsRecoverable(res.EnrichErr))
		require.Len(t, res.Records, 2)
		for _, r := range res.Records {
			assert.Equal(t, model.ProvenanceLocalOnly, r.Provenance)
		}
	}
}

func TestRun_DetectionFailureKeepsEnrichment(t *testing.T) {
	h := newHarness(t, Options{})
	h.detector.detections = nil
	h.detector.err = assert.AnError

	res, err := h.pipeline.Run(context.Background(), h.pipeline.Begin(), testFrame(t, 200, 200))
	require.NoError(t, err)

	assert.ErrorIs(t, res.DetectErr, model.ErrDetectionFailed)
	assert.Empty(t, res.Detections)
	assert.Empty(t, h.enricher.lastLabels())
	assert.Equal(t, []string{"Dog", "Person", "Scene"}, labels(res.Records))
	for _, r := range res.Records {
		assert.Nil(t, r.BBox)
	}
}

func TestAnalyze_BothCollaboratorsFail(t *testing.T) {
	h := newHarness(t, Options{})
	h.detector.err = model.ErrDetectionFailed
	h.enricher.err = model.ErrNetwork

	res, err := h.pipeline.Analyze(context.Background(), testFrame(t, 200, 200))
	assert.Nil(t, res)
	assert.ErrorIs(t, err, model.ErrDetectionFailed)
	assert.ErrorIs(t, err, model.ErrNetwork)
	assert.Empty(t, h.publisher.all())
	assert.Nil(t, h.pipeline.Latest())
}

func TestRun_DetectorTimeout(t *testing.T) {
	h := newHarness(t, Options{DetectTimeout: 20 * time.Millisecond})
	h.detector.gate = make(chan struct{})

	res, err := h.pipeline.Run(context.Background(), h.pipeline.Begin(), testFrame(t, 200, 200))
	require.NoError(t, err)
	assert.ErrorIs(t, res.DetectErr, model.ErrDetectionFailed)
	assert.False(t, res.Degraded)
}

func TestRun_EnrichmentTimeout(t *testing.T) {
	h := newHarness(t, Options{EnrichTimeout: 20 * time.Millisecond})
	h.enricher.gate = make(chan struct{})

	res, err := h.pipeline.Run(context.Background(), h.pipeline.Begin(), testFrame(t, 200, 200))
	require.NoError(t, err)
	assert.ErrorIs(t, res.EnrichErr, model.ErrNetwork)
	assert.True(t, res.Degraded)
	assert.Len(t, res.Records, 2)
}

func TestRun_ModelUnavailableFailsDetector(t *testing.T) {
	h := newHarness(t, Options{})
	h.detector.err = model.ErrModelUnavailable

	_, err := h.pipeline.Run(context.Background(), h.pipeline.Begin(), testFrame(t, 200, 200))
	assert.ErrorIs(t, err, model.ErrModelUnavailable)
	assert.Equal(t, DetectorFailed, h.pipeline.DetectorState().Phase)
	assert.Zero(t, h.enricher.calls.Load())

	_, err = h.pipeline.Run(context.Background(), h.pipeline.Begin(), testFrame(t, 200, 200))
	assert.ErrorIs(t, err, model.ErrModelUnavailable)
	assert.EqualValues(t, 1, h.detector.calls.Load())
}

func TestRun_CancelledMidPass(t *testing.T) {
	h := newHarness(t, Options{})
	h.enricher.gate = make(chan struct{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := h.pipeline.Run(ctx, h.pipeline.Begin(), testFrame(t, 200, 200))
		done <- err
	}()

	require.Eventually(t, func() bool { return h.enricher.calls.Load() == 1 }, time.Second, time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestStaleResultIsDiscarded(t *testing.T) {
	h := newHarness(t, Options{})
	slow := make(chan struct{})
	h.enricher.analyze = func(ctx context.Context, n int32) (*model.EnrichmentResponse, error) {
		if n == 1 {
			<-slow
			return parkEnrichment(), nil
		}
		return nil, model.ErrNetwork
	}

	g1 := h.pipeline.Begin()
	first := make(chan error, 1)
	go func() {
		_, err := h.pipeline.Run(context.Background(), g1, testFrame(t, 200, 200))
		first <- err
	}()
	require.Eventually(t, func() bool { return h.enricher.calls.Load() == 1 }, time.Second, time.Millisecond)

	// a newer pass starts and completes while the first is still waiting on enrichment
	g2 := h.pipeline.Begin()
	res2, err := h.pipeline.Run(context.Background(), g2, testFrame(t, 200, 200))
	require.NoError(t, err)
	require.True(t, res2.Degraded)
	require.True(t, h.pipeline.Commit(g2, res2))

	close(slow)
	assert.ErrorIs(t, <-first, ErrStale)
	assert.False(t, h.pipeline.Commit(g1, &Result{Generation: g1}))

	overlays := h.publisher.all()
	require.Len(t, overlays, 1)
	assert.Equal(t, g2, overlays[0].Generation)
	assert.Same(t, res2, h.pipeline.Latest())
}

func TestAnalyze_SurvivesNewerGeneration(t *testing.T) {
	h := newHarness(t, Options{})
	h.detector.gate = make(chan struct{})

	type outcome struct {
		res *Result
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := h.pipeline.Analyze(context.Background(), testFrame(t, 200, 200))
		done <- outcome{res, err}
	}()
	require.Eventually(t, func() bool { return h.detector.calls.Load() == 1 }, time.Second, time.Millisecond)

	// a live pass starts while the still image is being detected
	h.pipeline.Begin()
	close(h.detector.gate)

	out := <-done
	require.NoError(t, out.err)
	require.NotNil(t, out.res)
	assert.Equal(t, []string{"Dog", "Person", "frisbee", "Scene"}, labels(out.res.Records))
	assert.Nil(t, h.pipeline.Latest(), "superseded still image must not be committed")
	assert.Empty(t, h.publisher.all())
}

func TestInvalidateDiscardsInFlightCommit(t *testing.T) {
	h := newHarness(t, Options{})
	g := h.pipeline.Begin()
	res, err := h.pipeline.Run(context.Background(), g, testFrame(t, 200, 200))
	require.NoError(t, err)

	h.pipeline.Invalidate()
	assert.False(t, h.pipeline.Commit(g, res))
	assert.Empty(t, h.publisher.all())
}

func TestSetThreshold_RefiltersWithoutDetection(t *testing.T) {
	h := newHarness(t, Options{Threshold: 0.5})
	_, err := h.pipeline.Analyze(context.Background(), testFrame(t, 200, 200))
	require.NoError(t, err)

	require.NoError(t, h.pipeline.SetThreshold(0.8))

	assert.EqualValues(t, 1, h.detector.calls.Load())
	assert.EqualValues(t, 1, h.enricher.calls.Load())
	assert.Equal(t, 0.8, h.pipeline.Threshold())
	assert.Equal(t, []string{"Dog", "Scene"}, labels(h.pipeline.Filtered()))

	overlays := h.publisher.all()
	require.Len(t, overlays, 2)
	assert.Equal(t, []string{"Dog"}, labels(overlays[1].Boxed))
	assert.Equal(t, []string{"Scene"}, labels(overlays[1].Panel))
	assert.Equal(t, 0.8, overlays[1].Threshold)

	assert.ErrorIs(t, h.pipeline.SetThreshold(1.2), model.ErrInvalidThreshold)
	assert.ErrorIs(t, h.pipeline.SetThreshold(-0.1), model.ErrInvalidThreshold)
	assert.Equal(t, 0.8, h.pipeline.Threshold())
}

func TestSetThreshold_BeforeAnyPass(t *testing.T) {
	h := newHarness(t, Options{})
	require.NoError(t, h.pipeline.SetThreshold(0.3))
	assert.Empty(t, h.publisher.all())
	assert.Empty(t, h.pipeline.Filtered())
}

func TestRun_SanitizesDetections(t *testing.T) {
	d := &fakeDetector{detections: []model.Detection{
		{Label: "  ", Confidence: 0.9},
		{Label: " cat ", Confidence: 1.7, BBox: model.BBox{X: -5, Y: 10, W: 30, H: 500}},
	}}
	p := New(d, nil, nil, nil, Options{}, logger.Discard())
	require.NoError(t, p.Init(context.Background()))

	res, err := p.Run(context.Background(), p.Begin(), testFrame(t, 100, 100))
	require.NoError(t, err)
	require.Len(t, res.Detections, 1)
	got := res.Detections[0]
	assert.Equal(t, "cat", got.Label)
	assert.Equal(t, 1.0, got.Confidence)
	assert.Equal(t, model.BBox{X: 0, Y: 10, W: 25, H: 90}, got.BBox)
	assert.True(t, res.Degraded)
}

func TestRun_DownscalesEnrichmentPayload(t *testing.T) {
	h := newHarness(t, Options{MaxEnrichSide: 100})

	_, err := h.pipeline.Run(context.Background(), h.pipeline.Begin(), testFrame(t, 400, 200))
	require.NoError(t, err)

	img := h.enricher.lastImage()
	require.NotNil(t, img)
	assert.Equal(t, 100, img.Bounds().Dx())
	assert.Equal(t, 50, img.Bounds().Dy())
}

func TestCandidateLabels(t *testing.T) {
	got := candidateLabels([]model.Detection{{Label: "dog"}, {Label: "cat"}, {Label: "dog"}})
	assert.Equal(t, []string{"dog", "cat"}, got)
	assert.Empty(t, candidateLabels(nil))
}
