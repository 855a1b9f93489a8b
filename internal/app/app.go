package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/multierr"

	"objectlens/internal/config"
	"objectlens/internal/logger"
	"objectlens/internal/pipeline"
	"objectlens/internal/realtime"
	"objectlens/internal/render"
	"objectlens/internal/routes"
	"objectlens/internal/service/ai"
	"objectlens/internal/service/camera"
	"objectlens/internal/service/enrichment"
	"objectlens/internal/service/websocket"
)

// shutdownTimeout bounds how long in-flight requests may take once a signal arrives.
const shutdownTimeout = 10 * time.Second

type App struct {
	config     *config.Config
	logger     *logger.Logger
	pipeline   *pipeline.Pipeline
	controller *realtime.Controller
	source     realtime.FrameSource
	hubService *websocket.HubService
	server     *http.Server

	// closers are released in reverse order on shutdown.
	closers []io.Closer
}

func NewApp(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	log, err := logger.NewLogger(cfg)
	if err != nil {
		return nil, err
	}
	a := &App{config: cfg, logger: log}

	detector, err := a.newDetector()
	if err != nil {
		a.close()
		return nil, err
	}

	enricher, err := enrichment.NewClient(ctx, cfg, log)
	if err != nil {
		a.close()
		return nil, err
	}
	if enricher != nil {
		a.closers = append(a.closers, enricher)
	}

	a.hubService = websocket.NewHubService(log)
	a.pipeline = pipeline.New(detector, enricher, newRenderer(cfg), a.hubService, pipeline.Options{
		DetectTimeout: cfg.DetectTimeout,
		EnrichTimeout: cfg.EnrichTimeout,
		MaxEnrichSide: cfg.EnrichmentMaxSide,
		Threshold:     cfg.ConfidenceThreshold,
	}, log)

	opts := realtime.Options{
		Interval: cfg.FrameInterval,
		OnFatal: func(err error) {
			log.Error("❌ real-time loop stopped: %v", err)
		},
	}
	if cfg.MotionThreshold > 0 {
		gate := ai.NewMotionGate(cfg.MotionThreshold, log)
		a.closers = append(a.closers, gate)
		opts.Gate = gate
	}
	a.controller = realtime.NewController(a.pipeline, opts, log)

	switch cfg.FrameSource {
	case "webcam":
		a.source = camera.NewWebcamSource(cfg.CameraDevice, cfg.CameraName, log)
	default:
		a.source = camera.NewUDPSource(cfg.CamerasPort, cfg.CameraName, log)
	}

	router := routes.SetupRoutes(routes.Deps{
		Pipeline:   a.pipeline,
		Controller: a.controller,
		Source:     a.source,
		Viewers:    a.hubService,
		LogDir:     cfg.LogDirectory,
		Logger:     log,
	})
	a.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return a, nil
}

func (a *App) newDetector() (pipeline.LocalDetector, error) {
	switch a.config.Detector {
	case "http":
		return ai.NewHTTPDetector(a.config.DetectorURL, a.config.DetectorMinScore, nil, a.logger), nil
	case "dnn":
		d := ai.NewDNNDetector(a.config, a.logger)
		a.closers = append(a.closers, d)
		return d, nil
	default:
		return nil, fmt.Errorf("unsupported detector: %s", a.config.Detector)
	}
}

func newRenderer(cfg *config.Config) render.Renderer {
	if cfg.Renderer == "opencv" {
		return render.NewCVRenderer()
	}
	return render.NewGGRenderer()
}

// Run serves until SIGINT or SIGTERM. The real-time loop is stopped before the
// HTTP server so no pass publishes to a closing hub.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	defer a.close()

	go a.hubService.Run(ctx)

	if err := a.pipeline.Init(ctx); err != nil {
		a.logger.Error("❌ local detector failed to load, retry with /api/detector/reload: %v", err)
	}

	fmt.Printf("🚀 Object Lens Server\n")
	fmt.Printf("📍 URL: http://localhost:%d\n", a.config.Port)
	fmt.Printf("📷 Source: %s (%s)\n", a.config.FrameSource, a.config.CameraName)
	fmt.Printf("🤖 Detector: %s\n", a.config.Detector)
	fmt.Printf("✨ Enrichment: %s\n", a.config.EnrichmentProvider)

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- a.server.ListenAndServe()
	}()

	return shutdown(ctx, serveErr, a.controller, a.server, a.logger)
}

type stopper interface {
	Stop() error
}

type shutdowner interface {
	Shutdown(ctx context.Context) error
}

// shutdown waits for the server to fail or ctx to end, then stops the loop
// before the server.
func shutdown(ctx context.Context, serveErr <-chan error, loop stopper, server shutdowner, log *logger.Logger) error {
	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return multierr.Append(err, loop.Stop())
	case <-ctx.Done():
	}

	log.Info("🛑 shutting down")
	err := loop.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return multierr.Append(err, server.Shutdown(shutdownCtx))
}

func (a *App) close() {
	var err error
	for i := len(a.closers) - 1; i >= 0; i-- {
		err = multierr.Append(err, a.closers[i].Close())
	}
	if err != nil {
		a.logger.Error("Error releasing resources: %v", err)
	}
	a.logger.Close()
}
