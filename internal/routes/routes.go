package routes

import (
	"net/http"
	"strings"

	"objectlens/internal/handler"
	"objectlens/internal/logger"
	"objectlens/internal/middleware"
	"objectlens/internal/realtime"
)

// Deps are the services the HTTP surface is wired to.
type Deps struct {
	Pipeline   handler.Analyzer
	Controller handler.StreamController
	Source     realtime.FrameSource
	Viewers    handler.Viewers
	LogDir     string
	Logger     *logger.Logger
}

// SetupRoutes registers the API endpoints and wraps the mux with request logging.
func SetupRoutes(d Deps) http.Handler {
	mux := http.NewServeMux()

	// Still image analysis and threshold control
	mux.HandleFunc("POST /api/analyze", handler.AnalyzeHandler(d.Pipeline, d.Logger))
	mux.HandleFunc("GET /api/latest", handler.LatestHandler(d.Pipeline, d.Logger))
	mux.HandleFunc("GET /api/threshold", handler.GetThresholdHandler(d.Pipeline))
	mux.HandleFunc("POST /api/threshold", handler.SetThresholdHandler(d.Pipeline, d.Logger))
	mux.HandleFunc("POST /api/detector/reload", handler.ReloadDetectorHandler(d.Pipeline, d.Logger))

	// Real-time loop
	mux.HandleFunc("POST /api/stream/start", handler.StartStreamHandler(d.Controller, d.Source, d.Logger))
	mux.HandleFunc("POST /api/stream/stop", handler.StopStreamHandler(d.Controller, d.Logger))
	mux.HandleFunc("GET /api/stream/status", handler.StreamStatusHandler(d.Controller, d.Pipeline))
	mux.HandleFunc("GET /api/view", handler.ViewWebsocketHandler(d.Viewers, d.Logger))

	// Log endpoints
	for _, file := range handler.LogFiles {
		level := strings.TrimSuffix(file, ".log")
		mux.HandleFunc("GET /logs/"+level, handler.ShowLogsHandler(d.LogDir, file))
		mux.HandleFunc("POST /logs/"+level+"/clear", handler.ClearLogsHandler(d.Logger, file))
	}

	return middleware.LoggingMiddleware(d.Logger, mux)
}
