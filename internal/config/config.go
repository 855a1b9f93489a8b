package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"go.uber.org/multierr"
)

type Config struct {
	Port        int    `validate:"min=1,max=65535"`
	CamerasPort int    `validate:"min=1,max=65535"`
	CameraName  string `validate:"required"`
	// CameraDevice is the local webcam index used when FrameSource is "webcam".
	CameraDevice int    `validate:"min=0"`
	FrameSource  string `validate:"oneof=udp webcam"`

	Detector         string `validate:"oneof=dnn http"`
	ModelPath        string `validate:"required_if=Detector dnn"`
	ConfigPath       string
	DetectorURL      string  `validate:"required_if=Detector http,omitempty,url"`
	DetectorMinScore float64 `validate:"min=0,max=1"`

	EnrichmentProvider string `validate:"oneof=none http gemini openai claude"`
	EnrichmentURL      string `validate:"required_if=EnrichmentProvider http,omitempty,url"`
	EnrichmentAPIKey   string
	EnrichmentModel    string
	EnrichmentBaseURL  string `validate:"omitempty,url"`
	// EnrichmentMaxSide bounds the longest side of the image sent for enrichment. 0 sends it as is.
	EnrichmentMaxSide int `validate:"min=0"`

	DetectTimeout time.Duration `validate:"gt=0"`
	EnrichTimeout time.Duration `validate:"gt=0"`
	// FrameInterval is the minimum spacing between eligible live frames. 0 disables throttling.
	FrameInterval time.Duration `validate:"gte=0"`
	// MotionThreshold is the changed-pixel count a live frame needs to be eligible. 0 disables the motion gate.
	MotionThreshold     int     `validate:"min=0"`
	ConfidenceThreshold float64 `validate:"min=0,max=1"`

	// Renderer selects the overlay backend: pure Go (gg) or OpenCV.
	Renderer string `validate:"oneof=gg opencv"`

	LogDirectory string `validate:"required"`
	LogLevel     string `validate:"oneof=debug info warning error"`
}

// Load builds the configuration from defaults, an optional TOML file named by
// CONFIG_FILE and the environment, in increasing order of precedence. A .env
// file in the working directory is loaded into the environment first.
func Load() (*Config, error) {
	_ = godotenv.Load()

	file, err := readFile(os.Getenv("CONFIG_FILE"))
	if err != nil {
		return nil, err
	}
	src := &source{file: file}

	cfg := &Config{
		Port:         src.getInt("PORT", 8080),
		CamerasPort:  src.getInt("CAMERAS_PORT", 8081),
		CameraName:   src.get("CAMERA_NAME", "camera-1"),
		CameraDevice: src.getInt("CAMERA_DEVICE", 0),
		FrameSource:  src.get("FRAME_SOURCE", "udp"),

		Detector:         src.get("DETECTOR", "dnn"),
		ModelPath:        src.get("MODEL_PATH", filepath.Join(".", "models", "frozen_inference_graph.pb")),
		ConfigPath:       src.get("CONFIG_PATH", filepath.Join(".", "models", "ssd_mobilenet_v1_coco_2017_11_17.pbtxt")),
		DetectorURL:      src.get("DETECTOR_URL", ""),
		DetectorMinScore: src.getFloat("DETECTOR_MIN_SCORE", 0.3),

		EnrichmentProvider: src.get("ENRICHMENT_PROVIDER", "none"),
		EnrichmentURL:      src.get("ENRICHMENT_URL", ""),
		EnrichmentAPIKey:   src.get("ENRICHMENT_API_KEY", ""),
		EnrichmentModel:    src.get("ENRICHMENT_MODEL", ""),
		EnrichmentBaseURL:  src.get("ENRICHMENT_BASE_URL", ""),
		EnrichmentMaxSide:  src.getInt("ENRICHMENT_MAX_SIDE", 1024),

		DetectTimeout:       src.getDuration("DETECT_TIMEOUT", 5*time.Second),
		EnrichTimeout:       src.getDuration("ENRICH_TIMEOUT", 20*time.Second),
		FrameInterval:       src.getDuration("FRAME_INTERVAL", 500*time.Millisecond),
		MotionThreshold:     src.getInt("MOTION_THRESHOLD", 0),
		ConfidenceThreshold: src.getFloat("CONFIDENCE_THRESHOLD", 0.5),

		Renderer: strings.ToLower(src.get("RENDERER", "gg")),

		LogDirectory: src.get("LOG_DIR", filepath.Join(".", "logs")),
		LogLevel:     strings.ToLower(src.get("LOG_LEVEL", "info")),
	}

	if err := src.err; err != nil {
		return nil, fmt.Errorf("invalid configuration value: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

var validate = validator.New()

// Validate checks value ranges and cross-field requirements.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// readFile reads a flat TOML table whose keys are the environment variable
// names in any case, e.g. `detect_timeout = "3s"`.
func readFile(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
	}

	var raw map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse TOML: %w", err)
	}

	values := make(map[string]string, len(raw))
	for k, v := range raw {
		values[strings.ToUpper(k)] = fmt.Sprint(v)
	}
	return values, nil
}

type source struct {
	file map[string]string
	err  error
}

func (s *source) lookup(key string) (string, bool) {
	if value := os.Getenv(key); value != "" {
		return value, true
	}
	value, ok := s.file[key]
	return value, ok && value != ""
}

func (s *source) get(key, defaultValue string) string {
	if value, ok := s.lookup(key); ok {
		return value
	}
	return defaultValue
}

func (s *source) getInt(key string, defaultValue int) int {
	value, ok := s.lookup(key)
	if !ok {
		return defaultValue
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		s.err = multierr.Append(s.err, fmt.Errorf("%s: %w", key, err))
		return defaultValue
	}
	return intValue
}

func (s *source) getFloat(key string, defaultValue float64) float64 {
	value, ok := s.lookup(key)
	if !ok {
		return defaultValue
	}
	floatValue, err := strconv.ParseFloat(value, 64)
	if err != nil {
		s.err = multierr.Append(s.err, fmt.Errorf("%s: %w", key, err))
		return defaultValue
	}
	return floatValue
}

func (s *source) getDuration(key string, defaultValue time.Duration) time.Duration {
	value, ok := s.lookup(key)
	if !ok {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		s.err = multierr.Append(s.err, fmt.Errorf("%s: %w", key, err))
		return defaultValue
	}
	return d
}
