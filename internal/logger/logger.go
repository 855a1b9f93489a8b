package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	nested "github.com/antonfisher/nested-logrus-formatter"
	"github.com/sirupsen/logrus"

	"objectlens/internal/config"
)

type Fields = logrus.Fields

// Logger provides leveled logging to the console and to per-level rotating files.
type Logger struct {
	entry  *logrus.Entry
	logDir string
	files  *fileHook
}

// NewLogger creates a Logger writing info.log, warning.log and error.log under the
// configured log directory.
func NewLogger(cfg *config.Config) (*Logger, error) {
	if err := os.MkdirAll(cfg.LogDirectory, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
	}

	base := logrus.New()
	base.SetLevel(level)
	base.SetOutput(os.Stdout)
	base.SetFormatter(&nested.Formatter{
		TimestampFormat: "2006-01-02 15:04:05",
		HideKeys:        false,
		FieldsOrder:     []string{"component", "camera", "generation"},
	})

	hook := newFileHook(cfg.LogDirectory)
	base.AddHook(hook)

	return &Logger{
		entry:  logrus.NewEntry(base),
		logDir: cfg.LogDirectory,
		files:  hook,
	}, nil
}

// Discard returns a Logger that drops every entry.
func Discard() *Logger {
	base := logrus.New()
	base.SetOutput(io.Discard)
	return &Logger{entry: logrus.NewEntry(base)}
}

// WithFields returns a child logger carrying the given fields.
func (l *Logger) WithFields(fields Fields) *Logger {
	return &Logger{entry: l.entry.WithFields(fields), logDir: l.logDir, files: l.files}
}

func (l *Logger) Debug(format string, v ...interface{}) {
	l.entry.Debugf(format, v...)
}

func (l *Logger) Info(format string, v ...interface{}) {
	l.entry.Infof(format, v...)
}

func (l *Logger) Warning(format string, v ...interface{}) {
	l.entry.Warnf(format, v...)
}

func (l *Logger) Error(format string, v ...interface{}) {
	l.entry.Errorf(format, v...)
}

// CleanLogs truncates the specified log file.
func (l *Logger) CleanLogs(fileName string) error {
	if l.logDir == "" {
		return nil
	}
	filePath := filepath.Join(l.logDir, filepath.Base(fileName))
	if err := os.Truncate(filePath, 0); err != nil {
		l.Error("Error truncating %s: %v", fileName, err)
		return err
	}
	l.Info("🧹 %s has been cleared", fileName)
	return nil
}

// Close flushes and closes the log files.
func (l *Logger) Close() error {
	if l.files == nil {
		return nil
	}
	return l.files.Close()
}
