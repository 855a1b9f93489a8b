package logger

import (
	"path/filepath"

	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"
	"gopkg.in/natefinch/lumberjack.v2"
)

// fileHook mirrors every entry into the rotating file for its level.
type fileHook struct {
	infoFile, warningFile, errorFile *lumberjack.Logger

	formatter logrus.Formatter
}

func newFileHook(dir string) *fileHook {
	open := func(name string) *lumberjack.Logger {
		return &lumberjack.Logger{
			Filename:   filepath.Join(dir, name),
			LocalTime:  true,
			MaxSize:    50,
			MaxBackups: 3,
			MaxAge:     7,
		}
	}
	return &fileHook{
		infoFile:    open("info.log"),
		warningFile: open("warning.log"),
		errorFile:   open("error.log"),
		formatter:   &logrus.TextFormatter{DisableColors: true, FullTimestamp: true},
	}
}

func (h *fileHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h *fileHook) Fire(e *logrus.Entry) error {
	line, err := h.formatter.Format(e)
	if err != nil {
		return err
	}
	_, err = h.writer(e.Level).Write(line)
	return err
}

func (h *fileHook) writer(level logrus.Level) *lumberjack.Logger {
	switch {
	case level <= logrus.ErrorLevel:
		return h.errorFile
	case level == logrus.WarnLevel:
		return h.warningFile
	default:
		return h.infoFile
	}
}

func (h *fileHook) Close() error {
	return multierr.Combine(h.infoFile.Close(), h.warningFile.Close(), h.errorFile.Close())
}
