package app

import (
	"io"
	"log/slog"

	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	defaultLogFileMaxSizeMB  = 10
	defaultLogFileMaxBackups = 3
)

// newLogger writes text logs to w and, when configured, to a rotated log file.
// The returned closer releases the log file.
func newLogger(w io.Writer, level *slog.LevelVar, settings Settings) (*slog.Logger, io.Closer) {
	if settings.LogFile == "" {
		return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})), io.NopCloser(nil)
	}

	file := &lumberjack.Logger{
		Filename:   settings.LogFile,
		MaxSize:    settings.LogFileMaxSizeMB,
		MaxBackups: settings.LogFileMaxBackups,
		Compress:   true,
	}
	if file.MaxSize == 0 {
		file.MaxSize = defaultLogFileMaxSizeMB
	}
	if file.MaxBackups == 0 {
		file.MaxBackups = defaultLogFileMaxBackups
	}

	handler := slog.NewTextHandler(io.MultiWriter(w, file), &slog.HandlerOptions{Level: level})
	return slog.New(handler), file
}
