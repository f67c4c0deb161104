// SPDX-License-Identifier: Unlicense OR MIT

package gles

import (
	"log/slog"
	"os"
	"sync/atomic"
)

var logger atomic.Pointer[slog.Logger]

func init() {
	logger.Store(newLogger(slog.LevelInfo))
}

// Logger returns the logger contexts inherit when their Options carry
// none.
func Logger() *slog.Logger {
	return logger.Load()
}

// SetLogger replaces the package logger. Contexts created earlier keep
// the logger they were created with.
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = newLogger(slog.LevelInfo)
	}
	logger.Store(l)
}

func newLogger(level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
