// Package logger provides the package-level structured logger shared by
// cmd/tacit's commands, grounded on joshuapare/hivekit's
// cmd/hiveexplorer/logger package. Unlike that teacher, tacit is a
// one-shot, non-interactive CLI, so there is no log file rotation: output
// goes to stderr, or nowhere at all until Init is called.
package logger

import (
	"io"
	"log/slog"
	"os"
)

// L is the package logger. It discards everything until Init is called.
var L = slog.New(slog.NewTextHandler(io.Discard, nil))

// Init wires L to stderr at the given level. rootCmd's PersistentPreRun
// calls it once, before the selected command runs.
func Init(level slog.Level) {
	L = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func Debug(msg string, args ...any) { L.Debug(msg, args...) }
func Info(msg string, args ...any)  { L.Info(msg, args...) }
func Warn(msg string, args ...any)  { L.Warn(msg, args...) }
func Error(msg string, args ...any) { L.Error(msg, args...) }
