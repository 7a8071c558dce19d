//go:build js && wasm

package browser

import (
	"log/slog"
	"strings"
	"syscall/js"
)

// consoleWriter sends each log line to the browser console.
type consoleWriter struct{}

func (consoleWriter) Write(p []byte) (int, error) {
	js.Global().Get("console").Call("log", strings.TrimRight(string(p), "\n"))
	return len(p), nil
}

// NewLogger returns a text logger writing to the browser console.
func NewLogger(level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(consoleWriter{}, &slog.HandlerOptions{Level: level}))
}
