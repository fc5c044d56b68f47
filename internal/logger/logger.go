package logger

import (
	"fmt"
	"log/slog"
	"os"
)

// New creates a logger writing text records at or above level to the file at path. The terminal
// belongs to the dashboard, so nothing is logged to stdout or stderr. The caller closes the file.
func New(path string, level slog.Level) (*slog.Logger, *os.File, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("error opening log file: %w", err)
	}

	// Create a text handler that writes to the file
	handler := slog.NewTextHandler(file, &slog.HandlerOptions{
		Level: level,
	})

	// Create a logger with the file handler
	return slog.New(handler), file, nil
}
