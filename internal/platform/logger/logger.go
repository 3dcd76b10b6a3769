package logger

import (
	"log/slog"
	"os"
)

// New returns a structured stdout logger. JSON output suits log shipping;
// text is easier on the eyes during development.
func New(format string) *slog.Logger {
	var handler slog.Handler
	switch format {
	case "text":
		handler = slog.NewTextHandler(os.Stdout, nil)
	default:
		handler = slog.NewJSONHandler(os.Stdout, nil)
	}
	return slog.New(handler)
}
