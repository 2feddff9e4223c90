package logging

import (
	"log/slog"
	"os"
)

// InitStructured swaps the operational logger for one matching format and
// level, both given as flag-style strings ("text"/"json", "debug".."error").
// Called once by the CLI after parsing its own flags; nothing before that
// point needs a non-default logger.
func InitStructured(format, level string) {
	SetLevelFromString(level)

	opts := &slog.HandlerOptions{Level: logLevel}

	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	opLogger.Store(slog.New(handler))
}
