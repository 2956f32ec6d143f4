package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Setup returns a zerolog.Logger writing to stderr. format "text" selects
// the human-friendly console writer; anything else emits structured JSON.
func Setup(format string) zerolog.Logger {
	var out io.Writer = os.Stderr
	if format == "text" {
		out = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	}
	return zerolog.New(out).With().Timestamp().Logger()
}
