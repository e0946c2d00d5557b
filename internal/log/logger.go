package log

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New returns the process logger. Production emits JSON lines; other
// environments get the human-readable console writer.
func New(environment string, component string) zerolog.Logger {
	var output io.Writer = zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
	}
	if environment == "production" {
		output = os.Stdout
	}

	logger := zerolog.New(output).With().
		Timestamp().
		Str("env", environment).
		Str("component", component).
		Logger()

	if environment != "production" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	return logger
}
