package log

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New returns the process logger. component distinguishes the api and worker
// binaries in shared log sinks.
func New(environment, component string) zerolog.Logger {
	production := environment == "production"

	output := zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
		NoColor:    production,
	}

	logger := zerolog.New(output).With().
		Timestamp().
		Str("env", environment).
		Str("component", component).
		Logger()

	if production {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	return logger
}
