package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Options controls global logger setup
type Options struct {
	Verbose bool
	// JSON switches from the console writer to line-delimited JSON
	JSON bool
	Out  io.Writer
}

// Init initializes the global logger
func Init(opts Options) {
	zerolog.TimeFieldFormat = time.RFC3339

	level := zerolog.InfoLevel
	if opts.Verbose {
		level = zerolog.DebugLevel
	}

	zerolog.SetGlobalLevel(level)

	out := opts.Out
	if out == nil {
		out = os.Stderr
	}

	if opts.JSON {
		log.Logger = NewLogger(out)
		return
	}

	output := zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: "15:04:05",
		NoColor:    false,
	}

	log.Logger = NewLogger(output)
}

// NewLogger creates a new logger with optional writers
func NewLogger(writers ...io.Writer) zerolog.Logger {
	if len(writers) == 0 {
		return log.Logger
	}

	if len(writers) == 1 {
		return zerolog.New(writers[0]).With().Timestamp().Logger()
	}

	multi := zerolog.MultiLevelWriter(writers...)
	return zerolog.New(multi).With().Timestamp().Logger()
}

// WithComponent creates a logger with a component field
func WithComponent(logger zerolog.Logger, component string) zerolog.Logger {
	return logger.With().Str("component", component).Logger()
}

// WithRender tags every event of one render request
func WithRender(logger zerolog.Logger, renderID string) zerolog.Logger {
	return logger.With().Str("render_id", renderID).Logger()
}
