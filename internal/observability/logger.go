package observability

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// InitLogger configures the global zerolog logger with console output and an
// app field. If logPath is non-empty, entries are also appended there as
// JSON. Returns the logger and a cleanup function closing the log file.
func InitLogger(app, logPath string) (zerolog.Logger, func(), error) {
	console := zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
	}

	out := io.Writer(console)
	cleanup := func() {}

	if logPath != "" {
		f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return zerolog.Logger{}, nil, err
		}
		out = zerolog.MultiLevelWriter(console, f)
		cleanup = func() { f.Close() }
	}

	logger := zerolog.New(out).With().Timestamp().Str("app", app).Logger()
	log.Logger = logger
	return logger, cleanup, nil
}
