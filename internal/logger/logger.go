package logger

import (
	"os"

	"github.com/nearline/leadtriage/internal/config"
	"github.com/rs/zerolog"
)

// New returns a configured zerolog.Logger. Development mode uses a
// human-readable console writer at debug level; otherwise structured JSON
// at info level.
func New(cfg *config.Config) zerolog.Logger {
	lvl := zerolog.InfoLevel
	if cfg.IsDevelopment() {
		lvl = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(lvl)

	if cfg.IsDevelopment() {
		out := zerolog.ConsoleWriter{Out: os.Stderr}
		return zerolog.New(out).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stderr).With().Timestamp().Logger()
}
