package logger

import (
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// New builds the application logger.  In dev the output is the human-readable
// console writer; everywhere else plain JSON goes to stderr so log shippers
// can parse it.
func New(env string) zerolog.Logger {
	if strings.EqualFold(env, "dev") {
		return log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	return zerolog.New(os.Stderr).With().Timestamp().Logger()
}
