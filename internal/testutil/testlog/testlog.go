// Package testlog quiets and tags log output for tests.
package testlog

import (
	"os"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var configureOnce sync.Once

func Start(t *testing.T) {
	t.Helper()
	configureOnce.Do(func() {
		level := zerolog.WarnLevel
		if os.Getenv("ENGINE_TEST_LOG") != "" {
			level = zerolog.DebugLevel
		}
		log.Logger = zerolog.New(zerolog.NewConsoleWriter()).Level(level)
	})
	log.Debug().Str("test", t.Name()).Msg("test start")
}

// Logger returns the configured test logger.
func Logger(t *testing.T) zerolog.Logger {
	t.Helper()
	Start(t)
	return log.Logger.With().Str("test", t.Name()).Logger()
}
