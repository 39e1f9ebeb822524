package logging_test

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"

	"github.com/jrsteele09/go-meet-client/internal/logging"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, logging.ParseLevel("DEBUG"))
	assert.Equal(t, zerolog.WarnLevel, logging.ParseLevel(" warn "))
	assert.Equal(t, zerolog.InfoLevel, logging.ParseLevel("verbose"))
	assert.Equal(t, zerolog.InfoLevel, logging.ParseLevel(""))
}

func TestSetupWriterFiltersByLevel(t *testing.T) {
	prevLogger, prevLevel := log.Logger, zerolog.GlobalLevel()
	t.Cleanup(func() {
		log.Logger = prevLogger
		zerolog.SetGlobalLevel(prevLevel)
	})

	var buf bytes.Buffer
	logging.SetupWriter(&buf, "warn", false)
	log.Info().Msg("hidden")
	log.Warn().Str("service", "auth").Msg("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"service":"auth"`)
	assert.Contains(t, buf.String(), `"level":"warn"`)
}
