package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMake(t *testing.T) {
	t.Run("writes JSON at the configured level", func(t *testing.T) {
		var buf bytes.Buffer
		log := New().ToWriter(&buf).WithLevel("warn").Make()

		log.Info().Msg("hidden")
		log.Warn().Str("operation", "project.publish").Msg("shown")

		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
		assert.Equal(t, "shown", entry["message"])
		assert.Equal(t, "project.publish", entry["operation"])
		assert.Contains(t, entry, "time")
	})

	t.Run("unknown level falls back to info", func(t *testing.T) {
		var buf bytes.Buffer
		log := New().ToWriter(&buf).WithLevel("loud").Make()

		log.Debug().Msg("hidden")
		assert.Zero(t, buf.Len())
		log.Info().Msg("shown")
		assert.NotZero(t, buf.Len())
	})

	t.Run("console format is not JSON", func(t *testing.T) {
		var buf bytes.Buffer
		log := New().ToWriter(&buf).WithFormat("console").Make()

		log.Info().Msg("hello")
		assert.Contains(t, buf.String(), "hello")
		assert.False(t, json.Valid(buf.Bytes()))
	})
}
