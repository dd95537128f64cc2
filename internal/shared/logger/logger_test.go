package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithWriter_ProdWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, false)

	log.Info().Str("component", "test").Msg("hello")
	log.Debug().Msg("dropped at info level")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "hello", entry["message"])
	assert.Equal(t, "test", entry["component"])
	assert.Contains(t, entry, "time")
}

func TestNewWithWriter_DevIsHumanReadable(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, true)

	log.Debug().Msg("visible in dev")
	assert.Contains(t, buf.String(), "visible in dev")
	assert.NotContains(t, buf.String(), `"message"`)
}

func TestFromContext(t *testing.T) {
	fallback := zerolog.Nop()
	assert.Same(t, &fallback, FromContext(context.Background(), &fallback))

	var buf bytes.Buffer
	scoped := NewWithWriter(&buf, false).With().Str("chat_id", "42").Logger()
	ctx := scoped.WithContext(context.Background())

	FromContext(ctx, &fallback).Info().Msg("scoped")
	assert.Contains(t, buf.String(), `"chat_id":"42"`)
}
