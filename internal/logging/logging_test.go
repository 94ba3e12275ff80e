package logging

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestInitJSONWritesToOutput(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Init(Config{Level: "debug", Format: "json", Output: &buf}))

	Info().Str("component", "test").Msg("hello")
	require.Contains(t, buf.String(), `"component":"test"`)
	require.Contains(t, buf.String(), "hello")
}

func TestInitFileCreatesParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "harbordesk.log")
	require.NoError(t, Init(Config{Level: "info", Format: "json", File: path}))

	Info().Msg("to file")
	require.FileExists(t, path)
}

func TestParseLevelFallsBackToInfo(t *testing.T) {
	require.Equal(t, zerolog.InfoLevel, parseLevel("nonsense"))
	require.Equal(t, zerolog.WarnLevel, parseLevel("warning"))
	require.Equal(t, zerolog.TraceLevel, parseLevel("trace"))
}

func TestFromContextRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	ctx := WithContext(context.Background(), logger)
	got := FromContext(ctx)
	got.Info().Msg("ctx")
	require.Contains(t, buf.String(), "ctx")
}
