package manager

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVerbosity(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input   string
		want    Verbosity
		wantErr bool
	}{
		{input: "", want: DefaultVerbosity},
		{input: "silent", want: VerbositySilent},
		{input: "off", want: VerbositySilent},
		{input: "error", want: VerbosityError},
		{input: "INFO", want: VerbosityInfo},
		{input: " debug ", want: VerbosityDebug},
		{input: "verbose", want: VerbosityDebug},
		{input: "loud", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()

			got, err := ParseVerbosity(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestVerbosity_String(t *testing.T) {
	t.Parallel()

	for _, v := range []Verbosity{VerbositySilent, VerbosityError, VerbosityInfo, VerbosityDebug} {
		parsed, err := ParseVerbosity(v.String())
		require.NoError(t, err)
		assert.Equal(t, v, parsed)
	}
	assert.Equal(t, "verbosity(42)", Verbosity(42).String())
}

func TestVerbosityHandler(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	level := &slog.LevelVar{}
	level.Set(VerbosityError.slogLevel())
	logger := slog.New(newVerbosityHandler(
		slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}), level,
	)).With("component", "manager")

	logger.Info("hidden")
	assert.Empty(t, buf.String())

	logger.Error("shown")
	assert.Contains(t, buf.String(), "shown")
	assert.Contains(t, buf.String(), "component=manager")

	buf.Reset()
	level.Set(VerbositySilent.slogLevel())
	logger.Error("muted")
	assert.Empty(t, buf.String())

	level.Set(VerbosityDebug.slogLevel())
	assert.True(t, logger.Enabled(context.Background(), slog.LevelDebug))
}
