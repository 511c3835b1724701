package manager

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// Verbosity controls how much a client logs about its management calls.
type Verbosity int

const (
	// VerbositySilent suppresses all client output.
	VerbositySilent Verbosity = iota
	// VerbosityError logs failed calls only.
	VerbosityError
	// VerbosityInfo also logs confirmed mutations.
	VerbosityInfo
	// VerbosityDebug logs every request.
	VerbosityDebug
)

// DefaultVerbosity is used when no verbosity is configured.
const DefaultVerbosity = VerbosityError

// String returns the configuration name of the verbosity level
func (v Verbosity) String() string {
	switch v {
	case VerbositySilent:
		return "silent"
	case VerbosityError:
		return "error"
	case VerbosityInfo:
		return "info"
	case VerbosityDebug:
		return "debug"
	default:
		return fmt.Sprintf("verbosity(%d)", int(v))
	}
}

// ParseVerbosity parses a verbosity name. The empty string yields DefaultVerbosity.
func ParseVerbosity(s string) (Verbosity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return DefaultVerbosity, nil
	case "silent", "quiet", "off":
		return VerbositySilent, nil
	case "error":
		return VerbosityError, nil
	case "info":
		return VerbosityInfo, nil
	case "debug", "verbose":
		return VerbosityDebug, nil
	default:
		return DefaultVerbosity, fmt.Errorf("unknown verbosity %q (expected silent, error, info or debug)", s)
	}
}

func (v Verbosity) slogLevel() slog.Level {
	switch {
	case v <= VerbositySilent:
		// above any level the client emits
		return slog.LevelError + 4
	case v == VerbosityError:
		return slog.LevelError
	case v == VerbosityInfo:
		return slog.LevelInfo
	default:
		return slog.LevelDebug
	}
}

// verbosityHandler gates an slog.Handler with a per-client level.
type verbosityHandler struct {
	slog.Handler
	level *slog.LevelVar
}

func newVerbosityHandler(h slog.Handler, level *slog.LevelVar) *verbosityHandler {
	return &verbosityHandler{Handler: h, level: level}
}

func (h *verbosityHandler) Enabled(ctx context.Context, l slog.Level) bool {
	return l >= h.level.Level() && h.Handler.Enabled(ctx, l)
}

func (h *verbosityHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &verbosityHandler{Handler: h.Handler.WithAttrs(attrs), level: h.level}
}

func (h *verbosityHandler) WithGroup(name string) slog.Handler {
	return &verbosityHandler{Handler: h.Handler.WithGroup(name), level: h.level}
}
