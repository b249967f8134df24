package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]zerolog.Level{
		"":        zerolog.InfoLevel,
		"DEBUG":   zerolog.DebugLevel,
		" warn ":  zerolog.WarnLevel,
		"off":     zerolog.Disabled,
		"verbose": zerolog.InfoLevel,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Fatalf("%q: got=%v want=%v", in, got, want)
		}
	}
}

func TestNewLoggerHonoursEnvOverride(t *testing.T) {
	t.Setenv(EnvLogLevel, "error")
	var buf bytes.Buffer
	l := newLogger(&buf, "test", "debug")

	l.Info().Msg("hidden")
	l.Error().Msg("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("info line should be filtered: %s", out)
	}
	if !strings.Contains(out, "shown") || !strings.Contains(out, "app") {
		t.Fatalf("expected error line with app field: %s", out)
	}
}
