package logging

import (
	"context"
	"log/slog"
	"testing"
)

func TestLevelFromEnv(t *testing.T) {
	cases := []struct {
		env  string
		want slog.Level
	}{
		{"", slog.LevelInfo},
		{"debug", slog.LevelDebug},
		{"WARN", slog.LevelWarn},
		{"error", slog.LevelError},
		{"bogus", slog.LevelInfo},
	}
	for _, c := range cases {
		t.Setenv("LOG_LEVEL", c.env)
		if got := levelFromEnv(); got != c.want {
			t.Fatalf("LOG_LEVEL=%q: expected %v, got %v", c.env, c.want, got)
		}
	}
}

func TestContextRoundtrip(t *testing.T) {
	l := New()
	ctx := NewContext(context.Background(), l)
	if FromContext(ctx) != l {
		t.Fatalf("expected the stored logger back")
	}
	if FromContext(context.Background()) == nil {
		t.Fatalf("expected fallback logger for bare context")
	}
}
