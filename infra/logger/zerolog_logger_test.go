package logger

import (
	"testing"

	"github.com/rs/zerolog"
)

func TestSetLevel(t *testing.T) {
	defer SetLevel("")

	SetLevel("debug")
	if got := zerolog.GlobalLevel(); got != zerolog.DebugLevel {
		t.Fatalf("global level %s, want debug", got)
	}

	SetLevel("error")
	if got := zerolog.GlobalLevel(); got != zerolog.ErrorLevel {
		t.Fatalf("global level %s, want error", got)
	}

	SetLevel("nonsense")
	if got := zerolog.GlobalLevel(); got != zerolog.InfoLevel {
		t.Fatalf("global level %s after unknown input, want info", got)
	}
}

func TestParseLevel(t *testing.T) {
	cases := []struct {
		in   string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"WARN", zerolog.WarnLevel},
		{"", zerolog.InfoLevel},
		{"verbose", zerolog.InfoLevel},
	}
	for _, tc := range cases {
		if got := parseLevel(tc.in); got != tc.want {
			t.Fatalf("parseLevel(%q) = %s, want %s", tc.in, got, tc.want)
		}
	}
}

func TestNewZerologLoggerWithLevelOverride(t *testing.T) {
	l, ok := NewZerologLoggerWithLevel("test", "debug").(*ZerologLogger)
	if !ok {
		t.Fatalf("expected *ZerologLogger")
	}
	if got := l.log.GetLevel(); got != zerolog.DebugLevel {
		t.Fatalf("logger level %s, want debug", got)
	}
}
