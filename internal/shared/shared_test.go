package shared

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
)

func TestTruncateRunes(t *testing.T) {
	tc := []struct {
		name  string
		input string
		n     int
		want  string
	}{
		{name: "shorter than limit", input: "sad indie rock", n: 32, want: "sad indie rock"},
		{name: "exact limit", input: "abcd", n: 4, want: "abcd"},
		{name: "ascii cut", input: "songs for a long drive at night through the desert", n: 32, want: "songs for a long drive at night "},
		{name: "multibyte", input: "café de flore", n: 4, want: "café"},
		{name: "zero limit", input: "anything", n: 0, want: ""},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			got := TruncateRunes(tt.input, tt.n)
			if got != tt.want {
				t.Errorf("TruncateRunes() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLogging(t *testing.T) {
	t.Run("ParseLogLevel", func(t *testing.T) {
		tc := map[string]log.Level{
			"":        log.InfoLevel,
			"debug":   log.DebugLevel,
			"WARN":    log.WarnLevel,
			"error":   log.ErrorLevel,
			"verbose": log.InfoLevel,
		}
		for in, want := range tc {
			if got := ParseLogLevel(in); got != want {
				t.Errorf("ParseLogLevel(%q) expected %v, got %v", in, want, got)
			}
		}
	})

	t.Run("WithLogger adds fields", func(t *testing.T) {
		var buf bytes.Buffer
		logger := WithLogger(NewLogger(&buf), "run_id", "abc")
		logger.Info("hello")

		if !strings.Contains(buf.String(), "run_id=abc") {
			t.Errorf("expected run_id field in output, got %q", buf.String())
		}
	})

	t.Run("NewFileLogger", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "logs", "spottyg.log")
		logger, f, err := NewFileLogger(path)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		defer f.Close()

		logger.Info("written to file")
		if err := f.Sync(); err != nil {
			t.Fatalf("failed to sync: %v", err)
		}
	})
}

func TestBrowserCommand(t *testing.T) {
	original := getRuntime
	defer func() { getRuntime = original }()

	tc := []struct {
		goos string
		want string
	}{
		{goos: "darwin", want: "open"},
		{goos: "linux", want: "xdg-open"},
		{goos: "windows", want: "cmd"},
	}

	for _, tt := range tc {
		t.Run(tt.goos, func(t *testing.T) {
			getRuntime = func() string { return tt.goos }
			cmd, err := browserCommand(t.Context(), "https://accounts.spotify.com")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if filepath.Base(cmd.Path) != tt.want && cmd.Args[0] != tt.want {
				t.Errorf("expected %s, got %v", tt.want, cmd.Args)
			}
		})
	}

	t.Run("unsupported platform", func(t *testing.T) {
		getRuntime = func() string { return "plan9" }
		if _, err := browserCommand(t.Context(), "https://example.com"); err == nil {
			t.Error("expected error for unsupported platform")
		}
	})
}
