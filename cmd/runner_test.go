package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/desertthunder/spottyg/internal/models"
	"github.com/desertthunder/spottyg/internal/services"
	"github.com/desertthunder/spottyg/internal/shared"
	tu "github.com/desertthunder/spottyg/internal/testing"
	"github.com/urfave/cli/v3"
)

var (
	skinnyLove     = models.TrackCandidate{Title: "Skinny Love", Artist: "Bon Iver"}
	motionSickness = models.TrackCandidate{Title: "Motion Sickness", Artist: "Phoebe Bridgers"}
)

type runnerEnv struct {
	runner    *Runner
	output    *bytes.Buffer
	catalog   *tu.FakeCatalog
	completer *tu.FakeCompleter
}

func newRunnerEnv(t *testing.T, token string) *runnerEnv {
	t.Helper()

	config := shared.DefaultConfig()
	config.Database.Path = filepath.Join(t.TempDir(), "spottyg.db")
	config.Credentials.Spotify.AccessToken = token

	env := &runnerEnv{
		output:    &bytes.Buffer{},
		catalog:   tu.NewFakeCatalog().WithTrack(skinnyLove, "t1").WithTrack(motionSickness, "t2"),
		completer: &tu.FakeCompleter{},
	}
	env.completer.ReplyFunc = func(req services.CompletionRequest) (string, error) {
		if strings.Contains(req.Messages[1].Content, "Suggest exactly") {
			return skinnyLove.Label() + "\n" + motionSickness.Label(), nil
		}
		return "Two songs about leaving.", nil
	}
	env.runner = NewRunner(RunnerOpts{
		Config:    config,
		Catalog:   env.catalog,
		Completer: env.completer,
		Logger:    shared.NewLogger(&bytes.Buffer{}),
		Output:    env.output,
	})
	return env
}

// run dispatches args through the runner's command tree.
func (e *runnerEnv) run(t *testing.T, args ...string) error {
	t.Helper()
	app := &cli.Command{Name: "spottyg", Commands: e.runner.register()}
	return app.Run(context.Background(), append([]string{"spottyg"}, args...))
}

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with all dependencies provided", func(t *testing.T) {
			config := shared.DefaultConfig()
			logger := shared.NewLogger(nil)
			output := &bytes.Buffer{}
			catalog := tu.NewFakeCatalog()
			completer := &tu.FakeCompleter{}

			runner := NewRunner(RunnerOpts{
				Config:    config,
				Logger:    logger,
				Output:    output,
				Catalog:   catalog,
				Completer: completer,
			})

			if runner.config != config {
				t.Error("expected config to be set")
			}
			if runner.logger != logger {
				t.Error("expected logger to be set")
			}
			if runner.output != output {
				t.Error("expected output to be set")
			}
			if runner.catalog != catalog {
				t.Error("expected catalog to be set")
			}
			if runner.completer != completer {
				t.Error("expected completer to be set")
			}
		})

		t.Run("with nil config uses defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})
			if runner.config == nil {
				t.Fatal("expected default config to be set")
			}
			if runner.config.Server.Port != 3000 {
				t.Errorf("expected default port 3000, got %d", runner.config.Server.Port)
			}
		})

		t.Run("with nil logger and output uses defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})
			if runner.logger == nil {
				t.Error("expected default logger to be set")
			}
			if runner.output != os.Stdout {
				t.Error("expected output to default to os.Stdout")
			}
		})
	})

	t.Run("writeJSON", func(t *testing.T) {
		t.Run("writes formatted JSON", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, true); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if !strings.Contains(output.String(), `"key": "value"`) {
				t.Errorf("expected formatted JSON, got %s", output.String())
			}
		})

		t.Run("writes compact JSON", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, false); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			expected := `{"key":"value"}` + "\n"
			if output.String() != expected {
				t.Errorf("expected %q, got %q", expected, output.String())
			}
		})

		t.Run("handles marshal error", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}})

			err := runner.writeJSON(make(chan int), false)
			if err == nil || !strings.Contains(err.Error(), "failed to marshal JSON") {
				t.Errorf("expected marshal error, got %v", err)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil || !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})
	})

	t.Run("writePlain", func(t *testing.T) {
		output := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{Output: output})

		if err := runner.writePlain("hello %s", "world"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if output.String() != "hello world" {
			t.Errorf("expected 'hello world', got %q", output.String())
		}

		failing := NewRunner(RunnerOpts{Output: &tu.FWriter{}})
		if err := failing.writePlain("test"); err == nil {
			t.Error("expected error from failing writer")
		}
	})

	t.Run("register", func(t *testing.T) {
		commands := NewRunner(RunnerOpts{}).register()

		names := map[string]bool{}
		for _, cmd := range commands {
			names[cmd.Name] = true
		}
		for _, want := range []string{"serve", "setup", "spotify", "build", "annotate", "history", "tui", "mcp"} {
			if !names[want] {
				t.Errorf("expected command %q to be registered", want)
			}
		}
	})

	t.Run("newEngine", func(t *testing.T) {
		t.Run("requires a completer", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Catalog: tu.NewFakeCatalog()})

			_, err := runner.newEngine()
			if !errors.Is(err, shared.ErrMissingCredentials) {
				t.Errorf("expected ErrMissingCredentials, got %v", err)
			}
		})

		t.Run("requires a catalog", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Completer: &tu.FakeCompleter{}})

			_, err := runner.newEngine()
			if !errors.Is(err, shared.ErrServiceUnavailable) {
				t.Errorf("expected ErrServiceUnavailable, got %v", err)
			}
		})
	})

	t.Run("Before", func(t *testing.T) {
		t.Run("loads the named config file", func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			config := shared.DefaultConfig()
			config.Server.Port = 4100
			if err := shared.SaveConfig(path, config); err != nil {
				t.Fatalf("failed to write config: %v", err)
			}

			runner := NewRunner(RunnerOpts{Catalog: tu.NewFakeCatalog(), Completer: &tu.FakeCompleter{}})
			app := &cli.Command{
				Name:   "spottyg",
				Flags:  []cli.Flag{&cli.StringFlag{Name: "config"}},
				Before: runner.Before,
				Action: func(context.Context, *cli.Command) error { return nil },
			}
			if err := app.Run(context.Background(), []string{"spottyg", "--config", path}); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if runner.config.Server.Port != 4100 {
				t.Errorf("expected port 4100, got %d", runner.config.Server.Port)
			}
		})

		t.Run("missing file keeps defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Catalog: tu.NewFakeCatalog(), Completer: &tu.FakeCompleter{}})
			app := &cli.Command{
				Name:   "spottyg",
				Flags:  []cli.Flag{&cli.StringFlag{Name: "config"}},
				Before: runner.Before,
				Action: func(context.Context, *cli.Command) error { return nil },
			}
			missing := filepath.Join(t.TempDir(), "nope.toml")
			if err := app.Run(context.Background(), []string{"spottyg", "--config", missing}); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if runner.config.Server.Port != 3000 {
				t.Errorf("expected default port, got %d", runner.config.Server.Port)
			}
		})
	})
}

func TestBuildCommand(t *testing.T) {
	t.Run("prints the playlist and records history", func(t *testing.T) {
		env := newRunnerEnv(t, "token")

		if err := env.run(t, "build", "sad", "indie", "rock"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		out := env.output.String()
		if !strings.Contains(out, "SpottyG Playlist - sad indie rock") {
			t.Errorf("expected playlist name in output, got %s", out)
		}
		if !strings.Contains(out, "https://open.spotify.com/playlist/pl1") {
			t.Errorf("expected playlist URL in output, got %s", out)
		}
		if len(env.catalog.Added) != 2 {
			t.Errorf("expected 2 tracks added, got %d", len(env.catalog.Added))
		}
		for _, c := range env.catalog.Credentials {
			if c != "token" {
				t.Errorf("expected stored token to be used, got %q", c)
			}
		}

		env.output.Reset()
		if err := env.run(t, "history"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(env.output.String(), "Prompt: sad indie rock") {
			t.Errorf("expected recorded run in history, got %s", env.output.String())
		}
	})

	t.Run("json output is quiet", func(t *testing.T) {
		env := newRunnerEnv(t, "token")

		if err := env.run(t, "build", "--json", "--annotate", "rainy day"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		out := env.output.String()
		if !strings.HasPrefix(out, "{") {
			t.Errorf("expected only JSON on stdout, got %s", out)
		}
		if !strings.Contains(out, "Two songs about leaving.") {
			t.Errorf("expected annotation in report, got %s", out)
		}
	})

	t.Run("writes the report to a file", func(t *testing.T) {
		env := newRunnerEnv(t, "token")
		path := filepath.Join(t.TempDir(), "report.md")

		if err := env.run(t, "build", "-f", "markdown", "-o", path, "road trip"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		tu.AssertFileExists(t, path)
		if content := tu.MustReadFile(t, path); !strings.HasPrefix(content, "# [SpottyG Playlist - road trip]") {
			t.Errorf("expected markdown heading, got %s", content)
		}
	})

	t.Run("missing prompt", func(t *testing.T) {
		env := newRunnerEnv(t, "token")

		err := env.run(t, "build")
		if !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
		if env.completer.CallCount() != 0 {
			t.Errorf("expected no completions, got %d", env.completer.CallCount())
		}
	})

	t.Run("missing token", func(t *testing.T) {
		env := newRunnerEnv(t, "")

		err := env.run(t, "build", "sad indie rock")
		if !errors.Is(err, shared.ErrCredentialMissing) {
			t.Errorf("expected ErrCredentialMissing, got %v", err)
		}
		if !strings.Contains(err.Error(), "spottyg spotify auth") {
			t.Errorf("expected sign-in hint, got %v", err)
		}
		if env.catalog.CallCount() != 0 {
			t.Errorf("expected no catalog calls, got %d", env.catalog.CallCount())
		}
	})

	t.Run("unknown format", func(t *testing.T) {
		env := newRunnerEnv(t, "token")

		err := env.run(t, "build", "-f", "yaml", "sad indie rock")
		if !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})
}

func TestAnnotateCommand(t *testing.T) {
	t.Run("prints the history", func(t *testing.T) {
		env := newRunnerEnv(t, "")

		err := env.run(t, "annotate", "--name", "Rainy Day", "-t", skinnyLove.Label(), "-t", motionSickness.Label())
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if env.output.String() != "Two songs about leaving.\n" {
			t.Errorf("expected annotation, got %q", env.output.String())
		}
	})

	t.Run("completer failure", func(t *testing.T) {
		env := newRunnerEnv(t, "")
		env.completer.ReplyFunc = nil
		env.completer.Err = shared.ErrServiceUnavailable

		err := env.run(t, "annotate", "--name", "Rainy Day", "-t", skinnyLove.Label())
		if !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("expected ErrServiceUnavailable, got %v", err)
		}
	})
}

func TestHistoryCommand(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		env := newRunnerEnv(t, "")

		if err := env.run(t, "history"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(env.output.String(), "No playlists yet") {
			t.Errorf("expected empty message, got %s", env.output.String())
		}
	})

	t.Run("csv", func(t *testing.T) {
		env := newRunnerEnv(t, "token")
		if err := env.run(t, "build", "--json", "sad indie rock"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		env.output.Reset()

		if err := env.run(t, "history", "--csv"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		lines := strings.Split(strings.TrimSpace(env.output.String()), "\n")
		if len(lines) != 2 {
			t.Fatalf("expected header and one row, got %d lines", len(lines))
		}
		if !strings.Contains(lines[1], ",pl1,SpottyG Playlist - sad indie rock,sad indie rock,2,") {
			t.Errorf("unexpected row %q", lines[1])
		}
	})

	t.Run("invalid limit", func(t *testing.T) {
		env := newRunnerEnv(t, "")

		err := env.run(t, "history", "--limit", "0")
		if !errors.Is(err, shared.ErrInvalidFlag) {
			t.Errorf("expected ErrInvalidFlag, got %v", err)
		}
	})
}

func TestSpotifyCommands(t *testing.T) {
	t.Run("me", func(t *testing.T) {
		env := newRunnerEnv(t, "token")

		if err := env.run(t, "spotify", "me"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(env.output.String(), "Signed in as Listener") {
			t.Errorf("expected profile, got %s", env.output.String())
		}
	})

	t.Run("me with expired token", func(t *testing.T) {
		env := newRunnerEnv(t, "token")
		env.catalog.ProfileErr = shared.ErrTokenExpired

		err := env.run(t, "spotify", "me")
		if !errors.Is(err, shared.ErrTokenExpired) {
			t.Errorf("expected ErrTokenExpired, got %v", err)
		}
		if !strings.Contains(err.Error(), "sign in again") {
			t.Errorf("expected sign-in hint, got %v", err)
		}
	})

	t.Run("me without token", func(t *testing.T) {
		env := newRunnerEnv(t, "  ")

		err := env.run(t, "spotify", "me")
		if !errors.Is(err, shared.ErrCredentialMissing) {
			t.Errorf("expected ErrCredentialMissing, got %v", err)
		}
	})

	t.Run("search", func(t *testing.T) {
		env := newRunnerEnv(t, "token")

		if err := env.run(t, "spotify", "search", skinnyLove.Query()); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(env.output.String(), "1. Skinny Love - Bon Iver") {
			t.Errorf("expected search result, got %s", env.output.String())
		}
	})

	t.Run("search with no hits", func(t *testing.T) {
		env := newRunnerEnv(t, "token")

		if err := env.run(t, "spotify", "search", "nothing here"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(env.output.String(), "No tracks found") {
			t.Errorf("expected empty message, got %s", env.output.String())
		}
	})

	t.Run("search limit out of range", func(t *testing.T) {
		env := newRunnerEnv(t, "token")

		err := env.run(t, "spotify", "search", "--limit", "51", "anything")
		if !errors.Is(err, shared.ErrInvalidFlag) {
			t.Errorf("expected ErrInvalidFlag, got %v", err)
		}
	})
}
