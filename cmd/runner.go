package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spottyg/internal/metrics"
	"github.com/desertthunder/spottyg/internal/services"
	"github.com/desertthunder/spottyg/internal/shared"
	"github.com/desertthunder/spottyg/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	catalog    services.Catalog
	completer  services.Completer
	logger     *log.Logger
	output     io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
//
// Catalog and Completer are built from the configuration when left nil.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Catalog    services.Catalog
	Completer  services.Completer
	Logger     *log.Logger
	Output     io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		catalog:    opts.Catalog,
		completer:  opts.Completer,
		logger:     opts.Logger,
		output:     opts.Output,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		serveCommand, setupCommand, spotifyCommand, buildCommand, annotateCommand, historyCommand, tuiCommand, mcpCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// Before loads the configuration named by --config, when the file exists, and builds the upstream clients.
func (r *Runner) Before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if path := cmd.String("config"); path != "" {
		r.configPath = path
	}

	if _, err := os.Stat(r.configPath); err == nil {
		config, err := shared.LoadConfig(r.configPath)
		if err != nil {
			return ctx, err
		}
		r.config = config
	} else {
		r.logger.Debug("config file not found, using defaults", "path", r.configPath)
	}

	shared.SetLogLevel(r.logger, shared.ParseLogLevel(r.config.Log.Level))
	r.configureServices()
	return ctx, nil
}

// configureServices creates the Spotify and OpenAI clients that were not injected.
// A missing OpenAI key is not fatal here; only the commands that need completions fail.
func (r *Runner) configureServices() {
	if r.catalog == nil {
		r.catalog = services.NewSpotifyCatalog()
	}
	if r.completer == nil {
		completer, err := services.NewOpenAICompleter(r.config.Credentials.OpenAI)
		if err != nil {
			r.logger.Debug("openai completer unavailable", "error", err)
			return
		}
		r.completer = completer
	}
}

// SetLogger replaces the runner's logger.
func (r *Runner) SetLogger(l *log.Logger) {
	r.logger = l
}

// credential is the Spotify token stored by `spottyg spotify auth`.
func (r *Runner) credential() tasks.StaticCredential {
	return tasks.StaticCredential(r.config.Credentials.Spotify.AccessToken)
}

// newEngine builds a pipeline engine over the runner's clients, using the stored Spotify token unless
// opts replace the credential accessor.
func (r *Runner) newEngine(opts ...tasks.EngineOption) (*tasks.PlaylistEngine, error) {
	if r.catalog == nil {
		return nil, fmt.Errorf("%w: Spotify catalog not initialized", shared.ErrServiceUnavailable)
	}
	if r.completer == nil {
		return nil, fmt.Errorf("%w: set credentials.openai.api_key (or OPENAI_API_KEY)", shared.ErrMissingCredentials)
	}

	base := []tasks.EngineOption{
		tasks.WithCredentials(r.credential()),
		tasks.WithEngineLogger(r.logger),
	}
	return tasks.NewPlaylistEngine(r.catalog, r.completer, tasks.OptionsFromConfig(r.config.Pipeline), append(base, opts...)...), nil
}

// openDatabase opens and migrates the configured database. Commands that only read history use it too.
func (r *Runner) openDatabase() (*sql.DB, error) {
	db, err := shared.OpenDatabase(r.config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

func (r *Runner) newMetrics() *metrics.Collector {
	return metrics.NewCollector("spottyg")
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
