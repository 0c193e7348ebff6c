package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/spottyg/internal/repositories"
	"github.com/desertthunder/spottyg/internal/shared"
	"github.com/desertthunder/spottyg/internal/tasks"
	"github.com/desertthunder/spottyg/internal/ui"
	"github.com/urfave/cli/v3"
)

// TUI launches the interactive terminal chat.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	if _, ok := r.credential().Credential(ctx); !ok {
		return fmt.Errorf("%w: run 'spottyg spotify auth' first", shared.ErrCredentialMissing)
	}

	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, logFile, err := shared.NewFileLogger(r.config.Log.File)
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	defer logFile.Close()
	shared.SetLogLevel(fileLogger, shared.ParseLogLevel(r.config.Log.Level))
	r.SetLogger(fileLogger)

	var opts []tasks.EngineOption
	if db, err := r.openDatabase(); err != nil {
		r.logger.Warn("history disabled", "error", err)
	} else {
		defer db.Close()
		opts = append(opts, tasks.WithHistory(repositories.NewPlaylistRepository(db)))
	}

	engine, err := r.newEngine(opts...)
	if err != nil {
		return err
	}

	model := ui.NewModel(ctx, engine, r.config.Pipeline.AutoAnnotate)
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
