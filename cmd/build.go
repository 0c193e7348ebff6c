package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/spottyg/internal/formatter"
	"github.com/desertthunder/spottyg/internal/repositories"
	"github.com/desertthunder/spottyg/internal/shared"
	"github.com/desertthunder/spottyg/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Build runs the generation pipeline for the prompt given as arguments.
func (r *Runner) Build(ctx context.Context, cmd *cli.Command) error {
	prompt := strings.TrimSpace(strings.Join(cmd.Args().Slice(), " "))
	if prompt == "" {
		return fmt.Errorf("%w: prompt, e.g. spottyg build \"sad indie rock\"", shared.ErrMissingArgument)
	}

	format := cmd.String("format")
	if cmd.Bool("json") {
		format = formatter.FormatJSON
	}
	quiet := format == formatter.FormatJSON && cmd.String("output") == ""

	var opts []tasks.EngineOption
	db, err := r.openDatabase()
	if err != nil {
		r.logger.Warn("history disabled", "error", err)
	} else {
		defer db.Close()
		opts = append(opts, tasks.WithHistory(repositories.NewPlaylistRepository(db)))
	}

	engine, err := r.newEngine(opts...)
	if err != nil {
		return err
	}

	r.logger.Info("building playlist", "prompt", prompt)
	if !quiet {
		r.writePlain("Building a playlist for %q...\n\n", prompt)
	}

	progressCh := make(chan tasks.ProgressUpdate, 50)
	printed := make(chan struct{})
	go func() {
		defer close(printed)
		for update := range progressCh {
			if quiet {
				continue
			}
			switch update.Phase {
			case tasks.ResolvingTracks:
				r.writePlain("🎧 %s\n", update.Message)
			case tasks.SearchingCatalog:
				if update.Total > 1 {
					r.writePlain("   %s\n", update.Message)
				} else {
					r.writePlain("\n🔍 %s\n", update.Message)
				}
			case tasks.Materializing, tasks.Materialized:
				r.writePlain("\n📝 %s\n", update.Message)
			}
		}
	}()

	result, err := engine.Run(ctx, prompt, progressCh)
	close(progressCh)
	<-printed

	if err != nil {
		return r.spotifyError(err)
	}

	var annotation string
	if cmd.Bool("annotate") {
		if !quiet {
			r.writePlain("\n📜 Writing the history...\n")
		}
		annotation = engine.AnnotateRun(ctx, result)
		if db != nil {
			if err := repositories.NewPlaylistRepository(db).SetAnnotation(result.RunID, annotation); err != nil {
				r.logger.Warn("failed to store annotation", "run_id", result.RunID, "error", err)
			}
		}
	}

	report := formatter.NewReport(result, annotation)

	if path := cmd.String("output"); path != "" {
		written, err := formatter.WriteReport(report, format, path)
		if err != nil {
			return err
		}
		r.writePlain("\n✓ Report written to %s\n", written)
		return nil
	}

	data, err := formatter.Render(report, format)
	if err != nil {
		return err
	}
	if !quiet {
		r.writePlain("\n")
		r.writePlainHeader("Playlist Ready!")
	}
	_, err = r.output.Write(data)
	return err
}

// Annotate writes the history for a named list of tracks.
func (r *Runner) Annotate(ctx context.Context, cmd *cli.Command) error {
	name := strings.TrimSpace(cmd.String("name"))
	tracks := cmd.StringSlice("track")
	if name == "" {
		return fmt.Errorf("%w: --name", shared.ErrMissingArgument)
	}

	engine, err := r.newEngine()
	if err != nil {
		return err
	}

	text, err := engine.GenerateAnnotation(ctx, name, tracks)
	if err != nil {
		return fmt.Errorf("annotation failed: %w", err)
	}
	r.writePlain("%s\n", text)
	return nil
}

// History lists generated playlists from the database, newest first.
func (r *Runner) History(ctx context.Context, cmd *cli.Command) error {
	limit := cmd.Int("limit")
	if limit < 1 {
		return fmt.Errorf("%w: --limit must be positive", shared.ErrInvalidFlag)
	}

	db, err := r.openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	criteria := map[string]any{"limit": int(limit)}
	if user := cmd.String("user"); user != "" {
		criteria["spotify_user_id"] = user
	}

	records, err := repositories.NewPlaylistRepository(db).List(criteria)
	if err != nil {
		return fmt.Errorf("failed to list playlists: %w", err)
	}

	if cmd.Bool("csv") {
		data, err := formatter.HistoryToCSV(records)
		if err != nil {
			return err
		}
		_, err = r.output.Write(data)
		return err
	}

	if len(records) == 0 {
		r.writePlain("No playlists yet. Try: spottyg build \"sad indie rock\"\n")
		return nil
	}

	r.writePlain("Found %d playlists:\n\n", len(records))
	for i, p := range records {
		r.writePlain("%d. %s\n", i+1, p.Name())
		r.writePlain("   Prompt: %s\n", p.Prompt())
		r.writePlain("   Tracks: %d\n", p.TrackCount())
		r.writePlain("   URL: %s\n", p.URL())
		r.writePlain("   Created: %s\n", p.CreatedAt().Local().Format("2006-01-02 15:04"))
		if p.Annotation() != "" {
			r.writePlain("   History: %s\n", shared.TruncateRunes(p.Annotation(), 80))
		}
		r.writePlain("\n")
	}
	return nil
}
