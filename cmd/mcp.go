package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/spottyg/internal/mcpserver"
	"github.com/desertthunder/spottyg/internal/repositories"
	"github.com/desertthunder/spottyg/internal/shared"
	"github.com/desertthunder/spottyg/internal/tasks"
	"github.com/urfave/cli/v3"
)

// MCP serves the playlist tools on stdin/stdout. Logs go to the configured log file since stdout carries
// the protocol.
func (r *Runner) MCP(ctx context.Context, cmd *cli.Command) error {
	fileLogger, logFile, err := shared.NewFileLogger(r.config.Log.File)
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	defer logFile.Close()
	shared.SetLogLevel(fileLogger, shared.ParseLogLevel(r.config.Log.Level))
	r.SetLogger(fileLogger)

	db, err := r.openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()
	history := repositories.NewPlaylistRepository(db)

	engine, err := r.newEngine(tasks.WithHistory(history))
	if err != nil {
		return err
	}

	r.logger.Info("serving MCP tools over stdio")
	return mcpserver.New(engine, r.credential(), history, r.logger).ServeStdio()
}
