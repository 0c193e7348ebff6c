package tasks

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/spottyg/internal/services"
	"github.com/desertthunder/spottyg/internal/shared"
)

// FallbackAnnotation is shown when no annotation could be produced.
const FallbackAnnotation = "Unable to retrieve annotation at this time. Please try again later."

const annotationSystemPrompt = "You are a music historian. Provide concise, culturally insightful annotations about music playlists."

const annotationUserPrompt = "Create a 2-3 paragraph annotation with historical and cultural context for a playlist titled %q. " +
	"The playlist includes the following tracks:\n\n%s"

// GenerateAnnotation asks for a historical and cultural annotation of the playlist.
//
// The call is bounded by the configured annotation timeout; exceeding it yields [shared.ErrTimeout].
func (e *PlaylistEngine) GenerateAnnotation(ctx context.Context, playlistName string, labels []string) (string, error) {
	if strings.TrimSpace(playlistName) == "" {
		return "", fmt.Errorf("%w: playlist name is empty", shared.ErrInvalidInput)
	}

	ctx, cancel := context.WithTimeout(ctx, e.opts.AnnotationTimeout)
	defer cancel()

	start := time.Now()
	text, err := e.completer.Complete(ctx, services.CompletionRequest{
		Messages: []services.Message{
			{Role: services.RoleSystem, Content: annotationSystemPrompt},
			{Role: services.RoleUser, Content: fmt.Sprintf(annotationUserPrompt, playlistName, strings.Join(labels, "\n"))},
		},
	})
	e.metrics.ObserveStage(string(StageAnnotate), time.Since(start))

	switch {
	case err == nil:
		e.metrics.AnnotationFinished("ok")
		return text, nil
	case errors.Is(err, shared.ErrTimeout) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		e.metrics.AnnotationFinished("timeout")
		return "", fmt.Errorf("%w: annotation exceeded %s", shared.ErrTimeout, e.opts.AnnotationTimeout)
	case errors.Is(err, shared.ErrEmptyResponse):
		e.metrics.AnnotationFinished("empty")
		return "", err
	default:
		e.metrics.AnnotationFinished("error")
		return "", fmt.Errorf("%w: annotation: %w", shared.ErrServiceUnavailable, err)
	}
}

// Annotate returns the annotation for the playlist, or [FallbackAnnotation] when none could be produced.
// It never fails.
func (e *PlaylistEngine) Annotate(ctx context.Context, playlistName string, labels []string) string {
	text, err := e.GenerateAnnotation(ctx, playlistName, labels)
	if err != nil {
		e.logger.Warn("annotation unavailable", "playlist", playlistName, "err", err)
		return FallbackAnnotation
	}
	if strings.TrimSpace(text) == "" {
		return FallbackAnnotation
	}
	return text
}

// AnnotateRun writes the annotation for a finished run. The result sits in [AnnotationPending] while the
// completer is called and returns to [Done] afterwards. A run that did not reach Done gets
// [FallbackAnnotation] without a call.
func (e *PlaylistEngine) AnnotateRun(ctx context.Context, result *RunResult) string {
	if result == nil || result.Playlist == nil || result.Phase != Done {
		return FallbackAnnotation
	}

	result.enter(AnnotationPending)
	text := e.Annotate(ctx, result.Playlist.Name, result.Tracks)
	result.enter(Done)
	return text
}
