package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/desertthunder/spottyg/internal/models"
	"github.com/desertthunder/spottyg/internal/shared"
)

// Warning texts attached to degraded results.
const (
	WarnNoTracks        = "no tracks were attached to the playlist"
	WarnAddTracksFailed = "tracks could not be added to the playlist"
)

// MaterializeResult is the outcome of creating a playlist.
type MaterializeResult struct {
	Playlist *models.Playlist
	OwnerID  string
	Added    int
	Warnings []string
}

// Materialize creates a private playlist named displayName and attaches ids in order.
//
// Profile and creation failures fail the call with a [*StageError]. When ids is empty, or adding the
// tracks fails, the playlist is still returned along with a warning.
func (e *PlaylistEngine) Materialize(ctx context.Context, credential, displayName string, ids []string) (*MaterializeResult, error) {
	start := time.Now()
	defer func() { e.metrics.ObserveStage("materialize", time.Since(start)) }()

	profile, err := e.catalog.Profile(ctx, credential)
	if err != nil {
		return nil, &StageError{Stage: StageProfile, Err: fmt.Errorf("%w: %w", shared.ErrMaterializationFailed, err)}
	}

	playlist, err := e.catalog.CreatePlaylist(ctx, credential, profile.ID, displayName, e.opts.PlaylistDescription)
	if err != nil {
		return nil, &StageError{Stage: StageCreate, Err: fmt.Errorf("%w: %w", shared.ErrMaterializationFailed, err)}
	}

	result := &MaterializeResult{Playlist: playlist, OwnerID: profile.ID}
	if len(ids) == 0 {
		result.Warnings = append(result.Warnings, WarnNoTracks)
		return result, nil
	}

	if err := e.catalog.AddTracks(ctx, credential, playlist.ID, ids); err != nil {
		e.logger.Warn("adding tracks failed", "playlist", playlist.ID, "count", len(ids), "err", err)
		e.metrics.StageFailed(string(StageAddTracks))
		result.Warnings = append(result.Warnings, fmt.Sprintf("%s: %v", WarnAddTracksFailed, err))
		return result, nil
	}

	result.Added = len(ids)
	return result, nil
}
