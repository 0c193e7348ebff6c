package tasks

import (
	"fmt"

	"github.com/desertthunder/spottyg/internal/models"
)

// ProgressUpdate represents a progress event during a pipeline run.
//
// Used to send real-time updates to the CLI, TUI or event stream for display.
type ProgressUpdate struct {
	Phase   Phase  // Pipeline state entered
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Phase is a state of the playlist generation pipeline.
//
// A run moves Idle → ResolvingCredential → ResolvingTracks → SearchingCatalog → Materializing →
// Materialized → Done, or ends early in CredentialMissing or Failed. A Done run passes through
// AnnotationPending and back to Done while [PlaylistEngine.AnnotateRun] writes its annotation.
type Phase int

const (
	Idle Phase = iota
	ResolvingCredential
	ResolvingTracks
	SearchingCatalog
	Materializing
	Materialized
	AnnotationPending
	Done
	CredentialMissing
	Failed
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case ResolvingCredential:
		return "resolving_credential"
	case ResolvingTracks:
		return "resolving_tracks"
	case SearchingCatalog:
		return "searching_catalog"
	case Materializing:
		return "materializing"
	case Materialized:
		return "materialized"
	case AnnotationPending:
		return "annotation_pending"
	case Done:
		return "done"
	case CredentialMissing:
		return "credential_missing"
	case Failed:
		return "failed"
	default:
		return ""
	}
}

// Terminal reports whether no further transition follows p.
func (p Phase) Terminal() bool {
	return p == Done || p == CredentialMissing || p == Failed
}

func phaseUpdate(p Phase, message string) ProgressUpdate {
	return ProgressUpdate{Phase: p, Step: 1, Total: 1, Message: message}
}

func candidatesUpdate(candidates []models.TrackCandidate) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ResolvingTracks,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Got %d track suggestions", len(candidates)),
		Data:    candidates,
	}
}

func searchTrackUpdate(step, total int, r models.ResolvedTrack) ProgressUpdate {
	mark := "✓"
	if !r.Found() {
		mark = "✗"
	}
	return ProgressUpdate{
		Phase:   SearchingCatalog,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] %s %s", step, total, mark, r.Candidate.Label()),
		Data:    r,
	}
}

func playlistCreatedUpdate(p *models.Playlist, tracks int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Materialized,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Playlist created: %s (%d tracks)", p.Name, tracks),
		Data:    p,
	}
}

func failedUpdate(err error) ProgressUpdate {
	return ProgressUpdate{Phase: Failed, Step: 1, Total: 1, Message: err.Error(), Data: err}
}
