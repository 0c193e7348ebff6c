package tasks

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spottyg/internal/metrics"
	"github.com/desertthunder/spottyg/internal/models"
	"github.com/desertthunder/spottyg/internal/services"
	"github.com/desertthunder/spottyg/internal/shared"
	"golang.org/x/time/rate"
)

// Options tunes the pipeline.
type Options struct {
	CandidateCount      int           // Songs requested from the completer
	SearchConcurrency   int           // Concurrent catalog lookups; 0 means one per candidate
	SearchRate          float64       // Catalog lookups per second; 0 disables limiting
	AnnotationTimeout   time.Duration // Ceiling on a single annotation call
	PlaylistPrefix      string        // Prepended to the truncated prompt to name playlists
	PlaylistDescription string
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		CandidateCount:      10,
		AnnotationTimeout:   10 * time.Second,
		PlaylistPrefix:      "SpottyG Playlist - ",
		PlaylistDescription: "Created by SpottyG",
	}
}

// OptionsFromConfig builds [Options] from the pipeline section of the configuration.
func OptionsFromConfig(cfg shared.PipelineConfig) Options {
	opts := DefaultOptions()
	if cfg.CandidateCount > 0 {
		opts.CandidateCount = cfg.CandidateCount
	}
	if cfg.AnnotationTimeout > 0 {
		opts.AnnotationTimeout = cfg.AnnotationTimeout
	}
	if cfg.PlaylistPrefix != "" {
		opts.PlaylistPrefix = cfg.PlaylistPrefix
	}
	if cfg.PlaylistDescription != "" {
		opts.PlaylistDescription = cfg.PlaylistDescription
	}
	opts.SearchConcurrency = cfg.SearchConcurrency
	opts.SearchRate = cfg.SearchRate
	return opts
}

func (o Options) searchLimit(total int) int {
	if o.SearchConcurrency > 0 && o.SearchConcurrency < total {
		return o.SearchConcurrency
	}
	return max(total, 1)
}

// HistoryRecorder persists generated playlists. Satisfied by repositories.PlaylistRepository.
type HistoryRecorder interface {
	Create(p *models.GeneratedPlaylist) error
}

// RunResult is the outcome of a pipeline run.
type RunResult struct {
	RunID      string                  `json:"runId"`
	Prompt     string                  `json:"prompt"`
	Phase      Phase                   `json:"-"`
	Phases     []Phase                 `json:"-"`
	Playlist   *models.Playlist        `json:"playlist,omitempty"`
	OwnerID    string                  `json:"ownerId,omitempty"`
	Candidates []models.TrackCandidate `json:"candidates,omitempty"`
	Tracks     []string                `json:"tracks"`
	Unresolved []string                `json:"unresolved,omitempty"`
	Warnings   []string                `json:"warnings,omitempty"`
}

func (r *RunResult) enter(p Phase) {
	r.Phase = p
	r.Phases = append(r.Phases, p)
}

// PlaylistEngine runs the playlist generation pipeline.
// Contains dependencies on the catalog and completion services.
type PlaylistEngine struct {
	catalog     services.Catalog
	completer   services.Completer
	credentials CredentialAccessor
	history     HistoryRecorder
	metrics     *metrics.Collector
	logger      *log.Logger
	limiter     *rate.Limiter
	opts        Options
}

// EngineOption configures optional [PlaylistEngine] dependencies.
type EngineOption func(*PlaylistEngine)

// WithCredentials sets where the engine reads the end user's credential. Defaults to [ContextCredentials].
func WithCredentials(c CredentialAccessor) EngineOption {
	return func(e *PlaylistEngine) { e.credentials = c }
}

// WithHistory records every materialized playlist.
func WithHistory(h HistoryRecorder) EngineOption {
	return func(e *PlaylistEngine) { e.history = h }
}

// WithMetrics reports stage timings and outcomes to m.
func WithMetrics(m *metrics.Collector) EngineOption {
	return func(e *PlaylistEngine) { e.metrics = m }
}

// WithEngineLogger sets the engine's logger.
func WithEngineLogger(l *log.Logger) EngineOption {
	return func(e *PlaylistEngine) { e.logger = l }
}

// NewPlaylistEngine creates a new PlaylistEngine with the provided services.
func NewPlaylistEngine(catalog services.Catalog, completer services.Completer, opts Options, setters ...EngineOption) *PlaylistEngine {
	defaults := DefaultOptions()
	if opts.CandidateCount <= 0 {
		opts.CandidateCount = defaults.CandidateCount
	}
	if opts.AnnotationTimeout <= 0 {
		opts.AnnotationTimeout = defaults.AnnotationTimeout
	}
	if opts.PlaylistPrefix == "" {
		opts.PlaylistPrefix = defaults.PlaylistPrefix
	}

	e := &PlaylistEngine{
		catalog:     catalog,
		completer:   completer,
		credentials: ContextCredentials,
		opts:        opts,
	}
	for _, set := range setters {
		set(e)
	}

	if e.logger == nil {
		e.logger = shared.NewLogger(nil)
	}
	if opts.SearchRate > 0 {
		e.limiter = rate.NewLimiter(rate.Limit(opts.SearchRate), max(1, opts.SearchConcurrency))
	}
	return e
}

// Options returns the engine's effective options.
func (e *PlaylistEngine) Options() Options {
	return e.opts
}

// Catalog returns the catalog the engine writes to.
func (e *PlaylistEngine) Catalog() services.Catalog {
	return e.catalog
}

// Completer returns the completion service the engine prompts.
func (e *PlaylistEngine) Completer() services.Completer {
	return e.completer
}

// PlaylistName derives the playlist display name from the first 32 characters of the prompt.
func (e *PlaylistEngine) PlaylistName(prompt string) string {
	return e.opts.PlaylistPrefix + shared.TruncateRunes(strings.TrimSpace(prompt), 32)
}

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default to ensure progress reporting never blocks execution.
func (e *PlaylistEngine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// Run turns prompt into a playlist.
//
// The returned result is non-nil even on failure so callers can inspect the phase reached. A missing
// credential fails with [shared.ErrCredentialMissing] before any upstream call; later failures are
// [*StageError] values.
func (e *PlaylistEngine) Run(ctx context.Context, prompt string, progress chan<- ProgressUpdate) (*RunResult, error) {
	result := &RunResult{RunID: shared.GenerateID(), Prompt: prompt}
	result.enter(Idle)
	logger := shared.WithLogger(e.logger, "run_id", result.RunID)

	fail := func(phase Phase, err error) (*RunResult, error) {
		result.enter(phase)
		if stage, ok := StageOf(err); ok {
			e.metrics.StageFailed(string(stage))
		}
		e.metrics.RunFinished(phase.String())
		e.sendProgress(progress, failedUpdate(err))
		logger.Error("run failed", "phase", phase, "err", err)
		return result, err
	}

	if strings.TrimSpace(prompt) == "" {
		return fail(Failed, fmt.Errorf("%w: missing prompt", shared.ErrInvalidInput))
	}

	result.enter(ResolvingCredential)
	e.sendProgress(progress, phaseUpdate(ResolvingCredential, "Checking Spotify session..."))
	credential, ok := e.credentials.Credential(ctx)
	if !ok {
		return fail(CredentialMissing, shared.ErrCredentialMissing)
	}

	result.enter(ResolvingTracks)
	e.sendProgress(progress, phaseUpdate(ResolvingTracks, "Asking for track suggestions..."))
	candidates, err := e.ResolveTrackCandidates(ctx, prompt)
	if err != nil {
		return fail(Failed, stageErr(StageResolve, err))
	}
	result.Candidates = candidates
	e.sendProgress(progress, candidatesUpdate(candidates))
	logger.Info("resolved candidates", "count", len(candidates))

	result.enter(SearchingCatalog)
	e.sendProgress(progress, phaseUpdate(SearchingCatalog, "Searching Spotify..."))
	resolved, err := e.SearchCatalog(ctx, credential, candidates, progress)
	if err != nil {
		return fail(Failed, stageErr(StageSearch, err))
	}
	ids, attached, unresolved := PartitionResolved(resolved)
	result.Unresolved = unresolved

	result.enter(Materializing)
	name := e.PlaylistName(prompt)
	e.sendProgress(progress, phaseUpdate(Materializing, fmt.Sprintf("Creating playlist %q...", name)))
	m, err := e.Materialize(ctx, credential, name, ids)
	if err != nil {
		return fail(Failed, err)
	}

	result.Playlist = m.Playlist
	result.OwnerID = m.OwnerID
	result.Tracks = []string{}
	if m.Added > 0 {
		result.Tracks = models.Labels(attached)
	}
	if n := len(unresolved); n > 0 {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("%d of %d suggested tracks could not be found: %s", n, len(candidates), strings.Join(unresolved, "; ")))
	}
	result.Warnings = append(result.Warnings, m.Warnings...)

	result.enter(Materialized)
	e.sendProgress(progress, playlistCreatedUpdate(m.Playlist, m.Added))
	e.recordHistory(logger, result)

	result.enter(Done)
	e.metrics.RunFinished(Done.String())
	e.sendProgress(progress, ProgressUpdate{Phase: Done, Step: 1, Total: 1, Message: "Playlist ready", Data: result})
	logger.Info("run complete", "playlist", m.Playlist.ID, "tracks", m.Added, "unresolved", len(unresolved))
	return result, nil
}

func (e *PlaylistEngine) recordHistory(logger *log.Logger, r *RunResult) {
	if e.history == nil {
		return
	}

	rec := models.NewGeneratedPlaylist(0, r.RunID, r.OwnerID, r.Prompt, *r.Playlist, len(r.Tracks))
	if err := e.history.Create(rec); err != nil {
		logger.Warn("failed to record playlist history", "err", err)
	}
}

// IsAuthError reports whether err means the user has to sign in (again).
func IsAuthError(err error) bool {
	return errors.Is(err, shared.ErrCredentialMissing) || errors.Is(err, shared.ErrTokenExpired)
}
