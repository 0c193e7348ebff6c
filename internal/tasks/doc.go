// Package tasks implements the playlist generation pipeline with real-time progress reporting.
//
// # Core Operations
//
// [PlaylistEngine.Run] turns a theme prompt into a private Spotify playlist:
//
//  1. Resolve the end user's credential via a [CredentialAccessor]
//     - A missing credential stops the run before any upstream call
//  2. [PlaylistEngine.ResolveTrackCandidates] asks the completer for "Title - Artist" lines
//  3. [PlaylistEngine.SearchCatalog] looks every candidate up concurrently
//     - One slot per candidate, in candidate order
//     - Misses and per-item failures are dropped and reported as warnings
//  4. [PlaylistEngine.Materialize] reads the profile, creates the playlist and attaches the tracks
//     - A failed attach still returns the playlist, with a warning
//
// [PlaylistEngine.Annotate] produces the historical annotation separately, bounded by a timeout, and falls
// back to [FallbackAnnotation].
//
// # Progress Reporting
//
// All operations use non-blocking channels for progress updates.
//
// The [ProgressUpdate] struct contains the [Phase], step counters, a message, and optional data for UI
// rendering. Updates use select with default so a slow consumer never stalls a run.
//
// # Errors
//
// Failures after the credential check are [*StageError] values naming the stage that failed. Use
// [StageOf] to read it and errors.Is against the shared sentinels for the cause.
package tasks
