package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/spottyg/internal/models"
	"github.com/desertthunder/spottyg/internal/shared"
)

const playlistColumns = "id, sequence, run_id, spotify_user_id, spotify_playlist_id, name, prompt, url, track_count, annotation, created_at, updated_at, deleted_at"

// PlaylistRepository implements models.Repository[*models.GeneratedPlaylist] for playlist history.
//
// Handles CRUD operations with soft delete support, per-user listing and annotation lookups by run.
type PlaylistRepository struct {
	db *sql.DB
}

// NewPlaylistRepository creates a new PlaylistRepository with the given database connection
func NewPlaylistRepository(db *sql.DB) *PlaylistRepository {
	return &PlaylistRepository{db: db}
}

// Create inserts a new playlist into the database with generated ID and sequence
func (r *PlaylistRepository) Create(playlist *models.GeneratedPlaylist) error {
	playlist.SetID(shared.GenerateID())
	if err := playlist.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	sequence, err := NextSequence(r.db, "generated_playlists")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}
	playlist.SetSequence(sequence)

	query := `
		INSERT INTO generated_playlists (
			id, sequence, run_id, spotify_user_id, spotify_playlist_id, name, prompt, url, track_count, annotation,
			created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query,
		playlist.ID(),
		sequence,
		playlist.RunID(),
		playlist.SpotifyUserID(),
		playlist.SpotifyPlaylistID(),
		playlist.Name(),
		playlist.Prompt(),
		playlist.URL(),
		playlist.TrackCount(),
		playlist.Annotation(),
		playlist.CreatedAt(),
		playlist.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert playlist: %w", err)
	}

	return nil
}

// Get retrieves a playlist by ID, excluding soft-deleted playlists
func (r *PlaylistRepository) Get(id string) (*models.GeneratedPlaylist, error) {
	query := "SELECT " + playlistColumns + " FROM generated_playlists WHERE id = ? AND deleted_at IS NULL"
	return r.scanOne(r.db.QueryRow(query, id), id)
}

// GetByRunID retrieves the playlist produced by a pipeline run.
func (r *PlaylistRepository) GetByRunID(runID string) (*models.GeneratedPlaylist, error) {
	query := "SELECT " + playlistColumns + " FROM generated_playlists WHERE run_id = ? AND deleted_at IS NULL"
	return r.scanOne(r.db.QueryRow(query, runID), "run "+runID)
}

// Update modifies an existing playlist in the database
func (r *PlaylistRepository) Update(playlist *models.GeneratedPlaylist) error {
	if err := playlist.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now().UTC()
	playlist.SetUpdatedAt(now)

	query := `
		UPDATE generated_playlists
		SET name = ?, url = ?, track_count = ?, annotation = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query,
		playlist.Name(),
		playlist.URL(),
		playlist.TrackCount(),
		playlist.Annotation(),
		now,
		playlist.ID(),
	)
	if err != nil {
		return fmt.Errorf("failed to update playlist: %w", err)
	}

	return expectRow(result, playlist.ID())
}

// SetAnnotation stores the annotation produced for a run's playlist.
func (r *PlaylistRepository) SetAnnotation(runID, annotation string) error {
	query := `
		UPDATE generated_playlists
		SET annotation = ?, updated_at = ?
		WHERE run_id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query, annotation, time.Now().UTC(), runID)
	if err != nil {
		return fmt.Errorf("failed to store annotation: %w", err)
	}

	return expectRow(result, "run "+runID)
}

// Delete soft-deletes a playlist by ID
func (r *PlaylistRepository) Delete(id string) error {
	query := `
		UPDATE generated_playlists
		SET deleted_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to delete playlist: %w", err)
	}

	return expectRow(result, id)
}

// ListByUser returns a user's most recent playlists first, at most limit of them when limit is positive.
func (r *PlaylistRepository) ListByUser(spotifyUserID string, limit int) ([]*models.GeneratedPlaylist, error) {
	return r.List(map[string]any{"spotify_user_id": spotifyUserID, "limit": limit})
}

// List retrieves all playlists matching the given criteria, newest first, excluding soft-deleted playlists
//
// Supported criteria: "spotify_user_id" (string), "run_id" (string) and "limit" (int).
func (r *PlaylistRepository) List(criteria map[string]any) ([]*models.GeneratedPlaylist, error) {
	query := "SELECT " + playlistColumns + " FROM generated_playlists WHERE deleted_at IS NULL"
	args := []any{}

	if userID, ok := criteria["spotify_user_id"].(string); ok && userID != "" {
		query += " AND spotify_user_id = ?"
		args = append(args, userID)
	}
	if runID, ok := criteria["run_id"].(string); ok && runID != "" {
		query += " AND run_id = ?"
		args = append(args, runID)
	}

	query += " ORDER BY sequence DESC"

	if limit, ok := criteria["limit"].(int); ok && limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query playlists: %w", err)
	}
	defer rows.Close()

	var playlists []*models.GeneratedPlaylist
	for rows.Next() {
		p, err := scanPlaylist(rows)
		if err != nil {
			return nil, err
		}
		playlists = append(playlists, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return playlists, nil
}

func (r *PlaylistRepository) scanOne(row *sql.Row, key string) (*models.GeneratedPlaylist, error) {
	p, err := scanPlaylist(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, key)
	}
	return p, err
}

func scanPlaylist(s scanner) (*models.GeneratedPlaylist, error) {
	var (
		id, runID, userID, playlistID string
		name, prompt, url, annotation string
		sequence, trackCount          int
		createdAt, updatedAt          time.Time
		deletedAt                     sql.NullTime
	)

	err := s.Scan(&id, &sequence, &runID, &userID, &playlistID, &name, &prompt, &url, &trackCount, &annotation,
		&createdAt, &updatedAt, &deletedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan playlist: %w", err)
	}

	p := models.NewGeneratedPlaylist(sequence, runID, userID, prompt, models.Playlist{ID: playlistID, Name: name, URL: url}, trackCount)
	p.SetID(id)
	p.SetAnnotation(annotation)
	p.SetCreatedAt(createdAt)
	p.SetUpdatedAt(updatedAt)
	if deletedAt.Valid {
		p.SetDeletedAt(&deletedAt.Time)
	}

	return p, nil
}

func expectRow(result sql.Result, key string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, key)
	}
	return nil
}
