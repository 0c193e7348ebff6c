package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/spottyg/internal/models"
	"github.com/desertthunder/spottyg/internal/shared"
)

const userColumns = "id, sequence, spotify_id, display_name, email, created_at, updated_at, deleted_at"

// UserRepository implements [models.Repository] for user [models.User] persistence.
type UserRepository struct {
	db *sql.DB
}

// NewUserRepository creates a new [UserRepository] with the given database connection
func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a new user into the database with generated ID and sequence
func (r *UserRepository) Create(user *models.User) error {
	user.SetID(shared.GenerateID())
	if err := user.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	sequence, err := NextSequence(r.db, "users")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}
	user.SetSequence(sequence)

	query := `
		INSERT INTO users (id, sequence, spotify_id, display_name, email, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query,
		user.ID(),
		sequence,
		user.SpotifyID(),
		user.DisplayName(),
		user.Email(),
		user.CreatedAt(),
		user.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}

	return nil
}

// Get retrieves a user by ID, excluding soft-deleted users
func (r *UserRepository) Get(id string) (*models.User, error) {
	query := "SELECT " + userColumns + " FROM users WHERE id = ? AND deleted_at IS NULL"

	user, err := scanUser(r.db.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", shared.ErrUserNotFound, id)
	}
	return user, err
}

// GetBySpotifyID retrieves the user signed in with the given Spotify account.
func (r *UserRepository) GetBySpotifyID(spotifyID string) (*models.User, error) {
	query := "SELECT " + userColumns + " FROM users WHERE spotify_id = ? AND deleted_at IS NULL"

	user, err := scanUser(r.db.QueryRow(query, spotifyID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: spotify id %s", shared.ErrUserNotFound, spotifyID)
	}
	return user, err
}

// Upsert records a login: existing accounts get their profile refreshed, new ones are created.
//
// A soft-deleted account with the same Spotify ID is restored.
func (r *UserRepository) Upsert(spotifyID, displayName, email string) (*models.User, error) {
	user, err := r.GetBySpotifyID(spotifyID)
	switch {
	case err == nil:
		user.SetProfile(displayName, email)
		if err := r.Update(user); err != nil {
			return nil, err
		}
		return user, nil
	case !errors.Is(err, shared.ErrUserNotFound):
		return nil, err
	}

	now := time.Now().UTC()
	result, err := r.db.Exec(`
		UPDATE users
		SET display_name = ?, email = ?, updated_at = ?, deleted_at = NULL
		WHERE spotify_id = ? AND deleted_at IS NOT NULL
	`, displayName, email, now, spotifyID)
	if err != nil {
		return nil, fmt.Errorf("failed to restore user: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows > 0 {
		return r.GetBySpotifyID(spotifyID)
	}

	user = models.NewUser(0, spotifyID, displayName, email)
	if err := r.Create(user); err != nil {
		return nil, err
	}
	return user, nil
}

// Update modifies an existing user in the database
func (r *UserRepository) Update(user *models.User) error {
	if err := user.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now().UTC()
	user.SetUpdatedAt(now)

	query := `
		UPDATE users
		SET display_name = ?, email = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query, user.DisplayName(), user.Email(), now, user.ID())
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrUserNotFound, user.ID())
	}

	return nil
}

// Delete soft-deletes a user by ID
func (r *UserRepository) Delete(id string) error {
	query := `
		UPDATE users
		SET deleted_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrUserNotFound, id)
	}

	return nil
}

// List retrieves all users matching the given criteria, excluding soft-deleted users
//
// Supported criteria: "spotify_id" and "email" (string).
func (r *UserRepository) List(criteria map[string]any) ([]*models.User, error) {
	query := "SELECT " + userColumns + " FROM users WHERE deleted_at IS NULL"
	args := []any{}

	if spotifyID, ok := criteria["spotify_id"].(string); ok && spotifyID != "" {
		query += " AND spotify_id = ?"
		args = append(args, spotifyID)
	}
	if email, ok := criteria["email"].(string); ok && email != "" {
		query += " AND email = ?"
		args = append(args, email)
	}

	query += " ORDER BY sequence ASC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return users, nil
}

// scanner is satisfied by [sql.Row] and [sql.Rows].
type scanner interface {
	Scan(dest ...any) error
}

func scanUser(s scanner) (*models.User, error) {
	var (
		id          string
		sequence    int
		spotifyID   string
		displayName string
		email       string
		createdAt   time.Time
		updatedAt   time.Time
		deletedAt   sql.NullTime
	)

	err := s.Scan(&id, &sequence, &spotifyID, &displayName, &email, &createdAt, &updatedAt, &deletedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}

	user := models.NewUser(sequence, spotifyID, displayName, email)
	user.SetID(id)
	user.SetCreatedAt(createdAt)
	user.SetUpdatedAt(updatedAt)
	if deletedAt.Valid {
		user.SetDeletedAt(&deletedAt.Time)
	}

	return user, nil
}
