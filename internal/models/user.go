package models

import (
	"fmt"
	"strings"
)

// User is a Spotify account that has completed the login flow.
type User struct {
	record
	spotifyID   string
	displayName string
	email       string
}

// NewUser creates a [User] with creation and update timestamps set to now.
func NewUser(sequence int, spotifyID, displayName, email string) *User {
	return &User{
		record:      newRecord(sequence),
		spotifyID:   spotifyID,
		displayName: displayName,
		email:       email,
	}
}

func (u *User) SpotifyID() string   { return u.spotifyID }
func (u *User) DisplayName() string { return u.displayName }
func (u *User) Email() string       { return u.email }

// SetProfile replaces the profile fields refreshed on every login.
func (u *User) SetProfile(displayName, email string) {
	u.displayName = displayName
	u.email = email
}

// Validate checks that the user can be persisted.
func (u *User) Validate() error {
	if u.id == "" {
		return fmt.Errorf("user id is required")
	}
	if strings.TrimSpace(u.spotifyID) == "" {
		return fmt.Errorf("spotify id is required")
	}
	if u.email != "" && !strings.Contains(u.email, "@") {
		return fmt.Errorf("invalid email: %s", u.email)
	}
	return nil
}
