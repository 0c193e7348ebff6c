// Package models defines domain entities and persistence interfaces for spottyg.
//
// The package contains two categories of types:
//
// 1. Pipeline values: transient data passed between the playlist generation stages
//   - [TrackCandidate] : a title/artist pair proposed by the language model
//   - [ResolvedTrack] : a candidate paired with its catalog identifier, when one was found
//   - [Playlist] : handle to a playlist created in the catalog
//
// 2. Persistent Entities: database-backed records with full lifecycle management
//   - [User] : Spotify accounts that have signed in
//   - [GeneratedPlaylist] : history of playlists produced by the pipeline
//
// All persistent entities implement the Model interface providing ID generation, timestamps, validation, and soft delete support.
// The Repository[T] interface defines standard CRUD operations for database access.
package models
