package models

import "strings"

// TrackCandidate is a song proposed for a theme before it has been looked up in the catalog.
type TrackCandidate struct {
	Title  string `json:"title"`
	Artist string `json:"artist"`
}

// Label renders the candidate the way it is shown to users and sent to the annotation prompt.
func (c TrackCandidate) Label() string {
	return c.Title + " - " + c.Artist
}

// Query builds the free-text catalog search for the candidate.
func (c TrackCandidate) Query() string {
	return strings.TrimSpace(c.Title + " " + c.Artist)
}

// ResolvedTrack pairs a candidate with the catalog track it matched.
//
// An empty CatalogID means the candidate was not found (or its lookup failed, in which case Err is set).
type ResolvedTrack struct {
	Candidate TrackCandidate `json:"candidate"`
	CatalogID string         `json:"catalogId,omitempty"`
	URI       string         `json:"uri,omitempty"`
	Err       error          `json:"-"`
}

// Found reports whether the candidate matched a catalog track.
func (r ResolvedTrack) Found() bool {
	return r.CatalogID != ""
}

// Labels returns the labels of the given candidates, in order.
func Labels(candidates []TrackCandidate) []string {
	labels := make([]string, len(candidates))
	for i, c := range candidates {
		labels[i] = c.Label()
	}
	return labels
}

// Playlist is a handle to a playlist that exists in the catalog.
type Playlist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url"`
}
