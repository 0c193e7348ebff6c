package ui

import (
	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/spottyg/internal/tasks"
)

var _ list.Item = trackItem{}

// trackItem is one suggested track in the result list.
type trackItem struct {
	label string
	added bool
}

func (i trackItem) FilterValue() string { return i.label }
func (i trackItem) Title() string       { return i.label }
func (i trackItem) Description() string {
	if i.added {
		return "added"
	}
	return "not found on Spotify"
}

// resultItems lists the added tracks in playlist order, then the ones the catalog did not have.
func resultItems(r *tasks.RunResult) []list.Item {
	items := make([]list.Item, 0, len(r.Tracks)+len(r.Unresolved))
	for _, label := range r.Tracks {
		items = append(items, trackItem{label: label, added: true})
	}
	for _, label := range r.Unresolved {
		items = append(items, trackItem{label: label})
	}
	return items
}
