// Package ui implements the SpottyG terminal chat using bubbletea's Elm architecture.
//
// The TUI walks through one conversation turn at a time:
//  1. [PromptView] : Describe the playlist you want
//  2. [RunningView] : Follow the pipeline as it suggests, searches and creates
//  3. [ResultView] : Browse the added tracks while the annotation is written
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern, receiving messages via the Msg union type.
// Progress updates flow through a channel from the PlaylistEngine, so the view never blocks on the pipeline.
//
// Keyboard navigation uses enter to submit, j/k in the track list, n for a new prompt and q or ctrl+c to quit,
// with contextual help displayed via charmbracelet/bubbles/help.
package ui
