// package formatter renders generated playlists for the terminal and for export (plain text, Markdown, JSON, CSV)
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/spottyg/internal/models"
	"github.com/desertthunder/spottyg/internal/shared"
	"github.com/desertthunder/spottyg/internal/tasks"
)

// Format names accepted by [Render] and [WriteReport].
const (
	FormatText     = "text"
	FormatMarkdown = "markdown"
	FormatJSON     = "json"
)

// Report is a finished run as presented to a reader.
type Report struct {
	RunID      string          `json:"runId"`
	Prompt     string          `json:"prompt"`
	Playlist   models.Playlist `json:"playlist"`
	Tracks     []string        `json:"tracks"`
	Unresolved []string        `json:"unresolved,omitempty"`
	Warnings   []string        `json:"warnings,omitempty"`
	Annotation string          `json:"annotation,omitempty"`
}

// NewReport builds a report from a successful run. annotation may be empty.
func NewReport(r *tasks.RunResult, annotation string) *Report {
	report := &Report{
		RunID:      r.RunID,
		Prompt:     r.Prompt,
		Tracks:     r.Tracks,
		Unresolved: r.Unresolved,
		Warnings:   r.Warnings,
		Annotation: annotation,
	}
	if r.Playlist != nil {
		report.Playlist = *r.Playlist
	}
	if report.Tracks == nil {
		report.Tracks = []string{}
	}
	return report
}

// ToText renders the report as plain text
func ToText(r *Report) []byte {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Playlist: %s\n", r.Playlist.Name)
	if r.Playlist.URL != "" {
		fmt.Fprintf(&buf, "URL: %s\n", r.Playlist.URL)
	}
	fmt.Fprintf(&buf, "Tracks: %d\n\n", len(r.Tracks))

	for i, track := range r.Tracks {
		fmt.Fprintf(&buf, "%d. %s\n", i+1, track)
	}

	for _, w := range r.Warnings {
		fmt.Fprintf(&buf, "\nWarning: %s", w)
	}
	if len(r.Warnings) > 0 {
		buf.WriteString("\n")
	}

	if r.Annotation != "" {
		fmt.Fprintf(&buf, "\n%s\n", r.Annotation)
	}
	return buf.Bytes()
}

// ToMarkdown renders the report as a Markdown document with the annotation under its own heading.
func ToMarkdown(r *Report) []byte {
	var buf bytes.Buffer

	if r.Playlist.URL != "" {
		fmt.Fprintf(&buf, "# [%s](%s)\n\n", r.Playlist.Name, r.Playlist.URL)
	} else {
		fmt.Fprintf(&buf, "# %s\n\n", r.Playlist.Name)
	}

	fmt.Fprintf(&buf, "**Prompt**: %s\n", r.Prompt)
	fmt.Fprintf(&buf, "**Tracks**: %d\n\n", len(r.Tracks))

	buf.WriteString("## Tracks\n\n")
	for i, track := range r.Tracks {
		fmt.Fprintf(&buf, "%d. %s\n", i+1, track)
	}

	if len(r.Unresolved) > 0 {
		buf.WriteString("\n## Not Found\n\n")
		for _, label := range r.Unresolved {
			fmt.Fprintf(&buf, "- %s\n", label)
		}
	}

	if len(r.Warnings) > 0 {
		buf.WriteString("\n")
		for _, w := range r.Warnings {
			fmt.Fprintf(&buf, "> %s\n", w)
		}
	}

	if r.Annotation != "" {
		fmt.Fprintf(&buf, "\n## History\n\n%s\n", r.Annotation)
	}
	return buf.Bytes()
}

// ToJSON renders the report as indented JSON
func ToJSON(r *Report) ([]byte, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode report: %w", err)
	}
	return append(data, '\n'), nil
}

// Render renders the report in the named format.
func Render(r *Report, format string) ([]byte, error) {
	switch strings.ToLower(format) {
	case "", FormatText:
		return ToText(r), nil
	case FormatMarkdown, "md":
		return ToMarkdown(r), nil
	case FormatJSON:
		return ToJSON(r)
	default:
		return nil, fmt.Errorf("%w: unknown format %q", shared.ErrInvalidInput, format)
	}
}

// Extension returns the file extension used for format.
func Extension(format string) string {
	switch strings.ToLower(format) {
	case FormatMarkdown, "md":
		return ".md"
	case FormatJSON:
		return ".json"
	default:
		return ".txt"
	}
}

// WriteReport writes the report to path in the given format.
//
// Defaults to {playlist.ID}{ext} as the filename.
func WriteReport(r *Report, format, path string) (string, error) {
	if path == "" {
		path = r.Playlist.ID + Extension(format)
	}

	data, err := Render(r, format)
	if err != nil {
		return "", err
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}
	return path, nil
}

// HistoryToCSV converts generated playlist records to CSV with columns: Run ID, Playlist ID, Name, Prompt, Tracks, URL, Created
func HistoryToCSV(records []*models.GeneratedPlaylist) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Run ID", "Playlist ID", "Name", "Prompt", "Tracks", "URL", "Created"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, p := range records {
		record := []string{
			p.RunID(),
			p.SpotifyPlaylistID(),
			p.Name(),
			p.Prompt(),
			strconv.Itoa(p.TrackCount()),
			p.URL(),
			p.CreatedAt().UTC().Format(time.RFC3339),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}
	return buf.Bytes(), nil
}
