package tasks

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/desertthunder/spottyg/internal/models"
	"github.com/desertthunder/spottyg/internal/services"
	"github.com/desertthunder/spottyg/internal/shared"
)

const resolveSystemPrompt = "You are a music curator. You answer only with song lists, one song per line, " +
	"formatted exactly as: Title - Artist. No numbering, no commentary, no blank lines."

const resolveUserPrompt = "Suggest exactly %d real, released songs that fit this theme: %q"

// candidateLine matches "Title - Artist" with an optional list marker and optional quotes.
// Markdown emphasis around either part is removed afterwards by [stripEmphasis].
var candidateLine = regexp.MustCompile(`^(?:\d+\s*[.):-]\s*|[-*•]\s+)?["“]?(.+?)["”]?\s+[-–—]\s+["“]?(.+?)["”]?$`)

// ParseCandidates extracts up to limit "Title - Artist" pairs from completion text, in order.
// Lines that do not match the format are dropped.
func ParseCandidates(text string, limit int) []models.TrackCandidate {
	var out []models.TrackCandidate
	for _, line := range strings.Split(text, "\n") {
		if limit > 0 && len(out) >= limit {
			break
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		m := candidateLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}

		title, artist := stripEmphasis(m[1]), stripEmphasis(m[2])
		if title == "" || artist == "" {
			continue
		}
		out = append(out, models.TrackCandidate{Title: title, Artist: artist})
	}
	return out
}

// stripEmphasis removes markdown bold/italic markers and quotes wrapped around a title or artist.
func stripEmphasis(s string) string {
	return strings.Trim(strings.TrimSpace(s), "*_\"“” ")
}

// ResolveTrackCandidates asks the completer for songs matching theme and parses the reply.
//
// An empty theme is rejected before any upstream call. An empty reply yields no candidates.
func (e *PlaylistEngine) ResolveTrackCandidates(ctx context.Context, theme string) ([]models.TrackCandidate, error) {
	theme = strings.TrimSpace(theme)
	if theme == "" {
		return nil, fmt.Errorf("%w: theme prompt is empty", shared.ErrInvalidInput)
	}

	start := time.Now()
	defer func() { e.metrics.ObserveStage(string(StageResolve), time.Since(start)) }()

	text, err := e.completer.Complete(ctx, services.CompletionRequest{
		Messages: []services.Message{
			{Role: services.RoleSystem, Content: resolveSystemPrompt},
			{Role: services.RoleUser, Content: fmt.Sprintf(resolveUserPrompt, e.opts.CandidateCount, theme)},
		},
	})
	switch {
	case errors.Is(err, shared.ErrEmptyResponse):
		e.logger.Warn("completer returned no suggestions", "theme", theme)
		text = ""
	case err != nil:
		return nil, fmt.Errorf("%w: track suggestions: %w", shared.ErrServiceUnavailable, err)
	}

	candidates := ParseCandidates(text, e.opts.CandidateCount)
	e.logger.Debug("parsed track candidates", "count", len(candidates), "requested", e.opts.CandidateCount)
	return candidates, nil
}
