package tasks

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/desertthunder/spottyg/internal/models"
	"github.com/desertthunder/spottyg/internal/shared"
	"golang.org/x/sync/errgroup"
)

// ResolveCatalogID looks up a single candidate and takes the top search result verbatim.
//
// No match is not an error: the returned track simply has an empty CatalogID.
func (e *PlaylistEngine) ResolveCatalogID(ctx context.Context, credential string, c models.TrackCandidate) (models.ResolvedTrack, error) {
	resolved := models.ResolvedTrack{Candidate: c}

	tracks, err := e.catalog.SearchTracks(ctx, credential, c.Query(), 1)
	if err != nil {
		resolved.Err = err
		return resolved, err
	}

	if len(tracks) > 0 {
		resolved.CatalogID = tracks[0].ID
		resolved.URI = tracks[0].URI
	}
	return resolved, nil
}

// SearchCatalog resolves every candidate concurrently and joins before returning.
//
// The result has one slot per candidate in candidate order. A failed lookup is logged and its slot left
// unresolved; the call itself only fails when the credential was rejected or when every lookup failed.
func (e *PlaylistEngine) SearchCatalog(ctx context.Context, credential string, candidates []models.TrackCandidate, progress chan<- ProgressUpdate) ([]models.ResolvedTrack, error) {
	start := time.Now()
	defer func() { e.metrics.ObserveStage(string(StageSearch), time.Since(start)) }()

	results := make([]models.ResolvedTrack, len(candidates))
	total := len(candidates)
	var done atomic.Int32

	var g errgroup.Group
	g.SetLimit(e.opts.searchLimit(total))

	for i, c := range candidates {
		g.Go(func() error {
			if e.limiter != nil {
				if err := e.limiter.Wait(ctx); err != nil {
					results[i] = models.ResolvedTrack{Candidate: c, Err: err}
					return nil
				}
			}

			r, err := e.ResolveCatalogID(ctx, credential, c)
			if err != nil {
				e.logger.Warn("catalog lookup failed", "track", c.Label(), "err", err)
			}
			results[i] = r

			e.sendProgress(progress, searchTrackUpdate(int(done.Add(1)), total, r))
			return nil
		})
	}
	_ = g.Wait()

	var failed, found int
	var authErr error
	for _, r := range results {
		switch {
		case r.Err != nil:
			failed++
			if authErr == nil && errors.Is(r.Err, shared.ErrTokenExpired) {
				authErr = r.Err
			}
		case r.Found():
			found++
		}
	}
	e.metrics.TracksResolved(found, total-found)

	if authErr != nil {
		return results, authErr
	}
	if total > 0 && failed == total {
		return results, fmt.Errorf("%w: all %d catalog lookups failed: %v", shared.ErrServiceUnavailable, total, results[0].Err)
	}
	return results, nil
}

// PartitionResolved returns the catalog ids of found tracks and the labels of the rest, both in candidate order.
func PartitionResolved(results []models.ResolvedTrack) (ids []string, attached []models.TrackCandidate, unresolved []string) {
	for _, r := range results {
		if r.Found() {
			ids = append(ids, r.CatalogID)
			attached = append(attached, r.Candidate)
		} else {
			unresolved = append(unresolved, r.Candidate.Label())
		}
	}
	return ids, attached, unresolved
}
