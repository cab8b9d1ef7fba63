package sync

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/example/movie-platform/internal/store"
	"github.com/example/movie-platform/internal/tmdb"
)

// changesWindow is the trailing window the incremental sync inspects; the
// remote changes endpoint accepts at most 14 days.
const changesWindow = 14 * 24 * time.Hour

// changesEndpoint is the checkpoint label persisted for incremental runs.
const changesEndpoint = "changes"

// ChangesSync updates only the locally known movies the remote catalog
// reported as changed inside the trailing window. It never inserts rows.
type ChangesSync struct {
	Log    *zap.Logger
	Client tmdb.API
	Store  store.MovieStore
	State  *State
}

// Run executes one incremental sync. Exactly one SyncLog row is persisted
// per invocation, on success and on failure alike.
func (c *ChangesSync) Run(ctx context.Context) (err error) {
	start := time.Now().UTC()
	var totalUpdated int

	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("changes sync panic: %v", p)
		}
		status := store.SyncSuccess
		var errMsg string
		if err != nil {
			status = store.SyncFailed
			errMsg = err.Error()
		}
		if _, logErr := c.Store.InsertSyncLog(ctx, store.SyncLog{
			LastSyncAt:         start,
			TotalUpdated:       totalUpdated,
			Status:             status,
			LastSyncedEndpoint: changesEndpoint,
			ErrorMessage:       errMsg,
		}); logErr != nil {
			c.Log.Error("persist sync log failed", zap.Error(logErr))
		}
	}()

	end := time.Now().UTC()
	changed, err := c.fetchChangedIDs(ctx, end.Add(-changesWindow), end)
	if err != nil {
		return err
	}
	c.Log.Info("changed movies reported", zap.Int("count", len(changed)))
	if len(changed) == 0 {
		return nil
	}

	existing, err := c.Store.MoviesByAPIIDs(ctx, changed, store.SourceTMDB)
	if err != nil {
		return err
	}
	if len(existing) == 0 {
		c.Log.Info("no changed movies exist locally, nothing to update")
		return nil
	}

	genreMap, err := SyncGenres(ctx, c.Log, c.Client, c.Store)
	if err != nil {
		return err
	}

	apiIDs := make([]string, 0, len(existing))
	for id := range existing {
		apiIDs = append(apiIDs, id)
	}
	sort.Strings(apiIDs)

	for chunkStart := 0; chunkStart < len(apiIDs); chunkStart += BatchSize {
		chunk := apiIDs[chunkStart:min(chunkStart+BatchSize, len(apiIDs))]

		var updates []store.MovieUpdate
		for _, apiID := range chunk {
			detail, detailErr := c.Client.MovieDetail(ctx, apiID)
			if detailErr != nil {
				// A single movie failing to fetch never fails the run.
				c.Log.Warn("movie detail fetch failed, skipping",
					zap.String("api_id", apiID), zap.Error(detailErr))
				continue
			}
			row := existing[apiID]
			updates = append(updates, store.MovieUpdate{
				ID: row.ID,
				MovieFields: store.MovieFields{
					Title:       titleOrDefault(detail.Title),
					Overview:    detail.Overview,
					ReleaseDate: parseReleaseDate(detail.ReleaseDate),
					Popularity:  detail.Popularity,
					Rating:      detail.VoteAverage,
					Status:      store.StatusActive,
				},
				GenreIDs: mapDetailGenres(detail.Genres, genreMap),
			})
		}
		if len(updates) == 0 {
			continue
		}
		if err := c.Store.ApplyMovieBatch(ctx, nil, updates); err != nil {
			return err
		}
		totalUpdated += len(updates)
		c.State.recordProgress(0, totalUpdated, changesEndpoint, 0)
		c.Log.Info("changes chunk committed", zap.Int("total_updated", totalUpdated))
	}
	return nil
}

// fetchChangedIDs pages through the changes endpoint collecting the set of
// remote ids reported changed in [start, end].
func (c *ChangesSync) fetchChangedIDs(ctx context.Context, start, end time.Time) ([]string, error) {
	seen := make(map[int64]struct{})
	for page := 1; ; page++ {
		resp, err := c.Client.ChangesPage(ctx, start, end, page)
		if err != nil {
			return nil, fmt.Errorf("changes page %d: %w", page, err)
		}
		if len(resp.Results) == 0 {
			break
		}
		for _, r := range resp.Results {
			seen[r.ID] = struct{}{}
		}
		if page >= resp.TotalPages {
			break
		}
	}

	out := make([]string, 0, len(seen))
	for id := range seen {
		out = append(out, fmt.Sprint(id))
	}
	sort.Strings(out)
	return out, nil
}

// mapDetailGenres intersects the detail payload's embedded genre objects
// with the synced mapping, matching by remote id.
func mapDetailGenres(entries []tmdb.GenreEntry, genreMap map[int64]store.Genre) []uuid.UUID {
	var out []uuid.UUID
	for _, e := range entries {
		if g, ok := genreMap[e.ID]; ok {
			out = append(out, g.ID)
		}
	}
	return out
}
