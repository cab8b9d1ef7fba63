package sync

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/example/movie-platform/internal/store"
	"github.com/example/movie-platform/internal/tmdb"
)

// FullSync walks the configured list endpoints, reconciling the merged
// record stream in batches. Each batch commits on its own, so a later
// failure loses nothing already applied and the run can resume from the
// recorded checkpoint.
type FullSync struct {
	Log        *zap.Logger
	Client     tmdb.API
	Store      store.MovieStore
	Reconciler *Reconciler
	Endpoints  []EndpointConfig
	State      *State
}

// Run executes one full sync. With resume=true the stream starts after the
// checkpoint of the most recent failed run, if any. Exactly one SyncLog row
// is persisted per invocation, on success and on failure alike.
func (f *FullSync) Run(ctx context.Context, resume bool) (err error) {
	start := time.Now().UTC()
	var totalInserted, totalUpdated int
	var lastEndpoint string
	var lastPage int

	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("full sync panic: %v", p)
		}
		status := store.SyncSuccess
		var errMsg string
		if err != nil {
			status = store.SyncFailed
			errMsg = err.Error()
		}
		if _, logErr := f.Store.InsertSyncLog(ctx, store.SyncLog{
			LastSyncAt:         start,
			TotalInserted:      totalInserted,
			TotalUpdated:       totalUpdated,
			Status:             status,
			LastSyncedEndpoint: lastEndpoint,
			LastSyncedPage:     lastPage,
			ErrorMessage:       errMsg,
		}); logErr != nil {
			f.Log.Error("persist sync log failed", zap.Error(logErr))
		}
	}()

	var resumeEndpoint string
	var resumePage int
	if resume {
		failed, lookupErr := f.Store.LatestFailedSyncLog(ctx)
		if lookupErr != nil {
			return lookupErr
		}
		if failed != nil && failed.LastSyncedEndpoint != "" {
			resumeEndpoint = failed.LastSyncedEndpoint
			resumePage = failed.LastSyncedPage
			f.Log.Info("resuming full sync",
				zap.String("endpoint", resumeEndpoint), zap.Int("page", resumePage))
		}
	}

	genreMap, err := SyncGenres(ctx, f.Log, f.Client, f.Store)
	if err != nil {
		return err
	}

	stream := NewStream(f.Client, f.Endpoints, resumeEndpoint, resumePage)
	batch := make([]Record, 0, BatchSize)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		res, err := f.Reconciler.Reconcile(ctx, batch, genreMap)
		if err != nil {
			return err
		}
		totalInserted += res.Inserted
		totalUpdated += res.Updated
		lastEndpoint = res.LastEndpoint
		lastPage = res.LastPage
		f.State.recordProgress(totalInserted, totalUpdated, lastEndpoint, lastPage)
		f.Log.Info("movies batch committed",
			zap.Int("inserted", res.Inserted), zap.Int("updated", res.Updated),
			zap.Int("total_inserted", totalInserted), zap.Int("total_updated", totalUpdated),
			zap.String("endpoint", lastEndpoint), zap.Int("page", lastPage))
		batch = batch[:0]
		return nil
	}

	for {
		rec, ok, streamErr := stream.Next(ctx)
		if streamErr != nil {
			return streamErr
		}
		if !ok {
			break
		}
		batch = append(batch, rec)
		if len(batch) == BatchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	return flush()
}
