package sync

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/example/movie-platform/internal/store"
	"github.com/example/movie-platform/internal/tmdb"
)

// BatchSize is how many merged records one reconciliation unit covers.
const BatchSize = 100

// Reconciler upserts batches of remote records into the local catalog.
type Reconciler struct {
	Store     store.MovieStore
	ImageBase string // e.g. https://image.tmdb.org/t/p
}

// BatchResult reports one committed batch. LastEndpoint/LastPage come from
// the batch's final record and form the checkpoint the caller persists.
type BatchResult struct {
	Inserted     int
	Updated      int
	LastEndpoint string
	LastPage     int
}

// Reconcile applies one batch in a single transaction: new remote ids become
// tmdb-sourced rows (with poster/backdrop images), known ids get their
// fields overwritten in place, and genre links are recomputed for both.
// Re-running an identical batch is a no-op apart from timestamps.
func (r *Reconciler) Reconcile(ctx context.Context, batch []Record, genreMap map[int64]store.Genre) (BatchResult, error) {
	if len(batch) == 0 {
		return BatchResult{}, nil
	}

	apiIDs := make([]string, 0, len(batch))
	for _, rec := range batch {
		apiIDs = append(apiIDs, strconv.FormatInt(rec.Movie.ID, 10))
	}
	existing, err := r.Store.MoviesByAPIIDs(ctx, apiIDs, "")
	if err != nil {
		return BatchResult{}, err
	}

	var inserts []store.NewMovie
	var updates []store.MovieUpdate
	for _, rec := range batch {
		m := rec.Movie
		apiID := strconv.FormatInt(m.ID, 10)
		fields := store.MovieFields{
			Title:       titleOrDefault(m.Title),
			Overview:    m.Overview,
			ReleaseDate: parseReleaseDate(m.ReleaseDate),
			Popularity:  m.Popularity,
			Rating:      m.VoteAverage,
			Status:      store.StatusActive,
		}
		genreIDs := mapGenreIDs(m.GenreIDs, genreMap)

		if row, ok := existing[apiID]; ok {
			updates = append(updates, store.MovieUpdate{ID: row.ID, MovieFields: fields, GenreIDs: genreIDs})
			continue
		}
		inserts = append(inserts, store.NewMovie{
			APIID:       apiID,
			Source:      store.SourceTMDB,
			MovieFields: fields,
			GenreIDs:    genreIDs,
			Images:      r.basicImages(m),
		})
	}

	if err := r.Store.ApplyMovieBatch(ctx, inserts, updates); err != nil {
		return BatchResult{}, err
	}

	last := batch[len(batch)-1]
	return BatchResult{
		Inserted:     len(inserts),
		Updated:      len(updates),
		LastEndpoint: last.Endpoint,
		LastPage:     last.Page,
	}, nil
}

// basicImages builds the poster/backdrop rows attached to newly created
// movies. Existing rows keep whatever media they already have.
func (r *Reconciler) basicImages(m tmdb.MovieSummary) []store.ImageInput {
	var out []store.ImageInput
	if m.PosterPath != "" {
		out = append(out, store.ImageInput{Type: "poster", URL: r.ImageBase + "/w500" + m.PosterPath})
	}
	if m.BackdropPath != "" {
		out = append(out, store.ImageInput{Type: "backdrop", URL: r.ImageBase + "/w1280" + m.BackdropPath})
	}
	return out
}

func titleOrDefault(title string) string {
	if title == "" {
		return "Untitled"
	}
	return title
}

// parseReleaseDate returns nil on empty or malformed dates; the stored
// value is then left untouched.
func parseReleaseDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil
	}
	return &t
}

// mapGenreIDs intersects remote genre ids with the synced mapping; unknown
// ids are dropped silently.
func mapGenreIDs(remoteIDs []int64, genreMap map[int64]store.Genre) []uuid.UUID {
	var out []uuid.UUID
	for _, rid := range remoteIDs {
		if g, ok := genreMap[rid]; ok {
			out = append(out, g.ID)
		}
	}
	return out
}
