package sync

import (
	"context"

	"go.uber.org/zap"

	"github.com/example/movie-platform/internal/store"
	"github.com/example/movie-platform/internal/tmdb"
)

// SyncGenres reconciles the remote genre reference list against local rows
// (matching by name, creating missing ones) and returns a remote-id to
// local-genre mapping. A remote fetch failure degrades to an empty mapping
// so a sync run proceeds without genre associations instead of aborting.
func SyncGenres(ctx context.Context, log *zap.Logger, client tmdb.API, st store.MovieStore) (map[int64]store.Genre, error) {
	entries, err := client.GenreList(ctx)
	if err != nil {
		log.Warn("genre list fetch failed, continuing without genres", zap.Error(err))
		return map[int64]store.Genre{}, nil
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name)
	}
	byName, err := st.EnsureGenres(ctx, names)
	if err != nil {
		return nil, err
	}

	out := make(map[int64]store.Genre, len(entries))
	for _, e := range entries {
		if g, ok := byName[e.Name]; ok {
			out[e.ID] = g
		}
	}
	return out, nil
}
