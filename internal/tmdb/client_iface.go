package tmdb

import (
	"context"
	"time"
)

// API is the subset of the TMDB client consumed by the sync engine.
// Kept as an interface so tests can swap in fakes.
type API interface {
	ListPage(ctx context.Context, endpoint string, page int) (*MoviePage, error)
	GenreList(ctx context.Context) ([]GenreEntry, error)
	ChangesPage(ctx context.Context, start, end time.Time, page int) (*ChangesPage, error)
	MovieDetail(ctx context.Context, id string) (*MovieDetail, error)
	MovieVideos(ctx context.Context, id string) ([]Video, error)
}

var _ API = (*Client)(nil)
