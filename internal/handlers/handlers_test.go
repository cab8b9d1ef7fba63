package handlers

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/example/movie-platform/internal/store"
	catsync "github.com/example/movie-platform/internal/sync"
	"github.com/example/movie-platform/internal/tmdb"
)

// stubAPI is a canned tmdb.API for handler tests.
type stubAPI struct {
	pages  map[string][]tmdb.MovieSummary
	videos []tmdb.Video
}

func (s *stubAPI) ListPage(_ context.Context, endpoint string, page int) (*tmdb.MoviePage, error) {
	out := &tmdb.MoviePage{Page: page, TotalPages: 1}
	if page == 1 {
		out.Results = s.pages[endpoint]
	}
	return out, nil
}

func (s *stubAPI) GenreList(context.Context) ([]tmdb.GenreEntry, error) {
	return nil, errors.New("no genres in tests")
}

func (s *stubAPI) ChangesPage(_ context.Context, _, _ time.Time, _ int) (*tmdb.ChangesPage, error) {
	return &tmdb.ChangesPage{TotalPages: 1}, nil
}

func (s *stubAPI) MovieDetail(_ context.Context, id string) (*tmdb.MovieDetail, error) {
	return nil, errors.New("no detail in tests")
}

func (s *stubAPI) MovieVideos(_ context.Context, _ string) ([]tmdb.Video, error) {
	return s.videos, nil
}

func newCoordinator(client tmdb.API, st store.MovieStore) *catsync.Coordinator {
	log := zap.NewNop()
	state := &catsync.State{}
	full := &catsync.FullSync{
		Log:        log,
		Client:     client,
		Store:      st,
		Reconciler: &catsync.Reconciler{Store: st},
		Endpoints:  catsync.DefaultEndpoints,
		State:      state,
	}
	changes := &catsync.ChangesSync{Log: log, Client: client, Store: st, State: state}
	return catsync.NewCoordinator(log, st, full, changes, state, nil)
}

func waitForIdle(t *testing.T, c *catsync.Coordinator) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if snap, seen := c.Status(); seen && !snap.IsRunning {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("coordinator never went idle")
}
