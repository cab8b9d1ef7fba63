package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/example/movie-platform/internal/store"
	catsync "github.com/example/movie-platform/internal/sync"
	"github.com/example/movie-platform/internal/tmdb"
)

func seedCatalogMovie(t *testing.T, st *store.InMemoryMovieStore, apiID string) store.Movie {
	t.Helper()
	err := st.ApplyMovieBatch(context.Background(), []store.NewMovie{{
		APIID:  apiID,
		Source: store.SourceTMDB,
		MovieFields: store.MovieFields{
			Title:  "Seeded",
			Status: store.StatusActive,
		},
		Images: []store.ImageInput{{Type: "poster", URL: "https://img.example/p.jpg"}},
	}}, nil)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	rows, err := st.MoviesByAPIIDs(context.Background(), []string{apiID}, "")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	return rows[apiID]
}

func moviesRouter(st store.MovieStore, client tmdb.API) chi.Router {
	h := &MoviesHandler{
		Log:    zap.NewNop(),
		Store:  st,
		Videos: &catsync.VideoFiller{Log: zap.NewNop(), Client: client, Store: st},
	}
	r := chi.NewRouter()
	h.Register(r)
	return r
}

func TestGetMovie_FillsVideoCache(t *testing.T) {
	st := store.NewInMemoryMovieStore()
	seeded := seedCatalogMovie(t, st, "550")
	client := &stubAPI{videos: []tmdb.Video{
		{Key: "abc", Site: "YouTube", Type: "Trailer", Official: true},
	}}
	r := moviesRouter(st, client)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/movies/"+seeded.ID.String(), nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp movieResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Title != "Seeded" || resp.Source != store.SourceTMDB {
		t.Fatalf("unexpected movie %+v", resp)
	}
	if len(resp.Images) != 1 {
		t.Fatalf("expected 1 image, got %d", len(resp.Images))
	}
	if len(resp.Videos) != 1 || resp.Videos[0].Key != "abc" || resp.Videos[0].Site != "youtube" {
		t.Fatalf("expected cached trailer, got %+v", resp.Videos)
	}

	// Cache persisted to the store.
	videos, _ := st.VideosByMovieID(context.Background(), seeded.ID)
	if len(videos) != 1 {
		t.Fatalf("expected 1 stored video, got %d", len(videos))
	}
}

func TestGetMovie_NotFound(t *testing.T) {
	r := moviesRouter(store.NewInMemoryMovieStore(), &stubAPI{})

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/movies/6a0f0b6e-0000-0000-0000-000000000000", nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

func TestGetMovie_InvalidID(t *testing.T) {
	r := moviesRouter(store.NewInMemoryMovieStore(), &stubAPI{})

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/movies/not-a-uuid", nil))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}
