package sync

import (
	"context"
	"testing"

	"github.com/example/movie-platform/internal/store"
	"github.com/example/movie-platform/internal/tmdb"
)

func testGenreMap(t *testing.T, st store.MovieStore, names map[int64]string) map[int64]store.Genre {
	t.Helper()
	list := make([]string, 0, len(names))
	for _, n := range names {
		list = append(list, n)
	}
	byName, err := st.EnsureGenres(context.Background(), list)
	if err != nil {
		t.Fatalf("ensure genres: %v", err)
	}
	out := make(map[int64]store.Genre, len(names))
	for id, n := range names {
		out[id] = byName[n]
	}
	return out
}

func TestReconcile_InsertsNewMovies(t *testing.T) {
	st := store.NewInMemoryMovieStore()
	r := &Reconciler{Store: st, ImageBase: "https://img.example/t/p"}
	genres := testGenreMap(t, st, map[int64]string{28: "Action"})

	batch := []Record{{
		Endpoint: "/movie/popular",
		Page:     1,
		Movie: tmdb.MovieSummary{
			ID:          550,
			Title:       "Fight Club",
			Overview:    "insomnia",
			Popularity:  61.4,
			VoteAverage: 8.4,
			ReleaseDate: "1999-10-15",
			GenreIDs:    []int64{28, 99},
			PosterPath:  "/poster.jpg",
		},
	}}

	res, err := r.Reconcile(context.Background(), batch, genres)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if res.Inserted != 1 || res.Updated != 0 {
		t.Fatalf("expected (1,0), got (%d,%d)", res.Inserted, res.Updated)
	}
	if res.LastEndpoint != "/movie/popular" || res.LastPage != 1 {
		t.Fatalf("unexpected checkpoint %s:%d", res.LastEndpoint, res.LastPage)
	}

	rows, err := st.MoviesByAPIIDs(context.Background(), []string{"550"}, store.SourceTMDB)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	m, ok := rows["550"]
	if !ok {
		t.Fatal("expected movie 550 to exist")
	}
	if m.Title != "Fight Club" || m.Source != store.SourceTMDB {
		t.Fatalf("unexpected row %+v", m)
	}
	if m.ReleaseDate == nil || m.ReleaseDate.Format("2006-01-02") != "1999-10-15" {
		t.Fatalf("unexpected release date %v", m.ReleaseDate)
	}
	// Unknown remote genre 99 is dropped; 28 maps to Action.
	if len(m.Genres) != 1 || m.Genres[0].Name != "Action" {
		t.Fatalf("unexpected genres %+v", m.Genres)
	}
}

func TestReconcile_SecondRunUpdatesInPlace(t *testing.T) {
	st := store.NewInMemoryMovieStore()
	r := &Reconciler{Store: st, ImageBase: "https://img.example/t/p"}
	genres := testGenreMap(t, st, map[int64]string{18: "Drama"})

	batch := []Record{{
		Endpoint: "/movie/popular",
		Page:     1,
		Movie:    tmdb.MovieSummary{ID: 603, Title: "The Matrix", Popularity: 80, GenreIDs: []int64{18}},
	}}

	if _, err := r.Reconcile(context.Background(), batch, genres); err != nil {
		t.Fatalf("first reconcile: %v", err)
	}

	batch[0].Movie.Popularity = 95
	res, err := r.Reconcile(context.Background(), batch, genres)
	if err != nil {
		t.Fatalf("second reconcile: %v", err)
	}
	if res.Inserted != 0 || res.Updated != 1 {
		t.Fatalf("expected (0,1), got (%d,%d)", res.Inserted, res.Updated)
	}

	rows, _ := st.MoviesByAPIIDs(context.Background(), []string{"603"}, "")
	if got := rows["603"].Popularity; got != 95 {
		t.Fatalf("expected popularity overwritten to 95, got %v", got)
	}
}

func TestReconcile_MissingTitleAndBadDate(t *testing.T) {
	st := store.NewInMemoryMovieStore()
	r := &Reconciler{Store: st}

	batch := []Record{{
		Endpoint: "/movie/popular",
		Page:     2,
		Movie:    tmdb.MovieSummary{ID: 7, ReleaseDate: "not-a-date"},
	}}

	if _, err := r.Reconcile(context.Background(), batch, nil); err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	rows, _ := st.MoviesByAPIIDs(context.Background(), []string{"7"}, "")
	m := rows["7"]
	if m.Title != "Untitled" {
		t.Fatalf("expected fallback title, got %q", m.Title)
	}
	if m.ReleaseDate != nil {
		t.Fatalf("expected nil release date, got %v", m.ReleaseDate)
	}
}

func TestReconcile_EmptyBatch(t *testing.T) {
	r := &Reconciler{Store: store.NewInMemoryMovieStore()}
	res, err := r.Reconcile(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if res != (BatchResult{}) {
		t.Fatalf("expected zero result, got %+v", res)
	}
}
