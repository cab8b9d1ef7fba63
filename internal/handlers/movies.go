package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/example/movie-platform/internal/platform/analytics"
	"github.com/example/movie-platform/internal/platform/api"
	"github.com/example/movie-platform/internal/platform/httpserver"
	"github.com/example/movie-platform/internal/store"
	catsync "github.com/example/movie-platform/internal/sync"
)

// MoviesHandler serves the public catalog read surface.
type MoviesHandler struct {
	Log    *zap.Logger
	Store  store.MovieStore
	Videos *catsync.VideoFiller
	Events *analytics.Publisher
}

func (h *MoviesHandler) Register(r chi.Router) {
	r.Get("/v1/movies/{id}", h.getMovie)
}

type genreView struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type imageView struct {
	Type string `json:"type"`
	URL  string `json:"url"`
}

type videoView struct {
	Type     string `json:"type"`
	Site     string `json:"site"`
	Key      string `json:"key"`
	Official bool   `json:"official"`
}

type movieResponse struct {
	ID          string      `json:"id"`
	Source      string      `json:"source"`
	Title       string      `json:"title"`
	Overview    string      `json:"overview,omitempty"`
	ReleaseDate *string     `json:"release_date,omitempty"`
	Popularity  float64     `json:"popularity"`
	Rating      float64     `json:"rating"`
	Status      string      `json:"status"`
	Genres      []genreView `json:"genres"`
	Images      []imageView `json:"images"`
	Videos      []videoView `json:"videos"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

func movieView(m *store.Movie, videos []store.MovieVideo) movieResponse {
	out := movieResponse{
		ID:         m.ID.String(),
		Source:     m.Source,
		Title:      m.Title,
		Overview:   m.Overview,
		Popularity: m.Popularity,
		Rating:     m.Rating,
		Status:     m.Status,
		Genres:     []genreView{},
		Images:     []imageView{},
		Videos:     []videoView{},
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}
	if m.ReleaseDate != nil {
		d := m.ReleaseDate.Format("2006-01-02")
		out.ReleaseDate = &d
	}
	for _, g := range m.Genres {
		out.Genres = append(out.Genres, genreView{ID: g.ID.String(), Name: g.Name})
	}
	for _, img := range m.Images {
		out.Images = append(out.Images, imageView{Type: img.Type, URL: img.URL})
	}
	for _, v := range videos {
		out.Videos = append(out.Videos, videoView{Type: v.Type, Site: v.Site, Key: v.Key, Official: v.Official})
	}
	return out
}

// getMovie returns one movie with genres, images and videos. The video list
// is cache-filled from the remote catalog on first read.
func (h *MoviesHandler) getMovie(w http.ResponseWriter, r *http.Request) {
	rid := httpserver.RequestIDFromContext(r.Context())

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		api.BadRequest(w, "INVALID_ID", "movie id must be a UUID", rid, nil)
		return
	}

	movie, err := h.Store.MovieByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			api.NotFound(w, "MOVIE_NOT_FOUND", "Movie not found", rid)
			return
		}
		h.Log.Error("load movie failed", zap.String("movie_id", id.String()), zap.Error(err))
		api.Internal(w, rid)
		return
	}

	videos, err := h.Videos.FetchAndCache(r.Context(), movie)
	if err != nil {
		h.Log.Error("video cache fill failed", zap.String("movie_id", id.String()), zap.Error(err))
		api.Internal(w, rid)
		return
	}

	h.Events.Publish(analytics.SubjectMovieViewed, "movie_viewed", map[string]any{
		"movie_id": movie.ID.String(),
		"source":   movie.Source,
	})

	api.WriteJSON(w, http.StatusOK, movieView(movie, videos))
}
