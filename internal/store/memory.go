package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryMovieStore is a map-backed MovieStore for tests and local
// development without Postgres.
type InMemoryMovieStore struct {
	mu       sync.Mutex
	movies   map[uuid.UUID]*Movie
	byAPIID  map[string]uuid.UUID
	genres   map[string]Genre // by name
	syncLogs []SyncLog
}

func NewInMemoryMovieStore() *InMemoryMovieStore {
	return &InMemoryMovieStore{
		movies:  make(map[uuid.UUID]*Movie),
		byAPIID: make(map[string]uuid.UUID),
		genres:  make(map[string]Genre),
	}
}

func (s *InMemoryMovieStore) MovieByID(_ context.Context, id uuid.UUID) (*Movie, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.movies[id]
	if !ok || m.DeletedAt != nil {
		return nil, ErrNotFound
	}
	cp := *m
	cp.Genres = append([]Genre(nil), m.Genres...)
	cp.Images = append([]MovieImage(nil), m.Images...)
	cp.Videos = append([]MovieVideo(nil), m.Videos...)
	return &cp, nil
}

func (s *InMemoryMovieStore) MoviesByAPIIDs(_ context.Context, apiIDs []string, source string) (map[string]Movie, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]Movie, len(apiIDs))
	for _, apiID := range apiIDs {
		id, ok := s.byAPIID[apiID]
		if !ok {
			continue
		}
		m := s.movies[id]
		if source != "" && m.Source != source {
			continue
		}
		out[apiID] = *m
	}
	return out, nil
}

func (s *InMemoryMovieStore) ApplyMovieBatch(_ context.Context, inserts []NewMovie, updates []MovieUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()

	for _, in := range inserts {
		id := uuid.New()
		m := &Movie{
			ID:          id,
			APIID:       in.APIID,
			Source:      in.Source,
			Title:       in.Title,
			Overview:    in.Overview,
			ReleaseDate: in.ReleaseDate,
			Popularity:  in.Popularity,
			Rating:      in.Rating,
			Status:      in.Status,
			CreatedAt:   now,
			UpdatedAt:   now,
			Genres:      s.resolveGenres(in.GenreIDs),
		}
		for _, img := range in.Images {
			m.Images = append(m.Images, MovieImage{ID: uuid.New(), MovieID: id, Type: img.Type, URL: img.URL})
		}
		s.movies[id] = m
		if in.APIID != "" {
			s.byAPIID[in.APIID] = id
		}
	}

	for _, up := range updates {
		m, ok := s.movies[up.ID]
		if !ok {
			continue
		}
		m.Title = up.Title
		m.Overview = up.Overview
		if up.ReleaseDate != nil {
			m.ReleaseDate = up.ReleaseDate
		}
		m.Popularity = up.Popularity
		m.Rating = up.Rating
		m.Status = up.Status
		m.UpdatedAt = now
		m.Genres = s.resolveGenres(up.GenreIDs)
	}
	return nil
}

func (s *InMemoryMovieStore) resolveGenres(ids []uuid.UUID) []Genre {
	var out []Genre
	for _, gid := range ids {
		for _, g := range s.genres {
			if g.ID == gid {
				out = append(out, g)
				break
			}
		}
	}
	return out
}

func (s *InMemoryMovieStore) EnsureGenres(_ context.Context, names []string) (map[string]Genre, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]Genre, len(names))
	for _, name := range names {
		g, ok := s.genres[name]
		if !ok {
			g = Genre{ID: uuid.New(), Name: name}
			s.genres[name] = g
		}
		out[name] = g
	}
	return out, nil
}

func (s *InMemoryMovieStore) VideosByMovieID(_ context.Context, movieID uuid.UUID) ([]MovieVideo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.movies[movieID]
	if !ok {
		return nil, nil
	}
	return append([]MovieVideo(nil), m.Videos...), nil
}

func (s *InMemoryMovieStore) InsertMovieVideos(_ context.Context, movieID uuid.UUID, videos []VideoInput) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.movies[movieID]
	if !ok {
		return ErrNotFound
	}
	for _, v := range videos {
		dup := false
		for _, have := range m.Videos {
			if have.Key == v.Key {
				dup = true
				break
			}
		}
		if dup {
			continue
		}
		m.Videos = append(m.Videos, MovieVideo{
			ID: uuid.New(), MovieID: movieID,
			Type: v.Type, Site: v.Site, Key: v.Key, Official: v.Official,
		})
	}
	return nil
}

func (s *InMemoryMovieStore) InsertSyncLog(_ context.Context, log SyncLog) (SyncLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	log.ID = uuid.New()
	log.CreatedAt = time.Now().UTC()
	s.syncLogs = append(s.syncLogs, log)
	return log, nil
}

func (s *InMemoryMovieStore) LatestSyncLog(_ context.Context) (*SyncLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.syncLogs) == 0 {
		return nil, nil
	}
	l := s.syncLogs[len(s.syncLogs)-1]
	return &l, nil
}

func (s *InMemoryMovieStore) LatestFailedSyncLog(_ context.Context) (*SyncLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.syncLogs) - 1; i >= 0; i-- {
		if s.syncLogs[i].Status == SyncFailed {
			l := s.syncLogs[i]
			return &l, nil
		}
	}
	return nil, nil
}
