package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresMovieStore is the production Postgres-backed implementation.
type PostgresMovieStore struct {
	db *pgxpool.Pool
}

func NewPostgresMovieStore(db *pgxpool.Pool) *PostgresMovieStore {
	return &PostgresMovieStore{db: db}
}

// ── Movie reads ────────────────────────────────────────────────────────────

func (s *PostgresMovieStore) MovieByID(ctx context.Context, id uuid.UUID) (*Movie, error) {
	var m Movie
	err := s.db.QueryRow(ctx, `
SELECT id, COALESCE(api_id,''), source, title, COALESCE(overview,''), release_date,
       COALESCE(popularity,0), COALESCE(rating,0), status, created_at, updated_at, deleted_at
FROM movies WHERE id=$1 AND deleted_at IS NULL`, id).
		Scan(&m.ID, &m.APIID, &m.Source, &m.Title, &m.Overview, &m.ReleaseDate,
			&m.Popularity, &m.Rating, &m.Status, &m.CreatedAt, &m.UpdatedAt, &m.DeletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("movie by id: %w", err)
	}

	rows, err := s.db.Query(ctx, `
SELECT g.id, g.name FROM genres g
JOIN movie_genres mg ON mg.genre_id = g.id
WHERE mg.movie_id=$1 ORDER BY g.name`, id)
	if err != nil {
		return nil, fmt.Errorf("movie genres: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var g Genre
		if err := rows.Scan(&g.ID, &g.Name); err != nil {
			return nil, fmt.Errorf("movie genres scan: %w", err)
		}
		m.Genres = append(m.Genres, g)
	}
	rows.Close()

	imgRows, err := s.db.Query(ctx, `
SELECT id, movie_id, image_type, image_url FROM movie_images WHERE movie_id=$1`, id)
	if err != nil {
		return nil, fmt.Errorf("movie images: %w", err)
	}
	defer imgRows.Close()
	for imgRows.Next() {
		var img MovieImage
		if err := imgRows.Scan(&img.ID, &img.MovieID, &img.Type, &img.URL); err != nil {
			return nil, fmt.Errorf("movie images scan: %w", err)
		}
		m.Images = append(m.Images, img)
	}
	imgRows.Close()

	videos, err := s.VideosByMovieID(ctx, id)
	if err != nil {
		return nil, err
	}
	m.Videos = videos
	return &m, nil
}

func (s *PostgresMovieStore) MoviesByAPIIDs(ctx context.Context, apiIDs []string, source string) (map[string]Movie, error) {
	if len(apiIDs) == 0 {
		return map[string]Movie{}, nil
	}
	q := `
SELECT id, COALESCE(api_id,''), source, title, COALESCE(overview,''), release_date,
       COALESCE(popularity,0), COALESCE(rating,0), status, created_at, updated_at, deleted_at
FROM movies WHERE api_id = ANY($1)`
	args := []any{apiIDs}
	if source != "" {
		q += ` AND source = $2`
		args = append(args, source)
	}
	rows, err := s.db.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("movies by api ids: %w", err)
	}
	defer rows.Close()

	out := make(map[string]Movie, len(apiIDs))
	for rows.Next() {
		var m Movie
		if err := rows.Scan(&m.ID, &m.APIID, &m.Source, &m.Title, &m.Overview, &m.ReleaseDate,
			&m.Popularity, &m.Rating, &m.Status, &m.CreatedAt, &m.UpdatedAt, &m.DeletedAt); err != nil {
			return nil, fmt.Errorf("movies by api ids scan: %w", err)
		}
		out[m.APIID] = m
	}
	return out, rows.Err()
}

// ── Sync writes ────────────────────────────────────────────────────────────

func (s *PostgresMovieStore) ApplyMovieBatch(ctx context.Context, inserts []NewMovie, updates []MovieUpdate) error {
	if len(inserts) == 0 && len(updates) == 0 {
		return nil
	}
	now := time.Now().UTC()

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("batch begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, in := range inserts {
		movieID := uuid.New()
		if _, err := tx.Exec(ctx, `
INSERT INTO movies (id, api_id, source, title, overview, release_date, popularity, rating, status, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
			movieID, nullable(in.APIID), in.Source, in.Title, in.Overview, in.ReleaseDate,
			in.Popularity, in.Rating, in.Status, now, now,
		); err != nil {
			return fmt.Errorf("insert movie api_id=%s: %w", in.APIID, err)
		}
		if err := replaceGenreLinks(ctx, tx, movieID, in.GenreIDs); err != nil {
			return err
		}
		for _, img := range in.Images {
			if _, err := tx.Exec(ctx, `
INSERT INTO movie_images (id, movie_id, image_type, image_url)
VALUES ($1,$2,$3,$4)
ON CONFLICT (movie_id, image_type, image_url) DO NOTHING`,
				uuid.New(), movieID, img.Type, img.URL,
			); err != nil {
				return fmt.Errorf("insert image: %w", err)
			}
		}
	}

	for _, up := range updates {
		if _, err := tx.Exec(ctx, `
UPDATE movies
SET title=$2, overview=$3,
    release_date=COALESCE($4, release_date),
    popularity=$5, rating=$6, status=$7, updated_at=$8
WHERE id=$1`,
			up.ID, up.Title, up.Overview, up.ReleaseDate,
			up.Popularity, up.Rating, up.Status, now,
		); err != nil {
			return fmt.Errorf("update movie %s: %w", up.ID, err)
		}
		if err := replaceGenreLinks(ctx, tx, up.ID, up.GenreIDs); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("batch commit: %w", err)
	}
	return nil
}

func replaceGenreLinks(ctx context.Context, tx pgx.Tx, movieID uuid.UUID, genreIDs []uuid.UUID) error {
	if _, err := tx.Exec(ctx, `DELETE FROM movie_genres WHERE movie_id=$1`, movieID); err != nil {
		return fmt.Errorf("clear genre links: %w", err)
	}
	for _, gid := range genreIDs {
		if _, err := tx.Exec(ctx, `
INSERT INTO movie_genres (movie_id, genre_id) VALUES ($1,$2)
ON CONFLICT DO NOTHING`, movieID, gid); err != nil {
			return fmt.Errorf("insert genre link: %w", err)
		}
	}
	return nil
}

// nullable maps "" to SQL NULL so the partial unique index on api_id only
// applies to rows that actually carry one.
func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// ── Genres ─────────────────────────────────────────────────────────────────

func (s *PostgresMovieStore) EnsureGenres(ctx context.Context, names []string) (map[string]Genre, error) {
	out := make(map[string]Genre, len(names))
	if len(names) == 0 {
		return out, nil
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("genres begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	rows, err := tx.Query(ctx, `SELECT id, name FROM genres WHERE name = ANY($1)`, names)
	if err != nil {
		return nil, fmt.Errorf("genres select: %w", err)
	}
	for rows.Next() {
		var g Genre
		if err := rows.Scan(&g.ID, &g.Name); err != nil {
			rows.Close()
			return nil, fmt.Errorf("genres scan: %w", err)
		}
		out[g.Name] = g
	}
	rows.Close()

	for _, name := range names {
		if _, ok := out[name]; ok {
			continue
		}
		var g Genre
		// DO UPDATE is a no-op write that makes RETURNING yield a row even
		// when a concurrent writer created the genre first.
		err := tx.QueryRow(ctx, `
INSERT INTO genres (id, name) VALUES ($1,$2)
ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
RETURNING id, name`, uuid.New(), name).Scan(&g.ID, &g.Name)
		if err != nil {
			return nil, fmt.Errorf("genre insert %q: %w", name, err)
		}
		out[g.Name] = g
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("genres commit: %w", err)
	}
	return out, nil
}

// ── Videos ─────────────────────────────────────────────────────────────────

func (s *PostgresMovieStore) VideosByMovieID(ctx context.Context, movieID uuid.UUID) ([]MovieVideo, error) {
	rows, err := s.db.Query(ctx, `
SELECT id, movie_id, video_type, site, video_key, official
FROM movie_videos WHERE movie_id=$1`, movieID)
	if err != nil {
		return nil, fmt.Errorf("videos by movie: %w", err)
	}
	defer rows.Close()

	var out []MovieVideo
	for rows.Next() {
		var v MovieVideo
		if err := rows.Scan(&v.ID, &v.MovieID, &v.Type, &v.Site, &v.Key, &v.Official); err != nil {
			return nil, fmt.Errorf("videos scan: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (s *PostgresMovieStore) InsertMovieVideos(ctx context.Context, movieID uuid.UUID, videos []VideoInput) error {
	if len(videos) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("videos begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, v := range videos {
		if _, err := tx.Exec(ctx, `
INSERT INTO movie_videos (id, movie_id, video_type, site, video_key, official)
VALUES ($1,$2,$3,$4,$5,$6)
ON CONFLICT (movie_id, video_key) DO NOTHING`,
			uuid.New(), movieID, v.Type, v.Site, v.Key, v.Official,
		); err != nil {
			return fmt.Errorf("insert video key=%s: %w", v.Key, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("videos commit: %w", err)
	}
	return nil
}

// ── Sync logs ──────────────────────────────────────────────────────────────

func (s *PostgresMovieStore) InsertSyncLog(ctx context.Context, log SyncLog) (SyncLog, error) {
	log.ID = uuid.New()
	log.CreatedAt = time.Now().UTC()
	_, err := s.db.Exec(ctx, `
INSERT INTO sync_logs (id, last_sync_at, total_inserted, total_updated, status,
                       last_synced_endpoint, last_synced_page, error_message, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		log.ID, log.LastSyncAt, log.TotalInserted, log.TotalUpdated, log.Status,
		nullable(log.LastSyncedEndpoint), nullZero(log.LastSyncedPage), nullable(log.ErrorMessage), log.CreatedAt,
	)
	if err != nil {
		return SyncLog{}, fmt.Errorf("insert sync log: %w", err)
	}
	return log, nil
}

func (s *PostgresMovieStore) LatestSyncLog(ctx context.Context) (*SyncLog, error) {
	return s.latestSyncLog(ctx, "")
}

func (s *PostgresMovieStore) LatestFailedSyncLog(ctx context.Context) (*SyncLog, error) {
	return s.latestSyncLog(ctx, SyncFailed)
}

func (s *PostgresMovieStore) latestSyncLog(ctx context.Context, status string) (*SyncLog, error) {
	q := `
SELECT id, last_sync_at, total_inserted, total_updated, status,
       COALESCE(last_synced_endpoint,''), COALESCE(last_synced_page,0),
       COALESCE(error_message,''), created_at
FROM sync_logs`
	args := []any{}
	if status != "" {
		q += ` WHERE status=$1`
		args = append(args, status)
	}
	q += ` ORDER BY created_at DESC LIMIT 1`

	var l SyncLog
	err := s.db.QueryRow(ctx, q, args...).
		Scan(&l.ID, &l.LastSyncAt, &l.TotalInserted, &l.TotalUpdated, &l.Status,
			&l.LastSyncedEndpoint, &l.LastSyncedPage, &l.ErrorMessage, &l.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("latest sync log: %w", err)
	}
	return &l, nil
}

func nullZero(n int) *int {
	if n == 0 {
		return nil
	}
	return &n
}
