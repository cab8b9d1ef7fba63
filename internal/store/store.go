package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned by point reads when no row matches.
var ErrNotFound = errors.New("store: not found")

// Movie source tags.
const (
	SourceTMDB  = "tmdb"
	SourceUser  = "user"
	SourceAdmin = "admin"
)

// Movie statuses.
const (
	StatusActive   = "active"
	StatusArchived = "archived"
)

// SyncLog terminal statuses.
const (
	SyncSuccess = "success"
	SyncFailed  = "failed"
)

// Movie is the persisted catalog entity. APIID is empty for user/admin
// created rows and unique among tmdb-sourced ones.
type Movie struct {
	ID          uuid.UUID
	APIID       string
	Source      string
	Title       string
	Overview    string
	ReleaseDate *time.Time
	Popularity  float64
	Rating      float64
	Status      string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	DeletedAt   *time.Time

	Genres []Genre
	Images []MovieImage
	Videos []MovieVideo
}

type Genre struct {
	ID   uuid.UUID
	Name string
}

type MovieImage struct {
	ID      uuid.UUID
	MovieID uuid.UUID
	Type    string // poster, backdrop
	URL     string
}

type MovieVideo struct {
	ID       uuid.UUID
	MovieID  uuid.UUID
	Type     string // trailer, teaser
	Site     string // youtube, vimeo
	Key      string
	Official bool
}

// SyncLog is the append-only record of one sync run.
type SyncLog struct {
	ID                 uuid.UUID
	LastSyncAt         time.Time
	TotalInserted      int
	TotalUpdated       int
	Status             string
	LastSyncedEndpoint string // empty when the run never committed a batch
	LastSyncedPage     int
	ErrorMessage       string
	CreatedAt          time.Time
}

// MovieFields are the attributes overwritten from the remote catalog on
// every reconciliation.
type MovieFields struct {
	Title       string
	Overview    string
	ReleaseDate *time.Time // nil leaves the stored value unchanged
	Popularity  float64
	Rating      float64
	Status      string
}

type ImageInput struct {
	Type string
	URL  string
}

type VideoInput struct {
	Type     string
	Site     string
	Key      string
	Official bool
}

// NewMovie stages one row to insert, with its genre links and images.
type NewMovie struct {
	APIID  string
	Source string
	MovieFields
	GenreIDs []uuid.UUID
	Images   []ImageInput
}

// MovieUpdate stages an in-place overwrite of an existing row. Genre links
// are recomputed to exactly GenreIDs.
type MovieUpdate struct {
	ID uuid.UUID
	MovieFields
	GenreIDs []uuid.UUID
}

// MovieStore defines all persistence operations used by the sync engine and
// the movie detail surface.
type MovieStore interface {
	// Movie reads
	MovieByID(ctx context.Context, id uuid.UUID) (*Movie, error)
	MoviesByAPIIDs(ctx context.Context, apiIDs []string, source string) (map[string]Movie, error)

	// Sync writes. Inserts and updates of one batch commit in a single
	// transaction so a checkpoint never covers a half-applied batch.
	ApplyMovieBatch(ctx context.Context, inserts []NewMovie, updates []MovieUpdate) error

	// Genres
	EnsureGenres(ctx context.Context, names []string) (map[string]Genre, error)

	// Videos
	VideosByMovieID(ctx context.Context, movieID uuid.UUID) ([]MovieVideo, error)
	InsertMovieVideos(ctx context.Context, movieID uuid.UUID, videos []VideoInput) error

	// Sync logs
	InsertSyncLog(ctx context.Context, log SyncLog) (SyncLog, error)
	LatestSyncLog(ctx context.Context) (*SyncLog, error)
	LatestFailedSyncLog(ctx context.Context) (*SyncLog, error)
}
