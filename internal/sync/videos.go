package sync

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/example/movie-platform/internal/store"
	"github.com/example/movie-platform/internal/tmdb"
)

// maxCachedVideos caps how many video rows one cache fill may insert.
const maxCachedVideos = 5

// VideoFiller lazily caches a movie's trailers and teasers on first read.
type VideoFiller struct {
	Log    *zap.Logger
	Client tmdb.API
	Store  store.MovieStore
}

// FetchAndCache returns the movie's videos, fetching and persisting them
// from the remote catalog when none are cached yet. Only tmdb-sourced
// movies with a remote id ever trigger a fetch; for everything else an
// empty cache is final. Remote failures degrade to an empty result.
func (v *VideoFiller) FetchAndCache(ctx context.Context, movie *store.Movie) ([]store.MovieVideo, error) {
	if len(movie.Videos) > 0 {
		return movie.Videos, nil
	}
	if movie.Source != store.SourceTMDB || movie.APIID == "" {
		return nil, nil
	}

	remote, err := v.Client.MovieVideos(ctx, movie.APIID)
	if err != nil {
		v.Log.Warn("video fetch failed, serving empty list",
			zap.String("api_id", movie.APIID), zap.Error(err))
		remote = nil
	}

	inputs := filterVideos(remote, movie.Videos)
	if len(inputs) > 0 {
		if err := v.Store.InsertMovieVideos(ctx, movie.ID, inputs); err != nil {
			return nil, err
		}
	}
	return v.Store.VideosByMovieID(ctx, movie.ID)
}

// filterVideos keeps trailers and teasers hosted on youtube or vimeo,
// drops keys already cached, and caps the insert count.
func filterVideos(remote []tmdb.Video, cached []store.MovieVideo) []store.VideoInput {
	have := make(map[string]struct{}, len(cached))
	for _, c := range cached {
		have[c.Key] = struct{}{}
	}

	var out []store.VideoInput
	for _, rv := range remote {
		typ := strings.ToLower(rv.Type)
		site := strings.ToLower(rv.Site)
		if typ != "trailer" && typ != "teaser" {
			continue
		}
		if site != "youtube" && site != "vimeo" {
			continue
		}
		if _, dup := have[rv.Key]; dup {
			continue
		}
		have[rv.Key] = struct{}{}
		out = append(out, store.VideoInput{Type: typ, Site: site, Key: rv.Key, Official: rv.Official})
		if len(out) == maxCachedVideos {
			break
		}
	}
	return out
}
