package sync

import (
	"context"
	"fmt"

	"github.com/example/movie-platform/internal/tmdb"
)

// maxEndpointPages is the hard cap the remote API enforces on paginated
// list endpoints.
const maxEndpointPages = 500

// EndpointConfig names one remote list endpoint and how deep to paginate it.
// MaxPages 0 means unbounded up to the hard cap.
type EndpointConfig struct {
	Path     string
	MaxPages int
}

// DefaultEndpoints is the ordered endpoint list a full sync walks.
var DefaultEndpoints = []EndpointConfig{
	{Path: "/movie/popular"},
	{Path: "/movie/now_playing", MaxPages: 3},
}

// Record is one remote movie tagged with where in the pagination it came
// from, so the consumer can checkpoint (endpoint, page) pairs.
type Record struct {
	Endpoint string
	Page     int
	Movie    tmdb.MovieSummary
}

// Stream merges the configured endpoints into one deduplicated sequence of
// records, in endpoint order, then page order, then in-page order. It is a
// single-use iterator; resume state is fixed at construction.
type Stream struct {
	client    tmdb.API
	endpoints []EndpointConfig
	seen      map[int64]struct{}

	idx  int // current endpoint
	page int // next page to fetch
	buf  []Record
}

// NewStream builds a stream starting from the given resume checkpoint.
// Endpoints before resumeEndpoint are skipped and pagination inside it
// starts at resumePage+1. A resumeEndpoint that matches no configured
// endpoint skips nothing and the stream runs from the beginning.
func NewStream(client tmdb.API, endpoints []EndpointConfig, resumeEndpoint string, resumePage int) *Stream {
	s := &Stream{
		client:    client,
		endpoints: endpoints,
		seen:      make(map[int64]struct{}),
		page:      1,
	}
	if resumeEndpoint == "" {
		return s
	}
	for i, ep := range endpoints {
		if ep.Path == resumeEndpoint {
			s.idx = i
			s.page = resumePage + 1
			break
		}
	}
	return s
}

// Next returns the next record. ok is false once the stream is exhausted.
// A fetch failure ends the stream with an error; the iterator is not
// restartable afterwards.
func (s *Stream) Next(ctx context.Context) (rec Record, ok bool, err error) {
	for {
		for len(s.buf) > 0 {
			rec, s.buf = s.buf[0], s.buf[1:]
			if _, dup := s.seen[rec.Movie.ID]; dup {
				continue
			}
			s.seen[rec.Movie.ID] = struct{}{}
			return rec, true, nil
		}

		if s.idx >= len(s.endpoints) {
			return Record{}, false, nil
		}
		ep := s.endpoints[s.idx]
		if (ep.MaxPages > 0 && s.page > ep.MaxPages) || s.page > maxEndpointPages {
			s.nextEndpoint()
			continue
		}

		resp, err := s.client.ListPage(ctx, ep.Path, s.page)
		if err != nil {
			s.idx = len(s.endpoints)
			return Record{}, false, fmt.Errorf("list %s page %d: %w", ep.Path, s.page, err)
		}
		if len(resp.Results) == 0 {
			s.nextEndpoint()
			continue
		}

		for _, m := range resp.Results {
			s.buf = append(s.buf, Record{Endpoint: ep.Path, Page: s.page, Movie: m})
		}
		if s.page >= resp.TotalPages {
			s.nextEndpoint()
		} else {
			s.page++
		}
	}
}

func (s *Stream) nextEndpoint() {
	s.idx++
	s.page = 1
}
