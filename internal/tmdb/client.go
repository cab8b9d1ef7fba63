package tmdb

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// RemoteError reports a failed TMDB API call (transport error, timeout or
// non-2xx response). Status is 0 for transport-level failures.
type RemoteError struct {
	Endpoint string
	Status   int
	Err      error
}

func (e *RemoteError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("tmdb: %s returned status %d", e.Endpoint, e.Status)
	}
	return fmt.Sprintf("tmdb: %s failed: %v", e.Endpoint, e.Err)
}

func (e *RemoteError) Unwrap() error { return e.Err }

// Limiter paces outgoing requests. A nil limiter means no pacing.
type Limiter interface {
	Wait(ctx context.Context) error
}

type Client struct {
	BaseURL     string
	AccessToken string
	HTTPClient  *http.Client
	Limiter     Limiter
}

func New(baseURL, accessToken string) *Client {
	if baseURL == "" {
		baseURL = "https://api.themoviedb.org/3"
	}
	return &Client{
		BaseURL:     strings.TrimRight(baseURL, "/"),
		AccessToken: accessToken,
		HTTPClient:  &http.Client{Timeout: 10 * time.Second},
	}
}

// MovieSummary is one entry of a paginated list response.
type MovieSummary struct {
	ID           int64   `json:"id"`
	Title        string  `json:"title"`
	Overview     string  `json:"overview"`
	Popularity   float64 `json:"popularity"`
	VoteAverage  float64 `json:"vote_average"`
	ReleaseDate  string  `json:"release_date"`
	GenreIDs     []int64 `json:"genre_ids"`
	PosterPath   string  `json:"poster_path"`
	BackdropPath string  `json:"backdrop_path"`
}

type MoviePage struct {
	Page       int            `json:"page"`
	Results    []MovieSummary `json:"results"`
	TotalPages int            `json:"total_pages"`
}

type GenreEntry struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// MovieDetail is the full /movie/{id} payload. Unlike list entries it embeds
// genre objects instead of bare ids.
type MovieDetail struct {
	ID           int64        `json:"id"`
	Title        string       `json:"title"`
	Overview     string       `json:"overview"`
	Popularity   float64      `json:"popularity"`
	VoteAverage  float64      `json:"vote_average"`
	ReleaseDate  string       `json:"release_date"`
	Genres       []GenreEntry `json:"genres"`
	PosterPath   string       `json:"poster_path"`
	BackdropPath string       `json:"backdrop_path"`
}

type Video struct {
	Key      string `json:"key"`
	Site     string `json:"site"`
	Type     string `json:"type"`
	Official bool   `json:"official"`
}

type ChangesPage struct {
	Results []struct {
		ID int64 `json:"id"`
	} `json:"results"`
	TotalPages int `json:"total_pages"`
}

// ListPage fetches one page of a list endpoint such as /movie/popular.
func (c *Client) ListPage(ctx context.Context, endpoint string, page int) (*MoviePage, error) {
	q := url.Values{"page": {fmt.Sprint(page)}, "language": {"en-US"}}
	var out MoviePage
	if err := c.get(ctx, endpoint, q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GenreList fetches the full movie genre reference list.
func (c *Client) GenreList(ctx context.Context) ([]GenreEntry, error) {
	var out struct {
		Genres []GenreEntry `json:"genres"`
	}
	if err := c.get(ctx, "/genre/movie/list", url.Values{"language": {"en-US"}}, &out); err != nil {
		return nil, err
	}
	return out.Genres, nil
}

// ChangesPage fetches one page of movie ids changed inside [start, end].
func (c *Client) ChangesPage(ctx context.Context, start, end time.Time, page int) (*ChangesPage, error) {
	q := url.Values{
		"start_date": {start.Format("2006-01-02")},
		"end_date":   {end.Format("2006-01-02")},
		"page":       {fmt.Sprint(page)},
	}
	var out ChangesPage
	if err := c.get(ctx, "/movie/changes", q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// MovieDetail fetches the full detail payload for one movie.
func (c *Client) MovieDetail(ctx context.Context, id string) (*MovieDetail, error) {
	var out MovieDetail
	if err := c.get(ctx, "/movie/"+id, url.Values{"language": {"en-US"}}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// MovieVideos fetches the video list (trailers, teasers, ...) for one movie.
func (c *Client) MovieVideos(ctx context.Context, id string) ([]Video, error) {
	var out struct {
		Results []Video `json:"results"`
	}
	if err := c.get(ctx, "/movie/"+id+"/videos", nil, &out); err != nil {
		return nil, err
	}
	return out.Results, nil
}

func (c *Client) get(ctx context.Context, endpoint string, q url.Values, out any) error {
	if c.Limiter != nil {
		if err := c.Limiter.Wait(ctx); err != nil {
			return err
		}
	}

	u := c.BaseURL + endpoint
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return &RemoteError{Endpoint: endpoint, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.AccessToken)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return &RemoteError{Endpoint: endpoint, Err: err}
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return &RemoteError{Endpoint: endpoint, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &RemoteError{Endpoint: endpoint, Status: resp.StatusCode}
	}
	if err := json.Unmarshal(b, out); err != nil {
		return &RemoteError{Endpoint: endpoint, Err: fmt.Errorf("decode: %w body=%q", err, string(b[:min(len(b), 200)]))}
	}
	return nil
}
