package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
)

// Config carries catalog-service settings beyond the shared platform ones.
type Config struct {
	TMDBBaseURL     string
	TMDBAccessToken string
	TMDBImageBase   string
	TMDBRPS         int
	JWTSecret       string
	NATSURL         string // empty disables analytics events
}

func Load() (Config, error) {
	token := strings.TrimSpace(os.Getenv("TMDB_ACCESS_TOKEN"))
	if token == "" {
		return Config{}, errors.New("TMDB_ACCESS_TOKEN is required")
	}
	secret := strings.TrimSpace(os.Getenv("JWT_SECRET"))
	if secret == "" {
		return Config{}, errors.New("JWT_SECRET is required")
	}
	base := strings.TrimSpace(os.Getenv("TMDB_BASE_URL"))
	if base == "" {
		base = "https://api.themoviedb.org/3"
	}
	img := strings.TrimSpace(os.Getenv("TMDB_IMAGE_BASE"))
	if img == "" {
		img = "https://image.tmdb.org/t/p"
	}
	rps := 4
	if v := strings.TrimSpace(os.Getenv("TMDB_RPS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			rps = n
		}
	}
	return Config{
		TMDBBaseURL:     base,
		TMDBAccessToken: token,
		TMDBImageBase:   img,
		TMDBRPS:         rps,
		JWTSecret:       secret,
		NATSURL:         strings.TrimSpace(os.Getenv("NATS_URL")),
	}, nil
}
