package main

import (
	"context"
	"os"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/example/movie-platform/internal/config"
	"github.com/example/movie-platform/internal/handlers"
	"github.com/example/movie-platform/internal/platform/analytics"
	"github.com/example/movie-platform/internal/platform/auth"
	"github.com/example/movie-platform/internal/platform/db"
	"github.com/example/movie-platform/internal/platform/httpserver"
	"github.com/example/movie-platform/internal/platform/logging"
	"github.com/example/movie-platform/internal/platform/natsconn"
	"github.com/example/movie-platform/internal/platform/run"
	"github.com/example/movie-platform/internal/ratelimit"
	"github.com/example/movie-platform/internal/store"
	catsync "github.com/example/movie-platform/internal/sync"
	"github.com/example/movie-platform/internal/tmdb"
)

func main() {
	log, err := logging.New("catalog", os.Getenv("LOG_LEVEL"))
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		log.Error("config load", zap.Error(err))
		run.Exit(1)
	}

	st, closeStore := initStore(log)
	if closeStore != nil {
		defer closeStore()
	}

	limiter := ratelimit.NewRPS(cfg.TMDBRPS)
	defer limiter.Stop()
	client := tmdb.New(cfg.TMDBBaseURL, cfg.TMDBAccessToken)
	client.Limiter = limiter

	events := initAnalytics(log, cfg.NATSURL)

	state := &catsync.State{}
	full := &catsync.FullSync{
		Log:        log,
		Client:     client,
		Store:      st,
		Reconciler: &catsync.Reconciler{Store: st, ImageBase: cfg.TMDBImageBase},
		Endpoints:  catsync.DefaultEndpoints,
		State:      state,
	}
	changes := &catsync.ChangesSync{Log: log, Client: client, Store: st, State: state}
	coordinator := catsync.NewCoordinator(log, st, full, changes, state, events)
	videos := &catsync.VideoFiller{Log: log, Client: client, Store: st}

	verifier := auth.JWTVerifier{Secret: []byte(cfg.JWTSecret)}

	r := chi.NewRouter()
	httpserver.SetupRouter(r)

	movies := &handlers.MoviesHandler{Log: log, Store: st, Videos: videos, Events: events}
	movies.Register(r)

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireUser(verifier))
		r.Use(auth.RequireAdmin)
		admin := &handlers.AdminHandler{Log: log, Coordinator: coordinator}
		admin.Register(r)
	})

	addr := strings.TrimSpace(os.Getenv("HTTP_ADDR"))
	if addr == "" {
		addr = ":8080"
	}
	srv := httpserver.New(httpserver.Options{Addr: addr, ServiceName: "catalog", Logger: log, Router: r})

	runner := run.New(log)
	code := runner.WithSignals(func(ctx context.Context) error {
		go func() {
			<-ctx.Done()
			_ = srv.Shutdown(context.Background())
		}()
		return srv.Start(log)
	})

	log.Info("exit", zap.Int("code", code))
	run.Exit(code)
}

// initStore selects the MovieStore backend. In production (APP_ENV=production)
// it requires a working Postgres connection and terminates the process
// otherwise; development falls back to the in-memory store.
func initStore(log *zap.Logger) (store.MovieStore, func()) {
	isProd := strings.EqualFold(strings.TrimSpace(os.Getenv("APP_ENV")), "production")

	dsn := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if dsn == "" {
		if isProd {
			log.Error("DATABASE_URL is required in production")
			_ = log.Sync()
			os.Exit(1)
		}
		log.Warn("DATABASE_URL not set, using in-memory movie store (development only)")
		return store.NewInMemoryMovieStore(), nil
	}

	pool, err := db.Open(context.Background())
	if err != nil {
		if isProd {
			log.Error("postgres is required in production but unavailable", zap.Error(err))
			_ = log.Sync()
			os.Exit(1)
		}
		log.Warn("postgres unavailable, falling back to in-memory movie store", zap.Error(err))
		return store.NewInMemoryMovieStore(), nil
	}

	log.Info("movie store: postgres")
	return store.NewPostgresMovieStore(pool), pool.Close
}

// initAnalytics connects to NATS when configured. Analytics is best-effort:
// a connect failure logs a warning and the service runs without events.
func initAnalytics(log *zap.Logger, natsURL string) *analytics.Publisher {
	if natsURL == "" {
		log.Info("NATS_URL not set, analytics events disabled")
		return nil
	}
	nc, err := natsconn.Connect(natsconn.Options{URL: natsURL})
	if err != nil {
		log.Warn("nats connect failed, analytics events disabled", zap.Error(err))
		return nil
	}
	js, err := nc.JetStream(nats.PublishAsyncMaxPending(256))
	if err != nil {
		log.Warn("jetstream init failed, analytics events disabled", zap.Error(err))
		nc.Close()
		return nil
	}
	return analytics.New(js, log)
}
