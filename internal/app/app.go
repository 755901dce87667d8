package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/articlecrawl/internal/crawl"
	"github.com/hyperifyio/articlecrawl/internal/extract"
	"github.com/hyperifyio/articlecrawl/internal/fetch"
	"github.com/hyperifyio/articlecrawl/internal/normalize"
	"github.com/hyperifyio/articlecrawl/internal/server"
)

// App wires configuration into the crawl pipeline and its HTTP server.
type App struct {
	cfg     Config
	http    *http.Client
	service *crawl.Service
	server  *server.Server
}

func New(ctx context.Context, cfg Config) (*App, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	mapping, err := server.ParseErrorMapping(cfg.ErrorMapping)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	fc := fetch.Config{
		Timeout:           cfg.Timeout,
		MaxBodyBytes:      cfg.MaxBodyBytes,
		UserAgent:         cfg.UserAgent,
		DisableRedirects:  !cfg.FollowRedirects,
		MaxRedirects:      cfg.MaxRedirects,
		MaxConcurrent:     cfg.MaxConcurrent,
		AllowPrivateHosts: cfg.AllowPrivateHosts,
	}
	// Shared by every crawl.
	httpClient := fetch.NewHTTPClient(cfg.AllowPrivateHosts)
	fetcher := fetch.New(fc, httpClient)

	svc := crawl.NewService(
		fetcher,
		extract.HeuristicExtractor{MinTextChars: cfg.MinTextChars},
		normalize.Options{AllowPrivateHosts: cfg.AllowPrivateHosts},
	)

	a := &App{cfg: cfg, http: httpClient, service: svc}
	a.server = server.New(svc, server.Options{
		ErrorMapping:    mapping,
		AllowOrigins:    cfg.AllowOrigins,
		ShutdownTimeout: cfg.ShutdownTimeout,
		Logger:          &log.Logger,
	})

	log.Ctx(ctx).Debug().
		Dur("timeout", fetcher.Config().Timeout).
		Int64("max_body_bytes", fetcher.Config().MaxBodyBytes).
		Int("max_redirects", fetcher.Config().MaxRedirects).
		Int("max_concurrent", cfg.MaxConcurrent).
		Str("error_mapping", string(mapping)).
		Msg("app initialized")
	return a, nil
}

// Close releases idle upstream connections.
func (a *App) Close() {
	a.http.CloseIdleConnections()
}

// Handler exposes the HTTP routes, mainly for tests.
func (a *App) Handler() http.Handler { return a.server.Handler() }

// Serve runs the HTTP server until ctx is cancelled.
func (a *App) Serve(ctx context.Context) error {
	log.Info().
		Str("version", BuildVersion).
		Str("commit", BuildCommit).
		Str("addr", a.cfg.Addr).
		Msg("articlecrawl starting")
	return a.server.Run(ctx, a.cfg.Addr)
}

// CrawlOnce runs a single crawl outside the HTTP server.
func (a *App) CrawlOnce(ctx context.Context, raw string) (crawl.Response, error) {
	return a.service.Crawl(ctx, raw)
}
