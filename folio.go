// Package folio serves a portfolio site's blog posts and gallery images
// from a Notion workspace. It normalizes workspace records into a stable
// content model, caches read views with tag and path invalidation, and
// keeps time-limited media URLs usable through a same-origin proxy.
package folio

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/eringen/folio/cache"
	"github.com/eringen/folio/content"
	"github.com/eringen/folio/logger"
	"github.com/eringen/folio/media"
	"github.com/eringen/folio/metrics"
	"github.com/eringen/folio/notion"
)

// Version is set at build time via ldflags.
var Version = "dev"

// App is the central folio application. It wires together the workspace
// client, cache, handlers and middleware.
type App struct {
	Config  SiteConfig
	Echo    *echo.Echo
	Notion  *notion.Client
	Catalog *Catalog

	store             cache.Store
	fetcher           *media.Fetcher
	recorder          metrics.Recorder
	registry          *prometheus.Registry
	revalidateLimiter *AttemptLimiter
	warmer            *warmer
	customRoutes      []func(*App)
	httpClient        *http.Client
	mediaTransport    http.RoundTripper
	ready             bool
}

// New creates a new folio App with the given configuration.
func New(cfg SiteConfig, opts ...Option) *App {
	cfg.setDefaults()

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	a := &App{
		Config: cfg,
		Echo:   e,
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// NewNotionClient builds the workspace client described by cfg.
func NewNotionClient(cfg SiteConfig, hc *http.Client, rec metrics.Recorder) (*notion.Client, error) {
	retries := cfg.UpstreamRetries
	if retries < 0 {
		retries = 0
	}
	opts := []notion.Option{notion.WithRecorder(rec)}
	if hc != nil {
		opts = append(opts, notion.WithHTTPClient(hc))
	}
	return notion.New(notion.Config{
		Token:   cfg.NotionToken,
		BaseURL: cfg.NotionBaseURL,
		Version: cfg.NotionVersion,
		Timeout: cfg.UpstreamTimeout,
		Retry:   notion.NewRetryPolicy(notion.BackoffLinear, cfg.UpstreamRetryDelay, 0, retries),
	}, opts...)
}

// OpenStore opens the cache backend selected by cfg.CacheDriver.
func OpenStore(cfg SiteConfig) (cache.Store, error) {
	switch cfg.CacheDriver {
	case CacheDriverSQLite:
		return cache.OpenSQLite(cfg.CachePath)
	case CacheDriverMemory, "":
		return cache.NewMemory(), nil
	default:
		return nil, fmt.Errorf("folio: unknown cache driver %q", cfg.CacheDriver)
	}
}

// NewMediaManager builds the signed URL manager described by cfg.
func NewMediaManager(cfg SiteConfig) *media.Manager {
	return media.NewManager(media.Config{
		SignedHosts: FilterEmpty(cfg.SignedHosts),
		MinValidity: cfg.MinValidity,
	})
}

func catalogFor(cfg SiteConfig, src Source, store cache.Store, rec metrics.Recorder) *Catalog {
	return NewCatalog(CatalogConfig{
		PostsDatabaseID:     cfg.PostsDatabaseID,
		GalleryDatabaseID:   cfg.GalleryDatabaseID,
		PostsSortProperty:   cfg.PostsSortProperty,
		GallerySortProperty: cfg.GallerySortProperty,
		TTL:                 cfg.CacheTTL,
	}, src, content.NewNormalizer(cfg.Schema), NewMediaManager(cfg), store, rec)
}

// OpenCatalog validates cfg and builds a Catalog outside the HTTP server.
// The caller closes the returned store.
func OpenCatalog(cfg SiteConfig) (*Catalog, *notion.Client, cache.Store, error) {
	cfg.setDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, nil, nil, err
	}
	client, err := NewNotionClient(cfg, nil, metrics.NoopRecorder{})
	if err != nil {
		return nil, nil, nil, err
	}
	store, err := OpenStore(cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	return catalogFor(cfg, client, store, nil), client, store, nil
}

// Setup validates the configuration and initializes the client, cache,
// catalog, middleware and routes. Start calls it when needed.
func (a *App) Setup() error {
	if a.ready {
		return nil
	}
	if err := a.Config.Validate(); err != nil {
		return fmt.Errorf("folio: %w", err)
	}
	if a.Config.RevalidateSecret == "" {
		logger.Log.Warn("REVALIDATE_SECRET is not set; cache invalidation is open to anyone")
	}

	if a.registry == nil {
		a.registry = prometheus.NewRegistry()
		a.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}
	a.recorder = metrics.NewPrometheusRecorder(a.registry)

	client, err := NewNotionClient(a.Config, a.httpClient, a.recorder)
	if err != nil {
		return fmt.Errorf("folio: init client: %w", err)
	}
	a.Notion = client

	if a.store == nil {
		store, err := OpenStore(a.Config)
		if err != nil {
			return fmt.Errorf("folio: init cache: %w", err)
		}
		a.store = store
	}

	a.Catalog = catalogFor(a.Config, client, a.store, a.recorder)

	var fetchOpts []media.FetchOption
	if a.mediaTransport != nil {
		fetchOpts = append(fetchOpts, media.WithTransport(a.mediaTransport))
	}
	a.fetcher = media.NewFetcher(media.FetcherConfig{AllowedHosts: FilterEmpty(a.Config.ProxyAllowedHost)}, fetchOpts...)

	a.revalidateLimiter = NewAttemptLimiter(5, time.Minute)

	a.setupMiddleware()
	a.setupRoutes()
	for _, fn := range a.customRoutes {
		fn(a)
	}
	a.ready = true
	return nil
}

// Start sets up the app if needed, starts cache warming when configured,
// and serves until the server is shut down.
func (a *App) Start() error {
	if err := a.Setup(); err != nil {
		return err
	}

	if a.Config.WarmEvery > 0 {
		w, err := newWarmer(a.Catalog, a.Config.WarmEvery, 6*a.Config.UpstreamTimeout)
		if err != nil {
			return fmt.Errorf("folio: init warmer: %w", err)
		}
		a.warmer = w
		w.Start()
	}

	logger.InfoWithFields("listening", logger.Fields{"addr": a.Config.Addr, "cache": a.Config.CacheDriver})
	if err := a.Echo.Start(a.Config.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (a *App) setupRoutes() {
	e := a.Echo

	e.GET("/health", a.handleHealth)
	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: a.registry}))

	e.GET("/sitemap.xml", a.handleSitemap)
	e.GET("/feed.xml", a.handleFeed)

	api := e.Group("/api")
	api.GET("/blogs", a.handleBlogs)
	api.GET("/blogs/", a.handleBlogBySlug)
	api.GET("/blogs/:slug", a.handleBlogBySlug)
	api.GET("/gallery", a.handleGallery)
	api.GET("/portfolio", a.handlePortfolio)
	api.GET("/image-proxy", a.handleImageProxy)
	api.GET("/download", a.handleDownload)
	api.POST("/revalidate", a.handleRevalidate)
	api.GET("/revalidate", a.handleRevalidate)
}

// Shutdown stops the server gracefully and releases resources.
func (a *App) Shutdown(ctx context.Context) error {
	err := a.Echo.Shutdown(ctx)
	return errors.Join(err, a.Close())
}

// Close cleans up resources. Call this when the app is shutting down.
func (a *App) Close() error {
	var errs []error
	if a.warmer != nil {
		errs = append(errs, a.warmer.Stop())
		a.warmer = nil
	}
	if a.revalidateLimiter != nil {
		a.revalidateLimiter.Stop()
	}
	if a.store != nil {
		errs = append(errs, a.store.Close())
		a.store = nil
	}
	return errors.Join(errs...)
}

