package folio

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"gopkg.in/yaml.v3"

	"github.com/eringen/folio/apperr"
	"github.com/eringen/folio/cache"
	"github.com/eringen/folio/content"
)

const (
	CacheDriverMemory = "memory"
	CacheDriverSQLite = "sqlite"
)

// SiteConfig holds all configuration for a folio site.
type SiteConfig struct {
	Name        string `yaml:"name"`        // Site name (default "Portfolio")
	URL         string `yaml:"url"`         // Canonical URL (default "http://localhost:3000")
	Description string `yaml:"description"` // Site description for RSS
	Author      string `yaml:"author"`

	Addr string `yaml:"addr"` // Listen address (default ":3000")

	NotionToken         string `yaml:"notion_token"`          // Required
	PostsDatabaseID     string `yaml:"posts_database_id"`     // Required
	GalleryDatabaseID   string `yaml:"gallery_database_id"`   // Optional; gallery reads fail without it
	NotionBaseURL       string `yaml:"notion_base_url"`
	NotionVersion       string `yaml:"notion_version"`
	PostsSortProperty   string `yaml:"posts_sort_property"`   // default "Date"; "-" sorts by creation time
	GallerySortProperty string `yaml:"gallery_sort_property"` // as PostsSortProperty

	UpstreamTimeout    time.Duration `yaml:"upstream_timeout"`     // per attempt (default 10s)
	UpstreamRetries    int           `yaml:"upstream_retries"`     // default 2, negative disables
	UpstreamRetryDelay time.Duration `yaml:"upstream_retry_delay"` // default 500ms

	RevalidateSecret string `yaml:"revalidate_secret"` // Empty disables the check

	CacheDriver string        `yaml:"cache_driver"` // "memory" (default) or "sqlite"
	CachePath   string        `yaml:"cache_path"`   // SQLite path (default "data/cache.db")
	CacheTTL    time.Duration `yaml:"cache_ttl"`    // Cached read lifetime (default 1h)
	WarmEvery   time.Duration `yaml:"warm_every"`   // Background cache warming interval, 0 disables

	SignedHosts      []string      `yaml:"signed_hosts"`
	MinValidity      time.Duration `yaml:"min_validity"`       // default 5m
	ProxyAllowedHost []string      `yaml:"proxy_allowed_hosts"` // Empty allows any host
	DownloadMaxWidth int           `yaml:"download_max_width"`  // 0 keeps original size

	StaticPages []string `yaml:"static_pages"` // Sitemap entries besides posts

	Schema content.Schema `yaml:"schema"`

	LogLevel string `yaml:"log_level"`
}

func (c *SiteConfig) setDefaults() {
	if c.Name == "" {
		c.Name = "Portfolio"
	}
	if c.URL == "" {
		c.URL = "http://localhost:3000"
	}
	c.URL = strings.TrimRight(c.URL, "/")
	if c.Addr == "" {
		c.Addr = ":3000"
	}
	if c.PostsSortProperty == "" {
		c.PostsSortProperty = "Date"
	}
	if c.GallerySortProperty == "" {
		c.GallerySortProperty = "Date"
	}
	if c.UpstreamTimeout <= 0 {
		c.UpstreamTimeout = 10 * time.Second
	}
	if c.UpstreamRetries == 0 {
		c.UpstreamRetries = 2
	}
	if c.UpstreamRetryDelay <= 0 {
		c.UpstreamRetryDelay = 500 * time.Millisecond
	}
	if c.CacheDriver == "" {
		c.CacheDriver = CacheDriverMemory
	}
	if c.CachePath == "" {
		c.CachePath = "data/cache.db"
	}
	if c.CacheTTL <= 0 {
		c.CacheTTL = time.Hour
	}
	if c.StaticPages == nil {
		c.StaticPages = []string{"/", "/blog", "/gallery", "/portfolio", "/about", "/contact"}
	}
	c.Schema = c.Schema.Merge(content.DefaultSchema())
}

var placeholders = []string{
	"your_notion_token_here",
	"your_database_id_here",
	"your_notion_database_id",
	"your_posts_database_id",
	"your_gallery_database_id",
	"changeme",
}

// isPlaceholder reports whether v is empty or a sample value copied from
// an example env file.
func isPlaceholder(v string) bool {
	v = strings.TrimSpace(v)
	if v == "" {
		return true
	}
	for _, p := range placeholders {
		if strings.EqualFold(v, p) {
			return true
		}
	}
	return false
}

// Validate reports every missing required setting as one config error.
func (c *SiteConfig) Validate() error {
	var errs []error
	if isPlaceholder(c.NotionToken) {
		errs = append(errs, errors.New("NOTION_TOKEN is not set"))
	}
	if isPlaceholder(c.PostsDatabaseID) {
		errs = append(errs, errors.New("NOTION_POSTS_DATABASE_ID is not set"))
	}
	if isPlaceholder(c.GalleryDatabaseID) {
		c.GalleryDatabaseID = ""
	}
	switch c.CacheDriver {
	case "", CacheDriverMemory, CacheDriverSQLite:
	default:
		errs = append(errs, fmt.Errorf("unknown cache driver %q", c.CacheDriver))
	}
	if len(errs) > 0 {
		return apperr.Wrap(errors.Join(errs...), apperr.KindConfig, "invalid configuration")
	}
	return nil
}

// LoadConfig loads .env (if present), then the YAML file at path (if
// present), then applies environment overrides and defaults.
func LoadConfig(path string) (SiteConfig, error) {
	_ = godotenv.Load()

	var cfg SiteConfig
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("folio: parse %s: %w", path, err)
			}
		case !errors.Is(err, os.ErrNotExist):
			return cfg, fmt.Errorf("folio: read %s: %w", path, err)
		}
	}
	applyEnv(&cfg)
	cfg.setDefaults()
	return cfg, nil
}

func applyEnv(c *SiteConfig) {
	setString(&c.NotionToken, "NOTION_TOKEN")
	// NOTION_DATABASE_ID is the older name of the posts database setting.
	setString(&c.PostsDatabaseID, "NOTION_DATABASE_ID")
	setString(&c.PostsDatabaseID, "NOTION_POSTS_DATABASE_ID")
	setString(&c.GalleryDatabaseID, "NOTION_GALLERY_DATABASE_ID")
	setString(&c.RevalidateSecret, "REVALIDATE_SECRET")
	setString(&c.URL, "SITE_URL")
	setString(&c.Name, "SITE_NAME")
	setString(&c.Addr, "ADDR")
	setString(&c.CacheDriver, "CACHE_DRIVER")
	setString(&c.CachePath, "CACHE_PATH")
	setString(&c.LogLevel, "LOG_LEVEL")
	if v := os.Getenv("CACHE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.CacheTTL = d
		}
	}
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

// Option configures additional App behavior.
type Option func(*App)

// WithCustomRoutes registers additional routes on the Echo instance.
// The callback receives the App after the built-in routes are registered.
func WithCustomRoutes(fn func(*App)) Option {
	return func(a *App) {
		a.customRoutes = append(a.customRoutes, fn)
	}
}

// WithStore replaces the cache store selected by CacheDriver.
func WithStore(s cache.Store) Option {
	return func(a *App) {
		a.store = s
	}
}

// WithHTTPClient sets the client used for workspace API calls.
func WithHTTPClient(hc *http.Client) Option {
	return func(a *App) {
		a.httpClient = hc
	}
}

// WithMediaTransport sets the transport used by the image proxy and
// download endpoints.
func WithMediaTransport(rt http.RoundTripper) Option {
	return func(a *App) {
		a.mediaTransport = rt
	}
}

// WithRegistry sets the Prometheus registry for app and HTTP metrics.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(a *App) {
		a.registry = reg
	}
}
