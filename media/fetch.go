package media

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/eringen/folio/apperr"
)

const (
	UserAgent = "Mozilla/5.0"
	Accept    = "image/avif,image/webp,image/*,*/*;q=0.8"

	// ProxyCacheControl is sent with proxied bodies when upstream sends
	// no usable Cache-Control.
	ProxyCacheControl = "public, max-age=3600, s-maxage=3600, stale-while-revalidate=86400"
	// MaxProxyAge caps max-age and s-maxage passed through from upstream.
	MaxProxyAge = time.Hour
	// DefaultContentType is used when upstream sends none.
	DefaultContentType = "image/jpeg"

	defaultFetchTimeout = 30 * time.Second
	maxRedirects        = 10
)

var (
	ErrMissingTarget  = apperr.New(apperr.KindValidation, "Missing url")
	ErrInvalidTarget  = apperr.New(apperr.KindValidation, "Invalid url")
	ErrHostNotAllowed = apperr.New(apperr.KindValidation, "Host not allowed")
)

// ValidateTarget parses raw and accepts only absolute http(s) URLs.
func ValidateTarget(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrMissingTarget
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, ErrInvalidTarget
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, ErrInvalidTarget
	}
	return u, nil
}

// FetcherConfig configures a Fetcher. An empty AllowedHosts allows any
// host.
type FetcherConfig struct {
	AllowedHosts []string
	Timeout      time.Duration
}

// Fetcher retrieves media for the proxy and download endpoints.
type Fetcher struct {
	http    *http.Client
	allowed map[string]struct{}
}

// FetchOption configures a Fetcher.
type FetchOption func(*Fetcher)

// WithTransport replaces the HTTP transport.
func WithTransport(rt http.RoundTripper) FetchOption {
	return func(f *Fetcher) { f.http.Transport = rt }
}

// NewFetcher returns a Fetcher.
func NewFetcher(cfg FetcherConfig, opts ...FetchOption) *Fetcher {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}
	f := &Fetcher{
		http: &http.Client{Timeout: timeout},
	}
	if len(cfg.AllowedHosts) > 0 {
		f.allowed = make(map[string]struct{}, len(cfg.AllowedHosts))
		for _, h := range cfg.AllowedHosts {
			f.allowed[strings.ToLower(strings.TrimSpace(h))] = struct{}{}
		}
	}
	f.http.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if len(via) >= maxRedirects {
			return fmt.Errorf("stopped after %d redirects", maxRedirects)
		}
		if _, err := ValidateTarget(req.URL.String()); err != nil {
			return err
		}
		return f.checkHost(req.URL)
	}
	for _, o := range opts {
		o(f)
	}
	return f
}

func (f *Fetcher) checkHost(u *url.URL) error {
	if f.allowed == nil {
		return nil
	}
	if _, ok := f.allowed[strings.ToLower(u.Hostname())]; !ok {
		return ErrHostNotAllowed
	}
	return nil
}

// Response is a successful upstream media response. Callers must close
// Body.
type Response struct {
	Body          io.ReadCloser
	ContentType   string
	ContentLength int64
	CacheControl  string // see CacheControl
}

// CacheControl returns the directive to send with a proxied body: the
// upstream value with max-age and s-maxage capped at MaxProxyAge, or
// ProxyCacheControl when upstream sends nothing usable. Malformed age
// directives are dropped.
func CacheControl(upstream string) string {
	limit := int(MaxProxyAge / time.Second)
	var out []string
	for _, d := range strings.Split(upstream, ",") {
		d = strings.TrimSpace(d)
		if d == "" {
			continue
		}
		name, val, _ := strings.Cut(d, "=")
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "max-age" || name == "s-maxage" {
			n, err := strconv.Atoi(strings.Trim(strings.TrimSpace(val), `"`))
			if err != nil || n < 0 {
				continue
			}
			d = name + "=" + strconv.Itoa(min(n, limit))
		}
		out = append(out, d)
	}
	if len(out) == 0 {
		return ProxyCacheControl
	}
	return strings.Join(out, ", ")
}

// Fetch validates raw and GETs it, always revalidating upstream.
// Non-2xx responses return an upstream error carrying the status;
// transport failures return a network error.
func (f *Fetcher) Fetch(ctx context.Context, raw string) (*Response, error) {
	u, err := ValidateTarget(raw)
	if err != nil {
		return nil, err
	}
	if err := f.checkHost(u); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.KindValidation, "Invalid url")
	}
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Accept", Accept)
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Pragma", "no-cache")

	resp, err := f.http.Do(req)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.KindNetwork, "Proxy error")
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		resp.Body.Close()
		return nil, apperr.Newf(apperr.KindUpstream, "Upstream error: %d", resp.StatusCode).WithStatus(resp.StatusCode)
	}

	ct := resp.Header.Get("Content-Type")
	if ct == "" {
		ct = DefaultContentType
	}
	return &Response{
		Body:          resp.Body,
		ContentType:   ct,
		ContentLength: resp.ContentLength,
		CacheControl:  CacheControl(resp.Header.Get("Cache-Control")),
	}, nil
}
