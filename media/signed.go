// Package media manages time-limited upstream media URLs: it detects
// signed URLs, works out how long they stay valid, rewrites them to the
// same-origin proxy and fetches them on demand.
package media

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DefaultSignedHosts are the hosts that serve workspace-hosted files.
var DefaultSignedHosts = []string{
	"prod-files-secure.s3.us-west-2.amazonaws.com",
	"s3.us-west-2.amazonaws.com",
	"s3-us-west-2.amazonaws.com",
	"file.notion.so",
}

const (
	DefaultProxyPath   = "/api/image-proxy"
	DefaultMinValidity = 5 * time.Minute

	amzDateLayout = "20060102T150405Z"
)

// Decision is what a caller should do with a media URL.
type Decision int

const (
	// PassThrough: use the URL as is.
	PassThrough Decision = iota
	// Proxy: serve the URL through the same-origin proxy.
	Proxy
	// Refetch: the URL is about to expire; query upstream again.
	Refetch
)

func (d Decision) String() string {
	switch d {
	case Proxy:
		return "proxy"
	case Refetch:
		return "refetch"
	default:
		return "pass-through"
	}
}

// Config configures a Manager.
type Config struct {
	SignedHosts []string
	MinValidity time.Duration
	ProxyPath   string
}

// Manager classifies and rewrites media URLs.
type Manager struct {
	hosts       map[string]struct{}
	minValidity time.Duration
	proxyPath   string
	now         func() time.Time
}

// NewManager returns a Manager; zero Config fields take defaults.
func NewManager(cfg Config) *Manager {
	hosts := cfg.SignedHosts
	if len(hosts) == 0 {
		hosts = DefaultSignedHosts
	}
	m := &Manager{
		hosts:       make(map[string]struct{}, len(hosts)),
		minValidity: cfg.MinValidity,
		proxyPath:   cfg.ProxyPath,
		now:         time.Now,
	}
	for _, h := range hosts {
		m.hosts[strings.ToLower(strings.TrimSpace(h))] = struct{}{}
	}
	if m.minValidity <= 0 {
		m.minValidity = DefaultMinValidity
	}
	if m.proxyPath == "" {
		m.proxyPath = DefaultProxyPath
	}
	return m
}

// IsSigned reports whether raw is a time-limited upstream URL.
func (m *Manager) IsSigned(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return false
	}
	if _, ok := m.hosts[strings.ToLower(u.Hostname())]; ok {
		return true
	}
	return u.Query().Get("X-Amz-Signature") != ""
}

// Expiry returns when a signed URL stops working, if the URL says.
func (m *Manager) Expiry(raw string) (time.Time, bool) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, false
	}
	q := u.Query()
	if d, e := q.Get("X-Amz-Date"), q.Get("X-Amz-Expires"); d != "" && e != "" {
		issued, err := time.Parse(amzDateLayout, d)
		secs, err2 := strconv.Atoi(e)
		if err == nil && err2 == nil {
			return issued.Add(time.Duration(secs) * time.Second), true
		}
	}
	if e := q.Get("Expires"); e != "" {
		if unix, err := strconv.ParseInt(e, 10, 64); err == nil {
			return time.Unix(unix, 0).UTC(), true
		}
	}
	return time.Time{}, false
}

// Decide classifies raw for a cached (true) or forced-fresh (false) read.
func (m *Manager) Decide(raw string, cached bool) Decision {
	if !m.IsSigned(raw) {
		return PassThrough
	}
	if exp, ok := m.Expiry(raw); ok && exp.Sub(m.now()) < m.minValidity {
		return Refetch
	}
	if cached {
		return Proxy
	}
	return PassThrough
}

// ProxyURL returns the same-origin proxy path for raw.
func (m *Manager) ProxyURL(raw string) string {
	return m.proxyPath + "?url=" + url.QueryEscape(raw)
}

// Rewrite returns the URL to embed for raw on a cached or fresh read.
// Cached output proxies every signed URL, including ones close to expiry.
func (m *Manager) Rewrite(raw string, cached bool) string {
	if cached && m.IsSigned(raw) {
		return m.ProxyURL(raw)
	}
	return raw
}

var reURL = regexp.MustCompile(`https?://[^\s<>"'()\[\]]+`)

// RewriteText rewrites every signed URL inside s to the proxy path, as for
// a cached read.
func (m *Manager) RewriteText(s string) string {
	return reURL.ReplaceAllStringFunc(s, func(raw string) string {
		if !m.IsSigned(raw) {
			return raw
		}
		return m.ProxyURL(raw)
	})
}

// URLsIn returns every absolute http(s) URL found in texts.
func URLsIn(texts ...string) []string {
	var out []string
	for _, t := range texts {
		out = append(out, reURL.FindAllString(t, -1)...)
	}
	return out
}

// SignedURLs returns the signed URLs among urls and inside texts.
func (m *Manager) SignedURLs(urls []string, texts ...string) []string {
	var out []string
	all := append(append([]string(nil), urls...), URLsIn(texts...)...)
	for _, u := range all {
		if m.IsSigned(u) {
			out = append(out, u)
		}
	}
	return out
}

// CacheUntil returns how long a value embedding urls may be cached when
// the default lifetime is ttl. It never extends past the earliest signed
// expiry minus MinValidity; ok is false when that is already past.
func (m *Manager) CacheUntil(ttl time.Duration, urls ...string) (time.Time, bool) {
	now := m.now()
	until := now.Add(ttl)
	for _, u := range urls {
		if !m.IsSigned(u) {
			continue
		}
		exp, ok := m.Expiry(u)
		if !ok {
			continue
		}
		if limit := exp.Add(-m.minValidity); limit.Before(until) {
			until = limit
		}
	}
	if !until.After(now) {
		return until, false
	}
	return until, true
}
