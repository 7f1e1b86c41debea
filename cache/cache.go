// Package cache holds serialized content snapshots labeled with
// invalidation tags and site paths.
package cache

import (
	"context"
	"errors"
	"strings"
	"time"
)

// ErrMiss is returned by Get when the key is absent or expired.
var ErrMiss = errors.New("cache: miss")

// Entry is one cached value. Value is an opaque serialized snapshot that
// callers decode fresh on every hit.
type Entry struct {
	Value     []byte
	Tags      []string
	Paths     []string
	ExpiresAt time.Time
}

// Store is a bounded-lifetime cache with tag and path invalidation.
// Implementations are safe for concurrent use.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, e Entry) error
	// InvalidateTag removes every entry labeled with tag and reports how
	// many were removed.
	InvalidateTag(ctx context.Context, tag string) (int, error)
	// InvalidatePath removes every entry rendered at path. "/" removes all.
	InvalidatePath(ctx context.Context, path string) (int, error)
	Purge(ctx context.Context) (int, error)
	Close() error
}

// NormalizePath returns p with a leading slash and no trailing slash.
func NormalizePath(p string) string {
	p = strings.TrimSpace(p)
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 {
		p = strings.TrimRight(p, "/")
		if p == "" {
			p = "/"
		}
	}
	return p
}

// NormalizeTag lowercases and trims a tag.
func NormalizeTag(t string) string {
	return strings.ToLower(strings.TrimSpace(t))
}

func normalizeAll(vals []string, f func(string) string) []string {
	out := make([]string, 0, len(vals))
	seen := make(map[string]struct{}, len(vals))
	for _, v := range vals {
		if strings.TrimSpace(v) == "" {
			continue
		}
		n := f(v)
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}
