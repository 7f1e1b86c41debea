package cache

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time      { return c.t }
func (c *clock) add(d time.Duration) { c.t = c.t.Add(d) }

func setupTestSQLite(t *testing.T, c *clock) *SQLiteStore {
	t.Helper()
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "data", "cache.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	s.now = c.now
	t.Cleanup(func() { s.Close() })
	return s
}

func setupTestMemory(c *clock) *Memory {
	m := NewMemory()
	m.now = c.now
	return m
}

// forEachStore runs fn against every Store implementation.
func forEachStore(t *testing.T, fn func(t *testing.T, s Store, c *clock)) {
	t.Run("memory", func(t *testing.T) {
		c := &clock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
		fn(t, setupTestMemory(c), c)
	})
	t.Run("sqlite", func(t *testing.T) {
		c := &clock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
		fn(t, setupTestSQLite(t, c), c)
	})
}

func mustSet(t *testing.T, s Store, key string, e Entry) {
	t.Helper()
	if err := s.Set(context.Background(), key, e); err != nil {
		t.Fatalf("Set(%q) failed: %v", key, err)
	}
}

func isMiss(t *testing.T, s Store, key string) bool {
	t.Helper()
	_, err := s.Get(context.Background(), key)
	if err != nil && !errors.Is(err, ErrMiss) {
		t.Fatalf("Get(%q) unexpected error: %v", key, err)
	}
	return errors.Is(err, ErrMiss)
}

func TestSetAndGet(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store, c *clock) {
		ctx := context.Background()
		mustSet(t, s, "posts", Entry{Value: []byte(`[1]`), ExpiresAt: c.t.Add(time.Minute)})

		got, err := s.Get(ctx, "posts")
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if string(got) != `[1]` {
			t.Errorf("value = %q, want [1]", got)
		}

		mustSet(t, s, "posts", Entry{Value: []byte(`[2]`), ExpiresAt: c.t.Add(time.Minute)})
		got, _ = s.Get(ctx, "posts")
		if string(got) != `[2]` {
			t.Errorf("value after overwrite = %q, want [2]", got)
		}

		if !isMiss(t, s, "missing") {
			t.Error("expected miss for unknown key")
		}
	})
}

func TestExpiry(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store, c *clock) {
		mustSet(t, s, "k", Entry{Value: []byte("v"), ExpiresAt: c.t.Add(time.Minute)})
		c.add(59 * time.Second)
		if isMiss(t, s, "k") {
			t.Fatal("entry expired early")
		}
		c.add(time.Second)
		if !isMiss(t, s, "k") {
			t.Fatal("entry served after expiry")
		}
	})
}

func TestInvalidateTag(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store, c *clock) {
		ctx := context.Background()
		exp := c.t.Add(time.Hour)
		mustSet(t, s, "posts", Entry{Value: []byte("p"), Tags: []string{"blog"}, ExpiresAt: exp})
		mustSet(t, s, "post:a", Entry{Value: []byte("a"), Tags: []string{"Blog "}, ExpiresAt: exp})
		mustSet(t, s, "gallery", Entry{Value: []byte("g"), Tags: []string{"gallery", "portfolio"}, ExpiresAt: exp})

		n, err := s.InvalidateTag(ctx, "blog")
		if err != nil {
			t.Fatalf("InvalidateTag failed: %v", err)
		}
		if n != 2 {
			t.Errorf("removed = %d, want 2", n)
		}
		if !isMiss(t, s, "posts") || !isMiss(t, s, "post:a") {
			t.Error("blog entries survived invalidation")
		}
		if isMiss(t, s, "gallery") {
			t.Error("gallery entry removed by blog invalidation")
		}

		n, _ = s.InvalidateTag(ctx, "portfolio")
		if n != 1 || !isMiss(t, s, "gallery") {
			t.Errorf("portfolio invalidation removed %d", n)
		}
		n, _ = s.InvalidateTag(ctx, "unknown")
		if n != 0 {
			t.Errorf("unknown tag removed %d", n)
		}
	})
}

func TestInvalidatePath(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store, c *clock) {
		ctx := context.Background()
		exp := c.t.Add(time.Hour)
		mustSet(t, s, "posts", Entry{Value: []byte("p"), Paths: []string{"/blog", "/feed.xml"}, ExpiresAt: exp})
		mustSet(t, s, "post:a", Entry{Value: []byte("a"), Paths: []string{"/blog/a"}, ExpiresAt: exp})
		mustSet(t, s, "gallery", Entry{Value: []byte("g"), Paths: []string{"/gallery"}, ExpiresAt: exp})

		n, err := s.InvalidatePath(ctx, "blog/a/")
		if err != nil {
			t.Fatalf("InvalidatePath failed: %v", err)
		}
		if n != 1 || !isMiss(t, s, "post:a") {
			t.Errorf("path invalidation removed %d", n)
		}
		if isMiss(t, s, "posts") {
			t.Error("unrelated entry removed")
		}

		n, _ = s.InvalidatePath(ctx, "/")
		if n != 2 {
			t.Errorf("root purge removed %d, want 2", n)
		}
		if !isMiss(t, s, "posts") || !isMiss(t, s, "gallery") {
			t.Error("root path did not purge everything")
		}
	})
}

func TestRelabelOnSet(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store, c *clock) {
		exp := c.t.Add(time.Hour)
		mustSet(t, s, "k", Entry{Value: []byte("1"), Tags: []string{"blog"}, ExpiresAt: exp})
		mustSet(t, s, "k", Entry{Value: []byte("2"), Tags: []string{"gallery"}, ExpiresAt: exp})

		if n, _ := s.InvalidateTag(context.Background(), "blog"); n != 0 {
			t.Errorf("stale tag still matched %d entries", n)
		}
		if n, _ := s.InvalidateTag(context.Background(), "gallery"); n != 1 {
			t.Errorf("new tag matched %d entries, want 1", n)
		}
	})
}

func TestSQLiteInMemory(t *testing.T) {
	s, err := OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("OpenSQLite(:memory:) failed: %v", err)
	}
	defer s.Close()
	ctx := context.Background()
	if err := s.Set(ctx, "k", Entry{Value: []byte("v"), ExpiresAt: time.Now().Add(time.Minute)}); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if _, err := s.Get(ctx, "k"); err != nil {
		t.Fatalf("Get failed: %v", err)
	}
}

func TestSQLitePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	ctx := context.Background()

	s, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := s.Set(ctx, "k", Entry{Value: []byte("v"), ExpiresAt: time.Now().Add(time.Hour)}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	s.Close()

	s, err = OpenSQLite(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()
	got, err := s.Get(ctx, "k")
	if err != nil || string(got) != "v" {
		t.Fatalf("Get after reopen = %q, %v", got, err)
	}
}

func TestNormalizePath(t *testing.T) {
	tests := []struct{ in, want string }{
		{"/", "/"},
		{"", "/"},
		{"blog", "/blog"},
		{"/blog/", "/blog"},
		{"/blog/a?x=1", "/blog/a"},
		{"//", "/"},
	}
	for _, tt := range tests {
		if got := NormalizePath(tt.in); got != tt.want {
			t.Errorf("NormalizePath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
