package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/eringen/folio"
	"github.com/eringen/folio/content"
	"github.com/eringen/folio/logger"
	"github.com/eringen/folio/notion"
)

const commandTimeout = 2 * time.Minute

func printJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// ServeCmd runs the HTTP server until interrupted.
type ServeCmd struct {
	Addr string `help:"Listen address; overrides ADDR and the config file"`
}

func (s *ServeCmd) Run(root *CLI) error {
	cfg, err := root.load("info")
	if err != nil {
		return err
	}
	if s.Addr != "" {
		cfg.Addr = s.Addr
	}

	app := folio.New(cfg)
	errCh := make(chan error, 1)
	go func() { errCh <- app.Start() }()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	select {
	case err := <-errCh:
		_ = app.Close()
		return err
	case <-sig:
	}

	logger.Log.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return app.Shutdown(ctx)
}

// PostsCmd prints every published post.
type PostsCmd struct {
	Limit int `short:"n" help:"Print at most n posts"`
}

func (p *PostsCmd) Run(root *CLI, out io.Writer) error {
	cfg, err := root.load("warn")
	if err != nil {
		return err
	}
	catalog, _, store, err := folio.OpenCatalog(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()
	posts, err := catalog.AllPosts(ctx)
	if err != nil {
		return err
	}
	total := len(posts)
	if p.Limit > 0 && p.Limit < total {
		posts = posts[:p.Limit]
	}
	return printJSON(out, map[string]any{"total": total, "posts": posts})
}

// PostCmd prints one post by slug.
type PostCmd struct {
	Slug string `arg:"" help:"Post slug"`
}

func (p *PostCmd) Run(root *CLI, out io.Writer) error {
	cfg, err := root.load("warn")
	if err != nil {
		return err
	}
	catalog, _, store, err := folio.OpenCatalog(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()
	post, err := catalog.PostBySlug(ctx, p.Slug)
	if errors.Is(err, folio.ErrPostNotFound) {
		return fmt.Errorf("no published post with slug %q", p.Slug)
	}
	if err != nil {
		return err
	}
	return printJSON(out, post)
}

// GalleryCmd prints the gallery.
type GalleryCmd struct {
	Selected bool   `help:"Only selected images, falling back to all when none is selected"`
	Category string `help:"Only images in this category"`
	Cached   bool   `help:"Read through the cache instead of querying directly"`
}

func (g *GalleryCmd) Run(root *CLI, out io.Writer) error {
	cfg, err := root.load("warn")
	if err != nil {
		return err
	}
	catalog, _, store, err := folio.OpenCatalog(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()
	var images []content.GalleryImage
	if g.Cached {
		images, err = catalog.GalleryImages(ctx)
	} else {
		images, err = catalog.GalleryImagesFresh(ctx)
	}
	if err != nil {
		return err
	}
	if g.Selected {
		images = content.Curated(images)
	}
	images = content.FilterCategory(images, g.Category)
	return printJSON(out, map[string]any{"total": len(images), "images": images})
}

// slugReport describes how one post record resolves.
type slugReport struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	RawSlug    string   `json:"rawSlug"`
	Slug       string   `json:"slug,omitempty"`
	Included   bool     `json:"included"`
	Reason     string   `json:"reason,omitempty"`
	Candidates []string `json:"slugProperties"`
	Properties []string `json:"properties"`
}

// CheckSlugsCmd reports slug resolution for every record of the posts
// database, including excluded ones.
type CheckSlugsCmd struct{}

func (CheckSlugsCmd) Run(root *CLI, out io.Writer) error {
	cfg, err := root.load("warn")
	if err != nil {
		return err
	}
	_, client, store, err := folio.OpenCatalog(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()
	pages, err := client.QueryDatabase(ctx, cfg.PostsDatabaseID, notion.Query{})
	if err != nil {
		return err
	}

	norm := content.NewNormalizer(cfg.Schema)
	reports := make([]slugReport, 0, len(pages))
	for _, page := range pages {
		r := slugReport{ID: page.ID}
		r.Title, _ = cfg.Schema.Post.Title.Text(page.Properties)
		r.RawSlug, _ = cfg.Schema.Post.Slug.Text(page.Properties)
		for _, name := range cfg.Schema.Post.Slug {
			if _, ok := page.Properties[name]; ok {
				r.Candidates = append(r.Candidates, name)
			}
		}
		for name := range page.Properties {
			r.Properties = append(r.Properties, name)
		}
		sort.Strings(r.Properties)

		post, err := norm.NormalizePost(page)
		if err != nil {
			r.Reason = err.Error()
		} else {
			r.Slug, r.Included = post.Slug, true
		}
		reports = append(reports, r)
	}
	return printJSON(out, map[string]any{"totalPosts": len(pages), "posts": reports})
}

// WarmCmd fills the configured cache once.
type WarmCmd struct{}

func (WarmCmd) Run(root *CLI) error {
	cfg, err := root.load("info")
	if err != nil {
		return err
	}
	if cfg.CacheDriver != folio.CacheDriverSQLite {
		logger.Log.Warn("warming an in-memory cache has no lasting effect; set CACHE_DRIVER=sqlite")
	}
	catalog, _, store, err := folio.OpenCatalog(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()
	return catalog.Warm(ctx)
}
