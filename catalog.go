package folio

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/eringen/folio/apperr"
	"github.com/eringen/folio/cache"
	"github.com/eringen/folio/content"
	"github.com/eringen/folio/logger"
	"github.com/eringen/folio/media"
	"github.com/eringen/folio/metrics"
	"github.com/eringen/folio/notion"
)

// ErrPostNotFound is returned when no published post has the requested slug.
var ErrPostNotFound = apperr.New(apperr.KindNotFound, "post not found")

// Invalidation tags.
const (
	TagBlog      = "blog"
	TagGallery   = "gallery"
	TagPortfolio = "portfolio"
)

const (
	keyPosts   = "posts"
	keyGallery = "gallery"
)

// AllTags are the tags InvalidateAll clears.
var AllTags = []string{TagGallery, TagBlog, TagPortfolio}

// Source is the subset of the workspace client the catalog reads from.
type Source interface {
	QueryDatabase(ctx context.Context, databaseID string, q notion.Query) ([]notion.Page, error)
	BlockChildren(ctx context.Context, blockID string) ([]notion.Block, error)
}

// CatalogConfig configures a Catalog.
type CatalogConfig struct {
	PostsDatabaseID     string
	GalleryDatabaseID   string
	PostsSortProperty   string
	GallerySortProperty string
	TTL                 time.Duration
}

// Catalog serves normalized posts and gallery images, caching reads in a
// cache.Store and keeping embedded media URLs usable.
type Catalog struct {
	cfg   CatalogConfig
	src   Source
	norm  *content.Normalizer
	media *media.Manager
	store cache.Store
	rec   metrics.Recorder
}

// NewCatalog returns a Catalog. A nil recorder records nothing.
func NewCatalog(cfg CatalogConfig, src Source, norm *content.Normalizer, mm *media.Manager, store cache.Store, rec metrics.Recorder) *Catalog {
	if cfg.TTL <= 0 {
		cfg.TTL = time.Hour
	}
	if rec == nil {
		rec = metrics.NoopRecorder{}
	}
	return &Catalog{cfg: cfg, src: src, norm: norm, media: mm, store: store, rec: rec}
}

func sortBy(property string) []notion.Sort {
	if property == "" || property == "-" {
		return []notion.Sort{{Timestamp: "created_time", Direction: "descending"}}
	}
	return []notion.Sort{{Property: property, Direction: "descending"}}
}

// AllPosts returns every published post, newest first.
func (c *Catalog) AllPosts(ctx context.Context) ([]content.Post, error) {
	posts, err := c.posts(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]content.Post, len(posts))
	for i, p := range posts {
		out[i] = c.cachedPost(p)
	}
	return out, nil
}

// posts returns the raw post snapshot, from the store when possible.
func (c *Catalog) posts(ctx context.Context) ([]content.Post, error) {
	var posts []content.Post
	if c.lookup(ctx, keyPosts, &posts) && c.usable(c.postURLs(posts)...) {
		c.rec.IncCache(keyPosts, metrics.CacheHit)
		return posts, nil
	}

	pages, err := c.src.QueryDatabase(ctx, c.cfg.PostsDatabaseID, notion.Query{Sorts: sortBy(c.cfg.PostsSortProperty)})
	if err != nil {
		return nil, err
	}
	posts = c.norm.NormalizePosts(pages)
	c.save(ctx, keyPosts, posts, []string{TagBlog}, []string{"/", "/blog", "/blog/archive", "/feed.xml", "/sitemap.xml"}, c.postURLs(posts)...)
	return posts, nil
}

// PostBySlug returns the post with slug, its content replaced by the page
// body when the body can be retrieved.
func (c *Catalog) PostBySlug(ctx context.Context, slug string) (content.Post, error) {
	slug = content.Slugify(slug)
	if slug == "" {
		return content.Post{}, ErrPostNotFound
	}
	key := "post:" + slug

	var post content.Post
	if c.lookup(ctx, key, &post) && c.usable(c.postURLs([]content.Post{post})...) {
		c.rec.IncCache("post", metrics.CacheHit)
		return c.cachedPost(post), nil
	}

	posts, err := c.posts(ctx)
	if err != nil {
		return content.Post{}, err
	}
	found := false
	for _, p := range posts {
		if p.Slug == slug {
			post, found = p, true
			break
		}
	}
	if !found {
		return content.Post{}, ErrPostNotFound
	}

	blocks, err := c.src.BlockChildren(ctx, post.ID)
	switch {
	case err == nil:
		post = content.WithBody(post, notion.Markdown(blocks))
	case ctx.Err() != nil:
		return content.Post{}, err
	default:
		// Not stored, so the next read asks for the body again.
		logger.WarnWithFields("page body unavailable, using property content", logger.Fields{
			"slug":  slug,
			"error": err.Error(),
		})
		return c.cachedPost(post), nil
	}

	c.save(ctx, key, post, []string{TagBlog}, []string{"/blog/" + slug}, c.postURLs([]content.Post{post})...)
	return c.cachedPost(post), nil
}

// GalleryImages returns the gallery, possibly from cache. Signed URLs are
// rewritten to the proxy path.
func (c *Catalog) GalleryImages(ctx context.Context) ([]content.GalleryImage, error) {
	var images []content.GalleryImage
	if !c.lookup(ctx, keyGallery, &images) || !c.usable(imageURLs(images)...) {
		var err error
		images, err = c.fetchGallery(ctx)
		if err != nil {
			return nil, err
		}
		c.save(ctx, keyGallery, images, []string{TagGallery, TagPortfolio}, []string{"/", "/gallery", "/portfolio"}, imageURLs(images)...)
	} else {
		c.rec.IncCache(keyGallery, metrics.CacheHit)
	}

	out := make([]content.GalleryImage, len(images))
	for i, img := range images {
		img.Src = c.media.Rewrite(img.Src, true)
		img.SrcFull = c.media.Rewrite(img.SrcFull, true)
		img.SrcOriginal = c.media.Rewrite(img.SrcOriginal, true)
		out[i] = img
	}
	return out, nil
}

// GalleryImagesFresh queries the gallery on every call and never touches
// the store. URLs are returned as issued.
func (c *Catalog) GalleryImagesFresh(ctx context.Context) ([]content.GalleryImage, error) {
	c.rec.IncCache(keyGallery, metrics.CacheBypass)
	return c.fetchGallery(ctx)
}

func (c *Catalog) fetchGallery(ctx context.Context) ([]content.GalleryImage, error) {
	pages, err := c.src.QueryDatabase(ctx, c.cfg.GalleryDatabaseID, notion.Query{Sorts: sortBy(c.cfg.GallerySortProperty)})
	if err != nil {
		return nil, err
	}
	return c.norm.NormalizeGallery(pages), nil
}

// InvalidateTag drops every cached view labeled tag.
func (c *Catalog) InvalidateTag(ctx context.Context, tag string) (int, error) {
	n, err := c.store.InvalidateTag(ctx, tag)
	if err != nil {
		return 0, err
	}
	c.rec.IncInvalidation("tag", n)
	logger.InfoWithFields("cache invalidated", logger.Fields{"tag": tag, "removed": n})
	return n, nil
}

// InvalidatePath drops every cached view rendered at path. "/" drops all.
func (c *Catalog) InvalidatePath(ctx context.Context, path string) (int, error) {
	n, err := c.store.InvalidatePath(ctx, path)
	if err != nil {
		return 0, err
	}
	c.rec.IncInvalidation("path", n)
	logger.InfoWithFields("cache invalidated", logger.Fields{"path": cache.NormalizePath(path), "removed": n})
	return n, nil
}

// InvalidateAll drops every view labeled with one of AllTags.
func (c *Catalog) InvalidateAll(ctx context.Context) (int, error) {
	total := 0
	for _, t := range AllTags {
		n, err := c.InvalidateTag(ctx, t)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

// lookup decodes the snapshot at key into dst and reports a hit.
func (c *Catalog) lookup(ctx context.Context, key string, dst any) bool {
	raw, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, cache.ErrMiss) {
			logger.WarnWithFields("cache read failed", logger.Fields{"key": key, "error": err.Error()})
		}
		c.rec.IncCache(viewOf(key), metrics.CacheMiss)
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		logger.WarnWithFields("cache entry undecodable", logger.Fields{"key": key, "error": err.Error()})
		c.rec.IncCache(viewOf(key), metrics.CacheMiss)
		return false
	}
	return true
}

// usable reports whether no signed URL among urls needs a refetch.
func (c *Catalog) usable(urls ...string) bool {
	for _, u := range urls {
		if c.media.Decide(u, true) == media.Refetch {
			return false
		}
	}
	return true
}

// save stores v unless an embedded signed URL is already too close to
// expiry. Failures are logged; the caller still has its value.
func (c *Catalog) save(ctx context.Context, key string, v any, tags, paths []string, urls ...string) {
	until, ok := c.media.CacheUntil(c.cfg.TTL, urls...)
	if !ok {
		c.rec.IncCache(viewOf(key), metrics.CacheSkip)
		return
	}
	raw, err := json.Marshal(v)
	if err != nil {
		logger.ErrorWithFields("cache encode failed", logger.Fields{"key": key, "error": err.Error()})
		return
	}
	if err := c.store.Set(ctx, key, cache.Entry{Value: raw, Tags: tags, Paths: paths, ExpiresAt: until}); err != nil {
		logger.WarnWithFields("cache write failed", logger.Fields{"key": key, "error": err.Error()})
	}
}

// cachedPost rewrites signed URLs in p for embedding in cached output.
func (c *Catalog) cachedPost(p content.Post) content.Post {
	p.Image = c.media.Rewrite(p.Image, true)
	p.Content = c.media.RewriteText(p.Content)
	return p
}

// postURLs returns the signed media URLs embedded in posts.
func (c *Catalog) postURLs(posts []content.Post) []string {
	images := make([]string, 0, len(posts))
	texts := make([]string, len(posts))
	for i, p := range posts {
		images = append(images, p.Image)
		texts[i] = p.Content
	}
	return c.media.SignedURLs(images, texts...)
}

func imageURLs(images []content.GalleryImage) []string {
	urls := make([]string, 0, 3*len(images))
	for _, img := range images {
		urls = append(urls, img.Src, img.SrcFull, img.SrcOriginal)
	}
	return urls
}

func viewOf(key string) string {
	if strings.HasPrefix(key, "post:") {
		return "post"
	}
	return key
}
