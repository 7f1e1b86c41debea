package folio

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/eringen/folio/apperr"
	"github.com/eringen/folio/content"
	"github.com/eringen/folio/logger"
)

const relatedPostsLimit = 3

// publicError returns the caller-safe message for err. Unclassified
// failures get fallback.
func publicError(err error, fallback string) string {
	switch kind := apperr.KindOf(err); kind {
	case apperr.KindConfig, apperr.KindAuth, apperr.KindNotFound, apperr.KindNetwork:
		return apperr.PublicMessage(kind)
	}
	return fallback
}

func logFailure(c echo.Context, msg string, err error) {
	logger.ErrorWithFields(msg, logger.Fields{
		"path":       c.Request().URL.Path,
		"kind":       string(apperr.KindOf(err)),
		"request_id": c.Response().Header().Get(echo.HeaderXRequestID),
		"error":      err.Error(),
	})
}

func (a *App) handleBlogs(c echo.Context) error {
	limit, err := parseLimit(c.QueryParam("limit"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]any{
			"posts":   []content.Post{},
			"total":   0,
			"success": false,
			"error":   errInvalidLimit.Message,
		})
	}

	all, err := a.Catalog.AllPosts(c.Request().Context())
	if err != nil {
		logFailure(c, "listing posts failed", err)
		return c.JSON(http.StatusInternalServerError, map[string]any{
			"posts":   []content.Post{},
			"total":   0,
			"success": false,
			"error":   publicError(err, "Failed to fetch blog posts"),
		})
	}

	posts := all
	if limit > 0 && limit < len(all) {
		posts = all[:limit]
	}
	resp := map[string]any{
		"posts":   posts,
		"total":   len(all),
		"success": true,
	}
	if limit > 0 {
		resp["limited"] = true
		resp["showing"] = len(posts)
	}
	return c.JSON(http.StatusOK, resp)
}

func (a *App) handleBlogBySlug(c echo.Context) error {
	slug := strings.TrimSpace(c.Param("slug"))
	if slug == "" {
		return c.JSON(http.StatusBadRequest, map[string]any{"success": false, "error": "Slug is required"})
	}

	ctx := c.Request().Context()
	post, err := a.Catalog.PostBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, ErrPostNotFound) {
			return c.JSON(http.StatusNotFound, map[string]any{"success": false, "error": "Post not found"})
		}
		logFailure(c, "post lookup failed", err)
		return c.JSON(http.StatusInternalServerError, map[string]any{
			"success": false,
			"error":   publicError(err, "Failed to fetch blog post"),
		})
	}

	related := []content.Post{}
	if all, err := a.Catalog.AllPosts(ctx); err == nil {
		related = RelatedPosts(post, all, relatedPostsLimit)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"post":    post,
		"related": related,
		"success": true,
	})
}

// galleryView applies the selected, category and limit query parameters.
// An unparsable or non-positive limit is ignored.
func galleryView(c echo.Context, images []content.GalleryImage) []content.GalleryImage {
	if parseBool(c.QueryParam("selected")) {
		images = content.Curated(images)
	}
	images = content.FilterCategory(images, strings.TrimSpace(c.QueryParam("category")))
	if n, err := strconv.Atoi(strings.TrimSpace(c.QueryParam("limit"))); err == nil && n > 0 && n < len(images) {
		images = images[:n]
	}
	if images == nil {
		images = []content.GalleryImage{}
	}
	return images
}

func (a *App) handleGallery(c echo.Context) error {
	c.Response().Header().Set("Cache-Control", "no-store, max-age=0")

	images, err := a.Catalog.GalleryImagesFresh(c.Request().Context())
	if err != nil {
		logFailure(c, "gallery query failed", err)
		return c.JSON(http.StatusInternalServerError, map[string]any{
			"success": false,
			"error":   publicError(err, "Failed to fetch gallery images"),
		})
	}
	images = galleryView(c, images)
	return c.JSON(http.StatusOK, map[string]any{
		"success": true,
		"total":   len(images),
		"images":  images,
	})
}

// handlePortfolio serves the cached gallery view used by rendered pages.
func (a *App) handlePortfolio(c echo.Context) error {
	images, err := a.Catalog.GalleryImages(c.Request().Context())
	if err != nil {
		logFailure(c, "portfolio query failed", err)
		return c.JSON(http.StatusInternalServerError, map[string]any{
			"success": false,
			"error":   publicError(err, "Failed to fetch gallery images"),
		})
	}
	images = galleryView(c, images)
	c.Response().Header().Set("Cache-Control", "public, max-age=60, stale-while-revalidate=300")
	return c.JSON(http.StatusOK, map[string]any{
		"success": true,
		"total":   len(images),
		"images":  images,
	})
}

func (a *App) handleRevalidate(c echo.Context) error {
	if a.Config.RevalidateSecret != "" {
		ip := c.RealIP()
		if !a.revalidateLimiter.Check(ip) {
			return c.JSON(http.StatusTooManyRequests, map[string]any{"message": "Too many attempts"})
		}
		secret := c.QueryParam("secret")
		if subtle.ConstantTimeCompare([]byte(secret), []byte(a.Config.RevalidateSecret)) != 1 {
			a.revalidateLimiter.Record(ip)
			logger.WarnWithFields("revalidate rejected", logger.Fields{"remote_ip": ip})
			return c.JSON(http.StatusUnauthorized, map[string]any{"message": "Invalid secret"})
		}
	}

	ctx := c.Request().Context()
	now := time.Now().UnixMilli()
	fail := func(err error) error {
		logFailure(c, "revalidate failed", err)
		return c.JSON(http.StatusInternalServerError, map[string]any{
			"message": "Error revalidating",
			"error":   publicError(err, "Cache store error"),
		})
	}

	if tag := strings.TrimSpace(c.QueryParam("tag")); tag != "" {
		n, err := a.Catalog.InvalidateTag(ctx, tag)
		if err != nil {
			return fail(err)
		}
		return c.JSON(http.StatusOK, map[string]any{"revalidated": true, "tag": tag, "removed": n, "now": now})
	}
	if path := strings.TrimSpace(c.QueryParam("path")); path != "" {
		n, err := a.Catalog.InvalidatePath(ctx, path)
		if err != nil {
			return fail(err)
		}
		return c.JSON(http.StatusOK, map[string]any{"revalidated": true, "path": path, "removed": n, "now": now})
	}
	n, err := a.Catalog.InvalidateAll(ctx)
	if err != nil {
		return fail(err)
	}
	return c.JSON(http.StatusOK, map[string]any{"revalidated": true, "tags": AllTags, "removed": n, "now": now})
}

func (a *App) handleSitemap(c echo.Context) error {
	posts, err := a.Catalog.AllPosts(c.Request().Context())
	if err != nil {
		return err
	}
	return a.renderSitemap(c, posts)
}

func (a *App) handleFeed(c echo.Context) error {
	posts, err := a.Catalog.AllPosts(c.Request().Context())
	if err != nil {
		return err
	}
	return a.renderRSS(c, posts)
}

func (a *App) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status":  "ok",
		"version": Version,
		"cache":   a.Config.CacheDriver,
		"gallery": a.Config.GalleryDatabaseID != "",
	})
}
