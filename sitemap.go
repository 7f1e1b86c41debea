package folio

import (
	"encoding/xml"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/eringen/folio/content"
)

type sitemapURLSet struct {
	XMLName xml.Name     `xml:"urlset"`
	XMLNS   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

type sitemapURL struct {
	Loc        string `xml:"loc"`
	LastMod    string `xml:"lastmod,omitempty"`
	ChangeFreq string `xml:"changefreq,omitempty"`
	Priority   string `xml:"priority,omitempty"`
}

// buildSitemap lists the static pages followed by every post with a slug.
func buildSitemap(cfg SiteConfig, posts []content.Post) sitemapURLSet {
	base := cfg.URL
	urls := make([]sitemapURL, 0, len(cfg.StaticPages)+len(posts))
	for _, page := range cfg.StaticPages {
		u := sitemapURL{Loc: BuildURL(base, page), ChangeFreq: "weekly", Priority: "0.8"}
		if page == "/" {
			u.ChangeFreq, u.Priority = "daily", "1.0"
		}
		urls = append(urls, u)
	}
	for _, p := range posts {
		if p.Slug == "" {
			continue
		}
		urls = append(urls, sitemapURL{
			Loc:        BuildURL(base, "blog", p.Slug),
			LastMod:    p.Date,
			ChangeFreq: "monthly",
			Priority:   "0.6",
		})
	}
	return sitemapURLSet{
		XMLNS: "http://www.sitemaps.org/schemas/sitemap/0.9",
		URLs:  urls,
	}
}

func (a *App) renderSitemap(c echo.Context, posts []content.Post) error {
	sitemap := buildSitemap(a.Config, posts)
	c.Response().Header().Set(echo.HeaderContentType, "application/xml; charset=utf-8")
	c.Response().WriteHeader(http.StatusOK)
	c.Response().Write([]byte(xml.Header))
	return xml.NewEncoder(c.Response()).Encode(sitemap)
}
