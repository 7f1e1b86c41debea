package folio

import (
	"encoding/xml"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/eringen/folio/content"
	"github.com/eringen/folio/logger"
)

const feedItemLimit = 50

type rssXML struct {
	XMLName      xml.Name   `xml:"rss"`
	Version      string     `xml:"version,attr"`
	XMLNSAtom    string     `xml:"xmlns:atom,attr"`
	XMLNSContent string     `xml:"xmlns:content,attr"`
	Channel      rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title         string    `xml:"title"`
	Link          string    `xml:"link"`
	Description   string    `xml:"description"`
	AtomLink      atomLink  `xml:"atom:link"`
	LastBuildDate string    `xml:"lastBuildDate,omitempty"`
	Items         []rssItem `xml:"item"`
}

type atomLink struct {
	Href string `xml:"href,attr"`
	Rel  string `xml:"rel,attr"`
	Type string `xml:"type,attr"`
}

type rssItem struct {
	Title       string  `xml:"title"`
	Link        string  `xml:"link"`
	Description string  `xml:"description"`
	Content     *cdata  `xml:"content:encoded,omitempty"`
	Category    string  `xml:"category,omitempty"`
	Author      string  `xml:"author,omitempty"`
	PubDate     string  `xml:"pubDate,omitempty"`
	GUID        rssGUID `xml:"guid"`
}

type rssGUID struct {
	Value       string `xml:",chardata"`
	IsPermaLink bool   `xml:"isPermaLink,attr"`
}

type cdata struct {
	Value string `xml:",cdata"`
}

// buildFeed returns the RSS document for posts. Posts without a slug are
// skipped.
func buildFeed(cfg SiteConfig, posts []content.Post) rssXML {
	base := cfg.URL
	items := make([]rssItem, 0, len(posts))
	var newest time.Time
	for _, p := range posts {
		if p.Slug == "" {
			continue
		}
		if len(items) == feedItemLimit {
			break
		}
		pubDate := ""
		if t := p.Published(); !t.IsZero() {
			pubDate = t.Format(time.RFC1123Z)
			if t.After(newest) {
				newest = t
			}
		}
		postURL := BuildURL(base, "blog", p.Slug)
		item := rssItem{
			Title:       p.Title,
			Link:        postURL,
			Description: p.Excerpt,
			Category:    p.Category,
			PubDate:     pubDate,
			GUID:        rssGUID{Value: postURL, IsPermaLink: true},
		}
		if p.Content != "" {
			html, err := content.RenderHTML(p.Content)
			if err != nil {
				logger.WarnWithFields("feed item content not rendered", logger.Fields{"slug": p.Slug, "error": err.Error()})
			} else {
				item.Content = &cdata{Value: absolutize(base, html)}
			}
		}
		items = append(items, item)
	}
	feed := rssXML{
		Version:      "2.0",
		XMLNSAtom:    "http://www.w3.org/2005/Atom",
		XMLNSContent: "http://purl.org/rss/1.0/modules/content/",
		Channel: rssChannel{
			Title:       cfg.Name,
			Link:        BuildURL(base),
			Description: cfg.Description,
			AtomLink:    atomLink{Href: BuildURL(base, "feed.xml"), Rel: "self", Type: "application/rss+xml"},
			Items:       items,
		},
	}
	if !newest.IsZero() {
		feed.Channel.LastBuildDate = newest.Format(time.RFC1123Z)
	}
	return feed
}

// absolutize makes root-relative src and href attributes absolute.
func absolutize(base, html string) string {
	base = strings.TrimRight(base, "/")
	html = strings.ReplaceAll(html, `src="/`, `src="`+base+`/`)
	return strings.ReplaceAll(html, `href="/`, `href="`+base+`/`)
}

func (a *App) renderRSS(c echo.Context, posts []content.Post) error {
	feed := buildFeed(a.Config, posts)
	c.Response().Header().Set(echo.HeaderContentType, "application/rss+xml; charset=utf-8")
	c.Response().WriteHeader(http.StatusOK)
	c.Response().Write([]byte(xml.Header))
	return xml.NewEncoder(c.Response()).Encode(feed)
}
