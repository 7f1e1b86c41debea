// Package content normalizes workspace records into the site's Post and
// GalleryImage model.
package content

import (
	"time"

	"github.com/eringen/folio/notion"
)

// DateLayout is the layout of Post.Date and GalleryImage.Date.
const DateLayout = "2006-01-02"

// Post is a normalized blog entry.
type Post struct {
	ID          string `json:"id"`
	Slug        string `json:"slug"`
	Title       string `json:"title"`
	Excerpt     string `json:"excerpt"`
	Content     string `json:"content"`
	Date        string `json:"date"`
	Category    string `json:"category,omitempty"`
	ReadingTime int    `json:"readingTime"`
	ReadTime    string `json:"readTime"`
	Image       string `json:"image,omitempty"`
	Featured    bool   `json:"featured"`
	Author      string `json:"author,omitempty"`
	AuthorTitle string `json:"authorTitle,omitempty"`
}

// Published returns the post date, or the zero time when unset.
func (p Post) Published() time.Time {
	t, _ := notion.ParseDate(p.Date)
	return t
}

// GalleryImage is a normalized gallery entry.
type GalleryImage struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Alt         string `json:"alt"`
	Src         string `json:"src"`
	SrcFull     string `json:"srcFull"`
	SrcOriginal string `json:"srcOriginal"`
	Width       int    `json:"width,omitempty"`
	Height      int    `json:"height,omitempty"`
	Category    string `json:"category,omitempty"`
	Selected    bool   `json:"selected"`
	Place       string `json:"place,omitempty"`
	Date        string `json:"date,omitempty"`
}

// Curated returns the selected images, or all images when none is selected.
func Curated(images []GalleryImage) []GalleryImage {
	var out []GalleryImage
	for _, img := range images {
		if img.Selected {
			out = append(out, img)
		}
	}
	if len(out) == 0 {
		return images
	}
	return out
}

// FilterCategory keeps images whose category matches, case-insensitively.
// An empty category keeps everything.
func FilterCategory(images []GalleryImage, category string) []GalleryImage {
	if category == "" {
		return images
	}
	var out []GalleryImage
	for _, img := range images {
		if equalFold(img.Category, category) {
			out = append(out, img)
		}
	}
	return out
}
