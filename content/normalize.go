package content

import (
	"fmt"
	"math"
	"net/url"
	"path"
	"strings"

	"github.com/eringen/folio/apperr"
	"github.com/eringen/folio/logger"
	"github.com/eringen/folio/notion"
)

var (
	ErrMissingSlug   = apperr.New(apperr.KindValidation, "record has no slug")
	ErrMissingTitle  = apperr.New(apperr.KindValidation, "record has no title")
	ErrUnpublished   = apperr.New(apperr.KindValidation, "record is not published")
	ErrMissingSource = apperr.New(apperr.KindValidation, "record has no usable image source")
)

// Normalizer maps workspace records to the content model.
type Normalizer struct {
	schema Schema
}

// NewNormalizer returns a Normalizer for schema. Empty schema fields use
// DefaultSchema.
func NewNormalizer(schema Schema) *Normalizer {
	return &Normalizer{schema: schema.Merge(DefaultSchema())}
}

// NormalizePost maps one record to a Post.
func (n *Normalizer) NormalizePost(page notion.Page) (Post, error) {
	s := n.schema.Post
	ps := page.Properties

	if published, ok := s.Published.Bool(ps); ok && !published {
		return Post{}, ErrUnpublished
	}
	if status, ok := s.Status.Text(ps); ok && strings.EqualFold(status, "draft") {
		return Post{}, ErrUnpublished
	}

	var slug string
	for _, raw := range s.Slug.Texts(ps) {
		if slug = Slugify(lastSegment(raw)); slug != "" {
			break
		}
	}
	if slug == "" {
		return Post{}, ErrMissingSlug
	}
	title, ok := s.Title.Text(ps)
	if !ok {
		return Post{}, ErrMissingTitle
	}

	body, _ := s.Content.Text(ps)
	post := Post{
		ID:      page.ID,
		Slug:    slug,
		Title:   title,
		Content: body,
	}
	if ex, ok := s.Excerpt.Text(ps); ok {
		post.Excerpt = ex
	} else {
		post.Excerpt = Excerpt(body)
	}
	post.ReadingTime = ReadingTime(body)
	if rt, ok := s.ReadTime.Text(ps); ok {
		post.ReadTime = rt
	} else {
		post.ReadTime = readTimeLabel(post.ReadingTime)
	}

	if t, ok := s.Date.Time(ps); ok {
		post.Date = t.Format(DateLayout)
	} else if !page.CreatedTime.IsZero() {
		post.Date = page.CreatedTime.Format(DateLayout)
	}
	post.Category, _ = s.Category.Text(ps)
	post.Featured, _ = s.Featured.Bool(ps)
	post.Author, _ = s.Author.Text(ps)
	post.AuthorTitle, _ = s.AuthorTitle.Text(ps)
	if img, ok := s.Image.URL(ps); ok {
		post.Image = img
	} else if page.Cover != nil {
		post.Image = page.Cover.URL()
	}
	return post, nil
}

// NormalizePosts maps records in order, dropping records that fail
// normalization and later records repeating an earlier slug.
func (n *Normalizer) NormalizePosts(pages []notion.Page) []Post {
	posts := make([]Post, 0, len(pages))
	seen := make(map[string]struct{}, len(pages))
	for _, page := range pages {
		p, err := n.NormalizePost(page)
		if err != nil {
			logger.DebugWithFields("post record skipped", logger.Fields{"id": page.ID, "reason": err.Error()})
			continue
		}
		if _, dup := seen[p.Slug]; dup {
			logger.WarnWithFields("duplicate post slug skipped", logger.Fields{"id": page.ID, "slug": p.Slug})
			continue
		}
		seen[p.Slug] = struct{}{}
		posts = append(posts, p)
	}
	return posts
}

// WithBody returns post with its content replaced by body. A derived
// excerpt and reading time are recomputed; explicit ones are kept.
func WithBody(post Post, body string) Post {
	body = strings.TrimSpace(body)
	if body == "" {
		return post
	}
	derivedExcerpt := post.Excerpt == Excerpt(post.Content)
	derivedReadTime := post.ReadTime == readTimeLabel(post.ReadingTime)

	post.Content = body
	post.ReadingTime = ReadingTime(body)
	if derivedExcerpt {
		post.Excerpt = Excerpt(body)
	}
	if derivedReadTime {
		post.ReadTime = readTimeLabel(post.ReadingTime)
	}
	return post
}

func readTimeLabel(minutes int) string {
	return fmt.Sprintf("%d min read", minutes)
}

// lastSegment returns the final path segment of an absolute URL or path,
// or s unchanged.
func lastSegment(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "/") && !strings.HasPrefix(s, "http://") && !strings.HasPrefix(s, "https://") {
		return s
	}
	if u, err := url.Parse(s); err == nil && u.Path != "" {
		s = u.Path
	}
	s = strings.TrimRight(s, "/")
	if s == "" {
		return ""
	}
	return path.Base(s)
}

// NormalizeGalleryImage maps one record to a GalleryImage.
func (n *Normalizer) NormalizeGalleryImage(page notion.Page) (GalleryImage, error) {
	s := n.schema.Gallery
	ps := page.Properties

	raw, _ := s.Src.URL(ps)
	if !usableURL(raw) {
		return GalleryImage{}, ErrMissingSource
	}

	img := GalleryImage{ID: page.ID}
	img.Name, _ = s.Name.Text(ps)
	if img.Name == "" {
		img.Name = "Untitled"
	}
	img.Alt, _ = s.Alt.Text(ps)
	if img.Alt == "" {
		img.Alt = img.Name
	}

	img.Src, img.SrcFull, img.SrcOriginal = Variants(raw)
	if u, ok := s.SrcFull.URL(ps); ok && usableURL(u) {
		img.SrcFull = u
	}
	if u, ok := s.SrcOriginal.URL(ps); ok && usableURL(u) {
		img.SrcOriginal = u
	}

	if w, ok := s.Width.Number(ps); ok && w > 0 {
		img.Width = int(math.Round(w))
	}
	if h, ok := s.Height.Number(ps); ok && h > 0 {
		img.Height = int(math.Round(h))
	}
	img.Category, _ = s.Category.Text(ps)
	img.Selected, _ = s.Selected.Bool(ps)
	img.Place, _ = s.Place.Text(ps)
	if t, ok := s.Date.Time(ps); ok {
		img.Date = t.Format(DateLayout)
	} else if !page.CreatedTime.IsZero() {
		img.Date = page.CreatedTime.Format(DateLayout)
	}
	return img, nil
}

// NormalizeGallery maps records in order, dropping unusable ones.
func (n *Normalizer) NormalizeGallery(pages []notion.Page) []GalleryImage {
	images := make([]GalleryImage, 0, len(pages))
	for _, page := range pages {
		img, err := n.NormalizeGalleryImage(page)
		if err != nil {
			logger.DebugWithFields("gallery record skipped", logger.Fields{"id": page.ID, "reason": err.Error()})
			continue
		}
		images = append(images, img)
	}
	return images
}

func usableURL(s string) bool {
	if s == "" {
		return false
	}
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func equalFold(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
