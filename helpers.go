package folio

import (
	"net/url"
	"path"
	"strconv"
	"strings"

	"github.com/eringen/folio/apperr"
	"github.com/eringen/folio/content"
)

// BuildURL joins a base URL with path segments. A trailing slash is not
// added.
func BuildURL(base string, pathSegments ...string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	u.Path = path.Join(u.Path, path.Join(pathSegments...))
	if u.Path == "" || u.Path == "." {
		u.Path = "/"
	}
	return u.String()
}

// FilterEmpty removes empty/whitespace-only strings from a slice.
func FilterEmpty(vals []string) []string {
	var out []string
	for _, v := range vals {
		if s := strings.TrimSpace(v); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// RelatedPosts returns up to max posts sharing current's category.
func RelatedPosts(current content.Post, posts []content.Post, max int) []content.Post {
	category := strings.ToLower(strings.TrimSpace(current.Category))
	related := []content.Post{}
	if category == "" {
		return related
	}
	for _, p := range posts {
		if len(related) >= max {
			break
		}
		if p.Slug == current.Slug {
			continue
		}
		if strings.ToLower(strings.TrimSpace(p.Category)) == category {
			related = append(related, p)
		}
	}
	return related
}

var errInvalidLimit = apperr.New(apperr.KindValidation, "Invalid limit parameter. Must be a positive integer.")

// parseLimit parses an optional positive limit. Zero means no limit.
func parseLimit(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, errInvalidLimit
	}
	return n, nil
}

// parseBool accepts 1, true, yes and on, case-insensitively.
func parseBool(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

// downloadName returns a safe attachment file name ending in ext.
func downloadName(raw, ext string) string {
	name := strings.TrimSpace(raw)
	name = strings.TrimSuffix(name, path.Ext(name))
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ' || r == '.':
			b.WriteByte('-')
		}
	}
	name = strings.Trim(b.String(), "-")
	if name == "" {
		name = "photo"
	}
	if ext == "" {
		ext = ".jpg"
	}
	return name + ext
}
