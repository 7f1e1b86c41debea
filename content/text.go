package content

import (
	"bytes"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	gmtext "github.com/yuin/goldmark/text"
	"golang.org/x/net/html"
)

const (
	// ExcerptLength bounds derived excerpts, ellipsis included.
	ExcerptLength = 200
	// WordsPerMinute is the reading speed used for reading time estimates.
	WordsPerMinute = 200

	ellipsis = "..."
)

var md = goldmark.New(goldmark.WithExtensions(extension.GFM))

// Slugify converts a title to a URL-safe slug.
func Slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	prev := false
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			prev = false
		default:
			if !prev && b.Len() > 0 {
				b.WriteByte('-')
				prev = true
			}
		}
	}
	return strings.TrimRight(b.String(), "-")
}

// PlainText renders Markdown source to whitespace-collapsed text. Images
// and code blocks are dropped.
func PlainText(source string) string {
	src := []byte(source)
	doc := md.Parser().Parse(gmtext.NewReader(src))

	var b strings.Builder
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		switch node := n.(type) {
		case *ast.Image, *ast.FencedCodeBlock, *ast.CodeBlock, *ast.HTMLBlock, *ast.RawHTML:
			return ast.WalkSkipChildren, nil
		case *ast.Text:
			if entering {
				b.Write(node.Segment.Value(src))
				if node.SoftLineBreak() || node.HardLineBreak() {
					b.WriteByte(' ')
				}
			}
		case *ast.String:
			if entering {
				b.Write(node.Value)
			}
		default:
			if !entering && n.Type() == ast.TypeBlock {
				b.WriteByte(' ')
			}
		}
		return ast.WalkContinue, nil
	})
	return strings.Join(strings.Fields(b.String()), " ")
}

// RenderHTML converts Markdown to HTML. Raw HTML in the source is escaped.
func RenderHTML(source string) (string, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(source), &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// StripTags removes HTML tags, keeping text content.
func StripTags(s string) string {
	if !strings.Contains(s, "<") {
		return s
	}
	z := html.NewTokenizer(strings.NewReader(s))
	var b strings.Builder
	for {
		switch z.Next() {
		case html.ErrorToken:
			return b.String()
		case html.TextToken:
			b.Write(z.Text())
		case html.StartTagToken, html.EndTagToken, html.SelfClosingTagToken:
			b.WriteByte(' ')
		}
	}
}

// WordCount counts whitespace separated words after stripping tags.
func WordCount(s string) int {
	return len(strings.Fields(StripTags(s)))
}

// ReadingTime estimates minutes to read s, rounded up, minimum 1.
func ReadingTime(s string) int {
	minutes := int(math.Ceil(float64(WordCount(s)) / WordsPerMinute))
	if minutes < 1 {
		return 1
	}
	return minutes
}

// Excerpt derives a summary of at most ExcerptLength runes from Markdown
// content, cutting at a word boundary and appending an ellipsis when
// truncated.
func Excerpt(content string) string {
	return Truncate(PlainText(content), ExcerptLength)
}

// Truncate shortens s to at most max runes including the ellipsis.
func Truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	limit := max - utf8.RuneCountInString(ellipsis)
	if limit <= 0 {
		return string([]rune(ellipsis)[:max])
	}
	cut := string([]rune(s)[:limit])
	if i := strings.LastIndexByte(cut, ' '); i > len(cut)/2 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " ,.;:-") + ellipsis
}
