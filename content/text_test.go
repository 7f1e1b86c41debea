package content

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Hello World", "hello-world"},
		{"  Trailing  ", "trailing"},
		{"Çafé & Crème!", "af-cr-me"},
		{"a--b", "a-b"},
		{"2024 in Review", "2024-in-review"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := Slugify(tt.in); got != tt.want {
			t.Errorf("Slugify(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPlainText(t *testing.T) {
	src := "# Title\n\nSome **bold** and [a link](https://x.io).\n\n![img](https://x.io/i.png)\n\n```\ncode()\n```\n\n- one\n- two"
	assert.Equal(t, "Title Some bold and a link. one two", PlainText(src))
}

func TestRenderHTML(t *testing.T) {
	out, err := RenderHTML("Hello **world**\n\n<script>alert(1)</script>")
	require.NoError(t, err)
	assert.Contains(t, out, "<strong>world</strong>")
	assert.NotContains(t, out, "<script>")
}

func TestStripTagsAndWordCount(t *testing.T) {
	assert.Equal(t, "plain", StripTags("plain"))
	assert.Equal(t, 3, WordCount("<p>one <b>two</b></p><p>three</p>"))
	assert.Equal(t, 0, WordCount(""))
}

func TestReadingTime(t *testing.T) {
	tests := []struct {
		words, want int
	}{
		{0, 1}, {1, 1}, {200, 1}, {201, 2}, {400, 2}, {401, 3},
	}
	for _, tt := range tests {
		s := strings.TrimSpace(strings.Repeat("w ", tt.words))
		if got := ReadingTime(s); got != tt.want {
			t.Errorf("ReadingTime(%d words) = %d, want %d", tt.words, got, tt.want)
		}
	}
}

func TestExcerpt(t *testing.T) {
	assert.Equal(t, "Short text", Excerpt("Short *text*"))

	long := strings.Repeat("lorem ipsum dolor ", 40)
	ex := Excerpt(long)
	assert.LessOrEqual(t, utf8.RuneCountInString(ex), ExcerptLength)
	assert.True(t, strings.HasSuffix(ex, "..."))
	assert.False(t, strings.HasSuffix(strings.TrimSuffix(ex, "..."), " "))

	multi := strings.Repeat("ü", 500)
	ex = Excerpt(multi)
	assert.Equal(t, ExcerptLength, utf8.RuneCountInString(ex))
}

func TestTruncateTinyBound(t *testing.T) {
	assert.Equal(t, "..", Truncate("abcdef", 2))
	assert.Equal(t, "ab", Truncate("ab", 2))
}

func TestVariantsNonCloudinary(t *testing.T) {
	src, full, orig := Variants("https://cdn.example.com/a.jpg")
	assert.Equal(t, "https://cdn.example.com/a.jpg", src)
	assert.Equal(t, src, full)
	assert.Equal(t, src, orig)
}

func TestVariantsCloudinaryWithoutVersion(t *testing.T) {
	src, _, orig := Variants("https://res.cloudinary.com/demo/image/upload/folder/pic.jpg")
	assert.Equal(t, "https://res.cloudinary.com/demo/image/upload/f_auto,q_auto,c_limit,w_1600/folder/pic.jpg", src)
	assert.Equal(t, "https://res.cloudinary.com/demo/image/upload/folder/pic.jpg", orig)
}
