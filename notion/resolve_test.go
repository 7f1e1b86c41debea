package notion

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleProps = `{
	"Name":      {"type":"title","title":[{"plain_text":"Hello "},{"plain_text":"World"}]},
	"Slug":      {"type":"rich_text","rich_text":[]},
	"slug":      {"type":"rich_text","rich_text":[{"plain_text":"hello-world"}]},
	"Category":  {"type":"select","select":{"name":"Travel"}},
	"Tags":      {"type":"multi_select","multi_select":[{"name":"a"},{"name":"b"}]},
	"Published": {"type":"checkbox","checkbox":true},
	"Legacy":    {"text":"yes"},
	"Width":     {"type":"number","number":1600},
	"Height":    {"type":"rich_text","rich_text":[{"plain_text":"900"}]},
	"Date":      {"type":"date","date":{"start":"2024-03-05"}},
	"Created":   {"type":"created_time","created_time":"2024-01-02T10:00:00.000Z"},
	"Image":     {"type":"files","files":[{"type":"external","external":{"url":"https://cdn.example.com/a.jpg"}},{"type":"file","file":{"url":"https://file.notion.so/b.jpg"}}]},
	"Link":      {"type":"url","url":"https://example.com/x"},
	"Author":    {"type":"people","people":[{"name":"Ada"}]},
	"Score":     {"type":"formula","formula":{"type":"number","number":4.5}}
}`

func props(t *testing.T) Properties {
	t.Helper()
	var ps Properties
	require.NoError(t, json.Unmarshal([]byte(sampleProps), &ps))
	return ps
}

func TestFieldText(t *testing.T) {
	ps := props(t)

	s, ok := Field{"Title", "Name"}.Text(ps)
	assert.True(t, ok)
	assert.Equal(t, "Hello World", s)

	// An empty higher-precedence property falls through.
	s, ok = Field{"Slug", "slug"}.Text(ps)
	assert.True(t, ok)
	assert.Equal(t, "hello-world", s)

	s, _ = Field{"Category"}.Text(ps)
	assert.Equal(t, "Travel", s)
	s, _ = Field{"Tags"}.Text(ps)
	assert.Equal(t, "a", s)
	s, _ = Field{"Author"}.Text(ps)
	assert.Equal(t, "Ada", s)
	s, _ = Field{"Score"}.Text(ps)
	assert.Equal(t, "4.5", s)

	s, ok = Field{"Missing", "Nope"}.Text(ps)
	assert.False(t, ok)
	assert.Empty(t, s)
}

func TestFieldExactNames(t *testing.T) {
	ps := props(t)
	_, ok := Field{"name", "NAME"}.Text(ps)
	assert.False(t, ok)
}

func TestFieldBool(t *testing.T) {
	ps := props(t)
	v, ok := Field{"Published"}.Bool(ps)
	assert.True(t, ok)
	assert.True(t, v)

	v, ok = Field{"Legacy"}.Bool(ps)
	assert.True(t, ok)
	assert.True(t, v)

	_, ok = Field{"Missing"}.Bool(ps)
	assert.False(t, ok)
}

func TestFieldNumber(t *testing.T) {
	ps := props(t)
	n, ok := Field{"Width"}.Number(ps)
	assert.True(t, ok)
	assert.Equal(t, 1600.0, n)

	n, ok = Field{"Height"}.Number(ps)
	assert.True(t, ok)
	assert.Equal(t, 900.0, n)

	_, ok = Field{"Name"}.Number(ps)
	assert.False(t, ok)
}

func TestFieldTime(t *testing.T) {
	ps := props(t)
	d, ok := Field{"Date", "Created"}.Time(ps)
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), d)

	d, ok = Field{"Published At", "Created"}.Time(ps)
	require.True(t, ok)
	assert.Equal(t, 2024, d.Year())
	assert.Equal(t, time.January, d.Month())
}

func TestFieldURLs(t *testing.T) {
	ps := props(t)
	us := Field{"Image"}.URLs(ps)
	assert.Equal(t, []string{"https://cdn.example.com/a.jpg", "https://file.notion.so/b.jpg"}, us)

	u, ok := Field{"Src", "Link"}.URL(ps)
	assert.True(t, ok)
	assert.Equal(t, "https://example.com/x", u)

	_, ok = Field{"Name"}.URL(ps)
	assert.False(t, ok)
}

func TestFieldTexts(t *testing.T) {
	ps := Properties{
		"Slug": {Type: "rich_text", RichText: []RichText{{PlainText: "???"}}},
		"slug": {Type: "rich_text", RichText: []RichText{{PlainText: "valid"}}},
		"URL":  {Type: "url"},
	}
	assert.Equal(t, []string{"???", "valid"}, Field{"Slug", "URL", "slug", "Missing"}.Texts(ps))
	assert.Nil(t, Field{"URL"}.Texts(ps))
}

func TestParseDate(t *testing.T) {
	for _, in := range []string{"2024-03-05", "2024-03-05T10:00:00Z", "2024-03-05T10:00:00.000+02:00"} {
		_, ok := ParseDate(in)
		assert.True(t, ok, in)
	}
	_, ok := ParseDate("March 5")
	assert.False(t, ok)
}
