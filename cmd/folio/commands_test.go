package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/alecthomas/kong"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	postsDB   = "posts-db"
	galleryDB = "gallery-db"
)

func rich(s string) string {
	return `{"type":"rich_text","rich_text":[{"type":"text","plain_text":"` + s + `"}]}`
}

func title(s string) string {
	return `{"type":"title","title":[{"type":"text","plain_text":"` + s + `"}]}`
}

var workspacePages = map[string]string{
	postsDB: `[
		{"object":"page","id":"p1","created_time":"2024-03-01T00:00:00.000Z","properties":{
			"Title":` + title("Hello") + `,"Slug":` + rich("hello-world") + `,"Content":` + rich("Hi there.") + `}},
		{"object":"page","id":"p2","created_time":"2024-02-01T00:00:00.000Z","properties":{
			"Title":` + title("Fallback") + `,"Slug":` + rich("???") + `,"slug":` + rich("valid-slug") + `}},
		{"object":"page","id":"p3","created_time":"2024-01-01T00:00:00.000Z","properties":{
			"Title":` + title("No Slug") + `}}
	]`,
	galleryDB: `[
		{"object":"page","id":"g1","created_time":"2024-01-01T00:00:00.000Z","properties":{
			"Name":` + title("Harbor") + `,"Image":{"type":"url","url":"https://cdn.example.com/harbor.jpg"}}}
	]`,
}

// workspace serves the query and block endpoints the commands use.
type workspace struct {
	mu      sync.Mutex
	queries map[string]int
}

func (w *workspace) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	rw.Header().Set("Content-Type", "application/json")
	if r.Header.Get("Authorization") != "Bearer cli-token" {
		rw.WriteHeader(http.StatusUnauthorized)
		_, _ = rw.Write([]byte(`{"object":"error","status":401,"code":"unauthorized","message":"API token is invalid."}`))
		return
	}
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	switch {
	case len(parts) == 3 && parts[0] == "databases" && parts[2] == "query":
		w.mu.Lock()
		w.queries[parts[1]]++
		w.mu.Unlock()
		results, ok := workspacePages[parts[1]]
		if !ok {
			rw.WriteHeader(http.StatusNotFound)
			_, _ = rw.Write([]byte(`{"object":"error","status":404,"code":"object_not_found","message":"Could not find database."}`))
			return
		}
		_, _ = rw.Write([]byte(`{"object":"list","has_more":false,"next_cursor":null,"results":` + results + `}`))
	case len(parts) == 3 && parts[0] == "blocks" && parts[2] == "children":
		_, _ = rw.Write([]byte(`{"object":"list","has_more":false,"next_cursor":null,"results":[
			{"object":"block","id":"b1","type":"paragraph","paragraph":{"rich_text":[{"type":"text","plain_text":"Body from blocks."}]}}]}`))
	default:
		http.NotFound(rw, r)
	}
}

func (w *workspace) queryCount(db string) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.queries[db]
}

// setup starts a fake workspace and writes a config file pointing at it.
func setup(t *testing.T, extra string) (*workspace, string) {
	t.Helper()
	for _, key := range []string{
		"NOTION_TOKEN", "NOTION_DATABASE_ID", "NOTION_POSTS_DATABASE_ID", "NOTION_GALLERY_DATABASE_ID",
		"CACHE_DRIVER", "CACHE_PATH", "CACHE_TTL", "LOG_LEVEL",
	} {
		t.Setenv(key, "")
	}
	ws := &workspace{queries: map[string]int{}}
	srv := httptest.NewServer(ws)
	t.Cleanup(srv.Close)

	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := "notion_token: cli-token\n" +
		"posts_database_id: " + postsDB + "\n" +
		"gallery_database_id: " + galleryDB + "\n" +
		"notion_base_url: " + srv.URL + "\n" +
		"upstream_retries: -1\n" +
		"posts_sort_property: \"-\"\n" +
		"gallery_sort_property: \"-\"\n" + extra
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o644))
	return ws, path
}

// run parses args like main does and returns what the command printed.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var cli CLI
	var out bytes.Buffer
	parser, err := kong.New(&cli,
		kong.Name("folio"),
		kong.Vars{"version": "folio test"},
		kong.BindTo(&out, (*io.Writer)(nil)),
	)
	require.NoError(t, err)
	ctx, err := parser.Parse(args)
	require.NoError(t, err)
	err = ctx.Run(&cli)
	return out.String(), err
}

func TestCheckSlugsReport(t *testing.T) {
	ws, path := setup(t, "")

	out, err := run(t, "--config", path, "--log-level", "error", "check-slugs")
	require.NoError(t, err)

	var report struct {
		TotalPosts int `json:"totalPosts"`
		Posts      []struct {
			ID         string   `json:"id"`
			Title      string   `json:"title"`
			RawSlug    string   `json:"rawSlug"`
			Slug       string   `json:"slug"`
			Included   bool     `json:"included"`
			Reason     string   `json:"reason"`
			Candidates []string `json:"slugProperties"`
			Properties []string `json:"properties"`
		} `json:"posts"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &report), out)
	assert.Equal(t, 3, report.TotalPosts)
	require.Len(t, report.Posts, 3)

	first := report.Posts[0]
	assert.Equal(t, "p1", first.ID)
	assert.Equal(t, "Hello", first.Title)
	assert.Equal(t, "hello-world", first.RawSlug)
	assert.Equal(t, "hello-world", first.Slug)
	assert.True(t, first.Included)
	assert.Empty(t, first.Reason)
	assert.Equal(t, []string{"Slug"}, first.Candidates)
	assert.Equal(t, []string{"Content", "Slug", "Title"}, first.Properties)

	second := report.Posts[1]
	assert.Equal(t, "???", second.RawSlug)
	assert.Equal(t, "valid-slug", second.Slug)
	assert.True(t, second.Included)
	assert.Equal(t, []string{"Slug", "slug"}, second.Candidates)

	third := report.Posts[2]
	assert.False(t, third.Included)
	assert.Empty(t, third.Slug)
	assert.Contains(t, third.Reason, "no slug")
	assert.Empty(t, third.Candidates)

	assert.Equal(t, 1, ws.queryCount(postsDB))
}

func TestCommandsPrintJSON(t *testing.T) {
	tests := []struct {
		name  string
		args  []string
		check func(t *testing.T, body map[string]any)
	}{
		{"posts", []string{"posts"}, func(t *testing.T, body map[string]any) {
			assert.EqualValues(t, 2, body["total"])
			assert.Len(t, body["posts"], 2)
		}},
		{"posts limited", []string{"posts", "-n", "1"}, func(t *testing.T, body map[string]any) {
			assert.EqualValues(t, 2, body["total"])
			assert.Len(t, body["posts"], 1)
		}},
		{"post", []string{"post", "Hello-World"}, func(t *testing.T, body map[string]any) {
			assert.Equal(t, "hello-world", body["slug"])
			assert.Equal(t, "Body from blocks.", body["content"])
		}},
		{"gallery", []string{"gallery", "--selected"}, func(t *testing.T, body map[string]any) {
			assert.EqualValues(t, 1, body["total"])
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, path := setup(t, "")
			out, err := run(t, append([]string{"--config", path, "--log-level", "error"}, tt.args...)...)
			require.NoError(t, err)
			var body map[string]any
			require.NoError(t, json.Unmarshal([]byte(out), &body), out)
			tt.check(t, body)
		})
	}
}

func TestPostCommandUnknownSlug(t *testing.T) {
	_, path := setup(t, "")
	out, err := run(t, "--config", path, "--log-level", "error", "post", "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"missing"`)
	assert.Empty(t, out)
}

func TestWarmFillsPersistentCache(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "cache.db")
	ws, path := setup(t, "cache_driver: sqlite\ncache_path: "+dbPath+"\n")

	_, err := run(t, "--config", path, "--log-level", "error", "warm")
	require.NoError(t, err)
	assert.Equal(t, 1, ws.queryCount(postsDB))
	assert.Equal(t, 1, ws.queryCount(galleryDB))

	out, err := run(t, "--config", path, "--log-level", "error", "posts")
	require.NoError(t, err)
	assert.Contains(t, out, `"hello-world"`)
	assert.Equal(t, 1, ws.queryCount(postsDB))
}

func TestCommandsRejectMissingCredentials(t *testing.T) {
	_, path := setup(t, "")
	require.NoError(t, os.WriteFile(path, []byte("posts_database_id: "+postsDB+"\n"), 0o644))

	_, err := run(t, "--config", path, "--log-level", "error", "check-slugs")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NOTION_TOKEN")
}
