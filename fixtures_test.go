package folio

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/eringen/folio/apperr"
	"github.com/eringen/folio/notion"
)

const (
	testPostsDB   = "posts-db"
	testGalleryDB = "gallery-db"
)

func runs(s string) []notion.RichText {
	return []notion.RichText{{Type: "text", PlainText: s}}
}

func titleProp(s string) notion.Property { return notion.Property{Type: "title", Title: runs(s)} }
func textProp(s string) notion.Property { return notion.Property{Type: "rich_text", RichText: runs(s)} }
func dateProp(s string) notion.Property {
	return notion.Property{Type: "date", Date: &notion.DateValue{Start: s}}
}
func boolProp(b bool) notion.Property { return notion.Property{Type: "checkbox", Checkbox: &b} }
func urlProp(s string) notion.Property { return notion.Property{Type: "url", URL: &s} }
func selectProp(s string) notion.Property { return notion.Property{Type: "select", Select: &notion.SelectOption{Name: s}} }
func numberProp(f float64) notion.Property { return notion.Property{Type: "number", Number: &f} }

type postFixture struct {
	id, slug, title, date, category, content, image string
	draft                                           bool
}

func postPage(f postFixture) notion.Page {
	props := notion.Properties{
		"Title": titleProp(f.title),
		"Date":  dateProp(f.date),
	}
	if f.slug != "" {
		props["Slug"] = textProp(f.slug)
	}
	if f.category != "" {
		props["Category"] = selectProp(f.category)
	}
	if f.content != "" {
		props["Content"] = textProp(f.content)
	}
	if f.image != "" {
		props["Image"] = urlProp(f.image)
	}
	if f.draft {
		props["Published"] = boolProp(false)
	}
	return notion.Page{
		Object:      "page",
		ID:          f.id,
		CreatedTime: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Properties:  props,
	}
}

type imageFixture struct {
	id, name, src, category string
	selected                bool
}

func imagePage(f imageFixture) notion.Page {
	props := notion.Properties{
		"Name":     titleProp(f.name),
		"Image":    urlProp(f.src),
		"Selected": boolProp(f.selected),
		"Width":    numberProp(1200),
		"Height":   numberProp(800),
	}
	if f.category != "" {
		props["Category"] = selectProp(f.category)
	}
	return notion.Page{
		Object:      "page",
		ID:          f.id,
		CreatedTime: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
		Properties:  props,
	}
}

func paragraph(s string) notion.Block {
	return notion.Block{ID: "b-" + s, Type: "paragraph", Paragraph: &notion.TextBlock{RichText: runs(s)}}
}

// signedURL returns a workspace-hosted file URL issued at issued and valid
// for ttl.
func signedURL(name string, issued time.Time, ttl time.Duration) string {
	q := url.Values{}
	q.Set("X-Amz-Algorithm", "AWS4-HMAC-SHA256")
	q.Set("X-Amz-Date", issued.UTC().Format("20060102T150405Z"))
	q.Set("X-Amz-Expires", fmt.Sprint(int(ttl.Seconds())))
	q.Set("X-Amz-Signature", "deadbeef")
	return "https://prod-files-secure.s3.us-west-2.amazonaws.com/ws/" + name + "?" + q.Encode()
}

func defaultPosts() []notion.Page {
	return []notion.Page{
		postPage(postFixture{id: "p3", slug: "third-post", title: "Third Post", date: "2024-03-10", category: "Go", content: "Third body."}),
		postPage(postFixture{id: "p2", slug: "second-post", title: "Second Post", date: "2024-02-10", category: "Go", content: "Second body."}),
		postPage(postFixture{id: "p1", slug: "first-post", title: "First Post", date: "2024-01-10", category: "Life", content: "First body."}),
		postPage(postFixture{id: "p0", title: "No Slug", date: "2024-01-05"}),
		postPage(postFixture{id: "px", slug: "draft-post", title: "Draft", date: "2024-03-12", draft: true}),
	}
}

func defaultGallery() []notion.Page {
	return []notion.Page{
		imagePage(imageFixture{id: "g1", name: "Harbor", src: "https://cdn.example.com/harbor.jpg", category: "Travel", selected: true}),
		imagePage(imageFixture{id: "g2", name: "Forest", src: "https://cdn.example.com/forest.jpg", category: "Nature"}),
		imagePage(imageFixture{id: "g3", name: "Street", src: "https://cdn.example.com/street.jpg", category: "Travel"}),
	}
}

// fakeSource is an in-process Source.
type fakeSource struct {
	mu       sync.Mutex
	pages    map[string][]notion.Page
	blocks   map[string][]notion.Block
	queryErr error
	blockErr error
	queries  map[string]int
	bodies   int
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		pages: map[string][]notion.Page{
			testPostsDB:   defaultPosts(),
			testGalleryDB: defaultGallery(),
		},
		blocks:  map[string][]notion.Block{},
		queries: map[string]int{},
	}
}

func (f *fakeSource) QueryDatabase(_ context.Context, databaseID string, _ notion.Query) ([]notion.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries[databaseID]++
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	if databaseID == "" {
		return nil, notion.ErrMissingDatabase
	}
	return append([]notion.Page(nil), f.pages[databaseID]...), nil
}

func (f *fakeSource) BlockChildren(_ context.Context, blockID string) ([]notion.Block, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bodies++
	if f.blockErr != nil {
		return nil, f.blockErr
	}
	return f.blocks[blockID], nil
}

func (f *fakeSource) setPages(db string, pages []notion.Page) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pages[db] = pages
}

func (f *fakeSource) setBlocks(pageID string, blocks ...notion.Block) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.blocks[pageID] = blocks
}

func (f *fakeSource) setBlockErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.blockErr = err
}

func (f *fakeSource) queryCount(db string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.queries[db]
}

// fakeWorkspace serves a fakeSource over the workspace REST API.
type fakeWorkspace struct {
	*fakeSource
	status int // non-zero fails every call with this status
}

func (w *fakeWorkspace) failWith(status int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.status = status
}

func newFakeWorkspace(t *testing.T) (*fakeWorkspace, *httptest.Server) {
	t.Helper()
	ws := &fakeWorkspace{fakeSource: newFakeSource()}
	srv := httptest.NewServer(ws)
	t.Cleanup(srv.Close)
	return ws, srv
}

func (w *fakeWorkspace) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Authorization") != "Bearer test-token" {
		writeAPIError(rw, http.StatusUnauthorized, "unauthorized", "API token is invalid.")
		return
	}
	w.mu.Lock()
	status := w.status
	w.mu.Unlock()
	if status != 0 {
		writeAPIError(rw, status, "internal_server_error", "Something went wrong.")
		return
	}
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	switch {
	case len(parts) == 3 && parts[0] == "databases" && parts[2] == "query" && r.Method == http.MethodPost:
		pages, err := w.QueryDatabase(r.Context(), parts[1], notion.Query{})
		if err != nil || pages == nil {
			writeAPIError(rw, http.StatusNotFound, "object_not_found", "Could not find database.")
			return
		}
		writeJSON(rw, map[string]any{"object": "list", "results": pages, "has_more": false, "next_cursor": nil})
	case len(parts) == 3 && parts[0] == "blocks" && parts[2] == "children" && r.Method == http.MethodGet:
		blocks, err := w.BlockChildren(r.Context(), parts[1])
		if err != nil {
			writeAPIError(rw, apperrStatus(err), "internal_server_error", err.Error())
			return
		}
		if blocks == nil {
			blocks = []notion.Block{}
		}
		writeJSON(rw, map[string]any{"object": "list", "results": blocks, "has_more": false, "next_cursor": nil})
	default:
		writeAPIError(rw, http.StatusNotFound, "invalid_request_url", "Invalid request URL.")
	}
}

func apperrStatus(err error) int {
	if apperr.Is(err, apperr.KindNotFound) {
		return http.StatusNotFound
	}
	return http.StatusBadRequest
}

func writeJSON(rw http.ResponseWriter, v any) {
	rw.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(rw).Encode(v)
}

func writeAPIError(rw http.ResponseWriter, status int, code, msg string) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(status)
	_ = json.NewEncoder(rw).Encode(map[string]any{"object": "error", "status": status, "code": code, "message": msg})
}
