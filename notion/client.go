// Package notion is a small read-only client for the Notion REST API and
// the property resolution helpers built on top of its value shapes.
package notion

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/eringen/folio/apperr"
	"github.com/eringen/folio/logger"
	"github.com/eringen/folio/metrics"
)

const (
	DefaultBaseURL  = "https://api.notion.com/v1"
	DefaultVersion  = "2022-06-28"
	DefaultPageSize = 100
	DefaultTimeout  = 10 * time.Second

	maxErrorBody = 64 << 10
)

// Config configures a Client. Only Token is required.
type Config struct {
	Token    string
	BaseURL  string
	Version  string
	Timeout  time.Duration // per attempt
	PageSize int
	Retry    RetryPolicy
}

func (c *Config) setDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if c.Version == "" {
		c.Version = DefaultVersion
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.PageSize <= 0 || c.PageSize > DefaultPageSize {
		c.PageSize = DefaultPageSize
	}
	if c.Retry.Initial <= 0 || c.Retry.Max <= 0 {
		c.Retry = DefaultRetryPolicy()
	}
}

// Client issues authenticated requests against the workspace API.
type Client struct {
	cfg  Config
	http *http.Client
	rec  metrics.Recorder
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithRecorder reports call durations and retries to r. A nil r is ignored.
func WithRecorder(r metrics.Recorder) Option {
	return func(c *Client) {
		if r != nil {
			c.rec = r
		}
	}
}

// ErrMissingToken is returned by New when no token is configured.
var ErrMissingToken = apperr.New(apperr.KindConfig, "content token is not configured")

// ErrMissingDatabase is returned when a query names no database.
var ErrMissingDatabase = apperr.New(apperr.KindConfig, "database id is not configured")

// New validates cfg and returns a Client.
func New(cfg Config, opts ...Option) (*Client, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, ErrMissingToken
	}
	cfg.setDefaults()
	c := &Client{
		cfg:  cfg,
		http: &http.Client{},
		rec:  metrics.NoopRecorder{},
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// Sort orders a database query by a property or a record timestamp.
type Sort struct {
	Property  string `json:"property,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	Direction string `json:"direction"`
}

// Query is the body of a database query. Filter is passed through as-is.
type Query struct {
	Filter any    `json:"filter,omitempty"`
	Sorts  []Sort `json:"sorts,omitempty"`
}

type queryBody struct {
	Query
	StartCursor string `json:"start_cursor,omitempty"`
	PageSize    int    `json:"page_size,omitempty"`
}

type pageList struct {
	Results    []Page  `json:"results"`
	HasMore    bool    `json:"has_more"`
	NextCursor *string `json:"next_cursor"`
}

// QueryDatabase returns every record of the database matching q, following
// pagination. Archived and trashed records are skipped.
func (c *Client) QueryDatabase(ctx context.Context, databaseID string, q Query) ([]Page, error) {
	databaseID = strings.TrimSpace(databaseID)
	if databaseID == "" {
		return nil, ErrMissingDatabase
	}
	path := "/databases/" + url.PathEscape(databaseID) + "/query"

	var pages []Page
	cursor := ""
	for {
		var list pageList
		body := queryBody{Query: q, StartCursor: cursor, PageSize: c.cfg.PageSize}
		if err := c.do(ctx, "query_database", http.MethodPost, path, nil, body, &list); err != nil {
			return nil, err
		}
		for _, p := range list.Results {
			if p.Archived || p.InTrash {
				continue
			}
			pages = append(pages, p)
		}
		if !list.HasMore || list.NextCursor == nil || *list.NextCursor == "" {
			break
		}
		cursor = *list.NextCursor
	}
	return pages, nil
}

// RetrievePage fetches one record by id.
func (c *Client) RetrievePage(ctx context.Context, pageID string) (Page, error) {
	var p Page
	pageID = strings.TrimSpace(pageID)
	if pageID == "" {
		return p, apperr.New(apperr.KindValidation, "page id is required")
	}
	err := c.do(ctx, "retrieve_page", http.MethodGet, "/pages/"+url.PathEscape(pageID), nil, nil, &p)
	return p, err
}

type blockList struct {
	Results    []Block `json:"results"`
	HasMore    bool    `json:"has_more"`
	NextCursor *string `json:"next_cursor"`
}

// maxBlockDepth bounds recursion into nested blocks.
const maxBlockDepth = 3

// BlockChildren returns the content blocks of a page, with nested children
// loaded up to a small depth.
func (c *Client) BlockChildren(ctx context.Context, blockID string) ([]Block, error) {
	return c.blockChildren(ctx, strings.TrimSpace(blockID), 0)
}

func (c *Client) blockChildren(ctx context.Context, blockID string, depth int) ([]Block, error) {
	if blockID == "" {
		return nil, apperr.New(apperr.KindValidation, "block id is required")
	}
	path := "/blocks/" + url.PathEscape(blockID) + "/children"

	var blocks []Block
	cursor := ""
	for {
		q := url.Values{}
		q.Set("page_size", fmt.Sprint(c.cfg.PageSize))
		if cursor != "" {
			q.Set("start_cursor", cursor)
		}
		var list blockList
		if err := c.do(ctx, "block_children", http.MethodGet, path, q, nil, &list); err != nil {
			return nil, err
		}
		blocks = append(blocks, list.Results...)
		if !list.HasMore || list.NextCursor == nil || *list.NextCursor == "" {
			break
		}
		cursor = *list.NextCursor
	}

	if depth+1 >= maxBlockDepth {
		return blocks, nil
	}
	for i := range blocks {
		if !blocks[i].HasChildren || blocks[i].Type == "child_page" || blocks[i].Type == "child_database" {
			continue
		}
		children, err := c.blockChildren(ctx, blocks[i].ID, depth+1)
		if err != nil {
			return nil, err
		}
		blocks[i].Children = children
	}
	return blocks, nil
}

// apiError is the workspace API's error body.
type apiError struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// do runs one logical call with retries. out is decoded from a 2xx body.
func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, body, out any) error {
	var payload []byte
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return apperr.Wrap(err, apperr.KindInternal, "encoding request body")
		}
		payload = b
	}
	endpoint := c.cfg.BaseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	start := time.Now()
	for attempt := 0; ; attempt++ {
		wait, err := c.attempt(ctx, method, endpoint, payload, out)
		if err == nil {
			c.rec.ObserveUpstream(op, time.Since(start), "ok")
			return nil
		}
		if !apperr.IsRetryable(err) || attempt >= c.cfg.Retry.MaxRetries || ctx.Err() != nil {
			c.rec.ObserveUpstream(op, time.Since(start), string(apperr.KindOf(err)))
			return err
		}

		delay := c.cfg.Retry.Delay(attempt + 1)
		if wait > 0 {
			delay = wait
		}
		c.rec.IncUpstreamRetry(op)
		logger.WarnWithFields("upstream call failed, retrying", logger.Fields{
			"operation": op,
			"attempt":   attempt + 1,
			"delay_ms":  delay.Milliseconds(),
			"error":     err.Error(),
		})

		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			c.rec.ObserveUpstream(op, time.Since(start), string(apperr.KindNetwork))
			return apperr.Wrap(ctx.Err(), apperr.KindNetwork, "request cancelled")
		case <-t.C:
		}
	}
}

// attempt performs a single HTTP exchange bounded by the per-attempt
// timeout. The returned duration is the server's Retry-After hint.
func (c *Client) attempt(ctx context.Context, method, endpoint string, payload []byte, out any) (time.Duration, error) {
	actx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	var rdr io.Reader
	if payload != nil {
		rdr = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(actx, method, endpoint, rdr)
	if err != nil {
		return 0, apperr.Wrap(err, apperr.KindInternal, "building request")
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	req.Header.Set("Notion-Version", c.cfg.Version)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		e := apperr.Wrap(err, apperr.KindNetwork, "content service unreachable")
		if ctx.Err() == nil {
			// Parent still alive: the attempt timed out or the transport failed.
			e.AsRetryable()
		}
		return 0, e
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		var ae apiError
		_ = json.Unmarshal(raw, &ae)
		wait, _ := retryAfter(resp.Header, time.Now(), c.cfg.Retry.Max)
		return wait, classify(resp.StatusCode, ae)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return 0, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return 0, apperr.Wrap(err, apperr.KindNetwork, "reading response").AsRetryable()
		}
		return 0, apperr.Wrap(err, apperr.KindUpstream, "decoding response")
	}
	return 0, nil
}

// classify maps a non-2xx response to an adapter error.
func classify(status int, ae apiError) *apperr.Error {
	msg := ae.Message
	if msg == "" {
		msg = http.StatusText(status)
	}
	if ae.Code != "" {
		msg = ae.Code + ": " + msg
	}
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return apperr.New(apperr.KindAuth, msg).WithStatus(status)
	case status == http.StatusNotFound:
		return apperr.New(apperr.KindNotFound, msg).WithStatus(status)
	case status == http.StatusTooManyRequests || status == http.StatusConflict || status >= 500:
		return apperr.New(apperr.KindUpstream, msg).WithStatus(status).AsRetryable()
	default:
		return apperr.New(apperr.KindUpstream, msg).WithStatus(status)
	}
}
