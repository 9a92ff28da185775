// Package comments loads a symbol's discussion board and keeps it
// reconciled with asynchronously delivered realtime events.
//
// The board is two levels deep: top-level comments (newest first) and one
// level of replies (oldest first). Realtime insert/update events arrive with
// no ordering guarantee relative to fetches or to each other, so all merging
// is an idempotent, last-write-wins upsert over an id-keyed map.
package comments

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/rewired-gh/stockwatch/internal/models"
)

// Doer issues HTTP requests. *http.Client satisfies it; tests inject doubles.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client talks to the comment backend's REST surface.
type Client struct {
	baseURL string
	http    Doer
}

// NewClient creates a comment backend client.
func NewClient(baseURL string, doer Doer) *Client {
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: doer}
}

// TopLevel fetches up to limit top-level comments for a symbol, newest first.
func (c *Client) TopLevel(ctx context.Context, symbol string, limit int) ([]models.CommentRecord, error) {
	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("parent", "null")
	q.Set("order", "created_at.desc")
	q.Set("limit", strconv.Itoa(limit))

	return c.list(ctx, q)
}

// Replies fetches all replies whose parent is in the given id set, oldest
// first. An empty parent set short-circuits to an empty result.
func (c *Client) Replies(ctx context.Context, symbol string, parentIDs []string) ([]models.CommentRecord, error) {
	if len(parentIDs) == 0 {
		return nil, nil
	}

	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("parents", strings.Join(parentIDs, ","))
	q.Set("order", "created_at.asc")

	return c.list(ctx, q)
}

func (c *Client) list(ctx context.Context, q url.Values) ([]models.CommentRecord, error) {
	endpoint := fmt.Sprintf("%s/comments?%s", c.baseURL, q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build comment request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("comment request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("comment request returned status %d", resp.StatusCode)
	}

	var records []models.CommentRecord
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		return nil, fmt.Errorf("failed to decode comment list: %w", err)
	}
	return records, nil
}

// Create submits a new comment. The client generates the record id, so the
// server echo over the realtime channel deduplicates against the optimistic
// local insert.
func (c *Client) Create(ctx context.Context, record models.CommentRecord) error {
	body, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to encode comment: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/comments", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build comment request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.expectOK(req)
}

// Patch shallow-updates the given fields on a comment.
func (c *Client) Patch(ctx context.Context, id string, fields map[string]interface{}) error {
	body, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("failed to encode comment patch: %w", err)
	}

	endpoint := fmt.Sprintf("%s/comments/%s", c.baseURL, url.PathEscape(id))
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build comment request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.expectOK(req)
}

func (c *Client) expectOK(req *http.Request) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("comment request failed: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("comment request returned status %d", resp.StatusCode)
	}
	return nil
}
