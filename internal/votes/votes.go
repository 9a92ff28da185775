// Package votes maintains the tug-of-war sentiment vote for a symbol: each
// user holds at most one bullish/bearish choice, and the backend aggregates
// choices into bull/bear counts.
//
// The aggregate is always server-authoritative. After a successful write the
// caller's own vote is set optimistically, but the percentages are re-fetched
// rather than recomputed locally.
package votes

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
	"sync"

	"github.com/rewired-gh/stockwatch/internal/identity"
	"github.com/rewired-gh/stockwatch/internal/logger"
	"github.com/rewired-gh/stockwatch/internal/models"
)

// ErrIdentityRequired is returned when an anonymous session tries to vote.
var ErrIdentityRequired = errors.New("voting requires a signed-in user")

// Doer issues HTTP requests. *http.Client satisfies it; tests inject doubles.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client talks to the vote backend.
type Client struct {
	baseURL string
	http    Doer
}

// NewClient creates a vote backend client.
func NewClient(baseURL string, doer Doer) *Client {
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: doer}
}

// Aggregate reads the current bull/bear counts for a symbol and derives the
// percentages locally from them.
func (c *Client) Aggregate(ctx context.Context, symbol string) (models.VoteAggregate, error) {
	endpoint := fmt.Sprintf("%s/votes/%s/aggregate", c.baseURL, url.PathEscape(symbol))

	var agg models.VoteAggregate
	if err := c.getJSON(ctx, endpoint, &agg); err != nil {
		return models.VoteAggregate{}, err
	}
	if agg.Symbol == "" {
		agg.Symbol = symbol
	}
	agg.ComputePercentages()
	return agg, nil
}

// MyVote reads the caller's current choice for a symbol, nil when the user
// has not voted or is browsing anonymously.
func (c *Client) MyVote(ctx context.Context, symbol, userID string) (*models.Sentiment, error) {
	endpoint := fmt.Sprintf("%s/votes/%s/users/%s", c.baseURL, url.PathEscape(symbol), url.PathEscape(userID))

	var payload struct {
		Sentiment *models.Sentiment `json:"sentiment"`
	}
	if err := c.getJSON(ctx, endpoint, &payload); err != nil {
		return nil, err
	}
	if payload.Sentiment != nil && !payload.Sentiment.Valid() {
		return nil, fmt.Errorf("backend returned unknown sentiment %q", *payload.Sentiment)
	}
	return payload.Sentiment, nil
}

// SetVote writes the caller's choice, replacing any previous one.
func (c *Client) SetVote(ctx context.Context, symbol, userID string, choice models.Sentiment) error {
	endpoint := fmt.Sprintf("%s/votes/%s/users/%s", c.baseURL, url.PathEscape(symbol), url.PathEscape(userID))

	body, err := json.Marshal(map[string]models.Sentiment{"sentiment": choice})
	if err != nil {
		return fmt.Errorf("failed to encode vote: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build vote request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("vote request failed: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("vote request returned status %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to build vote request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("vote request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("vote request returned status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode vote response: %w", err)
	}
	return nil
}

// Aggregator exposes one symbol's current vote state and applies the
// caller's vote. Like the comment store it is owned by the view displaying
// the symbol.
type Aggregator struct {
	client   *Client
	resolver identity.Resolver
	symbol   string

	mu    sync.RWMutex
	state models.StockVoteState
}

// NewAggregator creates an aggregator for one symbol with an empty state
// (50/50, no own vote).
func NewAggregator(client *Client, resolver identity.Resolver, symbol string) *Aggregator {
	state := models.StockVoteState{Aggregate: models.VoteAggregate{Symbol: symbol}}
	state.Aggregate.ComputePercentages()
	return &Aggregator{client: client, resolver: resolver, symbol: symbol, state: state}
}

// Refresh reads the aggregate and, for signed-in users, the own vote.
func (a *Aggregator) Refresh(ctx context.Context) error {
	agg, err := a.client.Aggregate(ctx, a.symbol)
	if err != nil {
		return fmt.Errorf("failed to refresh vote aggregate for %s: %w", a.symbol, err)
	}

	var myVote *models.Sentiment
	if userID := a.resolver.CurrentUserID(); userID != nil {
		myVote, err = a.client.MyVote(ctx, a.symbol, *userID)
		if err != nil {
			// The aggregate is still usable without the own-vote marker.
			logger.Debug("failed to read own vote for %s: %v", a.symbol, err)
			myVote = nil
		}
	}

	a.mu.Lock()
	a.state = models.StockVoteState{Aggregate: agg, MyVote: myVote}
	a.mu.Unlock()
	return nil
}

// State returns a copy of the current vote state.
func (a *Aggregator) State() models.StockVoteState {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.state
}

// Vote submits the caller's choice. Only after the backend accepts the write
// is the own-vote marker set; the aggregate is then re-fetched so the
// percentages always reflect the server's counts.
func (a *Aggregator) Vote(ctx context.Context, choice models.Sentiment) error {
	if !choice.Valid() {
		return fmt.Errorf("invalid sentiment %q", choice)
	}
	userID := a.resolver.CurrentUserID()
	if userID == nil {
		return ErrIdentityRequired
	}

	if err := a.client.SetVote(ctx, a.symbol, *userID, choice); err != nil {
		return fmt.Errorf("failed to submit vote for %s: %w", a.symbol, err)
	}

	a.mu.Lock()
	vote := choice
	a.state.MyVote = &vote
	a.mu.Unlock()

	if err := a.Refresh(ctx); err != nil {
		// The write succeeded; a failed re-fetch leaves the previous
		// aggregate in place until the next refresh.
		logger.Debug("vote aggregate re-fetch failed for %s: %v", a.symbol, err)
	}
	return nil
}
