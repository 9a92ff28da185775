package models

import (
	"errors"
	"time"
)

// Sentiment is the bullish/bearish stance attached to a comment or vote.
type Sentiment string

const (
	SentimentBullish Sentiment = "bullish"
	SentimentBearish Sentiment = "bearish"
)

// Valid reports whether the sentiment is one of the two known values.
func (s Sentiment) Valid() bool {
	return s == SentimentBullish || s == SentimentBearish
}

// CommentRecord is one comment on a symbol's discussion board. A record with
// a non-nil ParentID is a reply; reply depth is capped at one level by
// convention (the backend does not enforce it structurally).
//
// Records are never hard-deleted by the client. Votes increment the counters,
// a report sets the ReportedAt/ReportedBy pair.
type CommentRecord struct {
	ID          string     `json:"id"`
	StockSymbol string     `json:"stock_symbol"`
	UserID      *string    `json:"user_id,omitempty"` // nil = anonymous
	Text        string     `json:"text"`
	Sentiment   Sentiment  `json:"sentiment"`
	Upvotes     int        `json:"upvotes"`
	Downvotes   int        `json:"downvotes"`
	ParentID    *string    `json:"parent_id,omitempty"`
	ReportedAt  *time.Time `json:"reported_at,omitempty"`
	ReportedBy  *string    `json:"reported_by,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`

	// Version is the backend's monotonic revision counter, used as the
	// last-write-wins tie-break when realtime events and fetches interleave.
	// Zero means the backend did not supply one; UpdatedAt is used instead.
	Version int64 `json:"version,omitempty"`
}

// IsReply reports whether the record references a parent comment.
func (c *CommentRecord) IsReply() bool {
	return c.ParentID != nil && *c.ParentID != ""
}

// NewerThan reports whether c carries a strictly newer revision than other.
// Version wins when both records carry one; otherwise UpdatedAt decides.
func (c *CommentRecord) NewerThan(other *CommentRecord) bool {
	if c.Version != 0 && other.Version != 0 {
		return c.Version > other.Version
	}
	return c.UpdatedAt.After(other.UpdatedAt)
}

// Validate checks that all comment fields are valid.
func (c *CommentRecord) Validate() error {
	if c.ID == "" {
		return errors.New("comment ID must not be empty")
	}
	if c.StockSymbol == "" {
		return errors.New("stock symbol must not be empty")
	}
	if !c.Sentiment.Valid() {
		return errors.New("sentiment must be bullish or bearish")
	}
	if c.Upvotes < 0 {
		return errors.New("upvotes must not be negative")
	}
	if c.Downvotes < 0 {
		return errors.New("downvotes must not be negative")
	}
	if c.ParentID != nil && *c.ParentID == "" {
		return errors.New("parent ID must not be empty when set")
	}
	if (c.ReportedAt == nil) != (c.ReportedBy == nil) {
		return errors.New("reported at and reported by must be set together")
	}
	return nil
}
