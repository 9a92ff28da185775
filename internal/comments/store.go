package comments

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rewired-gh/stockwatch/internal/identity"
	"github.com/rewired-gh/stockwatch/internal/models"
)

// ErrIdentityRequired is returned by actions that need a signed-in user.
var ErrIdentityRequired = errors.New("action requires a signed-in user")

// ErrUnknownComment is returned when a mutation targets an id that is not in
// the local view.
var ErrUnknownComment = errors.New("comment not found in local state")

// Thread is one top-level comment with its replies, oldest reply first.
type Thread struct {
	Comment models.CommentRecord   `json:"comment"`
	Replies []models.CommentRecord `json:"replies"`
}

// Store holds the in-memory merged comment view for exactly one symbol. It
// is owned by the view currently displaying that symbol; there is no
// cross-symbol sharing.
//
// All state transitions — the initial load, realtime events, and optimistic
// mutations — funnel into the same id-keyed upsert, so interleavings of
// fetch results and push events converge to the same view.
type Store struct {
	client   *Client
	resolver identity.Resolver
	symbol   string
	limit    int

	mu       sync.RWMutex
	byID     map[string]*models.CommentRecord
	topLevel []string            // ids, newest first
	replies  map[string][]string // parent id -> reply ids, oldest first
	orphans  orphanBuffer
}

// NewStore creates an empty store for one symbol.
func NewStore(client *Client, resolver identity.Resolver, symbol string, limit int) *Store {
	if limit < 1 {
		limit = 50
	}
	return &Store{
		client:   client,
		resolver: resolver,
		symbol:   symbol,
		limit:    limit,
		byID:     make(map[string]*models.CommentRecord),
		replies:  make(map[string][]string),
	}
}

// Symbol returns the symbol this store is scoped to.
func (s *Store) Symbol() string {
	return s.symbol
}

// Load fetches the top-level page and its replies and rebuilds the view.
// Realtime events that arrived before Load completes are reconciled by the
// merge engine's upsert semantics rather than lost: records already present
// keep whichever revision is newer.
func (s *Store) Load(ctx context.Context) error {
	topLevel, err := s.client.TopLevel(ctx, s.symbol, s.limit)
	if err != nil {
		return fmt.Errorf("failed to load comments for %s: %w", s.symbol, err)
	}

	parentIDs := make([]string, 0, len(topLevel))
	for _, rec := range topLevel {
		parentIDs = append(parentIDs, rec.ID)
	}

	replies, err := s.client.Replies(ctx, s.symbol, parentIDs)
	if err != nil {
		return fmt.Errorf("failed to load replies for %s: %w", s.symbol, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Upsert rather than replace: events that raced the fetch stay merged.
	pageIDs := make(map[string]bool, len(topLevel))
	for i := range topLevel {
		s.upsertLocked(topLevel[i])
		pageIDs[topLevel[i].ID] = true
	}
	for i := range replies {
		s.upsertLocked(replies[i])
	}

	// The backend page is authoritative about top-level order (newest
	// first); records that arrived via the push channel before the fetch
	// completed stay ahead of the page.
	ahead := make([]string, 0, len(s.topLevel))
	for _, id := range s.topLevel {
		if !pageIDs[id] {
			ahead = append(ahead, id)
		}
	}
	s.topLevel = append(ahead, parentIDs...)

	return nil
}

// Threads returns a copy of the current merged view.
func (s *Store) Threads() []Thread {
	s.mu.RLock()
	defer s.mu.RUnlock()

	threads := make([]Thread, 0, len(s.topLevel))
	for _, id := range s.topLevel {
		rec, ok := s.byID[id]
		if !ok {
			continue
		}
		thread := Thread{Comment: *rec}
		for _, replyID := range s.replies[id] {
			if reply, ok := s.byID[replyID]; ok {
				thread.Replies = append(thread.Replies, *reply)
			}
		}
		threads = append(threads, thread)
	}
	return threads
}

// Get returns a copy of one record.
func (s *Store) Get(id string) (models.CommentRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.byID[id]
	if !ok {
		return models.CommentRecord{}, false
	}
	return *rec, true
}

// Post submits a new comment or reply. The record is inserted optimistically
// with a client-generated id; if the backend rejects it, the insert is
// rolled back and the error returned. The server's realtime echo carries the
// same id and deduplicates against the optimistic copy.
func (s *Store) Post(ctx context.Context, text string, sentiment models.Sentiment, parentID *string) (models.CommentRecord, error) {
	if !sentiment.Valid() {
		return models.CommentRecord{}, fmt.Errorf("invalid sentiment %q", sentiment)
	}

	now := time.Now().UTC()
	record := models.CommentRecord{
		ID:          uuid.New().String(),
		StockSymbol: s.symbol,
		UserID:      s.resolver.CurrentUserID(),
		Text:        text,
		Sentiment:   sentiment,
		ParentID:    parentID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := record.Validate(); err != nil {
		return models.CommentRecord{}, err
	}

	s.mu.Lock()
	s.upsertLocked(record)
	s.mu.Unlock()

	if err := s.client.Create(ctx, record); err != nil {
		s.mu.Lock()
		s.removeLocked(record.ID)
		s.mu.Unlock()
		return models.CommentRecord{}, fmt.Errorf("failed to post comment: %w", err)
	}

	return record, nil
}

// Upvote increments a comment's upvote counter optimistically and patches
// the backend. On failure the local increment is reverted unless an
// authoritative update already replaced it.
func (s *Store) Upvote(ctx context.Context, id string) error {
	return s.bumpCounter(ctx, id, "upvotes",
		func(r *models.CommentRecord) *int { return &r.Upvotes })
}

// Downvote is the downvote counterpart of Upvote.
func (s *Store) Downvote(ctx context.Context, id string) error {
	return s.bumpCounter(ctx, id, "downvotes",
		func(r *models.CommentRecord) *int { return &r.Downvotes })
}

// bumpCounter performs the optimistic read-increment-patch cycle. The
// increment is a plain read-modify-write over the locally known value: it is
// not atomic relative to other clients, and the backend's realtime update
// carrying the authoritative count is expected to overwrite it.
func (s *Store) bumpCounter(ctx context.Context, id, field string, counter func(*models.CommentRecord) *int) error {
	s.mu.Lock()
	rec, ok := s.byID[id]
	if !ok {
		s.mu.Unlock()
		return ErrUnknownComment
	}
	before := *counter(rec)
	*counter(rec) = before + 1
	s.mu.Unlock()

	err := s.client.Patch(ctx, id, map[string]interface{}{field: before + 1})
	if err == nil {
		return nil
	}

	// Revert, but only if nothing authoritative landed in the meantime.
	s.mu.Lock()
	if rec, ok := s.byID[id]; ok && *counter(rec) == before+1 {
		*counter(rec) = before
	}
	s.mu.Unlock()
	return fmt.Errorf("failed to patch %s: %w", field, err)
}

// Report flags a comment. Reporting requires a signed-in user so the
// reported-by field can be populated; the optimistic flag is reverted if the
// backend rejects the patch.
func (s *Store) Report(ctx context.Context, id string) error {
	userID := s.resolver.CurrentUserID()
	if userID == nil {
		return ErrIdentityRequired
	}

	now := time.Now().UTC()

	s.mu.Lock()
	rec, ok := s.byID[id]
	if !ok {
		s.mu.Unlock()
		return ErrUnknownComment
	}
	prevAt, prevBy := rec.ReportedAt, rec.ReportedBy
	rec.ReportedAt, rec.ReportedBy = &now, userID
	s.mu.Unlock()

	err := s.client.Patch(ctx, id, map[string]interface{}{
		"reported_at": now,
		"reported_by": *userID,
	})
	if err == nil {
		return nil
	}

	s.mu.Lock()
	if rec, ok := s.byID[id]; ok && rec.ReportedAt == &now {
		rec.ReportedAt, rec.ReportedBy = prevAt, prevBy
	}
	s.mu.Unlock()
	return fmt.Errorf("failed to report comment: %w", err)
}

// removeLocked drops a record and its position entries. Used only to roll
// back failed optimistic inserts.
func (s *Store) removeLocked(id string) {
	rec, ok := s.byID[id]
	if !ok {
		return
	}
	delete(s.byID, id)

	if rec.IsReply() {
		parent := *rec.ParentID
		s.replies[parent] = removeID(s.replies[parent], id)
		return
	}
	s.topLevel = removeID(s.topLevel, id)
}

func removeID(ids []string, id string) []string {
	out := ids[:0]
	for _, candidate := range ids {
		if candidate != id {
			out = append(out, candidate)
		}
	}
	return out
}
