package comments

import (
	"encoding/json"
	"fmt"

	"github.com/rewired-gh/stockwatch/internal/logger"
	"github.com/rewired-gh/stockwatch/internal/models"
)

// EventType labels a realtime comment event.
type EventType string

const (
	EventInsert EventType = "insert"
	EventUpdate EventType = "update"
)

// Event is one realtime message from the comment backend's push channel.
// Record is the typed view of the payload; Fields records which keys the
// payload actually carried so updates can be shallow-merged.
type Event struct {
	Type   EventType
	Record models.CommentRecord
	Fields map[string]json.RawMessage
}

// ParseEvent decodes a push-channel frame.
func ParseEvent(data []byte) (Event, error) {
	var envelope struct {
		Type   EventType       `json:"type"`
		Record json.RawMessage `json:"record"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return Event{}, fmt.Errorf("failed to decode realtime event: %w", err)
	}
	if envelope.Type != EventInsert && envelope.Type != EventUpdate {
		return Event{}, fmt.Errorf("unknown realtime event type %q", envelope.Type)
	}

	ev := Event{Type: envelope.Type}
	if err := json.Unmarshal(envelope.Record, &ev.Record); err != nil {
		return Event{}, fmt.Errorf("failed to decode realtime record: %w", err)
	}
	if err := json.Unmarshal(envelope.Record, &ev.Fields); err != nil {
		return Event{}, fmt.Errorf("failed to decode realtime record fields: %w", err)
	}
	if ev.Record.ID == "" {
		return Event{}, fmt.Errorf("realtime record missing id")
	}
	return ev, nil
}

// orphanBufferCap bounds how many parentless replies are held while waiting
// for their parent to be observed. The oldest orphan is evicted first.
const orphanBufferCap = 64

// orphanBuffer holds reply records that arrived before their parent.
type orphanBuffer struct {
	records []models.CommentRecord // arrival order
}

func (b *orphanBuffer) add(rec models.CommentRecord) {
	// Re-buffering the same reply replaces the older copy.
	for i := range b.records {
		if b.records[i].ID == rec.ID {
			b.records[i] = rec
			return
		}
	}
	if len(b.records) >= orphanBufferCap {
		b.records = b.records[1:]
	}
	b.records = append(b.records, rec)
}

// take removes and returns all buffered replies waiting on the given parent,
// preserving arrival order.
func (b *orphanBuffer) take(parentID string) []models.CommentRecord {
	var taken []models.CommentRecord
	kept := b.records[:0]
	for _, rec := range b.records {
		if rec.ParentID != nil && *rec.ParentID == parentID {
			taken = append(taken, rec)
		} else {
			kept = append(kept, rec)
		}
	}
	b.records = kept
	return taken
}

// Apply merges one realtime event into the view. Merging is idempotent and
// last-write-wins per record id, so fetch results and push events may
// interleave in any order.
func (s *Store) Apply(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch ev.Type {
	case EventInsert:
		s.upsertLocked(ev.Record)
	case EventUpdate:
		s.mergeLocked(ev)
	}
}

// upsertLocked inserts a record, deduplicating by id. A record that already
// exists (the author's optimistic insert followed by the server echo, or a
// replayed event) keeps exactly one copy: the newer revision.
func (s *Store) upsertLocked(rec models.CommentRecord) {
	if existing, ok := s.byID[rec.ID]; ok {
		if rec.NewerThan(existing) {
			*existing = rec
		}
		return
	}

	if rec.IsReply() {
		parent := *rec.ParentID
		if _, ok := s.byID[parent]; !ok {
			// Parent not observed yet; hold the reply instead of dropping it.
			s.orphans.add(rec)
			logger.Debug("buffered orphan reply %s waiting for parent %s", rec.ID, parent)
			return
		}
		stored := rec
		s.byID[rec.ID] = &stored
		s.replies[parent] = append(s.replies[parent], rec.ID)
	} else {
		stored := rec
		s.byID[rec.ID] = &stored
		s.topLevel = append([]string{rec.ID}, s.topLevel...)
	}

	// A newly observed record may be the parent some buffered replies wait on.
	for _, orphan := range s.orphans.take(rec.ID) {
		s.upsertLocked(orphan)
	}
}

// mergeLocked shallow-merges an update event into the matching record.
// Unknown ids are ignored; stale revisions are dropped.
func (s *Store) mergeLocked(ev Event) {
	existing, ok := s.byID[ev.Record.ID]
	if !ok {
		logger.Debug("dropping update for unknown comment %s", ev.Record.ID)
		return
	}

	// Last-write-wins: an event carrying revision info must be newer than
	// what we hold. Events without any revision info win by arrival order.
	hasRevision := ev.Record.Version != 0 || !ev.Record.UpdatedAt.IsZero()
	if hasRevision && !ev.Record.NewerThan(existing) {
		logger.Debug("dropping stale update for comment %s", ev.Record.ID)
		return
	}

	// Only the fields the payload actually carried are merged.
	for field := range ev.Fields {
		switch field {
		case "text":
			existing.Text = ev.Record.Text
		case "sentiment":
			existing.Sentiment = ev.Record.Sentiment
		case "upvotes":
			existing.Upvotes = ev.Record.Upvotes
		case "downvotes":
			existing.Downvotes = ev.Record.Downvotes
		case "reported_at":
			existing.ReportedAt = ev.Record.ReportedAt
		case "reported_by":
			existing.ReportedBy = ev.Record.ReportedBy
		case "user_id":
			existing.UserID = ev.Record.UserID
		case "updated_at":
			existing.UpdatedAt = ev.Record.UpdatedAt
		case "version":
			existing.Version = ev.Record.Version
		}
	}
}
