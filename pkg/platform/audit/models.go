// Package audit records accident workflow events through a transactional
// outbox. Services append events inside the same transaction as the change
// they describe; the relay worker publishes committed rows.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"

	"amicable/pkg/domain"
)

// EventCategory classifies events by their primary purpose so consumers can
// apply different retention.
type EventCategory string

const (
	// CategoryCompliance covers events with legal significance for the claim:
	// what a driver declared and when the record became final.
	CategoryCompliance EventCategory = "compliance"

	// CategorySecurity covers changes to who may take part in an accident.
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers routine edits.
	CategoryOperations EventCategory = "operations"
)

type EventType string

const (
	EventAccidentCreated    EventType = "accident_created"
	EventCaseClosed         EventType = "case_closed"
	EventDriverAdmitted     EventType = "driver_admitted"
	EventDriverRemoved      EventType = "driver_removed"
	EventStatementSubmitted EventType = "statement_submitted"
	EventStatementUpdated   EventType = "statement_updated"
	EventStatementCompleted EventType = "statement_completed"
	EventSketchSaved        EventType = "sketch_saved"
	EventImageAdded         EventType = "image_added"
)

var eventCategories = map[EventType]EventCategory{
	EventAccidentCreated:    CategoryCompliance,
	EventStatementSubmitted: CategoryCompliance,
	EventStatementCompleted: CategoryCompliance,
	EventCaseClosed:         CategoryCompliance,

	EventDriverAdmitted: CategorySecurity,
	EventDriverRemoved:  CategorySecurity,

	EventStatementUpdated: CategoryOperations,
	EventSketchSaved:      CategoryOperations,
	EventImageAdded:       CategoryOperations,
}

// Category returns the EventCategory for this event type.
// Unknown types default to CategoryOperations.
func (e EventType) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// Event is emitted from the accident workflow. Zero ids are omitted from the
// published payload.
type Event struct {
	ID          uuid.UUID          `json:"id"`
	Type        EventType          `json:"type"`
	Category    EventCategory      `json:"category"`
	AccidentID  domain.AccidentID  `json:"accident_id"`
	ActorID     domain.UserID      `json:"actor_id,omitempty"`
	StatementID domain.StatementID `json:"statement_id,omitempty"`
	InviteID    domain.InviteID    `json:"invite_id,omitempty"`
	Detail      string             `json:"detail,omitempty"`
	RequestID   string             `json:"request_id,omitempty"`
	Timestamp   time.Time          `json:"timestamp"`
}

// Entry is one outbox row.
type Entry struct {
	ID            uuid.UUID
	AggregateType string
	AggregateID   string
	EventType     EventType
	Payload       []byte
	CreatedAt     time.Time
	PublishedAt   *time.Time
}

// Outbox is the write side used by services.
type Outbox interface {
	Append(ctx context.Context, event Event) error
}

// Store is the outbox as seen by the relay.
type Store interface {
	Outbox
	Pending(ctx context.Context, limit int) ([]Entry, error)
	MarkPublished(ctx context.Context, ids []uuid.UUID, at time.Time) error
}

// Prepare fills in the id, category and timestamp when unset.
func Prepare(event Event) Event {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	event.Category = event.Type.Category()
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	return event
}
