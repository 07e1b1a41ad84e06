package notify

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type EventKind string

const (
	EventTransactionCreated   EventKind = "transaction.created"
	EventTransactionCompleted EventKind = "transaction.completed"
	EventTransactionRejected  EventKind = "transaction.rejected"
	EventBalanceChanged       EventKind = "balance.changed"
)

// Event tells the listed users that something about a transaction changed.
// It carries no balances or statuses; subscribers re-read current state.
type Event struct {
	Kind          EventKind
	TransactionID uuid.UUID
	UserIDs       []uuid.UUID
	OccurredAt    time.Time
}

func NewEvent(kind EventKind, transactionID uuid.UUID, userIDs ...uuid.UUID) Event {
	return Event{
		Kind:          kind,
		TransactionID: transactionID,
		UserIDs:       userIDs,
		OccurredAt:    time.Now().UTC(),
	}
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Nop discards every event. Used when no broker is configured.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
