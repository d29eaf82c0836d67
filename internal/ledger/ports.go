package ledger

import (
	"context"
	"time"

	"fintrack/internal/core"
)

// Repository persists the whole dataset at once. Save receives a complete
// snapshot and must replace what was stored atomically.
type Repository interface {
	Load(ctx context.Context) (map[string]core.User, error)
	Save(ctx context.Context, users map[string]core.User) error
}

// EventType names a committed ledger mutation.
type EventType string

const (
	RecordAdded   EventType = "record_added"
	RecordDeleted EventType = "record_deleted"
)

// Event describes a mutation after it has been persisted.
type Event struct {
	Type   EventType
	UserID string
	Kind   core.Kind
	Record core.Record
	At     time.Time
}

// Notifier receives committed mutations, e.g. to publish them on a broker.
type Notifier interface {
	Notify(ctx context.Context, e Event) error
}

// Recorder receives store metrics.
type Recorder interface {
	LedgerMutation(kind core.Kind, op string)
	PersistenceFailure()
}
