// Package events describes the domain events emitted after committed
// mutations and the publishers that carry them.
package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	WorkspaceDeleted Type = "workspace.deleted"
	CategoryAdded    Type = "category.added"
	CategoryDeleted  Type = "category.deleted"
	CategoryRenamed  Type = "category.renamed"
	LedgerAppended   Type = "ledger.appended"
	ReceiptIngested  Type = "receipt.ingested"
	ReceiptCorrected Type = "receipt.corrected"
	BudgetUpserted   Type = "budget.upserted"
)

// Event is the message published after a mutation commits. Consumers
// re-read state from storage; the event only names what changed.
type Event struct {
	ID          string    `json:"id"`
	Type        Type      `json:"type"`
	WorkspaceID string    `json:"workspace_id"`
	ReceiptID   string    `json:"receipt_id,omitempty"`
	CategoryID  *int64    `json:"category_id,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}

func New(t Type, workspaceID string) Event {
	return Event{
		ID:          uuid.NewString(),
		Type:        t,
		WorkspaceID: workspaceID,
		OccurredAt:  time.Now().UTC(),
	}
}

func (e Event) WithReceipt(id string) Event {
	e.ReceiptID = id
	return e
}

func (e Event) WithCategory(id int64) Event {
	e.CategoryID = &id
	return e
}

func (e Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

func FromJSON(data []byte) (Event, error) {
	var e Event
	err := json.Unmarshal(data, &e)
	return e, err
}

// Publisher delivers events to a broker.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// Emit publishes e on p. A nil publisher skips the event and failures are
// only logged: the mutation that produced e is already committed.
func Emit(ctx context.Context, p Publisher, e Event) {
	if p == nil {
		slog.DebugContext(ctx, "Event publisher not configured, skipping event", "type", e.Type)
		return
	}
	if err := p.Publish(ctx, e); err != nil {
		slog.ErrorContext(ctx, "Failed to publish event",
			"type", e.Type,
			"event_id", e.ID,
			"workspace_id", e.WorkspaceID,
			"error", err)
	}
}

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
	Err    error
}

func (r *Recorder) Publish(_ context.Context, e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.events = append(r.events, e)
	return nil
}

func (r *Recorder) Close() error { return nil }

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Types returns the recorded event types in publish order.
func (r *Recorder) Types() []Type {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Type, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}
