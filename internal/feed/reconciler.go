package feed

import (
	"context"
	"log/slog"

	"mailtrack/internal/pubsub"
	"mailtrack/internal/table"
	"mailtrack/pkg/model"
)

// Reconciler merges push events into a collection without disturbing
// unrelated view state. Events are applied strictly in arrival order, one
// at a time, with no batching or coalescing. Apply is not goroutine-safe;
// the owning view serializes calls.
type Reconciler[R model.Record] struct {
	entityName string
	collection *table.Collection[R]

	// onChange runs after every applied mutation, once indices are
	// recomputed. The view uses it to recompute the visible page and
	// prune the selection.
	onChange func()
}

// NewReconciler creates a reconciler for one topic's entity.
func NewReconciler[R model.Record](entityName string, collection *table.Collection[R], onChange func()) *Reconciler[R] {
	if onChange == nil {
		onChange = func() {}
	}
	return &Reconciler[R]{
		entityName: entityName,
		collection: collection,
		onChange:   onChange,
	}
}

// HandleRaw decodes and applies one raw feed message. Malformed messages
// are dropped with a logged warning rather than surfaced as errors, so a
// bad event cannot take the engine down.
func (r *Reconciler[R]) HandleRaw(data []byte) {
	ev, err := DecodeEvent(data, r.entityName)
	if err != nil {
		slog.Warn("Dropping feed event", "entity", r.entityName, "error", err)
		return
	}
	r.Apply(ev)
}

// Apply merges one event into the collection.
//
// save: replace the existing record's fields in place, keeping its prior
// position; append when the identifier is unknown. delete: remove by
// identifier, no-op when absent. Both are idempotent and both finish with
// recomputed display indices.
func (r *Reconciler[R]) Apply(ev Event) {
	id := ev.Record.GetID()
	if id == "" {
		slog.Warn("Dropping feed event without identifier", "entity", r.entityName, "action", ev.Action)
		return
	}

	switch ev.Action {
	case ActionSave:
		rec, err := DecodeRecord[R](ev.Record)
		if err != nil {
			slog.Warn("Dropping undecodable feed record", "entity", r.entityName, "id", id, "error", err)
			return
		}
		r.collection.Upsert(rec)
	case ActionDelete:
		r.collection.Remove(id)
	default:
		slog.Warn("Dropping feed event with unknown action", "entity", r.entityName, "action", ev.Action)
		return
	}

	r.onChange()
}

// Pump feeds pubsub messages into a raw handler until the context is
// cancelled or the channel closes. Every message is acknowledged once
// handled; dropped events are acknowledged too, since redelivery cannot
// fix a malformed payload.
func Pump(ctx context.Context, msgs <-chan pubsub.Message, handle func([]byte)) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			handle(msg.Data())
			if err := msg.Ack(); err != nil {
				slog.Warn("Failed to ack feed message", "subject", msg.Subject(), "error", err)
			}
		}
	}
}
