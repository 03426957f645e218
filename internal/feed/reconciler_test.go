package feed

import (
	"context"
	"testing"
	"time"

	"mailtrack/internal/pubsub"
	"mailtrack/internal/pubsub/memory"
	"mailtrack/internal/table"
	"mailtrack/pkg/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMailReconciler(t *testing.T) (*Reconciler[model.MailItem], *table.Collection[model.MailItem], *int) {
	t.Helper()
	coll := table.NewCollection[model.MailItem]()
	changes := 0
	r := NewReconciler("mailItem", coll, func() { changes++ })
	return r, coll, &changes
}

func saveEvent(id, status string) Event {
	return Event{Action: ActionSave, Record: model.Document{"id": id, "status": status}}
}

func TestReconciler_SaveAppendsUnknown(t *testing.T) {
	r, coll, changes := newMailReconciler(t)

	r.Apply(saveEvent("M1", "pending"))

	require.Equal(t, 1, coll.Len())
	rec, ok := coll.Get("M1")
	require.True(t, ok)
	assert.Equal(t, model.StatusPending, rec.Status())
	assert.Equal(t, 1, *changes)
}

func TestReconciler_SaveReplacesInPlace(t *testing.T) {
	r, coll, _ := newMailReconciler(t)
	coll.Load([]model.MailItem{
		{Identifier: "M1", ItemStatus: "pending"},
		{Identifier: "M2", ItemStatus: "pending", Sender: "Alice"},
		{Identifier: "M3", ItemStatus: "pending"},
	})

	r.Apply(Event{Action: ActionSave, Record: model.Document{"id": "M2", "status": "claimed"}})

	rows := coll.Rows()
	require.Equal(t, 3, len(rows))
	// M2 stays in the middle, all incoming field values adopted
	assert.Equal(t, "M2", rows[1].Record.ID())
	assert.Equal(t, "claimed", rows[1].Record.ItemStatus)
	assert.Equal(t, "", rows[1].Record.Sender) // replaced, not merged
	for i, row := range rows {
		assert.Equal(t, i+1, row.Index)
	}
}

func TestReconciler_SecondSaveWinsEntirely(t *testing.T) {
	// Two saves for the same identifier apply sequentially; the final
	// state reflects the second event's fields exactly.
	r, coll, _ := newMailReconciler(t)

	r.Apply(Event{Action: ActionSave, Record: model.Document{"id": "M1", "status": "pending", "note": "first"}})
	r.Apply(Event{Action: ActionSave, Record: model.Document{"id": "M1", "status": "claimed"}})

	rec, ok := coll.Get("M1")
	require.True(t, ok)
	assert.Equal(t, "claimed", rec.ItemStatus)
	assert.Equal(t, "", rec.Note)
	assert.Equal(t, 1, coll.Len())
}

func TestReconciler_SaveIdempotent(t *testing.T) {
	r, coll, _ := newMailReconciler(t)

	ev := saveEvent("M1", "pending")
	r.Apply(ev)
	once := coll.Records()

	r.Apply(ev)
	assert.Equal(t, once, coll.Records())
}

func TestReconciler_DeleteRemovesAndReindexes(t *testing.T) {
	r, coll, changes := newMailReconciler(t)
	coll.Load([]model.MailItem{
		{Identifier: "M1"}, {Identifier: "M2"}, {Identifier: "M3"},
	})

	r.Apply(Event{Action: ActionDelete, Record: model.Document{"id": "M2"}})

	require.Equal(t, 2, coll.Len())
	assert.False(t, coll.Has("M2"))
	for i, row := range coll.Rows() {
		assert.Equal(t, i+1, row.Index)
	}
	assert.Equal(t, 1, *changes)
}

func TestReconciler_DeleteAbsentIsNoOp(t *testing.T) {
	r, coll, changes := newMailReconciler(t)
	coll.Load([]model.MailItem{{Identifier: "M1"}})

	r.Apply(Event{Action: ActionDelete, Record: model.Document{"id": "ghost"}})
	r.Apply(Event{Action: ActionDelete, Record: model.Document{"id": "ghost"}})

	assert.Equal(t, 1, coll.Len())
	// The change callback still fires; recompute on a no-op is harmless
	assert.Equal(t, 2, *changes)
}

func TestReconciler_HandleRawDropsMalformed(t *testing.T) {
	r, coll, changes := newMailReconciler(t)

	r.HandleRaw([]byte(`{{{`))
	r.HandleRaw([]byte(`{"action":"save","mailItem":{"status":"pending"}}`))
	r.HandleRaw([]byte(`{"action":"explode","mailItem":{"id":"M1"}}`))

	assert.Equal(t, 0, coll.Len())
	assert.Equal(t, 0, *changes)
}

func TestReconciler_EventsAppliedInArrivalOrder(t *testing.T) {
	r, coll, _ := newMailReconciler(t)

	r.HandleRaw([]byte(`{"action":"save","mailItem":{"id":"M1","status":"pending"}}`))
	r.HandleRaw([]byte(`{"action":"save","mailItem":{"id":"M1","status":"claimed"}}`))
	r.HandleRaw([]byte(`{"action":"delete","mailItem":{"id":"M1"}}`))
	r.HandleRaw([]byte(`{"action":"save","mailItem":{"id":"M1","status":"returned"}}`))

	rec, ok := coll.Get("M1")
	require.True(t, ok)
	assert.Equal(t, model.StatusReturned, rec.Status())
}

func TestPump_DeliversAndAcks(t *testing.T) {
	engine := memory.New()
	defer engine.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	consumer, err := engine.NewConsumer(pubsub.ConsumerOptions{FilterSubject: "mail.updates", ChannelBufSize: 10})
	require.NoError(t, err)
	msgCh, err := consumer.Subscribe(ctx)
	require.NoError(t, err)

	received := make(chan []byte, 10)
	go Pump(ctx, msgCh, func(data []byte) { received <- data })

	publisher, err := engine.NewPublisher(pubsub.PublisherOptions{})
	require.NoError(t, err)
	require.NoError(t, publisher.Publish(ctx, "mail.updates", []byte(`{"action":"save","mailItem":{"id":"M1"}}`)))

	select {
	case data := <-received:
		assert.Contains(t, string(data), `"M1"`)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for pumped message")
	}
}

func TestPump_StopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	msgs := make(chan pubsub.Message)

	done := make(chan struct{})
	go func() {
		Pump(ctx, msgs, func([]byte) {})
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("pump did not stop on cancel")
	}
}
