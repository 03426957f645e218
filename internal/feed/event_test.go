package feed

import (
	"testing"

	"mailtrack/pkg/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeEvent_Save(t *testing.T) {
	data := []byte(`{"action":"save","mailItem":{"id":"M1","status":"pending","sender":"Alice"}}`)

	ev, err := DecodeEvent(data, "mailItem")
	require.NoError(t, err)
	assert.Equal(t, ActionSave, ev.Action)
	assert.Equal(t, "M1", ev.Record.GetID())
	assert.Equal(t, model.StatusPending, ev.Record.GetStatus())
}

func TestDecodeEvent_Delete(t *testing.T) {
	data := []byte(`{"action":"delete","branch":{"id":"B1"}}`)

	ev, err := DecodeEvent(data, "branch")
	require.NoError(t, err)
	assert.Equal(t, ActionDelete, ev.Action)
	assert.Equal(t, "B1", ev.Record.GetID())
}

func TestDecodeEvent_Malformed(t *testing.T) {
	cases := map[string]string{
		"not json":        `{{{`,
		"unknown action":  `{"action":"merge","mailItem":{"id":"M1"}}`,
		"missing action":  `{"mailItem":{"id":"M1"}}`,
		"missing payload": `{"action":"save"}`,
		"wrong entity":    `{"action":"save","branch":{"id":"B1"}}`,
		"payload not obj": `{"action":"save","mailItem":42}`,
	}
	for name, raw := range cases {
		_, err := DecodeEvent([]byte(raw), "mailItem")
		assert.ErrorIs(t, err, ErrMalformedEvent, name)
	}
}

func TestDecodeEvent_MissingIdentifier(t *testing.T) {
	_, err := DecodeEvent([]byte(`{"action":"save","mailItem":{"status":"pending"}}`), "mailItem")
	assert.ErrorIs(t, err, ErrMissingIdentifier)

	_, err = DecodeEvent([]byte(`{"action":"save","mailItem":{"id":""}}`), "mailItem")
	assert.ErrorIs(t, err, ErrMissingIdentifier)
	assert.ErrorIs(t, err, model.ErrInvalidRecord)
}

func TestDecodeEvent_NumericIdentifierCoerced(t *testing.T) {
	ev, err := DecodeEvent([]byte(`{"action":"save","mailItem":{"id":42}}`), "mailItem")
	require.NoError(t, err)
	assert.Equal(t, "42", ev.Record.GetID())
}

func TestDecodeRecord(t *testing.T) {
	doc := model.Document{"id": "M1", "status": "claimed", "sender": "Bob"}

	rec, err := DecodeRecord[model.MailItem](doc)
	require.NoError(t, err)
	assert.Equal(t, "M1", rec.ID())
	assert.Equal(t, model.StatusClaimed, rec.Status())
	assert.Equal(t, "Bob", rec.Sender)
}

func TestAction_IsValid(t *testing.T) {
	assert.True(t, ActionSave.IsValid())
	assert.True(t, ActionDelete.IsValid())
	assert.False(t, Action("merge").IsValid())
	assert.False(t, Action("").IsValid())
}
