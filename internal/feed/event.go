// Package feed consumes the push-event stream and reconciles it into the
// owning view's collection.
package feed

import (
	"encoding/json"
	"errors"
	"fmt"

	"mailtrack/pkg/model"
)

// Action is the kind of change carried by a push event.
type Action string

const (
	ActionSave   Action = "save"
	ActionDelete Action = "delete"
)

// IsValid checks if the action is a known valid action.
func (a Action) IsValid() bool {
	switch a {
	case ActionSave, ActionDelete:
		return true
	default:
		return false
	}
}

var (
	// ErrMalformedEvent is returned when an event cannot be decoded.
	ErrMalformedEvent = errors.New("malformed feed event")

	// ErrMissingIdentifier is returned when an event's record has no usable identifier.
	ErrMissingIdentifier = errors.New("feed event record has no identifier")
)

// Event is one change pushed by the server, scoped to a single topic.
// The wire shape is {"action": "save"|"delete", "<entityName>": {record}}.
type Event struct {
	Action Action
	Record model.Document
}

// DecodeEvent parses a raw feed message. entityName is the JSON key the
// topic uses for its record payload ("mailItem", "branch", "user").
func DecodeEvent(data []byte, entityName string) (Event, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}

	var action Action
	if rawAction, ok := raw["action"]; ok {
		if err := json.Unmarshal(rawAction, &action); err != nil {
			return Event{}, fmt.Errorf("%w: bad action: %v", ErrMalformedEvent, err)
		}
	}
	if !action.IsValid() {
		return Event{}, fmt.Errorf("%w: unknown action %q", ErrMalformedEvent, action)
	}

	rawRecord, ok := raw[entityName]
	if !ok {
		return Event{}, fmt.Errorf("%w: missing %q payload", ErrMalformedEvent, entityName)
	}

	var doc model.Document
	if err := json.Unmarshal(rawRecord, &doc); err != nil {
		return Event{}, fmt.Errorf("%w: bad %q payload: %v", ErrMalformedEvent, entityName, err)
	}

	if err := doc.ValidateDocument(); err != nil {
		return Event{}, fmt.Errorf("%w: %w", ErrMissingIdentifier, err)
	}

	return Event{Action: action, Record: doc}, nil
}

// DecodeRecord converts a wire Document into a concrete record type.
func DecodeRecord[R model.Record](doc model.Document) (R, error) {
	var rec R
	data, err := json.Marshal(doc)
	if err != nil {
		return rec, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if err := json.Unmarshal(data, &rec); err != nil {
		return rec, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	return rec, nil
}
