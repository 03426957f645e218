package model

import (
	"fmt"
	"regexp"
)

var (
	idRegex = regexp.MustCompile(`^[a-zA-Z0-9_\-\.]{1,64}$`)
)

func CheckIdentifier(id string) bool {
	return idRegex.MatchString(id)
}

// Wire shape of a record as it arrives from the API or the push feed,
// represents a JSON object.
//
//	"id" field is reserved for the record identifier.
//	"status" field is reserved for the lifecycle status.
//	"insertDateTime" and "updateDateTime" are reserved timestamps,
//	treated as opaque formattable strings.
type Document map[string]interface{}

func (doc Document) GetID() string {
	if id, ok := doc["id"].(string); ok {
		return id
	}
	return ""
}

func (doc Document) GetStatus() Status {
	if s, ok := doc["status"].(string); ok {
		return ParseStatus(s)
	}
	return StatusUnknown
}

func (doc Document) GetString(key string) string {
	switch v := doc[key].(type) {
	case string:
		return v
	case float64:
		return fmt.Sprintf("%v", v)
	case int, int32, int64:
		return fmt.Sprintf("%d", v)
	default:
		return ""
	}
}

func (doc Document) InsertDateTime() string {
	return doc.GetString("insertDateTime")
}

func (doc Document) UpdateDateTime() string {
	return doc.GetString("updateDateTime")
}

// Clone returns a shallow copy. Field values are shared; the map itself
// is independent so in-place upserts do not alias the event payload.
func (doc Document) Clone() Document {
	out := make(Document, len(doc))
	for k, v := range doc {
		out[k] = v
	}
	return out
}

func (doc Document) ValidateDocument() error {
	if doc == nil {
		return fmt.Errorf("%w: data cannot be nil", ErrInvalidRecord)
	}

	idVal, ok := doc["id"]
	if !ok {
		return fmt.Errorf("%w: data field 'id' is required", ErrInvalidRecord)
	}

	switch idValue := idVal.(type) {
	case string:
		if idValue == "" {
			return fmt.Errorf("%w: data field 'id' cannot be empty", ErrInvalidRecord)
		}
		if !idRegex.MatchString(idValue) {
			return fmt.Errorf("%w: 'id' must be 1-64 characters of a-z, A-Z, 0-9, _, ., -", ErrInvalidRecord)
		}
	case int, int32, int64:
		doc["id"] = fmt.Sprintf("%d", idValue)
	case float64:
		doc["id"] = fmt.Sprintf("%d", int64(idValue))
	default:
		return fmt.Errorf("%w: data field 'id' must be a string or integer", ErrInvalidRecord)
	}

	return nil
}
