// Package table implements the tabular data engine: a generic in-memory
// collection of records with a derived searchable, sortable, filterable,
// paginated view, multi-record selection, and autocomplete suggestions.
//
// A Collection instance is exclusively owned by the view that created it.
// Nothing in this package locks; the owning view serializes all access.
package table

import (
	"fmt"

	"mailtrack/pkg/model"
)

// FieldFunc extracts one field value from a record. The returned value is
// a string or a number; anything else is string-formatted for search and
// comparison.
type FieldFunc[R model.Record] func(R) any

// Schema declares how the engine reads a record type: the named fields
// available to sorting and filtering, and the subset of them used for
// free-text search. Accessors are resolved at construction, not through
// reflection on every keystroke.
type Schema[R model.Record] struct {
	Fields     map[string]FieldFunc[R]
	Searchable []string
}

// Validate checks that every searchable key refers to a declared field.
func (s Schema[R]) Validate() error {
	if len(s.Fields) == 0 {
		return fmt.Errorf("schema declares no fields")
	}
	for _, key := range s.Searchable {
		if _, ok := s.Fields[key]; !ok {
			return fmt.Errorf("searchable key %q is not a declared field", key)
		}
	}
	return nil
}

// Field returns the value of the named field, or nil when undeclared.
func (s Schema[R]) Field(rec R, name string) any {
	fn, ok := s.Fields[name]
	if !ok {
		return nil
	}
	return fn(rec)
}

// DocOf flattens a record into a field-name keyed map. Used as the
// variable binding for expression filters.
func (s Schema[R]) DocOf(rec R) map[string]any {
	doc := make(map[string]any, len(s.Fields)+1)
	for name, fn := range s.Fields {
		doc[name] = fn(rec)
	}
	doc["id"] = rec.ID()
	return doc
}

// MailItemSchema is the schema the mail view renders with.
func MailItemSchema() Schema[model.MailItem] {
	return Schema[model.MailItem]{
		Fields: map[string]FieldFunc[model.MailItem]{
			"barcode":        func(m model.MailItem) any { return m.Barcode },
			"mailType":       func(m model.MailItem) any { return m.MailType },
			"sender":         func(m model.MailItem) any { return m.Sender },
			"recipient":      func(m model.MailItem) any { return m.Recipient },
			"branchCode":     func(m model.MailItem) any { return m.BranchCode },
			"status":         func(m model.MailItem) any { return m.ItemStatus },
			"note":           func(m model.MailItem) any { return m.Note },
			"insertDateTime": func(m model.MailItem) any { return m.InsertDateTime },
			"updateDateTime": func(m model.MailItem) any { return m.UpdateDateTime },
		},
		Searchable: []string{"barcode", "sender", "recipient", "mailType"},
	}
}

// BranchSchema is the schema the branch administration view renders with.
func BranchSchema() Schema[model.Branch] {
	return Schema[model.Branch]{
		Fields: map[string]FieldFunc[model.Branch]{
			"code":           func(b model.Branch) any { return b.Code },
			"name":           func(b model.Branch) any { return b.Name },
			"address":        func(b model.Branch) any { return b.Address },
			"insertDateTime": func(b model.Branch) any { return b.InsertDateTime },
		},
		Searchable: []string{"code", "name", "address"},
	}
}

// UserSchema is the schema the user administration view renders with.
func UserSchema() Schema[model.User] {
	return Schema[model.User]{
		Fields: map[string]FieldFunc[model.User]{
			"username":       func(u model.User) any { return u.Username },
			"fullName":       func(u model.User) any { return u.FullName },
			"role":           func(u model.User) any { return u.Role },
			"branchCode":     func(u model.User) any { return u.BranchCode },
			"insertDateTime": func(u model.User) any { return u.InsertDateTime },
		},
		Searchable: []string{"username", "fullName", "role"},
	}
}
