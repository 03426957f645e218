package table

import "mailtrack/pkg/model"

// Row pairs a record with its display index: a derived, 1-based position
// label recomputed on every mutation. It is never an identifier.
type Row[R model.Record] struct {
	Index  int `json:"index"`
	Record R   `json:"record"`
}

// Collection is the ordered in-memory set of records owned by one view.
// At most one record per identifier exists at any time; upserts replace
// in place without moving the record, and display indices are recomputed
// after every mutation.
type Collection[R model.Record] struct {
	rows []Row[R]
	byID map[string]int // identifier -> position in rows
}

// NewCollection creates an empty collection.
func NewCollection[R model.Record]() *Collection[R] {
	return &Collection[R]{
		byID: make(map[string]int),
	}
}

// Load replaces the whole collection with the fetched records and assigns
// display indices. Records with a duplicate or empty identifier are
// dropped; the first occurrence wins.
func (c *Collection[R]) Load(records []R) {
	c.rows = c.rows[:0]
	c.byID = make(map[string]int, len(records))
	for _, rec := range records {
		id := rec.ID()
		if id == "" {
			continue
		}
		if _, exists := c.byID[id]; exists {
			continue
		}
		c.byID[id] = len(c.rows)
		c.rows = append(c.rows, Row[R]{Record: rec})
	}
	c.reindex()
}

// Upsert replaces an existing record in place, keeping its position, or
// appends a new one. Idempotent: applying the same record twice yields
// the same collection.
func (c *Collection[R]) Upsert(rec R) {
	id := rec.ID()
	if id == "" {
		return
	}
	if pos, ok := c.byID[id]; ok {
		c.rows[pos].Record = rec
	} else {
		c.byID[id] = len(c.rows)
		c.rows = append(c.rows, Row[R]{Record: rec})
	}
	c.reindex()
}

// Remove deletes the record with the given identifier. Removing an absent
// identifier is a no-op.
func (c *Collection[R]) Remove(id string) {
	pos, ok := c.byID[id]
	if !ok {
		return
	}
	c.rows = append(c.rows[:pos], c.rows[pos+1:]...)
	delete(c.byID, id)
	for i := pos; i < len(c.rows); i++ {
		c.byID[c.rows[i].Record.ID()] = i
	}
	c.reindex()
}

// Get returns the record with the given identifier.
func (c *Collection[R]) Get(id string) (R, bool) {
	if pos, ok := c.byID[id]; ok {
		return c.rows[pos].Record, true
	}
	var zero R
	return zero, false
}

// Has reports whether a record with the given identifier is present.
func (c *Collection[R]) Has(id string) bool {
	_, ok := c.byID[id]
	return ok
}

// Len returns the number of records.
func (c *Collection[R]) Len() int {
	return len(c.rows)
}

// Rows returns the rows in collection order. The slice is shared; callers
// must not mutate it.
func (c *Collection[R]) Rows() []Row[R] {
	return c.rows
}

// Records returns a copy of the records in collection order.
func (c *Collection[R]) Records() []R {
	out := make([]R, len(c.rows))
	for i, row := range c.rows {
		out[i] = row.Record
	}
	return out
}

// reindex assigns display indices 1..k, contiguous, no gaps.
func (c *Collection[R]) reindex() {
	for i := range c.rows {
		c.rows[i].Index = i + 1
	}
}
