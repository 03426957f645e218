package model

import "strings"

// Status is the lifecycle state of a claimable record. Administrative
// record types (branches, users) do not carry one.
type Status string

const (
	StatusPending  Status = "pending"
	StatusClaimed  Status = "claimed"
	StatusReturned Status = "returned"
	StatusPicked   Status = "picked"
	StatusUnknown  Status = ""
)

// ParseStatus maps a raw status string to a Status. Matching is
// case-insensitive; anything unrecognized maps to StatusUnknown.
func ParseStatus(s string) Status {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pending":
		return StatusPending
	case "claimed":
		return StatusClaimed
	case "returned":
		return StatusReturned
	case "picked":
		return StatusPicked
	default:
		return StatusUnknown
	}
}

// IsTerminal reports whether the status is a resolved outcome. A record
// in a terminal state is not eligible for selection.
func (s Status) IsTerminal() bool {
	return s == StatusClaimed
}

// IsResolved reports whether the record has left the pending state.
func (s Status) IsResolved() bool {
	switch s {
	case StatusClaimed, StatusReturned, StatusPicked:
		return true
	default:
		return false
	}
}

// Record is one row of domain data flowing through the table engine.
// The identifier is unique within its collection and stable for the
// record's lifetime; it is the merge key for reconciliation and the
// selection key.
type Record interface {
	ID() string
}

// StatusRecord is a Record with a lifecycle status. Claimable record
// types implement it; purely administrative types do not.
type StatusRecord interface {
	Record
	Status() Status
}

// MailItem is a tracked piece of physical mail.
type MailItem struct {
	Identifier     string `json:"id"`
	Barcode        string `json:"barcode"`
	MailType       string `json:"mailType"`
	Sender         string `json:"sender"`
	Recipient      string `json:"recipient"`
	BranchCode     string `json:"branchCode"`
	ItemStatus     string `json:"status"`
	Note           string `json:"note"`
	InsertDateTime string `json:"insertDateTime"`
	UpdateDateTime string `json:"updateDateTime"`
}

func (m MailItem) ID() string     { return m.Identifier }
func (m MailItem) Status() Status { return ParseStatus(m.ItemStatus) }

// Branch is an organizational branch office. Administrative type, no
// lifecycle status.
type Branch struct {
	Identifier     string `json:"id"`
	Code           string `json:"code"`
	Name           string `json:"name"`
	Address        string `json:"address"`
	InsertDateTime string `json:"insertDateTime"`
	UpdateDateTime string `json:"updateDateTime"`
}

func (b Branch) ID() string { return b.Identifier }

// User is a console account. Administrative type, no lifecycle status.
type User struct {
	Identifier     string `json:"id"`
	Username       string `json:"username"`
	FullName       string `json:"fullName"`
	Role           string `json:"role"`
	BranchCode     string `json:"branchCode"`
	InsertDateTime string `json:"insertDateTime"`
	UpdateDateTime string `json:"updateDateTime"`
}

func (u User) ID() string { return u.Identifier }
