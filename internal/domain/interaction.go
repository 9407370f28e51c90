package domain

import "time"

// InteractionType differentiates timeline entries.
type InteractionType string

const (
	InteractionComment          InteractionType = "comment"
	InteractionCall             InteractionType = "call"
	InteractionEmail            InteractionType = "email"
	InteractionSupplierCallback InteractionType = "supplier-callback"
	InteractionStatusChange     InteractionType = "status-change"
)

// Valid reports whether t is a known interaction type.
func (t InteractionType) Valid() bool {
	return t.Authored() || t == InteractionStatusChange
}

// Authored reports whether a person may record this type directly.
// Status changes are only written by the engine.
func (t InteractionType) Authored() bool {
	switch t {
	case InteractionComment, InteractionCall, InteractionEmail, InteractionSupplierCallback:
		return true
	}
	return false
}

// Interaction is an immutable entry in a ticket's audit and communication trail.
type Interaction struct {
	ID         string
	TicketID   string
	Seq        int64
	AuthorID   string
	AuthorName string
	Message    string
	Type       InteractionType
	CreatedAt  time.Time
}
