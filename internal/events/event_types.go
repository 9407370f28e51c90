package events

import (
	"time"

	"github.com/spec-kit/asset-desk/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated          EventType = "ticket_created"
	EventTicketUpdated          EventType = "ticket_updated"
	EventTicketStatusChanged    EventType = "ticket_status_changed"
	EventTicketInteractionAdded EventType = "ticket_interaction_added"
	EventTicketDuplicated       EventType = "ticket_duplicated"
	EventTicketDeleted          EventType = "ticket_deleted"
)

// AllTicketEvents lists every ticket event type.
var AllTicketEvents = []EventType{
	EventTicketCreated,
	EventTicketUpdated,
	EventTicketStatusChanged,
	EventTicketInteractionAdded,
	EventTicketDuplicated,
	EventTicketDeleted,
}

// Actor encapsulates actor metadata for an event.
type Actor struct {
	ID   string      `json:"id"`
	Name string      `json:"name"`
	Role domain.Role `json:"role,omitempty"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	SupplierID  string                `json:"supplier_id"`
	Priority    domain.TicketPriority `json:"priority"`
	Title       string                `json:"title"`
	SLAHours    int                   `json:"sla_hours"`
	SLADeadline *time.Time            `json:"sla_deadline,omitempty"`
}

// TicketUpdatedPayload lists the columns an edit touched.
type TicketUpdatedPayload struct {
	Fields []string `json:"fields"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	OldStatus    domain.TicketStatus `json:"old_status"`
	NewStatus    domain.TicketStatus `json:"new_status"`
	AuditApplied bool                `json:"audit_applied"`
}

// TicketInteractionAddedPayload payload.
type TicketInteractionAddedPayload struct {
	InteractionID string                 `json:"interaction_id"`
	Type          domain.InteractionType `json:"type"`
	Preview       string                 `json:"preview"`
}

// TicketDuplicatedPayload payload.
type TicketDuplicatedPayload struct {
	SourceTicketID    string `json:"source_ticket_id"`
	DeadlineCarryOver bool   `json:"deadline_carry_over"`
}
