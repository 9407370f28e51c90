package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen               TicketStatus = "open"
	TicketStatusInProgress         TicketStatus = "in-progress"
	TicketStatusAwaitingThirdParty TicketStatus = "awaiting-third-party"
	TicketStatusResolved           TicketStatus = "resolved"
	TicketStatusClosed             TicketStatus = "closed"
)

// TicketStatuses lists every status in workflow order.
var TicketStatuses = []TicketStatus{
	TicketStatusOpen,
	TicketStatusInProgress,
	TicketStatusAwaitingThirdParty,
	TicketStatusResolved,
	TicketStatusClosed,
}

// Valid reports whether s is one of the defined statuses.
func (s TicketStatus) Valid() bool {
	for _, candidate := range TicketStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// Settled reports whether the status counts as finished work for SLA purposes.
func (s TicketStatus) Settled() bool {
	return s == TicketStatusResolved || s == TicketStatusClosed
}

// TicketPriority enumerates urgency.
type TicketPriority string

const (
	TicketPriorityLow      TicketPriority = "low"
	TicketPriorityMedium   TicketPriority = "medium"
	TicketPriorityHigh     TicketPriority = "high"
	TicketPriorityCritical TicketPriority = "critical"
)

// Valid reports whether p is a known priority.
func (p TicketPriority) Valid() bool {
	switch p {
	case TicketPriorityLow, TicketPriorityMedium, TicketPriorityHigh, TicketPriorityCritical:
		return true
	}
	return false
}

// TicketType is the closed set of problem categories.
type TicketType string

const (
	TicketTypeHardwareFailure TicketType = "hardware-failure"
	TicketTypeSoftwareFailure TicketType = "software-failure"
	TicketTypeNetworkOutage   TicketType = "network-outage"
	TicketTypeConnectivity    TicketType = "connectivity"
	TicketTypeBilling         TicketType = "billing"
	TicketTypeAccessRequest   TicketType = "access-request"
	TicketTypeOther           TicketType = "other"
)

// Valid reports whether t is a known ticket type.
func (t TicketType) Valid() bool {
	switch t {
	case TicketTypeHardwareFailure, TicketTypeSoftwareFailure, TicketTypeNetworkOutage,
		TicketTypeConnectivity, TicketTypeBilling, TicketTypeAccessRequest, TicketTypeOther:
		return true
	}
	return false
}

// Ticket is the aggregate for support requests raised against a supplier.
// SLADeadline and CreatedAt are fixed at creation.
type Ticket struct {
	ID               string
	Title            string
	Description      string
	SupplierID       string
	Type             TicketType
	Status           TicketStatus
	Priority         TicketPriority
	Unit             string
	RelatedAssetID   *string
	ExternalProtocol *string
	SupplierContact  *string
	OwnerID          string
	OwnerName        string
	SLADeadline      *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
	ResolvedAt       *time.Time
	Interactions     []Interaction
}
