package dto

import (
	"time"

	"github.com/spec-kit/asset-desk/internal/domain"
	"github.com/spec-kit/asset-desk/internal/timeline"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Title            string                `json:"title" validate:"required,max=200"`
	Description      string                `json:"description" validate:"required"`
	SupplierID       string                `json:"supplier_id" validate:"omitempty,max=64"`
	Type             domain.TicketType     `json:"type" validate:"omitempty,oneof=hardware-failure software-failure network-outage connectivity billing access-request other"`
	Priority         domain.TicketPriority `json:"priority" validate:"omitempty,oneof=low medium high critical"`
	Unit             string                `json:"unit" validate:"max=120"`
	RelatedAssetID   *string               `json:"related_asset_id"`
	ExternalProtocol *string               `json:"external_protocol"`
	SupplierContact  *string               `json:"supplier_contact"`
	OwnerID          string                `json:"owner_id"`
	OwnerName        string                `json:"owner_name"`
}

// UpdateTicketRequest is a partial edit. id, created_at and sla_deadline are
// accepted so clients may send whole tickets back; they are never applied.
type UpdateTicketRequest struct {
	ID               *string                `json:"id"`
	CreatedAt        *time.Time             `json:"created_at"`
	SLADeadline      *time.Time             `json:"sla_deadline"`
	Title            *string                `json:"title" validate:"omitempty,max=200"`
	Description      *string                `json:"description"`
	SupplierID       *string                `json:"supplier_id" validate:"omitempty,max=64"`
	Type             *domain.TicketType     `json:"type" validate:"omitempty,oneof=hardware-failure software-failure network-outage connectivity billing access-request other"`
	Priority         *domain.TicketPriority `json:"priority" validate:"omitempty,oneof=low medium high critical"`
	Unit             *string                `json:"unit" validate:"omitempty,max=120"`
	RelatedAssetID   *string                `json:"related_asset_id"`
	ExternalProtocol *string                `json:"external_protocol"`
	SupplierContact  *string                `json:"supplier_contact"`
	OwnerID          *string                `json:"owner_id"`
	OwnerName        *string                `json:"owner_name"`
}

// ChangeStatusRequest payload.
type ChangeStatusRequest struct {
	Status domain.TicketStatus `json:"status" validate:"required"`
}

// CreateInteractionRequest payload.
type CreateInteractionRequest struct {
	Type    domain.InteractionType `json:"type" validate:"omitempty,oneof=comment call email supplier-callback"`
	Message string                 `json:"message" validate:"required"`
}

// TicketResponse represents a ticket.
type TicketResponse struct {
	ID               string                `json:"id"`
	Title            string                `json:"title"`
	Description      string                `json:"description"`
	SupplierID       string                `json:"supplier_id,omitempty"`
	Type             domain.TicketType     `json:"type"`
	Status           domain.TicketStatus   `json:"status"`
	Priority         domain.TicketPriority `json:"priority"`
	Unit             string                `json:"unit,omitempty"`
	RelatedAssetID   *string               `json:"related_asset_id"`
	ExternalProtocol *string               `json:"external_protocol"`
	SupplierContact  *string               `json:"supplier_contact"`
	OwnerID          string                `json:"owner_id"`
	OwnerName        string                `json:"owner_name"`
	SLADeadline      *time.Time            `json:"sla_deadline"`
	CreatedAt        time.Time             `json:"created_at"`
	UpdatedAt        time.Time             `json:"updated_at"`
	ResolvedAt       *time.Time            `json:"resolved_at"`
	LastActivityAt   *time.Time            `json:"last_activity_at,omitempty"`
	Interactions     []InteractionResponse `json:"interactions,omitempty"`
}

// InteractionResponse represents a timeline entry.
type InteractionResponse struct {
	ID         string                 `json:"id"`
	TicketID   string                 `json:"ticket_id"`
	AuthorID   string                 `json:"author_id"`
	AuthorName string                 `json:"author_name"`
	Message    string                 `json:"message"`
	Type       domain.InteractionType `json:"type"`
	CreatedAt  time.Time              `json:"created_at"`
}

// StatusChangeResponse reports a transition and its audit entry separately.
type StatusChangeResponse struct {
	Outcome     string               `json:"outcome"`
	Audit       string               `json:"audit"`
	Ticket      TicketResponse       `json:"ticket"`
	Interaction *InteractionResponse `json:"interaction,omitempty"`
}

// NewTicketResponse maps a ticket. Interactions are included when withTimeline is set.
func NewTicketResponse(ticket *domain.Ticket, withTimeline bool) TicketResponse {
	resp := TicketResponse{
		ID:               ticket.ID,
		Title:            ticket.Title,
		Description:      ticket.Description,
		SupplierID:       ticket.SupplierID,
		Type:             ticket.Type,
		Status:           ticket.Status,
		Priority:         ticket.Priority,
		Unit:             ticket.Unit,
		RelatedAssetID:   ticket.RelatedAssetID,
		ExternalProtocol: ticket.ExternalProtocol,
		SupplierContact:  ticket.SupplierContact,
		OwnerID:          ticket.OwnerID,
		OwnerName:        ticket.OwnerName,
		SLADeadline:      ticket.SLADeadline,
		CreatedAt:        ticket.CreatedAt,
		UpdatedAt:        ticket.UpdatedAt,
		ResolvedAt:       ticket.ResolvedAt,
	}
	if latest, ok := timeline.Latest(ticket.Interactions); ok {
		resp.LastActivityAt = &latest.CreatedAt
	}
	if withTimeline {
		resp.Interactions = NewInteractionResponses(ticket.Interactions)
	}
	return resp
}

// NewInteractionResponse maps a single interaction.
func NewInteractionResponse(item *domain.Interaction) InteractionResponse {
	return InteractionResponse{
		ID:         item.ID,
		TicketID:   item.TicketID,
		AuthorID:   item.AuthorID,
		AuthorName: item.AuthorName,
		Message:    item.Message,
		Type:       item.Type,
		CreatedAt:  item.CreatedAt,
	}
}

// NewInteractionResponses maps interactions preserving order.
func NewInteractionResponses(items []domain.Interaction) []InteractionResponse {
	resp := make([]InteractionResponse, 0, len(items))
	for i := range items {
		resp = append(resp, NewInteractionResponse(&items[i]))
	}
	return resp
}
