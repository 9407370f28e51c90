package dto

import (
	"time"

	"github.com/spec-kit/asset-desk/internal/domain"
	"github.com/spec-kit/asset-desk/internal/sla"
)

// CreateSupplierRequest payload.
type CreateSupplierRequest struct {
	ID       string                  `json:"id" validate:"omitempty,max=64"`
	Name     string                  `json:"name" validate:"required,max=120"`
	Category domain.SupplierCategory `json:"category" validate:"omitempty,oneof=carrier billing-system-vendor it-vendor other"`
	SLAHours int                     `json:"sla_hours" validate:"required,gt=0"`
	Active   *bool                   `json:"active"`
}

// UpdateSupplierRequest payload.
type UpdateSupplierRequest struct {
	Name     *string                  `json:"name" validate:"omitempty,max=120"`
	Category *domain.SupplierCategory `json:"category" validate:"omitempty,oneof=carrier billing-system-vendor it-vendor other"`
	SLAHours *int                     `json:"sla_hours" validate:"omitempty,gt=0"`
	Active   *bool                    `json:"active"`
}

// SupplierResponse represents a supplier.
type SupplierResponse struct {
	ID        string                  `json:"id"`
	Name      string                  `json:"name"`
	Category  domain.SupplierCategory `json:"category"`
	SLAHours  int                     `json:"sla_hours"`
	Active    bool                    `json:"active"`
	CreatedAt time.Time               `json:"created_at"`
	UpdatedAt time.Time               `json:"updated_at"`
}

// NewSupplierResponse maps a supplier.
func NewSupplierResponse(s *domain.Supplier) SupplierResponse {
	return SupplierResponse{
		ID:        s.ID,
		Name:      s.Name,
		Category:  s.Category,
		SLAHours:  s.SLAHours,
		Active:    s.Active,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
}

// SLAResponse renders a classification. Counters irrelevant to the state are omitted.
type SLAResponse struct {
	State            sla.State  `json:"state"`
	Deadline         *time.Time `json:"deadline,omitempty"`
	HoursRemaining   *int       `json:"hours_remaining,omitempty"`
	MinutesRemaining *int       `json:"minutes_remaining,omitempty"`
	HoursOverdue     *int       `json:"hours_overdue,omitempty"`
}

// NewSLAResponse maps a classification.
func NewSLAResponse(c sla.Classification) SLAResponse {
	resp := SLAResponse{State: c.State, Deadline: c.Deadline}
	switch c.State {
	case sla.StateOverdue:
		resp.HoursOverdue = intPtr(c.HoursOverdue)
	case sla.StateCritical:
		resp.HoursRemaining = intPtr(c.HoursRemaining)
		resp.MinutesRemaining = intPtr(c.MinutesRemaining)
	case sla.StateWarning, sla.StateOnTrack:
		resp.HoursRemaining = intPtr(c.HoursRemaining)
	}
	return resp
}

func intPtr(v int) *int {
	return &v
}
