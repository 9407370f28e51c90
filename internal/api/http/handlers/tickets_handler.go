package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/asset-desk/internal/api/dto"
	"github.com/spec-kit/asset-desk/internal/auth"
	"github.com/spec-kit/asset-desk/internal/domain"
	"github.com/spec-kit/asset-desk/internal/service"
	apperrors "github.com/spec-kit/asset-desk/pkg/util/errorutil"
)

// TicketsHandler manages ticket endpoints.
type TicketsHandler struct {
	service *service.TicketService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService) *TicketsHandler {
	return &TicketsHandler{service: ticketService}
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	actor, err := requireActor(c)
	if err != nil {
		return err
	}
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(&req); err != nil {
		return err
	}
	ticket, err := h.service.Create(c.UserContext(), actor, service.TicketCreateInput{
		Title:            req.Title,
		Description:      req.Description,
		SupplierID:       req.SupplierID,
		Type:             req.Type,
		Priority:         req.Priority,
		Unit:             req.Unit,
		RelatedAssetID:   req.RelatedAssetID,
		ExternalProtocol: req.ExternalProtocol,
		SupplierContact:  req.SupplierContact,
		OwnerID:          req.OwnerID,
		OwnerName:        req.OwnerName,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewTicketResponse(ticket, true)})
}

// ListTickets GET /tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	tickets, err := h.service.List(c.UserContext(), parseTicketQuery(c))
	if err != nil {
		return err
	}
	items := make([]dto.TicketResponse, 0, len(tickets))
	for i := range tickets {
		items = append(items, dto.NewTicketResponse(&tickets[i], false))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	ticket, err := h.service.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketResponse(ticket, true)})
}

// UpdateTicket PATCH /tickets/:id.
func (h *TicketsHandler) UpdateTicket(c *fiber.Ctx) error {
	actor, err := requireActor(c)
	if err != nil {
		return err
	}
	var req dto.UpdateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(&req); err != nil {
		return err
	}
	ticket, err := h.service.Update(c.UserContext(), actor, c.Params("id"), service.TicketPatch{
		ID:               req.ID,
		CreatedAt:        req.CreatedAt,
		SLADeadline:      req.SLADeadline,
		Title:            req.Title,
		Description:      req.Description,
		SupplierID:       req.SupplierID,
		Type:             req.Type,
		Priority:         req.Priority,
		Unit:             req.Unit,
		RelatedAssetID:   req.RelatedAssetID,
		ExternalProtocol: req.ExternalProtocol,
		SupplierContact:  req.SupplierContact,
		OwnerID:          req.OwnerID,
		OwnerName:        req.OwnerName,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketResponse(ticket, true)})
}

// DeleteTicket DELETE /tickets/:id.
func (h *TicketsHandler) DeleteTicket(c *fiber.Ctx) error {
	actor, err := requireActor(c)
	if err != nil {
		return err
	}
	if err := h.service.Delete(c.UserContext(), actor, c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// ChangeStatus POST /tickets/:id/status. A move to the current status is
// answered with 200 and outcome rejected_no_op.
func (h *TicketsHandler) ChangeStatus(c *fiber.Ctx) error {
	actor, err := requireActor(c)
	if err != nil {
		return err
	}
	var req dto.ChangeStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(&req); err != nil {
		return err
	}
	result, err := h.service.ChangeStatus(c.UserContext(), actor, c.Params("id"), req.Status)
	if err != nil {
		return err
	}
	resp := dto.StatusChangeResponse{
		Outcome: string(result.Outcome),
		Audit:   string(result.Audit),
		Ticket:  dto.NewTicketResponse(result.Ticket, true),
	}
	if result.Interaction != nil {
		entry := dto.NewInteractionResponse(result.Interaction)
		resp.Interaction = &entry
	}
	return c.JSON(fiber.Map{"data": resp})
}

// AddInteraction POST /tickets/:id/interactions.
func (h *TicketsHandler) AddInteraction(c *fiber.Ctx) error {
	actor, err := requireActor(c)
	if err != nil {
		return err
	}
	var req dto.CreateInteractionRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.Message) == "" {
		return apperrors.NewValidationError("message required", map[string]any{"message": "must not be empty"})
	}
	if err := dto.Validate(&req); err != nil {
		return err
	}
	ticket, entry, err := h.service.AddInteraction(c.UserContext(), actor, c.Params("id"), service.InteractionInput{
		Type:    req.Type,
		Message: req.Message,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"data": fiber.Map{
			"interaction": dto.NewInteractionResponse(entry),
			"ticket":      dto.NewTicketResponse(ticket, true),
		},
	})
}

// ListInteractions GET /tickets/:id/interactions, newest first.
func (h *TicketsHandler) ListInteractions(c *fiber.Ctx) error {
	items, err := h.service.Timeline(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewInteractionResponses(items)})
}

// DuplicateTicket POST /tickets/:id/duplicate.
func (h *TicketsHandler) DuplicateTicket(c *fiber.Ctx) error {
	actor, err := requireActor(c)
	if err != nil {
		return err
	}
	ticket, err := h.service.Duplicate(c.UserContext(), actor, c.Params("id"))
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewTicketResponse(ticket, true)})
}

// TicketSLA GET /tickets/:id/sla.
func (h *TicketsHandler) TicketSLA(c *fiber.Ctx) error {
	result, err := h.service.ClassifyTicket(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewSLAResponse(result)})
}

// ClassifyDeadline GET /sla/classify?deadline=...&status=...
func (h *TicketsHandler) ClassifyDeadline(c *fiber.Ctx) error {
	status := domain.TicketStatus(c.Query("status", string(domain.TicketStatusOpen)))
	if !status.Valid() {
		return apperrors.NewValidationError("unknown status", map[string]any{"status": status})
	}
	result := h.service.ClassifyValue(c.Query("deadline"), status)
	return c.JSON(fiber.Map{"data": dto.NewSLAResponse(result)})
}

func requireActor(c *fiber.Ctx) (domain.Actor, error) {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return domain.Actor{}, apperrors.NewUnauthorized("authentication required")
	}
	return actor, nil
}

func parseTicketQuery(c *fiber.Ctx) service.TicketListFilter {
	filter := service.TicketListFilter{}
	if statusStr := c.Query("status"); statusStr != "" {
		for _, part := range strings.Split(statusStr, ",") {
			filter.Statuses = append(filter.Statuses, domain.TicketStatus(strings.TrimSpace(part)))
		}
	}
	if priorityStr := c.Query("priority"); priorityStr != "" {
		for _, part := range strings.Split(priorityStr, ",") {
			filter.Priorities = append(filter.Priorities, domain.TicketPriority(strings.TrimSpace(part)))
		}
	}
	if supplier := c.Query("supplier_id"); supplier != "" {
		filter.SupplierID = &supplier
	}
	if owner := c.Query("owner_id"); owner != "" {
		filter.OwnerID = &owner
	}
	filter.Ascending = strings.EqualFold(c.Query("order"), "asc")
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 20)
	filter.Offset = (page - 1) * pageSize
	filter.Limit = pageSize
	return filter
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}
