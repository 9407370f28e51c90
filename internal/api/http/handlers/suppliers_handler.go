package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/asset-desk/internal/api/dto"
	"github.com/spec-kit/asset-desk/internal/service"
	apperrors "github.com/spec-kit/asset-desk/pkg/util/errorutil"
)

// SuppliersHandler exposes the supplier registry.
type SuppliersHandler struct {
	service *service.SupplierService
}

// NewSuppliersHandler constructs handler.
func NewSuppliersHandler(supplierService *service.SupplierService) *SuppliersHandler {
	return &SuppliersHandler{service: supplierService}
}

// ListSuppliers GET /suppliers returns active suppliers ordered by name.
func (h *SuppliersHandler) ListSuppliers(c *fiber.Ctx) error {
	suppliers, err := h.service.ListActiveSuppliers(c.UserContext())
	if err != nil {
		return err
	}
	items := make([]dto.SupplierResponse, 0, len(suppliers))
	for i := range suppliers {
		items = append(items, dto.NewSupplierResponse(&suppliers[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetSupplier GET /suppliers/:id.
func (h *SuppliersHandler) GetSupplier(c *fiber.Ctx) error {
	supplier, err := h.service.GetSupplier(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewSupplierResponse(supplier)})
}

// CreateSupplier POST /suppliers.
func (h *SuppliersHandler) CreateSupplier(c *fiber.Ctx) error {
	var req dto.CreateSupplierRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(&req); err != nil {
		return err
	}
	active := true
	if req.Active != nil {
		active = *req.Active
	}
	supplier, err := h.service.CreateSupplier(c.UserContext(), service.SupplierInput{
		ID:       req.ID,
		Name:     req.Name,
		Category: req.Category,
		SLAHours: req.SLAHours,
		Active:   active,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewSupplierResponse(supplier)})
}

// UpdateSupplier PATCH /suppliers/:id. Existing tickets keep their deadlines.
func (h *SuppliersHandler) UpdateSupplier(c *fiber.Ctx) error {
	var req dto.UpdateSupplierRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(&req); err != nil {
		return err
	}
	supplier, err := h.service.UpdateSupplier(c.UserContext(), c.Params("id"), service.SupplierPatch{
		Name:     req.Name,
		Category: req.Category,
		SLAHours: req.SLAHours,
		Active:   req.Active,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewSupplierResponse(supplier)})
}
