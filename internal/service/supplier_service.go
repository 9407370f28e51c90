package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/asset-desk/internal/domain"
	"github.com/spec-kit/asset-desk/internal/repository"
	apperrors "github.com/spec-kit/asset-desk/pkg/util/errorutil"
)

// SupplierService is the supplier registry. It resolves SLA hours for new tickets.
type SupplierService struct {
	suppliers    repository.SupplierRepository
	cache        repository.SupplierCache
	cacheTTL     time.Duration
	defaultHours int
	logger       *zap.Logger
}

// SupplierDependencies bundles collaborators for the supplier service.
type SupplierDependencies struct {
	SupplierRepo repository.SupplierRepository
	Cache        repository.SupplierCache
	CacheTTL     time.Duration
	DefaultHours int
	Logger       *zap.Logger
}

// SupplierInput describes a supplier to create.
type SupplierInput struct {
	ID       string
	Name     string
	Category domain.SupplierCategory
	SLAHours int
	Active   bool
}

// SupplierPatch describes a partial supplier edit.
type SupplierPatch struct {
	Name     *string
	Category *domain.SupplierCategory
	SLAHours *int
	Active   *bool
}

// NewSupplierService constructs the service.
func NewSupplierService(deps SupplierDependencies) *SupplierService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	defaultHours := deps.DefaultHours
	if defaultHours <= 0 {
		defaultHours = 24
	}
	return &SupplierService{
		suppliers:    deps.SupplierRepo,
		cache:        deps.Cache,
		cacheTTL:     deps.CacheTTL,
		defaultHours: defaultHours,
		logger:       logger,
	}
}

// GetSupplier returns the supplier or a NOT_FOUND error.
func (s *SupplierService) GetSupplier(ctx context.Context, id string) (*domain.Supplier, error) {
	supplier, err := s.lookup(ctx, id)
	if err != nil {
		return nil, err
	}
	if supplier == nil {
		return nil, apperrors.NewNotFound("supplier", map[string]any{"supplier_id": id})
	}
	return supplier, nil
}

// ListActiveSuppliers returns active suppliers ordered by name.
func (s *SupplierService) ListActiveSuppliers(ctx context.Context) ([]domain.Supplier, error) {
	suppliers, err := s.suppliers.ListActive(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if suppliers == nil {
		suppliers = []domain.Supplier{}
	}
	return suppliers, nil
}

// CreateSupplier validates and stores a new supplier.
func (s *SupplierService) CreateSupplier(ctx context.Context, input SupplierInput) (*domain.Supplier, error) {
	id := strings.TrimSpace(input.ID)
	if id == "" {
		id = uuid.NewString()
	}
	supplier := &domain.Supplier{
		ID:       id,
		Name:     strings.TrimSpace(input.Name),
		Category: input.Category,
		SLAHours: input.SLAHours,
		Active:   input.Active,
	}
	if supplier.Category == "" {
		supplier.Category = domain.SupplierCategoryOther
	}
	if err := validateSupplier(supplier); err != nil {
		return nil, err
	}
	if err := s.suppliers.Create(ctx, supplier); err != nil {
		if errors.Is(err, repository.ErrSupplierExists) {
			return nil, apperrors.NewConflict("supplier already exists", map[string]any{"supplier_id": id})
		}
		return nil, apperrors.MapError(err)
	}
	return supplier, nil
}

// UpdateSupplier applies a partial edit. Existing tickets keep their deadlines.
func (s *SupplierService) UpdateSupplier(ctx context.Context, id string, patch SupplierPatch) (*domain.Supplier, error) {
	supplier, err := s.suppliers.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("supplier", map[string]any{"supplier_id": id})
		}
		return nil, apperrors.MapError(err)
	}
	if patch.Name != nil {
		supplier.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Category != nil {
		supplier.Category = *patch.Category
	}
	if patch.SLAHours != nil {
		supplier.SLAHours = *patch.SLAHours
	}
	if patch.Active != nil {
		supplier.Active = *patch.Active
	}
	if err := validateSupplier(supplier); err != nil {
		return nil, err
	}
	if err := s.suppliers.Update(ctx, supplier); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.invalidate(ctx, id)
	return supplier, nil
}

// Seed upserts a catalog of suppliers, typically loaded at startup.
func (s *SupplierService) Seed(ctx context.Context, suppliers []domain.Supplier) error {
	for i := range suppliers {
		supplier := suppliers[i]
		if supplier.ID == "" {
			return apperrors.NewValidationError("seed supplier requires id", map[string]any{"name": supplier.Name})
		}
		if err := validateSupplier(&supplier); err != nil {
			return err
		}
		if err := s.suppliers.Upsert(ctx, &supplier); err != nil {
			return apperrors.MapError(err)
		}
		s.invalidate(ctx, supplier.ID)
	}
	s.logger.Info("supplier catalog seeded", zap.Int("count", len(suppliers)))
	return nil
}

// SLAHoursFor returns the supplier's SLA hours, or the default when the
// supplier is unknown or the lookup fails.
func (s *SupplierService) SLAHoursFor(ctx context.Context, supplierID string) int {
	if strings.TrimSpace(supplierID) == "" {
		return s.defaultHours
	}
	supplier, err := s.lookup(ctx, supplierID)
	if err != nil {
		s.logger.Warn("supplier lookup failed; using default sla",
			zap.String("supplier_id", supplierID), zap.Error(err))
		return s.defaultHours
	}
	if supplier == nil || supplier.SLAHours <= 0 {
		return s.defaultHours
	}
	return supplier.SLAHours
}

// lookup returns nil, nil when the supplier does not exist.
func (s *SupplierService) lookup(ctx context.Context, id string) (*domain.Supplier, error) {
	if s.cache != nil && s.cacheTTL > 0 {
		cached, err := s.cache.Get(ctx, id)
		if err != nil {
			s.logger.Debug("supplier cache read failed", zap.String("supplier_id", id), zap.Error(err))
		} else if cached != nil {
			return cached, nil
		}
	}

	supplier, err := s.suppliers.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, apperrors.MapError(err)
	}

	if s.cache != nil && s.cacheTTL > 0 {
		if err := s.cache.Set(ctx, supplier, s.cacheTTL); err != nil {
			s.logger.Debug("supplier cache write failed", zap.String("supplier_id", id), zap.Error(err))
		}
	}
	return supplier, nil
}

func (s *SupplierService) invalidate(ctx context.Context, id string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, id); err != nil {
		s.logger.Warn("supplier cache invalidate failed", zap.String("supplier_id", id), zap.Error(err))
	}
}

func validateSupplier(supplier *domain.Supplier) error {
	details := map[string]any{}
	if supplier.Name == "" {
		details["name"] = "required"
	}
	if !supplier.Category.Valid() {
		details["category"] = "unknown category"
	}
	if supplier.SLAHours <= 0 {
		details["sla_hours"] = "must be positive"
	}
	if len(details) > 0 {
		return apperrors.NewValidationError("invalid supplier", details)
	}
	return nil
}
