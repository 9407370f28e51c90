package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/asset-desk/internal/clock"
	"github.com/spec-kit/asset-desk/internal/domain"
)

// The memory repositories back the service when no database is configured
// and in handler tests. Reads return copies so callers never share state
// with the store. Missing rows are reported as pgx.ErrNoRows to match the
// postgres implementations.

type memoryTicketRepository struct {
	mu      sync.RWMutex
	tickets map[string]domain.Ticket
}

// NewMemoryTicketRepository returns an empty in-process ticket store.
func NewMemoryTicketRepository() TicketRepository {
	return &memoryTicketRepository{tickets: make(map[string]domain.Ticket)}
}

func (r *memoryTicketRepository) Insert(_ context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tickets[ticket.ID]; exists {
		return fmt.Errorf("ticket %s already exists", ticket.ID)
	}
	stored := copyTicket(*ticket)
	stored.Interactions = nil
	r.tickets[ticket.ID] = stored
	return nil
}

func (r *memoryTicketRepository) UpdateByID(_ context.Context, id string, fields TicketFields) error {
	if len(fields) == 0 {
		return fmt.Errorf("no fields to update")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket, ok := r.tickets[id]
	if !ok {
		return pgx.ErrNoRows
	}
	if err := applyTicketFields(&ticket, fields); err != nil {
		return err
	}
	r.tickets[id] = ticket
	return nil
}

func (r *memoryTicketRepository) DeleteByID(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tickets[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.tickets, id)
	return nil
}

func (r *memoryTicketRepository) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ticket, ok := r.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	out := copyTicket(ticket)
	return &out, nil
}

func (r *memoryTicketRepository) ListOrderedByCreation(_ context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	r.mu.RLock()
	result := make([]domain.Ticket, 0, len(r.tickets))
	for _, ticket := range r.tickets {
		if matchesFilter(ticket, filter) {
			result = append(result, copyTicket(ticket))
		}
	}
	r.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		a, b := result[i], result[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			if filter.Ascending {
				return a.CreatedAt.Before(b.CreatedAt)
			}
			return a.CreatedAt.After(b.CreatedAt)
		}
		if filter.Ascending {
			return a.ID < b.ID
		}
		return a.ID > b.ID
	})

	limit, offset := normalizePage(filter.Limit, filter.Offset)
	if offset >= len(result) {
		return []domain.Ticket{}, nil
	}
	end := offset + limit
	if end > len(result) {
		end = len(result)
	}
	return result[offset:end], nil
}

func matchesFilter(ticket domain.Ticket, filter TicketFilter) bool {
	if len(filter.Statuses) > 0 {
		found := false
		for _, status := range filter.Statuses {
			if ticket.Status == status {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if len(filter.Priorities) > 0 {
		found := false
		for _, priority := range filter.Priorities {
			if ticket.Priority == priority {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if filter.SupplierID != nil && ticket.SupplierID != *filter.SupplierID {
		return false
	}
	if filter.OwnerID != nil && ticket.OwnerID != *filter.OwnerID {
		return false
	}
	return true
}

func applyTicketFields(ticket *domain.Ticket, fields TicketFields) error {
	for column, value := range fields {
		if _, ok := writableColumns[column]; !ok {
			return fmt.Errorf("column %q is not writable", column)
		}
		var ok bool
		switch column {
		case ColumnTitle:
			ticket.Title, ok = value.(string)
		case ColumnDescription:
			ticket.Description, ok = value.(string)
		case ColumnSupplierID:
			ticket.SupplierID, ok = value.(string)
		case ColumnType:
			ticket.Type, ok = value.(domain.TicketType)
		case ColumnStatus:
			ticket.Status, ok = value.(domain.TicketStatus)
		case ColumnPriority:
			ticket.Priority, ok = value.(domain.TicketPriority)
		case ColumnUnit:
			ticket.Unit, ok = value.(string)
		case ColumnRelatedAssetID:
			ticket.RelatedAssetID, ok = value.(*string)
		case ColumnExternalProtocol:
			ticket.ExternalProtocol, ok = value.(*string)
		case ColumnSupplierContact:
			ticket.SupplierContact, ok = value.(*string)
		case ColumnOwnerID:
			ticket.OwnerID, ok = value.(string)
		case ColumnOwnerName:
			ticket.OwnerName, ok = value.(string)
		case ColumnUpdatedAt:
			ticket.UpdatedAt, ok = value.(time.Time)
		case ColumnResolvedAt:
			ticket.ResolvedAt, ok = value.(*time.Time)
		}
		if !ok {
			return fmt.Errorf("column %q: unexpected value type %T", column, value)
		}
	}
	return nil
}

func copyTicket(t domain.Ticket) domain.Ticket {
	t.RelatedAssetID = copyPtr(t.RelatedAssetID)
	t.ExternalProtocol = copyPtr(t.ExternalProtocol)
	t.SupplierContact = copyPtr(t.SupplierContact)
	t.SLADeadline = copyPtr(t.SLADeadline)
	t.ResolvedAt = copyPtr(t.ResolvedAt)
	if t.Interactions != nil {
		t.Interactions = append([]domain.Interaction(nil), t.Interactions...)
	}
	return t
}

func copyPtr[T any](v *T) *T {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}

type memoryInteractionRepository struct {
	mu    sync.RWMutex
	seq   int64
	items map[string][]domain.Interaction
}

// NewMemoryInteractionRepository returns an empty in-process interaction log.
func NewMemoryInteractionRepository() InteractionRepository {
	return &memoryInteractionRepository{items: make(map[string][]domain.Interaction)}
}

func (r *memoryInteractionRepository) Insert(_ context.Context, interaction *domain.Interaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	interaction.Seq = r.seq
	r.items[interaction.TicketID] = append(r.items[interaction.TicketID], *interaction)
	return nil
}

func (r *memoryInteractionRepository) ListByTicket(_ context.Context, ticketID string) ([]domain.Interaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]domain.Interaction{}, r.items[ticketID]...), nil
}

type memorySupplierRepository struct {
	mu        sync.RWMutex
	clock     clock.Clock
	suppliers map[string]domain.Supplier
}

// NewMemorySupplierRepository returns an empty in-process supplier registry
// stamping timestamps from clk (the real clock when nil).
func NewMemorySupplierRepository(clk clock.Clock) SupplierRepository {
	if clk == nil {
		clk = clock.Real()
	}
	return &memorySupplierRepository{clock: clk, suppliers: make(map[string]domain.Supplier)}
}

func (r *memorySupplierRepository) Create(_ context.Context, supplier *domain.Supplier) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.suppliers[supplier.ID]; exists {
		return ErrSupplierExists
	}
	now := r.clock.Now()
	supplier.CreatedAt, supplier.UpdatedAt = now, now
	r.suppliers[supplier.ID] = *supplier
	return nil
}

func (r *memorySupplierRepository) Update(_ context.Context, supplier *domain.Supplier) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.suppliers[supplier.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	supplier.CreatedAt = existing.CreatedAt
	supplier.UpdatedAt = r.clock.Now()
	r.suppliers[supplier.ID] = *supplier
	return nil
}

func (r *memorySupplierRepository) Upsert(_ context.Context, supplier *domain.Supplier) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.clock.Now()
	supplier.CreatedAt = now
	if existing, ok := r.suppliers[supplier.ID]; ok {
		supplier.CreatedAt = existing.CreatedAt
	}
	supplier.UpdatedAt = now
	r.suppliers[supplier.ID] = *supplier
	return nil
}

func (r *memorySupplierRepository) GetByID(_ context.Context, id string) (*domain.Supplier, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	supplier, ok := r.suppliers[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &supplier, nil
}

func (r *memorySupplierRepository) ListActive(_ context.Context) ([]domain.Supplier, error) {
	r.mu.RLock()
	result := make([]domain.Supplier, 0, len(r.suppliers))
	for _, supplier := range r.suppliers {
		if supplier.Active {
			result = append(result, supplier)
		}
	}
	r.mu.RUnlock()
	sort.Slice(result, func(i, j int) bool {
		if result[i].Name != result[j].Name {
			return result[i].Name < result[j].Name
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}
