package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/asset-desk/internal/domain"
	"github.com/spec-kit/asset-desk/internal/repository"
)

type fakeTicketRepo struct {
	mu        sync.Mutex
	tickets   map[string]domain.Ticket
	updates   []repository.TicketFields
	insertErr error
	updateErr error
	getErr    error
}

func newFakeTicketRepo() *fakeTicketRepo {
	return &fakeTicketRepo{tickets: map[string]domain.Ticket{}}
}

func (r *fakeTicketRepo) Insert(_ context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.insertErr != nil {
		return r.insertErr
	}
	stored := *ticket
	stored.Interactions = nil
	r.tickets[ticket.ID] = stored
	return nil
}

func (r *fakeTicketRepo) UpdateByID(_ context.Context, id string, fields repository.TicketFields) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updateErr != nil {
		return r.updateErr
	}
	ticket, ok := r.tickets[id]
	if !ok {
		return pgx.ErrNoRows
	}
	for column, value := range fields {
		switch column {
		case repository.ColumnTitle:
			ticket.Title = value.(string)
		case repository.ColumnDescription:
			ticket.Description = value.(string)
		case repository.ColumnSupplierID:
			ticket.SupplierID = value.(string)
		case repository.ColumnType:
			ticket.Type = value.(domain.TicketType)
		case repository.ColumnStatus:
			ticket.Status = value.(domain.TicketStatus)
		case repository.ColumnPriority:
			ticket.Priority = value.(domain.TicketPriority)
		case repository.ColumnUnit:
			ticket.Unit = value.(string)
		case repository.ColumnRelatedAssetID:
			ticket.RelatedAssetID = value.(*string)
		case repository.ColumnExternalProtocol:
			ticket.ExternalProtocol = value.(*string)
		case repository.ColumnSupplierContact:
			ticket.SupplierContact = value.(*string)
		case repository.ColumnOwnerID:
			ticket.OwnerID = value.(string)
		case repository.ColumnOwnerName:
			ticket.OwnerName = value.(string)
		case repository.ColumnUpdatedAt:
			ticket.UpdatedAt = value.(time.Time)
		case repository.ColumnResolvedAt:
			ticket.ResolvedAt = value.(*time.Time)
		default:
			return fmt.Errorf("column %q is not writable", column)
		}
	}
	r.tickets[id] = ticket
	r.updates = append(r.updates, fields)
	return nil
}

func (r *fakeTicketRepo) DeleteByID(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tickets[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.tickets, id)
	return nil
}

func (r *fakeTicketRepo) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.getErr != nil {
		return nil, r.getErr
	}
	ticket, ok := r.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &ticket, nil
}

func (r *fakeTicketRepo) ListOrderedByCreation(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Ticket
	for _, ticket := range r.tickets {
		if filter.SupplierID != nil && ticket.SupplierID != *filter.SupplierID {
			continue
		}
		if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, ticket.Status) {
			continue
		}
		out = append(out, ticket)
	}
	sort.Slice(out, func(i, j int) bool {
		if filter.Ascending {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r *fakeTicketRepo) stored(id string) domain.Ticket {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.tickets[id]
}

func containsStatus(list []domain.TicketStatus, status domain.TicketStatus) bool {
	for _, candidate := range list {
		if candidate == status {
			return true
		}
	}
	return false
}

type fakeInteractionRepo struct {
	mu        sync.Mutex
	items     []domain.Interaction
	seq       int64
	insertErr error
}

func (r *fakeInteractionRepo) Insert(_ context.Context, interaction *domain.Interaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.insertErr != nil {
		return r.insertErr
	}
	r.seq++
	interaction.Seq = r.seq
	r.items = append(r.items, *interaction)
	return nil
}

func (r *fakeInteractionRepo) ListByTicket(_ context.Context, ticketID string) ([]domain.Interaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Interaction
	for _, item := range r.items {
		if item.TicketID == ticketID {
			out = append(out, item)
		}
	}
	return out, nil
}

func (r *fakeInteractionRepo) count(ticketID string) int {
	items, _ := r.ListByTicket(context.Background(), ticketID)
	return len(items)
}

type fakeSupplierRepo struct {
	mu        sync.Mutex
	suppliers map[string]domain.Supplier
	gets      int
	getErr    error
}

func newFakeSupplierRepo(suppliers ...domain.Supplier) *fakeSupplierRepo {
	repo := &fakeSupplierRepo{suppliers: map[string]domain.Supplier{}}
	for _, s := range suppliers {
		repo.suppliers[s.ID] = s
	}
	return repo
}

func (r *fakeSupplierRepo) Create(_ context.Context, supplier *domain.Supplier) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.suppliers[supplier.ID]; ok {
		return repository.ErrSupplierExists
	}
	r.suppliers[supplier.ID] = *supplier
	return nil
}

func (r *fakeSupplierRepo) Update(_ context.Context, supplier *domain.Supplier) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.suppliers[supplier.ID]; !ok {
		return pgx.ErrNoRows
	}
	r.suppliers[supplier.ID] = *supplier
	return nil
}

func (r *fakeSupplierRepo) Upsert(_ context.Context, supplier *domain.Supplier) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.suppliers[supplier.ID] = *supplier
	return nil
}

func (r *fakeSupplierRepo) GetByID(_ context.Context, id string) (*domain.Supplier, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gets++
	if r.getErr != nil {
		return nil, r.getErr
	}
	supplier, ok := r.suppliers[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &supplier, nil
}

func (r *fakeSupplierRepo) ListActive(_ context.Context) ([]domain.Supplier, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Supplier
	for _, s := range r.suppliers {
		if s.Active {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

type fakeSupplierCache struct {
	mu          sync.Mutex
	entries     map[string]domain.Supplier
	invalidated []string
}

func newFakeSupplierCache() *fakeSupplierCache {
	return &fakeSupplierCache{entries: map[string]domain.Supplier{}}
}

func (c *fakeSupplierCache) Get(_ context.Context, id string) (*domain.Supplier, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	supplier, ok := c.entries[id]
	if !ok {
		return nil, nil
	}
	return &supplier, nil
}

func (c *fakeSupplierCache) Set(_ context.Context, supplier *domain.Supplier, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[supplier.ID] = *supplier
	return nil
}

func (c *fakeSupplierCache) Invalidate(_ context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, id)
	c.invalidated = append(c.invalidated, id)
	return nil
}
