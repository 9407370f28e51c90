package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/asset-desk/internal/domain"
)

// TicketColumn names a column that may be written after creation.
type TicketColumn string

const (
	ColumnTitle            TicketColumn = "title"
	ColumnDescription      TicketColumn = "description"
	ColumnSupplierID       TicketColumn = "supplier_id"
	ColumnType             TicketColumn = "type"
	ColumnStatus           TicketColumn = "status"
	ColumnPriority         TicketColumn = "priority"
	ColumnUnit             TicketColumn = "unit"
	ColumnRelatedAssetID   TicketColumn = "related_asset_id"
	ColumnExternalProtocol TicketColumn = "external_protocol"
	ColumnSupplierContact  TicketColumn = "supplier_contact"
	ColumnOwnerID          TicketColumn = "owner_id"
	ColumnOwnerName        TicketColumn = "owner_name"
	ColumnUpdatedAt        TicketColumn = "updated_at"
	ColumnResolvedAt       TicketColumn = "resolved_at"
)

// writableColumns excludes id, created_at and sla_deadline, which are fixed at insert.
var writableColumns = map[TicketColumn]struct{}{
	ColumnTitle: {}, ColumnDescription: {}, ColumnSupplierID: {}, ColumnType: {},
	ColumnStatus: {}, ColumnPriority: {}, ColumnUnit: {}, ColumnRelatedAssetID: {},
	ColumnExternalProtocol: {}, ColumnSupplierContact: {}, ColumnOwnerID: {},
	ColumnOwnerName: {}, ColumnUpdatedAt: {}, ColumnResolvedAt: {},
}

// TicketFields is a partial update keyed by column.
type TicketFields map[TicketColumn]any

// TicketFilter narrows ticket listings.
type TicketFilter struct {
	Statuses   []domain.TicketStatus
	Priorities []domain.TicketPriority
	SupplierID *string
	OwnerID    *string
	Ascending  bool
	Limit      int
	Offset     int
}

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Insert(ctx context.Context, ticket *domain.Ticket) error
	UpdateByID(ctx context.Context, id string, fields TicketFields) error
	DeleteByID(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	ListOrderedByCreation(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `id, title, description, supplier_id, type, status, priority, unit,
               related_asset_id, external_protocol, supplier_contact, owner_id, owner_name,
               sla_deadline, created_at, updated_at, resolved_at`

func (r *ticketRepository) Insert(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (id, title, description, supplier_id, type, status, priority, unit,
            related_asset_id, external_protocol, supplier_contact, owner_id, owner_name,
            sla_deadline, created_at, updated_at, resolved_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)`
	_, err := r.pool.Exec(ctx, query,
		ticket.ID,
		ticket.Title,
		ticket.Description,
		nullIfEmpty(ticket.SupplierID),
		ticket.Type,
		ticket.Status,
		ticket.Priority,
		ticket.Unit,
		ticket.RelatedAssetID,
		ticket.ExternalProtocol,
		ticket.SupplierContact,
		ticket.OwnerID,
		ticket.OwnerName,
		ticket.SLADeadline,
		ticket.CreatedAt,
		ticket.UpdatedAt,
		ticket.ResolvedAt,
	)
	return err
}

func (r *ticketRepository) UpdateByID(ctx context.Context, id string, fields TicketFields) error {
	query, args, err := buildTicketUpdate(id, fields)
	if err != nil {
		return err
	}
	cmd, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// buildTicketUpdate renders an UPDATE for the given columns in a stable order.
func buildTicketUpdate(id string, fields TicketFields) (string, []any, error) {
	if len(fields) == 0 {
		return "", nil, fmt.Errorf("update ticket %s: no fields", id)
	}
	columns := make([]string, 0, len(fields))
	for column := range fields {
		if _, ok := writableColumns[column]; !ok {
			return "", nil, fmt.Errorf("update ticket %s: column %q is not writable", id, column)
		}
		columns = append(columns, string(column))
	}
	sort.Strings(columns)

	sets := make([]string, 0, len(columns))
	args := make([]any, 0, len(columns)+1)
	for _, column := range columns {
		value := fields[TicketColumn(column)]
		if TicketColumn(column) == ColumnSupplierID {
			if s, ok := value.(string); ok {
				value = nullIfEmpty(s)
			}
		}
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s=$%d", column, len(args)))
	}
	args = append(args, id)
	query := fmt.Sprintf("UPDATE tickets SET %s WHERE id=$%d", strings.Join(sets, ", "), len(args))
	return query, args, nil
}

func (r *ticketRepository) DeleteByID(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM tickets WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1`
	ticket, err := scanTicket(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, err
	}
	return ticket, nil
}

func (r *ticketRepository) ListOrderedByCreation(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	query, args := buildTicketList(filter)
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Ticket
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *ticket)
	}
	return result, rows.Err()
}

func buildTicketList(filter TicketFilter) (string, []any) {
	clauses := []string{"1=1"}
	args := []any{}

	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Priorities) > 0 {
		placeholders := make([]string, len(filter.Priorities))
		for i, pr := range filter.Priorities {
			args = append(args, pr)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("priority IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.SupplierID != nil {
		args = append(args, *filter.SupplierID)
		clauses = append(clauses, fmt.Sprintf("supplier_id=$%d", len(args)))
	}
	if filter.OwnerID != nil {
		args = append(args, *filter.OwnerID)
		clauses = append(clauses, fmt.Sprintf("owner_id=$%d", len(args)))
	}

	limit, offset := normalizePage(filter.Limit, filter.Offset)
	direction := "DESC"
	if filter.Ascending {
		direction = "ASC"
	}

	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE %s ORDER BY created_at %s, id %s LIMIT %d OFFSET %d`,
		ticketColumns, strings.Join(clauses, " AND "), direction, direction, limit, offset)
	return query, args
}

const defaultListLimit = 50

func normalizePage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var (
		ticket     domain.Ticket
		supplierID *string
	)
	if err := row.Scan(
		&ticket.ID,
		&ticket.Title,
		&ticket.Description,
		&supplierID,
		&ticket.Type,
		&ticket.Status,
		&ticket.Priority,
		&ticket.Unit,
		&ticket.RelatedAssetID,
		&ticket.ExternalProtocol,
		&ticket.SupplierContact,
		&ticket.OwnerID,
		&ticket.OwnerName,
		&ticket.SLADeadline,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
		&ticket.ResolvedAt,
	); err != nil {
		return nil, err
	}
	if supplierID != nil {
		ticket.SupplierID = *supplierID
	}
	return &ticket, nil
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
