package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/asset-desk/internal/domain"
)

// InteractionRepository stores the append-only ticket timeline.
type InteractionRepository interface {
	Insert(ctx context.Context, interaction *domain.Interaction) error
	ListByTicket(ctx context.Context, ticketID string) ([]domain.Interaction, error)
}

type interactionRepository struct {
	pool *pgxpool.Pool
}

// NewInteractionRepository builds repository.
func NewInteractionRepository(pool *pgxpool.Pool) InteractionRepository {
	return &interactionRepository{pool: pool}
}

func (r *interactionRepository) Insert(ctx context.Context, interaction *domain.Interaction) error {
	const query = `
        INSERT INTO ticket_interactions (id, ticket_id, author_id, author_name, message, type, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING seq`
	return r.pool.QueryRow(ctx, query,
		interaction.ID,
		interaction.TicketID,
		interaction.AuthorID,
		interaction.AuthorName,
		interaction.Message,
		interaction.Type,
		interaction.CreatedAt,
	).Scan(&interaction.Seq)
}

func (r *interactionRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.Interaction, error) {
	const query = `
        SELECT id, ticket_id, seq, author_id, author_name, message, type, created_at
        FROM ticket_interactions WHERE ticket_id=$1 ORDER BY seq ASC`
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Interaction
	for rows.Next() {
		var interaction domain.Interaction
		if err := rows.Scan(
			&interaction.ID,
			&interaction.TicketID,
			&interaction.Seq,
			&interaction.AuthorID,
			&interaction.AuthorName,
			&interaction.Message,
			&interaction.Type,
			&interaction.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, interaction)
	}
	return result, rows.Err()
}
