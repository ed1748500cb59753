package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cityflow/crm/internal/domain"
)

// CommentRepository manages ticket comment threads.
type CommentRepository interface {
	Create(ctx context.Context, comment *domain.Comment) error
	GetByID(ctx context.Context, id string) (*domain.Comment, error)
	ListByTicket(ctx context.Context, ticketID string) ([]domain.Comment, error)
}

type commentRepository struct {
	pool *pgxpool.Pool
}

// NewCommentRepository builds repository.
func NewCommentRepository(pool *pgxpool.Pool) CommentRepository {
	return &commentRepository{pool: pool}
}

func (r *commentRepository) Create(ctx context.Context, comment *domain.Comment) error {
	const query = `
        INSERT INTO ticket_comments (ticket_id, parent_id, author_id, body, is_internal)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		comment.TicketID,
		comment.ParentID,
		comment.AuthorID,
		comment.Body,
		comment.IsInternal,
	).Scan(&comment.ID, &comment.CreatedAt)
}

func (r *commentRepository) GetByID(ctx context.Context, id string) (*domain.Comment, error) {
	const query = `
        SELECT id, ticket_id, parent_id, author_id, body, is_internal, created_at
        FROM ticket_comments WHERE id=$1`
	var c domain.Comment
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&c.ID, &c.TicketID, &c.ParentID, &c.AuthorID, &c.Body, &c.IsInternal, &c.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *commentRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.Comment, error) {
	const query = `
        SELECT id, ticket_id, parent_id, author_id, body, is_internal, created_at
        FROM ticket_comments WHERE ticket_id=$1 ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Comment
	for rows.Next() {
		var c domain.Comment
		if err := rows.Scan(
			&c.ID,
			&c.TicketID,
			&c.ParentID,
			&c.AuthorID,
			&c.Body,
			&c.IsInternal,
			&c.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	return result, rows.Err()
}
