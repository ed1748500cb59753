package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cityflow/crm/internal/domain"
)

// AttachmentRepository persists attachment metadata. The bytes live in object storage and
// are written first; a failed Create leaves an orphan object for the caller to remove.
type AttachmentRepository interface {
	Create(ctx context.Context, attachment *domain.Attachment) error
	ListByTicket(ctx context.Context, ticketID string) ([]domain.Attachment, error)
}

type attachmentRepository struct {
	pool *pgxpool.Pool
}

func NewAttachmentRepository(pool *pgxpool.Pool) AttachmentRepository {
	return &attachmentRepository{pool: pool}
}

func (r *attachmentRepository) Create(ctx context.Context, a *domain.Attachment) error {
	return r.pool.QueryRow(ctx, `
        INSERT INTO ticket_attachments
            (ticket_id, comment_id, storage_path, url, file_name, mime_type, size_bytes, uploaded_by)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        RETURNING id, created_at`,
		a.TicketID, a.CommentID, a.StoragePath, a.URL, a.FileName, a.MimeType, a.SizeBytes, a.UploadedBy,
	).Scan(&a.ID, &a.CreatedAt)
}

// ListByTicket returns the ticket's files, including those attached to comments, oldest first.
func (r *attachmentRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.Attachment, error) {
	rows, err := r.pool.Query(ctx, `
        SELECT id, ticket_id, comment_id, storage_path, url, file_name, mime_type, size_bytes,
               uploaded_by, created_at
        FROM ticket_attachments
        WHERE ticket_id = $1
        ORDER BY created_at, id`, ticketID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Attachment, error) {
		var a domain.Attachment
		err := row.Scan(&a.ID, &a.TicketID, &a.CommentID, &a.StoragePath, &a.URL,
			&a.FileName, &a.MimeType, &a.SizeBytes, &a.UploadedBy, &a.CreatedAt)
		return a, err
	})
}
