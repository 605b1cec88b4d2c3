package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/helpdex/helpdex/internal/domain"
)

// AttachmentRepository links pre-uploaded attachments to tickets. Upload and
// storage themselves are external.
type AttachmentRepository interface {
	LinkToTicket(ctx context.Context, ticketID string, attachmentIDs []string) error
	ListByTicket(ctx context.Context, ticketID string) ([]domain.Attachment, error)
}

type attachmentRepository struct {
	pool *pgxpool.Pool
}

// NewAttachmentRepository instantiates repository.
func NewAttachmentRepository(pool *pgxpool.Pool) AttachmentRepository {
	return &attachmentRepository{pool: pool}
}

func (r *attachmentRepository) LinkToTicket(ctx context.Context, ticketID string, attachmentIDs []string) error {
	if len(attachmentIDs) == 0 {
		return nil
	}
	const query = `UPDATE attachments SET ticket_id=$1 WHERE id = ANY($2) AND ticket_id IS NULL`
	_, err := r.pool.Exec(ctx, query, ticketID, attachmentIDs)
	return err
}

func (r *attachmentRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.Attachment, error) {
	const query = `
        SELECT id, ticket_id, uploaded_by, file_name, storage_key, mime_type, size_bytes, created_at
        FROM attachments WHERE ticket_id=$1 ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Attachment
	for rows.Next() {
		var att domain.Attachment
		if err := rows.Scan(
			&att.ID,
			&att.TicketID,
			&att.UploadedBy,
			&att.FileName,
			&att.StorageKey,
			&att.MimeType,
			&att.SizeBytes,
			&att.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, att)
	}
	return result, rows.Err()
}
