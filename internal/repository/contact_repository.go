package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/support-desk/internal/domain"
)

// ContactRepository persists contact form submissions.
type ContactRepository interface {
	Create(ctx context.Context, contact *domain.ContactMessage) error
	GetByID(ctx context.Context, id string) (*domain.ContactMessage, error)
	List(ctx context.Context, filter ContactFilter) ([]domain.ContactMessage, error)
	// MarkReplied records the reply once. It returns pgx.ErrNoRows when the
	// contact does not exist or was already answered.
	MarkReplied(ctx context.Context, id, staffID, body string) (*domain.ContactMessage, error)
}

// ContactFilter narrows contact listings.
type ContactFilter struct {
	Replied *bool
	Limit   int
	Offset  int
}

type contactRepository struct {
	pool *pgxpool.Pool
}

// NewContactRepository builds repository.
func NewContactRepository(pool *pgxpool.Pool) ContactRepository {
	return &contactRepository{pool: pool}
}

const contactColumns = `id, name, email, phone, service, message, replied, reply_body, replied_at, replied_by, created_at, updated_at`

func (r *contactRepository) Create(ctx context.Context, contact *domain.ContactMessage) error {
	const query = `
        INSERT INTO contact_messages (name, email, phone, service, message)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, replied, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		contact.Name,
		contact.Email,
		contact.Phone,
		contact.Service,
		contact.Message,
	).Scan(&contact.ID, &contact.Replied, &contact.CreatedAt, &contact.UpdatedAt)
}

func (r *contactRepository) GetByID(ctx context.Context, id string) (*domain.ContactMessage, error) {
	query := `SELECT ` + contactColumns + ` FROM contact_messages WHERE id=$1`
	return scanContact(r.pool.QueryRow(ctx, query, id))
}

func (r *contactRepository) List(ctx context.Context, filter ContactFilter) ([]domain.ContactMessage, error) {
	query := `SELECT ` + contactColumns + ` FROM contact_messages`
	args := []any{}
	if filter.Replied != nil {
		args = append(args, *filter.Replied)
		query += fmt.Sprintf(" WHERE replied=$%d", len(args))
	}
	query += " ORDER BY created_at DESC, id DESC"
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	query += fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.ContactMessage
	for rows.Next() {
		contact, err := scanContact(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *contact)
	}
	return result, rows.Err()
}

func (r *contactRepository) MarkReplied(ctx context.Context, id, staffID, body string) (*domain.ContactMessage, error) {
	query := `
        UPDATE contact_messages
        SET replied=TRUE, reply_body=$2, replied_at=NOW(), replied_by=$3, updated_at=NOW()
        WHERE id=$1 AND replied=FALSE
        RETURNING ` + contactColumns
	return scanContact(r.pool.QueryRow(ctx, query, id, body, staffID))
}

func scanContact(row pgx.Row) (*domain.ContactMessage, error) {
	var contact domain.ContactMessage
	if err := row.Scan(
		&contact.ID,
		&contact.Name,
		&contact.Email,
		&contact.Phone,
		&contact.Service,
		&contact.Message,
		&contact.Replied,
		&contact.ReplyBody,
		&contact.RepliedAt,
		&contact.RepliedBy,
		&contact.CreatedAt,
		&contact.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &contact, nil
}
