package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/support-desk/internal/domain"
)

// ChatRepository persists chat sessions and their append-only message log.
type ChatRepository interface {
	Create(ctx context.Context, chat *domain.ChatSession) error
	GetByID(ctx context.Context, id string) (*domain.ChatSession, error)
	List(ctx context.Context, filter ChatFilter) ([]domain.ChatSession, error)
	AppendMessage(ctx context.Context, chatID string, msg domain.ChatMessage) error
	// UpdateStatus applies change.NewStatus and records the audit entry atomically,
	// filling in OldStatus, ID and CreatedAt.
	UpdateStatus(ctx context.Context, change *domain.ChatStatusChange) error
	// MarkRead flags every message written by sender as read and returns how many changed.
	MarkRead(ctx context.Context, chatID string, sender domain.SenderSide) (int, error)
}

// ChatFilter narrows chat listings at the store level.
type ChatFilter struct {
	UserID     *string
	AssignedTo *string
	Statuses   []domain.ChatStatus
	// ByCreation orders by the immutable creation time, for callers that page
	// through the whole table while messages keep moving updated_at.
	ByCreation bool
	Limit      int
	Offset     int
}

type chatRepository struct {
	pool *pgxpool.Pool
}

// NewChatRepository builds repository.
func NewChatRepository(pool *pgxpool.Pool) ChatRepository {
	return &chatRepository{pool: pool}
}

const chatSelect = `
        SELECT c.id, c.user_id, c.assigned_to, c.subject, c.status, c.messages, c.created_at, c.updated_at,
               u.name, u.email, s.name
        FROM chat_sessions c
        JOIN users u ON u.id = c.user_id
        JOIN staff_members s ON s.id = c.assigned_to`

func (r *chatRepository) Create(ctx context.Context, chat *domain.ChatSession) error {
	if chat.Messages == nil {
		chat.Messages = []domain.ChatMessage{}
	}
	payload, err := json.Marshal(chat.Messages)
	if err != nil {
		return err
	}
	const query = `
        INSERT INTO chat_sessions (user_id, assigned_to, subject, status, messages)
        VALUES ($1,$2,$3,$4,$5::jsonb)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		chat.UserID,
		chat.AssignedTo,
		chat.Subject,
		chat.Status,
		string(payload),
	).Scan(&chat.ID, &chat.CreatedAt, &chat.UpdatedAt)
}

func (r *chatRepository) GetByID(ctx context.Context, id string) (*domain.ChatSession, error) {
	return scanChat(r.pool.QueryRow(ctx, chatSelect+` WHERE c.id=$1`, id))
}

func (r *chatRepository) List(ctx context.Context, filter ChatFilter) ([]domain.ChatSession, error) {
	query := chatSelect
	args := []any{}
	clauses := []string{}

	if filter.UserID != nil {
		args = append(args, *filter.UserID)
		clauses = append(clauses, fmt.Sprintf("c.user_id=$%d", len(args)))
	}
	if filter.AssignedTo != nil {
		args = append(args, *filter.AssignedTo)
		clauses = append(clauses, fmt.Sprintf("c.assigned_to=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, 0, len(filter.Statuses))
		for _, status := range filter.Statuses {
			statuses = append(statuses, string(status))
		}
		args = append(args, statuses)
		clauses = append(clauses, fmt.Sprintf("c.status = ANY($%d)", len(args)))
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}

	if filter.ByCreation {
		query += " ORDER BY c.created_at DESC, c.id DESC"
	} else {
		query += " ORDER BY c.updated_at DESC, c.id DESC"
	}
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

	var result []domain.ChatSession
	for rows.Next() {
		chat, err := scanChat(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *chat)
	}
	return result, rows.Err()
}

func (r *chatRepository) AppendMessage(ctx context.Context, chatID string, msg domain.ChatMessage) error {
	payload, err := json.Marshal([]domain.ChatMessage{msg})
	if err != nil {
		return err
	}
	const query = `
        UPDATE chat_sessions
        SET messages = messages || $2::jsonb, updated_at=NOW()
        WHERE id=$1`
	cmd, err := r.pool.Exec(ctx, query, chatID, string(payload))
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *chatRepository) UpdateStatus(ctx context.Context, change *domain.ChatStatusChange) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		var old string
		err := tx.QueryRow(ctx, `SELECT status FROM chat_sessions WHERE id=$1 FOR UPDATE`, change.ChatID).Scan(&old)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `UPDATE chat_sessions SET status=$2, updated_at=NOW() WHERE id=$1`,
			change.ChatID, string(change.NewStatus)); err != nil {
			return err
		}
		change.OldStatus = domain.ChatStatus(old)
		return tx.QueryRow(ctx, insertStatusChangeSQL,
			change.ChatID,
			change.ChangedBy,
			string(change.OldStatus),
			string(change.NewStatus),
		).Scan(&change.ID, &change.CreatedAt)
	})
}

func (r *chatRepository) MarkRead(ctx context.Context, chatID string, sender domain.SenderSide) (int, error) {
	const query = `
        WITH target AS (
            SELECT id, messages FROM chat_sessions WHERE id=$1 FOR UPDATE
        ), changed AS (
            SELECT COUNT(*) AS n
            FROM target, jsonb_array_elements(target.messages) AS m(elem)
            WHERE m.elem->>'sender' = $2 AND NOT COALESCE((m.elem->>'read')::boolean, FALSE)
        ), updated AS (
            UPDATE chat_sessions c
            SET messages = COALESCE((
                    SELECT jsonb_agg(
                        CASE WHEN m.elem->>'sender' = $2
                             THEN jsonb_set(m.elem, '{read}', 'true'::jsonb)
                             ELSE m.elem END
                        ORDER BY m.idx)
                    FROM target, jsonb_array_elements(target.messages) WITH ORDINALITY AS m(elem, idx)
                ), '[]'::jsonb)
            FROM target
            WHERE c.id = target.id
            RETURNING c.id
        )
        SELECT (SELECT n FROM changed), (SELECT COUNT(*) FROM updated)`

	var changed, rowsUpdated int64
	if err := r.pool.QueryRow(ctx, query, chatID, string(sender)).Scan(&changed, &rowsUpdated); err != nil {
		return 0, err
	}
	if rowsUpdated == 0 {
		return 0, pgx.ErrNoRows
	}
	return int(changed), nil
}

func scanChat(row pgx.Row) (*domain.ChatSession, error) {
	var (
		chat     domain.ChatSession
		messages []byte
	)
	if err := row.Scan(
		&chat.ID,
		&chat.UserID,
		&chat.AssignedTo,
		&chat.Subject,
		&chat.Status,
		&messages,
		&chat.CreatedAt,
		&chat.UpdatedAt,
		&chat.UserName,
		&chat.UserEmail,
		&chat.StaffName,
	); err != nil {
		return nil, err
	}
	chat.Messages = []domain.ChatMessage{}
	if len(messages) > 0 {
		if err := json.Unmarshal(messages, &chat.Messages); err != nil {
			return nil, fmt.Errorf("decode chat messages: %w", err)
		}
	}
	return &chat, nil
}
