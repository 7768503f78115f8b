package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/support-desk/internal/domain"
)

// insertStatusChangeSQL is run by ChatRepository.UpdateStatus inside its transaction.
const insertStatusChangeSQL = `
        INSERT INTO chat_status_history (chat_id, changed_by, old_status, new_status)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at`

// ChatHistoryRepository reads status audit entries.
type ChatHistoryRepository interface {
	ListByChat(ctx context.Context, chatID string) ([]domain.ChatStatusChange, error)
}

type chatHistoryRepository struct {
	pool *pgxpool.Pool
}

// NewChatHistoryRepository builds repository.
func NewChatHistoryRepository(pool *pgxpool.Pool) ChatHistoryRepository {
	return &chatHistoryRepository{pool: pool}
}

func (r *chatHistoryRepository) ListByChat(ctx context.Context, chatID string) ([]domain.ChatStatusChange, error) {
	const query = `
        SELECT id, chat_id, changed_by, old_status, new_status, created_at
        FROM chat_status_history WHERE chat_id=$1 ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, query, chatID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.ChatStatusChange
	for rows.Next() {
		var change domain.ChatStatusChange
		if err := rows.Scan(
			&change.ID,
			&change.ChatID,
			&change.ChangedBy,
			&change.OldStatus,
			&change.NewStatus,
			&change.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, change)
	}
	return result, rows.Err()
}
