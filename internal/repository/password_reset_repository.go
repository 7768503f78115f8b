package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/support-desk/internal/domain"
)

// PasswordResetRepository stores pending password resets keyed by token digest.
type PasswordResetRepository interface {
	Create(ctx context.Context, reset *domain.PasswordReset) error
	GetByDigest(ctx context.Context, digest string) (*domain.PasswordReset, error)
	// Consume marks an unused, unexpired reset as used. A reset that was
	// already redeemed or has expired yields pgx.ErrNoRows.
	Consume(ctx context.Context, id string) error
}

type passwordResetRepository struct {
	pool *pgxpool.Pool
}

// NewPasswordResetRepository constructs repository.
func NewPasswordResetRepository(pool *pgxpool.Pool) PasswordResetRepository {
	return &passwordResetRepository{pool: pool}
}

func (r *passwordResetRepository) Create(ctx context.Context, reset *domain.PasswordReset) error {
	const query = `
        INSERT INTO password_reset_tokens (subject_type, subject_id, token_digest, expires_at)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		string(reset.SubjectType),
		reset.SubjectID,
		reset.TokenDigest,
		reset.ExpiresAt,
	).Scan(&reset.ID, &reset.CreatedAt)
}

func (r *passwordResetRepository) GetByDigest(ctx context.Context, digest string) (*domain.PasswordReset, error) {
	const query = `
        SELECT id, subject_type, subject_id, token_digest, expires_at, used_at, created_at
        FROM password_reset_tokens WHERE token_digest=$1`
	var (
		reset       domain.PasswordReset
		subjectType string
	)
	if err := r.pool.QueryRow(ctx, query, digest).Scan(
		&reset.ID,
		&subjectType,
		&reset.SubjectID,
		&reset.TokenDigest,
		&reset.ExpiresAt,
		&reset.UsedAt,
		&reset.CreatedAt,
	); err != nil {
		return nil, err
	}
	reset.SubjectType = domain.SubjectType(subjectType)
	return &reset, nil
}

func (r *passwordResetRepository) Consume(ctx context.Context, id string) error {
	const query = `
        UPDATE password_reset_tokens SET used_at=NOW()
        WHERE id=$1 AND used_at IS NULL AND expires_at > NOW()`
	cmd, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
