package repository

import (
	"context"
	"time"

	"github.com/eckinger/uchomp/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type VerifyRepository interface {
	// Upsert stores the single live code for an email, overwriting any
	// prior unconsumed code.
	Upsert(ctx context.Context, email, codeHash string, createdAt time.Time) error
	Get(ctx context.Context, email string) (*domain.VerificationCode, error)
	// Consume deletes the live code. Exactly one concurrent caller observes
	// true; the rest see false.
	Consume(ctx context.Context, email string) (bool, error)
}

type verifyRepository struct {
	pool *pgxpool.Pool
}

func NewVerifyRepository(pool *pgxpool.Pool) VerifyRepository {
	return &verifyRepository{pool: pool}
}

func (r *verifyRepository) Upsert(ctx context.Context, email, codeHash string, createdAt time.Time) error {
	const q = `
		INSERT INTO verification_codes (email, code_hash, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (email) DO UPDATE
		SET code_hash = EXCLUDED.code_hash, created_at = EXCLUDED.created_at`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	_, err := r.pool.Exec(ctx, q, email, codeHash, createdAt)
	return err
}

func (r *verifyRepository) Get(ctx context.Context, email string) (*domain.VerificationCode, error) {
	const q = `SELECT email, code_hash, created_at FROM verification_codes WHERE email = $1`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var c domain.VerificationCode
	err := r.pool.QueryRow(ctx, q, email).Scan(&c.Email, &c.CodeHash, &c.CreatedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *verifyRepository) Consume(ctx context.Context, email string) (bool, error) {
	const q = `DELETE FROM verification_codes WHERE email = $1`

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	result, err := r.pool.Exec(ctx, q, email)
	if err != nil {
		return false, err
	}
	return result.RowsAffected() > 0, nil
}
