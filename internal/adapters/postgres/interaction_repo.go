package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/MATTHEWPURBA/Memory-Lane-Backend/internal/core/domain"
)

// InteractionRepo implements ports.InteractionRepository with pgx.
type InteractionRepo struct {
	db *DB
}

// NewInteractionRepo creates a new InteractionRepo.
func NewInteractionRepo(db *DB) *InteractionRepo {
	return &InteractionRepo{db: db}
}

// Create records one interaction. A unique-violation on the one-like-per-user
// index surfaces as ErrInvalidParameter so concurrent duplicate likes fail
// the same way the application-level check does.
func (r *InteractionRepo) Create(ctx context.Context, in *domain.Interaction) error {
	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO interactions (id, memory_id, user_id, interaction_type, content, created_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6)
	`, in.ID, in.MemoryID, in.UserID, in.Type, in.Content, in.CreatedAt)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%w: memory already liked", domain.ErrInvalidParameter)
	}
	return err
}

// HasInteracted reports whether the user already has an interaction of the
// given type on the memory. Used to reject duplicate likes.
func (r *InteractionRepo) HasInteracted(ctx context.Context, userID, memoryID string, t domain.InteractionType) (bool, error) {
	var exists bool
	err := r.db.Pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM interactions
			WHERE user_id = $1 AND memory_id = $2 AND interaction_type = $3
		)
	`, userID, memoryID, t).Scan(&exists)
	return exists, err
}
