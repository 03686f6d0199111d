package agencies

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-crm/meridian-crm/internal/platform/db"
)

// Repository provides PostgreSQL backed persistence for agencies.
type Repository interface {
	Get(ctx context.Context, id uuid.UUID) (*Agency, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]Agency, error)
	CreateWithOwner(ctx context.Context, name string, ownerUserID uuid.UUID) (*Agency, error)
	IsMember(ctx context.Context, userID, agencyID uuid.UUID) (bool, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) Get(ctx context.Context, id uuid.UUID) (*Agency, error) {
	var a Agency
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, created_at FROM agencies WHERE id = $1`, id).
		Scan(&a.ID, &a.Name, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

func (r *repository) ListForUser(ctx context.Context, userID uuid.UUID) ([]Agency, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT a.id, a.name, a.created_at
		 FROM agencies a
		 JOIN members m ON m.agency_id = a.id
		 WHERE m.user_id = $1
		 ORDER BY a.created_at`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Agency
	for rows.Next() {
		var a Agency
		if err := rows.Scan(&a.ID, &a.Name, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// CreateWithOwner inserts the agency and seats the creating user as its
// owner in one transaction. An agency can never exist without an owner.
func (r *repository) CreateWithOwner(ctx context.Context, name string, ownerUserID uuid.UUID) (*Agency, error) {
	agencyID := uuid.New()
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`INSERT INTO agencies (id, name, created_at) VALUES ($1, $2, NOW())`,
			agencyID, name); err != nil {
			return err
		}
		_, err := tx.Exec(ctx,
			`INSERT INTO members (id, user_id, agency_id, member_type, created_at) VALUES ($1, $2, $3, 'owner', NOW())`,
			uuid.New(), ownerUserID, agencyID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return r.Get(ctx, agencyID)
}

func (r *repository) IsMember(ctx context.Context, userID, agencyID uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM members WHERE user_id = $1 AND agency_id = $2)`,
		userID, agencyID).Scan(&exists)
	return exists, err
}
