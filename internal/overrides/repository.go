package overrides

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-crm/meridian-crm/internal/permissions"
)

// Repository provides PostgreSQL backed persistence for member overrides.
type Repository interface {
	ListByMember(ctx context.Context, memberID uuid.UUID) ([]MemberOverride, error)
	MapByMember(ctx context.Context, memberID uuid.UUID) (map[string]permissions.Override, error)
	Upsert(ctx context.Context, override MemberOverride) error
	Delete(ctx context.Context, memberID uuid.UUID, permissionKey string) error
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) ListByMember(ctx context.Context, memberID uuid.UUID) ([]MemberOverride, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT member_id, permission_key, value, reason, created_by, created_at, updated_at
		 FROM member_permission_overrides
		 WHERE member_id = $1
		 ORDER BY permission_key`, memberID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []MemberOverride
	for rows.Next() {
		var o MemberOverride
		if err := rows.Scan(&o.MemberID, &o.PermissionKey, &o.Value, &o.Reason, &o.CreatedBy, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// MapByMember returns the overrides keyed by permission key, the shape the
// resolver merges on top of role grants.
func (r *repository) MapByMember(ctx context.Context, memberID uuid.UUID) (map[string]permissions.Override, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT permission_key, value, reason FROM member_permission_overrides WHERE member_id = $1`, memberID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]permissions.Override)
	for rows.Next() {
		var (
			key string
			o   permissions.Override
		)
		if err := rows.Scan(&key, &o.Value, &o.Reason); err != nil {
			return nil, err
		}
		out[key] = o
	}
	return out, rows.Err()
}

func (r *repository) Upsert(ctx context.Context, override MemberOverride) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO member_permission_overrides (member_id, permission_key, value, reason, created_by, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		 ON CONFLICT (member_id, permission_key)
		 DO UPDATE SET value = EXCLUDED.value, reason = EXCLUDED.reason, created_by = EXCLUDED.created_by, updated_at = NOW()`,
		override.MemberID, override.PermissionKey, override.Value, override.Reason, override.CreatedBy)
	return err
}

func (r *repository) Delete(ctx context.Context, memberID uuid.UUID, permissionKey string) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM member_permission_overrides WHERE member_id = $1 AND permission_key = $2`,
		memberID, permissionKey)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
