package roles

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-crm/meridian-crm/internal/permissions"
)

// Repository provides PostgreSQL backed persistence for roles and role
// assignments. Permission and section maps live in jsonb columns.
type Repository interface {
	Get(ctx context.Context, id uuid.UUID) (*Role, error)
	ListByAgency(ctx context.Context, agencyID uuid.UUID) ([]Role, error)
	Create(ctx context.Context, role Role) (uuid.UUID, error)
	Update(ctx context.Context, role Role) error
	Delete(ctx context.Context, id uuid.UUID) error
	AssignToMember(ctx context.Context, roleID, memberID uuid.UUID) error
	UnassignFromMember(ctx context.Context, roleID, memberID uuid.UUID) error
	ListMemberRoles(ctx context.Context, memberID uuid.UUID) ([]permissions.RoleGrant, error)
	RefreshUsageCounts(ctx context.Context) (int64, error)
}

const roleColumns = `id, agency_id, name, color, icon, permissions, section_access, position, member_count, created_at, updated_at`

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) Get(ctx context.Context, id uuid.UUID) (*Role, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+roleColumns+` FROM roles WHERE id = $1`, id)
	return scanRole(row)
}

func (r *repository) ListByAgency(ctx context.Context, agencyID uuid.UUID) ([]Role, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+roleColumns+` FROM roles WHERE agency_id = $1 ORDER BY position, created_at`, agencyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Role
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *role)
	}
	return out, rows.Err()
}

func (r *repository) Create(ctx context.Context, role Role) (uuid.UUID, error) {
	id := role.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	_, err := r.pool.Exec(ctx,
		`INSERT INTO roles (id, agency_id, name, color, icon, permissions, section_access, position, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())`,
		id, role.AgencyID, role.Name, role.Color, role.Icon, role.Permissions, role.SectionAccess, role.Position)
	if err != nil {
		return uuid.Nil, err
	}
	return id, nil
}

func (r *repository) Update(ctx context.Context, role Role) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE roles
		 SET name = $2, color = $3, icon = $4, permissions = $5, section_access = $6, position = $7, updated_at = NOW()
		 WHERE id = $1`,
		role.ID, role.Name, role.Color, role.Icon, role.Permissions, role.SectionAccess, role.Position)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	var assigned int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM member_roles WHERE role_id = $1`, id).Scan(&assigned); err != nil {
		return err
	}
	if assigned > 0 {
		return ErrInUse
	}
	tag, err := r.pool.Exec(ctx, `DELETE FROM roles WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) AssignToMember(ctx context.Context, roleID, memberID uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO member_roles (role_id, member_id, assigned_at) VALUES ($1, $2, NOW())
		 ON CONFLICT (role_id, member_id) DO NOTHING`,
		roleID, memberID)
	return err
}

func (r *repository) UnassignFromMember(ctx context.Context, roleID, memberID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM member_roles WHERE role_id = $1 AND member_id = $2`, roleID, memberID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListMemberRoles returns the grants for one member ordered by position.
// Order is presentation only; the merge does not depend on it.
func (r *repository) ListMemberRoles(ctx context.Context, memberID uuid.UUID) ([]permissions.RoleGrant, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT r.id, r.permissions, r.section_access, r.position
		 FROM roles r
		 JOIN member_roles mr ON mr.role_id = r.id
		 WHERE mr.member_id = $1
		 ORDER BY r.position, r.created_at`, memberID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var grants []permissions.RoleGrant
	for rows.Next() {
		var g permissions.RoleGrant
		if err := rows.Scan(&g.ID, &g.Permissions, &g.SectionAccess, &g.Position); err != nil {
			return nil, err
		}
		grants = append(grants, g)
	}
	return grants, rows.Err()
}

// RefreshUsageCounts recomputes the denormalized member_count column for
// every role. Run from the background worker, not the request path.
func (r *repository) RefreshUsageCounts(ctx context.Context) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE roles r
		 SET member_count = sub.n
		 FROM (SELECT ro.id, (SELECT count(*) FROM member_roles mr WHERE mr.role_id = ro.id) AS n FROM roles ro) sub
		 WHERE sub.id = r.id AND r.member_count <> sub.n`)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func scanRole(row pgx.Row) (*Role, error) {
	var role Role
	err := row.Scan(&role.ID, &role.AgencyID, &role.Name, &role.Color, &role.Icon,
		&role.Permissions, &role.SectionAccess, &role.Position, &role.MemberCount,
		&role.CreatedAt, &role.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &role, nil
}
