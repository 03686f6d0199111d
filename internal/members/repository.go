package members

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-crm/meridian-crm/internal/permissions"
)

// Repository provides PostgreSQL backed persistence for members.
type Repository interface {
	Get(ctx context.Context, id uuid.UUID) (*Member, error)
	GetByUserAndAgency(ctx context.Context, userID, agencyID uuid.UUID) (*Member, error)
	ListByAgency(ctx context.Context, req ListRequest) ([]Member, int, error)
	Create(ctx context.Context, member Member) (uuid.UUID, error)
	UpdateMemberType(ctx context.Context, id uuid.UUID, memberType permissions.MemberType) error
	Delete(ctx context.Context, id uuid.UUID) error
	CountOwners(ctx context.Context, agencyID uuid.UUID) (int, error)
}

const memberColumns = `m.id, m.user_id, m.agency_id, m.member_type, u.email, u.name, m.created_at`

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) Get(ctx context.Context, id uuid.UUID) (*Member, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+memberColumns+` FROM members m JOIN users u ON u.id = m.user_id WHERE m.id = $1`, id)
	return scanMember(row)
}

func (r *repository) GetByUserAndAgency(ctx context.Context, userID, agencyID uuid.UUID) (*Member, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+memberColumns+` FROM members m JOIN users u ON u.id = m.user_id
		 WHERE m.user_id = $1 AND m.agency_id = $2`, userID, agencyID)
	return scanMember(row)
}

func (r *repository) ListByAgency(ctx context.Context, req ListRequest) ([]Member, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM members WHERE agency_id = $1`, req.AgencyID).Scan(&total); err != nil {
		return nil, 0, err
	}

	perPage := req.PerPage
	if perPage <= 0 {
		perPage = 20
	}
	page := req.Page
	if page <= 0 {
		page = 1
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+memberColumns+` FROM members m JOIN users u ON u.id = m.user_id
		 WHERE m.agency_id = $1
		 ORDER BY m.created_at, m.id
		 LIMIT $2 OFFSET $3`, req.AgencyID, perPage, (page-1)*perPage)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var members []Member
	for rows.Next() {
		var m Member
		if err := rows.Scan(&m.ID, &m.UserID, &m.AgencyID, &m.MemberType, &m.Email, &m.Name, &m.CreatedAt); err != nil {
			return nil, 0, err
		}
		members = append(members, m)
	}
	return members, total, rows.Err()
}

func (r *repository) Create(ctx context.Context, member Member) (uuid.UUID, error) {
	id := member.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	_, err := r.pool.Exec(ctx,
		`INSERT INTO members (id, user_id, agency_id, member_type, created_at) VALUES ($1, $2, $3, $4, NOW())`,
		id, member.UserID, member.AgencyID, member.MemberType)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return uuid.Nil, ErrAlreadyExists
		}
		return uuid.Nil, err
	}
	return id, nil
}

func (r *repository) UpdateMemberType(ctx context.Context, id uuid.UUID, memberType permissions.MemberType) error {
	tag, err := r.pool.Exec(ctx, `UPDATE members SET member_type = $2 WHERE id = $1`, id, memberType)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM members WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) CountOwners(ctx context.Context, agencyID uuid.UUID) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT count(*) FROM members WHERE agency_id = $1 AND member_type = 'owner'`, agencyID).Scan(&count)
	return count, err
}

func scanMember(row pgx.Row) (*Member, error) {
	var m Member
	if err := row.Scan(&m.ID, &m.UserID, &m.AgencyID, &m.MemberType, &m.Email, &m.Name, &m.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &m, nil
}
