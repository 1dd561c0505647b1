package network

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vidaplus/convenio-api/internal/platform/db"
)

const memberColumns = `id, name, email, subscription_status, subscription_end, created_at, updated_at`

const dependentColumns = `id, member_id, name, subscription_status, subscription_end, activated_at, created_at, updated_at`

// PgMemberRepository implements MemberRepository on PostgreSQL.
type PgMemberRepository struct {
	pool *pgxpool.Pool
}

func NewPgMemberRepository(pool *pgxpool.Pool) *PgMemberRepository {
	return &PgMemberRepository{pool: pool}
}

func (r *PgMemberRepository) conn(ctx context.Context) db.Querier {
	if q := db.QuerierFromContext(ctx); q != nil {
		return q
	}
	return r.pool
}

func scanMember(row pgx.Row) (*Member, error) {
	var m Member
	err := row.Scan(&m.ID, &m.Name, &m.Email, &m.SubscriptionStatus, &m.SubscriptionEnd, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan member: %w", err)
	}
	return &m, nil
}

func (r *PgMemberRepository) GetByID(ctx context.Context, id uuid.UUID) (*Member, error) {
	query := fmt.Sprintf(`SELECT %s FROM members WHERE id = $1`, memberColumns)
	return scanMember(r.conn(ctx).QueryRow(ctx, query, id))
}

func (r *PgMemberRepository) ActivateSubscription(ctx context.Context, id uuid.UUID, until time.Time) error {
	query := `UPDATE members
		SET subscription_status = $2, subscription_end = $3, updated_at = now()
		WHERE id = $1`
	tag, err := r.conn(ctx).Exec(ctx, query, id, SubscriptionActive, until)
	if err != nil {
		return fmt.Errorf("activate member subscription: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// PgDependentRepository implements DependentRepository on PostgreSQL.
type PgDependentRepository struct {
	pool *pgxpool.Pool
}

func NewPgDependentRepository(pool *pgxpool.Pool) *PgDependentRepository {
	return &PgDependentRepository{pool: pool}
}

func (r *PgDependentRepository) conn(ctx context.Context) db.Querier {
	if q := db.QuerierFromContext(ctx); q != nil {
		return q
	}
	return r.pool
}

func scanDependent(row pgx.Row) (*Dependent, error) {
	var d Dependent
	err := row.Scan(&d.ID, &d.MemberID, &d.Name, &d.SubscriptionStatus, &d.SubscriptionEnd, &d.ActivatedAt, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan dependent: %w", err)
	}
	return &d, nil
}

func (r *PgDependentRepository) GetByID(ctx context.Context, id uuid.UUID) (*Dependent, error) {
	query := fmt.Sprintf(`SELECT %s FROM dependents WHERE id = $1`, dependentColumns)
	return scanDependent(r.conn(ctx).QueryRow(ctx, query, id))
}

func (r *PgDependentRepository) ListByMember(ctx context.Context, memberID uuid.UUID) ([]Dependent, error) {
	query := fmt.Sprintf(`SELECT %s FROM dependents WHERE member_id = $1 ORDER BY created_at`, dependentColumns)
	rows, err := r.conn(ctx).Query(ctx, query, memberID)
	if err != nil {
		return nil, fmt.Errorf("list dependents: %w", err)
	}
	defer rows.Close()

	var out []Dependent
	for rows.Next() {
		var d Dependent
		if err := rows.Scan(&d.ID, &d.MemberID, &d.Name, &d.SubscriptionStatus, &d.SubscriptionEnd, &d.ActivatedAt, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan dependent: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *PgDependentRepository) ActivateSubscription(ctx context.Context, id uuid.UUID, until time.Time) error {
	query := `UPDATE dependents
		SET subscription_status = $2, subscription_end = $3, activated_at = now(), updated_at = now()
		WHERE id = $1`
	tag, err := r.conn(ctx).Exec(ctx, query, id, SubscriptionActive, until)
	if err != nil {
		return fmt.Errorf("activate dependent subscription: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// PgPrivatePatientRepository implements PrivatePatientRepository on PostgreSQL.
type PgPrivatePatientRepository struct {
	pool *pgxpool.Pool
}

func NewPgPrivatePatientRepository(pool *pgxpool.Pool) *PgPrivatePatientRepository {
	return &PgPrivatePatientRepository{pool: pool}
}

func (r *PgPrivatePatientRepository) conn(ctx context.Context) db.Querier {
	if q := db.QuerierFromContext(ctx); q != nil {
		return q
	}
	return r.pool
}

func (r *PgPrivatePatientRepository) GetByID(ctx context.Context, id uuid.UUID) (*PrivatePatient, error) {
	query := `SELECT id, professional_id, name, created_at, updated_at FROM private_patients WHERE id = $1`
	var p PrivatePatient
	err := r.conn(ctx).QueryRow(ctx, query, id).Scan(&p.ID, &p.ProfessionalID, &p.Name, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan private patient: %w", err)
	}
	return &p, nil
}

// PgCatalogRepository implements CatalogRepository on PostgreSQL.
type PgCatalogRepository struct {
	pool *pgxpool.Pool
}

func NewPgCatalogRepository(pool *pgxpool.Pool) *PgCatalogRepository {
	return &PgCatalogRepository{pool: pool}
}

func (r *PgCatalogRepository) conn(ctx context.Context) db.Querier {
	if q := db.QuerierFromContext(ctx); q != nil {
		return q
	}
	return r.pool
}

func (r *PgCatalogRepository) ServiceExists(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	err := r.conn(ctx).QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM services WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check service: %w", err)
	}
	return exists, nil
}

func (r *PgCatalogRepository) LocationExists(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	err := r.conn(ctx).QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM locations WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check location: %w", err)
	}
	return exists, nil
}
