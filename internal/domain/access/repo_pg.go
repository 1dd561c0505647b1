package access

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vidaplus/convenio-api/internal/platform/db"
)

const grantColumns = `id, professional_id, granted_by, starts_at, expires_at, reason, active, created_at`

// PgRepository implements Repository on PostgreSQL.
type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

func (r *PgRepository) conn(ctx context.Context) db.Querier {
	if q := db.QuerierFromContext(ctx); q != nil {
		return q
	}
	return r.pool
}

func scanGrant(row pgx.Row) (*Grant, error) {
	var g Grant
	err := row.Scan(&g.ID, &g.ProfessionalID, &g.GrantedBy, &g.StartsAt, &g.ExpiresAt, &g.Reason, &g.Active, &g.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan grant: %w", err)
	}
	return &g, nil
}

func (r *PgRepository) Insert(ctx context.Context, g *Grant) error {
	query := `INSERT INTO access_grants
		(professional_id, granted_by, starts_at, expires_at, reason, active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`
	err := r.conn(ctx).QueryRow(ctx, query,
		g.ProfessionalID, g.GrantedBy, g.StartsAt, g.ExpiresAt, g.Reason, g.Active,
	).Scan(&g.ID, &g.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert grant: %w", err)
	}
	return nil
}

func (r *PgRepository) DeactivateAll(ctx context.Context, professionalID uuid.UUID) (int, error) {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE access_grants SET active = false WHERE professional_id = $1 AND active = true`,
		professionalID)
	if err != nil {
		return 0, fmt.Errorf("deactivate grants: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (r *PgRepository) GetActive(ctx context.Context, professionalID uuid.UUID) (*Grant, error) {
	query := fmt.Sprintf(`SELECT %s FROM access_grants
		WHERE professional_id = $1 AND active = true
		ORDER BY created_at DESC
		LIMIT 1`, grantColumns)
	return scanGrant(r.conn(ctx).QueryRow(ctx, query, professionalID))
}

func (r *PgRepository) ListByProfessional(ctx context.Context, professionalID uuid.UUID, limit, offset int) ([]Grant, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM access_grants WHERE professional_id = $1`, professionalID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count grants: %w", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM access_grants WHERE professional_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`, grantColumns)
	rows, err := r.conn(ctx).Query(ctx, query, professionalID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list grants: %w", err)
	}
	defer rows.Close()

	var out []Grant
	for rows.Next() {
		var g Grant
		if err := rows.Scan(&g.ID, &g.ProfessionalID, &g.GrantedBy, &g.StartsAt, &g.ExpiresAt, &g.Reason, &g.Active, &g.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan grant: %w", err)
		}
		out = append(out, g)
	}
	return out, total, rows.Err()
}
