package billing

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vidaplus/convenio-api/internal/platform/db"
)

const paymentColumns = `id, purpose, entity_id, amount, payment_method, status,
	correlation_token, preference_id, gateway_payment_id, duration_days, processed_at, created_at, updated_at`

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

func scanPayment(row pgx.Row) (*PaymentRecord, error) {
	var p PaymentRecord
	err := row.Scan(
		&p.ID, &p.Purpose, &p.EntityID, &p.Amount, &p.PaymentMethod, &p.Status,
		&p.CorrelationToken, &p.PreferenceID, &p.GatewayPaymentID, &p.DurationDays,
		&p.ProcessedAt, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan payment record: %w", err)
	}
	return &p, nil
}

func (r *PgRepository) Create(ctx context.Context, p *PaymentRecord) error {
	query := `INSERT INTO payment_records
		(purpose, entity_id, amount, status, correlation_token, preference_id, duration_days)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`
	err := r.conn(ctx).QueryRow(ctx, query,
		p.Purpose, p.EntityID, p.Amount, p.Status, p.CorrelationToken, p.PreferenceID, p.DurationDays,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert payment record: %w", err)
	}
	return nil
}

func (r *PgRepository) GetByToken(ctx context.Context, token string) (*PaymentRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM payment_records WHERE correlation_token = $1`, paymentColumns)
	return scanPayment(r.conn(ctx).QueryRow(ctx, query, token))
}

// ApproveByToken is a conditional update: only a pending row settles. The
// unique index on gateway_payment_id and the status guard together make
// settlement exactly-once under concurrent redelivery.
func (r *PgRepository) ApproveByToken(ctx context.Context, token, gatewayPaymentID string, paymentMethod *string) (*PaymentRecord, error) {
	query := fmt.Sprintf(`UPDATE payment_records
		SET status = $2, gateway_payment_id = $3, payment_method = $4, processed_at = now(), updated_at = now()
		WHERE correlation_token = $1 AND status = $5
		RETURNING %s`, paymentColumns)
	p, err := scanPayment(r.conn(ctx).QueryRow(ctx, query, token, StatusApproved, gatewayPaymentID, paymentMethod, StatusPending))
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	// No pending row: distinguish redelivery from an unknown token.
	existing, getErr := r.GetByToken(ctx, token)
	if getErr != nil {
		return nil, getErr
	}
	return existing, ErrSettlementConflict
}

func (r *PgRepository) ListByEntity(ctx context.Context, entityID uuid.UUID, limit, offset int) ([]PaymentRecord, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM payment_records WHERE entity_id = $1`, entityID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count payment records: %w", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM payment_records WHERE entity_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`, paymentColumns)
	rows, err := r.conn(ctx).Query(ctx, query, entityID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list payment records: %w", err)
	}
	defer rows.Close()

	var out []PaymentRecord
	for rows.Next() {
		var p PaymentRecord
		err := rows.Scan(
			&p.ID, &p.Purpose, &p.EntityID, &p.Amount, &p.PaymentMethod, &p.Status,
			&p.CorrelationToken, &p.PreferenceID, &p.GatewayPaymentID, &p.DurationDays,
			&p.ProcessedAt, &p.CreatedAt, &p.UpdatedAt,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("scan payment record: %w", err)
		}
		out = append(out, p)
	}
	return out, total, rows.Err()
}
