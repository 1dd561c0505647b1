package consultation

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

const consultationColumns = `id, professional_id, member_id, dependent_id, private_patient_id,
	service_id, location_id, value, scheduled_at, status, notes, created_at, updated_at`

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

func scanConsultation(row pgx.Row) (*Consultation, error) {
	var c Consultation
	err := row.Scan(
		&c.ID, &c.ProfessionalID,
		&c.Patient.MemberID, &c.Patient.DependentID, &c.Patient.PrivatePatientID,
		&c.ServiceID, &c.LocationID, &c.Value, &c.ScheduledAt, &c.Status, &c.Notes,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan consultation: %w", err)
	}
	return &c, nil
}

func (r *PgRepository) Create(ctx context.Context, c *Consultation) error {
	query := `INSERT INTO consultations
		(professional_id, member_id, dependent_id, private_patient_id, service_id, location_id, value, scheduled_at, status, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at, updated_at`
	err := r.conn(ctx).QueryRow(ctx, query,
		c.ProfessionalID,
		c.Patient.MemberID, c.Patient.DependentID, c.Patient.PrivatePatientID,
		c.ServiceID, c.LocationID, c.Value, c.ScheduledAt, c.Status, c.Notes,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert consultation: %w", err)
	}
	return nil
}

func (r *PgRepository) GetByID(ctx context.Context, id, professionalID uuid.UUID) (*Consultation, error) {
	query := fmt.Sprintf(`SELECT %s FROM consultations WHERE id = $1 AND professional_id = $2`, consultationColumns)
	return scanConsultation(r.conn(ctx).QueryRow(ctx, query, id, professionalID))
}

func (r *PgRepository) Update(ctx context.Context, c *Consultation) error {
	query := `UPDATE consultations
		SET service_id = $3, location_id = $4, value = $5, scheduled_at = $6, status = $7, notes = $8, updated_at = now()
		WHERE id = $1 AND professional_id = $2
		RETURNING updated_at`
	err := r.conn(ctx).QueryRow(ctx, query,
		c.ID, c.ProfessionalID,
		c.ServiceID, c.LocationID, c.Value, c.ScheduledAt, c.Status, c.Notes,
	).Scan(&c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("update consultation: %w", err)
	}
	return nil
}

func (r *PgRepository) Delete(ctx context.Context, id, professionalID uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM consultations WHERE id = $1 AND professional_id = $2`, id, professionalID)
	if err != nil {
		return fmt.Errorf("delete consultation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PgRepository) ListForAgenda(ctx context.Context, professionalID uuid.UUID, date *time.Time, limit, offset int) ([]AgendaEntry, int, error) {
	args := []interface{}{professionalID}
	if date != nil {
		day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
		args = append(args, day, day.Add(24*time.Hour))
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, agendaCountQuery(date != nil), args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count agenda: %w", err)
	}

	query := agendaListQuery(date != nil)
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list agenda: %w", err)
	}
	defer rows.Close()

	var out []AgendaEntry
	for rows.Next() {
		var e AgendaEntry
		err := rows.Scan(
			&e.ID, &e.ProfessionalID,
			&e.Patient.MemberID, &e.Patient.DependentID, &e.Patient.PrivatePatientID,
			&e.ServiceID, &e.LocationID, &e.Value, &e.ScheduledAt, &e.Status, &e.Notes,
			&e.CreatedAt, &e.UpdatedAt,
			&e.PatientName, &e.PatientType, &e.ServiceName, &e.LocationName,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("scan agenda entry: %w", err)
		}
		out = append(out, e)
	}
	return out, total, rows.Err()
}

func (r *PgRepository) ListForPatientHistory(ctx context.Context, memberID uuid.UUID, limit, offset int) ([]Consultation, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, patientHistoryCountQuery(), memberID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count patient history: %w", err)
	}

	rows, err := r.conn(ctx).Query(ctx, patientHistoryListQuery(), memberID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list patient history: %w", err)
	}
	defer rows.Close()

	var out []Consultation
	for rows.Next() {
		var c Consultation
		err := rows.Scan(
			&c.ID, &c.ProfessionalID,
			&c.Patient.MemberID, &c.Patient.DependentID, &c.Patient.PrivatePatientID,
			&c.ServiceID, &c.LocationID, &c.Value, &c.ScheduledAt, &c.Status, &c.Notes,
			&c.CreatedAt, &c.UpdatedAt,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("scan consultation: %w", err)
		}
		out = append(out, c)
	}
	return out, total, rows.Err()
}

// patientHistoryFilter matches every consultation belonging to a membership:
// the member's own plus those of all their dependents.
const patientHistoryFilter = `(c.member_id = $1 OR c.dependent_id IN (SELECT id FROM dependents WHERE member_id = $1))`

func patientHistoryCountQuery() string {
	return `SELECT COUNT(*) FROM consultations c WHERE ` + patientHistoryFilter
}

func patientHistoryListQuery() string {
	return fmt.Sprintf(`SELECT %s FROM consultations c WHERE %s ORDER BY c.scheduled_at DESC LIMIT $2 OFFSET $3`,
		qualifiedColumns("c"), patientHistoryFilter)
}

func agendaFilter(byDate bool) string {
	if byDate {
		return `c.professional_id = $1 AND c.scheduled_at >= $2 AND c.scheduled_at < $3`
	}
	return `c.professional_id = $1`
}

func agendaCountQuery(byDate bool) string {
	return fmt.Sprintf(`SELECT COUNT(*) FROM consultations c WHERE %s`, agendaFilter(byDate))
}

func agendaListQuery(byDate bool) string {
	next := 2
	if byDate {
		next = 4
	}
	return fmt.Sprintf(`SELECT
			%s,
			COALESCE(m.name, d.name, pp.name) AS patient_name,
			CASE WHEN c.private_patient_id IS NOT NULL THEN 'private' ELSE 'convenio' END AS patient_type,
			s.name AS service_name,
			l.name AS location_name
		FROM consultations c
		JOIN services s ON s.id = c.service_id
		LEFT JOIN locations l ON l.id = c.location_id
		LEFT JOIN members m ON m.id = c.member_id
		LEFT JOIN dependents d ON d.id = c.dependent_id
		LEFT JOIN private_patients pp ON pp.id = c.private_patient_id
		WHERE %s
		ORDER BY c.scheduled_at
		LIMIT $%d OFFSET $%d`, qualifiedColumns("c"), agendaFilter(byDate), next, next+1)
}

func qualifiedColumns(alias string) string {
	return fmt.Sprintf(`%[1]s.id, %[1]s.professional_id, %[1]s.member_id, %[1]s.dependent_id, %[1]s.private_patient_id,
	%[1]s.service_id, %[1]s.location_id, %[1]s.value, %[1]s.scheduled_at, %[1]s.status, %[1]s.notes, %[1]s.created_at, %[1]s.updated_at`, alias)
}
