package consultation

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// UpdateInput carries the fields of a full update. Nil pointers leave the
// stored value unchanged.
type UpdateInput struct {
	ServiceID   *uuid.UUID
	LocationID  *uuid.UUID
	Value       *float64
	ScheduledAt *time.Time
	Status      *string
	Notes       *string
}

// Repository is the persistence port for consultations. All mutating and
// single-row operations are scoped to the owning professional; a missing or
// foreign row surfaces as ErrNotFound.
type Repository interface {
	Create(ctx context.Context, c *Consultation) error
	GetByID(ctx context.Context, id, professionalID uuid.UUID) (*Consultation, error)
	Update(ctx context.Context, c *Consultation) error
	Delete(ctx context.Context, id, professionalID uuid.UUID) error
	ListForAgenda(ctx context.Context, professionalID uuid.UUID, date *time.Time, limit, offset int) ([]AgendaEntry, int, error)
	ListForPatientHistory(ctx context.Context, memberID uuid.UUID, limit, offset int) ([]Consultation, int, error)
}
