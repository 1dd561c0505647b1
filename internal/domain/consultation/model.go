package consultation

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vidaplus/convenio-api/internal/domain/network"
)

// Consultation statuses.
const (
	StatusScheduled = "scheduled"
	StatusConfirmed = "confirmed"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

var (
	ErrNotFound = errors.New("consultation not found")

	// ErrInvalidTransition rejects status moves outside the lifecycle table,
	// including any move out of a terminal state.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrAgendaAccessDenied is returned when the professional has no
	// effective scheduling access grant.
	ErrAgendaAccessDenied = errors.New("no effective scheduling access")
)

// Consultation is a single appointment between a professional and a patient.
type Consultation struct {
	ID             uuid.UUID          `db:"id" json:"id"`
	ProfessionalID uuid.UUID          `db:"professional_id" json:"professional_id"`
	Patient        network.PatientRef `json:"patient"`
	ServiceID      uuid.UUID          `db:"service_id" json:"service_id"`
	LocationID     *uuid.UUID         `db:"location_id" json:"location_id,omitempty"`
	Value          float64            `db:"value" json:"value"`
	ScheduledAt    time.Time          `db:"scheduled_at" json:"scheduled_at"`
	Status         string             `db:"status" json:"status"`
	Notes          *string            `db:"notes" json:"notes,omitempty"`
	CreatedAt      time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time          `db:"updated_at" json:"updated_at"`
}

// AgendaEntry is a consultation joined with its display fields for the
// professional's agenda view.
type AgendaEntry struct {
	Consultation
	PatientName  string  `json:"patient_name"`
	PatientType  string  `json:"patient_type"`
	ServiceName  string  `json:"service_name"`
	LocationName *string `json:"location_name,omitempty"`
}

// Patient types derived for agenda display.
const (
	PatientTypeConvenio = "convenio"
	PatientTypePrivate  = "private"
)

// ValidStatus reports whether s is one of the four lifecycle statuses.
func ValidStatus(s string) bool {
	switch s {
	case StatusScheduled, StatusConfirmed, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// allowedTransition is the hardened lifecycle table. Terminal states have no
// outgoing edges.
func allowedTransition(from, to string) bool {
	switch from {
	case StatusScheduled:
		return to == StatusConfirmed || to == StatusCompleted || to == StatusCancelled
	case StatusConfirmed:
		return to == StatusCompleted || to == StatusCancelled
	default:
		return false
	}
}

// CheckTransition validates a status move against the lifecycle table.
// Writing the current status back is accepted as a no-op.
func CheckTransition(from, to string) error {
	if !ValidStatus(to) {
		return fmt.Errorf("invalid status %q", to)
	}
	if from == to {
		return nil
	}
	if !allowedTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return nil
}
