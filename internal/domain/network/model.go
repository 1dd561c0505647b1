package network

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Subscription statuses for members and dependents.
const (
	SubscriptionPending = "pending"
	SubscriptionActive  = "active"
	SubscriptionExpired = "expired"
)

var (
	// ErrNotFound covers missing members, dependents, private patients and
	// catalog entries alike.
	ErrNotFound = errors.New("not found")

	// ErrInvalidPatientSelection is returned when a patient reference names
	// zero or more than one patient kind.
	ErrInvalidPatientSelection = errors.New("exactly one of member, dependent or private patient must be set")

	// ErrSubscriptionInactive is the business-rule rejection for convenio
	// patients without an active subscription.
	ErrSubscriptionInactive = errors.New("subscription is not active")
)

// Member maps to the members table.
type Member struct {
	ID                 uuid.UUID  `db:"id" json:"id"`
	Name               string     `db:"name" json:"name"`
	Email              string     `db:"email" json:"email"`
	SubscriptionStatus string     `db:"subscription_status" json:"subscription_status"`
	SubscriptionEnd    *time.Time `db:"subscription_end" json:"subscription_end,omitempty"`
	CreatedAt          time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time  `db:"updated_at" json:"updated_at"`
}

// Dependent maps to the dependents table. A dependent always belongs to a
// member and carries its own subscription state.
type Dependent struct {
	ID                 uuid.UUID  `db:"id" json:"id"`
	MemberID           uuid.UUID  `db:"member_id" json:"member_id"`
	Name               string     `db:"name" json:"name"`
	SubscriptionStatus string     `db:"subscription_status" json:"subscription_status"`
	SubscriptionEnd    *time.Time `db:"subscription_end" json:"subscription_end,omitempty"`
	ActivatedAt        *time.Time `db:"activated_at" json:"activated_at,omitempty"`
	CreatedAt          time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time  `db:"updated_at" json:"updated_at"`
}

// PrivatePatient maps to the private_patients table: a professional's own
// patient, outside the convenio and never subject to subscription checks.
type PrivatePatient struct {
	ID             uuid.UUID `db:"id" json:"id"`
	ProfessionalID uuid.UUID `db:"professional_id" json:"professional_id"`
	Name           string    `db:"name" json:"name"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// ServiceDefinition maps to the services catalog table.
type ServiceDefinition struct {
	ID   uuid.UUID `db:"id" json:"id"`
	Name string    `db:"name" json:"name"`
}

// AttendanceLocation maps to the locations catalog table.
type AttendanceLocation struct {
	ID             uuid.UUID `db:"id" json:"id"`
	ProfessionalID uuid.UUID `db:"professional_id" json:"professional_id"`
	Name           string    `db:"name" json:"name"`
}

// PatientKind discriminates a resolved patient reference.
type PatientKind string

const (
	KindMember         PatientKind = "member"
	KindDependent      PatientKind = "dependent"
	KindPrivatePatient PatientKind = "private"
)

// PatientRef is a tagged union over exactly one patient identifier. The
// mutual exclusion is also enforced as a CHECK constraint on the
// consultations table; Validate re-checks it at the application boundary.
type PatientRef struct {
	MemberID         *uuid.UUID `json:"member_id,omitempty"`
	DependentID      *uuid.UUID `json:"dependent_id,omitempty"`
	PrivatePatientID *uuid.UUID `json:"private_patient_id,omitempty"`
}

// Validate returns ErrInvalidPatientSelection unless exactly one identifier
// is set.
func (r PatientRef) Validate() error {
	set := 0
	if r.MemberID != nil {
		set++
	}
	if r.DependentID != nil {
		set++
	}
	if r.PrivatePatientID != nil {
		set++
	}
	if set != 1 {
		return ErrInvalidPatientSelection
	}
	return nil
}

// Kind reports which variant is populated. Callers must Validate first.
func (r PatientRef) Kind() PatientKind {
	switch {
	case r.MemberID != nil:
		return KindMember
	case r.DependentID != nil:
		return KindDependent
	default:
		return KindPrivatePatient
	}
}

// IsConvenio reports whether the reference points at a convenio patient
// (member or dependent) rather than a professional's private patient.
func (r PatientRef) IsConvenio() bool {
	return r.PrivatePatientID == nil
}
