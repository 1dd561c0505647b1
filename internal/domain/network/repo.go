package network

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// MemberRepository is the persistence port for members.
type MemberRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Member, error)
	ActivateSubscription(ctx context.Context, id uuid.UUID, until time.Time) error
}

// DependentRepository is the persistence port for dependents.
type DependentRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Dependent, error)
	ListByMember(ctx context.Context, memberID uuid.UUID) ([]Dependent, error)
	ActivateSubscription(ctx context.Context, id uuid.UUID, until time.Time) error
}

// PrivatePatientRepository is the persistence port for private patients.
type PrivatePatientRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*PrivatePatient, error)
}

// CatalogRepository resolves service and location references.
type CatalogRepository interface {
	ServiceExists(ctx context.Context, id uuid.UUID) (bool, error)
	LocationExists(ctx context.Context, id uuid.UUID) (bool, error)
}
