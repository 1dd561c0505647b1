package access

import (
	"context"

	"github.com/google/uuid"
)

// Repository is the persistence port for scheduling access grants.
type Repository interface {
	Insert(ctx context.Context, g *Grant) error
	// DeactivateAll flips every active grant for the professional and
	// returns how many rows changed.
	DeactivateAll(ctx context.Context, professionalID uuid.UUID) (int, error)
	// GetActive returns the single active grant, or ErrNotFound.
	GetActive(ctx context.Context, professionalID uuid.UUID) (*Grant, error)
	ListByProfessional(ctx context.Context, professionalID uuid.UUID, limit, offset int) ([]Grant, int, error)
}
