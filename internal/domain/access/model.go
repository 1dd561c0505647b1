package access

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound = errors.New("grant not found")

	// ErrNoActiveGrant is returned by Revoke when the professional holds no
	// active grant.
	ErrNoActiveGrant = errors.New("no active grant")

	ErrInvalidInput = errors.New("invalid input")
)

// Grant is a time-boxed entitlement to use the agenda. GrantedBy is the
// administrator who issued it, or nil when the grant came from a
// self-service payment. At most one grant per professional is active;
// extension deactivates the prior grant and inserts a new one.
type Grant struct {
	ID             uuid.UUID  `db:"id" json:"id"`
	ProfessionalID uuid.UUID  `db:"professional_id" json:"professional_id"`
	GrantedBy      *uuid.UUID `db:"granted_by" json:"granted_by,omitempty"`
	StartsAt       time.Time  `db:"starts_at" json:"starts_at"`
	ExpiresAt      time.Time  `db:"expires_at" json:"expires_at"`
	Reason         string     `db:"reason" json:"reason"`
	Active         bool       `db:"active" json:"active"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
}

// Effective reports whether the grant confers access at the given instant.
// Expiry is evaluated lazily here; rows are never swept in the background.
func (g *Grant) Effective(now time.Time) bool {
	return g.Active && g.ExpiresAt.After(now)
}
