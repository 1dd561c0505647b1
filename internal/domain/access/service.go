package access

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vidaplus/convenio-api/internal/platform/db"
)

// Service is the scheduling access ledger. Grant and extension follow the
// deactivate-then-insert pattern inside a single transaction.
type Service struct {
	repo  Repository
	tx    db.TxRunner
	clock func() time.Time
}

func NewService(repo Repository, tx db.TxRunner) *Service {
	return &Service{repo: repo, tx: tx, clock: time.Now}
}

// Grant issues a new entitlement, deactivating any prior grant for the same
// professional. Both statements run in one transaction so a concurrent grant
// cannot leave two rows active.
func (s *Service) Grant(ctx context.Context, professionalID uuid.UUID, expiresAt time.Time, reason string, grantedBy *uuid.UUID) (*Grant, error) {
	now := s.clock()
	if !expiresAt.After(now) {
		return nil, fmt.Errorf("%w: expires_at must be in the future", ErrInvalidInput)
	}

	g := &Grant{
		ProfessionalID: professionalID,
		GrantedBy:      grantedBy,
		StartsAt:       now,
		ExpiresAt:      expiresAt,
		Reason:         reason,
		Active:         true,
	}
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if _, err := s.repo.DeactivateAll(ctx, professionalID); err != nil {
			return err
		}
		return s.repo.Insert(ctx, g)
	})
	if err != nil {
		return nil, err
	}
	return g, nil
}

// GrantFromPayment issues a grant settling an approved agenda-access payment
// and returns the grant's expiry. It runs on the reconciler's transaction, so
// no inner transaction is opened here.
func (s *Service) GrantFromPayment(ctx context.Context, professionalID uuid.UUID, durationDays int) (time.Time, error) {
	if durationDays <= 0 {
		return time.Time{}, fmt.Errorf("%w: duration must be positive", ErrInvalidInput)
	}
	now := s.clock()
	if _, err := s.repo.DeactivateAll(ctx, professionalID); err != nil {
		return time.Time{}, err
	}
	expiresAt := now.AddDate(0, 0, durationDays)
	err := s.repo.Insert(ctx, &Grant{
		ProfessionalID: professionalID,
		StartsAt:       now,
		ExpiresAt:      expiresAt,
		Reason:         fmt.Sprintf("agenda access purchase: %d days", durationDays),
		Active:         true,
	})
	if err != nil {
		return time.Time{}, err
	}
	return expiresAt, nil
}

// Revoke deactivates the current grant and returns it.
func (s *Service) Revoke(ctx context.Context, professionalID uuid.UUID) (*Grant, error) {
	var revoked *Grant
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		g, err := s.repo.GetActive(ctx, professionalID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return ErrNoActiveGrant
			}
			return err
		}
		if _, err := s.repo.DeactivateAll(ctx, professionalID); err != nil {
			return err
		}
		g.Active = false
		revoked = g
		return nil
	})
	if err != nil {
		return nil, err
	}
	return revoked, nil
}

// IsEffective reports whether the professional currently holds access.
// Expiry is checked at read time; an expired row that is still marked active
// confers nothing.
func (s *Service) IsEffective(ctx context.Context, professionalID uuid.UUID) (bool, error) {
	g, err := s.repo.GetActive(ctx, professionalID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return g.Effective(s.clock()), nil
}

// Current returns the active grant, effective or not, for status displays.
func (s *Service) Current(ctx context.Context, professionalID uuid.UUID) (*Grant, error) {
	return s.repo.GetActive(ctx, professionalID)
}

func (s *Service) List(ctx context.Context, professionalID uuid.UUID, limit, offset int) ([]Grant, int, error) {
	return s.repo.ListByProfessional(ctx, professionalID, limit, offset)
}
