package consultation

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/vidaplus/convenio-api/internal/domain/network"
)

// ErrInvalidInput wraps all synchronous validation failures. The wrapped
// message names the offending field.
var ErrInvalidInput = errors.New("invalid input")

// PatientResolver validates patient references. Satisfied by
// *network.Resolver.
type PatientResolver interface {
	Resolve(ctx context.Context, ref network.PatientRef) (*network.ResolvedPatient, error)
	ResolveBillable(ctx context.Context, ref network.PatientRef) (*network.ResolvedPatient, error)
}

// AccessChecker gates agenda use on an effective scheduling access grant.
// Satisfied by the access ledger service.
type AccessChecker interface {
	IsEffective(ctx context.Context, professionalID uuid.UUID) (bool, error)
}

// CreateInput is the payload for a single consultation creation.
type CreateInput struct {
	Patient     network.PatientRef
	ServiceID   uuid.UUID
	LocationID  *uuid.UUID
	Value       float64
	ScheduledAt time.Time
	Notes       *string
}

type Service struct {
	repo     Repository
	resolver PatientResolver
	catalog  network.CatalogRepository
	access   AccessChecker
}

func NewService(repo Repository, resolver PatientResolver, catalog network.CatalogRepository, access AccessChecker) *Service {
	return &Service{repo: repo, resolver: resolver, catalog: catalog, access: access}
}

// roundMoney normalizes monetary amounts to two fractional digits at the
// boundary.
func roundMoney(v float64) float64 {
	return math.Round(v*100) / 100
}

func (s *Service) validateCatalog(ctx context.Context, serviceID uuid.UUID, locationID *uuid.UUID) error {
	ok, err := s.catalog.ServiceExists(ctx, serviceID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: unknown service_id", ErrInvalidInput)
	}
	if locationID != nil {
		ok, err := s.catalog.LocationExists(ctx, *locationID)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: unknown location_id", ErrInvalidInput)
		}
	}
	return nil
}

// Create validates and persists a single consultation with status scheduled.
// Convenio references require an active subscription at creation time; the
// check is not repeated afterwards.
func (s *Service) Create(ctx context.Context, professionalID uuid.UUID, in CreateInput) (*Consultation, error) {
	effective, err := s.access.IsEffective(ctx, professionalID)
	if err != nil {
		return nil, err
	}
	if !effective {
		return nil, ErrAgendaAccessDenied
	}

	in.Value = roundMoney(in.Value)
	if in.Value <= 0 {
		return nil, fmt.Errorf("%w: value must be positive", ErrInvalidInput)
	}
	if in.ScheduledAt.IsZero() {
		return nil, fmt.Errorf("%w: scheduled_at is required", ErrInvalidInput)
	}
	if err := s.validateCatalog(ctx, in.ServiceID, in.LocationID); err != nil {
		return nil, err
	}
	if _, err := s.resolver.ResolveBillable(ctx, in.Patient); err != nil {
		return nil, err
	}

	c := &Consultation{
		ProfessionalID: professionalID,
		Patient:        in.Patient,
		ServiceID:      in.ServiceID,
		LocationID:     in.LocationID,
		Value:          in.Value,
		ScheduledAt:    in.ScheduledAt.UTC(),
		Status:         StatusScheduled,
		Notes:          in.Notes,
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Service) Get(ctx context.Context, id, professionalID uuid.UUID) (*Consultation, error) {
	return s.repo.GetByID(ctx, id, professionalID)
}

// UpdateFull applies a partial field update scoped to the owning
// professional. A status change inside a full update goes through the same
// lifecycle table as SetStatus.
func (s *Service) UpdateFull(ctx context.Context, id, professionalID uuid.UUID, in UpdateInput) (*Consultation, error) {
	c, err := s.repo.GetByID(ctx, id, professionalID)
	if err != nil {
		return nil, err
	}

	if in.ServiceID != nil {
		c.ServiceID = *in.ServiceID
	}
	if in.LocationID != nil {
		c.LocationID = in.LocationID
	}
	if in.Value != nil {
		c.Value = roundMoney(*in.Value)
	}
	if in.ScheduledAt != nil {
		c.ScheduledAt = in.ScheduledAt.UTC()
	}
	if in.Notes != nil {
		c.Notes = in.Notes
	}
	if in.Status != nil {
		if err := CheckTransition(c.Status, *in.Status); err != nil {
			if errors.Is(err, ErrInvalidTransition) {
				return nil, err
			}
			return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		c.Status = *in.Status
	}

	if c.Value <= 0 {
		return nil, fmt.Errorf("%w: value must be positive", ErrInvalidInput)
	}
	if in.ServiceID != nil || in.LocationID != nil {
		if err := s.validateCatalog(ctx, c.ServiceID, c.LocationID); err != nil {
			return nil, err
		}
	}

	if err := s.repo.Update(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// SetStatus performs a status-only transition scoped to the owning
// professional.
func (s *Service) SetStatus(ctx context.Context, id, professionalID uuid.UUID, status string) (*Consultation, error) {
	c, err := s.repo.GetByID(ctx, id, professionalID)
	if err != nil {
		return nil, err
	}
	if err := CheckTransition(c.Status, status); err != nil {
		if errors.Is(err, ErrInvalidTransition) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	c.Status = status
	if err := s.repo.Update(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Service) Delete(ctx context.Context, id, professionalID uuid.UUID) error {
	return s.repo.Delete(ctx, id, professionalID)
}

func (s *Service) ListForAgenda(ctx context.Context, professionalID uuid.UUID, date *time.Time, limit, offset int) ([]AgendaEntry, int, error) {
	return s.repo.ListForAgenda(ctx, professionalID, date, limit, offset)
}

func (s *Service) ListForPatientHistory(ctx context.Context, memberID uuid.UUID, limit, offset int) ([]Consultation, int, error) {
	return s.repo.ListForPatientHistory(ctx, memberID, limit, offset)
}
