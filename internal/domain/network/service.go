package network

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ResolvedPatient is the outcome of resolving a PatientRef: the concrete
// patient kind and id, plus the display name for downstream surfaces.
type ResolvedPatient struct {
	Kind PatientKind `json:"kind"`
	ID   uuid.UUID   `json:"id"`
	Name string      `json:"name"`
	// MemberID is set for dependents so callers can reach the responsible
	// member without a second lookup.
	MemberID *uuid.UUID `json:"member_id,omitempty"`
}

// Resolver validates patient references against the network registry.
type Resolver struct {
	members  MemberRepository
	deps     DependentRepository
	privates PrivatePatientRepository
	clock    func() time.Time
}

func NewResolver(members MemberRepository, deps DependentRepository, privates PrivatePatientRepository) *Resolver {
	return &Resolver{
		members:  members,
		deps:     deps,
		privates: privates,
		clock:    time.Now,
	}
}

// Resolve checks that the reference names exactly one existing patient and
// returns its identity. Subscription state is not inspected here.
func (s *Resolver) Resolve(ctx context.Context, ref PatientRef) (*ResolvedPatient, error) {
	if err := ref.Validate(); err != nil {
		return nil, err
	}

	switch ref.Kind() {
	case KindMember:
		m, err := s.members.GetByID(ctx, *ref.MemberID)
		if err != nil {
			return nil, err
		}
		return &ResolvedPatient{Kind: KindMember, ID: m.ID, Name: m.Name}, nil
	case KindDependent:
		d, err := s.deps.GetByID(ctx, *ref.DependentID)
		if err != nil {
			return nil, err
		}
		return &ResolvedPatient{Kind: KindDependent, ID: d.ID, Name: d.Name, MemberID: &d.MemberID}, nil
	default:
		p, err := s.privates.GetByID(ctx, *ref.PrivatePatientID)
		if err != nil {
			return nil, err
		}
		return &ResolvedPatient{Kind: KindPrivatePatient, ID: p.ID, Name: p.Name}, nil
	}
}

// ResolveBillable resolves the reference and additionally enforces that
// convenio patients carry an active, unexpired subscription. Private patients
// are always billable; their payment path is the professional's own.
func (s *Resolver) ResolveBillable(ctx context.Context, ref PatientRef) (*ResolvedPatient, error) {
	resolved, err := s.Resolve(ctx, ref)
	if err != nil {
		return nil, err
	}
	if resolved.Kind == KindPrivatePatient {
		return resolved, nil
	}

	now := s.clock()
	switch resolved.Kind {
	case KindMember:
		m, err := s.members.GetByID(ctx, resolved.ID)
		if err != nil {
			return nil, err
		}
		if !subscriptionActive(m.SubscriptionStatus, m.SubscriptionEnd, now) {
			return nil, ErrSubscriptionInactive
		}
	case KindDependent:
		d, err := s.deps.GetByID(ctx, resolved.ID)
		if err != nil {
			return nil, err
		}
		if !subscriptionActive(d.SubscriptionStatus, d.SubscriptionEnd, now) {
			return nil, ErrSubscriptionInactive
		}
	}
	return resolved, nil
}

// subscriptionActive applies lazy expiry: a row still marked active whose end
// date has passed is treated as expired without waiting for a sweeper.
func subscriptionActive(status string, end *time.Time, now time.Time) bool {
	if status != SubscriptionActive {
		return false
	}
	if end != nil && !end.After(now) {
		return false
	}
	return true
}

// SubscriptionService activates member and dependent subscriptions once a
// payment settles.
type SubscriptionService struct {
	members MemberRepository
	deps    DependentRepository
	clock   func() time.Time
}

func NewSubscriptionService(members MemberRepository, deps DependentRepository) *SubscriptionService {
	return &SubscriptionService{members: members, deps: deps, clock: time.Now}
}

// subscriptionTerm is the paid coverage window.
const subscriptionTerm = 365 * 24 * time.Hour

// ActivateMember marks the member's subscription active and returns the new
// coverage expiry.
func (s *SubscriptionService) ActivateMember(ctx context.Context, id uuid.UUID) (time.Time, error) {
	until := s.clock().Add(subscriptionTerm)
	if err := s.members.ActivateSubscription(ctx, id, until); err != nil {
		return time.Time{}, err
	}
	return until, nil
}

// ActivateDependent marks the dependent's coverage active and returns the new
// coverage expiry.
func (s *SubscriptionService) ActivateDependent(ctx context.Context, id uuid.UUID) (time.Time, error) {
	until := s.clock().Add(subscriptionTerm)
	if err := s.deps.ActivateSubscription(ctx, id, until); err != nil {
		return time.Time{}, err
	}
	return until, nil
}
