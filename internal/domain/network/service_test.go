package network

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

type mockMemberRepo struct {
	members map[uuid.UUID]*Member
}

func (m *mockMemberRepo) GetByID(_ context.Context, id uuid.UUID) (*Member, error) {
	if mem, ok := m.members[id]; ok {
		cp := *mem
		return &cp, nil
	}
	return nil, ErrNotFound
}

func (m *mockMemberRepo) ActivateSubscription(_ context.Context, id uuid.UUID, until time.Time) error {
	mem, ok := m.members[id]
	if !ok {
		return ErrNotFound
	}
	mem.SubscriptionStatus = SubscriptionActive
	mem.SubscriptionEnd = &until
	return nil
}

type mockDependentRepo struct {
	deps map[uuid.UUID]*Dependent
}

func (m *mockDependentRepo) GetByID(_ context.Context, id uuid.UUID) (*Dependent, error) {
	if d, ok := m.deps[id]; ok {
		cp := *d
		return &cp, nil
	}
	return nil, ErrNotFound
}

func (m *mockDependentRepo) ListByMember(_ context.Context, memberID uuid.UUID) ([]Dependent, error) {
	var out []Dependent
	for _, d := range m.deps {
		if d.MemberID == memberID {
			out = append(out, *d)
		}
	}
	return out, nil
}

func (m *mockDependentRepo) ActivateSubscription(_ context.Context, id uuid.UUID, until time.Time) error {
	d, ok := m.deps[id]
	if !ok {
		return ErrNotFound
	}
	d.SubscriptionStatus = SubscriptionActive
	d.SubscriptionEnd = &until
	return nil
}

type mockPrivateRepo struct {
	patients map[uuid.UUID]*PrivatePatient
}

func (m *mockPrivateRepo) GetByID(_ context.Context, id uuid.UUID) (*PrivatePatient, error) {
	if p, ok := m.patients[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, ErrNotFound
}

func futureTime(t *testing.T) *time.Time {
	t.Helper()
	ft := time.Now().Add(30 * 24 * time.Hour)
	return &ft
}

func pastTime(t *testing.T) *time.Time {
	t.Helper()
	pt := time.Now().Add(-24 * time.Hour)
	return &pt
}

func newTestResolver() (*Resolver, *mockMemberRepo, *mockDependentRepo, *mockPrivateRepo) {
	members := &mockMemberRepo{members: map[uuid.UUID]*Member{}}
	deps := &mockDependentRepo{deps: map[uuid.UUID]*Dependent{}}
	privates := &mockPrivateRepo{patients: map[uuid.UUID]*PrivatePatient{}}
	return NewResolver(members, deps, privates), members, deps, privates
}

func TestPatientRefValidate(t *testing.T) {
	id := uuid.New()

	if err := (PatientRef{}).Validate(); !errors.Is(err, ErrInvalidPatientSelection) {
		t.Errorf("empty ref: expected ErrInvalidPatientSelection, got %v", err)
	}

	two := PatientRef{MemberID: &id, DependentID: &id}
	if err := two.Validate(); !errors.Is(err, ErrInvalidPatientSelection) {
		t.Errorf("two refs: expected ErrInvalidPatientSelection, got %v", err)
	}

	one := PatientRef{PrivatePatientID: &id}
	if err := one.Validate(); err != nil {
		t.Errorf("single ref: unexpected error %v", err)
	}
	if one.Kind() != KindPrivatePatient {
		t.Errorf("expected private kind, got %s", one.Kind())
	}
	if one.IsConvenio() {
		t.Error("private patient must not be convenio")
	}
}

func TestResolveMember(t *testing.T) {
	resolver, members, _, _ := newTestResolver()
	id := uuid.New()
	members.members[id] = &Member{ID: id, Name: "Ana", SubscriptionStatus: SubscriptionPending}

	resolved, err := resolver.Resolve(context.Background(), PatientRef{MemberID: &id})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resolved.Kind != KindMember || resolved.ID != id || resolved.Name != "Ana" {
		t.Errorf("unexpected resolution: %+v", resolved)
	}
}

func TestResolveUnknownDependent(t *testing.T) {
	resolver, _, _, _ := newTestResolver()
	id := uuid.New()

	_, err := resolver.Resolve(context.Background(), PatientRef{DependentID: &id})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestResolveBillableMember(t *testing.T) {
	resolver, members, _, _ := newTestResolver()
	id := uuid.New()
	members.members[id] = &Member{
		ID:                 id,
		Name:               "Ana",
		SubscriptionStatus: SubscriptionActive,
		SubscriptionEnd:    futureTime(t),
	}

	if _, err := resolver.ResolveBillable(context.Background(), PatientRef{MemberID: &id}); err != nil {
		t.Fatalf("active member must be billable: %v", err)
	}
}

func TestResolveBillableRejectsPendingMember(t *testing.T) {
	resolver, members, _, _ := newTestResolver()
	id := uuid.New()
	members.members[id] = &Member{ID: id, SubscriptionStatus: SubscriptionPending}

	_, err := resolver.ResolveBillable(context.Background(), PatientRef{MemberID: &id})
	if !errors.Is(err, ErrSubscriptionInactive) {
		t.Errorf("expected ErrSubscriptionInactive, got %v", err)
	}
}

func TestResolveBillableLazyExpiry(t *testing.T) {
	resolver, members, _, _ := newTestResolver()
	id := uuid.New()
	// Row still says active but the paid window is over.
	members.members[id] = &Member{
		ID:                 id,
		SubscriptionStatus: SubscriptionActive,
		SubscriptionEnd:    pastTime(t),
	}

	_, err := resolver.ResolveBillable(context.Background(), PatientRef{MemberID: &id})
	if !errors.Is(err, ErrSubscriptionInactive) {
		t.Errorf("expected ErrSubscriptionInactive for lapsed window, got %v", err)
	}
}

func TestResolveBillableDependentOwnState(t *testing.T) {
	resolver, members, deps, _ := newTestResolver()
	memberID := uuid.New()
	depID := uuid.New()
	members.members[memberID] = &Member{ID: memberID, SubscriptionStatus: SubscriptionActive, SubscriptionEnd: futureTime(t)}
	deps.deps[depID] = &Dependent{ID: depID, MemberID: memberID, SubscriptionStatus: SubscriptionPending}

	// The dependent's own subscription gates billability, not the member's.
	_, err := resolver.ResolveBillable(context.Background(), PatientRef{DependentID: &depID})
	if !errors.Is(err, ErrSubscriptionInactive) {
		t.Errorf("expected ErrSubscriptionInactive, got %v", err)
	}

	deps.deps[depID].SubscriptionStatus = SubscriptionActive
	deps.deps[depID].SubscriptionEnd = futureTime(t)
	resolved, err := resolver.ResolveBillable(context.Background(), PatientRef{DependentID: &depID})
	if err != nil {
		t.Fatalf("active dependent must be billable: %v", err)
	}
	if resolved.MemberID == nil || *resolved.MemberID != memberID {
		t.Errorf("expected member back-reference, got %+v", resolved)
	}
}

func TestResolveBillablePrivatePatientSkipsSubscription(t *testing.T) {
	resolver, _, _, privates := newTestResolver()
	id := uuid.New()
	privates.patients[id] = &PrivatePatient{ID: id, ProfessionalID: uuid.New(), Name: "Bruno"}

	resolved, err := resolver.ResolveBillable(context.Background(), PatientRef{PrivatePatientID: &id})
	if err != nil {
		t.Fatalf("private patients are always billable: %v", err)
	}
	if resolved.Kind != KindPrivatePatient {
		t.Errorf("unexpected kind %s", resolved.Kind)
	}
}

func TestActivateDependentSubscription(t *testing.T) {
	members := &mockMemberRepo{members: map[uuid.UUID]*Member{}}
	deps := &mockDependentRepo{deps: map[uuid.UUID]*Dependent{}}
	svc := NewSubscriptionService(members, deps)

	depID := uuid.New()
	deps.deps[depID] = &Dependent{ID: depID, SubscriptionStatus: SubscriptionPending}

	until, err := svc.ActivateDependent(context.Background(), depID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	d := deps.deps[depID]
	if d.SubscriptionStatus != SubscriptionActive {
		t.Errorf("expected active status, got %s", d.SubscriptionStatus)
	}
	if d.SubscriptionEnd == nil || !d.SubscriptionEnd.After(time.Now()) {
		t.Errorf("expected future subscription end, got %v", d.SubscriptionEnd)
	}
	if !until.Equal(*d.SubscriptionEnd) {
		t.Errorf("returned expiry %v must match the stored one %v", until, *d.SubscriptionEnd)
	}

	if _, err := svc.ActivateMember(context.Background(), uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown member, got %v", err)
	}
}
