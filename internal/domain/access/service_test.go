package access

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

type mockRepo struct {
	grants []*Grant
}

func (m *mockRepo) Insert(_ context.Context, g *Grant) error {
	g.ID = uuid.New()
	g.CreatedAt = time.Now()
	cp := *g
	m.grants = append(m.grants, &cp)
	return nil
}

func (m *mockRepo) DeactivateAll(_ context.Context, professionalID uuid.UUID) (int, error) {
	n := 0
	for _, g := range m.grants {
		if g.ProfessionalID == professionalID && g.Active {
			g.Active = false
			n++
		}
	}
	return n, nil
}

func (m *mockRepo) GetActive(_ context.Context, professionalID uuid.UUID) (*Grant, error) {
	for i := len(m.grants) - 1; i >= 0; i-- {
		g := m.grants[i]
		if g.ProfessionalID == professionalID && g.Active {
			cp := *g
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *mockRepo) ListByProfessional(_ context.Context, professionalID uuid.UUID, _, _ int) ([]Grant, int, error) {
	var out []Grant
	for _, g := range m.grants {
		if g.ProfessionalID == professionalID {
			out = append(out, *g)
		}
	}
	return out, len(out), nil
}

func (m *mockRepo) activeCount(professionalID uuid.UUID) int {
	n := 0
	for _, g := range m.grants {
		if g.ProfessionalID == professionalID && g.Active {
			n++
		}
	}
	return n
}

type passTxRunner struct{}

func (passTxRunner) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func newTestService() (*Service, *mockRepo) {
	repo := &mockRepo{}
	return NewService(repo, passTxRunner{}), repo
}

func TestGrantTwiceLeavesOneActive(t *testing.T) {
	svc, repo := newTestService()
	professionalID := uuid.New()
	adminID := uuid.New()

	first, err := svc.Grant(context.Background(), professionalID, time.Now().Add(24*time.Hour), "trial", &adminID)
	if err != nil {
		t.Fatalf("first grant: %v", err)
	}
	second, err := svc.Grant(context.Background(), professionalID, time.Now().Add(30*24*time.Hour), "paid month", &adminID)
	if err != nil {
		t.Fatalf("second grant: %v", err)
	}

	if repo.activeCount(professionalID) != 1 {
		t.Errorf("expected exactly one active grant, got %d", repo.activeCount(professionalID))
	}
	current, err := repo.GetActive(context.Background(), professionalID)
	if err != nil {
		t.Fatalf("get active: %v", err)
	}
	if current.ID != second.ID {
		t.Errorf("most recent grant must win, got %v (first was %v)", current.ID, first.ID)
	}
}

func TestGrantRejectsPastExpiry(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.Grant(context.Background(), uuid.New(), time.Now().Add(-time.Hour), "late", nil)
	if !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestRevoke(t *testing.T) {
	svc, repo := newTestService()
	professionalID := uuid.New()

	if _, err := svc.Revoke(context.Background(), professionalID); !errors.Is(err, ErrNoActiveGrant) {
		t.Errorf("expected ErrNoActiveGrant, got %v", err)
	}

	if _, err := svc.Grant(context.Background(), professionalID, time.Now().Add(24*time.Hour), "trial", nil); err != nil {
		t.Fatalf("grant: %v", err)
	}
	revoked, err := svc.Revoke(context.Background(), professionalID)
	if err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if revoked.Active {
		t.Error("revoked grant must not be active")
	}
	if repo.activeCount(professionalID) != 0 {
		t.Errorf("expected no active grants, got %d", repo.activeCount(professionalID))
	}
}

func TestIsEffectiveLazyExpiry(t *testing.T) {
	svc, repo := newTestService()
	professionalID := uuid.New()

	effective, err := svc.IsEffective(context.Background(), professionalID)
	if err != nil || effective {
		t.Errorf("no grant: expected not effective, got %v %v", effective, err)
	}

	if _, err := svc.Grant(context.Background(), professionalID, time.Now().Add(time.Hour), "hour pass", nil); err != nil {
		t.Fatalf("grant: %v", err)
	}
	effective, err = svc.IsEffective(context.Background(), professionalID)
	if err != nil || !effective {
		t.Errorf("fresh grant: expected effective, got %v %v", effective, err)
	}

	// Expired but still marked active: read-time check must deny access.
	repo.grants[len(repo.grants)-1].ExpiresAt = time.Now().Add(-time.Minute)
	effective, err = svc.IsEffective(context.Background(), professionalID)
	if err != nil || effective {
		t.Errorf("lapsed grant: expected not effective, got %v %v", effective, err)
	}
}

func TestGrantFromPayment(t *testing.T) {
	svc, repo := newTestService()
	professionalID := uuid.New()

	if _, err := svc.Grant(context.Background(), professionalID, time.Now().Add(time.Hour), "trial", nil); err != nil {
		t.Fatalf("grant: %v", err)
	}
	expiresAt, err := svc.GrantFromPayment(context.Background(), professionalID, 30)
	if err != nil {
		t.Fatalf("payment grant: %v", err)
	}

	if repo.activeCount(professionalID) != 1 {
		t.Errorf("prior grant must be deactivated, active=%d", repo.activeCount(professionalID))
	}
	g, err := repo.GetActive(context.Background(), professionalID)
	if err != nil {
		t.Fatalf("get active: %v", err)
	}
	if g.GrantedBy != nil {
		t.Error("self-service grant must have no grantor")
	}
	wantExpiry := time.Now().AddDate(0, 0, 30)
	if g.ExpiresAt.Before(wantExpiry.Add(-time.Minute)) || g.ExpiresAt.After(wantExpiry.Add(time.Minute)) {
		t.Errorf("expected expiry ~30 days out, got %v", g.ExpiresAt)
	}
	if !expiresAt.Equal(g.ExpiresAt) {
		t.Errorf("returned expiry %v must match the stored grant %v", expiresAt, g.ExpiresAt)
	}

	if _, err := svc.GrantFromPayment(context.Background(), professionalID, 0); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for zero days, got %v", err)
	}
}
