package billing

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/vidaplus/convenio-api/internal/domain/network"
	"github.com/vidaplus/convenio-api/internal/platform/gateway"
)

// Gateway is the outbound payment-provider port. Satisfied by
// *gateway.Client.
type Gateway interface {
	CreatePreference(ctx context.Context, pref *gateway.Preference) (*gateway.PreferenceResult, error)
	GetPayment(ctx context.Context, paymentID string) (*gateway.Payment, error)
}

// Config carries the pricing table and the URL roots resolved once at
// startup. Redirect and callback URLs are never derived from the request
// host.
type Config struct {
	SubscriptionPrice float64
	DependentPrice    float64
	AgendaDailyRate   float64
	CheckoutBaseURL   string
	PublicBaseURL     string
}

// Issuer constructs checkout preferences and records the pending payment they
// correspond to.
type Issuer struct {
	repo    Repository
	gw      Gateway
	members network.MemberRepository
	deps    network.DependentRepository
	cfg     Config
	clock   func() time.Time
}

func NewIssuer(repo Repository, gw Gateway, members network.MemberRepository, deps network.DependentRepository, cfg Config) *Issuer {
	return &Issuer{repo: repo, gw: gw, members: members, deps: deps, cfg: cfg, clock: time.Now}
}

func roundMoney(v float64) float64 {
	return math.Round(v*100) / 100
}

func (i *Issuer) backURLs() gateway.BackURLs {
	return gateway.BackURLs{
		Success: i.cfg.CheckoutBaseURL + "/checkout/success",
		Failure: i.cfg.CheckoutBaseURL + "/checkout/failure",
		Pending: i.cfg.CheckoutBaseURL + "/checkout/pending",
	}
}

func (i *Issuer) webhookURL() string {
	return i.cfg.PublicBaseURL + "/api/v1/payments/webhook"
}

// issue creates the gateway preference and then persists the pending record
// with the returned preference id as the exact join key.
func (i *Issuer) issue(ctx context.Context, token Token, title string, amount float64, payer gateway.Payer, durationDays *int) (*IntentResult, error) {
	pref := &gateway.Preference{
		Items: []gateway.PreferenceItem{
			{Title: title, Quantity: 1, UnitPrice: amount},
		},
		Payer:             payer,
		BackURLs:          i.backURLs(),
		NotificationURL:   i.webhookURL(),
		ExternalReference: token.String(),
	}
	result, err := i.gw.CreatePreference(ctx, pref)
	if err != nil {
		return nil, err
	}

	record := &PaymentRecord{
		Purpose:          token.Purpose,
		EntityID:         token.EntityID,
		Amount:           amount,
		Status:           StatusPending,
		CorrelationToken: token.String(),
		PreferenceID:     &result.ID,
		DurationDays:     durationDays,
	}
	if err := i.repo.Create(ctx, record); err != nil {
		return nil, err
	}

	return &IntentResult{PreferenceID: result.ID, CheckoutURL: result.CheckoutURL}, nil
}

// IssueSubscription opens a checkout for a member's annual subscription.
// Rejected when the subscription is already active.
func (i *Issuer) IssueSubscription(ctx context.Context, memberID uuid.UUID) (*IntentResult, error) {
	m, err := i.members.GetByID(ctx, memberID)
	if err != nil {
		return nil, err
	}
	if m.SubscriptionStatus == network.SubscriptionActive {
		return nil, ErrAlreadyActive
	}

	token := Token{Purpose: PurposeSubscription, EntityID: m.ID, IssuedAt: i.clock()}
	payer := gateway.Payer{Name: m.Name, Email: m.Email}
	return i.issue(ctx, token, "Convenio membership subscription", roundMoney(i.cfg.SubscriptionPrice), payer, nil)
}

// IssueDependentActivation opens a checkout for activating a dependent. The
// payer is the owning member.
func (i *Issuer) IssueDependentActivation(ctx context.Context, dependentID uuid.UUID) (*IntentResult, error) {
	d, err := i.deps.GetByID(ctx, dependentID)
	if err != nil {
		return nil, err
	}
	if d.SubscriptionStatus == network.SubscriptionActive {
		return nil, ErrAlreadyActive
	}
	owner, err := i.members.GetByID(ctx, d.MemberID)
	if err != nil {
		return nil, err
	}

	token := Token{Purpose: PurposeDependent, EntityID: d.ID, IssuedAt: i.clock()}
	payer := gateway.Payer{Name: owner.Name, Email: owner.Email}
	title := fmt.Sprintf("Dependent activation: %s", d.Name)
	return i.issue(ctx, token, title, roundMoney(i.cfg.DependentPrice), payer, nil)
}

// IssueSettlement opens a checkout for a professional settling an owed
// balance with the clinic.
func (i *Issuer) IssueSettlement(ctx context.Context, professionalID uuid.UUID, amount float64) (*IntentResult, error) {
	amount = roundMoney(amount)
	if amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", ErrInvalidInput)
	}

	token := Token{Purpose: PurposeSettlement, EntityID: professionalID, IssuedAt: i.clock()}
	return i.issue(ctx, token, "Professional settlement", amount, gateway.Payer{}, nil)
}

// IssueAgendaAccess opens a checkout buying durationDays of scheduling
// access, priced by the configured daily rate.
func (i *Issuer) IssueAgendaAccess(ctx context.Context, professionalID uuid.UUID, durationDays int) (*IntentResult, error) {
	if durationDays <= 0 {
		return nil, fmt.Errorf("%w: duration_days must be positive", ErrInvalidInput)
	}

	amount := roundMoney(float64(durationDays) * i.cfg.AgendaDailyRate)
	token := Token{Purpose: PurposeAgenda, EntityID: professionalID, DurationDays: durationDays, IssuedAt: i.clock()}
	title := fmt.Sprintf("Agenda access: %d days", durationDays)
	return i.issue(ctx, token, title, amount, gateway.Payer{}, &durationDays)
}

// ListByEntity exposes the payment history for one entity.
func (i *Issuer) ListByEntity(ctx context.Context, entityID uuid.UUID, limit, offset int) ([]PaymentRecord, int, error) {
	return i.repo.ListByEntity(ctx, entityID, limit, offset)
}
