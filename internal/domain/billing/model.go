package billing

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Billing purposes. The purpose is the first segment of a correlation token
// and selects the settlement effect applied on approval.
const (
	PurposeSubscription = "subscription"
	PurposeDependent    = "dependent"
	PurposeSettlement   = "settlement"
	PurposeAgenda       = "agenda"
)

// Payment record statuses. Terminal statuses other than approved are stored
// as reported by the gateway.
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
)

var (
	ErrNotFound = errors.New("payment record not found")

	// ErrInvalidInput wraps synchronous validation failures on intent
	// issuance.
	ErrInvalidInput = errors.New("invalid input")

	// ErrAlreadyActive rejects issuing a subscription or dependent intent
	// for an entity whose subscription is already active.
	ErrAlreadyActive = errors.New("subscription already active")

	// ErrSettlementConflict signals that a webhook tried to settle a record
	// that is no longer pending. Callers treat it as a no-op success.
	ErrSettlementConflict = errors.New("payment record already settled")
)

// PaymentRecord tracks one outbound checkout from issuance to settlement.
// EntityID is the member, dependent or professional the purpose refers to.
type PaymentRecord struct {
	ID               uuid.UUID  `db:"id" json:"id"`
	Purpose          string     `db:"purpose" json:"purpose"`
	EntityID         uuid.UUID  `db:"entity_id" json:"entity_id"`
	Amount           float64    `db:"amount" json:"amount"`
	PaymentMethod    *string    `db:"payment_method" json:"payment_method,omitempty"`
	Status           string     `db:"status" json:"status"`
	CorrelationToken string     `db:"correlation_token" json:"correlation_token"`
	PreferenceID     *string    `db:"preference_id" json:"preference_id,omitempty"`
	GatewayPaymentID *string    `db:"gateway_payment_id" json:"gateway_payment_id,omitempty"`
	DurationDays     *int       `db:"duration_days" json:"duration_days,omitempty"`
	ProcessedAt      *time.Time `db:"processed_at" json:"processed_at,omitempty"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updated_at"`
}

// IntentResult is what intent issuance returns to the caller: where to send
// the payer.
type IntentResult struct {
	PreferenceID string `json:"preference_id"`
	CheckoutURL  string `json:"checkout_url"`
}
