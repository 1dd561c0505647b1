package billing

import (
	"context"

	"github.com/google/uuid"
)

// Repository is the persistence port for payment records.
type Repository interface {
	Create(ctx context.Context, p *PaymentRecord) error
	GetByToken(ctx context.Context, token string) (*PaymentRecord, error)
	// ApproveByToken settles the pending record holding the exact token:
	// status moves to approved and the gateway payment id is attached. When
	// no pending row matches, it returns ErrSettlementConflict if the token
	// was already settled and ErrNotFound otherwise.
	ApproveByToken(ctx context.Context, token, gatewayPaymentID string, paymentMethod *string) (*PaymentRecord, error)
	ListByEntity(ctx context.Context, entityID uuid.UUID, limit, offset int) ([]PaymentRecord, int, error)
}
