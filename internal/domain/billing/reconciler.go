package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vidaplus/convenio-api/internal/domain/network"
	"github.com/vidaplus/convenio-api/internal/platform/db"
	"github.com/vidaplus/convenio-api/internal/platform/gateway"
)

// SubscriptionActivator applies subscription settlement effects and reports
// the resulting coverage expiry. Satisfied by *network.SubscriptionService.
type SubscriptionActivator interface {
	ActivateMember(ctx context.Context, id uuid.UUID) (time.Time, error)
	ActivateDependent(ctx context.Context, id uuid.UUID) (time.Time, error)
}

// AccessGranter applies agenda-access settlement effects and reports the
// grant expiry. Satisfied by the access ledger service.
type AccessGranter interface {
	GrantFromPayment(ctx context.Context, professionalID uuid.UUID, durationDays int) (time.Time, error)
}

// Notifier delivers post-settlement notifications. Satisfied by
// *notification.Service.
type Notifier interface {
	Notify(ctx context.Context, recipient, templateID string, data map[string]string) error
}

// Reconciler settles asynchronous payment notifications. Delivery is
// at-least-once; settlement effects are applied exactly once per gateway
// payment.
type Reconciler struct {
	gw       Gateway
	repo     Repository
	subs     SubscriptionActivator
	deps     network.DependentRepository
	access   AccessGranter
	notifier Notifier
	tx       db.TxRunner
	log      zerolog.Logger
}

func NewReconciler(gw Gateway, repo Repository, subs SubscriptionActivator, deps network.DependentRepository, access AccessGranter, notifier Notifier, tx db.TxRunner, log zerolog.Logger) *Reconciler {
	return &Reconciler{gw: gw, repo: repo, subs: subs, deps: deps, access: access, notifier: notifier, tx: tx, log: log}
}

// HandleNotification processes one gateway notification. A nil return means
// the notification is consumed and must be acknowledged; only a gateway
// lookup failure propagates, so the provider redelivers.
//
// The gateway fetch happens before the transaction opens: a timeout leaves no
// partial settlement behind.
func (r *Reconciler) HandleNotification(ctx context.Context, notifType, paymentID string) error {
	if notifType != "payment" {
		r.log.Debug().Str("type", notifType).Msg("ignoring non-payment notification")
		return nil
	}

	payment, err := r.gw.GetPayment(ctx, paymentID)
	if err != nil {
		return fmt.Errorf("fetch payment %s: %w", paymentID, err)
	}

	if payment.Status != gateway.StatusApproved {
		r.log.Info().
			Str("payment_id", paymentID).
			Str("status", payment.Status).
			Msg("payment not approved, no settlement effect")
		return nil
	}

	token, err := ParseToken(payment.ExternalReference)
	if err != nil {
		// Unrecognized tokens are acknowledged to stop redelivery storms,
		// but flagged for operator investigation.
		r.log.Warn().
			Str("payment_id", paymentID).
			Str("external_reference", payment.ExternalReference).
			Err(err).
			Msg("unrecognized correlation token")
		return nil
	}

	var method *string
	if payment.PaymentMethod != "" {
		m := payment.PaymentMethod
		method = &m
	}

	settled := false
	var expiresAt *time.Time
	err = r.tx.RunInTx(ctx, func(ctx context.Context) error {
		_, err := r.repo.ApproveByToken(ctx, payment.ExternalReference, payment.ID, method)
		if err != nil {
			return err
		}
		settled = true
		expiresAt, err = r.applyEffect(ctx, token)
		return err
	})
	switch {
	case errors.Is(err, ErrSettlementConflict):
		// Redelivery of an already settled payment: idempotent no-op.
		r.log.Info().
			Str("payment_id", paymentID).
			Str("correlation_token", payment.ExternalReference).
			Msg("payment already settled, skipping")
		return nil
	case errors.Is(err, ErrNotFound):
		r.log.Warn().
			Str("payment_id", paymentID).
			Str("correlation_token", payment.ExternalReference).
			Msg("no payment record matches token")
		return nil
	case err != nil:
		return fmt.Errorf("settle %s: %w", payment.ExternalReference, err)
	}

	if settled {
		r.notify(ctx, token, payment, expiresAt)
	}
	return nil
}

// applyEffect returns the expiry produced by the settlement effect, nil when
// the effect carries none.
func (r *Reconciler) applyEffect(ctx context.Context, token Token) (*time.Time, error) {
	switch token.Purpose {
	case PurposeSubscription:
		until, err := r.subs.ActivateMember(ctx, token.EntityID)
		if err != nil {
			return nil, err
		}
		return &until, nil
	case PurposeDependent:
		until, err := r.subs.ActivateDependent(ctx, token.EntityID)
		if err != nil {
			return nil, err
		}
		return &until, nil
	case PurposeSettlement:
		// The record transition is the whole effect.
		return nil, nil
	case PurposeAgenda:
		until, err := r.access.GrantFromPayment(ctx, token.EntityID, token.DurationDays)
		if err != nil {
			return nil, err
		}
		return &until, nil
	default:
		return nil, fmt.Errorf("unknown purpose %q", token.Purpose)
	}
}

// notify runs after the settlement transaction commits. Failures are logged,
// never propagated: the settlement already happened.
func (r *Reconciler) notify(ctx context.Context, token Token, payment *gateway.Payment, expiresAt *time.Time) {
	data := map[string]string{
		"amount": fmt.Sprintf("%.2f", payment.TransactionAmount),
	}
	if expiresAt != nil {
		data["expires_at"] = expiresAt.UTC().Format(time.RFC3339)
	}

	recipient := token.EntityID.String()
	var templateID string
	switch token.Purpose {
	case PurposeSubscription:
		templateID = "subscription_activated"
	case PurposeDependent:
		templateID = "dependent_activated"
		// The owning member is told, not the dependent.
		if d, err := r.deps.GetByID(ctx, token.EntityID); err == nil {
			recipient = d.MemberID.String()
			data["dependent_name"] = d.Name
		}
	case PurposeSettlement:
		templateID = "settlement_approved"
	case PurposeAgenda:
		templateID = "agenda_access_granted"
		data["duration_days"] = fmt.Sprintf("%d", token.DurationDays)
	}

	if err := r.notifier.Notify(ctx, recipient, templateID, data); err != nil {
		r.log.Error().
			Str("recipient", recipient).
			Str("template", templateID).
			Err(err).
			Msg("post-settlement notification failed")
	}
}
