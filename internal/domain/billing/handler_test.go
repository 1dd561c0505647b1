package billing

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/vidaplus/convenio-api/internal/platform/gateway"
)

func webhookRequest(t *testing.T, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(http.MethodPost, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(http.MethodPost, target, nil)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestWebhookQueryParams(t *testing.T) {
	f := newReconcilerFixture()
	memberID, token := f.pendingSubscription(t)
	f.gw.payment = &gateway.Payment{ID: "gw-1", Status: gateway.StatusApproved, ExternalReference: token}
	h := NewHandler(f.issuer, f.rec)

	c, rec := webhookRequest(t, "/api/v1/payments/webhook?type=payment&data.id=gw-1", "")
	if err := h.Webhook(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if f.members.members[memberID].SubscriptionStatus != "active" {
		t.Error("member must be activated through the webhook")
	}
}

func TestWebhookJSONBody(t *testing.T) {
	f := newReconcilerFixture()
	_, token := f.pendingSubscription(t)
	f.gw.payment = &gateway.Payment{ID: "gw-2", Status: gateway.StatusApproved, ExternalReference: token}
	h := NewHandler(f.issuer, f.rec)

	c, rec := webhookRequest(t, "/api/v1/payments/webhook", `{"type":"payment","data":{"id":"gw-2"}}`)
	if err := h.Webhook(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestWebhookLegacyTopicParams(t *testing.T) {
	f := newReconcilerFixture()
	_, token := f.pendingSubscription(t)
	f.gw.payment = &gateway.Payment{ID: "gw-3", Status: gateway.StatusApproved, ExternalReference: token}
	h := NewHandler(f.issuer, f.rec)

	c, rec := webhookRequest(t, "/api/v1/payments/webhook?topic=payment&id=gw-3", "")
	if err := h.Webhook(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestWebhookMalformed(t *testing.T) {
	f := newReconcilerFixture()
	h := NewHandler(f.issuer, f.rec)

	c, _ := webhookRequest(t, "/api/v1/payments/webhook", "")
	err := h.Webhook(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %v", err)
	}
}

func TestWebhookGatewayDownReturnsBadGateway(t *testing.T) {
	f := newReconcilerFixture()
	f.gw.paymentErr = gateway.ErrUnavailable
	h := NewHandler(f.issuer, f.rec)

	c, _ := webhookRequest(t, "/api/v1/payments/webhook?type=payment&data.id=gw-9", "")
	err := h.Webhook(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusBadGateway {
		t.Errorf("expected 502 so the gateway redelivers, got %v", err)
	}
}

func TestWebhookRejectedPaymentStillAcked(t *testing.T) {
	f := newReconcilerFixture()
	_, token := f.pendingSubscription(t)
	f.gw.payment = &gateway.Payment{ID: "gw-4", Status: gateway.StatusRejected, ExternalReference: token}
	h := NewHandler(f.issuer, f.rec)

	c, rec := webhookRequest(t, "/api/v1/payments/webhook?type=payment&data.id=gw-4", "")
	if err := h.Webhook(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("rejected payments must still be acknowledged, got %d", rec.Code)
	}
	record, _ := f.repo.GetByToken(context.Background(), token)
	if record.Status != StatusPending {
		t.Errorf("record must stay pending, got %s", record.Status)
	}
}
