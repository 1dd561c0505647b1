package notification

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type captureSender struct {
	sent []*Notification
	err  error
}

func (c *captureSender) Send(_ context.Context, n *Notification) error {
	if c.err != nil {
		return c.err
	}
	c.sent = append(c.sent, n)
	return nil
}

func TestNotifyRendersTemplate(t *testing.T) {
	sender := &captureSender{}
	svc := NewService(sender)

	err := svc.Notify(context.Background(), "member-1", "settlement_approved", map[string]string{"amount": "75.00"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sender.sent) != 1 {
		t.Fatalf("expected one send, got %d", len(sender.sent))
	}
	n := sender.sent[0]
	if n.Body != "Your clinic settlement of 75.00 was approved." {
		t.Errorf("unexpected body %q", n.Body)
	}
	if n.Recipient != "member-1" {
		t.Errorf("unexpected recipient %q", n.Recipient)
	}
}

func TestBuiltInTemplatesRenderFully(t *testing.T) {
	// The settlement data shape: every placeholder a built-in template uses
	// must be covered, so no literal {{key}} ever reaches a recipient.
	data := map[string]string{
		"amount":         "240.00",
		"expires_at":     "2027-08-29T12:00:00Z",
		"dependent_name": "Bia",
		"duration_days":  "30",
	}

	for _, id := range []string{
		"subscription_activated",
		"dependent_activated",
		"settlement_approved",
		"agenda_access_granted",
	} {
		sender := &captureSender{}
		svc := NewService(sender)
		if err := svc.Notify(context.Background(), "r", id, data); err != nil {
			t.Fatalf("%s: %v", id, err)
		}
		n := sender.sent[0]
		if strings.Contains(n.Subject, "{{") || strings.Contains(n.Body, "{{") {
			t.Errorf("%s rendered with unresolved placeholders: %q %q", id, n.Subject, n.Body)
		}
	}
}

func TestNotifyUnknownTemplate(t *testing.T) {
	svc := NewService(&captureSender{})

	if err := svc.Notify(context.Background(), "x", "password_reset", nil); err == nil {
		t.Error("expected error for unknown template")
	}
}

func TestNotifyRecordsFailures(t *testing.T) {
	sender := &captureSender{err: errors.New("smtp down")}
	svc := NewService(sender)

	err := svc.Notify(context.Background(), "x", "subscription_activated", nil)
	if err == nil {
		t.Fatal("expected send error")
	}
	history := svc.History()
	if len(history) != 1 || history[0].Status != "failed" {
		t.Errorf("expected failed history entry, got %+v", history)
	}
}

func TestRegisterTemplateOverrides(t *testing.T) {
	sender := &captureSender{}
	svc := NewService(sender)
	svc.RegisterTemplate(Template{ID: "subscription_activated", Subject: "Hi {{name}}", Body: "ok"})

	if err := svc.Notify(context.Background(), "x", "subscription_activated", map[string]string{"name": "Ana"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sender.sent[0].Subject != "Hi Ana" {
		t.Errorf("unexpected subject %q", sender.sent[0].Subject)
	}
}
