// Package notification delivers settlement and activation notices to members
// and professionals through a pluggable sender, with simple template
// rendering. The in-process log sender is the default; a mail or push sender
// can be swapped in without touching callers.
package notification

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Notification represents a single outbound notice.
type Notification struct {
	ID         string            `json:"id"`
	Recipient  string            `json:"recipient"`
	Subject    string            `json:"subject"`
	Body       string            `json:"body"`
	TemplateID string            `json:"template_id,omitempty"`
	Data       map[string]string `json:"data,omitempty"`
	Status     string            `json:"status"`
	CreatedAt  time.Time         `json:"created_at"`
	SentAt     *time.Time        `json:"sent_at,omitempty"`
	Error      string            `json:"error,omitempty"`
}

// Sender delivers a rendered notification to its recipient.
type Sender interface {
	Send(ctx context.Context, n *Notification) error
}

// Template defines a reusable notification template. Placeholders use
// {{key}} syntax and are replaced from the notification's Data map.
type Template struct {
	ID      string
	Subject string
	Body    string
}

// Built-in templates for the settlement effects.
var builtInTemplates = []Template{
	{
		ID:      "subscription_activated",
		Subject: "Subscription active",
		Body:    "Your convenio subscription is active until {{expires_at}}.",
	},
	{
		ID:      "dependent_activated",
		Subject: "Dependent activated",
		Body:    "Dependent {{dependent_name}} is covered until {{expires_at}}.",
	},
	{
		ID:      "settlement_approved",
		Subject: "Settlement received",
		Body:    "Your clinic settlement of {{amount}} was approved.",
	},
	{
		ID:      "agenda_access_granted",
		Subject: "Agenda access granted",
		Body:    "Your agenda access is active until {{expires_at}}.",
	},
}

// Service renders templates and hands the result to the configured sender.
// Sent notifications are retained in memory for operator inspection.
type Service struct {
	mu        sync.RWMutex
	templates map[string]Template
	history   []*Notification
	sender    Sender
}

func NewService(sender Sender) *Service {
	s := &Service{
		templates: make(map[string]Template),
		sender:    sender,
	}
	for _, t := range builtInTemplates {
		s.templates[t.ID] = t
	}
	return s
}

// RegisterTemplate adds or replaces a template.
func (s *Service) RegisterTemplate(t Template) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.templates[t.ID] = t
}

// Notify renders the template and sends it. Send failures are recorded on the
// notification and returned; settlement callers log and continue, since the
// business effect has already committed.
func (s *Service) Notify(ctx context.Context, recipient, templateID string, data map[string]string) error {
	s.mu.RLock()
	tmpl, ok := s.templates[templateID]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("unknown notification template %q", templateID)
	}

	n := &Notification{
		ID:         uuid.New().String(),
		Recipient:  recipient,
		Subject:    render(tmpl.Subject, data),
		Body:       render(tmpl.Body, data),
		TemplateID: templateID,
		Data:       data,
		Status:     "pending",
		CreatedAt:  time.Now(),
	}

	err := s.sender.Send(ctx, n)
	now := time.Now()
	if err != nil {
		n.Status = "failed"
		n.Error = err.Error()
	} else {
		n.Status = "sent"
		n.SentAt = &now
	}

	s.mu.Lock()
	s.history = append(s.history, n)
	s.mu.Unlock()

	return err
}

// History returns a copy of all notifications processed so far.
func (s *Service) History() []*Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Notification, len(s.history))
	copy(out, s.history)
	return out
}

func render(text string, data map[string]string) string {
	for k, v := range data {
		text = strings.ReplaceAll(text, "{{"+k+"}}", v)
	}
	return text
}

// LogSender writes notifications to the structured log. It is the default
// sink when no delivery channel is configured.
type LogSender struct {
	logger zerolog.Logger
}

func NewLogSender(logger zerolog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (l *LogSender) Send(_ context.Context, n *Notification) error {
	l.logger.Info().
		Str("recipient", n.Recipient).
		Str("template", n.TemplateID).
		Str("subject", n.Subject).
		Msg("notification")
	return nil
}
