package email

import (
	"context"

	"sales_leads_backend/platform/config"
)

// Sender delivers owner notifications.
type Sender interface {
	SendLeadAssignedEmail(ctx context.Context, toEmail string, lead LeadSummary) error
	SendLeadsTransferredEmail(ctx context.Context, toEmail, ownerName string, leads []LeadSummary) error
}

// LeadSummary is what an owner sees about a lead in a notification.
type LeadSummary struct {
	ID      int64
	Name    string
	Mobile  string
	Email   string
	City    string
	Service string
	Source  string
}

type NoopSender struct{}

func (NoopSender) SendLeadAssignedEmail(context.Context, string, LeadSummary) error { return nil }

func (NoopSender) SendLeadsTransferredEmail(context.Context, string, string, []LeadSummary) error {
	return nil
}

// NewSender returns an SMTP sender, or a NoopSender when SMTP is not configured.
func NewSender(cfg config.SMTPConfig) Sender {
	if !cfg.IsSMTPEnabled() {
		return NoopSender{}
	}
	return NewSMTPSender(cfg.GetSMTPHost(), cfg.GetSMTPPort(), cfg.GetSMTPUsername(), cfg.GetSMTPPassword(),
		cfg.GetEmailFromAddress(), cfg.GetEmailFromName())
}
