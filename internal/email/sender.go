// Package email renders and delivers the concierge's outbound notifications:
// quote emails to customers, escalation alerts to the team, and manual
// follow-up requests.
package email

import "context"

// QuoteEmail is the payload for a customer quote.
type QuoteEmail struct {
	QuoteNumber    string
	VehicleYear    string
	VehicleMake    string
	VehicleModel   string
	Sqft           float64
	CostFormatted  string
	EstimatorURL   string
}

// EscalationEmail is the payload for an internal escalation alert.
type EscalationEmail struct {
	Situation      string
	ConversationID string
	CustomerEmail  string
	CustomerPhone  string
	LastMessage    string
}

// FollowUpEmail is the payload for an internal manual-review request.
type FollowUpEmail struct {
	ConversationID string
	CustomerEmail  string
	Reason         string
}

// Sender delivers the concierge's notification emails.
type Sender interface {
	SendQuoteEmail(ctx context.Context, toEmail string, data QuoteEmail) error
	SendEscalationEmail(ctx context.Context, toEmail string, data EscalationEmail) error
	SendFollowUpEmail(ctx context.Context, toEmail string, data FollowUpEmail) error
}

// NopSender is used when email delivery is disabled. Every send reports
// failure so confirmation-gated workflows do not advance on a no-op.
type NopSender struct{}

func (NopSender) SendQuoteEmail(context.Context, string, QuoteEmail) error {
	return ErrDeliveryDisabled
}

func (NopSender) SendEscalationEmail(context.Context, string, EscalationEmail) error {
	return ErrDeliveryDisabled
}

func (NopSender) SendFollowUpEmail(context.Context, string, FollowUpEmail) error {
	return ErrDeliveryDisabled
}
