package events

import (
	"context"

	"concierge_backend/platform/logger"
)

// AuditLog writes every chat domain event to the structured log, so turn
// outcomes and side effects stay observable without a metrics stack.
type AuditLog struct {
	log *logger.Logger
}

func NewAuditLog(log *logger.Logger) *AuditLog {
	return &AuditLog{log: log}
}

// RegisterHandlers subscribes the audit log to all chat domain events.
func (a *AuditLog) RegisterHandlers(bus Bus) {
	bus.Subscribe(TurnCompleted{}.EventName(), a)
	bus.Subscribe(QuoteSent{}.EventName(), a)
	bus.Subscribe(EscalationRaised{}.EventName(), a)
}

func (a *AuditLog) Handle(_ context.Context, event Event) error {
	switch e := event.(type) {
	case TurnCompleted:
		a.log.Info("turn completed",
			"conversation_id", e.ConversationID.String(),
			"stage", e.Stage,
			"pricing_given", e.PricingGiven,
			"order_checked", e.OrderChecked,
		)
	case QuoteSent:
		a.log.Info("quote sent",
			"conversation_id", e.ConversationID.String(),
			"quote_number", e.QuoteNumber,
			"recipient", e.Recipient,
		)
	case EscalationRaised:
		a.log.Info("escalation raised",
			"conversation_id", e.ConversationID.String(),
			"situation", e.Situation,
		)
	default:
		a.log.Warn("unhandled audit event", "event", event.EventName())
	}
	return nil
}
