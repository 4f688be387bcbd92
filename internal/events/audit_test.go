package events

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"concierge_backend/platform/logger"
)

func TestAuditLogHandlesAllChatEvents(t *testing.T) {
	audit := NewAuditLog(logger.New("test"))
	convID := uuid.New()

	published := []Event{
		TurnCompleted{BaseEvent: NewBaseEvent(), ConversationID: convID, Stage: "quote_sent", PricingGiven: true},
		QuoteSent{BaseEvent: NewBaseEvent(), ConversationID: convID, QuoteNumber: "EST-2026-0001", Recipient: "sam@example.com"},
		EscalationRaised{BaseEvent: NewBaseEvent(), ConversationID: convID, Situation: "complaint"},
	}
	for _, event := range published {
		if err := audit.Handle(context.Background(), event); err != nil {
			t.Fatalf("audit handler must not fail for %s: %v", event.EventName(), err)
		}
	}
}

func TestAuditLogReceivesPublishedEvents(t *testing.T) {
	bus := NewInMemoryBus(logger.New("test"))
	audit := NewAuditLog(logger.New("test"))
	audit.RegisterHandlers(bus)

	err := bus.PublishSync(context.Background(), QuoteSent{
		BaseEvent:      NewBaseEvent(),
		ConversationID: uuid.New(),
		QuoteNumber:    "EST-2026-0002",
		Recipient:      "sam@example.com",
	})
	if err != nil {
		t.Fatalf("publish through the audit subscription failed: %v", err)
	}
}
