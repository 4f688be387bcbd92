// Package events provides domain event definitions for decoupled
// communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"concierge_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// TurnCompleted is published after a conversation turn has been fully
// handled and answered.
type TurnCompleted struct {
	BaseEvent
	ConversationID uuid.UUID `json:"conversationId"`
	Stage          string    `json:"stage"`
	PricingGiven   bool      `json:"pricingGiven"`
	OrderChecked   bool      `json:"orderChecked"`
}

func (e TurnCompleted) EventName() string { return "chat.turn.completed" }

// QuoteSent is published when a quote email delivery was confirmed.
type QuoteSent struct {
	BaseEvent
	ConversationID uuid.UUID `json:"conversationId"`
	QuoteNumber    string    `json:"quoteNumber"`
	Recipient      string    `json:"recipient"`
}

func (e QuoteSent) EventName() string { return "chat.quote.sent" }

// EscalationRaised is published after an escalation notification went out.
type EscalationRaised struct {
	BaseEvent
	ConversationID uuid.UUID `json:"conversationId"`
	Situation      string    `json:"situation"`
}

func (e EscalationRaised) EventName() string { return "chat.escalation.raised" }
