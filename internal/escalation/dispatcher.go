// Package escalation routes conversations that need a human to the team
// inbox, at most once per situation per conversation.
package escalation

import (
	"context"

	"github.com/google/uuid"

	"concierge_backend/internal/conversations"
	"concierge_backend/internal/email"
	"concierge_backend/internal/extract"
	"concierge_backend/internal/notification/outbox"
	"concierge_backend/platform/logger"
)

// Situation tags. Each fires at most once per conversation.
const (
	SituationComplaint   = "complaint"
	SituationBulkOrder   = "bulk_order"
	SituationDesignIssue = "design_issue"
)

// DetectSituations maps intent flags to situation tags. Situations are
// evaluated independently; one message can produce several.
func DetectSituations(intents extract.Intents) []string {
	var tags []string
	if intents.Complaint {
		tags = append(tags, SituationComplaint)
	}
	if intents.Bulk {
		tags = append(tags, SituationBulkOrder)
	}
	if intents.DesignIssue {
		tags = append(tags, SituationDesignIssue)
	}
	return tags
}

// Store is the slice of the conversation store the dispatcher needs: the
// atomic claim/release pair plus contact lookup for the alert body.
type Store interface {
	ClaimEscalation(ctx context.Context, conversationID uuid.UUID, tag string) (bool, error)
	ReleaseEscalation(ctx context.Context, conversationID uuid.UUID, tag string) error
	GetContact(ctx context.Context, contactID uuid.UUID) (conversations.Contact, error)
}

// Dispatcher sends at most one notification per situation per conversation.
// Dedup is a conditional write at the store: the claim only succeeds if the
// tag is absent, so concurrent turns cannot both send.
type Dispatcher struct {
	repo      Store
	sender    email.Sender
	outbox    *outbox.Repository
	recipient string
	log       *logger.Logger
}

// NewDispatcher creates a Dispatcher. The recipient is the team inbox for
// escalation alerts.
func NewDispatcher(repo Store, sender email.Sender, ob *outbox.Repository, recipient string, log *logger.Logger) *Dispatcher {
	return &Dispatcher{repo: repo, sender: sender, outbox: ob, recipient: recipient, log: log}
}

// Dispatch evaluates the detected intents and sends notifications for any
// situation not yet escalated on this conversation. Failures release the
// claim so a later turn can retry; they never fail the customer's turn.
func (d *Dispatcher) Dispatch(ctx context.Context, conv *conversations.Conversation, intents extract.Intents, lastMessage string) {
	if d.recipient == "" {
		return
	}
	for _, tag := range DetectSituations(intents) {
		if conv.HasEscalation(tag) {
			continue
		}
		d.dispatchOne(ctx, conv, tag, lastMessage)
	}
}

func (d *Dispatcher) dispatchOne(ctx context.Context, conv *conversations.Conversation, tag, lastMessage string) {
	claimed, err := d.repo.ClaimEscalation(ctx, conv.ID, tag)
	if err != nil {
		d.log.DatabaseError("claim escalation", err)
		return
	}
	if !claimed {
		// Another turn got there first.
		return
	}

	contact, err := d.repo.GetContact(ctx, conv.ContactID)
	if err != nil {
		d.log.DatabaseError("load contact for escalation", err)
		contact = conversations.Contact{}
	}

	payload := email.EscalationEmail{
		Situation:      tag,
		ConversationID: conv.ID.String(),
		CustomerEmail:  conv.Email,
		LastMessage:    lastMessage,
	}
	if payload.CustomerEmail == "" && contact.Email != nil {
		payload.CustomerEmail = *contact.Email
	}
	if contact.Phone != nil {
		payload.CustomerPhone = *contact.Phone
	}

	sendErr := d.sender.SendEscalationEmail(ctx, d.recipient, payload)
	if sendErr != nil {
		d.log.Error("escalation send failed",
			"conversation_id", conv.ID.String(),
			"situation", tag,
			"error", sendErr,
		)
		if relErr := d.repo.ReleaseEscalation(ctx, conv.ID, tag); relErr != nil {
			d.log.DatabaseError("release escalation claim", relErr)
		}
		d.recordOutbox(ctx, conv, tag, payload, outbox.StatusFailed, sendErr)
		return
	}

	conv.EscalationsSent = append(conv.EscalationsSent, tag)
	d.log.EscalationSent(conv.ID.String(), tag)
	d.recordOutbox(ctx, conv, tag, payload, outbox.StatusSucceeded, nil)
}

func (d *Dispatcher) recordOutbox(ctx context.Context, conv *conversations.Conversation, tag string, payload email.EscalationEmail, status outbox.Status, sendErr error) {
	if d.outbox == nil {
		return
	}
	var lastError *string
	if sendErr != nil {
		msg := sendErr.Error()
		lastError = &msg
	}
	_, err := d.outbox.Insert(ctx, outbox.InsertParams{
		ConversationID: conv.ID,
		Kind:           outbox.KindEscalation,
		Recipient:      d.recipient,
		Payload:        payload,
		Status:         status,
		LastError:      lastError,
	})
	if err != nil {
		d.log.DatabaseError("record escalation outbox", err)
	}
}
