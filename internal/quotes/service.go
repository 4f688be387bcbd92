package quotes

import (
	"context"
	"time"

	"github.com/google/uuid"

	"concierge_backend/internal/conversations"
	"concierge_backend/internal/email"
	"concierge_backend/internal/followup"
	"concierge_backend/internal/notification/outbox"
	"concierge_backend/platform/logger"
)

// Store is the slice of the quote repository the workflow needs.
type Store interface {
	NextQuoteNumber(ctx context.Context) (string, error)
	Create(ctx context.Context, quote *Quote) error
	MarkSent(ctx context.Context, id uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID, reason string) error
	GetByConversation(ctx context.Context, conversationID uuid.UUID) (*Quote, error)
}

// Service runs the confirmation-gated quote workflow.
type Service struct {
	store        Store
	sender       email.Sender
	outbox       *outbox.Repository
	scheduler    followup.Scheduler
	estimatorURL string
	log          *logger.Logger
}

func NewService(store Store, sender email.Sender, ob *outbox.Repository, scheduler followup.Scheduler, estimatorURL string, log *logger.Logger) *Service {
	return &Service{store: store, sender: sender, outbox: ob, scheduler: scheduler, estimatorURL: estimatorURL, log: log}
}

// SendQuote creates the estimate record and emails it. It reports the quote
// number and whether the send was confirmed; callers advance the
// conversation stage only on a confirmed send. A failure never raises: the
// turn continues with honest "still preparing" framing.
func (s *Service) SendQuote(ctx context.Context, conv *conversations.Conversation) (string, bool) {
	if conv.Price == nil || conv.Email == "" || !conv.ReadyForQuote() {
		return "", false
	}

	// A sent quote already on file means an earlier turn confirmed delivery
	// but the stage update was lost; re-confirm instead of emailing twice.
	if existing, err := s.store.GetByConversation(ctx, conv.ID); err != nil {
		s.log.DatabaseError("load existing quote", err)
	} else if existing != nil && existing.Status == StatusSent {
		return existing.QuoteNumber, true
	}

	number, err := s.store.NextQuoteNumber(ctx)
	if err != nil {
		s.log.DatabaseError("generate quote number", err)
		return "", false
	}

	quote := &Quote{
		ConversationID: conv.ID,
		QuoteNumber:    number,
		VehicleYear:    conv.Vehicle.Year,
		VehicleMake:    conv.Vehicle.Make,
		VehicleModel:   conv.Vehicle.Model,
		Sqft:           conv.Price.Sqft,
		CostDollars:    conv.Price.Cost,
		RecipientEmail: conv.Email,
	}
	if err := s.store.Create(ctx, quote); err != nil {
		s.log.DatabaseError("create quote", err)
		return "", false
	}

	payload := email.QuoteEmail{
		QuoteNumber:   quote.QuoteNumber,
		VehicleYear:   quote.VehicleYear,
		VehicleMake:   quote.VehicleMake,
		VehicleModel:  quote.VehicleModel,
		Sqft:          quote.Sqft,
		CostFormatted: email.FormatUSD(quote.CostDollars),
		EstimatorURL:  s.estimatorURL,
	}
	if err := s.sender.SendQuoteEmail(ctx, conv.Email, payload); err != nil {
		s.log.Error("quote email send failed",
			"conversation_id", conv.ID.String(),
			"quote_number", quote.QuoteNumber,
			"error", err,
		)
		if markErr := s.store.MarkFailed(ctx, quote.ID, err.Error()); markErr != nil {
			s.log.DatabaseError("mark quote failed", markErr)
		}
		outboxID := s.recordOutbox(ctx, conv, payload, outbox.StatusPending, err)
		if outboxID != uuid.Nil && s.scheduler != nil {
			retryErr := s.scheduler.ScheduleOutboxRetry(ctx, followup.OutboxRetryPayload{
				OutboxID: outboxID.String(),
			}, time.Now().Add(5*time.Minute))
			if retryErr != nil {
				s.log.Error("schedule quote retry failed", "outbox_id", outboxID.String(), "error", retryErr)
			}
		}
		return quote.QuoteNumber, false
	}

	if err := s.store.MarkSent(ctx, quote.ID); err != nil {
		// The email left the building; the record catches up via the outbox.
		s.log.DatabaseError("mark quote sent", err)
	}
	s.log.Info("quote email sent",
		"conversation_id", conv.ID.String(),
		"quote_number", quote.QuoteNumber,
	)
	s.recordOutbox(ctx, conv, payload, outbox.StatusSucceeded, nil)
	return quote.QuoteNumber, true
}

func (s *Service) recordOutbox(ctx context.Context, conv *conversations.Conversation, payload email.QuoteEmail, status outbox.Status, sendErr error) uuid.UUID {
	if s.outbox == nil {
		return uuid.Nil
	}
	var lastError *string
	if sendErr != nil {
		msg := sendErr.Error()
		lastError = &msg
	}
	id, err := s.outbox.Insert(ctx, outbox.InsertParams{
		ConversationID: conv.ID,
		Kind:           outbox.KindQuote,
		Recipient:      conv.Email,
		Payload:        payload,
		Status:         status,
		LastError:      lastError,
	})
	if err != nil {
		s.log.DatabaseError("record quote outbox", err)
		return uuid.Nil
	}
	return id
}
