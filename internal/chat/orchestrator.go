// Package chat is the turn engine: it resolves the session, extracts
// entities, prices what it can, asks the model for the reply, and runs the
// confirmation-gated side effects, in a fixed order.
package chat

import (
	"context"
	"time"

	"github.com/google/uuid"

	"concierge_backend/internal/conversations"
	"concierge_backend/internal/extract"
	"concierge_backend/internal/followup"
	"concierge_backend/internal/orders"
	"concierge_backend/internal/pricing"
	"concierge_backend/platform/ai/gemini"
	"concierge_backend/platform/logger"
	"concierge_backend/platform/phone"
	"concierge_backend/platform/sanitize"

	domainevents "concierge_backend/internal/events"
)

const agentName = "Ava"

// historyLimit bounds how much transcript goes to the model each turn.
const historyLimit = 12

// duplicateWindow is how close two identical inbound messages must be to be
// treated as a widget retry rather than a deliberate repeat.
const duplicateWindow = 5 * time.Second

// Fallback copy for turns where the model could not answer. Each failure
// mode gets honest framing; none of them claims anything succeeded.
const (
	fallbackBusy      = "I'm just finishing up your previous message, give me a second and send that again."
	fallbackRateLimit = "We're helping a lot of customers right now and I'm a little behind. Please send that again in a moment."
	fallbackQuota     = "Our chat assistant is offline at the moment. Leave your email and the team will follow up personally."
	fallbackTransient = "Sorry, I'm having trouble answering right now. Could you try that again, or leave your email so the team can reach out?"
	fallbackResolve   = "Sorry, I couldn't open our conversation just now. Please try again in a moment."
)

// SessionResolver resolves a session key to its conversation.
type SessionResolver interface {
	Resolve(ctx context.Context, channel, sessionKey string) (conversations.Conversation, error)
}

// Store is the conversation persistence surface the orchestrator uses.
type Store interface {
	UpdateState(ctx context.Context, conv conversations.Conversation) error
	AppendMessage(ctx context.Context, params conversations.AppendMessageParams) (conversations.Message, error)
	ListRecentMessages(ctx context.Context, conversationID uuid.UUID, limit int) ([]conversations.Message, error)
	LastMessages(ctx context.Context, conversationID uuid.UUID) (*conversations.Message, *conversations.Message, error)
	BackfillContactEmail(ctx context.Context, contactID uuid.UUID, email string) error
	BackfillContactPhone(ctx context.Context, contactID uuid.UUID, phone string) error
	Touch(ctx context.Context, conversationID uuid.UUID, at time.Time) error
}

// ModelGateway is the single generation call per turn.
type ModelGateway interface {
	Complete(ctx context.Context, systemPrompt string, history []gemini.Turn, message string) gemini.Result
}

// OrderChecker is the order-status lookup surface.
type OrderChecker interface {
	Lookup(ctx context.Context, rawNumber string) orders.Lookup
}

// QuoteSender runs the confirmation-gated quote workflow; true means the
// email delivery was confirmed.
type QuoteSender interface {
	SendQuote(ctx context.Context, conv *conversations.Conversation) (quoteNumber string, confirmed bool)
}

// EscalationDispatcher routes situations needing a human.
type EscalationDispatcher interface {
	Dispatch(ctx context.Context, conv *conversations.Conversation, intents extract.Intents, lastMessage string)
}

// Orchestrator handles one inbound message end to end. It is stateless:
// everything durable lives in the store, read at turn start.
type Orchestrator struct {
	extractor  *extract.Extractor
	resolver   SessionResolver
	store      Store
	engine     *pricing.Engine
	orders     OrderChecker
	model      ModelGateway
	composer   *Composer
	quotes     QuoteSender
	escalation EscalationDispatcher
	scheduler  followup.Scheduler
	lock       *TurnLock
	bus        domainevents.Bus
	log        *logger.Logger
}

type OrchestratorDeps struct {
	Extractor  *extract.Extractor
	Resolver   SessionResolver
	Store      Store
	Engine     *pricing.Engine
	Orders     OrderChecker
	Model      ModelGateway
	Composer   *Composer
	Quotes     QuoteSender
	Escalation EscalationDispatcher
	Scheduler  followup.Scheduler
	Lock       *TurnLock
	Bus        domainevents.Bus
	Log        *logger.Logger
}

func NewOrchestrator(deps OrchestratorDeps) *Orchestrator {
	return &Orchestrator{
		extractor:  deps.Extractor,
		resolver:   deps.Resolver,
		store:      deps.Store,
		engine:     deps.Engine,
		orders:     deps.Orders,
		model:      deps.Model,
		composer:   deps.Composer,
		quotes:     deps.Quotes,
		escalation: deps.Escalation,
		scheduler:  deps.Scheduler,
		lock:       deps.Lock,
		bus:        deps.Bus,
		log:        deps.Log,
	}
}

// HandleMessage runs one turn. Every failure past input validation degrades
// into the reply envelope; the widget never sees a raw error shape.
func (o *Orchestrator) HandleMessage(ctx context.Context, req MessageRequest) (MessageResponse, error) {
	message := sanitize.Message(req.MessageText)
	entities := o.extractor.Extract(message)

	conv, err := o.resolver.Resolve(ctx, conversations.ChannelWebchat, req.SessionID)
	if err != nil {
		o.log.DatabaseError("resolve conversation", err)
		return MessageResponse{
			Success: false,
			Message: fallbackResolve,
			Agent:   agentName,
		}, nil
	}

	release, acquired := o.lock.Acquire(ctx, conv.ID.String())
	if !acquired {
		return MessageResponse{
			Success:        true,
			Message:        fallbackBusy,
			Agent:          agentName,
			ConversationID: conv.ID.String(),
		}, nil
	}
	defer release()

	if replay, ok := o.replayDuplicate(ctx, conv.ID, message); ok {
		return MessageResponse{
			Success:        true,
			Message:        replay,
			Agent:          agentName,
			ConversationID: conv.ID.String(),
		}, nil
	}

	emailCapturedNow := o.captureFacts(ctx, &conv, entities)

	var priceResult *pricing.Result
	if entities.Intents.Pricing && conv.Vehicle.Make != "" && conv.Vehicle.Model != "" {
		result := o.engine.Lookup(conv.Vehicle.Make, conv.Vehicle.Model)
		priceResult = &result
		if !result.Blocked {
			conv.Price = &conversations.CalculatedPrice{Sqft: result.Sqft, Cost: result.Cost}
		}
	}

	var orderResult *orders.Lookup
	if entities.Intents.OrderStatus && entities.OrderNumber != "" {
		lookup := o.orders.Lookup(ctx, entities.OrderNumber)
		orderResult = &lookup
		summary := lookup.PromptContext()
		conv.LastOrderLookup = &summary
	}

	reply := o.generateReply(ctx, &conv, entities, priceResult, orderResult, message)

	o.persistMessages(ctx, conv.ID, message, reply, req)

	if conv.Price != nil && conv.Stage != conversations.StageQuoteSent && conv.Stage != conversations.StageCompleted {
		if quoteNumber, confirmed := o.quotes.SendQuote(ctx, &conv); confirmed {
			conv.AdvanceStage(conversations.StageQuoteSent)
			o.publishQuoteSent(ctx, conv, quoteNumber)
		}
	}
	if conv.Email != "" && !conv.ReadyForQuote() && (entities.Intents.Pricing || emailCapturedNow) {
		o.requestManualReview(ctx, conv, "pricing interest without complete vehicle details")
	}

	escalationsBefore := len(conv.EscalationsSent)
	o.escalation.Dispatch(ctx, &conv, entities.Intents, message)
	o.publishEscalations(ctx, conv, escalationsBefore)

	if err := o.store.UpdateState(ctx, conv); err != nil {
		// The customer still gets the reply; the gap is reconciled by hand.
		o.log.PersistenceFailure("update conversation state", conv.ID.String(), err)
	}

	o.publishTurnCompleted(ctx, conv, priceResult, orderResult)

	return o.buildResponse(conv, entities, reply, priceResult, orderResult), nil
}

// captureFacts merges this message's entities into the conversation and
// backfills the contact record. Reports whether an email was captured on
// this turn.
func (o *Orchestrator) captureFacts(ctx context.Context, conv *conversations.Conversation, entities extract.Entities) bool {
	capturedNow := conv.CaptureEmail(entities.Email)
	conv.CaptureVehicle(conversations.Vehicle{
		Year:  entities.Vehicle.Year,
		Make:  entities.Vehicle.Make,
		Model: entities.Vehicle.Model,
	})

	if entities.Email != "" {
		if err := o.store.BackfillContactEmail(ctx, conv.ContactID, entities.Email); err != nil {
			o.log.DatabaseError("backfill contact email", err)
		}
	}
	if entities.Phone != "" && phone.IsPlausible(entities.Phone) {
		if normalized := phone.NormalizeE164(entities.Phone); normalized != "" {
			if err := o.store.BackfillContactPhone(ctx, conv.ContactID, normalized); err != nil {
				o.log.DatabaseError("backfill contact phone", err)
			}
		}
	}
	return capturedNow
}

// replayDuplicate answers a widget retry (same text within the window) with
// the previous reply instead of running the turn twice.
func (o *Orchestrator) replayDuplicate(ctx context.Context, conversationID uuid.UUID, message string) (string, bool) {
	inbound, outbound, err := o.store.LastMessages(ctx, conversationID)
	if err != nil {
		o.log.DatabaseError("load last messages", err)
		return "", false
	}
	if inbound == nil || outbound == nil {
		return "", false
	}
	if inbound.Content != message {
		return "", false
	}
	if time.Since(inbound.CreatedAt) > duplicateWindow {
		return "", false
	}
	return outbound.Content, true
}

func (o *Orchestrator) generateReply(ctx context.Context, conv *conversations.Conversation, entities extract.Entities, priceResult *pricing.Result, orderResult *orders.Lookup, message string) string {
	pc := PromptContext{
		Intents:       entities.Intents,
		EmailCaptured: conv.Email != "",
		QuoteSent:     conv.Stage == conversations.StageQuoteSent || conv.Stage == conversations.StageCompleted,
		Order:         orderResult,
	}
	if priceResult != nil {
		if priceResult.Blocked {
			pc.PriceBlocked = true
			pc.BlockedVehicle = conv.Vehicle.Make + " " + conv.Vehicle.Model
		} else {
			pc.Priced = true
			pc.PriceSqft = priceResult.Sqft
			pc.PriceCost = priceResult.Cost
		}
	} else if conv.Price != nil {
		// A price from an earlier turn stays quotable.
		pc.Priced = true
		pc.PriceSqft = conv.Price.Sqft
		pc.PriceCost = conv.Price.Cost
	}

	history := o.loadHistory(ctx, conv.ID)
	result := o.model.Complete(ctx, o.composer.Compose(pc), history, message)

	switch result.Outcome {
	case gemini.OutcomeSuccess:
		return result.Text
	case gemini.OutcomeRateLimited:
		o.log.ModelGatewayFailure(conv.ID.String(), string(result.Outcome), result.Err)
		return fallbackRateLimit
	case gemini.OutcomeQuotaExhausted:
		o.log.ModelGatewayFailure(conv.ID.String(), string(result.Outcome), result.Err)
		return fallbackQuota
	default:
		o.log.ModelGatewayFailure(conv.ID.String(), string(result.Outcome), result.Err)
		return fallbackTransient
	}
}

func (o *Orchestrator) loadHistory(ctx context.Context, conversationID uuid.UUID) []gemini.Turn {
	messages, err := o.store.ListRecentMessages(ctx, conversationID, historyLimit)
	if err != nil {
		o.log.DatabaseError("load message history", err)
		return nil
	}
	turns := make([]gemini.Turn, 0, len(messages))
	for _, msg := range messages {
		role := "user"
		if msg.Direction == conversations.DirectionOutbound {
			role = "model"
		}
		turns = append(turns, gemini.Turn{Role: role, Text: msg.Content})
	}
	return turns
}

func (o *Orchestrator) persistMessages(ctx context.Context, conversationID uuid.UUID, inbound, outbound string, req MessageRequest) {
	metadata := map[string]string{}
	if req.PageURL != "" {
		metadata["page_url"] = req.PageURL
	}
	if req.Referrer != "" {
		metadata["referrer"] = req.Referrer
	}
	if req.Geo != "" {
		metadata["geo"] = req.Geo
	}
	if req.OrganizationID != "" {
		metadata["organization_id"] = req.OrganizationID
	}

	_, err := o.store.AppendMessage(ctx, conversations.AppendMessageParams{
		ConversationID: conversationID,
		Direction:      conversations.DirectionInbound,
		Content:        inbound,
		Sender:         "customer",
		Metadata:       metadata,
	})
	if err != nil {
		o.log.PersistenceFailure("append inbound message", conversationID.String(), err)
	}

	_, err = o.store.AppendMessage(ctx, conversations.AppendMessageParams{
		ConversationID: conversationID,
		Direction:      conversations.DirectionOutbound,
		Content:        outbound,
		Sender:         agentName,
	})
	if err != nil {
		o.log.PersistenceFailure("append outbound message", conversationID.String(), err)
	}

	if err := o.store.Touch(ctx, conversationID, time.Now()); err != nil {
		o.log.DatabaseError("touch conversation", err)
	}
}

func (o *Orchestrator) requestManualReview(ctx context.Context, conv conversations.Conversation, reason string) {
	if o.scheduler == nil {
		return
	}
	err := o.scheduler.ScheduleManualReview(ctx, followup.ManualReviewPayload{
		ConversationID: conv.ID.String(),
		CustomerEmail:  conv.Email,
		Reason:         reason,
	})
	if err != nil {
		o.log.Error("schedule manual review failed", "conversation_id", conv.ID.String(), "error", err)
	}
}

func (o *Orchestrator) publishQuoteSent(ctx context.Context, conv conversations.Conversation, quoteNumber string) {
	if o.bus == nil {
		return
	}
	o.bus.Publish(ctx, domainevents.QuoteSent{
		BaseEvent:      domainevents.NewBaseEvent(),
		ConversationID: conv.ID,
		QuoteNumber:    quoteNumber,
		Recipient:      conv.Email,
	})
}

// publishEscalations emits one event per situation Dispatch appended on
// this turn.
func (o *Orchestrator) publishEscalations(ctx context.Context, conv conversations.Conversation, before int) {
	if o.bus == nil {
		return
	}
	for _, tag := range conv.EscalationsSent[before:] {
		o.bus.Publish(ctx, domainevents.EscalationRaised{
			BaseEvent:      domainevents.NewBaseEvent(),
			ConversationID: conv.ID,
			Situation:      tag,
		})
	}
}

func (o *Orchestrator) publishTurnCompleted(ctx context.Context, conv conversations.Conversation, priceResult *pricing.Result, orderResult *orders.Lookup) {
	if o.bus == nil {
		return
	}
	o.bus.Publish(ctx, domainevents.TurnCompleted{
		BaseEvent:      domainevents.NewBaseEvent(),
		ConversationID: conv.ID,
		Stage:          string(conv.Stage),
		PricingGiven:   priceResult != nil && !priceResult.Blocked,
		OrderChecked:   orderResult != nil,
	})
}

func (o *Orchestrator) buildResponse(conv conversations.Conversation, entities extract.Entities, reply string, priceResult *pricing.Result, orderResult *orders.Lookup) MessageResponse {
	resp := MessageResponse{
		Success:        true,
		Message:        reply,
		Agent:          agentName,
		ConversationID: conv.ID.String(),
	}

	if !entities.Vehicle.IsEmpty() || entities.Email != "" || entities.Phone != "" || entities.OrderNumber != "" {
		resp.Extracted = &ExtractedDTO{
			VehicleYear:  entities.Vehicle.Year,
			VehicleMake:  entities.Vehicle.Make,
			VehicleModel: entities.Vehicle.Model,
			Email:        entities.Email,
			Phone:        entities.Phone,
			OrderNumber:  entities.OrderNumber,
		}
	}
	if priceResult != nil {
		resp.Pricing = &PricingDTO{
			Blocked: priceResult.Blocked,
			Sqft:    priceResult.Sqft,
			Cost:    priceResult.Cost,
		}
	}
	if orderResult != nil {
		resp.OrderStatus = &OrderStatusDTO{
			Outcome:     string(orderResult.Outcome),
			OrderNumber: orderResult.OrderNumber,
			Status:      string(orderResult.Status),
		}
	}
	return resp
}
