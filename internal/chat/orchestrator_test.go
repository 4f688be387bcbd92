package chat

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"concierge_backend/internal/conversations"
	"concierge_backend/internal/extract"
	"concierge_backend/internal/followup"
	"concierge_backend/internal/orders"
	"concierge_backend/internal/pricing"
	"concierge_backend/platform/ai/gemini"
	"concierge_backend/platform/logger"
)

type fakeResolver struct {
	conv conversations.Conversation
	err  error
}

func (f *fakeResolver) Resolve(context.Context, string, string) (conversations.Conversation, error) {
	return f.conv, f.err
}

type fakeStore struct {
	appended     []conversations.AppendMessageParams
	stateUpdates []conversations.Conversation
	updateErr    error
	touches      int
	lastInbound  *conversations.Message
	lastOutbound *conversations.Message
}

func (f *fakeStore) UpdateState(_ context.Context, conv conversations.Conversation) error {
	f.stateUpdates = append(f.stateUpdates, conv)
	return f.updateErr
}

func (f *fakeStore) AppendMessage(_ context.Context, params conversations.AppendMessageParams) (conversations.Message, error) {
	f.appended = append(f.appended, params)
	return conversations.Message{}, nil
}

func (f *fakeStore) ListRecentMessages(context.Context, uuid.UUID, int) ([]conversations.Message, error) {
	return nil, nil
}

func (f *fakeStore) LastMessages(context.Context, uuid.UUID) (*conversations.Message, *conversations.Message, error) {
	return f.lastInbound, f.lastOutbound, nil
}

func (f *fakeStore) BackfillContactEmail(context.Context, uuid.UUID, string) error { return nil }
func (f *fakeStore) BackfillContactPhone(context.Context, uuid.UUID, string) error { return nil }

func (f *fakeStore) Touch(context.Context, uuid.UUID, time.Time) error {
	f.touches++
	return nil
}

type fakeModel struct {
	result       gemini.Result
	calls        int
	lastPrompt   string
	lastMessage  string
	historyCount int
}

func (f *fakeModel) Complete(_ context.Context, systemPrompt string, history []gemini.Turn, message string) gemini.Result {
	f.calls++
	f.lastPrompt = systemPrompt
	f.lastMessage = message
	f.historyCount = len(history)
	return f.result
}

type fakeOrders struct {
	lookup orders.Lookup
	calls  int
}

func (f *fakeOrders) Lookup(_ context.Context, _ string) orders.Lookup {
	f.calls++
	return f.lookup
}

type fakeQuotes struct {
	confirm bool
	calls   int
}

func (f *fakeQuotes) SendQuote(_ context.Context, _ *conversations.Conversation) (string, bool) {
	f.calls++
	return "EST-2026-0001", f.confirm
}

type fakeEscalation struct {
	calls int
}

func (f *fakeEscalation) Dispatch(_ context.Context, _ *conversations.Conversation, _ extract.Intents, _ string) {
	f.calls++
}

type fakeScheduler struct {
	reviews []followup.ManualReviewPayload
}

func (f *fakeScheduler) ScheduleManualReview(_ context.Context, payload followup.ManualReviewPayload) error {
	f.reviews = append(f.reviews, payload)
	return nil
}

func (f *fakeScheduler) ScheduleOutboxRetry(context.Context, followup.OutboxRetryPayload, time.Time) error {
	return nil
}

type fixture struct {
	orchestrator *Orchestrator
	resolver     *fakeResolver
	store        *fakeStore
	model        *fakeModel
	orders       *fakeOrders
	quotes       *fakeQuotes
	escalation   *fakeEscalation
	scheduler    *fakeScheduler
}

func newFixture() *fixture {
	f := &fixture{
		resolver: &fakeResolver{conv: conversations.Conversation{
			ID:        uuid.New(),
			ContactID: uuid.New(),
			Stage:     conversations.StageInitial,
		}},
		store:      &fakeStore{},
		model:      &fakeModel{result: gemini.Result{Outcome: gemini.OutcomeSuccess, Text: "Happy to help!"}},
		orders:     &fakeOrders{},
		quotes:     &fakeQuotes{},
		escalation: &fakeEscalation{},
		scheduler:  &fakeScheduler{},
	}
	engine := pricing.NewEngine(map[string]float64{"fordf150": 250}, 5.27)
	f.orchestrator = NewOrchestrator(OrchestratorDeps{
		Extractor:  extract.New(extract.DefaultConfig()),
		Resolver:   f.resolver,
		Store:      f.store,
		Engine:     engine,
		Orders:     f.orders,
		Model:      f.model,
		Composer:   NewComposer("Apex Wraps", "https://apexwraps.example/estimator"),
		Quotes:     f.quotes,
		Escalation: f.escalation,
		Scheduler:  f.scheduler,
		Lock:       NewTurnLock(nil),
		Log:        logger.New("test"),
	})
	return f
}

func request(text string) MessageRequest {
	return MessageRequest{SessionID: "sess-1", MessageText: text}
}

func TestHandleMessagePricesKnownVehicle(t *testing.T) {
	f := newFixture()

	resp, err := f.orchestrator.HandleMessage(context.Background(), request("How much to wrap my 2021 Ford F-150?"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !resp.Success {
		t.Fatal("expected success")
	}
	if resp.Pricing == nil || resp.Pricing.Blocked {
		t.Fatalf("expected unblocked pricing, got %+v", resp.Pricing)
	}
	if resp.Pricing.Cost != 1318 {
		t.Fatalf("expected cost 1318, got %d", resp.Pricing.Cost)
	}
	if !strings.Contains(f.model.lastPrompt, "$1318") {
		t.Fatal("prompt must carry the exact computed price")
	}
	if f.model.calls != 1 {
		t.Fatalf("model must be called exactly once, got %d", f.model.calls)
	}
}

func TestHandleMessageBlocksUnknownModel(t *testing.T) {
	f := newFixture()

	resp, err := f.orchestrator.HandleMessage(context.Background(), request("what's the price to wrap my 1985 Yugo GV"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Pricing == nil || !resp.Pricing.Blocked {
		t.Fatalf("expected blocked pricing, got %+v", resp.Pricing)
	}
	if !strings.Contains(f.model.lastPrompt, "Do NOT state any price") {
		t.Fatal("prompt must forbid inventing a price for an unknown model")
	}
	if len(f.store.stateUpdates) != 1 {
		t.Fatal("state must still be persisted")
	}
	if f.store.stateUpdates[0].Price != nil {
		t.Fatal("a blocked lookup must not store a price")
	}
}

func TestHandleMessageModelFailureFallbacks(t *testing.T) {
	cases := []struct {
		outcome  gemini.Outcome
		fallback string
	}{
		{gemini.OutcomeRateLimited, fallbackRateLimit},
		{gemini.OutcomeQuotaExhausted, fallbackQuota},
		{gemini.OutcomeTransient, fallbackTransient},
	}
	for _, tc := range cases {
		f := newFixture()
		f.model.result = gemini.Result{Outcome: tc.outcome, Err: errors.New("upstream")}

		resp, err := f.orchestrator.HandleMessage(context.Background(), request("hello there"))
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tc.outcome, err)
		}
		if resp.Message != tc.fallback {
			t.Fatalf("%s: expected fallback %q, got %q", tc.outcome, tc.fallback, resp.Message)
		}
		if len(f.store.appended) != 2 {
			t.Fatalf("%s: turn must still be recorded, got %d messages", tc.outcome, len(f.store.appended))
		}
	}
}

func TestHandleMessagePersistenceFailureStillReturnsReply(t *testing.T) {
	f := newFixture()
	f.store.updateErr = errors.New("db down")

	resp, err := f.orchestrator.HandleMessage(context.Background(), request("hi"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Message != "Happy to help!" {
		t.Fatalf("reply must survive a state persistence failure, got %q", resp.Message)
	}
}

func TestHandleMessageQuoteGating(t *testing.T) {
	f := newFixture()
	f.resolver.conv.Email = "sam@example.com"
	f.resolver.conv.Stage = conversations.StageEmailCaptured
	f.resolver.conv.Vehicle = conversations.Vehicle{Year: "2021", Make: "Ford", Model: "F-150"}
	f.quotes.confirm = true

	_, err := f.orchestrator.HandleMessage(context.Background(), request("how much would that cost?"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.quotes.calls != 1 {
		t.Fatalf("expected quote workflow to run once, got %d", f.quotes.calls)
	}
	if got := f.store.stateUpdates[0].Stage; got != conversations.StageQuoteSent {
		t.Fatalf("confirmed send must advance stage to quote_sent, got %s", got)
	}
}

func TestHandleMessageQuoteFailureLeavesStage(t *testing.T) {
	f := newFixture()
	f.resolver.conv.Email = "sam@example.com"
	f.resolver.conv.Stage = conversations.StageEmailCaptured
	f.resolver.conv.Vehicle = conversations.Vehicle{Year: "2021", Make: "Ford", Model: "F-150"}
	f.quotes.confirm = false

	_, err := f.orchestrator.HandleMessage(context.Background(), request("how much would that cost?"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := f.store.stateUpdates[0].Stage; got != conversations.StageEmailCaptured {
		t.Fatalf("failed send must not advance the stage, got %s", got)
	}
}

func TestHandleMessageEmailWithoutVehicleRequestsReview(t *testing.T) {
	f := newFixture()

	_, err := f.orchestrator.HandleMessage(context.Background(), request("you can reach me at sam@example.com"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(f.scheduler.reviews) != 1 {
		t.Fatalf("expected a manual review request, got %d", len(f.scheduler.reviews))
	}
	if f.scheduler.reviews[0].CustomerEmail != "sam@example.com" {
		t.Fatalf("unexpected review payload %+v", f.scheduler.reviews[0])
	}
	if got := f.store.stateUpdates[0].Stage; got != conversations.StageEmailCaptured {
		t.Fatalf("capturing an email must advance to email_captured, got %s", got)
	}
}

func TestHandleMessageLaterPricingIntentRequestsReview(t *testing.T) {
	f := newFixture()
	f.resolver.conv.Email = "sam@example.com"
	f.resolver.conv.Stage = conversations.StageEmailCaptured
	f.resolver.conv.Vehicle = conversations.Vehicle{Make: "Honda"}

	_, err := f.orchestrator.HandleMessage(context.Background(), request("so how much would a wrap cost?"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(f.scheduler.reviews) != 1 {
		t.Fatalf("pricing intent with an incomplete vehicle must request review, got %d", len(f.scheduler.reviews))
	}
}

func TestHandleMessageResolveFailureReturnsSafeFallback(t *testing.T) {
	f := newFixture()
	f.resolver.err = errors.New("db down")

	resp, err := f.orchestrator.HandleMessage(context.Background(), request("hi"))
	if err != nil {
		t.Fatalf("resolve failure must degrade into the envelope, got error %v", err)
	}
	if resp.Success {
		t.Fatal("resolve failure must report success=false")
	}
	if resp.Message == "" {
		t.Fatal("resolve failure must carry a fallback message")
	}
	if f.model.calls != 0 {
		t.Fatal("no model call when the session cannot be resolved")
	}
}

func TestHandleMessagePersistsPageContext(t *testing.T) {
	f := newFixture()

	req := request("hi")
	req.PageURL = "https://apexwraps.example/gallery"
	req.OrganizationID = "org-77"
	if _, err := f.orchestrator.HandleMessage(context.Background(), req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	inbound := f.store.appended[0]
	if inbound.Metadata["page_url"] != "https://apexwraps.example/gallery" {
		t.Fatalf("page_url missing from metadata: %+v", inbound.Metadata)
	}
	if inbound.Metadata["organization_id"] != "org-77" {
		t.Fatalf("organization_id missing from metadata: %+v", inbound.Metadata)
	}
	if f.store.touches != 1 {
		t.Fatalf("expected the conversation to be touched once, got %d", f.store.touches)
	}
}

func TestHandleMessageDuplicateReplaysLastReply(t *testing.T) {
	f := newFixture()
	now := time.Now()
	f.store.lastInbound = &conversations.Message{Content: "hi again", CreatedAt: now}
	f.store.lastOutbound = &conversations.Message{Content: "Welcome back!", CreatedAt: now}

	resp, err := f.orchestrator.HandleMessage(context.Background(), request("hi again"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Message != "Welcome back!" {
		t.Fatalf("expected replayed reply, got %q", resp.Message)
	}
	if f.model.calls != 0 {
		t.Fatal("a replayed turn must not call the model")
	}
	if len(f.store.appended) != 0 {
		t.Fatal("a replayed turn must not append messages")
	}
}

func TestHandleMessageOrderLookup(t *testing.T) {
	f := newFixture()
	f.orders.lookup = orders.Lookup{
		Outcome:     orders.OutcomeFound,
		OrderNumber: "WD-9912",
		Status:      orders.StatusShipped,
		Summary:     "It is on the way.",
	}

	resp, err := f.orchestrator.HandleMessage(context.Background(), request("where is my order #WD-9912?"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.orders.calls != 1 {
		t.Fatalf("expected one order lookup, got %d", f.orders.calls)
	}
	if resp.OrderStatus == nil || resp.OrderStatus.Status != string(orders.StatusShipped) {
		t.Fatalf("unexpected order status %+v", resp.OrderStatus)
	}
	if !strings.Contains(f.model.lastPrompt, "ORDER STATUS") {
		t.Fatal("prompt must carry the order status block")
	}
	if f.store.stateUpdates[0].LastOrderLookup == nil {
		t.Fatal("order lookup summary must be stored on the conversation")
	}
}

func TestHandleMessageEscalationAlwaysDispatched(t *testing.T) {
	f := newFixture()

	_, err := f.orchestrator.HandleMessage(context.Background(), request("this wrap job was terrible, I want a refund"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.escalation.calls != 1 {
		t.Fatalf("expected escalation dispatch, got %d calls", f.escalation.calls)
	}
}
