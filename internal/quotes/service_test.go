package quotes

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"

	"concierge_backend/internal/conversations"
	"concierge_backend/internal/email"
	"concierge_backend/platform/logger"
)

type fakeStore struct {
	nextNum  int
	created  []*Quote
	sent     []uuid.UUID
	failed   []uuid.UUID
	existing *Quote
}

func (s *fakeStore) NextQuoteNumber(context.Context) (string, error) {
	s.nextNum++
	return fmt.Sprintf("EST-2026-%04d", s.nextNum), nil
}

func (s *fakeStore) Create(_ context.Context, quote *Quote) error {
	quote.ID = uuid.New()
	s.created = append(s.created, quote)
	return nil
}

func (s *fakeStore) MarkSent(_ context.Context, id uuid.UUID) error {
	s.sent = append(s.sent, id)
	return nil
}

func (s *fakeStore) MarkFailed(_ context.Context, id uuid.UUID, _ string) error {
	s.failed = append(s.failed, id)
	return nil
}

func (s *fakeStore) GetByConversation(context.Context, uuid.UUID) (*Quote, error) {
	return s.existing, nil
}

type fakeSender struct {
	fail   bool
	quotes []email.QuoteEmail
}

func (f *fakeSender) SendQuoteEmail(_ context.Context, _ string, data email.QuoteEmail) error {
	if f.fail {
		return errors.New("smtp down")
	}
	f.quotes = append(f.quotes, data)
	return nil
}

func (f *fakeSender) SendEscalationEmail(context.Context, string, email.EscalationEmail) error {
	return nil
}

func (f *fakeSender) SendFollowUpEmail(context.Context, string, email.FollowUpEmail) error {
	return nil
}

func readyConversation() *conversations.Conversation {
	return &conversations.Conversation{
		ID:        uuid.New(),
		ContactID: uuid.New(),
		Stage:     conversations.StageEmailCaptured,
		Email:     "sam@example.com",
		Vehicle:   conversations.Vehicle{Year: "2021", Make: "Ford", Model: "F-150"},
		Price:     &conversations.CalculatedPrice{Sqft: 250, Cost: 1318},
	}
}

func TestSendQuoteConfirmedSend(t *testing.T) {
	store := &fakeStore{}
	sender := &fakeSender{}
	svc := NewService(store, sender, nil, nil, "https://apexwraps.example/estimator", logger.New("test"))

	conv := readyConversation()
	number, confirmed := svc.SendQuote(context.Background(), conv)
	if !confirmed {
		t.Fatal("expected confirmed send")
	}
	if number != "EST-2026-0001" {
		t.Fatalf("unexpected quote number %s", number)
	}
	if len(store.created) != 1 || len(store.sent) != 1 {
		t.Fatalf("expected quote created and marked sent, got %d created %d sent", len(store.created), len(store.sent))
	}
	if got := sender.quotes[0].CostFormatted; got != "$1318" {
		t.Fatalf("expected cost $1318, got %s", got)
	}
	if sender.quotes[0].QuoteNumber != "EST-2026-0001" {
		t.Fatalf("unexpected quote number %s", sender.quotes[0].QuoteNumber)
	}
}

func TestSendQuoteReconfirmsAlreadySentQuote(t *testing.T) {
	store := &fakeStore{existing: &Quote{QuoteNumber: "EST-2026-0042", Status: StatusSent}}
	sender := &fakeSender{}
	svc := NewService(store, sender, nil, nil, "", logger.New("test"))

	number, confirmed := svc.SendQuote(context.Background(), readyConversation())
	if !confirmed {
		t.Fatal("an already-sent quote must re-confirm")
	}
	if number != "EST-2026-0042" {
		t.Fatalf("expected the existing quote number, got %s", number)
	}
	if len(store.created) != 0 || len(sender.quotes) != 0 {
		t.Fatal("re-confirmation must not create or email a second quote")
	}
}

func TestSendQuoteFailedSendReportsFalse(t *testing.T) {
	store := &fakeStore{}
	sender := &fakeSender{fail: true}
	svc := NewService(store, sender, nil, nil, "", logger.New("test"))

	conv := readyConversation()
	if _, confirmed := svc.SendQuote(context.Background(), conv); confirmed {
		t.Fatal("a failed send must not report success")
	}
	if len(store.failed) != 1 {
		t.Fatalf("expected quote marked failed, got %d", len(store.failed))
	}
	if len(store.sent) != 0 {
		t.Fatal("quote must not be marked sent after a failed delivery")
	}
}

func TestSendQuoteRequiresPriceEmailAndVehicle(t *testing.T) {
	store := &fakeStore{}
	sender := &fakeSender{}
	svc := NewService(store, sender, nil, nil, "", logger.New("test"))

	noPrice := readyConversation()
	noPrice.Price = nil
	if _, confirmed := svc.SendQuote(context.Background(), noPrice); confirmed {
		t.Fatal("must not send without a computed price")
	}

	noEmail := readyConversation()
	noEmail.Email = ""
	if _, confirmed := svc.SendQuote(context.Background(), noEmail); confirmed {
		t.Fatal("must not send without a captured email")
	}

	partialVehicle := readyConversation()
	partialVehicle.Vehicle.Model = ""
	if _, confirmed := svc.SendQuote(context.Background(), partialVehicle); confirmed {
		t.Fatal("must not send with an incomplete vehicle")
	}

	if len(store.created) != 0 {
		t.Fatalf("no quote record should exist, got %d", len(store.created))
	}
}
