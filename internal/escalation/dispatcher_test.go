package escalation

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"

	"concierge_backend/internal/conversations"
	"concierge_backend/internal/email"
	"concierge_backend/internal/extract"
	"concierge_backend/platform/logger"
)

type fakeStore struct {
	mu       sync.Mutex
	claimed  map[string]bool
	released []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{claimed: map[string]bool{}}
}

func (s *fakeStore) ClaimEscalation(_ context.Context, _ uuid.UUID, tag string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.claimed[tag] {
		return false, nil
	}
	s.claimed[tag] = true
	return true, nil
}

func (s *fakeStore) ReleaseEscalation(_ context.Context, _ uuid.UUID, tag string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.claimed, tag)
	s.released = append(s.released, tag)
	return nil
}

func (s *fakeStore) GetContact(context.Context, uuid.UUID) (conversations.Contact, error) {
	return conversations.Contact{Name: "Web Visitor"}, nil
}

type fakeSender struct {
	mu     sync.Mutex
	sent   []email.EscalationEmail
	fail   bool
}

func (f *fakeSender) SendQuoteEmail(context.Context, string, email.QuoteEmail) error { return nil }

func (f *fakeSender) SendEscalationEmail(_ context.Context, _ string, data email.EscalationEmail) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("smtp down")
	}
	f.sent = append(f.sent, data)
	return nil
}

func (f *fakeSender) SendFollowUpEmail(context.Context, string, email.FollowUpEmail) error {
	return nil
}

func newDispatcher(store *fakeStore, sender *fakeSender) *Dispatcher {
	return NewDispatcher(store, sender, nil, "team@apexwraps.example", logger.New("test"))
}

func TestDetectSituationsIndependent(t *testing.T) {
	tags := DetectSituations(extract.Intents{Complaint: true, Bulk: true})
	if len(tags) != 2 {
		t.Fatalf("expected 2 situations, got %v", tags)
	}
	if tags[0] != SituationComplaint || tags[1] != SituationBulkOrder {
		t.Fatalf("unexpected tags %v", tags)
	}

	if got := DetectSituations(extract.Intents{Pricing: true}); len(got) != 0 {
		t.Fatalf("pricing intent must not escalate, got %v", got)
	}
}

func TestDispatchSendsOncePerSituation(t *testing.T) {
	store := newFakeStore()
	sender := &fakeSender{}
	d := newDispatcher(store, sender)

	conv := &conversations.Conversation{ID: uuid.New(), ContactID: uuid.New()}
	intents := extract.Intents{Complaint: true}

	for i := 0; i < 5; i++ {
		d.Dispatch(context.Background(), conv, intents, "my wrap is peeling")
	}

	if len(sender.sent) != 1 {
		t.Fatalf("expected exactly 1 notification, got %d", len(sender.sent))
	}
	if !conv.HasEscalation(SituationComplaint) {
		t.Fatal("expected complaint tag recorded on conversation")
	}
}

func TestDispatchSkipsAlreadySentTag(t *testing.T) {
	store := newFakeStore()
	sender := &fakeSender{}
	d := newDispatcher(store, sender)

	conv := &conversations.Conversation{
		ID:              uuid.New(),
		ContactID:       uuid.New(),
		EscalationsSent: []string{SituationComplaint},
	}
	d.Dispatch(context.Background(), conv, extract.Intents{Complaint: true}, "still unhappy")

	if len(sender.sent) != 0 {
		t.Fatalf("expected no notification for already-sent tag, got %d", len(sender.sent))
	}
}

func TestDispatchLosingClaimDoesNotSend(t *testing.T) {
	store := newFakeStore()
	store.claimed[SituationBulkOrder] = true
	sender := &fakeSender{}
	d := newDispatcher(store, sender)

	conv := &conversations.Conversation{ID: uuid.New(), ContactID: uuid.New()}
	d.Dispatch(context.Background(), conv, extract.Intents{Bulk: true}, "need 12 vans wrapped")

	if len(sender.sent) != 0 {
		t.Fatalf("expected no notification after losing the claim, got %d", len(sender.sent))
	}
	if conv.HasEscalation(SituationBulkOrder) {
		t.Fatal("tag must not be recorded in memory when the claim was lost")
	}
}

func TestDispatchReleasesClaimOnSendFailure(t *testing.T) {
	store := newFakeStore()
	sender := &fakeSender{fail: true}
	d := newDispatcher(store, sender)

	conv := &conversations.Conversation{ID: uuid.New(), ContactID: uuid.New()}
	d.Dispatch(context.Background(), conv, extract.Intents{DesignIssue: true}, "my proof file is wrong")

	if len(store.released) != 1 || store.released[0] != SituationDesignIssue {
		t.Fatalf("expected claim released after failed send, got %v", store.released)
	}
	if conv.HasEscalation(SituationDesignIssue) {
		t.Fatal("tag must not be recorded after a failed send")
	}

	// A later turn retries successfully.
	sender.fail = false
	d.Dispatch(context.Background(), conv, extract.Intents{DesignIssue: true}, "my proof file is wrong")
	if len(sender.sent) != 1 {
		t.Fatalf("expected retry to send, got %d", len(sender.sent))
	}
}

func TestDispatchMultipleSituationsFromOneMessage(t *testing.T) {
	store := newFakeStore()
	sender := &fakeSender{}
	d := newDispatcher(store, sender)

	conv := &conversations.Conversation{ID: uuid.New(), ContactID: uuid.New()}
	d.Dispatch(context.Background(), conv, extract.Intents{Complaint: true, Bulk: true}, "fleet job went badly")

	if len(sender.sent) != 2 {
		t.Fatalf("expected 2 notifications, got %d", len(sender.sent))
	}
}
