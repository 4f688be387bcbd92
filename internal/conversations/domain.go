// Package conversations owns the conversation, contact, and message records
// plus the staged negotiation state machine.
package conversations

import (
	"time"

	"github.com/google/uuid"
)

// Stage is the conversation's coarse progress marker. Transitions are
// forward-only: initial -> email_captured -> quote_sent -> completed.
type Stage string

const (
	StageInitial       Stage = "initial"
	StageEmailCaptured Stage = "email_captured"
	StageQuoteSent     Stage = "quote_sent"
	StageCompleted     Stage = "completed"
)

var stageOrder = map[Stage]int{
	StageInitial:       0,
	StageEmailCaptured: 1,
	StageQuoteSent:     2,
	StageCompleted:     3,
}

// ChannelWebchat is the only inbound channel this core serves today.
const ChannelWebchat = "webchat"

// Direction of a stored message.
const (
	DirectionInbound  = "inbound"
	DirectionOutbound = "outbound"
)

// Vehicle is the captured year/make/model for a conversation.
type Vehicle struct {
	Year  string
	Make  string
	Model string
}

// CalculatedPrice is the last computed estimate for the captured vehicle.
type CalculatedPrice struct {
	Sqft float64
	Cost int64
}

// Contact is the person behind one or more conversations.
type Contact struct {
	ID        uuid.UUID
	Name      string
	Email     *string
	Phone     *string
	Sources   []string
	CreatedAt time.Time
}

// Conversation is a persisted thread of messages tied to one contact and
// one channel/session.
type Conversation struct {
	ID              uuid.UUID
	ContactID       uuid.UUID
	Channel         string
	SessionKey      string
	Status          string
	Stage           Stage
	LastMessageAt   time.Time
	EscalationsSent []string
	Price           *CalculatedPrice
	LastOrderLookup *string
	Vehicle         Vehicle
	Email           string
	CreatedAt       time.Time
}

// Message is one append-only entry in a conversation transcript.
type Message struct {
	ID             uuid.UUID
	ConversationID uuid.UUID
	Direction      string
	Content        string
	Sender         string
	Metadata       map[string]string
	CreatedAt      time.Time
}

// CaptureEmail records the customer's email if none is captured yet.
// Captured facts are monotonic: a later message never un-captures them.
// Returns true if the conversation changed.
func (c *Conversation) CaptureEmail(email string) bool {
	if email == "" || c.Email != "" {
		return false
	}
	c.Email = email
	if c.Stage == StageInitial {
		c.AdvanceStage(StageEmailCaptured)
	}
	return true
}

// CaptureVehicle merges newly detected vehicle fields into the captured
// vehicle. Existing fields win; detection only fills gaps.
func (c *Conversation) CaptureVehicle(v Vehicle) bool {
	changed := false
	if c.Vehicle.Year == "" && v.Year != "" {
		c.Vehicle.Year = v.Year
		changed = true
	}
	if c.Vehicle.Make == "" && v.Make != "" {
		c.Vehicle.Make = v.Make
		changed = true
	}
	if c.Vehicle.Model == "" && v.Model != "" {
		c.Vehicle.Model = v.Model
		changed = true
	}
	return changed
}

// AdvanceStage moves the conversation forward. Backward transitions are
// ignored; completed is terminal. Returns true if the stage changed.
func (c *Conversation) AdvanceStage(next Stage) bool {
	current, ok := stageOrder[c.Stage]
	if !ok {
		return false
	}
	target, ok := stageOrder[next]
	if !ok || target <= current || c.Stage == StageCompleted {
		return false
	}
	c.Stage = next
	return true
}

// HasEscalation reports whether the situation tag already fired for this
// conversation.
func (c *Conversation) HasEscalation(tag string) bool {
	for _, sent := range c.EscalationsSent {
		if sent == tag {
			return true
		}
	}
	return false
}

// ReadyForQuote reports whether the confirmation-gated quote workflow may
// run: pricing context plus a captured email and a fully captured vehicle.
func (c *Conversation) ReadyForQuote() bool {
	return c.Email != "" && c.Vehicle.Year != "" && c.Vehicle.Make != "" && c.Vehicle.Model != ""
}
