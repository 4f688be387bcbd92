package conversations

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when a conversation or contact does not exist.
var ErrNotFound = errors.New("conversation not found")

// Repository persists contacts, conversations, and messages in Postgres.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a Repository over the given pool.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const conversationColumns = `
	id, contact_id, channel, session_key, status, stage, last_message_at,
	escalations_sent, calculated_sqft, calculated_cost, last_order_lookup,
	vehicle_year, vehicle_make, vehicle_model, captured_email, created_at`

func scanConversation(row pgx.Row) (Conversation, error) {
	var conv Conversation
	var sqft *float64
	var cost *int64
	var year, make, model, email *string

	err := row.Scan(
		&conv.ID, &conv.ContactID, &conv.Channel, &conv.SessionKey,
		&conv.Status, &conv.Stage, &conv.LastMessageAt, &conv.EscalationsSent,
		&sqft, &cost, &conv.LastOrderLookup,
		&year, &make, &model, &email, &conv.CreatedAt,
	)
	if err != nil {
		return Conversation{}, err
	}

	if sqft != nil && cost != nil {
		conv.Price = &CalculatedPrice{Sqft: *sqft, Cost: *cost}
	}
	if year != nil {
		conv.Vehicle.Year = *year
	}
	if make != nil {
		conv.Vehicle.Make = *make
	}
	if model != nil {
		conv.Vehicle.Model = *model
	}
	if email != nil {
		conv.Email = *email
	}
	return conv, nil
}

// GetBySessionKey fetches the conversation for a channel/session pair.
func (r *Repository) GetBySessionKey(ctx context.Context, channel, sessionKey string) (Conversation, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+conversationColumns+`
		 FROM concierge_conversations
		 WHERE channel = $1 AND session_key = $2`,
		channel, sessionKey,
	)
	conv, err := scanConversation(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Conversation{}, ErrNotFound
	}
	return conv, err
}

// CreateParams describes a first-contact creation.
type CreateParams struct {
	Channel     string
	SessionKey  string
	ContactName string
	Sources     []string
}

// CreateWithContact creates a contact and its first conversation in one
// transaction. The unique constraint on (channel, session_key) is the
// idempotency guard: if a concurrent request won the race, the transaction
// rolls back (removing the extra contact) and the existing conversation is
// returned instead.
func (r *Repository) CreateWithContact(ctx context.Context, params CreateParams) (Conversation, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return Conversation{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var contactID uuid.UUID
	err = tx.QueryRow(ctx,
		`INSERT INTO concierge_contacts (name, sources)
		 VALUES ($1, $2)
		 RETURNING id`,
		params.ContactName, params.Sources,
	).Scan(&contactID)
	if err != nil {
		return Conversation{}, err
	}

	row := tx.QueryRow(ctx,
		`INSERT INTO concierge_conversations (contact_id, channel, session_key, status, stage, last_message_at)
		 VALUES ($1, $2, $3, 'open', $4, now())
		 ON CONFLICT (channel, session_key) DO NOTHING
		 RETURNING `+conversationColumns,
		contactID, params.Channel, params.SessionKey, string(StageInitial),
	)
	conv, err := scanConversation(row)
	if errors.Is(err, pgx.ErrNoRows) {
		// Lost the race; discard our contact and use the winner's conversation.
		return r.GetBySessionKey(ctx, params.Channel, params.SessionKey)
	}
	if err != nil {
		return Conversation{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Conversation{}, err
	}
	return conv, nil
}

// UpdateState persists the mutable turn state: stage, captured facts,
// computed price, and the last order lookup summary.
func (r *Repository) UpdateState(ctx context.Context, conv Conversation) error {
	var sqft *float64
	var cost *int64
	if conv.Price != nil {
		sqft = &conv.Price.Sqft
		cost = &conv.Price.Cost
	}

	_, err := r.pool.Exec(ctx,
		`UPDATE concierge_conversations
		 SET stage = $2,
		     last_message_at = now(),
		     calculated_sqft = $3,
		     calculated_cost = $4,
		     last_order_lookup = $5,
		     vehicle_year = NULLIF($6, ''),
		     vehicle_make = NULLIF($7, ''),
		     vehicle_model = NULLIF($8, ''),
		     captured_email = NULLIF($9, '')
		 WHERE id = $1`,
		conv.ID, string(conv.Stage), sqft, cost, conv.LastOrderLookup,
		conv.Vehicle.Year, conv.Vehicle.Make, conv.Vehicle.Model, conv.Email,
	)
	return err
}

// ClaimEscalation atomically appends a situation tag if it is not already
// present. Returns true when this caller won the claim. The conditional
// write closes the check-then-act race at the data layer.
func (r *Repository) ClaimEscalation(ctx context.Context, conversationID uuid.UUID, tag string) (bool, error) {
	res, err := r.pool.Exec(ctx,
		`UPDATE concierge_conversations
		 SET escalations_sent = array_append(escalations_sent, $2)
		 WHERE id = $1 AND NOT ($2 = ANY(escalations_sent))`,
		conversationID, tag,
	)
	if err != nil {
		return false, err
	}
	return res.RowsAffected() == 1, nil
}

// ReleaseEscalation removes a claimed tag after a failed send so a later
// turn can retry the notification.
func (r *Repository) ReleaseEscalation(ctx context.Context, conversationID uuid.UUID, tag string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE concierge_conversations
		 SET escalations_sent = array_remove(escalations_sent, $2)
		 WHERE id = $1`,
		conversationID, tag,
	)
	return err
}

// AppendMessageParams describes one transcript entry.
type AppendMessageParams struct {
	ConversationID uuid.UUID
	Direction      string
	Content        string
	Sender         string
	Metadata       map[string]string
}

// AppendMessage stores a message. The transcript is append-only.
func (r *Repository) AppendMessage(ctx context.Context, params AppendMessageParams) (Message, error) {
	metadata := params.Metadata
	if metadata == nil {
		metadata = map[string]string{}
	}
	metadataJSON, err := json.Marshal(metadata)
	if err != nil {
		return Message{}, err
	}

	msg := Message{
		ConversationID: params.ConversationID,
		Direction:      params.Direction,
		Content:        params.Content,
		Sender:         params.Sender,
		Metadata:       metadata,
	}
	err = r.pool.QueryRow(ctx,
		`INSERT INTO concierge_messages (conversation_id, direction, content, sender, metadata)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at`,
		params.ConversationID, params.Direction, params.Content, params.Sender, metadataJSON,
	).Scan(&msg.ID, &msg.CreatedAt)
	return msg, err
}

// ListRecentMessages returns the most recent messages in chronological
// order, bounded by limit. Used to assemble model history.
func (r *Repository) ListRecentMessages(ctx context.Context, conversationID uuid.UUID, limit int) ([]Message, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, conversation_id, direction, content, sender, metadata, created_at
		 FROM (
			SELECT id, conversation_id, direction, content, sender, metadata, created_at
			FROM concierge_messages
			WHERE conversation_id = $1
			ORDER BY created_at DESC
			LIMIT $2
		 ) recent
		 ORDER BY created_at ASC`,
		conversationID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		var msg Message
		var metadataJSON []byte
		if err := rows.Scan(&msg.ID, &msg.ConversationID, &msg.Direction, &msg.Content, &msg.Sender, &metadataJSON, &msg.CreatedAt); err != nil {
			return nil, err
		}
		if len(metadataJSON) > 0 {
			_ = json.Unmarshal(metadataJSON, &msg.Metadata)
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

// LastMessages returns the newest inbound and outbound messages, if any.
// Used by the duplicate-message guard.
func (r *Repository) LastMessages(ctx context.Context, conversationID uuid.UUID) (inbound *Message, outbound *Message, err error) {
	for _, direction := range []string{DirectionInbound, DirectionOutbound} {
		row := r.pool.QueryRow(ctx,
			`SELECT id, conversation_id, direction, content, sender, created_at
			 FROM concierge_messages
			 WHERE conversation_id = $1 AND direction = $2
			 ORDER BY created_at DESC
			 LIMIT 1`,
			conversationID, direction,
		)
		var msg Message
		scanErr := row.Scan(&msg.ID, &msg.ConversationID, &msg.Direction, &msg.Content, &msg.Sender, &msg.CreatedAt)
		if errors.Is(scanErr, pgx.ErrNoRows) {
			continue
		}
		if scanErr != nil {
			return nil, nil, scanErr
		}
		if direction == DirectionInbound {
			inbound = &msg
		} else {
			outbound = &msg
		}
	}
	return inbound, outbound, nil
}

// BackfillContactEmail sets the contact email only when none is stored.
func (r *Repository) BackfillContactEmail(ctx context.Context, contactID uuid.UUID, email string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE concierge_contacts SET email = $2 WHERE id = $1 AND email IS NULL`,
		contactID, email,
	)
	return err
}

// BackfillContactPhone sets the contact phone only when none is stored.
func (r *Repository) BackfillContactPhone(ctx context.Context, contactID uuid.UUID, phone string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE concierge_contacts SET phone = $2 WHERE id = $1 AND phone IS NULL`,
		contactID, phone,
	)
	return err
}

// GetContact fetches a contact by ID.
func (r *Repository) GetContact(ctx context.Context, contactID uuid.UUID) (Contact, error) {
	var contact Contact
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, email, phone, sources, created_at
		 FROM concierge_contacts
		 WHERE id = $1`,
		contactID,
	).Scan(&contact.ID, &contact.Name, &contact.Email, &contact.Phone, &contact.Sources, &contact.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Contact{}, ErrNotFound
	}
	return contact, err
}

// Touch updates last_message_at without other state changes.
func (r *Repository) Touch(ctx context.Context, conversationID uuid.UUID, at time.Time) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE concierge_conversations SET last_message_at = $2 WHERE id = $1`,
		conversationID, at,
	)
	return err
}
