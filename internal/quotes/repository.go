// Package quotes owns the estimate records and the confirmation-gated email
// workflow: a conversation only claims "quote sent" after the send succeeded.
package quotes

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Quote statuses.
const (
	StatusDraft  = "draft"
	StatusSent   = "sent"
	StatusFailed = "failed"
)

// Quote is one persisted estimate for a conversation.
type Quote struct {
	ID             uuid.UUID
	ConversationID uuid.UUID
	QuoteNumber    string
	VehicleYear    string
	VehicleMake    string
	VehicleModel   string
	Sqft           float64
	CostDollars    int64
	RecipientEmail string
	Status         string
	CreatedAt      time.Time
}

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// NextQuoteNumber atomically generates the next estimate number.
func (r *Repository) NextQuoteNumber(ctx context.Context) (string, error) {
	var nextNum int
	query := `
		INSERT INTO concierge_quote_counter (id, last_number)
		VALUES (1, 1)
		ON CONFLICT (id) DO UPDATE SET last_number = concierge_quote_counter.last_number + 1
		RETURNING last_number`

	if err := r.pool.QueryRow(ctx, query).Scan(&nextNum); err != nil {
		return "", fmt.Errorf("failed to generate quote number: %w", err)
	}

	year := time.Now().Year()
	return fmt.Sprintf("EST-%d-%04d", year, nextNum), nil
}

// Create inserts a draft quote.
func (r *Repository) Create(ctx context.Context, quote *Quote) error {
	quote.ID = uuid.New()
	quote.Status = StatusDraft
	err := r.pool.QueryRow(ctx,
		`INSERT INTO concierge_quotes (id, conversation_id, quote_number, vehicle_year, vehicle_make,
			vehicle_model, sqft, cost_dollars, recipient_email, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 RETURNING created_at`,
		quote.ID, quote.ConversationID, quote.QuoteNumber, quote.VehicleYear, quote.VehicleMake,
		quote.VehicleModel, quote.Sqft, quote.CostDollars, quote.RecipientEmail, quote.Status,
	).Scan(&quote.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create quote: %w", err)
	}
	return nil
}

// MarkSent flips the quote to sent after a confirmed delivery.
func (r *Repository) MarkSent(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE concierge_quotes SET status = 'sent', sent_at = now() WHERE id = $1`,
		id,
	)
	return err
}

// MarkFailed records a failed delivery attempt.
func (r *Repository) MarkFailed(ctx context.Context, id uuid.UUID, reason string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE concierge_quotes SET status = 'failed', failure_reason = $2 WHERE id = $1`,
		id, reason,
	)
	return err
}

// GetByConversation returns the newest quote for a conversation, if any.
func (r *Repository) GetByConversation(ctx context.Context, conversationID uuid.UUID) (*Quote, error) {
	var q Quote
	err := r.pool.QueryRow(ctx,
		`SELECT id, conversation_id, quote_number, vehicle_year, vehicle_make, vehicle_model,
			sqft, cost_dollars, recipient_email, status, created_at
		 FROM concierge_quotes
		 WHERE conversation_id = $1
		 ORDER BY created_at DESC
		 LIMIT 1`,
		conversationID,
	).Scan(&q.ID, &q.ConversationID, &q.QuoteNumber, &q.VehicleYear, &q.VehicleMake, &q.VehicleModel,
		&q.Sqft, &q.CostDollars, &q.RecipientEmail, &q.Status, &q.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &q, nil
}
