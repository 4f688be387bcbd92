package followup

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"concierge_backend/internal/email"
	"concierge_backend/internal/notification/outbox"
	"concierge_backend/platform/config"
	"concierge_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
)

// sweepInterval is how often the worker scans for pending outbox records
// whose scheduled retry task never arrived.
const sweepInterval = time.Minute

const sweepBatchSize = 50

// outboxStore is the outbox surface the worker uses.
type outboxStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (outbox.Record, error)
	ClaimPending(ctx context.Context, limit int) ([]outbox.Record, error)
	Insert(ctx context.Context, p outbox.InsertParams) (uuid.UUID, error)
	MarkPending(ctx context.Context, id uuid.UUID, lastError *string) error
	MarkSucceeded(ctx context.Context, id uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID, lastError string) error
}

type Worker struct {
	server    *asynq.Server
	mux       *asynq.ServeMux
	outbox    outboxStore
	sender    email.Sender
	recipient string
	log       *logger.Logger
}

func NewWorker(cfg config.RedisConfig, pool *pgxpool.Pool, sender email.Sender, recipient string, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: 10,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server:    server,
		mux:       mux,
		outbox:    outbox.New(pool),
		sender:    sender,
		recipient: recipient,
		log:       log,
	}

	mux.HandleFunc(TaskManualReview, w.handleManualReview)
	mux.HandleFunc(TaskOutboxRetry, w.handleOutboxRetry)

	return w, nil
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go w.sweepPending(ctx)

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("followup worker stopped", "error", err)
	}
}

func (w *Worker) handleManualReview(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseManualReviewPayload(task)
	if err != nil {
		return err
	}
	if w.recipient == "" {
		return nil
	}

	if err := w.sender.SendFollowUpEmail(ctx, w.recipient, email.FollowUpEmail{
		ConversationID: payload.ConversationID,
		CustomerEmail:  payload.CustomerEmail,
		Reason:         payload.Reason,
	}); err != nil {
		return err
	}

	if convID, parseErr := uuid.Parse(payload.ConversationID); parseErr == nil {
		_, insertErr := w.outbox.Insert(ctx, outbox.InsertParams{
			ConversationID: convID,
			Kind:           outbox.KindFollowUp,
			Recipient:      w.recipient,
			Payload:        payload,
			Status:         outbox.StatusSucceeded,
		})
		if insertErr != nil {
			w.log.Error("record followup outbox entry failed", "error", insertErr)
		}
	}
	return nil
}

// handleOutboxRetry replays the pending outbox record named by a scheduled
// retry task.
func (w *Worker) handleOutboxRetry(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseOutboxRetryPayload(task)
	if err != nil {
		return err
	}

	outboxID, err := uuid.Parse(payload.OutboxID)
	if err != nil {
		return err
	}

	rec, err := w.outbox.GetByID(ctx, outboxID)
	if err != nil {
		return err
	}
	if rec.Status != outbox.StatusPending {
		return nil
	}

	return w.resend(ctx, rec)
}

// sweepPending periodically claims due pending records and replays them,
// catching rows whose retry task was lost or never scheduled.
func (w *Worker) sweepPending(ctx context.Context) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.sweepOnce(ctx)
		}
	}
}

func (w *Worker) sweepOnce(ctx context.Context) {
	records, err := w.outbox.ClaimPending(ctx, sweepBatchSize)
	if err != nil {
		w.log.Error("outbox sweep claim failed", "error", err)
		return
	}

	for _, rec := range records {
		if rec.Status != outbox.StatusProcessing {
			continue
		}
		if err := w.resend(ctx, rec); err != nil {
			w.log.Error("outbox sweep resend failed", "outbox_id", rec.ID.String(), "error", err)
		}
	}
}

// resend replays one outbox record. Only customer quote emails retry this
// way; escalations re-arm through the claim release and fire again on the
// customer's next turn.
func (w *Worker) resend(ctx context.Context, rec outbox.Record) error {
	switch rec.Kind {
	case outbox.KindQuote:
		var quote email.QuoteEmail
		if err := json.Unmarshal(rec.Payload, &quote); err != nil {
			return w.outbox.MarkFailed(ctx, rec.ID, "malformed payload: "+err.Error())
		}
		if err := w.sender.SendQuoteEmail(ctx, rec.Recipient, quote); err != nil {
			w.log.Error("outbox quote retry failed", "outbox_id", rec.ID.String(), "error", err)
			msg := err.Error()
			if markErr := w.outbox.MarkPending(ctx, rec.ID, &msg); markErr != nil {
				return markErr
			}
			return err
		}
		return w.outbox.MarkSucceeded(ctx, rec.ID)
	default:
		return w.outbox.MarkFailed(ctx, rec.ID, "no retry handler for kind "+rec.Kind)
	}
}
