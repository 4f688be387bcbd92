// Package followup carries work that happens after the customer's turn has
// already been answered: manual-review requests and retries of failed
// notification sends.
package followup

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskManualReview = "concierge.manual_review"

const TaskOutboxRetry = "concierge.outbox.retry"

type ManualReviewPayload struct {
	ConversationID string `json:"conversationId"`
	CustomerEmail  string `json:"customerEmail"`
	Reason         string `json:"reason"`
}

type OutboxRetryPayload struct {
	OutboxID string `json:"outboxId"`
}

func NewManualReviewTask(payload ManualReviewPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskManualReview, data), nil
}

func ParseManualReviewPayload(task *asynq.Task) (ManualReviewPayload, error) {
	var payload ManualReviewPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return ManualReviewPayload{}, err
	}
	return payload, nil
}

func NewOutboxRetryTask(payload OutboxRetryPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskOutboxRetry, data), nil
}

func ParseOutboxRetryPayload(task *asynq.Task) (OutboxRetryPayload, error) {
	var payload OutboxRetryPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return OutboxRetryPayload{}, err
	}
	return payload, nil
}
