// Package gemini adapts the Gemini API to the model gateway used by the
// conversation engine. This is part of the platform layer and contains no
// business logic.
package gemini

import (
	"context"
	"errors"
	"strings"
	"time"

	"concierge_backend/platform/config"

	"google.golang.org/genai"
)

// Outcome classifies a completion attempt. The orchestrator switches on it
// to pick the fallback reply, so failure modes stay distinct instead of
// collapsing into one generic error.
type Outcome string

const (
	OutcomeSuccess        Outcome = "success"
	OutcomeRateLimited    Outcome = "rate_limited"
	OutcomeQuotaExhausted Outcome = "quota_exhausted"
	OutcomeTransient      Outcome = "transient_error"
)

// Result is the outcome of a single completion call.
type Result struct {
	Outcome Outcome
	Text    string
	Err     error
}

// Turn is one prior exchange passed as conversation history.
type Turn struct {
	Role string // "user" or "model"
	Text string
}

// Model wraps a genai client for single-shot completions.
type Model struct {
	client  *genai.Client
	model   string
	timeout time.Duration
}

// NewModel creates the Gemini-backed model gateway.
func NewModel(ctx context.Context, cfg config.ModelConfig) (*Model, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GetGeminiAPIKey(),
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}

	timeout := cfg.GetModelTimeout()
	if timeout <= 0 {
		timeout = 25 * time.Second
	}

	return &Model{
		client:  client,
		model:   cfg.GetGeminiModel(),
		timeout: timeout,
	}, nil
}

// Complete sends one completion request: system prompt, bounded history,
// and the current user message. It never returns an error directly; the
// Result's Outcome carries the classification and Err the underlying cause.
func (m *Model) Complete(ctx context.Context, systemPrompt string, history []Turn, message string) Result {
	callCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	contents := make([]*genai.Content, 0, len(history)+1)
	for _, turn := range history {
		role := genai.RoleUser
		if turn.Role == "model" {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(turn.Text, genai.Role(role)))
	}
	contents = append(contents, genai.NewContentFromText(message, genai.RoleUser))

	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
	}

	resp, err := m.client.Models.GenerateContent(callCtx, m.model, contents, cfg)
	if err != nil {
		return Result{Outcome: classifyError(err), Err: err}
	}

	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return Result{Outcome: OutcomeTransient, Err: errors.New("empty completion")}
	}

	return Result{Outcome: OutcomeSuccess, Text: text}
}

// classifyError maps provider errors onto the outcome enum. Gemini reports
// both throttling and exhausted quota as HTTP 429; the body distinguishes them.
func classifyError(err error) Outcome {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Code == 429 {
			msg := strings.ToLower(apiErr.Message)
			if strings.Contains(msg, "quota") || strings.Contains(msg, "exceeded") {
				return OutcomeQuotaExhausted
			}
			return OutcomeRateLimited
		}
	}
	return OutcomeTransient
}
