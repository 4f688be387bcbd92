package conversations

import (
	"context"
	"errors"

	"concierge_backend/platform/logger"

	"golang.org/x/sync/singleflight"
)

// SessionStore is the repository slice the resolver needs.
type SessionStore interface {
	GetBySessionKey(ctx context.Context, channel, sessionKey string) (Conversation, error)
	CreateWithContact(ctx context.Context, params CreateParams) (Conversation, error)
}

// Resolver maps a session key to its conversation, creating the contact and
// conversation pair on first contact. In-process duplicate requests collapse
// via singleflight; cross-process races are settled by the unique constraint
// on (channel, session_key).
type Resolver struct {
	repo  SessionStore
	group singleflight.Group
	log   *logger.Logger
}

// NewResolver creates a Resolver.
func NewResolver(repo SessionStore, log *logger.Logger) *Resolver {
	return &Resolver{repo: repo, log: log}
}

// Resolve finds or creates the conversation for a session key. Resolving the
// same key twice always yields the same conversation ID.
func (r *Resolver) Resolve(ctx context.Context, channel, sessionKey string) (Conversation, error) {
	value, err, _ := r.group.Do(channel+"|"+sessionKey, func() (interface{}, error) {
		conv, err := r.repo.GetBySessionKey(ctx, channel, sessionKey)
		if err == nil {
			return conv, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return Conversation{}, err
		}

		created, err := r.repo.CreateWithContact(ctx, CreateParams{
			Channel:     channel,
			SessionKey:  sessionKey,
			ContactName: "Web Visitor",
			Sources:     []string{"chat-widget"},
		})
		if err != nil {
			return Conversation{}, err
		}
		r.log.Info("conversation created",
			"conversation_id", created.ID.String(),
			"session_key", sessionKey,
		)
		return created, nil
	})
	if err != nil {
		return Conversation{}, err
	}
	return value.(Conversation), nil
}
