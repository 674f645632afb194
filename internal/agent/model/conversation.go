package model

import (
	"context"
	"time"

	"github.com/cloudwego/eino/schema"
)

type ConversationRepository interface {
	// AddMessage appends a message to the session's conversation history
	AddMessage(ctx context.Context, sessionID string, message *schema.Message) error

	// LoadHistory retrieves the conversation history for a session
	LoadHistory(ctx context.Context, sessionID string) (*ConversationHistory, error)

	// ClearHistory removes all conversation history for a session
	ClearHistory(ctx context.Context, sessionID string) error

	// GetMessageCount returns the number of messages in the session
	GetMessageCount(ctx context.Context, sessionID string) (int, error)
}

// ConversationHistory represents loaded conversation data with metadata.
type ConversationHistory struct {
	SessionID string
	Messages  []*schema.Message
}

// FollowUpRepository stores at most one PendingFollowUp per session.
type FollowUpRepository interface {
	// Save stores the pending follow-up, replacing any previous one
	Save(ctx context.Context, sessionID string, pending PendingFollowUp) error

	// Get returns the pending follow-up or nil when the session has none
	Get(ctx context.Context, sessionID string) (*PendingFollowUp, error)

	// Take returns and removes the pending follow-up in one step
	Take(ctx context.Context, sessionID string) (*PendingFollowUp, error)

	// Delete removes the pending follow-up if present
	Delete(ctx context.Context, sessionID string) error

	// DeleteCreatedBefore removes every follow-up created before cutoff and
	// returns how many were removed
	DeleteCreatedBefore(ctx context.Context, cutoff time.Time) (int, error)

	// Count returns the number of sessions waiting on an answer
	Count(ctx context.Context) (int, error)
}
