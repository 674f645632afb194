package conversations

import (
	"context"
	"fmt"

	"github.com/plan-assist-core/server/internal/agent/model"

	"github.com/cloudwego/eino/schema"
)

type MessagesManager struct {
	conversationRepo model.ConversationRepository
	maxTurns         int
}

func NewMessagesManager(conversationRepo model.ConversationRepository, config model.ConversationConfig) *MessagesManager {
	return &MessagesManager{
		conversationRepo: conversationRepo,
		maxTurns:         config.History.MaxTurns,
	}
}

// RecordExchange appends the user query and the answer given for it.
func (cm *MessagesManager) RecordExchange(ctx context.Context, sessionID, query, response string) error {
	if err := cm.conversationRepo.AddMessage(ctx, sessionID, schema.UserMessage(query)); err != nil {
		return fmt.Errorf("record user message: %w", err)
	}
	if err := cm.conversationRepo.AddMessage(ctx, sessionID, schema.AssistantMessage(response, nil)); err != nil {
		return fmt.Errorf("record assistant message: %w", err)
	}
	return nil
}

// History returns the last limit messages of the session. A non-positive
// limit falls back to the configured max turns.
func (cm *MessagesManager) History(ctx context.Context, sessionID string, limit int) ([]*schema.Message, error) {
	count, err := cm.conversationRepo.GetMessageCount(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return []*schema.Message{}, nil
	}
	history, err := cm.conversationRepo.LoadHistory(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = cm.maxTurns
	}
	return trimTail(history.Messages, limit), nil
}

// Clear drops the session's history.
func (cm *MessagesManager) Clear(ctx context.Context, sessionID string) error {
	return cm.conversationRepo.ClearHistory(ctx, sessionID)
}

// ====================== Helper function ======================
func trimTail(messages []*schema.Message, maxTurns int) []*schema.Message {
	if maxTurns <= 0 || len(messages) <= maxTurns {
		result := make([]*schema.Message, len(messages))
		copy(result, messages)
		return result
	}
	source := messages[len(messages)-maxTurns:]
	result := make([]*schema.Message, len(source))
	copy(result, source)
	return result
}
