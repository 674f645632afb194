package conversations

import (
	"context"
	"fmt"
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plan-assist-core/server/internal/agent/model"
	"github.com/plan-assist-core/server/internal/agent/repo"
)

func newTestManager(maxTurns int) *MessagesManager {
	cfg := model.ConversationConfig{}
	cfg.History.MaxTurns = maxTurns
	return NewMessagesManager(repo.NewMemoryConversationRepository(), cfg)
}

func TestMessagesManager_RecordExchange(t *testing.T) {
	m := newTestManager(10)
	ctx := context.Background()

	require.NoError(t, m.RecordExchange(ctx, "s1", "299", "₹299 gives 2GB/day"))

	msgs, err := m.History(ctx, "s1", 0)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, schema.User, msgs[0].Role)
	assert.Equal(t, "299", msgs[0].Content)
	assert.Equal(t, schema.Assistant, msgs[1].Role)
	assert.Equal(t, "₹299 gives 2GB/day", msgs[1].Content)
}

func TestMessagesManager_HistoryLimit(t *testing.T) {
	m := newTestManager(4)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		require.NoError(t, m.RecordExchange(ctx, "s1", fmt.Sprintf("q%d", i), fmt.Sprintf("a%d", i)))
	}

	msgs, err := m.History(ctx, "s1", 0)
	require.NoError(t, err)
	require.Len(t, msgs, 4)
	assert.Equal(t, "q3", msgs[0].Content)
	assert.Equal(t, "a4", msgs[3].Content)

	msgs, err = m.History(ctx, "s1", 2)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "q4", msgs[0].Content)
}

func TestMessagesManager_Clear(t *testing.T) {
	m := newTestManager(0)
	ctx := context.Background()
	require.NoError(t, m.RecordExchange(ctx, "s1", "hi", "hello"))
	require.NoError(t, m.Clear(ctx, "s1"))

	msgs, err := m.History(ctx, "s1", 0)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestMessagesManager_HistoryUnknownSession(t *testing.T) {
	m := newTestManager(10)

	msgs, err := m.History(context.Background(), "never-seen", 0)
	require.NoError(t, err)
	assert.NotNil(t, msgs)
	assert.Empty(t, msgs)
}
