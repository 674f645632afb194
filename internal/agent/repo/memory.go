package repo

import (
	"context"
	"sync"
	"time"

	"github.com/cloudwego/eino/schema"

	"github.com/plan-assist-core/server/internal/agent/model"
)

// MemoryConversationRepository keeps history in process. Used when no Redis
// is configured and in tests.
type MemoryConversationRepository struct {
	mu       sync.RWMutex
	sessions map[string][]*schema.Message
}

func NewMemoryConversationRepository() *MemoryConversationRepository {
	return &MemoryConversationRepository{sessions: make(map[string][]*schema.Message)}
}

func (r *MemoryConversationRepository) AddMessage(_ context.Context, sessionID string, message *schema.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[sessionID] = append(r.sessions[sessionID], message)
	return nil
}

func (r *MemoryConversationRepository) LoadHistory(_ context.Context, sessionID string) (*model.ConversationHistory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	msgs := make([]*schema.Message, len(r.sessions[sessionID]))
	copy(msgs, r.sessions[sessionID])
	return &model.ConversationHistory{SessionID: sessionID, Messages: msgs}, nil
}

func (r *MemoryConversationRepository) ClearHistory(_ context.Context, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, sessionID)
	return nil
}

func (r *MemoryConversationRepository) GetMessageCount(_ context.Context, sessionID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions[sessionID]), nil
}

// MemoryFollowUpRepository is a mutex-guarded map of pending follow-ups.
type MemoryFollowUpRepository struct {
	mu      sync.Mutex
	pending map[string]model.PendingFollowUp
}

func NewMemoryFollowUpRepository() *MemoryFollowUpRepository {
	return &MemoryFollowUpRepository{pending: make(map[string]model.PendingFollowUp)}
}

func (r *MemoryFollowUpRepository) Save(_ context.Context, sessionID string, pending model.PendingFollowUp) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pending[sessionID] = pending
	return nil
}

func (r *MemoryFollowUpRepository) Get(_ context.Context, sessionID string) (*model.PendingFollowUp, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.pending[sessionID]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (r *MemoryFollowUpRepository) Take(_ context.Context, sessionID string) (*model.PendingFollowUp, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.pending[sessionID]
	if !ok {
		return nil, nil
	}
	delete(r.pending, sessionID)
	return &p, nil
}

func (r *MemoryFollowUpRepository) Delete(_ context.Context, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.pending, sessionID)
	return nil
}

func (r *MemoryFollowUpRepository) DeleteCreatedBefore(_ context.Context, cutoff time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for sid, p := range r.pending {
		if p.CreatedAt.Before(cutoff) {
			delete(r.pending, sid)
			removed++
		}
	}
	return removed, nil
}

func (r *MemoryFollowUpRepository) Count(_ context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending), nil
}

var (
	_ model.ConversationRepository = (*MemoryConversationRepository)(nil)
	_ model.FollowUpRepository     = (*MemoryFollowUpRepository)(nil)
)
