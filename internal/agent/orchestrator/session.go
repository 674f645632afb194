package orchestrator

import (
	"context"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"

	"github.com/plan-assist-core/server/internal/agent/model"
	logx "github.com/plan-assist-core/server/pkg/logger"
)

// NewSession returns a fresh session identifier.
func (o *Orchestrator) NewSession() string {
	return uuid.NewString()
}

// PendingFollowUp returns what the session is waiting on, or nil.
func (o *Orchestrator) PendingFollowUp(ctx context.Context, sessionID string) (*model.PendingFollowUp, error) {
	return o.followUps.Pending(ctx, sessionID)
}

// ClearFollowUp drops the session's pending clarification, if any.
func (o *Orchestrator) ClearFollowUp(ctx context.Context, sessionID string) error {
	return o.followUps.Clear(ctx, sessionID)
}

// CleanupExpired removes pending follow-ups older than maxAge.
func (o *Orchestrator) CleanupExpired(ctx context.Context, maxAge time.Duration) (int, error) {
	n, err := o.followUps.CleanupExpired(ctx, maxAge)
	if err != nil {
		return n, err
	}
	if n > 0 {
		remaining, err := o.followUps.PendingCount(ctx)
		if err != nil {
			logx.Warn().Err(err).Msg("Failed to count pending follow-ups")
		}
		logx.Info().
			Int("removed", n).
			Int("remaining", remaining).
			Dur("max_age", maxAge).
			Msg("Expired follow-ups removed")
	}
	return n, nil
}

// RunCleanup sweeps expired follow-ups every interval until ctx is done.
func (o *Orchestrator) RunCleanup(ctx context.Context, interval, maxAge time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := o.CleanupExpired(ctx, maxAge); err != nil {
				logx.Warn().Err(err).Msg("Follow-up cleanup failed")
			}
		}
	}
}

// ClearCache drops every cached response.
func (o *Orchestrator) ClearCache() {
	n := o.cache.Purge()
	logx.Info().Int("entries", n).Msg("Response cache cleared")
}

func (o *Orchestrator) Metrics() MetricsSnapshot {
	return o.metrics.Snapshot()
}

// Collector exposes the orchestrator counters for Prometheus registration.
func (o *Orchestrator) Collector() *Metrics {
	return o.metrics
}

// History returns up to limit of the session's most recent messages. Without
// a recorder there is no history.
func (o *Orchestrator) History(ctx context.Context, sessionID string, limit int) ([]*schema.Message, error) {
	if o.history == nil {
		return nil, nil
	}
	return o.history.History(ctx, sessionID, limit)
}

// ClearHistory forgets the session's recorded conversation.
func (o *Orchestrator) ClearHistory(ctx context.Context, sessionID string) error {
	if o.history == nil {
		return nil
	}
	return o.history.Clear(ctx, sessionID)
}
