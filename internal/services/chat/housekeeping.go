package chat

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/kidchat/kidchat-api/internal/database"
	"github.com/kidchat/kidchat-api/internal/logger"
)

// Housekeeper periodically closes idle sessions and purges expired
// messages and sessions per the retention policy.
type Housekeeper struct {
	sessions         database.SessionRepositoryInterface
	log              *zap.Logger
	interval         time.Duration
	idleTimeout      time.Duration
	messageRetention time.Duration
	sessionRetention time.Duration
}

// NewHousekeeper creates a new housekeeper
func NewHousekeeper(sessions database.SessionRepositoryInterface, log *zap.Logger, interval, idleTimeout, messageRetention, sessionRetention time.Duration) *Housekeeper {
	return &Housekeeper{
		sessions:         sessions,
		log:              log,
		interval:         interval,
		idleTimeout:      idleTimeout,
		messageRetention: messageRetention,
		sessionRetention: sessionRetention,
	}
}

// Start runs the housekeeping loop until ctx is cancelled.
func (h *Housekeeper) Start(ctx context.Context) error {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			h.Sweep(ctx)
		}
	}
}

// Sweep runs one housekeeping pass. Each step is independent; a failure in
// one does not stop the others.
func (h *Housekeeper) Sweep(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	now := time.Now()

	if n, err := h.sessions.CloseIdle(ctx, now.Add(-h.idleTimeout)); err != nil {
		h.log.Warn("close_idle_failed", zap.String("error", logger.SanitizeError(err)))
	} else if n > 0 {
		h.log.Info("idle_sessions_closed", zap.Int64("count", n))
	}

	if n, err := h.sessions.PurgeMessages(ctx, now.Add(-h.messageRetention)); err != nil {
		h.log.Warn("purge_messages_failed", zap.String("error", logger.SanitizeError(err)))
	} else if n > 0 {
		h.log.Info("expired_messages_purged", zap.Int64("count", n))
	}

	if n, err := h.sessions.PurgeSessions(ctx, now.Add(-h.sessionRetention)); err != nil {
		h.log.Warn("purge_sessions_failed", zap.String("error", logger.SanitizeError(err)))
	} else if n > 0 {
		h.log.Info("expired_sessions_purged", zap.Int64("count", n))
	}
}
