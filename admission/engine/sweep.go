package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/darklock-net/gatehouse/admission/audit"
	"github.com/darklock-net/gatehouse/admission/chalstore"
	"github.com/darklock-net/gatehouse/platform"
)

const (
	DefaultSweepInterval = time.Minute
	sweepBatchSize       = 200
)

// RunSweeper periodically expires overdue pending challenges until the
// context is canceled. Without it, members who never respond would sit in
// pending forever and only expire if they eventually answered.
func (eng *Engine) RunSweeper(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := eng.SweepExpired(ctx); err != nil {
				eng.Logger.Error("challenge sweep failed", "err", err)
			}
		}
	}
}

// SweepExpired runs one sweep pass, returning how many challenges it
// expired.
func (eng *Engine) SweepExpired(ctx context.Context) (int, error) {
	now := eng.clock()
	rows, err := eng.Challenges.ListExpiredPending(ctx, now, sweepBatchSize)
	if err != nil {
		return 0, fmt.Errorf("listing expired challenges: %w", err)
	}
	swept := 0
	for _, chal := range rows {
		logger := eng.Logger.With("community", chal.CommunityID, "member", chal.MemberID, "event", "sweep")
		transitioned, err := eng.Challenges.MarkStatus(ctx, chal.ID, chalstore.StatusExpired)
		if err != nil {
			logger.Warn("failed to expire challenge", "err", err)
			continue
		}
		if !transitioned {
			continue
		}
		swept++
		challengeSweptCount.Inc()
		cfg, err := eng.Configs.Get(ctx, chal.CommunityID)
		if err != nil {
			logger.Warn("community config read failed, running with defaults", "err", err)
		}
		eng.emitAudit(ctx, logger, chal.CommunityID, chal.MemberID, audit.TypeExpired, map[string]any{"mode": string(chal.Mode), "swept": true})
		eng.notifyMember(ctx, logger, cfg, chal.CommunityID, chal.MemberID, &platform.Message{
			Content: "Your verification window has closed. Leave and rejoin the community to get a fresh challenge.",
		})
	}
	if swept > 0 {
		eng.Logger.Info("expired overdue challenges", "count", swept)
	}
	return swept, nil
}
