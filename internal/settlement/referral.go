package settlement

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/dentipal/DentiPalCDK-sub004/internal/apperrors"
	"github.com/dentipal/DentiPalCDK-sub004/internal/events"
	"github.com/dentipal/DentiPalCDK-sub004/internal/models"
	"github.com/dentipal/DentiPalCDK-sub004/internal/store"
)

// settleReferral awards the one-time first-shift bonus for a referred
// professional whose shift just completed.
//
// The conditional signed_up -> bonus_due transition runs BEFORE the
// balance credit. The source system credited first and guarded second,
// which could double-pay if the guard then failed; in this order a
// failure between the two writes under-pays once, which ops can repair,
// instead of over-paying silently.
//
// priorCompleted and countErr come from a completed-shift count taken
// before this shift's completion write was dispatched, so the first
// shift always counts as zero no matter how the concurrent writes
// interleave.
func (r *Reconciler) settleReferral(ctx context.Context, runID string, logger *zap.Logger, professionalUserSub string, priorCompleted int, countErr error, now time.Time, stats *runStats) error {
	ctx, span := tracer.Start(ctx, "Reconciler.settleReferral")
	defer span.End()

	record, err := r.referrals.FindByReferred(ctx, professionalUserSub)
	if errors.Is(err, store.ErrNotFound) {
		// Professional was not referred.
		return nil
	}
	if err != nil {
		span.RecordError(err)
		return apperrors.Internal("failed to query referral record", err)
	}
	if record.Status != models.ReferralSignedUp {
		// Bonus already settled, or the referral is in a state that never
		// earns one.
		return nil
	}

	if countErr != nil {
		span.RecordError(countErr)
		return apperrors.Internal("failed to count completed shifts", countErr)
	}
	if priorCompleted >= 1 {
		// Not the first completed shift; no bonus.
		return nil
	}

	if err := r.referrals.MarkBonusDue(ctx, record.ReferralID, now); err != nil {
		if errors.Is(err, store.ErrConditionFailed) {
			// A concurrent run settled it first; that run also paid the
			// bonus, so there is nothing left to do.
			logger.Debug("referral already settled by a concurrent run",
				zap.String("referral_id", record.ReferralID))
			return nil
		}
		span.RecordError(err)
		return apperrors.Internal("failed to transition referral to bonus_due", err)
	}

	if err := r.profiles.CreditBonus(ctx, record.ReferrerUserSub, r.bonus); err != nil {
		// The referral is already marked settled; the missing credit is
		// visible in the audit trail and repaired out of band rather than
		// retried here, where a retry could double-pay.
		span.RecordError(err)
		logger.Error("failed to credit referral bonus",
			zap.String("referral_id", record.ReferralID),
			zap.String("referrer", record.ReferrerUserSub),
			zap.Int("amount", r.bonus),
			zap.Error(err))
		return nil
	}

	atomic.AddInt32(&stats.bonuses, 1)
	logger.Info("referral bonus awarded",
		zap.String("referral_id", record.ReferralID),
		zap.String("referrer", record.ReferrerUserSub),
		zap.String("referred", record.ReferredUserSub),
		zap.Int("amount", r.bonus))

	_ = r.publisher.PublishBonusDue(ctx, events.BonusDueEvent{
		RunID:           runID,
		ReferralID:      record.ReferralID,
		ReferrerUserSub: record.ReferrerUserSub,
		ReferredUserSub: record.ReferredUserSub,
		Amount:          r.bonus,
		AwardedAt:       now,
	})
	return nil
}
