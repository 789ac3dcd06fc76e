// Package settlement implements the shift-completion and referral-bonus
// reconciliation run: scan scheduled applications, resolve each posting,
// decide whether the shift elapsed, transition state and settle any
// pending referral bonus.
package settlement

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dentipal/DentiPalCDK-sub004/internal/apperrors"
	"github.com/dentipal/DentiPalCDK-sub004/internal/audit"
	"github.com/dentipal/DentiPalCDK-sub004/internal/config"
	"github.com/dentipal/DentiPalCDK-sub004/internal/events"
	"github.com/dentipal/DentiPalCDK-sub004/internal/models"
	"github.com/dentipal/DentiPalCDK-sub004/internal/schedule"
	"github.com/dentipal/DentiPalCDK-sub004/internal/store"
	"github.com/dentipal/DentiPalCDK-sub004/internal/telemetry"
)

var tracer = telemetry.GetTracer("dentipal/settlement")

type Reconciler struct {
	logger    *zap.Logger
	apps      store.Applications
	jobs      store.Jobs
	referrals store.Referrals
	profiles  store.Profiles
	publisher events.Publisher
	recorder  audit.Recorder

	workers int
	bonus   int
	loc     *time.Location
	now     func() time.Time
}

func NewReconciler(
	logger *zap.Logger,
	apps store.Applications,
	jobs store.Jobs,
	referrals store.Referrals,
	profiles store.Profiles,
	publisher events.Publisher,
	recorder audit.Recorder,
	cfg *config.Config,
) (*Reconciler, error) {
	loc, err := time.LoadLocation(cfg.ShiftTimezone)
	if err != nil {
		return nil, fmt.Errorf("load shift timezone %q: %w", cfg.ShiftTimezone, err)
	}

	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}

	return &Reconciler{
		logger:    logger,
		apps:      apps,
		jobs:      jobs,
		referrals: referrals,
		profiles:  profiles,
		publisher: publisher,
		recorder:  recorder,
		workers:   workers,
		bonus:     cfg.ReferralBonus,
		loc:       loc,
		now:       time.Now,
	}, nil
}

type runStats struct {
	evaluated int32
	completed int32
	bonuses   int32
	skipped   int32
}

// Run executes one settlement pass. Only the initial scan is fatal;
// every per-application failure is contained and the run continues.
func (r *Reconciler) Run(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "Reconciler.Run")
	defer span.End()

	runID := uuid.NewString()
	logger := r.logger.With(zap.String("run_id", runID))

	applications, err := r.apps.ListScheduled(ctx)
	if err != nil {
		span.RecordError(err)
		return apperrors.Internal("failed to scan scheduled applications", err)
	}
	span.SetAttributes(telemetry.Int("applications.count", len(applications)))
	logger.Info("starting settlement run", zap.Int("scheduled_applications", len(applications)))

	stats := &runStats{}
	cache := newJobCache(r.jobs)
	appChan := make(chan models.ShiftApplication)

	var wg sync.WaitGroup
	for i := 0; i < r.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for app := range appChan {
				r.evaluate(ctx, runID, logger, app, cache, stats)
			}
		}()
	}

	for _, app := range applications {
		appChan <- app
	}
	close(appChan)
	wg.Wait()

	span.SetAttributes(
		telemetry.Int("applications.completed", int(atomic.LoadInt32(&stats.completed))),
		telemetry.Int("bonuses.awarded", int(atomic.LoadInt32(&stats.bonuses))),
	)
	logger.Info("completed settlement run",
		zap.Int("evaluated", int(atomic.LoadInt32(&stats.evaluated))),
		zap.Int("completed", int(atomic.LoadInt32(&stats.completed))),
		zap.Int("bonuses_awarded", int(atomic.LoadInt32(&stats.bonuses))),
		zap.Int("skipped", int(atomic.LoadInt32(&stats.skipped))))
	return nil
}

// evaluate settles a single application. A panic here is contained so a
// malformed record cannot take down the rest of the batch.
func (r *Reconciler) evaluate(ctx context.Context, runID string, logger *zap.Logger, app models.ShiftApplication, cache *jobCache, stats *runStats) {
	defer func() {
		if rec := recover(); rec != nil {
			atomic.AddInt32(&stats.skipped, 1)
			logger.Error("panic while evaluating application",
				zap.String("job_id", app.JobID),
				zap.String("professional", app.ProfessionalUserSub),
				zap.Any("panic", rec))
			r.record(ctx, audit.Entry{
				RunID:               runID,
				JobID:               app.JobID,
				ClinicID:            app.ClinicID,
				ProfessionalUserSub: app.ProfessionalUserSub,
				Outcome:             audit.OutcomeFailed,
				Detail:              fmt.Sprint(rec),
			})
		}
	}()

	atomic.AddInt32(&stats.evaluated, 1)

	ctx, span := tracer.Start(ctx, "Reconciler.evaluate")
	span.SetAttributes(
		telemetry.String("job_id", app.JobID),
		telemetry.String("professional", app.ProfessionalUserSub),
	)
	defer span.End()

	entry := audit.Entry{
		RunID:               runID,
		JobID:               app.JobID,
		ClinicID:            app.ClinicID,
		ProfessionalUserSub: app.ProfessionalUserSub,
	}

	job, err := cache.get(ctx, app.ClinicID, app.JobID)
	if errors.Is(err, store.ErrNotFound) {
		atomic.AddInt32(&stats.skipped, 1)
		logger.Warn("job posting not found for scheduled application",
			zap.String("job_id", app.JobID),
			zap.String("clinic_id", app.ClinicID))
		entry.Outcome = audit.OutcomeSkipped
		entry.Detail = "job posting not found"
		r.record(ctx, entry)
		return
	}
	if err != nil {
		atomic.AddInt32(&stats.skipped, 1)
		span.RecordError(err)
		logger.Error("failed to resolve job posting",
			zap.String("job_id", app.JobID),
			zap.String("clinic_id", app.ClinicID),
			zap.Error(err))
		entry.Outcome = audit.OutcomeFailed
		entry.Detail = err.Error()
		r.record(ctx, entry)
		return
	}
	if job.ClinicUserSub == "" {
		// Required for the job status write; a posting without it is a
		// data-integrity error, logged loudly but never fatal.
		atomic.AddInt32(&stats.skipped, 1)
		integrityErr := apperrors.Integrity("job posting missing owning clinic identifier", nil)
		span.RecordError(integrityErr)
		logger.Error("job posting missing owning clinic identifier",
			zap.String("job_id", app.JobID),
			zap.String("clinic_id", app.ClinicID))
		entry.Outcome = audit.OutcomeSkipped
		entry.Detail = integrityErr.Message
		r.record(ctx, entry)
		return
	}

	shiftEnd, err := schedule.ShiftEnd(job, r.loc)
	if errors.Is(err, schedule.ErrNotApplicable) {
		logger.Debug("job not subject to time-based completion",
			zap.String("job_id", app.JobID),
			zap.String("job_type", string(job.JobType)))
		entry.Outcome = audit.OutcomeNotApplicable
		r.record(ctx, entry)
		return
	}
	if err != nil {
		atomic.AddInt32(&stats.skipped, 1)
		logger.Warn("could not determine shift end, skipping",
			zap.String("job_id", app.JobID),
			zap.String("end_time", job.EndTime),
			zap.Error(err))
		entry.Outcome = audit.OutcomeSkipped
		entry.Detail = err.Error()
		r.record(ctx, entry)
		return
	}

	now := r.now()
	if !now.After(shiftEnd) {
		entry.Outcome = audit.OutcomePending
		entry.ShiftEnd = shiftEnd
		r.record(ctx, entry)
		return
	}

	// Count completed shifts before the completion write is dispatched:
	// the settlement's first-shift gate must see the state prior to this
	// shift, not race with its own transition.
	priorCompleted, countErr := r.apps.CountCompleted(ctx, app.ProfessionalUserSub)

	failed := r.transitionAndSettle(ctx, runID, logger, app, job, shiftEnd, now, priorCompleted, countErr, stats)

	entry.ShiftEnd = shiftEnd
	if failed > 0 {
		entry.Outcome = audit.OutcomeFailed
		entry.Detail = fmt.Sprintf("%d of 3 settlement writes failed", failed)
	} else {
		entry.Outcome = audit.OutcomeCompleted
	}
	r.record(ctx, entry)
}

// transitionAndSettle dispatches the application transition, the job
// transition and the referral settlement as independent best-effort
// writes joined at the end. They are not a transaction: each captures
// its own error and the others proceed regardless. The number of failed
// writes is returned so the audit row reflects what actually landed.
func (r *Reconciler) transitionAndSettle(ctx context.Context, runID string, logger *zap.Logger, app models.ShiftApplication, job *models.JobPosting, shiftEnd, now time.Time, priorCompleted int, countErr error, stats *runStats) int {
	var writes sync.WaitGroup
	var failed int32
	writes.Add(3)

	go func() {
		defer writes.Done()
		if err := r.apps.MarkCompleted(ctx, app.JobID, app.ProfessionalUserSub, now); err != nil {
			atomic.AddInt32(&failed, 1)
			logger.Error("failed to mark application completed",
				zap.String("job_id", app.JobID),
				zap.String("professional", app.ProfessionalUserSub),
				zap.Error(err))
			return
		}
		atomic.AddInt32(&stats.completed, 1)
		_ = r.publisher.PublishShiftCompleted(ctx, events.ShiftCompletedEvent{
			RunID:               runID,
			JobID:               app.JobID,
			ClinicID:            app.ClinicID,
			ProfessionalUserSub: app.ProfessionalUserSub,
			ShiftEnd:            shiftEnd,
			CompletedAt:         now,
		})
	}()

	go func() {
		defer writes.Done()
		if err := r.jobs.Deactivate(ctx, job.ClinicUserSub, app.JobID, now); err != nil {
			atomic.AddInt32(&failed, 1)
			logger.Error("failed to deactivate job posting",
				zap.String("job_id", app.JobID),
				zap.String("clinic_user_sub", job.ClinicUserSub),
				zap.Error(err))
		}
	}()

	go func() {
		defer writes.Done()
		if err := r.settleReferral(ctx, runID, logger, app.ProfessionalUserSub, priorCompleted, countErr, now, stats); err != nil {
			atomic.AddInt32(&failed, 1)
			logger.Error("referral settlement skipped",
				zap.String("professional", app.ProfessionalUserSub),
				zap.Error(err))
		}
	}()

	writes.Wait()
	return int(atomic.LoadInt32(&failed))
}

func (r *Reconciler) record(ctx context.Context, entry audit.Entry) {
	entry.RecordedAt = r.now()
	if err := r.recorder.Record(ctx, entry); err != nil {
		r.logger.Warn("failed to record audit entry",
			zap.String("run_id", entry.RunID),
			zap.Error(err))
	}
}
