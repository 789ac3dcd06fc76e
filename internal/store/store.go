// Package store exposes the four marketplace tables behind narrow
// interfaces so the settlement pipeline can be exercised against
// in-memory fakes.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/dentipal/DentiPalCDK-sub004/internal/models"
)

var (
	// ErrNotFound is returned when a lookup matches no record.
	ErrNotFound = errors.New("record not found")
	// ErrConditionFailed is returned when a conditional write is rejected
	// because the record no longer satisfies the guard expression.
	ErrConditionFailed = errors.New("conditional write rejected")
)

type Applications interface {
	// ListScheduled scans the whole table for applications still in the
	// scheduled state, paginating to exhaustion.
	ListScheduled(ctx context.Context) ([]models.ShiftApplication, error)

	// MarkCompleted overwrites the application status unconditionally.
	MarkCompleted(ctx context.Context, jobID, professionalUserSub string, at time.Time) error

	// CountCompleted returns how many of the professional's applications
	// are in the completed state.
	CountCompleted(ctx context.Context, professionalUserSub string) (int, error)
}

type Jobs interface {
	// FindByClinicAndJob resolves a posting through the clinicId-jobId
	// secondary index. Returns ErrNotFound when the posting is gone.
	FindByClinicAndJob(ctx context.Context, clinicID, jobID string) (*models.JobPosting, error)

	// Deactivate overwrites the posting status unconditionally.
	Deactivate(ctx context.Context, clinicUserSub, jobID string, at time.Time) error
}

type Referrals interface {
	// FindByReferred looks up the referral record for a referred
	// professional. Returns ErrNotFound when the professional was not
	// referred.
	FindByReferred(ctx context.Context, referredUserSub string) (*models.ReferralRecord, error)

	// MarkBonusDue transitions the referral to bonus_due, conditioned on
	// the status still being signed_up at write time. Returns
	// ErrConditionFailed when another run settled it first.
	MarkBonusDue(ctx context.Context, referralID string, at time.Time) error
}

type Profiles interface {
	// CreditBonus adds amount to the professional's bonus balance,
	// initializing the counter to zero when absent.
	CreditBonus(ctx context.Context, userSub string, amount int) error
}
