package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/dentipal/DentiPalCDK-sub004/internal/config"
	"github.com/dentipal/DentiPalCDK-sub004/internal/telemetry"
)

var tracer = telemetry.GetTracer("dentipal/settlement/events")

const (
	ShiftCompletedSubject = "dentipal.shifts.completed"
	BonusDueSubject       = "dentipal.referrals.bonus_due"
)

// ShiftCompletedEvent announces that a scheduled application was settled
// as completed and its posting deactivated.
type ShiftCompletedEvent struct {
	RunID               string    `json:"run_id"`
	JobID               string    `json:"job_id"`
	ClinicID            string    `json:"clinic_id"`
	ProfessionalUserSub string    `json:"professional_user_sub"`
	ShiftEnd            time.Time `json:"shift_end"`
	CompletedAt         time.Time `json:"completed_at"`
}

// BonusDueEvent announces a one-time referral bonus credit.
type BonusDueEvent struct {
	RunID           string    `json:"run_id"`
	ReferralID      string    `json:"referral_id"`
	ReferrerUserSub string    `json:"referrer_user_sub"`
	ReferredUserSub string    `json:"referred_user_sub"`
	Amount          int       `json:"amount"`
	AwardedAt       time.Time `json:"awarded_at"`
}

type Publisher interface {
	PublishShiftCompleted(ctx context.Context, event ShiftCompletedEvent) error
	PublishBonusDue(ctx context.Context, event BonusDueEvent) error
	Close()
}

type natsPublisher struct {
	conn   *nats.Conn
	logger *zap.Logger
}

func NewPublisher(logger *zap.Logger, cfg *config.Config) (Publisher, error) {
	opts := []nats.Option{
		nats.Timeout(cfg.NATSConnTimeout),
		nats.Name("settlement-service"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
	}

	conn, err := nats.Connect(cfg.NATSURL, opts...)
	if err != nil {
		return nil, err
	}

	return &natsPublisher{
		conn:   conn,
		logger: logger,
	}, nil
}

func (p *natsPublisher) PublishShiftCompleted(ctx context.Context, event ShiftCompletedEvent) error {
	return p.publish(ctx, ShiftCompletedSubject, event)
}

func (p *natsPublisher) PublishBonusDue(ctx context.Context, event BonusDueEvent) error {
	return p.publish(ctx, BonusDueSubject, event)
}

func (p *natsPublisher) publish(ctx context.Context, subject string, event any) error {
	_, span := tracer.Start(ctx, "publish")
	defer span.End()

	data, err := json.Marshal(event)
	if err != nil {
		span.RecordError(err)
		return err
	}

	span.SetAttributes(
		telemetry.String("nats.subject", subject),
		telemetry.Int("message.size", len(data)),
	)

	if err := p.conn.Publish(subject, data); err != nil {
		span.RecordError(err)
		p.logger.Error("failed to publish settlement event",
			zap.String("subject", subject),
			zap.Error(err))
		return err
	}

	p.logger.Debug("published settlement event", zap.String("subject", subject))
	return nil
}

func (p *natsPublisher) Close() {
	if p.conn != nil {
		p.conn.Close()
	}
}
