// Package audit records one row per evaluated application into the
// analytics store. Recording is best-effort: a failed insert never
// affects the settlement pipeline.
package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"go.uber.org/zap"
)

// Outcome values written to the audit table.
const (
	OutcomeCompleted     = "completed"
	OutcomePending       = "pending"
	OutcomeSkipped       = "skipped"
	OutcomeNotApplicable = "not_applicable"
	OutcomeFailed        = "failed"
)

type Entry struct {
	RunID               string
	JobID               string
	ClinicID            string
	ProfessionalUserSub string
	Outcome             string
	Detail              string
	ShiftEnd            time.Time
	RecordedAt          time.Time
}

type Recorder interface {
	Record(ctx context.Context, entry Entry) error
}

const auditTableDDL = `
	CREATE TABLE IF NOT EXISTS shift_settlement_audit (
		run_id String,
		job_id String,
		clinic_id String,
		professional_user_sub String,
		outcome String,
		detail String,
		shift_end DateTime,
		recorded_at DateTime
	) ENGINE = MergeTree()
	ORDER BY (recorded_at, run_id)
`

type ClickHouseRecorder struct {
	conn   clickhouse.Conn
	logger *zap.Logger
}

func NewClickHouseRecorder(conn clickhouse.Conn, logger *zap.Logger) *ClickHouseRecorder {
	return &ClickHouseRecorder{
		conn:   conn,
		logger: logger,
	}
}

// EnsureSchema creates the audit table when missing. Called once at
// startup.
func (r *ClickHouseRecorder) EnsureSchema(ctx context.Context) error {
	if err := r.conn.Exec(ctx, auditTableDDL); err != nil {
		return fmt.Errorf("ensure audit table: %w", err)
	}
	return nil
}

func (r *ClickHouseRecorder) Record(ctx context.Context, entry Entry) error {
	query := `
		INSERT INTO shift_settlement_audit (
			run_id, job_id, clinic_id, professional_user_sub,
			outcome, detail, shift_end, recorded_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	if err := r.conn.Exec(ctx, query,
		entry.RunID,
		entry.JobID,
		entry.ClinicID,
		entry.ProfessionalUserSub,
		entry.Outcome,
		entry.Detail,
		entry.ShiftEnd,
		entry.RecordedAt,
	); err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

type nopRecorder struct{}

func (nopRecorder) Record(context.Context, Entry) error { return nil }

// Nop returns a recorder that discards every entry.
func Nop() Recorder {
	return nopRecorder{}
}
