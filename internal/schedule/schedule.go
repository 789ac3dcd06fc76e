// Package schedule derives a single authoritative end-of-shift instant
// from the heterogeneous date encodings carried by job postings.
package schedule

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dentipal/DentiPalCDK-sub004/internal/models"
)

var (
	// ErrNotApplicable means the posting is never subject to time-based
	// completion (permanent jobs, inactive postings).
	ErrNotApplicable = errors.New("job not subject to time-based completion")

	// ErrIndeterminate means no usable end instant could be derived. The
	// caller must skip, never treat this as elapsed or not-yet-elapsed.
	ErrIndeterminate = errors.New("shift end indeterminate")
)

// shiftSchedule is one of the date encodings a posting can carry. Each
// variant resolves its own calendar date, which keeps the precedence
// rules exhaustive instead of probing optional fields in sequence.
type shiftSchedule interface {
	endDate() (string, error)
}

// multiDaySchedule covers multi_day and multi_day_consulting postings:
// the latest entry of dates[] wins, then start_date, then date.
type multiDaySchedule struct {
	dates     []string
	startDate string
	date      string
}

func (s multiDaySchedule) endDate() (string, error) {
	if len(s.dates) > 0 {
		latest := s.dates[0]
		for _, d := range s.dates[1:] {
			if d > latest {
				latest = d
			}
		}
		return latest, nil
	}
	if s.startDate != "" {
		return s.startDate, nil
	}
	if s.date != "" {
		return s.date, nil
	}
	return "", fmt.Errorf("%w: multi-day posting has no date fields", ErrIndeterminate)
}

// singleDaySchedule covers temporary postings: date, then start_date.
type singleDaySchedule struct {
	date      string
	startDate string
}

func (s singleDaySchedule) endDate() (string, error) {
	if s.date != "" {
		return s.date, nil
	}
	if s.startDate != "" {
		return s.startDate, nil
	}
	return "", fmt.Errorf("%w: temporary posting has no date fields", ErrIndeterminate)
}

// isoSchedule covers older postings that stamped a full ISO value; the
// calendar date is the portion before the literal T.
type isoSchedule struct {
	value string
}

func (s isoSchedule) endDate() (string, error) {
	date, _, found := strings.Cut(s.value, "T")
	if !found || date == "" {
		return "", fmt.Errorf("%w: no date portion in %q", ErrIndeterminate, s.value)
	}
	return date, nil
}

// scheduleFor classifies a posting into its schedule variant.
func scheduleFor(job *models.JobPosting) (shiftSchedule, error) {
	switch job.JobType {
	case models.JobMultiDay, models.JobMultiDayConsulting:
		return multiDaySchedule{dates: job.Dates, startDate: job.StartDate, date: job.Date}, nil
	case models.JobTemporary:
		return singleDaySchedule{date: job.Date, startDate: job.StartDate}, nil
	default:
		if strings.Contains(job.Date, "T") {
			return isoSchedule{value: job.Date}, nil
		}
		if strings.Contains(job.StartDate, "T") {
			return isoSchedule{value: job.StartDate}, nil
		}
		return nil, fmt.Errorf("%w: job type %q has no recognizable date encoding", ErrIndeterminate, job.JobType)
	}
}

// normalizeEndTime canonicalizes an end time to HH:MM:SS. A two-component
// HH:MM value is padded with seconds; any other shape is unusable.
func normalizeEndTime(raw string) (string, error) {
	parts := strings.Split(raw, ":")
	switch len(parts) {
	case 2:
		raw += ":00"
	case 3:
		// already HH:MM:SS
	default:
		return "", fmt.Errorf("%w: unusable end_time %q", ErrIndeterminate, raw)
	}
	if _, err := time.Parse("15:04:05", raw); err != nil {
		return "", fmt.Errorf("%w: unusable end_time %q", ErrIndeterminate, raw)
	}
	return raw, nil
}

// ShiftEnd computes the end-of-shift instant for a posting in the given
// location. It returns ErrNotApplicable for postings outside time-based
// completion and ErrIndeterminate when no valid instant can be derived.
func ShiftEnd(job *models.JobPosting, loc *time.Location) (time.Time, error) {
	if job.JobType == models.JobPermanent {
		return time.Time{}, fmt.Errorf("%w: permanent job", ErrNotApplicable)
	}
	if job.Status != models.JobActive {
		return time.Time{}, fmt.Errorf("%w: job status %q", ErrNotApplicable, job.Status)
	}

	endTime, err := normalizeEndTime(job.EndTime)
	if err != nil {
		return time.Time{}, err
	}

	sched, err := scheduleFor(job)
	if err != nil {
		return time.Time{}, err
	}
	date, err := sched.endDate()
	if err != nil {
		return time.Time{}, err
	}

	end, err := time.ParseInLocation("2006-01-02 15:04:05", date+" "+endTime, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: cannot combine date %q with end_time %q", ErrIndeterminate, date, endTime)
	}
	return end, nil
}
