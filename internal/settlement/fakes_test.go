package settlement

import (
	"context"
	"sync"
	"time"

	"github.com/dentipal/DentiPalCDK-sub004/internal/audit"
	"github.com/dentipal/DentiPalCDK-sub004/internal/events"
	"github.com/dentipal/DentiPalCDK-sub004/internal/models"
	"github.com/dentipal/DentiPalCDK-sub004/internal/store"
)

// In-memory fakes implementing the store interfaces. The referral fake
// enforces the conditional-write semantics under a mutex so races can be
// simulated faithfully.

type fakeApplications struct {
	mu        sync.Mutex
	apps      map[string]*models.ShiftApplication
	scanErr   error
	markErr   error
	countErr  error
	markDelay time.Duration
}

func appKey(jobID, sub string) string {
	return jobID + "|" + sub
}

func newFakeApplications(apps ...models.ShiftApplication) *fakeApplications {
	f := &fakeApplications{apps: make(map[string]*models.ShiftApplication)}
	for i := range apps {
		a := apps[i]
		f.apps[appKey(a.JobID, a.ProfessionalUserSub)] = &a
	}
	return f
}

func (f *fakeApplications) ListScheduled(ctx context.Context) ([]models.ShiftApplication, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.scanErr != nil {
		return nil, f.scanErr
	}
	var out []models.ShiftApplication
	for _, a := range f.apps {
		if a.Status == models.ApplicationScheduled {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (f *fakeApplications) MarkCompleted(ctx context.Context, jobID, sub string, at time.Time) error {
	if f.markDelay > 0 {
		time.Sleep(f.markDelay)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.markErr != nil {
		return f.markErr
	}
	if a, ok := f.apps[appKey(jobID, sub)]; ok {
		a.Status = models.ApplicationCompleted
		a.UpdatedAt = at.UTC().Format(time.RFC3339)
	}
	return nil
}

func (f *fakeApplications) CountCompleted(ctx context.Context, sub string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.countErr != nil {
		return 0, f.countErr
	}
	count := 0
	for _, a := range f.apps {
		if a.ProfessionalUserSub == sub && a.Status == models.ApplicationCompleted {
			count++
		}
	}
	return count, nil
}

func (f *fakeApplications) status(jobID, sub string) models.ApplicationStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.apps[appKey(jobID, sub)].Status
}

type fakeJobs struct {
	mu        sync.Mutex
	jobs      []*models.JobPosting
	findCalls int
	panicOn   string
}

func newFakeJobs(jobs ...models.JobPosting) *fakeJobs {
	f := &fakeJobs{}
	for i := range jobs {
		j := jobs[i]
		f.jobs = append(f.jobs, &j)
	}
	return f
}

func (f *fakeJobs) FindByClinicAndJob(ctx context.Context, clinicID, jobID string) (*models.JobPosting, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.findCalls++
	if f.panicOn == jobID {
		panic("malformed job record")
	}
	for _, j := range f.jobs {
		if j.ClinicID == clinicID && j.JobID == jobID {
			copied := *j
			return &copied, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeJobs) Deactivate(ctx context.Context, clinicUserSub, jobID string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, j := range f.jobs {
		if j.ClinicUserSub == clinicUserSub && j.JobID == jobID {
			j.Status = models.JobInactive
			j.UpdatedAt = at.UTC().Format(time.RFC3339)
		}
	}
	return nil
}

func (f *fakeJobs) status(jobID string) models.JobStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, j := range f.jobs {
		if j.JobID == jobID {
			return j.Status
		}
	}
	return ""
}

type fakeReferrals struct {
	mu        sync.Mutex
	records   []*models.ReferralRecord
	findErr   error
	findCalls int
	markCalls int
}

func newFakeReferrals(records ...models.ReferralRecord) *fakeReferrals {
	f := &fakeReferrals{}
	for i := range records {
		r := records[i]
		f.records = append(f.records, &r)
	}
	return f
}

func (f *fakeReferrals) FindByReferred(ctx context.Context, sub string) (*models.ReferralRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.findCalls++
	if f.findErr != nil {
		return nil, f.findErr
	}
	for _, r := range f.records {
		if r.ReferredUserSub == sub {
			copied := *r
			return &copied, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeReferrals) MarkBonusDue(ctx context.Context, referralID string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.markCalls++
	for _, r := range f.records {
		if r.ReferralID == referralID {
			if r.Status != models.ReferralSignedUp {
				return store.ErrConditionFailed
			}
			r.Status = models.ReferralBonusDue
			r.UpdatedAt = at.UTC().Format(time.RFC3339)
			return nil
		}
	}
	return store.ErrNotFound
}

func (f *fakeReferrals) status(referralID string) models.ReferralStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.records {
		if r.ReferralID == referralID {
			return r.Status
		}
	}
	return ""
}

type fakeProfiles struct {
	mu          sync.Mutex
	balances    map[string]int
	creditCalls int
	creditErr   error
}

func newFakeProfiles() *fakeProfiles {
	return &fakeProfiles{balances: make(map[string]int)}
}

func (f *fakeProfiles) CreditBonus(ctx context.Context, sub string, amount int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creditCalls++
	if f.creditErr != nil {
		return f.creditErr
	}
	f.balances[sub] += amount
	return nil
}

func (f *fakeProfiles) balance(sub string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.balances[sub]
}

type fakeRecorder struct {
	mu      sync.Mutex
	entries []audit.Entry
}

func (f *fakeRecorder) Record(ctx context.Context, entry audit.Entry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, entry)
	return nil
}

func (f *fakeRecorder) outcomes() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, e := range f.entries {
		out = append(out, e.Outcome)
	}
	return out
}

type fakePublisher struct {
	mu         sync.Mutex
	completed  []events.ShiftCompletedEvent
	bonuses    []events.BonusDueEvent
	publishErr error
}

func (f *fakePublisher) PublishShiftCompleted(ctx context.Context, ev events.ShiftCompletedEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.publishErr != nil {
		return f.publishErr
	}
	f.completed = append(f.completed, ev)
	return nil
}

func (f *fakePublisher) PublishBonusDue(ctx context.Context, ev events.BonusDueEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.publishErr != nil {
		return f.publishErr
	}
	f.bonuses = append(f.bonuses, ev)
	return nil
}

func (f *fakePublisher) Close() {}

func (f *fakePublisher) completedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.completed)
}

func (f *fakePublisher) bonusCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.bonuses)
}
