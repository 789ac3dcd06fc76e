package settlement

import (
	"context"
	"errors"
	"sync"

	"github.com/dentipal/DentiPalCDK-sub004/internal/models"
	"github.com/dentipal/DentiPalCDK-sub004/internal/store"
)

// jobCache memoizes posting lookups for the lifetime of one run. Several
// scheduled applications can point at the same posting; a run-scoped map
// avoids repeated index queries without risking staleness across runs.
type jobCache struct {
	jobs store.Jobs

	mu      sync.Mutex
	entries map[string]jobCacheEntry
}

type jobCacheEntry struct {
	job *models.JobPosting
	err error
}

func newJobCache(jobs store.Jobs) *jobCache {
	return &jobCache{
		jobs:    jobs,
		entries: make(map[string]jobCacheEntry),
	}
}

func (c *jobCache) get(ctx context.Context, clinicID, jobID string) (*models.JobPosting, error) {
	key := clinicID + "/" + jobID

	c.mu.Lock()
	if entry, ok := c.entries[key]; ok {
		c.mu.Unlock()
		return entry.job, entry.err
	}
	c.mu.Unlock()

	job, err := c.jobs.FindByClinicAndJob(ctx, clinicID, jobID)

	// Successful lookups and definitive misses are worth remembering;
	// transient query failures are not.
	if err == nil || errors.Is(err, store.ErrNotFound) {
		c.mu.Lock()
		c.entries[key] = jobCacheEntry{job: job, err: err}
		c.mu.Unlock()
	}

	return job, err
}
