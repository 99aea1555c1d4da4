package ingest

import (
	"context"
	"sync"
	"time"

	"github.com/professorSergio12/Stock-Broker/config"
	"github.com/professorSergio12/Stock-Broker/models"
	"github.com/sirupsen/logrus"
)

// Tracker holds the progress of every import started by this process. Finished
// jobs are kept for ttl after they finish so slow pollers can still read the result.
type Tracker struct {
	mu   sync.RWMutex
	jobs map[string]*models.ImportJob
	ttl  time.Duration
	now  func() time.Time
}

func NewTracker(ttl time.Duration) *Tracker {
	return &Tracker{
		jobs: make(map[string]*models.ImportJob),
		ttl:  ttl,
		now:  time.Now,
	}
}

// Create registers job under id, replacing any previous entry.
func (t *Tracker) Create(id string, job models.ImportJob) {
	now := t.now()
	j := job.Clone()
	j.ID = id
	if j.CreatedAt.IsZero() {
		j.CreatedAt = now
	}
	j.UpdatedAt = now

	t.mu.Lock()
	t.jobs[id] = &j
	t.mu.Unlock()
}

// Get returns a copy of the job.
func (t *Tracker) Get(id string) (models.ImportJob, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	j, ok := t.jobs[id]
	if !ok {
		return models.ImportJob{}, false
	}
	return j.Clone(), true
}

// Update applies fn to the stored job under the lock. It returns false when id is unknown.
func (t *Tracker) Update(id string, fn func(*models.ImportJob)) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	j, ok := t.jobs[id]
	if !ok {
		return false
	}
	fn(j)
	now := t.now()
	j.UpdatedAt = now
	if j.IsTerminal() && j.FinishedAt == nil {
		j.FinishedAt = &now
	}
	return true
}

func (t *Tracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.jobs)
}

// Sweep drops finished jobs older than the ttl and returns how many were removed.
func (t *Tracker) Sweep(now time.Time) int {
	if t.ttl <= 0 {
		return 0
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	removed := 0
	for id, j := range t.jobs {
		if j.FinishedAt != nil && !now.Before(j.FinishedAt.Add(t.ttl)) {
			delete(t.jobs, id)
			removed++
		}
	}
	return removed
}

// Run sweeps every interval until ctx is done.
func (t *Tracker) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := t.Sweep(now); n > 0 {
				config.GetLogger().WithFields(logrus.Fields{
					"module":  "ingest",
					"evicted": n,
				}).Debug("evicted finished imports")
			}
		}
	}
}
