package ingest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/professorSergio12/Stock-Broker/models"
)

func TestTracker_GetReturnsCopy(t *testing.T) {
	tr := NewTracker(time.Hour)
	tr.Create("a", models.ImportJob{Stage: models.ImportStageParsing, ErrorDetails: []string{}})

	j, ok := tr.Get("a")
	if !ok || j.ID != "a" || j.CreatedAt.IsZero() {
		t.Fatalf("unexpected job: %+v", j)
	}
	j.ErrorDetails = append(j.ErrorDetails, "mutated")
	j.Stage = models.ImportStageError

	again, _ := tr.Get("a")
	if again.Stage != models.ImportStageParsing || len(again.ErrorDetails) != 0 {
		t.Fatalf("tracker state changed through a copy: %+v", again)
	}
	if _, ok := tr.Get("missing"); ok {
		t.Fatalf("expected missing job to be absent")
	}
}

func TestTracker_UpdateStampsFinish(t *testing.T) {
	tr := NewTracker(time.Hour)
	if tr.Update("nope", func(*models.ImportJob) {}) {
		t.Fatalf("update of unknown id should report false")
	}
	tr.Create("a", models.ImportJob{})
	tr.Update("a", func(j *models.ImportJob) { j.Stage = models.ImportStageInserting })
	if j, _ := tr.Get("a"); j.FinishedAt != nil {
		t.Fatalf("running job must not have a finish time")
	}
	tr.Update("a", func(j *models.ImportJob) { j.Stage = models.ImportStageCompleted })
	j, _ := tr.Get("a")
	if j.FinishedAt == nil {
		t.Fatalf("completed job must have a finish time")
	}
}

func TestTracker_SweepEvictsOnlyExpiredFinishedJobs(t *testing.T) {
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	now := base
	tr := NewTracker(time.Hour)
	tr.now = func() time.Time { return now }

	tr.Create("running", models.ImportJob{Stage: models.ImportStageInserting})
	tr.Create("done", models.ImportJob{})
	tr.Update("done", func(j *models.ImportJob) { j.Stage = models.ImportStageCompleted })
	now = base.Add(30 * time.Minute)
	tr.Create("failed-later", models.ImportJob{})
	tr.Update("failed-later", func(j *models.ImportJob) { j.Stage = models.ImportStageError })

	if n := tr.Sweep(base.Add(59 * time.Minute)); n != 0 {
		t.Fatalf("nothing has expired yet, evicted %d", n)
	}
	if n := tr.Sweep(base.Add(time.Hour)); n != 1 {
		t.Fatalf("expected 1 eviction, got %d", n)
	}
	if _, ok := tr.Get("done"); ok {
		t.Fatalf("expired job still present")
	}
	if n := tr.Sweep(base.Add(48 * time.Hour)); n != 1 {
		t.Fatalf("expected the failed job to expire, got %d", n)
	}
	if tr.Len() != 1 {
		t.Fatalf("running job must never be evicted, have %d jobs", tr.Len())
	}
}

func TestTracker_ConcurrentAccess(t *testing.T) {
	tr := NewTracker(time.Minute)
	tr.Create("a", models.ImportJob{})
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for k := 0; k < 200; k++ {
				tr.Update("a", func(j *models.ImportJob) { j.ProcessedRows++ })
			}
		}()
		go func() {
			defer wg.Done()
			for k := 0; k < 200; k++ {
				tr.Get("a")
			}
		}()
	}
	wg.Wait()
	if j, _ := tr.Get("a"); j.ProcessedRows != 16*200 {
		t.Fatalf("expected %d updates, got %d", 16*200, j.ProcessedRows)
	}
}

func TestTracker_RunStopsWithContext(t *testing.T) {
	tr := NewTracker(time.Nanosecond)
	tr.Create("a", models.ImportJob{})
	tr.Update("a", func(j *models.ImportJob) { j.Stage = models.ImportStageCompleted })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		tr.Run(ctx, 5*time.Millisecond)
		close(done)
	}()
	deadline := time.After(5 * time.Second)
	for tr.Len() != 0 {
		select {
		case <-deadline:
			t.Fatalf("janitor did not evict the finished job")
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	<-done
}
