package reconcile

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

type Scheduler struct {
	store *Store
	cron  *cron.Cron
}

func NewScheduler(store *Store) *Scheduler {
	return &Scheduler{store: store}
}

// Start schedules the nightly counter sweep.
func (s *Scheduler) Start() {
	c := cron.New(cron.WithSeconds())

	// (12:00 AM)
	_, err := c.AddFunc("0 0 0 * * *", func() {
		s.RunOnce(context.Background())
	})
	if err != nil {
		log.Printf("Failed to create cron job: %v", err)
		return
	}

	log.Println("Reconcile scheduler started (running nightly at 12:00AM)")
	c.Start()
	s.cron = c
}

func (s *Scheduler) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
}

// RunOnce performs a single sweep: detect drifted sprint counters and
// rewrite each one from a live recount.
func (s *Scheduler) RunOnce(ctx context.Context) {
	start := time.Now()
	drifts, err := s.store.FindDrift(ctx)
	if err != nil {
		log.Printf("reconcile: drift scan failed: %v", err)
		return
	}
	repaired := 0
	for _, d := range drifts {
		if err := s.store.Repair(ctx, d.SprintID); err != nil {
			log.Printf("reconcile: sprint=%s err=%v", d.SprintID, err)
			continue
		}
		log.Printf("reconcile: sprint=%s done %d->%d total %d->%d",
			d.SprintID, d.StoredDone, d.ActualDone, d.StoredTotal, d.ActualTotal)
		repaired++
	}
	log.Printf("reconcile: swept drifted=%d repaired=%d took=%s", len(drifts), repaired, time.Since(start))
}
