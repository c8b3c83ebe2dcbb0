package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/atelierhq/portal-backend/config"
	"github.com/atelierhq/portal-backend/internal/reconcile"
)

// The reconciler runs the nightly sprint counter sweep. `reconciler once`
// runs a single sweep and exits, for operators and cron-less deployments.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	store, err := reconcile.Open(cfg.Database.DSN)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer store.Close()

	sched := reconcile.NewScheduler(store)

	if len(os.Args) > 1 && os.Args[1] == "once" {
		sched.RunOnce(context.Background())
		return
	}

	sched.Start()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()
	sched.Stop()
}
