package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"go.uber.org/zap"

	"github.com/safedeal/backend/internal/config"
	"github.com/safedeal/backend/internal/db"
	"github.com/safedeal/backend/internal/repositories"
)

// Read-only reporting over the order journal. Safe to run alongside the API:
// it never touches the in-memory ledgers, only the Postgres copy.
func main() {
	log, _ := zap.NewProduction()
	defer log.Sync()

	cfg := config.Load()
	ctx := context.Background()

	pool, err := db.NewPostgresPool(ctx, cfg.PostgresDSN, log)
	if err != nil {
		log.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer pool.Close()

	orderRepo := repositories.NewOrderRepo(pool)
	summaries, err := orderRepo.Summaries(ctx)
	if err != nil {
		log.Fatal("failed to load summaries", zap.Error(err))
	}

	if len(summaries) == 0 {
		fmt.Println("no orders journaled yet")
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TENANT\tPENDING\tDELIVERED\tREFUNDED\tPOOL_NANO\tRELEASED_NANO")
	for _, s := range summaries {
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\t%d\n",
			s.Tenant, s.Pending, s.Delivered, s.Refunded, s.PendingNano, s.ReleasedNano)
	}
	w.Flush()
}
