// Command catalog-sweeper periodically purges soft-deleted tables and views
// whose grace window has elapsed. Supplements the distillation: spec.md
// frames soft-delete expiration as an "external" process rather than part
// of the engine's own request path (spec.md §4.F.4, §9).
package main

import (
	"context"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/redbco/redb-catalog/internal/authz"
	"github.com/redbco/redb-catalog/internal/catalogbackend"
	"github.com/redbco/redb-catalog/internal/catalogbackend/postgres"
	"github.com/redbco/redb-catalog/internal/catalogconfig"
	"github.com/redbco/redb-catalog/internal/events"
	"github.com/redbco/redb-catalog/internal/lifecycle"
	"github.com/redbco/redb-catalog/internal/metrics"
	"github.com/redbco/redb-catalog/internal/secret"
	"github.com/redbco/redb-catalog/pkg/config"
	"github.com/redbco/redb-catalog/pkg/database"
	"github.com/redbco/redb-catalog/pkg/keyring"
	"github.com/redbco/redb-catalog/pkg/logger"
)

const (
	serviceName = "catalog-sweeper"
	batchSize   = 200
	// maxConcurrentPurges bounds how many expired tabulars this process
	// purges at once; the backend connection pool, not CPU, is the limit.
	maxConcurrentPurges = 8
)

func main() {
	log := logger.New(serviceName, "0.1.0")
	cfg := config.New()
	defaults := catalogconfig.FromConfig(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info("received shutdown signal")
		cancel()
	}()

	db, err := database.New(ctx, database.FromGlobalConfig(cfg))
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer db.Close()

	keyringPath := keyring.GetDefaultKeyringPath()
	masterPassword := keyring.GetMasterPasswordFromEnv()
	var secretStore secret.Store = secret.NewKeyringStore(keyringPath, masterPassword)

	backend := postgres.New(db.Pool())
	engine := lifecycle.New[*postgres.Backend, authz.Authorizer, secret.Store](
		backend, authz.AllowAll{}, secretStore, events.NoopPublisher{}, metrics.Discard{}, defaults, log,
	)

	log.Infof("%s started, polling every %s", serviceName, defaults.SweeperInterval)
	runLoop(ctx, engine, log, defaults.SweeperInterval)
	log.Info("sweeper stopped")
}

func runLoop[B catalogbackend.Backend, A authz.Authorizer, S secret.Store](
	ctx context.Context, engine *lifecycle.Engine[B, A, S], log *logger.Logger, interval time.Duration,
) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// run once immediately on startup, then on the ticker
	sweepOnce(ctx, engine, log)
	for {
		select {
		case <-ticker.C:
			sweepOnce(ctx, engine, log)
		case <-ctx.Done():
			return
		}
	}
}

// sweepOnce purges every tabular whose grace window (set per-warehouse on
// TabularDeleteProfile at soft-delete time, baked into ExpirationAt) has
// already elapsed — it needs no additional grace of its own.
func sweepOnce[B catalogbackend.Backend, A authz.Authorizer, S secret.Store](
	ctx context.Context, engine *lifecycle.Engine[B, A, S], log *logger.Logger,
) {
	expired, err := engine.ListExpiredTabulars(ctx, time.Now(), batchSize)
	if err != nil {
		log.Errorf("failed to list expired tabulars: %v", err)
		return
	}
	if len(expired) == 0 {
		return
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentPurges)

	var purged, failed atomic.Int64
	for _, t := range expired {
		t := t
		g.Go(func() error {
			if err := engine.PurgeExpiredTabular(gctx, t); err != nil {
				log.Warnf("failed to purge %s in warehouse %s: %v", t.TabularID, t.WarehouseID, err)
				failed.Add(1)
				return nil // a single purge failure never aborts the batch
			}
			purged.Add(1)
			return nil
		})
	}
	_ = g.Wait()

	log.Infof("sweep complete: %d purged, %d failed, %d total candidates", purged.Load(), failed.Load(), len(expired))
}
