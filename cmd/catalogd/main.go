// Command catalogd runs the Iceberg REST catalog control plane: Postgres
// persistence, secret store, authorizer and lifecycle engine wired together
// behind a liveness endpoint. It does not serve the Iceberg REST HTTP API
// itself (out of scope, spec.md §1) — the process exists so the lifecycle
// engine has a runnable home and a health surface operators can probe.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/redbco/redb-catalog/internal/authz"
	"github.com/redbco/redb-catalog/internal/catalogbackend/postgres"
	"github.com/redbco/redb-catalog/internal/catalogconfig"
	"github.com/redbco/redb-catalog/internal/events"
	"github.com/redbco/redb-catalog/internal/lifecycle"
	"github.com/redbco/redb-catalog/internal/metrics"
	"github.com/redbco/redb-catalog/internal/secret"
	"github.com/redbco/redb-catalog/pkg/config"
	"github.com/redbco/redb-catalog/pkg/database"
	"github.com/redbco/redb-catalog/pkg/health"
	"github.com/redbco/redb-catalog/pkg/keyring"
	"github.com/redbco/redb-catalog/pkg/logger"
	"github.com/redbco/redb-catalog/pkg/service"
)

const (
	serviceName    = "catalogd"
	serviceVersion = "0.1.0"
)

// catalogService adapts the wired lifecycle engine to pkg/service.Service.
type catalogService struct {
	logger *logger.Logger

	db     *database.PostgreSQL
	redis  *database.Redis
	engine *lifecycle.Engine[*postgres.Backend, authz.Authorizer, secret.Store]

	httpServer *http.Server
}

func main() {
	svc := &catalogService{}
	base := service.NewBaseService(serviceName, serviceVersion, svc)

	ctx := context.Background()
	if err := base.Run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", serviceName, err)
		os.Exit(1)
	}
}

func (s *catalogService) SetLogger(l *logger.Logger) {
	s.logger = l
}

func (s *catalogService) Initialize(ctx context.Context, cfg *config.Config) error {
	pgCfg := database.FromGlobalConfig(cfg)
	db, err := database.New(ctx, pgCfg)
	if err != nil {
		return fmt.Errorf("failed to initialize postgres: %w", err)
	}
	s.db = db

	redisCfg := database.RedisFromGlobalConfig(cfg)
	var publisher events.Publisher = events.NoopPublisher{}
	if rdb, rerr := database.NewRedis(ctx, redisCfg); rerr == nil {
		s.redis = rdb
		publisher = events.NewRedisPublisher(rdb.Client(), "catalog-events")
	} else if s.logger != nil {
		s.logger.Warnf("redis unavailable, event publication disabled: %v", rerr)
	}

	backend := postgres.New(db.Pool())

	var authorizer authz.Authorizer = authz.AllowAll{}
	if cfg.Get("catalog.authz") == "static-rbac" {
		authorizer = authz.NewStaticRBAC(db.Pool())
	}

	keyringPath := keyring.GetDefaultKeyringPath()
	masterPassword := keyring.GetMasterPasswordFromEnv()
	var secretStore secret.Store = secret.NewKeyringStore(keyringPath, masterPassword)

	defaults := catalogconfig.FromConfig(cfg)

	s.engine = lifecycle.New[*postgres.Backend, authz.Authorizer, secret.Store](
		backend, authorizer, secretStore, publisher, metrics.Discard{}, defaults, s.logger,
	)

	return nil
}

func (s *catalogService) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealthz)

	s.httpServer = &http.Server{
		Addr:              ":8181",
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Errorf("healthz server error: %v", err)
		}
	}()

	return nil
}

func (s *catalogService) Stop(ctx context.Context, gracePeriod time.Duration) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, gracePeriod)
	defer cancel()

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Warnf("healthz server shutdown: %v", err)
		}
	}
	if s.redis != nil {
		s.redis.Close()
	}
	if s.db != nil {
		s.db.Close()
	}
	return nil
}

func (s *catalogService) HealthChecks() map[string]health.CheckFunc {
	return map[string]health.CheckFunc{
		"postgres": func() error {
			if s.db == nil {
				return fmt.Errorf("postgres not initialized")
			}
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return s.engine.Backend.Ping(ctx)
		},
		"redis": func() error {
			if s.redis == nil {
				return nil // optional dependency; absence is not unhealthy
			}
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return s.redis.Ping(ctx)
		},
	}
}

func (s *catalogService) handleHealthz(w http.ResponseWriter, r *http.Request) {
	checker := health.NewChecker()
	for name, fn := range s.HealthChecks() {
		checker.RunCheck(name, fn)
	}

	status := checker.GetOverallStatus()
	stats := service.CollectRuntimeStats()

	w.Header().Set("Content-Type", "application/json")
	if status != health.StatusHealthy {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"status":             status.String(),
		"memory_alloc_bytes": stats.MemoryAllocBytes,
		"cpu_seconds":        stats.CPUSeconds,
		"goroutines":         stats.Goroutines,
	})
}
