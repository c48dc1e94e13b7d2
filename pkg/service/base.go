package service

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/redbco/redb-catalog/pkg/config"
	"github.com/redbco/redb-catalog/pkg/health"
	"github.com/redbco/redb-catalog/pkg/logger"
)

// Service is the interface a long-running process implements to be driven
// by BaseService.
type Service interface {
	// Initialize is called once, before Start.
	Initialize(ctx context.Context, config *config.Config) error

	// Start begins the service's main work.
	Start(ctx context.Context) error

	// Stop gracefully shuts down the service.
	Stop(ctx context.Context, gracePeriod time.Duration) error

	// HealthChecks returns service-specific health check functions.
	HealthChecks() map[string]health.CheckFunc
}

// LoggerAware is an optional interface services can implement if they need
// access to the shared logger.
type LoggerAware interface {
	SetLogger(logger *logger.Logger)
}

// BaseService runs a Service to completion: initialize, start, run health
// checks on a ticker, and wait for an interrupt or stop signal to shut down.
type BaseService struct {
	Name       string
	Version    string
	InstanceID string

	Logger        *logger.Logger
	Config        *config.Config
	HealthChecker *health.Checker

	mu        sync.RWMutex
	stopCh    chan struct{}
	stopOnce  sync.Once
	stoppedCh chan struct{}

	impl Service
}

// NewBaseService creates a new base service instance.
func NewBaseService(name, version string, impl Service) *BaseService {
	return &BaseService{
		Name:          name,
		Version:       version,
		InstanceID:    uuid.New().String(),
		Logger:        logger.New(name, version),
		Config:        config.New(),
		HealthChecker: health.NewChecker(),
		stopCh:        make(chan struct{}),
		stoppedCh:     make(chan struct{}),
		impl:          impl,
	}
}

// Stop signals the service to begin graceful shutdown.
func (s *BaseService) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
	})
}

// Run starts the service and blocks until it has fully shut down.
func (s *BaseService) Run(ctx context.Context) error {
	if loggerAware, ok := s.impl.(LoggerAware); ok {
		loggerAware.SetLogger(s.Logger)
	}

	if err := s.impl.Initialize(ctx, s.Config); err != nil {
		return fmt.Errorf("failed to initialize service: %w", err)
	}
	s.Logger.Infof("%s initialized", s.Name)

	go s.healthCheckLoop(ctx)

	if err := s.impl.Start(ctx); err != nil {
		return fmt.Errorf("failed to start service: %w", err)
	}
	s.Logger.Infof("%s started", s.Name)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case <-sigCh:
		s.Logger.Info("received shutdown signal")
	case <-s.stopCh:
		s.Logger.Info("received stop command")
	case <-ctx.Done():
		s.Logger.Info("context cancelled")
	}

	return s.shutdown(ctx)
}

func (s *BaseService) healthCheckLoop(ctx context.Context) {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	checks := s.impl.HealthChecks()

	for {
		select {
		case <-ticker.C:
			for name, checkFunc := range checks {
				s.HealthChecker.RunCheck(name, checkFunc)
			}
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		}
	}
}

func (s *BaseService) shutdown(ctx context.Context) error {
	s.Logger.Info("starting graceful shutdown")

	gracePeriod := 30 * time.Second
	if err := s.impl.Stop(ctx, gracePeriod); err != nil {
		s.Logger.Errorf("service shutdown error: %v", err)
	}

	close(s.stoppedCh)
	s.Logger.Info("service stopped")
	return nil
}
