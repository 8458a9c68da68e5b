// Package scheduler runs the periodic billing jobs.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/amoylab/cleanbill/internal/apiserver/cache"
	"github.com/amoylab/cleanbill/internal/apiserver/database"
	"github.com/amoylab/cleanbill/internal/common/cnst"
	"github.com/amoylab/cleanbill/internal/identity"
	"github.com/amoylab/cleanbill/pkg/metrics"
	"github.com/amoylab/cleanbill/pkg/trace"

	"github.com/robfig/cron/v3"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const overdueLockName = "overdue-sweep"

// TenantLister yields the tenants a sweep walks
type TenantLister interface {
	ListTenants(ctx context.Context, activeOnly bool, page database.Page) ([]*database.Tenant, int64, error)
}

// OverdueMarker flips a tenant's past-due invoices to overdue
type OverdueMarker interface {
	MarkOverdue(ctx context.Context, caller identity.Caller) (int64, error)
}

// Locker guards a sweep against concurrent replicas
type Locker interface {
	Acquire(ctx context.Context, name string, ttl time.Duration) (*cache.Lock, error)
}

// OverdueSchedulerConfig holds configuration for the overdue scheduler
type OverdueSchedulerConfig struct {
	Tenants  TenantLister
	Invoices OverdueMarker
	// Locker may be nil when a single replica runs
	Locker   Locker
	Metrics  *metrics.Metrics
	Logger   *zap.Logger
	Spec     string
	LockTTL  time.Duration
	Location *time.Location
}

// SweepResult summarizes one run over all tenants
type SweepResult struct {
	Skipped bool
	Tenants int
	Updated int64
}

// OverdueScheduler runs the overdue sweep on a cron schedule
type OverdueScheduler struct {
	cfg    OverdueSchedulerConfig
	cron   *cron.Cron
	logger *zap.Logger
}

func NewOverdueScheduler(cfg OverdueSchedulerConfig) (*OverdueScheduler, error) {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 5 * time.Minute
	}
	s := &OverdueScheduler{
		cfg:    cfg,
		cron:   cron.New(cron.WithLocation(cfg.Location)),
		logger: cfg.Logger.Named("scheduler.overdue"),
	}
	if _, err := s.cron.AddFunc(cfg.Spec, s.tick); err != nil {
		return nil, fmt.Errorf("invalid overdue schedule %q: %w", cfg.Spec, err)
	}
	return s, nil
}

func (s *OverdueScheduler) Start() {
	s.logger.Info("starting overdue scheduler", zap.String("spec", s.cfg.Spec))
	s.cron.Start()
}

// Stop halts the schedule and waits for a running sweep until ctx is done
func (s *OverdueScheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.logger.Warn("overdue sweep still running at shutdown")
	}
}

func (s *OverdueScheduler) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.LockTTL)
	defer cancel()
	if _, err := s.RunOnce(ctx); err != nil {
		s.logger.Error("overdue sweep failed", zap.Error(err))
	}
}

// RunOnce sweeps every active tenant. A failing tenant does not stop the others;
// their errors are joined.
func (s *OverdueScheduler) RunOnce(ctx context.Context) (SweepResult, error) {
	start := time.Now()
	span := trace.Tracer(cnst.TraceSchedule).Start(ctx, cnst.SpanOverdueSweep)
	defer span.End()
	ctx = span.Ctx

	var result SweepResult
	if s.cfg.Locker != nil {
		lock, err := s.cfg.Locker.Acquire(ctx, overdueLockName, s.cfg.LockTTL)
		if err != nil {
			span.Fail(err)
			s.cfg.Metrics.SweepDone("error", start)
			return result, err
		}
		if lock == nil {
			result.Skipped = true
			s.cfg.Metrics.SweepDone("skipped", start)
			s.logger.Debug("overdue sweep running on another replica")
			return result, nil
		}
		defer func() {
			if err := lock.Release(context.WithoutCancel(ctx)); err != nil {
				s.logger.Warn("failed to release overdue lock", zap.Error(err))
			}
		}()
	}

	tenants, _, err := s.cfg.Tenants.ListTenants(ctx, true, database.Page{})
	if err != nil {
		span.Fail(err)
		s.cfg.Metrics.SweepDone("error", start)
		return result, err
	}

	var errs []error
	for _, t := range tenants {
		n, err := s.cfg.Invoices.MarkOverdue(ctx, identity.System().ForTenant(t.ID))
		if err != nil {
			errs = append(errs, fmt.Errorf("tenant %s: %w", t.Slug, err))
			continue
		}
		result.Tenants++
		result.Updated += n
	}

	span.WithAttrs(
		attribute.Int(cnst.AttrTargets, len(tenants)),
		attribute.Int64(cnst.AttrCreated, result.Updated),
	)
	err = errors.Join(errs...)
	if err != nil {
		span.Fail(err)
		s.cfg.Metrics.SweepDone("partial", start)
	} else {
		s.cfg.Metrics.SweepDone("ok", start)
	}
	s.logger.Info("overdue sweep finished",
		zap.Int("tenants", result.Tenants),
		zap.Int("failed", len(errs)),
		zap.Int64("updated", result.Updated),
		zap.Duration("took", time.Since(start)))
	return result, err
}
