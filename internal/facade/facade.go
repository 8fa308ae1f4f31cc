// Package facade implements the service facade: the single entry
// point external callers (a future transport, or the thin CLI) use to
// reach every domain operation. It binds a TenantContext, opens a
// UnitOfWork, invokes the operation, commits or rolls back, dispatches
// staged events, and translates domain errors, using a constructor-injected,
// stateless service-struct shape generalized to wrap *every* domain
// operation behind one boundary instead of one service per concern.
package facade

import (
	"context"
	"time"

	"github.com/avast/retry-go"

	"github.com/manufab-platform/kpi-core/internal/capacity"
	"github.com/manufab-platform/kpi-core/internal/eventbus"
	"github.com/manufab-platform/kpi-core/internal/forecast"
	"github.com/manufab-platform/kpi-core/internal/ingestion"
	"github.com/manufab-platform/kpi-core/internal/kpi"
	"github.com/manufab-platform/kpi-core/internal/repository"
	"github.com/manufab-platform/kpi-core/internal/reporting"
	"github.com/manufab-platform/kpi-core/internal/tenant"
	"github.com/manufab-platform/kpi-core/internal/workflow"
	"github.com/manufab-platform/kpi-core/pkg/apperrors"
	"github.com/manufab-platform/kpi-core/pkg/logger"
	"github.com/manufab-platform/kpi-core/pkg/metrics"
	"github.com/manufab-platform/kpi-core/pkg/middleware"
)

// staleRetries caps retries on STALE for idempotent operations at N=2 —
// N additional attempts beyond the first.
const staleRetries = 2

// Facade is the bound-together surface every external caller goes
// through. It holds no per-request state; every method takes the actor
// and target tenant explicitly.
type Facade struct {
	Backend    repository.Backend
	Bus        *eventbus.Bus
	Workflow   *workflow.Engine
	KPI        *kpi.Engine
	Forecast   *forecast.Service
	Capacity   *capacity.Store
	Reporting  *reporting.Orchestrator
	Ingestion  *ingestion.Pipeline
	TokenIssuer *tenant.TokenIssuer
	RateLimit  *middleware.RateLimiter
	Log        *logger.Logger
}

// New wires a Facade from its already-constructed collaborators.
func New(backend repository.Backend, bus *eventbus.Bus, wf *workflow.Engine, kpiEngine *kpi.Engine,
	forecastSvc *forecast.Service, capacityStore *capacity.Store, reportOrch *reporting.Orchestrator,
	tokenIssuer *tenant.TokenIssuer, rateLimit *middleware.RateLimiter, log *logger.Logger) *Facade {
	if log == nil {
		log = logger.NewDefault("facade")
	}
	if rateLimit == nil {
		rateLimit = middleware.NewRateLimiter(10, time.Minute)
	}
	return &Facade{
		Backend: backend, Bus: bus, Workflow: wf, KPI: kpiEngine, Forecast: forecastSvc,
		Capacity: capacityStore, Reporting: reportOrch, Ingestion: ingestion.NewPipeline(log),
		TokenIssuer: tokenIssuer, RateLimit: rateLimit, Log: log,
	}
}

// writeOp opens a UnitOfWork, runs fn, commits on success and dispatches
// the staged events, or rolls back on error. STALE failures are retried up
// to staleRetries times — the operation itself must be idempotent; callers
// that are not idempotent pass retryOnStale=false, which runs fn once and
// returns a STALE failure unretried.
func (f *Facade) writeOp(ctx context.Context, operation string, retryOnStale bool, fn func(uow *repository.UnitOfWork) error) error {
	start := time.Now()
	var callErr error

	attempt := func() error {
		uow, err := f.Backend.Begin(ctx)
		if err != nil {
			return apperrors.Infra("begin transaction", err)
		}

		err = middleware.Recover(f.Log.WithField("operation", operation), operation, func() error {
			return fn(uow)
		})
		if err != nil {
			_ = uow.Rollback(ctx)
			return err
		}

		events, err := uow.Commit(ctx)
		if err != nil {
			return err
		}
		f.Bus.DispatchOnCommit(ctx, events)
		return nil
	}

	if retryOnStale {
		callErr = retry.Do(
			attempt,
			retry.Attempts(staleRetries+1),
			retry.RetryIf(isStale),
			retry.LastErrorOnly(true),
		)
	} else {
		callErr = attempt()
	}

	result := "ok"
	if callErr != nil {
		result = "error"
	}
	metrics.ObserveFacadeCall(operation, result, time.Since(start).Seconds())
	return callErr
}

func isStale(err error) bool {
	se, ok := apperrors.Of(err)
	return ok && se.Kind == apperrors.KindStale
}

// HealthCheck aggregates process readiness: repository connectivity (via a
// no-op Begin/Rollback) and the event bus's queue saturation.
func (f *Facade) HealthCheck(ctx context.Context) error {
	uow, err := f.Backend.Begin(ctx)
	if err != nil {
		return apperrors.Infra("repository unreachable", err)
	}
	if err := uow.Rollback(ctx); err != nil {
		return apperrors.Infra("repository rollback failed", err)
	}
	if f.Bus != nil && f.Bus.Capacity() > 0 && f.Bus.QueueDepth() >= f.Bus.Capacity() {
		return apperrors.New(apperrors.KindInfra, "event queue saturated")
	}
	return nil
}
