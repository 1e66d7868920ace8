package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"receivables-analytics/internal/core"
	"receivables-analytics/internal/logging"
	"receivables-analytics/internal/refresh"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// RefreshJobID names the periodic fleet refresh.
const RefreshJobID = "refresh_ai_data"

type TenantLister interface {
	ListActiveTenants(ctx context.Context) ([]core.Tenant, error)
}

type TenantRefresher interface {
	RefreshTenant(ctx context.Context, tenantID string) (*refresh.Result, error)
}

// Report is the outcome of one fleet pass.
type Report struct {
	Succeeded []string
	Skipped   []string
	Failed    map[string]error
}

func (r *Report) Err() error {
	if len(r.Failed) == 0 {
		return nil
	}
	return fmt.Errorf("%d of %d tenants failed to refresh", len(r.Failed), len(r.Succeeded)+len(r.Skipped)+len(r.Failed))
}

// Fleet refreshes every active tenant. One tenant's failure never stops the others.
type Fleet struct {
	tenants     TenantLister
	refresher   TenantRefresher
	concurrency int
	logger      logrus.FieldLogger
}

func NewFleet(tenants TenantLister, refresher TenantRefresher, concurrency int, logger logrus.FieldLogger) *Fleet {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Fleet{
		tenants:     tenants,
		refresher:   refresher,
		concurrency: concurrency,
		logger:      logger.WithField("module", "fleet"),
	}
}

// RefreshAll refreshes each active tenant, at most concurrency at a time.
// Tenants already being refreshed elsewhere are skipped. Cancelling ctx stops
// new tenants from starting; the returned error is then ctx.Err().
func (f *Fleet) RefreshAll(ctx context.Context) (*Report, error) {
	tenants, err := f.tenants.ListActiveTenants(ctx)
	if err != nil {
		logging.LogError(f.logger, "fleet", "RefreshAll", "failed to list tenants", nil, err)
		return nil, fmt.Errorf("failed to list tenants: %w", err)
	}

	report := &Report{Failed: make(map[string]error)}
	var mu sync.Mutex

	var g errgroup.Group
	g.SetLimit(f.concurrency)
	for _, t := range tenants {
		if ctx.Err() != nil {
			break
		}
		tenantID := t.GUID
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			_, err := f.refresher.RefreshTenant(ctx, tenantID)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				report.Succeeded = append(report.Succeeded, tenantID)
			case errors.Is(err, refresh.ErrTenantBusy):
				report.Skipped = append(report.Skipped, tenantID)
			default:
				report.Failed[tenantID] = err
				logging.LogError(f.logger, "fleet", "RefreshAll", "tenant refresh failed", tenantID, err)
			}
			return nil
		})
	}
	_ = g.Wait()

	sort.Strings(report.Succeeded)
	sort.Strings(report.Skipped)

	f.logger.WithFields(logrus.Fields{
		"tenants":   len(tenants),
		"succeeded": len(report.Succeeded),
		"skipped":   len(report.Skipped),
		"failed":    len(report.Failed),
	}).Info("fleet refresh complete")

	return report, ctx.Err()
}

// Job wraps RefreshAll as the periodic refresh job.
func (f *Fleet) Job(interval time.Duration) Job {
	return Job{
		ID:         RefreshJobID,
		Interval:   interval,
		RunOnStart: true,
		Run: func(ctx context.Context) error {
			report, err := f.RefreshAll(ctx)
			if err != nil {
				return err
			}
			return report.Err()
		},
	}
}
