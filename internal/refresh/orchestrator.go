package refresh

import (
	"context"
	"errors"
	"fmt"
	"time"

	"receivables-analytics/internal/core"
	"receivables-analytics/internal/store"

	"github.com/sirupsen/logrus"
)

// TenantTx is the transactional view of one tenant's ledger and projection data.
type TenantTx interface {
	VoucherPeriod(ctx context.Context) (minDate, maxDate *time.Time, err error)
	ListLedgerAccounts(ctx context.Context) ([]core.LedgerAccount, error)
	ListVouchers(ctx context.Context) ([]core.Voucher, error)
	ListAllocations(ctx context.Context) ([]core.PaymentAllocation, error)
	LoadCustomerSummaries(ctx context.Context) ([]core.CustomerSummary, error)

	ReplaceCustomerSummaries(ctx context.Context, rows []core.CustomerSummary) error
	UpsertBusinessOverview(ctx context.Context, o core.BusinessOverview) error
	UpdateDashboardFromOverview(ctx context.Context, o core.BusinessOverview, asOf time.Time) (bool, error)
	SanitizeDashboardMetrics(ctx context.Context) error
	ApplyVoucherAging(ctx context.Context, updates []core.VoucherAgingUpdate, computedAt time.Time) error
	ApplyLedgerAging(ctx context.Context, updates []core.LedgerAgingUpdate, computedAt time.Time) error
	UpsertDashboardSnapshot(ctx context.Context, m core.DashboardMetrics) error
}

// Store runs fn in one transaction for tenantID; fn's error rolls back.
type Store interface {
	WithTenantTx(ctx context.Context, tenantID string, fn func(TenantTx) error) error
}

type pgStore struct {
	s *store.Store
}

// FromStore adapts the PostgreSQL store to the orchestrator.
func FromStore(s *store.Store) Store {
	return pgStore{s: s}
}

func (p pgStore) WithTenantTx(ctx context.Context, tenantID string, fn func(TenantTx) error) error {
	return p.s.WithTenantTx(ctx, tenantID, func(tx *store.Tx) error { return fn(tx) })
}

// StageError identifies the tenant and pipeline stage that failed.
type StageError struct {
	Tenant string
	Stage  string
	Err    error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("refresh %s: stage %s: %v", e.Tenant, e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Result summarizes one successful tenant refresh.
type Result struct {
	TenantID    string    `json:"company_guid"`
	Customers   int       `json:"customers"`
	Invoices    int       `json:"invoices"`
	RefreshedAt time.Time `json:"refreshed_at"`
}

// Orchestrator recomputes a tenant's derived tables.
type Orchestrator struct {
	store  Store
	locker TenantLocker
	format core.Formatter
	logger logrus.FieldLogger

	// Now is the clock; tests replace it.
	Now func() time.Time
}

func New(s Store, locker TenantLocker, f core.Formatter, logger logrus.FieldLogger) *Orchestrator {
	if locker == nil {
		locker = NewLocalLocker()
	}
	return &Orchestrator{
		store:  s,
		locker: locker,
		format: f,
		logger: logger.WithField("module", "refresh"),
		Now:    time.Now,
	}
}

// RefreshTenant runs the summary pipeline and then the aging pipeline.
// It returns ErrTenantBusy when the tenant is already being refreshed.
func (o *Orchestrator) RefreshTenant(ctx context.Context, tenantID string) (*Result, error) {
	unlock, err := o.locker.Lock(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	res := &Result{TenantID: tenantID}
	if err := o.run(ctx, tenantID, "summaries", summaryStages, res); err != nil {
		return nil, err
	}
	if err := o.run(ctx, tenantID, "invoice_aging", agingStages, res); err != nil {
		return nil, err
	}
	res.RefreshedAt = o.Now()
	return res, nil
}

// RefreshSummaries rebuilds customer_summary, business_overview and the
// dashboard headline figures in one transaction.
func (o *Orchestrator) RefreshSummaries(ctx context.Context, tenantID string) (*Result, error) {
	return o.runLocked(ctx, tenantID, "summaries", summaryStages)
}

// RefreshInvoiceAging recomputes invoice and ledger aging and today's snapshot
// in one transaction.
func (o *Orchestrator) RefreshInvoiceAging(ctx context.Context, tenantID string) (*Result, error) {
	return o.runLocked(ctx, tenantID, "invoice_aging", agingStages)
}

func (o *Orchestrator) runLocked(ctx context.Context, tenantID, pipeline string, stages []stage) (*Result, error) {
	unlock, err := o.locker.Lock(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	res := &Result{TenantID: tenantID}
	if err := o.run(ctx, tenantID, pipeline, stages, res); err != nil {
		return nil, err
	}
	res.RefreshedAt = o.Now()
	return res, nil
}

func (o *Orchestrator) run(ctx context.Context, tenantID, pipeline string, stages []stage, res *Result) error {
	logger := o.logger.WithFields(logrus.Fields{"tenant": tenantID, "pipeline": pipeline})
	started := o.Now()

	err := o.store.WithTenantTx(ctx, tenantID, func(tx TenantTx) error {
		c := &cycle{
			tx:       tx,
			tenantID: tenantID,
			now:      started,
			today:    core.DateOf(started),
			format:   o.format,
			result:   res,
		}
		for _, st := range stages {
			if err := ctx.Err(); err != nil {
				return &StageError{Tenant: tenantID, Stage: st.Name, Err: err}
			}
			if err := st.Run(ctx, c); err != nil {
				return &StageError{Tenant: tenantID, Stage: st.Name, Err: err}
			}
			logger.WithField("stage", st.Name).Debug("stage complete")
		}
		return nil
	})
	if err != nil {
		var se *StageError
		if !errors.As(err, &se) {
			se = &StageError{Tenant: tenantID, Stage: "transaction", Err: err}
		}
		logger.WithField("stage", se.Stage).WithError(se.Err).Error("refresh failed")
		return se
	}

	logger.WithField("duration_ms", o.Now().Sub(started).Milliseconds()).Info("refresh complete")
	return nil
}
