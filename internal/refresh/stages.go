package refresh

import (
	"context"
	"time"

	"receivables-analytics/internal/core"
)

// stage is one step of a refresh pipeline. Stages of a pipeline run in order
// inside one transaction and share the cycle.
type stage struct {
	Name string
	Run  func(ctx context.Context, c *cycle) error
}

const (
	StageCustomerSummary   = "customer_summary"
	StageBusinessOverview  = "business_overview"
	StageDashboardMetrics  = "dashboard_metrics"
	StageVoucherAging      = "voucher_aging"
	StageLedgerAging       = "ledger_aging"
	StageDashboardSnapshot = "dashboard_snapshot"
)

var summaryStages = []stage{
	{Name: StageCustomerSummary, Run: customerSummaryStage},
	{Name: StageBusinessOverview, Run: businessOverviewStage},
	{Name: StageDashboardMetrics, Run: dashboardMetricsStage},
}

var agingStages = []stage{
	{Name: StageVoucherAging, Run: voucherAgingStage},
	{Name: StageLedgerAging, Run: ledgerAgingStage},
	{Name: StageDashboardSnapshot, Run: dashboardSnapshotStage},
}

type cycle struct {
	tx       TenantTx
	tenantID string
	now      time.Time
	today    time.Time
	format   core.Formatter
	result   *Result

	accounts []core.LedgerAccount
	vouchers []core.Voucher
	loaded   bool
	overview core.BusinessOverview
	aging    []core.VoucherAgingUpdate
}

func (c *cycle) load(ctx context.Context) error {
	if c.loaded {
		return nil
	}
	accounts, err := c.tx.ListLedgerAccounts(ctx)
	if err != nil {
		return err
	}
	vouchers, err := c.tx.ListVouchers(ctx)
	if err != nil {
		return err
	}
	c.accounts, c.vouchers, c.loaded = accounts, vouchers, true
	return nil
}

func customerSummaryStage(ctx context.Context, c *cycle) error {
	minDate, maxDate, err := c.tx.VoucherPeriod(ctx)
	if err != nil {
		return err
	}
	if err := c.load(ctx); err != nil {
		return err
	}
	period := core.ObservationPeriod(minDate, maxDate, c.today)
	rows := core.ComputeCustomerSummary(c.tenantID, c.accounts, c.vouchers, period, c.format)
	c.result.Customers = len(rows)
	return c.tx.ReplaceCustomerSummaries(ctx, rows)
}

// The overview reads back the rows written by the previous stage.
func businessOverviewStage(ctx context.Context, c *cycle) error {
	rows, err := c.tx.LoadCustomerSummaries(ctx)
	if err != nil {
		return err
	}
	c.overview = core.ComputeBusinessOverview(c.tenantID, rows, c.format)
	c.overview.UpdatedAt = c.now
	return c.tx.UpsertBusinessOverview(ctx, c.overview)
}

func dashboardMetricsStage(ctx context.Context, c *cycle) error {
	if _, err := c.tx.UpdateDashboardFromOverview(ctx, c.overview, c.today); err != nil {
		return err
	}
	return c.tx.SanitizeDashboardMetrics(ctx)
}

func voucherAgingStage(ctx context.Context, c *cycle) error {
	if err := c.load(ctx); err != nil {
		return err
	}
	allocations, err := c.tx.ListAllocations(ctx)
	if err != nil {
		return err
	}
	c.aging = core.ComputeInvoiceAging(c.vouchers, allocations, c.today)
	c.result.Invoices = len(c.aging)
	return c.tx.ApplyVoucherAging(ctx, c.aging, c.now)
}

func ledgerAgingStage(ctx context.Context, c *cycle) error {
	if err := c.load(ctx); err != nil {
		return err
	}
	return c.tx.ApplyLedgerAging(ctx, core.ComputeLedgerAging(c.accounts, c.aging, c.today), c.now)
}

func dashboardSnapshotStage(ctx context.Context, c *cycle) error {
	if err := c.load(ctx); err != nil {
		return err
	}
	m := core.ComputeDashboardSnapshot(c.tenantID, c.accounts, c.vouchers, c.aging, c.today)
	m.CalculatedAt = c.now
	return c.tx.UpsertDashboardSnapshot(ctx, m)
}
