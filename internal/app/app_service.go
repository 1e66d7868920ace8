package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"receivables-analytics/internal/ai"
	"receivables-analytics/internal/core"
	"receivables-analytics/internal/logging"
	"receivables-analytics/internal/refresh"
	"receivables-analytics/internal/store"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// ProjectionReader serves the derived tables.
type ProjectionReader interface {
	LatestDashboard(ctx context.Context, tenantID string, asOf time.Time) (*core.DashboardMetrics, error)
	GetBusinessOverview(ctx context.Context, tenantID string) (*core.BusinessOverview, error)
	GetCustomer(ctx context.Context, tenantID string, ledgerID int64) (*core.CustomerProfile, error)
	ListOpenInvoices(ctx context.Context, tenantID string, ledgerID int64) ([]core.OpenInvoice, error)
	ListOutstandingCustomers(ctx context.Context, tenantID string) ([]core.OutstandingCustomer, error)
}

type Refresher interface {
	RefreshTenant(ctx context.Context, tenantID string) (*refresh.Result, error)
}

const (
	fallbackHeadline = "Insights are temporarily unavailable."
	fallbackSummary  = "The figures shown are current as of the last refresh."
)

type appService struct {
	reader         ProjectionReader
	refresher      Refresher
	insights       ai.InsightGenerator
	format         core.Formatter
	insightTimeout time.Duration
	logger         logrus.FieldLogger
	now            func() time.Time
}

// NewAppService constructs an appService that satisfies ApplicationService.
// insights may be nil, in which case GetInsights always returns the fallback text.
func NewAppService(
	reader ProjectionReader,
	refresher Refresher,
	insights ai.InsightGenerator,
	f core.Formatter,
	insightTimeout time.Duration,
	logger logrus.FieldLogger,
) ApplicationService {
	if insightTimeout <= 0 {
		insightTimeout = 8 * time.Second
	}
	return &appService{
		reader:         reader,
		refresher:      refresher,
		insights:       insights,
		format:         f,
		insightTimeout: insightTimeout,
		logger:         logger.WithField("module", "app"),
		now:            time.Now,
	}
}

func mapNotFound(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

func (s *appService) bucketAmounts(amounts map[string]decimal.Decimal) []BucketAmount {
	out := make([]BucketAmount, 0, len(core.AgingBuckets))
	for _, b := range core.AgingBuckets {
		amt := amounts[b]
		out = append(out, BucketAmount{Bucket: b, Amount: amt, Formatted: s.format.Amount(amt)})
	}
	return out
}

// GetDashboard returns today's snapshot. A missing snapshot is ErrNotFound,
// never a zero-filled one.
func (s *appService) GetDashboard(ctx context.Context, tenantID string) (*DashboardResult, error) {
	m, err := s.reader.LatestDashboard(ctx, tenantID, core.DateOf(s.now()))
	if err != nil {
		return nil, mapNotFound(err)
	}
	return &DashboardResult{
		Metrics:                  m,
		TotalReceivableFormatted: s.format.Amount(m.TotalReceivable),
		Buckets: s.bucketAmounts(map[string]decimal.Decimal{
			core.Bucket0To30:  m.Receivable0To30,
			core.Bucket31To60: m.Receivable31To60,
			core.Bucket61To90: m.Receivable61To90,
			core.Bucket90Plus: m.Receivable90Plus,
		}),
	}, nil
}

func (s *appService) GetBusinessOverview(ctx context.Context, tenantID string) (*OverviewResult, error) {
	o, err := s.reader.GetBusinessOverview(ctx, tenantID)
	if err != nil {
		return nil, mapNotFound(err)
	}
	return &OverviewResult{Overview: o}, nil
}

func (s *appService) GetCustomerAging(ctx context.Context, tenantID string, ledgerID int64) (*CustomerAgingResult, error) {
	customer, err := s.reader.GetCustomer(ctx, tenantID, ledgerID)
	if err != nil {
		return nil, mapNotFound(err)
	}
	invoices, err := s.reader.ListOpenInvoices(ctx, tenantID, ledgerID)
	if err != nil {
		return nil, err
	}

	total := decimal.Zero
	byBucket := make(map[string]decimal.Decimal, len(core.AgingBuckets))
	for _, inv := range invoices {
		total = total.Add(inv.AmountOutstanding)
		byBucket[inv.AgingBucket] = byBucket[inv.AgingBucket].Add(inv.AmountOutstanding)
	}

	return &CustomerAgingResult{
		Customer:             customer,
		Outstanding:          total,
		OutstandingFormatted: s.format.Amount(total),
		RiskLevel:            core.RiskLevelFor(customer.DaysOverdue, total),
		Buckets:              s.bucketAmounts(byBucket),
		Invoices:             invoices,
	}, nil
}

func (s *appService) ListOutstandingCustomers(ctx context.Context, tenantID string) (*OutstandingCustomersResult, error) {
	rows, err := s.reader.ListOutstandingCustomers(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []core.OutstandingCustomer{}
	}
	total := decimal.Zero
	for _, r := range rows {
		total = total.Add(r.OutstandingAmount)
	}
	return &OutstandingCustomersResult{
		Customers:      rows,
		Total:          total,
		TotalFormatted: s.format.Amount(total),
	}, nil
}

func (s *appService) RefreshTenant(ctx context.Context, tenantID string) (*RefreshResult, error) {
	res, err := s.refresher.RefreshTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return &RefreshResult{
		Success:     true,
		Message:     fmt.Sprintf("refreshed %d customers and %d invoices", res.Customers, res.Invoices),
		RefreshedAt: res.RefreshedAt,
	}, nil
}

func (s *appService) GetInsights(ctx context.Context, req InsightRequest) (*InsightResult, error) {
	if req.CustomerID != nil {
		return s.customerInsight(ctx, req.TenantID, *req.CustomerID)
	}
	return s.cashflowInsight(ctx, req.TenantID)
}

func (s *appService) cashflowInsight(ctx context.Context, tenantID string) (*InsightResult, error) {
	dash, err := s.GetDashboard(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	m := dash.Metrics

	facts := ai.CashflowFacts{
		TotalReceivable:      dash.TotalReceivableFormatted,
		TotalAdvances:        s.format.Amount(decimal.Zero),
		Receivable0To30:      dash.Buckets[0].Formatted,
		Receivable31To60:     dash.Buckets[1].Formatted,
		Receivable61To90:     dash.Buckets[2].Formatted,
		Receivable90Plus:     dash.Buckets[3].Formatted,
		CustomerCount:        m.CustomerCount,
		OverdueCustomerCount: m.OverdueCustomerCount,
		TopOverdueCustomers:  make([]string, 0, len(m.TopOverdueCustomers)),
	}
	for _, c := range m.TopOverdueCustomers {
		facts.TopOverdueCustomers = append(facts.TopOverdueCustomers,
			fmt.Sprintf("%s (%s, %d days)", c.Name, s.format.Amount(c.OverdueAmount), c.DaysOverdue))
	}
	if o, err := s.reader.GetBusinessOverview(ctx, tenantID); err == nil {
		facts.TotalAdvances = o.TotalAdvancesFormatted
	}

	return s.generate(ctx, tenantID, func(ctx context.Context) (*ai.Insight, error) {
		return s.insights.CashflowInsight(ctx, facts)
	}), nil
}

func (s *appService) customerInsight(ctx context.Context, tenantID string, ledgerID int64) (*InsightResult, error) {
	aging, err := s.GetCustomerAging(ctx, tenantID, ledgerID)
	if err != nil {
		return nil, err
	}

	oldest := ""
	for _, b := range aging.Buckets {
		if b.Amount.IsPositive() {
			oldest = b.Bucket
		}
	}
	facts := ai.CustomerFacts{
		CustomerName:     aging.Customer.Name,
		Outstanding:      aging.OutstandingFormatted,
		DaysOverdue:      aging.Customer.DaysOverdue,
		OpenInvoiceCount: len(aging.Invoices),
		OldestBucket:     oldest,
		RiskLevel:        string(aging.RiskLevel),
	}

	return s.generate(ctx, tenantID, func(ctx context.Context) (*ai.Insight, error) {
		return s.insights.CustomerInsight(ctx, facts)
	}), nil
}

// generate calls the insight generator within the insight timeout and falls
// back to static text on any failure.
func (s *appService) generate(ctx context.Context, tenantID string, call func(context.Context) (*ai.Insight, error)) *InsightResult {
	fallback := &InsightResult{
		Headline:        fallbackHeadline,
		Summary:         fallbackSummary,
		Recommendations: []string{},
	}
	if s.insights == nil {
		return fallback
	}

	ctx, cancel := context.WithTimeout(ctx, s.insightTimeout)
	defer cancel()

	insight, err := call(ctx)
	if err != nil {
		logging.LogError(s.logger, "app", "GetInsights", "insight generation failed, using fallback", tenantID, err)
		return fallback
	}
	return &InsightResult{
		Headline:        insight.Headline,
		Summary:         insight.Summary,
		Recommendations: insight.Recommendations,
		Generated:       true,
	}
}
