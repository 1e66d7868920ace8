package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"receivables-analytics/internal/core"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const summaryColumns = `
	cs.company_guid, cs.period_start, cs.period_end, cs.customer_id, cs.customer_guid, cs.customer_name,
	cs.opening_balance, cs.sales_value, cs.sales_count, cs.receipts_value, cs.receipts_count,
	cs.outstanding_amount, cs.current_balance, cs.average_order_value,
	cs.sales_rank, cs.outstanding_rank, cs.outstanding_formatted, cs.sales_formatted, cs.balance_status`

// scanSummary scans summaryColumns followed by any extra destinations.
func scanSummary(rows pgx.Rows, extra ...any) (core.CustomerSummary, error) {
	var (
		r      core.CustomerSummary
		status string
	)
	dest := []any{&r.TenantID, &r.PeriodStart, &r.PeriodEnd, &r.CustomerID, &r.CustomerGUID, &r.CustomerName,
		&r.OpeningBalance, &r.SalesValue, &r.SalesCount, &r.ReceiptsValue, &r.ReceiptsCount,
		&r.OutstandingAmount, &r.CurrentBalance, &r.AverageOrderValue,
		&r.SalesRank, &r.OutstandingRank, &r.OutstandingFormatted, &r.SalesFormatted, &status}
	if err := rows.Scan(append(dest, extra...)...); err != nil {
		return r, fmt.Errorf("failed to scan customer summary: %w", err)
	}
	r.BalanceStatus = core.BalanceStatus(status)
	return r, nil
}

func querySummaries(ctx context.Context, q querier, where string, args ...any) ([]core.CustomerSummary, error) {
	rows, err := q.Query(ctx, `SELECT `+summaryColumns+` FROM ai.customer_summary cs `+where, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query customer summaries: %w", err)
	}
	defer rows.Close()

	var out []core.CustomerSummary
	for rows.Next() {
		r, err := scanSummary(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ListOutstandingCustomers returns customers that owe money, largest derived
// balance first, with the aging and payment behaviour held on their ledger.
func (s *Store) ListOutstandingCustomers(ctx context.Context, tenantID string) ([]core.OutstandingCustomer, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+summaryColumns+`,
		       COALESCE(l.days_overdue, 0), COALESCE(l.payment_behavior, ''),
		       l.avg_payment_days, l.oldest_unpaid_date
		FROM ai.customer_summary cs
		LEFT JOIN ledgers l ON l.id = cs.customer_id AND l.company_guid = cs.company_guid
		WHERE cs.company_guid = $1 AND cs.outstanding_amount > 0
		ORDER BY cs.outstanding_amount DESC, cs.customer_id
	`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to query outstanding customers: %w", err)
	}
	defer rows.Close()

	out := []core.OutstandingCustomer{}
	for rows.Next() {
		var c core.OutstandingCustomer
		c.CustomerSummary, err = scanSummary(rows, &c.DaysOverdue, &c.PaymentBehavior, &c.AvgPaymentDays, &c.OldestUnpaidDate)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// GetBusinessOverview returns the tenant's overview row or ErrNotFound.
func (s *Store) GetBusinessOverview(ctx context.Context, tenantID string) (*core.BusinessOverview, error) {
	var o core.BusinessOverview
	err := s.pool.QueryRow(ctx, `
		SELECT company_guid, total_receivables, total_advances, total_customers, total_sales, total_receipts,
		       total_sales_formatted, total_receivables_formatted, total_advances_formatted, updated_at
		FROM ai.business_overview
		WHERE company_guid = $1
	`, tenantID).Scan(&o.TenantID, &o.TotalReceivables, &o.TotalAdvances, &o.TotalCustomers, &o.TotalSales, &o.TotalReceipts,
		&o.TotalSalesFormatted, &o.TotalReceivablesFormatted, &o.TotalAdvancesFormatted, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get business overview: %w", err)
	}
	return &o, nil
}

// LatestDashboard returns the newest valid snapshot of the tenant for asOf, or
// ErrNotFound when none exists.
func (s *Store) LatestDashboard(ctx context.Context, tenantID string, asOf time.Time) (*core.DashboardMetrics, error) {
	var (
		m                              core.DashboardMetrics
		total, b030, b3160, b6190, b90 decimal.NullDecimal
	)
	err := s.pool.QueryRow(ctx, `
		SELECT company_guid, data_as_of_date, total_receivable,
		       receivable_0_30, receivable_31_60, receivable_61_90, receivable_90_plus,
		       customer_count, overdue_customer_count, top_overdue_customers, calculated_at
		FROM dashboard_metrics
		WHERE company_guid = $1 AND data_as_of_date = $2 AND is_valid
		ORDER BY calculated_at DESC
		LIMIT 1
	`, tenantID, asOf).Scan(&m.TenantID, &m.AsOfDate, &total,
		&b030, &b3160, &b6190, &b90,
		&m.CustomerCount, &m.OverdueCustomerCount, &m.TopOverdueCustomers, &m.CalculatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get dashboard metrics: %w", err)
	}
	m.TotalReceivable = core.ZeroIfInvalid(total)
	m.Receivable0To30 = core.ZeroIfInvalid(b030)
	m.Receivable31To60 = core.ZeroIfInvalid(b3160)
	m.Receivable61To90 = core.ZeroIfInvalid(b6190)
	m.Receivable90Plus = core.ZeroIfInvalid(b90)
	if m.TopOverdueCustomers == nil {
		m.TopOverdueCustomers = []core.OverdueCustomer{}
	}
	return &m, nil
}

// GetCustomer returns a customer ledger with its aging state, or ErrNotFound.
func (s *Store) GetCustomer(ctx context.Context, tenantID string, ledgerID int64) (*core.CustomerProfile, error) {
	var (
		p                core.CustomerProfile
		opening, balance decimal.NullDecimal
	)
	err := s.pool.QueryRow(ctx, `
		SELECT id, guid, company_guid, COALESCE(name, ''), COALESCE(parent_group, ''),
		       opening_balance, current_balance, active, days_overdue, aging_computed_at,
		       COALESCE(payment_behavior, ''), avg_payment_days, oldest_unpaid_date
		FROM ledgers
		WHERE company_guid = $1 AND id = $2
	`, tenantID, ledgerID).Scan(&p.ID, &p.GUID, &p.TenantID, &p.Name, &p.ParentGroup,
		&opening, &balance, &p.Active, &p.DaysOverdue, &p.AgingComputedAt,
		&p.PaymentBehavior, &p.AvgPaymentDays, &p.OldestUnpaidDate)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get customer: %w", err)
	}
	p.OpeningBalance = core.ZeroIfInvalid(opening)
	p.CurrentBalance = core.ZeroIfInvalid(balance)
	return &p, nil
}

// ListOpenInvoices returns a customer's UNPAID and PARTIAL invoices, oldest first.
func (s *Store) ListOpenInvoices(ctx context.Context, tenantID string, ledgerID int64) ([]core.OpenInvoice, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, voucher_number, date, due_date, total_amount,
		       amount_paid, amount_outstanding, payment_status,
		       COALESCE(aging_bucket, ''), COALESCE(days_since_due, 0)
		FROM vouchers
		WHERE company_guid = $1 AND party_ledger_id = $2
		  AND payment_status IN ('UNPAID', 'PARTIAL')
		ORDER BY COALESCE(due_date, date), id
	`, tenantID, ledgerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query open invoices: %w", err)
	}
	defer rows.Close()

	out := []core.OpenInvoice{}
	for rows.Next() {
		var (
			inv               core.OpenInvoice
			paid, outstanding decimal.NullDecimal
			status            string
		)
		if err := rows.Scan(&inv.VoucherID, &inv.VoucherNumber, &inv.InvoiceDate, &inv.DueDate, &inv.TotalAmount,
			&paid, &outstanding, &status, &inv.AgingBucket, &inv.DaysSinceDue); err != nil {
			return nil, fmt.Errorf("failed to scan open invoice: %w", err)
		}
		inv.AmountPaid = core.ZeroIfInvalid(paid)
		inv.AmountOutstanding = core.ZeroIfInvalid(outstanding)
		inv.PaymentStatus = core.PaymentStatus(status)
		out = append(out, inv)
	}
	return out, rows.Err()
}
