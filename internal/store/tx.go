package store

import (
	"context"
	"fmt"
	"time"

	"receivables-analytics/internal/core"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// VoucherPeriod returns the earliest and latest voucher dates of the tenant,
// cancelled vouchers included. Both are nil when the tenant has no vouchers.
func (t *Tx) VoucherPeriod(ctx context.Context) (minDate, maxDate *time.Time, err error) {
	err = t.q.QueryRow(ctx, `
		SELECT MIN(date), MAX(date)
		FROM vouchers
		WHERE company_guid = $1
	`, t.tenantID).Scan(&minDate, &maxDate)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query voucher period: %w", err)
	}
	return minDate, maxDate, nil
}

// ListLedgerAccounts returns every ledger account of the tenant ordered by id.
// Null balances read as zero.
func (t *Tx) ListLedgerAccounts(ctx context.Context) ([]core.LedgerAccount, error) {
	rows, err := t.q.Query(ctx, `
		SELECT id, guid, company_guid, COALESCE(name, ''), COALESCE(parent_group, ''),
		       opening_balance, current_balance, active
		FROM ledgers
		WHERE company_guid = $1
		ORDER BY id
	`, t.tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to query ledgers: %w", err)
	}
	defer rows.Close()

	var out []core.LedgerAccount
	for rows.Next() {
		var (
			a                core.LedgerAccount
			opening, balance decimal.NullDecimal
		)
		if err := rows.Scan(&a.ID, &a.GUID, &a.TenantID, &a.Name, &a.ParentGroup,
			&opening, &balance, &a.Active); err != nil {
			return nil, fmt.Errorf("failed to scan ledger: %w", err)
		}
		a.OpeningBalance = core.ZeroIfInvalid(opening)
		a.CurrentBalance = core.ZeroIfInvalid(balance)
		out = append(out, a)
	}
	return out, rows.Err()
}

// ListVouchers returns every voucher of the tenant ordered by id, with the raw
// voucher type classified. A missing type classifies as Other.
func (t *Tx) ListVouchers(ctx context.Context) ([]core.Voucher, error) {
	rows, err := t.q.Query(ctx, `
		SELECT id, company_guid, party_ledger_id, COALESCE(voucher_number, ''), COALESCE(voucher_type, ''),
		       total_amount, date, due_date, is_cancelled
		FROM vouchers
		WHERE company_guid = $1
		ORDER BY id
	`, t.tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to query vouchers: %w", err)
	}
	defer rows.Close()

	var out []core.Voucher
	for rows.Next() {
		var v core.Voucher
		if err := rows.Scan(&v.ID, &v.TenantID, &v.PartyLedgerID, &v.VoucherNumber, &v.VoucherType,
			&v.TotalAmount, &v.Date, &v.DueDate, &v.Cancelled); err != nil {
			return nil, fmt.Errorf("failed to scan voucher: %w", err)
		}
		v.Class = core.ClassifyVoucherType(v.VoucherType)
		out = append(out, v)
	}
	return out, rows.Err()
}

// ListAllocations returns the payment allocations against the tenant's invoices,
// active or not.
func (t *Tx) ListAllocations(ctx context.Context) ([]core.PaymentAllocation, error) {
	rows, err := t.q.Query(ctx, `
		SELECT pr.id, pr.receipt_voucher_id, pr.invoice_voucher_id, pr.allocated_amount, pr.is_active
		FROM payment_references pr
		JOIN vouchers v ON v.id = pr.invoice_voucher_id
		WHERE v.company_guid = $1
		ORDER BY pr.id
	`, t.tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to query payment allocations: %w", err)
	}
	defer rows.Close()

	var out []core.PaymentAllocation
	for rows.Next() {
		var a core.PaymentAllocation
		if err := rows.Scan(&a.ID, &a.ReceiptVoucherID, &a.InvoiceVoucherID, &a.AllocatedAmount, &a.Active); err != nil {
			return nil, fmt.Errorf("failed to scan payment allocation: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// LoadCustomerSummaries returns the tenant's current customer_summary rows.
func (t *Tx) LoadCustomerSummaries(ctx context.Context) ([]core.CustomerSummary, error) {
	return querySummaries(ctx, t.q, `WHERE company_guid = $1 ORDER BY customer_id`, t.tenantID)
}

// ReplaceCustomerSummaries deletes the tenant's existing rows and inserts rows.
func (t *Tx) ReplaceCustomerSummaries(ctx context.Context, rows []core.CustomerSummary) error {
	if _, err := t.q.Exec(ctx, `DELETE FROM ai.customer_summary WHERE company_guid = $1`, t.tenantID); err != nil {
		return fmt.Errorf("failed to clear customer summaries: %w", err)
	}
	if len(rows) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, r := range rows {
		batch.Queue(`
			INSERT INTO ai.customer_summary (
				company_guid, period_start, period_end, customer_id, customer_guid, customer_name,
				opening_balance, sales_value, sales_count, receipts_value, receipts_count,
				outstanding_amount, current_balance, average_order_value,
				sales_rank, outstanding_rank, outstanding_formatted, sales_formatted, balance_status
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
		`, t.tenantID, r.PeriodStart, r.PeriodEnd, r.CustomerID, r.CustomerGUID, r.CustomerName,
			r.OpeningBalance, r.SalesValue, r.SalesCount, r.ReceiptsValue, r.ReceiptsCount,
			r.OutstandingAmount, r.CurrentBalance, r.AverageOrderValue,
			r.SalesRank, r.OutstandingRank, r.OutstandingFormatted, r.SalesFormatted, string(r.BalanceStatus))
	}
	if err := t.sendBatch(ctx, batch); err != nil {
		return fmt.Errorf("failed to insert customer summaries: %w", err)
	}
	return nil
}

// UpsertBusinessOverview writes the tenant's overview row.
func (t *Tx) UpsertBusinessOverview(ctx context.Context, o core.BusinessOverview) error {
	_, err := t.q.Exec(ctx, `
		INSERT INTO ai.business_overview (
			company_guid, total_receivables, total_advances, total_customers, total_sales, total_receipts,
			total_sales_formatted, total_receivables_formatted, total_advances_formatted, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (company_guid) DO UPDATE SET
			total_receivables = EXCLUDED.total_receivables,
			total_advances = EXCLUDED.total_advances,
			total_customers = EXCLUDED.total_customers,
			total_sales = EXCLUDED.total_sales,
			total_receipts = EXCLUDED.total_receipts,
			total_sales_formatted = EXCLUDED.total_sales_formatted,
			total_receivables_formatted = EXCLUDED.total_receivables_formatted,
			total_advances_formatted = EXCLUDED.total_advances_formatted,
			updated_at = EXCLUDED.updated_at
	`, t.tenantID, o.TotalReceivables, o.TotalAdvances, o.TotalCustomers, o.TotalSales, o.TotalReceipts,
		o.TotalSalesFormatted, o.TotalReceivablesFormatted, o.TotalAdvancesFormatted, o.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert business overview: %w", err)
	}
	return nil
}

// UpdateDashboardFromOverview copies receivables and customer count from the
// overview into the tenant's snapshot for asOf, when that snapshot exists.
// It reports whether a row was updated.
func (t *Tx) UpdateDashboardFromOverview(ctx context.Context, o core.BusinessOverview, asOf time.Time) (bool, error) {
	tag, err := t.q.Exec(ctx, `
		UPDATE dashboard_metrics
		SET total_receivable = $2, customer_count = $3, calculated_at = $4
		WHERE company_guid = $1 AND data_as_of_date = $5
	`, t.tenantID, o.TotalReceivables, o.TotalCustomers, o.UpdatedAt, asOf)
	if err != nil {
		return false, fmt.Errorf("failed to update dashboard metrics: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// SanitizeDashboardMetrics replaces NaN or null amounts in the tenant's
// snapshots with zero.
func (t *Tx) SanitizeDashboardMetrics(ctx context.Context) error {
	_, err := t.q.Exec(ctx, `
		UPDATE dashboard_metrics SET
			total_receivable   = CASE WHEN total_receivable   IS NULL OR total_receivable   = 'NaN'::numeric THEN 0 ELSE total_receivable END,
			receivable_0_30    = CASE WHEN receivable_0_30    IS NULL OR receivable_0_30    = 'NaN'::numeric THEN 0 ELSE receivable_0_30 END,
			receivable_31_60   = CASE WHEN receivable_31_60   IS NULL OR receivable_31_60   = 'NaN'::numeric THEN 0 ELSE receivable_31_60 END,
			receivable_61_90   = CASE WHEN receivable_61_90   IS NULL OR receivable_61_90   = 'NaN'::numeric THEN 0 ELSE receivable_61_90 END,
			receivable_90_plus = CASE WHEN receivable_90_plus IS NULL OR receivable_90_plus = 'NaN'::numeric THEN 0 ELSE receivable_90_plus END
		WHERE company_guid = $1
		  AND (total_receivable IS NULL OR total_receivable = 'NaN'::numeric
		    OR receivable_0_30 IS NULL OR receivable_0_30 = 'NaN'::numeric
		    OR receivable_31_60 IS NULL OR receivable_31_60 = 'NaN'::numeric
		    OR receivable_61_90 IS NULL OR receivable_61_90 = 'NaN'::numeric
		    OR receivable_90_plus IS NULL OR receivable_90_plus = 'NaN'::numeric)
	`, t.tenantID)
	if err != nil {
		return fmt.Errorf("failed to sanitize dashboard metrics: %w", err)
	}
	return nil
}

// ApplyVoucherAging writes the derived payment and aging fields onto invoices.
func (t *Tx) ApplyVoucherAging(ctx context.Context, updates []core.VoucherAgingUpdate, computedAt time.Time) error {
	if len(updates) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, u := range updates {
		batch.Queue(`
			UPDATE vouchers SET
				amount_paid = $2, amount_outstanding = $3, payment_status = $4,
				aging_bucket = $5, days_since_due = $6, payment_computed_at = $7
			WHERE id = $1 AND company_guid = $8
		`, u.VoucherID, u.AmountPaid, u.AmountOutstanding, string(u.PaymentStatus),
			u.AgingBucket, u.DaysSinceDue, computedAt, t.tenantID)
	}
	if err := t.sendBatch(ctx, batch); err != nil {
		return fmt.Errorf("failed to apply voucher aging: %w", err)
	}
	return nil
}

// ApplyLedgerAging writes days_overdue onto customer ledgers.
func (t *Tx) ApplyLedgerAging(ctx context.Context, updates []core.LedgerAgingUpdate, computedAt time.Time) error {
	if len(updates) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, u := range updates {
		batch.Queue(`
			UPDATE ledgers SET days_overdue = $2, aging_computed_at = $3
			WHERE id = $1 AND company_guid = $4
		`, u.LedgerID, u.DaysOverdue, computedAt, t.tenantID)
	}
	if err := t.sendBatch(ctx, batch); err != nil {
		return fmt.Errorf("failed to apply ledger aging: %w", err)
	}
	return nil
}

// UpsertDashboardSnapshot writes the (tenant, date) snapshot, replacing any
// earlier snapshot for the same date.
func (t *Tx) UpsertDashboardSnapshot(ctx context.Context, m core.DashboardMetrics) error {
	top := m.TopOverdueCustomers
	if top == nil {
		top = []core.OverdueCustomer{}
	}
	_, err := t.q.Exec(ctx, `
		INSERT INTO dashboard_metrics (
			company_guid, data_as_of_date, total_receivable,
			receivable_0_30, receivable_31_60, receivable_61_90, receivable_90_plus,
			customer_count, overdue_customer_count, top_overdue_customers, is_valid, calculated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, TRUE, $11)
		ON CONFLICT (company_guid, data_as_of_date) DO UPDATE SET
			total_receivable = EXCLUDED.total_receivable,
			receivable_0_30 = EXCLUDED.receivable_0_30,
			receivable_31_60 = EXCLUDED.receivable_31_60,
			receivable_61_90 = EXCLUDED.receivable_61_90,
			receivable_90_plus = EXCLUDED.receivable_90_plus,
			customer_count = EXCLUDED.customer_count,
			overdue_customer_count = EXCLUDED.overdue_customer_count,
			top_overdue_customers = EXCLUDED.top_overdue_customers,
			is_valid = TRUE,
			calculated_at = EXCLUDED.calculated_at
	`, t.tenantID, m.AsOfDate, m.TotalReceivable,
		m.Receivable0To30, m.Receivable31To60, m.Receivable61To90, m.Receivable90Plus,
		m.CustomerCount, m.OverdueCustomerCount, top, m.CalculatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert dashboard snapshot: %w", err)
	}
	return nil
}

func (t *Tx) sendBatch(ctx context.Context, batch *pgx.Batch) error {
	br := t.q.SendBatch(ctx, batch)
	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return err
		}
	}
	return br.Close()
}
