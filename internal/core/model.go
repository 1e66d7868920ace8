package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// SundryDebtors is the parent group that marks a ledger account as receivable-bearing.
const SundryDebtors = "Sundry Debtors"

type Tenant struct {
	GUID   string `json:"company_guid"`
	Name   string `json:"name"`
	Active bool   `json:"active"`
}

// LedgerAccount is a counterparty account as held by the ledger store.
// CurrentBalance is the store's running balance; it is carried for display only
// and never used to derive outstanding amounts.
type LedgerAccount struct {
	ID             int64           `json:"id"`
	GUID           string          `json:"guid"`
	TenantID       string          `json:"company_guid"`
	Name           string          `json:"name"`
	ParentGroup    string          `json:"parent_group"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
	CurrentBalance decimal.Decimal `json:"current_balance"`
	Active         bool            `json:"active"`
}

type Voucher struct {
	ID            int64           `json:"id"`
	TenantID      string          `json:"company_guid"`
	PartyLedgerID *int64          `json:"party_ledger_id,omitempty"`
	VoucherNumber string          `json:"voucher_number"`
	VoucherType   string          `json:"voucher_type"`
	Class         VoucherClass    `json:"class"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	Date          time.Time       `json:"date"`
	DueDate       *time.Time      `json:"due_date,omitempty"`
	Cancelled     bool            `json:"is_cancelled"`
}

// PartyID returns the party ledger id and whether the voucher has one.
func (v Voucher) PartyID() (int64, bool) {
	if v.PartyLedgerID == nil {
		return 0, false
	}
	return *v.PartyLedgerID, true
}

// PaymentAllocation links a receipt to an invoice it settles.
type PaymentAllocation struct {
	ID               int64           `json:"id"`
	ReceiptVoucherID int64           `json:"receipt_voucher_id"`
	InvoiceVoucherID int64           `json:"invoice_voucher_id"`
	AllocatedAmount  decimal.Decimal `json:"allocated_amount"`
	Active           bool            `json:"is_active"`
}

type BalanceStatus string

const (
	OwesMoney  BalanceStatus = "OWES_MONEY"
	HasAdvance BalanceStatus = "HAS_ADVANCE"
	Settled    BalanceStatus = "SETTLED"
)

// BalanceStatusFor classifies a signed outstanding amount.
func BalanceStatusFor(outstanding decimal.Decimal) BalanceStatus {
	switch outstanding.Sign() {
	case 1:
		return OwesMoney
	case -1:
		return HasAdvance
	default:
		return Settled
	}
}

type PaymentStatus string

const (
	PaymentCancelled PaymentStatus = "CANCELLED"
	PaymentPaid      PaymentStatus = "PAID"
	PaymentPartial   PaymentStatus = "PARTIAL"
	PaymentUnpaid    PaymentStatus = "UNPAID"
)

// IsOpen reports whether an invoice in this status still carries a receivable.
func (s PaymentStatus) IsOpen() bool {
	return s == PaymentUnpaid || s == PaymentPartial
}

// Period is the inclusive observation window of a refresh cycle.
type Period struct {
	Start time.Time `json:"period_start"`
	End   time.Time `json:"period_end"`
}

// CustomerSummary is one derived row per (tenant, customer) per refresh cycle.
type CustomerSummary struct {
	TenantID             string          `json:"company_guid"`
	PeriodStart          time.Time       `json:"period_start"`
	PeriodEnd            time.Time       `json:"period_end"`
	CustomerID           int64           `json:"customer_id"`
	CustomerGUID         string          `json:"customer_guid"`
	CustomerName         string          `json:"customer_name"`
	OpeningBalance       decimal.Decimal `json:"opening_balance"`
	SalesValue           decimal.Decimal `json:"sales_value"`
	SalesCount           int             `json:"sales_count"`
	ReceiptsValue        decimal.Decimal `json:"receipts_value"`
	ReceiptsCount        int             `json:"receipts_count"`
	OutstandingAmount    decimal.Decimal `json:"outstanding_amount"`
	CurrentBalance       decimal.Decimal `json:"current_balance"`
	AverageOrderValue    decimal.Decimal `json:"average_order_value"`
	SalesRank            int             `json:"sales_rank"`
	OutstandingRank      int             `json:"outstanding_rank"`
	OutstandingFormatted string          `json:"outstanding_formatted"`
	SalesFormatted       string          `json:"sales_formatted"`
	BalanceStatus        BalanceStatus   `json:"balance_status"`
}

// BusinessOverview is the per-tenant rollup of customer summaries.
// Receivables and advances are kept apart and are both non-negative.
type BusinessOverview struct {
	TenantID                  string          `json:"company_guid"`
	TotalReceivables          decimal.Decimal `json:"total_receivables"`
	TotalAdvances             decimal.Decimal `json:"total_advances"`
	TotalCustomers            int             `json:"total_customers"`
	TotalSales                decimal.Decimal `json:"total_sales"`
	TotalReceipts             decimal.Decimal `json:"total_receipts"`
	TotalSalesFormatted       string          `json:"total_sales_formatted"`
	TotalReceivablesFormatted string          `json:"total_receivables_formatted"`
	TotalAdvancesFormatted    string          `json:"total_advances_formatted"`
	UpdatedAt                 time.Time       `json:"updated_at"`
}

// OverdueCustomer is one entry of a snapshot's top overdue list.
type OverdueCustomer struct {
	LedgerID      int64           `json:"ledger_id"`
	Name          string          `json:"name"`
	OverdueAmount decimal.Decimal `json:"overdue_amount"`
	DaysOverdue   int             `json:"days_overdue"`
}

// DashboardMetrics is a per-(tenant, date) snapshot.
type DashboardMetrics struct {
	TenantID             string            `json:"company_guid"`
	AsOfDate             time.Time         `json:"as_of_date"`
	TotalReceivable      decimal.Decimal   `json:"total_receivable"`
	Receivable0To30      decimal.Decimal   `json:"receivable_0_30"`
	Receivable31To60     decimal.Decimal   `json:"receivable_31_60"`
	Receivable61To90     decimal.Decimal   `json:"receivable_61_90"`
	Receivable90Plus     decimal.Decimal   `json:"receivable_90_plus"`
	CustomerCount        int               `json:"customer_count"`
	OverdueCustomerCount int               `json:"overdue_customer_count"`
	TopOverdueCustomers  []OverdueCustomer `json:"top_overdue_customers"`
	CalculatedAt         time.Time         `json:"calculated_at"`
}

// VoucherAgingUpdate holds the derived payment and aging fields of one invoice.
type VoucherAgingUpdate struct {
	VoucherID         int64           `json:"voucher_id"`
	PartyLedgerID     *int64          `json:"party_ledger_id,omitempty"`
	InvoiceDate       time.Time       `json:"invoice_date"`
	TotalAmount       decimal.Decimal `json:"total_amount"`
	AmountPaid        decimal.Decimal `json:"amount_paid"`
	AmountOutstanding decimal.Decimal `json:"amount_outstanding"`
	PaymentStatus     PaymentStatus   `json:"payment_status"`
	AgingBucket       string          `json:"aging_bucket"`
	DaysSinceDue      int             `json:"days_since_due"`
}

// LedgerAgingUpdate holds the derived days_overdue of one customer ledger.
type LedgerAgingUpdate struct {
	LedgerID    int64 `json:"ledger_id"`
	DaysOverdue int   `json:"days_overdue"`
}

// CustomerProfile is a customer ledger account with its derived aging state.
type CustomerProfile struct {
	LedgerAccount
	DaysOverdue      int        `json:"days_overdue"`
	AgingComputedAt  *time.Time `json:"aging_computed_at,omitempty"`
	PaymentBehavior  string     `json:"payment_behavior"`
	AvgPaymentDays   *int       `json:"avg_payment_days"`
	OldestUnpaidDate *time.Time `json:"oldest_unpaid_date"`
}

// OutstandingCustomer is a customer summary joined with the aging and payment
// behaviour kept on the customer's ledger.
type OutstandingCustomer struct {
	CustomerSummary
	DaysOverdue      int        `json:"days_overdue"`
	PaymentBehavior  string     `json:"payment_behavior"`
	AvgPaymentDays   *int       `json:"avg_payment_days"`
	OldestUnpaidDate *time.Time `json:"oldest_unpaid_date"`
}

// OpenInvoice is an invoice that still carries a receivable, as persisted by
// the aging pipeline.
type OpenInvoice struct {
	VoucherID         int64           `json:"voucher_id"`
	VoucherNumber     string          `json:"voucher_number"`
	InvoiceDate       time.Time       `json:"invoice_date"`
	DueDate           *time.Time      `json:"due_date,omitempty"`
	TotalAmount       decimal.Decimal `json:"total_amount"`
	AmountPaid        decimal.Decimal `json:"amount_paid"`
	AmountOutstanding decimal.Decimal `json:"amount_outstanding"`
	PaymentStatus     PaymentStatus   `json:"payment_status"`
	AgingBucket       string          `json:"aging_bucket"`
	DaysSinceDue      int             `json:"days_since_due"`
}
