package app

import (
	"time"

	"receivables-analytics/internal/core"

	"github.com/shopspring/decimal"
)

// BucketAmount is one aging bucket with its formatted amount.
type BucketAmount struct {
	Bucket    string          `json:"bucket"`
	Amount    decimal.Decimal `json:"amount"`
	Formatted string          `json:"formatted"`
}

// DashboardResult is returned by GetDashboard.
type DashboardResult struct {
	Metrics                  *core.DashboardMetrics `json:"metrics"`
	TotalReceivableFormatted string                 `json:"total_receivable_formatted"`
	Buckets                  []BucketAmount         `json:"buckets"`
}

// OverviewResult is returned by GetBusinessOverview.
type OverviewResult struct {
	Overview *core.BusinessOverview `json:"overview"`
}

// CustomerAgingResult is returned by GetCustomerAging.
type CustomerAgingResult struct {
	Customer             *core.CustomerProfile `json:"customer"`
	Outstanding          decimal.Decimal       `json:"outstanding"`
	OutstandingFormatted string                `json:"outstanding_formatted"`
	RiskLevel            core.RiskLevel        `json:"risk_level"`
	Buckets              []BucketAmount        `json:"buckets"`
	Invoices             []core.OpenInvoice    `json:"invoices"`
}

// OutstandingCustomersResult is returned by ListOutstandingCustomers.
type OutstandingCustomersResult struct {
	Customers      []core.OutstandingCustomer `json:"customers"`
	Total          decimal.Decimal            `json:"total"`
	TotalFormatted string                     `json:"total_formatted"`
}

// RefreshResult is returned by RefreshTenant.
type RefreshResult struct {
	Success     bool      `json:"success"`
	Message     string    `json:"message"`
	RefreshedAt time.Time `json:"refreshed_at"`
}

// InsightResult is returned by GetInsights. Generated is false when the
// fallback text was used.
type InsightResult struct {
	Headline        string   `json:"headline"`
	Summary         string   `json:"summary"`
	Recommendations []string `json:"recommendations"`
	Generated       bool     `json:"generated"`
}
