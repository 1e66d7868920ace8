package app

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a tenant or customer has no derived data yet.
var ErrNotFound = errors.New("not found")

// ApplicationService is the single interface the web adapter calls.
// It decouples presentation from the projection store and the refresh pipeline.
type ApplicationService interface {
	// GetDashboard returns today's valid snapshot for the tenant.
	GetDashboard(ctx context.Context, tenantID string) (*DashboardResult, error)

	// GetBusinessOverview returns the tenant-level receivables rollup.
	GetBusinessOverview(ctx context.Context, tenantID string) (*OverviewResult, error)

	// GetCustomerAging returns one customer's open invoices bucketed by age.
	GetCustomerAging(ctx context.Context, tenantID string, ledgerID int64) (*CustomerAgingResult, error)

	// ListOutstandingCustomers returns customers that owe money, largest balance first.
	ListOutstandingCustomers(ctx context.Context, tenantID string) (*OutstandingCustomersResult, error)

	// RefreshTenant recomputes every derived table of the tenant synchronously.
	RefreshTenant(ctx context.Context, tenantID string) (*RefreshResult, error)

	// GetInsights returns narrative text for the tenant or one of its customers.
	// It never fails because the text generator failed.
	GetInsights(ctx context.Context, req InsightRequest) (*InsightResult, error)
}
