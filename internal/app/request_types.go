package app

// InsightRequest selects the subject of an insight. CustomerID nil means the
// whole tenant.
type InsightRequest struct {
	TenantID   string
	CustomerID *int64
}
