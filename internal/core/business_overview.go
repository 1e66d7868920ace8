package core

import "github.com/shopspring/decimal"

// ComputeBusinessOverview rolls customer summaries up to the tenant level.
// Positive outstanding amounts sum into receivables and negative ones into
// advances; the two are never netted.
func ComputeBusinessOverview(tenantID string, rows []CustomerSummary, f Formatter) BusinessOverview {
	o := BusinessOverview{
		TenantID:         tenantID,
		TotalReceivables: decimal.Zero,
		TotalAdvances:    decimal.Zero,
		TotalSales:       decimal.Zero,
		TotalReceipts:    decimal.Zero,
	}

	names := make(map[string]struct{}, len(rows))
	for _, r := range rows {
		names[r.CustomerName] = struct{}{}
		o.TotalSales = o.TotalSales.Add(r.SalesValue)
		o.TotalReceipts = o.TotalReceipts.Add(r.ReceiptsValue)
		switch r.OutstandingAmount.Sign() {
		case 1:
			o.TotalReceivables = o.TotalReceivables.Add(r.OutstandingAmount)
		case -1:
			o.TotalAdvances = o.TotalAdvances.Add(r.OutstandingAmount.Abs())
		}
	}
	o.TotalCustomers = len(names)

	o.TotalSalesFormatted = f.Amount(o.TotalSales)
	o.TotalReceivablesFormatted = f.Amount(o.TotalReceivables)
	o.TotalAdvancesFormatted = f.Amount(o.TotalAdvances)
	return o
}
