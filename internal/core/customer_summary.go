package core

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

type partyTotals struct {
	salesValue    decimal.Decimal
	salesCount    int
	receiptsValue decimal.Decimal
	receiptsCount int
}

// totalsByParty sums non-cancelled sale and receipt vouchers per party ledger.
func totalsByParty(vouchers []Voucher) map[int64]*partyTotals {
	out := make(map[int64]*partyTotals)
	for _, v := range vouchers {
		if v.Cancelled || v.Class == ClassOther {
			continue
		}
		id, ok := v.PartyID()
		if !ok {
			continue
		}
		t := out[id]
		if t == nil {
			t = &partyTotals{}
			out[id] = t
		}
		switch v.Class {
		case ClassSale:
			t.salesValue = t.salesValue.Add(v.TotalAmount)
			t.salesCount++
		case ClassReceipt:
			t.receiptsValue = t.receiptsValue.Add(v.TotalAmount)
			t.receiptsCount++
		}
	}
	return out
}

// OutstandingBalances derives each customer's outstanding amount as
// opening + sales - receipts, keyed by ledger id.
func OutstandingBalances(accounts []LedgerAccount, vouchers []Voucher) map[int64]decimal.Decimal {
	totals := totalsByParty(vouchers)
	out := make(map[int64]decimal.Decimal)
	for _, a := range CustomerAccounts(accounts) {
		bal := a.OpeningBalance
		if t := totals[a.ID]; t != nil {
			bal = bal.Add(t.salesValue).Sub(t.receiptsValue)
		}
		out[a.ID] = bal
	}
	return out
}

// ComputeCustomerSummary derives one summary row per customer account of a tenant.
// Rows come back ranked and in input account order.
func ComputeCustomerSummary(tenantID string, accounts []LedgerAccount, vouchers []Voucher, period Period, f Formatter) []CustomerSummary {
	totals := totalsByParty(vouchers)
	customers := CustomerAccounts(accounts)

	rows := make([]CustomerSummary, 0, len(customers))
	for _, a := range customers {
		t := totals[a.ID]
		if t == nil {
			t = &partyTotals{}
		}

		outstanding := a.OpeningBalance.Add(t.salesValue).Sub(t.receiptsValue)

		avg := decimal.Zero
		if t.salesCount > 0 {
			avg = t.salesValue.Div(decimal.NewFromInt(int64(t.salesCount))).Round(2)
		}

		rows = append(rows, CustomerSummary{
			TenantID:             tenantID,
			PeriodStart:          period.Start,
			PeriodEnd:            period.End,
			CustomerID:           a.ID,
			CustomerGUID:         a.GUID,
			CustomerName:         a.Name,
			OpeningBalance:       a.OpeningBalance,
			SalesValue:           t.salesValue,
			SalesCount:           t.salesCount,
			ReceiptsValue:        t.receiptsValue,
			ReceiptsCount:        t.receiptsCount,
			OutstandingAmount:    outstanding,
			CurrentBalance:       outstanding,
			AverageOrderValue:    avg,
			OutstandingFormatted: f.Amount(outstanding),
			SalesFormatted:       f.Sales(t.salesValue),
			BalanceStatus:        BalanceStatusFor(outstanding),
		})
	}

	RankCustomerSummaries(rows)
	return rows
}

// RankCustomerSummaries assigns sales and outstanding ranks in place.
// Ranks are a permutation of 1..N; ties go to the lower customer id.
func RankCustomerSummaries(rows []CustomerSummary) {
	idx := make([]int, len(rows))
	for i := range idx {
		idx[i] = i
	}

	assign := func(key func(CustomerSummary) decimal.Decimal, set func(*CustomerSummary, int)) {
		order := append([]int(nil), idx...)
		sort.SliceStable(order, func(a, b int) bool {
			ra, rb := rows[order[a]], rows[order[b]]
			if c := key(ra).Cmp(key(rb)); c != 0 {
				return c > 0
			}
			return ra.CustomerID < rb.CustomerID
		})
		for rank, i := range order {
			set(&rows[i], rank+1)
		}
	}

	assign(
		func(r CustomerSummary) decimal.Decimal { return r.SalesValue },
		func(r *CustomerSummary, n int) { r.SalesRank = n },
	)
	assign(
		func(r CustomerSummary) decimal.Decimal { return r.OutstandingAmount },
		func(r *CustomerSummary, n int) { r.OutstandingRank = n },
	)
}

// ObservationPeriod returns the refresh window for a tenant. When the tenant has
// no vouchers the window is the start of the current year through today.
func ObservationPeriod(minDate, maxDate *time.Time, now time.Time) Period {
	today := DateOf(now)
	p := Period{
		Start: time.Date(today.Year(), time.January, 1, 0, 0, 0, 0, time.UTC),
		End:   today,
	}
	if minDate != nil {
		p.Start = DateOf(*minDate)
	}
	if maxDate != nil {
		p.End = DateOf(*maxDate)
	}
	return p
}
