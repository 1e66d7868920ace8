package core

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// TopOverdueLimit caps the number of customers listed on a snapshot.
const TopOverdueLimit = 5

// ComputeDashboardSnapshot builds the (tenant, today) dashboard row.
//
// Receivable total and customer count cover customer accounts whose derived
// balance is positive. Bucket sums cover open (unpaid or partial) invoices only.
// A customer is overdue when it has open amounts more than 30 days past due.
func ComputeDashboardSnapshot(tenantID string, accounts []LedgerAccount, vouchers []Voucher, aging []VoucherAgingUpdate, today time.Time) DashboardMetrics {
	m := DashboardMetrics{
		TenantID:            tenantID,
		AsOfDate:            DateOf(today),
		TotalReceivable:     decimal.Zero,
		Receivable0To30:     decimal.Zero,
		Receivable31To60:    decimal.Zero,
		Receivable61To90:    decimal.Zero,
		Receivable90Plus:    decimal.Zero,
		TopOverdueCustomers: []OverdueCustomer{},
	}

	customers := make(map[int64]LedgerAccount)
	for _, a := range CustomerAccounts(accounts) {
		customers[a.ID] = a
	}

	for _, bal := range OutstandingBalances(accounts, vouchers) {
		if bal.IsPositive() {
			m.TotalReceivable = m.TotalReceivable.Add(bal)
			m.CustomerCount++
		}
	}

	overdue := make(map[int64]*OverdueCustomer)
	for _, u := range aging {
		if !u.PaymentStatus.IsOpen() {
			continue
		}
		switch u.AgingBucket {
		case Bucket0To30:
			m.Receivable0To30 = m.Receivable0To30.Add(u.AmountOutstanding)
		case Bucket31To60:
			m.Receivable31To60 = m.Receivable31To60.Add(u.AmountOutstanding)
		case Bucket61To90:
			m.Receivable61To90 = m.Receivable61To90.Add(u.AmountOutstanding)
		case Bucket90Plus:
			m.Receivable90Plus = m.Receivable90Plus.Add(u.AmountOutstanding)
		}

		if u.DaysSinceDue <= 30 || u.PartyLedgerID == nil {
			continue
		}
		acct, ok := customers[*u.PartyLedgerID]
		if !ok {
			continue
		}
		oc := overdue[acct.ID]
		if oc == nil {
			oc = &OverdueCustomer{LedgerID: acct.ID, Name: acct.Name, OverdueAmount: decimal.Zero}
			overdue[acct.ID] = oc
		}
		oc.OverdueAmount = oc.OverdueAmount.Add(u.AmountOutstanding)
		if u.DaysSinceDue > oc.DaysOverdue {
			oc.DaysOverdue = u.DaysSinceDue
		}
	}

	list := make([]OverdueCustomer, 0, len(overdue))
	for _, oc := range overdue {
		if oc.OverdueAmount.IsPositive() {
			list = append(list, *oc)
		}
	}
	sort.Slice(list, func(i, j int) bool {
		if c := list[i].OverdueAmount.Cmp(list[j].OverdueAmount); c != 0 {
			return c > 0
		}
		return list[i].LedgerID < list[j].LedgerID
	})
	m.OverdueCustomerCount = len(list)
	if len(list) > TopOverdueLimit {
		list = list[:TopOverdueLimit]
	}
	m.TopOverdueCustomers = list
	return m
}
