package core_test

import (
	"testing"
	"time"

	"receivables-analytics/internal/core"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func ledgerID(id int64) *int64 { return &id }

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func debtor(id int64, name, opening string) core.LedgerAccount {
	return core.LedgerAccount{
		ID:             id,
		GUID:           name + "-guid",
		TenantID:       "T1",
		Name:           name,
		ParentGroup:    core.SundryDebtors,
		OpeningBalance: dec(opening),
		Active:         true,
	}
}

func voucher(id, party int64, rawType, amount, date string) core.Voucher {
	return core.Voucher{
		ID:            id,
		TenantID:      "T1",
		PartyLedgerID: ledgerID(party),
		VoucherType:   rawType,
		Class:         core.ClassifyVoucherType(rawType),
		TotalAmount:   dec(amount),
		Date:          day(date),
	}
}

func TestClassifyVoucherType(t *testing.T) {
	tests := []struct {
		raw  string
		want core.VoucherClass
	}{
		{"Sales", core.ClassSale},
		{"SALES", core.ClassSale},
		{"Invoice", core.ClassSale},
		{"Sales Invoice", core.ClassSale},
		{"  sales invoice ", core.ClassSale},
		{"Receipt", core.ClassReceipt},
		{"RECEIPT", core.ClassReceipt},
		{"Payment Received", core.ClassReceipt},
		{"Payment", core.ClassOther},
		{"Journal", core.ClassOther},
		{"", core.ClassOther},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, core.ClassifyVoucherType(tt.raw), "raw=%q", tt.raw)
	}
	assert.ElementsMatch(t, []string{"receipt", "payment received"}, core.VoucherTypeLabels(core.ClassReceipt))
}

func TestIsCustomerAccount(t *testing.T) {
	base := debtor(1, "Acme Traders", "0")
	assert.True(t, core.IsCustomerAccount(base))

	for _, name := range []string{"Cash", "BANK", "Cash in Hand", "petty cash", "Bank Account", "Bank Accounts", "  Cash  ", ""} {
		a := base
		a.Name = name
		assert.False(t, core.IsCustomerAccount(a), "name=%q", name)
	}

	inactive := base
	inactive.Active = false
	assert.False(t, core.IsCustomerAccount(inactive))

	creditor := base
	creditor.ParentGroup = "Sundry Creditors"
	assert.False(t, core.IsCustomerAccount(creditor))
}

func TestComputeCustomerSummary_OutstandingFormula(t *testing.T) {
	accounts := []core.LedgerAccount{
		debtor(1, "Acme", "1000"),
		debtor(2, "Bolt", "0"),
		debtor(3, "Petty Cash", "999999"),
	}
	cancelled := voucher(9, 1, "Sales", "70000", "2026-03-01")
	cancelled.Cancelled = true
	vouchers := []core.Voucher{
		voucher(1, 1, "Sales", "5000", "2026-01-05"),
		voucher(2, 1, "SALES", "2500.50", "2026-01-10"),
		voucher(3, 1, "Invoice", "1000", "2026-02-01"),
		voucher(4, 1, "Sales Invoice", "500", "2026-02-02"),
		voucher(5, 1, "Receipt", "3000", "2026-02-10"),
		voucher(6, 1, "Payment Received", "1000.50", "2026-02-11"),
		voucher(7, 1, "Journal", "123456", "2026-02-12"),
		voucher(8, 2, "RECEIPT", "400", "2026-02-13"),
		voucher(10, 3, "Sales", "100", "2026-02-14"),
		cancelled,
	}
	period := core.Period{Start: day("2026-01-05"), End: day("2026-03-01")}

	rows := core.ComputeCustomerSummary("T1", accounts, vouchers, period, core.NewFormatter(""))
	require.Len(t, rows, 2, "petty cash must never be a customer")

	acme := rows[0]
	assert.Equal(t, "Acme", acme.CustomerName)
	assert.Equal(t, 4, acme.SalesCount)
	assert.Equal(t, 2, acme.ReceiptsCount)
	assert.True(t, acme.SalesValue.Equal(dec("9000.50")), "sales=%s", acme.SalesValue)
	assert.True(t, acme.ReceiptsValue.Equal(dec("4000.50")), "receipts=%s", acme.ReceiptsValue)
	assert.True(t, acme.OutstandingAmount.Equal(acme.OpeningBalance.Add(acme.SalesValue).Sub(acme.ReceiptsValue)))
	assert.True(t, acme.OutstandingAmount.Equal(dec("6000")))
	assert.True(t, acme.CurrentBalance.Equal(acme.OutstandingAmount))
	assert.True(t, acme.AverageOrderValue.Equal(dec("2250.13")), "avg=%s", acme.AverageOrderValue)
	assert.Equal(t, core.OwesMoney, acme.BalanceStatus)
	assert.Equal(t, "₹6000", acme.OutstandingFormatted)
	assert.Equal(t, "₹9 K", acme.SalesFormatted)
	assert.Equal(t, period.Start, acme.PeriodStart)

	bolt := rows[1]
	assert.True(t, bolt.OutstandingAmount.Equal(dec("-400")))
	assert.True(t, bolt.AverageOrderValue.IsZero())
	assert.Equal(t, core.HasAdvance, bolt.BalanceStatus)
	assert.Equal(t, "₹0", bolt.SalesFormatted)
}

func TestComputeCustomerSummary_SettledAndEmpty(t *testing.T) {
	accounts := []core.LedgerAccount{debtor(1, "Zed", "0")}
	rows := core.ComputeCustomerSummary("T1", accounts, nil, core.Period{}, core.NewFormatter(""))
	require.Len(t, rows, 1)
	assert.Equal(t, core.Settled, rows[0].BalanceStatus)
	assert.Equal(t, 1, rows[0].SalesRank)
	assert.Equal(t, 1, rows[0].OutstandingRank)

	assert.Empty(t, core.ComputeCustomerSummary("T1", nil, nil, core.Period{}, core.NewFormatter("")))
}

func TestRankCustomerSummaries_Permutation(t *testing.T) {
	rows := []core.CustomerSummary{
		{CustomerID: 4, SalesValue: dec("100"), OutstandingAmount: dec("10")},
		{CustomerID: 2, SalesValue: dec("900"), OutstandingAmount: dec("-50")},
		{CustomerID: 3, SalesValue: dec("100"), OutstandingAmount: dec("10")},
		{CustomerID: 1, SalesValue: dec("50"), OutstandingAmount: dec("700")},
	}
	core.RankCustomerSummaries(rows)

	byID := map[int64]core.CustomerSummary{}
	salesRanks := map[int]bool{}
	outRanks := map[int]bool{}
	for _, r := range rows {
		byID[r.CustomerID] = r
		salesRanks[r.SalesRank] = true
		outRanks[r.OutstandingRank] = true
	}
	for n := 1; n <= len(rows); n++ {
		assert.True(t, salesRanks[n], "sales rank %d missing", n)
		assert.True(t, outRanks[n], "outstanding rank %d missing", n)
	}

	assert.Equal(t, 1, byID[2].SalesRank)
	assert.Equal(t, 2, byID[3].SalesRank, "tie goes to the lower customer id")
	assert.Equal(t, 3, byID[4].SalesRank)
	assert.Equal(t, 4, byID[1].SalesRank)

	assert.Equal(t, 1, byID[1].OutstandingRank)
	assert.Equal(t, 2, byID[3].OutstandingRank)
	assert.Equal(t, 3, byID[4].OutstandingRank)
	assert.Equal(t, 4, byID[2].OutstandingRank)
}

func TestComputeCustomerSummary_Deterministic(t *testing.T) {
	accounts := []core.LedgerAccount{debtor(2, "B", "10"), debtor(1, "A", "10")}
	vouchers := []core.Voucher{
		voucher(1, 1, "Sales", "300", "2026-01-01"),
		voucher(2, 2, "Sales", "300", "2026-01-02"),
	}
	f := core.NewFormatter("")
	first := core.ComputeCustomerSummary("T1", accounts, vouchers, core.Period{}, f)
	second := core.ComputeCustomerSummary("T1", accounts, vouchers, core.Period{}, f)
	assert.Equal(t, first, second)
}

func TestObservationPeriod(t *testing.T) {
	now := time.Date(2026, 10, 15, 13, 45, 0, 0, time.UTC)

	p := core.ObservationPeriod(nil, nil, now)
	assert.Equal(t, day("2026-01-01"), p.Start)
	assert.Equal(t, day("2026-10-15"), p.End)

	first, last := day("2025-04-01"), day("2026-03-31")
	p = core.ObservationPeriod(&first, &last, now)
	assert.Equal(t, first, p.Start)
	assert.Equal(t, last, p.End)
}
