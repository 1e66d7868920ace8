package core_test

import (
	"testing"

	"receivables-analytics/internal/core"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAgingBucketFor_Boundaries(t *testing.T) {
	tests := []struct {
		days int
		want string
	}{
		{-5, "0-30"},
		{0, "0-30"},
		{30, "0-30"},
		{31, "31-60"},
		{60, "31-60"},
		{61, "61-90"},
		{90, "61-90"},
		{91, "90+"},
		{400, "90+"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, core.AgingBucketFor(tt.days), "days=%d", tt.days)
	}
}

func TestPaymentStatusFor(t *testing.T) {
	total := dec("1000")
	assert.Equal(t, core.PaymentPaid, core.PaymentStatusFor(false, total, dec("1000")))
	assert.Equal(t, core.PaymentPaid, core.PaymentStatusFor(false, total, dec("1200")))
	assert.Equal(t, core.PaymentPartial, core.PaymentStatusFor(false, total, dec("0.01")))
	assert.Equal(t, core.PaymentUnpaid, core.PaymentStatusFor(false, total, decimal.Zero))
	assert.Equal(t, core.PaymentCancelled, core.PaymentStatusFor(true, total, dec("1000")))
	assert.Equal(t, core.PaymentCancelled, core.PaymentStatusFor(true, total, decimal.Zero))
}

func TestComputeInvoiceAging(t *testing.T) {
	today := day("2026-10-15")
	due := day("2026-09-15")

	withDue := voucher(2, 1, "Invoice", "500", "2026-06-01")
	withDue.DueDate = &due
	cancelled := voucher(4, 1, "Sales", "300", "2026-10-01")
	cancelled.Cancelled = true

	vouchers := []core.Voucher{
		voucher(1, 1, "Sales", "1000", "2026-09-15"),
		withDue,
		voucher(3, 2, "SALES", "800", "2026-07-14"),
		cancelled,
		voucher(5, 1, "Receipt", "1000", "2026-10-01"),
		voucher(6, 2, "Sales Invoice", "200", "2026-07-16"),
	}
	allocations := []core.PaymentAllocation{
		{ID: 1, ReceiptVoucherID: 5, InvoiceVoucherID: 1, AllocatedAmount: dec("600"), Active: true},
		{ID: 2, ReceiptVoucherID: 5, InvoiceVoucherID: 1, AllocatedAmount: dec("400"), Active: true},
		{ID: 3, ReceiptVoucherID: 5, InvoiceVoucherID: 2, AllocatedAmount: dec("100"), Active: true},
		{ID: 4, ReceiptVoucherID: 5, InvoiceVoucherID: 3, AllocatedAmount: dec("800"), Active: false},
		{ID: 5, ReceiptVoucherID: 5, InvoiceVoucherID: 4, AllocatedAmount: dec("300"), Active: true},
	}

	updates := core.ComputeInvoiceAging(vouchers, allocations, today)
	require.Len(t, updates, 5, "receipts are not aged")

	byID := map[int64]core.VoucherAgingUpdate{}
	for _, u := range updates {
		byID[u.VoucherID] = u
	}

	paid := byID[1]
	assert.Equal(t, core.PaymentPaid, paid.PaymentStatus, "allocations summing exactly to total are PAID")
	assert.True(t, paid.AmountOutstanding.IsZero())
	assert.Equal(t, 30, paid.DaysSinceDue)
	assert.Equal(t, "0-30", paid.AgingBucket)

	partial := byID[2]
	assert.Equal(t, core.PaymentPartial, partial.PaymentStatus)
	assert.True(t, partial.AmountPaid.Equal(dec("100")))
	assert.True(t, partial.AmountOutstanding.Equal(dec("400")))
	assert.Equal(t, 30, partial.DaysSinceDue, "due date wins over transaction date")

	unpaid := byID[3]
	assert.Equal(t, core.PaymentUnpaid, unpaid.PaymentStatus, "inactive allocations are ignored")
	assert.Equal(t, 93, unpaid.DaysSinceDue)
	assert.Equal(t, "90+", unpaid.AgingBucket)

	assert.Equal(t, core.PaymentCancelled, byID[4].PaymentStatus)

	assert.Equal(t, 91, byID[6].DaysSinceDue)
	assert.Equal(t, "90+", byID[6].AgingBucket)
}

func TestComputeInvoiceAging_CancelledKeepsUnpaidRemainder(t *testing.T) {
	cancelled := voucher(7, 1, "Sales", "300", "2026-10-01")
	cancelled.Cancelled = true

	updates := core.ComputeInvoiceAging([]core.Voucher{cancelled}, nil, day("2026-10-15"))
	require.Len(t, updates, 1)
	assert.Equal(t, core.PaymentCancelled, updates[0].PaymentStatus)
	assert.True(t, updates[0].AmountOutstanding.Equal(dec("300")), "outstanding stays total minus paid")
	assert.False(t, updates[0].PaymentStatus.IsOpen(), "cancelled invoices never count as open")
}

func TestComputeInvoiceAging_ThirtyOneDays(t *testing.T) {
	updates := core.ComputeInvoiceAging([]core.Voucher{voucher(1, 1, "Sales", "10", "2026-09-14")}, nil, day("2026-10-15"))
	require.Len(t, updates, 1)
	assert.Equal(t, 31, updates[0].DaysSinceDue)
	assert.Equal(t, "31-60", updates[0].AgingBucket)
	assert.Equal(t, core.PaymentUnpaid, updates[0].PaymentStatus)
}

func TestComputeLedgerAging(t *testing.T) {
	today := day("2026-10-15")
	accounts := []core.LedgerAccount{
		debtor(1, "Acme", "0"),
		debtor(2, "Bolt", "0"),
		{ID: 3, Name: "Supplier", ParentGroup: "Sundry Creditors", Active: true},
	}
	updates := []core.VoucherAgingUpdate{
		{VoucherID: 1, PartyLedgerID: ledgerID(1), InvoiceDate: day("2026-08-16"), PaymentStatus: core.PaymentPartial},
		{VoucherID: 2, PartyLedgerID: ledgerID(1), InvoiceDate: day("2026-09-01"), PaymentStatus: core.PaymentUnpaid},
		{VoucherID: 3, PartyLedgerID: ledgerID(1), InvoiceDate: day("2026-01-01"), PaymentStatus: core.PaymentPaid},
		{VoucherID: 4, PartyLedgerID: ledgerID(2), InvoiceDate: day("2026-01-01"), PaymentStatus: core.PaymentCancelled},
		{VoucherID: 5, PartyLedgerID: ledgerID(3), InvoiceDate: day("2026-01-01"), PaymentStatus: core.PaymentUnpaid},
	}

	got := core.ComputeLedgerAging(accounts, updates, today)
	assert.Equal(t, []core.LedgerAgingUpdate{
		{LedgerID: 1, DaysOverdue: 60},
		{LedgerID: 2, DaysOverdue: 0},
	}, got)
}
