package core

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	Bucket0To30   = "0-30"
	Bucket31To60  = "31-60"
	Bucket61To90  = "61-90"
	Bucket90Plus  = "90+"
	hoursInOneDay = 24
)

// AgingBuckets lists bucket labels from youngest to oldest.
var AgingBuckets = []string{Bucket0To30, Bucket31To60, Bucket61To90, Bucket90Plus}

// AgingBucketFor maps days since due to a bucket label. Invoices not yet due fall in 0-30.
func AgingBucketFor(days int) string {
	switch {
	case days <= 30:
		return Bucket0To30
	case days <= 60:
		return Bucket31To60
	case days <= 90:
		return Bucket61To90
	default:
		return Bucket90Plus
	}
}

// PaymentStatusFor applies the invoice settlement rules.
func PaymentStatusFor(cancelled bool, total, paid decimal.Decimal) PaymentStatus {
	switch {
	case cancelled:
		return PaymentCancelled
	case paid.GreaterThanOrEqual(total):
		return PaymentPaid
	case paid.IsPositive():
		return PaymentPartial
	default:
		return PaymentUnpaid
	}
}

// DaysBetween counts calendar days from one date to another.
func DaysBetween(from, to time.Time) int {
	return int(DateOf(to).Sub(DateOf(from)).Hours() / hoursInOneDay)
}

// ComputeInvoiceAging derives paid, outstanding, status and bucket for every
// sale-class voucher. Only active allocations count towards the paid amount.
func ComputeInvoiceAging(vouchers []Voucher, allocations []PaymentAllocation, today time.Time) []VoucherAgingUpdate {
	paid := make(map[int64]decimal.Decimal)
	for _, a := range allocations {
		if !a.Active {
			continue
		}
		paid[a.InvoiceVoucherID] = paid[a.InvoiceVoucherID].Add(a.AllocatedAmount)
	}

	var out []VoucherAgingUpdate
	for _, v := range vouchers {
		if v.Class != ClassSale {
			continue
		}
		amountPaid := paid[v.ID]
		due := v.Date
		if v.DueDate != nil {
			due = *v.DueDate
		}
		days := DaysBetween(due, today)

		out = append(out, VoucherAgingUpdate{
			VoucherID:         v.ID,
			PartyLedgerID:     v.PartyLedgerID,
			InvoiceDate:       v.Date,
			TotalAmount:       v.TotalAmount,
			AmountPaid:        amountPaid,
			AmountOutstanding: v.TotalAmount.Sub(amountPaid),
			PaymentStatus:     PaymentStatusFor(v.Cancelled, v.TotalAmount, amountPaid),
			AgingBucket:       AgingBucketFor(days),
			DaysSinceDue:      days,
		})
	}
	return out
}

// ComputeLedgerAging derives days_overdue for every Sundry Debtors ledger: the age
// in days of its earliest open invoice, or 0 when nothing is open.
func ComputeLedgerAging(accounts []LedgerAccount, updates []VoucherAgingUpdate, today time.Time) []LedgerAgingUpdate {
	earliest := make(map[int64]time.Time)
	for _, u := range updates {
		if !u.PaymentStatus.IsOpen() || u.PartyLedgerID == nil {
			continue
		}
		id := *u.PartyLedgerID
		if cur, ok := earliest[id]; !ok || u.InvoiceDate.Before(cur) {
			earliest[id] = u.InvoiceDate
		}
	}

	var out []LedgerAgingUpdate
	for _, a := range accounts {
		if a.ParentGroup != SundryDebtors {
			continue
		}
		days := 0
		if d, ok := earliest[a.ID]; ok {
			days = DaysBetween(d, today)
		}
		out = append(out, LedgerAgingUpdate{LedgerID: a.ID, DaysOverdue: days})
	}
	return out
}

// DateOf returns the calendar date of t as midnight UTC.
func DateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
