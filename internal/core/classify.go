package core

import "strings"

// VoucherClass is the canonical classification of a raw voucher type label.
type VoucherClass int

const (
	ClassOther VoucherClass = iota
	ClassSale
	ClassReceipt
)

func (c VoucherClass) String() string {
	switch c {
	case ClassSale:
		return "sale"
	case ClassReceipt:
		return "receipt"
	default:
		return "other"
	}
}

var voucherTypeLabels = map[string]VoucherClass{
	"sales":            ClassSale,
	"invoice":          ClassSale,
	"sales invoice":    ClassSale,
	"receipt":          ClassReceipt,
	"payment received": ClassReceipt,
}

// ClassifyVoucherType maps a raw voucher type label to its class.
// Matching ignores case and surrounding whitespace.
func ClassifyVoucherType(raw string) VoucherClass {
	return voucherTypeLabels[normalizeLabel(raw)]
}

// VoucherTypeLabels returns the raw labels (lower-cased) that map to class c.
func VoucherTypeLabels(c VoucherClass) []string {
	var out []string
	for label, class := range voucherTypeLabels {
		if class == c {
			out = append(out, label)
		}
	}
	return out
}

var excludedCustomerNames = map[string]struct{}{
	"cash":          {},
	"bank":          {},
	"cash in hand":  {},
	"petty cash":    {},
	"bank account":  {},
	"bank accounts": {},
}

// IsCustomerAccount reports whether a ledger account is treated as a customer.
// Cash and bank style accounts are never customers, whatever their group.
func IsCustomerAccount(a LedgerAccount) bool {
	if a.ParentGroup != SundryDebtors || !a.Active {
		return false
	}
	name := normalizeLabel(a.Name)
	if name == "" {
		return false
	}
	_, excluded := excludedCustomerNames[name]
	return !excluded
}

// CustomerAccounts filters accounts down to customers, preserving order.
func CustomerAccounts(accounts []LedgerAccount) []LedgerAccount {
	out := make([]LedgerAccount, 0, len(accounts))
	for _, a := range accounts {
		if IsCustomerAccount(a) {
			out = append(out, a)
		}
	}
	return out
}

func normalizeLabel(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
