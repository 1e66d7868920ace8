package core

import "github.com/shopspring/decimal"

type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

var (
	highRiskBalance   = decimal.NewFromInt(1_000_000) // 10 L
	mediumRiskBalance = decimal.NewFromInt(250_000)   // 2.5 L
)

// RiskLevelFor grades a customer by how long and how much it owes.
func RiskLevelFor(daysOverdue int, outstanding decimal.Decimal) RiskLevel {
	switch {
	case daysOverdue >= 90 || outstanding.GreaterThanOrEqual(highRiskBalance):
		return RiskHigh
	case daysOverdue >= 31 || outstanding.GreaterThanOrEqual(mediumRiskBalance):
		return RiskMedium
	default:
		return RiskLow
	}
}
