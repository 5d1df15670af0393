package models

import "github.com/shopspring/decimal"

// MoneyEpsilon is the tolerance under which two money amounts are considered
// equal when deriving reconciliation state.
var MoneyEpsilon = decimal.NewFromFloat(0.01)

// CalculateReconciliationStatus derives a payment's reconciliation state from
// its total amount and the sum allocated to claims. This is the single source
// of truth: the matching engine, the orchestrator and remittance ingestion all
// go through it. Over-allocation beyond the epsilon is an EXCEPTION and needs
// manual intervention.
func CalculateReconciliationStatus(totalAmount, matchedAmount decimal.Decimal) ReconciliationStatus {
	diff := totalAmount.Sub(matchedAmount)
	switch {
	case diff.LessThan(MoneyEpsilon.Neg()):
		return ReconciliationException
	case diff.Abs().LessThan(MoneyEpsilon):
		return ReconciliationReconciled
	case matchedAmount.IsPositive():
		return ReconciliationPartial
	default:
		return ReconciliationUnreconciled
	}
}

// CalculateClaimStatus maps a paid/billed ratio onto the claim state moved by
// reconciliation. Ratios at or above 0.99 count as fully paid.
func CalculateClaimStatus(totalAmount, paidAmount decimal.Decimal, current ClaimStatus) ClaimStatus {
	if !totalAmount.IsPositive() || !paidAmount.IsPositive() {
		return current
	}
	ratio := paidAmount.Div(totalAmount)
	switch {
	case ratio.GreaterThanOrEqual(decimal.NewFromFloat(0.99)):
		return ClaimPaid
	case ratio.IsPositive():
		return ClaimPartialPaid
	default:
		return current
	}
}
