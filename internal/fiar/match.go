// Package fiar covers freight invoice audit and recovery: three-way
// matching, savings computation, and export to accounting systems.
package fiar

import "math"

// Discrepancy labels produced by the matcher.
const (
	DiscrepancyInvoiceVsContract = "invoice_vs_contract"
	DiscrepancyInvoiceVsDelivery = "invoice_vs_delivery"
)

type MatchInput struct {
	InvoiceAmount   float64 `json:"invoice_amount"`
	ContractAmount  float64 `json:"contract_amount"`
	DeliveredAmount float64 `json:"delivered_amount"`
	TolerancePct    float64 `json:"tolerance_pct"`
}

type MatchResult struct {
	Matched       bool     `json:"matched"`
	Discrepancies []string `json:"discrepancies,omitempty"`
	Savings       float64  `json:"savings"`
}

// ThreeWayMatch compares the invoice against the contract rate and the
// delivered quantity value within a percentage tolerance. A zero reference
// amount only matches a zero invoice.
func ThreeWayMatch(in MatchInput) MatchResult {
	ratio := in.TolerancePct / 100

	var discrepancies []string
	if !within(in.InvoiceAmount, in.ContractAmount, ratio) {
		discrepancies = append(discrepancies, DiscrepancyInvoiceVsContract)
	}
	if !within(in.InvoiceAmount, in.DeliveredAmount, ratio) {
		discrepancies = append(discrepancies, DiscrepancyInvoiceVsDelivery)
	}

	return MatchResult{
		Matched:       len(discrepancies) == 0,
		Discrepancies: discrepancies,
		Savings:       ComputeSavings(in.InvoiceAmount, in.ContractAmount),
	}
}

func within(left, right, ratio float64) bool {
	if right == 0 {
		return left == 0
	}
	return math.Abs(left-right)/right <= ratio
}

// ComputeSavings is the recoverable over-billing: the amount invoiced above
// the contracted amount, never negative, rounded to cents.
func ComputeSavings(invoiceAmount, contractAmount float64) float64 {
	s := invoiceAmount - contractAmount
	if s < 0 {
		s = 0
	}
	return math.Round(s*100) / 100
}
