// Package discount computes authorized and unauthorized discount for order
// lines against a booker's policy ceiling. Discount percent is accepted
// unbounded at entry; the excess over the ceiling is tracked, never rejected.
package discount

// Line is one order line as entered by the booker.
type Line struct {
	Quantity        float64
	UnitPrice       float64
	DiscountPercent float64
}

// LineTotals is the computed money breakdown of one line.
type LineTotals struct {
	LineTotal          float64
	DiscountAmount     float64
	FinalAmount        float64
	AuthorizedPercent  float64
	ExcessPercent      float64
	UnauthorizedAmount float64
	Unauthorized       bool
}

// OrderTotals aggregates line totals across an order.
type OrderTotals struct {
	Subtotal             float64
	TotalDiscount        float64
	UnauthorizedDiscount float64
	GrandTotal           float64
}

// ComputeLine splits a line's discount into authorized and excess parts given
// the booker's ceiling.
func ComputeLine(line Line, maxDiscountPercent float64) LineTotals {
	gross := line.Quantity * line.UnitPrice
	discountAmount := gross * line.DiscountPercent / 100

	authorized := line.DiscountPercent
	if authorized > maxDiscountPercent {
		authorized = maxDiscountPercent
	}
	excess := line.DiscountPercent - maxDiscountPercent
	if excess < 0 {
		excess = 0
	}

	return LineTotals{
		LineTotal:          gross,
		DiscountAmount:     discountAmount,
		FinalAmount:        gross - discountAmount,
		AuthorizedPercent:  authorized,
		ExcessPercent:      excess,
		UnauthorizedAmount: gross * excess / 100,
		Unauthorized:       excess > 0,
	}
}

// ComputeOrder computes per-line totals and the order-level aggregation.
func ComputeOrder(lines []Line, maxDiscountPercent float64) ([]LineTotals, OrderTotals) {
	results := make([]LineTotals, len(lines))
	var totals OrderTotals
	for i, line := range lines {
		lt := ComputeLine(line, maxDiscountPercent)
		results[i] = lt
		totals.Subtotal += lt.LineTotal
		totals.TotalDiscount += lt.DiscountAmount
		totals.UnauthorizedDiscount += lt.UnauthorizedAmount
	}
	totals.GrandTotal = totals.Subtotal - totals.TotalDiscount
	return results, totals
}
