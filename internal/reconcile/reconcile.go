// Package reconcile recomputes derived totals from authoritative per-line
// values. Downstream accounting depends on internal consistency, so inconsistent
// upstream totals are overwritten, never merely flagged.
package reconcile

import (
	"github.com/shopspring/decimal"

	"github.com/procurehub/backend/internal/entity"
)

// tolerance within which an upstream total counts as consistent. Deviations
// beyond it are reported as corrections; either way the computed value wins.
var tolerance = decimal.RequireFromString("0.01")

// Outcome describes what reconciliation changed.
type Outcome struct {
	Payload        entity.RequestCreate
	CorrectedLines []int // indexes whose total_price deviated beyond tolerance
	TotalAdjusted  bool  // declared total_cost deviated beyond tolerance
}

// Request reconciles a create payload: every line total becomes
// round(unit_price*amount, 2) and total_cost becomes the sum of line totals.
// Applying Request to its own output is a no-op.
func Request(p entity.RequestCreate) Outcome {
	out := Outcome{Payload: p}
	out.Payload.OrderLines = make([]entity.OrderLineCreate, len(p.OrderLines))

	for i, line := range p.OrderLines {
		expected := LineTotal(line.UnitPrice, line.Amount)
		if line.TotalPrice.Sub(expected).Abs().GreaterThan(tolerance) {
			out.CorrectedLines = append(out.CorrectedLines, i)
		}
		line.TotalPrice = expected
		out.Payload.OrderLines[i] = line
	}

	sum := SumLines(out.Payload.OrderLines)
	if p.TotalCost.Sub(sum).Abs().GreaterThan(tolerance) {
		out.TotalAdjusted = true
	}
	out.Payload.TotalCost = sum
	return out
}

// Extracted reconciles extraction output before it becomes a request payload.
func Extracted(ed entity.ExtractedData) (entity.ExtractedData, Outcome) {
	outcome := Request(entity.RequestCreate{
		TotalCost:  ed.TotalCost,
		OrderLines: ed.OrderLines,
	})
	ed.OrderLines = outcome.Payload.OrderLines
	ed.TotalCost = outcome.Payload.TotalCost
	return ed, outcome
}

// LineTotal is the authoritative per-line total: unit_price * amount rounded
// to 2 decimals.
func LineTotal(unitPrice, amount decimal.Decimal) decimal.Decimal {
	return unitPrice.Mul(amount).Round(2)
}

// SumLines adds up reconciled line totals.
func SumLines(lines []entity.OrderLineCreate) decimal.Decimal {
	sum := decimal.Zero
	for _, line := range lines {
		sum = sum.Add(line.TotalPrice)
	}
	return sum
}
