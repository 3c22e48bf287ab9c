package reconcile

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/procurehub/backend/internal/entity"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func line(unitPrice, amount, total string) entity.OrderLineCreate {
	return entity.OrderLineCreate{
		Description: "item",
		Unit:        "pieces",
		UnitPrice:   dec(unitPrice),
		Amount:      dec(amount),
		TotalPrice:  dec(total),
	}
}

func TestRequestRecomputesLineTotals(t *testing.T) {
	p := entity.RequestCreate{
		TotalCost: dec("100.00"),
		OrderLines: []entity.OrderLineCreate{
			line("19.99", "3", "70.00"), // wrong, should be 59.97
			line("10.00", "4", "40.00"), // already right
		},
	}

	out := Request(p)
	require.Len(t, out.Payload.OrderLines, 2)
	assert.True(t, out.Payload.OrderLines[0].TotalPrice.Equal(dec("59.97")))
	assert.True(t, out.Payload.OrderLines[1].TotalPrice.Equal(dec("40.00")))
	assert.Equal(t, []int{0}, out.CorrectedLines)
	assert.True(t, out.Payload.TotalCost.Equal(dec("99.97")))
}

func TestRequestComputedSumWins(t *testing.T) {
	p := entity.RequestCreate{
		TotalCost:  dec("1.00"), // wildly off
		OrderLines: []entity.OrderLineCreate{line("5.00", "2", "10.00")},
	}
	out := Request(p)
	assert.True(t, out.TotalAdjusted)
	assert.True(t, out.Payload.TotalCost.Equal(dec("10.00")))
}

func TestRequestWithinToleranceNotFlagged(t *testing.T) {
	p := entity.RequestCreate{
		TotalCost:  dec("10.01"),
		OrderLines: []entity.OrderLineCreate{line("5.00", "2", "10.01")},
	}
	out := Request(p)
	assert.Empty(t, out.CorrectedLines)
	assert.False(t, out.TotalAdjusted)
	// still normalized to the computed value
	assert.True(t, out.Payload.OrderLines[0].TotalPrice.Equal(dec("10.00")))
	assert.True(t, out.Payload.TotalCost.Equal(dec("10.00")))
}

func TestRequestRoundsHalfUp(t *testing.T) {
	// 3 * 0.335 = 1.005 -> 1.01 at 2 decimals
	p := entity.RequestCreate{
		OrderLines: []entity.OrderLineCreate{line("0.335", "3", "0")},
	}
	out := Request(p)
	assert.True(t, out.Payload.OrderLines[0].TotalPrice.Equal(dec("1.01")))
}

func TestRequestIsIdempotent(t *testing.T) {
	p := entity.RequestCreate{
		TotalCost: dec("123.45"),
		OrderLines: []entity.OrderLineCreate{
			line("19.99", "3", "0"),
			line("0.07", "13", "0"),
			line("250.00", "0.5", "0"),
		},
	}

	first := Request(p)
	second := Request(first.Payload)

	assert.Empty(t, second.CorrectedLines)
	assert.False(t, second.TotalAdjusted)
	assert.True(t, second.Payload.TotalCost.Equal(first.Payload.TotalCost))
	for i := range first.Payload.OrderLines {
		assert.True(t, second.Payload.OrderLines[i].TotalPrice.Equal(first.Payload.OrderLines[i].TotalPrice))
	}
}

func TestRequestEmptyLines(t *testing.T) {
	out := Request(entity.RequestCreate{TotalCost: dec("5.00")})
	assert.True(t, out.Payload.TotalCost.IsZero())
	assert.True(t, out.TotalAdjusted)
}

func TestExtracted(t *testing.T) {
	ed := entity.ExtractedData{
		TotalCost:  dec("0"),
		OrderLines: []entity.OrderLineCreate{line("2.50", "4", "9.99")},
	}
	got, outcome := Extracted(ed)
	assert.True(t, got.TotalCost.Equal(dec("10.00")))
	assert.Equal(t, []int{0}, outcome.CorrectedLines)
}
