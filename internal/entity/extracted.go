package entity

import (
	"github.com/shopspring/decimal"
)

// ExtractedData is the transient output of the structured extraction engine.
// It is consumed immediately by validation and reconciliation and never
// persisted as-is.
type ExtractedData struct {
	VendorName string            `json:"vendor_name"`
	VATID      *string           `json:"vat_id,omitempty"`
	Department *string           `json:"department,omitempty"`
	OrderLines []OrderLineCreate `json:"order_lines"`
	TotalCost  decimal.Decimal   `json:"total_cost"`
	Confidence float64           `json:"confidence"`
	Warnings   []string          `json:"warnings,omitempty"`
}
