package entity

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/procurehub/backend/constants"
)

// Request represents a procurement request for data transfer between layers.
type Request struct {
	ID                       int64                   `json:"id"`
	RequestorName            string                  `json:"requestor_name"`
	Title                    string                  `json:"title"`
	VendorName               string                  `json:"vendor_name"`
	VATID                    *string                 `json:"vat_id,omitempty"`
	Department               *string                 `json:"department,omitempty"`
	CommodityGroupID         *int32                  `json:"commodity_group_id,omitempty"`
	CommodityGroupConfidence *float64                `json:"commodity_group_confidence,omitempty"`
	TotalCost                decimal.Decimal         `json:"total_cost"`
	Status                   constants.RequestStatus `json:"status"`
	OfferPath                *string                 `json:"offer_path,omitempty"`
	OfferFilename            *string                 `json:"offer_filename,omitempty"`
	OrderLines               []OrderLine             `json:"order_lines"`
	CreatedAt                time.Time               `json:"created_at"`
	UpdatedAt                time.Time               `json:"updated_at"`
}

// OrderLine represents one purchased item within a request.
type OrderLine struct {
	ID          int64           `json:"id"`
	RequestID   int64           `json:"request_id"`
	Description string          `json:"position_description"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Amount      decimal.Decimal `json:"amount"`
	Unit        string          `json:"unit"`
	TotalPrice  decimal.Decimal `json:"total_price"`
}

// RequestCreate is the payload for creating a request, before reconciliation.
type RequestCreate struct {
	RequestorName    string            `json:"requestor_name"`
	Title            string            `json:"title"`
	VendorName       string            `json:"vendor_name"`
	VATID            *string           `json:"vat_id,omitempty"`
	Department       *string           `json:"department,omitempty"`
	CommodityGroupID *int32            `json:"commodity_group_id,omitempty"`
	TotalCost        decimal.Decimal   `json:"total_cost"`
	OrderLines       []OrderLineCreate `json:"order_lines"`
}

// OrderLineCreate is one line of a RequestCreate payload.
type OrderLineCreate struct {
	Description string          `json:"position_description"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Amount      decimal.Decimal `json:"amount"`
	Unit        string          `json:"unit"`
	TotalPrice  decimal.Decimal `json:"total_price"`
}

// RequestUpdate carries the optional fields of a request update.
type RequestUpdate struct {
	RequestorName    *string          `json:"requestor_name,omitempty"`
	Title            *string          `json:"title,omitempty"`
	VendorName       *string          `json:"vendor_name,omitempty"`
	VATID            *string          `json:"vat_id,omitempty"`
	Department       *string          `json:"department,omitempty"`
	TotalCost        *decimal.Decimal `json:"total_cost,omitempty"`
	CommodityGroupID *int32           `json:"commodity_group_id,omitempty"`
}
