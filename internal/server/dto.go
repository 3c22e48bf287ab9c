package server

import (
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/procurehub/backend/constants"
	"github.com/procurehub/backend/internal/entity"
)

// requeststatus rejects status strings outside the workflow vocabulary at
// binding time, before the service sees them.
func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("requeststatus", func(fl validator.FieldLevel) bool {
			return constants.IsValidStatus(fl.Field().String())
		})
	}
}

type orderLineDTO struct {
	PositionDescription string  `json:"position_description" binding:"required"`
	UnitPrice           float64 `json:"unit_price" binding:"gte=0"`
	Amount              float64 `json:"amount" binding:"gte=0"`
	Unit                string  `json:"unit" binding:"required"`
	TotalPrice          float64 `json:"total_price" binding:"gte=0"`
}

type createRequestDTO struct {
	RequestorName    string         `json:"requestor_name" binding:"required"`
	Title            string         `json:"title" binding:"required"`
	VendorName       string         `json:"vendor_name" binding:"required"`
	VATID            *string        `json:"vat_id"`
	Department       *string        `json:"department"`
	CommodityGroupID *int32         `json:"commodity_group_id"`
	TotalCost        float64        `json:"total_cost" binding:"gte=0"`
	OrderLines       []orderLineDTO `json:"order_lines" binding:"required,min=1,dive"`
	OfferPath        *string        `json:"offer_path"`
	OfferFilename    *string        `json:"offer_filename"`
}

type updateRequestDTO struct {
	RequestorName    *string  `json:"requestor_name"`
	Title            *string  `json:"title"`
	VendorName       *string  `json:"vendor_name"`
	VATID            *string  `json:"vat_id"`
	Department       *string  `json:"department"`
	TotalCost        *float64 `json:"total_cost" binding:"omitempty,gte=0"`
	CommodityGroupID *int32   `json:"commodity_group_id"`
}

type replaceOrderLinesDTO struct {
	OrderLines []orderLineDTO `json:"order_lines" binding:"required,min=1,dive"`
}

type updateStatusDTO struct {
	Status string `json:"status" binding:"required,requeststatus"`
}

type classifyTextDTO struct {
	Text string `json:"text" binding:"required"`
}

func (d createRequestDTO) toEntity() entity.RequestCreate {
	out := entity.RequestCreate{
		RequestorName:    d.RequestorName,
		Title:            d.Title,
		VendorName:       d.VendorName,
		VATID:            d.VATID,
		Department:       d.Department,
		CommodityGroupID: d.CommodityGroupID,
		TotalCost:        decimal.NewFromFloat(d.TotalCost),
		OrderLines:       toLineEntities(d.OrderLines),
	}
	return out
}

func (d updateRequestDTO) toEntity() entity.RequestUpdate {
	out := entity.RequestUpdate{
		RequestorName:    d.RequestorName,
		Title:            d.Title,
		VendorName:       d.VendorName,
		VATID:            d.VATID,
		Department:       d.Department,
		CommodityGroupID: d.CommodityGroupID,
	}
	if d.TotalCost != nil {
		tc := decimal.NewFromFloat(*d.TotalCost)
		out.TotalCost = &tc
	}
	return out
}

func toLineEntities(lines []orderLineDTO) []entity.OrderLineCreate {
	out := make([]entity.OrderLineCreate, len(lines))
	for i, l := range lines {
		out[i] = entity.OrderLineCreate{
			Description: l.PositionDescription,
			UnitPrice:   decimal.NewFromFloat(l.UnitPrice),
			Amount:      decimal.NewFromFloat(l.Amount),
			Unit:        l.Unit,
			TotalPrice:  decimal.NewFromFloat(l.TotalPrice),
		}
	}
	return out
}
