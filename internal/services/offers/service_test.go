package offers

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/procurehub/backend/internal/common"
	"github.com/procurehub/backend/internal/doctext"
	"github.com/procurehub/backend/internal/entity"
)

type stubDoc struct {
	result doctext.Result
	err    error
}

func (s *stubDoc) Extract(_ context.Context, _ string) (doctext.Result, error) {
	return s.result, s.err
}

type stubEngine struct {
	data entity.ExtractedData
	err  error
	text string
}

func (s *stubEngine) ExtractOffer(_ context.Context, text, _ string) (entity.ExtractedData, error) {
	s.text = text
	return s.data, s.err
}

func money(s string) decimal.Decimal {
	d, _ := decimal.NewFromString(s)
	return d
}

func strPtr(s string) *string { return &s }

func TestExtractFromPDF(t *testing.T) {
	doc := &stubDoc{result: doctext.Result{Text: "offer text", Pages: 2, Method: "pdf-text"}}
	engine := &stubEngine{data: entity.ExtractedData{
		VendorName: "ACME <b>Software</b> GmbH",
		VATID:      strPtr("de123456789"),
		TotalCost:  money("999.99"),
		Confidence: 0.8,
		OrderLines: []entity.OrderLineCreate{
			{Description: "Office license", UnitPrice: money("120.50"), Amount: money("10"), Unit: "licenses", TotalPrice: money("999.99")},
		},
	}}
	svc := NewService(doc, engine, 0, nil)

	out, err := svc.ExtractFromPDF(context.Background(), "/tmp/offer.pdf")
	require.NoError(t, err)

	assert.Equal(t, "offer text", engine.text)
	assert.Equal(t, "pdf-text", out.Method)
	assert.Equal(t, 2, out.Pages)

	// markup scrubbed, VAT normalized
	assert.Equal(t, "ACME bSoftware/b GmbH", out.Data.VendorName)
	require.NotNil(t, out.Data.VATID)
	assert.Equal(t, "DE123456789", *out.Data.VATID)

	// line totals recomputed from unit_price * amount
	assert.True(t, out.Data.OrderLines[0].TotalPrice.Equal(money("1205.00")))
	assert.True(t, out.Data.TotalCost.Equal(money("1205.00")))
	assert.Contains(t, out.CorrectedLines, 0)
	assert.True(t, out.TotalAdjusted)
}

func TestExtractFromPDFDropsBadVAT(t *testing.T) {
	doc := &stubDoc{result: doctext.Result{Text: "offer text", Pages: 1, Method: "pdf-ocr"}}
	engine := &stubEngine{data: entity.ExtractedData{
		VendorName: "ACME",
		VATID:      strPtr("XYZ12"),
		TotalCost:  money("1"),
		OrderLines: []entity.OrderLineCreate{
			{Description: "Thing", UnitPrice: money("1"), Amount: money("1"), Unit: "pieces", TotalPrice: money("1")},
		},
	}}
	svc := NewService(doc, engine, 0, nil)

	out, err := svc.ExtractFromPDF(context.Background(), "/tmp/offer.pdf")
	require.NoError(t, err)
	assert.Nil(t, out.Data.VATID)
	require.NotEmpty(t, out.Data.Warnings)
	assert.Contains(t, out.Data.Warnings[0], "vat_id dropped")
}

func TestExtractFromPDFUnreadable(t *testing.T) {
	doc := &stubDoc{err: common.NewAppError(common.CodeUnreadableDocument, "no text", nil)}
	svc := NewService(doc, &stubEngine{}, 0, nil)

	_, err := svc.ExtractFromPDF(context.Background(), "/tmp/offer.pdf")
	require.Error(t, err)
	assert.True(t, common.IsCode(err, common.CodeUnreadableDocument))
}
