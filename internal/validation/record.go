package validation

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/procurehub/backend/internal/entity"
)

// FieldError is one recoverable validation failure on a named field.
type FieldError struct {
	Field   string `json:"field"`
	Reason  string `json:"reason"`
	Message string `json:"message"`
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s (%s)", e.Field, e.Message, e.Reason)
}

// maxMoney bounds every monetary input. Anything above is clamped.
var maxMoney = decimal.NewFromInt(1_000_000_000)

// ValidateRequestCreate sanitizes every field of a request payload and
// collects failures. The returned payload always carries best-effort
// sanitized values; callers decide policy: interactive entry adopts the
// corrected values and warns, extraction ingestion rejects the whole record
// when any error is present.
func ValidateRequestCreate(p entity.RequestCreate) (entity.RequestCreate, []FieldError) {
	var errs []FieldError
	out := p

	r := ValidateTextLength(p.RequestorName, MaxRequestorNameLength, "requestor name")
	out.RequestorName = r.Sanitized
	errs = collect(errs, "requestor_name", r)

	r = ValidateTextLength(p.Title, MaxTitleLength, "title")
	out.Title = r.Sanitized
	errs = collect(errs, "title", r)

	r = ValidateTextLength(p.VendorName, MaxVendorNameLength, "vendor name")
	out.VendorName = r.Sanitized
	errs = collect(errs, "vendor_name", r)

	if p.VATID != nil && *p.VATID != "" {
		r = ValidateVATID(*p.VATID)
		out.VATID = strPtr(r.Sanitized)
		errs = collect(errs, "vat_id", r)
	} else {
		out.VATID = nil
	}

	if p.Department != nil && *p.Department != "" {
		r = ValidateDepartment(*p.Department)
		out.Department = strPtr(r.Sanitized)
		errs = collect(errs, "department", r)
	} else {
		out.Department = nil
	}

	n := clampMoney(p.TotalCost, "total cost")
	out.TotalCost = n.Sanitized
	errs = collectNumeric(errs, "total_cost", n)

	out.OrderLines = make([]entity.OrderLineCreate, len(p.OrderLines))
	for i, line := range p.OrderLines {
		sanitized, lineErrs := ValidateOrderLine(line, i)
		out.OrderLines[i] = sanitized
		errs = append(errs, lineErrs...)
	}

	return out, errs
}

// ValidateRequestUpdate sanitizes the fields present in a partial update.
// Absent fields stay absent.
func ValidateRequestUpdate(p entity.RequestUpdate) (entity.RequestUpdate, []FieldError) {
	var errs []FieldError
	out := p

	if p.RequestorName != nil {
		r := ValidateTextLength(*p.RequestorName, MaxRequestorNameLength, "requestor name")
		out.RequestorName = strPtr(r.Sanitized)
		errs = collect(errs, "requestor_name", r)
	}
	if p.Title != nil {
		r := ValidateTextLength(*p.Title, MaxTitleLength, "title")
		out.Title = strPtr(r.Sanitized)
		errs = collect(errs, "title", r)
	}
	if p.VendorName != nil {
		r := ValidateTextLength(*p.VendorName, MaxVendorNameLength, "vendor name")
		out.VendorName = strPtr(r.Sanitized)
		errs = collect(errs, "vendor_name", r)
	}
	if p.VATID != nil && *p.VATID != "" {
		r := ValidateVATID(*p.VATID)
		out.VATID = strPtr(r.Sanitized)
		errs = collect(errs, "vat_id", r)
	}
	if p.Department != nil && *p.Department != "" {
		r := ValidateDepartment(*p.Department)
		out.Department = strPtr(r.Sanitized)
		errs = collect(errs, "department", r)
	}
	if p.TotalCost != nil {
		n := clampMoney(*p.TotalCost, "total cost")
		out.TotalCost = &n.Sanitized
		errs = collectNumeric(errs, "total_cost", n)
	}

	return out, errs
}

// ValidateOrderLine sanitizes one order line. idx is used for error paths.
func ValidateOrderLine(line entity.OrderLineCreate, idx int) (entity.OrderLineCreate, []FieldError) {
	var errs []FieldError
	out := line
	prefix := fmt.Sprintf("order_lines[%d]", idx)

	r := ValidatePositionDescription(line.Description)
	out.Description = r.Sanitized
	errs = collect(errs, prefix+".position_description", r)

	r = ValidateUnit(line.Unit)
	out.Unit = r.Sanitized
	errs = collect(errs, prefix+".unit", r)

	n := clampMoney(line.UnitPrice, "unit price")
	out.UnitPrice = n.Sanitized
	errs = collectNumeric(errs, prefix+".unit_price", n)

	n = clampMoney(line.Amount, "amount")
	out.Amount = n.Sanitized
	errs = collectNumeric(errs, prefix+".amount", n)

	n = clampMoney(line.TotalPrice, "total price")
	out.TotalPrice = n.Sanitized
	errs = collectNumeric(errs, prefix+".total_price", n)

	return out, errs
}

// clampMoney runs the numeric grammar over an already-parsed decimal.
func clampMoney(d decimal.Decimal, fieldName string) NumericResult {
	return ValidateNumericInput(d.String(), fieldName, decimal.Zero, maxMoney)
}

func collect(errs []FieldError, field string, r Result) []FieldError {
	if r.IsValid {
		return errs
	}
	return append(errs, FieldError{Field: field, Reason: r.Reason, Message: r.Error})
}

func collectNumeric(errs []FieldError, field string, r NumericResult) []FieldError {
	if r.IsValid {
		return errs
	}
	return append(errs, FieldError{Field: field, Reason: r.Reason, Message: r.Error})
}

func strPtr(s string) *string { return &s }
