package validation

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/procurehub/backend/internal/entity"
)

func TestSanitizeText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "plain text untouched", input: "Dell Latitude 5540", want: "Dell Latitude 5540"},
		{name: "angle brackets removed", input: "<script>alert(1)</script>", want: "scriptalert(1)/script"},
		{name: "ampersand escaped", input: "R&D", want: "R&amp;D"},
		{name: "quotes escaped", input: `say "hi"`, want: "say &quot;hi&quot;"},
		{name: "single quote escaped", input: "it's", want: "it&#x27;s"},
		{name: "whitespace trimmed", input: "  padded  ", want: "padded"},
		{name: "empty stays empty", input: "", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeText(tt.input))
		})
	}
}

func TestSanitizeTextIdempotent(t *testing.T) {
	// extraction output is sanitized once by the offer pipeline and again when
	// the prefilled form is posted; a second pass must change nothing
	inputs := []string{
		"R&D",
		"R&amp;D",
		`Screens & "Sons" GmbH`,
		"it&#x27;s &quot;fine&quot;",
		"A &amp;&amp; B & C",
	}
	for _, in := range inputs {
		once := SanitizeText(in)
		assert.Equal(t, once, SanitizeText(once), "input %q", in)
	}
	assert.Equal(t, "R&amp;D", SanitizeText(SanitizeText("R&D")))
}

func TestSanitizeTextNeutralizesMarkup(t *testing.T) {
	out := SanitizeText(`<script>&'"`)
	assert.NotContains(t, out, "<")
	assert.NotContains(t, out, ">")
	assert.Contains(t, out, "&amp;")
	assert.Contains(t, out, "&#x27;")
	assert.Contains(t, out, "&quot;")
}

func TestValidateTextLength(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		r := ValidateTextLength("Laptop order Q3", 100, "title")
		assert.True(t, r.IsValid)
		assert.Equal(t, "Laptop order Q3", r.Sanitized)
	})

	t.Run("empty is required", func(t *testing.T) {
		r := ValidateTextLength("   ", 100, "title")
		assert.False(t, r.IsValid)
		assert.Equal(t, ReasonRequired, r.Reason)
		assert.Equal(t, "title is required", r.Error)
	})

	t.Run("too long truncates", func(t *testing.T) {
		r := ValidateTextLength(strings.Repeat("a", 120), 100, "title")
		assert.False(t, r.IsValid)
		assert.Equal(t, ReasonTooLong, r.Reason)
		assert.Len(t, r.Sanitized, 100)
	})
}

func TestValidateVATID(t *testing.T) {
	t.Run("lowercase is uppercased and valid", func(t *testing.T) {
		r := ValidateVATID("de123456789")
		assert.True(t, r.IsValid)
		assert.Equal(t, "DE123456789", r.Sanitized)
	})

	t.Run("empty is required", func(t *testing.T) {
		r := ValidateVATID("")
		assert.False(t, r.IsValid)
		assert.Equal(t, "VAT ID is required", r.Error)
	})

	t.Run("bad format keeps uppercased value", func(t *testing.T) {
		r := ValidateVATID("xyz12")
		assert.False(t, r.IsValid)
		assert.Equal(t, ReasonInvalidFormat, r.Reason)
		assert.Equal(t, "XYZ12", r.Sanitized)
	})

	t.Run("four letters twelve digits", func(t *testing.T) {
		r := ValidateVATID("ATUX123456789012")
		assert.True(t, r.IsValid)
	})

	t.Run("too many digits rejected", func(t *testing.T) {
		r := ValidateVATID("DE1234567890123")
		assert.False(t, r.IsValid)
	})
}

func TestValidateDepartment(t *testing.T) {
	t.Run("letters and punctuation pass", func(t *testing.T) {
		r := ValidateDepartment("Research (EMEA) - Ops.")
		assert.True(t, r.IsValid)
		assert.Equal(t, "Research (EMEA) - Ops.", r.Sanitized)
	})

	t.Run("digits stripped not rejected", func(t *testing.T) {
		r := ValidateDepartment("IT4you")
		assert.False(t, r.IsValid)
		assert.Equal(t, ReasonInvalidFormat, r.Reason)
		assert.Equal(t, "ITyou", r.Sanitized)
	})

	t.Run("ampersand survives escaped", func(t *testing.T) {
		r := ValidateDepartment("R&D")
		assert.True(t, r.IsValid)
		assert.Equal(t, "R&amp;D", r.Sanitized)
	})

	t.Run("already sanitized value re-validates unchanged", func(t *testing.T) {
		r := ValidateDepartment("R&amp;D")
		assert.True(t, r.IsValid)
		assert.Equal(t, "R&amp;D", r.Sanitized)
	})

	t.Run("over fifty runes truncated", func(t *testing.T) {
		r := ValidateDepartment(strings.Repeat("a", 60))
		assert.False(t, r.IsValid)
		assert.Equal(t, ReasonTooLong, r.Reason)
		assert.Len(t, []rune(r.Sanitized), MaxDepartmentLength)
	})

	t.Run("truncation never slices an entity", func(t *testing.T) {
		// the '&' sits at the cap; length is measured before escaping, so the
		// escaped entity survives whole instead of being cut to a bare '&'
		r := ValidateDepartment(strings.Repeat("a", MaxDepartmentLength-1) + "&xyz")
		assert.False(t, r.IsValid)
		assert.Equal(t, ReasonTooLong, r.Reason)
		assert.Equal(t, strings.Repeat("a", MaxDepartmentLength-1)+"&amp;", r.Sanitized)
	})
}

func TestValidateNumericInput(t *testing.T) {
	min := decimal.Zero
	max := decimal.NewFromInt(1000)

	t.Run("parses decimal", func(t *testing.T) {
		r := ValidateNumericInput("42.50", "unit price", min, max)
		assert.True(t, r.IsValid)
		assert.True(t, r.Sanitized.Equal(decimal.RequireFromString("42.50")))
	})

	t.Run("unparsable yields zero", func(t *testing.T) {
		r := ValidateNumericInput("abc", "unit price", min, max)
		assert.False(t, r.IsValid)
		assert.Equal(t, ReasonNotANumber, r.Reason)
		assert.True(t, r.Sanitized.IsZero())
	})

	t.Run("below min clamps up", func(t *testing.T) {
		r := ValidateNumericInput("-5", "amount", min, max)
		assert.False(t, r.IsValid)
		assert.Equal(t, ReasonTooSmall, r.Reason)
		assert.True(t, r.Sanitized.Equal(min))
	})

	t.Run("above max clamps down", func(t *testing.T) {
		r := ValidateNumericInput("5000", "amount", min, max)
		assert.False(t, r.IsValid)
		assert.Equal(t, ReasonTooLarge, r.Reason)
		assert.True(t, r.Sanitized.Equal(max))
	})
}

func TestValidatePositionDescription(t *testing.T) {
	r := ValidatePositionDescription("Adobe Creative Cloud, 12-month license")
	assert.True(t, r.IsValid)

	r = ValidatePositionDescription("")
	assert.False(t, r.IsValid)
	assert.Equal(t, ReasonRequired, r.Reason)

	r = ValidatePositionDescription(strings.Repeat("x", 600))
	assert.False(t, r.IsValid)
	assert.Len(t, r.Sanitized, MaxDescriptionLength)
}

func TestValidateUnit(t *testing.T) {
	t.Run("trims only, no escaping", func(t *testing.T) {
		r := ValidateUnit("  Stück ")
		assert.True(t, r.IsValid)
		assert.Equal(t, "Stück", r.Sanitized)
	})

	t.Run("empty fails", func(t *testing.T) {
		r := ValidateUnit("")
		assert.False(t, r.IsValid)
	})

	t.Run("long unit truncated to twenty", func(t *testing.T) {
		r := ValidateUnit(strings.Repeat("u", 30))
		assert.False(t, r.IsValid)
		assert.Equal(t, ReasonTooLong, r.Reason)
		assert.Len(t, []rune(r.Sanitized), MaxUnitLength)
	})
}

func TestValidateRequestCreate(t *testing.T) {
	vat := "de123456789"
	dept := "Finance"
	payload := entity.RequestCreate{
		RequestorName: " Ada Beck ",
		Title:         "Monitors",
		VendorName:    "Screens & Co",
		VATID:         &vat,
		Department:    &dept,
		TotalCost:     decimal.RequireFromString("599.80"),
		OrderLines: []entity.OrderLineCreate{
			{
				Description: "27in monitor",
				UnitPrice:   decimal.RequireFromString("299.90"),
				Amount:      decimal.NewFromInt(2),
				Unit:        "pieces",
				TotalPrice:  decimal.RequireFromString("599.80"),
			},
		},
	}

	sanitized, errs := ValidateRequestCreate(payload)
	require.Empty(t, errs)
	assert.Equal(t, "Ada Beck", sanitized.RequestorName)
	assert.Equal(t, "Screens &amp; Co", sanitized.VendorName)
	require.NotNil(t, sanitized.VATID)
	assert.Equal(t, "DE123456789", *sanitized.VATID)
}

func TestValidateRequestCreateCollectsAllErrors(t *testing.T) {
	bad := entity.RequestCreate{
		RequestorName: "",
		Title:         "",
		VendorName:    "ok vendor",
		TotalCost:     decimal.NewFromInt(-1),
		OrderLines: []entity.OrderLineCreate{
			{Description: "", Unit: "", UnitPrice: decimal.NewFromInt(-2)},
		},
	}

	sanitized, errs := ValidateRequestCreate(bad)
	fields := make(map[string]string, len(errs))
	for _, e := range errs {
		fields[e.Field] = e.Reason
	}
	assert.Equal(t, ReasonRequired, fields["requestor_name"])
	assert.Equal(t, ReasonRequired, fields["title"])
	assert.Equal(t, ReasonTooSmall, fields["total_cost"])
	assert.Equal(t, ReasonRequired, fields["order_lines[0].position_description"])
	assert.Equal(t, ReasonRequired, fields["order_lines[0].unit"])
	assert.Equal(t, ReasonTooSmall, fields["order_lines[0].unit_price"])

	// best-effort values are still usable
	assert.True(t, sanitized.TotalCost.IsZero())
	assert.True(t, sanitized.OrderLines[0].UnitPrice.IsZero())
}
