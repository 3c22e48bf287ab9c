package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// Stable reason codes carried on failed validations.
const (
	ReasonRequired      = "REQUIRED"
	ReasonTooLong       = "TOO_LONG"
	ReasonInvalidFormat = "INVALID_FORMAT"
	ReasonNotANumber    = "NOT_A_NUMBER"
	ReasonTooSmall      = "TOO_SMALL"
	ReasonTooLarge      = "TOO_LARGE"
)

// Field length limits for request fields.
const (
	MaxRequestorNameLength = 100
	MaxTitleLength         = 200
	MaxVendorNameLength    = 200
	MaxDepartmentLength    = 50
	MaxDescriptionLength   = 500
	MaxUnitLength          = 20
)

// Result is the verdict for a text field. Sanitized is always usable, even
// when IsValid is false.
type Result struct {
	IsValid   bool
	Reason    string
	Error     string
	Sanitized string
}

// NumericResult is the verdict for a numeric field. Sanitized is the parsed
// (and possibly clamped) value, or zero when the input was not a number.
type NumericResult struct {
	IsValid   bool
	Reason    string
	Error     string
	Sanitized decimal.Decimal
}

func ok(sanitized string) Result {
	return Result{IsValid: true, Sanitized: sanitized}
}

func fail(reason, msg, sanitized string) Result {
	return Result{IsValid: false, Reason: reason, Error: msg, Sanitized: sanitized}
}

// ValidateTextLength sanitizes value and enforces non-emptiness and maxLength.
// On TOO_LONG the sanitized value is truncated so partial data stays usable.
func ValidateTextLength(value string, maxLength int, fieldName string) Result {
	s := SanitizeText(value)
	if s == "" {
		return fail(ReasonRequired, fmt.Sprintf("%s is required", fieldName), "")
	}
	if utf8.RuneCountInString(s) > maxLength {
		return fail(ReasonTooLong,
			fmt.Sprintf("%s must be at most %d characters", fieldName, maxLength),
			truncateRunes(s, maxLength))
	}
	return ok(s)
}

// vatIDPattern: 2-4 letters followed by 8-12 digits (e.g. DE123456789).
var vatIDPattern = regexp.MustCompile(`^[A-Z]{2,4}[0-9]{8,12}$`)

// ValidateVATID sanitizes and upper-cases value, then checks the VAT grammar.
// The upper-cased value is always returned, valid or not, so callers can show
// what was entered.
func ValidateVATID(value string) Result {
	s := strings.ToUpper(SanitizeText(value))
	if s == "" {
		return fail(ReasonRequired, "VAT ID is required", "")
	}
	if !vatIDPattern.MatchString(s) {
		return fail(ReasonInvalidFormat,
			"VAT ID must be 2-4 letters followed by 8-12 digits", s)
	}
	return ok(s)
}

func isDepartmentRune(r rune) bool {
	switch {
	case unicode.IsLetter(r), unicode.IsSpace(r):
		return true
	case r == '-' || r == '&' || r == '.' || r == '(' || r == ')':
		return true
	}
	return false
}

// ValidateDepartment allows only letters, whitespace, hyphen, ampersand,
// period and parentheses. Disallowed characters are stripped rather than
// rejected; the result is truncated to MaxDepartmentLength. Entities in the
// input are unescaped first so already-sanitized values re-validate cleanly,
// and the whitelist and the length cap both run before escaping, so an
// allowed '&' survives as a single escaped entity and truncation can never
// slice one apart.
func ValidateDepartment(value string) Result {
	raw := strings.TrimSpace(stripAngles(entityUnescaper.Replace(value)))
	kept := stripDisallowed(raw, isDepartmentRune)
	stripped := kept != raw

	truncated := false
	if utf8.RuneCountInString(kept) > MaxDepartmentLength {
		kept = truncateRunes(kept, MaxDepartmentLength)
		truncated = true
	}
	s := SanitizeText(kept)
	switch {
	case truncated:
		return fail(ReasonTooLong,
			fmt.Sprintf("department must be at most %d characters", MaxDepartmentLength), s)
	case stripped:
		return fail(ReasonInvalidFormat, "department contains disallowed characters", s)
	}
	return ok(s)
}

// ValidateNumericInput parses value as a decimal and clamps it to [min, max].
// Unparsable input fails with NOT_A_NUMBER and a sanitized value of zero;
// out-of-range input fails with the clamped value as the sanitized value.
func ValidateNumericInput(value string, fieldName string, min, max decimal.Decimal) NumericResult {
	d, err := decimal.NewFromString(strings.TrimSpace(value))
	if err != nil {
		return NumericResult{
			Reason:    ReasonNotANumber,
			Error:     fmt.Sprintf("%s must be a number", fieldName),
			Sanitized: decimal.Zero,
		}
	}
	if d.LessThan(min) {
		return NumericResult{
			Reason:    ReasonTooSmall,
			Error:     fmt.Sprintf("%s must be at least %s", fieldName, min),
			Sanitized: min,
		}
	}
	if d.GreaterThan(max) {
		return NumericResult{
			Reason:    ReasonTooLarge,
			Error:     fmt.Sprintf("%s must be at most %s", fieldName, max),
			Sanitized: max,
		}
	}
	return NumericResult{IsValid: true, Sanitized: d}
}

// ValidatePositionDescription sanitizes an order-line description; empty input
// fails, and anything beyond MaxDescriptionLength is truncated.
func ValidatePositionDescription(value string) Result {
	s := SanitizeText(value)
	if s == "" {
		return fail(ReasonRequired, "position description is required", "")
	}
	if utf8.RuneCountInString(s) > MaxDescriptionLength {
		return fail(ReasonTooLong,
			fmt.Sprintf("position description must be at most %d characters", MaxDescriptionLength),
			truncateRunes(s, MaxDescriptionLength))
	}
	return ok(s)
}

// ValidateUnit trims only (units like "Stück" or "m²" keep their characters);
// empty fails, and anything beyond MaxUnitLength is truncated.
func ValidateUnit(value string) Result {
	s := strings.TrimSpace(value)
	if s == "" {
		return fail(ReasonRequired, "unit is required", "")
	}
	if utf8.RuneCountInString(s) > MaxUnitLength {
		return fail(ReasonTooLong,
			fmt.Sprintf("unit must be at most %d characters", MaxUnitLength),
			truncateRunes(s, MaxUnitLength))
	}
	return ok(s)
}
