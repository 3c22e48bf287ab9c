// Package validation implements the field-level grammar enforced on any data
// entering a request, whether typed in manually or produced by extraction.
// Every validator is total: it returns a verdict plus a best-effort sanitized
// value, so callers choose between fail-fast and correct-and-proceed.
package validation

import (
	"strings"
)

// entities this package emits. An '&' opening one of these is already
// sanitized output and passes through unchanged.
var knownEntities = []string{"&amp;", "&quot;", "&#x27;"}

// SanitizeText strips '<' and '>' outright (removing, not escaping, so markup
// can never survive), entity-escapes '&', '"' and "'", and trims surrounding
// whitespace. The result is the canonical stored representation. Sanitized
// text flows through the pipeline more than once (extraction prefill, then
// request creation), so SanitizeText is idempotent: applying it to its own
// output changes nothing.
func SanitizeText(s string) string {
	s = stripAngles(s)
	s = escapeEntities(s)
	return strings.TrimSpace(s)
}

func escapeEntities(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '&':
			if opensEntity(s[i:]) {
				b.WriteByte('&')
				continue
			}
			b.WriteString("&amp;")
		case '"':
			b.WriteString("&quot;")
		case '\'':
			b.WriteString("&#x27;")
		default:
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

// entityUnescaper maps this package's entities back to their raw characters.
// Validators whose character whitelist would otherwise reject entity syntax
// normalize with it before filtering.
var entityUnescaper = strings.NewReplacer(
	"&amp;", "&",
	"&quot;", `"`,
	"&#x27;", "'",
)

func opensEntity(s string) bool {
	for _, e := range knownEntities {
		if strings.HasPrefix(s, e) {
			return true
		}
	}
	return false
}

// stripAngles removes '<' and '>' without any replacement.
func stripAngles(s string) string {
	s = strings.ReplaceAll(s, "<", "")
	return strings.ReplaceAll(s, ">", "")
}

// stripDisallowed keeps only runes matching keep. Used by validators that
// correct rather than reject on grammar violations.
func stripDisallowed(s string, keep func(r rune) bool) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if keep(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// truncateRunes cuts s to at most n runes.
func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
