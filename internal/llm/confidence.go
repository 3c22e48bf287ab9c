package llm

import "strings"

// requiredFieldCount is the denominator of the extraction confidence
// heuristic: vendor_name, vat_id, department, total_cost, and at least one
// order line each contribute 1/5.
const requiredFieldCount = 5

// HeuristicConfidence scores extraction completeness deterministically from
// the parsed output. It is a known approximation: a present order line with a
// wrong unit still counts as present. Model-reported confidence is additive
// evidence only; its absence must not change this score.
func HeuristicConfidence(f OfferFields) float64 {
	present := 0
	if strings.TrimSpace(f.VendorName) != "" {
		present++
	}
	if f.VATID != nil && strings.TrimSpace(*f.VATID) != "" {
		present++
	}
	if f.Department != nil && strings.TrimSpace(*f.Department) != "" {
		present++
	}
	if f.TotalCost > 0 {
		present++
	}
	if len(f.OrderLines) > 0 {
		present++
	}
	return clamp01(float64(present) / requiredFieldCount)
}

// CombineConfidence caps the heuristic with the model's self-report when one
// was given. The self-report can only lower the score, never raise it.
func CombineConfidence(heuristic, modelReported float64) float64 {
	if modelReported > 0 && modelReported < heuristic {
		return clamp01(modelReported)
	}
	return clamp01(heuristic)
}

func clamp01(f float64) float64 {
	switch {
	case f < 0:
		return 0
	case f > 1:
		return 1
	}
	return f
}
