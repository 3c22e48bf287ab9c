package llm

// BuildOfferJSONSchema returns a JSON-Schema (draft 2020-12 subset) as a
// generic map. We embed it in the prompt as a structured output constraint and
// also use it locally to validate the model's response.
func BuildOfferJSONSchema() map[string]any {
	lineProps := map[string]any{
		"position_description": map[string]any{"type": "string", "minLength": 1},
		"unit_price":           moneyProp(),
		"amount":               moneyProp(),
		"unit":                 map[string]any{"type": "string", "minLength": 1},
		"total_price":          moneyProp(),
	}

	props := map[string]any{
		"vendor_name": map[string]any{"type": "string", "minLength": 1},
		"vat_id":      map[string]any{"type": []string{"string", "null"}},
		"department":  map[string]any{"type": []string{"string", "null"}},
		"order_lines": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type":                 "object",
				"additionalProperties": false,
				"properties":           lineProps,
				"required":             []string{"position_description", "unit_price", "amount", "unit", "total_price"},
			},
		},
		"total_cost": moneyProp(),
		"confidence": map[string]any{"type": "number", "minimum": 0.0, "maximum": 1.0},
	}

	required := []string{"vendor_name", "order_lines", "total_cost"}

	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties":           props,
		"required":             required,
	}
}

func moneyProp() map[string]any {
	return map[string]any{"type": "number", "minimum": 0}
}
