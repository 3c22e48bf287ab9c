package llm

import (
	"fmt"
	"strings"

	"github.com/procurehub/backend/internal/entity"
)

// BuildExtractionSystemPrompt composes the system message for offer
// extraction: role, field semantics, and strict formatting rules. The JSON
// Schema itself travels in a separate system message.
func BuildExtractionSystemPrompt() string {
	parts := []string{
		"You are an expert at extracting procurement information from vendor offers.",
		"Return ONLY JSON that matches the provided JSON Schema.",
		"Extract the vendor name, the VAT ID (Umsatzsteuer-Identifikationsnummer, usually 2-4 letters followed by 8-12 digits, e.g. DE123456789), and the requesting department if mentioned.",
		"Extract every order line with: position_description (clear item/service description), unit_price (price per unit), amount (quantity ordered), unit (unit of measure, e.g. \"licenses\", \"pieces\", \"hours\", \"Stück\"), total_price (total for the line).",
		"Extract total_cost as the overall total of all items.",
		"All numeric values WITHOUT currency symbols (no €, EUR, $).",
		"If an optional field cannot be found, use null. order_lines must have at least one item if this is a valid offer.",
		"Include a confidence between 0.0 and 1.0 reflecting how complete and clear the extraction was.",
	}
	return strings.Join(parts, " ")
}

// BuildExtractionUserPrompt wraps the offer text.
func BuildExtractionUserPrompt(text string) string {
	var b strings.Builder
	b.WriteString("Extract information from this vendor offer:\n\n")
	b.WriteString(text)
	return b.String()
}

// BuildCorrectionPrompt echoes the parse/validation error back to the model
// for the single corrective retry.
func BuildCorrectionPrompt(parseErr error) string {
	return fmt.Sprintf(
		"Your previous response did not match the required JSON Schema: %v. "+
			"Respond again with ONLY a JSON object that matches the schema exactly. "+
			"No prose, no markdown fences.", parseErr)
}

// FormatTaxonomy renders commodity groups as "id: category - name" lines,
// the exact shape the classifier prompt promises the model.
func FormatTaxonomy(groups []entity.CommodityGroup) string {
	lines := make([]string, len(groups))
	for i, g := range groups {
		lines[i] = fmt.Sprintf("%d: %s - %s", g.ID, g.Category, g.Name)
	}
	return strings.Join(lines, "\n")
}

// BuildClassificationSystemPrompt composes the classifier system message over
// the supplied taxonomy.
func BuildClassificationSystemPrompt(groups []entity.CommodityGroup) string {
	var b strings.Builder
	b.WriteString("You are an expert procurement specialist who can accurately classify purchase requests into commodity groups.\n\n")
	b.WriteString("Available Commodity Groups:\n")
	b.WriteString(FormatTaxonomy(groups))
	b.WriteString("\n\n")
	b.WriteString("Based on the request information provided, select the SINGLE most appropriate commodity group ID. ")
	b.WriteString("Consider the nature of the items or services, the vendor type, the order line descriptions, and the overall purpose of the request.\n\n")
	b.WriteString(`Return a JSON object with this exact structure:
{
  "commodity_group_id": number (the ID from the list above),
  "confidence": number (0.0 to 1.0, your confidence in this classification),
  "reasoning": "string (brief explanation of why this group was chosen)"
}
`)
	b.WriteString("\nYou MUST select one of the commodity group IDs from the list above. ")
	b.WriteString("If uncertain between multiple groups, choose the most specific and relevant one. ")
	b.WriteString("Confidence should reflect how well the request matches the chosen group.")
	return b.String()
}

// ClassifyInput is the request context handed to the classifier.
type ClassifyInput struct {
	Title             string
	VendorName        string
	Department        string
	OrderDescriptions []string
	TotalCost         string
}

// BuildClassificationUserPrompt packages the request context.
func BuildClassificationUserPrompt(in ClassifyInput) string {
	dept := in.Department
	if strings.TrimSpace(dept) == "" {
		dept = "Not specified"
	}

	var b strings.Builder
	b.WriteString("Please classify this procurement request:\n\n")
	fmt.Fprintf(&b, "Title: %s\n", in.Title)
	fmt.Fprintf(&b, "Vendor: %s\n", in.VendorName)
	fmt.Fprintf(&b, "Department: %s\n\n", dept)
	b.WriteString("Order Items:\n")
	for _, desc := range in.OrderDescriptions {
		fmt.Fprintf(&b, "- %s\n", desc)
	}
	if in.TotalCost != "" {
		fmt.Fprintf(&b, "\nTotal Cost: €%s\n", in.TotalCost)
	}
	return b.String()
}

// BuildTextClassificationUserPrompt is the ad-hoc variant for free text.
func BuildTextClassificationUserPrompt(text string) string {
	return "Classify this text: " + text
}

// BuildVATVisionPrompt asks the vision model for the VAT ID alone. Used when
// the text extraction came back without a plausible VAT ID (image-based
// footers, scanned documents).
func BuildVATVisionPrompt() string {
	return `Analyze these document images and extract the VAT ID (Umsatzsteuer-Identifikationsnummer).

VAT ID formats to look for:
- 2-4 letters followed by 8-12 digits (e.g. DE123456789)
- May be labeled as: "USt-IdNr", "USt-ID", "VAT ID", "Umsatzsteuer-ID", "UID"
- Often found in headers, footers, or company information sections

IMPORTANT:
- Return ONLY the VAT ID itself
- If you find multiple VAT IDs, return the one in the vendor/sender information
- If no VAT ID is found, return the text "NOT_FOUND"
- Do not include any other text, labels, or explanations`
}
