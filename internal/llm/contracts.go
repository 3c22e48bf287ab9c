package llm

import "context"

// Role values for chat messages.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one chat message sent to the completion service.
type Message struct {
	Role    string
	Content string
}

// CompletionRequest is a single synchronous call against the completion
// service. JSONMode asks the provider to constrain output to a JSON object.
type CompletionRequest struct {
	Messages    []Message
	Temperature float32
	JSONMode    bool
}

// Client is the completion-service seam the engine and classifier depend on.
type Client interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// VisionClient is the optional image-capable seam used by the VAT fallback.
type VisionClient interface {
	CompleteVision(ctx context.Context, prompt string, imagePaths []string) (string, error)
}

// PageRenderer rasterizes document pages for the vision fallback.
// *doctext.Extractor satisfies it.
type PageRenderer interface {
	RenderPages(ctx context.Context, path string, maxPages int) ([]string, func(), error)
}

// OfferFields is the wire shape the model must produce for an offer.
type OfferFields struct {
	VendorName string       `json:"vendor_name"`
	VATID      *string      `json:"vat_id,omitempty"`
	Department *string      `json:"department,omitempty"`
	OrderLines []OfferLine  `json:"order_lines"`
	TotalCost  float64      `json:"total_cost"`
	Confidence float64      `json:"confidence,omitempty"` // model self-report (0..1)
}

// OfferLine is one order line as extracted from the document.
type OfferLine struct {
	PositionDescription string  `json:"position_description"`
	UnitPrice           float64 `json:"unit_price"`
	Amount              float64 `json:"amount"`
	Unit                string  `json:"unit"`
	TotalPrice          float64 `json:"total_price"`
}
