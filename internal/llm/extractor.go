package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/procurehub/backend/internal/common"
	"github.com/procurehub/backend/internal/entity"
)

// extractionAttempts bounds the retry-with-correction state machine:
// initial attempt, one corrective retry, terminal failure.
const extractionAttempts = 2

// visionFallbackPages limits how many pages the VAT vision fallback renders.
// VAT IDs live in headers and footers, so the first two pages are enough.
const visionFallbackPages = 2

// visionConfidencePenalty is applied when the VAT ID came from the vision
// fallback, which is less reliable than the text layer.
const visionConfidencePenalty = 0.95

var vatShape = regexp.MustCompile(`^[A-Z]{2,4}[0-9]{8,12}$`)

// EngineConfig holds the extraction engine knobs.
type EngineConfig struct {
	MaxInputChars int     // offer text budget; beyond it input is truncated and flagged
	Temperature   float32 // passed to the completion service
}

// Engine is the structured extraction engine: one schema-constrained
// completion call, local validation, at most one corrective retry, and a
// deterministic confidence score.
type Engine struct {
	client   Client
	vision   VisionClient // nil disables the VAT fallback
	renderer PageRenderer // nil disables the VAT fallback
	logger   *slog.Logger
	cfg      EngineConfig
}

func NewEngine(client Client, cfg EngineConfig, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxInputChars <= 0 {
		cfg.MaxInputChars = 48000
	}
	return &Engine{client: client, cfg: cfg, logger: logger}
}

// WithVisionFallback enables the vision-based VAT ID fallback. Both the
// vision client and the page renderer must be present for it to run.
func (e *Engine) WithVisionFallback(v VisionClient, r PageRenderer) *Engine {
	e.vision = v
	e.renderer = r
	return e
}

// ExtractOffer turns raw offer text into an ExtractedData record.
// sourcePath, when non-empty, points at the original PDF and enables the
// vision VAT fallback. The call is synchronous and bounded by ctx.
func (e *Engine) ExtractOffer(ctx context.Context, text, sourcePath string) (entity.ExtractedData, error) {
	reqID := uuid.New().String()
	start := time.Now()

	var warnings []string
	text, truncated := truncateInput(text, e.cfg.MaxInputChars)
	if truncated {
		warnings = append(warnings, common.CodeTruncatedInput)
		e.logger.Warn("llm.extract.input_truncated",
			"req_id", reqID, "budget_chars", e.cfg.MaxInputChars)
	}

	e.logger.Info("llm.extract.start",
		"req_id", reqID, "text_len", len(text), "has_source", sourcePath != "")

	fields, raw, err := e.extractWithRetry(ctx, reqID, text)
	if err != nil {
		e.logger.Error("llm.extract.failed",
			"req_id", reqID, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds())
		return entity.ExtractedData{}, err
	}

	usedVision := false
	if !plausibleVAT(fields.VATID) && sourcePath != "" {
		if vat, ok := e.vatFromVision(ctx, reqID, sourcePath); ok {
			fields.VATID = &vat
			usedVision = true
		}
	}

	confidence := CombineConfidence(HeuristicConfidence(fields), fields.Confidence)
	if usedVision {
		confidence = clamp01(confidence * visionConfidencePenalty)
	}

	out := toExtractedData(fields, confidence, warnings)
	e.logger.Info("llm.extract.ok",
		"req_id", reqID,
		"vendor", out.VendorName,
		"lines", len(out.OrderLines),
		"total_cost", out.TotalCost,
		"confidence", out.Confidence,
		"vat_via_vision", usedVision,
		"raw_bytes", len(raw),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}

// extractWithRetry is the bounded two-step attempt machine: the second
// attempt echoes the failure of the first back to the model; a second
// failure is terminal.
func (e *Engine) extractWithRetry(ctx context.Context, reqID, text string) (OfferFields, []byte, error) {
	schema := BuildOfferJSONSchema()
	messages := []Message{
		{Role: RoleSystem, Content: BuildExtractionSystemPrompt()},
		{Role: RoleSystem, Content: "JSON Schema:\n" + mustJSON(schema)},
		{Role: RoleUser, Content: BuildExtractionUserPrompt(text)},
	}

	var lastRaw []byte
	var lastErr error
	for attempt := 1; attempt <= extractionAttempts; attempt++ {
		content, err := e.client.Complete(ctx, CompletionRequest{
			Messages:    messages,
			Temperature: e.cfg.Temperature,
			JSONMode:    true,
		})
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				return OfferFields{}, lastRaw, common.NewAppError(common.CodeExtractionTimeout,
					"completion service timed out", err)
			}
			return OfferFields{}, lastRaw, common.NewAppError(common.CodeExtractionFailed,
				"completion service call failed", err)
		}

		raw := []byte(ExtractJSONObject(content))
		lastRaw = raw

		fields, parseErr := parseOfferFields(schema, raw, e.logger)
		if parseErr == nil {
			return fields, raw, nil
		}
		lastErr = parseErr

		e.logger.Warn("llm.extract.schema_validation_failed",
			"req_id", reqID, "attempt", attempt, "error", parseErr)

		// corrective re-prompt for the next (and only) retry
		messages = append(messages,
			Message{Role: RoleAssistant, Content: content},
			Message{Role: RoleUser, Content: BuildCorrectionPrompt(parseErr)},
		)
	}

	return OfferFields{}, lastRaw, common.NewAppError(common.CodeExtractionFailed,
		fmt.Sprintf("model output failed schema validation after corrective retry; raw output: %s",
			truncate(string(lastRaw), 2<<10)),
		lastErr)
}

// parseOfferFields validates raw against the schema (with one lenient
// normalization pass) and unmarshals it.
func parseOfferFields(schema map[string]any, raw []byte, logger *slog.Logger) (OfferFields, error) {
	candidate := raw
	if err := ValidateJSONAgainstSchema(schema, candidate); err != nil {
		cleaned, _, nErr := NormalizeOfferJSON(candidate, logger)
		if nErr != nil {
			return OfferFields{}, err
		}
		if vErr := ValidateJSONAgainstSchema(schema, cleaned); vErr != nil {
			return OfferFields{}, vErr
		}
		candidate = cleaned
	}

	var fields OfferFields
	if err := json.Unmarshal(candidate, &fields); err != nil {
		return OfferFields{}, fmt.Errorf("unmarshal fields: %w", err)
	}
	if len(fields.OrderLines) == 0 {
		return OfferFields{}, fmt.Errorf("order_lines must contain at least one well-typed line")
	}
	return fields, nil
}

// vatFromVision renders the first pages of the source document and asks the
// vision model for the VAT ID alone. Any failure simply disables the
// fallback; extraction proceeds without a VAT ID.
func (e *Engine) vatFromVision(ctx context.Context, reqID, sourcePath string) (string, bool) {
	if e.vision == nil || e.renderer == nil {
		return "", false
	}
	e.logger.Info("llm.extract.vat_vision_fallback", "req_id", reqID, "source", sourcePath)

	images, cleanup, err := e.renderer.RenderPages(ctx, sourcePath, visionFallbackPages)
	if err != nil {
		e.logger.Warn("llm.extract.vat_vision_render_failed", "req_id", reqID, "error", err)
		return "", false
	}
	defer cleanup()

	answer, err := e.vision.CompleteVision(ctx, BuildVATVisionPrompt(), images)
	if err != nil {
		e.logger.Warn("llm.extract.vat_vision_failed", "req_id", reqID, "error", err)
		return "", false
	}

	vat := strings.ToUpper(strings.TrimSpace(answer))
	if vat == "" || vat == "NOT_FOUND" || !vatShape.MatchString(vat) {
		e.logger.Info("llm.extract.vat_vision_no_match", "req_id", reqID)
		return "", false
	}
	e.logger.Info("llm.extract.vat_vision_ok", "req_id", reqID, "vat_id", vat)
	return vat, true
}

func plausibleVAT(vat *string) bool {
	return vat != nil && vatShape.MatchString(strings.ToUpper(strings.TrimSpace(*vat)))
}

// truncateInput cuts text to at most budget runes.
func truncateInput(text string, budget int) (string, bool) {
	runes := []rune(text)
	if len(runes) <= budget {
		return text, false
	}
	return string(runes[:budget]), true
}

func toExtractedData(f OfferFields, confidence float64, warnings []string) entity.ExtractedData {
	out := entity.ExtractedData{
		VendorName: strings.TrimSpace(f.VendorName),
		TotalCost:  decimal.NewFromFloat(f.TotalCost),
		Confidence: confidence,
		Warnings:   warnings,
	}
	if f.VATID != nil && strings.TrimSpace(*f.VATID) != "" {
		vat := strings.TrimSpace(*f.VATID)
		out.VATID = &vat
	}
	if f.Department != nil && strings.TrimSpace(*f.Department) != "" {
		dept := strings.TrimSpace(*f.Department)
		out.Department = &dept
	}
	out.OrderLines = make([]entity.OrderLineCreate, len(f.OrderLines))
	for i, line := range f.OrderLines {
		out.OrderLines[i] = entity.OrderLineCreate{
			Description: strings.TrimSpace(line.PositionDescription),
			UnitPrice:   decimal.NewFromFloat(line.UnitPrice),
			Amount:      decimal.NewFromFloat(line.Amount),
			Unit:        strings.TrimSpace(line.Unit),
			TotalPrice:  decimal.NewFromFloat(line.TotalPrice),
		}
	}
	return out
}

func mustJSON(v any) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "...(truncated)"
}
