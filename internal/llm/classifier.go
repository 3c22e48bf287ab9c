package llm

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/procurehub/backend/internal/common"
	"github.com/procurehub/backend/internal/entity"
)

// ReasoningRejected is the reasoning recorded when the model names a
// commodity group outside the supplied taxonomy.
const ReasoningRejected = "classification rejected: invalid group id"

// classificationWire is the JSON shape the classification prompt demands.
// The group id is kept raw because models answer with numbers, quoted
// numbers or null interchangeably.
type classificationWire struct {
	CommodityGroupID json.RawMessage `json:"commodity_group_id"`
	Confidence       float64         `json:"confidence"`
	Reasoning        string          `json:"reasoning"`
}

// Classifier assigns a commodity group from a fixed taxonomy. It never
// invents group ids: an answer outside the taxonomy is rejected and the
// request stays unclassified.
type Classifier struct {
	client      Client
	logger      *slog.Logger
	temperature float32
}

func NewClassifier(client Client, temperature float32, logger *slog.Logger) *Classifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Classifier{client: client, logger: logger, temperature: temperature}
}

// ClassifyRequest picks a commodity group for a procurement request using
// its title, vendor, department and order line descriptions.
func (c *Classifier) ClassifyRequest(ctx context.Context, in ClassifyInput, groups []entity.CommodityGroup) (entity.CommodityClassification, error) {
	return c.classify(ctx, BuildClassificationUserPrompt(in), groups)
}

// ClassifyText classifies a free-form description against the taxonomy.
func (c *Classifier) ClassifyText(ctx context.Context, text string, groups []entity.CommodityGroup) (entity.CommodityClassification, error) {
	return c.classify(ctx, BuildTextClassificationUserPrompt(text), groups)
}

func (c *Classifier) classify(ctx context.Context, userPrompt string, groups []entity.CommodityGroup) (entity.CommodityClassification, error) {
	reqID := uuid.New().String()
	start := time.Now()
	c.logger.Info("llm.classify.start", "req_id", reqID, "taxonomy_size", len(groups))

	content, err := c.client.Complete(ctx, CompletionRequest{
		Messages: []Message{
			{Role: RoleSystem, Content: BuildClassificationSystemPrompt(groups)},
			{Role: RoleUser, Content: userPrompt},
		},
		Temperature: c.temperature,
		JSONMode:    true,
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return rejected(), common.NewAppError(common.CodeClassificationTimeout,
				"classification call timed out", err)
		}
		return rejected(), common.NewAppError(common.CodeMalformedClassification,
			"classification call failed", err)
	}

	var wire classificationWire
	if err := json.Unmarshal([]byte(ExtractJSONObject(content)), &wire); err != nil {
		c.logger.Warn("llm.classify.malformed", "req_id", reqID, "error", err)
		return rejected(), common.NewAppError(common.CodeMalformedClassification,
			"classification response is not the expected JSON shape", err)
	}

	group, ok := lookupGroup(wire.CommodityGroupID, groups)
	if !ok {
		c.logger.Warn("llm.classify.invalid_group", "req_id", reqID, "group_id", string(wire.CommodityGroupID))
		return rejected(), common.NewAppError(common.CodeMalformedClassification,
			"model answered with a commodity group outside the taxonomy", nil)
	}

	out := entity.CommodityClassification{
		CommodityGroupID:   &group.ID,
		CommodityGroupName: group.Category + " - " + group.Name,
		Confidence:         clamp01(wire.Confidence),
		Reasoning:          strings.TrimSpace(wire.Reasoning),
	}
	c.logger.Info("llm.classify.ok",
		"req_id", reqID,
		"group_id", group.ID,
		"confidence", out.Confidence,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}

// rejected is the fail-closed classification: no group, zero confidence.
func rejected() entity.CommodityClassification {
	return entity.CommodityClassification{Confidence: 0, Reasoning: ReasoningRejected}
}

// lookupGroup resolves the id the model answered with against the taxonomy.
func lookupGroup(raw json.RawMessage, groups []entity.CommodityGroup) (entity.CommodityGroup, bool) {
	wanted := strings.TrimSpace(string(raw))
	if wanted == "" || wanted == "null" {
		return entity.CommodityGroup{}, false
	}
	// tolerate "12" as well as 12
	var parsed int64
	if err := json.Unmarshal(raw, &parsed); err != nil {
		var quoted string
		if err := json.Unmarshal(raw, &quoted); err != nil {
			return entity.CommodityGroup{}, false
		}
		var err2 error
		parsed, err2 = parseInt(quoted)
		if err2 != nil {
			return entity.CommodityGroup{}, false
		}
	}
	for _, g := range groups {
		if int64(g.ID) == parsed {
			return g, true
		}
	}
	return entity.CommodityGroup{}, false
}

func parseInt(s string) (int64, error) {
	return strconv.ParseInt(strings.TrimSpace(s), 10, 64)
}
