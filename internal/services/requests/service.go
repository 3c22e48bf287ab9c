package requests

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/procurehub/backend/constants"
	"github.com/procurehub/backend/internal/common"
	"github.com/procurehub/backend/internal/entity"
	"github.com/procurehub/backend/internal/llm"
	"github.com/procurehub/backend/internal/reconcile"
	"github.com/procurehub/backend/internal/repository"
	"github.com/procurehub/backend/internal/validation"
)

// Classifier is the taxonomy classification seam.
type Classifier interface {
	ClassifyRequest(ctx context.Context, in llm.ClassifyInput, groups []entity.CommodityGroup) (entity.CommodityClassification, error)
	ClassifyText(ctx context.Context, text string, groups []entity.CommodityGroup) (entity.CommodityClassification, error)
}

// ValidationError carries per-field failures to the transport layer.
type ValidationError struct {
	Fields []validation.FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Field + ": " + f.Message
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Service handles the procurement request workflow.
type Service struct {
	repo            repository.RequestRepository
	groups          repository.CommodityGroupRepository
	history         repository.StatusHistoryRepository
	classifier      Classifier
	classifyTimeout time.Duration
	logger          *slog.Logger
}

// NewService creates a new request service. classifier may be nil, in which
// case requests are created unclassified.
func NewService(
	repo repository.RequestRepository,
	groups repository.CommodityGroupRepository,
	history repository.StatusHistoryRepository,
	classifier Classifier,
	classifyTimeout time.Duration,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if classifyTimeout <= 0 {
		classifyTimeout = 30 * time.Second
	}
	return &Service{
		repo:            repo,
		groups:          groups,
		history:         history,
		classifier:      classifier,
		classifyTimeout: classifyTimeout,
		logger:          logger,
	}
}

// CreateOptions carries offer provenance alongside the create payload.
type CreateOptions struct {
	OfferPath     *string
	OfferFilename *string
}

// Create validates and reconciles the payload, persists the request in the
// Open state, records the initial status history row, and classifies the
// request when no commodity group was supplied. Classification failures never
// block creation; the request just stays unclassified.
func (s *Service) Create(ctx context.Context, p entity.RequestCreate, opts CreateOptions) (*entity.Request, error) {
	sanitized, fieldErrs := validation.ValidateRequestCreate(p)
	if len(fieldErrs) > 0 {
		return nil, &ValidationError{Fields: fieldErrs}
	}

	outcome := reconcile.Request(sanitized)
	if len(outcome.CorrectedLines) > 0 || outcome.TotalAdjusted {
		s.logger.Info("request.create.reconciled",
			"corrected_lines", outcome.CorrectedLines,
			"total_adjusted", outcome.TotalAdjusted)
	}
	sanitized = outcome.Payload

	if sanitized.CommodityGroupID != nil {
		if _, err := s.groups.GetByID(ctx, *sanitized.CommodityGroupID); err != nil {
			return nil, &ValidationError{Fields: []validation.FieldError{{
				Field:   "commodity_group_id",
				Reason:  validation.ReasonInvalidFormat,
				Message: fmt.Sprintf("commodity group %d does not exist", *sanitized.CommodityGroupID),
			}}}
		}
	}

	req := &entity.Request{
		RequestorName:    sanitized.RequestorName,
		Title:            sanitized.Title,
		VendorName:       sanitized.VendorName,
		VATID:            sanitized.VATID,
		Department:       sanitized.Department,
		CommodityGroupID: sanitized.CommodityGroupID,
		TotalCost:        sanitized.TotalCost,
		Status:           constants.StatusOpen,
		OfferPath:        opts.OfferPath,
		OfferFilename:    opts.OfferFilename,
	}
	for _, l := range sanitized.OrderLines {
		req.OrderLines = append(req.OrderLines, entity.OrderLine{
			Description: l.Description, UnitPrice: l.UnitPrice,
			Amount: l.Amount, Unit: l.Unit, TotalPrice: l.TotalPrice,
		})
	}

	created, err := s.repo.Create(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := s.history.Append(ctx, created.ID, nil, string(constants.StatusOpen)); err != nil {
		s.logger.Error("request.create.history_failed", "request_id", created.ID, "error", err)
	}

	if created.CommodityGroupID == nil {
		s.autoClassify(ctx, created)
	}

	s.logger.Info("request.create.ok",
		"request_id", created.ID,
		"vendor", created.VendorName,
		"total_cost", created.TotalCost,
		"classified", created.CommodityGroupID != nil)
	return created, nil
}

// autoClassify assigns a commodity group best-effort. Any failure leaves the
// request unclassified.
func (s *Service) autoClassify(ctx context.Context, req *entity.Request) {
	if s.classifier == nil {
		return
	}
	groups, err := s.groups.List(ctx)
	if err != nil || len(groups) == 0 {
		s.logger.Warn("request.classify.taxonomy_unavailable", "request_id", req.ID, "error", err)
		return
	}

	cctx, cancel := common.WithTimeout(ctx, s.classifyTimeout)
	defer cancel()

	in := llm.ClassifyInput{
		Title:      req.Title,
		VendorName: req.VendorName,
		TotalCost:  req.TotalCost.StringFixed(2),
	}
	if req.Department != nil {
		in.Department = *req.Department
	}
	for _, l := range req.OrderLines {
		in.OrderDescriptions = append(in.OrderDescriptions, l.Description)
	}

	result, err := s.classifier.ClassifyRequest(cctx, in, groups)
	if err != nil {
		s.logger.Warn("request.classify.failed", "request_id", req.ID, "error", err)
		return
	}

	if err := s.repo.UpdateClassification(ctx, req.ID, result.CommodityGroupID, &result.Confidence); err != nil {
		s.logger.Error("request.classify.persist_failed", "request_id", req.ID, "error", err)
		return
	}
	req.CommodityGroupID = result.CommodityGroupID
	req.CommodityGroupConfidence = &result.Confidence
	s.logger.Info("request.classify.ok",
		"request_id", req.ID,
		"group_id", *result.CommodityGroupID,
		"confidence", result.Confidence)
}

func (s *Service) Get(ctx context.Context, id int64) (*entity.Request, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, filter repository.RequestFilter) ([]*entity.Request, error) {
	return s.repo.List(ctx, filter)
}

// Update applies a partial update after re-validating the supplied fields.
func (s *Service) Update(ctx context.Context, id int64, upd entity.RequestUpdate) (*entity.Request, error) {
	sanitized, fieldErrs := validation.ValidateRequestUpdate(upd)
	if len(fieldErrs) > 0 {
		return nil, &ValidationError{Fields: fieldErrs}
	}
	if sanitized.CommodityGroupID != nil {
		if _, err := s.groups.GetByID(ctx, *sanitized.CommodityGroupID); err != nil {
			return nil, &ValidationError{Fields: []validation.FieldError{{
				Field:   "commodity_group_id",
				Reason:  validation.ReasonInvalidFormat,
				Message: fmt.Sprintf("commodity group %d does not exist", *sanitized.CommodityGroupID),
			}}}
		}
	}
	return s.repo.Update(ctx, id, sanitized)
}

// ReplaceOrderLines swaps the order lines of a request and reconciles the
// total from the new lines.
func (s *Service) ReplaceOrderLines(ctx context.Context, id int64, lines []entity.OrderLineCreate) (*entity.Request, error) {
	var fieldErrs []validation.FieldError
	sanitized := make([]entity.OrderLineCreate, len(lines))
	for i, line := range lines {
		clean, errs := validation.ValidateOrderLine(line, i)
		sanitized[i] = clean
		fieldErrs = append(fieldErrs, errs...)
	}
	if len(fieldErrs) > 0 {
		return nil, &ValidationError{Fields: fieldErrs}
	}

	outcome := reconcile.Request(entity.RequestCreate{OrderLines: sanitized})
	return s.repo.ReplaceOrderLines(ctx, id, outcome.Payload.OrderLines, outcome.Payload.TotalCost)
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}

// UpdateStatus moves a request through the approval workflow. Only forward
// transitions are allowed and every change lands in the audit trail.
func (s *Service) UpdateStatus(ctx context.Context, id int64, next constants.RequestStatus) (*entity.Request, error) {
	if !constants.IsValidStatus(string(next)) {
		return nil, common.NewAppError(common.CodeInvalidTransition,
			fmt.Sprintf("unknown status %q", next), nil)
	}

	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !constants.CanTransition(current.Status, next) {
		return nil, common.NewAppError(common.CodeInvalidTransition,
			fmt.Sprintf("cannot transition from %q to %q", current.Status, next), nil)
	}

	updated, err := s.repo.UpdateStatus(ctx, id, next)
	if err != nil {
		return nil, err
	}
	old := string(current.Status)
	if err := s.history.Append(ctx, id, &old, string(next)); err != nil {
		s.logger.Error("request.status.history_failed", "request_id", id, "error", err)
	}
	s.logger.Info("request.status.ok", "request_id", id, "from", old, "to", string(next))
	return updated, nil
}

// History returns the status audit trail of a request.
func (s *Service) History(ctx context.Context, id int64) ([]entity.StatusHistory, error) {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return s.history.ListForRequest(ctx, id)
}

// ClassifyText classifies free text against the commodity taxonomy without
// touching any stored request.
func (s *Service) ClassifyText(ctx context.Context, text string) (entity.CommodityClassification, error) {
	if s.classifier == nil {
		return entity.CommodityClassification{}, common.WrapError(common.ErrInternal, "classifier not configured")
	}
	groups, err := s.groups.List(ctx)
	if err != nil {
		return entity.CommodityClassification{}, err
	}

	cctx, cancel := common.WithTimeout(ctx, s.classifyTimeout)
	defer cancel()
	return s.classifier.ClassifyText(cctx, validation.SanitizeText(text), groups)
}

// ListCommodityGroups exposes the taxonomy.
func (s *Service) ListCommodityGroups(ctx context.Context) ([]entity.CommodityGroup, error) {
	return s.groups.List(ctx)
}

// GetCommodityGroup returns a single taxonomy entry.
func (s *Service) GetCommodityGroup(ctx context.Context, id int32) (*entity.CommodityGroup, error) {
	return s.groups.GetByID(ctx, id)
}

// SearchCommodityGroups filters the taxonomy by a name or category substring.
// An empty query returns the full taxonomy.
func (s *Service) SearchCommodityGroups(ctx context.Context, query string) ([]entity.CommodityGroup, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return s.groups.List(ctx)
	}
	return s.groups.Search(ctx, query)
}
