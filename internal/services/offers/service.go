package offers

import (
	"context"
	"log/slog"
	"time"

	"github.com/procurehub/backend/internal/doctext"
	"github.com/procurehub/backend/internal/entity"
	"github.com/procurehub/backend/internal/reconcile"
	"github.com/procurehub/backend/internal/validation"
)

// TextExtractor is the document text layer seam.
type TextExtractor interface {
	Extract(ctx context.Context, path string) (doctext.Result, error)
}

// FieldExtractor is the structured extraction seam.
type FieldExtractor interface {
	ExtractOffer(ctx context.Context, text, sourcePath string) (entity.ExtractedData, error)
}

// ExtractionResult is what an offer upload yields: sanitized, reconciled
// field values ready to prefill a request form.
type ExtractionResult struct {
	Data           entity.ExtractedData `json:"data"`
	Method         string               `json:"method"`
	Pages          int                  `json:"pages"`
	CorrectedLines []int                `json:"corrected_lines,omitempty"`
	TotalAdjusted  bool                 `json:"total_adjusted"`
}

// Service turns an uploaded offer PDF into structured request fields.
type Service struct {
	doc     TextExtractor
	engine  FieldExtractor
	timeout time.Duration
	logger  *slog.Logger
}

func NewService(doc TextExtractor, engine FieldExtractor, timeout time.Duration, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	return &Service{doc: doc, engine: engine, timeout: timeout, logger: logger}
}

// ExtractFromPDF runs the full pipeline over a stored PDF: text layer (or
// OCR), structured extraction, sanitization, and arithmetic reconciliation.
func (s *Service) ExtractFromPDF(ctx context.Context, path string) (*ExtractionResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	doc, err := s.doc.Extract(ctx, path)
	if err != nil {
		return nil, err
	}

	data, err := s.engine.ExtractOffer(ctx, doc.Text, path)
	if err != nil {
		return nil, err
	}

	data = sanitizeExtracted(data)
	data, outcome := reconcile.Extracted(data)

	s.logger.Info("offer.extract.ok",
		"path", path,
		"method", doc.Method,
		"pages", doc.Pages,
		"lines", len(data.OrderLines),
		"confidence", data.Confidence,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return &ExtractionResult{
		Data:           data,
		Method:         doc.Method,
		Pages:          doc.Pages,
		CorrectedLines: outcome.CorrectedLines,
		TotalAdjusted:  outcome.TotalAdjusted,
	}, nil
}

// sanitizeExtracted scrubs model-produced text the same way interactive input
// is scrubbed. A VAT ID that does not survive format validation is dropped
// rather than handed to the form as a value that can never be saved.
func sanitizeExtracted(d entity.ExtractedData) entity.ExtractedData {
	d.VendorName = validation.SanitizeText(d.VendorName)

	if d.VATID != nil {
		if r := validation.ValidateVATID(*d.VATID); r.IsValid {
			d.VATID = &r.Sanitized
		} else {
			d.VATID = nil
			d.Warnings = append(d.Warnings, "vat_id dropped: "+r.Reason)
		}
	}
	if d.Department != nil {
		if r := validation.ValidateDepartment(*d.Department); r.IsValid {
			d.Department = &r.Sanitized
		} else {
			d.Department = nil
			d.Warnings = append(d.Warnings, "department dropped: "+r.Reason)
		}
	}
	for i := range d.OrderLines {
		d.OrderLines[i].Description = validation.SanitizeText(d.OrderLines[i].Description)
	}
	return d
}
