package export

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/procurehub/backend/internal/entity"
	"github.com/procurehub/backend/internal/repository"
)

// Service is a tiny façade over the request repository that produces XLSX
// bytes for exports.
type Service struct {
	requests repository.RequestRepository
	groups   repository.CommodityGroupRepository
	logger   *slog.Logger
}

func NewService(requests repository.RequestRepository, groups repository.CommodityGroupRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{requests: requests, groups: groups, logger: logger}
}

// ExportRequestsXLSX returns an XLSX workbook (as bytes) for the requests
// matching the filter, one row per request.
func (s *Service) ExportRequestsXLSX(ctx context.Context, filter repository.RequestFilter) ([]byte, error) {
	start := time.Now()

	reqs, err := s.requests.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("query requests: %w", err)
	}

	groupNames := map[int32]string{}
	if groups, err := s.groups.List(ctx); err == nil {
		for _, g := range groups {
			groupNames[g.ID] = g.Category + " - " + g.Name
		}
	}

	f := excelize.NewFile()
	const sheet = "Requests"
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, err
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)

	headers := []string{
		"ID",
		"Created",
		"Requestor",
		"Title",
		"Vendor",
		"VAT ID",
		"Department",
		"Commodity Group",
		"Order Lines",
		"Total Cost",
		"Status",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	row := 2
	for _, r := range reqs {
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}

		write(1, r.ID)
		write(2, r.CreatedAt.Format("2006-01-02"))
		write(3, r.RequestorName)
		write(4, r.Title)
		write(5, r.VendorName)
		if r.VATID != nil {
			write(6, *r.VATID)
		}
		if r.Department != nil {
			write(7, *r.Department)
		}
		if r.CommodityGroupID != nil {
			if name, ok := groupNames[*r.CommodityGroupID]; ok {
				write(8, name)
			} else {
				write(8, fmt.Sprintf("%d", *r.CommodityGroupID))
			}
		}
		write(9, summarizeLines(r.OrderLines))
		write(10, r.TotalCost.StringFixed(2))
		write(11, string(r.Status))

		row++
	}

	_ = f.SetColWidth(sheet, "A", "A", 8)
	_ = f.SetColWidth(sheet, "B", "B", 12)
	_ = f.SetColWidth(sheet, "C", "E", 26)
	_ = f.SetColWidth(sheet, "F", "G", 16)
	_ = f.SetColWidth(sheet, "H", "H", 30)
	_ = f.SetColWidth(sheet, "I", "I", 50)
	_ = f.SetColWidth(sheet, "J", "K", 14)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"rows", len(reqs),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

// summarizeLines renders order lines into one readable cell.
func summarizeLines(lines []entity.OrderLine) string {
	out := ""
	for i, l := range lines {
		if i > 0 {
			out += "; "
		}
		out += fmt.Sprintf("%s x%s %s", l.Description, l.Amount.String(), l.Unit)
	}
	return truncate(out, 200)
}

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	if n <= 1 {
		return s[:n]
	}
	return s[:n-1] + "…"
}
