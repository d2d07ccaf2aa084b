package export

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"textlens/internal/repository"
)

// Service produces XLSX bytes for record exports.
type Service struct {
	repo   repository.ImageRepository
	logger *slog.Logger
}

func NewService(repo repository.ImageRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger}
}

// ExportXLSX returns a workbook of the most recent records (capped at the
// repository list limit).
func (s *Service) ExportXLSX(ctx context.Context) ([]byte, error) {
	start := time.Now()

	recs, err := s.repo.List(ctx, repository.MaxListLimit)
	if err != nil {
		return nil, fmt.Errorf("query images: %w", err)
	}

	f := excelize.NewFile()
	const sheet = "Images"
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, err
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)

	headers := []string{"ID", "Image", "Extracted Text", "Created At"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	row := 2
	for _, rec := range recs {
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}
		write(1, rec.ID.String())
		write(2, rec.ImageRef)
		write(3, truncate(rec.Text, 140))
		write(4, rec.CreatedAt.Format(time.RFC3339))
		row++
	}

	_ = f.SetColWidth(sheet, "A", "A", 38) // uuid
	_ = f.SetColWidth(sheet, "B", "B", 40) // asset name
	_ = f.SetColWidth(sheet, "C", "C", 60) // text
	_ = f.SetColWidth(sheet, "D", "D", 22) // timestamp

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"rows", len(recs),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
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
