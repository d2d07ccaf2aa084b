package export

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"textlens/internal/entity"
)

type staticRepo struct {
	records []*entity.ImageRecord
}

func (r *staticRepo) Create(context.Context, string, string) (*entity.ImageRecord, error) {
	return nil, nil
}

func (r *staticRepo) List(context.Context, int) ([]*entity.ImageRecord, error) {
	return r.records, nil
}

func (r *staticRepo) SearchText(context.Context, string, int) ([]*entity.ImageRecord, error) {
	return nil, nil
}

func (r *staticRepo) GetByID(context.Context, uuid.UUID) (*entity.ImageRecord, error) {
	return nil, nil
}

func (r *staticRepo) UpdateText(context.Context, uuid.UUID, string) (*entity.ImageRecord, error) {
	return nil, nil
}

func (r *staticRepo) Delete(context.Context, uuid.UUID) (*entity.ImageRecord, error) {
	return nil, nil
}

func TestExportXLSX(t *testing.T) {
	created := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	recs := []*entity.ImageRecord{
		{ID: uuid.New(), ImageRef: "a.png", Text: "Nutrition Facts", CreatedAt: created},
		{ID: uuid.New(), ImageRef: "b.png", Text: "second", CreatedAt: created},
	}
	svc := NewService(&staticRepo{records: recs}, nil)

	data, err := svc.ExportXLSX(context.Background())
	if err != nil {
		t.Fatalf("ExportXLSX failed: %v", err)
	}

	wb, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("workbook did not open: %v", err)
	}
	defer wb.Close()

	header, err := wb.GetCellValue("Images", "A1")
	if err != nil {
		t.Fatalf("GetCellValue failed: %v", err)
	}
	if header != "ID" {
		t.Errorf("A1 = %q, want %q", header, "ID")
	}

	id, _ := wb.GetCellValue("Images", "A2")
	if id != recs[0].ID.String() {
		t.Errorf("A2 = %q, want record id %q", id, recs[0].ID)
	}
	text, _ := wb.GetCellValue("Images", "C2")
	if text != "Nutrition Facts" {
		t.Errorf("C2 = %q, want %q", text, "Nutrition Facts")
	}
	ref, _ := wb.GetCellValue("Images", "B3")
	if ref != "b.png" {
		t.Errorf("B3 = %q, want %q", ref, "b.png")
	}
}

func TestExportTruncatesLongText(t *testing.T) {
	long := make([]byte, 500)
	for i := range long {
		long[i] = 'a'
	}
	recs := []*entity.ImageRecord{
		{ID: uuid.New(), ImageRef: "a.png", Text: string(long), CreatedAt: time.Now()},
	}
	svc := NewService(&staticRepo{records: recs}, nil)

	data, err := svc.ExportXLSX(context.Background())
	if err != nil {
		t.Fatalf("ExportXLSX failed: %v", err)
	}
	wb, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("workbook did not open: %v", err)
	}
	defer wb.Close()

	text, _ := wb.GetCellValue("Images", "C2")
	if len([]rune(text)) > 140 {
		t.Errorf("expected text truncated to 140 chars, got %d", len([]rune(text)))
	}
}
