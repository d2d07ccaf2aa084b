package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"textlens/internal/common"
	"textlens/internal/entity"
	"textlens/internal/preprocess"
)

// scriptedEngine returns queued texts in call order.
type scriptedEngine struct {
	texts []string
	errs  []error
	calls int
}

func (e *scriptedEngine) Recognize(context.Context, string) (string, error) {
	i := e.calls
	e.calls++
	var err error
	if i < len(e.errs) {
		err = e.errs[i]
	}
	var text string
	if i < len(e.texts) {
		text = e.texts[i]
	}
	return text, err
}

// memRepo is an in-memory ImageRepository for pipeline tests.
type memRepo struct {
	records map[uuid.UUID]*entity.ImageRecord
}

func newMemRepo() *memRepo {
	return &memRepo{records: map[uuid.UUID]*entity.ImageRecord{}}
}

func (m *memRepo) Create(_ context.Context, imageRef, text string) (*entity.ImageRecord, error) {
	rec := &entity.ImageRecord{ID: uuid.New(), ImageRef: imageRef, Text: text, CreatedAt: time.Now().UTC()}
	m.records[rec.ID] = rec
	return rec, nil
}

func (m *memRepo) List(context.Context, int) ([]*entity.ImageRecord, error) {
	var out []*entity.ImageRecord
	for _, r := range m.records {
		out = append(out, r)
	}
	return out, nil
}

func (m *memRepo) SearchText(context.Context, string, int) ([]*entity.ImageRecord, error) {
	return nil, nil
}

func (m *memRepo) GetByID(_ context.Context, id uuid.UUID) (*entity.ImageRecord, error) {
	rec, ok := m.records[id]
	if !ok {
		return nil, fmt.Errorf("%w: image %s", common.ErrNotFound, id)
	}
	copied := *rec
	return &copied, nil
}

func (m *memRepo) UpdateText(_ context.Context, id uuid.UUID, text string) (*entity.ImageRecord, error) {
	rec, ok := m.records[id]
	if !ok {
		return nil, fmt.Errorf("%w: image %s", common.ErrNotFound, id)
	}
	rec.Text = text
	copied := *rec
	return &copied, nil
}

func (m *memRepo) Delete(_ context.Context, id uuid.UUID) (*entity.ImageRecord, error) {
	rec, ok := m.records[id]
	if !ok {
		return nil, fmt.Errorf("%w: image %s", common.ErrNotFound, id)
	}
	delete(m.records, id)
	return rec, nil
}

func writeTestImage(t *testing.T, dir, name string) string {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 64, 64))
	for i := range img.Pix {
		if i%2 == 0 {
			img.Pix[i] = 255
		}
	}
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create image: %v", err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("encode image: %v", err)
	}
	return path
}

func newTestPipeline(t *testing.T, engine *scriptedEngine, repo *memRepo, uploadDir string) *Pipeline {
	t.Helper()
	scratch := filepath.Join(t.TempDir(), "scratch")
	return New(preprocess.New(scratch, nil), engine, repo, uploadDir, nil)
}

func TestProcessBatchIndependence(t *testing.T) {
	dir := t.TempDir()
	good1 := writeTestImage(t, dir, "one.png")
	corrupt := filepath.Join(dir, "two.png")
	if err := os.WriteFile(corrupt, []byte("garbage"), 0o644); err != nil {
		t.Fatalf("write corrupt file: %v", err)
	}
	good2 := writeTestImage(t, dir, "three.png")

	engine := &scriptedEngine{texts: []string{"first text", "second text"}}
	repo := newMemRepo()
	pipe := newTestPipeline(t, engine, repo, dir)

	results := pipe.ProcessBatch(context.Background(), []BatchFile{
		{ImageRef: "one.png", Path: good1},
		{ImageRef: "two.png", Path: corrupt},
		{ImageRef: "three.png", Path: good2},
	})

	if len(results) != 3 {
		t.Fatalf("expected 3 outcomes, got %d", len(results))
	}
	if results[0].Status != StatusCompleted || results[0].Text != "first text" {
		t.Errorf("file 1: %+v", results[0])
	}
	if results[1].Status != StatusFailed || !errors.Is(results[1].Err, common.ErrInvalidImage) {
		t.Errorf("file 2 should fail with ErrInvalidImage: %+v", results[1])
	}
	if results[2].Status != StatusCompleted || results[2].Text != "second text" {
		t.Errorf("file 3 should complete despite sibling failure: %+v", results[2])
	}
	if len(repo.records) != 2 {
		t.Errorf("expected 2 persisted records, got %d", len(repo.records))
	}
}

func TestProcessEmptyTextSkips(t *testing.T) {
	dir := t.TempDir()
	src := writeTestImage(t, dir, "blank.png")

	engine := &scriptedEngine{texts: []string{"  \n\t "}}
	repo := newMemRepo()
	pipe := newTestPipeline(t, engine, repo, dir)

	res := pipe.Process(context.Background(), BatchFile{ImageRef: "blank.png", Path: src})
	if res.Status != StatusSkipped {
		t.Errorf("expected skipped, got %s (err=%v)", res.Status, res.Err)
	}
	if len(repo.records) != 0 {
		t.Errorf("expected no records for empty text, got %d", len(repo.records))
	}
}

func TestProcessOCRFailure(t *testing.T) {
	dir := t.TempDir()
	src := writeTestImage(t, dir, "img.png")

	engine := &scriptedEngine{errs: []error{fmt.Errorf("%w: engine crashed", common.ErrOCRFailure)}}
	repo := newMemRepo()
	pipe := newTestPipeline(t, engine, repo, dir)

	res := pipe.Process(context.Background(), BatchFile{ImageRef: "img.png", Path: src})
	if res.Status != StatusFailed || !errors.Is(res.Err, common.ErrOCRFailure) {
		t.Errorf("expected OCR failure outcome, got %+v", res)
	}
	if len(repo.records) != 0 {
		t.Errorf("expected no records after OCR failure, got %d", len(repo.records))
	}
}

func TestProcessCleansUpArtifacts(t *testing.T) {
	dir := t.TempDir()
	src := writeTestImage(t, dir, "img.png")
	scratch := filepath.Join(t.TempDir(), "scratch")

	engine := &scriptedEngine{texts: []string{"text"}}
	repo := newMemRepo()
	pipe := New(preprocess.New(scratch, nil), engine, repo, dir, nil)

	res := pipe.Process(context.Background(), BatchFile{ImageRef: "img.png", Path: src})
	if res.Status != StatusCompleted {
		t.Fatalf("expected completed, got %s (err=%v)", res.Status, res.Err)
	}

	entries, err := os.ReadDir(scratch)
	if err != nil {
		t.Fatalf("read scratch dir: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("expected scratch dir empty after processing, found %d entries", len(entries))
	}
}

func TestRegenerateUpdatesInPlace(t *testing.T) {
	dir := t.TempDir()
	src := writeTestImage(t, dir, "img.png")

	engine := &scriptedEngine{texts: []string{"old text", "new text"}}
	repo := newMemRepo()
	pipe := newTestPipeline(t, engine, repo, dir)

	res := pipe.Process(context.Background(), BatchFile{ImageRef: "img.png", Path: src})
	if res.Status != StatusCompleted {
		t.Fatalf("setup process failed: %+v", res)
	}
	orig := res.Record

	rec, updated, err := pipe.Regenerate(context.Background(), orig.ID)
	if err != nil {
		t.Fatalf("Regenerate failed: %v", err)
	}
	if !updated {
		t.Fatal("expected updated=true")
	}
	if rec.ID != orig.ID {
		t.Errorf("regeneration must update, not create: %s != %s", rec.ID, orig.ID)
	}
	if rec.Text != "new text" {
		t.Errorf("text = %q, want %q", rec.Text, "new text")
	}
	if len(repo.records) != 1 {
		t.Errorf("expected exactly 1 record, got %d", len(repo.records))
	}
}

func TestRegenerateEmptyTextLeavesRecord(t *testing.T) {
	dir := t.TempDir()
	src := writeTestImage(t, dir, "img.png")

	engine := &scriptedEngine{texts: []string{"original", ""}}
	repo := newMemRepo()
	pipe := newTestPipeline(t, engine, repo, dir)

	res := pipe.Process(context.Background(), BatchFile{ImageRef: "img.png", Path: src})
	if res.Status != StatusCompleted {
		t.Fatalf("setup process failed: %+v", res)
	}

	_, updated, err := pipe.Regenerate(context.Background(), res.Record.ID)
	if err != nil {
		t.Fatalf("Regenerate failed: %v", err)
	}
	if updated {
		t.Error("expected updated=false for empty regeneration")
	}

	stored, err := repo.GetByID(context.Background(), res.Record.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if stored.Text != "original" {
		t.Errorf("prior text must be untouched, got %q", stored.Text)
	}
}

func TestRegenerateMissingAsset(t *testing.T) {
	repo := newMemRepo()
	rec, _ := repo.Create(context.Background(), "gone.png", "text")

	engine := &scriptedEngine{}
	pipe := newTestPipeline(t, engine, repo, t.TempDir())

	if _, _, err := pipe.Regenerate(context.Background(), rec.ID); !errors.Is(err, common.ErrNotFound) {
		t.Errorf("expected ErrNotFound for missing asset, got %v", err)
	}
	if engine.calls != 0 {
		t.Errorf("engine must not run for a missing asset, ran %d times", engine.calls)
	}
}

func TestRegenerateUnknownRecord(t *testing.T) {
	pipe := newTestPipeline(t, &scriptedEngine{}, newMemRepo(), t.TempDir())
	if _, _, err := pipe.Regenerate(context.Background(), uuid.New()); !errors.Is(err, common.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestStoredFilenameUnique(t *testing.T) {
	a := StoredFilename("receipt.PNG")
	b := StoredFilename("receipt.PNG")
	if a == b {
		t.Errorf("expected unique names, both were %s", a)
	}
	if filepath.Ext(a) != ".png" {
		t.Errorf("expected lowercased extension, got %s", filepath.Ext(a))
	}
}
