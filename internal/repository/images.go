package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"textlens/internal/common"
	"textlens/internal/entity"
)

// MaxListLimit caps every list/search operation; callers wanting more
// must narrow the query.
const MaxListLimit = 100

type ImageRepository interface {
	Create(ctx context.Context, imageRef, text string) (*entity.ImageRecord, error)
	List(ctx context.Context, limit int) ([]*entity.ImageRecord, error)
	SearchText(ctx context.Context, query string, limit int) ([]*entity.ImageRecord, error)
	GetByID(ctx context.Context, id uuid.UUID) (*entity.ImageRecord, error)
	UpdateText(ctx context.Context, id uuid.UUID, text string) (*entity.ImageRecord, error)
	Delete(ctx context.Context, id uuid.UUID) (*entity.ImageRecord, error)
}

type imageRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewImageRepository(db *sql.DB, logger *slog.Logger) ImageRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &imageRepository{
		db:     db,
		logger: logger,
	}
}

func (r *imageRepository) Create(ctx context.Context, imageRef, text string) (*entity.ImageRecord, error) {
	rec := &entity.ImageRecord{
		ID:        uuid.New(),
		ImageRef:  imageRef,
		Text:      text,
		CreatedAt: time.Now().UTC(),
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO images (id, image_ref, text, created_at) VALUES ($1, $2, $3, $4)`,
		rec.ID.String(), rec.ImageRef, rec.Text, rec.CreatedAt,
	)
	if err != nil {
		r.logger.Error("failed to insert image record", "image_ref", imageRef, "error", err)
		return nil, fmt.Errorf("%w: insert image: %v", common.ErrPersistence, err)
	}
	return rec, nil
}

func (r *imageRepository) List(ctx context.Context, limit int) ([]*entity.ImageRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, image_ref, text, created_at FROM images
		 ORDER BY created_at DESC LIMIT $1`,
		capLimit(limit),
	)
	if err != nil {
		r.logger.Error("failed to list image records", "error", err)
		return nil, fmt.Errorf("%w: list images: %v", common.ErrPersistence, err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

func (r *imageRepository) SearchText(ctx context.Context, query string, limit int) ([]*entity.ImageRecord, error) {
	// The user query is a literal substring, not a pattern: LIKE
	// metacharacters are escaped so "100%" matches only "100%".
	pattern := "%" + escapeLike(strings.ToLower(query)) + "%"
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, image_ref, text, created_at FROM images
		 WHERE LOWER(text) LIKE $1 ESCAPE '\'
		 ORDER BY created_at DESC LIMIT $2`,
		pattern, capLimit(limit),
	)
	if err != nil {
		r.logger.Error("failed to search image records", "query", query, "error", err)
		return nil, fmt.Errorf("%w: search images: %v", common.ErrPersistence, err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

func (r *imageRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.ImageRecord, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, image_ref, text, created_at FROM images WHERE id = $1`,
		id.String(),
	)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: image %s", common.ErrNotFound, id)
	}
	if err != nil {
		r.logger.Error("failed to get image record", "id", id, "error", err)
		return nil, fmt.Errorf("%w: get image: %v", common.ErrPersistence, err)
	}
	return rec, nil
}

func (r *imageRepository) UpdateText(ctx context.Context, id uuid.UUID, text string) (*entity.ImageRecord, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: text must not be empty", common.ErrValidation)
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE images SET text = $1 WHERE id = $2`,
		text, id.String(),
	)
	if err != nil {
		r.logger.Error("failed to update image record", "id", id, "error", err)
		return nil, fmt.Errorf("%w: update image: %v", common.ErrPersistence, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, fmt.Errorf("%w: image %s", common.ErrNotFound, id)
	}
	return r.GetByID(ctx, id)
}

func (r *imageRepository) Delete(ctx context.Context, id uuid.UUID) (*entity.ImageRecord, error) {
	rec, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := r.db.ExecContext(ctx, `DELETE FROM images WHERE id = $1`, id.String()); err != nil {
		r.logger.Error("failed to delete image record", "id", id, "error", err)
		return nil, fmt.Errorf("%w: delete image: %v", common.ErrPersistence, err)
	}
	return rec, nil
}

func capLimit(limit int) int {
	if limit <= 0 || limit > MaxListLimit {
		return MaxListLimit
	}
	return limit
}

// escapeLike escapes LIKE metacharacters so the query matches literally.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*entity.ImageRecord, error) {
	var (
		rec   entity.ImageRecord
		rawID string
	)
	if err := row.Scan(&rawID, &rec.ImageRef, &rec.Text, &rec.CreatedAt); err != nil {
		return nil, err
	}
	id, err := uuid.Parse(rawID)
	if err != nil {
		return nil, fmt.Errorf("malformed record id %q: %w", rawID, err)
	}
	rec.ID = id
	return &rec, nil
}

func scanRecords(rows *sql.Rows) ([]*entity.ImageRecord, error) {
	var records []*entity.ImageRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scan image: %v", common.ErrPersistence, err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate images: %v", common.ErrPersistence, err)
	}
	return records, nil
}
