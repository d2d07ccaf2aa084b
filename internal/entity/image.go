package entity

import (
	"time"

	"github.com/google/uuid"
)

// ImageRecord is the persistent result of a successful OCR run. ImageRef
// names the stored asset and is immutable after creation; Text may be
// rewritten by manual edit or regeneration.
type ImageRecord struct {
	ID        uuid.UUID `json:"id"`
	ImageRef  string    `json:"image"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}
