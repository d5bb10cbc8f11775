package signatures

import (
	"time"

	"github.com/google/uuid"
)

// Signature is a saved raster signature image a user can reuse across
// documents. ImageURL holds the drawn signature as a data URL.
type Signature struct {
	ID        uuid.UUID `json:"id" db:"id"`
	UserID    uuid.UUID `json:"user_id" db:"user_id"`
	ImageURL  string    `json:"image_url" db:"image_url"`
	ImageKey  string    `json:"image_key" db:"image_key"`
	IsDefault bool      `json:"is_default" db:"is_default"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type CreateSignatureRequest struct {
	ImageURL  string `json:"imageUrl" binding:"required"`
	IsDefault bool   `json:"isDefault"`
}
