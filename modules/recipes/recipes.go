package recipes

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Recipe is the generated content returned to the client. Persistence of
// recipes is owned by the surrounding application; this module only needs
// the shape.
type Recipe struct {
	ID          string    `json:"id"`
	UserID      uuid.UUID `json:"user_id"`
	Title       string    `json:"title"`
	Ingredients []string  `json:"ingredients"`
	Steps       []string  `json:"steps"`
	CreatedAt   time.Time `json:"created_at"`
}

// Generator is the narrow interface to the external content-generation
// service.
type Generator interface {
	Generate(ctx context.Context, userID uuid.UUID, prompt string) (*Recipe, error)
}

// HistoryReader is the narrow interface to saved-recipe reads.
type HistoryReader interface {
	History(ctx context.Context, userID uuid.UUID, limit int) ([]Recipe, error)
}

// AccessGate decides whether a user may invoke generation. Implemented by
// the subscription service.
type AccessGate interface {
	CheckAccess(ctx context.Context, userID uuid.UUID) error
}
