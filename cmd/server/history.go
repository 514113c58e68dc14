package main

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/platemind/entitlements/modules/recipes"
)

// historyReader serves saved recipes from the application database. History
// stays readable regardless of entitlement state.
type historyReader struct {
	col *mongo.Collection
}

func newHistoryReader(db *mongo.Database) *historyReader {
	return &historyReader{col: db.Collection("recipes")}
}

type recipeDoc struct {
	ID          string    `bson:"_id"`
	UserID      string    `bson:"user_id"`
	Title       string    `bson:"title"`
	Ingredients []string  `bson:"ingredients"`
	Steps       []string  `bson:"steps"`
	CreatedAt   time.Time `bson:"created_at"`
}

func (r *historyReader) History(ctx context.Context, userID uuid.UUID, limit int) ([]recipes.Recipe, error) {
	cur, err := r.col.Find(ctx,
		bson.M{"user_id": userID.String()},
		options.Find().
			SetSort(bson.D{{Key: "created_at", Value: -1}}).
			SetLimit(int64(limit)),
	)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx) //nolint:errcheck

	var docs []recipeDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}

	out := make([]recipes.Recipe, 0, len(docs))
	for _, d := range docs {
		uid, err := uuid.Parse(d.UserID)
		if err != nil {
			continue
		}
		out = append(out, recipes.Recipe{
			ID:          d.ID,
			UserID:      uid,
			Title:       d.Title,
			Ingredients: d.Ingredients,
			Steps:       d.Steps,
			CreatedAt:   d.CreatedAt,
		})
	}
	return out, nil
}
