package db

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"
)

// IndexSpec is an index owned by a repository.
type IndexSpec struct {
	Collection string
	Model      mongo.IndexModel
}

// EnsureIndexes creates every index. Creating an existing index with the same
// definition is a no-op on the server, so the call is safe on every start.
func EnsureIndexes(ctx context.Context, database *mongo.Database, logger zerolog.Logger, specs ...IndexSpec) error {
	for _, spec := range specs {
		name, err := database.Collection(spec.Collection).Indexes().CreateOne(ctx, spec.Model)
		if err != nil {
			return fmt.Errorf("create index on %s: %w", spec.Collection, err)
		}
		logger.Debug().Str("collection", spec.Collection).Str("index", name).Msg("index ensured")
	}
	return nil
}
