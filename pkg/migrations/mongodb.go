package migrations

import (
	"context"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"marketguard/internal/constants"
)

// EnsureMongoCollection creates the pro_locations indexes. The collection
// itself is created on first insert.
func EnsureMongoCollection(ctx context.Context, db *mongo.Database) error {
	collection := db.Collection(constants.CollectionProLocations)

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "pro_id", Value: 1}},
			Options: options.Index().SetName("idx_pro_locations_pro_id").SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "latitude", Value: 1}, {Key: "longitude", Value: 1}},
			Options: options.Index().SetName("idx_pro_locations_lat_lon"),
		},
		{
			Keys:    bson.D{{Key: "updated_at", Value: -1}},
			Options: options.Index().SetName("idx_pro_locations_updated_at"),
		},
	}

	_, err := collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		if !strings.Contains(err.Error(), "already exists") {
			return fmt.Errorf("failed to create indexes: %w", err)
		}
	}

	return nil
}
