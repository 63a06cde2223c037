package location

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"marketguard/internal/constants"
	"marketguard/internal/geo"
)

// nearbyBatchSize is the cursor batch size of the bounding-box scan.
const nearbyBatchSize = 1000

type ProStore interface {
	UpsertProLocation(ctx context.Context, loc ProLocation) error
	WithinBox(ctx context.Context, box geo.BoundingBox) ([]ProLocation, error)
}

type MongoProStore struct {
	collection *mongo.Collection
}

func NewProStore(db *mongo.Database) *MongoProStore {
	return &MongoProStore{
		collection: db.Collection(constants.CollectionProLocations),
	}
}

func (s *MongoProStore) UpsertProLocation(ctx context.Context, loc ProLocation) error {
	if loc.UpdatedAt.IsZero() {
		loc.UpdatedAt = time.Now().UTC()
	}

	filter := bson.M{"pro_id": loc.ProID}
	update := bson.M{"$set": bson.M{
		"pro_id":     loc.ProID,
		"latitude":   loc.Point.Latitude,
		"longitude":  loc.Point.Longitude,
		"address":    loc.Address,
		"updated_at": loc.UpdatedAt,
	}}

	start := time.Now()
	_, err := s.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	observeDB("mongodb", "upsert_pro_location", start, err)
	if err != nil {
		return fmt.Errorf("failed to upsert pro location: %w", err)
	}
	return nil
}

// WithinBox returns every pro whose stored position falls in box. The
// result is not truncated: the caller ranks by exact distance, so dropping
// any candidate here could drop the closest pro. Boxes that cross the
// antimeridian are queried as two longitude ranges; boxes that reach over a
// pole cover every longitude.
func (s *MongoProStore) WithinBox(ctx context.Context, box geo.BoundingBox) ([]ProLocation, error) {
	filter := boxFilter(box)
	opts := options.Find().SetBatchSize(nearbyBatchSize)

	start := time.Now()
	cursor, err := s.collection.Find(ctx, filter, opts)
	if err != nil {
		observeDB("mongodb", "pros_within_box", start, err)
		return nil, fmt.Errorf("failed to find pro locations: %w", err)
	}
	defer cursor.Close(ctx)

	locations := []ProLocation{}
	for cursor.Next(ctx) {
		var loc ProLocation
		if err := cursor.Decode(&loc); err != nil {
			observeDB("mongodb", "pros_within_box", start, err)
			return nil, fmt.Errorf("failed to decode pro location: %w", err)
		}
		locations = append(locations, loc)
	}
	err = cursor.Err()
	observeDB("mongodb", "pros_within_box", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to iterate pro locations: %w", err)
	}
	return locations, nil
}

type lonRange struct {
	min, max float64
}

func boxFilter(box geo.BoundingBox) bson.M {
	filter := bson.M{
		"latitude": bson.M{"$gte": max(box.MinLat, -90), "$lte": min(box.MaxLat, 90)},
	}

	ranges := longitudeRanges(box)
	if len(ranges) == 1 {
		filter["longitude"] = bson.M{"$gte": ranges[0].min, "$lte": ranges[0].max}
		return filter
	}

	or := bson.A{}
	for _, r := range ranges {
		or = append(or, bson.M{"longitude": bson.M{"$gte": r.min, "$lte": r.max}})
	}
	filter["$or"] = or
	return filter
}

func longitudeRanges(box geo.BoundingBox) []lonRange {
	switch {
	case box.MaxLat > 90 || box.MinLat < -90 || box.MaxLon-box.MinLon >= 360:
		return []lonRange{{-180, 180}}
	case box.MinLon < -180:
		return []lonRange{{box.MinLon + 360, 180}, {-180, box.MaxLon}}
	case box.MaxLon > 180:
		return []lonRange{{box.MinLon, 180}, {-180, box.MaxLon - 360}}
	default:
		return []lonRange{{box.MinLon, box.MaxLon}}
	}
}
