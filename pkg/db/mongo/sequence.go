package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const CountersCollection = "counters"

// Sequence hands out monotonically increasing int64 ids per named counter.
type Sequence interface {
	NextID(ctx context.Context, name string) (int64, error)
}

type mongoSequence struct {
	coll *mongo.Collection
}

func NewSequence(db *mongo.Database) Sequence {
	return &mongoSequence{coll: db.Collection(CountersCollection)}
}

type counterDocument struct {
	Name  string `bson:"_id"`
	Value int64  `bson:"value"`
}

func (s *mongoSequence) NextID(ctx context.Context, name string) (int64, error) {
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var doc counterDocument
	err := s.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": name},
		bson.M{"$inc": bson.M{"value": int64(1)}},
		opts,
	).Decode(&doc)
	if err != nil {
		return 0, fmt.Errorf("failed to allocate %s id: %w", name, err)
	}
	return doc.Value, nil
}
