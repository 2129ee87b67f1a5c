package repository

import (
	"context"
	"errors"
	"fmt"

	borrowingserrors "bookloans/internal/borrowings/errors"
	"bookloans/pkg/config"
	mongotx "bookloans/pkg/db/mongo"
	"bookloans/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CollectionName = "borrowings"
	SequenceName   = "borrowings"
)

type BorrowingRepository interface {
	// NextID reserves an id outside any transaction so concurrent creates do
	// not conflict on the counter document.
	NextID(ctx context.Context) (int64, error)
	Create(ctx context.Context, borrowing *model.Borrowing) error
	FindByID(ctx context.Context, id int64) (*model.Borrowing, error)

	// MarkReturned sets actual_return_date only while it is still null and
	// fails with ErrAlreadyReturned otherwise.
	MarkReturned(ctx context.Context, id int64, returnDate model.Date) error

	List(ctx context.Context, filter model.BorrowingFilter, limit int, offset int64) ([]*model.Borrowing, error)
	Count(ctx context.Context, filter model.BorrowingFilter) (int64, error)
	FindOverdue(ctx context.Context, today model.Date) ([]*model.Borrowing, error)
}

type mongoBorrowingRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
	sequence   mongotx.Sequence
}

func NewMongoBorrowingRepository(cfg *config.Config) BorrowingRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoBorrowingRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
		sequence:   mongotx.NewSequence(db),
	}
}

func (r *mongoBorrowingRepository) NextID(ctx context.Context) (int64, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	return r.sequence.NextID(ctx, SequenceName)
}

func (r *mongoBorrowingRepository) Create(ctx context.Context, borrowing *model.Borrowing) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	if _, err := r.collection.InsertOne(ctx, toDocument(borrowing)); err != nil {
		return fmt.Errorf("failed to create borrowing: %w", err)
	}
	return nil
}

func (r *mongoBorrowingRepository) FindByID(ctx context.Context, id int64) (*model.Borrowing, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var doc borrowingDocument
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %d", borrowingserrors.ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to find borrowing: %w", err)
	}
	return doc.toModel(), nil
}

func (r *mongoBorrowingRepository) MarkReturned(ctx context.Context, id int64, returnDate model.Date) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	filter := bson.M{"_id": id, "actual_return_date": nil}
	update := bson.M{"$set": bson.M{"actual_return_date": returnDate.Time()}}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to mark borrowing returned: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("%w: %d", borrowingserrors.ErrAlreadyReturned, id)
	}
	return nil
}

func (r *mongoBorrowingRepository) List(ctx context.Context, filter model.BorrowingFilter, limit int, offset int64) ([]*model.Borrowing, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetLimit(int64(limit)).
		SetSkip(offset).
		SetSort(bson.D{{Key: "_id", Value: 1}})

	return r.find(ctx, buildFilter(filter), opts)
}

func (r *mongoBorrowingRepository) Count(ctx context.Context, filter model.BorrowingFilter) (int64, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, buildFilter(filter))
	if err != nil {
		return 0, fmt.Errorf("failed to count borrowings: %w", err)
	}
	return count, nil
}

func (r *mongoBorrowingRepository) FindOverdue(ctx context.Context, today model.Date) ([]*model.Borrowing, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{
		"expected_return_date": bson.M{"$lt": today.Time()},
		"actual_return_date":   nil,
	}
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})

	return r.find(ctx, filter, opts)
}

func (r *mongoBorrowingRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*model.Borrowing, error) {
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query borrowings: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []borrowingDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode borrowings: %w", err)
	}

	borrowings := make([]*model.Borrowing, 0, len(docs))
	for i := range docs {
		borrowings = append(borrowings, docs[i].toModel())
	}
	return borrowings, nil
}

func buildFilter(f model.BorrowingFilter) bson.M {
	filter := bson.M{}
	if f.IsActive != nil {
		if *f.IsActive {
			filter["actual_return_date"] = nil
		} else {
			filter["actual_return_date"] = bson.M{"$ne": nil}
		}
	}
	if len(f.UserIDs) > 0 {
		filter["user.id"] = bson.M{"$in": f.UserIDs}
	}
	return filter
}
