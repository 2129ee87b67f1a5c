package repository

import (
	"context"
	"errors"
	"fmt"

	bookserrors "bookloans/internal/books/errors"
	"bookloans/pkg/config"
	mongotx "bookloans/pkg/db/mongo"
	"bookloans/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CollectionName = "books"
	SequenceName   = "books"
)

type BookRepository interface {
	Create(ctx context.Context, book *model.Book) error
	FindByID(ctx context.Context, id int64) (*model.Book, error)
	FindByIDs(ctx context.Context, ids []int64) (map[int64]*model.Book, error)
	FindAll(ctx context.Context, limit int, offset int64) ([]*model.Book, error)
	Count(ctx context.Context) (int64, error)
	UpdateDetails(ctx context.Context, id int64, updates *model.BookUpdate) (*model.Book, error)

	// DecrementIfAvailable takes one copy off the shelf. It fails with
	// ErrOutOfStock when inventory is already zero and never drives it negative.
	DecrementIfAvailable(ctx context.Context, id int64) error
	Increment(ctx context.Context, id int64) error
}

type mongoBookRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
	sequence   mongotx.Sequence
}

func NewMongoBookRepository(cfg *config.Config) BookRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoBookRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
		sequence:   mongotx.NewSequence(db),
	}
}

func (r *mongoBookRepository) Create(ctx context.Context, book *model.Book) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	id, err := r.sequence.NextID(ctx, SequenceName)
	if err != nil {
		return fmt.Errorf("failed to allocate book id: %w", err)
	}
	book.ID = id

	doc, err := toDocument(book)
	if err != nil {
		return err
	}
	if _, err := r.collection.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("failed to create book: %w", err)
	}

	return nil
}

func (r *mongoBookRepository) FindByID(ctx context.Context, id int64) (*model.Book, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var doc bookDocument
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %d", bookserrors.ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to find book: %w", err)
	}
	return doc.toModel()
}

func (r *mongoBookRepository) FindByIDs(ctx context.Context, ids []int64) (map[int64]*model.Book, error) {
	books := make(map[int64]*model.Book, len(ids))
	if len(ids) == 0 {
		return books, nil
	}

	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	cursor, err := r.collection.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, fmt.Errorf("failed to query books: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []bookDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode books: %w", err)
	}

	for i := range docs {
		book, err := docs[i].toModel()
		if err != nil {
			return nil, err
		}
		books[book.ID] = book
	}
	return books, nil
}

func (r *mongoBookRepository) FindAll(ctx context.Context, limit int, offset int64) ([]*model.Book, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetLimit(int64(limit)).
		SetSkip(offset).
		SetSort(bson.D{{Key: "_id", Value: 1}})

	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query books: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []bookDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode books: %w", err)
	}

	books := make([]*model.Book, 0, len(docs))
	for i := range docs {
		book, err := docs[i].toModel()
		if err != nil {
			return nil, err
		}
		books = append(books, book)
	}
	return books, nil
}

func (r *mongoBookRepository) Count(ctx context.Context) (int64, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("failed to count books: %w", err)
	}
	return count, nil
}

func (r *mongoBookRepository) UpdateDetails(ctx context.Context, id int64, updates *model.BookUpdate) (*model.Book, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	set := bson.M{}
	if updates.Title != nil {
		set["title"] = *updates.Title
	}
	if updates.Author != nil {
		set["author"] = *updates.Author
	}
	if updates.Cover != nil {
		set["cover"] = string(*updates.Cover)
	}
	if updates.DailyFee != nil {
		fee, err := toDecimal128(*updates.DailyFee)
		if err != nil {
			return nil, err
		}
		set["daily_fee"] = fee
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc bookDocument
	err := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %d", bookserrors.ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to update book: %w", err)
	}
	return doc.toModel()
}

func (r *mongoBookRepository) DecrementIfAvailable(ctx context.Context, id int64) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	filter := bson.M{"_id": id, "inventory": bson.M{"$gte": 1}}
	result, err := r.collection.UpdateOne(ctx, filter, bson.M{"$inc": bson.M{"inventory": -1}})
	if err != nil {
		return fmt.Errorf("failed to decrement inventory: %w", err)
	}
	if result.MatchedCount > 0 {
		return nil
	}

	// Nothing matched: either the book is missing or its shelf is empty.
	exists, err := r.collection.CountDocuments(ctx, bson.M{"_id": id}, options.Count().SetLimit(1))
	if err != nil {
		return fmt.Errorf("failed to check book existence: %w", err)
	}
	if exists == 0 {
		return fmt.Errorf("%w: %d", bookserrors.ErrNotFound, id)
	}
	return fmt.Errorf("%w: %d", bookserrors.ErrOutOfStock, id)
}

func (r *mongoBookRepository) Increment(ctx context.Context, id int64) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$inc": bson.M{"inventory": 1}})
	if err != nil {
		return fmt.Errorf("failed to increment inventory: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("%w: %d", bookserrors.ErrNotFound, id)
	}
	return nil
}
