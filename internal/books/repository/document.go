package repository

import (
	"fmt"

	"bookloans/pkg/model"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type bookDocument struct {
	ID        int64                `bson:"_id"`
	Title     string               `bson:"title"`
	Author    string               `bson:"author"`
	Cover     string               `bson:"cover"`
	Inventory int                  `bson:"inventory"`
	DailyFee  primitive.Decimal128 `bson:"daily_fee"`
}

func toDocument(b *model.Book) (*bookDocument, error) {
	fee, err := toDecimal128(b.DailyFee)
	if err != nil {
		return nil, err
	}
	return &bookDocument{
		ID:        b.ID,
		Title:     b.Title,
		Author:    b.Author,
		Cover:     string(b.Cover),
		Inventory: b.Inventory,
		DailyFee:  fee,
	}, nil
}

func (d *bookDocument) toModel() (*model.Book, error) {
	fee, err := decimal.NewFromString(d.DailyFee.String())
	if err != nil {
		return nil, fmt.Errorf("invalid daily_fee %q on book %d: %w", d.DailyFee.String(), d.ID, err)
	}
	return &model.Book{
		ID:        d.ID,
		Title:     d.Title,
		Author:    d.Author,
		Cover:     model.Cover(d.Cover),
		Inventory: d.Inventory,
		DailyFee:  fee,
	}, nil
}

func toDecimal128(d decimal.Decimal) (primitive.Decimal128, error) {
	fee, err := primitive.ParseDecimal128(d.StringFixed(2))
	if err != nil {
		return primitive.Decimal128{}, fmt.Errorf("invalid daily_fee %s: %w", d.String(), err)
	}
	return fee, nil
}
