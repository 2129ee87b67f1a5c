package validator

import (
	"testing"

	"bookloans/pkg/model"
	"bookloans/pkg/validation"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validBook() *model.Book {
	return &model.Book{
		Title:     "The Hobbit",
		Author:    "J. R. R. Tolkien",
		Cover:     model.CoverHard,
		Inventory: 3,
		DailyFee:  decimal.RequireFromString("1.50"),
	}
}

func TestValidate(t *testing.T) {
	v := NewBookValidator()

	tests := []struct {
		name      string
		mutate    func(b *model.Book)
		wantField string
	}{
		{name: "valid", mutate: func(b *model.Book) {}},
		{name: "zero fee", mutate: func(b *model.Book) { b.DailyFee = decimal.Zero }},
		{name: "largest fee", mutate: func(b *model.Book) { b.DailyFee = decimal.RequireFromString("999.99") }},
		{name: "missing title", mutate: func(b *model.Book) { b.Title = "" }, wantField: "title"},
		{name: "missing author", mutate: func(b *model.Book) { b.Author = "" }, wantField: "author"},
		{name: "unknown cover", mutate: func(b *model.Book) { b.Cover = "PAPER" }, wantField: "cover"},
		{name: "negative inventory", mutate: func(b *model.Book) { b.Inventory = -1 }, wantField: "inventory"},
		{name: "negative fee", mutate: func(b *model.Book) { b.DailyFee = decimal.RequireFromString("-0.01") }, wantField: "daily_fee"},
		{name: "three decimals", mutate: func(b *model.Book) { b.DailyFee = decimal.RequireFromString("1.005") }, wantField: "daily_fee"},
		{name: "six digits", mutate: func(b *model.Book) { b.DailyFee = decimal.RequireFromString("1000.00") }, wantField: "daily_fee"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			book := validBook()
			tt.mutate(book)

			err := v.Validate(book)
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}

			var verrs validation.ValidationErrors
			require.ErrorAs(t, err, &verrs)
			assert.Contains(t, verrs.Details(), tt.wantField)
		})
	}
}

func TestValidateUpdate(t *testing.T) {
	v := NewBookValidator()
	title := "Silmarillion"
	empty := ""
	cover := model.Cover("PAPER")
	fee := decimal.RequireFromString("2.345")

	assert.NoError(t, v.ValidateUpdate(&model.BookUpdate{Title: &title}))
	assert.Error(t, v.ValidateUpdate(&model.BookUpdate{}))
	assert.Error(t, v.ValidateUpdate(&model.BookUpdate{Title: &empty}))
	assert.Error(t, v.ValidateUpdate(&model.BookUpdate{Cover: &cover}))
	assert.Error(t, v.ValidateUpdate(&model.BookUpdate{DailyFee: &fee}))
}
