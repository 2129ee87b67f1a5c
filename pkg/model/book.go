package model

import "github.com/shopspring/decimal"

type Cover string

const (
	CoverHard Cover = "HARD"
	CoverSoft Cover = "SOFT"
)

type Book struct {
	ID        int64           `json:"id"`
	Title     string          `json:"title" validate:"required,min=1,max=255"`
	Author    string          `json:"author" validate:"required,min=1,max=255"`
	Cover     Cover           `json:"cover" validate:"required,oneof=HARD SOFT"`
	Inventory int             `json:"inventory" validate:"gte=0"`
	DailyFee  decimal.Decimal `json:"daily_fee"`
}

// BookUpdate carries the catalogue fields staff may edit. Inventory only
// moves through borrowings.
type BookUpdate struct {
	Title    *string          `json:"title,omitempty" validate:"omitnil,min=1,max=255"`
	Author   *string          `json:"author,omitempty" validate:"omitnil,min=1,max=255"`
	Cover    *Cover           `json:"cover,omitempty" validate:"omitnil,oneof=HARD SOFT"`
	DailyFee *decimal.Decimal `json:"daily_fee,omitempty"`
}

func (u *BookUpdate) IsEmpty() bool {
	return u.Title == nil && u.Author == nil && u.Cover == nil && u.DailyFee == nil
}
