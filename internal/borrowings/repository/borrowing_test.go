package repository

import (
	"testing"

	"bookloans/pkg/model"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson"
)

func TestBuildFilter(t *testing.T) {
	active, returned := true, false

	tests := []struct {
		name   string
		filter model.BorrowingFilter
		want   bson.M
	}{
		{"no filter", model.BorrowingFilter{}, bson.M{}},
		{"active only", model.BorrowingFilter{IsActive: &active}, bson.M{"actual_return_date": nil}},
		{"returned only", model.BorrowingFilter{IsActive: &returned}, bson.M{"actual_return_date": bson.M{"$ne": nil}}},
		{
			"users and active",
			model.BorrowingFilter{IsActive: &active, UserIDs: []int64{1, 2}},
			bson.M{"actual_return_date": nil, "user.id": bson.M{"$in": []int64{1, 2}}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, buildFilter(tt.filter))
		})
	}
}

func TestDocumentRoundTripKeepsCalendarDates(t *testing.T) {
	returned := model.NewDate(2024, 5, 12)
	b := &model.Borrowing{
		ID:                 4,
		BorrowDate:         model.NewDate(2024, 5, 10),
		ExpectedReturnDate: model.NewDate(2024, 5, 20),
		ActualReturnDate:   &returned,
		BookID:             9,
		User:               model.UserRef{ID: 2, Email: "reader@example.com"},
	}

	got := toDocument(b).toModel()

	assert.Equal(t, b, got)
}
