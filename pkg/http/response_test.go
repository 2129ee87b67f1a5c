package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	apperrors "bookloans/pkg/errors"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteError_UsesAppErrorStatus(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"unavailable", apperrors.BookUnavailable("This book is currently not available.", nil), http.StatusBadRequest, apperrors.CodeBookUnavailable},
		{"forbidden", apperrors.Forbidden("You do not have access to this loan."), http.StatusForbidden, apperrors.CodeForbidden},
		{"wrapped not found", fmt.Errorf("lookup: %w", apperrors.NotFound("Borrowing")), http.StatusNotFound, apperrors.CodeNotFound},
		{"plain error", errors.New("mongo exploded"), http.StatusInternalServerError, apperrors.CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			require.NoError(t, WriteError(rec, tt.err))

			assert.Equal(t, tt.status, rec.Code)
			var body ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.code, body.Code)
			assert.NotContains(t, body.Error, "mongo")
		})
	}
}

func TestWriteMessage(t *testing.T) {
	rec := httptest.NewRecorder()
	require.NoError(t, WriteMessage(rec, "Book returned successfully.", map[string]int{"id": 1}))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"Book returned successfully.","data":{"id":1}}`, rec.Body.String())
}

func TestExtractLimitOffset(t *testing.T) {
	tests := []struct {
		query   string
		limit   int
		offset  int64
		wantErr bool
	}{
		{"", 10, 0, false},
		{"limit=5&offset=20", 5, 20, false},
		{"limit=500", 100, 0, false},
		{"offset=-3", 10, 0, false},
		{"limit=abc", 0, 0, true},
		{"offset=1.5", 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/api/v1/borrowings?"+tt.query, nil)
			limit, offset, err := ExtractLimitOffset(r)
			if tt.wantErr {
				assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidInput))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.limit, limit)
			assert.Equal(t, tt.offset, offset)
		})
	}
}

func TestExtractID(t *testing.T) {
	id, err := ExtractID(httprouter.Params{{Key: "id", Value: "42"}}, "id")
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	for _, raw := range []string{"", "0", "-1", "abc"} {
		_, err := ExtractID(httprouter.Params{{Key: "id", Value: raw}}, "id")
		assert.Error(t, err, raw)
	}
}
