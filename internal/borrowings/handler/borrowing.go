package handler

import (
	"encoding/json"
	"net/http"

	"bookloans/internal/borrowings/service"
	"bookloans/pkg/auth"
	apperrors "bookloans/pkg/errors"
	httputil "bookloans/pkg/http"
	"bookloans/pkg/logger"
	"bookloans/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type BorrowingHandler struct {
	service  service.BorrowingService
	verifier *auth.Verifier
	log      *logger.Logger
}

func NewBorrowingHandler(service service.BorrowingService, verifier *auth.Verifier, log *logger.Logger) *BorrowingHandler {
	return &BorrowingHandler{
		service:  service,
		verifier: verifier,
		log:      log,
	}
}

func (h *BorrowingHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	principal, ok := h.principal(w, r, "Create")
	if !ok {
		return
	}

	var req model.BorrowingCreate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if writeErr := httputil.WriteError(w, apperrors.Validation("Invalid request body", map[string]any{
			"error": err.Error(),
		})); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Create", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	borrowing, err := h.service.Create(r.Context(), principal, &req)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Create", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteCreated(w, borrowing); err != nil {
		h.log.Error("failed to write created response", "handler", "Create", "operation", "WriteCreated", "error", err)
	}
}

func (h *BorrowingHandler) GetAll(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	principal, ok := h.principal(w, r, "GetAll")
	if !ok {
		return
	}

	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "GetAll", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	query := r.URL.Query()
	filter, err := h.service.ParseListFilter(principal, query.Get("is_active"), query.Get("user_id"))
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "GetAll", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	borrowings, total, err := h.service.List(r.Context(), principal, filter, limit, offset)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "GetAll", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WritePaginated(w, borrowings, total, limit, offset); err != nil {
		h.log.Error("failed to write paginated response", "handler", "GetAll", "operation", "WritePaginated", "error", err)
	}
}

func (h *BorrowingHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	principal, ok := h.principal(w, r, "GetByID")
	if !ok {
		return
	}

	id, err := httputil.ExtractID(ps, "id")
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "GetByID", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	borrowing, err := h.service.GetByID(r.Context(), principal, id)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "GetByID", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, borrowing); err != nil {
		h.log.Error("failed to write success response", "handler", "GetByID", "operation", "WriteSuccess", "error", err)
	}
}

func (h *BorrowingHandler) Return(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	principal, ok := h.principal(w, r, "Return")
	if !ok {
		return
	}

	id, err := httputil.ExtractID(ps, "id")
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Return", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	result, err := h.service.Return(r.Context(), principal, id)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Return", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteMessage(w, result.Message, result.Data); err != nil {
		h.log.Error("failed to write success response", "handler", "Return", "operation", "WriteMessage", "error", err)
	}
}

func (h *BorrowingHandler) principal(w http.ResponseWriter, r *http.Request, handler string) (auth.Principal, bool) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		if writeErr := httputil.WriteError(w, apperrors.Unauthorized("Authentication credentials were not provided.")); writeErr != nil {
			h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
		}
	}
	return principal, ok
}

func (h *BorrowingHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/borrowings", h.verifier.Require(h.Create))
	router.GET("/api/v1/borrowings", h.verifier.Require(h.GetAll))
	router.GET("/api/v1/borrowings/:id", h.verifier.Require(h.GetByID))
	router.POST("/api/v1/borrowings/:id/return", h.verifier.Require(h.Return))
}
