package service

import (
	"context"
	"errors"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	bookserrors "bookloans/internal/books/errors"
	booksrepository "bookloans/internal/books/repository"
	borrowingserrors "bookloans/internal/borrowings/errors"
	"bookloans/internal/borrowings/repository"
	"bookloans/internal/borrowings/validator"
	"bookloans/internal/notifications/messages"
	"bookloans/pkg/auth"
	"bookloans/pkg/config"
	mongotx "bookloans/pkg/db/mongo"
	apperrors "bookloans/pkg/errors"
	"bookloans/pkg/metrics"
	"bookloans/pkg/model"
	"bookloans/pkg/validation"
)

const (
	MsgBookUnavailable  = "This book is currently not available."
	MsgForbidden        = "You do not have access to this loan."
	MsgAlreadyReturned  = "This book has already been returned."
	MsgReturnSuccessful = "Book returned successfully."
)

// Notifier receives lifecycle events after their transaction committed. Calls
// must not block; ctx is only read for request-scoped values.
type Notifier interface {
	NotifyNewBorrowing(ctx context.Context, borrowingID int64, text string)
	NotifyBookReturn(ctx context.Context, borrowingID int64)
}

type BorrowingService interface {
	Create(ctx context.Context, principal auth.Principal, req *model.BorrowingCreate) (*model.Borrowing, error)
	Return(ctx context.Context, principal auth.Principal, id int64) (*model.ReturnResult, error)
	ParseListFilter(principal auth.Principal, isActive, userIDs string) (model.BorrowingFilter, error)
	List(ctx context.Context, principal auth.Principal, filter model.BorrowingFilter, limit int, offset int64) ([]*model.Borrowing, int64, error)
	GetByID(ctx context.Context, principal auth.Principal, id int64) (*model.Borrowing, error)
}

type borrowingService struct {
	repo      repository.BorrowingRepository
	books     booksrepository.BookRepository
	txManager mongotx.TransactionManager
	validator *validator.BorrowingValidator
	notifier  Notifier
	cfg       *config.Config
	now       func() time.Time
}

type Option func(*borrowingService)

// WithClock replaces time.Now. The calendar day is taken in UTC.
func WithClock(now func() time.Time) Option {
	return func(s *borrowingService) {
		s.now = now
	}
}

func NewBorrowingService(
	repo repository.BorrowingRepository,
	books booksrepository.BookRepository,
	txManager mongotx.TransactionManager,
	validator *validator.BorrowingValidator,
	notifier Notifier,
	cfg *config.Config,
	opts ...Option,
) BorrowingService {
	s := &borrowingService{
		repo:      repo,
		books:     books,
		txManager: txManager,
		validator: validator,
		notifier:  notifier,
		cfg:       cfg,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *borrowingService) today() model.Date {
	return model.DateOf(s.now().UTC())
}

func (s *borrowingService) Create(ctx context.Context, principal auth.Principal, req *model.BorrowingCreate) (*model.Borrowing, error) {
	if err := s.validator.ValidateCreate(req); err != nil {
		s.cfg.Log.Warn("Borrowing validation failed",
			"user_id", principal.UserID,
			"error", err,
		)
		return nil, s.reject("create", validationError(err, nil))
	}

	today := s.today()
	if err := s.validator.ValidateReturnDate(req.ExpectedReturnDate, today); err != nil {
		return nil, s.reject("create", validationError(err, borrowingserrors.ErrInvalidReturnDate))
	}

	id, err := s.repo.NextID(ctx)
	if err != nil {
		s.cfg.Log.Error("Failed to allocate borrowing id", "error", err)
		return nil, apperrors.Internal("Failed to create borrowing", err)
	}

	var created *model.Borrowing
	err = s.txManager.ExecuteTransaction(ctx, func(ctx context.Context) error {
		if err := s.books.DecrementIfAvailable(ctx, req.BookID); err != nil {
			switch {
			case errors.Is(err, bookserrors.ErrOutOfStock):
				return apperrors.BookUnavailable(MsgBookUnavailable, borrowingserrors.ErrUnavailable)
			case errors.Is(err, bookserrors.ErrNotFound):
				return apperrors.NotFoundWithID("Book", req.BookID).WithCause(bookserrors.ErrNotFound)
			}
			return err
		}

		borrowing := &model.Borrowing{
			ID:                 id,
			BorrowDate:         today,
			ExpectedReturnDate: req.ExpectedReturnDate,
			BookID:             req.BookID,
			User:               model.UserRef{ID: principal.UserID, Email: principal.Email},
		}
		if err := s.repo.Create(ctx, borrowing); err != nil {
			return err
		}

		book, err := s.books.FindByID(ctx, req.BookID)
		if err != nil {
			return err
		}
		borrowing.Book = book

		created = borrowing
		return nil
	})
	if err != nil {
		if apperrors.IsAppError(err) {
			return nil, s.reject("create", err)
		}
		s.cfg.Log.Error("Failed to create borrowing",
			"book_id", req.BookID,
			"user_id", principal.UserID,
			"error", err,
		)
		return nil, apperrors.Internal("Failed to create borrowing", err)
	}

	metrics.BorrowingsCreated.Inc()
	s.cfg.Log.Info("Borrowing created successfully",
		"id", created.ID,
		"book_id", created.BookID,
		"user_id", created.User.ID,
		"expected_return_date", created.ExpectedReturnDate.String(),
	)

	s.notifier.NotifyNewBorrowing(ctx, created.ID, messages.NewBorrowing(created, created.Book.Title))

	return created, nil
}

func (s *borrowingService) Return(ctx context.Context, principal auth.Principal, id int64) (*model.ReturnResult, error) {
	if id <= 0 {
		return nil, apperrors.InvalidInput("Borrowing ID must be a positive integer")
	}

	today := s.today()

	var returned *model.Borrowing
	err := s.txManager.ExecuteTransaction(ctx, func(ctx context.Context) error {
		borrowing, err := s.repo.FindByID(ctx, id)
		if err != nil {
			if errors.Is(err, borrowingserrors.ErrNotFound) {
				return apperrors.NotFoundWithID("Borrowing", id).WithCause(borrowingserrors.ErrNotFound)
			}
			return err
		}

		if borrowing.User.ID != principal.UserID {
			return apperrors.Forbidden(MsgForbidden).WithCause(borrowingserrors.ErrForbidden)
		}

		if err := s.repo.MarkReturned(ctx, id, today); err != nil {
			if errors.Is(err, borrowingserrors.ErrAlreadyReturned) {
				return apperrors.AlreadyReturned(MsgAlreadyReturned, borrowingserrors.ErrAlreadyReturned)
			}
			return err
		}

		if err := s.books.Increment(ctx, borrowing.BookID); err != nil {
			return err
		}

		book, err := s.books.FindByID(ctx, borrowing.BookID)
		if err != nil {
			return err
		}

		borrowing.ActualReturnDate = &today
		borrowing.Book = book
		returned = borrowing
		return nil
	})
	if err != nil {
		if apperrors.IsAppError(err) {
			return nil, s.reject("return", err)
		}
		s.cfg.Log.Error("Failed to return borrowing",
			"id", id,
			"user_id", principal.UserID,
			"error", err,
		)
		return nil, apperrors.Internal("Failed to return borrowing", err)
	}

	metrics.BorrowingsReturned.Inc()
	s.cfg.Log.Info("Borrowing returned successfully",
		"id", returned.ID,
		"book_id", returned.BookID,
		"user_id", returned.User.ID,
	)

	s.notifier.NotifyBookReturn(ctx, returned.ID)

	return &model.ReturnResult{Message: MsgReturnSuccessful, Data: returned}, nil
}

// ParseListFilter turns raw query values into a filter. user_id is only
// honored for staff; everyone else is always scoped to their own loans.
func (s *borrowingService) ParseListFilter(principal auth.Principal, isActive, userIDs string) (model.BorrowingFilter, error) {
	var filter model.BorrowingFilter

	if isActive != "" {
		switch strings.ToLower(strings.TrimSpace(isActive)) {
		case "true":
			active := true
			filter.IsActive = &active
		case "false":
			active := false
			filter.IsActive = &active
		default:
			return filter, apperrors.InvalidFilter("is_active must be true or false", borrowingserrors.ErrInvalidFilter)
		}
	}

	if principal.IsStaff && userIDs != "" {
		for _, raw := range strings.Split(userIDs, ",") {
			id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
			if err != nil {
				return model.BorrowingFilter{}, apperrors.InvalidFilter("user_id must be a comma separated list of integers", borrowingserrors.ErrInvalidFilter)
			}
			if !slices.Contains(filter.UserIDs, id) {
				filter.UserIDs = append(filter.UserIDs, id)
			}
		}
	}

	return filter, nil
}

func (s *borrowingService) List(ctx context.Context, principal auth.Principal, filter model.BorrowingFilter, limit int, offset int64) ([]*model.Borrowing, int64, error) {
	limit = config.NormalizePaginationLimit(limit)
	offset = config.NormalizeOffset(offset)

	if !principal.IsStaff {
		filter.UserIDs = []int64{principal.UserID}
	}

	var count int64
	var borrowings []*model.Borrowing
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		var err error
		ctx, cancel := context.WithTimeout(ctx, s.cfg.ReadTimeout)
		defer cancel()
		count, err = s.repo.Count(ctx, filter)
		if err != nil {
			s.cfg.Log.Error("Failed to count borrowings", "error", err)
			errCount = apperrors.Internal("Failed to count borrowings", err)
		}
	}()

	go func() {
		defer wg.Done()
		var err error
		ctx, cancel := context.WithTimeout(ctx, s.cfg.ReadTimeout)
		defer cancel()
		borrowings, err = s.repo.List(ctx, filter, limit, offset)
		if err != nil {
			s.cfg.Log.Error("Failed to list borrowings",
				"limit", limit,
				"offset", offset,
				"error", err,
			)
			errFind = apperrors.Internal("Failed to retrieve borrowings", err)
		}
	}()
	wg.Wait()

	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}

	if err := s.attachBooks(ctx, borrowings); err != nil {
		return nil, 0, err
	}

	return borrowings, count, nil
}

func (s *borrowingService) GetByID(ctx context.Context, principal auth.Principal, id int64) (*model.Borrowing, error) {
	if id <= 0 {
		return nil, apperrors.InvalidInput("Borrowing ID must be a positive integer")
	}

	borrowing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, borrowingserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Borrowing", id).WithCause(borrowingserrors.ErrNotFound)
		}
		s.cfg.Log.Error("Failed to get borrowing by ID",
			"id", id,
			"error", err,
		)
		return nil, apperrors.Internal("Failed to retrieve borrowing", err)
	}

	// Other users' loans are reported as missing rather than forbidden.
	if !principal.IsStaff && borrowing.User.ID != principal.UserID {
		return nil, apperrors.NotFoundWithID("Borrowing", id).WithCause(borrowingserrors.ErrNotFound)
	}

	if err := s.attachBooks(ctx, []*model.Borrowing{borrowing}); err != nil {
		return nil, err
	}

	return borrowing, nil
}

func (s *borrowingService) attachBooks(ctx context.Context, borrowings []*model.Borrowing) error {
	if len(borrowings) == 0 {
		return nil
	}

	ids := make([]int64, 0, len(borrowings))
	for _, b := range borrowings {
		ids = append(ids, b.BookID)
	}

	books, err := s.books.FindByIDs(ctx, ids)
	if err != nil {
		s.cfg.Log.Error("Failed to load books for borrowings", "error", err)
		return apperrors.Internal("Failed to retrieve borrowings", err)
	}

	for _, b := range borrowings {
		b.Book = books[b.BookID]
	}
	return nil
}

// reject counts a business rule rejection and passes err through.
func (s *borrowingService) reject(operation string, err error) error {
	code := apperrors.AsAppError(err).Code
	metrics.BorrowingRejections.WithLabelValues(operation, code).Inc()
	s.cfg.Log.Info("Borrowing operation rejected",
		"operation", operation,
		"code", code,
		"error", err,
	)
	return err
}

func validationError(err error, cause error) *apperrors.AppError {
	details := map[string]any{"error": err.Error()}
	var verrs validation.ValidationErrors
	if errors.As(err, &verrs) {
		details = verrs.Details()
	}
	return apperrors.Validation("Borrowing validation failed", details).WithCause(cause)
}
