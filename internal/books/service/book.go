package service

import (
	"context"
	"errors"
	"sync"

	bookserrors "bookloans/internal/books/errors"
	"bookloans/internal/books/repository"
	"bookloans/internal/books/validator"
	"bookloans/pkg/config"
	apperrors "bookloans/pkg/errors"
	"bookloans/pkg/model"
	"bookloans/pkg/sanitizer"
	"bookloans/pkg/validation"
)

type BookService interface {
	Create(ctx context.Context, book *model.Book) error
	GetByID(ctx context.Context, id int64) (*model.Book, error)
	GetAll(ctx context.Context, limit int, offset int64) ([]*model.Book, int64, error)
	Update(ctx context.Context, id int64, updates *model.BookUpdate) (*model.Book, error)
}

type bookService struct {
	repo      repository.BookRepository
	validator *validator.BookValidator
	cfg       *config.Config
}

func NewBookService(
	repo repository.BookRepository,
	validator *validator.BookValidator,
	cfg *config.Config,
) BookService {
	return &bookService{
		repo:      repo,
		validator: validator,
		cfg:       cfg,
	}
}

func (s *bookService) Create(ctx context.Context, book *model.Book) error {
	book.Title = sanitizer.NormalizeTitle(book.Title)
	book.Author = sanitizer.NormalizeTitle(book.Author)
	if book.Cover == "" {
		book.Cover = model.CoverSoft
	}

	if err := s.validator.Validate(book); err != nil {
		s.cfg.Log.Warn("Book validation failed",
			"title", book.Title,
			"error", err,
		)
		return validationError(err)
	}

	if err := s.repo.Create(ctx, book); err != nil {
		s.cfg.Log.Error("Failed to create book",
			"title", book.Title,
			"error", err,
		)
		return apperrors.Internal("Failed to create book", err)
	}

	s.cfg.Log.Info("Book created successfully",
		"id", book.ID,
		"title", book.Title,
		"inventory", book.Inventory,
	)

	return nil
}

func (s *bookService) GetByID(ctx context.Context, id int64) (*model.Book, error) {
	if id <= 0 {
		return nil, apperrors.InvalidInput("Book ID must be a positive integer")
	}

	book, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, bookserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Book", id)
		}
		s.cfg.Log.Error("Failed to get book by ID",
			"id", id,
			"error", err,
		)
		return nil, apperrors.Internal("Failed to retrieve book", err)
	}

	return book, nil
}

func (s *bookService) GetAll(ctx context.Context, limit int, offset int64) ([]*model.Book, int64, error) {
	limit = config.NormalizePaginationLimit(limit)
	offset = config.NormalizeOffset(offset)

	var count int64
	var books []*model.Book
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		var err error
		ctx, cancel := context.WithTimeout(ctx, s.cfg.ReadTimeout)
		defer cancel()
		count, err = s.repo.Count(ctx)
		if err != nil {
			s.cfg.Log.Error("Failed to count books", "error", err)
			errCount = apperrors.Internal("Failed to count books", err)
		}
	}()

	go func() {
		defer wg.Done()
		var err error
		ctx, cancel := context.WithTimeout(ctx, s.cfg.ReadTimeout)
		defer cancel()
		books, err = s.repo.FindAll(ctx, limit, offset)
		if err != nil {
			s.cfg.Log.Error("Failed to get all books",
				"limit", limit,
				"offset", offset,
				"error", err,
			)
			errFind = apperrors.Internal("Failed to retrieve books", err)
		}
	}()
	wg.Wait()

	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}

	return books, count, nil
}

// Update edits catalogue details only. Inventory is owned by borrowings.
func (s *bookService) Update(ctx context.Context, id int64, updates *model.BookUpdate) (*model.Book, error) {
	if id <= 0 {
		return nil, apperrors.InvalidInput("Book ID must be a positive integer")
	}

	if updates.Title != nil {
		title := sanitizer.NormalizeTitle(*updates.Title)
		updates.Title = &title
	}
	if updates.Author != nil {
		author := sanitizer.NormalizeTitle(*updates.Author)
		updates.Author = &author
	}

	if err := s.validator.ValidateUpdate(updates); err != nil {
		s.cfg.Log.Warn("Book update validation failed",
			"id", id,
			"error", err,
		)
		return nil, validationError(err)
	}

	book, err := s.repo.UpdateDetails(ctx, id, updates)
	if err != nil {
		if errors.Is(err, bookserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Book", id)
		}
		s.cfg.Log.Error("Failed to update book",
			"id", id,
			"error", err,
		)
		return nil, apperrors.Internal("Failed to update book", err)
	}

	s.cfg.Log.Info("Book updated successfully", "id", id)

	return book, nil
}

func validationError(err error) *apperrors.AppError {
	var verrs validation.ValidationErrors
	if errors.As(err, &verrs) {
		return apperrors.Validation("Book validation failed", verrs.Details())
	}
	return apperrors.Validation("Book validation failed", map[string]any{
		"error": err.Error(),
	})
}
