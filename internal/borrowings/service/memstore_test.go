package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	bookserrors "bookloans/internal/books/errors"
	borrowingserrors "bookloans/internal/borrowings/errors"
	mongotx "bookloans/pkg/db/mongo"
	"bookloans/pkg/model"
)

// memStore is a serializable in-memory stand-in for Mongo. A transaction
// holds the store lock for its whole duration and restores a snapshot when fn
// fails.
type memStore struct {
	mu         sync.Mutex
	books      map[int64]model.Book
	borrowings map[int64]model.Borrowing
	lastID     int64

	nextIDCalls int32
	failCreate  error
}

type txKey struct{}

func newMemStore(books ...model.Book) *memStore {
	s := &memStore{
		books:      make(map[int64]model.Book),
		borrowings: make(map[int64]model.Borrowing),
	}
	for _, b := range books {
		s.books[b.ID] = b
	}
	return s
}

func (s *memStore) lock(ctx context.Context) func() {
	if ctx.Value(txKey{}) != nil {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *memStore) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	books := make(map[int64]model.Book, len(s.books))
	for k, v := range s.books {
		books[k] = v
	}
	borrowings := make(map[int64]model.Borrowing, len(s.borrowings))
	for k, v := range s.borrowings {
		borrowings[k] = v
	}

	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		s.books = books
		s.borrowings = borrowings
		return err
	}
	return nil
}

func (s *memStore) inventory(id int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.books[id].Inventory
}

func (s *memStore) activeFor(bookID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, b := range s.borrowings {
		if b.BookID == bookID && b.ActualReturnDate == nil {
			n++
		}
	}
	return n
}

type memBooks struct{ s *memStore }

func (r memBooks) Create(ctx context.Context, book *model.Book) error {
	defer r.s.lock(ctx)()
	r.s.books[book.ID] = *book
	return nil
}

func (r memBooks) FindByID(ctx context.Context, id int64) (*model.Book, error) {
	defer r.s.lock(ctx)()
	b, ok := r.s.books[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", bookserrors.ErrNotFound, id)
	}
	return &b, nil
}

func (r memBooks) FindByIDs(ctx context.Context, ids []int64) (map[int64]*model.Book, error) {
	defer r.s.lock(ctx)()
	out := make(map[int64]*model.Book)
	for _, id := range ids {
		if b, ok := r.s.books[id]; ok {
			out[id] = &b
		}
	}
	return out, nil
}

func (r memBooks) FindAll(ctx context.Context, limit int, offset int64) ([]*model.Book, error) {
	return nil, errors.New("not used")
}

func (r memBooks) Count(ctx context.Context) (int64, error) {
	return 0, errors.New("not used")
}

func (r memBooks) UpdateDetails(ctx context.Context, id int64, updates *model.BookUpdate) (*model.Book, error) {
	return nil, errors.New("not used")
}

func (r memBooks) DecrementIfAvailable(ctx context.Context, id int64) error {
	defer r.s.lock(ctx)()
	b, ok := r.s.books[id]
	if !ok {
		return fmt.Errorf("%w: %d", bookserrors.ErrNotFound, id)
	}
	if b.Inventory < 1 {
		return fmt.Errorf("%w: %d", bookserrors.ErrOutOfStock, id)
	}
	b.Inventory--
	r.s.books[id] = b
	return nil
}

func (r memBooks) Increment(ctx context.Context, id int64) error {
	defer r.s.lock(ctx)()
	b, ok := r.s.books[id]
	if !ok {
		return fmt.Errorf("%w: %d", bookserrors.ErrNotFound, id)
	}
	b.Inventory++
	r.s.books[id] = b
	return nil
}

type memBorrowings struct{ s *memStore }

func (r memBorrowings) NextID(ctx context.Context) (int64, error) {
	atomic.AddInt32(&r.s.nextIDCalls, 1)
	return atomic.AddInt64(&r.s.lastID, 1), nil
}

func (r memBorrowings) Create(ctx context.Context, borrowing *model.Borrowing) error {
	defer r.s.lock(ctx)()
	if r.s.failCreate != nil {
		return r.s.failCreate
	}
	stored := *borrowing
	stored.Book = nil
	r.s.borrowings[borrowing.ID] = stored
	return nil
}

func (r memBorrowings) FindByID(ctx context.Context, id int64) (*model.Borrowing, error) {
	defer r.s.lock(ctx)()
	b, ok := r.s.borrowings[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", borrowingserrors.ErrNotFound, id)
	}
	return &b, nil
}

func (r memBorrowings) MarkReturned(ctx context.Context, id int64, returnDate model.Date) error {
	defer r.s.lock(ctx)()
	b, ok := r.s.borrowings[id]
	if !ok || b.ActualReturnDate != nil {
		return fmt.Errorf("%w: %d", borrowingserrors.ErrAlreadyReturned, id)
	}
	b.ActualReturnDate = &returnDate
	r.s.borrowings[id] = b
	return nil
}

func (r memBorrowings) matching(filter model.BorrowingFilter) []*model.Borrowing {
	users := make(map[int64]bool, len(filter.UserIDs))
	for _, id := range filter.UserIDs {
		users[id] = true
	}

	var out []*model.Borrowing
	for _, b := range r.s.borrowings {
		b := b
		if filter.IsActive != nil && b.IsActive() != *filter.IsActive {
			continue
		}
		if len(users) > 0 && !users[b.User.ID] {
			continue
		}
		out = append(out, &b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r memBorrowings) List(ctx context.Context, filter model.BorrowingFilter, limit int, offset int64) ([]*model.Borrowing, error) {
	defer r.s.lock(ctx)()
	all := r.matching(filter)
	if offset >= int64(len(all)) {
		return []*model.Borrowing{}, nil
	}
	all = all[offset:]
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (r memBorrowings) Count(ctx context.Context, filter model.BorrowingFilter) (int64, error) {
	defer r.s.lock(ctx)()
	return int64(len(r.matching(filter))), nil
}

func (r memBorrowings) FindOverdue(ctx context.Context, today model.Date) ([]*model.Borrowing, error) {
	defer r.s.lock(ctx)()
	var out []*model.Borrowing
	for _, b := range r.matching(model.BorrowingFilter{}) {
		if b.IsOverdue(today) {
			out = append(out, b)
		}
	}
	return out, nil
}

type recordingNotifier struct {
	mu       sync.Mutex
	created  map[int64]string
	returned []int64
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{created: make(map[int64]string)}
}

func (n *recordingNotifier) NotifyNewBorrowing(ctx context.Context, borrowingID int64, text string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.created[borrowingID] = text
}

func (n *recordingNotifier) NotifyBookReturn(ctx context.Context, borrowingID int64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.returned = append(n.returned, borrowingID)
}

func (n *recordingNotifier) counts() (int, int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.created), len(n.returned)
}
