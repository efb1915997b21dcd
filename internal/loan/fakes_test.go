package loan_test

import (
	"context"
	"database/sql"
	"slices"

	bookentity "github.com/pedrohonorio/biblioteca-virtual/internal/book/entity"
	"github.com/pedrohonorio/biblioteca-virtual/internal/loan/entity"
)

// fakeBookStore is an in-memory catalog implementing loan.BookStore.
type fakeBookStore struct {
	books map[int64]*bookentity.Book
	flips []int64 // ids passed to SetAvailability, in call order
	// raceBookID simulates a concurrent borrow: SetAvailability(false)
	// reports the row as already flipped for this id.
	raceBookID int64
}

func newFakeBookStore(available ...int64) *fakeBookStore {
	s := &fakeBookStore{books: map[int64]*bookentity.Book{}}
	for _, id := range available {
		s.books[id] = &bookentity.Book{ID: id, Title: "book", Available: true}
	}
	return s
}

func (s *fakeBookStore) GetByID(_ context.Context, id int64) (*bookentity.Book, error) {
	b, ok := s.books[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *b
	return &copied, nil
}

func (s *fakeBookStore) SetAvailability(_ context.Context, id int64, available bool) (bool, error) {
	s.flips = append(s.flips, id)
	if !available && id == s.raceBookID {
		return false, nil
	}
	b, ok := s.books[id]
	if !ok || b.Available == available {
		return false, nil
	}
	b.Available = available
	return true, nil
}

// fakeClientStore implements loan.ClientStore.
type fakeClientStore struct {
	ids map[int64]bool
}

func newFakeClientStore(ids ...int64) *fakeClientStore {
	s := &fakeClientStore{ids: map[int64]bool{}}
	for _, id := range ids {
		s.ids[id] = true
	}
	return s
}

func (s *fakeClientStore) ExistsByID(_ context.Context, id int64) (bool, error) {
	return s.ids[id], nil
}

// fakeLoanStore is an in-memory loan store implementing loan.LoanStore.
type fakeLoanStore struct {
	loans   map[int64]*entity.Loan
	nextID  int64
	saveErr error
}

func newFakeLoanStore() *fakeLoanStore {
	return &fakeLoanStore{loans: map[int64]*entity.Loan{}, nextID: 1}
}

func (s *fakeLoanStore) Save(_ context.Context, l *entity.Loan) (*entity.Loan, error) {
	if s.saveErr != nil {
		return nil, s.saveErr
	}
	if l.ID == 0 {
		l.ID = s.nextID
		s.nextID++
	}
	stored := *l
	stored.BookIDs = slices.Clone(l.BookIDs)
	s.loans[l.ID] = &stored
	return l, nil
}

func (s *fakeLoanStore) ExistsByID(_ context.Context, id int64) (bool, error) {
	_, ok := s.loans[id]
	return ok, nil
}

func (s *fakeLoanStore) GetByID(_ context.Context, id int64) (*entity.Loan, error) {
	l, ok := s.loans[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *l
	copied.BookIDs = slices.Clone(l.BookIDs)
	return &copied, nil
}

func (s *fakeLoanStore) ListByClientID(_ context.Context, clientID int64) ([]*entity.Loan, error) {
	out := []*entity.Loan{}
	for _, l := range s.loans {
		if l.ClientID == clientID {
			copied := *l
			copied.BookIDs = slices.Clone(l.BookIDs)
			out = append(out, &copied)
		}
	}
	slices.SortFunc(out, func(a, b *entity.Loan) int { return int(a.ID - b.ID) })
	return out, nil
}

// fakeTxRunner implements loan.TxRunner without transactional semantics;
// rollback behavior belongs to the database integration, not these tests.
type fakeTxRunner struct{}

func (fakeTxRunner) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
