package loan

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	bookentity "github.com/pedrohonorio/biblioteca-virtual/internal/book/entity"
	"github.com/pedrohonorio/biblioteca-virtual/internal/loan/entity"
)

const (
	// MaxBooksPerLoan bounds how many books a single loan may reference.
	MaxBooksPerLoan = 5

	// maxLoanDays is the widest permitted window between loan date and due date.
	maxLoanDays = 15
)

var (
	ErrNullLoan          = errors.New("loan is required")
	ErrInvalidBookList   = errors.New("loan must reference at least one book")
	ErrInvalidBook       = errors.New("book is invalid or unavailable")
	ErrBookNotFound      = errors.New("book not found")
	ErrInvalidReturnDate = errors.New("due date outside the permitted window")
	ErrInvalidClient     = errors.New("client reference is required")
	ErrClientNotFound    = errors.New("client not found")
	ErrMaxBooksExceeded  = errors.New("too many books for a single loan")
	ErrLoanNotFound      = errors.New("loan not found")
)

// BookStore is the catalog access the loan package needs.
type BookStore interface {
	GetByID(ctx context.Context, id int64) (*bookentity.Book, error)
	SetAvailability(ctx context.Context, id int64, available bool) (bool, error)
}

// ClientStore is the client access the loan package needs.
type ClientStore interface {
	ExistsByID(ctx context.Context, id int64) (bool, error)
}

// LoanStore is the persistence access the loan package needs.
type LoanStore interface {
	Save(ctx context.Context, l *entity.Loan) (*entity.Loan, error)
	ExistsByID(ctx context.Context, id int64) (bool, error)
	GetByID(ctx context.Context, id int64) (*entity.Loan, error)
	ListByClientID(ctx context.Context, clientID int64) ([]*entity.Loan, error)
}

// Validator is the stateless rule-checker for loan operations. It performs
// read-only lookups and has no side effects, so it is safe to call
// repeatedly on the same input.
type Validator struct {
	books   BookStore
	clients ClientStore
	loans   LoanStore
}

func NewValidator(books BookStore, clients ClientStore, loans LoanStore) *Validator {
	return &Validator{books: books, clients: clients, loans: loans}
}

// ValidateBorrow runs the borrow checks in a fixed order and returns the
// first violation. The order is part of the contract: callers and tests
// rely on a stable error precedence, so the checks are not reordered for
// cheaper short-circuits.
func (v *Validator) ValidateBorrow(ctx context.Context, l *entity.Loan) error {
	if l == nil {
		return ErrNullLoan
	}
	if len(l.BookIDs) == 0 {
		return ErrInvalidBookList
	}
	if err := v.checkDuplicateBooks(l.BookIDs); err != nil {
		return err
	}
	for _, bookID := range l.BookIDs {
		if err := v.checkBook(ctx, bookID); err != nil {
			return err
		}
	}
	if err := checkDueDate(l.LoanDate, l.DueDate); err != nil {
		return err
	}
	if l.ClientID == 0 {
		return ErrInvalidClient
	}
	exists, err := v.clients.ExistsByID(ctx, l.ClientID)
	if err != nil {
		return fmt.Errorf("look up client %d: %w", l.ClientID, err)
	}
	if !exists {
		return fmt.Errorf("client %d: %w", l.ClientID, ErrClientNotFound)
	}
	if len(l.BookIDs) > MaxBooksPerLoan {
		return fmt.Errorf("%d books, limit %d: %w", len(l.BookIDs), MaxBooksPerLoan, ErrMaxBooksExceeded)
	}
	return nil
}

// ValidateReturn checks that a return request references a tracked loan and
// a resolvable client.
func (v *Validator) ValidateReturn(ctx context.Context, l *entity.Loan) error {
	if l == nil {
		return ErrNullLoan
	}
	exists, err := v.loans.ExistsByID(ctx, l.ID)
	if err != nil {
		return fmt.Errorf("look up loan %d: %w", l.ID, err)
	}
	if !exists {
		return fmt.Errorf("loan %d: %w", l.ID, ErrLoanNotFound)
	}
	if l.ClientID == 0 {
		return ErrInvalidClient
	}
	exists, err = v.clients.ExistsByID(ctx, l.ClientID)
	if err != nil {
		return fmt.Errorf("look up client %d: %w", l.ClientID, err)
	}
	if !exists {
		return fmt.Errorf("client %d: %w", l.ClientID, ErrClientNotFound)
	}
	return nil
}

// checkDuplicateBooks rejects a request that names the same book twice.
// Toggling the same row twice would be a no-op for the final state but it
// almost always indicates a client bug, so the list is refused outright.
func (v *Validator) checkDuplicateBooks(ids []int64) error {
	seen := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			return fmt.Errorf("duplicate book %d: %w", id, ErrInvalidBookList)
		}
		seen[id] = struct{}{}
	}
	return nil
}

func (v *Validator) checkBook(ctx context.Context, id int64) error {
	if id <= 0 {
		return fmt.Errorf("missing book id: %w", ErrInvalidBook)
	}
	b, err := v.books.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("book %d: %w", id, ErrBookNotFound)
		}
		return fmt.Errorf("look up book %d: %w", id, err)
	}
	if !b.Available {
		return fmt.Errorf("book %d is not available: %w", id, ErrInvalidBook)
	}
	return nil
}

// checkDueDate accepts due dates from the loan date up to loan date plus
// maxLoanDays, inclusive on both ends. Comparison is calendar-day based so
// intraday clock offsets between the two stamps do not matter.
func checkDueDate(loanDate, dueDate time.Time) error {
	if dueDate.IsZero() {
		return fmt.Errorf("due date is required: %w", ErrInvalidReturnDate)
	}
	loan := dateOnly(loanDate)
	due := dateOnly(dueDate)
	if due.Before(loan) {
		return fmt.Errorf("due date before loan date: %w", ErrInvalidReturnDate)
	}
	if due.After(loan.AddDate(0, 0, maxLoanDays)) {
		return fmt.Errorf("due date more than %d days out: %w", maxLoanDays, ErrInvalidReturnDate)
	}
	return nil
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
