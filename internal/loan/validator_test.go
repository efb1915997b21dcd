package loan_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pedrohonorio/biblioteca-virtual/internal/loan"
	"github.com/pedrohonorio/biblioteca-virtual/internal/loan/entity"
)

func validBorrow() *entity.Loan {
	now := time.Now()
	return &entity.Loan{
		ClientID: 7,
		BookIDs:  []int64{1, 2},
		LoanDate: now,
		DueDate:  now.AddDate(0, 0, 7),
		Active:   true,
	}
}

func newValidator(books *fakeBookStore, clients *fakeClientStore, loans *fakeLoanStore) *loan.Validator {
	return loan.NewValidator(books, clients, loans)
}

func Test_ValidateBorrow_Success(t *testing.T) {
	v := newValidator(newFakeBookStore(1, 2), newFakeClientStore(7), newFakeLoanStore())

	err := v.ValidateBorrow(context.Background(), validBorrow())

	assert.NoError(t, err)
}

func Test_ValidateBorrow_NullLoan(t *testing.T) {
	v := newValidator(newFakeBookStore(1), newFakeClientStore(7), newFakeLoanStore())

	err := v.ValidateBorrow(context.Background(), nil)

	assert.ErrorIs(t, err, loan.ErrNullLoan)
}

func Test_ValidateBorrow_EmptyBookList(t *testing.T) {
	v := newValidator(newFakeBookStore(1), newFakeClientStore(7), newFakeLoanStore())

	for _, books := range [][]int64{nil, {}} {
		l := validBorrow()
		l.BookIDs = books

		err := v.ValidateBorrow(context.Background(), l)

		assert.ErrorIs(t, err, loan.ErrInvalidBookList)
	}
}

func Test_ValidateBorrow_DuplicateBookIDs(t *testing.T) {
	v := newValidator(newFakeBookStore(1, 2), newFakeClientStore(7), newFakeLoanStore())
	l := validBorrow()
	l.BookIDs = []int64{1, 2, 1}

	err := v.ValidateBorrow(context.Background(), l)

	assert.ErrorIs(t, err, loan.ErrInvalidBookList)
}

func Test_ValidateBorrow_ZeroBookID(t *testing.T) {
	v := newValidator(newFakeBookStore(1), newFakeClientStore(7), newFakeLoanStore())
	l := validBorrow()
	l.BookIDs = []int64{1, 0}

	err := v.ValidateBorrow(context.Background(), l)

	assert.ErrorIs(t, err, loan.ErrInvalidBook)
}

func Test_ValidateBorrow_UnknownBook(t *testing.T) {
	v := newValidator(newFakeBookStore(1, 2), newFakeClientStore(7), newFakeLoanStore())
	l := validBorrow()
	l.BookIDs = []int64{1, 999}

	err := v.ValidateBorrow(context.Background(), l)

	assert.ErrorIs(t, err, loan.ErrBookNotFound)
}

func Test_ValidateBorrow_UnavailableBook(t *testing.T) {
	books := newFakeBookStore(1, 2)
	books.books[2].Available = false
	v := newValidator(books, newFakeClientStore(7), newFakeLoanStore())

	err := v.ValidateBorrow(context.Background(), validBorrow())

	assert.ErrorIs(t, err, loan.ErrInvalidBook)
}

func Test_ValidateBorrow_DueDateWindow(t *testing.T) {
	v := newValidator(newFakeBookStore(1, 2), newFakeClientStore(7), newFakeLoanStore())
	loanDate := time.Date(2026, 3, 10, 14, 30, 0, 0, time.UTC)

	cases := []struct {
		name    string
		dueDays int
		wantErr bool
	}{
		{"same day", 0, false},
		{"seven days out", 7, false},
		{"window upper bound", 15, false},
		{"one day before loan date", -1, true},
		{"one day past the window", 16, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			l := validBorrow()
			l.LoanDate = loanDate
			l.DueDate = loanDate.AddDate(0, 0, tc.dueDays)

			err := v.ValidateBorrow(context.Background(), l)

			if tc.wantErr {
				assert.ErrorIs(t, err, loan.ErrInvalidReturnDate)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func Test_ValidateBorrow_MissingDueDate(t *testing.T) {
	v := newValidator(newFakeBookStore(1, 2), newFakeClientStore(7), newFakeLoanStore())
	l := validBorrow()
	l.DueDate = time.Time{}

	err := v.ValidateBorrow(context.Background(), l)

	assert.ErrorIs(t, err, loan.ErrInvalidReturnDate)
}

func Test_ValidateBorrow_MissingClient(t *testing.T) {
	v := newValidator(newFakeBookStore(1, 2), newFakeClientStore(7), newFakeLoanStore())
	l := validBorrow()
	l.ClientID = 0

	err := v.ValidateBorrow(context.Background(), l)

	assert.ErrorIs(t, err, loan.ErrInvalidClient)
}

func Test_ValidateBorrow_UnknownClient(t *testing.T) {
	v := newValidator(newFakeBookStore(1, 2), newFakeClientStore(7), newFakeLoanStore())
	l := validBorrow()
	l.ClientID = 99

	err := v.ValidateBorrow(context.Background(), l)

	assert.ErrorIs(t, err, loan.ErrClientNotFound)
}

func Test_ValidateBorrow_CardinalityBoundary(t *testing.T) {
	books := newFakeBookStore(1, 2, 3, 4, 5, 6)
	v := newValidator(books, newFakeClientStore(7), newFakeLoanStore())

	atLimit := validBorrow()
	atLimit.BookIDs = []int64{1, 2, 3, 4, 5}
	assert.NoError(t, v.ValidateBorrow(context.Background(), atLimit))

	overLimit := validBorrow()
	overLimit.BookIDs = []int64{1, 2, 3, 4, 5, 6}
	assert.ErrorIs(t, v.ValidateBorrow(context.Background(), overLimit), loan.ErrMaxBooksExceeded)
}

// The checks run in a fixed order so error precedence is stable: a bad book
// reference wins over a bad due date, and a bad due date wins over a bad
// client reference.
func Test_ValidateBorrow_ErrorPrecedence(t *testing.T) {
	v := newValidator(newFakeBookStore(1, 2), newFakeClientStore(7), newFakeLoanStore())

	l := validBorrow()
	l.BookIDs = []int64{999}
	l.DueDate = l.LoanDate.AddDate(0, 0, 20)
	assert.ErrorIs(t, v.ValidateBorrow(context.Background(), l), loan.ErrBookNotFound)

	l = validBorrow()
	l.DueDate = l.LoanDate.AddDate(0, 0, 20)
	l.ClientID = 0
	assert.ErrorIs(t, v.ValidateBorrow(context.Background(), l), loan.ErrInvalidReturnDate)
}

// Validation performs only reads: the same input against unchanged state
// must produce the same outcome on every call.
func Test_ValidateBorrow_Idempotent(t *testing.T) {
	books := newFakeBookStore(1, 2)
	v := newValidator(books, newFakeClientStore(7), newFakeLoanStore())
	l := validBorrow()

	first := v.ValidateBorrow(context.Background(), l)
	second := v.ValidateBorrow(context.Background(), l)

	assert.NoError(t, first)
	assert.NoError(t, second)
	for _, b := range books.books {
		assert.True(t, b.Available)
	}
}

func Test_ValidateReturn_Success(t *testing.T) {
	loans := newFakeLoanStore()
	stored, err := loans.Save(context.Background(), validBorrow())
	require.NoError(t, err)
	v := newValidator(newFakeBookStore(1, 2), newFakeClientStore(7), loans)

	err = v.ValidateReturn(context.Background(), &entity.Loan{ID: stored.ID, ClientID: 7})

	assert.NoError(t, err)
}

func Test_ValidateReturn_NullLoan(t *testing.T) {
	v := newValidator(newFakeBookStore(), newFakeClientStore(), newFakeLoanStore())

	err := v.ValidateReturn(context.Background(), nil)

	assert.ErrorIs(t, err, loan.ErrNullLoan)
}

func Test_ValidateReturn_UnknownLoan(t *testing.T) {
	v := newValidator(newFakeBookStore(), newFakeClientStore(7), newFakeLoanStore())

	err := v.ValidateReturn(context.Background(), &entity.Loan{ID: 42, ClientID: 7})

	assert.ErrorIs(t, err, loan.ErrLoanNotFound)
}

func Test_ValidateReturn_MissingClient(t *testing.T) {
	loans := newFakeLoanStore()
	stored, err := loans.Save(context.Background(), validBorrow())
	require.NoError(t, err)
	v := newValidator(newFakeBookStore(), newFakeClientStore(7), loans)

	err = v.ValidateReturn(context.Background(), &entity.Loan{ID: stored.ID})

	assert.ErrorIs(t, err, loan.ErrInvalidClient)
}

func Test_ValidateReturn_UnknownClient(t *testing.T) {
	loans := newFakeLoanStore()
	stored, err := loans.Save(context.Background(), validBorrow())
	require.NoError(t, err)
	v := newValidator(newFakeBookStore(), newFakeClientStore(7), loans)

	err = v.ValidateReturn(context.Background(), &entity.Loan{ID: stored.ID, ClientID: 99})

	assert.ErrorIs(t, err, loan.ErrClientNotFound)
}
