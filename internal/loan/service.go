package loan

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/pedrohonorio/biblioteca-virtual/internal/loan/entity"
)

// TxRunner executes a function inside a single storage transaction.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Notifier is told about completed lifecycle transitions. Implementations
// must not fail the loan: notification errors are theirs to swallow and log.
type Notifier interface {
	LoanCreated(ctx context.Context, l *entity.Loan)
	LoanReturned(ctx context.Context, l *entity.Loan)
}

// NopNotifier discards all notifications.
type NopNotifier struct{}

func (NopNotifier) LoanCreated(context.Context, *entity.Loan)  {}
func (NopNotifier) LoanReturned(context.Context, *entity.Loan) {}

// Service is the loan lifecycle engine. A loan has two transitions, borrow
// and return, and the service is the only writer of book availability:
// validation runs first with no side effects, then the availability flips
// and the loan write happen inside one transaction, so a failed save never
// leaves a book stuck unavailable.
type Service struct {
	validator *Validator
	books     BookStore
	loans     LoanStore
	tx        TxRunner
	notifier  Notifier
	logger    *zap.SugaredLogger
	now       func() time.Time
}

func NewService(v *Validator, books BookStore, loans LoanStore, tx TxRunner, notifier Notifier, logger *zap.SugaredLogger) *Service {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &Service{
		validator: v,
		books:     books,
		loans:     loans,
		tx:        tx,
		notifier:  notifier,
		logger:    logger,
		now:       time.Now,
	}
}

// Borrow creates an active loan. The loan date is stamped by the engine,
// never taken from the request. Every referenced book is flipped to
// unavailable; a book that lost its availability between validation and the
// flip fails the whole transaction.
func (s *Service) Borrow(ctx context.Context, l *entity.Loan) (*entity.Loan, error) {
	if l != nil {
		l.LoanDate = s.now()
		l.Active = true
		l.ReturnDate = nil
		// The loan owns its book list; detach it from the caller's slice.
		l.BookIDs = slices.Clone(l.BookIDs)
	}
	if err := s.validator.ValidateBorrow(ctx, l); err != nil {
		s.logger.Warnw("borrow rejected", "err", err)
		return nil, fmt.Errorf("borrow: %w", err)
	}

	var saved *entity.Loan
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		for _, bookID := range l.BookIDs {
			flipped, err := s.books.SetAvailability(ctx, bookID, false)
			if err != nil {
				return fmt.Errorf("mark book %d unavailable: %w", bookID, err)
			}
			if !flipped {
				// Lost a concurrent borrow between validation and here.
				return fmt.Errorf("book %d is not available: %w", bookID, ErrInvalidBook)
			}
		}
		var err error
		saved, err = s.loans.Save(ctx, l)
		if err != nil {
			return fmt.Errorf("save loan: %w", err)
		}
		return nil
	})
	if err != nil {
		s.logger.Errorw("borrow failed", "client_id", l.ClientID, "err", err)
		return nil, fmt.Errorf("borrow: %w", err)
	}

	s.logger.Infow("loan created", "loan_id", saved.ID, "client_id", saved.ClientID, "books", len(saved.BookIDs))
	s.notifier.LoanCreated(ctx, saved)
	return saved, nil
}

// Return closes an active loan: the stored loan is deactivated, stamped
// with a return date, and every referenced book is flipped back to
// available inside the same transaction as the loan update.
func (s *Service) Return(ctx context.Context, l *entity.Loan) (*entity.Loan, error) {
	if err := s.validator.ValidateReturn(ctx, l); err != nil {
		s.logger.Warnw("return rejected", "err", err)
		return nil, fmt.Errorf("return: %w", err)
	}

	stored, err := s.loans.GetByID(ctx, l.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("return: loan %d: %w", l.ID, ErrLoanNotFound)
		}
		return nil, fmt.Errorf("return: load loan %d: %w", l.ID, err)
	}

	stored.Active = false
	returnedAt := s.now()
	stored.ReturnDate = &returnedAt

	var saved *entity.Loan
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		for _, bookID := range stored.BookIDs {
			// Flipping an already-available book is a no-op, not an error.
			if _, err := s.books.SetAvailability(ctx, bookID, true); err != nil {
				return fmt.Errorf("mark book %d available: %w", bookID, err)
			}
		}
		var err error
		saved, err = s.loans.Save(ctx, stored)
		if err != nil {
			return fmt.Errorf("save loan: %w", err)
		}
		return nil
	})
	if err != nil {
		s.logger.Errorw("return failed", "loan_id", stored.ID, "err", err)
		return nil, fmt.Errorf("return: %w", err)
	}

	s.logger.Infow("loan returned", "loan_id", saved.ID, "client_id", saved.ClientID)
	s.notifier.LoanReturned(ctx, saved)
	return saved, nil
}

// ListForClient returns every loan of the client in store-natural order.
// A client with no loans, or an unknown client, yields an empty slice.
func (s *Service) ListForClient(ctx context.Context, clientID int64) ([]*entity.Loan, error) {
	loans, err := s.loans.ListByClientID(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("list loans for client %d: %w", clientID, err)
	}
	return loans, nil
}

// WithClock overrides the engine's time source. Test hook.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}
