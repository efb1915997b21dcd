package book

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/pedrohonorio/biblioteca-virtual/internal/book/entity"
)

var (
	ErrNullBook     = errors.New("book is required")
	ErrBookExists   = errors.New("book title already registered")
	ErrBookNotFound = errors.New("book not found")
	ErrBookOnLoan   = errors.New("book is referenced by an active loan")
)

// Store is the persistence access the book package needs.
type Store interface {
	Create(ctx context.Context, b *entity.Book) (int64, error)
	GetByID(ctx context.Context, id int64) (*entity.Book, error)
	ExistsByID(ctx context.Context, id int64) (bool, error)
	ExistsByTitle(ctx context.Context, title string) (bool, error)
	List(ctx context.Context) ([]*entity.Book, error)
	Delete(ctx context.Context, id int64) (int64, error)
}

// LoanChecker answers whether a book is currently on an active loan.
type LoanChecker interface {
	ExistsActiveByBookID(ctx context.Context, bookID int64) (bool, error)
}

// Service covers catalog management: create, browse and remove books.
// Availability is not managed here; the loan service owns that flag.
type Service struct {
	store  Store
	loans  LoanChecker
	logger *zap.SugaredLogger
}

func NewService(store Store, loans LoanChecker, logger *zap.SugaredLogger) *Service {
	return &Service{store: store, loans: loans, logger: logger}
}

// Create registers a new book. Titles are unique case-insensitively and new
// books always enter the catalog available.
func (s *Service) Create(ctx context.Context, b *entity.Book) (*entity.Book, error) {
	if b == nil {
		return nil, fmt.Errorf("create book: %w", ErrNullBook)
	}
	b.Title = strings.TrimSpace(b.Title)
	if b.Title == "" {
		return nil, fmt.Errorf("create book: title is required: %w", ErrNullBook)
	}
	exists, err := s.store.ExistsByTitle(ctx, b.Title)
	if err != nil {
		return nil, fmt.Errorf("create book: look up title: %w", err)
	}
	if exists {
		s.logger.Warnw("book creation rejected, duplicate title", "title", b.Title)
		return nil, fmt.Errorf("create book %q: %w", b.Title, ErrBookExists)
	}
	b.Available = true
	if _, err := s.store.Create(ctx, b); err != nil {
		return nil, fmt.Errorf("create book: %w", err)
	}
	s.logger.Infow("book registered", "book_id", b.ID, "title", b.Title)
	return b, nil
}

// Get returns one book by id.
func (s *Service) Get(ctx context.Context, id int64) (*entity.Book, error) {
	b, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("book %d: %w", id, ErrBookNotFound)
		}
		return nil, fmt.Errorf("get book %d: %w", id, err)
	}
	return b, nil
}

// List returns the whole catalog.
func (s *Service) List(ctx context.Context) ([]*entity.Book, error) {
	books, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	return books, nil
}

// Remove deletes a book from the catalog. A book referenced by an active
// loan cannot be removed.
func (s *Service) Remove(ctx context.Context, id int64) error {
	if id <= 0 {
		return fmt.Errorf("remove book: %w", ErrNullBook)
	}
	exists, err := s.store.ExistsByID(ctx, id)
	if err != nil {
		return fmt.Errorf("remove book %d: %w", id, err)
	}
	if !exists {
		return fmt.Errorf("book %d: %w", id, ErrBookNotFound)
	}
	onLoan, err := s.loans.ExistsActiveByBookID(ctx, id)
	if err != nil {
		return fmt.Errorf("remove book %d: %w", id, err)
	}
	if onLoan {
		s.logger.Warnw("book removal rejected, active loan", "book_id", id)
		return fmt.Errorf("book %d: %w", id, ErrBookOnLoan)
	}
	if _, err := s.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("remove book %d: %w", id, err)
	}
	s.logger.Infow("book removed", "book_id", id)
	return nil
}
