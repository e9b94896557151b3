package app

import (
	"context"

	"github.com/N-Teddy/library-api/internal/clock"
	"github.com/N-Teddy/library-api/internal/domain"
)

// CatalogRepository is the storage surface for catalog administration.
type CatalogRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	GetBook(ctx context.Context, bookID string) (domain.Book, error)
	GetBookForUpdate(ctx context.Context, bookID string) (domain.Book, error)
	CreateBook(ctx context.Context, book domain.Book) error
	UpdateBook(ctx context.Context, book domain.Book) error
	DeleteBook(ctx context.Context, bookID string) error
	CountOpenLoansForBook(ctx context.Context, bookID string) (int, error)
	CountPendingReservations(ctx context.Context, bookID string) (int, error)
	ListBooks(ctx context.Context, search, genre string, availableOnly bool, limit, offset int) ([]domain.Book, int, error)
}

// BookQuery filters and pages the catalog listing. Search matches title,
// author, or ISBN, case-insensitively.
type BookQuery struct {
	Search        string
	Genre         string
	AvailableOnly bool
	Page          int
	PerPage       int
}

type CatalogService struct {
	repo  CatalogRepository
	clock clock.Clock
}

func NewCatalogService(repo CatalogRepository, clk clock.Clock) *CatalogService {
	return &CatalogService{
		repo:  repo,
		clock: clk,
	}
}

type CreateBookInput struct {
	ISBN        string
	Title       string
	Author      string
	Genre       string
	TotalCopies int
}

func (s *CatalogService) CreateBook(ctx context.Context, in CreateBookInput) (domain.Book, error) {
	if in.ISBN == "" {
		return domain.Book{}, domain.ErrISBNRequired
	}
	if in.Title == "" {
		return domain.Book{}, domain.ErrTitleRequired
	}
	if in.TotalCopies <= 0 {
		return domain.Book{}, domain.ErrInvalidCopies
	}

	book := domain.Book{
		ID:              newID(),
		ISBN:            in.ISBN,
		Title:           in.Title,
		Author:          in.Author,
		Genre:           in.Genre,
		TotalCopies:     in.TotalCopies,
		AvailableCopies: in.TotalCopies,
		CreatedAt:       s.clock.Now(),
	}
	if err := s.repo.CreateBook(ctx, book); err != nil {
		return domain.Book{}, err
	}
	return book, nil
}

type UpdateBookInput struct {
	BookID      string
	Title       *string
	Author      *string
	Genre       *string
	TotalCopies *int
}

// UpdateBook edits catalog fields. Changing the total copy count shifts
// the available count by the same delta; shrinking below the number of
// copies currently on loan is rejected.
func (s *CatalogService) UpdateBook(ctx context.Context, in UpdateBookInput) (domain.Book, error) {
	if in.BookID == "" {
		return domain.Book{}, domain.ErrInvalidID
	}

	var result domain.Book
	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		book, err := s.repo.GetBookForUpdate(txCtx, in.BookID)
		if err != nil {
			return err
		}

		if in.Title != nil {
			if *in.Title == "" {
				return domain.ErrTitleRequired
			}
			book.Title = *in.Title
		}
		if in.Author != nil {
			book.Author = *in.Author
		}
		if in.Genre != nil {
			book.Genre = *in.Genre
		}
		if in.TotalCopies != nil {
			if *in.TotalCopies <= 0 {
				return domain.ErrInvalidCopies
			}
			delta := *in.TotalCopies - book.TotalCopies
			if book.AvailableCopies+delta < 0 {
				return domain.ErrInvalidCopies
			}
			book.TotalCopies = *in.TotalCopies
			book.AvailableCopies += delta
		}

		if err := s.repo.UpdateBook(txCtx, book); err != nil {
			return err
		}
		result = book
		return nil
	})
	if err != nil {
		return domain.Book{}, err
	}
	return result, nil
}

// DeleteBook removes a catalog entry. Books with open loans cannot be
// deleted.
func (s *CatalogService) DeleteBook(ctx context.Context, bookID string) error {
	if bookID == "" {
		return domain.ErrInvalidID
	}

	return s.repo.WithTx(ctx, func(txCtx context.Context) error {
		if _, err := s.repo.GetBookForUpdate(txCtx, bookID); err != nil {
			return err
		}
		open, err := s.repo.CountOpenLoansForBook(txCtx, bookID)
		if err != nil {
			return err
		}
		if open > 0 {
			return domain.ErrBookHasOpenLoans
		}
		return s.repo.DeleteBook(txCtx, bookID)
	})
}

// GetBook returns a book with its open-loan and pending-reservation counts.
func (s *CatalogService) GetBook(ctx context.Context, bookID string) (domain.BookDetails, error) {
	if bookID == "" {
		return domain.BookDetails{}, domain.ErrInvalidID
	}

	book, err := s.repo.GetBook(ctx, bookID)
	if err != nil {
		return domain.BookDetails{}, err
	}
	open, err := s.repo.CountOpenLoansForBook(ctx, bookID)
	if err != nil {
		return domain.BookDetails{}, err
	}
	pending, err := s.repo.CountPendingReservations(ctx, bookID)
	if err != nil {
		return domain.BookDetails{}, err
	}

	return domain.BookDetails{
		Book:                book,
		OpenLoans:           open,
		PendingReservations: pending,
	}, nil
}

// ListBooks pages through the catalog. Returns the page plus the total
// match count.
func (s *CatalogService) ListBooks(ctx context.Context, q BookQuery) ([]domain.Book, int, error) {
	if q.Page <= 0 {
		q.Page = 1
	}
	if q.PerPage <= 0 || q.PerPage > 100 {
		q.PerPage = 10
	}
	return s.repo.ListBooks(ctx, q.Search, q.Genre, q.AvailableOnly, q.PerPage, (q.Page-1)*q.PerPage)
}
