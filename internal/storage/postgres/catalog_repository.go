package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/N-Teddy/library-api/internal/domain"
)

type CatalogRepository struct {
	querier
}

func NewCatalogRepository(pool *pgxpool.Pool) *CatalogRepository {
	return &CatalogRepository{querier{pool: pool}}
}

func (r *CatalogRepository) GetBook(ctx context.Context, bookID string) (domain.Book, error) {
	const query = `
SELECT id, isbn, title, author, genre, total_copies, available_copies, created_at
FROM books
WHERE id = $1`

	var b domain.Book
	err := r.queryRow(ctx, query, bookID).
		Scan(&b.ID, &b.ISBN, &b.Title, &b.Author, &b.Genre, &b.TotalCopies, &b.AvailableCopies, &b.CreatedAt)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Book{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.Book{}, domain.ErrBookNotFound
		}
		return domain.Book{}, fmt.Errorf("get book: %w", err)
	}
	return b, nil
}

func (r *CatalogRepository) GetBookForUpdate(ctx context.Context, bookID string) (domain.Book, error) {
	const query = `
SELECT id, isbn, title, author, genre, total_copies, available_copies, created_at
FROM books
WHERE id = $1
FOR UPDATE`

	var b domain.Book
	err := r.queryRow(ctx, query, bookID).
		Scan(&b.ID, &b.ISBN, &b.Title, &b.Author, &b.Genre, &b.TotalCopies, &b.AvailableCopies, &b.CreatedAt)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Book{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.Book{}, domain.ErrBookNotFound
		}
		return domain.Book{}, fmt.Errorf("get book: %w", err)
	}
	return b, nil
}

func (r *CatalogRepository) CreateBook(ctx context.Context, book domain.Book) error {
	const stmt = `
INSERT INTO books (id, isbn, title, author, genre, total_copies, available_copies, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.exec(ctx, stmt,
		book.ID,
		book.ISBN,
		book.Title,
		book.Author,
		book.Genre,
		book.TotalCopies,
		book.AvailableCopies,
		book.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrISBNTaken
		}
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("create book: %w", err)
	}
	return nil
}

func (r *CatalogRepository) UpdateBook(ctx context.Context, book domain.Book) error {
	const stmt = `
UPDATE books
SET title = $2, author = $3, genre = $4, total_copies = $5, available_copies = $6
WHERE id = $1`

	tag, err := r.exec(ctx, stmt,
		book.ID,
		book.Title,
		book.Author,
		book.Genre,
		book.TotalCopies,
		book.AvailableCopies,
	)
	if err != nil {
		if isCheckViolation(err) {
			return domain.ErrInvalidCopies
		}
		return fmt.Errorf("update book: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrBookNotFound
	}
	return nil
}

func (r *CatalogRepository) DeleteBook(ctx context.Context, bookID string) error {
	const stmt = `DELETE FROM books WHERE id = $1`

	tag, err := r.exec(ctx, stmt, bookID)
	if err != nil {
		// Historical loans and reservations reference the book; those rows
		// block deletion just like open ones.
		if isForeignKeyViolation(err) {
			return domain.ErrBookHasOpenLoans
		}
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("delete book: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrBookNotFound
	}
	return nil
}

func (r *CatalogRepository) CountOpenLoansForBook(ctx context.Context, bookID string) (int, error) {
	const query = `
SELECT COUNT(*)
FROM loans
WHERE book_id = $1 AND status IN ('active', 'overdue')`

	var count int
	if err := r.queryRow(ctx, query, bookID).Scan(&count); err != nil {
		if isInvalidUUID(err) {
			return 0, domain.ErrInvalidID
		}
		return 0, fmt.Errorf("count open loans for book: %w", err)
	}
	return count, nil
}

func (r *CatalogRepository) CountPendingReservations(ctx context.Context, bookID string) (int, error) {
	return countPendingReservations(ctx, r.querier, bookID)
}

func (r *CatalogRepository) ListBooks(ctx context.Context, search, genre string, availableOnly bool, limit, offset int) ([]domain.Book, int, error) {
	conds := []string{"TRUE"}
	args := []any{}

	if search != "" {
		args = append(args, "%"+search+"%")
		n := len(args)
		conds = append(conds, fmt.Sprintf("(title ILIKE $%d OR author ILIKE $%d OR isbn ILIKE $%d)", n, n, n))
	}
	if genre != "" {
		args = append(args, genre)
		conds = append(conds, fmt.Sprintf("genre = $%d", len(args)))
	}
	if availableOnly {
		conds = append(conds, "available_copies > 0")
	}
	where := strings.Join(conds, " AND ")

	var total int
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM books WHERE %s`, where)
	if err := r.queryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count books: %w", err)
	}

	args = append(args, limit, offset)
	listQuery := fmt.Sprintf(`
SELECT id, isbn, title, author, genre, total_copies, available_copies, created_at
FROM books
WHERE %s
ORDER BY title ASC
LIMIT $%d OFFSET $%d`, where, len(args)-1, len(args))

	rows, err := r.query(ctx, listQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list books: %w", err)
	}
	defer rows.Close()

	var books []domain.Book
	for rows.Next() {
		var b domain.Book
		if err := rows.Scan(&b.ID, &b.ISBN, &b.Title, &b.Author, &b.Genre, &b.TotalCopies, &b.AvailableCopies, &b.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan book: %w", err)
		}
		books = append(books, b)
	}
	if rows.Err() != nil {
		return nil, 0, fmt.Errorf("iterate books: %w", rows.Err())
	}
	return books, total, nil
}
