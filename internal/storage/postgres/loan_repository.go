package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/N-Teddy/library-api/internal/domain"
)

type LoanRepository struct {
	querier
}

func NewLoanRepository(pool *pgxpool.Pool) *LoanRepository {
	return &LoanRepository{querier{pool: pool}}
}

func (r *LoanRepository) GetMember(ctx context.Context, memberID string) (domain.Member, error) {
	return getMemberRow(ctx, r.querier, memberID, false)
}

func (r *LoanRepository) GetMemberForUpdate(ctx context.Context, memberID string) (domain.Member, error) {
	return getMemberRow(ctx, r.querier, memberID, true)
}

func (r *LoanRepository) GetBookForUpdate(ctx context.Context, bookID string) (domain.Book, error) {
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

func (r *LoanRepository) CountOpenLoans(ctx context.Context, memberID string) (int, error) {
	const query = `
SELECT COUNT(*)
FROM loans
WHERE member_id = $1 AND status IN ('active', 'overdue')`

	var count int
	if err := r.queryRow(ctx, query, memberID).Scan(&count); err != nil {
		if isInvalidUUID(err) {
			return 0, domain.ErrInvalidID
		}
		return 0, fmt.Errorf("count open loans: %w", err)
	}
	return count, nil
}

func (r *LoanRepository) FindOpenLoan(ctx context.Context, memberID, bookID string) (*domain.Loan, error) {
	const query = `
SELECT id, member_id, book_id, loaned_at, due_at, returned_at, status, fine, renew_count
FROM loans
WHERE member_id = $1 AND book_id = $2 AND status IN ('active', 'overdue')
LIMIT 1`

	var l domain.Loan
	err := r.queryRow(ctx, query, memberID, bookID).
		Scan(&l.ID, &l.MemberID, &l.BookID, &l.LoanedAt, &l.DueAt, &l.ReturnedAt, &l.Status, &l.Fine, &l.RenewCount)
	if err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("find open loan: %w", err)
	}
	return &l, nil
}

func (r *LoanRepository) CreateLoan(ctx context.Context, loan domain.Loan) error {
	const stmt = `
INSERT INTO loans (id, member_id, book_id, loaned_at, due_at, status, fine, renew_count)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.exec(ctx, stmt,
		loan.ID,
		loan.MemberID,
		loan.BookID,
		loan.LoanedAt,
		loan.DueAt,
		loan.Status,
		loan.Fine,
		loan.RenewCount,
	)
	if err != nil {
		// The partial unique index on open (member, book) loans backstops
		// concurrent borrows of the same book by one member.
		if isUniqueViolation(err) {
			return domain.ErrAlreadyBorrowed
		}
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		if isForeignKeyViolation(err) {
			return domain.ErrBookNotFound
		}
		return fmt.Errorf("create loan: %w", err)
	}
	return nil
}

func (r *LoanRepository) GetLoanForUpdate(ctx context.Context, loanID string) (domain.Loan, error) {
	const query = `
SELECT id, member_id, book_id, loaned_at, due_at, returned_at, status, fine, renew_count
FROM loans
WHERE id = $1
FOR UPDATE`

	var l domain.Loan
	err := r.queryRow(ctx, query, loanID).
		Scan(&l.ID, &l.MemberID, &l.BookID, &l.LoanedAt, &l.DueAt, &l.ReturnedAt, &l.Status, &l.Fine, &l.RenewCount)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Loan{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.Loan{}, domain.ErrLoanNotFound
		}
		return domain.Loan{}, fmt.Errorf("get loan: %w", err)
	}
	return l, nil
}

func (r *LoanRepository) MarkLoanReturned(ctx context.Context, loanID string, returnedAt time.Time) error {
	const stmt = `
UPDATE loans
SET status = 'returned', returned_at = $2
WHERE id = $1`

	tag, err := r.exec(ctx, stmt, loanID, returnedAt)
	if err != nil {
		return fmt.Errorf("mark loan returned: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrLoanNotFound
	}
	return nil
}

func (r *LoanRepository) RenewLoan(ctx context.Context, loanID string, dueAt time.Time, renewCount int) error {
	const stmt = `
UPDATE loans
SET due_at = $2, renew_count = $3
WHERE id = $1`

	tag, err := r.exec(ctx, stmt, loanID, dueAt, renewCount)
	if err != nil {
		return fmt.Errorf("renew loan: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrLoanNotFound
	}
	return nil
}

func (r *LoanRepository) AdjustAvailableCopies(ctx context.Context, bookID string, delta int) error {
	const stmt = `
UPDATE books
SET available_copies = available_copies + $2
WHERE id = $1`

	tag, err := r.exec(ctx, stmt, bookID, delta)
	if err != nil {
		// The CHECK constraint keeps 0 <= available_copies <= total_copies.
		if isCheckViolation(err) {
			return domain.ErrBookUnavailable
		}
		return fmt.Errorf("adjust available copies: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrBookNotFound
	}
	return nil
}

func (r *LoanRepository) FindPendingReservation(ctx context.Context, memberID, bookID string) (*domain.Reservation, error) {
	return findPendingReservation(ctx, r.querier, memberID, bookID)
}

func (r *LoanRepository) OldestPendingReservation(ctx context.Context, bookID string) (*domain.Reservation, error) {
	return oldestPendingReservation(ctx, r.querier, bookID)
}

func (r *LoanRepository) CountPendingReservations(ctx context.Context, bookID string) (int, error) {
	return countPendingReservations(ctx, r.querier, bookID)
}

func (r *LoanRepository) SetReservationStatus(ctx context.Context, reservationID string, status domain.ReservationStatus) error {
	return setReservationStatus(ctx, r.querier, reservationID, status)
}

func (r *LoanRepository) MakeReservationAvailable(ctx context.Context, reservationID string, expiresAt time.Time) error {
	return makeReservationAvailable(ctx, r.querier, reservationID, expiresAt)
}

func (r *LoanRepository) GetLoanDetails(ctx context.Context, loanID string) (domain.LoanDetails, error) {
	const query = `
SELECT l.id, l.member_id, l.book_id, l.loaned_at, l.due_at, l.returned_at, l.status, l.fine, l.renew_count,
       b.title, b.author, m.name, m.email
FROM loans l
JOIN books b ON b.id = l.book_id
JOIN members m ON m.id = l.member_id
WHERE l.id = $1`

	var d domain.LoanDetails
	err := r.queryRow(ctx, query, loanID).Scan(
		&d.ID, &d.MemberID, &d.BookID, &d.LoanedAt, &d.DueAt, &d.ReturnedAt, &d.Status, &d.Fine, &d.RenewCount,
		&d.BookTitle, &d.BookAuthor, &d.MemberName, &d.MemberEmail,
	)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.LoanDetails{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.LoanDetails{}, domain.ErrLoanNotFound
		}
		return domain.LoanDetails{}, fmt.Errorf("get loan details: %w", err)
	}
	return d, nil
}

func (r *LoanRepository) ListLoansByMember(ctx context.Context, memberID string, status domain.LoanStatus) ([]domain.LoanDetails, error) {
	const query = `
SELECT l.id, l.member_id, l.book_id, l.loaned_at, l.due_at, l.returned_at, l.status, l.fine, l.renew_count,
       b.title, b.author, m.name, m.email
FROM loans l
JOIN books b ON b.id = l.book_id
JOIN members m ON m.id = l.member_id
WHERE l.member_id = $1 AND ($2 = '' OR l.status = $2)
ORDER BY l.loaned_at DESC`

	rows, err := r.query(ctx, query, memberID, string(status))
	if err != nil {
		return nil, fmt.Errorf("list loans: %w", err)
	}
	defer rows.Close()

	var loans []domain.LoanDetails
	for rows.Next() {
		var d domain.LoanDetails
		if err := rows.Scan(
			&d.ID, &d.MemberID, &d.BookID, &d.LoanedAt, &d.DueAt, &d.ReturnedAt, &d.Status, &d.Fine, &d.RenewCount,
			&d.BookTitle, &d.BookAuthor, &d.MemberName, &d.MemberEmail,
		); err != nil {
			return nil, fmt.Errorf("scan loan: %w", err)
		}
		loans = append(loans, d)
	}
	if rows.Err() != nil {
		if isInvalidUUID(rows.Err()) {
			return nil, domain.ErrInvalidID
		}
		return nil, fmt.Errorf("iterate loans: %w", rows.Err())
	}
	return loans, nil
}
