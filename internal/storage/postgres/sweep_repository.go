package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/N-Teddy/library-api/internal/domain"
)

// SweepRepository backs both scheduled sweeps: fine accrual and
// reminders/expiry.
type SweepRepository struct {
	querier
}

func NewSweepRepository(pool *pgxpool.Pool) *SweepRepository {
	return &SweepRepository{querier{pool: pool}}
}

func (r *SweepRepository) FindOverdueLoans(ctx context.Context, asOf time.Time) ([]domain.Loan, error) {
	const query = `
SELECT id, member_id, book_id, loaned_at, due_at, returned_at, status, fine, renew_count
FROM loans
WHERE status = 'active' AND due_at < $1
ORDER BY due_at ASC`

	rows, err := r.query(ctx, query, asOf)
	if err != nil {
		return nil, fmt.Errorf("find overdue loans: %w", err)
	}
	defer rows.Close()

	var loans []domain.Loan
	for rows.Next() {
		var l domain.Loan
		if err := rows.Scan(&l.ID, &l.MemberID, &l.BookID, &l.LoanedAt, &l.DueAt, &l.ReturnedAt, &l.Status, &l.Fine, &l.RenewCount); err != nil {
			return nil, fmt.Errorf("scan loan: %w", err)
		}
		loans = append(loans, l)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate loans: %w", rows.Err())
	}
	return loans, nil
}

func (r *SweepRepository) StampOverdue(ctx context.Context, loanID string, fine int64) error {
	const stmt = `
UPDATE loans
SET status = 'overdue', fine = $2
WHERE id = $1`

	tag, err := r.exec(ctx, stmt, loanID, fine)
	if err != nil {
		return fmt.Errorf("stamp overdue: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrLoanNotFound
	}
	return nil
}

func (r *SweepRepository) AddToFineBalance(ctx context.Context, memberID string, amount int64) error {
	const stmt = `
UPDATE members
SET fine_balance = fine_balance + $2
WHERE id = $1`

	tag, err := r.exec(ctx, stmt, memberID, amount)
	if err != nil {
		return fmt.Errorf("add to fine balance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrMemberNotFound
	}
	return nil
}

func (r *SweepRepository) FindLoansDueBetween(ctx context.Context, from, until time.Time) ([]domain.LoanDetails, error) {
	const query = `
SELECT l.id, l.member_id, l.book_id, l.loaned_at, l.due_at, l.returned_at, l.status, l.fine, l.renew_count,
       b.title, b.author, m.name, m.email
FROM loans l
JOIN books b ON b.id = l.book_id
JOIN members m ON m.id = l.member_id
WHERE l.status = 'active' AND l.due_at >= $1 AND l.due_at <= $2
ORDER BY l.due_at ASC`

	rows, err := r.query(ctx, query, from, until)
	if err != nil {
		return nil, fmt.Errorf("find loans due soon: %w", err)
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
		return nil, fmt.Errorf("iterate loans: %w", rows.Err())
	}
	return loans, nil
}

func (r *SweepRepository) FindExpiredReservations(ctx context.Context, asOf time.Time) ([]domain.Reservation, error) {
	const query = `
SELECT id, member_id, book_id, status, expires_at, created_at
FROM reservations
WHERE status = 'available' AND expires_at < $1
ORDER BY expires_at ASC`

	rows, err := r.query(ctx, query, asOf)
	if err != nil {
		return nil, fmt.Errorf("find expired reservations: %w", err)
	}
	defer rows.Close()

	var reservations []domain.Reservation
	for rows.Next() {
		var res domain.Reservation
		if err := rows.Scan(&res.ID, &res.MemberID, &res.BookID, &res.Status, &res.ExpiresAt, &res.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan reservation: %w", err)
		}
		reservations = append(reservations, res)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate reservations: %w", rows.Err())
	}
	return reservations, nil
}

func (r *SweepRepository) SetReservationStatus(ctx context.Context, reservationID string, status domain.ReservationStatus) error {
	return setReservationStatus(ctx, r.querier, reservationID, status)
}

func (r *SweepRepository) MakeReservationAvailable(ctx context.Context, reservationID string, expiresAt time.Time) error {
	return makeReservationAvailable(ctx, r.querier, reservationID, expiresAt)
}

func (r *SweepRepository) OldestPendingReservation(ctx context.Context, bookID string) (*domain.Reservation, error) {
	return oldestPendingReservation(ctx, r.querier, bookID)
}

func (r *SweepRepository) GetMember(ctx context.Context, memberID string) (domain.Member, error) {
	return getMemberRow(ctx, r.querier, memberID, false)
}

func (r *SweepRepository) GetBook(ctx context.Context, bookID string) (domain.Book, error) {
	const query = `
SELECT id, isbn, title, author, genre, total_copies, available_copies, created_at
FROM books
WHERE id = $1`

	var b domain.Book
	err := r.queryRow(ctx, query, bookID).
		Scan(&b.ID, &b.ISBN, &b.Title, &b.Author, &b.Genre, &b.TotalCopies, &b.AvailableCopies, &b.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.Book{}, domain.ErrBookNotFound
		}
		return domain.Book{}, fmt.Errorf("get book: %w", err)
	}
	return b, nil
}
