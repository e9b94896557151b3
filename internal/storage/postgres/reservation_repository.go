package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/N-Teddy/library-api/internal/domain"
)

type ReservationRepository struct {
	querier
}

func NewReservationRepository(pool *pgxpool.Pool) *ReservationRepository {
	return &ReservationRepository{querier{pool: pool}}
}

func (r *ReservationRepository) GetMember(ctx context.Context, memberID string) (domain.Member, error) {
	return getMemberRow(ctx, r.querier, memberID, false)
}

func (r *ReservationRepository) GetBookForUpdate(ctx context.Context, bookID string) (domain.Book, error) {
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

func (r *ReservationRepository) FindPendingReservation(ctx context.Context, memberID, bookID string) (*domain.Reservation, error) {
	return findPendingReservation(ctx, r.querier, memberID, bookID)
}

func (r *ReservationRepository) FindOpenLoan(ctx context.Context, memberID, bookID string) (*domain.Loan, error) {
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

func (r *ReservationRepository) CreateReservation(ctx context.Context, reservation domain.Reservation) error {
	const stmt = `
INSERT INTO reservations (id, member_id, book_id, status, expires_at, created_at)
VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.exec(ctx, stmt,
		reservation.ID,
		reservation.MemberID,
		reservation.BookID,
		reservation.Status,
		reservation.ExpiresAt,
		reservation.CreatedAt,
	)
	if err != nil {
		// Partial unique index on pending (member, book) reservations.
		if isUniqueViolation(err) {
			return domain.ErrAlreadyReserved
		}
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		if isForeignKeyViolation(err) {
			return domain.ErrBookNotFound
		}
		return fmt.Errorf("create reservation: %w", err)
	}
	return nil
}

func (r *ReservationRepository) QueuePosition(ctx context.Context, bookID string, createdAt time.Time) (int, error) {
	const query = `
SELECT COUNT(*)
FROM reservations
WHERE book_id = $1 AND status = 'pending' AND created_at <= $2`

	var position int
	if err := r.queryRow(ctx, query, bookID, createdAt).Scan(&position); err != nil {
		if isInvalidUUID(err) {
			return 0, domain.ErrInvalidID
		}
		return 0, fmt.Errorf("queue position: %w", err)
	}
	return position, nil
}

func (r *ReservationRepository) GetReservationForUpdate(ctx context.Context, reservationID string) (domain.Reservation, error) {
	const query = `
SELECT id, member_id, book_id, status, expires_at, created_at
FROM reservations
WHERE id = $1
FOR UPDATE`

	var res domain.Reservation
	err := r.queryRow(ctx, query, reservationID).
		Scan(&res.ID, &res.MemberID, &res.BookID, &res.Status, &res.ExpiresAt, &res.CreatedAt)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Reservation{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.Reservation{}, domain.ErrReservationNotFound
		}
		return domain.Reservation{}, fmt.Errorf("get reservation: %w", err)
	}
	return res, nil
}

func (r *ReservationRepository) SetReservationStatus(ctx context.Context, reservationID string, status domain.ReservationStatus) error {
	return setReservationStatus(ctx, r.querier, reservationID, status)
}

func (r *ReservationRepository) ListMemberReservations(ctx context.Context, memberID string) ([]domain.QueuedReservation, error) {
	const query = `
SELECT r.id, r.member_id, r.book_id, r.status, r.expires_at, r.created_at, b.title,
       (SELECT COUNT(*)
        FROM reservations p
        WHERE p.book_id = r.book_id AND p.status = 'pending' AND p.created_at <= r.created_at)
FROM reservations r
JOIN books b ON b.id = r.book_id
WHERE r.member_id = $1 AND r.status IN ('pending', 'available')
ORDER BY r.created_at DESC`

	rows, err := r.query(ctx, query, memberID)
	if err != nil {
		return nil, fmt.Errorf("list reservations: %w", err)
	}
	defer rows.Close()

	var reservations []domain.QueuedReservation
	for rows.Next() {
		var qr domain.QueuedReservation
		if err := rows.Scan(
			&qr.ID, &qr.MemberID, &qr.BookID, &qr.Status, &qr.ExpiresAt, &qr.CreatedAt,
			&qr.BookTitle, &qr.QueuePosition,
		); err != nil {
			return nil, fmt.Errorf("scan reservation: %w", err)
		}
		reservations = append(reservations, qr)
	}
	if rows.Err() != nil {
		if isInvalidUUID(rows.Err()) {
			return nil, domain.ErrInvalidID
		}
		return nil, fmt.Errorf("iterate reservations: %w", rows.Err())
	}
	return reservations, nil
}
