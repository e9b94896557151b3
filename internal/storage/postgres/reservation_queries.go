package postgres

// Reservation queries shared by the loan, reservation, and sweep
// repositories: return-driven promotion, expiry-driven promotion, and
// borrow-time fulfilment all touch the same rows.

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/N-Teddy/library-api/internal/domain"
)

func findPendingReservation(ctx context.Context, q querier, memberID, bookID string) (*domain.Reservation, error) {
	const query = `
SELECT id, member_id, book_id, status, expires_at, created_at
FROM reservations
WHERE member_id = $1 AND book_id = $2 AND status = 'pending'
LIMIT 1`

	var res domain.Reservation
	err := q.queryRow(ctx, query, memberID, bookID).
		Scan(&res.ID, &res.MemberID, &res.BookID, &res.Status, &res.ExpiresAt, &res.CreatedAt)
	if err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("find pending reservation: %w", err)
	}
	return &res, nil
}

func oldestPendingReservation(ctx context.Context, q querier, bookID string) (*domain.Reservation, error) {
	const query = `
SELECT id, member_id, book_id, status, expires_at, created_at
FROM reservations
WHERE book_id = $1 AND status = 'pending'
ORDER BY created_at ASC
LIMIT 1
FOR UPDATE`

	var res domain.Reservation
	err := q.queryRow(ctx, query, bookID).
		Scan(&res.ID, &res.MemberID, &res.BookID, &res.Status, &res.ExpiresAt, &res.CreatedAt)
	if err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("oldest pending reservation: %w", err)
	}
	return &res, nil
}

func countPendingReservations(ctx context.Context, q querier, bookID string) (int, error) {
	const query = `
SELECT COUNT(*)
FROM reservations
WHERE book_id = $1 AND status = 'pending'`

	var count int
	if err := q.queryRow(ctx, query, bookID).Scan(&count); err != nil {
		if isInvalidUUID(err) {
			return 0, domain.ErrInvalidID
		}
		return 0, fmt.Errorf("count pending reservations: %w", err)
	}
	return count, nil
}

func setReservationStatus(ctx context.Context, q querier, reservationID string, status domain.ReservationStatus) error {
	const stmt = `UPDATE reservations SET status = $2 WHERE id = $1`

	tag, err := q.exec(ctx, stmt, reservationID, status)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("set reservation status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrReservationNotFound
	}
	return nil
}

func makeReservationAvailable(ctx context.Context, q querier, reservationID string, expiresAt time.Time) error {
	const stmt = `
UPDATE reservations
SET status = 'available', expires_at = $2
WHERE id = $1`

	tag, err := q.exec(ctx, stmt, reservationID, expiresAt)
	if err != nil {
		return fmt.Errorf("make reservation available: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrReservationNotFound
	}
	return nil
}
