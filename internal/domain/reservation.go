package domain

import "time"

type ReservationStatus string

const (
	ReservationStatusPending   ReservationStatus = "pending"
	ReservationStatusAvailable ReservationStatus = "available"
	ReservationStatusFulfilled ReservationStatus = "fulfilled"
	ReservationStatusCancelled ReservationStatus = "cancelled"
)

// Reservation is a queued request for a book with no available copies.
// ExpiresAt is set once the reservation becomes available and bounds the
// hold window in which the member must claim the copy.
type Reservation struct {
	ID        string
	MemberID  string
	BookID    string
	Status    ReservationStatus
	ExpiresAt *time.Time
	CreatedAt time.Time
}

// QueuedReservation annotates a reservation with its 1-indexed FIFO rank
// among pending reservations for the same book.
type QueuedReservation struct {
	Reservation
	BookTitle     string
	QueuePosition int
}
