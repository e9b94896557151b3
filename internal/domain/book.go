package domain

import "time"

// Book is a catalog entry tracking copy-level availability.
// Invariant: 0 <= AvailableCopies <= TotalCopies.
type Book struct {
	ID              string
	ISBN            string
	Title           string
	Author          string
	Genre           string
	TotalCopies     int
	AvailableCopies int
	CreatedAt       time.Time
}

// BookDetails joins a book with its current lending activity.
type BookDetails struct {
	Book
	OpenLoans           int
	PendingReservations int
}
