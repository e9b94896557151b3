package domain

import "errors"

var (
	ErrBookNotFound        = errors.New("book not found")
	ErrMemberNotFound      = errors.New("member not found")
	ErrLoanNotFound        = errors.New("loan not found")
	ErrReservationNotFound = errors.New("reservation not found")
	ErrInvalidID           = errors.New("invalid id")

	ErrLoanLimitReached    = errors.New("loan limit reached")
	ErrOutstandingFines    = errors.New("outstanding fines must be paid before borrowing")
	ErrBookUnavailable     = errors.New("book is not available")
	ErrAlreadyBorrowed     = errors.New("member already has this book on loan")
	ErrAlreadyReturned     = errors.New("book already returned")
	ErrNotLoanHolder       = errors.New("loan belongs to another member")
	ErrLoanNotActive       = errors.New("cannot renew a returned or overdue loan")
	ErrRenewalLimitReached = errors.New("renewal limit reached")
	ErrReservationsWaiting = errors.New("cannot renew while other members are waiting")

	ErrBookAvailable     = errors.New("book is available and can be borrowed directly")
	ErrAlreadyReserved   = errors.New("member already has a reservation for this book")
	ErrCannotCancel      = errors.New("reservation can no longer be cancelled")
	ErrInvalidLoanFilter = errors.New("invalid loan status filter")

	ErrISBNTaken        = errors.New("a book with this isbn already exists")
	ErrBookHasOpenLoans = errors.New("cannot delete a book with open loans")
	ErrInvalidCopies    = errors.New("invalid copy count")
	ErrTitleRequired    = errors.New("title is required")
	ErrISBNRequired     = errors.New("isbn is required")
	ErrInvalidAmount    = errors.New("amount must be positive")
	ErrInvalidStatus    = errors.New("invalid member status")
)
