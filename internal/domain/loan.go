package domain

import "time"

type LoanStatus string

const (
	LoanStatusActive   LoanStatus = "active"
	LoanStatusReturned LoanStatus = "returned"
	LoanStatusOverdue  LoanStatus = "overdue"
)

// Open reports whether a loan in this status still holds a copy.
func (s LoanStatus) Open() bool {
	return s == LoanStatusActive || s == LoanStatusOverdue
}

// Loan records one book copy held by one member for a bounded period.
// At most one open (active/overdue) loan exists per (member, book) pair.
type Loan struct {
	ID         string
	MemberID   string
	BookID     string
	LoanedAt   time.Time
	DueAt      time.Time
	ReturnedAt *time.Time
	Status     LoanStatus
	Fine       int64
	RenewCount int
}

// LoanDetails joins a loan with the display fields callers render.
type LoanDetails struct {
	Loan
	BookTitle   string
	BookAuthor  string
	MemberName  string
	MemberEmail string
}

// OverdueLoan is a report row for the overdue listing: the projected fine
// is computed from days overdue at read time, independent of what the
// accrual sweep has stamped so far.
type OverdueLoan struct {
	LoanDetails
	DaysOverdue   int
	ProjectedFine int64
}
