package app

import (
	"context"
	"time"

	"github.com/N-Teddy/library-api/internal/clock"
	"github.com/N-Teddy/library-api/internal/domain"
	"github.com/N-Teddy/library-api/internal/notify"
)

// LoanRepository is the storage surface the loan ledger needs. Every
// mutation happens inside a WithTx closure so preconditions are validated
// against data read in the same transaction.
type LoanRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	GetMember(ctx context.Context, memberID string) (domain.Member, error)
	GetMemberForUpdate(ctx context.Context, memberID string) (domain.Member, error)
	GetBookForUpdate(ctx context.Context, bookID string) (domain.Book, error)
	CountOpenLoans(ctx context.Context, memberID string) (int, error)
	FindOpenLoan(ctx context.Context, memberID, bookID string) (*domain.Loan, error)
	CreateLoan(ctx context.Context, loan domain.Loan) error
	GetLoanForUpdate(ctx context.Context, loanID string) (domain.Loan, error)
	MarkLoanReturned(ctx context.Context, loanID string, returnedAt time.Time) error
	RenewLoan(ctx context.Context, loanID string, dueAt time.Time, renewCount int) error
	AdjustAvailableCopies(ctx context.Context, bookID string, delta int) error
	FindPendingReservation(ctx context.Context, memberID, bookID string) (*domain.Reservation, error)
	OldestPendingReservation(ctx context.Context, bookID string) (*domain.Reservation, error)
	CountPendingReservations(ctx context.Context, bookID string) (int, error)
	SetReservationStatus(ctx context.Context, reservationID string, status domain.ReservationStatus) error
	MakeReservationAvailable(ctx context.Context, reservationID string, expiresAt time.Time) error
	GetLoanDetails(ctx context.Context, loanID string) (domain.LoanDetails, error)
	ListLoansByMember(ctx context.Context, memberID string, status domain.LoanStatus) ([]domain.LoanDetails, error)
}

// Notifier delivers best-effort messages after a transaction commits.
type Notifier interface {
	Notify(ctx context.Context, msg notify.Message)
}

type LoanService struct {
	repo        LoanRepository
	clock       clock.Clock
	notifier    Notifier
	loanLimit   int
	loanDays    int
	maxRenewals int
	holdDays    int
}

const (
	defaultLoanLimit   = 5
	defaultLoanDays    = 14
	defaultMaxRenewals = 2
	defaultHoldDays    = 3
)

func NewLoanService(repo LoanRepository, clk clock.Clock, notifier Notifier, opts ...LoanServiceOption) *LoanService {
	svc := &LoanService{
		repo:        repo,
		clock:       clk,
		notifier:    notifier,
		loanLimit:   defaultLoanLimit,
		loanDays:    defaultLoanDays,
		maxRenewals: defaultMaxRenewals,
		holdDays:    defaultHoldDays,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

type LoanServiceOption func(*LoanService)

// WithLoanLimit overrides how many open loans a member may hold at once.
func WithLoanLimit(n int) LoanServiceOption {
	return func(s *LoanService) {
		if n > 0 {
			s.loanLimit = n
		}
	}
}

// WithLoanPeriod overrides the loan (and renewal) duration in days.
func WithLoanPeriod(days int) LoanServiceOption {
	return func(s *LoanService) {
		if days > 0 {
			s.loanDays = days
		}
	}
}

// WithMaxRenewals overrides how many times a loan can be renewed.
func WithMaxRenewals(n int) LoanServiceOption {
	return func(s *LoanService) {
		if n >= 0 {
			s.maxRenewals = n
		}
	}
}

// WithHoldPeriod overrides the reservation hold window in days.
func WithHoldPeriod(days int) LoanServiceOption {
	return func(s *LoanService) {
		if days > 0 {
			s.holdDays = days
		}
	}
}

type BorrowInput struct {
	MemberID string
	BookID   string
}

// Borrow checks eligibility, creates the loan, takes a copy, and fulfils
// any pending reservation the member held for the book. Preconditions are
// checked in a fixed order; the first failure wins.
func (s *LoanService) Borrow(ctx context.Context, in BorrowInput) (domain.LoanDetails, error) {
	if in.MemberID == "" || in.BookID == "" {
		return domain.LoanDetails{}, domain.ErrInvalidID
	}

	now := s.clock.Now()
	var result domain.LoanDetails

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		// The member row lock serializes concurrent borrows by the same
		// member, so the open-loan count cannot be read stale.
		member, err := s.repo.GetMemberForUpdate(txCtx, in.MemberID)
		if err != nil {
			return err
		}

		open, err := s.repo.CountOpenLoans(txCtx, in.MemberID)
		if err != nil {
			return err
		}
		if open >= s.loanLimit {
			return domain.ErrLoanLimitReached
		}

		if member.FineBalance > 0 {
			return domain.ErrOutstandingFines
		}

		book, err := s.repo.GetBookForUpdate(txCtx, in.BookID)
		if err != nil {
			return err
		}
		if book.AvailableCopies <= 0 {
			return domain.ErrBookUnavailable
		}

		existing, err := s.repo.FindOpenLoan(txCtx, in.MemberID, in.BookID)
		if err != nil {
			return err
		}
		if existing != nil {
			return domain.ErrAlreadyBorrowed
		}

		loan := domain.Loan{
			ID:       newID(),
			MemberID: in.MemberID,
			BookID:   in.BookID,
			LoanedAt: now,
			DueAt:    now.AddDate(0, 0, s.loanDays),
			Status:   domain.LoanStatusActive,
		}
		if err := s.repo.CreateLoan(txCtx, loan); err != nil {
			return err
		}
		if err := s.repo.AdjustAvailableCopies(txCtx, in.BookID, -1); err != nil {
			return err
		}

		reservation, err := s.repo.FindPendingReservation(txCtx, in.MemberID, in.BookID)
		if err != nil {
			return err
		}
		if reservation != nil {
			if err := s.repo.SetReservationStatus(txCtx, reservation.ID, domain.ReservationStatusFulfilled); err != nil {
				return err
			}
		}

		result, err = s.repo.GetLoanDetails(txCtx, loan.ID)
		return err
	})
	if err != nil {
		return domain.LoanDetails{}, err
	}
	return result, nil
}

// Return closes a loan, frees the copy, and hands it to the oldest pending
// reservation for the book, if any. The reservation-ready notification is
// sent only after the transaction commits.
func (s *LoanService) Return(ctx context.Context, loanID string) (domain.LoanDetails, error) {
	if loanID == "" {
		return domain.LoanDetails{}, domain.ErrInvalidID
	}

	now := s.clock.Now()
	var result domain.LoanDetails
	var ready *notify.Message

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		ready = nil

		loan, err := s.repo.GetLoanForUpdate(txCtx, loanID)
		if err != nil {
			return err
		}
		if loan.Status == domain.LoanStatusReturned {
			return domain.ErrAlreadyReturned
		}

		if err := s.repo.MarkLoanReturned(txCtx, loanID, now); err != nil {
			return err
		}
		if err := s.repo.AdjustAvailableCopies(txCtx, loan.BookID, 1); err != nil {
			return err
		}

		next, err := s.repo.OldestPendingReservation(txCtx, loan.BookID)
		if err != nil {
			return err
		}

		result, err = s.repo.GetLoanDetails(txCtx, loanID)
		if err != nil {
			return err
		}

		if next != nil {
			expiresAt := now.AddDate(0, 0, s.holdDays)
			if err := s.repo.MakeReservationAvailable(txCtx, next.ID, expiresAt); err != nil {
				return err
			}
			holder, err := s.repo.GetMember(txCtx, next.MemberID)
			if err != nil {
				return err
			}
			msg := notify.ReservationReady(holder.Email, result.BookTitle, expiresAt)
			ready = &msg
		}
		return nil
	})
	if err != nil {
		return domain.LoanDetails{}, err
	}

	if ready != nil {
		s.notifier.Notify(ctx, *ready)
	}
	return result, nil
}

type RenewInput struct {
	LoanID   string
	MemberID string
}

// Renew extends an active loan by one loan period. Overdue loans cannot be
// renewed, and neither can loans on books other members are queuing for.
func (s *LoanService) Renew(ctx context.Context, in RenewInput) (domain.LoanDetails, error) {
	if in.LoanID == "" || in.MemberID == "" {
		return domain.LoanDetails{}, domain.ErrInvalidID
	}

	var result domain.LoanDetails

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		loan, err := s.repo.GetLoanForUpdate(txCtx, in.LoanID)
		if err != nil {
			return err
		}
		if loan.MemberID != in.MemberID {
			return domain.ErrNotLoanHolder
		}
		if loan.Status != domain.LoanStatusActive {
			return domain.ErrLoanNotActive
		}
		if loan.RenewCount >= s.maxRenewals {
			return domain.ErrRenewalLimitReached
		}

		waiting, err := s.repo.CountPendingReservations(txCtx, loan.BookID)
		if err != nil {
			return err
		}
		if waiting > 0 {
			return domain.ErrReservationsWaiting
		}

		newDueAt := loan.DueAt.AddDate(0, 0, s.loanDays)
		if err := s.repo.RenewLoan(txCtx, in.LoanID, newDueAt, loan.RenewCount+1); err != nil {
			return err
		}

		result, err = s.repo.GetLoanDetails(txCtx, in.LoanID)
		return err
	})
	if err != nil {
		return domain.LoanDetails{}, err
	}
	return result, nil
}

type ListLoansInput struct {
	MemberID string
	// Status filters to one loan status; "all" or empty returns everything.
	Status string
}

// ListLoans returns a member's loans, newest first.
func (s *LoanService) ListLoans(ctx context.Context, in ListLoansInput) ([]domain.LoanDetails, error) {
	if in.MemberID == "" {
		return nil, domain.ErrInvalidID
	}

	var status domain.LoanStatus
	switch in.Status {
	case "", "all":
		status = ""
	case string(domain.LoanStatusActive), string(domain.LoanStatusReturned), string(domain.LoanStatusOverdue):
		status = domain.LoanStatus(in.Status)
	default:
		return nil, domain.ErrInvalidLoanFilter
	}

	return s.repo.ListLoansByMember(ctx, in.MemberID, status)
}
