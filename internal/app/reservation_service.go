package app

import (
	"context"
	"time"

	"github.com/N-Teddy/library-api/internal/clock"
	"github.com/N-Teddy/library-api/internal/domain"
)

// ReservationRepository is the storage surface the reservation queue needs.
type ReservationRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	GetMember(ctx context.Context, memberID string) (domain.Member, error)
	GetBookForUpdate(ctx context.Context, bookID string) (domain.Book, error)
	FindPendingReservation(ctx context.Context, memberID, bookID string) (*domain.Reservation, error)
	FindOpenLoan(ctx context.Context, memberID, bookID string) (*domain.Loan, error)
	CreateReservation(ctx context.Context, reservation domain.Reservation) error
	QueuePosition(ctx context.Context, bookID string, createdAt time.Time) (int, error)
	GetReservationForUpdate(ctx context.Context, reservationID string) (domain.Reservation, error)
	SetReservationStatus(ctx context.Context, reservationID string, status domain.ReservationStatus) error
	ListMemberReservations(ctx context.Context, memberID string) ([]domain.QueuedReservation, error)
}

type ReservationService struct {
	repo  ReservationRepository
	clock clock.Clock
}

func NewReservationService(repo ReservationRepository, clk clock.Clock) *ReservationService {
	return &ReservationService{
		repo:  repo,
		clock: clk,
	}
}

type ReserveInput struct {
	MemberID string
	BookID   string
}

type ReserveResult struct {
	Reservation   domain.Reservation
	QueuePosition int
}

// Reserve queues a member for a book with no available copies. The book
// row is locked so a concurrent return cannot free a copy between the
// availability check and the insert.
func (s *ReservationService) Reserve(ctx context.Context, in ReserveInput) (ReserveResult, error) {
	if in.MemberID == "" || in.BookID == "" {
		return ReserveResult{}, domain.ErrInvalidID
	}

	now := s.clock.Now()
	var result ReserveResult

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		if _, err := s.repo.GetMember(txCtx, in.MemberID); err != nil {
			return err
		}

		book, err := s.repo.GetBookForUpdate(txCtx, in.BookID)
		if err != nil {
			return err
		}
		if book.AvailableCopies > 0 {
			return domain.ErrBookAvailable
		}

		existing, err := s.repo.FindPendingReservation(txCtx, in.MemberID, in.BookID)
		if err != nil {
			return err
		}
		if existing != nil {
			return domain.ErrAlreadyReserved
		}

		loan, err := s.repo.FindOpenLoan(txCtx, in.MemberID, in.BookID)
		if err != nil {
			return err
		}
		if loan != nil {
			return domain.ErrAlreadyBorrowed
		}

		reservation := domain.Reservation{
			ID:        newID(),
			MemberID:  in.MemberID,
			BookID:    in.BookID,
			Status:    domain.ReservationStatusPending,
			CreatedAt: now,
		}
		if err := s.repo.CreateReservation(txCtx, reservation); err != nil {
			return err
		}

		position, err := s.repo.QueuePosition(txCtx, in.BookID, reservation.CreatedAt)
		if err != nil {
			return err
		}

		result = ReserveResult{Reservation: reservation, QueuePosition: position}
		return nil
	})
	if err != nil {
		return ReserveResult{}, err
	}
	return result, nil
}

type CancelReservationInput struct {
	ReservationID string
	MemberID      string
}

// Cancel marks a pending or available reservation cancelled. It does not
// promote the next reservation in the queue; only return-driven and
// expiry-driven promotion do that.
func (s *ReservationService) Cancel(ctx context.Context, in CancelReservationInput) error {
	if in.ReservationID == "" || in.MemberID == "" {
		return domain.ErrInvalidID
	}

	return s.repo.WithTx(ctx, func(txCtx context.Context) error {
		reservation, err := s.repo.GetReservationForUpdate(txCtx, in.ReservationID)
		if err != nil {
			return err
		}
		if reservation.MemberID != in.MemberID {
			return domain.ErrReservationNotFound
		}
		if reservation.Status != domain.ReservationStatusPending &&
			reservation.Status != domain.ReservationStatusAvailable {
			return domain.ErrCannotCancel
		}

		return s.repo.SetReservationStatus(txCtx, in.ReservationID, domain.ReservationStatusCancelled)
	})
}

// ListReservations returns a member's pending and available reservations,
// newest first, each with its FIFO queue position.
func (s *ReservationService) ListReservations(ctx context.Context, memberID string) ([]domain.QueuedReservation, error) {
	if memberID == "" {
		return nil, domain.ErrInvalidID
	}
	return s.repo.ListMemberReservations(ctx, memberID)
}
