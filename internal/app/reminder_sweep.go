package app

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/N-Teddy/library-api/internal/clock"
	"github.com/N-Teddy/library-api/internal/domain"
	"github.com/N-Teddy/library-api/internal/notify"
)

// ReminderSweepRepository is the storage surface the reminder sweep needs.
type ReminderSweepRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	FindLoansDueBetween(ctx context.Context, from, until time.Time) ([]domain.LoanDetails, error)
	FindExpiredReservations(ctx context.Context, asOf time.Time) ([]domain.Reservation, error)
	SetReservationStatus(ctx context.Context, reservationID string, status domain.ReservationStatus) error
	MakeReservationAvailable(ctx context.Context, reservationID string, expiresAt time.Time) error
	OldestPendingReservation(ctx context.Context, bookID string) (*domain.Reservation, error)
	GetMember(ctx context.Context, memberID string) (domain.Member, error)
	GetBook(ctx context.Context, bookID string) (domain.Book, error)
}

// ReminderSweep sends due-soon reminders and expires unclaimed available
// reservations, promoting the next member in the queue.
type ReminderSweep struct {
	repo         ReminderSweepRepository
	clock        clock.Clock
	notifier     Notifier
	log          *logrus.Logger
	reminderDays int
	holdDays     int
}

const defaultReminderDays = 3

func NewReminderSweep(repo ReminderSweepRepository, clk clock.Clock, notifier Notifier, log *logrus.Logger, opts ...ReminderSweepOption) *ReminderSweep {
	s := &ReminderSweep{
		repo:         repo,
		clock:        clk,
		notifier:     notifier,
		log:          log,
		reminderDays: defaultReminderDays,
		holdDays:     defaultHoldDays,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type ReminderSweepOption func(*ReminderSweep)

// WithReminderWindow overrides how many days before the due date the
// reminder goes out.
func WithReminderWindow(days int) ReminderSweepOption {
	return func(s *ReminderSweep) {
		if days > 0 {
			s.reminderDays = days
		}
	}
}

// WithSweepHoldPeriod overrides the hold window granted to a promoted
// reservation.
func WithSweepHoldPeriod(days int) ReminderSweepOption {
	return func(s *ReminderSweep) {
		if days > 0 {
			s.holdDays = days
		}
	}
}

// Run performs both sweeps and returns the number of loans reminded plus
// expired reservations handled. Per-item failures are logged and skipped.
func (s *ReminderSweep) Run(ctx context.Context) (int, error) {
	now := s.clock.Now()
	processed := 0

	dueSoon, err := s.repo.FindLoansDueBetween(ctx, now, now.AddDate(0, 0, s.reminderDays))
	if err != nil {
		return 0, fmt.Errorf("find loans due soon: %w", err)
	}
	for _, loan := range dueSoon {
		s.notifier.Notify(ctx, notify.DueSoon(loan.MemberEmail, loan.BookTitle, loan.DueAt))
		processed++
	}

	expired, err := s.repo.FindExpiredReservations(ctx, now)
	if err != nil {
		return processed, fmt.Errorf("find expired reservations: %w", err)
	}
	for _, reservation := range expired {
		var ready *notify.Message

		err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
			ready = nil

			if err := s.repo.SetReservationStatus(txCtx, reservation.ID, domain.ReservationStatusCancelled); err != nil {
				return err
			}

			next, err := s.repo.OldestPendingReservation(txCtx, reservation.BookID)
			if err != nil {
				return err
			}
			if next == nil {
				return nil
			}

			expiresAt := now.AddDate(0, 0, s.holdDays)
			if err := s.repo.MakeReservationAvailable(txCtx, next.ID, expiresAt); err != nil {
				return err
			}

			holder, err := s.repo.GetMember(txCtx, next.MemberID)
			if err != nil {
				return err
			}
			book, err := s.repo.GetBook(txCtx, reservation.BookID)
			if err != nil {
				return err
			}
			msg := notify.ReservationReady(holder.Email, book.Title, expiresAt)
			ready = &msg
			return nil
		})
		if err != nil {
			s.log.WithError(err).WithFields(logrus.Fields{
				"reservation_id": reservation.ID,
				"book_id":        reservation.BookID,
			}).Error("expiry handling failed for reservation")
			continue
		}

		if ready != nil {
			s.notifier.Notify(ctx, *ready)
		}
		processed++
	}

	return processed, nil
}
