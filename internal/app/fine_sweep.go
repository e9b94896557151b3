package app

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/N-Teddy/library-api/internal/clock"
	"github.com/N-Teddy/library-api/internal/domain"
)

// FineSweepRepository is the storage surface the fine accrual sweep needs.
type FineSweepRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	FindOverdueLoans(ctx context.Context, asOf time.Time) ([]domain.Loan, error)
	StampOverdue(ctx context.Context, loanID string, fine int64) error
	AddToFineBalance(ctx context.Context, memberID string, amount int64) error
}

// FineSweep flips active loans past their due date to overdue, stamps
// each with daysOverdue x dailyFine, and adds a single day's fine to the
// member's balance. Only loans still marked active are matched, so a loan
// contributes to the balance once, on the run that first observes it; the
// balance increment is one day's fine regardless of how late that
// observation is. The scheduler must invoke Run at most once per calendar
// day for the stamped totals to line up with the balances.
type FineSweep struct {
	repo      FineSweepRepository
	clock     clock.Clock
	log       *logrus.Logger
	dailyFine int64
}

const defaultDailyFine = 100

func NewFineSweep(repo FineSweepRepository, clk clock.Clock, log *logrus.Logger, opts ...FineSweepOption) *FineSweep {
	s := &FineSweep{
		repo:      repo,
		clock:     clk,
		log:       log,
		dailyFine: defaultDailyFine,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type FineSweepOption func(*FineSweep)

// WithDailyFine overrides the fine charged per overdue day.
func WithDailyFine(amount int64) FineSweepOption {
	return func(s *FineSweep) {
		if amount > 0 {
			s.dailyFine = amount
		}
	}
}

// Run processes every active loan past its due date. Failures on a single
// loan are logged and skipped so one bad record cannot block the sweep.
// Returns the number of loans processed.
func (s *FineSweep) Run(ctx context.Context) (int, error) {
	now := s.clock.Now()

	loans, err := s.repo.FindOverdueLoans(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("find overdue loans: %w", err)
	}

	processed := 0
	for _, loan := range loans {
		daysOverdue := int64(now.Sub(loan.DueAt).Hours() / 24)
		fine := daysOverdue * s.dailyFine

		err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
			if err := s.repo.StampOverdue(txCtx, loan.ID, fine); err != nil {
				return err
			}
			return s.repo.AddToFineBalance(txCtx, loan.MemberID, s.dailyFine)
		})
		if err != nil {
			s.log.WithError(err).WithFields(logrus.Fields{
				"loan_id":   loan.ID,
				"member_id": loan.MemberID,
			}).Error("fine accrual failed for loan")
			continue
		}
		processed++
	}
	return processed, nil
}
