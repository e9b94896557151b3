package app

import (
	"context"
	"time"

	"github.com/N-Teddy/library-api/internal/clock"
	"github.com/N-Teddy/library-api/internal/domain"
)

// MemberRepository is the storage surface for member administration.
type MemberRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	GetMember(ctx context.Context, memberID string) (domain.Member, error)
	GetMemberForUpdate(ctx context.Context, memberID string) (domain.Member, error)
	SetFineBalance(ctx context.Context, memberID string, balance int64) error
	SetMemberStatus(ctx context.Context, memberID string, status domain.MemberStatus) error
	FindOverdueLoanDetails(ctx context.Context, asOf time.Time) ([]domain.LoanDetails, error)
}

type MemberService struct {
	repo      MemberRepository
	clock     clock.Clock
	dailyFine int64
}

func NewMemberService(repo MemberRepository, clk clock.Clock, opts ...MemberServiceOption) *MemberService {
	svc := &MemberService{
		repo:      repo,
		clock:     clk,
		dailyFine: defaultDailyFine,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

type MemberServiceOption func(*MemberService)

// WithMemberDailyFine overrides the per-day fine used in overdue reports.
func WithMemberDailyFine(amount int64) MemberServiceOption {
	return func(s *MemberService) {
		if amount > 0 {
			s.dailyFine = amount
		}
	}
}

type WaiveFineInput struct {
	MemberID string
	Amount   int64
}

// WaiveFine reduces a member's fine balance by the given amount, floored
// at zero. Returns the new balance.
func (s *MemberService) WaiveFine(ctx context.Context, in WaiveFineInput) (int64, error) {
	if in.MemberID == "" {
		return 0, domain.ErrInvalidID
	}
	if in.Amount <= 0 {
		return 0, domain.ErrInvalidAmount
	}

	var newBalance int64
	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		member, err := s.repo.GetMemberForUpdate(txCtx, in.MemberID)
		if err != nil {
			return err
		}

		newBalance = member.FineBalance - in.Amount
		if newBalance < 0 {
			newBalance = 0
		}
		return s.repo.SetFineBalance(txCtx, in.MemberID, newBalance)
	})
	if err != nil {
		return 0, err
	}
	return newBalance, nil
}

// UpdateStatus activates or suspends a member.
func (s *MemberService) UpdateStatus(ctx context.Context, memberID string, status domain.MemberStatus) (domain.Member, error) {
	if memberID == "" {
		return domain.Member{}, domain.ErrInvalidID
	}
	if status != domain.MemberStatusActive && status != domain.MemberStatusSuspended {
		return domain.Member{}, domain.ErrInvalidStatus
	}

	var result domain.Member
	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		member, err := s.repo.GetMemberForUpdate(txCtx, memberID)
		if err != nil {
			return err
		}
		if err := s.repo.SetMemberStatus(txCtx, memberID, status); err != nil {
			return err
		}
		member.Status = status
		result = member
		return nil
	})
	if err != nil {
		return domain.Member{}, err
	}
	return result, nil
}

// OverdueLoans reports every active loan past its due date, ordered by due
// date, with days overdue and the fine projected at the configured daily
// rate. The projection is what the member would owe if accrual caught up
// today; it is independent of what the sweep has stamped so far.
func (s *MemberService) OverdueLoans(ctx context.Context) ([]domain.OverdueLoan, error) {
	now := s.clock.Now()

	loans, err := s.repo.FindOverdueLoanDetails(ctx, now)
	if err != nil {
		return nil, err
	}

	report := make([]domain.OverdueLoan, 0, len(loans))
	for _, loan := range loans {
		days := int(now.Sub(loan.DueAt).Hours() / 24)
		report = append(report, domain.OverdueLoan{
			LoanDetails:   loan,
			DaysOverdue:   days,
			ProjectedFine: int64(days) * s.dailyFine,
		})
	}
	return report, nil
}
