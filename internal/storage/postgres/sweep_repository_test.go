package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/N-Teddy/library-api/internal/domain"
	"github.com/N-Teddy/library-api/internal/testutil"
)

func TestSweepRepository(t *testing.T) {
	pool := testutil.NewTestPool(t)
	repo := NewSweepRepository(pool)
	testutil.ApplyMigrations(t, context.Background(), pool)

	t.Run("FindOverdueLoans matches active past-due loans only", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)

		memberID := testutil.InsertMember(t, ctx, pool, "sweep@example.com", 0)
		b1 := testutil.InsertBook(t, ctx, pool, "isbn-1", 1, 0)
		b2 := testutil.InsertBook(t, ctx, pool, "isbn-2", 1, 0)
		b3 := testutil.InsertBook(t, ctx, pool, "isbn-3", 1, 0)

		now := time.Now().UTC()
		lateID := testutil.InsertLoan(t, ctx, pool, memberID, b1, domain.Loan{
			Status: domain.LoanStatusActive, DueAt: now.AddDate(0, 0, -2),
		})
		testutil.InsertLoan(t, ctx, pool, memberID, b2, domain.Loan{
			Status: domain.LoanStatusOverdue, DueAt: now.AddDate(0, 0, -5),
		})
		testutil.InsertLoan(t, ctx, pool, memberID, b3, domain.Loan{
			Status: domain.LoanStatusActive, DueAt: now.AddDate(0, 0, 2),
		})

		loans, err := repo.FindOverdueLoans(ctx, now)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(loans) != 1 || loans[0].ID != lateID {
			t.Fatalf("expected only the active past-due loan, got %+v", loans)
		}
	})

	t.Run("StampOverdue and AddToFineBalance", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)

		memberID := testutil.InsertMember(t, ctx, pool, "fine@example.com", 0)
		bookID := testutil.InsertBook(t, ctx, pool, "isbn-1", 1, 0)
		loanID := testutil.InsertLoan(t, ctx, pool, memberID, bookID, domain.Loan{
			Status: domain.LoanStatusActive, DueAt: time.Now().UTC().AddDate(0, 0, -3),
		})

		err := repo.WithTx(ctx, func(txCtx context.Context) error {
			if err := repo.StampOverdue(txCtx, loanID, 300); err != nil {
				return err
			}
			return repo.AddToFineBalance(txCtx, memberID, 100)
		})
		if err != nil {
			t.Fatalf("tx failed: %v", err)
		}

		member, err := repo.GetMember(ctx, memberID)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if member.FineBalance != 100 {
			t.Fatalf("expected balance 100, got %d", member.FineBalance)
		}

		// The stamped loan no longer matches the sweep query.
		loans, err := repo.FindOverdueLoans(ctx, time.Now().UTC())
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(loans) != 0 {
			t.Fatalf("expected stamped loan excluded, got %+v", loans)
		}
	})

	t.Run("FindLoansDueBetween", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)

		memberID := testutil.InsertMember(t, ctx, pool, "due@example.com", 0)
		b1 := testutil.InsertBook(t, ctx, pool, "isbn-1", 1, 0)
		b2 := testutil.InsertBook(t, ctx, pool, "isbn-2", 1, 0)

		now := time.Now().UTC()
		soonID := testutil.InsertLoan(t, ctx, pool, memberID, b1, domain.Loan{
			Status: domain.LoanStatusActive, DueAt: now.AddDate(0, 0, 2),
		})
		testutil.InsertLoan(t, ctx, pool, memberID, b2, domain.Loan{
			Status: domain.LoanStatusActive, DueAt: now.AddDate(0, 0, 10),
		})

		loans, err := repo.FindLoansDueBetween(ctx, now, now.AddDate(0, 0, 3))
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(loans) != 1 || loans[0].ID != soonID {
			t.Fatalf("expected only the soon-due loan, got %+v", loans)
		}
		if loans[0].MemberEmail != "due@example.com" {
			t.Fatalf("expected member email joined, got %q", loans[0].MemberEmail)
		}
	})

	t.Run("FindExpiredReservations", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)

		m1 := testutil.InsertMember(t, ctx, pool, "lapsed@example.com", 0)
		m2 := testutil.InsertMember(t, ctx, pool, "live@example.com", 0)
		bookID := testutil.InsertBook(t, ctx, pool, "isbn-1", 1, 0)

		now := time.Now().UTC()
		past := now.Add(-time.Hour)
		future := now.Add(time.Hour)
		expiredID := testutil.InsertReservation(t, ctx, pool, m1, bookID, domain.Reservation{
			Status: domain.ReservationStatusAvailable, ExpiresAt: &past,
		})
		testutil.InsertReservation(t, ctx, pool, m2, bookID, domain.Reservation{
			Status: domain.ReservationStatusAvailable, ExpiresAt: &future,
		})

		expired, err := repo.FindExpiredReservations(ctx, now)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(expired) != 1 || expired[0].ID != expiredID {
			t.Fatalf("expected only the lapsed hold, got %+v", expired)
		}
	})
}
