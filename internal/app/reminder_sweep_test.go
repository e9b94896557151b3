package app

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/N-Teddy/library-api/internal/clock"
	"github.com/N-Teddy/library-api/internal/domain"
)

func TestReminderSweep_Run(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 1, 2, 0, 0, 0, time.UTC)

	t.Run("reminds members with loans due soon", func(t *testing.T) {
		repo := newFakeLibraryRepo()
		repo.addMember(domain.Member{ID: "m-1", Email: "soon@example.com"})
		repo.addMember(domain.Member{ID: "m-2", Email: "later@example.com"})
		repo.addBook(domain.Book{ID: "b-1", Title: "Dune"})
		repo.loans = append(repo.loans,
			domain.Loan{ID: "l-soon", MemberID: "m-1", BookID: "b-1", Status: domain.LoanStatusActive, DueAt: now.AddDate(0, 0, 2)},
			domain.Loan{ID: "l-later", MemberID: "m-2", BookID: "b-1", Status: domain.LoanStatusActive, DueAt: now.AddDate(0, 0, 10)},
			domain.Loan{ID: "l-past", MemberID: "m-2", BookID: "b-1", Status: domain.LoanStatusActive, DueAt: now.AddDate(0, 0, -1)},
		)
		notifier := &fakeNotifier{}
		sweep := NewReminderSweep(repo, clock.NewFixed(now), notifier, discardLogger(), WithReminderWindow(3))

		processed, err := sweep.Run(context.Background())
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if processed != 1 {
			t.Fatalf("expected 1 reminder, got %d", processed)
		}
		if len(notifier.messages) != 1 {
			t.Fatalf("expected 1 message, got %d", len(notifier.messages))
		}
		msg := notifier.messages[0]
		if msg.Recipient != "soon@example.com" {
			t.Fatalf("expected reminder to m-1, got %q", msg.Recipient)
		}
		if !strings.Contains(msg.Body, "Dune") {
			t.Fatalf("expected book title in reminder, got %q", msg.Body)
		}
	})

	t.Run("expired hold passes to the next in line", func(t *testing.T) {
		repo := newFakeLibraryRepo()
		repo.addMember(domain.Member{ID: "m-1", Email: "lapsed@example.com"})
		repo.addMember(domain.Member{ID: "m-2", Email: "next@example.com"})
		repo.addBook(domain.Book{ID: "b-1", Title: "Dune"})
		expired := now.Add(-time.Hour)
		repo.reservations = append(repo.reservations,
			domain.Reservation{ID: "r-expired", MemberID: "m-1", BookID: "b-1", Status: domain.ReservationStatusAvailable, ExpiresAt: &expired, CreatedAt: now.AddDate(0, 0, -5)},
			domain.Reservation{ID: "r-next", MemberID: "m-2", BookID: "b-1", Status: domain.ReservationStatusPending, CreatedAt: now.AddDate(0, 0, -4)},
		)
		notifier := &fakeNotifier{}
		sweep := NewReminderSweep(repo, clock.NewFixed(now), notifier, discardLogger(), WithSweepHoldPeriod(3))

		processed, err := sweep.Run(context.Background())
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if processed != 1 {
			t.Fatalf("expected 1 reservation handled, got %d", processed)
		}

		lapsed, _ := repo.GetReservationForUpdate(context.Background(), "r-expired")
		if lapsed.Status != domain.ReservationStatusCancelled {
			t.Fatalf("expected expired hold cancelled, got %s", lapsed.Status)
		}
		promoted, _ := repo.GetReservationForUpdate(context.Background(), "r-next")
		if promoted.Status != domain.ReservationStatusAvailable {
			t.Fatalf("expected next reservation promoted, got %s", promoted.Status)
		}
		if promoted.ExpiresAt == nil || !promoted.ExpiresAt.Equal(now.AddDate(0, 0, 3)) {
			t.Fatalf("expected fresh hold window, got %v", promoted.ExpiresAt)
		}
		if len(notifier.messages) != 1 || notifier.messages[0].Recipient != "next@example.com" {
			t.Fatalf("expected notification to the promoted member, got %v", notifier.messages)
		}
	})

	t.Run("expired hold with an empty queue just lapses", func(t *testing.T) {
		repo := newFakeLibraryRepo()
		repo.addMember(domain.Member{ID: "m-1"})
		repo.addBook(domain.Book{ID: "b-1"})
		expired := now.Add(-time.Minute)
		repo.reservations = append(repo.reservations,
			domain.Reservation{ID: "r-expired", MemberID: "m-1", BookID: "b-1", Status: domain.ReservationStatusAvailable, ExpiresAt: &expired, CreatedAt: now.AddDate(0, 0, -5)},
		)
		notifier := &fakeNotifier{}
		sweep := NewReminderSweep(repo, clock.NewFixed(now), notifier, discardLogger())

		processed, err := sweep.Run(context.Background())
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if processed != 1 {
			t.Fatalf("expected 1 reservation handled, got %d", processed)
		}
		if len(notifier.messages) != 0 {
			t.Fatalf("expected no notifications, got %d", len(notifier.messages))
		}
	})

	t.Run("holds still inside their window are untouched", func(t *testing.T) {
		repo := newFakeLibraryRepo()
		repo.addMember(domain.Member{ID: "m-1"})
		repo.addBook(domain.Book{ID: "b-1"})
		future := now.Add(24 * time.Hour)
		repo.reservations = append(repo.reservations,
			domain.Reservation{ID: "r-live", MemberID: "m-1", BookID: "b-1", Status: domain.ReservationStatusAvailable, ExpiresAt: &future, CreatedAt: now.AddDate(0, 0, -1)},
		)
		sweep := NewReminderSweep(repo, clock.NewFixed(now), &fakeNotifier{}, discardLogger())

		processed, err := sweep.Run(context.Background())
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if processed != 0 {
			t.Fatalf("expected nothing handled, got %d", processed)
		}
		live, _ := repo.GetReservationForUpdate(context.Background(), "r-live")
		if live.Status != domain.ReservationStatusAvailable {
			t.Fatalf("expected hold untouched, got %s", live.Status)
		}
	})
}
