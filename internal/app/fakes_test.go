package app

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/N-Teddy/library-api/internal/domain"
	"github.com/N-Teddy/library-api/internal/notify"
)

// fakeLibraryRepo backs all service tests with in-memory state. It
// implements every repository interface the services declare.
type fakeLibraryRepo struct {
	members      map[string]domain.Member
	books        map[string]domain.Book
	loans        []domain.Loan
	reservations []domain.Reservation
}

func newFakeLibraryRepo() *fakeLibraryRepo {
	return &fakeLibraryRepo{
		members: make(map[string]domain.Member),
		books:   make(map[string]domain.Book),
	}
}

func (f *fakeLibraryRepo) addMember(m domain.Member) {
	if m.Status == "" {
		m.Status = domain.MemberStatusActive
	}
	f.members[m.ID] = m
}

func (f *fakeLibraryRepo) addBook(b domain.Book) {
	f.books[b.ID] = b
}

func (f *fakeLibraryRepo) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (f *fakeLibraryRepo) GetMember(_ context.Context, memberID string) (domain.Member, error) {
	member, ok := f.members[memberID]
	if !ok {
		return domain.Member{}, domain.ErrMemberNotFound
	}
	return member, nil
}

func (f *fakeLibraryRepo) GetMemberForUpdate(ctx context.Context, memberID string) (domain.Member, error) {
	return f.GetMember(ctx, memberID)
}

func (f *fakeLibraryRepo) GetBook(_ context.Context, bookID string) (domain.Book, error) {
	book, ok := f.books[bookID]
	if !ok {
		return domain.Book{}, domain.ErrBookNotFound
	}
	return book, nil
}

func (f *fakeLibraryRepo) GetBookForUpdate(ctx context.Context, bookID string) (domain.Book, error) {
	return f.GetBook(ctx, bookID)
}

func (f *fakeLibraryRepo) CountOpenLoans(_ context.Context, memberID string) (int, error) {
	count := 0
	for _, loan := range f.loans {
		if loan.MemberID == memberID && loan.Status.Open() {
			count++
		}
	}
	return count, nil
}

func (f *fakeLibraryRepo) FindOpenLoan(_ context.Context, memberID, bookID string) (*domain.Loan, error) {
	for i := range f.loans {
		loan := f.loans[i]
		if loan.MemberID == memberID && loan.BookID == bookID && loan.Status.Open() {
			return &loan, nil
		}
	}
	return nil, nil
}

func (f *fakeLibraryRepo) CreateLoan(_ context.Context, loan domain.Loan) error {
	f.loans = append(f.loans, loan)
	return nil
}

func (f *fakeLibraryRepo) GetLoanForUpdate(_ context.Context, loanID string) (domain.Loan, error) {
	for _, loan := range f.loans {
		if loan.ID == loanID {
			return loan, nil
		}
	}
	return domain.Loan{}, domain.ErrLoanNotFound
}

func (f *fakeLibraryRepo) MarkLoanReturned(_ context.Context, loanID string, returnedAt time.Time) error {
	for i := range f.loans {
		if f.loans[i].ID == loanID {
			f.loans[i].Status = domain.LoanStatusReturned
			f.loans[i].ReturnedAt = &returnedAt
			return nil
		}
	}
	return domain.ErrLoanNotFound
}

func (f *fakeLibraryRepo) RenewLoan(_ context.Context, loanID string, dueAt time.Time, renewCount int) error {
	for i := range f.loans {
		if f.loans[i].ID == loanID {
			f.loans[i].DueAt = dueAt
			f.loans[i].RenewCount = renewCount
			return nil
		}
	}
	return domain.ErrLoanNotFound
}

func (f *fakeLibraryRepo) AdjustAvailableCopies(_ context.Context, bookID string, delta int) error {
	book, ok := f.books[bookID]
	if !ok {
		return domain.ErrBookNotFound
	}
	next := book.AvailableCopies + delta
	if next < 0 || next > book.TotalCopies {
		return domain.ErrBookUnavailable
	}
	book.AvailableCopies = next
	f.books[bookID] = book
	return nil
}

func (f *fakeLibraryRepo) FindPendingReservation(_ context.Context, memberID, bookID string) (*domain.Reservation, error) {
	for i := range f.reservations {
		res := f.reservations[i]
		if res.MemberID == memberID && res.BookID == bookID && res.Status == domain.ReservationStatusPending {
			return &res, nil
		}
	}
	return nil, nil
}

func (f *fakeLibraryRepo) OldestPendingReservation(_ context.Context, bookID string) (*domain.Reservation, error) {
	var oldest *domain.Reservation
	for i := range f.reservations {
		res := f.reservations[i]
		if res.BookID != bookID || res.Status != domain.ReservationStatusPending {
			continue
		}
		if oldest == nil || res.CreatedAt.Before(oldest.CreatedAt) {
			copied := res
			oldest = &copied
		}
	}
	return oldest, nil
}

func (f *fakeLibraryRepo) CountPendingReservations(_ context.Context, bookID string) (int, error) {
	count := 0
	for _, res := range f.reservations {
		if res.BookID == bookID && res.Status == domain.ReservationStatusPending {
			count++
		}
	}
	return count, nil
}

func (f *fakeLibraryRepo) SetReservationStatus(_ context.Context, reservationID string, status domain.ReservationStatus) error {
	for i := range f.reservations {
		if f.reservations[i].ID == reservationID {
			f.reservations[i].Status = status
			return nil
		}
	}
	return domain.ErrReservationNotFound
}

func (f *fakeLibraryRepo) MakeReservationAvailable(_ context.Context, reservationID string, expiresAt time.Time) error {
	for i := range f.reservations {
		if f.reservations[i].ID == reservationID {
			f.reservations[i].Status = domain.ReservationStatusAvailable
			f.reservations[i].ExpiresAt = &expiresAt
			return nil
		}
	}
	return domain.ErrReservationNotFound
}

func (f *fakeLibraryRepo) GetLoanDetails(ctx context.Context, loanID string) (domain.LoanDetails, error) {
	loan, err := f.GetLoanForUpdate(ctx, loanID)
	if err != nil {
		return domain.LoanDetails{}, err
	}
	return f.loanDetails(loan), nil
}

func (f *fakeLibraryRepo) loanDetails(loan domain.Loan) domain.LoanDetails {
	details := domain.LoanDetails{Loan: loan}
	if book, ok := f.books[loan.BookID]; ok {
		details.BookTitle = book.Title
		details.BookAuthor = book.Author
	}
	if member, ok := f.members[loan.MemberID]; ok {
		details.MemberName = member.Name
		details.MemberEmail = member.Email
	}
	return details
}

func (f *fakeLibraryRepo) ListLoansByMember(_ context.Context, memberID string, status domain.LoanStatus) ([]domain.LoanDetails, error) {
	out := []domain.LoanDetails{}
	for _, loan := range f.loans {
		if loan.MemberID != memberID {
			continue
		}
		if status != "" && loan.Status != status {
			continue
		}
		out = append(out, f.loanDetails(loan))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].LoanedAt.After(out[j].LoanedAt)
	})
	return out, nil
}

func (f *fakeLibraryRepo) CreateReservation(_ context.Context, reservation domain.Reservation) error {
	f.reservations = append(f.reservations, reservation)
	return nil
}

func (f *fakeLibraryRepo) QueuePosition(_ context.Context, bookID string, createdAt time.Time) (int, error) {
	position := 0
	for _, res := range f.reservations {
		if res.BookID == bookID && res.Status == domain.ReservationStatusPending && !res.CreatedAt.After(createdAt) {
			position++
		}
	}
	return position, nil
}

func (f *fakeLibraryRepo) GetReservationForUpdate(_ context.Context, reservationID string) (domain.Reservation, error) {
	for _, res := range f.reservations {
		if res.ID == reservationID {
			return res, nil
		}
	}
	return domain.Reservation{}, domain.ErrReservationNotFound
}

func (f *fakeLibraryRepo) ListMemberReservations(ctx context.Context, memberID string) ([]domain.QueuedReservation, error) {
	out := []domain.QueuedReservation{}
	for _, res := range f.reservations {
		if res.MemberID != memberID {
			continue
		}
		if res.Status != domain.ReservationStatusPending && res.Status != domain.ReservationStatusAvailable {
			continue
		}
		queued := domain.QueuedReservation{Reservation: res}
		if book, ok := f.books[res.BookID]; ok {
			queued.BookTitle = book.Title
		}
		if res.Status == domain.ReservationStatusPending {
			position, _ := f.QueuePosition(ctx, res.BookID, res.CreatedAt)
			queued.QueuePosition = position
		}
		out = append(out, queued)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (f *fakeLibraryRepo) CreateBook(_ context.Context, book domain.Book) error {
	for _, existing := range f.books {
		if existing.ISBN == book.ISBN {
			return domain.ErrISBNTaken
		}
	}
	f.books[book.ID] = book
	return nil
}

func (f *fakeLibraryRepo) UpdateBook(_ context.Context, book domain.Book) error {
	if _, ok := f.books[book.ID]; !ok {
		return domain.ErrBookNotFound
	}
	if book.AvailableCopies < 0 || book.TotalCopies < 0 {
		return domain.ErrInvalidCopies
	}
	f.books[book.ID] = book
	return nil
}

func (f *fakeLibraryRepo) DeleteBook(_ context.Context, bookID string) error {
	if _, ok := f.books[bookID]; !ok {
		return domain.ErrBookNotFound
	}
	for _, loan := range f.loans {
		if loan.BookID == bookID {
			return domain.ErrBookHasOpenLoans
		}
	}
	delete(f.books, bookID)
	return nil
}

func (f *fakeLibraryRepo) CountOpenLoansForBook(_ context.Context, bookID string) (int, error) {
	count := 0
	for _, loan := range f.loans {
		if loan.BookID == bookID && loan.Status.Open() {
			count++
		}
	}
	return count, nil
}

func (f *fakeLibraryRepo) ListBooks(_ context.Context, search, genre string, availableOnly bool, limit, offset int) ([]domain.Book, int, error) {
	matched := []domain.Book{}
	for _, book := range f.books {
		if search != "" && !containsFold(book.Title, search) && !containsFold(book.Author, search) {
			continue
		}
		if genre != "" && book.Genre != genre {
			continue
		}
		if availableOnly && book.AvailableCopies <= 0 {
			continue
		}
		matched = append(matched, book)
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].Title < matched[j].Title
	})
	total := len(matched)
	if offset >= len(matched) {
		return []domain.Book{}, total, nil
	}
	matched = matched[offset:]
	if limit > 0 && limit < len(matched) {
		matched = matched[:limit]
	}
	return matched, total, nil
}

func (f *fakeLibraryRepo) SetFineBalance(_ context.Context, memberID string, balance int64) error {
	member, ok := f.members[memberID]
	if !ok {
		return domain.ErrMemberNotFound
	}
	member.FineBalance = balance
	f.members[memberID] = member
	return nil
}

func (f *fakeLibraryRepo) SetMemberStatus(_ context.Context, memberID string, status domain.MemberStatus) error {
	member, ok := f.members[memberID]
	if !ok {
		return domain.ErrMemberNotFound
	}
	member.Status = status
	f.members[memberID] = member
	return nil
}

func (f *fakeLibraryRepo) FindOverdueLoanDetails(_ context.Context, asOf time.Time) ([]domain.LoanDetails, error) {
	out := []domain.LoanDetails{}
	for _, loan := range f.loans {
		if loan.Status.Open() && loan.DueAt.Before(asOf) {
			out = append(out, f.loanDetails(loan))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].DueAt.Before(out[j].DueAt)
	})
	return out, nil
}

func (f *fakeLibraryRepo) FindOverdueLoans(_ context.Context, asOf time.Time) ([]domain.Loan, error) {
	out := []domain.Loan{}
	for _, loan := range f.loans {
		if loan.Status == domain.LoanStatusActive && loan.DueAt.Before(asOf) {
			out = append(out, loan)
		}
	}
	return out, nil
}

func (f *fakeLibraryRepo) StampOverdue(_ context.Context, loanID string, fine int64) error {
	for i := range f.loans {
		if f.loans[i].ID == loanID {
			f.loans[i].Status = domain.LoanStatusOverdue
			f.loans[i].Fine = fine
			return nil
		}
	}
	return domain.ErrLoanNotFound
}

func (f *fakeLibraryRepo) AddToFineBalance(_ context.Context, memberID string, amount int64) error {
	member, ok := f.members[memberID]
	if !ok {
		return domain.ErrMemberNotFound
	}
	member.FineBalance += amount
	f.members[memberID] = member
	return nil
}

func (f *fakeLibraryRepo) FindLoansDueBetween(_ context.Context, from, until time.Time) ([]domain.LoanDetails, error) {
	out := []domain.LoanDetails{}
	for _, loan := range f.loans {
		if loan.Status != domain.LoanStatusActive {
			continue
		}
		if loan.DueAt.Before(from) || loan.DueAt.After(until) {
			continue
		}
		out = append(out, f.loanDetails(loan))
	}
	return out, nil
}

func (f *fakeLibraryRepo) FindExpiredReservations(_ context.Context, asOf time.Time) ([]domain.Reservation, error) {
	out := []domain.Reservation{}
	for _, res := range f.reservations {
		if res.Status == domain.ReservationStatusAvailable && res.ExpiresAt != nil && res.ExpiresAt.Before(asOf) {
			out = append(out, res)
		}
	}
	return out, nil
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

// fakeNotifier records every message handed to it.
type fakeNotifier struct {
	messages []notify.Message
}

func (f *fakeNotifier) Notify(_ context.Context, msg notify.Message) {
	f.messages = append(f.messages, msg)
}
