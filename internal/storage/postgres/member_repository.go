package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/N-Teddy/library-api/internal/domain"
)

type MemberRepository struct {
	querier
}

func NewMemberRepository(pool *pgxpool.Pool) *MemberRepository {
	return &MemberRepository{querier{pool: pool}}
}

func (r *MemberRepository) GetMember(ctx context.Context, memberID string) (domain.Member, error) {
	return getMemberRow(ctx, r.querier, memberID, false)
}

func (r *MemberRepository) GetMemberForUpdate(ctx context.Context, memberID string) (domain.Member, error) {
	return getMemberRow(ctx, r.querier, memberID, true)
}

func getMemberRow(ctx context.Context, q querier, memberID string, forUpdate bool) (domain.Member, error) {
	query := `
SELECT id, email, name, role, status, fine_balance, created_at
FROM members
WHERE id = $1`
	if forUpdate {
		query += `
FOR UPDATE`
	}

	var m domain.Member
	err := q.queryRow(ctx, query, memberID).
		Scan(&m.ID, &m.Email, &m.Name, &m.Role, &m.Status, &m.FineBalance, &m.CreatedAt)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Member{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.Member{}, domain.ErrMemberNotFound
		}
		return domain.Member{}, fmt.Errorf("get member: %w", err)
	}
	return m, nil
}

func (r *MemberRepository) SetFineBalance(ctx context.Context, memberID string, balance int64) error {
	const stmt = `UPDATE members SET fine_balance = $2 WHERE id = $1`

	tag, err := r.exec(ctx, stmt, memberID, balance)
	if err != nil {
		return fmt.Errorf("set fine balance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrMemberNotFound
	}
	return nil
}

func (r *MemberRepository) SetMemberStatus(ctx context.Context, memberID string, status domain.MemberStatus) error {
	const stmt = `UPDATE members SET status = $2 WHERE id = $1`

	tag, err := r.exec(ctx, stmt, memberID, status)
	if err != nil {
		return fmt.Errorf("set member status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrMemberNotFound
	}
	return nil
}

func (r *MemberRepository) FindOverdueLoanDetails(ctx context.Context, asOf time.Time) ([]domain.LoanDetails, error) {
	const query = `
SELECT l.id, l.member_id, l.book_id, l.loaned_at, l.due_at, l.returned_at, l.status, l.fine, l.renew_count,
       b.title, b.author, m.name, m.email
FROM loans l
JOIN books b ON b.id = l.book_id
JOIN members m ON m.id = l.member_id
WHERE l.status IN ('active', 'overdue') AND l.due_at < $1
ORDER BY l.due_at ASC`

	rows, err := r.query(ctx, query, asOf)
	if err != nil {
		return nil, fmt.Errorf("find overdue loans: %w", err)
	}
	defer rows.Close()

	var loans []domain.LoanDetails
	for rows.Next() {
		var d domain.LoanDetails
		if err := rows.Scan(
			&d.ID, &d.MemberID, &d.BookID, &d.LoanedAt, &d.DueAt, &d.ReturnedAt, &d.Status, &d.Fine, &d.RenewCount,
			&d.BookTitle, &d.BookAuthor, &d.MemberName, &d.MemberEmail,
		); err != nil {
			return nil, fmt.Errorf("scan overdue loan: %w", err)
		}
		loans = append(loans, d)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate overdue loans: %w", rows.Err())
	}
	return loans, nil
}
