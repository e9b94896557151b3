package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/N-Teddy/library-api/internal/app"
	"github.com/N-Teddy/library-api/internal/domain"
)

// MemberAdminService is the minimal interface needed by the member
// administration endpoints.
type MemberAdminService interface {
	WaiveFine(ctx context.Context, in app.WaiveFineInput) (int64, error)
	UpdateStatus(ctx context.Context, memberID string, status domain.MemberStatus) (domain.Member, error)
	OverdueLoans(ctx context.Context) ([]domain.OverdueLoan, error)
}

// HandleOverdueReport returns an HTTP handler for the overdue loans
// report.
func HandleOverdueReport(svc MemberAdminService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		loans, err := svc.OverdueLoans(r.Context())
		if err != nil {
			writeDomainError(w, err)
			return
		}

		resp := make([]overdueLoanResponse, 0, len(loans))
		for _, loan := range loans {
			resp = append(resp, overdueLoanResponse{
				LoanID:        loan.ID,
				BookID:        loan.BookID,
				BookTitle:     loan.BookTitle,
				MemberID:      loan.MemberID,
				MemberName:    loan.MemberName,
				MemberEmail:   loan.MemberEmail,
				DueAt:         loan.DueAt,
				DaysOverdue:   loan.DaysOverdue,
				ProjectedFine: loan.ProjectedFine,
			})
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}
}

// HandleMemberAction returns an HTTP handler for
// POST /admin/members/{id}/waive and POST /admin/members/{id}/status.
func HandleMemberAction(svc MemberAdminService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		targetID, action, ok := parseMemberActionPath(r.URL.Path)
		if !ok {
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
			return
		}
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		switch action {
		case "waive":
			var req waiveFineRequest
			dec := json.NewDecoder(r.Body)
			dec.DisallowUnknownFields()
			if err := dec.Decode(&req); err != nil {
				writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
				return
			}

			balance, err := svc.WaiveFine(r.Context(), app.WaiveFineInput{
				MemberID: targetID,
				Amount:   req.Amount,
			})
			if err != nil {
				writeDomainError(w, err)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(waiveFineResponse{FineBalance: balance})
			return
		case "status":
			var req memberStatusRequest
			dec := json.NewDecoder(r.Body)
			dec.DisallowUnknownFields()
			if err := dec.Decode(&req); err != nil {
				writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
				return
			}

			member, err := svc.UpdateStatus(r.Context(), targetID, domain.MemberStatus(req.Status))
			if err != nil {
				writeDomainError(w, err)
				return
			}
			resp := memberResponse{
				ID:          member.ID,
				Email:       member.Email,
				Name:        member.Name,
				Role:        string(member.Role),
				Status:      string(member.Status),
				FineBalance: member.FineBalance,
				CreatedAt:   member.CreatedAt,
			}
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(resp)
			return
		default:
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
			return
		}
	}
}

type waiveFineRequest struct {
	Amount int64 `json:"amount"`
}

type waiveFineResponse struct {
	FineBalance int64 `json:"fine_balance"`
}

type memberStatusRequest struct {
	Status string `json:"status"`
}

type memberResponse struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	Name        string    `json:"name"`
	Role        string    `json:"role"`
	Status      string    `json:"status"`
	FineBalance int64     `json:"fine_balance"`
	CreatedAt   time.Time `json:"created_at"`
}

type overdueLoanResponse struct {
	LoanID        string    `json:"loan_id"`
	BookID        string    `json:"book_id"`
	BookTitle     string    `json:"book_title"`
	MemberID      string    `json:"member_id"`
	MemberName    string    `json:"member_name"`
	MemberEmail   string    `json:"member_email"`
	DueAt         time.Time `json:"due_at"`
	DaysOverdue   int       `json:"days_overdue"`
	ProjectedFine int64     `json:"projected_fine"`
}

func parseMemberActionPath(path string) (string, string, bool) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) != 4 || parts[0] != "admin" || parts[1] != "members" || parts[2] == "" {
		return "", "", false
	}
	return parts[2], parts[3], true
}
