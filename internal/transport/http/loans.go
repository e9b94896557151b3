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

// LoanService is the minimal interface needed by the loan endpoints.
type LoanService interface {
	Borrow(ctx context.Context, in app.BorrowInput) (domain.LoanDetails, error)
	Return(ctx context.Context, loanID string) (domain.LoanDetails, error)
	Renew(ctx context.Context, in app.RenewInput) (domain.LoanDetails, error)
	ListLoans(ctx context.Context, in app.ListLoansInput) ([]domain.LoanDetails, error)
}

// HandleLoans returns an HTTP handler for borrowing and listing loans.
func HandleLoans(svc LoanService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		member, ok := memberID(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, codeMemberRequired, "X-Member-ID header is required")
			return
		}

		switch r.Method {
		case http.MethodGet:
			loans, err := svc.ListLoans(r.Context(), app.ListLoansInput{
				MemberID: member,
				Status:   r.URL.Query().Get("status"),
			})
			if err != nil {
				writeDomainError(w, err)
				return
			}
			resp := make([]loanResponse, 0, len(loans))
			for _, loan := range loans {
				resp = append(resp, newLoanResponse(loan))
			}
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(resp)
			return
		case http.MethodPost:
			var req borrowRequest
			dec := json.NewDecoder(r.Body)
			dec.DisallowUnknownFields()
			if err := dec.Decode(&req); err != nil {
				writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
				return
			}
			if req.BookID == "" {
				writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "book_id is required")
				return
			}

			loan, err := svc.Borrow(r.Context(), app.BorrowInput{
				MemberID: member,
				BookID:   req.BookID,
			})
			if err != nil {
				writeDomainError(w, err)
				return
			}

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(newLoanResponse(loan))
			return
		default:
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}
	}
}

// HandleLoanAction returns an HTTP handler for POST /loans/{id}/return
// and POST /loans/{id}/renew.
func HandleLoanAction(svc LoanService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		loanID, action, ok := parseLoanActionPath(r.URL.Path)
		if !ok {
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
			return
		}
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		var loan domain.LoanDetails
		var err error
		switch action {
		case "return":
			loan, err = svc.Return(r.Context(), loanID)
		case "renew":
			member, ok := memberID(r)
			if !ok {
				writeError(w, http.StatusUnauthorized, codeMemberRequired, "X-Member-ID header is required")
				return
			}
			loan, err = svc.Renew(r.Context(), app.RenewInput{
				LoanID:   loanID,
				MemberID: member,
			})
		default:
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
			return
		}
		if err != nil {
			writeDomainError(w, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(newLoanResponse(loan))
	}
}

type borrowRequest struct {
	BookID string `json:"book_id"`
}

type loanResponse struct {
	ID         string     `json:"id"`
	BookID     string     `json:"book_id"`
	BookTitle  string     `json:"book_title"`
	BookAuthor string     `json:"book_author"`
	MemberID   string     `json:"member_id"`
	LoanedAt   time.Time  `json:"loaned_at"`
	DueAt      time.Time  `json:"due_at"`
	ReturnedAt *time.Time `json:"returned_at,omitempty"`
	Status     string     `json:"status"`
	Fine       int64      `json:"fine"`
	RenewCount int        `json:"renew_count"`
}

func newLoanResponse(loan domain.LoanDetails) loanResponse {
	return loanResponse{
		ID:         loan.ID,
		BookID:     loan.BookID,
		BookTitle:  loan.BookTitle,
		BookAuthor: loan.BookAuthor,
		MemberID:   loan.MemberID,
		LoanedAt:   loan.LoanedAt,
		DueAt:      loan.DueAt,
		ReturnedAt: loan.ReturnedAt,
		Status:     string(loan.Status),
		Fine:       loan.Fine,
		RenewCount: loan.RenewCount,
	}
}

func parseLoanActionPath(path string) (string, string, bool) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) != 3 || parts[0] != "loans" || parts[1] == "" {
		return "", "", false
	}
	return parts[1], parts[2], true
}
