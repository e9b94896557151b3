package http

import (
	"encoding/json"
	"net/http"

	"github.com/N-Teddy/library-api/internal/domain"
)

const (
	codeMethodNotAllowed   = "method_not_allowed"
	codeNotFound           = "not_found"
	codeInvalidRequestBody = "invalid_request_body"
	codeMemberRequired     = "member_id_required"
	codeInvalidID          = "invalid_id"
	codeForbidden          = "forbidden"
	codeInternalError      = "internal_error"

	codeBookNotFound        = "book_not_found"
	codeMemberNotFound      = "member_not_found"
	codeLoanNotFound        = "loan_not_found"
	codeReservationNotFound = "reservation_not_found"

	codeLoanLimitReached    = "loan_limit_reached"
	codeOutstandingFines    = "outstanding_fines"
	codeBookUnavailable     = "book_unavailable"
	codeAlreadyBorrowed     = "already_borrowed"
	codeAlreadyReturned     = "already_returned"
	codeNotLoanHolder       = "not_loan_holder"
	codeLoanNotActive       = "loan_not_active"
	codeRenewalLimitReached = "renewal_limit_reached"
	codeReservationsWaiting = "reservations_waiting"
	codeInvalidLoanFilter   = "invalid_loan_filter"

	codeBookAvailable   = "book_available"
	codeAlreadyReserved = "already_reserved"
	codeCannotCancel    = "cannot_cancel"

	codeISBNTaken        = "isbn_taken"
	codeBookHasOpenLoans = "book_has_open_loans"
	codeInvalidCopies    = "invalid_copies"
	codeTitleRequired    = "title_required"
	codeISBNRequired     = "isbn_required"
	codeInvalidAmount    = "invalid_amount"
	codeInvalidStatus    = "invalid_status"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	payload, err := json.Marshal(errorResponse{
		Error: msg,
		Code:  code,
	})
	if err != nil {
		_, _ = w.Write([]byte(`{"error":"internal error","code":"internal_error"}`))
		return
	}
	_, _ = w.Write(payload)
}

// writeDomainError maps service errors onto status codes and the JSON
// error envelope.
func writeDomainError(w http.ResponseWriter, err error) {
	switch err {
	case domain.ErrInvalidID:
		writeError(w, http.StatusBadRequest, codeInvalidID, err.Error())
	case domain.ErrBookNotFound:
		writeError(w, http.StatusNotFound, codeBookNotFound, err.Error())
	case domain.ErrMemberNotFound:
		writeError(w, http.StatusNotFound, codeMemberNotFound, err.Error())
	case domain.ErrLoanNotFound:
		writeError(w, http.StatusNotFound, codeLoanNotFound, err.Error())
	case domain.ErrReservationNotFound:
		writeError(w, http.StatusNotFound, codeReservationNotFound, err.Error())
	case domain.ErrLoanLimitReached:
		writeError(w, http.StatusConflict, codeLoanLimitReached, err.Error())
	case domain.ErrOutstandingFines:
		writeError(w, http.StatusConflict, codeOutstandingFines, err.Error())
	case domain.ErrBookUnavailable:
		writeError(w, http.StatusConflict, codeBookUnavailable, err.Error())
	case domain.ErrAlreadyBorrowed:
		writeError(w, http.StatusConflict, codeAlreadyBorrowed, err.Error())
	case domain.ErrAlreadyReturned:
		writeError(w, http.StatusConflict, codeAlreadyReturned, err.Error())
	case domain.ErrNotLoanHolder:
		writeError(w, http.StatusForbidden, codeNotLoanHolder, err.Error())
	case domain.ErrLoanNotActive:
		writeError(w, http.StatusConflict, codeLoanNotActive, err.Error())
	case domain.ErrRenewalLimitReached:
		writeError(w, http.StatusConflict, codeRenewalLimitReached, err.Error())
	case domain.ErrReservationsWaiting:
		writeError(w, http.StatusConflict, codeReservationsWaiting, err.Error())
	case domain.ErrInvalidLoanFilter:
		writeError(w, http.StatusBadRequest, codeInvalidLoanFilter, err.Error())
	case domain.ErrBookAvailable:
		writeError(w, http.StatusConflict, codeBookAvailable, err.Error())
	case domain.ErrAlreadyReserved:
		writeError(w, http.StatusConflict, codeAlreadyReserved, err.Error())
	case domain.ErrCannotCancel:
		writeError(w, http.StatusConflict, codeCannotCancel, err.Error())
	case domain.ErrISBNTaken:
		writeError(w, http.StatusConflict, codeISBNTaken, err.Error())
	case domain.ErrBookHasOpenLoans:
		writeError(w, http.StatusConflict, codeBookHasOpenLoans, err.Error())
	case domain.ErrInvalidCopies:
		writeError(w, http.StatusBadRequest, codeInvalidCopies, err.Error())
	case domain.ErrTitleRequired:
		writeError(w, http.StatusBadRequest, codeTitleRequired, err.Error())
	case domain.ErrISBNRequired:
		writeError(w, http.StatusBadRequest, codeISBNRequired, err.Error())
	case domain.ErrInvalidAmount:
		writeError(w, http.StatusBadRequest, codeInvalidAmount, err.Error())
	case domain.ErrInvalidStatus:
		writeError(w, http.StatusBadRequest, codeInvalidStatus, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
	}
}
