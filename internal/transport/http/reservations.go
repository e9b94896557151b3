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

// ReservationService is the minimal interface needed by the reservation
// endpoints.
type ReservationService interface {
	Reserve(ctx context.Context, in app.ReserveInput) (app.ReserveResult, error)
	Cancel(ctx context.Context, in app.CancelReservationInput) error
	ListReservations(ctx context.Context, memberID string) ([]domain.QueuedReservation, error)
}

// HandleReservations returns an HTTP handler for creating and listing
// reservations.
func HandleReservations(svc ReservationService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		member, ok := memberID(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, codeMemberRequired, "X-Member-ID header is required")
			return
		}

		switch r.Method {
		case http.MethodGet:
			reservations, err := svc.ListReservations(r.Context(), member)
			if err != nil {
				writeDomainError(w, err)
				return
			}
			resp := make([]reservationResponse, 0, len(reservations))
			for _, res := range reservations {
				resp = append(resp, reservationResponse{
					ID:            res.ID,
					BookID:        res.BookID,
					BookTitle:     res.BookTitle,
					Status:        string(res.Status),
					QueuePosition: res.QueuePosition,
					ExpiresAt:     res.ExpiresAt,
					CreatedAt:     res.CreatedAt,
				})
			}
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(resp)
			return
		case http.MethodPost:
			var req reserveRequest
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

			result, err := svc.Reserve(r.Context(), app.ReserveInput{
				MemberID: member,
				BookID:   req.BookID,
			})
			if err != nil {
				writeDomainError(w, err)
				return
			}

			resp := reservationResponse{
				ID:            result.Reservation.ID,
				BookID:        result.Reservation.BookID,
				Status:        string(result.Reservation.Status),
				QueuePosition: result.QueuePosition,
				ExpiresAt:     result.Reservation.ExpiresAt,
				CreatedAt:     result.Reservation.CreatedAt,
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(resp)
			return
		default:
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}
	}
}

// HandleCancelReservation returns an HTTP handler for
// POST /reservations/{id}/cancel.
func HandleCancelReservation(svc ReservationService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reservationID, ok := parseReservationCancelPath(r.URL.Path)
		if !ok {
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
			return
		}
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}
		member, ok := memberID(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, codeMemberRequired, "X-Member-ID header is required")
			return
		}

		err := svc.Cancel(r.Context(), app.CancelReservationInput{
			ReservationID: reservationID,
			MemberID:      member,
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

type reserveRequest struct {
	BookID string `json:"book_id"`
}

type reservationResponse struct {
	ID            string     `json:"id"`
	BookID        string     `json:"book_id"`
	BookTitle     string     `json:"book_title,omitempty"`
	Status        string     `json:"status"`
	QueuePosition int        `json:"queue_position,omitempty"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

func parseReservationCancelPath(path string) (string, bool) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) != 3 || parts[0] != "reservations" || parts[1] == "" || parts[2] != "cancel" {
		return "", false
	}
	return parts[1], true
}
