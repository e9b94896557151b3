package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/N-Teddy/library-api/internal/app"
	"github.com/N-Teddy/library-api/internal/domain"
)

// CatalogService is the minimal interface needed by the catalog
// endpoints.
type CatalogService interface {
	CreateBook(ctx context.Context, in app.CreateBookInput) (domain.Book, error)
	UpdateBook(ctx context.Context, in app.UpdateBookInput) (domain.Book, error)
	DeleteBook(ctx context.Context, bookID string) error
	GetBook(ctx context.Context, bookID string) (domain.BookDetails, error)
	ListBooks(ctx context.Context, q app.BookQuery) ([]domain.Book, int, error)
}

// HandleBooks returns an HTTP handler for listing and creating catalog
// entries.
func HandleBooks(svc CatalogService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			query := r.URL.Query()
			page, _ := strconv.Atoi(query.Get("page"))
			perPage, _ := strconv.Atoi(query.Get("per_page"))

			books, total, err := svc.ListBooks(r.Context(), app.BookQuery{
				Search:        query.Get("search"),
				Genre:         query.Get("genre"),
				AvailableOnly: query.Get("available") == "true",
				Page:          page,
				PerPage:       perPage,
			})
			if err != nil {
				writeDomainError(w, err)
				return
			}

			resp := bookListResponse{
				Books: make([]bookResponse, 0, len(books)),
				Total: total,
			}
			for _, book := range books {
				resp.Books = append(resp.Books, newBookResponse(book))
			}
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(resp)
			return
		case http.MethodPost:
			var req createBookRequest
			dec := json.NewDecoder(r.Body)
			dec.DisallowUnknownFields()
			if err := dec.Decode(&req); err != nil {
				writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
				return
			}

			book, err := svc.CreateBook(r.Context(), app.CreateBookInput{
				ISBN:        req.ISBN,
				Title:       req.Title,
				Author:      req.Author,
				Genre:       req.Genre,
				TotalCopies: req.TotalCopies,
			})
			if err != nil {
				writeDomainError(w, err)
				return
			}

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(newBookResponse(book))
			return
		default:
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}
	}
}

// HandleBook returns an HTTP handler for reading, editing, and removing
// a single catalog entry.
func HandleBook(svc CatalogService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bookID, ok := parseBookPath(r.URL.Path)
		if !ok {
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
			return
		}

		switch r.Method {
		case http.MethodGet:
			details, err := svc.GetBook(r.Context(), bookID)
			if err != nil {
				writeDomainError(w, err)
				return
			}
			resp := bookDetailsResponse{
				bookResponse:        newBookResponse(details.Book),
				OpenLoans:           details.OpenLoans,
				PendingReservations: details.PendingReservations,
			}
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(resp)
			return
		case http.MethodPatch:
			var req updateBookRequest
			dec := json.NewDecoder(r.Body)
			dec.DisallowUnknownFields()
			if err := dec.Decode(&req); err != nil {
				writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
				return
			}

			book, err := svc.UpdateBook(r.Context(), app.UpdateBookInput{
				BookID:      bookID,
				Title:       req.Title,
				Author:      req.Author,
				Genre:       req.Genre,
				TotalCopies: req.TotalCopies,
			})
			if err != nil {
				writeDomainError(w, err)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(newBookResponse(book))
			return
		case http.MethodDelete:
			if err := svc.DeleteBook(r.Context(), bookID); err != nil {
				writeDomainError(w, err)
				return
			}
			w.WriteHeader(http.StatusNoContent)
			return
		default:
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}
	}
}

type createBookRequest struct {
	ISBN        string `json:"isbn"`
	Title       string `json:"title"`
	Author      string `json:"author"`
	Genre       string `json:"genre"`
	TotalCopies int    `json:"total_copies"`
}

type updateBookRequest struct {
	Title       *string `json:"title"`
	Author      *string `json:"author"`
	Genre       *string `json:"genre"`
	TotalCopies *int    `json:"total_copies"`
}

type bookResponse struct {
	ID              string    `json:"id"`
	ISBN            string    `json:"isbn"`
	Title           string    `json:"title"`
	Author          string    `json:"author"`
	Genre           string    `json:"genre,omitempty"`
	TotalCopies     int       `json:"total_copies"`
	AvailableCopies int       `json:"available_copies"`
	CreatedAt       time.Time `json:"created_at"`
}

type bookListResponse struct {
	Books []bookResponse `json:"books"`
	Total int            `json:"total"`
}

type bookDetailsResponse struct {
	bookResponse
	OpenLoans           int `json:"open_loans"`
	PendingReservations int `json:"pending_reservations"`
}

func newBookResponse(book domain.Book) bookResponse {
	return bookResponse{
		ID:              book.ID,
		ISBN:            book.ISBN,
		Title:           book.Title,
		Author:          book.Author,
		Genre:           book.Genre,
		TotalCopies:     book.TotalCopies,
		AvailableCopies: book.AvailableCopies,
		CreatedAt:       book.CreatedAt,
	}
}

func parseBookPath(path string) (string, bool) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) != 2 || parts[0] != "books" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}
