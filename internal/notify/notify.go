package notify

import (
	"context"
	"fmt"
	"time"
)

// Message is an outbound notification addressed to a member's email.
type Message struct {
	Recipient string
	Subject   string
	Body      string
}

// Sender performs the actual delivery. Implementations own retries;
// callers treat every send as best-effort.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// ReservationReady tells a member their reserved book can be picked up
// before the hold window closes.
func ReservationReady(recipient, bookTitle string, expiresAt time.Time) Message {
	return Message{
		Recipient: recipient,
		Subject:   fmt.Sprintf("Book available: %s", bookTitle),
		Body: fmt.Sprintf(
			"The book %q you reserved is now available. Please borrow it before %s or your reservation will expire.",
			bookTitle, expiresAt.Format("Jan 2, 2006"),
		),
	}
}

// DueSoon reminds a member of an upcoming due date.
func DueSoon(recipient, bookTitle string, dueAt time.Time) Message {
	return Message{
		Recipient: recipient,
		Subject:   fmt.Sprintf("Due date reminder: %s", bookTitle),
		Body: fmt.Sprintf(
			"The book %q is due back on %s. Return or renew it to avoid fines.",
			bookTitle, dueAt.Format("Jan 2, 2006"),
		),
	}
}
