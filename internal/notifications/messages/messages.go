// Package messages renders the chat texts sent to the library staff channel.
package messages

import (
	"fmt"
	"html"
	"strings"

	"bookloans/pkg/model"
)

const (
	NoOverdue = "No overdue borrowings found."
)

func NewBorrowing(b *model.Borrowing, bookTitle string) string {
	return render("📚 New borrowing",
		line("Book", bookTitle),
		line("User", b.User.Email),
		line("Borrow date", b.BorrowDate.String()),
		line("Expected return date", b.ExpectedReturnDate.String()),
	)
}

func BookReturned(b *model.Borrowing, bookTitle string) string {
	returned := ""
	if b.ActualReturnDate != nil {
		returned = b.ActualReturnDate.String()
	}
	return render("✅ Book returned",
		line("Book", bookTitle),
		line("User", b.User.Email),
		line("Borrow date", b.BorrowDate.String()),
		line("Return date", returned),
	)
}

func Overdue(b *model.Borrowing, bookTitle string) string {
	return render("❗ Book overdue",
		line("Book", bookTitle),
		line("User", b.User.Email),
		line("Borrow date", b.BorrowDate.String()),
		line("Expected return date", b.ExpectedReturnDate.String()),
	)
}

func OverdueSummary(notified int) string {
	if notified == 0 {
		return NoOverdue
	}
	return fmt.Sprintf("Notified about %d overdue borrowings.", notified)
}

// Values are escaped because the chat renders HTML.
func line(label, value string) string {
	return label + ": " + html.EscapeString(value)
}

func render(title string, lines ...string) string {
	return title + "\n" + strings.Join(lines, "\n")
}
