package notify

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	bookentity "github.com/pedrohonorio/biblioteca-virtual/internal/book/entity"
	cliententity "github.com/pedrohonorio/biblioteca-virtual/internal/client/entity"
	loanentity "github.com/pedrohonorio/biblioteca-virtual/internal/loan/entity"
)

// ClientSource resolves the recipient of a loan notification.
type ClientSource interface {
	GetByID(ctx context.Context, id int64) (*cliententity.Client, error)
}

// BookSource resolves book titles for the message body.
type BookSource interface {
	GetByID(ctx context.Context, id int64) (*bookentity.Book, error)
}

// LoanNotifier mails clients about borrow and return events. Delivery is
// best effort: a lookup or send failure is logged and otherwise ignored, it
// never fails the loan that triggered it.
type LoanNotifier struct {
	mailer  Mailer
	clients ClientSource
	books   BookSource
	logger  *zap.SugaredLogger
}

func NewLoanNotifier(mailer Mailer, clients ClientSource, books BookSource, logger *zap.SugaredLogger) *LoanNotifier {
	return &LoanNotifier{mailer: mailer, clients: clients, books: books, logger: logger}
}

func (n *LoanNotifier) LoanCreated(ctx context.Context, l *loanentity.Loan) {
	body := fmt.Sprintf(
		"Your loan was confirmed.\n\nBooks: %s\nDue date: %s\n\nEnjoy your reading!",
		n.titles(ctx, l.BookIDs), l.DueDate.Format("2006-01-02"))
	n.send(ctx, l, "Loan confirmed", body)
}

func (n *LoanNotifier) LoanReturned(ctx context.Context, l *loanentity.Loan) {
	body := fmt.Sprintf(
		"Your return was registered.\n\nBooks: %s\n\nThank you!",
		n.titles(ctx, l.BookIDs))
	n.send(ctx, l, "Loan returned", body)
}

func (n *LoanNotifier) send(ctx context.Context, l *loanentity.Loan, subject, body string) {
	c, err := n.clients.GetByID(ctx, l.ClientID)
	if err != nil {
		n.logger.Warnw("loan notification skipped, client lookup failed",
			"loan_id", l.ID, "client_id", l.ClientID, "err", err)
		return
	}
	if err := n.mailer.Send(ctx, c.Email, subject, body); err != nil {
		n.logger.Warnw("loan notification failed", "loan_id", l.ID, "to", c.Email, "err", err)
	}
}

func (n *LoanNotifier) titles(ctx context.Context, bookIDs []int64) string {
	titles := make([]string, 0, len(bookIDs))
	for _, id := range bookIDs {
		b, err := n.books.GetByID(ctx, id)
		if err != nil {
			titles = append(titles, fmt.Sprintf("#%d", id))
			continue
		}
		titles = append(titles, b.Title)
	}
	return strings.Join(titles, ", ")
}
