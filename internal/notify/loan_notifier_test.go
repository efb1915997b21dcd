package notify_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	bookentity "github.com/pedrohonorio/biblioteca-virtual/internal/book/entity"
	cliententity "github.com/pedrohonorio/biblioteca-virtual/internal/client/entity"
	loanentity "github.com/pedrohonorio/biblioteca-virtual/internal/loan/entity"
	"github.com/pedrohonorio/biblioteca-virtual/internal/notify"
)

type fakeClientSource struct {
	clients map[int64]*cliententity.Client
}

func (s *fakeClientSource) GetByID(_ context.Context, id int64) (*cliententity.Client, error) {
	c, ok := s.clients[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return c, nil
}

type fakeBookSource struct {
	books map[int64]*bookentity.Book
}

func (s *fakeBookSource) GetByID(_ context.Context, id int64) (*bookentity.Book, error) {
	b, ok := s.books[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return b, nil
}

type recordingMailer struct {
	to, subject, body []string
	err               error
}

func (m *recordingMailer) Send(_ context.Context, to, subject, body string) error {
	if m.err != nil {
		return m.err
	}
	m.to = append(m.to, to)
	m.subject = append(m.subject, subject)
	m.body = append(m.body, body)
	return nil
}

func newNotifier(mailer *recordingMailer) *notify.LoanNotifier {
	clients := &fakeClientSource{clients: map[int64]*cliententity.Client{
		7: {ID: 7, Name: "Ana", Email: "ana@example.com"},
	}}
	books := &fakeBookSource{books: map[int64]*bookentity.Book{
		1: {ID: 1, Title: "Dom Casmurro"},
		2: {ID: 2, Title: "Vidas Secas"},
	}}
	return notify.NewLoanNotifier(mailer, clients, books, zap.NewNop().Sugar())
}

func Test_LoanCreated_MailsClientWithTitles(t *testing.T) {
	mailer := &recordingMailer{}
	notifier := newNotifier(mailer)
	loan := &loanentity.Loan{
		ID:       1,
		ClientID: 7,
		BookIDs:  []int64{1, 2},
		DueDate:  time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC),
	}

	notifier.LoanCreated(context.Background(), loan)

	require.Len(t, mailer.to, 1)
	assert.Equal(t, "ana@example.com", mailer.to[0])
	assert.Equal(t, "Loan confirmed", mailer.subject[0])
	assert.Contains(t, mailer.body[0], "Dom Casmurro, Vidas Secas")
	assert.Contains(t, mailer.body[0], "2026-03-20")
}

func Test_LoanReturned_MailsClient(t *testing.T) {
	mailer := &recordingMailer{}
	notifier := newNotifier(mailer)
	loan := &loanentity.Loan{ID: 1, ClientID: 7, BookIDs: []int64{2}}

	notifier.LoanReturned(context.Background(), loan)

	require.Len(t, mailer.to, 1)
	assert.Equal(t, "Loan returned", mailer.subject[0])
	assert.Contains(t, mailer.body[0], "Vidas Secas")
}

func Test_LoanCreated_UnknownBookFallsBackToID(t *testing.T) {
	mailer := &recordingMailer{}
	notifier := newNotifier(mailer)
	loan := &loanentity.Loan{ID: 1, ClientID: 7, BookIDs: []int64{99}}

	notifier.LoanCreated(context.Background(), loan)

	require.Len(t, mailer.body, 1)
	assert.Contains(t, mailer.body[0], "#99")
}

func Test_Notifications_NeverPropagateFailures(t *testing.T) {
	mailer := &recordingMailer{err: errors.New("smtp down")}
	notifier := newNotifier(mailer)
	loan := &loanentity.Loan{ID: 1, ClientID: 7, BookIDs: []int64{1}}

	assert.NotPanics(t, func() {
		notifier.LoanCreated(context.Background(), loan)
	})

	unknownClient := &loanentity.Loan{ID: 2, ClientID: 99, BookIDs: []int64{1}}
	assert.NotPanics(t, func() {
		notifier.LoanReturned(context.Background(), unknownClient)
	})
}
