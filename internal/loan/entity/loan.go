package entity

import "time"

// Loan records a client's temporary possession of one or more books.
// BookIDs is owned by the loan: the service copies the request's list at
// creation, it is never a live view of the catalog.
//
// A loan has exactly two transitions: borrow creates it active with
// LoanDate stamped by the service, return deactivates it and stamps
// ReturnDate. There are no partial updates.
type Loan struct {
	ID         int64      `db:"id" json:"id"`
	ClientID   int64      `db:"client_id" json:"client_id"`
	BookIDs    []int64    `json:"book_ids"`
	LoanDate   time.Time  `db:"loan_date" json:"loan_date"`
	DueDate    time.Time  `db:"due_date" json:"due_date"`
	ReturnDate *time.Time `db:"return_date" json:"return_date,omitempty"`
	Active     bool       `db:"active" json:"active"`
}
