package entity

// Book is a catalog record. Available is the single source of truth for
// whether this book may enter a new loan and is mutated only by the loan
// service; a book is available iff no active loan references it.
type Book struct {
	ID        int64  `db:"id" json:"id"`
	Title     string `db:"title" json:"title"`
	Author    string `db:"author" json:"author"`
	Publisher string `db:"publisher" json:"publisher"`
	Year      int    `db:"publication_year" json:"publication_year"`
	Available bool   `db:"available" json:"available"`
}
