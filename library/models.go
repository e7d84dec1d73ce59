package library

import "time"

// Member is a registered library patron. The ID is an external document
// number supplied at registration; it never changes afterwards.
type Member struct {
	ID   string `json:"id" validate:"required"`
	Name string `json:"name" validate:"required"`
}

// Material is a catalogued lendable item (book, magazine). Title doubles as
// the unique key. Stock counts the copies currently on the shelf and is the
// only field that changes after registration.
type Material struct {
	Title    string `json:"title" validate:"required"`
	Category string `json:"category" validate:"required"`
	Stock    int    `json:"stock" validate:"min=0"`
}

// Loan is an open borrowing record. It exists from the moment a copy leaves
// the shelf until the member returns it; returned loans are removed, not
// archived.
type Loan struct {
	MemberID string    `json:"member_id"`
	Title    string    `json:"title"`
	LentAt   time.Time `json:"timestamp"`
}

// OverdueLoan pairs an open loan with the fine it has accrued so far.
type OverdueLoan struct {
	Loan Loan
	Fine int64
}

// State holds the three collections, each in insertion order. Insertion
// order is load-bearing: a return resolves ambiguity by removing the first
// matching loan.
type State struct {
	Members   []Member
	Materials []Material
	Loans     []Loan
}
