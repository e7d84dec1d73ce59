package library

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// LoanManager owns the three collections through its Store and enforces the
// circulation rules. Every mutating operation validates first, mutates, then
// persists the whole state before returning, so no business-rule error ever
// leaves a partial change behind.
type LoanManager struct {
	store Store
	state *State
	cfg   *Config
	log   zerolog.Logger

	now func() time.Time
}

// NewLoanManager loads the persisted state through store and wraps it.
func NewLoanManager(store Store, cfg *Config, log zerolog.Logger) (*LoanManager, error) {
	state, err := store.Load()
	if err != nil {
		return nil, err
	}
	log.Debug().
		Int("members", len(state.Members)).
		Int("materials", len(state.Materials)).
		Int("loans", len(state.Loans)).
		Msg("state loaded")
	return &LoanManager{
		store: store,
		state: state,
		cfg:   cfg,
		log:   log,
		now:   time.Now,
	}, nil
}

// Close closes the underlying store.
func (lm *LoanManager) Close() error { return lm.store.Close() }

// ------------------ Registration ------------------

// RegisterMember adds a patron. The id must be unused.
func (lm *LoanManager) RegisterMember(name, id string) (Member, error) {
	m := Member{ID: strings.TrimSpace(id), Name: strings.TrimSpace(name)}
	if err := checkInput(m); err != nil {
		return Member{}, err
	}
	if lm.memberByID(m.ID) != nil {
		return Member{}, NewError(CodeDuplicateKey, fmt.Sprintf("member %q already registered", m.ID))
	}
	lm.state.Members = append(lm.state.Members, m)
	if err := lm.persist(); err != nil {
		return Member{}, err
	}
	lm.log.Info().Str("member", m.ID).Msg("member registered")
	return m, nil
}

// RegisterMaterial adds a catalogue entry. The title must be unused and the
// stock non-negative.
func (lm *LoanManager) RegisterMaterial(title, category string, stock int) (Material, error) {
	m := Material{Title: strings.TrimSpace(title), Category: strings.TrimSpace(category), Stock: stock}
	if err := checkInput(m); err != nil {
		return Material{}, err
	}
	if lm.materialByTitle(m.Title) != nil {
		return Material{}, NewError(CodeDuplicateKey, fmt.Sprintf("material %q already registered", m.Title))
	}
	lm.state.Materials = append(lm.state.Materials, m)
	if err := lm.persist(); err != nil {
		return Material{}, err
	}
	lm.log.Info().Str("material", m.Title).Int("stock", stock).Msg("material registered")
	return m, nil
}

// ------------------ Circulation ------------------

// Lend hands one copy of title to the member and opens a loan stamped with
// the current time. All checks run before any mutation.
func (lm *LoanManager) Lend(memberID, title string) (Loan, error) {
	if lm.memberByID(memberID) == nil {
		return Loan{}, NotFound("member")
	}
	material := lm.materialByTitle(title)
	if material == nil {
		return Loan{}, NotFound("material")
	}
	if material.Stock <= 0 {
		return Loan{}, NewError(CodeOutOfStock, fmt.Sprintf("no copies of %q available", title))
	}

	material.Stock--
	loan := Loan{MemberID: memberID, Title: title, LentAt: lm.now()}
	lm.state.Loans = append(lm.state.Loans, loan)
	if err := lm.persist(); err != nil {
		return Loan{}, err
	}
	lm.log.Info().Str("member", memberID).Str("material", title).Msg("loan opened")
	return loan, nil
}

// Return closes the oldest open loan for (memberID, title), puts the copy
// back on the shelf and reports the fine for the just-returned loan.
func (lm *LoanManager) Return(memberID, title string) (int64, error) {
	idx := -1
	for i, l := range lm.state.Loans {
		if l.MemberID == memberID && l.Title == title {
			idx = i
			break
		}
	}
	if idx < 0 {
		return 0, NotFound("loan")
	}
	loan := lm.state.Loans[idx]
	lm.state.Loans = append(lm.state.Loans[:idx], lm.state.Loans[idx+1:]...)

	material := lm.materialByTitle(title)
	if material == nil {
		// An open loan always references a catalogued material.
		return 0, NewError(CodeInternal, fmt.Sprintf("material %q missing for open loan", title))
	}
	material.Stock++

	if err := lm.persist(); err != nil {
		return 0, err
	}

	fine := lm.Fine(loan, lm.now())
	lm.log.Info().Str("member", memberID).Str("material", title).Int64("fine", fine).Msg("loan closed")
	return fine, nil
}

// Fine computes the penalty a loan has accrued by now. The first LoanPeriod
// (7 days by default) is free; after that every fully elapsed day costs
// FinePerDay. Fractions of a day never count.
func (lm *LoanManager) Fine(loan Loan, now time.Time) int64 {
	due := loan.LentAt.Add(lm.cfg.LoanPeriod)
	if !now.After(due) {
		return 0
	}
	overdueDays := int64(now.Sub(due) / (24 * time.Hour))
	return overdueDays * lm.cfg.FinePerDay
}

// ------------------ Reports ------------------

// ActiveLoans returns all open loans in insertion order.
func (lm *LoanManager) ActiveLoans() []Loan { return lm.state.Loans }

// OverdueLoans returns the open loans that have accrued a fine, in
// insertion order, each paired with its current amount.
func (lm *LoanManager) OverdueLoans() []OverdueLoan {
	now := lm.now()
	var overdue []OverdueLoan
	for _, loan := range lm.state.Loans {
		if fine := lm.Fine(loan, now); fine > 0 {
			overdue = append(overdue, OverdueLoan{Loan: loan, Fine: fine})
		}
	}
	return overdue
}

// Members returns all registered members in insertion order.
func (lm *LoanManager) Members() []Member { return lm.state.Members }

// Materials returns the catalogue in insertion order.
func (lm *LoanManager) Materials() []Material { return lm.state.Materials }

// MemberByID fetches a single member.
func (lm *LoanManager) MemberByID(id string) (Member, error) {
	if m := lm.memberByID(id); m != nil {
		return *m, nil
	}
	return Member{}, NotFound("member")
}

// MaterialByTitle fetches a single catalogue entry.
func (lm *LoanManager) MaterialByTitle(title string) (Material, error) {
	if m := lm.materialByTitle(title); m != nil {
		return *m, nil
	}
	return Material{}, NotFound("material")
}

// ------------------ Internals ------------------

// Lookups stay linear scans: the collections are tiny and the scan keeps
// insertion order authoritative.

func (lm *LoanManager) memberByID(id string) *Member {
	for i := range lm.state.Members {
		if lm.state.Members[i].ID == id {
			return &lm.state.Members[i]
		}
	}
	return nil
}

func (lm *LoanManager) materialByTitle(title string) *Material {
	for i := range lm.state.Materials {
		if lm.state.Materials[i].Title == title {
			return &lm.state.Materials[i]
		}
	}
	return nil
}

func (lm *LoanManager) persist() error {
	if err := lm.store.SaveAll(lm.state); err != nil {
		return fmt.Errorf("persist state: %w", err)
	}
	return nil
}
