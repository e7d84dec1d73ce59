package library

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func testConfig(dir string) *Config {
	return &Config{
		DataDir:    dir,
		Backend:    BackendJSON,
		LoanPeriod: 168 * time.Hour,
		FinePerDay: 1500,
	}
}

func tempManager(t *testing.T) *LoanManager {
	t.Helper()
	cfg := testConfig(t.TempDir())
	store, err := NewFileStore(cfg.DataDir)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	mgr, err := NewLoanManager(store, cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	t.Cleanup(func() { mgr.Close() })
	return mgr
}

func TestLendDecrementsStockAndOpensLoan(t *testing.T) {
	mgr := tempManager(t)
	if _, err := mgr.RegisterMember("Alice", "doc1"); err != nil {
		t.Fatalf("register member: %v", err)
	}
	if _, err := mgr.RegisterMaterial("Dune", "Book", 2); err != nil {
		t.Fatalf("register material: %v", err)
	}

	if _, err := mgr.Lend("doc1", "Dune"); err != nil {
		t.Fatalf("lend: %v", err)
	}

	material, _ := mgr.MaterialByTitle("Dune")
	if material.Stock != 1 {
		t.Fatalf("want stock 1, got %d", material.Stock)
	}
	if got := len(mgr.ActiveLoans()); got != 1 {
		t.Fatalf("want 1 active loan, got %d", got)
	}
}

func TestReturnRestoresStockAndClosesLoan(t *testing.T) {
	mgr := tempManager(t)
	mgr.RegisterMember("Alice", "doc1")
	mgr.RegisterMaterial("Dune", "Book", 2)
	mgr.Lend("doc1", "Dune")

	fine, err := mgr.Return("doc1", "Dune")
	if err != nil {
		t.Fatalf("return: %v", err)
	}
	if fine != 0 {
		t.Fatalf("want no fine on a prompt return, got %d", fine)
	}

	material, _ := mgr.MaterialByTitle("Dune")
	if material.Stock != 2 {
		t.Fatalf("want stock restored to 2, got %d", material.Stock)
	}
	if got := len(mgr.ActiveLoans()); got != 0 {
		t.Fatalf("want no active loans, got %d", got)
	}

	// A second return of the same pair has no loan left to close.
	if _, err := mgr.Return("doc1", "Dune"); !IsCode(err, CodeNotFound) || AsError(err).Kind() != "loan" {
		t.Fatalf("want loan not-found, got %v", err)
	}
}

func TestDuplicateMemberRejected(t *testing.T) {
	mgr := tempManager(t)
	mgr.RegisterMember("Alice", "doc1")

	if _, err := mgr.RegisterMember("Alice Again", "doc1"); !IsCode(err, CodeDuplicateKey) {
		t.Fatalf("want duplicate-key error, got %v", err)
	}
	if got := len(mgr.Members()); got != 1 {
		t.Fatalf("member collection changed on failed registration: len %d", got)
	}
}

func TestDuplicateMaterialRejected(t *testing.T) {
	mgr := tempManager(t)
	mgr.RegisterMaterial("Dune", "Book", 1)

	if _, err := mgr.RegisterMaterial("Dune", "Magazine", 5); !IsCode(err, CodeDuplicateKey) {
		t.Fatalf("want duplicate-key error, got %v", err)
	}
	if got := len(mgr.Materials()); got != 1 {
		t.Fatalf("material collection changed on failed registration: len %d", got)
	}
}

func TestLendLookupMisses(t *testing.T) {
	mgr := tempManager(t)
	mgr.RegisterMember("Alice", "doc1")
	mgr.RegisterMaterial("Dune", "Book", 1)

	if _, err := mgr.Lend("doc2", "Dune"); !IsCode(err, CodeNotFound) || AsError(err).Kind() != "member" {
		t.Fatalf("want member not-found, got %v", err)
	}
	if _, err := mgr.Lend("doc1", "Neuromancer"); !IsCode(err, CodeNotFound) || AsError(err).Kind() != "material" {
		t.Fatalf("want material not-found, got %v", err)
	}
	if got := len(mgr.ActiveLoans()); got != 0 {
		t.Fatalf("failed lend must not open a loan, got %d", got)
	}
}

func TestLendOutOfStock(t *testing.T) {
	mgr := tempManager(t)
	mgr.RegisterMember("Alice", "doc1")
	mgr.RegisterMaterial("Dune", "Book", 0)

	if _, err := mgr.Lend("doc1", "Dune"); !IsCode(err, CodeOutOfStock) {
		t.Fatalf("want out-of-stock error, got %v", err)
	}

	material, _ := mgr.MaterialByTitle("Dune")
	if material.Stock != 0 {
		t.Fatalf("stock changed on failed lend: %d", material.Stock)
	}
	if got := len(mgr.ActiveLoans()); got != 0 {
		t.Fatalf("failed lend must not open a loan, got %d", got)
	}
}

func TestFineSchedule(t *testing.T) {
	mgr := tempManager(t)
	lentAt := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	loan := Loan{MemberID: "doc1", Title: "Dune", LentAt: lentAt}

	cases := []struct {
		name string
		now  time.Time
		want int64
	}{
		{"at lend time", lentAt, 0},
		{"within period", lentAt.Add(3 * 24 * time.Hour), 0},
		{"exactly due", lentAt.Add(7 * 24 * time.Hour), 0},
		{"one hour late", lentAt.Add(7*24*time.Hour + time.Hour), 0},
		{"23 hours late", lentAt.Add(7*24*time.Hour + 23*time.Hour), 0},
		{"one day late", lentAt.Add(8 * 24 * time.Hour), 1500},
		{"two days late", lentAt.Add(9 * 24 * time.Hour), 3000},
		{"two and a half days late", lentAt.Add(9*24*time.Hour + 12*time.Hour), 3000},
	}
	for _, tc := range cases {
		if got := mgr.Fine(loan, tc.now); got != tc.want {
			t.Fatalf("%s: want fine %d, got %d", tc.name, tc.want, got)
		}
	}
}

func TestReturnComputesFineAtReturnTime(t *testing.T) {
	mgr := tempManager(t)
	mgr.RegisterMember("Alice", "doc1")
	mgr.RegisterMaterial("Dune", "Book", 1)

	lentAt := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	mgr.now = func() time.Time { return lentAt }
	if _, err := mgr.Lend("doc1", "Dune"); err != nil {
		t.Fatalf("lend: %v", err)
	}

	mgr.now = func() time.Time { return lentAt.Add(9 * 24 * time.Hour) }
	fine, err := mgr.Return("doc1", "Dune")
	if err != nil {
		t.Fatalf("return: %v", err)
	}
	if fine != 3000 {
		t.Fatalf("want fine 3000, got %d", fine)
	}
}

func TestReturnClosesEarliestMatchingLoan(t *testing.T) {
	mgr := tempManager(t)
	mgr.RegisterMember("Alice", "doc1")
	mgr.RegisterMaterial("Dune", "Book", 2)

	first := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	second := first.Add(48 * time.Hour)

	mgr.now = func() time.Time { return first }
	mgr.Lend("doc1", "Dune")
	mgr.now = func() time.Time { return second }
	mgr.Lend("doc1", "Dune")

	if _, err := mgr.Return("doc1", "Dune"); err != nil {
		t.Fatalf("return: %v", err)
	}

	loans := mgr.ActiveLoans()
	if len(loans) != 1 {
		t.Fatalf("want 1 remaining loan, got %d", len(loans))
	}
	if !loans[0].LentAt.Equal(second) {
		t.Fatalf("earliest loan should close first; remaining loan lent at %v", loans[0].LentAt)
	}
}

func TestOverdueLoansReport(t *testing.T) {
	mgr := tempManager(t)
	mgr.RegisterMember("Alice", "doc1")
	mgr.RegisterMember("Bob", "doc2")
	mgr.RegisterMaterial("Dune", "Book", 2)
	mgr.RegisterMaterial("Wired", "Magazine", 1)

	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	mgr.now = func() time.Time { return start }
	mgr.Lend("doc1", "Dune")
	mgr.now = func() time.Time { return start.Add(24 * time.Hour) }
	mgr.Lend("doc2", "Wired")
	mgr.now = func() time.Time { return start.Add(8 * 24 * time.Hour) }
	mgr.Lend("doc2", "Dune")

	// 10 days after the first lend: loan 1 is 3 days past due, loan 2 is
	// 2 days past due, loan 3 is still within its period.
	mgr.now = func() time.Time { return start.Add(10 * 24 * time.Hour) }
	overdue := mgr.OverdueLoans()
	if len(overdue) != 2 {
		t.Fatalf("want 2 overdue loans, got %d", len(overdue))
	}
	if overdue[0].Loan.MemberID != "doc1" || overdue[0].Fine != 4500 {
		t.Fatalf("first overdue entry wrong: %+v", overdue[0])
	}
	if overdue[1].Loan.MemberID != "doc2" || overdue[1].Fine != 3000 {
		t.Fatalf("second overdue entry wrong: %+v", overdue[1])
	}
}

func TestRegistrationValidation(t *testing.T) {
	mgr := tempManager(t)

	if _, err := mgr.RegisterMember("Alice", ""); !IsCode(err, CodeValidation) {
		t.Fatalf("want validation error for empty id, got %v", err)
	}
	if _, err := mgr.RegisterMember("", "doc1"); !IsCode(err, CodeValidation) {
		t.Fatalf("want validation error for empty name, got %v", err)
	}
	if _, err := mgr.RegisterMaterial("Dune", "Book", -1); !IsCode(err, CodeValidation) {
		t.Fatalf("want validation error for negative stock, got %v", err)
	}
	if len(mgr.Members()) != 0 || len(mgr.Materials()) != 0 {
		t.Fatalf("failed registrations must not mutate collections")
	}
}

// TestReloadReproducesState covers the full persistence round trip: every
// mutation is flushed, so a fresh manager over the same directory sees the
// identical collections.
func TestReloadReproducesState(t *testing.T) {
	cfg := testConfig(t.TempDir())
	store, err := NewFileStore(cfg.DataDir)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	mgr, err := NewLoanManager(store, cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	lentAt := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	mgr.now = func() time.Time { return lentAt }

	mgr.RegisterMember("A", "doc1")
	mgr.RegisterMaterial("Book", "Libro", 2)
	if _, err := mgr.Lend("doc1", "Book"); err != nil {
		t.Fatalf("lend: %v", err)
	}
	mgr.Close()

	store2, err := NewFileStore(cfg.DataDir)
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	reloaded, err := NewLoanManager(store2, cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("reload manager: %v", err)
	}
	defer reloaded.Close()

	members := reloaded.Members()
	if len(members) != 1 || members[0] != (Member{ID: "doc1", Name: "A"}) {
		t.Fatalf("members not reproduced: %+v", members)
	}
	materials := reloaded.Materials()
	if len(materials) != 1 || materials[0] != (Material{Title: "Book", Category: "Libro", Stock: 1}) {
		t.Fatalf("materials not reproduced: %+v", materials)
	}
	loans := reloaded.ActiveLoans()
	if len(loans) != 1 || loans[0].MemberID != "doc1" || loans[0].Title != "Book" {
		t.Fatalf("loans not reproduced: %+v", loans)
	}
	if !loans[0].LentAt.Equal(lentAt) {
		t.Fatalf("loan timestamp not reproduced: %v", loans[0].LentAt)
	}
}
