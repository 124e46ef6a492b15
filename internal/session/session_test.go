package session

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/staffkit/staff-matcher/internal/matching"
	"github.com/staffkit/staff-matcher/internal/roster"
	"github.com/staffkit/staff-matcher/internal/store"
)

func newTestSession(t *testing.T) *Session {
	t.Helper()

	st, err := store.NewSQLiteStore("")
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	sess, err := New(context.Background(), st, zap.NewNop())
	if err != nil {
		t.Fatalf("creating session: %v", err)
	}
	return sess
}

func installSampleTable(t *testing.T, sess *Session) {
	t.Helper()

	table := &roster.Table{Items: []*roster.Process{
		{Name: "Sales Support", Potential: roster.PotentialSales, Communication: roster.CommunicationGood, Vacancy: 5},
		{Name: "Customer Service", Potential: roster.PotentialService, Communication: roster.CommunicationVeryGood, Vacancy: 3},
	}}
	if err := sess.InstallTable(table); err != nil {
		t.Fatalf("installing table: %v", err)
	}
}

func TestAddEmployeeExactMatch(t *testing.T) {
	sess := newTestSession(t)
	installSampleTable(t, sess)

	result, err := sess.AddEmployee("Alice", "alice@example.com", roster.PotentialSales, roster.CommunicationGood, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !result.Matched || result.Outcome != matching.OutcomeExact {
		t.Fatalf("expected exact match, got %+v", result)
	}
	if result.Process.Name != "Sales Support" {
		t.Fatalf("expected Sales Support, got %q", result.Process.Name)
	}
	if sess.Table().Items[0].Vacancy != 4 {
		t.Fatalf("expected vacancy 4, got %d", sess.Table().Items[0].Vacancy)
	}
	if sess.Table().Items[1].Vacancy != 3 {
		t.Fatalf("other process vacancy changed")
	}
}

func TestAddEmployeeFallbackMatch(t *testing.T) {
	sess := newTestSession(t)
	installSampleTable(t, sess)

	result, err := sess.AddEmployee("Bob", "bob@example.com", roster.PotentialSales, roster.CommunicationExcellent, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !result.Matched || result.Outcome != matching.OutcomeFallback {
		t.Fatalf("expected fallback match, got %+v", result)
	}
	if result.Process.Name != "Sales Support" {
		t.Fatalf("expected Sales Support, got %q", result.Process.Name)
	}
}

func TestAddEmployeeExhaustsVacancy(t *testing.T) {
	sess := newTestSession(t)

	table := &roster.Table{Items: []*roster.Process{
		{Name: "Helpdesk", Potential: roster.PotentialSupport, Communication: roster.CommunicationGood, Vacancy: 1},
	}}
	if err := sess.InstallTable(table); err != nil {
		t.Fatalf("installing table: %v", err)
	}

	first, err := sess.AddEmployee("A", "a@example.com", roster.PotentialSupport, roster.CommunicationGood, false)
	if err != nil || !first.Matched {
		t.Fatalf("expected first add to match, got %+v err=%v", first, err)
	}

	second, err := sess.AddEmployee("B", "b@example.com", roster.PotentialSupport, roster.CommunicationGood, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if second.Matched {
		t.Fatalf("expected no match after vacancy exhausted")
	}
	if second.Recorded {
		t.Fatalf("no-match without allowUnassigned must not record anything")
	}

	employees, err := sess.Employees()
	if err != nil {
		t.Fatalf("listing employees: %v", err)
	}
	if employees.Len() != 1 {
		t.Fatalf("expected 1 recorded employee, got %d", employees.Len())
	}
}

func TestAddEmployeeInvalidCategoryMutatesNothing(t *testing.T) {
	sess := newTestSession(t)
	installSampleTable(t, sess)

	_, err := sess.AddEmployee("Eve", "eve@example.com", "Marketing", roster.CommunicationGood, false)
	var invalid *roster.InvalidCategoryError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidCategoryError, got %v", err)
	}

	if sess.Table().Items[0].Vacancy != 5 {
		t.Fatalf("vacancy changed on invalid input")
	}
	employees, _ := sess.Employees()
	if employees.Len() != 0 {
		t.Fatalf("employee recorded on invalid input")
	}
}

func TestAddEmployeeUnassigned(t *testing.T) {
	sess := newTestSession(t)

	if err := sess.InstallTable(&roster.Table{}); err != nil {
		t.Fatalf("installing table: %v", err)
	}

	result, err := sess.AddEmployee("Carol", "carol@example.com", roster.PotentialConsultation, roster.CommunicationExcellent, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Matched || !result.Recorded {
		t.Fatalf("expected recorded unassigned employee, got %+v", result)
	}

	found, err := sess.FindEmployee("carol@example.com")
	if err != nil {
		t.Fatalf("finding employee: %v", err)
	}
	if found.Assigned() {
		t.Fatalf("expected no assignment, got %q", found.AssignedProcess)
	}
}

func TestAddEmployeeDuplicateProcessNames(t *testing.T) {
	sess := newTestSession(t)

	// Two processes share a name; the matcher selects by position and the
	// store must mutate that exact row only.
	table := &roster.Table{Items: []*roster.Process{
		{Name: "X", Potential: roster.PotentialSales, Communication: roster.CommunicationGood, Vacancy: 0},
		{Name: "X", Potential: roster.PotentialSales, Communication: roster.CommunicationGood, Vacancy: 5},
	}}
	if err := sess.InstallTable(table); err != nil {
		t.Fatalf("installing table: %v", err)
	}

	result, err := sess.AddEmployee("Alice", "alice@example.com", roster.PotentialSales, roster.CommunicationGood, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Matched {
		t.Fatalf("expected a match, the second row has open slots")
	}

	if sess.Table().Items[0].Vacancy != 0 || sess.Table().Items[1].Vacancy != 4 {
		t.Fatalf("expected vacancies [0 4], got [%d %d]",
			sess.Table().Items[0].Vacancy, sess.Table().Items[1].Vacancy)
	}

	// The store must agree row by row after a restart.
	sess.table = nil
	if _, err := sess.Restore(); err != nil {
		t.Fatalf("restoring: %v", err)
	}
	if sess.Table().Items[0].Vacancy != 0 || sess.Table().Items[1].Vacancy != 4 {
		t.Fatalf("store diverged from table: restored vacancies [%d %d]",
			sess.Table().Items[0].Vacancy, sess.Table().Items[1].Vacancy)
	}

	// Removal returns the slot to the same row.
	if err := sess.RemoveEmployee("alice@example.com"); err != nil {
		t.Fatalf("removing employee: %v", err)
	}
	if sess.Table().Items[0].Vacancy != 0 || sess.Table().Items[1].Vacancy != 5 {
		t.Fatalf("expected vacancies [0 5], got [%d %d]",
			sess.Table().Items[0].Vacancy, sess.Table().Items[1].Vacancy)
	}
}

func TestAddUnassignedSkipsMatcher(t *testing.T) {
	sess := newTestSession(t)
	installSampleTable(t, sess)

	// Even with an open exact match, the record stays unassigned and no
	// vacancy moves.
	result, err := sess.AddUnassigned("Dana", "dana@example.com", roster.PotentialSales, roster.CommunicationGood)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Matched || !result.Recorded {
		t.Fatalf("expected recorded unassigned employee, got %+v", result)
	}

	if sess.Table().Items[0].Vacancy != 5 {
		t.Fatalf("vacancy changed on unassigned add: %d", sess.Table().Items[0].Vacancy)
	}

	found, err := sess.FindEmployee("dana@example.com")
	if err != nil {
		t.Fatalf("finding employee: %v", err)
	}
	if found.Assigned() {
		t.Fatalf("expected no assignment, got %q", found.AssignedProcess)
	}

	_, err = sess.AddUnassigned("Eve", "eve@example.com", "Marketing", roster.CommunicationGood)
	var invalid *roster.InvalidCategoryError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidCategoryError, got %v", err)
	}
}

func TestRemoveEmployeeReturnsVacancy(t *testing.T) {
	sess := newTestSession(t)
	installSampleTable(t, sess)

	if _, err := sess.AddEmployee("Alice", "alice@example.com", roster.PotentialSales, roster.CommunicationGood, false); err != nil {
		t.Fatalf("adding employee: %v", err)
	}
	if sess.Table().Items[0].Vacancy != 4 {
		t.Fatalf("expected vacancy 4 after add")
	}

	if err := sess.RemoveEmployee("ALICE@example.com"); err != nil {
		t.Fatalf("removing employee: %v", err)
	}
	if sess.Table().Items[0].Vacancy != 5 {
		t.Fatalf("expected vacancy back to 5, got %d", sess.Table().Items[0].Vacancy)
	}

	if err := sess.RemoveEmployee("alice@example.com"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestExportAndReload(t *testing.T) {
	sess := newTestSession(t)
	installSampleTable(t, sess)

	if _, err := sess.AddEmployee("Alice", "alice@example.com", roster.PotentialSales, roster.CommunicationGood, false); err != nil {
		t.Fatalf("adding employee: %v", err)
	}

	path := filepath.Join(t.TempDir(), "export.csv")
	if err := sess.Export(path); err != nil {
		t.Fatalf("exporting: %v", err)
	}

	table, err := roster.LoadTable(path)
	if err != nil {
		t.Fatalf("re-importing export: %v", err)
	}
	if table.FindByName("Sales Support").Vacancy != 4 {
		t.Fatalf("export missing updated vacancy: %d", table.FindByName("Sales Support").Vacancy)
	}
}

func TestRestore(t *testing.T) {
	sess := newTestSession(t)

	restored, err := sess.Restore()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if restored {
		t.Fatalf("expected nothing to restore from an empty store")
	}

	installSampleTable(t, sess)

	// Drop the in-memory reference and restore from the store.
	sess.table = nil
	restored, err = sess.Restore()
	if err != nil {
		t.Fatalf("restoring: %v", err)
	}
	if !restored || sess.Table().Len() != 2 {
		t.Fatalf("expected restored table with 2 rows")
	}
}

func TestOperationsRequireTable(t *testing.T) {
	sess := newTestSession(t)

	if _, err := sess.AddEmployee("A", "a@example.com", roster.PotentialSales, roster.CommunicationGood, false); !errors.Is(err, ErrNoTable) {
		t.Fatalf("expected ErrNoTable, got %v", err)
	}
	if _, err := sess.Suggestions(roster.PotentialSales, roster.CommunicationGood); !errors.Is(err, ErrNoTable) {
		t.Fatalf("expected ErrNoTable, got %v", err)
	}
	if err := sess.Export("x.csv"); !errors.Is(err, ErrNoTable) {
		t.Fatalf("expected ErrNoTable, got %v", err)
	}
}
