// Package session owns the live process table for one user and coordinates
// matching, persistence and export. It replaces the original global mutable
// state with an explicit object; the matcher itself stays a pure function.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/staffkit/staff-matcher/internal/matching"
	"github.com/staffkit/staff-matcher/internal/metrics"
	"github.com/staffkit/staff-matcher/internal/roster"
	"github.com/staffkit/staff-matcher/internal/store"
)

// ErrNoTable is returned when an operation requires a loaded process table.
var ErrNoTable = errors.New("no process table loaded")

// Session binds the in-memory table to the store. All operations are
// synchronous and single-user; there is no locking by design.
type Session struct {
	ctx    context.Context
	store  store.Store
	logger *zap.Logger
	table  *roster.Table
}

// AddResult reports the outcome of one add-employee action.
type AddResult struct {
	Employee *roster.Employee
	Matched  bool
	Outcome  matching.Outcome
	Process  *roster.Process
	// Recorded is false when no match was found and unassigned records were
	// not requested; nothing was mutated in that case.
	Recorded bool
}

func New(ctx context.Context, st store.Store, logger *zap.Logger) (*Session, error) {
	if err := st.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	return &Session{ctx: ctx, store: st, logger: logger}, nil
}

// Table returns the live process table, or nil before a load.
func (s *Session) Table() *roster.Table {
	return s.table
}

// Load reads a process CSV from disk and installs it as the session table.
func (s *Session) Load(path string) error {
	table, err := roster.LoadTable(path)
	if err != nil {
		return err
	}

	if err := s.InstallTable(table); err != nil {
		return err
	}

	s.logger.Info("loaded process table",
		zap.String("path", path),
		zap.Int("processes", table.Len()),
		zap.Int("vacancies", table.TotalVacancies()),
	)
	return nil
}

// InstallTable replaces the session table and mirrors it to the store.
func (s *Session) InstallTable(t *roster.Table) error {
	if err := s.store.ReplaceProcesses(s.ctx, t); err != nil {
		return fmt.Errorf("persist process table: %w", err)
	}
	s.table = t
	return nil
}

// Restore pulls the last persisted table from the store, if any. Used at
// session start so a previous upload survives a restart.
func (s *Session) Restore() (bool, error) {
	table, err := s.store.Processes(s.ctx)
	if err != nil {
		return false, err
	}
	if table.Len() == 0 {
		return false, nil
	}
	s.table = table
	return true, nil
}

// AddEmployee matches the request against the table, decrements the selected
// process's vacancy and appends the employee record. When no process matches
// and allowUnassigned is false, nothing is mutated and the result reports
// NoMatch. Invalid categories abort before any mutation.
func (s *Session) AddEmployee(name, email string, potential roster.Potential, communication roster.Communication, allowUnassigned bool) (*AddResult, error) {
	if s.table == nil {
		return nil, ErrNoTable
	}

	result, found, err := matching.Match(s.table, potential, communication)
	if err != nil {
		var invalid *roster.InvalidCategoryError
		if errors.As(err, &invalid) {
			metrics.RecordInvalidCategory()
		}
		return nil, err
	}

	metrics.RecordMatchOutcome(string(result.Outcome))

	employee := &roster.Employee{
		Name:          name,
		Email:         roster.NormalizeEmail(email),
		Potential:     potential,
		Communication: communication,
		AssignedAt:    time.Now().UTC(),
	}

	if !found {
		if !allowUnassigned {
			s.logger.Info("no matching process",
				zap.String("employee", name),
				zap.String("potential", string(potential)),
				zap.String("communication", string(communication)),
			)
			return &AddResult{Employee: employee, Matched: false, Outcome: result.Outcome}, nil
		}

		return s.recordUnassigned(employee)
	}

	process := s.table.Items[result.Index]
	employee.AssignedProcess = process.Name

	// The store addresses the process by its table position: names are not
	// required to be unique.
	if err := s.store.AddEmployee(s.ctx, employee, result.Index); err != nil {
		return nil, err
	}

	if err := s.table.DecrementVacancy(result.Index); err != nil {
		// The store already committed; this would mean the table and store
		// diverged mid-session.
		return nil, fmt.Errorf("decrement vacancy: %w", err)
	}

	metrics.RecordEmployeeAdded()
	s.logger.Info("assigned employee to process",
		zap.String("employee", name),
		zap.String("process", process.Name),
		zap.String("outcome", string(result.Outcome)),
		zap.Int("vacancy_left", process.Vacancy),
	)

	return &AddResult{
		Employee: employee,
		Matched:  true,
		Outcome:  result.Outcome,
		Process:  process,
		Recorded: true,
	}, nil
}

// AddUnassigned records an employee without consulting the matcher. The
// interactive flow uses it after a no-match result was already reported, so
// the outcome is not counted a second time.
func (s *Session) AddUnassigned(name, email string, potential roster.Potential, communication roster.Communication) (*AddResult, error) {
	if s.table == nil {
		return nil, ErrNoTable
	}

	validPotential, err := roster.ParsePotential(string(potential))
	if err != nil {
		metrics.RecordInvalidCategory()
		return nil, err
	}
	validCommunication, err := roster.ParseCommunication(string(communication))
	if err != nil {
		metrics.RecordInvalidCategory()
		return nil, err
	}

	employee := &roster.Employee{
		Name:          name,
		Email:         roster.NormalizeEmail(email),
		Potential:     validPotential,
		Communication: validCommunication,
		AssignedAt:    time.Now().UTC(),
	}

	return s.recordUnassigned(employee)
}

func (s *Session) recordUnassigned(employee *roster.Employee) (*AddResult, error) {
	if err := s.store.AddEmployee(s.ctx, employee, -1); err != nil {
		return nil, err
	}

	metrics.RecordEmployeeAdded()
	s.logger.Info("added employee without assignment", zap.String("employee", employee.Name))
	return &AddResult{Employee: employee, Matched: false, Outcome: matching.OutcomeNone, Recorded: true}, nil
}

// Suggestions lists partially matching vacancy-holding processes for the
// requested pair, most relevant first.
func (s *Session) Suggestions(potential roster.Potential, communication roster.Communication) ([]*matching.Suggestion, error) {
	if s.table == nil {
		return nil, ErrNoTable
	}
	return matching.Suggestions(s.table, potential, communication)
}

func (s *Session) Employees() (*roster.Employees, error) {
	return s.store.Employees(s.ctx)
}

func (s *Session) FindEmployee(email string) (*roster.Employee, error) {
	return s.store.FindEmployeeByEmail(s.ctx, email)
}

// RemoveEmployee deletes the employee and returns the vacancy to its process
// in both the store and the in-memory table. The process is addressed by its
// table position so duplicate-named rows stay independent.
func (s *Session) RemoveEmployee(email string) error {
	processName, processIndex, err := s.store.DeleteEmployee(s.ctx, email)
	if err != nil {
		return err
	}

	if processIndex >= 0 && s.table != nil {
		s.table.IncrementVacancyAt(processIndex)
	}

	s.logger.Info("removed employee",
		zap.String("email", roster.NormalizeEmail(email)),
		zap.String("returned_process", processName),
	)
	return nil
}

func (s *Session) History() ([]store.HistoryEntry, error) {
	return s.store.History(s.ctx)
}

// Export writes the current table, with any updated vacancies, in the same
// four-column shape the loader accepts.
func (s *Session) Export(path string) error {
	if s.table == nil {
		return ErrNoTable
	}

	if err := roster.SaveTable(path, s.table); err != nil {
		return err
	}

	s.logger.Info("exported process table", zap.String("path", path))
	return nil
}
