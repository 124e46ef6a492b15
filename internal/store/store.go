// Package store persists the process table and employee assignments so a
// session survives restarts, mirroring the roster held in memory.
package store

import (
	"context"
	"errors"

	"github.com/staffkit/staff-matcher/internal/roster"
)

var (
	// ErrDuplicateEmail is returned when an employee email already exists.
	// Email comparison is case-insensitive.
	ErrDuplicateEmail = errors.New("email already exists")
	// ErrNotFound is returned for lookups of unknown employees or processes.
	ErrNotFound = errors.New("not found")
	// ErrNoVacancy is returned when an assignment targets a process whose
	// vacancy already reached zero.
	ErrNoVacancy = errors.New("no vacancy available")
)

// HistoryEntry aggregates assignments for a single calendar day.
type HistoryEntry struct {
	Date        string `json:"date"`
	Assignments int    `json:"assignments"`
	Matched     int    `json:"matched"`
	Unmatched   int    `json:"unmatched"`
}

// Store is the persistence interface for process tables and employees.
type Store interface {
	EnsureSchema(ctx context.Context) error

	// ReplaceProcesses swaps the stored table wholesale. Used on (re)load.
	ReplaceProcesses(ctx context.Context, t *roster.Table) error
	Processes(ctx context.Context) (*roster.Table, error)

	// AddEmployee records the employee. processIndex is the position of the
	// assigned process in stored table order; its vacancy is decremented in
	// the same transaction. A negative index records the employee without an
	// assignment. Indexed addressing keeps duplicate-named processes apart.
	AddEmployee(ctx context.Context, e *roster.Employee, processIndex int) error
	Employees(ctx context.Context) (*roster.Employees, error)
	FindEmployeeByEmail(ctx context.Context, email string) (*roster.Employee, error)

	// DeleteEmployee removes the employee and returns the vacancy to the
	// exact process row it was taken from. The process name and its position
	// in stored table order are returned so callers can update their
	// in-memory table; position is -1 when no vacancy was returned
	// (unassigned employee, or the row vanished in a reload).
	DeleteEmployee(ctx context.Context, email string) (string, int, error)

	History(ctx context.Context) ([]HistoryEntry, error)

	Close() error
}
