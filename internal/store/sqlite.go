package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/staffkit/staff-matcher/internal/roster"
)

// SQLiteStore implements Store using SQLite via database/sql.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at path. An empty path
// selects an in-memory database, which is enough for a pure-CLI session.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if path == "" {
		path = ":memory:"
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	// SQLite works best with a single connection. This also keeps the
	// in-memory database alive for the lifetime of the store.
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{db: db}
	if err := store.Ping(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite database: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) EnsureSchema(ctx context.Context) error {
	schemas := []string{
		`CREATE TABLE IF NOT EXISTS processes (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			potential TEXT NOT NULL,
			communication TEXT NOT NULL,
			vacancy INTEGER NOT NULL CHECK (vacancy >= 0)
		)`,
		`CREATE TABLE IF NOT EXISTS employees (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			email TEXT NOT NULL UNIQUE COLLATE NOCASE,
			potential TEXT NOT NULL,
			communication TEXT NOT NULL,
			process_id INTEGER,
			process_name TEXT,
			assigned_at TIMESTAMP NOT NULL
		)`,
	}

	for _, schema := range schemas {
		if _, err := s.db.ExecContext(ctx, schema); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}
	return nil
}

func (s *SQLiteStore) ReplaceProcesses(ctx context.Context, t *roster.Table) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM processes"); err != nil {
		return fmt.Errorf("clear processes: %w", err)
	}

	for _, p := range t.Items {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO processes (name, potential, communication, vacancy) VALUES (?, ?, ?, ?)",
			p.Name, string(p.Potential), string(p.Communication), p.Vacancy,
		)
		if err != nil {
			return fmt.Errorf("insert process %q: %w", p.Name, err)
		}
	}

	return tx.Commit()
}

func (s *SQLiteStore) Processes(ctx context.Context) (*roster.Table, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT name, potential, communication, vacancy FROM processes ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("query processes: %w", err)
	}
	defer rows.Close()

	table := &roster.Table{}
	for rows.Next() {
		var p roster.Process
		var potential, communication string
		if err := rows.Scan(&p.Name, &potential, &communication, &p.Vacancy); err != nil {
			return nil, fmt.Errorf("scan process: %w", err)
		}
		p.Potential = roster.Potential(potential)
		p.Communication = roster.Communication(communication)
		table.Items = append(table.Items, &p)
	}

	return table, rows.Err()
}

// AddEmployee records the employee. processIndex addresses the assigned
// process by its position in stored table order, not by name: names are not
// required to be unique and the matcher selects a specific row. A negative
// index records the employee without an assignment.
func (s *SQLiteStore) AddEmployee(ctx context.Context, e *roster.Employee, processIndex int) error {
	email := roster.NormalizeEmail(e.Email)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var count int
	if err := tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM employees WHERE email = ? COLLATE NOCASE", email).Scan(&count); err != nil {
		return fmt.Errorf("check email: %w", err)
	}
	if count > 0 {
		return ErrDuplicateEmail
	}

	var processID any
	if processIndex >= 0 {
		var id int64
		var vacancy int
		err := tx.QueryRowContext(ctx,
			"SELECT id, vacancy FROM processes ORDER BY id LIMIT 1 OFFSET ?",
			processIndex).Scan(&id, &vacancy)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("process at position %d: %w", processIndex, ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("check vacancy: %w", err)
		}
		if vacancy <= 0 {
			return fmt.Errorf("process %q: %w", e.AssignedProcess, ErrNoVacancy)
		}

		_, err = tx.ExecContext(ctx,
			"UPDATE processes SET vacancy = vacancy - 1 WHERE id = ?", id)
		if err != nil {
			return fmt.Errorf("decrement vacancy: %w", err)
		}
		processID = id
	}

	assignedAt := e.AssignedAt
	if assignedAt.IsZero() {
		assignedAt = time.Now().UTC()
	}

	var processName any
	if e.AssignedProcess != "" {
		processName = e.AssignedProcess
	}

	_, err = tx.ExecContext(ctx,
		"INSERT INTO employees (name, email, potential, communication, process_id, process_name, assigned_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
		e.Name, email, string(e.Potential), string(e.Communication), processID, processName, assignedAt.Format(time.RFC3339),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("insert employee: %w", err)
	}

	return tx.Commit()
}

func (s *SQLiteStore) Employees(ctx context.Context) (*roster.Employees, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT name, email, potential, communication, process_name, assigned_at FROM employees ORDER BY assigned_at DESC, id DESC")
	if err != nil {
		return nil, fmt.Errorf("query employees: %w", err)
	}
	defer rows.Close()

	employees := &roster.Employees{}
	for rows.Next() {
		e, err := scanEmployee(rows.Scan)
		if err != nil {
			return nil, err
		}
		employees.Items = append(employees.Items, e)
	}

	return employees, rows.Err()
}

func (s *SQLiteStore) FindEmployeeByEmail(ctx context.Context, email string) (*roster.Employee, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT name, email, potential, communication, process_name, assigned_at FROM employees WHERE email = ? COLLATE NOCASE",
		roster.NormalizeEmail(email))

	e, err := scanEmployee(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}

func (s *SQLiteStore) DeleteEmployee(ctx context.Context, email string) (string, int, error) {
	email = roster.NormalizeEmail(email)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", -1, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var processID sql.NullInt64
	var processName sql.NullString
	err = tx.QueryRowContext(ctx,
		"SELECT process_id, process_name FROM employees WHERE email = ? COLLATE NOCASE",
		email).Scan(&processID, &processName)
	if errors.Is(err, sql.ErrNoRows) {
		return "", -1, ErrNotFound
	}
	if err != nil {
		return "", -1, fmt.Errorf("find employee: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM employees WHERE email = ? COLLATE NOCASE", email); err != nil {
		return "", -1, fmt.Errorf("delete employee: %w", err)
	}

	// The vacancy goes back to the exact row it came from, by id so
	// duplicate-named processes stay untouched. The row may be gone after a
	// table reload: the employee is removed regardless and callers get
	// position -1, meaning no vacancy was returned.
	returned := ""
	index := -1
	if processID.Valid {
		res, err := tx.ExecContext(ctx,
			"UPDATE processes SET vacancy = vacancy + 1 WHERE id = ?", processID.Int64)
		if err != nil {
			return "", -1, fmt.Errorf("return vacancy: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil && n > 0 {
			returned = processName.String
			if err := tx.QueryRowContext(ctx,
				"SELECT COUNT(*) FROM processes WHERE id < ?", processID.Int64).Scan(&index); err != nil {
				return "", -1, fmt.Errorf("locate process: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return "", -1, err
	}
	return returned, index, nil
}

func (s *SQLiteStore) History(ctx context.Context) ([]HistoryEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT date(assigned_at) AS day,
			COUNT(*) AS assignments,
			SUM(CASE WHEN process_name IS NOT NULL THEN 1 ELSE 0 END) AS matched,
			SUM(CASE WHEN process_name IS NULL THEN 1 ELSE 0 END) AS unmatched
		FROM employees
		GROUP BY date(assigned_at)
		ORDER BY date(assigned_at) DESC`)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var history []HistoryEntry
	for rows.Next() {
		var entry HistoryEntry
		if err := rows.Scan(&entry.Date, &entry.Assignments, &entry.Matched, &entry.Unmatched); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		history = append(history, entry)
	}

	return history, rows.Err()
}

func scanEmployee(scan func(dest ...any) error) (*roster.Employee, error) {
	var e roster.Employee
	var potential, communication, assignedAt string
	var processName sql.NullString

	if err := scan(&e.Name, &e.Email, &potential, &communication, &processName, &assignedAt); err != nil {
		return nil, err
	}

	e.Potential = roster.Potential(potential)
	e.Communication = roster.Communication(communication)
	if processName.Valid {
		e.AssignedProcess = processName.String
	}
	if ts, err := time.Parse(time.RFC3339, assignedAt); err == nil {
		e.AssignedAt = ts
	}

	return &e, nil
}
