package roster

import (
	"strings"
	"time"
)

// Employee is an append-only assignment record. Email is the unique,
// case-insensitive identity.
type Employee struct {
	Name            string        `json:"name"`
	Email           string        `json:"email"`
	Potential       Potential     `json:"potential"`
	Communication   Communication `json:"communication"`
	AssignedProcess string        `json:"assigned_process,omitempty"`
	AssignedAt      time.Time     `json:"assigned_at"`
}

// Assigned reports whether the employee got a process.
func (e *Employee) Assigned() bool {
	return e.AssignedProcess != ""
}

// NormalizeEmail trims and lowercases an email for identity comparisons.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

type Employees struct {
	Items []*Employee
}

func (e *Employees) Len() int {
	return len(e.Items)
}

func (e *Employees) FindByEmail(email string) *Employee {
	email = NormalizeEmail(email)
	for _, emp := range e.Items {
		if NormalizeEmail(emp.Email) == email {
			return emp
		}
	}
	return nil
}
