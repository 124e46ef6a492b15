package roster

import (
	"fmt"
)

// Process is a single row of the process table. Name is a display key and is
// not required to be unique.
type Process struct {
	Name          string        `json:"name" mapstructure:"Process_Name"`
	Potential     Potential     `json:"potential" mapstructure:"Potential"`
	Communication Communication `json:"communication" mapstructure:"Communication"`
	Vacancy       int           `json:"vacancy" mapstructure:"Vacancy"`
}

// Table is an ordered sequence of processes. Order is significant: the
// matcher breaks ties by input order.
type Table struct {
	Items []*Process
}

func (t *Table) Len() int {
	return len(t.Items)
}

func (t *Table) FindByName(name string) *Process {
	for _, p := range t.Items {
		if p.Name == name {
			return p
		}
	}
	return nil
}

// Names returns process names in table order.
func (t *Table) Names() []string {
	names := make([]string, 0, len(t.Items))
	for _, p := range t.Items {
		names = append(names, p.Name)
	}
	return names
}

// TotalVacancies sums open slots across the whole table.
func (t *Table) TotalVacancies() int {
	total := 0
	for _, p := range t.Items {
		total += p.Vacancy
	}
	return total
}

// Clone returns a deep copy of the table. Filters operate on copies so the
// session's table is never mutated by a view.
func (t *Table) Clone() *Table {
	items := make([]*Process, 0, len(t.Items))
	for _, p := range t.Items {
		cp := *p
		items = append(items, &cp)
	}
	return &Table{Items: items}
}

// DecrementVacancy takes one slot from the process at idx. It refuses to go
// below zero.
func (t *Table) DecrementVacancy(idx int) error {
	if idx < 0 || idx >= len(t.Items) {
		return fmt.Errorf("process index %d out of range", idx)
	}
	p := t.Items[idx]
	if p.Vacancy <= 0 {
		return fmt.Errorf("process %q has no vacancy left", p.Name)
	}
	p.Vacancy--
	return nil
}

// IncrementVacancyAt returns one slot to the process at idx. Used when an
// assigned employee is removed. Out-of-range indexes are ignored: the table
// may have been reloaded since the assignment.
func (t *Table) IncrementVacancyAt(idx int) {
	if idx >= 0 && idx < len(t.Items) {
		t.Items[idx].Vacancy++
	}
}

// ReportByPotential groups the table by potential category with vacancy
// totals per process. Shaped for a rendering collaborator, not rendered here.
func (t *Table) ReportByPotential() map[string][]map[string]string {
	report := make(map[string][]map[string]string)
	for _, p := range t.Items {
		key := string(p.Potential)
		report[key] = append(report[key], map[string]string{
			"name":          p.Name,
			"communication": string(p.Communication),
			"vacancy":       fmt.Sprintf("%d", p.Vacancy),
		})
	}
	return report
}
