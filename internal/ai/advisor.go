package ai

import (
	"context"

	"github.com/staffkit/staff-matcher/internal/matching"
	"github.com/staffkit/staff-matcher/internal/roster"
)

// Placement describes the employee request an advisor comments on.
type Placement struct {
	EmployeeName  string
	Potential     roster.Potential
	Communication roster.Communication
}

// Recommendation is a generated note about a suggestion list. It is advisory
// only: assignment stays with the rule-based matcher.
type Recommendation struct {
	Note       string
	Confidence float64
	Raw        string
}

// Advisor annotates suggestion lists with a short placement note.
type Advisor interface {
	Advise(ctx context.Context, placement *Placement, suggestions []*matching.Suggestion) (*Recommendation, error)
}
