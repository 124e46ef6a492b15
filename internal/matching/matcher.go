// Package matching implements the rule-based process selection for new
// employees. Matching is a pure query: callers own the vacancy decrement.
package matching

import (
	"github.com/staffkit/staff-matcher/internal/roster"
)

// Outcome describes which rule produced a match. Exposed for logging and
// metrics.
type Outcome string

const (
	OutcomeExact    Outcome = "exact"
	OutcomeFallback Outcome = "fallback"
	OutcomeNone     Outcome = "none"
)

// Result carries the selected table index together with the rule that
// selected it.
type Result struct {
	Index   int
	Outcome Outcome
}

// Match selects the best process for the requested pair.
//
// Rules, in priority order, first non-empty candidate set wins:
//  1. potential, communication and vacancy > 0 all match (exact);
//  2. potential matches and vacancy > 0, communication ignored (fallback);
//  3. no match.
//
// Ties break by table order. A found == false result is a normal outcome,
// distinct from any index and from errors. Invalid categories return an
// *roster.InvalidCategoryError and never a silent no-match.
func Match(table *roster.Table, potential roster.Potential, communication roster.Communication) (Result, bool, error) {
	validPotential, err := roster.ParsePotential(string(potential))
	if err != nil {
		return Result{Outcome: OutcomeNone}, false, err
	}

	validCommunication, err := roster.ParseCommunication(string(communication))
	if err != nil {
		return Result{Outcome: OutcomeNone}, false, err
	}

	for idx, p := range table.Items {
		if p.Vacancy > 0 && p.Potential == validPotential && p.Communication == validCommunication {
			return Result{Index: idx, Outcome: OutcomeExact}, true, nil
		}
	}

	for idx, p := range table.Items {
		if p.Vacancy > 0 && p.Potential == validPotential {
			return Result{Index: idx, Outcome: OutcomeFallback}, true, nil
		}
	}

	return Result{Outcome: OutcomeNone}, false, nil
}
