// Package filtering provides declarative view filters over a process table.
// Filters never mutate the session's table: Run operates on a clone.
package filtering

import (
	"fmt"

	"github.com/staffkit/staff-matcher/internal/roster"
	"go.uber.org/zap"
)

// Filter represents a single filtering step applied to a process table.
type Filter interface {
	Name() string
	IsEnabled() bool
	Apply(t *roster.Table) (*roster.Table, Step, error)
}

// Step describes the result of executing a filtering step.
type Step struct {
	Initial int
	Dropped int
	Left    int
}

// Run executes the supplied filters sequentially over a copy of the table.
func Run(steps []Filter, t *roster.Table, logger *zap.Logger) (*roster.Table, error) {
	result := t.Clone()

	for _, step := range steps {
		if !step.IsEnabled() {
			if logger != nil {
				logger.Debug("filter disabled", zap.String("name", step.Name()))
			}
			continue
		}

		next, info, err := step.Apply(result)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", step.Name(), err)
		}

		if logger != nil {
			logger.Debug("filter step",
				zap.String("name", step.Name()),
				zap.Int("initial", info.Initial),
				zap.Int("dropped", info.Dropped),
				zap.Int("left", info.Left),
			)
		}

		result = next
	}

	return result, nil
}
