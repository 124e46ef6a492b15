package filtering

import (
	"github.com/staffkit/staff-matcher/internal/roster"
)

type potentialFilter struct {
	allowed []roster.Potential
}

// NewPotential creates a filter that keeps only processes whose potential is
// in the allowed set. An empty set keeps everything.
func NewPotential(allowed []roster.Potential) Filter {
	return &potentialFilter{allowed: allowed}
}

func (f *potentialFilter) Name() string { return "potential" }

func (f *potentialFilter) IsEnabled() bool { return len(f.allowed) > 0 }

func (f *potentialFilter) Apply(t *roster.Table) (*roster.Table, Step, error) {
	initial := t.Len()

	kept := make([]*roster.Process, 0, initial)
	for _, p := range t.Items {
		for _, allowed := range f.allowed {
			if p.Potential == allowed {
				kept = append(kept, p)
				break
			}
		}
	}

	next := &roster.Table{Items: kept}
	return next, Step{Initial: initial, Dropped: initial - next.Len(), Left: next.Len()}, nil
}

type communicationFilter struct {
	allowed []roster.Communication
}

// NewCommunication creates a filter that keeps only processes whose
// communication level is in the allowed set. An empty set keeps everything.
func NewCommunication(allowed []roster.Communication) Filter {
	return &communicationFilter{allowed: allowed}
}

func (f *communicationFilter) Name() string { return "communication" }

func (f *communicationFilter) IsEnabled() bool { return len(f.allowed) > 0 }

func (f *communicationFilter) Apply(t *roster.Table) (*roster.Table, Step, error) {
	initial := t.Len()

	kept := make([]*roster.Process, 0, initial)
	for _, p := range t.Items {
		for _, allowed := range f.allowed {
			if p.Communication == allowed {
				kept = append(kept, p)
				break
			}
		}
	}

	next := &roster.Table{Items: kept}
	return next, Step{Initial: initial, Dropped: initial - next.Len(), Left: next.Len()}, nil
}

type vacantOnlyFilter struct {
	enabled bool
}

// NewVacantOnly creates a filter that removes processes with no open slots.
func NewVacantOnly(enabled bool) Filter {
	return &vacantOnlyFilter{enabled: enabled}
}

func (f *vacantOnlyFilter) Name() string { return "vacant_only" }

func (f *vacantOnlyFilter) IsEnabled() bool { return f.enabled }

func (f *vacantOnlyFilter) Apply(t *roster.Table) (*roster.Table, Step, error) {
	initial := t.Len()

	kept := make([]*roster.Process, 0, initial)
	for _, p := range t.Items {
		if p.Vacancy > 0 {
			kept = append(kept, p)
		}
	}

	next := &roster.Table{Items: kept}
	return next, Step{Initial: initial, Dropped: initial - next.Len(), Left: next.Len()}, nil
}
