// Package metrics exposes Prometheus counters for matching activity.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	matchOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "staff_matcher_match_outcomes_total",
		Help: "Match results by outcome (exact, fallback, none).",
	}, []string{"outcome"})

	invalidCategories = promauto.NewCounter(prometheus.CounterOpts{
		Name: "staff_matcher_invalid_category_total",
		Help: "Add-employee requests rejected for an invalid category.",
	})

	employeesAdded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "staff_matcher_employees_added_total",
		Help: "Employee records appended, assigned or not.",
	})
)

func RecordMatchOutcome(outcome string) {
	matchOutcomes.WithLabelValues(outcome).Inc()
}

func RecordInvalidCategory() {
	invalidCategories.Inc()
}

func RecordEmployeeAdded() {
	employeesAdded.Inc()
}
