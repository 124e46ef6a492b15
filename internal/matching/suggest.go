package matching

import (
	"sort"

	"github.com/staffkit/staff-matcher/internal/roster"
)

// Relevance weights: a potential match outranks a communication match.
const (
	potentialWeight     = 2
	communicationWeight = 1
)

// Suggestion is a vacancy-holding process that partially matches the request.
type Suggestion struct {
	Process   *roster.Process `json:"process"`
	Relevance int             `json:"relevance"`
	Note      string          `json:"note,omitempty"`
}

// Suggestions returns processes with open vacancies matching the requested
// potential or communication, most relevant first, higher vacancy first
// within the same relevance.
func Suggestions(table *roster.Table, potential roster.Potential, communication roster.Communication) ([]*Suggestion, error) {
	validPotential, err := roster.ParsePotential(string(potential))
	if err != nil {
		return nil, err
	}

	validCommunication, err := roster.ParseCommunication(string(communication))
	if err != nil {
		return nil, err
	}

	var suggestions []*Suggestion
	for _, p := range table.Items {
		if p.Vacancy <= 0 {
			continue
		}

		relevance := 0
		if p.Potential == validPotential {
			relevance += potentialWeight
		}
		if p.Communication == validCommunication {
			relevance += communicationWeight
		}
		if relevance == 0 {
			continue
		}

		suggestions = append(suggestions, &Suggestion{Process: p, Relevance: relevance})
	}

	sort.SliceStable(suggestions, func(i, j int) bool {
		if suggestions[i].Relevance != suggestions[j].Relevance {
			return suggestions[i].Relevance > suggestions[j].Relevance
		}
		return suggestions[i].Process.Vacancy > suggestions[j].Process.Vacancy
	})

	return suggestions, nil
}
