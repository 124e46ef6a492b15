package roster

import (
	"fmt"
	"strings"
)

// Potential is the categorical skill dimension of a process.
type Potential string

// Communication is the required communication proficiency, ordered from
// Good to Excellent.
type Communication string

const (
	PotentialSales        Potential = "Sales"
	PotentialConsultation Potential = "Consultation"
	PotentialService      Potential = "Service"
	PotentialSupport      Potential = "Support"

	CommunicationGood      Communication = "Good"
	CommunicationVeryGood  Communication = "Very Good"
	CommunicationExcellent Communication = "Excellent"
)

// Potentials lists every valid potential category in display order.
func Potentials() []Potential {
	return []Potential{PotentialSales, PotentialConsultation, PotentialService, PotentialSupport}
}

// Communications lists every valid communication level from lowest to highest.
func Communications() []Communication {
	return []Communication{CommunicationGood, CommunicationVeryGood, CommunicationExcellent}
}

// InvalidCategoryError reports a value outside one of the closed category sets.
// It is a hard error: callers must abort the operation without mutating state.
type InvalidCategoryError struct {
	Field string
	Value string
	Valid []string
}

func (e *InvalidCategoryError) Error() string {
	return fmt.Sprintf("invalid %s %q: valid values are %s", e.Field, e.Value, strings.Join(e.Valid, ", "))
}

// ParsePotential converts free text into a Potential. The match is
// case-sensitive after trimming surrounding whitespace.
func ParsePotential(s string) (Potential, error) {
	trimmed := strings.TrimSpace(s)
	for _, p := range Potentials() {
		if trimmed == string(p) {
			return p, nil
		}
	}

	return "", &InvalidCategoryError{
		Field: "potential",
		Value: trimmed,
		Valid: potentialStrings(),
	}
}

// ParseCommunication converts free text into a Communication.
func ParseCommunication(s string) (Communication, error) {
	trimmed := strings.TrimSpace(s)
	for _, c := range Communications() {
		if trimmed == string(c) {
			return c, nil
		}
	}

	return "", &InvalidCategoryError{
		Field: "communication",
		Value: trimmed,
		Valid: communicationStrings(),
	}
}

func potentialStrings() []string {
	values := make([]string, 0, len(Potentials()))
	for _, p := range Potentials() {
		values = append(values, string(p))
	}
	return values
}

func communicationStrings() []string {
	values := make([]string, 0, len(Communications()))
	for _, c := range Communications() {
		values = append(values, string(c))
	}
	return values
}
