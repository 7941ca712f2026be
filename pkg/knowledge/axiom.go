// Package knowledge holds the axiom store: derived premises→conclusion
// statements with status and provenance tracking.
package knowledge

import "fmt"

// Status is the lifecycle state of an axiom.
type Status string

const (
	// StatusMaterial marks a freshly proposed, unverified axiom.
	StatusMaterial Status = "Material"
	// StatusFormal marks a confirmed axiom.
	StatusFormal Status = "Formal"
	// StatusStale marks a superseded or contradicted axiom. Stale axioms are
	// retained but excluded from prompts and default views.
	StatusStale Status = "Stale"
	// StatusRefined marks an axiom whose conclusion was updated; still active.
	StatusRefined Status = "Refined"
)

// Statuses lists every valid status.
var Statuses = []Status{StatusMaterial, StatusFormal, StatusStale, StatusRefined}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusMaterial, StatusFormal, StatusStale, StatusRefined:
		return true
	}
	return false
}

// Axiom is a unit of derived logical knowledge.
type Axiom struct {
	ID         string   `json:"id" validate:"required"`
	Status     Status   `json:"status" validate:"required,oneof=Material Formal Stale Refined"`
	Premises   []string `json:"premises"`
	Conclusion string   `json:"conclusion"`
	Rationale  string   `json:"rationale"`
	History    []string `json:"history"`
}

// Active reports whether the axiom takes part in reasoning.
func (a Axiom) Active() bool {
	return a.Status != StatusStale
}

// clone returns a deep copy so callers never share slices with the store.
func (a Axiom) clone() Axiom {
	out := a
	out.Premises = append([]string(nil), a.Premises...)
	out.History = append([]string(nil), a.History...)
	return out
}

// Proposal is a new axiom proposed by the model.
type Proposal struct {
	Premises   []string `json:"premises" validate:"required"`
	Conclusion string   `json:"conclusion" validate:"required"`
	Rationale  string   `json:"rationale"`
	Polarity   string   `json:"polarity"`
}

// Update is a model-proposed modification of an existing axiom.
type Update struct {
	AxiomID           string `json:"axiom_id" validate:"required"`
	NewStatus         Status `json:"new_status,omitempty" validate:"omitempty,oneof=Material Formal Stale Refined"`
	Rationale         string `json:"modification_rationale"`
	RefinedConclusion string `json:"refined_conclusion,omitempty"`
}

// formatID renders the sequential axiom identifier.
func formatID(n int) string {
	return fmt.Sprintf("A%d", n)
}
