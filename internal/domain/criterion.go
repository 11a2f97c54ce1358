// Package domain contains the pure domain models, state machine and error
// types of the tender evaluation engine. Nothing in this package performs I/O.
package domain

import "fmt"

// InputType identifies who supplies the score for an evaluation criterion.
type InputType string

const (
	// InputBidder criteria are self-assessed by the bidder at submission time.
	InputBidder InputType = "bidder"
	// InputEvaluator criteria are scored by an evaluator after submission.
	InputEvaluator InputType = "evaluator"
)

// Valid reports whether t is a known input type.
func (t InputType) Valid() bool { return t == InputBidder || t == InputEvaluator }

// EvaluationCriterion is a weighted rubric line item of a tender.
// Weight is a percentage; the weights of all criteria of a tender are expected
// to sum to 100, but scoring never relies on it.
type EvaluationCriterion struct {
	ID          string    `json:"id" bson:"id"`
	Name        string    `json:"name" bson:"name"`
	Description string    `json:"description,omitempty" bson:"description,omitempty"`
	Weight      float64   `json:"weight" bson:"weight"`
	InputType   InputType `json:"input_type" bson:"input_type"`
}

// SpecType is the value type a bidder must supply for a required specification.
type SpecType string

const (
	SpecNumber  SpecType = "number"
	SpecText    SpecType = "text"
	SpecBoolean SpecType = "boolean"
)

// RequiredSpecification describes a technical value every bid must state.
// It is used for bid completeness checks only and never affects scoring.
type RequiredSpecification struct {
	ID          string   `json:"id" bson:"id"`
	Name        string   `json:"name" bson:"name"`
	Description string   `json:"description,omitempty" bson:"description,omitempty"`
	Type        SpecType `json:"type" bson:"type"`
	Unit        string   `json:"unit,omitempty" bson:"unit,omitempty"`
	Required    bool     `json:"required" bson:"required"`
}

// PartitionCriteria splits criteria by input type, preserving order.
func PartitionCriteria(criteria []EvaluationCriterion) (bidder, evaluator []EvaluationCriterion) {
	for _, c := range criteria {
		switch c.InputType {
		case InputBidder:
			bidder = append(bidder, c)
		case InputEvaluator:
			evaluator = append(evaluator, c)
		}
	}
	return bidder, evaluator
}

// TotalWeight sums the weights of all criteria regardless of input type.
func TotalWeight(criteria []EvaluationCriterion) float64 {
	var total float64
	for _, c := range criteria {
		total += c.Weight
	}
	return total
}

// weightTolerance absorbs float noise from fractional weights such as 33.3.
const weightTolerance = 1e-6

// CheckWeights verifies a tender's rubric before publication: ids must be
// unique and non-empty, each weight must lie in [0,100], input types must be
// known, and the weights must add up to 100. A rubric whose only problem is
// the total returns an *InconsistentWeightError; structural problems return a
// *ValidationError.
func CheckWeights(tenderID string, criteria []EvaluationCriterion) error {
	verr := NewValidationError("evaluation_criteria")
	seen := make(map[string]struct{}, len(criteria))
	for i, c := range criteria {
		if c.ID == "" {
			verr.AddError(fmt.Sprintf("criterion %d has an empty id", i))
		} else if _, dup := seen[c.ID]; dup {
			verr.AddError(fmt.Sprintf("duplicate criterion id %q", c.ID))
		}
		seen[c.ID] = struct{}{}
		if c.Name == "" {
			verr.AddError(fmt.Sprintf("criterion %q has an empty name", c.ID))
		}
		if c.Weight < 0 || c.Weight > 100 {
			verr.AddError(fmt.Sprintf("criterion %q weight %.2f outside [0,100]", c.ID, c.Weight))
		}
		if !c.InputType.Valid() {
			verr.AddError(fmt.Sprintf("criterion %q has unknown input type %q", c.ID, c.InputType))
		}
	}
	if verr.HasErrors() {
		return verr
	}

	total := TotalWeight(criteria)
	if total < 100-weightTolerance || total > 100+weightTolerance {
		return NewInconsistentWeightError(tenderID, total)
	}
	return nil
}
