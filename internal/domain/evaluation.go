package domain

// RuleValidationResult is the outcome shape a rule-evaluation engine produces
// for a single rule. The catalog defines the shape but does not execute rules.
type RuleValidationResult struct {
	RuleID          string
	Name            string
	Passed          bool
	Message         string
	RequiredActions []string
}

// EvaluationContext carries the input data handed to an evaluation engine and
// accumulates its per-rule results.
type EvaluationContext struct {
	Data              map[string]any
	AppliedRules      []string
	ValidationResults []RuleValidationResult
}
