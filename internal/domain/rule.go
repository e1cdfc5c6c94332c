package domain

import "time"

// Rule is a catalog entry describing a single business rule. List fields keep
// the order supplied by the caller.
type Rule struct {
	RuleID          string
	Name            string
	Description     string
	Category        string
	ObligationLevel string
	DataElements    []string
	Conditions      []string
	Actions         []string
	Exceptions      []string
	Thresholds      []string
	ValidationLogic string
	SourceReference string
	EffectiveDate   *time.Time
	RelatedRules    []string
	CreatedAt       *time.Time
	UpdatedAt       *time.Time
}

// RuleUpdate is a partial rule record. Nil fields are left untouched in
// storage; for list fields an empty non-nil slice clears the list while nil
// means "no change".
type RuleUpdate struct {
	Name            *string
	Description     *string
	Category        *string
	ObligationLevel *string
	DataElements    []string
	Conditions      []string
	Actions         []string
	Exceptions      []string
	Thresholds      []string
	ValidationLogic *string
	SourceReference *string
	EffectiveDate   *time.Time
	RelatedRules    []string
}

// RuleFilter narrows a rule search. Every field is optional; a zero value
// imposes no constraint, and populated fields are ANDed together.
type RuleFilter struct {
	RuleID            string
	Name              string
	Category          string
	ObligationLevel   string
	DataElement       string
	EffectiveDateFrom *time.Time
	EffectiveDateTo   *time.Time
	SearchText        string
	RelatedToRuleID   string
}

// IsEmpty reports whether the filter carries no constraint at all.
func (f RuleFilter) IsEmpty() bool {
	return f.RuleID == "" &&
		f.Name == "" &&
		f.Category == "" &&
		f.ObligationLevel == "" &&
		f.DataElement == "" &&
		f.EffectiveDateFrom == nil &&
		f.EffectiveDateTo == nil &&
		f.SearchText == "" &&
		f.RelatedToRuleID == ""
}
