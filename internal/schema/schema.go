// Package schema validates and normalizes rule fields against the configured
// enumeration sets before they reach storage.
package schema

import (
	"errors"
	"fmt"
	"strings"

	"github.com/cjamtp/rulegraph/internal/config"
	"github.com/cjamtp/rulegraph/internal/domain"
)

// ErrRequiredField indicates a mandatory field was missing on creation.
var ErrRequiredField = errors.New("required field missing")

// InvalidEnumError reports a value outside a configured enumeration set.
type InvalidEnumError struct {
	Field   string
	Value   string
	Allowed []string
}

func (e *InvalidEnumError) Error() string {
	return fmt.Sprintf("invalid %s %q: must be one of [%s]",
		e.Field, e.Value, strings.Join(e.Allowed, ", "))
}

// Normalize matches value against the allowed set case-insensitively and
// returns the canonical spelling declared by the set.
func Normalize(field, value string, allowed []string) (string, error) {
	for _, candidate := range allowed {
		if strings.EqualFold(candidate, value) {
			return candidate, nil
		}
	}
	return "", &InvalidEnumError{Field: field, Value: value, Allowed: allowed}
}

// Validator applies the configured enumeration sets to rule records.
type Validator struct {
	categories       []string
	obligationLevels []string
}

// NewValidator builds a Validator from schema configuration.
func NewValidator(cfg config.SchemaConfig) *Validator {
	return &Validator{
		categories:       cfg.RuleCategories,
		obligationLevels: cfg.ObligationLevels,
	}
}

// NormalizeCategory validates a category value and returns its canonical form.
func (v *Validator) NormalizeCategory(value string) (string, error) {
	return Normalize("category", value, v.categories)
}

// NormalizeObligationLevel validates an obligation level and returns its
// canonical form.
func (v *Validator) NormalizeObligationLevel(value string) (string, error) {
	return Normalize("obligation_level", value, v.obligationLevels)
}

// ValidateNewRule checks required fields and normalizes enumerated values in
// place. Presence checks run before any enumeration check.
func (v *Validator) ValidateNewRule(rule *domain.Rule) error {
	for field, value := range map[string]string{
		"name":             rule.Name,
		"description":      rule.Description,
		"category":         rule.Category,
		"obligation_level": rule.ObligationLevel,
	} {
		if strings.TrimSpace(value) == "" {
			return fmt.Errorf("%w: %s", ErrRequiredField, field)
		}
	}

	category, err := v.NormalizeCategory(rule.Category)
	if err != nil {
		return err
	}
	rule.Category = category

	level, err := v.NormalizeObligationLevel(rule.ObligationLevel)
	if err != nil {
		return err
	}
	rule.ObligationLevel = level

	return nil
}

// ValidateUpdate normalizes enumerated values on a partial record. Absent
// fields are not touched and impose no constraint.
func (v *Validator) ValidateUpdate(update *domain.RuleUpdate) error {
	if update.Category != nil {
		category, err := v.NormalizeCategory(*update.Category)
		if err != nil {
			return err
		}
		*update.Category = category
	}
	if update.ObligationLevel != nil {
		level, err := v.NormalizeObligationLevel(*update.ObligationLevel)
		if err != nil {
			return err
		}
		*update.ObligationLevel = level
	}
	return nil
}

// NormalizeFilter validates the enumerated fields of a filter in place so an
// exact-match predicate compares against the canonical casing.
func (v *Validator) NormalizeFilter(filter *domain.RuleFilter) error {
	if filter.Category != "" {
		category, err := v.NormalizeCategory(filter.Category)
		if err != nil {
			return err
		}
		filter.Category = category
	}
	if filter.ObligationLevel != "" {
		level, err := v.NormalizeObligationLevel(filter.ObligationLevel)
		if err != nil {
			return err
		}
		filter.ObligationLevel = level
	}
	return nil
}
