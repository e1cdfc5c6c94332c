package repository

import (
	"fmt"
	"time"

	"github.com/cjamtp/rulegraph/internal/domain"
	"github.com/cjamtp/rulegraph/internal/graph"
)

func mapRule(record graph.Record) domain.Rule {
	return domain.Rule{
		RuleID:          toString(record["rule_id"]),
		Name:            toString(record["name"]),
		Description:     toString(record["description"]),
		Category:        toString(record["category"]),
		ObligationLevel: toString(record["obligation_level"]),
		DataElements:    toStringSlice(record["data_elements"]),
		Conditions:      toStringSlice(record["conditions"]),
		Actions:         toStringSlice(record["actions"]),
		Exceptions:      toStringSlice(record["exceptions"]),
		Thresholds:      toStringSlice(record["thresholds"]),
		ValidationLogic: toString(record["validation_logic"]),
		SourceReference: toString(record["source_reference"]),
		EffectiveDate:   toDatePtr(record["effective_date"]),
		RelatedRules:    toStringSlice(record["related_rules"]),
		CreatedAt:       toDatePtr(record["created_at"]),
		UpdatedAt:       toDatePtr(record["updated_at"]),
	}
}

func mapElement(record graph.Record) domain.DataElement {
	return domain.DataElement{
		ElementID:   toString(record["element_id"]),
		Name:        toString(record["name"]),
		Description: toString(record["description"]),
		DataType:    toString(record["data_type"]),
		Domain:      toString(record["domain"]),
	}
}

func toString(val any) string {
	switch v := val.(type) {
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	case []byte:
		return string(v)
	default:
		return ""
	}
}

func toStringSlice(val any) []string {
	switch v := val.(type) {
	case []string:
		return v
	case []any:
		values := make([]string, 0, len(v))
		for _, item := range v {
			if s := toString(item); s != "" {
				values = append(values, s)
			}
		}
		return values
	default:
		return nil
	}
}

func toDatePtr(val any) *time.Time {
	switch v := val.(type) {
	case time.Time:
		return &v
	case string:
		if v == "" {
			return nil
		}
		if parsed, err := time.Parse(dateLayout, v); err == nil {
			return &parsed
		}
		if parsed, err := time.Parse(time.RFC3339, v); err == nil {
			return &parsed
		}
	}
	return nil
}
