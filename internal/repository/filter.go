package repository

import (
	"strings"
	"time"

	"github.com/cjamtp/rulegraph/internal/domain"
)

// buildListQuery composes a single parameterized query from the filter. Each
// populated field contributes exactly one predicate, ANDed with the others;
// an empty filter carries no WHERE clause and matches the whole catalog.
func buildListQuery(filter domain.RuleFilter) (string, map[string]any) {
	clauses, params := filterClauses(filter)

	var b strings.Builder
	b.WriteString("MATCH (r:Rule)\n")
	if len(clauses) > 0 {
		b.WriteString("WHERE ")
		b.WriteString(strings.Join(clauses, "\n  AND "))
		b.WriteString("\n")
	}
	b.WriteString(strings.TrimPrefix(ruleReturnColumns, "\n"))
	b.WriteString("\nORDER BY r.rule_id\n")
	return b.String(), params
}

func filterClauses(filter domain.RuleFilter) ([]string, map[string]any) {
	var clauses []string
	params := map[string]any{}

	if filter.RuleID != "" {
		clauses = append(clauses, "r.rule_id = $ruleId")
		params["ruleId"] = filter.RuleID
	}
	if filter.Name != "" {
		clauses = append(clauses, "r.name = $name")
		params["name"] = filter.Name
	}
	if filter.Category != "" {
		clauses = append(clauses, "r.category = $category")
		params["category"] = filter.Category
	}
	if filter.ObligationLevel != "" {
		clauses = append(clauses, "r.obligation_level = $obligationLevel")
		params["obligationLevel"] = filter.ObligationLevel
	}
	if filter.DataElement != "" {
		clauses = append(clauses,
			"EXISTS { MATCH (r)-[:APPLIES_TO]->(:DataElement {element_id: $dataElement}) }")
		params["dataElement"] = filter.DataElement
	}
	if filter.EffectiveDateFrom != nil {
		clauses = append(clauses, "r.effective_date >= $effectiveFrom")
		params["effectiveFrom"] = formatDatePtr(filter.EffectiveDateFrom)
	}
	if filter.EffectiveDateTo != nil {
		clauses = append(clauses, "r.effective_date <= $effectiveTo")
		params["effectiveTo"] = formatDatePtr(filter.EffectiveDateTo)
	}
	if filter.SearchText != "" {
		clauses = append(clauses,
			"(toLower(r.name) CONTAINS $searchText OR toLower(r.description) CONTAINS $searchText)")
		params["searchText"] = strings.ToLower(strings.TrimSpace(filter.SearchText))
	}
	if filter.RelatedToRuleID != "" {
		// RELATED_TO is not inherently directional: match either endpoint.
		clauses = append(clauses,
			"EXISTS { MATCH (r)-[:RELATED_TO]-(:Rule {rule_id: $relatedRuleId}) }")
		params["relatedRuleId"] = filter.RelatedToRuleID
	}

	return clauses, params
}

// buildUpdateQuery composes the partial-update statement. Present scalar and
// list fields land in a single SET via $props; category, data element and
// related-rule edges are rebuilt only when the corresponding field is
// present.
func buildUpdateQuery(ruleID string, update domain.RuleUpdate) (string, map[string]any) {
	props := map[string]any{
		"updated_at": time.Now().UTC().Format(dateLayout),
	}
	setIfPresent(props, "name", update.Name)
	setIfPresent(props, "description", update.Description)
	setIfPresent(props, "category", update.Category)
	setIfPresent(props, "obligation_level", update.ObligationLevel)
	setIfPresent(props, "validation_logic", update.ValidationLogic)
	setIfPresent(props, "source_reference", update.SourceReference)
	if update.EffectiveDate != nil {
		props["effective_date"] = formatDatePtr(update.EffectiveDate)
	}
	if update.DataElements != nil {
		props["data_elements"] = update.DataElements
	}
	if update.Conditions != nil {
		props["conditions"] = update.Conditions
	}
	if update.Actions != nil {
		props["actions"] = update.Actions
	}
	if update.Exceptions != nil {
		props["exceptions"] = update.Exceptions
	}
	if update.Thresholds != nil {
		props["thresholds"] = update.Thresholds
	}
	if update.RelatedRules != nil {
		props["related_rules"] = update.RelatedRules
	}

	params := map[string]any{
		"ruleId": ruleID,
		"props":  props,
	}

	var b strings.Builder
	b.WriteString("MATCH (r:Rule {rule_id: $ruleId})\nSET r += $props\n")

	if update.Category != nil {
		b.WriteString(updateCategoryFragment)
		params["category"] = *update.Category
	}
	if update.DataElements != nil {
		b.WriteString(updateElementsFragment)
		params["dataElements"] = update.DataElements
	}
	if update.RelatedRules != nil {
		b.WriteString(updateRelatedFragment)
		params["relatedRules"] = update.RelatedRules
	}

	b.WriteString("RETURN r.rule_id AS rule_id\n")
	return b.String(), params
}

func setIfPresent(props map[string]any, key string, value *string) {
	if value != nil {
		props[key] = *value
	}
}

const updateCategoryFragment = `WITH r
OPTIONAL MATCH (r)-[old:IN_CATEGORY]->(:Category)
DELETE old
WITH DISTINCT r
MERGE (c:Category {name: $category})
MERGE (r)-[:IN_CATEGORY]->(c)
`

const updateElementsFragment = `WITH r
OPTIONAL MATCH (r)-[old:APPLIES_TO]->(:DataElement)
DELETE old
WITH DISTINCT r
FOREACH (elementId IN $dataElements |
	MERGE (d:DataElement {element_id: elementId})
	MERGE (r)-[:APPLIES_TO]->(d)
)
`

const updateRelatedFragment = `WITH r
OPTIONAL MATCH (r)-[old:RELATED_TO]->(:Rule)
DELETE old
WITH DISTINCT r
FOREACH (relatedId IN $relatedRules |
	MERGE (other:Rule {rule_id: relatedId})
	MERGE (r)-[:RELATED_TO]->(other)
)
`
