package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/cjamtp/rulegraph/internal/domain"
	"github.com/cjamtp/rulegraph/internal/graph"
	"github.com/cjamtp/rulegraph/internal/schema"
)

// dateLayout is the storage format for rule dates. ISO dates compare
// correctly as strings, which the range filter relies on.
const dateLayout = "2006-01-02"

var (
	// ErrRuleNotFound indicates no rule exists with the requested id.
	ErrRuleNotFound = errors.New("rule not found")
	// ErrElementNotFound indicates no data element exists with the requested id.
	ErrElementNotFound = errors.New("data element not found")
	// ErrInvalidArgument indicates a caller-supplied identifier or field is
	// missing or malformed.
	ErrInvalidArgument = errors.New("invalid argument")
)

// Repository encapsulates graph persistence for rules and data elements.
// Every write is validated against the configured schema before it reaches
// the store.
type Repository struct {
	client    graph.Client
	validator *schema.Validator
}

// New instantiates a Repository backed by the supplied graph client.
func New(client graph.Client, validator *schema.Validator) *Repository {
	return &Repository{client: client, validator: validator}
}

// CreateRule validates and persists a new rule. A missing rule_id is assigned
// by the repository, as are created_at/updated_at. The stored rule is
// returned with all server-assigned fields populated.
func (r *Repository) CreateRule(ctx context.Context, rule domain.Rule) (domain.Rule, error) {
	if err := r.validator.ValidateNewRule(&rule); err != nil {
		return domain.Rule{}, err
	}

	if rule.RuleID == "" {
		rule.RuleID = "R-" + uuid.NewString()
	}

	now := time.Now().UTC()
	rule.CreatedAt = &now
	rule.UpdatedAt = &now

	params := map[string]any{
		"ruleId":       rule.RuleID,
		"props":        ruleProperties(rule),
		"category":     rule.Category,
		"dataElements": stringList(rule.DataElements),
		"relatedRules": stringList(rule.RelatedRules),
	}

	if err := r.client.Execute(ctx, createRuleCypher, params); err != nil {
		return domain.Rule{}, fmt.Errorf("create rule %s: %w", rule.RuleID, err)
	}
	return rule, nil
}

// UpdateRule applies a partial record to an existing rule. Only present
// fields are validated and written; relationship sets are rebuilt only when
// the corresponding field is present. Returns the updated rule.
func (r *Repository) UpdateRule(ctx context.Context, ruleID string, update domain.RuleUpdate) (domain.Rule, error) {
	if ruleID == "" {
		return domain.Rule{}, fmt.Errorf("%w: rule id is required", ErrInvalidArgument)
	}
	if err := r.validator.ValidateUpdate(&update); err != nil {
		return domain.Rule{}, err
	}

	existing, err := r.GetRule(ctx, ruleID)
	if err != nil {
		return domain.Rule{}, err
	}
	if existing == nil {
		return domain.Rule{}, fmt.Errorf("%w: %s", ErrRuleNotFound, ruleID)
	}

	query, params := buildUpdateQuery(ruleID, update)
	if err := r.client.Execute(ctx, query, params); err != nil {
		return domain.Rule{}, fmt.Errorf("update rule %s: %w", ruleID, err)
	}

	updated, err := r.GetRule(ctx, ruleID)
	if err != nil {
		return domain.Rule{}, err
	}
	if updated == nil {
		return domain.Rule{}, fmt.Errorf("%w: %s", ErrRuleNotFound, ruleID)
	}
	return *updated, nil
}

// GetRule fetches a single rule by id, or nil when none exists.
func (r *Repository) GetRule(ctx context.Context, ruleID string) (*domain.Rule, error) {
	if ruleID == "" {
		return nil, fmt.Errorf("%w: rule id is required", ErrInvalidArgument)
	}

	record, err := r.client.FetchOne(ctx, getRuleCypher, map[string]any{"ruleId": ruleID})
	if err != nil {
		return nil, fmt.Errorf("get rule %s: %w", ruleID, err)
	}
	if record == nil {
		return nil, nil
	}
	rule := mapRule(record)
	return &rule, nil
}

// ListRules returns every rule matching the filter, ordered by rule_id. An
// empty filter matches the whole catalog; no match yields an empty slice.
func (r *Repository) ListRules(ctx context.Context, filter domain.RuleFilter) ([]domain.Rule, error) {
	if err := r.validator.NormalizeFilter(&filter); err != nil {
		return nil, err
	}

	query, params := buildListQuery(filter)
	records, err := r.client.FetchAll(ctx, query, params)
	if err != nil {
		return nil, fmt.Errorf("list rules: %w", err)
	}

	rules := make([]domain.Rule, 0, len(records))
	for _, record := range records {
		rules = append(rules, mapRule(record))
	}
	return rules, nil
}

// RulesForElement returns the rules applying to a data element, ordered by
// rule_id.
func (r *Repository) RulesForElement(ctx context.Context, elementID string) ([]domain.Rule, error) {
	if elementID == "" {
		return nil, fmt.Errorf("%w: element id is required", ErrInvalidArgument)
	}

	records, err := r.client.FetchAll(ctx, rulesForElementCypher, map[string]any{
		"elementId": elementID,
	})
	if err != nil {
		return nil, fmt.Errorf("rules for element %s: %w", elementID, err)
	}

	rules := make([]domain.Rule, 0, len(records))
	for _, record := range records {
		rules = append(rules, mapRule(record))
	}
	return rules, nil
}

func ruleProperties(rule domain.Rule) map[string]any {
	props := map[string]any{
		"name":             rule.Name,
		"description":      rule.Description,
		"category":         rule.Category,
		"obligation_level": rule.ObligationLevel,
		"data_elements":    stringList(rule.DataElements),
		"conditions":       stringList(rule.Conditions),
		"actions":          stringList(rule.Actions),
		"exceptions":       stringList(rule.Exceptions),
		"thresholds":       stringList(rule.Thresholds),
		"validation_logic": rule.ValidationLogic,
		"source_reference": rule.SourceReference,
		"related_rules":    stringList(rule.RelatedRules),
		"created_at":       formatDatePtr(rule.CreatedAt),
		"updated_at":       formatDatePtr(rule.UpdatedAt),
	}
	if rule.EffectiveDate != nil {
		props["effective_date"] = formatDatePtr(rule.EffectiveDate)
	}
	return props
}

func stringList(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

func formatDatePtr(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateLayout)
}

const createRuleCypher = `
CREATE (r:Rule {rule_id: $ruleId})
SET r += $props
WITH r
MERGE (c:Category {name: $category})
MERGE (r)-[:IN_CATEGORY]->(c)
WITH r
FOREACH (elementId IN $dataElements |
	MERGE (d:DataElement {element_id: elementId})
	MERGE (r)-[:APPLIES_TO]->(d)
)
FOREACH (relatedId IN $relatedRules |
	MERGE (other:Rule {rule_id: relatedId})
	MERGE (r)-[:RELATED_TO]->(other)
)
RETURN r.rule_id AS rule_id
`

const ruleReturnColumns = `
RETURN r.rule_id AS rule_id,
       r.name AS name,
       r.description AS description,
       r.category AS category,
       r.obligation_level AS obligation_level,
       r.data_elements AS data_elements,
       r.conditions AS conditions,
       r.actions AS actions,
       r.exceptions AS exceptions,
       r.thresholds AS thresholds,
       r.validation_logic AS validation_logic,
       r.source_reference AS source_reference,
       r.effective_date AS effective_date,
       r.related_rules AS related_rules,
       r.created_at AS created_at,
       r.updated_at AS updated_at`

const getRuleCypher = `
MATCH (r:Rule {rule_id: $ruleId})` + ruleReturnColumns + `
`

const rulesForElementCypher = `
MATCH (r:Rule)-[:APPLIES_TO]->(:DataElement {element_id: $elementId})` + ruleReturnColumns + `
ORDER BY r.rule_id
`
