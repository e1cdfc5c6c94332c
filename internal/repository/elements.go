package repository

import (
	"context"
	"fmt"

	"github.com/cjamtp/rulegraph/internal/domain"
)

// UpsertDataElement registers or refreshes a data element. Elements are
// long-lived reference data, so re-registration is a plain property refresh.
func (r *Repository) UpsertDataElement(ctx context.Context, element domain.DataElement) error {
	if element.ElementID == "" {
		return fmt.Errorf("%w: element id is required", ErrInvalidArgument)
	}
	if element.Name == "" {
		return fmt.Errorf("%w: element name is required", ErrInvalidArgument)
	}

	params := map[string]any{
		"elementId": element.ElementID,
		"props": map[string]any{
			"name":        element.Name,
			"description": element.Description,
			"data_type":   element.DataType,
			"domain":      element.Domain,
		},
	}

	if err := r.client.Execute(ctx, upsertElementCypher, params); err != nil {
		return fmt.Errorf("upsert data element %s: %w", element.ElementID, err)
	}
	return nil
}

// GetDataElement fetches a single data element by id, or nil when none
// exists.
func (r *Repository) GetDataElement(ctx context.Context, elementID string) (*domain.DataElement, error) {
	if elementID == "" {
		return nil, fmt.Errorf("%w: element id is required", ErrInvalidArgument)
	}

	record, err := r.client.FetchOne(ctx, getElementCypher, map[string]any{"elementId": elementID})
	if err != nil {
		return nil, fmt.Errorf("get data element %s: %w", elementID, err)
	}
	if record == nil {
		return nil, nil
	}
	element := mapElement(record)
	return &element, nil
}

// ListDataElements returns every registered data element ordered by id.
func (r *Repository) ListDataElements(ctx context.Context) ([]domain.DataElement, error) {
	records, err := r.client.FetchAll(ctx, listElementsCypher, nil)
	if err != nil {
		return nil, fmt.Errorf("list data elements: %w", err)
	}

	elements := make([]domain.DataElement, 0, len(records))
	for _, record := range records {
		elements = append(elements, mapElement(record))
	}
	return elements, nil
}

const upsertElementCypher = `
MERGE (d:DataElement {element_id: $elementId})
SET d += $props
RETURN d.element_id AS element_id
`

const elementReturnColumns = `
RETURN d.element_id AS element_id,
       d.name AS name,
       d.description AS description,
       d.data_type AS data_type,
       d.domain AS domain`

const getElementCypher = `
MATCH (d:DataElement {element_id: $elementId})` + elementReturnColumns + `
`

const listElementsCypher = `
MATCH (d:DataElement)` + elementReturnColumns + `
ORDER BY d.element_id
`
