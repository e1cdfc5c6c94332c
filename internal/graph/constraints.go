package graph

import (
	"context"
	"fmt"
	"log/slog"
)

// Uniqueness constraints for the three entity kinds the catalog persists.
// The IF NOT EXISTS form makes repeated declaration a no-op, so these run on
// every process start.
var constraintStatements = []string{
	"CREATE CONSTRAINT rule_id IF NOT EXISTS FOR (r:Rule) REQUIRE r.rule_id IS UNIQUE",
	"CREATE CONSTRAINT data_element_id IF NOT EXISTS FOR (d:DataElement) REQUIRE d.element_id IS UNIQUE",
	"CREATE CONSTRAINT category_name IF NOT EXISTS FOR (c:Category) REQUIRE c.name IS UNIQUE",
}

// CreateConstraints declares the uniqueness constraints idempotently. Any
// failure is logged and returned; callers treat it as fatal to startup.
func CreateConstraints(ctx context.Context, client Client, logger *slog.Logger) error {
	for _, stmt := range constraintStatements {
		if err := client.Execute(ctx, stmt, nil); err != nil {
			logger.Error("constraint setup failed", "statement", stmt, "error", err)
			return fmt.Errorf("create constraint: %w", err)
		}
		logger.Debug("applied constraint", "statement", stmt)
	}
	return nil
}
