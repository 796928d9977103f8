package health

import (
	"context"

	"gra-pca/sentinel/pkg/execution"
	"gra-pca/sentinel/pkg/rulepack"
)

// ActiveRulePackCheck fails unless the store can be read and holds an
// active rule pack.
func ActiveRulePackCheck(store rulepack.Store) CheckFunc {
	return func(ctx context.Context) error {
		_, err := rulepack.Active(ctx, store)
		return err
	}
}

// ExecutionStoreCheck fails when the execution store cannot be queried.
func ExecutionStoreCheck(storage execution.Storage) CheckFunc {
	return func(ctx context.Context) error {
		_, err := storage.Count(ctx, &execution.Query{})
		return err
	}
}
