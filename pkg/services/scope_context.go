package services

import (
	"context"

	"github.com/rahulmathur/nyclpc-ResearchDataHub-sub000/pkg/database"
)

// ScopeFunc acquires a dedicated database connection.
// Returns the scoped context, a cleanup function (MUST be called), and any error.
type ScopeFunc func(ctx context.Context) (context.Context, func(), error)

// NewScopeFunc creates a ScopeFunc that uses the given database.
func NewScopeFunc(db *database.DB) ScopeFunc {
	return db.WithScope
}
