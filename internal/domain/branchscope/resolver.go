// Package branchscope resolves the branch identifier every inventory
// operation is scoped to. Trivial but load-bearing: it must never silently
// default to a branch the caller did not ask for.
package branchscope

import (
	"context"

	"stocktally/internal/core/apperror"
	appctx "stocktally/internal/core/context"
)

// Provider supplies the effective branch for the current principal when no
// explicit branch was given. Injected by the identity collaborator; must be
// stable for the duration of one operation.
type Provider func(ctx context.Context) (int64, bool)

// Resolver resolves an optional explicit branch against the effective-branch
// provider. Pure, no side effects.
type Resolver struct {
	provider Provider
}

// NewResolver creates a resolver backed by the given provider.
func NewResolver(provider Provider) *Resolver {
	return &Resolver{provider: provider}
}

// FromUserContext builds the standard provider: the principal's assigned
// branch, or the admin-selected one.
func FromUserContext() Provider {
	return func(ctx context.Context) (int64, bool) {
		return appctx.GetUser(ctx).EffectiveBranch()
	}
}

// Resolve returns the branch to use for an operation. An explicit positive
// branch wins; otherwise the provider decides. Fails with
// MISSING_BRANCH_CONTEXT when neither is present; callers must treat that as
// non-retryable.
func (r *Resolver) Resolve(ctx context.Context, explicit *int64) (int64, error) {
	if explicit != nil && *explicit > 0 {
		return *explicit, nil
	}
	if r.provider != nil {
		if branchID, ok := r.provider(ctx); ok && branchID > 0 {
			return branchID, nil
		}
	}
	return 0, apperror.NewMissingBranchContext()
}
