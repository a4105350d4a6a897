package branchscope

import (
	"context"
	"testing"

	"stocktally/internal/core/apperror"
	appctx "stocktally/internal/core/context"
)

func int64Ptr(v int64) *int64 { return &v }

func TestResolve_ExplicitWins(t *testing.T) {
	r := NewResolver(func(ctx context.Context) (int64, bool) { return 7, true })

	got, err := r.Resolve(context.Background(), int64Ptr(3))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 3 {
		t.Errorf("expected explicit branch 3, got %d", got)
	}
}

func TestResolve_ProviderFallback(t *testing.T) {
	r := NewResolver(func(ctx context.Context) (int64, bool) { return 7, true })

	got, err := r.Resolve(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 7 {
		t.Errorf("expected provider branch 7, got %d", got)
	}
}

func TestResolve_NoBranchAnywhere(t *testing.T) {
	r := NewResolver(func(ctx context.Context) (int64, bool) { return 0, false })

	_, err := r.Resolve(context.Background(), nil)
	if !apperror.IsCode(err, apperror.CodeMissingBranchContext) {
		t.Fatalf("expected MISSING_BRANCH_CONTEXT, got %v", err)
	}
}

func TestResolve_NonPositiveExplicitIgnored(t *testing.T) {
	r := NewResolver(func(ctx context.Context) (int64, bool) { return 0, false })

	_, err := r.Resolve(context.Background(), int64Ptr(0))
	if !apperror.IsCode(err, apperror.CodeMissingBranchContext) {
		t.Fatalf("expected MISSING_BRANCH_CONTEXT, got %v", err)
	}
}

func TestFromUserContext(t *testing.T) {
	provider := FromUserContext()

	// No user in context
	if _, ok := provider(context.Background()); ok {
		t.Error("expected no branch without a user")
	}

	// Branch-bound user
	ctx := appctx.WithUser(context.Background(), &appctx.UserContext{
		UserID:   "u1",
		BranchID: int64Ptr(4),
	})
	got, ok := provider(ctx)
	if !ok || got != 4 {
		t.Errorf("expected assigned branch 4, got %d (%v)", got, ok)
	}

	// Admin with a selected branch
	ctx = appctx.WithUser(context.Background(), &appctx.UserContext{
		UserID:           "u2",
		IsAdmin:          true,
		SelectedBranchID: int64Ptr(9),
	})
	got, ok = provider(ctx)
	if !ok || got != 9 {
		t.Errorf("expected selected branch 9, got %d (%v)", got, ok)
	}

	// Non-admin cannot use a selected branch
	ctx = appctx.WithUser(context.Background(), &appctx.UserContext{
		UserID:           "u3",
		SelectedBranchID: int64Ptr(9),
	})
	if _, ok := provider(ctx); ok {
		t.Error("expected no branch for non-admin with only a selection")
	}
}
